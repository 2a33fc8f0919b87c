package repository

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/ticket-triage/internal/domain"
)

// memoryLedger is the in-process ledger used when no postgres DSN is
// configured. It honors the same atomicity contract as the SQL ledger.
type memoryLedger struct {
	mu      sync.Mutex
	tickets map[string]domain.Ticket
}

// NewMemoryLedger builds an in-memory ledger.
func NewMemoryLedger() TicketLedger {
	return &memoryLedger{tickets: make(map[string]domain.Ticket)}
}

func (l *memoryLedger) CreateIfAbsent(_ context.Context, ticket domain.Ticket) (domain.Ticket, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.tickets[ticket.ID]; ok {
		return copyTicket(existing), false, nil
	}
	now := time.Now()
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = now
	}
	ticket.UpdatedAt = now
	l.tickets[ticket.ID] = copyTicket(ticket)
	return ticket, true, nil
}

func (l *memoryLedger) Get(_ context.Context, id string) (domain.Ticket, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ticket, ok := l.tickets[id]
	if !ok {
		return domain.Ticket{}, ErrTicketNotFound
	}
	return copyTicket(ticket), nil
}

func (l *memoryLedger) Transition(_ context.Context, ticket domain.Ticket, expected domain.TicketStatus) (domain.Ticket, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	stored, ok := l.tickets[ticket.ID]
	if !ok {
		return domain.Ticket{}, ErrTicketNotFound
	}
	if stored.Status != expected {
		return domain.Ticket{}, ErrStaleTicket
	}
	ticket.CreatedAt = stored.CreatedAt
	ticket.UpdatedAt = time.Now()
	l.tickets[ticket.ID] = copyTicket(ticket)
	return ticket, nil
}

func copyTicket(t domain.Ticket) domain.Ticket {
	out := t
	if t.Metadata != nil {
		out.Metadata = make(map[string]string, len(t.Metadata))
		for k, v := range t.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}
