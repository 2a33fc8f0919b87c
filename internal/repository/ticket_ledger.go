package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-triage/internal/domain"
)

var (
	// ErrTicketNotFound signals an unknown ticket identifier.
	ErrTicketNotFound = errors.New("ticket not found")
	// ErrStaleTicket signals a compare-and-swap conflict: the stored status
	// no longer matches the expected one.
	ErrStaleTicket = errors.New("ticket status changed concurrently")
)

// TicketLedger is the durable store of tickets and their processing status.
// CreateIfAbsent must be atomic: the existence check and the initial write
// are one operation, never read-then-write. Transition applies CAS semantics
// on the previous status so the orchestrator stays the sole effective writer.
type TicketLedger interface {
	CreateIfAbsent(ctx context.Context, ticket domain.Ticket) (domain.Ticket, bool, error)
	Get(ctx context.Context, id string) (domain.Ticket, error)
	Transition(ctx context.Context, ticket domain.Ticket, expected domain.TicketStatus) (domain.Ticket, error)
}

type ticketLedger struct {
	pool *pgxpool.Pool
}

// NewTicketLedger builds the postgres-backed ledger.
func NewTicketLedger(pool *pgxpool.Pool) TicketLedger {
	return &ticketLedger{pool: pool}
}

func (l *ticketLedger) CreateIfAbsent(ctx context.Context, ticket domain.Ticket) (domain.Ticket, bool, error) {
	const query = `
        INSERT INTO tickets (ticket_id, title, description, submitter_email, priority, metadata, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (ticket_id) DO NOTHING
        RETURNING created_at, updated_at`
	err := l.pool.QueryRow(ctx, query,
		ticket.ID,
		ticket.Title,
		ticket.Description,
		ticket.SubmitterEmail,
		ticket.Priority,
		ticket.Metadata,
		ticket.Status,
	).Scan(&ticket.CreatedAt, &ticket.UpdatedAt)
	if err == nil {
		return ticket, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Ticket{}, false, err
	}
	// Conflict: an entry for this identifier already exists.
	existing, err := l.Get(ctx, ticket.ID)
	if err != nil {
		return domain.Ticket{}, false, err
	}
	return existing, false, nil
}

func (l *ticketLedger) Get(ctx context.Context, id string) (domain.Ticket, error) {
	const query = `
        SELECT ticket_id, title, description, submitter_email, priority, metadata, status,
               department, assigned_to, confidence_score, routed_to_system, external_ticket_id,
               error_message, created_at, updated_at
        FROM tickets WHERE ticket_id=$1`
	var ticket domain.Ticket
	var department *string
	err := l.pool.QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.SubmitterEmail,
		&ticket.Priority,
		&ticket.Metadata,
		&ticket.Status,
		&department,
		&ticket.AssignedTo,
		&ticket.ConfidenceScore,
		&ticket.RoutedToSystem,
		&ticket.ExternalID,
		&ticket.ErrorMessage,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Ticket{}, ErrTicketNotFound
	}
	if err != nil {
		return domain.Ticket{}, err
	}
	if department != nil {
		dept := domain.Department(*department)
		ticket.Department = &dept
	}
	return ticket, nil
}

func (l *ticketLedger) Transition(ctx context.Context, ticket domain.Ticket, expected domain.TicketStatus) (domain.Ticket, error) {
	const query = `
        UPDATE tickets SET status=$1, department=$2, assigned_to=$3, confidence_score=$4,
            routed_to_system=$5, external_ticket_id=$6, error_message=$7, updated_at=NOW()
        WHERE ticket_id=$8 AND status=$9
        RETURNING updated_at`
	var department *string
	if ticket.Department != nil {
		val := string(*ticket.Department)
		department = &val
	}
	err := l.pool.QueryRow(ctx, query,
		ticket.Status,
		department,
		ticket.AssignedTo,
		ticket.ConfidenceScore,
		ticket.RoutedToSystem,
		ticket.ExternalID,
		ticket.ErrorMessage,
		ticket.ID,
		expected,
	).Scan(&ticket.UpdatedAt)
	if err == nil {
		return ticket, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Ticket{}, err
	}
	if _, getErr := l.Get(ctx, ticket.ID); getErr != nil {
		return domain.Ticket{}, getErr
	}
	return domain.Ticket{}, ErrStaleTicket
}
