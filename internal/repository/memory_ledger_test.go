package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-triage/internal/domain"
)

func newLedgerTicket(id string) domain.Ticket {
	return domain.Ticket{
		ID:             id,
		Title:          "Printer jam",
		Description:    "Third floor printer jammed again",
		SubmitterEmail: "user@example.com",
		Priority:       domain.TicketPriorityLow,
		Status:         domain.TicketStatusReceived,
	}
}

func TestCreateIfAbsent(t *testing.T) {
	ledger := NewMemoryLedger()

	first, created, err := ledger.CreateIfAbsent(context.Background(), newLedgerTicket("TKT-LEDGER01"))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, domain.TicketStatusReceived, first.Status)

	dupe := newLedgerTicket("TKT-LEDGER01")
	dupe.Title = "different payload, same id"
	second, created, err := ledger.CreateIfAbsent(context.Background(), dupe)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "Printer jam", second.Title, "existing record wins")
}

func TestCreateIfAbsentSingleWinnerUnderConcurrency(t *testing.T) {
	ledger := NewMemoryLedger()

	const workers = 16
	var wg sync.WaitGroup
	results := make([]bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			_, created, _ := ledger.CreateIfAbsent(context.Background(), newLedgerTicket("TKT-RACE0001"))
			results[slot] = created
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, created := range results {
		if created {
			winners++
		}
	}
	assert.Equal(t, 1, winners, "exactly one submission owns the pipeline run")
}

func TestTransitionCompareAndSwap(t *testing.T) {
	ledger := NewMemoryLedger()
	ticket, _, err := ledger.CreateIfAbsent(context.Background(), newLedgerTicket("TKT-CAS00001"))
	require.NoError(t, err)

	classified, err := ledger.Transition(context.Background(),
		ticket.WithClassification(domain.DepartmentIT, "it_support_team", 0.8, time.Now()),
		domain.TicketStatusReceived)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClassified, classified.Status)

	// A second writer still holding the RECEIVED snapshot loses the swap.
	_, err = ledger.Transition(context.Background(),
		ticket.WithClassification(domain.DepartmentHR, "hr_operations", 0.9, time.Now()),
		domain.TicketStatusReceived)
	require.ErrorIs(t, err, ErrStaleTicket)

	stored, err := ledger.Get(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Department)
	assert.Equal(t, domain.DepartmentIT, *stored.Department, "losing write never lands")
}

func TestTransitionUnknownTicket(t *testing.T) {
	ledger := NewMemoryLedger()

	_, err := ledger.Transition(context.Background(), newLedgerTicket("TKT-NOPE0001"), domain.TicketStatusReceived)
	require.ErrorIs(t, err, ErrTicketNotFound)
}

func TestGetReturnsCopy(t *testing.T) {
	ledger := NewMemoryLedger()
	ticket := newLedgerTicket("TKT-COPY0001")
	ticket.Metadata = map[string]string{"channel": "email"}
	_, _, err := ledger.CreateIfAbsent(context.Background(), ticket)
	require.NoError(t, err)

	got, err := ledger.Get(context.Background(), ticket.ID)
	require.NoError(t, err)
	got.Metadata["channel"] = "mutated"

	again, err := ledger.Get(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "email", again.Metadata["channel"])
}
