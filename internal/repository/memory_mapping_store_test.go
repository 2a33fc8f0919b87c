package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-triage/internal/domain"
)

func storeWith(t *testing.T, mappings ...domain.DepartmentMapping) MappingStore {
	t.Helper()
	store := NewMemoryMappingStore()
	for i := range mappings {
		require.NoError(t, store.Create(context.Background(), &mappings[i]))
	}
	return store
}

func TestLookupFiltersByDepartmentAndPriority(t *testing.T) {
	store := storeWith(t,
		domain.DepartmentMapping{Department: domain.DepartmentIT, TeamName: "helpdesk", Endpoint: "https://a", PriorityThreshold: domain.TicketPriorityLow, IsActive: true},
		domain.DepartmentMapping{Department: domain.DepartmentIT, TeamName: "escalations", Endpoint: "https://b", PriorityThreshold: domain.TicketPriorityHigh, IsActive: true},
		domain.DepartmentMapping{Department: domain.DepartmentHR, TeamName: "hr", Endpoint: "https://c", PriorityThreshold: domain.TicketPriorityLow, IsActive: true},
		domain.DepartmentMapping{Department: domain.DepartmentIT, TeamName: "retired", Endpoint: "https://d", PriorityThreshold: domain.TicketPriorityLow, IsActive: false},
	)

	low, err := store.Lookup(context.Background(), domain.DepartmentIT, domain.TicketPriorityLow)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "helpdesk", low[0].TeamName)

	critical, err := store.Lookup(context.Background(), domain.DepartmentIT, domain.TicketPriorityCritical)
	require.NoError(t, err)
	require.Len(t, critical, 2)
	assert.Equal(t, "escalations", critical[0].TeamName, "higher threshold tried first")
}

func TestLookupEmptyIsValid(t *testing.T) {
	store := NewMemoryMappingStore()

	mappings, err := store.Lookup(context.Background(), domain.DepartmentLegal, domain.TicketPriorityHigh)
	require.NoError(t, err)
	assert.Empty(t, mappings)
}

func TestUpdateMapping(t *testing.T) {
	store := storeWith(t,
		domain.DepartmentMapping{Department: domain.DepartmentIT, TeamName: "helpdesk", Endpoint: "https://a", PriorityThreshold: domain.TicketPriorityLow, IsActive: true},
	)

	listed, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, listed, 1)

	updated := listed[0]
	updated.IsActive = false
	require.NoError(t, store.Update(context.Background(), &updated))

	mappings, err := store.Lookup(context.Background(), domain.DepartmentIT, domain.TicketPriorityLow)
	require.NoError(t, err)
	assert.Empty(t, mappings, "deactivated mapping leaves the routing table")

	missing := updated
	missing.ID = "does-not-exist"
	assert.ErrorIs(t, store.Update(context.Background(), &missing), ErrMappingNotFound)
}
