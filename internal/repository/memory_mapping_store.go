package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/ticket-triage/internal/domain"
)

// memoryMappingStore backs the mapping store when no postgres DSN is
// configured. Mappings remain mutable at runtime through the admin API.
type memoryMappingStore struct {
	mu       sync.RWMutex
	mappings map[string]domain.DepartmentMapping
}

// NewMemoryMappingStore builds an in-memory mapping store.
func NewMemoryMappingStore() MappingStore {
	return &memoryMappingStore{mappings: make(map[string]domain.DepartmentMapping)}
}

func (s *memoryMappingStore) Lookup(_ context.Context, dept domain.Department, priority domain.TicketPriority) ([]domain.DepartmentMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.DepartmentMapping
	for _, m := range s.mappings {
		if m.Department == dept && m.IsActive && m.Accepts(priority) {
			result = append(result, copyMapping(m))
		}
	}
	sortByThreshold(result)
	return result, nil
}

func (s *memoryMappingStore) List(_ context.Context) ([]domain.DepartmentMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.DepartmentMapping, 0, len(s.mappings))
	for _, m := range s.mappings {
		result = append(result, copyMapping(m))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Department != result[j].Department {
			return result[i].Department < result[j].Department
		}
		return result[i].PriorityThreshold.Rank() > result[j].PriorityThreshold.Rank()
	})
	return result, nil
}

func (s *memoryMappingStore) Create(_ context.Context, mapping *domain.DepartmentMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mapping.ID == "" {
		mapping.ID = uuid.NewString()
	}
	now := time.Now()
	mapping.CreatedAt = now
	mapping.UpdatedAt = now
	s.mappings[mapping.ID] = copyMapping(*mapping)
	return nil
}

func (s *memoryMappingStore) Update(_ context.Context, mapping *domain.DepartmentMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.mappings[mapping.ID]
	if !ok {
		return ErrMappingNotFound
	}
	mapping.CreatedAt = stored.CreatedAt
	mapping.UpdatedAt = time.Now()
	s.mappings[mapping.ID] = copyMapping(*mapping)
	return nil
}

func sortByThreshold(mappings []domain.DepartmentMapping) {
	sort.SliceStable(mappings, func(i, j int) bool {
		if mappings[i].PriorityThreshold.Rank() != mappings[j].PriorityThreshold.Rank() {
			return mappings[i].PriorityThreshold.Rank() > mappings[j].PriorityThreshold.Rank()
		}
		return mappings[i].CreatedAt.Before(mappings[j].CreatedAt)
	})
}

func copyMapping(m domain.DepartmentMapping) domain.DepartmentMapping {
	out := m
	if m.Headers != nil {
		out.Headers = make(map[string]string, len(m.Headers))
		for k, v := range m.Headers {
			out.Headers[k] = v
		}
	}
	return out
}
