package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-triage/internal/domain"
)

// ErrMappingNotFound signals an unknown mapping identifier.
var ErrMappingNotFound = errors.New("department mapping not found")

// MappingStore resolves departments to routing targets. Lookup is a fast
// local query by design: routing-configuration fetches must never compete
// with the ticket-processing latency budget. An empty result is valid and
// signals the router to fail with NoRouteAvailable.
type MappingStore interface {
	Lookup(ctx context.Context, dept domain.Department, priority domain.TicketPriority) ([]domain.DepartmentMapping, error)
	List(ctx context.Context) ([]domain.DepartmentMapping, error)
	Create(ctx context.Context, mapping *domain.DepartmentMapping) error
	Update(ctx context.Context, mapping *domain.DepartmentMapping) error
}

type mappingStore struct {
	pool *pgxpool.Pool
}

// NewMappingStore builds the postgres-backed store.
func NewMappingStore(pool *pgxpool.Pool) MappingStore {
	return &mappingStore{pool: pool}
}

// priorityOrder ranks the textual threshold for descending-priority ordering.
const priorityOrder = `CASE priority_threshold
        WHEN 'critical' THEN 4 WHEN 'high' THEN 3 WHEN 'medium' THEN 2 ELSE 1 END`

func (s *mappingStore) Lookup(ctx context.Context, dept domain.Department, priority domain.TicketPriority) ([]domain.DepartmentMapping, error) {
	query := `
        SELECT id, department, team_name, endpoint, http_method, headers,
               priority_threshold, confidence_floor, is_active, created_at, updated_at
        FROM department_mappings
        WHERE department=$1 AND is_active = TRUE
        ORDER BY ` + priorityOrder + ` DESC, created_at ASC`
	rows, err := s.pool.Query(ctx, query, dept)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	mappings, err := scanMappings(rows)
	if err != nil {
		return nil, err
	}
	accepted := make([]domain.DepartmentMapping, 0, len(mappings))
	for _, m := range mappings {
		if m.Accepts(priority) {
			accepted = append(accepted, m)
		}
	}
	return accepted, nil
}

func (s *mappingStore) List(ctx context.Context) ([]domain.DepartmentMapping, error) {
	query := `
        SELECT id, department, team_name, endpoint, http_method, headers,
               priority_threshold, confidence_floor, is_active, created_at, updated_at
        FROM department_mappings
        ORDER BY department ASC, ` + priorityOrder + ` DESC`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMappings(rows)
}

func (s *mappingStore) Create(ctx context.Context, mapping *domain.DepartmentMapping) error {
	const query = `
        INSERT INTO department_mappings (department, team_name, endpoint, http_method, headers,
            priority_threshold, confidence_floor, is_active)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	return s.pool.QueryRow(ctx, query,
		mapping.Department,
		mapping.TeamName,
		mapping.Endpoint,
		mapping.Method,
		mapping.Headers,
		mapping.PriorityThreshold,
		mapping.ConfidenceFloor,
		mapping.IsActive,
	).Scan(&mapping.ID, &mapping.CreatedAt, &mapping.UpdatedAt)
}

func (s *mappingStore) Update(ctx context.Context, mapping *domain.DepartmentMapping) error {
	const query = `
        UPDATE department_mappings SET department=$1, team_name=$2, endpoint=$3, http_method=$4,
            headers=$5, priority_threshold=$6, confidence_floor=$7, is_active=$8, updated_at=NOW()
        WHERE id=$9`
	cmd, err := s.pool.Exec(ctx, query,
		mapping.Department,
		mapping.TeamName,
		mapping.Endpoint,
		mapping.Method,
		mapping.Headers,
		mapping.PriorityThreshold,
		mapping.ConfidenceFloor,
		mapping.IsActive,
		mapping.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrMappingNotFound
	}
	return nil
}

func scanMappings(rows pgx.Rows) ([]domain.DepartmentMapping, error) {
	var result []domain.DepartmentMapping
	for rows.Next() {
		var m domain.DepartmentMapping
		if err := rows.Scan(
			&m.ID,
			&m.Department,
			&m.TeamName,
			&m.Endpoint,
			&m.Method,
			&m.Headers,
			&m.PriorityThreshold,
			&m.ConfidenceFloor,
			&m.IsActive,
			&m.CreatedAt,
			&m.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}
