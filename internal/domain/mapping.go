package domain

import "time"

// DepartmentMapping binds a department to a downstream routing target. A
// department may carry several mappings; the router tries them in threshold
// order and the first success wins.
type DepartmentMapping struct {
	ID                string
	Department        Department
	TeamName          string
	Endpoint          string
	Method            string
	Headers           map[string]string
	PriorityThreshold TicketPriority
	ConfidenceFloor   *float64
	IsActive          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Accepts reports whether the mapping handles tickets of the given priority.
func (m DepartmentMapping) Accepts(priority TicketPriority) bool {
	return priority.Rank() >= m.PriorityThreshold.Rank()
}
