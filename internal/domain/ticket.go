package domain

import "time"

// TicketStatus enumerates pipeline states for tickets. Transitions are
// monotonic within a processing run; ROUTED and FAILED are terminal.
type TicketStatus string

const (
	TicketStatusReceived   TicketStatus = "RECEIVED"
	TicketStatusClassified TicketStatus = "CLASSIFIED"
	TicketStatusRouting    TicketStatus = "ROUTING"
	TicketStatusRouted     TicketStatus = "ROUTED"
	TicketStatusFailed     TicketStatus = "FAILED"
)

// IsTerminal reports whether no further transitions are allowed.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusRouted || s == TicketStatusFailed
}

// TicketPriority enumerates urgency, ordered low < medium < high < critical.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "low"
	TicketPriorityMedium   TicketPriority = "medium"
	TicketPriorityHigh     TicketPriority = "high"
	TicketPriorityCritical TicketPriority = "critical"
)

var priorityRanks = map[TicketPriority]int{
	TicketPriorityLow:      1,
	TicketPriorityMedium:   2,
	TicketPriorityHigh:     3,
	TicketPriorityCritical: 4,
}

// Rank returns the ordering value of the priority; unknown values rank lowest.
func (p TicketPriority) Rank() int {
	return priorityRanks[p]
}

// Valid reports whether the priority is one of the known levels.
func (p TicketPriority) Valid() bool {
	_, ok := priorityRanks[p]
	return ok
}

// Ticket is the unit of work flowing through the triage pipeline. It is an
// immutable value: transitions produce a new copy, and the ledger persists
// each version with compare-and-swap semantics on the previous status.
type Ticket struct {
	ID              string
	Title           string
	Description     string
	SubmitterEmail  string
	Priority        TicketPriority
	Metadata        map[string]string
	Status          TicketStatus
	Department      *Department
	AssignedTo      *string
	ConfidenceScore *float64
	RoutedToSystem  *string
	ExternalID      *string
	ErrorMessage    *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

var allowedTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusReceived:   {TicketStatusClassified},
	TicketStatusClassified: {TicketStatusRouting},
	TicketStatusRouting:    {TicketStatusRouted, TicketStatusFailed},
	TicketStatusRouted:     {},
	TicketStatusFailed:     {},
}

// CanTransition reports whether the state machine permits moving to next.
func (t Ticket) CanTransition(next TicketStatus) bool {
	for _, candidate := range allowedTransitions[t.Status] {
		if candidate == next {
			return true
		}
	}
	return false
}

// WithClassification returns a CLASSIFIED copy carrying the resolved
// department, team assignment and confidence score.
func (t Ticket) WithClassification(dept Department, assignedTo string, confidence float64, now time.Time) Ticket {
	next := t
	next.Status = TicketStatusClassified
	next.Department = &dept
	if assignedTo != "" {
		next.AssignedTo = &assignedTo
	}
	next.ConfidenceScore = &confidence
	next.UpdatedAt = now
	return next
}

// WithRouting returns a ROUTING copy.
func (t Ticket) WithRouting(now time.Time) Ticket {
	next := t
	next.Status = TicketStatusRouting
	next.UpdatedAt = now
	return next
}

// WithRouted returns a terminal ROUTED copy recording the winning target.
func (t Ticket) WithRouted(system string, externalID *string, now time.Time) Ticket {
	next := t
	next.Status = TicketStatusRouted
	next.RoutedToSystem = &system
	next.ExternalID = externalID
	next.ErrorMessage = nil
	next.UpdatedAt = now
	return next
}

// WithFailed returns a terminal FAILED copy carrying the last cause.
func (t Ticket) WithFailed(message string, now time.Time) Ticket {
	next := t
	next.Status = TicketStatusFailed
	next.ErrorMessage = &message
	next.UpdatedAt = now
	return next
}
