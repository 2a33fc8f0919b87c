package events

import (
	"time"

	"github.com/spec-kit/ticket-triage/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketReceived   EventType = "ticket_received"
	EventTicketClassified EventType = "ticket_classified"
	EventRoutingAttempted EventType = "routing_attempted"
	EventTicketRouted     EventType = "ticket_routed"
	EventTicketFailed     EventType = "ticket_failed"
)

// Event represents a pipeline event emitted by the triage service.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketReceivedPayload payload.
type TicketReceivedPayload struct {
	Title    string                `json:"title"`
	Priority domain.TicketPriority `json:"priority"`
}

// TicketClassifiedPayload payload.
type TicketClassifiedPayload struct {
	Department domain.Department `json:"department"`
	AssignedTo string            `json:"assigned_to,omitempty"`
	Confidence float64           `json:"confidence"`
	Fallback   bool              `json:"fallback"`
}

// RoutingAttemptedPayload payload.
type RoutingAttemptedPayload struct {
	Target    string `json:"target"`
	System    string `json:"system"`
	Attempt   int    `json:"attempt"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// TicketRoutedPayload payload.
type TicketRoutedPayload struct {
	System     string  `json:"system"`
	TeamName   string  `json:"team_name"`
	ExternalID *string `json:"external_id,omitempty"`
}

// TicketFailedPayload payload.
type TicketFailedPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
