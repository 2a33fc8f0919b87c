package dto

import (
	"time"

	"github.com/spec-kit/ticket-triage/internal/domain"
)

// SubmitTicketRequest is the inbound webhook payload.
type SubmitTicketRequest struct {
	TicketID    string            `json:"ticket_id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Email       string            `json:"email"`
	Priority    string            `json:"priority"`
	Metadata    map[string]string `json:"metadata"`
}

// TicketResponse projects ledger state for API consumers.
type TicketResponse struct {
	TicketID         string    `json:"ticket_id"`
	Title            string    `json:"title"`
	Status           string    `json:"status"`
	Priority         string    `json:"priority"`
	Department       *string   `json:"department,omitempty"`
	AssignedTo       *string   `json:"assigned_to,omitempty"`
	ConfidenceScore  *float64  `json:"confidence_score,omitempty"`
	RoutedToSystem   *string   `json:"routed_to_system,omitempty"`
	ExternalTicketID *string   `json:"external_ticket_id,omitempty"`
	ErrorMessage     *string   `json:"error_message,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewTicketResponse maps a domain ticket into its API projection.
func NewTicketResponse(ticket domain.Ticket) TicketResponse {
	resp := TicketResponse{
		TicketID:         ticket.ID,
		Title:            ticket.Title,
		Status:           string(ticket.Status),
		Priority:         string(ticket.Priority),
		AssignedTo:       ticket.AssignedTo,
		ConfidenceScore:  ticket.ConfidenceScore,
		RoutedToSystem:   ticket.RoutedToSystem,
		ExternalTicketID: ticket.ExternalID,
		ErrorMessage:     ticket.ErrorMessage,
		CreatedAt:        ticket.CreatedAt,
		UpdatedAt:        ticket.UpdatedAt,
	}
	if ticket.Department != nil {
		dept := string(*ticket.Department)
		resp.Department = &dept
	}
	return resp
}
