package dto

import (
	"time"

	"github.com/spec-kit/ticket-triage/internal/domain"
)

// MappingRequest creates or updates a department routing mapping.
type MappingRequest struct {
	Department        string            `json:"department"`
	TeamName          string            `json:"team_name"`
	Endpoint          string            `json:"endpoint"`
	Method            string            `json:"method"`
	Headers           map[string]string `json:"headers"`
	PriorityThreshold string            `json:"priority_threshold"`
	ConfidenceFloor   *float64          `json:"confidence_floor"`
	IsActive          *bool             `json:"is_active"`
}

// MappingResponse projects a mapping for the admin surface.
type MappingResponse struct {
	ID                string            `json:"id"`
	Department        string            `json:"department"`
	TeamName          string            `json:"team_name"`
	Endpoint          string            `json:"endpoint"`
	Method            string            `json:"method"`
	Headers           map[string]string `json:"headers,omitempty"`
	PriorityThreshold string            `json:"priority_threshold"`
	ConfidenceFloor   *float64          `json:"confidence_floor,omitempty"`
	IsActive          bool              `json:"is_active"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// NewMappingResponse maps a domain mapping into its API projection.
func NewMappingResponse(mapping domain.DepartmentMapping) MappingResponse {
	return MappingResponse{
		ID:                mapping.ID,
		Department:        string(mapping.Department),
		TeamName:          mapping.TeamName,
		Endpoint:          mapping.Endpoint,
		Method:            mapping.Method,
		Headers:           mapping.Headers,
		PriorityThreshold: string(mapping.PriorityThreshold),
		ConfidenceFloor:   mapping.ConfidenceFloor,
		IsActive:          mapping.IsActive,
		CreatedAt:         mapping.CreatedAt,
		UpdatedAt:         mapping.UpdatedAt,
	}
}
