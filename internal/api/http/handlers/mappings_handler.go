package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-triage/internal/api/dto"
	"github.com/spec-kit/ticket-triage/internal/domain"
	"github.com/spec-kit/ticket-triage/internal/repository"
	"github.com/spec-kit/ticket-triage/pkg/util"
)

// MappingsHandler manages routing configuration at runtime.
type MappingsHandler struct {
	store repository.MappingStore
}

// NewMappingsHandler constructs handler.
func NewMappingsHandler(store repository.MappingStore) *MappingsHandler {
	return &MappingsHandler{store: store}
}

// List GET /admin/mappings.
func (h *MappingsHandler) List(c *fiber.Ctx) error {
	mappings, err := h.store.List(c.UserContext())
	if err != nil {
		return util.NewInternalError(err)
	}
	items := make([]dto.MappingResponse, 0, len(mappings))
	for _, mapping := range mappings {
		items = append(items, dto.NewMappingResponse(mapping))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Create POST /admin/mappings.
func (h *MappingsHandler) Create(c *fiber.Ctx) error {
	mapping, err := parseMappingRequest(c)
	if err != nil {
		return err
	}
	if err := h.store.Create(c.UserContext(), mapping); err != nil {
		return util.NewInternalError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewMappingResponse(*mapping)})
}

// Update PUT /admin/mappings/:id.
func (h *MappingsHandler) Update(c *fiber.Ctx) error {
	mapping, err := parseMappingRequest(c)
	if err != nil {
		return err
	}
	mapping.ID = c.Params("id")
	if mapping.ID == "" {
		return util.NewValidationError("mapping id required", nil)
	}
	if err := h.store.Update(c.UserContext(), mapping); err != nil {
		if errors.Is(err, repository.ErrMappingNotFound) {
			return util.NewNotFound("mapping", map[string]any{"id": mapping.ID})
		}
		return util.NewInternalError(err)
	}
	return c.JSON(fiber.Map{"data": dto.NewMappingResponse(*mapping)})
}

func parseMappingRequest(c *fiber.Ctx) (*domain.DepartmentMapping, error) {
	var req dto.MappingRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, util.NewValidationError("invalid payload", nil)
	}

	details := map[string]any{}
	department := domain.Department(strings.ToUpper(req.Department))
	if !department.Valid() {
		details["department"] = "unknown department"
	}
	if strings.TrimSpace(req.TeamName) == "" {
		details["team_name"] = "required"
	}
	if !strings.HasPrefix(req.Endpoint, "http://") && !strings.HasPrefix(req.Endpoint, "https://") {
		details["endpoint"] = "must be an http(s) URL"
	}
	threshold := domain.TicketPriority(strings.ToLower(req.PriorityThreshold))
	if req.PriorityThreshold == "" {
		threshold = domain.TicketPriorityLow
	} else if !threshold.Valid() {
		details["priority_threshold"] = "must be one of low, medium, high, critical"
	}
	if req.ConfidenceFloor != nil && (*req.ConfidenceFloor < 0 || *req.ConfidenceFloor > 1) {
		details["confidence_floor"] = "must be within [0,1]"
	}
	if len(details) > 0 {
		return nil, util.NewValidationError("invalid mapping", details)
	}

	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodPost
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return &domain.DepartmentMapping{
		Department:        department,
		TeamName:          strings.TrimSpace(req.TeamName),
		Endpoint:          req.Endpoint,
		Method:            method,
		Headers:           req.Headers,
		PriorityThreshold: threshold,
		ConfidenceFloor:   req.ConfidenceFloor,
		IsActive:          active,
	}, nil
}
