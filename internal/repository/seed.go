package repository

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-triage/internal/domain"
)

// SeedDefaultMappings inserts starter routing targets when the store is
// empty, so a fresh deployment can route before any admin configuration.
func SeedDefaultMappings(ctx context.Context, store MappingStore, logger *zap.Logger) error {
	existing, err := store.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	defaults := []domain.DepartmentMapping{
		{
			Department:        domain.DepartmentIT,
			TeamName:          "IT Support Team",
			Endpoint:          "https://your-company.atlassian.net/rest/api/2/issue",
			Method:            "POST",
			Headers:           map[string]string{"Content-Type": "application/json"},
			PriorityThreshold: domain.TicketPriorityLow,
			IsActive:          true,
		},
		{
			Department:        domain.DepartmentHR,
			TeamName:          "HR Operations",
			Endpoint:          "https://your-company.freshservice.com/api/v2/tickets",
			Method:            "POST",
			Headers:           map[string]string{"Content-Type": "application/json"},
			PriorityThreshold: domain.TicketPriorityMedium,
			IsActive:          true,
		},
		{
			Department:        domain.DepartmentFacilities,
			TeamName:          "Facilities Management",
			Endpoint:          "https://webhook.site/facilities-test",
			Method:            "POST",
			Headers:           map[string]string{"Content-Type": "application/json"},
			PriorityThreshold: domain.TicketPriorityLow,
			IsActive:          true,
		},
		{
			Department:        domain.DepartmentSecurity,
			TeamName:          "InfoSec Team",
			Endpoint:          "https://webhook.site/security-test",
			Method:            "POST",
			Headers:           map[string]string{"Content-Type": "application/json"},
			PriorityThreshold: domain.TicketPriorityHigh,
			IsActive:          true,
		},
		{
			Department:        domain.DepartmentGeneral,
			TeamName:          "General Support",
			Endpoint:          "https://webhook.site/general-test",
			Method:            "POST",
			Headers:           map[string]string{"Content-Type": "application/json"},
			PriorityThreshold: domain.TicketPriorityLow,
			IsActive:          true,
		},
	}

	for i := range defaults {
		if err := store.Create(ctx, &defaults[i]); err != nil {
			return err
		}
	}
	logger.Info("seeded default department mappings", zap.Int("count", len(defaults)))
	return nil
}
