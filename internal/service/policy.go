package service

import (
	"github.com/spec-kit/ticket-triage/internal/domain"
)

// ConfidencePolicy decides whether a classification verdict is trusted
// enough to route on, or whether the ticket falls back to the default
// department. It is pure and deterministic: same verdict, same answer.
type ConfidencePolicy struct {
	Threshold float64
	Fallback  domain.Department
}

// Resolve returns the routing department for a verdict and whether the
// fallback was applied. A non-nil floor overrides the global threshold for
// the labeled department. UNKNOWN and out-of-set labels always fall back;
// the confidence score itself is never altered.
func (p ConfidencePolicy) Resolve(result domain.ClassificationResult, floor *float64) (domain.Department, bool) {
	if result.Label == domain.DepartmentUnknown || !result.Label.Valid() {
		return p.Fallback, true
	}
	threshold := p.Threshold
	if floor != nil {
		threshold = *floor
	}
	if result.Confidence < threshold {
		return p.Fallback, true
	}
	return result.Label, false
}

// strictestFloor picks the highest per-mapping confidence floor among the
// candidate mappings, or nil when none declares one.
func strictestFloor(mappings []domain.DepartmentMapping) *float64 {
	var floor *float64
	for _, m := range mappings {
		if m.ConfidenceFloor == nil {
			continue
		}
		if floor == nil || *m.ConfidenceFloor > *floor {
			v := *m.ConfidenceFloor
			floor = &v
		}
	}
	return floor
}
