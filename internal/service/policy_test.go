package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/ticket-triage/internal/domain"
)

func TestResolveTrustsConfidentVerdict(t *testing.T) {
	policy := ConfidencePolicy{Threshold: 0.7, Fallback: domain.DepartmentGeneral}

	dept, fallback := policy.Resolve(domain.ClassificationResult{
		Label:      domain.DepartmentIT,
		Confidence: 0.9,
	}, nil)

	assert.Equal(t, domain.DepartmentIT, dept)
	assert.False(t, fallback)
}

func TestResolveBelowThresholdFallsBack(t *testing.T) {
	policy := ConfidencePolicy{Threshold: 0.7, Fallback: domain.DepartmentGeneral}

	dept, fallback := policy.Resolve(domain.ClassificationResult{
		Label:      domain.DepartmentHR,
		Confidence: 0.55,
	}, nil)

	assert.Equal(t, domain.DepartmentGeneral, dept)
	assert.True(t, fallback)
}

func TestResolveExactThresholdRoutes(t *testing.T) {
	policy := ConfidencePolicy{Threshold: 0.7, Fallback: domain.DepartmentGeneral}

	dept, fallback := policy.Resolve(domain.ClassificationResult{
		Label:      domain.DepartmentSecurity,
		Confidence: 0.7,
	}, nil)

	assert.Equal(t, domain.DepartmentSecurity, dept)
	assert.False(t, fallback)
}

func TestResolveUnknownAlwaysFallsBack(t *testing.T) {
	policy := ConfidencePolicy{Threshold: 0.7, Fallback: domain.DepartmentGeneral}

	dept, fallback := policy.Resolve(domain.ClassificationResult{
		Label:      domain.DepartmentUnknown,
		Confidence: 0.99,
	}, nil)

	assert.Equal(t, domain.DepartmentGeneral, dept)
	assert.True(t, fallback)
}

func TestResolveFloorOverridesThreshold(t *testing.T) {
	policy := ConfidencePolicy{Threshold: 0.7, Fallback: domain.DepartmentGeneral}
	floor := 0.9

	dept, fallback := policy.Resolve(domain.ClassificationResult{
		Label:      domain.DepartmentFinance,
		Confidence: 0.85,
	}, &floor)

	assert.Equal(t, domain.DepartmentGeneral, dept)
	assert.True(t, fallback)

	relaxed := 0.5
	dept, fallback = policy.Resolve(domain.ClassificationResult{
		Label:      domain.DepartmentFinance,
		Confidence: 0.6,
	}, &relaxed)

	assert.Equal(t, domain.DepartmentFinance, dept)
	assert.False(t, fallback)
}

func TestStrictestFloor(t *testing.T) {
	low, high := 0.5, 0.8
	mappings := []domain.DepartmentMapping{
		{ConfidenceFloor: &low},
		{},
		{ConfidenceFloor: &high},
	}

	floor := strictestFloor(mappings)
	if assert.NotNil(t, floor) {
		assert.Equal(t, 0.8, *floor)
	}

	assert.Nil(t, strictestFloor([]domain.DepartmentMapping{{}, {}}))
	assert.Nil(t, strictestFloor(nil))
}
