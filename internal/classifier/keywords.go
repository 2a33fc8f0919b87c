package classifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/spec-kit/ticket-triage/internal/domain"
)

// KeywordClassifier scores departments by keyword hits in the ticket text.
// It backs deployments without a language-model API key and never fails.
type KeywordClassifier struct{}

// NewKeywordClassifier builds the rule-based classifier.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

var departmentKeywords = map[domain.Department][]string{
	domain.DepartmentIT: {
		"vpn", "computer", "laptop", "password", "email", "network", "wifi", "software", "login", "system",
	},
	domain.DepartmentHR: {
		"benefits", "payroll", "vacation", "pto", "onboarding", "training", "employment", "hiring",
	},
	domain.DepartmentFacilities: {
		"office", "room", "building", "parking", "heating", "cooling", "maintenance", "cleaning",
	},
	domain.DepartmentSecurity: {
		"phishing", "malware", "suspicious", "breach", "badge", "security",
	},
	domain.DepartmentFinance: {
		"expense", "invoice", "payment", "budget", "procurement", "vendor", "reimbursement",
	},
	domain.DepartmentLegal: {
		"contract", "compliance", "gdpr", "privacy", "legal", "lawsuit", "regulation",
	},
}

var defaultTeams = map[domain.Department]string{
	domain.DepartmentIT:         "it_support_team",
	domain.DepartmentHR:         "hr_operations",
	domain.DepartmentFacilities: "facilities_management",
	domain.DepartmentSecurity:   "infosec_team",
	domain.DepartmentFinance:    "finance_team",
	domain.DepartmentLegal:      "legal_team",
	domain.DepartmentGeneral:    "general_support",
}

// Classify counts keyword matches per department and picks the best score.
// Confidence grows with the number of matched keywords, capped at 0.7;
// no match means GENERAL with low confidence.
func (k *KeywordClassifier) Classify(_ context.Context, title, description string) (domain.ClassificationResult, error) {
	text := strings.ToLower(title + " " + description)

	best := domain.DepartmentGeneral
	bestScore := 0
	for _, dept := range domain.Departments() {
		score := 0
		for _, keyword := range departmentKeywords[dept] {
			if strings.Contains(text, keyword) {
				score++
			}
		}
		if score > bestScore {
			best = dept
			bestScore = score
		}
	}

	confidence := 0.3
	if bestScore > 0 {
		confidence = 0.4 + float64(bestScore)*0.1
		if confidence > 0.7 {
			confidence = 0.7
		}
	}

	return domain.ClassificationResult{
		Label:      best,
		AssignedTo: defaultTeams[best],
		Confidence: confidence,
		Reasoning:  fmt.Sprintf("keyword analysis matched %d terms for %s", bestScore, best),
	}, nil
}

var _ Classifier = (*KeywordClassifier)(nil)
