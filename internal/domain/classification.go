package domain

// ClassificationResult is the raw verdict of a classifier run, before the
// confidence policy resolves it into a routing department.
type ClassificationResult struct {
	Label      Department `json:"label"`
	AssignedTo string     `json:"assigned_to"`
	Confidence float64    `json:"confidence"`
	Reasoning  string     `json:"reasoning,omitempty"`
}
