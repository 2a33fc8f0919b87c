package classifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/spec-kit/ticket-triage/internal/domain"
)

// ErrUnavailable is the distinguished failure of the classification
// boundary: timeout, transport error, or malformed response. Callers retry
// within their budget and then degrade to the fallback department; the
// condition never becomes a ticket failure.
var ErrUnavailable = errors.New("classifier unavailable")

// Classifier turns ticket text into a department label with a confidence
// score. Implementations must respect ctx cancellation and deadlines.
type Classifier interface {
	Classify(ctx context.Context, title, description string) (domain.ClassificationResult, error)
}

// validateResult enforces the boundary contract: a label outside the closed
// set (other than UNKNOWN) or a confidence outside [0,1] is a malformed
// response, never silently coerced.
func validateResult(result domain.ClassificationResult) error {
	if !result.Label.Valid() && result.Label != domain.DepartmentUnknown {
		return fmt.Errorf("%w: label %q outside closed department set", ErrUnavailable, result.Label)
	}
	if result.Confidence < 0 || result.Confidence > 1 {
		return fmt.Errorf("%w: confidence %v outside [0,1]", ErrUnavailable, result.Confidence)
	}
	return nil
}
