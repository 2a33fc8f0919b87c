package util

import (
	"errors"
	"fmt"
	"net/http"
)

// Pipeline error codes. Every internal failure is normalized to one of these
// before it reaches the orchestrator or the HTTP boundary.
const (
	CodeClassifierUnavailable = "CLASSIFIER_UNAVAILABLE"
	CodeNoRouteAvailable      = "NO_ROUTE_AVAILABLE"
	CodeDispatchTransient     = "DISPATCH_TRANSIENT_ERROR"
	CodeDispatchPermanent     = "DISPATCH_PERMANENT_ERROR"
	CodeDeadlineExceeded      = "DEADLINE_EXCEEDED"
	CodeValidationFailed      = "VALIDATION_FAILED"
	CodeNotFound              = "NOT_FOUND"
	CodeUnauthorized          = "UNAUTHORIZED"
	CodeConflict              = "CONFLICT"
	CodeInternal              = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound, details)
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewClassifierUnavailable(err error) error {
	return &DomainError{
		Code:       CodeClassifierUnavailable,
		Message:    "classifier unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func NewNoRouteAvailable(department string) error {
	return NewDomainError(CodeNoRouteAvailable,
		fmt.Sprintf("no active mapping for department %s", department),
		http.StatusUnprocessableEntity,
		map[string]any{"department": department})
}

func NewDispatchTransient(err error) error {
	return &DomainError{
		Code:       CodeDispatchTransient,
		Message:    "transient dispatch failure",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

func NewDispatchPermanent(err error) error {
	return &DomainError{
		Code:       CodeDispatchPermanent,
		Message:    "permanent dispatch failure",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

func NewDeadlineExceeded(message string) error {
	return NewDomainError(CodeDeadlineExceeded, message, http.StatusGatewayTimeout, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// HasCode reports whether err normalizes to the given pipeline code.
func HasCode(err error, code string) bool {
	de := ToDomainError(err)
	return de != nil && de.Code == code
}
