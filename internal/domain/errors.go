// Package domain provides shared domain-level errors for ForgeShift.
package domain

import (
	"errors"
	"fmt"
)

// ErrBudgetExhausted indicates the global API call budget has been spent.
// Callers must treat it as a terminal cancellation signal for the run.
var ErrBudgetExhausted = errors.New("api call budget exhausted")

// ErrNotFound indicates the requested entity does not exist on the forge.
var ErrNotFound = errors.New("not found")

// Category classifies a failure for reporting and propagation policy.
type Category string

const (
	CategoryAuth             Category = "auth"
	CategoryPermissionDenied Category = "permission_denied"
	CategoryNotFound         Category = "not_found"
	CategoryRateLimited      Category = "rate_limited"
	CategoryTransport        Category = "transport"
	CategoryValidation       Category = "validation"
	CategoryBudgetExhausted  Category = "budget_exhausted"
	CategoryUnsupported      Category = "unsupported"
	CategoryInternal         Category = "internal"
)

// StepError is a categorized failure attributed to a pipeline step
// (e.g. "detect_ci", "list_projects"). Status holds the last-seen HTTP
// status code, or 0 when the failure never reached the forge.
type StepError struct {
	Category Category
	Step     string
	Status   int
	Message  string
	Err      error
}

func (e *StepError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: %s (HTTP %d): %s", e.Step, e.Category, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Step, e.Category, e.Message)
}

func (e *StepError) Unwrap() error { return e.Err }

// NewStepError builds a StepError without an underlying cause.
func NewStepError(cat Category, step string, status int, msg string) *StepError {
	return &StepError{Category: cat, Step: step, Status: status, Message: msg}
}

// CategoryOf walks the error chain and returns the category of the first
// StepError found. Budget exhaustion and not-found sentinels map to their
// categories; everything else is CategoryInternal.
func CategoryOf(err error) Category {
	var se *StepError
	if errors.As(err, &se) {
		return se.Category
	}
	if errors.Is(err, ErrBudgetExhausted) {
		return CategoryBudgetExhausted
	}
	if errors.Is(err, ErrNotFound) {
		return CategoryNotFound
	}
	return CategoryInternal
}

// CategoryForStatus maps an HTTP status code to a failure category.
func CategoryForStatus(status int) Category {
	switch status {
	case 400, 422:
		return CategoryValidation
	case 401:
		return CategoryAuth
	case 403:
		return CategoryPermissionDenied
	case 404:
		return CategoryNotFound
	case 429:
		return CategoryRateLimited
	}
	if status >= 500 {
		return CategoryTransport
	}
	return CategoryInternal
}
