// Package transform holds the pure conversions between source and
// destination forge constructs: CI pipelines, users, content markup,
// branch protections, submodules and webhooks. Transformers never
// touch the network and identical input yields identical output.
package transform

import (
	"fmt"
	"time"
)

// Result carries the outcome of one transformation. Errors flip
// Success; warnings do not. Callers decide whether warnings are
// acceptable.
type Result struct {
	Success   bool           `json:"success"`
	Data      any            `json:"data,omitempty"`
	Errors    []string       `json:"errors,omitempty"`
	Warnings  []string       `json:"warnings,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

func newResult() Result {
	return Result{
		Success:   true,
		Metadata:  map[string]any{},
		Timestamp: time.Now().UTC(),
	}
}

func (r *Result) errorf(format string, args ...any) {
	r.Success = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Result) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}
