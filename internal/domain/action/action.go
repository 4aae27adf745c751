// Package action defines the apply-side plan, result, and execution
// context entities shared by the action executors and the orchestrator.
package action

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// SimulationOutcome classifies what a dry run of an action would do.
type SimulationOutcome string

const (
	WouldCreate  SimulationOutcome = "would_create"
	WouldUpdate  SimulationOutcome = "would_update"
	WouldSkip    SimulationOutcome = "would_skip"
	WouldExecute SimulationOutcome = "would_execute"
	WouldFail    SimulationOutcome = "would_fail"
)

// Spec is one entry of an action plan. Parameters are action-specific
// and documented per action type.
type Spec struct {
	ID             string         `json:"id"`
	Type           string         `json:"type"`
	Parameters     map[string]any `json:"parameters"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
}

// Plan is an ordered list of actions. The orchestrator executes it
// strictly in order.
type Plan []Spec

// Result is the outcome of executing or simulating one action.
type Result struct {
	Success           bool              `json:"success"`
	ActionID          string            `json:"action_id"`
	ActionType        string            `json:"action_type"`
	Outputs           map[string]any    `json:"outputs"`
	Error             string            `json:"error,omitempty"`
	RetryCount        int               `json:"retry_count"`
	DurationSeconds   float64           `json:"duration_seconds"`
	Timestamp         time.Time         `json:"timestamp"`
	Simulated         bool              `json:"simulated"`
	SimulationOutcome SimulationOutcome `json:"simulation_outcome,omitempty"`
	SimulationMessage string            `json:"simulation_message,omitempty"`
	RollbackData      map[string]any    `json:"rollback_data,omitempty"`
	Reversible        bool              `json:"reversible"`
}

// ReadPlan loads and parses a plan file.
func ReadPlan(path string) (Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	var plan Plan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}
	return plan, nil
}

// WriteFile writes the plan as indented JSON.
func (p Plan) WriteFile(path string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write plan: %w", err)
	}
	return nil
}

// Param returns the raw parameter value and whether it is present.
func (s Spec) Param(key string) (any, bool) {
	v, ok := s.Parameters[key]
	return v, ok
}

// StringParam returns a string parameter, or "" when absent or not a
// string.
func (s Spec) StringParam(key string) string {
	v, _ := s.Parameters[key].(string)
	return v
}

// IntParam returns an integer parameter. JSON decoding yields float64,
// so both forms are accepted.
func (s Spec) IntParam(key string) int64 {
	switch v := s.Parameters[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	}
	return 0
}

// BoolParam returns a boolean parameter, false when absent.
func (s Spec) BoolParam(key string) bool {
	v, _ := s.Parameters[key].(bool)
	return v
}

// StringsParam returns a list-of-strings parameter, tolerating the
// []any shape JSON decoding produces.
func (s Spec) StringsParam(key string) []string {
	switch v := s.Parameters[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

// MapParam returns an object parameter, nil when absent.
func (s Spec) MapParam(key string) map[string]any {
	v, _ := s.Parameters[key].(map[string]any)
	return v
}
