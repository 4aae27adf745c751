package action

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyPlan          = errors.New("plan has no actions")
	ErrActionIDRequired   = errors.New("action id is required")
	ErrActionTypeRequired = errors.New("action type is required")
	ErrDuplicateActionID  = errors.New("duplicate action id")
)

// Validate checks the plan for structural correctness. Whether each
// type tag is known is the registry's concern, not the plan's.
func (p Plan) Validate() error {
	if len(p) == 0 {
		return ErrEmptyPlan
	}
	seen := make(map[string]bool, len(p))
	for i, s := range p {
		if s.ID == "" {
			return fmt.Errorf("action %d: %w", i, ErrActionIDRequired)
		}
		if s.Type == "" {
			return fmt.Errorf("action %d (%s): %w", i, s.ID, ErrActionTypeRequired)
		}
		if seen[s.ID] {
			return fmt.Errorf("action %d (%s): %w", i, s.ID, ErrDuplicateActionID)
		}
		seen[s.ID] = true
	}
	return nil
}
