// Package checkpoint persists per-run export progress so an
// interrupted run can resume without repeating completed components.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"time"
)

// Export component names as they appear in completed_components.
const (
	ComponentRepository    = "repository"
	ComponentCICD          = "ci_cd"
	ComponentIssues        = "issues"
	ComponentMergeRequests = "merge_requests"
	ComponentWiki          = "wiki"
	ComponentReleases      = "releases"
	ComponentPackages      = "packages"
	ComponentSettings      = "settings"
)

// Dir returns the artifact subdirectory for a component. The CI
// component's directory is "cicd" while its checkpoint token stays
// "ci_cd"; every other component uses its token as the directory.
func Dir(component string) string {
	if component == ComponentCICD {
		return "cicd"
	}
	return component
}

// Components lists every export component in canonical run order.
var Components = []string{
	ComponentRepository,
	ComponentCICD,
	ComponentIssues,
	ComponentMergeRequests,
	ComponentWiki,
	ComponentReleases,
	ComponentPackages,
	ComponentSettings,
}

// Checkpoint is the resumable state of one export run. The completed
// list only ever grows within a run; partial_state gives each
// component a private slot for page cursors and the like.
type Checkpoint struct {
	ProjectID           int64                      `json:"project_id"`
	RunID               string                     `json:"run_id"`
	CompletedComponents []string                   `json:"completed_components"`
	LastCheckpointAt    time.Time                  `json:"last_checkpoint_at"`
	PartialState        map[string]json.RawMessage `json:"partial_state"`
}

// New returns an empty checkpoint for the given project and run.
func New(projectID int64, runID string) *Checkpoint {
	return &Checkpoint{
		ProjectID:           projectID,
		RunID:               runID,
		CompletedComponents: []string{},
		PartialState:        map[string]json.RawMessage{},
	}
}

// Completed reports whether the named component already finished.
func (c *Checkpoint) Completed(name string) bool {
	for _, done := range c.CompletedComponents {
		if done == name {
			return true
		}
	}
	return false
}

// MarkComplete appends the component to the completed list and drops
// its partial slot. Marking twice is a no-op.
func (c *Checkpoint) MarkComplete(name string) {
	if c.Completed(name) {
		return
	}
	c.CompletedComponents = append(c.CompletedComponents, name)
	delete(c.PartialState, name)
}

// SetPartial stores a component's intermediate state.
func (c *Checkpoint) SetPartial(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode partial state for %s: %w", name, err)
	}
	if c.PartialState == nil {
		c.PartialState = map[string]json.RawMessage{}
	}
	c.PartialState[name] = data
	return nil
}

// Partial decodes a component's intermediate state into v, reporting
// whether a slot was present.
func (c *Checkpoint) Partial(name string, v any) (bool, error) {
	raw, ok := c.PartialState[name]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("decode partial state for %s: %w", name, err)
	}
	return true, nil
}
