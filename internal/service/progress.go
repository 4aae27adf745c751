// Package service wires the domain layers into the three migration
// agents: discovery, deep analysis, export, and apply, plus the plan
// builder and the SOW synthesizer. Services own the run loop and the
// side effects; the rules they apply live in internal/domain.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/Strob0t/ForgeShift/internal/adapter/ws"
	"github.com/Strob0t/ForgeShift/internal/port/broadcast"
)

// RunSnapshot is the state the status endpoint serves at /api/v1/run.
type RunSnapshot struct {
	RunID     string    `json:"run_id"`
	Stage     string    `json:"stage"`
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at,omitzero"`

	Groups            int    `json:"groups,omitempty"`
	Projects          int    `json:"projects,omitempty"`
	CompletedProjects int    `json:"completed_projects,omitempty"`
	APICalls          int    `json:"api_calls"`
	Current           string `json:"current,omitempty"`

	ActionsDone  int `json:"actions_done,omitempty"`
	ActionsTotal int `json:"actions_total,omitempty"`
	Errors       int `json:"errors,omitempty"`
}

// Tracker keeps the live view of the current run and mirrors every
// update onto the progress broadcaster. All methods are safe for
// concurrent use; analyzer workers and the serial loops share one
// instance.
type Tracker struct {
	mu   sync.Mutex
	snap RunSnapshot
	bus  broadcast.Broadcaster
}

// NewTracker builds a tracker over the given broadcaster. A nil
// broadcaster falls back to a no-op sink.
func NewTracker(runID string, bus broadcast.Broadcaster) *Tracker {
	if bus == nil {
		bus = broadcast.Nop{}
	}
	return &Tracker{
		snap: RunSnapshot{RunID: runID, Stage: "idle", Status: "idle"},
		bus:  bus,
	}
}

// Snapshot returns a copy of the current run state.
func (t *Tracker) Snapshot() RunSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap
}

// StageStarted marks a new stage as running.
func (t *Tracker) StageStarted(ctx context.Context, stage string) {
	t.mu.Lock()
	t.snap.Stage = stage
	t.snap.Status = "running"
	t.snap.StartedAt = time.Now().UTC()
	runID := t.snap.RunID
	t.mu.Unlock()

	t.bus.BroadcastEvent(ctx, ws.EventRunStatus, ws.RunStatusEvent{
		RunID: runID, Stage: stage, Status: "running",
	})
}

// StageFinished marks the current stage as done or failed.
func (t *Tracker) StageFinished(ctx context.Context, stage string, err error) {
	status := "done"
	errMsg := ""
	if err != nil {
		status = "failed"
		errMsg = err.Error()
	}

	t.mu.Lock()
	t.snap.Status = status
	if err != nil {
		t.snap.Errors++
	}
	runID := t.snap.RunID
	t.mu.Unlock()

	t.bus.BroadcastEvent(ctx, ws.EventRunStatus, ws.RunStatusEvent{
		RunID: runID, Stage: stage, Status: status, Error: errMsg,
	})
}

// Discovery updates the crawl counters.
func (t *Tracker) Discovery(ctx context.Context, groups, projects, completed, apiCalls int, current string) {
	t.mu.Lock()
	t.snap.Groups = groups
	t.snap.Projects = projects
	t.snap.CompletedProjects = completed
	t.snap.APICalls = apiCalls
	t.snap.Current = current
	runID := t.snap.RunID
	t.mu.Unlock()

	t.bus.BroadcastEvent(ctx, ws.EventDiscoveryProgress, ws.DiscoveryProgressEvent{
		RunID:    runID,
		Groups:   groups,
		Projects: projects,
		Current:  current,
		APICalls: int64(apiCalls),
	})
}

// ExportComponent records one finished export component.
func (t *Tracker) ExportComponent(ctx context.Context, projectID int64, component, status string, err error) {
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}

	t.mu.Lock()
	t.snap.Current = component
	if err != nil {
		t.snap.Errors++
	}
	runID := t.snap.RunID
	t.mu.Unlock()

	t.bus.BroadcastEvent(ctx, ws.EventExportComponent, ws.ExportComponentEvent{
		RunID:     runID,
		ProjectID: projectID,
		Component: component,
		Status:    status,
		Error:     errMsg,
	})
}

// ApplyAction records one executed plan action.
func (t *Tracker) ApplyAction(ctx context.Context, actionID, actionType, status string, simulated bool, total int) {
	t.mu.Lock()
	t.snap.ActionsDone++
	t.snap.ActionsTotal = total
	t.snap.Current = actionID
	if status == "failed" {
		t.snap.Errors++
	}
	runID := t.snap.RunID
	t.mu.Unlock()

	t.bus.BroadcastEvent(ctx, ws.EventApplyAction, ws.ApplyActionEvent{
		RunID:      runID,
		ActionID:   actionID,
		ActionType: actionType,
		Status:     status,
		Simulated:  simulated,
	})
}
