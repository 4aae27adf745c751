package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Strob0t/ForgeShift/internal/actions"
	"github.com/Strob0t/ForgeShift/internal/adapter/otel"
	"github.com/Strob0t/ForgeShift/internal/domain/action"
	"github.com/Strob0t/ForgeShift/internal/secrets"
)

// ApplyOptions configures plan execution against one destination
// repository.
type ApplyOptions struct {
	Owner string
	Repo  string

	// DryRun routes every action through simulation; the destination
	// is never touched.
	DryRun bool

	// ContinueOnError keeps executing after a failed action instead of
	// aborting the run.
	ContinueOnError bool

	// RollbackOnFailure undoes the already-executed reversible actions
	// when the run aborts.
	RollbackOnFailure bool

	MaxRetries int

	Logger  *slog.Logger
	Tracker *Tracker
	Metrics *otel.Metrics
}

// RollbackOutcome records one attempted undo during an aborted run.
type RollbackOutcome struct {
	ActionID   string `json:"action_id"`
	ActionType string `json:"action_type"`
	RolledBack bool   `json:"rolled_back"`
	Error      string `json:"error,omitempty"`
}

// ApplyReport is the full outcome of one apply run.
type ApplyReport struct {
	Owner      string                      `json:"owner"`
	Repo       string                      `json:"repo"`
	DryRun     bool                        `json:"dry_run"`
	StartedAt  time.Time                   `json:"started_at"`
	FinishedAt time.Time                   `json:"finished_at"`
	Results    []*action.Result            `json:"results"`
	Rollbacks  []RollbackOutcome           `json:"rollbacks,omitempty"`
	Succeeded  int                         `json:"succeeded"`
	Failed     int                         `json:"failed"`
	Aborted    bool                        `json:"aborted"`
	IDMappings map[string]map[string]int64 `json:"id_mappings,omitempty"`
}

// Applier executes an action plan in order. Execution is strictly
// serial: later actions resolve ids and branches the earlier ones
// created.
type Applier struct {
	deps   actions.Deps
	runner *actions.Runner
	opts   ApplyOptions
	log    *slog.Logger
}

// NewApplier wires an applier over the destination dependencies.
func NewApplier(deps actions.Deps, opts ApplyOptions) *Applier {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Applier{
		deps:   deps,
		runner: &actions.Runner{Deps: deps, MaxRetries: opts.MaxRetries},
		opts:   opts,
		log:    log.With("service", "apply", "repo", opts.Owner+"/"+opts.Repo),
	}
}

// Apply validates and executes the plan. A failed action aborts the
// run unless ContinueOnError is set; an aborted run optionally rolls
// back what already succeeded. The report is returned even on abort so
// the caller can persist partial results.
func (a *Applier) Apply(ctx context.Context, plan action.Plan) (*ApplyReport, error) {
	if err := actions.ValidatePlan(plan, a.deps); err != nil {
		return nil, fmt.Errorf("validate plan: %w", err)
	}

	run := action.NewContext(a.opts.Owner, a.opts.Repo)
	run.DryRun = a.opts.DryRun

	report := &ApplyReport{
		Owner:     a.opts.Owner,
		Repo:      a.opts.Repo,
		DryRun:    a.opts.DryRun,
		StartedAt: time.Now().UTC(),
		Results:   make([]*action.Result, 0, len(plan)),
	}

	a.log.Info("apply started", "actions", len(plan), "dry_run", a.opts.DryRun)

	for _, spec := range plan {
		if err := ctx.Err(); err != nil {
			report.Aborted = true
			a.finish(report, run)
			return report, err
		}

		act, err := actions.Build(spec, a.deps)
		if err != nil {
			// ValidatePlan already built every spec once; a failure
			// here means the plan changed under us.
			report.Aborted = true
			a.finish(report, run)
			return report, fmt.Errorf("build action %s: %w", spec.ID, err)
		}

		res := a.runner.ExecuteWithRetry(ctx, spec, act, run)
		report.Results = append(report.Results, res)
		a.observe(ctx, spec, res, len(plan))

		if res.Success {
			report.Succeeded++
			continue
		}
		report.Failed++
		a.log.Error("action failed",
			"action", spec.ID, "type", spec.Type, "error", res.Error)

		if a.opts.ContinueOnError {
			continue
		}
		report.Aborted = true
		if a.opts.RollbackOnFailure && !a.opts.DryRun {
			report.Rollbacks = a.rollback(ctx, run)
		}
		a.finish(report, run)
		return report, fmt.Errorf("action %s failed: %s", spec.ID, res.Error)
	}

	a.finish(report, run)
	a.log.Info("apply finished",
		"succeeded", report.Succeeded, "failed", report.Failed, "dry_run", a.opts.DryRun)
	return report, nil
}

func (a *Applier) finish(report *ApplyReport, run *action.Context) {
	report.FinishedAt = time.Now().UTC()
	if len(run.IDMappings) > 0 {
		report.IDMappings = run.IDMappings
	}
}

func (a *Applier) observe(ctx context.Context, spec action.Spec, res *action.Result, total int) {
	status := "success"
	if !res.Success {
		status = "failed"
	}
	if a.opts.Tracker != nil {
		a.opts.Tracker.ApplyAction(ctx, spec.ID, spec.Type, status, res.Simulated, total)
	}
	if a.opts.Metrics != nil {
		attrs := metric.WithAttributes(
			attribute.String("action_type", spec.Type),
			attribute.String("status", status),
		)
		a.opts.Metrics.ActionsExecuted.Add(ctx, 1, attrs)
		a.opts.Metrics.ActionDuration.Record(ctx, res.DurationSeconds, attrs)
	}
}

// rollback walks the executed history in reverse and undoes every
// reversible action. Failures are recorded and never cascade; an undo
// that cannot run leaves the destination for manual cleanup.
func (a *Applier) rollback(ctx context.Context, run *action.Context) []RollbackOutcome {
	outcomes := make([]RollbackOutcome, 0, len(run.History))
	a.log.Warn("rolling back executed actions", "count", len(run.History))

	for i := len(run.History) - 1; i >= 0; i-- {
		entry := run.History[i]
		out := RollbackOutcome{
			ActionID:   entry.Spec.ID,
			ActionType: entry.Spec.Type,
		}
		if !entry.Result.Reversible {
			a.log.Warn("action is not reversible; skipping undo",
				"action", entry.Spec.ID, "type", entry.Spec.Type)
			outcomes = append(outcomes, out)
			continue
		}

		act, err := actions.Build(entry.Spec, a.deps)
		if err != nil {
			out.Error = err.Error()
			outcomes = append(outcomes, out)
			continue
		}
		if err := act.Rollback(ctx, run, entry.Result.RollbackData); err != nil {
			out.Error = secrets.Redact(err.Error())
			a.log.Error("rollback failed",
				"action", entry.Spec.ID, "error", out.Error)
		} else {
			out.RolledBack = true
			a.log.Info("rolled back", "action", entry.Spec.ID, "type", entry.Spec.Type)
		}
		outcomes = append(outcomes, out)
	}
	return outcomes
}

// WriteFile writes the report as indented JSON next to the plan.
func (r *ApplyReport) WriteFile(path string) error {
	return writeJSONFile(path, r)
}
