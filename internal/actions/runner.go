package actions

import (
	"context"
	"errors"
	"time"

	"github.com/Strob0t/ForgeShift/internal/domain"
	"github.com/Strob0t/ForgeShift/internal/domain/action"
	"github.com/Strob0t/ForgeShift/internal/forgehttp"
	"github.com/Strob0t/ForgeShift/internal/resilience"
	"github.com/Strob0t/ForgeShift/internal/secrets"
)

const (
	defaultMaxRetries = 3
	defaultBaseDelay  = time.Second
	defaultMaxDelay   = 30 * time.Second
)

// Runner drives a single action through the shared dry-run,
// idempotency, and retry handling and produces the Result the
// orchestrator records.
type Runner struct {
	Deps Deps

	// MaxRetries bounds total execution attempts (default 3).
	MaxRetries int
	// BaseDelay is the first backoff step (default 1s); each further
	// retry doubles it up to MaxDelay.
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

func (r *Runner) maxRetries() int {
	if r.MaxRetries <= 0 {
		return defaultMaxRetries
	}
	return r.MaxRetries
}

func (r *Runner) baseDelay() time.Duration {
	if r.BaseDelay <= 0 {
		return defaultBaseDelay
	}
	return r.BaseDelay
}

func (r *Runner) maxDelay() time.Duration {
	if r.MaxDelay <= 0 {
		return defaultMaxDelay
	}
	return r.MaxDelay
}

// ExecuteWithRetry runs one action to a Result. Dry runs are routed to
// Simulate and never touch the destination. An idempotency key that
// already appears in the run context short-circuits to the stored
// result. Otherwise Execute is attempted up to MaxRetries times with
// exponential backoff between attempts; the backoff waits are
// context-aware so a cancelled run stops without sitting out a delay.
// Successful executions are recorded into the run context.
func (r *Runner) ExecuteWithRetry(ctx context.Context, spec action.Spec, act Action, run *action.Context) *action.Result {
	start := time.Now()
	res := &action.Result{
		ActionID:   spec.ID,
		ActionType: spec.Type,
		Outputs:    map[string]any{},
		Reversible: act.Reversible(),
	}
	log := r.Deps.logger()

	if run.DryRun {
		res.Simulated = true
		sim, err := act.Simulate(ctx, run)
		switch {
		case err != nil:
			res.SimulationOutcome = action.WouldFail
			res.Error = secrets.Redact(err.Error())
		case sim.Outcome == action.WouldFail:
			res.SimulationOutcome = action.WouldFail
			res.SimulationMessage = sim.Message
		default:
			res.Success = true
			res.SimulationOutcome = sim.Outcome
			res.SimulationMessage = sim.Message
		}
		res.DurationSeconds = time.Since(start).Seconds()
		res.Timestamp = time.Now().UTC()
		return res
	}

	if prior, ok := run.Replayed(spec.IdempotencyKey); ok {
		log.Debug("action replayed from idempotency record",
			"action", spec.ID, "key", spec.IdempotencyKey)
		return prior
	}

	var lastErr error
	for attempt := 0; attempt < r.maxRetries(); attempt++ {
		if attempt > 0 {
			delay := resilience.Backoff(r.baseDelay(), attempt-1, r.maxDelay())
			log.Debug("retrying action", "action", spec.ID, "attempt", attempt+1, "delay", delay.String())
			if err := resilience.Sleep(ctx, delay); err != nil {
				lastErr = err
				break
			}
		}

		effect, err := act.Execute(ctx, run)
		if err == nil {
			res.Success = true
			res.RetryCount = attempt
			if effect != nil {
				if effect.Outputs != nil {
					res.Outputs = effect.Outputs
				}
				res.RollbackData = effect.RollbackData
				if effect.Note != "" {
					res.Outputs["manual_followup"] = effect.Note
					log.Info("action needs manual follow-up", "action", spec.ID, "note", effect.Note)
				}
			}
			break
		}

		lastErr = err
		res.RetryCount = attempt
		log.Warn("action attempt failed",
			"action", spec.ID, "type", spec.Type, "attempt", attempt+1,
			"error", secrets.Redact(err.Error()))
		if !retryable(err) {
			break
		}
	}

	res.DurationSeconds = time.Since(start).Seconds()
	res.Timestamp = time.Now().UTC()
	if !res.Success {
		if lastErr == nil {
			lastErr = errors.New("action produced no result")
		}
		res.Error = secrets.Redact(lastErr.Error())
		return res
	}

	run.Record(spec, res)
	return res
}

// retryable reports whether another attempt could change the outcome.
// Cancellation, budget exhaustion, and request errors the forge has
// already judged (validation, auth, permissions, missing targets) are
// terminal; rate limits and transport faults are worth retrying.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, domain.ErrBudgetExhausted) || errors.Is(err, domain.ErrNotFound) {
		return false
	}
	terminal := func(cat domain.Category) bool {
		switch cat {
		case domain.CategoryValidation, domain.CategoryAuth,
			domain.CategoryPermissionDenied, domain.CategoryNotFound,
			domain.CategoryUnsupported, domain.CategoryBudgetExhausted:
			return true
		}
		return false
	}
	if fe, ok := forgehttp.AsError(err); ok {
		return !terminal(fe.Category)
	}
	var se *domain.StepError
	if errors.As(err, &se) {
		return !terminal(se.Category)
	}
	return true
}
