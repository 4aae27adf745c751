// Package actions implements the executable migration steps listed in
// an apply plan. Each action type knows how to perform its destination
// side effect, how to predict it for a dry run, and, where the
// destination API permits, how to undo it. The Runner wraps every
// action with the shared dry-run, idempotency, and retry handling.
package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/Strob0t/ForgeShift/internal/domain/action"
	"github.com/Strob0t/ForgeShift/internal/git"
	"github.com/Strob0t/ForgeShift/internal/port/dest"
	"github.com/Strob0t/ForgeShift/internal/secrets"
)

// Action is one migration step against the destination forge.
type Action interface {
	// Execute performs the side effect and reports what it produced.
	Execute(ctx context.Context, run *action.Context) (*Effect, error)
	// Simulate predicts what Execute would do without writing to the
	// destination. It may read from the destination and may record
	// placeholder id mappings so later simulations can resolve their
	// dependencies.
	Simulate(ctx context.Context, run *action.Context) (*Simulation, error)
	// Reversible reports whether Rollback can undo a successful Execute.
	Reversible() bool
	// Rollback undoes a successful Execute using its recorded data.
	Rollback(ctx context.Context, run *action.Context, data map[string]any) error
}

// Effect is what a successful Execute produced.
type Effect struct {
	Outputs      map[string]any
	RollbackData map[string]any

	// Note carries a manual-follow-up message for capabilities the
	// destination does not support. The action still counts as
	// successful.
	Note string
}

// Simulation is the predicted outcome of one action for a dry run.
type Simulation struct {
	Outcome action.SimulationOutcome
	Message string
}

// Deps are the shared collaborators handed to every action
// constructor. PushURL and SourceURL keep credentials out of plan
// files: the command layer renders authenticated URLs at execution
// time, and the vault holds operator-staged secret values.
type Deps struct {
	Dest  dest.Provider
	Git   *git.Runner
	Vault *secrets.Vault
	Log   *slog.Logger

	// PushURL renders an authenticated push URL for a destination
	// repository name such as "app" or "app.wiki".
	PushURL func(owner, repo string) string
	// SourceURL rewrites a source clone URL with read credentials.
	SourceURL func(raw string) string
}

func (d Deps) logger() *slog.Logger {
	if d.Log == nil {
		return slog.Default()
	}
	return d.Log
}

func (d Deps) sourceURL(raw string) string {
	if d.SourceURL == nil {
		return raw
	}
	return d.SourceURL(raw)
}

func (d Deps) pushURL(owner, repo string) (string, error) {
	if d.PushURL == nil {
		return "", errors.New("no destination push URL configured")
	}
	return d.PushURL(owner, repo), nil
}

func (d Deps) vaultValue(key string) string {
	if d.Vault == nil {
		return ""
	}
	return d.Vault.Get(key)
}

// irreversible is embedded by actions whose effects cannot be undone,
// such as comments and pushed git history.
type irreversible struct{}

func (irreversible) Reversible() bool { return false }

func (irreversible) Rollback(context.Context, *action.Context, map[string]any) error {
	return errors.New("action is not reversible")
}

// requireString returns the named parameter or a validation error
// carrying the action id.
func requireString(s action.Spec, key string) (string, error) {
	v := s.StringParam(key)
	if v == "" {
		return "", fmt.Errorf("action %s: parameter %q is required", s.ID, key)
	}
	return v, nil
}

// sourceKey renders the source-id parameter under key in the string
// form the id mapping tables use. Numeric and string forms are both
// accepted.
func sourceKey(s action.Spec, key string) string {
	if v := s.StringParam(key); v != "" {
		return v
	}
	if n := s.IntParam(key); n != 0 {
		return strconv.FormatInt(n, 10)
	}
	return ""
}
