package actions

import (
	"context"
	"fmt"

	"github.com/Strob0t/ForgeShift/internal/domain/action"
	"github.com/Strob0t/ForgeShift/internal/port/dest"
)

// protectionSet applies one branch protection rule produced by the
// protection transformer.
type protectionSet struct {
	irreversible
	deps   Deps
	branch string
	params dest.BranchProtectionParams
}

func newProtectionSet(s action.Spec, d Deps) (Action, error) {
	branch, err := requireString(s, "branch")
	if err != nil {
		return nil, err
	}
	return &protectionSet{
		deps:   d,
		branch: branch,
		params: dest.BranchProtectionParams{
			RequiredReviews:         int(s.IntParam("required_reviews")),
			RequireCodeOwnerReviews: s.BoolParam("require_code_owner_reviews"),
			EnforceAdmins:           s.BoolParam("enforce_admins"),
			AllowForcePushes:        s.BoolParam("allow_force_pushes"),
			RequiredStatusChecks:    s.StringsParam("required_status_checks"),
		},
	}, nil
}

func (a *protectionSet) Execute(ctx context.Context, run *action.Context) (*Effect, error) {
	if err := a.deps.Dest.PutBranchProtection(ctx, run.Owner, run.Repo, a.branch, a.params); err != nil {
		return nil, err
	}
	return &Effect{Outputs: map[string]any{
		"branch":           a.branch,
		"required_reviews": a.params.RequiredReviews,
	}}, nil
}

func (a *protectionSet) Simulate(_ context.Context, run *action.Context) (*Simulation, error) {
	return &Simulation{
		Outcome: action.WouldUpdate,
		Message: fmt.Sprintf("would protect branch %q (%d required reviews)", a.branch, a.params.RequiredReviews),
	}, nil
}

// collaboratorAdd invites a user onto the destination repository.
type collaboratorAdd struct {
	irreversible
	deps       Deps
	username   string
	permission string
}

func newCollaboratorAdd(s action.Spec, d Deps) (Action, error) {
	username, err := requireString(s, "username")
	if err != nil {
		return nil, err
	}
	permission := s.StringParam("permission")
	if permission == "" {
		permission = "push"
	}
	return &collaboratorAdd{deps: d, username: username, permission: permission}, nil
}

func (a *collaboratorAdd) Execute(ctx context.Context, run *action.Context) (*Effect, error) {
	if err := a.deps.Dest.AddCollaborator(ctx, run.Owner, run.Repo, a.username, a.permission); err != nil {
		return nil, err
	}
	return &Effect{Outputs: map[string]any{
		"username":   a.username,
		"permission": a.permission,
	}}, nil
}

func (a *collaboratorAdd) Simulate(_ context.Context, run *action.Context) (*Simulation, error) {
	return &Simulation{
		Outcome: action.WouldCreate,
		Message: fmt.Sprintf("would invite %s with %s access", a.username, a.permission),
	}, nil
}

// webhookCreate recreates a webhook. The source's secret never crosses
// the migration; a fresh one comes from the vault when the operator
// staged it under the key named by secret_ref.
type webhookCreate struct {
	deps      Deps
	secretRef string
	params    dest.WebhookParams
}

func newWebhookCreate(s action.Spec, d Deps) (Action, error) {
	url, err := requireString(s, "url")
	if err != nil {
		return nil, err
	}
	events := s.StringsParam("events")
	if len(events) == 0 {
		events = []string{"push"}
	}
	contentType := s.StringParam("content_type")
	if contentType == "" {
		contentType = "json"
	}
	active := true
	if v, ok := s.Param("active"); ok {
		active, _ = v.(bool)
	}
	return &webhookCreate{
		deps:      d,
		secretRef: s.StringParam("secret_ref"),
		params: dest.WebhookParams{
			URL:         url,
			ContentType: contentType,
			Events:      events,
			Active:      active,
		},
	}, nil
}

func (a *webhookCreate) Execute(ctx context.Context, run *action.Context) (*Effect, error) {
	params := a.params
	if a.secretRef != "" {
		params.Secret = a.deps.vaultValue(a.secretRef)
	}
	id, err := a.deps.Dest.CreateWebhook(ctx, run.Owner, run.Repo, params)
	if err != nil {
		return nil, err
	}
	return &Effect{
		Outputs:      map[string]any{"id": id, "url": a.params.URL},
		RollbackData: map[string]any{"id": id},
	}, nil
}

func (a *webhookCreate) Simulate(_ context.Context, run *action.Context) (*Simulation, error) {
	return &Simulation{
		Outcome: action.WouldCreate,
		Message: fmt.Sprintf("would create webhook for %s (%d events)", a.params.URL, len(a.params.Events)),
	}, nil
}

func (a *webhookCreate) Reversible() bool { return true }

func (a *webhookCreate) Rollback(ctx context.Context, run *action.Context, data map[string]any) error {
	id := intFromAny(data["id"])
	if id == 0 {
		return nil
	}
	return a.deps.Dest.DeleteWebhook(ctx, run.Owner, run.Repo, id)
}
