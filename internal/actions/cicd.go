package actions

import (
	"context"
	"fmt"
	"strings"

	"github.com/Strob0t/ForgeShift/internal/domain/action"
	"github.com/Strob0t/ForgeShift/internal/port/dest"
)

// Vault key prefixes under which the operator stages values the source
// forge never exports.
const (
	secretVaultPrefix   = "FORGESHIFT_SECRET_"
	variableVaultPrefix = "FORGESHIFT_VARIABLE_"
)

// workflowCommit commits a converted workflow file under
// .github/workflows so the destination picks it up on the next push.
type workflowCommit struct {
	irreversible
	deps    Deps
	path    string
	content string
	branch  string
	message string
}

func newWorkflowCommit(s action.Spec, d Deps) (Action, error) {
	content, err := requireString(s, "content")
	if err != nil {
		return nil, err
	}
	path := s.StringParam("path")
	if path == "" {
		path = ".github/workflows/migrated.yml"
	}
	if !strings.HasPrefix(path, ".github/workflows/") {
		return nil, fmt.Errorf("action %s: workflow path %q must be under .github/workflows/", s.ID, path)
	}
	message := s.StringParam("message")
	if message == "" {
		message = "Add workflow converted from GitLab CI"
	}
	return &workflowCommit{
		deps:    d,
		path:    path,
		content: content,
		branch:  s.StringParam("branch"),
		message: message,
	}, nil
}

func (a *workflowCommit) Execute(ctx context.Context, run *action.Context) (*Effect, error) {
	err := a.deps.Dest.PutFile(ctx, run.Owner, run.Repo, a.path, dest.CommitFileParams{
		Message: a.message,
		Content: []byte(a.content),
		Branch:  a.branch,
	})
	if err != nil {
		return nil, err
	}
	return &Effect{Outputs: map[string]any{"path": a.path}}, nil
}

func (a *workflowCommit) Simulate(_ context.Context, run *action.Context) (*Simulation, error) {
	return &Simulation{
		Outcome: action.WouldCreate,
		Message: fmt.Sprintf("would commit workflow %s to %s/%s", a.path, run.Owner, run.Repo),
	}, nil
}

// environmentCreate creates a deployment environment on the
// destination repository.
type environmentCreate struct {
	irreversible
	deps Deps
	name string
}

func newEnvironmentCreate(s action.Spec, d Deps) (Action, error) {
	name, err := requireString(s, "name")
	if err != nil {
		return nil, err
	}
	return &environmentCreate{deps: d, name: name}, nil
}

func (a *environmentCreate) Execute(ctx context.Context, run *action.Context) (*Effect, error) {
	if err := a.deps.Dest.PutEnvironment(ctx, run.Owner, run.Repo, a.name); err != nil {
		return nil, err
	}
	return &Effect{Outputs: map[string]any{"name": a.name}}, nil
}

func (a *environmentCreate) Simulate(_ context.Context, run *action.Context) (*Simulation, error) {
	return &Simulation{
		Outcome: action.WouldCreate,
		Message: fmt.Sprintf("would create environment %q on %s/%s", a.name, run.Owner, run.Repo),
	}, nil
}

// secretSet seals an Actions secret. Secret values never leave the
// source forge, so the value must be staged by the operator in the
// vault; without one the action succeeds with a manual follow-up note.
// The plaintext appears nowhere in outputs or logs.
type secretSet struct {
	irreversible
	deps Deps
	name string
}

func newSecretSet(s action.Spec, d Deps) (Action, error) {
	name, err := requireString(s, "name")
	if err != nil {
		return nil, err
	}
	return &secretSet{deps: d, name: name}, nil
}

func (a *secretSet) vaultKey() string {
	return secretVaultPrefix + strings.ToUpper(a.name)
}

func (a *secretSet) Execute(ctx context.Context, run *action.Context) (*Effect, error) {
	value := a.deps.vaultValue(a.vaultKey())
	if value == "" {
		return &Effect{
			Outputs: map[string]any{"name": a.name, "staged": false},
			Note: fmt.Sprintf("secret %q has no staged value (set %s); create it on the destination by hand",
				a.name, a.vaultKey()),
		}, nil
	}
	if err := a.deps.Dest.PutActionsSecret(ctx, run.Owner, run.Repo, a.name, value); err != nil {
		return nil, err
	}
	return &Effect{Outputs: map[string]any{"name": a.name, "staged": true}}, nil
}

func (a *secretSet) Simulate(_ context.Context, run *action.Context) (*Simulation, error) {
	if a.deps.vaultValue(a.vaultKey()) == "" {
		return &Simulation{
			Outcome: action.WouldSkip,
			Message: fmt.Sprintf("secret %q has no staged value; manual follow-up", a.name),
		}, nil
	}
	return &Simulation{
		Outcome: action.WouldCreate,
		Message: fmt.Sprintf("would seal secret %q on %s/%s", a.name, run.Owner, run.Repo),
	}, nil
}

// variableSet sets an Actions variable. The value may travel in the
// plan (variable values are not secret) or be staged in the vault;
// with neither the action succeeds with a manual follow-up note.
type variableSet struct {
	irreversible
	deps  Deps
	name  string
	value string
}

func newVariableSet(s action.Spec, d Deps) (Action, error) {
	name, err := requireString(s, "name")
	if err != nil {
		return nil, err
	}
	return &variableSet{deps: d, name: name, value: s.StringParam("value")}, nil
}

func (a *variableSet) resolved() string {
	if a.value != "" {
		return a.value
	}
	return a.deps.vaultValue(variableVaultPrefix + strings.ToUpper(a.name))
}

func (a *variableSet) Execute(ctx context.Context, run *action.Context) (*Effect, error) {
	value := a.resolved()
	if value == "" {
		return &Effect{
			Outputs: map[string]any{"name": a.name, "staged": false},
			Note: fmt.Sprintf("variable %q has no value (source values are not exported); set it on the destination by hand",
				a.name),
		}, nil
	}
	if err := a.deps.Dest.PutActionsVariable(ctx, run.Owner, run.Repo, a.name, value); err != nil {
		return nil, err
	}
	return &Effect{Outputs: map[string]any{"name": a.name, "staged": true}}, nil
}

func (a *variableSet) Simulate(_ context.Context, run *action.Context) (*Simulation, error) {
	if a.resolved() == "" {
		return &Simulation{
			Outcome: action.WouldSkip,
			Message: fmt.Sprintf("variable %q has no value; manual follow-up", a.name),
		}, nil
	}
	return &Simulation{
		Outcome: action.WouldCreate,
		Message: fmt.Sprintf("would set variable %q on %s/%s", a.name, run.Owner, run.Repo),
	}, nil
}
