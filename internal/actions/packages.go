package actions

import (
	"context"
	"fmt"

	"github.com/Strob0t/ForgeShift/internal/domain/action"
)

// packageMigrate is a gap action: package registries cannot be copied
// through the destination API, so the action succeeds with a manual
// follow-up note naming what to republish.
type packageMigrate struct {
	irreversible
	deps    Deps
	name    string
	kind    string
	version string
}

func newPackageMigrate(s action.Spec, d Deps) (Action, error) {
	name, err := requireString(s, "name")
	if err != nil {
		return nil, err
	}
	return &packageMigrate{
		deps:    d,
		name:    name,
		kind:    s.StringParam("package_type"),
		version: s.StringParam("version"),
	}, nil
}

func (a *packageMigrate) describe() string {
	desc := a.name
	if a.version != "" {
		desc += " " + a.version
	}
	if a.kind != "" {
		desc = a.kind + " package " + desc
	} else {
		desc = "package " + desc
	}
	return desc
}

func (a *packageMigrate) Execute(_ context.Context, _ *action.Context) (*Effect, error) {
	return &Effect{
		Outputs: map[string]any{"package": a.name, "version": a.version},
		Note:    fmt.Sprintf("republish %s to the destination registry by hand", a.describe()),
	}, nil
}

func (a *packageMigrate) Simulate(_ context.Context, _ *action.Context) (*Simulation, error) {
	return &Simulation{
		Outcome: action.WouldSkip,
		Message: fmt.Sprintf("%s needs manual republication", a.describe()),
	}, nil
}
