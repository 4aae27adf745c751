package actions

import (
	"context"
	"fmt"

	"github.com/Strob0t/ForgeShift/internal/domain/action"
)

// wikiPush mirrors the source wiki repository onto the destination's
// wiki. The destination wiki must be enabled on the repository; the
// repo_create action earlier in the plan takes care of that.
type wikiPush struct {
	irreversible
	deps      Deps
	sourceURL string
	mirrorDir string
}

func newWikiPush(s action.Spec, d Deps) (Action, error) {
	sourceURL, err := requireString(s, "source_url")
	if err != nil {
		return nil, err
	}
	mirrorDir, err := requireString(s, "mirror_dir")
	if err != nil {
		return nil, err
	}
	return &wikiPush{deps: d, sourceURL: sourceURL, mirrorDir: mirrorDir}, nil
}

func (a *wikiPush) Execute(ctx context.Context, run *action.Context) (*Effect, error) {
	pushURL, err := a.deps.pushURL(run.Owner, run.Repo+".wiki")
	if err != nil {
		return nil, err
	}
	if err := a.deps.Git.MirrorClone(ctx, a.deps.sourceURL(a.sourceURL), a.mirrorDir); err != nil {
		return nil, err
	}
	if err := a.deps.Git.MirrorPush(ctx, a.mirrorDir, pushURL); err != nil {
		return nil, err
	}
	return &Effect{Outputs: map[string]any{"mirror_dir": a.mirrorDir}}, nil
}

func (a *wikiPush) Simulate(_ context.Context, run *action.Context) (*Simulation, error) {
	return &Simulation{
		Outcome: action.WouldExecute,
		Message: fmt.Sprintf("would push wiki pages to %s/%s.wiki", run.Owner, run.Repo),
	}, nil
}
