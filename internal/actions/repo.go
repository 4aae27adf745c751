package actions

import (
	"context"
	"errors"
	"fmt"

	"github.com/Strob0t/ForgeShift/internal/domain"
	"github.com/Strob0t/ForgeShift/internal/domain/action"
	"github.com/Strob0t/ForgeShift/internal/port/dest"
)

// repoCreate creates the destination repository. A repository that
// already exists is left untouched and reported as skipped; rollback
// deletes only repositories this action created itself.
type repoCreate struct {
	deps   Deps
	name   string
	params dest.CreateRepoParams
	user   bool
}

func newRepoCreate(s action.Spec, d Deps) (Action, error) {
	name := s.StringParam("name")
	return &repoCreate{
		deps: d,
		name: name,
		params: dest.CreateRepoParams{
			Name:        name,
			Description: s.StringParam("description"),
			Private:     !s.BoolParam("public"),
			HasIssues:   true,
			HasWiki:     s.BoolParam("has_wiki"),
		},
		user: s.BoolParam("user_owned"),
	}, nil
}

func (a *repoCreate) repoName(run *action.Context) string {
	if a.name != "" {
		return a.name
	}
	return run.Repo
}

func (a *repoCreate) org(run *action.Context) string {
	if a.user {
		return ""
	}
	return run.Owner
}

func (a *repoCreate) Execute(ctx context.Context, run *action.Context) (*Effect, error) {
	name := a.repoName(run)
	existing, err := a.deps.Dest.GetRepo(ctx, run.Owner, name)
	switch {
	case err == nil:
		return &Effect{Outputs: map[string]any{
			"existed":   true,
			"full_name": existing.FullName,
		}}, nil
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	params := a.params
	params.Name = name
	repo, err := a.deps.Dest.CreateRepo(ctx, a.org(run), params)
	if err != nil {
		return nil, err
	}
	return &Effect{
		Outputs: map[string]any{
			"full_name": repo.FullName,
			"html_url":  repo.HTMLURL,
			"private":   repo.Private,
		},
		RollbackData: map[string]any{"owner": run.Owner, "repo": name},
	}, nil
}

func (a *repoCreate) Simulate(ctx context.Context, run *action.Context) (*Simulation, error) {
	name := a.repoName(run)
	_, err := a.deps.Dest.GetRepo(ctx, run.Owner, name)
	switch {
	case err == nil:
		return &Simulation{
			Outcome: action.WouldSkip,
			Message: fmt.Sprintf("repository %s/%s already exists", run.Owner, name),
		}, nil
	case errors.Is(err, domain.ErrNotFound):
		return &Simulation{
			Outcome: action.WouldCreate,
			Message: fmt.Sprintf("would create repository %s/%s", run.Owner, name),
		}, nil
	default:
		return nil, err
	}
}

func (a *repoCreate) Reversible() bool { return true }

func (a *repoCreate) Rollback(ctx context.Context, run *action.Context, data map[string]any) error {
	owner, _ := data["owner"].(string)
	repo, _ := data["repo"].(string)
	if owner == "" || repo == "" {
		// No rollback data means the repository predates this run.
		return nil
	}
	return a.deps.Dest.DeleteRepo(ctx, owner, repo)
}

// repoPush mirrors the source repository's branches and tags onto the
// destination. Pushed history cannot be unwound.
type repoPush struct {
	irreversible
	deps      Deps
	sourceURL string
	mirrorDir string
	lfs       bool
	empty     bool
}

func newRepoPush(s action.Spec, d Deps) (Action, error) {
	empty := s.BoolParam("empty")
	sourceURL := s.StringParam("source_url")
	mirrorDir := s.StringParam("mirror_dir")
	if !empty {
		if sourceURL == "" {
			return nil, fmt.Errorf("action %s: parameter %q is required", s.ID, "source_url")
		}
		if mirrorDir == "" {
			return nil, fmt.Errorf("action %s: parameter %q is required", s.ID, "mirror_dir")
		}
	}
	return &repoPush{
		deps:      d,
		sourceURL: sourceURL,
		mirrorDir: mirrorDir,
		lfs:       s.BoolParam("lfs"),
		empty:     empty,
	}, nil
}

func (a *repoPush) Execute(ctx context.Context, run *action.Context) (*Effect, error) {
	if a.empty {
		return &Effect{Outputs: map[string]any{"skipped": "source repository is empty"}}, nil
	}
	pushURL, err := a.deps.pushURL(run.Owner, run.Repo)
	if err != nil {
		return nil, err
	}
	if err := a.deps.Git.MirrorClone(ctx, a.deps.sourceURL(a.sourceURL), a.mirrorDir); err != nil {
		return nil, err
	}
	if err := a.deps.Git.MirrorPush(ctx, a.mirrorDir, pushURL); err != nil {
		return nil, err
	}
	outputs := map[string]any{"mirror_dir": a.mirrorDir}
	if a.lfs {
		if err := a.deps.Git.SyncLFS(ctx, a.mirrorDir, pushURL); err != nil {
			return nil, err
		}
		outputs["lfs"] = true
	}
	return &Effect{Outputs: outputs}, nil
}

func (a *repoPush) Simulate(_ context.Context, run *action.Context) (*Simulation, error) {
	if a.empty {
		return &Simulation{
			Outcome: action.WouldSkip,
			Message: "source repository is empty; nothing to push",
		}, nil
	}
	msg := fmt.Sprintf("would push branches and tags to %s/%s", run.Owner, run.Repo)
	if a.lfs {
		msg += " including LFS objects"
	}
	return &Simulation{Outcome: action.WouldExecute, Message: msg}, nil
}

// lfsSync copies LFS objects for a repository whose history was pushed
// by an earlier repo_push in the same plan.
type lfsSync struct {
	irreversible
	deps      Deps
	mirrorDir string
}

func newLFSSync(s action.Spec, d Deps) (Action, error) {
	dir, err := requireString(s, "mirror_dir")
	if err != nil {
		return nil, err
	}
	return &lfsSync{deps: d, mirrorDir: dir}, nil
}

func (a *lfsSync) Execute(ctx context.Context, run *action.Context) (*Effect, error) {
	pushURL, err := a.deps.pushURL(run.Owner, run.Repo)
	if err != nil {
		return nil, err
	}
	if err := a.deps.Git.SyncLFS(ctx, a.mirrorDir, pushURL); err != nil {
		return nil, err
	}
	return &Effect{Outputs: map[string]any{"mirror_dir": a.mirrorDir}}, nil
}

func (a *lfsSync) Simulate(_ context.Context, run *action.Context) (*Simulation, error) {
	return &Simulation{
		Outcome: action.WouldExecute,
		Message: fmt.Sprintf("would copy LFS objects to %s/%s", run.Owner, run.Repo),
	}, nil
}

// gitmodulesCommit commits the rewritten .gitmodules so submodule URLs
// point at their migrated locations.
type gitmodulesCommit struct {
	irreversible
	deps    Deps
	content string
	branch  string
	message string
}

func newGitmodulesCommit(s action.Spec, d Deps) (Action, error) {
	content, err := requireString(s, "content")
	if err != nil {
		return nil, err
	}
	message := s.StringParam("message")
	if message == "" {
		message = "Rewrite submodule URLs for migrated repositories"
	}
	return &gitmodulesCommit{
		deps:    d,
		content: content,
		branch:  s.StringParam("branch"),
		message: message,
	}, nil
}

func (a *gitmodulesCommit) Execute(ctx context.Context, run *action.Context) (*Effect, error) {
	err := a.deps.Dest.PutFile(ctx, run.Owner, run.Repo, ".gitmodules", dest.CommitFileParams{
		Message: a.message,
		Content: []byte(a.content),
		Branch:  a.branch,
	})
	if err != nil {
		return nil, err
	}
	return &Effect{Outputs: map[string]any{"path": ".gitmodules", "branch": a.branch}}, nil
}

func (a *gitmodulesCommit) Simulate(_ context.Context, run *action.Context) (*Simulation, error) {
	return &Simulation{
		Outcome: action.WouldUpdate,
		Message: fmt.Sprintf("would commit rewritten .gitmodules to %s/%s", run.Owner, run.Repo),
	}, nil
}
