package actions

import (
	"context"
	"errors"
	"fmt"

	"github.com/Strob0t/ForgeShift/internal/domain"
	"github.com/Strob0t/ForgeShift/internal/domain/action"
	"github.com/Strob0t/ForgeShift/internal/port/dest"
)

// prCreate recreates a merge request as a pull request. When the head
// branch no longer exists on the destination the action falls back to
// a placeholder issue so the request's history is still preserved.
// Pull requests and issues share one number space on the destination,
// so the id mapping works the same either way.
type prCreate struct {
	irreversible
	deps     Deps
	sourceID string
	state    string
	params   dest.PullRequestParams
}

func newPRCreate(s action.Spec, d Deps) (Action, error) {
	title, err := requireString(s, "title")
	if err != nil {
		return nil, err
	}
	head, err := requireString(s, "head")
	if err != nil {
		return nil, err
	}
	base, err := requireString(s, "base")
	if err != nil {
		return nil, err
	}
	return &prCreate{
		deps:     d,
		sourceID: sourceKey(s, "source_id"),
		state:    s.StringParam("state"),
		params: dest.PullRequestParams{
			Title: title,
			Body:  s.StringParam("body"),
			Head:  head,
			Base:  base,
			Draft: s.BoolParam("draft"),
		},
	}, nil
}

func (a *prCreate) mapID(run *action.Context, number int64) {
	if a.sourceID != "" {
		run.MapID(action.MappingPullRequest, a.sourceID, number)
	}
}

// close moves the created pull request or placeholder issue to the
// closed state. A close failure never fails the action: retrying
// would recreate the request.
func (a *prCreate) close(ctx context.Context, run *action.Context, number int64, outputs map[string]any) {
	if a.state != "closed" {
		return
	}
	if err := a.deps.Dest.UpdateIssueState(ctx, run.Owner, run.Repo, number, "closed"); err != nil {
		outputs["close_error"] = err.Error()
		return
	}
	outputs["state"] = "closed"
}

func (a *prCreate) Execute(ctx context.Context, run *action.Context) (*Effect, error) {
	pr, err := a.deps.Dest.CreatePullRequest(ctx, run.Owner, run.Repo, a.params)
	if err == nil {
		a.mapID(run, pr.Number)
		outputs := map[string]any{"number": pr.Number, "html_url": pr.HTMLURL}
		a.close(ctx, run, pr.Number, outputs)
		return &Effect{Outputs: outputs}, nil
	}
	if !errors.Is(err, dest.ErrMissingHeadBranch) {
		return nil, err
	}

	body := fmt.Sprintf(
		"> **Note**: this merge request could not be recreated as a pull request because its head branch `%s` no longer exists.\n\n%s",
		a.params.Head, a.params.Body)
	issue, err := a.deps.Dest.CreateIssue(ctx, run.Owner, run.Repo, dest.IssueParams{
		Title: a.params.Title,
		Body:  body,
	})
	if err != nil {
		return nil, fmt.Errorf("placeholder issue for %q: %w", a.params.Head, err)
	}
	a.mapID(run, issue.Number)
	outputs := map[string]any{
		"number":   issue.Number,
		"html_url": issue.HTMLURL,
		"fallback": "issue",
	}
	a.close(ctx, run, issue.Number, outputs)
	return &Effect{
		Outputs: outputs,
		Note: fmt.Sprintf("head branch %q is missing; request preserved as issue #%d",
			a.params.Head, issue.Number),
	}, nil
}

func (a *prCreate) Simulate(_ context.Context, run *action.Context) (*Simulation, error) {
	if a.sourceID != "" {
		run.MapID(action.MappingPullRequest, a.sourceID, 0)
	}
	return &Simulation{
		Outcome: action.WouldCreate,
		Message: fmt.Sprintf("would open pull request %q (%s into %s), falling back to an issue if the head branch is missing",
			a.params.Title, a.params.Head, a.params.Base),
	}, nil
}

// prCommentAdd comments on a pull request created earlier in the plan.
// Pull request comments go through the issue comment endpoint.
type prCommentAdd struct {
	irreversible
	deps Deps
	prID string
	body string
}

func newPRCommentAdd(s action.Spec, d Deps) (Action, error) {
	prID := sourceKey(s, "pr_id")
	if prID == "" {
		return nil, fmt.Errorf("action %s: parameter %q is required", s.ID, "pr_id")
	}
	body, err := requireString(s, "body")
	if err != nil {
		return nil, err
	}
	return &prCommentAdd{deps: d, prID: prID, body: body}, nil
}

func (a *prCommentAdd) resolve(run *action.Context) (int64, error) {
	number, ok := run.LookupID(action.MappingPullRequest, a.prID)
	if !ok {
		return 0, domain.NewStepError(domain.CategoryValidation, "pr_comment_add", 0,
			fmt.Sprintf("Could not resolve pull request number for source merge request %s", a.prID))
	}
	return number, nil
}

func (a *prCommentAdd) Execute(ctx context.Context, run *action.Context) (*Effect, error) {
	number, err := a.resolve(run)
	if err != nil {
		return nil, err
	}
	comment, err := a.deps.Dest.CreateIssueComment(ctx, run.Owner, run.Repo, number, a.body)
	if err != nil {
		return nil, err
	}
	return &Effect{Outputs: map[string]any{
		"comment_id":  comment.ID,
		"pull_number": number,
	}}, nil
}

func (a *prCommentAdd) Simulate(_ context.Context, run *action.Context) (*Simulation, error) {
	number, err := a.resolve(run)
	if err != nil {
		return &Simulation{Outcome: action.WouldFail, Message: err.Error()}, nil
	}
	if number == 0 {
		return &Simulation{
			Outcome: action.WouldCreate,
			Message: "would comment on a pull request created earlier in this plan",
		}, nil
	}
	return &Simulation{
		Outcome: action.WouldCreate,
		Message: fmt.Sprintf("would comment on pull request #%d", number),
	}, nil
}
