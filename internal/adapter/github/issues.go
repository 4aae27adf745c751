package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Strob0t/ForgeShift/internal/domain"
	"github.com/Strob0t/ForgeShift/internal/forgehttp"
	"github.com/Strob0t/ForgeShift/internal/port/dest"
)

func (p *Provider) GetLabel(ctx context.Context, owner, repo, name string) (*dest.Label, error) {
	var l dest.Label
	path := repoPath(owner, repo, "/labels/"+url.PathEscape(name))
	if err := p.client.GetJSON(ctx, path, nil, &l); err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("github label %q: %w", name, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("github get label: %w", err)
	}
	return &l, nil
}

func (p *Provider) CreateLabel(ctx context.Context, owner, repo string, l dest.Label) (*dest.Label, error) {
	var created dest.Label
	if err := p.doJSON(ctx, http.MethodPost, repoPath(owner, repo, "/labels"), nil, l, &created); err != nil {
		return nil, fmt.Errorf("github create label %q: %w", l.Name, err)
	}
	return &created, nil
}

func (p *Provider) DeleteLabel(ctx context.Context, owner, repo, name string) error {
	path := repoPath(owner, repo, "/labels/"+url.PathEscape(name))
	if _, err := p.client.Do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("github delete label %q: %w", name, err)
	}
	return nil
}

func (p *Provider) ListMilestones(ctx context.Context, owner, repo string) ([]dest.Milestone, error) {
	query := url.Values{"state": {"all"}}
	milestones, err := forgehttp.PaginateInto[dest.Milestone](ctx, p.client, repoPath(owner, repo, "/milestones"), query, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("github list milestones: %w", err)
	}
	return milestones, nil
}

func (p *Provider) CreateMilestone(ctx context.Context, owner, repo string, params dest.MilestoneParams) (*dest.Milestone, error) {
	var m dest.Milestone
	if err := p.doJSON(ctx, http.MethodPost, repoPath(owner, repo, "/milestones"), nil, params, &m); err != nil {
		return nil, fmt.Errorf("github create milestone %q: %w", params.Title, err)
	}
	return &m, nil
}

func (p *Provider) DeleteMilestone(ctx context.Context, owner, repo string, number int64) error {
	path := repoPath(owner, repo, "/milestones/"+strconv.FormatInt(number, 10))
	if _, err := p.client.Do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("github delete milestone %d: %w", number, err)
	}
	return nil
}

func (p *Provider) CreateIssue(ctx context.Context, owner, repo string, params dest.IssueParams) (*dest.Issue, error) {
	var issue dest.Issue
	if err := p.doJSON(ctx, http.MethodPost, repoPath(owner, repo, "/issues"), nil, params, &issue); err != nil {
		return nil, fmt.Errorf("github create issue: %w", err)
	}
	return &issue, nil
}

func (p *Provider) UpdateIssueState(ctx context.Context, owner, repo string, number int64, state string) error {
	path := repoPath(owner, repo, "/issues/"+strconv.FormatInt(number, 10))
	body := map[string]string{"state": state}
	if _, err := p.client.Do(ctx, http.MethodPatch, path, nil, body); err != nil {
		return fmt.Errorf("github update issue %d state: %w", number, err)
	}
	return nil
}

func (p *Provider) CreateIssueComment(ctx context.Context, owner, repo string, number int64, body string) (*dest.Comment, error) {
	path := repoPath(owner, repo, "/issues/"+strconv.FormatInt(number, 10)+"/comments")
	var comment dest.Comment
	if err := p.doJSON(ctx, http.MethodPost, path, nil, map[string]string{"body": body}, &comment); err != nil {
		return nil, fmt.Errorf("github comment on issue %d: %w", number, err)
	}
	return &comment, nil
}

// CreatePullRequest surfaces a missing head branch as
// dest.ErrMissingHeadBranch so the caller can fall back to a
// placeholder issue.
func (p *Provider) CreatePullRequest(ctx context.Context, owner, repo string, params dest.PullRequestParams) (*dest.PullRequest, error) {
	var pr dest.PullRequest
	if err := p.doJSON(ctx, http.MethodPost, repoPath(owner, repo, "/pulls"), nil, params, &pr); err != nil {
		if fe, ok := forgehttp.AsError(err); ok && fe.Status == http.StatusUnprocessableEntity && strings.Contains(fe.Body, `"head"`) {
			return nil, fmt.Errorf("github pull request %q: %w", params.Head, dest.ErrMissingHeadBranch)
		}
		return nil, fmt.Errorf("github create pull request: %w", err)
	}
	return &pr, nil
}
