package gitlab

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/Strob0t/ForgeShift/internal/forgehttp"
	"github.com/Strob0t/ForgeShift/internal/port/source"
)

func (p *Provider) ListLabels(ctx context.Context, projectID int64) ([]source.Label, error) {
	labels, err := forgehttp.PaginateInto[source.Label](ctx, p.client, projectPath(projectID, "/labels"), nil, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("gitlab list labels: %w", err)
	}
	return labels, nil
}

func (p *Provider) ListMilestones(ctx context.Context, projectID int64) ([]source.Milestone, error) {
	query := url.Values{"state": {"all"}}
	milestones, err := forgehttp.PaginateInto[source.Milestone](ctx, p.client, projectPath(projectID, "/milestones"), query, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("gitlab list milestones: %w", err)
	}
	return milestones, nil
}

// ListIssues returns every issue regardless of state, oldest first so that
// destination numbering follows source chronology.
func (p *Provider) ListIssues(ctx context.Context, projectID int64) ([]source.Issue, error) {
	query := url.Values{
		"state":    {"all"},
		"order_by": {"created_at"},
		"sort":     {"asc"},
	}
	issues, err := forgehttp.PaginateInto[source.Issue](ctx, p.client, projectPath(projectID, "/issues"), query, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("gitlab list issues: %w", err)
	}
	return issues, nil
}

func (p *Provider) ListIssueNotes(ctx context.Context, projectID int64, issueIID int64) ([]source.Note, error) {
	path := projectPath(projectID, "/issues/"+strconv.FormatInt(issueIID, 10)+"/notes")
	query := url.Values{"order_by": {"created_at"}, "sort": {"asc"}}
	notes, err := forgehttp.PaginateInto[source.Note](ctx, p.client, path, query, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("gitlab list issue notes: %w", err)
	}
	return notes, nil
}
