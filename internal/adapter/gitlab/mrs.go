package gitlab

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/Strob0t/ForgeShift/internal/forgehttp"
	"github.com/Strob0t/ForgeShift/internal/port/source"
)

// ListMergeRequests returns every merge request regardless of state, oldest
// first, so replayed activity keeps source chronology.
func (p *Provider) ListMergeRequests(ctx context.Context, projectID int64) ([]source.MergeRequest, error) {
	query := url.Values{
		"state":    {"all"},
		"order_by": {"created_at"},
		"sort":     {"asc"},
	}
	mrs, err := forgehttp.PaginateInto[source.MergeRequest](ctx, p.client, projectPath(projectID, "/merge_requests"), query, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("gitlab list merge requests: %w", err)
	}
	return mrs, nil
}

func (p *Provider) ListMRDiscussions(ctx context.Context, projectID int64, mrIID int64) ([]source.Discussion, error) {
	path := projectPath(projectID, "/merge_requests/"+strconv.FormatInt(mrIID, 10)+"/discussions")
	discussions, err := forgehttp.PaginateInto[source.Discussion](ctx, p.client, path, nil, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("gitlab list merge request discussions: %w", err)
	}
	return discussions, nil
}

// The changes endpoint returns the full merge request object with the diffs
// nested under a "changes" key. Only the diffs are of interest here.
type mrChangesPayload struct {
	Changes []source.FileDiff `json:"changes"`
}

func (p *Provider) ListMRChanges(ctx context.Context, projectID int64, mrIID int64) ([]source.FileDiff, error) {
	path := projectPath(projectID, "/merge_requests/"+strconv.FormatInt(mrIID, 10)+"/changes")
	var payload mrChangesPayload
	if err := p.client.GetJSON(ctx, path, nil, &payload); err != nil {
		return nil, fmt.Errorf("gitlab merge request changes: %w", err)
	}
	return payload.Changes, nil
}

// The approvals endpoint wraps each approver in an {"user": {...}} envelope.
type approvalsPayload struct {
	Approved          bool `json:"approved"`
	ApprovalsRequired int  `json:"approvals_required"`
	ApprovalsLeft     int  `json:"approvals_left"`
	ApprovedBy        []struct {
		User source.User `json:"user"`
	} `json:"approved_by"`
}

func (p *Provider) GetMRApprovals(ctx context.Context, projectID int64, mrIID int64) (*source.ApprovalStatus, error) {
	path := projectPath(projectID, "/merge_requests/"+strconv.FormatInt(mrIID, 10)+"/approvals")
	var payload approvalsPayload
	if err := p.client.GetJSON(ctx, path, nil, &payload); err != nil {
		return nil, fmt.Errorf("gitlab merge request approvals: %w", err)
	}
	status := &source.ApprovalStatus{
		Approved:          payload.Approved,
		ApprovalsRequired: payload.ApprovalsRequired,
		ApprovalsLeft:     payload.ApprovalsLeft,
	}
	for _, entry := range payload.ApprovedBy {
		status.ApprovedBy = append(status.ApprovedBy, entry.User)
	}
	return status, nil
}
