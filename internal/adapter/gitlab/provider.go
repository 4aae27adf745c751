// Package gitlab implements the source.Provider port for GitLab
// instances using their REST API v4. Every call goes through the
// shared forge client, which enforces the read-only guard, rate gate,
// and API budget.
package gitlab

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Strob0t/ForgeShift/internal/forgehttp"
	"github.com/Strob0t/ForgeShift/internal/port/source"
)

const providerName = "gitlab"

// Provider implements source.Provider for GitLab.
type Provider struct {
	client *forgehttp.Client
}

// New creates a GitLab provider over the given forge client.
func New(client *forgehttp.Client) *Provider {
	return &Provider{client: client}
}

func (p *Provider) Name() string { return providerName }

func (p *Provider) Capabilities() source.Capabilities {
	return source.Capabilities{
		Wiki:          true,
		Releases:      true,
		Packages:      true,
		Pipelines:     true,
		Environments:  true,
		ApprovalRules: true,
	}
}

// HealthCheck hits the version endpoint, which requires a valid token.
func (p *Provider) HealthCheck(ctx context.Context) (string, error) {
	var v struct {
		Version  string `json:"version"`
		Revision string `json:"revision"`
	}
	if err := p.client.GetJSON(ctx, "/api/v4/version", nil, &v); err != nil {
		return "", fmt.Errorf("gitlab health check: %w", err)
	}
	return v.Version, nil
}

func (p *Provider) GetProject(ctx context.Context, path string) (*source.Project, error) {
	var project source.Project
	if err := p.client.GetJSON(ctx, "/api/v4/projects/"+url.PathEscape(path), nil, &project); err != nil {
		return nil, fmt.Errorf("gitlab get project: %w", err)
	}
	return &project, nil
}

func (p *Provider) GetGroup(ctx context.Context, path string) (*source.Group, error) {
	var group source.Group
	if err := p.client.GetJSON(ctx, "/api/v4/groups/"+url.PathEscape(path), nil, &group); err != nil {
		return nil, fmt.Errorf("gitlab get group: %w", err)
	}
	return &group, nil
}

func (p *Provider) ListGroups(ctx context.Context) ([]source.Group, error) {
	query := url.Values{"top_level_only": {"true"}}
	groups, err := forgehttp.PaginateInto[source.Group](ctx, p.client, "/api/v4/groups", query, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("gitlab list groups: %w", err)
	}
	return groups, nil
}

func (p *Provider) ListSubgroups(ctx context.Context, groupID int64) ([]source.Group, error) {
	path := fmt.Sprintf("/api/v4/groups/%d/subgroups", groupID)
	groups, err := forgehttp.PaginateInto[source.Group](ctx, p.client, path, nil, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("gitlab list subgroups: %w", err)
	}
	return groups, nil
}

func (p *Provider) ListGroupProjects(ctx context.Context, groupID int64) ([]source.Project, error) {
	path := fmt.Sprintf("/api/v4/groups/%d/projects", groupID)
	query := url.Values{"with_shared": {"false"}, "include_subgroups": {"false"}}
	projects, err := forgehttp.PaginateInto[source.Project](ctx, p.client, path, query, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("gitlab list group projects: %w", err)
	}
	return projects, nil
}

// RawFile fetches a repository file's raw content at ref. A 404 means
// the file does not exist and is not an error.
func (p *Provider) RawFile(ctx context.Context, projectID int64, ref, path string) ([]byte, bool, error) {
	reqPath := fmt.Sprintf("/api/v4/projects/%d/repository/files/%s/raw", projectID, url.PathEscape(path))
	query := url.Values{"ref": {ref}}
	resp, err := p.client.Get(ctx, reqPath, query)
	if err != nil {
		if fe, ok := forgehttp.AsError(err); ok && fe.Status == http.StatusNotFound {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("gitlab raw file %s: %w", path, err)
	}
	return resp.Body, true, nil
}

func (p *Provider) ListTree(ctx context.Context, projectID int64, ref, path string) ([]source.TreeEntry, error) {
	reqPath := fmt.Sprintf("/api/v4/projects/%d/repository/tree", projectID)
	query := url.Values{"ref": {ref}}
	if path != "" {
		query.Set("path", path)
	}
	entries, err := forgehttp.PaginateInto[source.TreeEntry](ctx, p.client, reqPath, query, 0, 0)
	if err != nil {
		if fe, ok := forgehttp.AsError(err); ok && fe.Status == http.StatusNotFound {
			// Empty repositories have no tree.
			return nil, nil
		}
		return nil, fmt.Errorf("gitlab list tree: %w", err)
	}
	return entries, nil
}

func (p *Provider) CountMergeRequests(ctx context.Context, projectID int64, state string, ceiling int) (int, bool, error) {
	path := fmt.Sprintf("/api/v4/projects/%d/merge_requests", projectID)
	n, exact, err := p.client.Count(ctx, path, url.Values{"state": {state}}, ceiling)
	if err != nil {
		return 0, false, fmt.Errorf("gitlab count merge requests: %w", err)
	}
	return n, exact, nil
}

func (p *Provider) CountIssues(ctx context.Context, projectID int64, state string, ceiling int) (int, bool, error) {
	path := fmt.Sprintf("/api/v4/projects/%d/issues", projectID)
	n, exact, err := p.client.Count(ctx, path, url.Values{"state": {state}}, ceiling)
	if err != nil {
		return 0, false, fmt.Errorf("gitlab count issues: %w", err)
	}
	return n, exact, nil
}

// projectPath builds /api/v4/projects/<id><suffix>.
func projectPath(projectID int64, suffix string) string {
	return "/api/v4/projects/" + strconv.FormatInt(projectID, 10) + suffix
}
