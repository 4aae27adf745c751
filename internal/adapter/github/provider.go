// Package github implements the dest.Provider port for GitHub and
// GitHub Enterprise using their REST API v3. Every call goes through
// the shared forge client, which carries the bearer token, rate gate,
// retry policy, and API budget.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/Strob0t/ForgeShift/internal/domain"
	"github.com/Strob0t/ForgeShift/internal/forgehttp"
	"github.com/Strob0t/ForgeShift/internal/port/dest"
)

const providerName = "github"

// Provider implements dest.Provider for GitHub.
type Provider struct {
	client  *forgehttp.Client
	uploads *forgehttp.Client

	mu   sync.Mutex
	keys map[string]repoKey
}

// repoKey is a repository's Actions public key, cached so sealing many
// secrets costs one key fetch per repository.
type repoKey struct {
	KeyID string `json:"key_id"`
	Key   string `json:"key"`
}

// New creates a GitHub provider over the given forge client.
func New(client *forgehttp.Client) *Provider {
	return &Provider{client: client, uploads: client, keys: make(map[string]repoKey)}
}

// SetUploadClient points release asset uploads at a separate host.
// github.com serves uploads from uploads.github.com rather than the
// API host; Enterprise instances serve both from one host.
func (p *Provider) SetUploadClient(client *forgehttp.Client) {
	p.uploads = client
}

func (p *Provider) Name() string { return providerName }

// doJSON issues a request and decodes the response body into out when
// out is non-nil.
func (p *Provider) doJSON(ctx context.Context, method, path string, query url.Values, body, out any) error {
	resp, err := p.client.Do(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// notFound reports whether err is a 404 from the forge.
func notFound(err error) bool {
	fe, ok := forgehttp.AsError(err)
	return ok && fe.Status == http.StatusNotFound
}

func repoPath(owner, repo, suffix string) string {
	return "/repos/" + owner + "/" + repo + suffix
}

// escapePath escapes each segment of a repository file path while
// keeping the separators.
func escapePath(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

func (p *Provider) GetRepo(ctx context.Context, owner, repo string) (*dest.Repo, error) {
	var r dest.Repo
	if err := p.client.GetJSON(ctx, repoPath(owner, repo, ""), nil, &r); err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("github repo %s/%s: %w", owner, repo, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("github get repo: %w", err)
	}
	return &r, nil
}

// CreateRepo creates under org, or under the authenticated user when
// org is empty.
func (p *Provider) CreateRepo(ctx context.Context, org string, params dest.CreateRepoParams) (*dest.Repo, error) {
	path := "/user/repos"
	if org != "" {
		path = "/orgs/" + org + "/repos"
	}
	var r dest.Repo
	if err := p.doJSON(ctx, http.MethodPost, path, nil, params, &r); err != nil {
		return nil, fmt.Errorf("github create repo: %w", err)
	}
	return &r, nil
}

func (p *Provider) UpdateRepo(ctx context.Context, owner, repo string, params dest.UpdateRepoParams) (*dest.Repo, error) {
	var r dest.Repo
	if err := p.doJSON(ctx, http.MethodPatch, repoPath(owner, repo, ""), nil, params, &r); err != nil {
		return nil, fmt.Errorf("github update repo: %w", err)
	}
	return &r, nil
}

func (p *Provider) DeleteRepo(ctx context.Context, owner, repo string) error {
	if _, err := p.client.Do(ctx, http.MethodDelete, repoPath(owner, repo, ""), nil, nil); err != nil {
		return fmt.Errorf("github delete repo: %w", err)
	}
	return nil
}
