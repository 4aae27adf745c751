package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Strob0t/ForgeShift/internal/port/dest"
)

func (p *Provider) CreateRelease(ctx context.Context, owner, repo string, params dest.ReleaseParams) (*dest.Release, error) {
	var rel dest.Release
	if err := p.doJSON(ctx, http.MethodPost, repoPath(owner, repo, "/releases"), nil, params, &rel); err != nil {
		return nil, fmt.Errorf("github create release %q: %w", params.TagName, err)
	}
	return &rel, nil
}

func (p *Provider) DeleteRelease(ctx context.Context, owner, repo string, id int64) error {
	path := repoPath(owner, repo, "/releases/"+strconv.FormatInt(id, 10))
	if _, err := p.client.Do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("github delete release %d: %w", id, err)
	}
	return nil
}

// UploadReleaseAsset sends the asset through the upload client, which
// may point at a different host than the API client.
func (p *Provider) UploadReleaseAsset(ctx context.Context, owner, repo string, releaseID int64, name string, data []byte) error {
	path := repoPath(owner, repo, "/releases/"+strconv.FormatInt(releaseID, 10)+"/assets")
	query := url.Values{"name": {name}}
	if _, err := p.uploads.Upload(ctx, path, query, "application/octet-stream", data); err != nil {
		return fmt.Errorf("github upload asset %q: %w", name, err)
	}
	return nil
}
