package gitlab

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Strob0t/ForgeShift/internal/forgehttp"
	"github.com/Strob0t/ForgeShift/internal/port/source"
)

// The releases endpoint nests links and source archives under an "assets"
// envelope. The port type keeps them flat.
type releasePayload struct {
	TagName     string      `json:"tag_name"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Author      source.User `json:"author"`
	CreatedAt   time.Time   `json:"created_at"`
	ReleasedAt  time.Time `json:"released_at"`
	Assets      struct {
		Links   []source.ReleaseLink   `json:"links"`
		Sources []source.ReleaseSource `json:"sources"`
	} `json:"assets"`
	Evidences []source.ReleaseEvidence `json:"evidences"`
}

func (p *Provider) ListReleases(ctx context.Context, projectID int64) ([]source.Release, error) {
	payloads, err := forgehttp.PaginateInto[releasePayload](ctx, p.client, projectPath(projectID, "/releases"), nil, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("gitlab list releases: %w", err)
	}
	releases := make([]source.Release, 0, len(payloads))
	for _, payload := range payloads {
		releases = append(releases, source.Release{
			TagName:     payload.TagName,
			Name:        payload.Name,
			Description: payload.Description,
			Author:      payload.Author,
			CreatedAt:   payload.CreatedAt,
			ReleasedAt:  payload.ReleasedAt,
			Links:       payload.Assets.Links,
			Sources:     payload.Assets.Sources,
			Evidences:   payload.Evidences,
		})
	}
	return releases, nil
}

func (p *Provider) ListPackages(ctx context.Context, projectID int64) ([]source.Package, error) {
	packages, err := forgehttp.PaginateInto[source.Package](ctx, p.client, projectPath(projectID, "/packages"), nil, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("gitlab list packages: %w", err)
	}
	return packages, nil
}

func (p *Provider) ListPackageFiles(ctx context.Context, projectID int64, packageID int64) ([]source.PackageFile, error) {
	path := projectPath(projectID, "/packages/"+strconv.FormatInt(packageID, 10)+"/package_files")
	files, err := forgehttp.PaginateInto[source.PackageFile](ctx, p.client, path, nil, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("gitlab list package files: %w", err)
	}
	return files, nil
}
