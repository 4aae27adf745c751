package gitlab

import (
	"context"
	"fmt"

	"github.com/Strob0t/ForgeShift/internal/forgehttp"
	"github.com/Strob0t/ForgeShift/internal/port/source"
)

func (p *Provider) ListBranches(ctx context.Context, projectID int64) ([]source.Branch, error) {
	branches, err := forgehttp.PaginateInto[source.Branch](ctx, p.client, projectPath(projectID, "/repository/branches"), nil, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("gitlab list branches: %w", err)
	}
	return branches, nil
}

func (p *Provider) ListTags(ctx context.Context, projectID int64) ([]source.Tag, error) {
	tags, err := forgehttp.PaginateInto[source.Tag](ctx, p.client, projectPath(projectID, "/repository/tags"), nil, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("gitlab list tags: %w", err)
	}
	return tags, nil
}

func (p *Provider) ListProtectedBranches(ctx context.Context, projectID int64) ([]source.ProtectedBranch, error) {
	rules, err := forgehttp.PaginateInto[source.ProtectedBranch](ctx, p.client, projectPath(projectID, "/protected_branches"), nil, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("gitlab list protected branches: %w", err)
	}
	return rules, nil
}

func (p *Provider) ListProtectedTags(ctx context.Context, projectID int64) ([]source.ProtectedTag, error) {
	rules, err := forgehttp.PaginateInto[source.ProtectedTag](ctx, p.client, projectPath(projectID, "/protected_tags"), nil, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("gitlab list protected tags: %w", err)
	}
	return rules, nil
}
