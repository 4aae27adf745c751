package gitlab

import (
	"context"
	"fmt"

	"github.com/Strob0t/ForgeShift/internal/forgehttp"
	"github.com/Strob0t/ForgeShift/internal/port/source"
)

// ListMembers returns direct and inherited members. Inherited members matter
// for access reviews even though they are not attached to the project itself.
func (p *Provider) ListMembers(ctx context.Context, projectID int64) ([]source.Member, error) {
	members, err := forgehttp.PaginateInto[source.Member](ctx, p.client, projectPath(projectID, "/members/all"), nil, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("gitlab list members: %w", err)
	}
	return members, nil
}

// ListWebhooks returns hook configurations. Hook tokens are not part of the
// payload the API returns, so nothing secret passes through here.
func (p *Provider) ListWebhooks(ctx context.Context, projectID int64) ([]source.Webhook, error) {
	hooks, err := forgehttp.PaginateInto[source.Webhook](ctx, p.client, projectPath(projectID, "/hooks"), nil, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("gitlab list webhooks: %w", err)
	}
	return hooks, nil
}

func (p *Provider) ListDeployKeys(ctx context.Context, projectID int64) ([]source.DeployKey, error) {
	keys, err := forgehttp.PaginateInto[source.DeployKey](ctx, p.client, projectPath(projectID, "/deploy_keys"), nil, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("gitlab list deploy keys: %w", err)
	}
	return keys, nil
}

func (p *Provider) ListDeployTokens(ctx context.Context, projectID int64) ([]source.DeployToken, error) {
	tokens, err := forgehttp.PaginateInto[source.DeployToken](ctx, p.client, projectPath(projectID, "/deploy_tokens"), nil, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("gitlab list deploy tokens: %w", err)
	}
	return tokens, nil
}
