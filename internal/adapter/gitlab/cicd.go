package gitlab

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Strob0t/ForgeShift/internal/forgehttp"
	"github.com/Strob0t/ForgeShift/internal/port/source"
)

// Variable payloads from the API carry the secret value. The port type has no
// value field, so decoding drops it before it can reach any caller.

func (p *Provider) ListProjectVariables(ctx context.Context, projectID int64) ([]source.Variable, error) {
	vars, err := forgehttp.PaginateInto[source.Variable](ctx, p.client, projectPath(projectID, "/variables"), nil, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("gitlab list project variables: %w", err)
	}
	return vars, nil
}

func (p *Provider) ListGroupVariables(ctx context.Context, groupID int64) ([]source.Variable, error) {
	path := "/api/v4/groups/" + strconv.FormatInt(groupID, 10) + "/variables"
	vars, err := forgehttp.PaginateInto[source.Variable](ctx, p.client, path, nil, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("gitlab list group variables: %w", err)
	}
	return vars, nil
}

func (p *Provider) ListPipelineSchedules(ctx context.Context, projectID int64) ([]source.PipelineSchedule, error) {
	schedules, err := forgehttp.PaginateInto[source.PipelineSchedule](ctx, p.client, projectPath(projectID, "/pipeline_schedules"), nil, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("gitlab list pipeline schedules: %w", err)
	}
	return schedules, nil
}

func (p *Provider) ListEnvironments(ctx context.Context, projectID int64) ([]source.Environment, error) {
	envs, err := forgehttp.PaginateInto[source.Environment](ctx, p.client, projectPath(projectID, "/environments"), nil, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("gitlab list environments: %w", err)
	}
	return envs, nil
}

// ListPipelines returns the most recent pipelines, newest first, capped at limit.
func (p *Provider) ListPipelines(ctx context.Context, projectID int64, limit int) ([]source.Pipeline, error) {
	pipelines, err := forgehttp.PaginateInto[source.Pipeline](ctx, p.client, projectPath(projectID, "/pipelines"), nil, 0, limit)
	if err != nil {
		return nil, fmt.Errorf("gitlab list pipelines: %w", err)
	}
	return pipelines, nil
}
