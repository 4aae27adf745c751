package service

import (
	"context"
	"fmt"
	"path/filepath"
)

func (e *Exporter) exportCICD(ctx context.Context, run *exportRun, dir string) (map[string]any, error) {
	p := run.project
	summary := map[string]any{"has_ci": false}

	if ref := p.DefaultBranch; ref != "" {
		content, found, err := e.src.RawFile(ctx, p.ID, ref, ".gitlab-ci.yml")
		if err != nil {
			return summary, fmt.Errorf("fetch pipeline definition: %w", err)
		}
		if found {
			if err := writeBytesFile(filepath.Join(dir, "gitlab-ci.yml"), content); err != nil {
				return summary, err
			}
			summary["has_ci"] = true
		}
	}

	schedules, err := e.src.ListPipelineSchedules(ctx, p.ID)
	if err != nil {
		summary["schedules_error"] = err.Error()
	} else {
		if err := writeJSONFile(filepath.Join(dir, "schedules.json"), schedules); err != nil {
			return summary, err
		}
		summary["schedules"] = len(schedules)
	}

	// Variable values never leave the source forge; the port type has
	// no value field, so this listing is metadata by construction.
	variables, err := e.src.ListProjectVariables(ctx, p.ID)
	if err != nil {
		summary["variables_error"] = err.Error()
	} else {
		if err := writeJSONFile(filepath.Join(dir, "variables.json"), variables); err != nil {
			return summary, err
		}
		summary["variables"] = len(variables)
		if len(variables) > 0 {
			run.summary.Gaps = append(run.summary.Gaps,
				"CI variable values are not exported; stage them on the destination manually")
		}
	}

	environments, err := e.src.ListEnvironments(ctx, p.ID)
	if err != nil {
		summary["environments_error"] = err.Error()
	} else {
		if err := writeJSONFile(filepath.Join(dir, "environments.json"), environments); err != nil {
			return summary, err
		}
		summary["environments"] = len(environments)
	}

	pipelines, err := e.src.ListPipelines(ctx, p.ID, e.opts.PipelineSample)
	if err != nil {
		summary["pipelines_error"] = err.Error()
	} else {
		if err := writeJSONFile(filepath.Join(dir, "pipelines.json"), pipelines); err != nil {
			return summary, err
		}
		summary["recent_pipelines"] = len(pipelines)
	}

	return summary, nil
}
