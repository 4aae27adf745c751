package service

import (
	"context"
	"fmt"
	"path/filepath"
)

func (e *Exporter) exportReleases(ctx context.Context, run *exportRun, dir string) (map[string]any, error) {
	p := run.project
	if !e.src.Capabilities().Releases {
		return map[string]any{"status": "skipped", "reason": "releases unsupported"}, nil
	}

	releases, err := e.src.ListReleases(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("list releases: %w", err)
	}
	if err := writeJSONFile(filepath.Join(dir, "releases.json"), releases); err != nil {
		return nil, err
	}

	links, sources, evidences := 0, 0, 0
	for _, r := range releases {
		links += len(r.Links)
		sources += len(r.Sources)
		evidences += len(r.Evidences)
	}

	if links > 0 {
		run.summary.Gaps = append(run.summary.Gaps,
			"release asset links point at source-forge URLs; re-upload the assets during apply")
	}
	return map[string]any{
		"releases":  len(releases),
		"links":     links,
		"sources":   sources,
		"evidences": evidences,
	}, nil
}
