package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Strob0t/ForgeShift/internal/transform"
)

// repositorySummary is the component-local artifact describing the
// repository shape. The actual git-level bundle is created by Apply's
// repo_push action; export records what it will need.
type repositorySummary struct {
	DefaultBranch string                `json:"default_branch,omitempty"`
	EmptyRepo     bool                  `json:"empty_repo"`
	HTTPURL       string                `json:"http_url_to_repo,omitempty"`
	SSHURL        string                `json:"ssh_url_to_repo,omitempty"`
	Branches      int                   `json:"branches"`
	Tags          int                   `json:"tags"`
	HasLFS        bool                  `json:"has_lfs"`
	Submodules    []transform.Submodule `json:"submodules,omitempty"`
}

func (e *Exporter) exportRepository(ctx context.Context, run *exportRun, dir string) (map[string]any, error) {
	p := run.project

	branches, err := e.src.ListBranches(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	if err := writeJSONFile(filepath.Join(dir, "branches.json"), branches); err != nil {
		return nil, err
	}

	tags, err := e.src.ListTags(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	if err := writeJSONFile(filepath.Join(dir, "tags.json"), tags); err != nil {
		return nil, err
	}

	sum := repositorySummary{
		DefaultBranch: p.DefaultBranch,
		EmptyRepo:     p.EmptyRepo,
		HTTPURL:       p.HTTPURLToRepo,
		SSHURL:        p.SSHURLToRepo,
		Branches:      len(branches),
		Tags:          len(tags),
	}

	if ref := p.DefaultBranch; ref != "" {
		attrs, found, err := e.src.RawFile(ctx, p.ID, ref, ".gitattributes")
		if err != nil {
			return nil, fmt.Errorf("probe .gitattributes: %w", err)
		}
		if found {
			sum.HasLFS = strings.Contains(string(attrs), "filter=lfs")
		} else {
			sum.HasLFS = p.LFSEnabled
		}

		mods, found, err := e.src.RawFile(ctx, p.ID, ref, ".gitmodules")
		if err != nil {
			return nil, fmt.Errorf("probe .gitmodules: %w", err)
		}
		if found {
			if err := writeBytesFile(filepath.Join(dir, "gitmodules"), mods); err != nil {
				return nil, err
			}
			sum.Submodules = transform.ParseGitmodules(string(mods))
		}
	}

	if err := writeJSONFile(filepath.Join(dir, "repository.json"), sum); err != nil {
		return nil, err
	}

	return map[string]any{
		"branches":   sum.Branches,
		"tags":       sum.Tags,
		"has_lfs":    sum.HasLFS,
		"submodules": len(sum.Submodules),
		"empty_repo": sum.EmptyRepo,
	}, nil
}
