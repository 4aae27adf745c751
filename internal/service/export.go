package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Strob0t/ForgeShift/internal/adapter/otel"
	"github.com/Strob0t/ForgeShift/internal/domain/checkpoint"
	"github.com/Strob0t/ForgeShift/internal/port/source"
	"github.com/Strob0t/ForgeShift/internal/secrets"
)

const (
	defaultPipelineSample     = 20
	defaultPackageSizeCeiling = 100 << 20 // 100 MiB
)

// ExportOptions configures a project export.
type ExportOptions struct {
	OutputDir string
	RunID     string

	// PipelineSample bounds how many recent pipeline runs are recorded.
	PipelineSample int
	// PackageSizeCeiling skips package file downloads above this many
	// bytes; skipped files are reported as gaps.
	PackageSizeCeiling int64

	Logger  *slog.Logger
	Tracker *Tracker
	Metrics *otel.Metrics
}

// ComponentResult is the recorded outcome of one export component.
type ComponentResult struct {
	Status  string         `json:"status"` // complete, failed, skipped
	Error   string         `json:"error,omitempty"`
	Summary map[string]any `json:"summary,omitempty"`
}

// ExportSummary is the per-project export report written next to the
// checkpoint.
type ExportSummary struct {
	ProjectID  int64                      `json:"project_id"`
	Path       string                     `json:"path_with_namespace"`
	RunID      string                     `json:"run_id"`
	StartedAt  time.Time                  `json:"started_at"`
	FinishedAt time.Time                  `json:"finished_at"`
	Components map[string]ComponentResult `json:"components"`
	Gaps       []string                   `json:"gaps,omitempty"`
}

// Failed reports whether any component ended in failure.
func (s *ExportSummary) Failed() bool {
	for _, r := range s.Components {
		if r.Status == "failed" {
			return true
		}
	}
	return false
}

// Exporter extracts a project's full state into the artifact tree
// <output>/<project_id>/<run_id>/, one subdirectory per component,
// checkpointing after each component so an interrupted run resumes
// where it stopped.
type Exporter struct {
	src   source.Provider
	store *checkpoint.Store
	opts  ExportOptions
	log   *slog.Logger
}

// NewExporter builds an exporter rooted at opts.OutputDir.
func NewExporter(src source.Provider, opts ExportOptions) *Exporter {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	if opts.PipelineSample <= 0 {
		opts.PipelineSample = defaultPipelineSample
	}
	if opts.PackageSizeCeiling <= 0 {
		opts.PackageSizeCeiling = defaultPackageSizeCeiling
	}
	return &Exporter{
		src:   src,
		store: checkpoint.NewStore(opts.OutputDir),
		opts:  opts,
		log:   log.With("service", "export"),
	}
}

// exportRun carries the per-project context every component sees.
type exportRun struct {
	project *source.Project
	dir     string
	cp      *checkpoint.Checkpoint
	summary *ExportSummary
}

// componentFn extracts one component into its own subdirectory and
// returns the summary recorded for it.
type componentFn func(ctx context.Context, run *exportRun, dir string) (map[string]any, error)

// ExportProject runs all eight components for one project. A failing
// component is recorded and the rest still run; the summary and the
// checkpoint are always written at whatever completeness was reached.
func (e *Exporter) ExportProject(ctx context.Context, project *source.Project) (*ExportSummary, error) {
	dir := filepath.Join(e.opts.OutputDir, strconv.FormatInt(project.ID, 10), e.opts.RunID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}

	cp, err := e.store.Load(project.ID, e.opts.RunID)
	if err != nil {
		e.log.Warn("checkpoint unreadable; starting fresh", "project", project.PathWithNamespace, "error", err)
		cp = checkpoint.New(project.ID, e.opts.RunID)
	}
	resuming := len(cp.CompletedComponents) > 0

	run := &exportRun{
		project: project,
		dir:     dir,
		cp:      cp,
		summary: &ExportSummary{
			ProjectID:  project.ID,
			Path:       project.PathWithNamespace,
			RunID:      e.opts.RunID,
			StartedAt:  time.Now().UTC(),
			Components: map[string]ComponentResult{},
		},
	}
	if resuming {
		e.log.Info("resuming export",
			"project", project.PathWithNamespace,
			"completed", strings.Join(cp.CompletedComponents, ","))
	}

	if err := writeJSONFile(filepath.Join(dir, "project.json"), project); err != nil {
		return nil, err
	}

	components := []struct {
		name string
		fn   componentFn
	}{
		{checkpoint.ComponentRepository, e.exportRepository},
		{checkpoint.ComponentCICD, e.exportCICD},
		{checkpoint.ComponentIssues, e.exportIssues},
		{checkpoint.ComponentMergeRequests, e.exportMergeRequests},
		{checkpoint.ComponentWiki, e.exportWiki},
		{checkpoint.ComponentReleases, e.exportReleases},
		{checkpoint.ComponentPackages, e.exportPackages},
		{checkpoint.ComponentSettings, e.exportSettings},
	}

	for _, c := range components {
		if err := ctx.Err(); err != nil {
			break
		}
		if cp.Completed(c.name) {
			run.summary.Components[c.name] = ComponentResult{Status: "complete"}
			continue
		}

		subdir := filepath.Join(dir, checkpoint.Dir(c.name))
		if err := os.MkdirAll(subdir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s dir: %w", c.name, err)
		}

		summary, err := c.fn(ctx, run, subdir)
		if err != nil {
			msg := secrets.Redact(err.Error())
			run.summary.Components[c.name] = ComponentResult{
				Status: "failed", Error: msg, Summary: summary,
			}
			e.log.Warn("component failed",
				"project", project.PathWithNamespace, "component", c.name, "error", msg)
			e.componentDone(ctx, project.ID, c.name, "failed", err)
			continue
		}

		status := "complete"
		if summary != nil {
			if s, ok := summary["status"].(string); ok && s == "skipped" {
				status = "skipped"
			}
		}
		run.summary.Components[c.name] = ComponentResult{Status: status, Summary: summary}
		cp.MarkComplete(c.name)
		if err := e.store.Save(cp); err != nil {
			return nil, fmt.Errorf("save checkpoint: %w", err)
		}
		e.componentDone(ctx, project.ID, c.name, status, nil)
	}

	run.summary.FinishedAt = time.Now().UTC()
	if err := writeJSONFile(filepath.Join(dir, "export.json"), run.summary); err != nil {
		return nil, err
	}
	return run.summary, nil
}

func (e *Exporter) componentDone(ctx context.Context, projectID int64, component, status string, err error) {
	if e.opts.Tracker != nil {
		e.opts.Tracker.ExportComponent(ctx, projectID, component, status, err)
	}
	if e.opts.Metrics != nil {
		e.opts.Metrics.ComponentsExported.Add(ctx, 1)
	}
}

// writeJSONFile writes v as indented JSON via temp-then-rename so a
// crash mid-write never leaves a truncated artifact.
func writeJSONFile(path string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(raw, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("publish %s: %w", filepath.Base(path), err)
	}
	return nil
}

// writeBytesFile writes a raw payload via temp-then-rename.
func writeBytesFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("publish %s: %w", filepath.Base(path), err)
	}
	return nil
}

// readJSONFile loads an artifact written by writeJSONFile.
func readJSONFile(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

// safeSlugPath maps a wiki slug onto a file path inside dir, refusing
// anything that would escape it.
func safeSlugPath(dir, slug, ext string) (string, error) {
	cleaned := filepath.Clean(slug)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("unsafe wiki slug %q", slug)
	}
	return filepath.Join(dir, cleaned+ext), nil
}
