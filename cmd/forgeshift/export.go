package main

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Strob0t/ForgeShift/internal/domain/inventory"
	"github.com/Strob0t/ForgeShift/internal/service"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export project state into the artifact tree",
	Long: `Export snapshots every inventoried project into
<output_dir>/<project_id>/<run_id>/, one directory per component:
repository, CI, issues, merge requests, wiki, releases, packages, and
settings. Each component is checkpointed, so re-running with the same
--run-id resumes where the previous run stopped.`,
	RunE: runExport,
}

func init() {
	f := exportCmd.Flags()
	f.String("inventory", "", "inventory file (default <output_dir>/inventory.json)")
	f.String("project", "", "export only this project path")
	f.String("run-id", "", "resume an earlier export run")
	f.Int("workers", 0, "parallel project exports")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	invPath, _ := cmd.Flags().GetString("inventory")
	if invPath == "" {
		invPath = defaultInventoryPath(a)
	}
	inv, err := inventory.ReadFile(invPath)
	if err != nil {
		return err
	}

	filter, _ := cmd.Flags().GetString("project")
	paths := make([]string, 0, len(inv.Projects))
	for _, p := range inv.Projects {
		if filter == "" || p.PathWithNamespace == filter {
			paths = append(paths, p.PathWithNamespace)
		}
	}
	if len(paths) == 0 {
		return fmt.Errorf("no matching projects in %s", invPath)
	}

	runID, _ := cmd.Flags().GetString("run-id")
	if runID == "" {
		runID = uuid.NewString()
	}
	workers, _ := cmd.Flags().GetInt("workers")
	if workers <= 0 {
		workers = a.cfg.Deep.ParallelWorkers
	}

	tracker, stopStatus := a.tracking(runID)
	defer stopStatus(context.Background())

	src, err := a.sourceProvider(nil)
	if err != nil {
		return err
	}
	exporter := service.NewExporter(src, service.ExportOptions{
		OutputDir: a.cfg.Run.OutputDir,
		RunID:     runID,
		Logger:    a.log,
		Tracker:   tracker,
		Metrics:   a.metrics,
	})

	tracker.StageStarted(ctx, "export")

	var mu sync.Mutex
	var failed []string

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, path := range paths {
		g.Go(func() error {
			project, err := src.GetProject(gctx, path)
			if err != nil {
				return fmt.Errorf("resolve %s: %w", path, err)
			}
			summary, err := exporter.ExportProject(gctx, project)
			if err != nil {
				return fmt.Errorf("export %s: %w", path, err)
			}
			if summary.Failed() {
				mu.Lock()
				failed = append(failed, path)
				mu.Unlock()
			}
			fmt.Printf("exported %s -> %s/%d/%s\n", path, a.cfg.Run.OutputDir, project.ID, runID)
			return nil
		})
	}
	err = g.Wait()
	tracker.StageFinished(ctx, "export", err)
	if err != nil {
		return err
	}

	fmt.Printf("run id: %s  projects: %d\n", runID, len(paths))
	if len(failed) > 0 {
		return fmt.Errorf("%d project(s) had failed components: %v", len(failed), failed)
	}
	return nil
}

func defaultInventoryPath(a *app) string {
	return filepath.Join(a.cfg.Run.OutputDir, "inventory.json")
}
