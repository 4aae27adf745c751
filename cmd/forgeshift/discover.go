package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Strob0t/ForgeShift/internal/adapter/azureai"
	"github.com/Strob0t/ForgeShift/internal/adapter/ristretto"
	"github.com/Strob0t/ForgeShift/internal/forgehttp"
	"github.com/Strob0t/ForgeShift/internal/port/cache"
	"github.com/Strob0t/ForgeShift/internal/port/llm"
	"github.com/Strob0t/ForgeShift/internal/resilience"
	"github.com/Strob0t/ForgeShift/internal/service"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Crawl the source forge into a migration inventory",
	Long: `Discover walks the configured GitLab instance under a strict API call
budget and writes an inventory of groups and projects with migration
facts, complexity, and readiness. With --deep the top-ranked projects
are enriched further and given effort estimates.`,
	RunE: runDiscover,
}

func init() {
	f := discoverCmd.Flags()
	f.String("group", "", "root group path to crawl")
	f.String("project", "", "single project path to inspect")
	f.String("out", "", "inventory file (default <output_dir>/inventory.json)")
	f.Int("max-api-calls", 0, "override the API call budget")
	f.Bool("deep", false, "run deep analysis on the top-ranked projects")
	f.Int("top-n", 0, "how many projects deep analysis enriches")
	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	stringFlag(cmd, "group", &a.cfg.Run.RootGroup)
	stringFlag(cmd, "project", &a.cfg.Run.ProjectPath)
	intFlag(cmd, "max-api-calls", &a.cfg.Budget.MaxAPICalls)
	boolFlag(cmd, "deep", &a.cfg.Deep.Enabled)
	intFlag(cmd, "top-n", &a.cfg.Deep.TopN)
	if a.cfg.Run.RootGroup != "" && a.cfg.Run.ProjectPath != "" {
		return fmt.Errorf("--group and --project are mutually exclusive")
	}

	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		out = filepath.Join(a.cfg.Run.OutputDir, "inventory.json")
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}

	runID := uuid.NewString()
	tracker, stopStatus := a.tracking(runID)
	defer stopStatus(context.Background())

	budget := forgehttp.NewBudget(a.cfg.Budget.MaxAPICalls)
	src, err := a.sourceProvider(budget)
	if err != nil {
		return err
	}

	disc := service.NewDiscovery(src, budget, service.DiscoveryOptions{
		BaseURL:            a.cfg.GitLab.BaseURL,
		RootGroup:          a.cfg.Run.RootGroup,
		ProjectPath:        a.cfg.Run.ProjectPath,
		MaxAPICalls:        a.cfg.Budget.MaxAPICalls,
		MaxPerProjectCalls: a.cfg.Budget.MaxPerProjectCalls,
		Logger:             a.log,
		Tracker:            tracker,
		Metrics:            a.metrics,
	})

	tracker.StageStarted(ctx, "discovery")
	inv, err := disc.Run(ctx)
	tracker.StageFinished(ctx, "discovery", err)
	if err != nil {
		return err
	}

	if a.cfg.Deep.Enabled {
		c, err := a.analyzerCache()
		if err != nil {
			return err
		}
		defer func() { _ = c.Close() }()

		analyzer := service.NewAnalyzer(src, budget, service.AnalyzerOptions{
			TopN:    a.cfg.Deep.TopN,
			Workers: a.cfg.Deep.ParallelWorkers,
			Model:   a.model(),
			Cache:   c,
			Logger:  a.log,
			Tracker: tracker,
		})
		tracker.StageStarted(ctx, "analyze")
		err = analyzer.Analyze(ctx, inv)
		tracker.StageFinished(ctx, "analyze", err)
		if err != nil {
			return err
		}
	}

	if err := inv.WriteFile(out); err != nil {
		return err
	}
	if err := inv.Validate(); err != nil {
		return fmt.Errorf("inventory written to %s but failed validation: %w", out, err)
	}

	fmt.Printf("inventory: %s\n", out)
	fmt.Printf("groups: %d  projects: %d  errors: %d  api calls: %d\n",
		inv.Run.Stats.Groups, inv.Run.Stats.Projects, inv.Run.Stats.Errors, inv.Run.Stats.APICalls)
	if budget.Exhausted() {
		fmt.Println("api budget exhausted; inventory is partial")
	}
	return nil
}

// model returns the configured chat-completion client, nil when model
// assistance is disabled.
func (a *app) model() llm.Client {
	if !a.cfg.AI.Enabled {
		return nil
	}
	c := azureai.NewClient(a.cfg.AI.Endpoint, a.cfg.AI.APIKey, a.cfg.AI.Deployment)
	if a.cfg.AI.APIVersion != "" {
		c.SetAPIVersion(a.cfg.AI.APIVersion)
	}
	c.SetBreaker(resilience.NewBreaker(a.cfg.Breaker.MaxFailures, a.cfg.Breaker.Cooldown))
	return c
}

func (a *app) analyzerCache() (cache.Cache, error) {
	c, err := ristretto.New(a.cfg.Cache.MaxSizeMB << 20)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	return c, nil
}
