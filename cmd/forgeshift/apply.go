package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Strob0t/ForgeShift/internal/actions"
	"github.com/Strob0t/ForgeShift/internal/domain/action"
	"github.com/Strob0t/ForgeShift/internal/git"
	"github.com/Strob0t/ForgeShift/internal/service"
)

var applyCmd = &cobra.Command{
	Use:   "apply <plan.json>",
	Short: "Execute an action plan against the destination forge",
	Long: `Apply executes a reviewed plan in order against GitHub. Every
action is idempotency-keyed, so re-running a plan skips what already
succeeded. --dry-run simulates each action and reports what it would
do without writing anything.`,
	Args: cobra.ExactArgs(1),
	RunE: runApply,
}

func init() {
	f := applyCmd.Flags()
	f.String("owner", "", "destination owner (default github.org)")
	f.String("repo", "", "destination repository name")
	f.Bool("dry-run", false, "simulate without writing to the destination")
	f.Bool("continue-on-error", false, "keep going after a failed action")
	f.Bool("rollback-on-failure", false, "roll back executed actions when the run aborts")
	f.Int("max-retries", 0, "retry attempts per action")
	f.String("report", "", "report file (default next to the plan)")
	_ = applyCmd.MarkFlagRequired("repo")
	rootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	planPath := args[0]
	plan, err := action.ReadPlan(planPath)
	if err != nil {
		return err
	}

	owner, _ := cmd.Flags().GetString("owner")
	if owner == "" {
		owner = a.cfg.GitHub.Org
	}
	if owner == "" {
		return fmt.Errorf("destination owner required (--owner or github.org)")
	}
	repo, _ := cmd.Flags().GetString("repo")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	continueOnError, _ := cmd.Flags().GetBool("continue-on-error")
	rollback, _ := cmd.Flags().GetBool("rollback-on-failure")
	maxRetries, _ := cmd.Flags().GetInt("max-retries")

	dst, err := a.destProvider()
	if err != nil {
		return err
	}
	vault, err := a.vault()
	if err != nil {
		return err
	}
	// The source token is needed to mirror-clone private repositories
	// during repo_push; prompting here keeps apply non-interactive
	// once it starts writing.
	if !dryRun {
		if _, err := a.requireToken(&a.cfg.GitLab.Token, "GitLab token: "); err != nil {
			return err
		}
	}

	tracker, stopStatus := a.tracking(uuid.NewString())
	defer stopStatus(context.Background())

	deps := actions.Deps{
		Dest:      dst,
		Git:       git.NewRunner(git.NewPool(a.cfg.Git.MaxConcurrent), a.log),
		Vault:     vault,
		Log:       a.log,
		PushURL:   a.githubPushURL(),
		SourceURL: a.gitlabSourceURL(),
	}
	applier := service.NewApplier(deps, service.ApplyOptions{
		Owner:             owner,
		Repo:              repo,
		DryRun:            dryRun,
		ContinueOnError:   continueOnError,
		RollbackOnFailure: rollback,
		MaxRetries:        maxRetries,
		Logger:            a.log,
		Tracker:           tracker,
		Metrics:           a.metrics,
	})

	tracker.StageStarted(ctx, "apply")
	report, err := applier.Apply(ctx, plan)
	tracker.StageFinished(ctx, "apply", err)
	if report != nil {
		reportPath, _ := cmd.Flags().GetString("report")
		if reportPath == "" {
			suffix := "apply-report.json"
			if dryRun {
				suffix = "dry-run-report.json"
			}
			reportPath = filepath.Join(filepath.Dir(planPath), suffix)
		}
		if werr := report.WriteFile(reportPath); werr != nil {
			a.log.Error("write report", "path", reportPath, "error", werr)
		} else {
			fmt.Printf("report: %s\n", reportPath)
		}
		fmt.Printf("actions: %d  succeeded: %d  failed: %d\n", len(plan), report.Succeeded, report.Failed)
		if report.Aborted {
			fmt.Println("run aborted before completing the plan")
		}
		for _, rb := range report.Rollbacks {
			status := "rolled back"
			if !rb.RolledBack {
				status = "rollback failed: " + rb.Error
			}
			fmt.Printf("  %s (%s): %s\n", rb.ActionID, rb.ActionType, status)
		}
	}
	if err != nil {
		return err
	}
	if report.Failed > 0 {
		return fmt.Errorf("%d action(s) failed", report.Failed)
	}
	return nil
}
