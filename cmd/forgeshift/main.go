// Command forgeshift drives a GitLab to GitHub migration end to end:
// discover an inventory, export project state, derive an action plan,
// apply it, and synthesize a statement of work. Each stage is a
// subcommand so runs can stop, be inspected, and resume between
// stages.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// version is stamped at build time via -ldflags.
var version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "forgeshift",
	Short:         "GitLab to GitHub migration engine",
	Long:          "forgeshift migrates GitLab groups and projects to GitHub:\ndiscover builds a budgeted inventory, export snapshots project state,\nplan derives an ordered action plan, apply executes it against the\ndestination, and sow renders a migration statement of work.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default forgeshift.yaml)")
}

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "interrupted")
		return 130
	}
	fmt.Fprintln(os.Stderr, "error:", err)
	return 1
}
