package main

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/Strob0t/ForgeShift/internal/port/source"
	"github.com/Strob0t/ForgeShift/internal/service"
	"github.com/Strob0t/ForgeShift/internal/transform"
)

var planCmd = &cobra.Command{
	Use:   "plan <export-dir>",
	Short: "Derive an action plan from an export",
	Long: `Plan reads one project's export directory
(<output_dir>/<project_id>/<run_id>) and derives the ordered action
plan that apply executes. Building a plan touches neither forge; all
conversions (CI, content, protections, submodules, webhooks) happen
here so the plan can be reviewed before anything is written.

User identities are mapped with --user-map (a JSON object of source
username to destination login) or matched against --dest-users (a JSON
list of destination accounts) using the export's member list.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlan,
}

func init() {
	f := planCmd.Flags()
	f.String("owner", "", "destination owner (default github.org)")
	f.String("repo", "", "destination repository name (default source project name)")
	f.String("user-map", "", "JSON file mapping source usernames to destination logins")
	f.String("dest-users", "", "JSON file listing destination accounts for fuzzy matching")
	f.String("source-registry", "", "container registry prefix to rewrite in CI")
	f.String("dest-registry", "", "container registry prefix to rewrite to")
	f.String("out", "", "plan file (default <export-dir>/plan.json)")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	exportDir := args[0]
	owner, _ := cmd.Flags().GetString("owner")
	if owner == "" {
		owner = a.cfg.GitHub.Org
	}
	if owner == "" {
		return fmt.Errorf("destination owner required (--owner or github.org)")
	}
	repo, _ := cmd.Flags().GetString("repo")

	userMap, err := buildUserMap(cmd, exportDir)
	if err != nil {
		return err
	}

	srcReg, _ := cmd.Flags().GetString("source-registry")
	dstReg, _ := cmd.Flags().GetString("dest-registry")

	builder := service.NewPlanBuilder(exportDir, service.PlanOptions{
		Owner:          owner,
		Repo:           repo,
		UserMap:        userMap,
		SourceRegistry: srcReg,
		DestRegistry:   dstReg,
		Logger:         a.log,
	})
	plan, err := builder.Build()
	if err != nil {
		return err
	}

	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		out = filepath.Join(exportDir, "plan.json")
	}
	if err := plan.WriteFile(out); err != nil {
		return err
	}

	fmt.Printf("plan: %s  actions: %d\n", out, len(plan))
	printTransformWarnings(builder.TransformResults())
	return nil
}

// buildUserMap resolves the source-to-destination identity map from
// the flags: an explicit map file wins; otherwise destination accounts
// are fuzzy-matched against the export's member list and the mapping
// is written next to the export for review.
func buildUserMap(cmd *cobra.Command, exportDir string) (map[string]string, error) {
	if path, _ := cmd.Flags().GetString("user-map"); path != "" {
		var m map[string]string
		if err := readJSON(path, &m); err != nil {
			return nil, fmt.Errorf("user map: %w", err)
		}
		return m, nil
	}

	path, _ := cmd.Flags().GetString("dest-users")
	if path == "" {
		return nil, nil
	}
	var dst []transform.DestUser
	if err := readJSON(path, &dst); err != nil {
		return nil, fmt.Errorf("dest users: %w", err)
	}

	var byLevel map[string][]string
	if err := readJSON(filepath.Join(exportDir, "settings", "members.json"), &byLevel); err != nil {
		return nil, fmt.Errorf("export members: %w", err)
	}
	seen := map[string]bool{}
	var src []source.User
	for _, names := range byLevel {
		for _, name := range names {
			if seen[name] {
				continue
			}
			seen[name] = true
			src = append(src, source.User{Username: name})
		}
	}
	sort.Slice(src, func(i, j int) bool { return src[i].Username < src[j].Username })

	res := transform.Users(src, dst)
	mapping, ok := res.Data.(transform.UserMapping)
	if !ok {
		return nil, fmt.Errorf("user matching produced no mapping")
	}
	if err := writeJSON(filepath.Join(exportDir, "usermap.json"), mapping); err != nil {
		return nil, err
	}
	for _, w := range res.Warnings {
		fmt.Println("user matching:", w)
	}
	return mapping.ToMap(), nil
}

func printTransformWarnings(results map[string]transform.Result) {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, e := range results[name].Errors {
			fmt.Printf("%s: error: %s\n", name, e)
		}
		for _, w := range results[name].Warnings {
			fmt.Printf("%s: warning: %s\n", name, w)
		}
	}
}
