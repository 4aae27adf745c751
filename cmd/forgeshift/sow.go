package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Strob0t/ForgeShift/internal/domain/inventory"
	"github.com/Strob0t/ForgeShift/internal/service"
)

var sowCmd = &cobra.Command{
	Use:   "sow",
	Short: "Render a statement of work from an inventory",
	Long: `Sow aggregates an inventory into migration metrics and renders a
Markdown statement of work: scope, effort figures, risks, blockers,
and the per-project table. When model assistance is configured the
narrative sections are drafted from the aggregated figures; every
number in the document comes from the inventory, never the model.`,
	RunE: runSOW,
}

func init() {
	f := sowCmd.Flags()
	f.String("inventory", "", "inventory file (default <output_dir>/inventory.json)")
	f.String("out", "", "output file (default <output_dir>/sow.md)")
	rootCmd.AddCommand(sowCmd)
}

func runSOW(cmd *cobra.Command, _ []string) error {
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

	synth := service.NewSynthesizer(service.SOWOptions{
		Model:  a.model(),
		Logger: a.log,
	})
	doc, err := synth.Synthesize(ctx, inv)
	if err != nil {
		return err
	}

	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		out = filepath.Join(a.cfg.Run.OutputDir, "sow.md")
	}
	if err := os.WriteFile(out, []byte(doc), 0o644); err != nil {
		return err
	}
	fmt.Printf("sow: %s\n", out)
	return nil
}
