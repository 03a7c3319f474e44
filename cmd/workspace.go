package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joescharf/pulse/internal/output"
	"github.com/joescharf/pulse/internal/refresh"
)

var workspaceJSON bool

var workspaceCmd = &cobra.Command{
	Use:   "workspace",
	Short: "Show the rolled-up workspace health",
	Long: `Score every project and combine the results into one workspace score.
Critical and warning projects weigh more than healthy ones, and urgent
projects weigh more again.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return workspaceRun()
	},
}

func init() {
	workspaceCmd.Flags().BoolVar(&workspaceJSON, "json", false, "Print the result as JSON")
	rootCmd.AddCommand(workspaceCmd)
}

func workspaceRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	sc, err := newScorer()
	if err != nil {
		return err
	}
	cat, err := loadCatalog()
	if err != nil {
		return err
	}

	result, err := refresh.All(context.Background(), s, sc, refresh.Options{})
	if err != nil {
		return err
	}
	w := result.Workspace

	if workspaceJSON {
		enc := json.NewEncoder(ui.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(w)
	}

	if result.Total == 0 {
		ui.Info("No projects tracked. Use 'pulse import <file>' to get started.")
		return nil
	}

	fmt.Fprintf(ui.Out, "Workspace  %s %s %s\n",
		output.HealthColor(w.Score),
		output.HealthStatusColor(cat.Status(w.Status)),
		output.TrendArrow(string(w.Trend)),
	)
	b := w.Breakdown
	fmt.Fprintf(ui.Out, "  %d projects: %s excellent, %s healthy, %d normal, %s warning, %s critical\n",
		b.Total,
		output.Green(fmt.Sprint(b.Excellent)),
		output.Green(fmt.Sprint(b.Healthy)),
		b.Normal,
		output.Yellow(fmt.Sprint(b.Warning)),
		output.Red(fmt.Sprint(b.Critical)),
	)
	if result.Failed > 0 {
		ui.Warning("%d project(s) could not be scored", result.Failed)
	}

	top := result.Spotlight(3)
	if len(top) > 0 {
		fmt.Fprintln(ui.Out)
		fmt.Fprintln(ui.Out, "Needs attention:")
		for _, e := range top {
			sp := cat.Spotlight(e.Spotlight)
			fmt.Fprintf(ui.Out, "  %s  %s\n", output.Cyan(e.Project.Name), sp.PrimaryReason.Text)
		}
	}
	return nil
}
