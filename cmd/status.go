package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joescharf/pulse/internal/health"
	"github.com/joescharf/pulse/internal/output"
	"github.com/joescharf/pulse/internal/refresh"
)

var statusAttention bool

var statusCmd = &cobra.Command{
	Use:   "status [project]",
	Short: "Show project health dashboard",
	Long: `Show a cross-project health overview or detailed health for one project.

Without arguments, shows a summary table of all tracked projects.
With a project name, shows the same detail as 'pulse health'.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			return healthRun(args[0])
		}
		return statusOverviewRun()
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusAttention, "attention", false, "Show only projects in warning, critical or stalemate")
	rootCmd.AddCommand(statusCmd)
}

func needsAttention(st health.Status) bool {
	return st == health.StatusWarning || st == health.StatusCritical || st == health.StatusStalemate
}

func statusOverviewRun() error {
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
	ctx := context.Background()

	result, err := refresh.All(ctx, s, sc, refresh.Options{})
	if err != nil {
		return err
	}
	if result.Total == 0 {
		ui.Info("No projects tracked. Use 'pulse import <file>' to get started.")
		return nil
	}

	table := ui.Table([]string{"Project", "Status", "Health", "", "Trend", "Spotlight", "Top factor"})
	for _, e := range result.Entries {
		h := cat.ProjectHealth(e.Assessment.Health)
		if statusAttention && !needsAttention(h.Status) {
			continue
		}
		top := "-"
		if len(h.Factors) > 0 {
			top = h.Factors[0].Label
		}
		table.Append([]string{
			output.Cyan(e.Project.Name),
			output.StatusColor(string(e.Project.Status)),
			output.HealthColor(h.Score),
			output.HealthStatusColor(cat.Status(h.Status)),
			output.TrendArrow(string(h.Trend)),
			fmt.Sprintf("%d", e.Assessment.Spotlight.Score),
			top,
		})
	}
	if err := table.Render(); err != nil {
		return err
	}

	for _, r := range result.Results {
		if r.Error != "" {
			ui.Warning("Failed to score %s: %s", r.Name, r.Error)
		}
	}
	return nil
}
