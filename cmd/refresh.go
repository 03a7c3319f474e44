package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joescharf/pulse/internal/output"
	"github.com/joescharf/pulse/internal/refresh"
)

var refreshWorkers int

var refreshCmd = &cobra.Command{
	Use:   "refresh [project]",
	Short: "Recompute health and record snapshots",
	Long: `Recompute health for one project or all of them and record a snapshot
of each result, so later runs and 'pulse health --history' can show how
scores moved.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			return refreshOneRun(args[0])
		}
		return refreshAllRun()
	},
}

func init() {
	refreshCmd.Flags().IntVarP(&refreshWorkers, "workers", "w", refresh.DefaultWorkers, "Projects scored concurrently")
	rootCmd.AddCommand(refreshCmd)
}

func refreshOneRun(name string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	sc, err := newScorer()
	if err != nil {
		return err
	}
	ctx := context.Background()

	p, err := resolveProject(ctx, s, name)
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would refresh project: %s", p.Name)
		return nil
	}

	a, err := refresh.Project(ctx, s, sc, p)
	if err != nil {
		return fmt.Errorf("refresh %s: %w", p.Name, err)
	}
	ui.Success("Refreshed %s: %s %s", output.Cyan(p.Name),
		output.HealthColor(a.Health.Score), output.HealthStatusColor(string(a.Health.Status)))
	return nil
}

func refreshAllRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	sc, err := newScorer()
	if err != nil {
		return err
	}
	ctx := context.Background()

	result, err := refresh.All(ctx, s, sc, refresh.Options{Workers: refreshWorkers, Persist: !dryRun})
	if err != nil {
		return err
	}
	if result.Total == 0 {
		ui.Info("No projects tracked.")
		return nil
	}

	for _, r := range result.Results {
		switch {
		case r.Error != "":
			ui.Warning("Failed to refresh %s: %s", r.Name, r.Error)
		case dryRun:
			ui.DryRunMsg("Would record %s: %d %s", r.Name, r.Score, r.Status)
		case r.Changed:
			ui.Success("%s: %d -> %s %s", output.Cyan(r.Name), r.PreviousScore,
				output.HealthColor(r.Score), output.HealthStatusColor(string(r.Status)))
		default:
			ui.VerboseLog("No change: %s (%d)", r.Name, r.Score)
		}
	}

	ui.Info("Refreshed %d of %d project(s); workspace %s %s",
		result.Refreshed, result.Total,
		output.HealthColor(result.Workspace.Score), output.HealthStatusColor(string(result.Workspace.Status)))
	return nil
}
