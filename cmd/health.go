package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joescharf/pulse/internal/health"
	"github.com/joescharf/pulse/internal/locale"
	"github.com/joescharf/pulse/internal/output"
	"github.com/joescharf/pulse/internal/refresh"
)

var (
	healthHistory int
	healthJSON    bool
	healthSave    bool
)

var healthCmd = &cobra.Command{
	Use:   "health <project>",
	Short: "Show a project's health score and its factors",
	Long: `Compute the health of one project and show the score, status, the
factors that moved it, and the recommended next steps.

With --history, also list previously recorded scores.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return healthRun(args[0])
	},
}

func init() {
	healthCmd.Flags().IntVar(&healthHistory, "history", 0, "Show the last N recorded scores")
	healthCmd.Flags().BoolVar(&healthJSON, "json", false, "Print the result as JSON")
	healthCmd.Flags().BoolVar(&healthSave, "save", false, "Record a snapshot of the result")
	rootCmd.AddCommand(healthCmd)
}

func healthRun(name string) error {
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

	p, err := resolveProject(ctx, s, name)
	if err != nil {
		return err
	}

	var a health.Assessment
	if healthSave && !dryRun {
		a, err = refresh.Project(ctx, s, sc, p)
	} else {
		if healthSave {
			ui.DryRunMsg("Would record a health snapshot for %s", p.Name)
		}
		a, err = refresh.Assess(ctx, s, sc, p)
	}
	if err != nil {
		return err
	}
	h := cat.ProjectHealth(a.Health)

	if healthJSON {
		enc := json.NewEncoder(ui.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(h)
	}

	printHealth(cat, p.Name, h)

	if healthHistory > 0 {
		snaps, err := s.ListHealthSnapshots(ctx, p.ID, healthHistory)
		if err != nil {
			return err
		}
		fmt.Fprintln(ui.Out)
		if len(snaps) == 0 {
			ui.Info("No recorded scores. Run 'pulse refresh' to record one.")
			return nil
		}
		table := ui.Table([]string{"Recorded", "Score", "Status", "Trend"})
		for _, snap := range snaps {
			table.Append([]string{
				formatDate(snap.ComputedAt) + " " + timeAgo(snap.ComputedAt),
				output.HealthColor(snap.Score),
				output.HealthStatusColor(cat.Status(health.Status(snap.Status))),
				output.TrendArrow(snap.Trend),
			})
		}
		return table.Render()
	}
	return nil
}

func printHealth(cat *locale.Catalog, name string, h health.ProjectHealth) {
	fmt.Fprintf(ui.Out, "%s  %s %s %s\n",
		output.Cyan(name),
		output.HealthColor(h.Score),
		output.HealthStatusColor(cat.Status(h.Status)),
		output.TrendArrow(string(h.Trend)),
	)

	if len(h.Factors) > 0 {
		fmt.Fprintln(ui.Out)
		for _, f := range h.Factors {
			fmt.Fprintf(ui.Out, "  %6s  %s: %s\n", output.Impact(f.Impact), f.Label, f.Description)
			ui.VerboseLog("%s %v", f.ID, f.Meta)
		}
	}
	if len(h.Recommendations) > 0 {
		fmt.Fprintln(ui.Out)
		for _, r := range h.Recommendations {
			fmt.Fprintf(ui.Out, "  - %s\n", r)
		}
	}
}
