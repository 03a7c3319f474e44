package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/pulse/internal/output"
	"github.com/joescharf/pulse/internal/refresh"
)

var spotlightCmd = &cobra.Command{
	Use:   "spotlight",
	Short: "Rank projects by how much attention they need",
	Long: `Rank projects by spotlight score, highest first. Overdue and due-today
work, blocked tasks, missed milestones and urgent issues push a project up;
projects not yet in execution sink to the bottom.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return spotlightRun(viper.GetInt("spotlight.limit"))
	},
}

func init() {
	spotlightCmd.Flags().IntP("limit", "l", 5, "Number of projects to show (0 for all)")
	_ = viper.BindPFlag("spotlight.limit", spotlightCmd.Flags().Lookup("limit"))
	rootCmd.AddCommand(spotlightCmd)
}

func spotlightRun(limit int) error {
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
	entries := result.Spotlight(limit)
	if len(entries) == 0 {
		ui.Info("No projects tracked. Use 'pulse import <file>' to get started.")
		return nil
	}

	table := ui.Table([]string{"#", "Project", "Score", "Reason"})
	for i, e := range entries {
		sp := cat.Spotlight(e.Spotlight)
		table.Append([]string{
			fmt.Sprintf("%d", i+1),
			output.Cyan(e.Project.Name),
			fmt.Sprintf("%d", sp.Score),
			sp.PrimaryReason.Text,
		})
		for _, r := range sp.Reasons {
			ui.VerboseLog("%s: %s (%+.0f)", e.Project.Name, r.Text, r.Weight)
		}
	}
	return table.Render()
}
