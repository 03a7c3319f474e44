package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joescharf/pulse/internal/models"
	"github.com/joescharf/pulse/internal/output"
	"github.com/joescharf/pulse/internal/store"
	"github.com/joescharf/pulse/internal/timeutil"
)

var projectStatus string

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Inspect tracked projects",
	Long:  "List, show, and remove projects loaded with 'pulse import'.",
}

var projectListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tracked projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectListRun()
	},
}

var projectShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show detailed project information",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectShowRun(args[0])
	},
}

var projectRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Remove a project and everything attached to it",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectRemoveRun(args[0])
	},
}

var projectSetStatusCmd = &cobra.Command{
	Use:   "set-status <name> <status>",
	Short: "Change a project's status",
	Long: `Change a project's status, e.g. to put it On Hold or mark it Completed.
The change counts as activity on the project.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectSetStatusRun(args[0], args[1])
	},
}

func init() {
	projectListCmd.Flags().StringVar(&projectStatus, "status", "", "Filter by project status")

	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectShowCmd)
	projectCmd.AddCommand(projectRemoveCmd)
	projectCmd.AddCommand(projectSetStatusCmd)
	rootCmd.AddCommand(projectCmd)
}

func projectListRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	var status models.ProjectStatus
	if projectStatus != "" {
		if status, err = models.ParseProjectStatus(projectStatus); err != nil {
			return err
		}
	}
	projects, err := s.ListProjects(ctx, status)
	if err != nil {
		return err
	}

	if len(projects) == 0 {
		ui.Info("No projects tracked. Use 'pulse import <file>' to get started.")
		return nil
	}

	table := ui.Table([]string{"Name", "Status", "Priority", "Due", "Progress", "Updated"})
	for _, p := range projects {
		progress := "-"
		if p.Progress != nil {
			progress = fmt.Sprintf("%.0f%%", *p.Progress)
		}
		table.Append([]string{
			output.Cyan(p.Name),
			output.StatusColor(string(p.Status)),
			string(p.Priority),
			formatDate(p.DueDate),
			progress,
			timeAgo(p.UpdatedAt),
		})
	}
	return table.Render()
}

func projectShowRun(name string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	p, err := resolveProject(ctx, s, name)
	if err != nil {
		return err
	}

	fmt.Fprintf(ui.Out, "%s\n", output.Cyan(p.Name))
	if p.Description != "" {
		fmt.Fprintf(ui.Out, "  Desc:       %s\n", p.Description)
	}
	fmt.Fprintf(ui.Out, "  Status:     %s\n", output.StatusColor(string(p.Status)))
	if p.Priority != "" {
		fmt.Fprintf(ui.Out, "  Priority:   %s\n", p.Priority)
	}
	if !p.StartDate.IsZero() {
		fmt.Fprintf(ui.Out, "  Started:    %s\n", formatDate(p.StartDate))
	}
	if !p.DueDate.IsZero() {
		fmt.Fprintf(ui.Out, "  Due:        %s\n", formatDate(p.DueDate))
	}
	if p.Progress != nil {
		fmt.Fprintf(ui.Out, "  Progress:   %.0f%%\n", *p.Progress)
	}
	fmt.Fprintf(ui.Out, "  Updated:    %s\n", timeAgo(p.UpdatedAt))
	fmt.Fprintln(ui.Out)

	tasks, err := s.ListTasks(ctx, p.ID)
	if err != nil {
		return err
	}
	done, blocked := 0, 0
	for _, t := range tasks {
		if t.IsCompleted {
			done++
		}
		if t.Status == models.TaskBlocked {
			blocked++
		}
	}
	fmt.Fprintf(ui.Out, "  Tasks:      %d total, %d done, %d blocked\n", len(tasks), done, blocked)

	if ms, err := s.ListMilestones(ctx, p.ID); err == nil && len(ms) > 0 {
		fmt.Fprintf(ui.Out, "  Milestones: %d\n", len(ms))
	}
	if issues, err := s.ListIssues(ctx, p.ID); err == nil && len(issues) > 0 {
		open := 0
		for _, i := range issues {
			if i.Status.IsOpen() {
				open++
			}
		}
		fmt.Fprintf(ui.Out, "  Issues:     %d open of %d\n", open, len(issues))
	}
	if sprints, err := s.ListSprints(ctx, p.ID); err == nil && len(sprints) > 0 {
		fmt.Fprintf(ui.Out, "  Sprints:    %d\n", len(sprints))
	}

	if snaps, err := s.ListHealthSnapshots(ctx, p.ID, 1); err == nil && len(snaps) > 0 {
		last := snaps[0]
		fmt.Fprintf(ui.Out, "  Last score: %s %s (%s)\n",
			output.HealthColor(last.Score), output.HealthStatusColor(last.Status), timeAgo(last.ComputedAt))
	}
	return nil
}

func projectRemoveRun(name string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	p, err := resolveProject(ctx, s, name)
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would remove project: %s", p.Name)
		return nil
	}
	if err := s.DeleteProject(ctx, p.ID); err != nil {
		return err
	}
	ui.Success("Removed project: %s", output.Cyan(p.Name))
	return nil
}

func projectSetStatusRun(name, rawStatus string) error {
	status, err := models.ParseProjectStatus(rawStatus)
	if err != nil {
		return err
	}
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	p, err := resolveProject(ctx, s, name)
	if err != nil {
		return err
	}
	if p.Status == status {
		ui.Info("%s is already %s", p.Name, status)
		return nil
	}
	if dryRun {
		ui.DryRunMsg("Would change %s: %s -> %s", p.Name, p.Status, status)
		return nil
	}

	prev := p.Status
	p.Status = status
	p.UpdatedAt = timeutil.FromTime(nowFunc())
	if err := s.UpdateProject(ctx, p); err != nil {
		return err
	}
	ui.Success("%s: %s -> %s", output.Cyan(p.Name), output.StatusColor(string(prev)), output.StatusColor(string(status)))
	return nil
}

// resolveProject finds a project by name or ID.
func resolveProject(ctx context.Context, s store.Store, nameOrID string) (*models.Project, error) {
	if p, err := s.GetProjectByName(ctx, nameOrID); err == nil {
		return p, nil
	}
	if p, err := s.GetProject(ctx, nameOrID); err == nil {
		return p, nil
	}
	return nil, fmt.Errorf("project not found: %s", nameOrID)
}

// timeAgo returns a human-readable duration between m and the scoring clock.
func timeAgo(m timeutil.Millis) string {
	if m.IsZero() {
		return "n/a"
	}
	d := nowFunc().Sub(m.Time())
	switch {
	case d < 0:
		return "in the future"
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "1d ago"
		}
		return fmt.Sprintf("%dd ago", days)
	}
}

// formatDate renders a calendar date, or "-" when unset.
func formatDate(m timeutil.Millis) string {
	if m.IsZero() {
		return "-"
	}
	return m.Time().Format("2006-01-02")
}
