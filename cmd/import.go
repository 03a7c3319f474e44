package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/joescharf/pulse/internal/importer"
)

var (
	importReplace bool
	importFormat  string
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Load projects from a YAML or JSON workspace file",
	Long: `Load projects with their tasks, milestones, issues, sprints and activity
from a workspace document. Use '-' to read from stdin.

Projects that already exist are skipped unless --replace is given, in
which case the stored project and everything attached to it is replaced.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return importRun(args[0])
	},
}

func init() {
	importCmd.Flags().BoolVar(&importReplace, "replace", false, "Replace projects that already exist")
	importCmd.Flags().StringVar(&importFormat, "format", "", "Input format: yaml or json (default: from extension)")
	rootCmd.AddCommand(importCmd)
}

// readDocument parses a workspace file, or stdin when path is "-".
func readDocument(path string) (*importer.Document, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	format := importer.Format(importFormat)
	if format == importer.FormatAuto {
		format = importer.FormatFromPath(path)
	}
	return importer.Parse(data, format)
}

func importRun(path string) error {
	doc, err := readDocument(path)
	if err != nil {
		return err
	}
	s, err := getStore()
	if err != nil {
		return err
	}

	res, err := importer.Import(context.Background(), s, doc, importer.Options{DryRun: dryRun, Replace: importReplace})
	if err != nil {
		return err
	}

	for _, name := range res.Skipped {
		ui.Warning("Skipped existing project %s (use --replace to overwrite)", name)
	}
	for _, name := range res.Replaced {
		ui.VerboseLog("Replaced %s", name)
	}
	summary := fmt.Sprintf("%d project(s), %d task(s), %d milestone(s), %d issue(s), %d sprint(s), %d activit(ies)",
		res.Projects, res.Tasks, res.Milestones, res.Issues, res.Sprints, res.Activities)
	if dryRun {
		ui.DryRunMsg("Would import %s", summary)
		return nil
	}
	ui.Success("Imported %s", summary)
	return nil
}
