package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joescharf/pulse/internal/health"
)

var scoreJSON bool

var scoreCmd = &cobra.Command{
	Use:   "score <file>",
	Short: "Score a workspace file without importing it",
	Long: `Parse a workspace document and print each project's health and spotlight
score. Nothing is written to the database. Use '-' to read from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return scoreRun(args[0])
	},
}

func init() {
	scoreCmd.Flags().BoolVar(&scoreJSON, "json", false, "Print the results as JSON")
	scoreCmd.Flags().StringVar(&importFormat, "format", "", "Input format: yaml or json (default: from extension)")
	rootCmd.AddCommand(scoreCmd)
}

type scoredProject struct {
	Name       string            `json:"name"`
	Assessment health.Assessment `json:"assessment"`
}

func scoreRun(path string) error {
	doc, err := readDocument(path)
	if err != nil {
		return err
	}
	if err := doc.Validate(); err != nil {
		return fmt.Errorf("invalid document: %w", err)
	}
	sc, err := newScorer()
	if err != nil {
		return err
	}
	cat, err := loadCatalog()
	if err != nil {
		return err
	}

	out := make([]scoredProject, 0, len(doc.Projects))
	for _, pd := range doc.Projects {
		in, err := pd.Build()
		if err != nil {
			return fmt.Errorf("%s: %w", pd.Name, err)
		}
		a := sc.Assess(in)
		a.Health = cat.ProjectHealth(a.Health)
		a.Spotlight = cat.Spotlight(a.Spotlight)
		out = append(out, scoredProject{Name: pd.Name, Assessment: a})
	}

	if scoreJSON {
		enc := json.NewEncoder(ui.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	for i, sp := range out {
		if i > 0 {
			fmt.Fprintln(ui.Out)
		}
		printHealth(cat, sp.Name, sp.Assessment.Health)
	}
	return nil
}
