package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/joescharf/pulse/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server",
	Long: `Start an MCP (Model Context Protocol) server on stdio so MCP clients can
query project and workspace health. Configure a client with:

  {
    "mcpServers": {
      "pulse": { "command": "pulse", "args": ["mcp"] }
    }
  }

Available tools: pulse_list_projects, pulse_project_health,
pulse_spotlight, pulse_workspace_health, pulse_refresh`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
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
		return mcp.NewServer(s, sc, cat, buildVersion).ServeStdio(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
