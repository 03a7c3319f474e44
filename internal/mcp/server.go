package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/pulse/internal/health"
	"github.com/joescharf/pulse/internal/locale"
	"github.com/joescharf/pulse/internal/models"
	"github.com/joescharf/pulse/internal/refresh"
	"github.com/joescharf/pulse/internal/store"
)

const defaultSpotlightLimit = 5

// Server exposes pulse health data as MCP tools.
type Server struct {
	store   store.Store
	scorer  *health.Scorer
	catalog *locale.Catalog
	version string
}

// NewServer creates the MCP server wrapper. A nil scorer uses the wall
// clock; a nil catalog leaves the engine's English texts in place.
func NewServer(s store.Store, sc *health.Scorer, cat *locale.Catalog, version string) *Server {
	if sc == nil {
		sc = health.NewScorer()
	}
	if version == "" {
		version = "dev"
	}
	return &Server{store: s, scorer: sc, catalog: cat, version: version}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("pulse", s.version, server.WithToolCapabilities(true))

	srv.AddTool(s.listProjectsTool())
	srv.AddTool(s.projectHealthTool())
	srv.AddTool(s.spotlightTool())
	srv.AddTool(s.workspaceHealthTool())
	srv.AddTool(s.refreshTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	stdioServer := server.NewStdioServer(s.MCPServer())
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// pulse_list_projects
func (s *Server) listProjectsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("pulse_list_projects",
		mcp.WithDescription("List tracked projects with id, name, status, priority, due date and progress."),
		mcp.WithString("status", mcp.Description("Filter by project status, e.g. Active or On Hold")),
	)
	return tool, s.handleListProjects
}

func (s *Server) handleListProjects(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var status models.ProjectStatus
	if raw := request.GetString("status", ""); raw != "" {
		var err error
		if status, err = models.ParseProjectStatus(raw); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	projects, err := s.store.ListProjects(ctx, status)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list projects: %v", err)), nil
	}
	if projects == nil {
		projects = []*models.Project{}
	}
	return jsonResult(projects)
}

// pulse_project_health
func (s *Server) projectHealthTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("pulse_project_health",
		mcp.WithDescription("Compute a project's health score, status, contributing factors and recommendations, plus its spotlight ranking. Resolves the project by name or id."),
		mcp.WithString("project", mcp.Required(), mcp.Description("Project name or id")),
	)
	return tool, s.handleProjectHealth
}

func (s *Server) handleProjectHealth(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: project"), nil
	}
	p, err := s.resolveProject(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	a, err := refresh.Assess(ctx, s.store, s.scorer, p)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to score %s: %v", p.Name, err)), nil
	}
	return jsonResult(map[string]any{
		"project":   p.Name,
		"health":    s.catalog.ProjectHealth(a.Health),
		"spotlight": s.catalog.Spotlight(a.Spotlight),
	})
}

// pulse_spotlight
func (s *Server) spotlightTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("pulse_spotlight",
		mcp.WithDescription("Rank projects by how much attention they need right now, highest first, with the primary reason for each."),
		mcp.WithNumber("limit", mcp.Description("Maximum entries to return (default 5, 0 for all)")),
	)
	return tool, s.handleSpotlight
}

func (s *Server) handleSpotlight(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := request.GetInt("limit", defaultSpotlightLimit)
	if limit < 0 {
		return mcp.NewToolResultError("limit must not be negative"), nil
	}
	result, err := refresh.All(ctx, s.store, s.scorer, refresh.Options{})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to score projects: %v", err)), nil
	}

	type spotlightOut struct {
		Project string                   `json:"project"`
		Score   int                      `json:"score"`
		Reason  string                   `json:"reason"`
		Reasons []health.SpotlightReason `json:"reasons"`
	}
	entries := result.Spotlight(limit)
	out := make([]spotlightOut, 0, len(entries))
	for _, e := range entries {
		sp := s.catalog.Spotlight(e.Spotlight)
		out = append(out, spotlightOut{
			Project: e.Project.Name,
			Score:   sp.Score,
			Reason:  sp.PrimaryReason.Text,
			Reasons: sp.Reasons,
		})
	}
	return jsonResult(out)
}

// pulse_workspace_health
func (s *Server) workspaceHealthTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("pulse_workspace_health",
		mcp.WithDescription("Roll every project's health up into a weighted workspace score with a status breakdown and trend."),
	)
	return tool, s.handleWorkspaceHealth
}

func (s *Server) handleWorkspaceHealth(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := refresh.All(ctx, s.store, s.scorer, refresh.Options{})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to score projects: %v", err)), nil
	}

	type projectOut struct {
		Name   string        `json:"name"`
		Score  int           `json:"score"`
		Status health.Status `json:"status"`
	}
	projects := make([]projectOut, 0, len(result.Entries))
	for _, e := range result.Entries {
		projects = append(projects, projectOut{
			Name:   e.Project.Name,
			Score:  e.Assessment.Health.Score,
			Status: e.Assessment.Health.Status,
		})
	}
	return jsonResult(map[string]any{
		"workspace": result.Workspace,
		"projects":  projects,
		"failed":    result.Failed,
	})
}

// pulse_refresh
func (s *Server) refreshTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("pulse_refresh",
		mcp.WithDescription("Recompute health for every project and record a snapshot of each result."),
	)
	return tool, s.handleRefresh
}

func (s *Server) handleRefresh(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := refresh.All(ctx, s.store, s.scorer, refresh.Options{Persist: true})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("refresh failed: %v", err)), nil
	}
	return jsonResult(result)
}

// resolveProject tries to find a project by name first, then by ID.
func (s *Server) resolveProject(ctx context.Context, name string) (*models.Project, error) {
	if p, err := s.store.GetProjectByName(ctx, name); err == nil {
		return p, nil
	}
	if p, err := s.store.GetProject(ctx, name); err == nil {
		return p, nil
	}
	return nil, fmt.Errorf("project not found: %s", name)
}
