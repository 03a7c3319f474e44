package models

import (
	"strings"

	"github.com/joescharf/pulse/internal/timeutil"
)

// ProjectStatus is the lifecycle stage of a project.
type ProjectStatus string

const (
	ProjectActive        ProjectStatus = "Active"
	ProjectBrainstorming ProjectStatus = "Brainstorming"
	ProjectPlanning      ProjectStatus = "Planning"
	ProjectOnHold        ProjectStatus = "On Hold"
	ProjectCompleted     ProjectStatus = "Completed"
	ProjectArchived      ProjectStatus = "Archived"
)

var projectStatuses = []ProjectStatus{
	ProjectActive, ProjectBrainstorming, ProjectPlanning, ProjectOnHold, ProjectCompleted, ProjectArchived,
}

// ParseProjectStatus resolves s case-insensitively. Empty defaults to Active.
func ParseProjectStatus(s string) (ProjectStatus, error) {
	if strings.TrimSpace(s) == "" {
		return ProjectActive, nil
	}
	return parseEnum("project status", s, projectStatuses)
}

func (s ProjectStatus) IsValid() bool { return isOneOf(s, projectStatuses) }

// IsPreExecution reports whether the project is still being shaped
// (brainstorming or planning) rather than executed.
func (s ProjectStatus) IsPreExecution() bool {
	return s == ProjectBrainstorming || s == ProjectPlanning
}

// Project is a tracked project within a workspace.
type Project struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Status      ProjectStatus   `json:"status"`
	Priority    Priority        `json:"priority"`
	DueDate     timeutil.Millis `json:"dueDate"`
	StartDate   timeutil.Millis `json:"startDate"`
	Progress    *float64        `json:"progress,omitempty"` // 0-100, nil when not tracked manually
	CreatedAt   timeutil.Millis `json:"createdAt"`
	UpdatedAt   timeutil.Millis `json:"updatedAt"`
}
