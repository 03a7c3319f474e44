package models

import (
	"strings"

	"github.com/joescharf/pulse/internal/timeutil"
)

// MilestoneStatus tracks whether a milestone was hit.
type MilestoneStatus string

const (
	MilestonePending  MilestoneStatus = "Pending"
	MilestoneAchieved MilestoneStatus = "Achieved"
	MilestoneMissed   MilestoneStatus = "Missed"
)

var milestoneStatuses = []MilestoneStatus{MilestonePending, MilestoneAchieved, MilestoneMissed}

// ParseMilestoneStatus resolves s case-insensitively. Empty defaults to Pending.
func ParseMilestoneStatus(s string) (MilestoneStatus, error) {
	if strings.TrimSpace(s) == "" {
		return MilestonePending, nil
	}
	return parseEnum("milestone status", s, milestoneStatuses)
}

func (s MilestoneStatus) IsValid() bool { return isOneOf(s, milestoneStatuses) }

// Milestone is a dated checkpoint on a project.
type Milestone struct {
	ID        string          `json:"id"`
	ProjectID string          `json:"projectId"`
	Title     string          `json:"title"`
	Status    MilestoneStatus `json:"status"`
	DueDate   timeutil.Millis `json:"dueDate"`
}
