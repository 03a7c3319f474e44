package models

import (
	"strings"

	"github.com/joescharf/pulse/internal/timeutil"
)

// SprintStatus represents the state of a sprint.
type SprintStatus string

const (
	SprintPlanned   SprintStatus = "Planned"
	SprintActive    SprintStatus = "Active"
	SprintCompleted SprintStatus = "Completed"
)

var sprintStatuses = []SprintStatus{SprintPlanned, SprintActive, SprintCompleted}

// ParseSprintStatus resolves s case-insensitively. Empty defaults to Planned.
func ParseSprintStatus(s string) (SprintStatus, error) {
	if strings.TrimSpace(s) == "" {
		return SprintPlanned, nil
	}
	return parseEnum("sprint status", s, sprintStatuses)
}

func (s SprintStatus) IsValid() bool { return isOneOf(s, sprintStatuses) }

// Sprint is a time-boxed iteration.
type Sprint struct {
	ID        string          `json:"id"`
	ProjectID string          `json:"projectId"`
	Name      string          `json:"name"`
	Status    SprintStatus    `json:"status"`
	StartDate timeutil.Millis `json:"startDate"`
	EndDate   timeutil.Millis `json:"endDate"`
}
