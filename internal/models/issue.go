package models

import (
	"strings"

	"github.com/joescharf/pulse/internal/timeutil"
)

// IssueStatus represents the state of an issue.
type IssueStatus string

const (
	IssueOpen       IssueStatus = "Open"
	IssueInProgress IssueStatus = "In Progress"
	IssueResolved   IssueStatus = "Resolved"
	IssueClosed     IssueStatus = "Closed"
)

var issueStatuses = []IssueStatus{IssueOpen, IssueInProgress, IssueResolved, IssueClosed}

// ParseIssueStatus resolves s case-insensitively. Empty defaults to Open.
func ParseIssueStatus(s string) (IssueStatus, error) {
	if strings.TrimSpace(s) == "" {
		return IssueOpen, nil
	}
	return parseEnum("issue status", s, issueStatuses)
}

func (s IssueStatus) IsValid() bool { return isOneOf(s, issueStatuses) }

// IsOpen reports whether the issue still needs attention.
func (s IssueStatus) IsOpen() bool {
	return s != IssueResolved && s != IssueClosed
}

// Issue represents a reported problem on a project.
type Issue struct {
	ID        string          `json:"id"`
	ProjectID string          `json:"projectId"`
	Title     string          `json:"title"`
	Status    IssueStatus     `json:"status"`
	Priority  Priority        `json:"priority"`
	CreatedAt timeutil.Millis `json:"createdAt"`
}
