package models

import (
	"fmt"
	"strings"
)

// normalizeEnum folds case and drops separators so "On Hold", "on_hold" and
// "ON-HOLD" compare equal.
func normalizeEnum(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch r {
		case ' ', '_', '-':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func parseEnum[T ~string](kind, s string, values []T) (T, error) {
	n := normalizeEnum(s)
	for _, v := range values {
		if normalizeEnum(string(v)) == n {
			return v, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("unknown %s %q", kind, s)
}

func isOneOf[T ~string](v T, values []T) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

// Priority is shared by projects, tasks and issues.
type Priority string

const (
	PriorityUrgent Priority = "Urgent"
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

var priorities = []Priority{PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow}

// ParsePriority resolves s case-insensitively. An empty string is accepted as unset.
func ParsePriority(s string) (Priority, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	return parseEnum("priority", s, priorities)
}

func (p Priority) IsValid() bool { return isOneOf(p, priorities) }

// IsUrgentOrHigh reports whether p is one of the two top priorities.
func (p Priority) IsUrgentOrHigh() bool {
	return p == PriorityUrgent || p == PriorityHigh
}
