package models

import "github.com/joescharf/pulse/internal/timeutil"

// Activity is one entry of a project's activity feed.
type Activity struct {
	ID        string          `json:"id"`
	ProjectID string          `json:"projectId"`
	Kind      string          `json:"kind"`
	Message   string          `json:"message"`
	CreatedAt timeutil.Millis `json:"createdAt"`
}

// HealthSnapshot records a computed project health at a point in time.
// Payload holds the full JSON-encoded result.
type HealthSnapshot struct {
	ID         string          `json:"id"`
	ProjectID  string          `json:"projectId"`
	Score      int             `json:"score"`
	Status     string          `json:"status"`
	Trend      string          `json:"trend"`
	Payload    []byte          `json:"-"`
	ComputedAt timeutil.Millis `json:"computedAt"`
}
