package health

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/joescharf/pulse/internal/timeutil"
)

// FactorType is the polarity of a factor's contribution.
type FactorType string

const (
	FactorPositive FactorType = "positive"
	FactorNegative FactorType = "negative"
	FactorNeutral  FactorType = "neutral"
)

// Meta carries the parameters (counts, days, percentages) a consumer needs to
// fill {token} placeholders in a localized template.
type Meta map[string]any

// HealthFactor is one named, signed contribution to a project's score.
type HealthFactor struct {
	ID          string     `json:"id"`
	Label       string     `json:"label"`
	Description string     `json:"description"`
	Impact      int        `json:"impact"`
	Type        FactorType `json:"type"`
	Meta        Meta       `json:"meta,omitempty"`
}

// Status is the categorical health of a project or workspace.
type Status string

const (
	StatusExcellent Status = "excellent"
	StatusHealthy   Status = "healthy"
	StatusNormal    Status = "normal"
	StatusWarning   Status = "warning"
	StatusCritical  Status = "critical"
	StatusStalemate Status = "stalemate"
)

// Trend is the short-term direction of a health score.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"
)

// ClassifyScore maps a 0-100 score onto a status.
func ClassifyScore(score int) Status {
	switch {
	case score >= 90:
		return StatusExcellent
	case score >= 75:
		return StatusHealthy
	case score >= 50:
		return StatusNormal
	case score >= 30:
		return StatusWarning
	default:
		return StatusCritical
	}
}

// ProjectHealth is the computed health of a single project.
type ProjectHealth struct {
	Score              int             `json:"score"`
	Status             Status          `json:"status"`
	Factors            []HealthFactor  `json:"factors"`
	Recommendations    []string        `json:"recommendations"`
	RecommendationKeys []string        `json:"recommendationKeys"`
	Trend              Trend           `json:"trend"`
	LastUpdated        timeutil.Millis `json:"lastUpdated"`
}

// HasFactor reports whether a factor with the given id was emitted.
func (h *ProjectHealth) HasFactor(id string) bool {
	for _, f := range h.Factors {
		if f.ID == id {
			return true
		}
	}
	return false
}

// SpotlightReason is one weighted reason a project deserves attention.
type SpotlightReason struct {
	Key    string  `json:"key"`
	Text   string  `json:"text"`
	Weight float64 `json:"weight"`
	Meta   Meta    `json:"meta,omitempty"`
}

// SpotlightCounts exposes the raw task tallies behind a spotlight score.
// DueThisWeek is tallied but not scored.
type SpotlightCounts struct {
	OverdueTasks    int `json:"overdueTasks"`
	OverdueCritical int `json:"overdueCritical"`
	Blocked         int `json:"blocked"`
	DueToday        int `json:"dueToday"`
	DueSoon         int `json:"dueSoon"`
	DueThisWeek     int `json:"dueThisWeek"`
}

// SpotlightScore is an unbounded ranking value; it is not comparable to a
// health score.
type SpotlightScore struct {
	Score         float64           `json:"score"`
	Reasons       []SpotlightReason `json:"reasons"`
	PrimaryReason SpotlightReason   `json:"primaryReason"`
	Counts        SpotlightCounts   `json:"counts"`

	// Reason and ReasonKey duplicate PrimaryReason for older consumers.
	Reason    string `json:"reason"`
	ReasonKey string `json:"reasonKey"`
}

// Breakdown counts projects per health bucket. Stalemate projects are
// counted as normal.
type Breakdown struct {
	Excellent int `json:"excellent"`
	Healthy   int `json:"healthy"`
	Normal    int `json:"normal"`
	Warning   int `json:"warning"`
	Critical  int `json:"critical"`
	Total     int `json:"total"`
}

// WorkspaceHealth is the weighted rollup of all project health in a workspace.
type WorkspaceHealth struct {
	Score     int       `json:"score"`
	Status    Status    `json:"status"`
	Breakdown Breakdown `json:"breakdown"`
	Trend     Trend     `json:"trend"`
}

type factorText struct {
	Label       string
	Description string
}

// English fallbacks, keyed by factor id. Consumers localize by the same key.
var factorTexts = map[string]factorText{
	"deadline_overdue":     {"Deadline overdue", "Project deadline passed {days} days ago"},
	"deadline_imminent":    {"Deadline imminent", "Project is due in {days} days"},
	"deadline_approaching": {"Deadline approaching", "Project is due in {days} days"},
	"high_velocity":        {"High velocity", "{count} tasks completed recently"},
	"steady_progress":      {"Steady progress", "{count} tasks completed recently"},
	"stalled_velocity":     {"Stalled velocity", "No tasks completed in the last 7 days"},
	"scope_creep":          {"Scope creep", "{count} tasks added in the last 7 days"},
	"tasks_overdue":        {"Overdue tasks", "{count} tasks are past their due date"},
	"tasks_due_soon":       {"Tasks due soon", "{count} tasks are due within 3 days"},
	"blocked_tasks":        {"Blocked tasks", "{count} tasks are blocked"},
	"unresolved_issues":    {"Unresolved issues", "{count} urgent or high priority issues are open"},
	"stale_project":        {"Stale project", "No activity for {days} days"},
	"inactive_recent":      {"Recently inactive", "No activity for {days} days"},
	"active_engagement":    {"Active engagement", "Team activity within the last week"},
	"missed_milestones":    {"Missed milestones", "{count} milestones missed or overdue"},
}

var recommendationTexts = map[string]string{
	"update_deadline":    "Update the project deadline or re-scope the remaining work",
	"prioritize_tasks":   "Prioritize the remaining tasks to hit the deadline",
	"break_down_tasks":   "Break large tasks into smaller ones to restore momentum",
	"review_scope":       "Review scope: new tasks are outpacing completions",
	"reschedule_tasks":   "Reschedule or reassign overdue tasks",
	"resolve_blockers":   "Resolve blockers on stuck tasks",
	"address_issues":     "Address urgent and high priority issues",
	"reactivate_project": "Reactivate the project or put it on hold",
	"replan_milestones":  "Replan missed milestones",
}

var reasonTexts = map[string]string{
	"project_overdue":        "Project overdue by {days} days",
	"due_tomorrow":           "Due within a day",
	"due_in_3_days":          "Due in {days} days",
	"due_this_week":          "Due in {days} days",
	"urgent_priority":        "Urgent priority",
	"high_priority":          "High priority",
	"overdue_critical_tasks": "{count} critical tasks overdue",
	"overdue_tasks":          "{count} tasks overdue",
	"tasks_due_today":        "{count} tasks due today",
	"tasks_due_soon":         "{count} tasks due in the next 3 days",
	"blocked_tasks":          "{count} blocked tasks",
	"overdue_milestones":     "{count} milestones overdue",
	"upcoming_milestones":    "{count} milestones due this week",
	"urgent_issues":          "{count} urgent issues open",
	"high_priority_issues":   "{count} high priority issues open",
	"high_activity":          "High activity this week ({count} updates)",
	"recent_activity":        "{count} updates this week",
	"behind_schedule":        "{gap}% behind schedule",
	"overdue_sprints":        "{count} sprints past their end date",
	"active_sprint":          "Sprint in progress",
	"low_progress":           "Low progress ({progress}%)",
	"recently_updated":       "Recently updated",
}

// Interpolate replaces {name} tokens in tmpl with values from meta. Unknown
// tokens are left as-is.
func Interpolate(tmpl string, meta map[string]any) string {
	if len(meta) == 0 || !strings.Contains(tmpl, "{") {
		return tmpl
	}
	pairs := make([]string, 0, len(meta)*2)
	for k, v := range meta {
		pairs = append(pairs, "{"+k+"}", formatMetaValue(v))
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

func formatMetaValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		if x == math.Trunc(x) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', 1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func newFactor(id string, impact int, typ FactorType, meta Meta) HealthFactor {
	t := factorTexts[id]
	return HealthFactor{
		ID:          id,
		Label:       t.Label,
		Description: Interpolate(t.Description, meta),
		Impact:      impact,
		Type:        typ,
		Meta:        meta,
	}
}

func newReason(key string, weight float64, meta Meta) SpotlightReason {
	return SpotlightReason{
		Key:    key,
		Text:   Interpolate(reasonTexts[key], meta),
		Weight: weight,
		Meta:   meta,
	}
}

// ceilDays converts a non-negative duration to whole days, rounding up.
func ceilDays(m timeutil.Millis) int {
	return int(math.Ceil(float64(m) / float64(timeutil.Day)))
}
