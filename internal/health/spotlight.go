package health

import (
	"math"
	"sort"
	"time"

	"github.com/joescharf/pulse/internal/models"
	"github.com/joescharf/pulse/internal/timeutil"
)

// Status adjustments applied to the spotlight score only. The large
// penalties sink projects that are not being executed below active ones.
var spotlightStatusAdjust = map[models.ProjectStatus]float64{
	models.ProjectActive:        10,
	models.ProjectBrainstorming: -500,
	models.ProjectPlanning:      -500,
	models.ProjectOnHold:        -200,
}

// CalculateSpotlightScore computes the unbounded "needs attention" ranking
// value of a project.
func CalculateSpotlightScore(in Input, now timeutil.Millis, loc *time.Location) SpotlightScore {
	p := in.Project
	if p == nil {
		p = &models.Project{}
	}
	var reasons []SpotlightReason
	add := func(r SpotlightReason) { reasons = append(reasons, r) }

	if p.DueDate != 0 {
		diff := p.DueDate - now
		switch {
		case diff < 0:
			add(newReason("project_overdue", 100, Meta{"days": ceilDays(-diff)}))
		case diff <= timeutil.Day:
			add(newReason("due_tomorrow", 60, nil))
		case diff <= 3*timeutil.Day:
			add(newReason("due_in_3_days", 40, Meta{"days": ceilDays(diff)}))
		case diff <= 7*timeutil.Day:
			add(newReason("due_this_week", 20, Meta{"days": ceilDays(diff)}))
		}
	}

	switch p.Priority {
	case models.PriorityUrgent:
		add(newReason("urgent_priority", 30, nil))
	case models.PriorityHigh:
		add(newReason("high_priority", 15, nil))
	}

	counts := countTasks(in.Tasks, now, loc)
	if counts.OverdueCritical > 0 {
		add(newReason("overdue_critical_tasks", float64(counts.OverdueCritical*50), Meta{"count": counts.OverdueCritical}))
	} else if counts.OverdueTasks > 0 {
		add(newReason("overdue_tasks", float64(counts.OverdueTasks*25), Meta{"count": counts.OverdueTasks}))
	}
	if counts.DueToday > 0 {
		add(newReason("tasks_due_today", float64(counts.DueToday*35), Meta{"count": counts.DueToday}))
	}
	if counts.DueSoon > 0 {
		add(newReason("tasks_due_soon", float64(counts.DueSoon*15), Meta{"count": counts.DueSoon}))
	}
	if counts.Blocked > 0 {
		add(newReason("blocked_tasks", float64(counts.Blocked*20), Meta{"count": counts.Blocked}))
	}

	overdueMs, upcomingMs := 0, 0
	for _, m := range in.Milestones {
		if m.Status != models.MilestonePending || m.DueDate == 0 {
			continue
		}
		if m.DueDate < now {
			overdueMs++
		} else if m.DueDate-now <= 7*timeutil.Day {
			upcomingMs++
		}
	}
	if overdueMs > 0 {
		add(newReason("overdue_milestones", float64(overdueMs*60), Meta{"count": overdueMs}))
	} else if upcomingMs > 0 {
		add(newReason("upcoming_milestones", float64(upcomingMs*30), Meta{"count": upcomingMs}))
	}

	urgentIssues, highIssues := 0, 0
	for _, is := range in.Issues {
		if !is.Status.IsOpen() {
			continue
		}
		switch is.Priority {
		case models.PriorityUrgent:
			urgentIssues++
		case models.PriorityHigh:
			highIssues++
		}
	}
	if urgentIssues > 0 {
		add(newReason("urgent_issues", float64(urgentIssues*40), Meta{"count": urgentIssues}))
	} else if highIssues > 0 {
		add(newReason("high_priority_issues", float64(highIssues*20), Meta{"count": highIssues}))
	}

	recent := 0
	for _, a := range in.Activities {
		if a.CreatedAt >= now-recentWindow {
			recent++
		}
	}
	switch {
	case recent > 10:
		add(newReason("high_activity", 15, Meta{"count": recent}))
	case recent > 0:
		add(newReason("recent_activity", 5, Meta{"count": recent}))
	}

	actual := actualProgress(p, in.Tasks)
	behind := false
	if p.DueDate != 0 && p.StartDate != 0 {
		span := p.DueDate - p.StartDate
		elapsed := now - p.StartDate
		if span > 0 && elapsed > 0 {
			expected := float64(elapsed) / float64(span) * 100
			gap := expected - actual
			if gap > 30 && actual < 80 {
				behind = true
				add(newReason("behind_schedule", math.Min(40, gap), Meta{
					"gap":      math.Round(gap),
					"expected": math.Round(expected),
					"actual":   math.Round(actual),
				}))
			}
		}
	}

	overdueSprints, activeSprints := 0, 0
	for _, s := range in.Sprints {
		if s.Status != models.SprintActive {
			continue
		}
		activeSprints++
		if s.EndDate != 0 && s.EndDate < now {
			overdueSprints++
		}
	}
	if overdueSprints > 0 {
		add(newReason("overdue_sprints", float64(overdueSprints*70), Meta{"count": overdueSprints}))
	} else if activeSprints > 0 {
		add(newReason("active_sprint", 10, nil))
	}

	if p.Status == models.ProjectActive && actual < 20 && !behind {
		add(newReason("low_progress", 20, Meta{"progress": math.Round(actual)}))
	}

	score := spotlightStatusAdjust[p.Status]
	for _, r := range reasons {
		score += r.Weight
	}

	sort.SliceStable(reasons, func(i, j int) bool {
		return reasons[i].Weight > reasons[j].Weight
	})
	if len(reasons) == 0 {
		reasons = append(reasons, newReason("recently_updated", 0, nil))
	}

	primary := reasons[0]
	return SpotlightScore{
		Score:         score,
		Reasons:       reasons,
		PrimaryReason: primary,
		Counts:        counts,
		Reason:        primary.Text,
		ReasonKey:     primary.Key,
	}
}

func countTasks(tasks []*models.Task, now timeutil.Millis, loc *time.Location) SpotlightCounts {
	var c SpotlightCounts
	for _, t := range tasks {
		if t.IsCompleted {
			continue
		}
		if t.Status == models.TaskBlocked {
			c.Blocked++
		}
		if t.DueDate == 0 {
			continue
		}
		diff := timeutil.DayDiff(t.DueDate, now, loc)
		switch {
		case diff < 0:
			c.OverdueTasks++
			if t.Priority.IsUrgentOrHigh() {
				c.OverdueCritical++
			}
		case diff == 0:
			c.DueToday++
		case diff <= 3:
			c.DueSoon++
		case diff <= 7:
			c.DueThisWeek++
		}
	}
	return c
}

// actualProgress is the share of completed tasks, falling back to the
// project's manual progress when it has no tasks.
func actualProgress(p *models.Project, tasks []*models.Task) float64 {
	if len(tasks) == 0 {
		if p.Progress != nil {
			return *p.Progress
		}
		return 0
	}
	done := 0
	for _, t := range tasks {
		if t.IsCompleted {
			done++
		}
	}
	return float64(done) / float64(len(tasks)) * 100
}

// SpotlightEntry pairs a project with its spotlight score for ranking.
type SpotlightEntry struct {
	Project   *models.Project `json:"project"`
	Spotlight SpotlightScore  `json:"spotlight"`
}

// RankSpotlight orders entries by descending score, breaking ties by project
// name then id, and keeps at most limit entries (limit <= 0 keeps all).
func RankSpotlight(entries []SpotlightEntry, limit int) []SpotlightEntry {
	out := make([]SpotlightEntry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Spotlight.Score != b.Spotlight.Score {
			return a.Spotlight.Score > b.Spotlight.Score
		}
		if a.Project.Name != b.Project.Name {
			return a.Project.Name < b.Project.Name
		}
		return a.Project.ID < b.Project.ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
