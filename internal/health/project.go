package health

import (
	"math"
	"sort"
	"time"

	"github.com/joescharf/pulse/internal/models"
	"github.com/joescharf/pulse/internal/timeutil"
)

const (
	baseScore     = 70
	recentWindow  = 7 * timeutil.Day
	zeroTaskCap   = 74
	dueSoonCap    = 48
	stalemateIdle = 30
)

// Input is a read-only snapshot of one project and its related entities.
// Nil slices are treated as empty.
type Input struct {
	Project    *models.Project
	Tasks      []*models.Task
	Milestones []*models.Milestone
	Issues     []*models.Issue
	Sprints    []*models.Sprint
	Activities []*models.Activity
}

// healthBuilder accumulates the score, factors and recommendations of a
// single project health computation.
type healthBuilder struct {
	score   int
	factors []HealthFactor
	recKeys []string
}

func (b *healthBuilder) add(f HealthFactor, rec string) {
	b.score += f.Impact
	b.factors = append(b.factors, f)
	if rec != "" {
		b.recKeys = append(b.recKeys, rec)
	}
}

// CalculateProjectHealth scores a project from its related entities. now is
// read once by the caller; loc is the zone used for calendar-day comparisons
// (nil means local).
func CalculateProjectHealth(in Input, now timeutil.Millis, loc *time.Location) ProjectHealth {
	p := in.Project
	if p == nil {
		p = &models.Project{}
	}
	b := &healthBuilder{score: baseScore}

	// Project deadline
	if p.DueDate != 0 {
		diff := p.DueDate - now
		switch {
		case diff < 0:
			days := ceilDays(-diff)
			penalty := 30 + min(40, days*3)
			b.add(newFactor("deadline_overdue", -penalty, FactorNegative, Meta{"days": days}), "update_deadline")
		case diff <= 3*timeutil.Day:
			b.add(newFactor("deadline_imminent", -25, FactorNegative, Meta{"days": ceilDays(diff)}), "prioritize_tasks")
		case diff <= 14*timeutil.Day:
			b.add(newFactor("deadline_approaching", -5, FactorNeutral, Meta{"days": ceilDays(diff)}), "")
		}
	}

	total := len(in.Tasks)
	// Tasks carry no completion time, so completions are counted by
	// creation date within the window.
	recentCompletions, createdRecently := 0, 0
	for _, t := range in.Tasks {
		if t.CreatedAt < now-recentWindow {
			continue
		}
		createdRecently++
		if t.IsCompleted {
			recentCompletions++
		}
	}

	progress := actualProgress(p, in.Tasks)

	hasUrgentDeadline := false
	blocked := 0
	if total > 0 {
		switch {
		case recentCompletions >= 5:
			b.add(newFactor("high_velocity", 15, FactorPositive, Meta{"count": recentCompletions}), "")
		case recentCompletions > 0:
			b.add(newFactor("steady_progress", 5, FactorPositive, Meta{"count": recentCompletions}), "")
		case total > 5 && progress < 90:
			b.add(newFactor("stalled_velocity", -10, FactorNegative, nil), "break_down_tasks")
		}

		if createdRecently > recentCompletions+5 && total > 10 {
			b.add(newFactor("scope_creep", -10, FactorNegative, Meta{"count": createdRecently}), "review_scope")
		}

		overdueCount, overdueSum := 0, 0
		dueSoonCount, dueSoonSum := 0, 0
		for _, t := range in.Tasks {
			if t.IsCompleted || t.DueDate == 0 {
				continue
			}
			diff := timeutil.DayDiff(t.DueDate, now, loc)
			switch {
			case diff < 0:
				overdueCount++
				overdueSum += byPriority(t.Priority, 12, 8, 4)
			case diff <= 1:
				hasUrgentDeadline = true
				dueSoonCount++
				dueSoonSum += byPriority(t.Priority, 35, 25, 15)
			case diff <= 3:
				dueSoonCount++
				dueSoonSum += byPriority(t.Priority, 10, 8, 4)
			}
		}
		if overdueCount > 0 {
			penalty := min(60, overdueSum*2)
			b.add(newFactor("tasks_overdue", -penalty, FactorNegative, Meta{"count": overdueCount}), "reschedule_tasks")
		} else if dueSoonCount > 0 {
			penalty := min(25, int(math.Round(float64(dueSoonSum)*1.5)))
			b.add(newFactor("tasks_due_soon", -penalty, FactorNegative, Meta{"count": dueSoonCount}), "")
		}
	}

	for _, t := range in.Tasks {
		if t.Status == models.TaskBlocked {
			blocked++
		}
	}
	if blocked > 0 {
		b.add(newFactor("blocked_tasks", -min(25, blocked*5), FactorNegative, Meta{"count": blocked}), "resolve_blockers")
	}

	urgentIssues := 0
	for _, is := range in.Issues {
		if is.Status.IsOpen() && is.Priority.IsUrgentOrHigh() {
			urgentIssues++
		}
	}
	if urgentIssues > 0 {
		b.add(newFactor("unresolved_issues", -min(20, urgentIssues*4), FactorNegative, Meta{"count": urgentIssues}), "address_issues")
	}

	idleDays := (now - lastActivity(p, in.Activities)).Days()
	switch {
	case idleDays > 14:
		b.add(newFactor("stale_project", -25, FactorNegative, Meta{"days": int(idleDays)}), "reactivate_project")
	case idleDays > 7:
		b.add(newFactor("inactive_recent", -10, FactorNeutral, Meta{"days": int(idleDays)}), "")
	default:
		b.add(newFactor("active_engagement", 2, FactorPositive, nil), "")
	}

	missed := 0
	for _, m := range in.Milestones {
		if m.Status == models.MilestoneMissed ||
			(m.Status == models.MilestonePending && m.DueDate != 0 && m.DueDate < now) {
			missed++
		}
	}
	if missed > 0 {
		b.add(newFactor("missed_milestones", -min(30, missed*12), FactorNegative, Meta{"count": missed}), "replan_milestones")
	}

	score := max(0, min(100, b.score))
	status := ClassifyScore(score)

	if total == 0 && (status == StatusExcellent || status == StatusHealthy) {
		status = StatusNormal
		score = min(score, zeroTaskCap)
	}

	if progress < 100 && idleDays > stalemateIdle && status != StatusCritical {
		status = StatusStalemate
	}

	trend := TrendStable
	if score > 80 && recentCompletions > 2 {
		trend = TrendImproving
	}
	if score < 50 && (blocked > 0 || urgentIssues > 0) {
		trend = TrendDeclining
	}

	if (hasUrgentDeadline || hasAnyFactor(b.factors, "tasks_due_soon", "deadline_imminent")) && status != StatusCritical {
		status = StatusWarning
		score = min(score, dueSoonCap)
	}

	res := ProjectHealth{
		Score:       score,
		Status:      status,
		Factors:     sortFactors(b.factors, status),
		Trend:       trend,
		LastUpdated: now,
	}
	res.RecommendationKeys, res.Recommendations = dedupRecommendations(b.recKeys)
	return res
}

func hasAnyFactor(factors []HealthFactor, ids ...string) bool {
	for _, f := range factors {
		for _, id := range ids {
			if f.ID == id {
				return true
			}
		}
	}
	return false
}

// lastActivity returns the newest activity timestamp, or the project's
// updatedAt (then createdAt) when there is no activity.
func lastActivity(p *models.Project, acts []*models.Activity) timeutil.Millis {
	if len(acts) > 0 {
		var last timeutil.Millis
		for _, a := range acts {
			if a.CreatedAt > last {
				last = a.CreatedAt
			}
		}
		return last
	}
	if p.UpdatedAt != 0 {
		return p.UpdatedAt
	}
	return p.CreatedAt
}

func byPriority(p models.Priority, urgent, high, other int) int {
	switch p {
	case models.PriorityUrgent:
		return urgent
	case models.PriorityHigh:
		return high
	default:
		return other
	}
}

// sortFactors orders factors by descending absolute impact. Under warning or
// critical, negative factors come first.
func sortFactors(factors []HealthFactor, status Status) []HealthFactor {
	out := make([]HealthFactor, len(factors))
	copy(out, factors)
	negFirst := status == StatusWarning || status == StatusCritical
	sort.SliceStable(out, func(i, j int) bool {
		if negFirst {
			ni, nj := out[i].Type == FactorNegative, out[j].Type == FactorNegative
			if ni != nj {
				return ni
			}
		}
		return abs(out[i].Impact) > abs(out[j].Impact)
	})
	return out
}

func dedupRecommendations(keys []string) ([]string, []string) {
	seen := make(map[string]bool, len(keys))
	outKeys := make([]string, 0, len(keys))
	texts := make([]string, 0, len(keys))
	for _, k := range keys {
		if seen[k] {
			continue
		}
		seen[k] = true
		outKeys = append(outKeys, k)
		texts = append(texts, recommendationTexts[k])
	}
	return outKeys, texts
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
