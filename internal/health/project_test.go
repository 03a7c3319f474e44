package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/pulse/internal/models"
	"github.com/joescharf/pulse/internal/timeutil"
)

var (
	testNowTime = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	testNow     = timeutil.FromTime(testNowTime)
)

func ago(d time.Duration) timeutil.Millis   { return timeutil.FromTime(testNowTime.Add(-d)) }
func ahead(d time.Duration) timeutil.Millis { return timeutil.FromTime(testNowTime.Add(d)) }

const day = 24 * time.Hour

func score(in Input) ProjectHealth {
	return CalculateProjectHealth(in, testNow, time.UTC)
}

func factorIDs(h ProjectHealth) []string {
	ids := make([]string, 0, len(h.Factors))
	for _, f := range h.Factors {
		ids = append(ids, f.ID)
	}
	return ids
}

func completedTasks(n int) []*models.Task {
	tasks := make([]*models.Task, 0, n)
	for i := 0; i < n; i++ {
		tasks = append(tasks, &models.Task{IsCompleted: true, Status: models.TaskDone, CreatedAt: ago(day)})
	}
	return tasks
}

func TestProjectHealth_OverdueStaleProject(t *testing.T) {
	status, err := models.ParseTaskStatus("Open")
	require.NoError(t, err)

	h := score(Input{
		Project: &models.Project{Status: models.ProjectActive, DueDate: ago(2 * day), UpdatedAt: ago(20 * day)},
		Tasks: []*models.Task{
			{Status: status, DueDate: ago(day), Priority: models.PriorityUrgent, CreatedAt: ago(10 * day)},
		},
	})

	// 70 - (30+2*3) - min(60, 12*2) - 25 = -15, clamped to 0.
	assert.Equal(t, 0, h.Score)
	assert.Equal(t, StatusCritical, h.Status)
	assert.Equal(t, TrendStable, h.Trend)
	assert.Equal(t, testNow, h.LastUpdated)
	assert.Equal(t, []string{"deadline_overdue", "stale_project", "tasks_overdue"}, factorIDs(h))

	assert.Equal(t, -36, h.Factors[0].Impact)
	assert.Equal(t, "Project deadline passed 2 days ago", h.Factors[0].Description)
	assert.Equal(t, -24, h.Factors[2].Impact)
	assert.Equal(t, 1, h.Factors[2].Meta["count"])

	assert.Equal(t, []string{"update_deadline", "reschedule_tasks", "reactivate_project"}, h.RecommendationKeys)
	assert.Len(t, h.Recommendations, 3)
}

func TestProjectHealth_ScoreAlwaysInBounds(t *testing.T) {
	inputs := []Input{
		{},
		{Project: &models.Project{UpdatedAt: testNow}, Tasks: completedTasks(12)},
		{
			Project:    &models.Project{DueDate: ago(100 * day)},
			Tasks:      []*models.Task{{Status: models.TaskBlocked, DueDate: ago(3 * day), Priority: models.PriorityUrgent}},
			Milestones: []*models.Milestone{{Status: models.MilestoneMissed}, {Status: models.MilestoneMissed}, {Status: models.MilestoneMissed}},
			Issues:     []*models.Issue{{Status: models.IssueOpen, Priority: models.PriorityUrgent}},
		},
	}
	for i, in := range inputs {
		h := score(in)
		assert.GreaterOrEqual(t, h.Score, 0, "input %d", i)
		assert.LessOrEqual(t, h.Score, 100, "input %d", i)
	}
}

func TestProjectHealth_HighVelocity(t *testing.T) {
	h := score(Input{
		Project: &models.Project{UpdatedAt: ago(time.Hour)},
		Tasks:   completedTasks(6),
	})

	// 70 + 15 + 2
	assert.Equal(t, 87, h.Score)
	assert.Equal(t, StatusHealthy, h.Status)
	assert.Equal(t, TrendImproving, h.Trend)
	assert.Equal(t, []string{"high_velocity", "active_engagement"}, factorIDs(h))
	assert.Empty(t, h.RecommendationKeys)
}

func TestProjectHealth_ZeroTasksNeverAboveNormal(t *testing.T) {
	h := score(Input{Project: &models.Project{UpdatedAt: testNow}})

	assert.Equal(t, StatusNormal, h.Status)
	assert.LessOrEqual(t, h.Score, 74)
	assert.Equal(t, 72, h.Score)
}

func TestProjectHealth_ForcedWarningForTaskDueToday(t *testing.T) {
	h := score(Input{
		Project: &models.Project{UpdatedAt: testNow},
		Tasks:   []*models.Task{{Status: models.TaskToDo, DueDate: testNow, Priority: models.PriorityUrgent, CreatedAt: ago(10 * day)}},
	})

	assert.Equal(t, StatusWarning, h.Status)
	assert.LessOrEqual(t, h.Score, 48)
	assert.True(t, h.HasFactor("tasks_due_soon"))
}

func TestProjectHealth_ForcedWarningCapsScore(t *testing.T) {
	tasks := completedTasks(6)
	tasks = append(tasks, &models.Task{Status: models.TaskToDo, DueDate: ahead(3 * day), Priority: models.PriorityLow, CreatedAt: ago(10 * day)})

	h := score(Input{Project: &models.Project{UpdatedAt: testNow}, Tasks: tasks})

	// 70 + 15 - round(4*1.5) + 2 = 81 before the cap.
	assert.Equal(t, StatusWarning, h.Status)
	assert.Equal(t, 48, h.Score)

	// Negative factors lead under warning even when a positive one is larger.
	require.Len(t, h.Factors, 3)
	assert.Equal(t, "tasks_due_soon", h.Factors[0].ID)
	assert.Equal(t, -6, h.Factors[0].Impact)
	assert.Equal(t, []string{"tasks_due_soon", "high_velocity", "active_engagement"}, factorIDs(h))
}

func TestProjectHealth_BlockedCountsCompletedTasks(t *testing.T) {
	h := score(Input{
		Project: &models.Project{Status: models.ProjectActive, UpdatedAt: ago(time.Hour)},
		Tasks: []*models.Task{
			{IsCompleted: true, Status: models.TaskBlocked, CreatedAt: ago(day)},
			{Status: models.TaskBlocked, CreatedAt: ago(day)},
		},
	})

	require.True(t, h.HasFactor("blocked_tasks"))
	for _, f := range h.Factors {
		if f.ID == "blocked_tasks" {
			assert.Equal(t, -10, f.Impact)
			assert.Equal(t, 2, f.Meta["count"])
		}
	}
}

func TestProjectHealth_NegativeFactorsFirstUnderWarning(t *testing.T) {
	h := score(Input{
		Project: &models.Project{DueDate: ahead(10 * day), UpdatedAt: ago(time.Hour)},
		Tasks:   append(completedTasks(6), &models.Task{Status: models.TaskBlocked}, &models.Task{Status: models.TaskBlocked}),
		Issues: []*models.Issue{
			{Status: models.IssueOpen, Priority: models.PriorityUrgent},
			{Status: models.IssueInProgress, Priority: models.PriorityHigh},
			{Status: models.IssueOpen, Priority: models.PriorityHigh},
			{Status: models.IssueOpen, Priority: models.PriorityUrgent},
			{Status: models.IssueClosed, Priority: models.PriorityUrgent},
		},
		Milestones: []*models.Milestone{{Status: models.MilestoneMissed}, {Status: models.MilestonePending, DueDate: ago(day)}},
	})

	// 70 - 5 + 15 - 10 - 16 + 2 - 24 = 32
	assert.Equal(t, 32, h.Score)
	assert.Equal(t, StatusWarning, h.Status)
	assert.Equal(t, TrendDeclining, h.Trend)

	seenNonNegative := false
	for _, f := range h.Factors {
		if f.Type != FactorNegative {
			seenNonNegative = true
			continue
		}
		assert.False(t, seenNonNegative, "negative factor %s after a non-negative one", f.ID)
	}
	assert.Equal(t, []string{
		"missed_milestones", "unresolved_issues", "blocked_tasks",
		"high_velocity", "deadline_approaching", "active_engagement",
	}, factorIDs(h))
}

func TestProjectHealth_DeadlineTiers(t *testing.T) {
	tests := []struct {
		name   string
		due    timeutil.Millis
		factor string
		impact int
		rec    string
	}{
		{"overdue long ago caps at 70", ago(40 * day), "deadline_overdue", -70, "update_deadline"},
		{"overdue partial day rounds up", ago(2*day + time.Hour), "deadline_overdue", -39, "update_deadline"},
		{"imminent", ahead(2 * day), "deadline_imminent", -25, "prioritize_tasks"},
		{"approaching", ahead(10 * day), "deadline_approaching", -5, ""},
		{"far away", ahead(30 * day), "", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := score(Input{Project: &models.Project{DueDate: tt.due, UpdatedAt: testNow}})
			if tt.factor == "" {
				assert.False(t, h.HasFactor("deadline_overdue"))
				assert.False(t, h.HasFactor("deadline_imminent"))
				assert.False(t, h.HasFactor("deadline_approaching"))
				return
			}
			require.True(t, h.HasFactor(tt.factor))
			for _, f := range h.Factors {
				if f.ID == tt.factor {
					assert.Equal(t, tt.impact, f.Impact)
				}
			}
			if tt.rec != "" {
				assert.Contains(t, h.RecommendationKeys, tt.rec)
			}
		})
	}
}

func TestProjectHealth_DeadlineImminentForcesWarning(t *testing.T) {
	h := score(Input{Project: &models.Project{DueDate: ahead(2 * day), UpdatedAt: testNow}})

	// 70 - 25 + 2
	assert.Equal(t, 47, h.Score)
	assert.Equal(t, StatusWarning, h.Status)
}

func TestProjectHealth_StalledVelocityAndScopeCreep(t *testing.T) {
	var tasks []*models.Task
	for i := 0; i < 11; i++ {
		tasks = append(tasks, &models.Task{Status: models.TaskToDo, CreatedAt: ago(day)})
	}

	h := score(Input{Project: &models.Project{UpdatedAt: testNow}, Tasks: tasks})

	assert.True(t, h.HasFactor("stalled_velocity"))
	assert.True(t, h.HasFactor("scope_creep"))
	assert.Equal(t, []string{"break_down_tasks", "review_scope"}, h.RecommendationKeys)
	// 70 - 10 - 10 + 2
	assert.Equal(t, 52, h.Score)
}

func TestProjectHealth_Stalemate(t *testing.T) {
	h := score(Input{
		Project: &models.Project{UpdatedAt: ago(40 * day)},
		Tasks:   []*models.Task{{Status: models.TaskInProgress, CreatedAt: ago(60 * day)}},
	})

	assert.Equal(t, 45, h.Score)
	assert.Equal(t, StatusStalemate, h.Status)
}

func TestProjectHealth_NoStalemateWhenComplete(t *testing.T) {
	progress := 100.0
	h := score(Input{Project: &models.Project{UpdatedAt: ago(40 * day), Progress: &progress}})

	assert.Equal(t, StatusWarning, h.Status)
}

func TestProjectHealth_NoStalemateWhenCritical(t *testing.T) {
	h := score(Input{
		Project: &models.Project{DueDate: ago(20 * day), UpdatedAt: ago(40 * day)},
	})

	assert.Equal(t, StatusCritical, h.Status)
}

func TestProjectHealth_IdleFromActivities(t *testing.T) {
	p := &models.Project{UpdatedAt: testNow}

	h := score(Input{Project: p, Activities: []*models.Activity{{CreatedAt: ago(20 * day)}, {CreatedAt: ago(9 * day)}}})
	assert.True(t, h.HasFactor("inactive_recent"))

	// Activities take precedence over the project's own timestamps.
	h = score(Input{Project: p, Activities: []*models.Activity{{CreatedAt: ago(16 * day)}}})
	assert.True(t, h.HasFactor("stale_project"))
}

func TestProjectHealth_MalformedTimestampsDegrade(t *testing.T) {
	p := &models.Project{UpdatedAt: timeutil.ToMillis("not a date")}

	h := score(Input{Project: p})

	assert.True(t, h.HasFactor("stale_project"))
	assert.Equal(t, StatusStalemate, h.Status)
}

func TestProjectHealth_NilProject(t *testing.T) {
	assert.NotPanics(t, func() {
		h := score(Input{})
		assert.GreaterOrEqual(t, h.Score, 0)
	})
}

func TestDedupRecommendations(t *testing.T) {
	keys, texts := dedupRecommendations([]string{"reactivate_project", "resolve_blockers", "reactivate_project"})

	assert.Equal(t, []string{"reactivate_project", "resolve_blockers"}, keys)
	assert.Equal(t, []string{recommendationTexts["reactivate_project"], recommendationTexts["resolve_blockers"]}, texts)
}

func TestRecommendationKeysUnique(t *testing.T) {
	h := score(Input{
		Project: &models.Project{DueDate: ago(3 * day), UpdatedAt: ago(30 * day)},
		Tasks:   []*models.Task{{Status: models.TaskBlocked, DueDate: ago(day)}},
	})

	seen := map[string]bool{}
	for _, k := range h.RecommendationKeys {
		assert.False(t, seen[k], "duplicate recommendation %s", k)
		seen[k] = true
	}
	assert.Len(t, h.Recommendations, len(h.RecommendationKeys))
}

func TestClassifyScore(t *testing.T) {
	tests := []struct {
		score int
		want  Status
	}{
		{100, StatusExcellent},
		{90, StatusExcellent},
		{89, StatusHealthy},
		{75, StatusHealthy},
		{74, StatusNormal},
		{50, StatusNormal},
		{49, StatusWarning},
		{30, StatusWarning},
		{29, StatusCritical},
		{0, StatusCritical},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyScore(tt.score), "score %d", tt.score)
	}
}

func TestInterpolate(t *testing.T) {
	assert.Equal(t, "3 tasks overdue", Interpolate("{count} tasks overdue", map[string]any{"count": 3}))
	assert.Equal(t, "12.5% behind", Interpolate("{gap}% behind", map[string]any{"gap": 12.5}))
	assert.Equal(t, "{missing} stays", Interpolate("{missing} stays", map[string]any{"count": 1}))
	assert.Equal(t, "plain", Interpolate("plain", nil))
}
