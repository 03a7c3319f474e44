package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/pulse/internal/models"
	"github.com/joescharf/pulse/internal/timeutil"
)

func spotlight(in Input) SpotlightScore {
	return CalculateSpotlightScore(in, testNow, time.UTC)
}

func reasonKeys(s SpotlightScore) []string {
	keys := make([]string, 0, len(s.Reasons))
	for _, r := range s.Reasons {
		keys = append(keys, r.Key)
	}
	return keys
}

func TestSpotlight_PlanningFallback(t *testing.T) {
	s := spotlight(Input{Project: &models.Project{Status: models.ProjectPlanning}})

	assert.Equal(t, -500.0, s.Score)
	require.Len(t, s.Reasons, 1)
	assert.Equal(t, "recently_updated", s.PrimaryReason.Key)
	assert.Equal(t, "Recently updated", s.PrimaryReason.Text)
	assert.Equal(t, 0.0, s.PrimaryReason.Weight)
	assert.Equal(t, s.PrimaryReason.Key, s.ReasonKey)
	assert.Equal(t, s.PrimaryReason.Text, s.Reason)
}

func TestSpotlight_OverdueCriticalMonotonic(t *testing.T) {
	overdue := func() *models.Task {
		return &models.Task{Status: models.TaskToDo, Priority: models.PriorityUrgent, DueDate: ago(2 * day)}
	}
	p := &models.Project{Status: models.ProjectActive}

	one := spotlight(Input{Project: p, Tasks: []*models.Task{overdue()}})
	two := spotlight(Input{Project: p, Tasks: []*models.Task{overdue(), overdue()}})

	assert.Equal(t, 50.0, two.Score-one.Score)
	assert.Equal(t, 1, one.Counts.OverdueCritical)
	assert.Equal(t, 2, two.Counts.OverdueCritical)
	assert.Equal(t, "overdue_critical_tasks", two.PrimaryReason.Key)
	// 10 (active) + 100 + 20 (low progress)
	assert.Equal(t, 130.0, two.Score)
}

func TestSpotlight_OverdueNonCriticalOnlyWhenNoCritical(t *testing.T) {
	s := spotlight(Input{
		Project: &models.Project{Status: models.ProjectCompleted},
		Tasks: []*models.Task{
			{Priority: models.PriorityLow, DueDate: ago(day)},
			{Priority: models.PriorityMedium, DueDate: ago(day)},
		},
	})

	assert.Equal(t, []string{"overdue_tasks"}, reasonKeys(s))
	assert.Equal(t, 50.0, s.Score)
}

func TestSpotlight_DeadlineTiers(t *testing.T) {
	tests := []struct {
		name   string
		due    timeutil.Millis
		key    string
		weight float64
	}{
		{"overdue", ago(2 * day), "project_overdue", 100},
		{"within a day", ahead(12 * time.Hour), "due_tomorrow", 60},
		{"within three days", ahead(2 * day), "due_in_3_days", 40},
		{"within a week", ahead(5 * day), "due_this_week", 20},
		{"later", ahead(10 * day), "recently_updated", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := spotlight(Input{Project: &models.Project{Status: models.ProjectCompleted, DueDate: tt.due}})
			assert.Equal(t, tt.key, s.PrimaryReason.Key)
			assert.Equal(t, tt.weight, s.Score)
		})
	}
}

func TestSpotlight_TaskCountsAndOrdering(t *testing.T) {
	s := spotlight(Input{
		Project: &models.Project{Status: models.ProjectOnHold, Priority: models.PriorityHigh},
		Tasks: []*models.Task{
			{DueDate: testNow},
			{DueDate: ahead(2 * day)},
			{DueDate: ahead(5 * day)},
			{Status: models.TaskBlocked},
			{IsCompleted: true, Status: models.TaskBlocked, DueDate: ago(3 * day)},
		},
	})

	assert.Equal(t, SpotlightCounts{Blocked: 1, DueToday: 1, DueSoon: 1, DueThisWeek: 1}, s.Counts)
	assert.Equal(t, []string{"tasks_due_today", "blocked_tasks", "high_priority", "tasks_due_soon"}, reasonKeys(s))
	// 15 + 35 + 15 + 20 - 200
	assert.Equal(t, -115.0, s.Score)
}

func TestSpotlight_MilestonesIssuesSprints(t *testing.T) {
	s := spotlight(Input{
		Project: &models.Project{Status: models.ProjectCompleted},
		Milestones: []*models.Milestone{
			{Status: models.MilestonePending, DueDate: ago(day)},
			{Status: models.MilestonePending, DueDate: ahead(3 * day)},
			{Status: models.MilestoneAchieved, DueDate: ago(day)},
		},
		Issues: []*models.Issue{
			{Status: models.IssueOpen, Priority: models.PriorityHigh},
			{Status: models.IssueClosed, Priority: models.PriorityUrgent},
		},
		Sprints: []*models.Sprint{
			{Status: models.SprintActive, EndDate: ago(day)},
			{Status: models.SprintCompleted, EndDate: ago(10 * day)},
		},
	})

	assert.Equal(t, []string{"overdue_sprints", "overdue_milestones", "high_priority_issues"}, reasonKeys(s))
	assert.Equal(t, 150.0, s.Score)
}

func TestSpotlight_UpcomingMilestonesAndActiveSprint(t *testing.T) {
	s := spotlight(Input{
		Project:    &models.Project{Status: models.ProjectCompleted},
		Milestones: []*models.Milestone{{Status: models.MilestonePending, DueDate: ahead(3 * day)}},
		Issues:     []*models.Issue{{Status: models.IssueOpen, Priority: models.PriorityUrgent}},
		Sprints:    []*models.Sprint{{Status: models.SprintActive, EndDate: ahead(3 * day)}},
	})

	assert.Equal(t, []string{"urgent_issues", "upcoming_milestones", "active_sprint"}, reasonKeys(s))
	assert.Equal(t, 80.0, s.Score)
}

func TestSpotlight_Activity(t *testing.T) {
	var acts []*models.Activity
	for i := 0; i < 11; i++ {
		acts = append(acts, &models.Activity{CreatedAt: ago(time.Duration(i) * time.Hour)})
	}
	acts = append(acts, &models.Activity{CreatedAt: ago(30 * day)})

	s := spotlight(Input{Project: &models.Project{Status: models.ProjectCompleted}, Activities: acts})
	assert.Equal(t, "high_activity", s.PrimaryReason.Key)
	assert.Equal(t, 15.0, s.Score)

	s = spotlight(Input{Project: &models.Project{Status: models.ProjectCompleted}, Activities: acts[:2]})
	assert.Equal(t, "recent_activity", s.PrimaryReason.Key)
	assert.Equal(t, 5.0, s.Score)
}

func TestSpotlight_BehindSchedule(t *testing.T) {
	s := spotlight(Input{
		Project: &models.Project{
			Status:    models.ProjectActive,
			StartDate: ago(80 * day),
			DueDate:   ahead(20 * day),
		},
		Tasks: []*models.Task{{Status: models.TaskToDo}},
	})

	require.Equal(t, "behind_schedule", s.PrimaryReason.Key)
	assert.Equal(t, 40.0, s.PrimaryReason.Weight)
	assert.Equal(t, 80.0, s.PrimaryReason.Meta["gap"])
	assert.Equal(t, 80.0, s.PrimaryReason.Meta["expected"])
	assert.Equal(t, 0.0, s.PrimaryReason.Meta["actual"])
	assert.Equal(t, "80% behind schedule", s.PrimaryReason.Text)
	assert.NotContains(t, reasonKeys(s), "low_progress")
	// 10 (active) + 40
	assert.Equal(t, 50.0, s.Score)
}

func TestSpotlight_LowProgress(t *testing.T) {
	progress := 10.0
	s := spotlight(Input{Project: &models.Project{Status: models.ProjectActive, Progress: &progress}})

	assert.Equal(t, []string{"low_progress"}, reasonKeys(s))
	assert.Equal(t, "Low progress (10%)", s.PrimaryReason.Text)
	assert.Equal(t, 30.0, s.Score)
}

func TestRankSpotlight(t *testing.T) {
	entry := func(id, name string, score float64) SpotlightEntry {
		return SpotlightEntry{Project: &models.Project{ID: id, Name: name}, Spotlight: SpotlightScore{Score: score}}
	}
	entries := []SpotlightEntry{
		entry("4", "delta", 10),
		entry("2", "beta", 50),
		entry("3", "alpha", 50),
		entry("1", "alpha", 50),
		entry("5", "echo", -500),
	}

	ranked := RankSpotlight(entries, 0)
	var ids []string
	for _, e := range ranked {
		ids = append(ids, e.Project.ID)
	}
	assert.Equal(t, []string{"1", "3", "2", "4", "5"}, ids)
	assert.Equal(t, "4", entries[0].Project.ID, "input must not be reordered")

	assert.Len(t, RankSpotlight(entries, 2), 2)
}
