package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/pulse/internal/models"
	"github.com/joescharf/pulse/internal/timeutil"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	err = s.Migrate(context.Background())
	require.NoError(t, err)

	t.Cleanup(func() { s.Close() })
	return s
}

func createProject(t *testing.T, s *SQLiteStore, name string) *models.Project {
	t.Helper()
	p := &models.Project{Name: name, Status: models.ProjectActive}
	require.NoError(t, s.CreateProject(context.Background(), p))
	return p
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "subdir", "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(filepath.Join(dir, "subdir"))
	assert.NoError(t, err, "should create parent directory")
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Migrate(context.Background()))
}

func TestProjectCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	progress := 42.5
	p := &models.Project{
		Name:        "apollo",
		Description: "Moonshot",
		Status:      models.ProjectPlanning,
		Priority:    models.PriorityUrgent,
		DueDate:     timeutil.Millis(1767225600000),
		StartDate:   timeutil.Millis(1764547200000),
		Progress:    &progress,
		CreatedAt:   timeutil.Millis(1764547200000),
	}
	require.NoError(t, s.CreateProject(ctx, p))
	assert.NotEmpty(t, p.ID)
	assert.Zero(t, p.UpdatedAt, "missing timestamps are stored as given")

	got, err := s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	got, err = s.GetProjectByName(ctx, "apollo")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	got.Progress = nil
	got.Status = models.ProjectActive
	got.UpdatedAt = p.CreatedAt + timeutil.Day
	require.NoError(t, s.UpdateProject(ctx, got))
	updated, err := s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, updated.Progress)
	assert.Equal(t, models.ProjectActive, updated.Status)
	assert.Equal(t, p.CreatedAt+timeutil.Day, updated.UpdatedAt)

	require.NoError(t, s.DeleteProject(ctx, p.ID))
	_, err = s.GetProject(ctx, p.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestProject_NotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetProjectByName(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.UpdateProject(ctx, &models.Project{ID: "missing", Name: "x"})
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.DeleteProject(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProject_DuplicateName(t *testing.T) {
	s := newTestStore(t)
	createProject(t, s, "dup")

	err := s.CreateProject(context.Background(), &models.Project{Name: "dup"})
	assert.Error(t, err)
}

func TestListProjects_FilterAndOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	createProject(t, s, "zeta")
	createProject(t, s, "alpha")
	require.NoError(t, s.CreateProject(ctx, &models.Project{Name: "held", Status: models.ProjectOnHold}))

	all, err := s.ListProjects(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "alpha", all[0].Name)
	assert.Equal(t, "zeta", all[2].Name)

	held, err := s.ListProjects(ctx, models.ProjectOnHold)
	require.NoError(t, err)
	require.Len(t, held, 1)
	assert.Equal(t, "held", held[0].Name)
}

func TestProjectEntities(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := createProject(t, s, "entities")

	require.NoError(t, s.CreateTask(ctx, &models.Task{ProjectID: p.ID, Title: "a", IsCompleted: true, Status: models.TaskDone, CreatedAt: 1000}))
	require.NoError(t, s.CreateTask(ctx, &models.Task{ProjectID: p.ID, Title: "b", Status: models.TaskBlocked, Priority: models.PriorityHigh, DueDate: 5000, CreatedAt: 2000}))
	tasks, err := s.ListTasks(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.True(t, tasks[0].IsCompleted)
	assert.Equal(t, models.TaskBlocked, tasks[1].Status)
	assert.Equal(t, models.PriorityHigh, tasks[1].Priority)
	assert.Equal(t, timeutil.Millis(5000), tasks[1].DueDate)

	require.NoError(t, s.CreateMilestone(ctx, &models.Milestone{ProjectID: p.ID, Title: "beta", DueDate: 9000}))
	ms, err := s.ListMilestones(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, ms, 1)
	assert.Equal(t, models.MilestonePending, ms[0].Status)

	require.NoError(t, s.CreateIssue(ctx, &models.Issue{ProjectID: p.ID, Title: "closed", Status: models.IssueClosed, Priority: models.PriorityUrgent}))
	require.NoError(t, s.CreateIssue(ctx, &models.Issue{ProjectID: p.ID, Title: "low", Priority: models.PriorityLow}))
	require.NoError(t, s.CreateIssue(ctx, &models.Issue{ProjectID: p.ID, Title: "urgent", Priority: models.PriorityUrgent}))
	issues, err := s.ListIssues(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, issues, 3)
	assert.Equal(t, "urgent", issues[0].Title)
	assert.Equal(t, "low", issues[1].Title)
	assert.Equal(t, "closed", issues[2].Title)

	require.NoError(t, s.CreateSprint(ctx, &models.Sprint{ProjectID: p.ID, Name: "s1", Status: models.SprintActive, StartDate: 1, EndDate: 2}))
	sprints, err := s.ListSprints(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, sprints, 1)
	assert.Equal(t, models.SprintActive, sprints[0].Status)
	assert.Equal(t, timeutil.Millis(2), sprints[0].EndDate)

	for i := 1; i <= 3; i++ {
		require.NoError(t, s.CreateActivity(ctx, &models.Activity{ProjectID: p.ID, Kind: "comment", CreatedAt: timeutil.Millis(i * 1000)}))
	}
	acts, err := s.ListActivities(ctx, p.ID, 2)
	require.NoError(t, err)
	require.Len(t, acts, 2)
	assert.Equal(t, timeutil.Millis(3000), acts[0].CreatedAt)

	// Deleting the project cascades.
	require.NoError(t, s.DeleteProject(ctx, p.ID))
	tasks, err = s.ListTasks(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestCreateTask_RequiresProject(t *testing.T) {
	s := newTestStore(t)
	err := s.CreateTask(context.Background(), &models.Task{ProjectID: "missing", Title: "orphan"})
	assert.Error(t, err)
}

func TestHealthSnapshots(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := createProject(t, s, "a")
	b := createProject(t, s, "b")

	for i, score := range []int{40, 55, 70} {
		require.NoError(t, s.SaveHealthSnapshot(ctx, &models.HealthSnapshot{
			ProjectID:  a.ID,
			Score:      score,
			Status:     "normal",
			Trend:      "stable",
			Payload:    []byte(`{"score":1}`),
			ComputedAt: timeutil.Millis(1000 * (i + 1)),
		}))
	}
	require.NoError(t, s.SaveHealthSnapshot(ctx, &models.HealthSnapshot{ProjectID: b.ID, Score: 10, Status: "critical", Trend: "declining"}))

	history, err := s.ListHealthSnapshots(ctx, a.ID, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 70, history[0].Score)
	assert.Equal(t, 55, history[1].Score)
	assert.JSONEq(t, `{"score":1}`, string(history[0].Payload))

	latest, err := s.LatestHealthSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, 70, latest[a.ID].Score)
	assert.Equal(t, "critical", latest[b.ID].Status)
	assert.NotZero(t, latest[b.ID].ComputedAt)
}

func TestCreate_KeepsMissingTimestamps(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := createProject(t, s, "undated")
	require.NoError(t, s.CreateTask(ctx, &models.Task{ProjectID: p.ID, Title: "t"}))
	require.NoError(t, s.CreateIssue(ctx, &models.Issue{ProjectID: p.ID, Title: "i"}))
	require.NoError(t, s.CreateActivity(ctx, &models.Activity{ProjectID: p.ID, Kind: "note"}))

	got, err := s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, got.CreatedAt)
	assert.Zero(t, got.UpdatedAt)

	tasks, err := s.ListTasks(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Zero(t, tasks[0].CreatedAt)

	issues, err := s.ListIssues(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Zero(t, issues[0].CreatedAt)

	acts, err := s.ListActivities(ctx, p.ID, 0)
	require.NoError(t, err)
	require.Len(t, acts, 1)
	assert.Zero(t, acts[0].CreatedAt)
}

func TestWithTx_Commits(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx Store) error {
		p := &models.Project{Name: "committed"}
		if err := tx.CreateProject(ctx, p); err != nil {
			return err
		}
		return tx.CreateTask(ctx, &models.Task{ProjectID: p.ID, Title: "t"})
	})
	require.NoError(t, err)

	p, err := s.GetProjectByName(ctx, "committed")
	require.NoError(t, err)
	tasks, err := s.ListTasks(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	keep := createProject(t, s, "keep")

	err := s.WithTx(ctx, func(tx Store) error {
		if err := tx.DeleteProject(ctx, keep.ID); err != nil {
			return err
		}
		if err := tx.CreateProject(ctx, &models.Project{Name: "keep"}); err != nil {
			return err
		}
		// Nested calls join the outer transaction.
		return tx.WithTx(ctx, func(inner Store) error {
			return inner.CreateTask(ctx, &models.Task{ProjectID: "missing", Title: "orphan"})
		})
	})
	require.Error(t, err)

	got, err := s.GetProjectByName(ctx, "keep")
	require.NoError(t, err)
	assert.Equal(t, keep.ID, got.ID)
}
