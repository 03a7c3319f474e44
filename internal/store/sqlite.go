package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/joescharf/pulse/internal/models"
	"github.com/joescharf/pulse/internal/timeutil"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
type SQLiteStore struct {
	db *sql.DB
	q  querier
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite has a single writer; one connection serializes access from
	// concurrent refresh workers and HTTP handlers.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	return &SQLiteStore{db: db, q: db}, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// newULID generates a new ULID string.
func newULID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}

func notFound(kind, key string) error {
	return fmt.Errorf("%s %s: %w", kind, key, ErrNotFound)
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at INTEGER NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()

		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename, applied_at) VALUES (?, ?)", name, int64(timeutil.Now())); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}
	return nil
}

// WithTx runs fn against a store bound to one transaction, committing when
// fn returns nil. Calls on a store that is already in a transaction join it.
func (s *SQLiteStore) WithTx(ctx context.Context, fn func(Store) error) error {
	if _, ok := s.q.(*sql.Tx); ok {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&SQLiteStore{db: s.db, q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Projects ---

const projectColumns = `id, name, description, status, priority, due_date, start_date, progress, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*models.Project, error) {
	p := &models.Project{}
	var status, priority string
	var progress sql.NullFloat64
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &status, &priority,
		&p.DueDate, &p.StartDate, &progress, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Status = models.ProjectStatus(status)
	p.Priority = models.Priority(priority)
	if progress.Valid {
		v := progress.Float64
		p.Progress = &v
	}
	return p, nil
}

// nullProgress binds an optional progress value. Timestamps are likewise bound
// as plain int64 rather than timeutil.Millis.
func nullProgress(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

// CreateProject inserts p. Timestamps are stored as given; a missing one
// stays 0 so stored projects score like the document they came from.
func (s *SQLiteStore) CreateProject(ctx context.Context, p *models.Project) error {
	if p.ID == "" {
		p.ID = newULID()
	}
	if p.Status == "" {
		p.Status = models.ProjectActive
	}

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO projects (`+projectColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Description, string(p.Status), string(p.Priority),
		int64(p.DueDate), int64(p.StartDate), nullProgress(p.Progress), int64(p.CreatedAt), int64(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetProject(ctx context.Context, id string) (*models.Project, error) {
	p, err := scanProject(s.q.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("project", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

func (s *SQLiteStore) GetProjectByName(ctx context.Context, name string) (*models.Project, error) {
	p, err := scanProject(s.q.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE name = ?`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("project", name)
	}
	if err != nil {
		return nil, fmt.Errorf("get project by name: %w", err)
	}
	return p, nil
}

// ListProjects returns projects ordered by name, optionally filtered by status.
func (s *SQLiteStore) ListProjects(ctx context.Context, status models.ProjectStatus) ([]*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY name`

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var projects []*models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// UpdateProject saves p, including the UpdatedAt the caller set.
func (s *SQLiteStore) UpdateProject(ctx context.Context, p *models.Project) error {
	result, err := s.q.ExecContext(ctx,
		`UPDATE projects SET name=?, description=?, status=?, priority=?, due_date=?, start_date=?, progress=?, updated_at=?
		WHERE id=?`,
		p.Name, p.Description, string(p.Status), string(p.Priority),
		int64(p.DueDate), int64(p.StartDate), nullProgress(p.Progress), int64(p.UpdatedAt), p.ID,
	)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return notFound("project", p.ID)
	}
	return nil
}

// DeleteProject removes a project and, by cascade, everything attached to it.
func (s *SQLiteStore) DeleteProject(ctx context.Context, id string) error {
	result, err := s.q.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return notFound("project", id)
	}
	return nil
}

// --- Tasks ---

func (s *SQLiteStore) CreateTask(ctx context.Context, t *models.Task) error {
	if t.ID == "" {
		t.ID = newULID()
	}
	if t.Status == "" {
		t.Status = models.TaskToDo
	}
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO tasks (id, project_id, title, is_completed, status, priority, due_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.ProjectID, t.Title, boolToInt(t.IsCompleted), string(t.Status), string(t.Priority), int64(t.DueDate), int64(t.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListTasks(ctx context.Context, projectID string) ([]*models.Task, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, project_id, title, is_completed, status, priority, due_date, created_at
		FROM tasks WHERE project_id = ? ORDER BY created_at, id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*models.Task
	for rows.Next() {
		t := &models.Task{}
		var status, priority string
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.Title, &t.IsCompleted, &status, &priority, &t.DueDate, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		t.Status = models.TaskStatus(status)
		t.Priority = models.Priority(priority)
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// --- Milestones ---

func (s *SQLiteStore) CreateMilestone(ctx context.Context, m *models.Milestone) error {
	if m.ID == "" {
		m.ID = newULID()
	}
	if m.Status == "" {
		m.Status = models.MilestonePending
	}
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO milestones (id, project_id, title, status, due_date) VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.ProjectID, m.Title, string(m.Status), int64(m.DueDate),
	)
	if err != nil {
		return fmt.Errorf("create milestone: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListMilestones(ctx context.Context, projectID string) ([]*models.Milestone, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, project_id, title, status, due_date FROM milestones WHERE project_id = ? ORDER BY due_date, id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list milestones: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*models.Milestone
	for rows.Next() {
		m := &models.Milestone{}
		var status string
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.Title, &status, &m.DueDate); err != nil {
			return nil, fmt.Errorf("scan milestone: %w", err)
		}
		m.Status = models.MilestoneStatus(status)
		out = append(out, m)
	}
	return out, rows.Err()
}

// --- Issues ---

func (s *SQLiteStore) CreateIssue(ctx context.Context, issue *models.Issue) error {
	if issue.ID == "" {
		issue.ID = newULID()
	}
	if issue.Status == "" {
		issue.Status = models.IssueOpen
	}
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO issues (id, project_id, title, status, priority, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		issue.ID, issue.ProjectID, issue.Title, string(issue.Status), string(issue.Priority), int64(issue.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("create issue: %w", err)
	}
	return nil
}

// ListIssues returns a project's issues, open and most severe first.
func (s *SQLiteStore) ListIssues(ctx context.Context, projectID string) ([]*models.Issue, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, project_id, title, status, priority, created_at FROM issues WHERE project_id = ?
		ORDER BY
			CASE status WHEN 'Open' THEN 0 WHEN 'In Progress' THEN 1 WHEN 'Resolved' THEN 2 WHEN 'Closed' THEN 3 ELSE 4 END,
			CASE priority WHEN 'Urgent' THEN 0 WHEN 'High' THEN 1 WHEN 'Medium' THEN 2 WHEN 'Low' THEN 3 ELSE 4 END,
			created_at DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var issues []*models.Issue
	for rows.Next() {
		issue := &models.Issue{}
		var status, priority string
		if err := rows.Scan(&issue.ID, &issue.ProjectID, &issue.Title, &status, &priority, &issue.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan issue: %w", err)
		}
		issue.Status = models.IssueStatus(status)
		issue.Priority = models.Priority(priority)
		issues = append(issues, issue)
	}
	return issues, rows.Err()
}

// --- Sprints ---

func (s *SQLiteStore) CreateSprint(ctx context.Context, sp *models.Sprint) error {
	if sp.ID == "" {
		sp.ID = newULID()
	}
	if sp.Status == "" {
		sp.Status = models.SprintPlanned
	}
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO sprints (id, project_id, name, status, start_date, end_date) VALUES (?, ?, ?, ?, ?, ?)`,
		sp.ID, sp.ProjectID, sp.Name, string(sp.Status), int64(sp.StartDate), int64(sp.EndDate),
	)
	if err != nil {
		return fmt.Errorf("create sprint: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListSprints(ctx context.Context, projectID string) ([]*models.Sprint, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, project_id, name, status, start_date, end_date FROM sprints WHERE project_id = ? ORDER BY start_date, id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list sprints: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*models.Sprint
	for rows.Next() {
		sp := &models.Sprint{}
		var status string
		if err := rows.Scan(&sp.ID, &sp.ProjectID, &sp.Name, &status, &sp.StartDate, &sp.EndDate); err != nil {
			return nil, fmt.Errorf("scan sprint: %w", err)
		}
		sp.Status = models.SprintStatus(status)
		out = append(out, sp)
	}
	return out, rows.Err()
}

// --- Activities ---

func (s *SQLiteStore) CreateActivity(ctx context.Context, a *models.Activity) error {
	if a.ID == "" {
		a.ID = newULID()
	}
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO activities (id, project_id, kind, message, created_at) VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.ProjectID, a.Kind, a.Message, int64(a.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("create activity: %w", err)
	}
	return nil
}

// ListActivities returns the newest activities first. limit <= 0 returns all.
func (s *SQLiteStore) ListActivities(ctx context.Context, projectID string, limit int) ([]*models.Activity, error) {
	query := `SELECT id, project_id, kind, message, created_at FROM activities WHERE project_id = ? ORDER BY created_at DESC, id DESC`
	args := []any{projectID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*models.Activity
	for rows.Next() {
		a := &models.Activity{}
		if err := rows.Scan(&a.ID, &a.ProjectID, &a.Kind, &a.Message, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// --- Health snapshots ---

const snapshotColumns = `id, project_id, score, status, trend, payload, computed_at`

func scanSnapshot(row rowScanner) (*models.HealthSnapshot, error) {
	snap := &models.HealthSnapshot{}
	if err := row.Scan(&snap.ID, &snap.ProjectID, &snap.Score, &snap.Status, &snap.Trend, &snap.Payload, &snap.ComputedAt); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *SQLiteStore) SaveHealthSnapshot(ctx context.Context, snap *models.HealthSnapshot) error {
	if snap.ID == "" {
		snap.ID = newULID()
	}
	if snap.ComputedAt == 0 {
		snap.ComputedAt = timeutil.Now()
	}
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO health_snapshots (`+snapshotColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.ProjectID, snap.Score, snap.Status, snap.Trend, snap.Payload, int64(snap.ComputedAt),
	)
	if err != nil {
		return fmt.Errorf("save health snapshot: %w", err)
	}
	return nil
}

// ListHealthSnapshots returns a project's snapshots, newest first.
func (s *SQLiteStore) ListHealthSnapshots(ctx context.Context, projectID string, limit int) ([]*models.HealthSnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM health_snapshots WHERE project_id = ? ORDER BY computed_at DESC, id DESC`
	args := []any{projectID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list health snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*models.HealthSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan health snapshot: %w", err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// LatestHealthSnapshots returns the most recent snapshot per project, keyed
// by project id.
func (s *SQLiteStore) LatestHealthSnapshots(ctx context.Context) (map[string]*models.HealthSnapshot, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+snapshotColumns+` FROM health_snapshots hs
		WHERE computed_at = (SELECT MAX(computed_at) FROM health_snapshots WHERE project_id = hs.project_id)
		ORDER BY project_id, id`)
	if err != nil {
		return nil, fmt.Errorf("latest health snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]*models.HealthSnapshot)
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan health snapshot: %w", err)
		}
		out[snap.ProjectID] = snap
	}
	return out, rows.Err()
}
