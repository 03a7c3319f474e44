package store

import (
	"context"
	"errors"

	"github.com/joescharf/pulse/internal/models"
)

// ErrNotFound is wrapped by lookups that match no row.
var ErrNotFound = errors.New("not found")

// Store defines the persistence interface for pulse.
type Store interface {
	// Projects
	CreateProject(ctx context.Context, p *models.Project) error
	GetProject(ctx context.Context, id string) (*models.Project, error)
	GetProjectByName(ctx context.Context, name string) (*models.Project, error)
	ListProjects(ctx context.Context, status models.ProjectStatus) ([]*models.Project, error)
	UpdateProject(ctx context.Context, p *models.Project) error
	DeleteProject(ctx context.Context, id string) error

	// Project entities
	CreateTask(ctx context.Context, t *models.Task) error
	ListTasks(ctx context.Context, projectID string) ([]*models.Task, error)
	CreateMilestone(ctx context.Context, m *models.Milestone) error
	ListMilestones(ctx context.Context, projectID string) ([]*models.Milestone, error)
	CreateIssue(ctx context.Context, issue *models.Issue) error
	ListIssues(ctx context.Context, projectID string) ([]*models.Issue, error)
	CreateSprint(ctx context.Context, sp *models.Sprint) error
	ListSprints(ctx context.Context, projectID string) ([]*models.Sprint, error)
	CreateActivity(ctx context.Context, a *models.Activity) error
	ListActivities(ctx context.Context, projectID string, limit int) ([]*models.Activity, error)

	// Health snapshots
	SaveHealthSnapshot(ctx context.Context, snap *models.HealthSnapshot) error
	ListHealthSnapshots(ctx context.Context, projectID string, limit int) ([]*models.HealthSnapshot, error)
	LatestHealthSnapshots(ctx context.Context) (map[string]*models.HealthSnapshot, error)

	// WithTx runs fn against a store bound to one transaction.
	WithTx(ctx context.Context, fn func(Store) error) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
