// Package refresh recomputes project health from the store and records
// snapshots of the results.
package refresh

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/joescharf/pulse/internal/health"
	"github.com/joescharf/pulse/internal/models"
	"github.com/joescharf/pulse/internal/store"
)

// DefaultWorkers bounds concurrent project evaluations in All.
const DefaultWorkers = 4

// Result holds the outcome of refreshing a single project.
type Result struct {
	Name          string        `json:"name"`
	ProjectID     string        `json:"projectId"`
	Score         int           `json:"score"`
	Status        health.Status `json:"status"`
	PreviousScore int           `json:"previousScore"`
	Changed       bool          `json:"changed"`
	Error         string        `json:"error,omitempty"`
}

// Entry pairs a project with its freshly computed assessment.
type Entry struct {
	Project    *models.Project
	Assessment health.Assessment
}

// AllResult holds the outcome of refreshing all projects.
type AllResult struct {
	Refreshed int                    `json:"refreshed"`
	Total     int                    `json:"total"`
	Failed    int                    `json:"failed"`
	Results   []Result               `json:"results"`
	Workspace health.WorkspaceHealth `json:"workspace"`
	Entries   []Entry                `json:"-"`
}

// Options controls All.
type Options struct {
	// Workers bounds concurrency; <= 0 means DefaultWorkers.
	Workers int
	// Persist records a health snapshot per project.
	Persist bool
}

// Load reads everything the scorer needs for p.
func Load(ctx context.Context, s store.Store, p *models.Project) (health.Input, error) {
	in := health.Input{Project: p}
	var err error
	if in.Tasks, err = s.ListTasks(ctx, p.ID); err != nil {
		return in, err
	}
	if in.Milestones, err = s.ListMilestones(ctx, p.ID); err != nil {
		return in, err
	}
	if in.Issues, err = s.ListIssues(ctx, p.ID); err != nil {
		return in, err
	}
	if in.Sprints, err = s.ListSprints(ctx, p.ID); err != nil {
		return in, err
	}
	if in.Activities, err = s.ListActivities(ctx, p.ID, 0); err != nil {
		return in, err
	}
	return in, nil
}

// Assess loads p and scores it without persisting anything.
func Assess(ctx context.Context, s store.Store, sc *health.Scorer, p *models.Project) (health.Assessment, error) {
	in, err := Load(ctx, s, p)
	if err != nil {
		return health.Assessment{}, fmt.Errorf("load %s: %w", p.Name, err)
	}
	return sc.Assess(in), nil
}

// Snapshot converts a computed health into its stored form.
func Snapshot(projectID string, h health.ProjectHealth) (*models.HealthSnapshot, error) {
	payload, err := json.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("encode health: %w", err)
	}
	return &models.HealthSnapshot{
		ProjectID:  projectID,
		Score:      h.Score,
		Status:     string(h.Status),
		Trend:      string(h.Trend),
		Payload:    payload,
		ComputedAt: h.LastUpdated,
	}, nil
}

// DecodeSnapshot restores the full health stored in a snapshot.
func DecodeSnapshot(snap *models.HealthSnapshot) (health.ProjectHealth, error) {
	var h health.ProjectHealth
	if len(snap.Payload) == 0 {
		h.Score = snap.Score
		h.Status = health.Status(snap.Status)
		h.Trend = health.Trend(snap.Trend)
		h.LastUpdated = snap.ComputedAt
		return h, nil
	}
	if err := json.Unmarshal(snap.Payload, &h); err != nil {
		return h, fmt.Errorf("decode snapshot %s: %w", snap.ID, err)
	}
	return h, nil
}

// Project scores p and records a snapshot.
func Project(ctx context.Context, s store.Store, sc *health.Scorer, p *models.Project) (health.Assessment, error) {
	a, err := Assess(ctx, s, sc, p)
	if err != nil {
		return a, err
	}
	snap, err := Snapshot(p.ID, a.Health)
	if err != nil {
		return a, err
	}
	if err := s.SaveHealthSnapshot(ctx, snap); err != nil {
		return a, err
	}
	return a, nil
}

// All scores every project concurrently and rolls the results up into
// workspace health. Per-project failures are reported in the result rather
// than aborting the run.
func All(ctx context.Context, s store.Store, sc *health.Scorer, opts Options) (*AllResult, error) {
	projects, err := s.ListProjects(ctx, "")
	if err != nil {
		return nil, err
	}
	previous, err := s.LatestHealthSnapshots(ctx)
	if err != nil {
		return nil, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	type outcome struct {
		assessment health.Assessment
		err        error
	}
	outcomes := make([]outcome, len(projects))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, p := range projects {
		if ctx.Err() != nil {
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(idx int, p *models.Project) {
			defer wg.Done()
			defer func() { <-sem }()

			var o outcome
			if opts.Persist {
				o.assessment, o.err = Project(ctx, s, sc, p)
			} else {
				o.assessment, o.err = Assess(ctx, s, sc, p)
			}
			outcomes[idx] = o
		}(i, p)
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &AllResult{Total: len(projects)}
	healthMap := make(map[string]*health.ProjectHealth, len(projects))
	for i, p := range projects {
		o := outcomes[i]
		r := Result{Name: p.Name, ProjectID: p.ID}
		if prev, ok := previous[p.ID]; ok {
			r.PreviousScore = prev.Score
			r.Changed = prev.Score != o.assessment.Health.Score || prev.Status != string(o.assessment.Health.Status)
		} else {
			r.Changed = true
		}
		if o.err != nil {
			r.Error = o.err.Error()
			r.Changed = false
			result.Failed++
			result.Results = append(result.Results, r)
			continue
		}
		r.Score = o.assessment.Health.Score
		r.Status = o.assessment.Health.Status
		result.Refreshed++
		result.Results = append(result.Results, r)

		h := o.assessment.Health
		healthMap[p.ID] = &h
		result.Entries = append(result.Entries, Entry{Project: p, Assessment: o.assessment})
	}
	result.Workspace = sc.Workspace(projects, healthMap)
	return result, nil
}

// HealthMap indexes the computed health by project id.
func (r *AllResult) HealthMap() map[string]*health.ProjectHealth {
	out := make(map[string]*health.ProjectHealth, len(r.Entries))
	for i := range r.Entries {
		out[r.Entries[i].Project.ID] = &r.Entries[i].Assessment.Health
	}
	return out
}

// Spotlight ranks the refreshed projects by spotlight score.
func (r *AllResult) Spotlight(limit int) []health.SpotlightEntry {
	entries := make([]health.SpotlightEntry, 0, len(r.Entries))
	for _, e := range r.Entries {
		entries = append(entries, health.SpotlightEntry{Project: e.Project, Spotlight: e.Assessment.Spotlight})
	}
	return health.RankSpotlight(entries, limit)
}
