// Package importer loads workspace documents (YAML or JSON) describing
// projects and their tasks, milestones, issues, sprints and activity.
package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/joescharf/pulse/internal/health"
	"github.com/joescharf/pulse/internal/models"
	"github.com/joescharf/pulse/internal/store"
	"github.com/joescharf/pulse/internal/timeutil"
)

// Format is the encoding of a workspace document.
type Format string

const (
	FormatAuto Format = ""
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath guesses the format from a file extension.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatAuto
	}
}

// Document is a workspace export.
type Document struct {
	Projects []ProjectDoc `yaml:"projects" json:"projects"`
}

// ProjectDoc is one project with its related entities. Timestamps accept
// ISO-8601 strings, epoch milliseconds or {seconds, nanoseconds} objects.
type ProjectDoc struct {
	Name        string          `yaml:"name" json:"name"`
	Description string          `yaml:"description" json:"description"`
	Status      string          `yaml:"status" json:"status"`
	Priority    string          `yaml:"priority" json:"priority"`
	DueDate     timeutil.Millis `yaml:"dueDate" json:"dueDate"`
	StartDate   timeutil.Millis `yaml:"startDate" json:"startDate"`
	Progress    *float64        `yaml:"progress" json:"progress"`
	CreatedAt   timeutil.Millis `yaml:"createdAt" json:"createdAt"`
	UpdatedAt   timeutil.Millis `yaml:"updatedAt" json:"updatedAt"`

	Tasks      []TaskDoc      `yaml:"tasks" json:"tasks"`
	Milestones []MilestoneDoc `yaml:"milestones" json:"milestones"`
	Issues     []IssueDoc     `yaml:"issues" json:"issues"`
	Sprints    []SprintDoc    `yaml:"sprints" json:"sprints"`
	Activities []ActivityDoc  `yaml:"activities" json:"activities"`
}

type TaskDoc struct {
	Title       string          `yaml:"title" json:"title"`
	IsCompleted bool            `yaml:"isCompleted" json:"isCompleted"`
	Status      string          `yaml:"status" json:"status"`
	Priority    string          `yaml:"priority" json:"priority"`
	DueDate     timeutil.Millis `yaml:"dueDate" json:"dueDate"`
	CreatedAt   timeutil.Millis `yaml:"createdAt" json:"createdAt"`
}

type MilestoneDoc struct {
	Title   string          `yaml:"title" json:"title"`
	Status  string          `yaml:"status" json:"status"`
	DueDate timeutil.Millis `yaml:"dueDate" json:"dueDate"`
}

type IssueDoc struct {
	Title     string          `yaml:"title" json:"title"`
	Status    string          `yaml:"status" json:"status"`
	Priority  string          `yaml:"priority" json:"priority"`
	CreatedAt timeutil.Millis `yaml:"createdAt" json:"createdAt"`
}

type SprintDoc struct {
	Name      string          `yaml:"name" json:"name"`
	Status    string          `yaml:"status" json:"status"`
	StartDate timeutil.Millis `yaml:"startDate" json:"startDate"`
	EndDate   timeutil.Millis `yaml:"endDate" json:"endDate"`
}

type ActivityDoc struct {
	Kind      string          `yaml:"kind" json:"kind"`
	Message   string          `yaml:"message" json:"message"`
	CreatedAt timeutil.Millis `yaml:"createdAt" json:"createdAt"`
}

// Parse decodes a workspace document. FormatAuto sniffs JSON by a leading
// '{' and otherwise assumes YAML.
func Parse(data []byte, format Format) (*Document, error) {
	if format == FormatAuto {
		format = FormatYAML
		if t := bytes.TrimSpace(data); len(t) > 0 && t[0] == '{' {
			format = FormatJSON
		}
	}

	var doc Document
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	return &doc, nil
}

// Validate checks names and enum values across the document and reports
// every problem found.
func (d *Document) Validate() error {
	var errs []error
	seen := make(map[string]bool)
	for i, p := range d.Projects {
		path := fmt.Sprintf("projects[%d]", i)
		if strings.TrimSpace(p.Name) == "" {
			errs = append(errs, fmt.Errorf("%s.name: required", path))
		} else if seen[p.Name] {
			errs = append(errs, fmt.Errorf("%s.name: duplicate project %q", path, p.Name))
		}
		seen[p.Name] = true
		if _, err := p.Build(); err != nil {
			errs = append(errs, prefixErrors(path, err)...)
		}
	}
	return errors.Join(errs...)
}

func prefixErrors(path string, err error) []error {
	var joined interface{ Unwrap() []error }
	if !errors.As(err, &joined) {
		return []error{fmt.Errorf("%s.%w", path, err)}
	}
	var out []error
	for _, e := range joined.Unwrap() {
		out = append(out, fmt.Errorf("%s.%w", path, e))
	}
	return out
}

// Build converts the document form into engine input. Enum values are
// parsed case-insensitively; a task whose status is Done counts as completed.
func (p ProjectDoc) Build() (health.Input, error) {
	var errs []error
	field := func(path string, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
		}
	}

	project := &models.Project{
		Name:        p.Name,
		Description: p.Description,
		DueDate:     p.DueDate,
		StartDate:   p.StartDate,
		Progress:    p.Progress,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	var err error
	project.Status, err = models.ParseProjectStatus(p.Status)
	field("status", err)
	project.Priority, err = models.ParsePriority(p.Priority)
	field("priority", err)
	if p.Progress != nil && (*p.Progress < 0 || *p.Progress > 100) {
		field("progress", fmt.Errorf("must be between 0 and 100, got %v", *p.Progress))
	}

	in := health.Input{Project: project}
	for i, t := range p.Tasks {
		task := &models.Task{Title: t.Title, IsCompleted: t.IsCompleted, DueDate: t.DueDate, CreatedAt: t.CreatedAt}
		task.Status, err = models.ParseTaskStatus(t.Status)
		field(fmt.Sprintf("tasks[%d].status", i), err)
		task.Priority, err = models.ParsePriority(t.Priority)
		field(fmt.Sprintf("tasks[%d].priority", i), err)
		if task.Status == models.TaskDone {
			task.IsCompleted = true
		}
		in.Tasks = append(in.Tasks, task)
	}
	for i, m := range p.Milestones {
		ms := &models.Milestone{Title: m.Title, DueDate: m.DueDate}
		ms.Status, err = models.ParseMilestoneStatus(m.Status)
		field(fmt.Sprintf("milestones[%d].status", i), err)
		in.Milestones = append(in.Milestones, ms)
	}
	for i, is := range p.Issues {
		issue := &models.Issue{Title: is.Title, CreatedAt: is.CreatedAt}
		issue.Status, err = models.ParseIssueStatus(is.Status)
		field(fmt.Sprintf("issues[%d].status", i), err)
		issue.Priority, err = models.ParsePriority(is.Priority)
		field(fmt.Sprintf("issues[%d].priority", i), err)
		in.Issues = append(in.Issues, issue)
	}
	for i, s := range p.Sprints {
		sprint := &models.Sprint{Name: s.Name, StartDate: s.StartDate, EndDate: s.EndDate}
		sprint.Status, err = models.ParseSprintStatus(s.Status)
		field(fmt.Sprintf("sprints[%d].status", i), err)
		in.Sprints = append(in.Sprints, sprint)
	}
	for _, a := range p.Activities {
		in.Activities = append(in.Activities, &models.Activity{Kind: a.Kind, Message: a.Message, CreatedAt: a.CreatedAt})
	}

	return in, errors.Join(errs...)
}

// Options controls Import.
type Options struct {
	DryRun bool
	// Replace deletes an existing project of the same name (and everything
	// attached to it) before importing. Otherwise existing projects are skipped.
	Replace bool
}

// Result tallies what an import created (or would create on a dry run).
type Result struct {
	Projects   int
	Tasks      int
	Milestones int
	Issues     int
	Sprints    int
	Activities int
	Replaced   []string
	Skipped    []string
}

// Import validates doc and writes it into st.
func Import(ctx context.Context, st store.Store, doc *Document, opts Options) (*Result, error) {
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid document: %w", err)
	}

	res := &Result{}
	for _, pd := range doc.Projects {
		in, _ := pd.Build()

		existing, err := st.GetProjectByName(ctx, pd.Name)
		switch {
		case err == nil:
			if !opts.Replace {
				res.Skipped = append(res.Skipped, pd.Name)
				continue
			}
			res.Replaced = append(res.Replaced, pd.Name)
		case errors.Is(err, store.ErrNotFound):
			existing = nil
		default:
			return res, fmt.Errorf("lookup %s: %w", pd.Name, err)
		}

		res.Projects++
		res.Tasks += len(in.Tasks)
		res.Milestones += len(in.Milestones)
		res.Issues += len(in.Issues)
		res.Sprints += len(in.Sprints)
		res.Activities += len(in.Activities)
		if opts.DryRun {
			continue
		}

		// A replaced project is only removed once its successor is fully written.
		err = st.WithTx(ctx, func(tx store.Store) error {
			if existing != nil {
				if err := tx.DeleteProject(ctx, existing.ID); err != nil {
					return fmt.Errorf("replace: %w", err)
				}
			}
			return write(ctx, tx, in)
		})
		if err != nil {
			return res, fmt.Errorf("import %s: %w", pd.Name, err)
		}
	}
	return res, nil
}

func write(ctx context.Context, st store.Store, in health.Input) error {
	if err := st.CreateProject(ctx, in.Project); err != nil {
		return err
	}
	id := in.Project.ID
	for _, t := range in.Tasks {
		t.ProjectID = id
		if err := st.CreateTask(ctx, t); err != nil {
			return err
		}
	}
	for _, m := range in.Milestones {
		m.ProjectID = id
		if err := st.CreateMilestone(ctx, m); err != nil {
			return err
		}
	}
	for _, is := range in.Issues {
		is.ProjectID = id
		if err := st.CreateIssue(ctx, is); err != nil {
			return err
		}
	}
	for _, sp := range in.Sprints {
		sp.ProjectID = id
		if err := st.CreateSprint(ctx, sp); err != nil {
			return err
		}
	}
	for _, a := range in.Activities {
		a.ProjectID = id
		if err := st.CreateActivity(ctx, a); err != nil {
			return err
		}
	}
	return nil
}
