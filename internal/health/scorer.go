package health

import (
	"time"

	"github.com/joescharf/pulse/internal/models"
	"github.com/joescharf/pulse/internal/timeutil"
)

// Scorer computes project, spotlight and workspace health. Each call reads
// the clock once and uses that instant for every comparison. A Scorer holds
// no mutable state and is safe for concurrent use.
type Scorer struct {
	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time
	// Location is the zone used for calendar-day comparisons. Defaults to time.Local.
	Location *time.Location
}

// NewScorer returns a Scorer using the wall clock and the local zone.
func NewScorer() *Scorer {
	return &Scorer{Clock: time.Now, Location: time.Local}
}

// Assessment is the combined health and spotlight result for one project.
type Assessment struct {
	Health    ProjectHealth  `json:"health"`
	Spotlight SpotlightScore `json:"spotlight"`
}

func (s *Scorer) now() timeutil.Millis {
	if s.Clock == nil {
		return timeutil.Now()
	}
	return timeutil.FromTime(s.Clock())
}

func (s *Scorer) loc() *time.Location {
	if s.Location == nil {
		return time.Local
	}
	return s.Location
}

// ProjectHealth scores a single project.
func (s *Scorer) ProjectHealth(in Input) ProjectHealth {
	return CalculateProjectHealth(in, s.now(), s.loc())
}

// Spotlight computes a project's spotlight ranking value.
func (s *Scorer) Spotlight(in Input) SpotlightScore {
	return CalculateSpotlightScore(in, s.now(), s.loc())
}

// Assess computes health and spotlight against the same instant.
func (s *Scorer) Assess(in Input) Assessment {
	now := s.now()
	return Assessment{
		Health:    CalculateProjectHealth(in, now, s.loc()),
		Spotlight: CalculateSpotlightScore(in, now, s.loc()),
	}
}

// Workspace rolls up previously computed project health.
func (s *Scorer) Workspace(projects []*models.Project, healthMap map[string]*ProjectHealth) WorkspaceHealth {
	return CalculateWorkspaceHealth(projects, healthMap)
}
