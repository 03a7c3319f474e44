package health

import (
	"math"

	"github.com/joescharf/pulse/internal/models"
)

// CalculateWorkspaceHealth rolls project health up into one weighted
// workspace score. Projects missing from healthMap are skipped.
func CalculateWorkspaceHealth(projects []*models.Project, healthMap map[string]*ProjectHealth) WorkspaceHealth {
	if len(projects) == 0 {
		return WorkspaceHealth{Status: StatusNormal, Trend: TrendStable}
	}

	var (
		bd                   Breakdown
		weighted, weightSum  float64
		declining, improving int
	)
	for _, p := range projects {
		h, ok := healthMap[p.ID]
		if !ok || h == nil {
			continue
		}
		bd.Total++

		weight := 1.0
		switch h.Status {
		case StatusCritical:
			bd.Critical++
			weight = 3
		case StatusWarning:
			bd.Warning++
			weight = 2
		case StatusExcellent:
			bd.Excellent++
		case StatusHealthy:
			bd.Healthy++
		default:
			bd.Normal++
		}
		// Pre-execution projects replace the status weight rather than scale it.
		if p.Status.IsPreExecution() {
			weight = 0.5
		}
		if p.Priority == models.PriorityUrgent {
			weight *= 1.5
		}
		weighted += float64(h.Score) * weight
		weightSum += weight

		switch h.Trend {
		case TrendDeclining:
			declining++
		case TrendImproving:
			improving++
		}
	}

	score := 0
	if weightSum > 0 {
		score = int(math.Round(weighted / weightSum))
	}
	status := ClassifyScore(score)
	if bd.Total > 0 && float64(bd.Critical)/float64(bd.Total) > 0.2 && score > 49 {
		status = StatusWarning
	}

	trend := TrendStable
	switch {
	case declining > improving:
		trend = TrendDeclining
	case improving > declining:
		trend = TrendImproving
	}

	return WorkspaceHealth{Score: score, Status: status, Breakdown: bd, Trend: trend}
}
