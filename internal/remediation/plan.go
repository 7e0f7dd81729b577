package remediation

import (
	"sort"

	"github.com/veridianlabs/hipaascope/internal/models"
)

// quickWinMaxHours bounds what counts as a quick win.
const quickWinMaxHours = 4

// Roadmap buckets open findings into remediation time horizons.
type Roadmap struct {
	Immediate []RoadmapItem `json:"immediate"`  // critical: start now
	ThisWeek  []RoadmapItem `json:"this_week"`  // high
	ThisMonth []RoadmapItem `json:"this_month"` // medium
	Quarterly []RoadmapItem `json:"quarterly"`  // low
	QuickWins []RoadmapItem `json:"quick_wins"` // any severity, effort <= 4h
}

// RoadmapItem pairs a finding with its resolved plan.
type RoadmapItem struct {
	Finding models.Finding `json:"finding"`
	Plan    models.Plan    `json:"plan"`
}

// BuildPlan groups open findings into the roadmap. Findings without an
// advisory entry still land in a bucket, carrying the pending plan.
// Resolved findings are skipped.
func (a *Advisor) BuildPlan(findings []models.Finding) *Roadmap {
	roadmap := &Roadmap{}

	for _, f := range findings {
		if f.Status != models.StatusOpen {
			continue
		}

		plan, _ := a.Advise(f.RuleID)
		item := RoadmapItem{Finding: f, Plan: plan}

		switch f.Severity {
		case models.SeverityCritical:
			roadmap.Immediate = append(roadmap.Immediate, item)
		case models.SeverityHigh:
			roadmap.ThisWeek = append(roadmap.ThisWeek, item)
		case models.SeverityMedium:
			roadmap.ThisMonth = append(roadmap.ThisMonth, item)
		default:
			roadmap.Quarterly = append(roadmap.Quarterly, item)
		}

		if !plan.Pending && plan.EffortHours > 0 && plan.EffortHours <= quickWinMaxHours {
			roadmap.QuickWins = append(roadmap.QuickWins, item)
		}
	}

	// Cheapest first: quick wins are ordered by effort, then severity.
	sort.SliceStable(roadmap.QuickWins, func(i, j int) bool {
		a, b := roadmap.QuickWins[i], roadmap.QuickWins[j]
		if a.Plan.EffortHours != b.Plan.EffortHours {
			return a.Plan.EffortHours < b.Plan.EffortHours
		}
		return models.SeverityRank(a.Finding.Severity) > models.SeverityRank(b.Finding.Severity)
	})

	return roadmap
}

// TotalItems counts findings across the time-horizon buckets. Quick
// wins overlap the others and are not counted again.
func (r *Roadmap) TotalItems() int {
	return len(r.Immediate) + len(r.ThisWeek) + len(r.ThisMonth) + len(r.Quarterly)
}
