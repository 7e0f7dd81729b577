package scoring

import (
	"fmt"

	"github.com/veridianlabs/hipaascope/internal/models"
)

// TrendAnalyzer compares scan results over time.
type TrendAnalyzer struct{}

// NewTrendAnalyzer creates a trend analyzer.
func NewTrendAnalyzer() *TrendAnalyzer {
	return &TrendAnalyzer{}
}

// CalculateTrend compares the current result with the previous one.
// Returns nil when there is nothing to compare against.
func (t *TrendAnalyzer) CalculateTrend(current, previous *models.ScanResult) *models.Trend {
	if previous == nil {
		return nil
	}

	currentOpen := current.Stats.OpenFindings
	previousOpen := previous.Stats.OpenFindings

	trend := &models.Trend{
		PreviousOpen:  previousOpen,
		CurrentOpen:   currentOpen,
		PreviousScore: previous.RiskScore,
		CurrentScore:  current.RiskScore,
		ComparedWith:  previous.Timestamp,
	}

	change := currentOpen - previousOpen
	if previousOpen > 0 {
		trend.ChangePercent = float64(change) / float64(previousOpen) * 100.0
	} else if currentOpen > 0 {
		trend.ChangePercent = 100.0
	}

	switch {
	case change < 0:
		trend.Direction = "improving"
	case change > 0:
		trend.Direction = "degrading"
	default:
		trend.Direction = "stable"
	}

	// New/resolved come from identity, not from the raw delta: a run
	// can introduce and resolve findings at the same time.
	previousIDs := make(map[string]bool, len(previous.Findings))
	for _, f := range previous.Findings {
		if f.Status == models.StatusOpen {
			previousIDs[f.FindingID] = true
		}
	}
	for _, f := range current.Findings {
		if f.Status == models.StatusOpen && !previousIDs[f.FindingID] {
			trend.NewFindings++
		}
	}
	currentOpenIDs := make(map[string]bool, len(current.Findings))
	for _, f := range current.Findings {
		if f.Status == models.StatusOpen {
			currentOpenIDs[f.FindingID] = true
		}
	}
	for id := range previousIDs {
		if !currentOpenIDs[id] {
			trend.ResolvedFindings++
		}
	}

	return trend
}

// AnalyzeRuns builds a historical summary across stored runs, oldest
// first. Returns nil for an empty history.
func (t *TrendAnalyzer) AnalyzeRuns(runs []*models.ScanResult) *models.TrendSummary {
	if len(runs) == 0 {
		return nil
	}

	summary := &models.TrendSummary{
		RunsAnalyzed: len(runs),
		ByCategory:   make(map[string]*models.CategoryTrend),
	}

	if len(runs) > 1 {
		earliest := runs[0].Timestamp
		latest := runs[len(runs)-1].Timestamp
		days := int(latest.Sub(earliest).Hours() / 24)
		summary.TimeRange = fmt.Sprintf("Last %d days", days)
	} else {
		summary.TimeRange = "Single run"
	}

	summary.ScoreSparkline = make([]float64, len(runs))
	summary.OpenSparkline = make([]int, len(runs))
	for i, run := range runs {
		summary.ScoreSparkline[i] = run.RiskScore
		summary.OpenSparkline[i] = run.Stats.OpenFindings
	}

	if len(runs) >= 2 {
		t.categoryTrends(runs[0], runs[len(runs)-1], summary)
	}
	return summary
}

// categoryTrends compares open counts per safeguard category between
// the earliest and latest runs.
func (t *TrendAnalyzer) categoryTrends(earliest, latest *models.ScanResult, summary *models.TrendSummary) {
	countByCategory := func(r *models.ScanResult) map[string]int {
		out := make(map[string]int)
		for _, f := range r.Findings {
			if f.Status == models.StatusOpen {
				out[f.Category]++
			}
		}
		return out
	}

	earliestCounts := countByCategory(earliest)
	latestCounts := countByCategory(latest)

	all := make(map[string]bool)
	for c := range earliestCounts {
		all[c] = true
	}
	for c := range latestCounts {
		all[c] = true
	}

	for category := range all {
		previous := earliestCounts[category]
		current := latestCounts[category]
		change := current - previous

		changePercent := 0.0
		if previous > 0 {
			changePercent = float64(change) / float64(previous) * 100.0
		} else if current > 0 {
			changePercent = 100.0
		}

		summary.ByCategory[category] = &models.CategoryTrend{
			Name:          category,
			CurrentOpen:   current,
			PreviousOpen:  previous,
			Change:        change,
			ChangePercent: changePercent,
		}
	}
}

// TrendIndicator returns a visual marker for a trend direction.
func TrendIndicator(direction string) string {
	switch direction {
	case "improving":
		return "↓"
	case "degrading":
		return "↑"
	case "stable":
		return "→"
	default:
		return "?"
	}
}
