package scoring

import (
	"fmt"

	"github.com/veridianlabs/hipaascope/internal/models"
)

// Explanation shows step by step how a stored result's score and
// compliance verdict were derived, for the explain-score command.
type Explanation struct {
	Contributions []Contribution `json:"contributions"`
	RawScore      float64        `json:"raw_score"`
	Cap           float64        `json:"cap"`
	Clamped       bool           `json:"clamped"`
	Score         float64        `json:"score"`
	Formula       string         `json:"formula"`
	Threshold     float64        `json:"threshold"`
	CriticalCount int            `json:"critical_count"`
	Partial       bool           `json:"partial"`
	Status        string         `json:"status"`
	StatusReason  string         `json:"status_reason"`
}

// Explain rebuilds the derivation from a result's severity counts. It
// recomputes rather than trusting the stored score, so a weights change
// since the scan shows up as a discrepancy the caller can surface.
func (s *Scorer) Explain(result *models.ScanResult) Explanation {
	counts := result.SeverityCounts
	if counts == nil {
		counts = map[string]int{}
	}

	contribs := s.Weights.Contributions(counts)
	raw := 0.0
	for _, c := range contribs {
		raw += c.Points
	}

	ex := Explanation{
		Contributions: contribs,
		RawScore:      raw,
		Cap:           s.Weights.Cap,
		Clamped:       raw > s.Weights.Cap,
		Score:         s.Weights.Score(counts),
		Threshold:     s.Thresholds.NonCompliantScore,
		CriticalCount: counts[models.SeverityCritical],
		Partial:       result.Partial,
	}
	ex.Formula = fmt.Sprintf("%d*%.1f + %d*%.1f + %d*%.1f + %d*%.1f = %.1f",
		counts[models.SeverityCritical], s.Weights.Critical,
		counts[models.SeverityHigh], s.Weights.High,
		counts[models.SeverityMedium], s.Weights.Medium,
		counts[models.SeverityLow], s.Weights.Low,
		raw)

	ex.Status = s.status(counts, ex.Score, result.Partial)
	switch {
	case result.Partial:
		ex.StatusReason = "scan was partial, verdict withheld"
	case ex.CriticalCount > 0:
		ex.StatusReason = fmt.Sprintf("%d critical finding(s) open", ex.CriticalCount)
	case ex.Score > s.Thresholds.NonCompliantScore:
		ex.StatusReason = fmt.Sprintf("score %.1f exceeds threshold %.1f", ex.Score, s.Thresholds.NonCompliantScore)
	default:
		ex.StatusReason = fmt.Sprintf("no criticals and score %.1f within threshold %.1f", ex.Score, s.Thresholds.NonCompliantScore)
	}
	return ex
}
