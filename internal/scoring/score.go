package scoring

import (
	"github.com/veridianlabs/hipaascope/internal/models"
)

// Weights drive the risk score formula:
//
//	score = min(cap, critical*Wc + high*Wh + medium*Wm + low*Wl)
//
// The table is configuration, not code: tests and the explain-score
// command exercise it in isolation.
type Weights struct {
	Critical float64 `mapstructure:"critical" yaml:"critical"`
	High     float64 `mapstructure:"high" yaml:"high"`
	Medium   float64 `mapstructure:"medium" yaml:"medium"`
	Low      float64 `mapstructure:"low" yaml:"low"`
	Cap      float64 `mapstructure:"cap" yaml:"cap"`
}

// DefaultWeights is the documented baseline formula.
var DefaultWeights = Weights{Critical: 25, High: 10, Medium: 2, Low: 0.5, Cap: 100}

// Thresholds decide the compliance verdict.
type Thresholds struct {
	// NonCompliantScore marks the scan non-compliant when exceeded,
	// even with zero critical findings.
	NonCompliantScore float64 `mapstructure:"score_threshold" yaml:"score_threshold"`
}

// DefaultThresholds is the shipped verdict configuration.
var DefaultThresholds = Thresholds{NonCompliantScore: 50}

// Score computes the weighted, clamped risk score from severity counts.
// Pure function of the counts: no timestamps, no randomness.
func (w Weights) Score(counts map[string]int) float64 {
	score := float64(counts[models.SeverityCritical])*w.Critical +
		float64(counts[models.SeverityHigh])*w.High +
		float64(counts[models.SeverityMedium])*w.Medium +
		float64(counts[models.SeverityLow])*w.Low
	if score > w.Cap {
		return w.Cap
	}
	if score < 0 {
		return 0
	}
	return score
}

// Contribution is one severity's share of the score, for explain output.
type Contribution struct {
	Severity string  `json:"severity"`
	Count    int     `json:"count"`
	Weight   float64 `json:"weight"`
	Points   float64 `json:"points"`
}

// Contributions breaks the score down per severity, most severe first.
func (w Weights) Contributions(counts map[string]int) []Contribution {
	weightOf := map[string]float64{
		models.SeverityCritical: w.Critical,
		models.SeverityHigh:     w.High,
		models.SeverityMedium:   w.Medium,
		models.SeverityLow:      w.Low,
	}
	out := make([]Contribution, 0, len(models.AllSeverities))
	for _, sev := range models.AllSeverities {
		out = append(out, Contribution{
			Severity: sev,
			Count:    counts[sev],
			Weight:   weightOf[sev],
			Points:   float64(counts[sev]) * weightOf[sev],
		})
	}
	return out
}

// Scorer finalizes a scan result: severity counts over open findings,
// risk score, compliance verdict, and business-impact rollup.
type Scorer struct {
	Weights    Weights
	Thresholds Thresholds
	Impact     ImpactTable
}

// NewScorer fills zero-value configuration with the documented defaults.
func NewScorer(w Weights, t Thresholds, impact ImpactTable) *Scorer {
	if w == (Weights{}) {
		w = DefaultWeights
	}
	if t == (Thresholds{}) {
		t = DefaultThresholds
	}
	if impact.IsZero() {
		impact = DefaultImpactTable()
	}
	return &Scorer{Weights: w, Thresholds: t, Impact: impact}
}

// Apply computes the derived fields on a result whose findings are
// final. Resolved findings never feed the current counts or score.
func (s *Scorer) Apply(result *models.ScanResult) {
	counts := map[string]int{
		models.SeverityCritical: 0,
		models.SeverityHigh:     0,
		models.SeverityMedium:   0,
		models.SeverityLow:      0,
	}
	open, resolved := 0, 0
	for _, f := range result.Findings {
		if f.Status != models.StatusOpen {
			resolved++
			continue
		}
		open++
		counts[f.Severity]++
	}

	result.SeverityCounts = counts
	result.RiskScore = s.Weights.Score(counts)
	result.ComplianceStatus = s.status(counts, result.RiskScore, result.Partial)
	result.Impact = s.Impact.Summarize(counts)
	result.Stats.OpenFindings = open
	result.Stats.ResolvedFindings = resolved
}

// status derives the compliance verdict. A partial scan is "unknown":
// an incomplete inventory must never read as a false "compliant".
func (s *Scorer) status(counts map[string]int, score float64, partial bool) string {
	if partial {
		return models.ComplianceUnknown
	}
	if counts[models.SeverityCritical] > 0 || score > s.Thresholds.NonCompliantScore {
		return models.ComplianceNonCompliant
	}
	return models.ComplianceCompliant
}
