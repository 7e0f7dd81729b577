package scoring

import (
	"testing"
	"time"

	"github.com/veridianlabs/hipaascope/internal/models"
)

func counts(critical, high, medium, low int) map[string]int {
	return map[string]int{
		models.SeverityCritical: critical,
		models.SeverityHigh:     high,
		models.SeverityMedium:   medium,
		models.SeverityLow:      low,
	}
}

func TestScoreFormula(t *testing.T) {
	tests := []struct {
		name   string
		counts map[string]int
		want   float64
	}{
		{"empty", counts(0, 0, 0, 0), 0},
		{"one of each", counts(1, 1, 1, 1), 37.5},
		{"two criticals", counts(2, 0, 0, 0), 50},
		{"lows round up slowly", counts(0, 0, 0, 3), 1.5},
		{"clamped at cap", counts(10, 10, 10, 10), 100},
		{"exactly at cap", counts(4, 0, 0, 0), 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultWeights.Score(tt.counts); got != tt.want {
				t.Errorf("Score(%v) = %v, want %v", tt.counts, got, tt.want)
			}
		})
	}
}

func TestScoreMonotonicInSeverity(t *testing.T) {
	// Adding a finding never lowers the score below cap.
	base := DefaultWeights.Score(counts(1, 2, 3, 4))
	withMore := DefaultWeights.Score(counts(1, 3, 3, 4))
	if withMore <= base {
		t.Errorf("adding a high finding should raise the score: %v -> %v", base, withMore)
	}
}

func TestApplyCountsOnlyOpenFindings(t *testing.T) {
	s := NewScorer(Weights{}, Thresholds{}, ImpactTable{})
	result := &models.ScanResult{
		Findings: []models.Finding{
			{FindingID: "a", Severity: models.SeverityCritical, Status: models.StatusOpen},
			{FindingID: "b", Severity: models.SeverityCritical, Status: models.StatusResolved},
			{FindingID: "c", Severity: models.SeverityMedium, Status: models.StatusOpen},
		},
	}

	s.Apply(result)

	if result.SeverityCounts[models.SeverityCritical] != 1 {
		t.Errorf("resolved critical leaked into counts: %v", result.SeverityCounts)
	}
	if result.Stats.OpenFindings != 2 || result.Stats.ResolvedFindings != 1 {
		t.Errorf("stats = %+v", result.Stats)
	}

	// Conservation: counts sum to open findings.
	sum := 0
	for _, n := range result.SeverityCounts {
		sum += n
	}
	if sum != result.Stats.OpenFindings {
		t.Errorf("severity counts sum %d != open findings %d", sum, result.Stats.OpenFindings)
	}

	if result.RiskScore != 27 {
		t.Errorf("risk score = %v, want 27", result.RiskScore)
	}
}

func TestComplianceVerdict(t *testing.T) {
	s := NewScorer(Weights{}, Thresholds{}, ImpactTable{})

	tests := []struct {
		name    string
		counts  map[string]int
		partial bool
		want    string
	}{
		{"clean", counts(0, 0, 0, 0), false, models.ComplianceCompliant},
		{"one critical fails regardless of score", counts(1, 0, 0, 0), false, models.ComplianceNonCompliant},
		{"score over threshold without criticals", counts(0, 6, 0, 0), false, models.ComplianceNonCompliant},
		{"score at threshold passes", counts(0, 5, 0, 0), false, models.ComplianceCompliant},
		{"partial scan is unknown even when clean", counts(0, 0, 0, 0), true, models.ComplianceUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := s.Weights.Score(tt.counts)
			if got := s.status(tt.counts, score, tt.partial); got != tt.want {
				t.Errorf("status = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestImpactSummary(t *testing.T) {
	table := DefaultImpactTable()

	impact := table.Summarize(counts(2, 1, 0, 0))
	if impact.RevenueAtRiskMonthly != 110000 {
		t.Errorf("revenue at risk = %v, want 110000", impact.RevenueAtRiskMonthly)
	}
	if impact.FineExposure != "$10k-$100k per violation category (reasonable cause tier)" {
		t.Errorf("fine exposure = %q", impact.FineExposure)
	}

	severe := table.Summarize(counts(3, 0, 0, 0))
	if severe.FineExposure != "$100k-$1.5M per violation category (willful neglect tier)" {
		t.Errorf("three criticals should reach the willful neglect band, got %q", severe.FineExposure)
	}

	clean := table.Summarize(counts(0, 0, 0, 0))
	if clean.FineExposure != "minimal" || clean.RemediationInvestment != "none required" {
		t.Errorf("clean scan impact = %+v", clean)
	}
}

func TestExplainMatchesScore(t *testing.T) {
	s := NewScorer(Weights{}, Thresholds{}, ImpactTable{})
	result := &models.ScanResult{
		SeverityCounts: counts(2, 1, 4, 0),
	}

	ex := s.Explain(result)
	if ex.Score != s.Weights.Score(result.SeverityCounts) {
		t.Errorf("explain score %v disagrees with formula %v", ex.Score, s.Weights.Score(result.SeverityCounts))
	}
	if ex.RawScore != 68 {
		t.Errorf("raw score = %v, want 68", ex.RawScore)
	}
	if ex.Clamped {
		t.Error("68 points should not be clamped")
	}
	if ex.Status != models.ComplianceNonCompliant {
		t.Errorf("status = %q", ex.Status)
	}

	total := 0.0
	for _, c := range ex.Contributions {
		total += c.Points
	}
	if total != ex.RawScore {
		t.Errorf("contributions sum %v != raw score %v", total, ex.RawScore)
	}
}

func TestExplainClampedScore(t *testing.T) {
	s := NewScorer(Weights{}, Thresholds{}, ImpactTable{})
	ex := s.Explain(&models.ScanResult{SeverityCounts: counts(10, 0, 0, 0)})
	if !ex.Clamped {
		t.Error("250 raw points should report clamping")
	}
	if ex.Score != 100 {
		t.Errorf("score = %v, want 100", ex.Score)
	}
}

func TestCalculateTrend(t *testing.T) {
	analyzer := NewTrendAnalyzer()
	previousTime := time.Date(2026, 8, 19, 9, 0, 0, 0, time.UTC)

	previous := &models.ScanResult{
		Timestamp: previousTime,
		RiskScore: 60,
		Findings: []models.Finding{
			{FindingID: "f1", Status: models.StatusOpen},
			{FindingID: "f2", Status: models.StatusOpen},
			{FindingID: "f3", Status: models.StatusOpen},
			{FindingID: "f4", Status: models.StatusOpen},
		},
		Stats: models.ScanStats{OpenFindings: 4},
	}
	current := &models.ScanResult{
		RiskScore: 35,
		Findings: []models.Finding{
			{FindingID: "f1", Status: models.StatusOpen},
			{FindingID: "f5", Status: models.StatusOpen},
			{FindingID: "f2", Status: models.StatusResolved},
		},
		Stats: models.ScanStats{OpenFindings: 2},
	}

	trend := analyzer.CalculateTrend(current, previous)
	if trend == nil {
		t.Fatal("expected a trend")
	}
	if trend.Direction != "improving" {
		t.Errorf("direction = %q", trend.Direction)
	}
	if trend.ChangePercent != -50 {
		t.Errorf("change percent = %v, want -50", trend.ChangePercent)
	}
	if trend.NewFindings != 1 {
		t.Errorf("new findings = %d, want 1 (f5)", trend.NewFindings)
	}
	if trend.ResolvedFindings != 3 {
		t.Errorf("resolved findings = %d, want 3 (f2, f3, f4)", trend.ResolvedFindings)
	}
	if !trend.ComparedWith.Equal(previousTime) {
		t.Errorf("compared with %v", trend.ComparedWith)
	}
}

func TestCalculateTrendNoPrevious(t *testing.T) {
	if trend := NewTrendAnalyzer().CalculateTrend(&models.ScanResult{}, nil); trend != nil {
		t.Errorf("first scan should have no trend, got %+v", trend)
	}
}

func TestAnalyzeRuns(t *testing.T) {
	analyzer := NewTrendAnalyzer()
	base := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)

	runs := []*models.ScanResult{
		{
			Timestamp: base,
			RiskScore: 80,
			Findings: []models.Finding{
				{FindingID: "a", Category: models.CategoryTechnical, Status: models.StatusOpen},
				{FindingID: "b", Category: models.CategoryTechnical, Status: models.StatusOpen},
				{FindingID: "c", Category: models.CategoryAdministrative, Status: models.StatusOpen},
			},
			Stats: models.ScanStats{OpenFindings: 3},
		},
		{
			Timestamp: base.Add(5 * 24 * time.Hour),
			RiskScore: 40,
			Findings: []models.Finding{
				{FindingID: "a", Category: models.CategoryTechnical, Status: models.StatusOpen},
			},
			Stats: models.ScanStats{OpenFindings: 1},
		},
	}

	summary := analyzer.AnalyzeRuns(runs)
	if summary == nil {
		t.Fatal("expected a summary")
	}
	if summary.TimeRange != "Last 5 days" {
		t.Errorf("time range = %q", summary.TimeRange)
	}
	if len(summary.ScoreSparkline) != 2 || summary.ScoreSparkline[0] != 80 || summary.ScoreSparkline[1] != 40 {
		t.Errorf("score sparkline = %v", summary.ScoreSparkline)
	}
	if summary.OpenSparkline[1] != 1 {
		t.Errorf("open sparkline = %v", summary.OpenSparkline)
	}

	tech := summary.ByCategory[models.CategoryTechnical]
	if tech == nil || tech.Change != -1 || tech.ChangePercent != -50 {
		t.Errorf("technical trend = %+v", tech)
	}
	admin := summary.ByCategory[models.CategoryAdministrative]
	if admin == nil || admin.CurrentOpen != 0 || admin.PreviousOpen != 1 {
		t.Errorf("administrative trend = %+v", admin)
	}
}

func TestAnalyzeRunsEmpty(t *testing.T) {
	if s := NewTrendAnalyzer().AnalyzeRuns(nil); s != nil {
		t.Errorf("empty history should yield nil, got %+v", s)
	}
}
