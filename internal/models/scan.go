package models

import "time"

// ScanResult is the complete, immutable output of one evaluation run.
// It is the durable artifact: every report view derives from it without
// re-evaluating rules.
type ScanResult struct {
	ScanID           string         `json:"scan_id"`
	Timestamp        time.Time      `json:"timestamp"`
	Account          AccountMeta    `json:"account,omitempty"`
	CatalogVersion   string         `json:"catalog_version,omitempty"`
	Findings         []Finding      `json:"findings"` // unique by finding_id, resolved history included
	SeverityCounts   map[string]int `json:"severity_counts"`
	RiskScore        float64        `json:"risk_score"` // 0-100
	ComplianceStatus string         `json:"compliance_status"`
	Impact           ImpactSummary  `json:"impact"`
	Stats            ScanStats      `json:"stats"`
	Partial          bool           `json:"partial,omitempty"` // scan timed out or inventory was truncated
	Trend            *Trend         `json:"trend,omitempty"`
}

// ScanStats records what was and wasn't evaluated, for audit trails.
type ScanStats struct {
	AssetCount       int `json:"asset_count"`
	RuleCount        int `json:"rule_count"`
	SkippedRecords   int `json:"skipped_records"`   // raw records that failed normalization
	EvaluationErrors int `json:"evaluation_errors"` // isolated rule/asset failures
	AttributeGaps    int `json:"attribute_gaps"`    // conditions that referenced a missing attribute
	OpenFindings     int `json:"open_findings"`
	ResolvedFindings int `json:"resolved_findings"`
}

// ImpactSummary aggregates business-impact estimates across open
// findings. All figures come from configured tables.
type ImpactSummary struct {
	RevenueAtRiskMonthly  float64 `json:"revenue_at_risk_monthly"`
	FineExposure          string  `json:"fine_exposure"`
	RemediationInvestment string  `json:"remediation_investment"`
}

// OpenFindings returns the currently open findings in stored order.
func (r *ScanResult) OpenFindings() []Finding {
	open := make([]Finding, 0, len(r.Findings))
	for _, f := range r.Findings {
		if f.Status == StatusOpen {
			open = append(open, f)
		}
	}
	return open
}

// FindingsBySeverity returns open findings carrying the given severity.
func (r *ScanResult) FindingsBySeverity(severity string) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Status == StatusOpen && f.Severity == severity {
			out = append(out, f)
		}
	}
	return out
}

// Trend represents change between the current and a previous scan.
type Trend struct {
	Direction        string    `json:"direction"` // "improving", "degrading", "stable"
	ChangePercent    float64   `json:"change_percent"`
	PreviousOpen     int       `json:"previous_open"`
	CurrentOpen      int       `json:"current_open"`
	PreviousScore    float64   `json:"previous_score"`
	CurrentScore     float64   `json:"current_score"`
	ComparedWith     time.Time `json:"compared_with"`
	NewFindings      int       `json:"new_findings"`
	ResolvedFindings int       `json:"resolved_findings"`
}

// TrendSummary provides historical trend analysis across stored runs.
type TrendSummary struct {
	TimeRange      string                    `json:"time_range"`
	RunsAnalyzed   int                       `json:"runs_analyzed"`
	ScoreSparkline []float64                 `json:"score_sparkline"` // risk scores over time, oldest first
	OpenSparkline  []int                     `json:"open_sparkline"`  // open finding counts over time
	ByCategory     map[string]*CategoryTrend `json:"by_category"`
}

// CategoryTrend represents trend for a single safeguard category.
type CategoryTrend struct {
	Name          string  `json:"name"`
	CurrentOpen   int     `json:"current_open"`
	PreviousOpen  int     `json:"previous_open"`
	Change        int     `json:"change"` // positive = more findings
	ChangePercent float64 `json:"change_percent"`
}
