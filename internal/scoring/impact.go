package scoring

import (
	"fmt"

	"github.com/veridianlabs/hipaascope/internal/models"
)

// ImpactTable maps severity counts to business-impact figures. Every
// number here is configuration: the engine computes nothing that is not
// in the table.
type ImpactTable struct {
	// RevenueAtRiskMonthly is the estimated monthly revenue exposed per
	// open finding of each severity, in dollars.
	RevenueAtRiskMonthly map[string]float64 `mapstructure:"revenue_at_risk_monthly" yaml:"revenue_at_risk_monthly"`
	// RemediationHours is the estimated engineering effort per open
	// finding of each severity.
	RemediationHours map[string]float64 `mapstructure:"remediation_hours" yaml:"remediation_hours"`
	// HourlyRate converts remediation hours into an investment figure.
	HourlyRate float64 `mapstructure:"hourly_rate" yaml:"hourly_rate"`
	// FineBands maps open-critical-count thresholds to HIPAA fine
	// exposure labels, checked highest threshold first.
	FineBands []FineBand `mapstructure:"fine_bands" yaml:"fine_bands"`
}

// FineBand labels fine exposure once open criticals reach MinCritical.
type FineBand struct {
	MinCritical int    `mapstructure:"min_critical" yaml:"min_critical"`
	Label       string `mapstructure:"label" yaml:"label"`
}

// DefaultImpactTable returns the shipped estimates. The critical figure
// of $50k/month reflects a contract-loss scenario on a PHI breach.
func DefaultImpactTable() ImpactTable {
	return ImpactTable{
		RevenueAtRiskMonthly: map[string]float64{
			models.SeverityCritical: 50000,
			models.SeverityHigh:     10000,
			models.SeverityMedium:   1500,
			models.SeverityLow:      0,
		},
		RemediationHours: map[string]float64{
			models.SeverityCritical: 16,
			models.SeverityHigh:     8,
			models.SeverityMedium:   4,
			models.SeverityLow:      1,
		},
		HourlyRate: 150,
		FineBands: []FineBand{
			{MinCritical: 3, Label: "$100k-$1.5M per violation category (willful neglect tier)"},
			{MinCritical: 1, Label: "$10k-$100k per violation category (reasonable cause tier)"},
			{MinCritical: 0, Label: "minimal"},
		},
	}
}

// IsZero reports whether the table carries no configuration at all.
func (t ImpactTable) IsZero() bool {
	return t.RevenueAtRiskMonthly == nil && t.RemediationHours == nil &&
		t.HourlyRate == 0 && len(t.FineBands) == 0
}

// Summarize rolls the table up over open-finding severity counts.
func (t ImpactTable) Summarize(counts map[string]int) models.ImpactSummary {
	var revenue, hours float64
	for sev, n := range counts {
		revenue += float64(n) * t.RevenueAtRiskMonthly[sev]
		hours += float64(n) * t.RemediationHours[sev]
	}

	return models.ImpactSummary{
		RevenueAtRiskMonthly:  revenue,
		FineExposure:          t.fineExposure(counts[models.SeverityCritical]),
		RemediationInvestment: t.investment(hours),
	}
}

func (t ImpactTable) fineExposure(criticals int) string {
	for _, band := range t.FineBands {
		if criticals >= band.MinCritical {
			return band.Label
		}
	}
	return "minimal"
}

func (t ImpactTable) investment(hours float64) string {
	if hours == 0 {
		return "none required"
	}
	return fmt.Sprintf("~%.0f engineer-hours (est. $%.0f)", hours, hours*t.HourlyRate)
}
