package models

import "time"

// Report audiences
const (
	AudienceExecutive = "executive"
	AudienceCISO      = "ciso"
	AudienceCTO       = "cto"
	AudienceBoard     = "board"
	AudienceTechnical = "technical"
)

// AllAudiences lists every audience a report can target.
var AllAudiences = []string{
	AudienceExecutive,
	AudienceCISO,
	AudienceCTO,
	AudienceBoard,
	AudienceTechnical,
}

// ValidAudience reports whether the string is a known report audience.
func ValidAudience(audience string) bool {
	for _, a := range AllAudiences {
		if a == audience {
			return true
		}
	}
	return false
}

// ReportView is one audience-specific projection of a ScanResult. It is
// a structured section list so text, JSON and markdown renderers format
// the same content identically.
type ReportView struct {
	Audience    string    `json:"audience"`
	Title       string    `json:"title"`
	GeneratedAt time.Time `json:"generated_at"`
	ScanID      string    `json:"scan_id"`
	Sections    []Section `json:"sections"`
}

// Section is one heading with metrics, prose lines and/or findings.
type Section struct {
	Heading    string        `json:"heading"`
	Metrics    []Metric      `json:"metrics,omitempty"`
	Paragraphs []string      `json:"paragraphs,omitempty"`
	Findings   []FindingLine `json:"findings,omitempty"`
}

// Metric is one labeled value in a report section.
type Metric struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// FindingLine is a finding flattened for rendering.
type FindingLine struct {
	FindingID   string `json:"finding_id"`
	RuleID      string `json:"rule_id"`
	AssetID     string `json:"asset_id"`
	Severity    string `json:"severity"`
	Category    string `json:"category"`
	Safeguard   string `json:"safeguard,omitempty"`
	Description string `json:"description"`
	Remediation string `json:"remediation,omitempty"`
	Status      string `json:"status,omitempty"`
}
