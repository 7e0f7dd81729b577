package models

// Severity levels for findings
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
)

// severityRank orders severities for comparison and sorting.
// Higher rank means more severe.
var severityRank = map[string]int{
	SeverityCritical: 4,
	SeverityHigh:     3,
	SeverityMedium:   2,
	SeverityLow:      1,
}

// SeverityRank returns the ordering rank for a severity level.
// Unknown severities rank below low.
func SeverityRank(severity string) int {
	return severityRank[severity]
}

// ValidSeverity reports whether the string is a known severity level.
func ValidSeverity(severity string) bool {
	_, ok := severityRank[severity]
	return ok
}

// HigherSeverity returns the more severe of the two levels.
// Used when duplicate matches disagree on severity.
func HigherSeverity(a, b string) string {
	if severityRank[a] >= severityRank[b] {
		return a
	}
	return b
}

// AllSeverities lists severity levels from most to least severe.
var AllSeverities = []string{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}

// Safeguard categories for compliance rules
const (
	CategoryAdministrative     = "administrative"
	CategoryPhysical           = "physical"
	CategoryTechnical          = "technical"
	CategoryMinimumNecessary   = "minimum-necessary"
	CategoryBreachNotification = "breach-notification"
)

// AllCategories lists the recognized safeguard categories.
var AllCategories = []string{
	CategoryAdministrative,
	CategoryPhysical,
	CategoryTechnical,
	CategoryMinimumNecessary,
	CategoryBreachNotification,
}

// ValidCategory reports whether the string is a known safeguard category.
func ValidCategory(category string) bool {
	for _, c := range AllCategories {
		if c == category {
			return true
		}
	}
	return false
}

// Finding lifecycle states
const (
	StatusOpen     = "open"
	StatusResolved = "resolved"
)

// Compliance verdicts for a completed scan
const (
	ComplianceCompliant    = "compliant"
	ComplianceNonCompliant = "non-compliant"
	ComplianceUnknown      = "unknown"
)
