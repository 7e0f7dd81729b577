package tui

import (
	"sort"
	"strings"

	"github.com/veridianlabs/hipaascope/internal/models"
)

// filterState holds current active filters. Status narrows to open or
// resolved findings; empty means all.
type filterState struct {
	Severity   string
	Category   string
	Status     string
	SearchText string
}

// applyFilters returns findings matching all active filters.
func applyFilters(findings []models.Finding, f filterState) []models.Finding {
	result := make([]models.Finding, 0, len(findings))
	searchLower := strings.ToLower(f.SearchText)

	for _, finding := range findings {
		if f.Severity != "" && finding.Severity != f.Severity {
			continue
		}
		if f.Category != "" && finding.Category != f.Category {
			continue
		}
		if f.Status != "" && finding.Status != f.Status {
			continue
		}
		if searchLower != "" && !matchesSearch(finding, searchLower) {
			continue
		}
		result = append(result, finding)
	}
	return result
}

func matchesSearch(f models.Finding, searchLower string) bool {
	return strings.Contains(strings.ToLower(f.RuleID), searchLower) ||
		strings.Contains(strings.ToLower(f.AssetID), searchLower) ||
		strings.Contains(strings.ToLower(f.Category), searchLower) ||
		strings.Contains(strings.ToLower(f.Severity), searchLower) ||
		strings.Contains(strings.ToLower(f.Safeguard), searchLower) ||
		strings.Contains(strings.ToLower(f.Description), searchLower)
}

// sortFindings orders findings by severity (critical first), then rule,
// then asset for a stable reading order.
func sortFindings(findings []models.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		ri, rj := models.SeverityRank(findings[i].Severity), models.SeverityRank(findings[j].Severity)
		if ri != rj {
			return ri > rj
		}
		if findings[i].RuleID != findings[j].RuleID {
			return findings[i].RuleID < findings[j].RuleID
		}
		return findings[i].AssetID < findings[j].AssetID
	})
}

// uniqueCategories returns deduplicated, sorted categories present in findings.
func uniqueCategories(findings []models.Finding) []string {
	seen := make(map[string]bool)
	var categories []string
	for _, f := range findings {
		if !seen[f.Category] {
			seen[f.Category] = true
			categories = append(categories, f.Category)
		}
	}
	sort.Strings(categories)
	return categories
}

// nextStatusFilter cycles open -> resolved -> all.
func nextStatusFilter(current string) string {
	switch current {
	case models.StatusOpen:
		return models.StatusResolved
	case models.StatusResolved:
		return ""
	default:
		return models.StatusOpen
	}
}

// statusFilterName returns a human-readable name for a status filter value.
func statusFilterName(status string) string {
	if status == "" {
		return "all"
	}
	return status
}
