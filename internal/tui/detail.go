package tui

import (
	"fmt"
	"strings"

	"github.com/veridianlabs/hipaascope/internal/models"
)

// detailHeight is the fixed number of lines for the detail panel.
const detailHeight = 5

// renderDetail produces the compact detail panel for a selected finding.
func renderDetail(f *models.Finding, width int) string {
	if f == nil {
		return styleDetailPanel.Width(width).Render("No finding selected")
	}

	var b strings.Builder

	sevStyled := severityStyle(f.Severity).Render(strings.ToUpper(f.Severity))
	b.WriteString(fmt.Sprintf("%s  %s / %s", sevStyled, f.RuleID, f.Category))
	if f.Safeguard != "" {
		b.WriteString("  " + f.Safeguard)
	}
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Asset: %s\n", f.AssetID))

	if f.Description != "" {
		b.WriteString(fmt.Sprintf("Detail: %s\n", f.Description))
	}

	parts := make([]string, 0, 3)
	parts = append(parts, fmt.Sprintf("Status: %s", f.Status))
	if !f.FirstSeen.IsZero() {
		parts = append(parts, fmt.Sprintf("First: %s", f.FirstSeen.Format("2006-01-02")))
	}
	if !f.LastSeen.IsZero() {
		parts = append(parts, fmt.Sprintf("Last: %s", f.LastSeen.Format("2006-01-02")))
	}
	b.WriteString(strings.Join(parts, "  "))

	return styleDetailPanel.Width(width).Render(b.String())
}

// renderFullDetail produces the expanded single-finding view, including
// remediation guidance and business impact.
func renderFullDetail(f *models.Finding, width int) string {
	if f == nil {
		return styleDetailPanel.Width(width).Render("No finding selected")
	}

	var b strings.Builder

	sevStyled := severityStyle(f.Severity).Render(strings.ToUpper(f.Severity))
	b.WriteString(fmt.Sprintf("%s  %s\n\n", sevStyled, f.RuleID))
	b.WriteString(fmt.Sprintf("Category:  %s\n", f.Category))
	if f.Safeguard != "" {
		b.WriteString(fmt.Sprintf("Safeguard: %s\n", f.Safeguard))
	}
	b.WriteString(fmt.Sprintf("Asset:     %s\n", f.AssetID))
	b.WriteString(fmt.Sprintf("Status:    %s\n", f.Status))
	if !f.FirstSeen.IsZero() {
		b.WriteString(fmt.Sprintf("First seen: %s\n", f.FirstSeen.Format("2006-01-02 15:04")))
	}
	if !f.LastSeen.IsZero() {
		b.WriteString(fmt.Sprintf("Last seen:  %s\n", f.LastSeen.Format("2006-01-02 15:04")))
	}

	if f.Description != "" {
		b.WriteString("\n" + f.Description + "\n")
	}
	if f.BusinessImpact != "" {
		b.WriteString("\nImpact: " + f.BusinessImpact + "\n")
	}

	if plan := f.Remediation; plan != nil {
		b.WriteString("\nRemediation\n")
		b.WriteString(fmt.Sprintf("  Action:   %s\n", plan.Action))
		if plan.Effort != "" {
			b.WriteString(fmt.Sprintf("  Effort:   %s\n", plan.Effort))
		}
		if plan.CostRange != "" {
			b.WriteString(fmt.Sprintf("  Cost:     %s\n", plan.CostRange))
		}
		if plan.TimelineBand != "" {
			b.WriteString(fmt.Sprintf("  Timeline: %s\n", plan.TimelineBand))
		}
		if plan.Priority != "" {
			b.WriteString(fmt.Sprintf("  Priority: %s\n", plan.Priority))
		}
		if plan.Pending {
			b.WriteString("  (guidance pending for this rule)\n")
		}
	}

	return styleDetailPanel.Width(width).Render(b.String())
}
