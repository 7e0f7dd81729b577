package tui

import (
	"fmt"
	"strings"

	"github.com/veridianlabs/hipaascope/internal/models"
)

// headerHeight is the number of terminal lines the header occupies.
const headerHeight = 6

// renderHeader produces the header string from scan result data.
func renderHeader(result *models.ScanResult, sparkline []int, width int) string {
	var b strings.Builder

	// Line 1: title, compliance verdict and risk score
	statusText := complianceStyle(result.ComplianceStatus).Render(
		strings.ToUpper(result.ComplianceStatus),
	)
	b.WriteString(fmt.Sprintf("HIPAAScope  %s  Risk: %.1f/100", statusText, result.RiskScore))

	if result.Trend != nil {
		indicator := trendIndicator(result.Trend.Direction)
		b.WriteString(fmt.Sprintf("  %s %.1f%%", indicator, result.Trend.ChangePercent))
	}
	if result.Partial {
		b.WriteString("  [partial scan]")
	}
	b.WriteString("\n")

	// Line 2: scan scope
	b.WriteString(fmt.Sprintf("Assets: %d  Rules: %d  Findings: %d open / %d resolved",
		result.Stats.AssetCount, result.Stats.RuleCount,
		result.Stats.OpenFindings, result.Stats.ResolvedFindings))
	b.WriteString("\n")

	// Line 3: severity breakdown
	sevParts := make([]string, 0, len(models.AllSeverities))
	for _, sev := range models.AllSeverities {
		if count, ok := result.SeverityCounts[sev]; ok && count > 0 {
			label := fmt.Sprintf("%s:%d", strings.ToUpper(sev[:1]), count)
			sevParts = append(sevParts, severityStyle(sev).Render(label))
		}
	}
	if len(sevParts) > 0 {
		b.WriteString(strings.Join(sevParts, "  "))
	}
	b.WriteString("\n")

	// Line 4: open-findings sparkline across stored runs
	if len(sparkline) > 0 {
		b.WriteString("History: ")
		b.WriteString(renderSparkline(sparkline))
	}

	return styleHeader.Width(width).Render(b.String())
}

func trendIndicator(direction string) string {
	switch direction {
	case "improving":
		return "↓"
	case "degrading":
		return "↑"
	default:
		return "→"
	}
}

// renderSparkline converts an int slice to a unicode sparkline string.
func renderSparkline(values []int) string {
	if len(values) == 0 {
		return ""
	}

	bars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	min, max := values[0], values[0]
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	var b strings.Builder
	for _, v := range values {
		if max == min {
			b.WriteRune(bars[len(bars)/2])
		} else {
			normalized := float64(v-min) / float64(max-min)
			idx := int(normalized * float64(len(bars)-1))
			b.WriteRune(bars[idx])
		}
	}

	b.WriteString(fmt.Sprintf(" [%d→%d]", values[0], values[len(values)-1]))
	return b.String()
}
