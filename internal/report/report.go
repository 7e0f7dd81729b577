// Package report projects ScanResults into audience-specific views and
// renders them as text, JSON or markdown. Building a view is a pure
// read over the result: no re-evaluation, no I/O.
package report

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/veridianlabs/hipaascope/internal/models"
	"github.com/veridianlabs/hipaascope/internal/remediation"
	"github.com/veridianlabs/hipaascope/internal/scoring"
)

// Build projects a scan result for one audience. An unknown audience
// falls back to the technical view rather than failing: a report is
// always better than no report.
func Build(result *models.ScanResult, audience string, advisor *remediation.Advisor) models.ReportView {
	if advisor == nil {
		advisor = remediation.NewAdvisor(nil)
	}
	b := &builder{result: result, advisor: advisor}

	view := models.ReportView{
		Audience:    audience,
		GeneratedAt: result.Timestamp,
		ScanID:      result.ScanID,
	}

	switch audience {
	case models.AudienceExecutive:
		view.Title = "HIPAA Compliance Executive Summary"
		view.Sections = b.executive()
	case models.AudienceCISO:
		view.Title = "HIPAA Safeguard Coverage Report"
		view.Sections = b.ciso()
	case models.AudienceCTO:
		view.Title = "HIPAA Technical Posture Report"
		view.Sections = b.cto()
	case models.AudienceBoard:
		view.Title = "Compliance Posture Briefing"
		view.Sections = b.board()
	default:
		view.Audience = models.AudienceTechnical
		view.Title = "HIPAA Compliance Findings Report"
		view.Sections = b.technical()
	}
	return view
}

// BuildAll renders every audience concurrently. Views only read the
// result, so no coordination beyond the wait is needed.
func BuildAll(result *models.ScanResult, advisor *remediation.Advisor) map[string]models.ReportView {
	views := make(map[string]models.ReportView, len(models.AllAudiences))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, audience := range models.AllAudiences {
		wg.Add(1)
		go func(audience string) {
			defer wg.Done()
			view := Build(result, audience, advisor)
			mu.Lock()
			views[audience] = view
			mu.Unlock()
		}(audience)
	}
	wg.Wait()
	return views
}

type builder struct {
	result  *models.ScanResult
	advisor *remediation.Advisor
}

// summary is the posture banner every audience opens with.
func (b *builder) summary() models.Section {
	r := b.result
	section := models.Section{
		Heading: "Compliance Posture",
		Metrics: []models.Metric{
			{Label: "Status", Value: strings.ToUpper(r.ComplianceStatus)},
			{Label: "Risk Score", Value: fmt.Sprintf("%.1f / 100", r.RiskScore)},
			{Label: "Open Findings", Value: fmt.Sprintf("%d", r.Stats.OpenFindings)},
		},
	}
	for _, sev := range models.AllSeverities {
		if n := r.SeverityCounts[sev]; n > 0 {
			section.Metrics = append(section.Metrics, models.Metric{
				Label: strings.Title(sev), Value: fmt.Sprintf("%d", n),
			})
		}
	}
	if r.Partial {
		section.Paragraphs = append(section.Paragraphs,
			"This scan is partial: the inventory was incomplete or evaluation timed out. "+
				"The compliance verdict is withheld until a full scan completes.")
	}
	if r.Trend != nil {
		section.Paragraphs = append(section.Paragraphs, fmt.Sprintf(
			"Trend %s: %d open findings, previously %d (%+.1f%%).",
			scoring.TrendIndicator(r.Trend.Direction),
			r.Trend.CurrentOpen, r.Trend.PreviousOpen, r.Trend.ChangePercent))
	}
	return section
}

func (b *builder) impact() models.Section {
	imp := b.result.Impact
	return models.Section{
		Heading: "Business Impact",
		Metrics: []models.Metric{
			{Label: "Revenue at Risk", Value: fmt.Sprintf("$%.0f/month", imp.RevenueAtRiskMonthly)},
			{Label: "Fine Exposure", Value: imp.FineExposure},
			{Label: "Remediation Investment", Value: imp.RemediationInvestment},
		},
	}
}

func (b *builder) executive() []models.Section {
	sections := []models.Section{b.summary(), b.impact()}

	criticals := b.result.FindingsBySeverity(models.SeverityCritical)
	if len(criticals) > 0 {
		sections = append(sections, models.Section{
			Heading:  "Critical Findings",
			Findings: b.lines(criticals, true),
		})
	}

	roadmap := b.advisor.BuildPlan(b.result.Findings)
	plan := models.Section{
		Heading: "Remediation Plan",
		Metrics: []models.Metric{
			{Label: "Immediate", Value: fmt.Sprintf("%d", len(roadmap.Immediate))},
			{Label: "This Week", Value: fmt.Sprintf("%d", len(roadmap.ThisWeek))},
			{Label: "This Month", Value: fmt.Sprintf("%d", len(roadmap.ThisMonth))},
			{Label: "Quarterly", Value: fmt.Sprintf("%d", len(roadmap.Quarterly))},
		},
	}
	for _, win := range roadmap.QuickWins {
		plan.Paragraphs = append(plan.Paragraphs, fmt.Sprintf(
			"Quick win (%s): %s", win.Plan.Effort, win.Plan.Action))
	}
	return append(sections, plan)
}

func (b *builder) ciso() []models.Section {
	sections := []models.Section{b.summary()}

	// Safeguard coverage by category.
	byCategory := make(map[string][]models.Finding)
	for _, f := range b.result.OpenFindings() {
		byCategory[f.Category] = append(byCategory[f.Category], f)
	}

	coverage := models.Section{Heading: "Safeguard Coverage"}
	for _, category := range models.AllCategories {
		findings := byCategory[category]
		value := "no open findings"
		if len(findings) > 0 {
			cites := safeguards(findings)
			value = fmt.Sprintf("%d open", len(findings))
			if len(cites) > 0 {
				value += " (" + strings.Join(cites, ", ") + ")"
			}
		}
		coverage.Metrics = append(coverage.Metrics, models.Metric{
			Label: strings.Title(category), Value: value,
		})
	}
	sections = append(sections, coverage)

	for _, category := range models.AllCategories {
		if findings := byCategory[category]; len(findings) > 0 {
			sections = append(sections, models.Section{
				Heading:  strings.Title(category) + " Gaps",
				Findings: b.lines(findings, false),
			})
		}
	}
	return sections
}

func (b *builder) cto() []models.Section {
	sections := []models.Section{b.summary()}

	// Affected surface: which rules hit, over how many assets.
	assetsByRule := make(map[string]int)
	for _, f := range b.result.OpenFindings() {
		assetsByRule[f.RuleID]++
	}
	surface := models.Section{Heading: "Affected Surface"}
	for _, rule := range sortedRuleIDs(assetsByRule) {
		surface.Metrics = append(surface.Metrics, models.Metric{
			Label: rule, Value: fmt.Sprintf("%d asset(s)", assetsByRule[rule]),
		})
	}
	sections = append(sections, surface)

	stats := b.result.Stats
	sections = append(sections, models.Section{
		Heading: "Evaluation Stats",
		Metrics: []models.Metric{
			{Label: "Assets Evaluated", Value: fmt.Sprintf("%d", stats.AssetCount)},
			{Label: "Rules Applied", Value: fmt.Sprintf("%d", stats.RuleCount)},
			{Label: "Skipped Records", Value: fmt.Sprintf("%d", stats.SkippedRecords)},
			{Label: "Evaluation Errors", Value: fmt.Sprintf("%d", stats.EvaluationErrors)},
			{Label: "Attribute Gaps", Value: fmt.Sprintf("%d", stats.AttributeGaps)},
		},
	})
	return sections
}

func (b *builder) board() []models.Section {
	// One page: posture, dollars, direction. No finding detail.
	sections := []models.Section{b.summary(), b.impact()}
	if b.result.Trend != nil {
		t := b.result.Trend
		sections = append(sections, models.Section{
			Heading: "Direction",
			Paragraphs: []string{fmt.Sprintf(
				"Since %s: %d findings resolved, %d new. Risk score moved %.1f to %.1f.",
				t.ComparedWith.Format("Jan 2"), t.ResolvedFindings, t.NewFindings,
				t.PreviousScore, t.CurrentScore)},
		})
	}
	return sections
}

func (b *builder) technical() []models.Section {
	sections := []models.Section{b.summary()}

	open := b.result.OpenFindings()
	if len(open) > 0 {
		sections = append(sections, models.Section{
			Heading:  "Open Findings",
			Findings: b.lines(open, true),
		})
	}

	var resolved []models.Finding
	for _, f := range b.result.Findings {
		if f.Status == models.StatusResolved {
			resolved = append(resolved, f)
		}
	}
	if len(resolved) > 0 {
		sections = append(sections, models.Section{
			Heading:  "Resolved Findings",
			Findings: b.lines(resolved, false),
		})
	}

	stats := b.result.Stats
	if stats.SkippedRecords > 0 || stats.EvaluationErrors > 0 || stats.AttributeGaps > 0 {
		sections = append(sections, models.Section{
			Heading: "Evaluation Gaps",
			Paragraphs: []string{fmt.Sprintf(
				"%d record(s) skipped during normalization, %d rule/asset evaluation error(s), "+
					"%d condition(s) referenced a missing attribute. These pairs are excluded "+
					"from the findings above.",
				stats.SkippedRecords, stats.EvaluationErrors, stats.AttributeGaps)},
		})
	}
	return sections
}

// lines flattens findings for rendering, resolving remediation text
// when asked. An advisor miss degrades to the pending placeholder.
func (b *builder) lines(findings []models.Finding, withRemediation bool) []models.FindingLine {
	out := make([]models.FindingLine, 0, len(findings))
	for _, f := range findings {
		line := models.FindingLine{
			FindingID:   f.FindingID,
			RuleID:      f.RuleID,
			AssetID:     f.AssetID,
			Severity:    f.Severity,
			Category:    f.Category,
			Safeguard:   f.Safeguard,
			Description: f.Description,
			Status:      f.Status,
		}
		if withRemediation {
			line.Remediation = b.remediationText(f)
		}
		out = append(out, line)
	}
	return out
}

func (b *builder) remediationText(f models.Finding) string {
	plan := f.Remediation
	if plan == nil {
		p, _ := b.advisor.Advise(f.RuleID)
		plan = &p
	}
	if plan.Pending {
		return "remediation pending"
	}
	text := plan.Action
	if plan.Effort != "" {
		text += fmt.Sprintf(" (effort: %s", plan.Effort)
		if plan.TimelineBand != "" {
			text += ", timeline: " + plan.TimelineBand
		}
		text += ")"
	}
	return text
}

func safeguards(findings []models.Finding) []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range findings {
		if f.Safeguard != "" && !seen[f.Safeguard] {
			seen[f.Safeguard] = true
			out = append(out, f.Safeguard)
		}
	}
	sort.Strings(out)
	return out
}

func sortedRuleIDs(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// formatTimestamp formats a timestamp for display.
func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}
