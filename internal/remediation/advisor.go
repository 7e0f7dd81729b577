// Package remediation turns rule ids into remediation plans. Guidance
// is a lookup into the catalog's remediation entries, never generated
// per finding, so two findings on the same rule always carry the same
// plan.
package remediation

import (
	"github.com/veridianlabs/hipaascope/internal/catalog"
	"github.com/veridianlabs/hipaascope/internal/models"
)

// Advisor resolves remediation plans from a rule catalog.
type Advisor struct {
	plans map[string]models.Plan
}

// NewAdvisor builds the plan table from the catalog's remediation
// entries. Rules without one fall back to the pending plan.
func NewAdvisor(cat *catalog.Catalog) *Advisor {
	a := &Advisor{plans: make(map[string]models.Plan)}
	if cat == nil {
		return a
	}
	for _, rule := range cat.Rules {
		if rule.Remediation == nil {
			continue
		}
		a.plans[rule.ID] = models.Plan{
			Action:       rule.Remediation.Action,
			Effort:       rule.Remediation.Effort,
			EffortHours:  rule.Remediation.EffortHours,
			CostRange:    rule.Remediation.CostRange,
			TimelineBand: rule.Remediation.Timeline,
			Priority:     priorityFor(rule.DefaultSeverity),
		}
	}
	return a
}

// Advise returns the plan for a rule. An unknown or uncatalogued rule
// yields the pending placeholder and an UnknownRuleError; the caller
// degrades gracefully instead of dropping the finding.
func (a *Advisor) Advise(ruleID string) (models.Plan, error) {
	if plan, ok := a.plans[ruleID]; ok {
		return plan, nil
	}
	return PendingPlan(), &models.UnknownRuleError{RuleID: ruleID}
}

// PendingPlan is the placeholder for findings with no advisory entry.
func PendingPlan() models.Plan {
	return models.Plan{
		Action:  "remediation pending",
		Pending: true,
	}
}

// priorityFor maps a rule's severity to a remediation priority band.
func priorityFor(severity string) string {
	switch severity {
	case models.SeverityCritical:
		return "immediate"
	case models.SeverityHigh:
		return "high"
	case models.SeverityMedium:
		return "medium"
	default:
		return "low"
	}
}
