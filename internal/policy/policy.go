// Package policy implements the compliance gate: a small YAML policy
// checked against a scan result, for CI pipelines that should fail on
// regressions.
package policy

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/veridianlabs/hipaascope/internal/models"
)

// Policy defines enforcement rules for scan results.
type Policy struct {
	Version string `yaml:"version"`
	Rules   Rules  `yaml:"rules"`
}

// Rules contains all configurable gate rules. Pointers distinguish
// "not set" from an explicit zero limit.
type Rules struct {
	MaxOpen          *int     `yaml:"max_open,omitempty"`
	MaxCritical      *int     `yaml:"max_critical,omitempty"`
	MaxHigh          *int     `yaml:"max_high,omitempty"`
	MaxRiskScore     *float64 `yaml:"max_risk_score,omitempty"`
	ForbidCategories []string `yaml:"forbid_categories,omitempty"`
	ForbidPartial    bool     `yaml:"forbid_partial,omitempty"`
	RequireStatus    string   `yaml:"require_status,omitempty"`
}

// Violation is a single gate failure.
type Violation struct {
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Result holds the outcome of a gate check.
type Result struct {
	Pass       bool        `json:"pass"`
	Violations []Violation `json:"violations"`
}

// LoadFromFile reads a gate policy file. A missing file is not an
// error: the gate simply passes everything.
func LoadFromFile(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read gate policy: %w", err)
	}

	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse gate policy: %w", err)
	}

	return &p, nil
}

// FindPolicyFile searches for a gate policy file in the current
// directory and parent directories up to the filesystem root.
func FindPolicyFile() string {
	names := []string{".hipaascope-gate.yaml", ".hipaascope-gate.yml"}

	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		for _, name := range names {
			path := dir + "/" + name
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
		parent := dir[:strings.LastIndex(dir, "/")]
		if parent == dir || parent == "" {
			break
		}
		dir = parent
	}

	return ""
}

// Evaluate checks a scan result against the gate rules.
func (p *Policy) Evaluate(result *models.ScanResult) *Result {
	if p == nil {
		return &Result{Pass: true}
	}

	var violations []Violation

	// max_open
	if p.Rules.MaxOpen != nil {
		if result.Stats.OpenFindings > *p.Rules.MaxOpen {
			violations = append(violations, Violation{
				Rule:    "max_open",
				Message: fmt.Sprintf("open findings %d exceeds limit %d", result.Stats.OpenFindings, *p.Rules.MaxOpen),
			})
		}
	}

	// max_critical
	if p.Rules.MaxCritical != nil {
		count := result.SeverityCounts[models.SeverityCritical]
		if count > *p.Rules.MaxCritical {
			violations = append(violations, Violation{
				Rule:    "max_critical",
				Message: fmt.Sprintf("critical findings %d exceeds limit %d", count, *p.Rules.MaxCritical),
			})
		}
	}

	// max_high
	if p.Rules.MaxHigh != nil {
		count := result.SeverityCounts[models.SeverityHigh]
		if count > *p.Rules.MaxHigh {
			violations = append(violations, Violation{
				Rule:    "max_high",
				Message: fmt.Sprintf("high findings %d exceeds limit %d", count, *p.Rules.MaxHigh),
			})
		}
	}

	// max_risk_score
	if p.Rules.MaxRiskScore != nil {
		if result.RiskScore > *p.Rules.MaxRiskScore {
			violations = append(violations, Violation{
				Rule:    "max_risk_score",
				Message: fmt.Sprintf("risk score %.1f exceeds limit %.1f", result.RiskScore, *p.Rules.MaxRiskScore),
			})
		}
	}

	// forbid_categories
	if len(p.Rules.ForbidCategories) > 0 {
		forbidden := make(map[string]bool, len(p.Rules.ForbidCategories))
		for _, c := range p.Rules.ForbidCategories {
			forbidden[c] = true
		}
		counts := make(map[string]int)
		for _, f := range result.Findings {
			if f.Status == models.StatusOpen {
				counts[f.Category]++
			}
		}
		for cat, count := range counts {
			if forbidden[cat] && count > 0 {
				violations = append(violations, Violation{
					Rule:    "forbid_categories",
					Message: fmt.Sprintf("forbidden category %q has %d open findings", cat, count),
				})
			}
		}
	}

	// forbid_partial
	if p.Rules.ForbidPartial && result.Partial {
		violations = append(violations, Violation{
			Rule:    "forbid_partial",
			Message: "scan is partial: inventory incomplete or evaluation timed out",
		})
	}

	// require_status
	if p.Rules.RequireStatus != "" {
		if result.ComplianceStatus != p.Rules.RequireStatus {
			violations = append(violations, Violation{
				Rule:    "require_status",
				Message: fmt.Sprintf("compliance status %q, required %q", result.ComplianceStatus, p.Rules.RequireStatus),
			})
		}
	}

	return &Result{
		Pass:       len(violations) == 0,
		Violations: violations,
	}
}
