package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Finding is one detected violation of a rule against an asset, or
// against the account for account-scope rules.
type Finding struct {
	FindingID      string    `json:"finding_id"`
	RuleID         string    `json:"rule_id"`
	AssetID        string    `json:"asset_id"` // "account" for account-scope rules
	Severity       string    `json:"severity"`
	Category       string    `json:"category"`
	Safeguard      string    `json:"safeguard,omitempty"` // regulation citation, e.g. §164.312(a)(1)
	Description    string    `json:"description"`
	BusinessImpact string    `json:"business_impact,omitempty"`
	Remediation    *Plan     `json:"remediation,omitempty"`
	FirstSeen      time.Time `json:"first_seen"`
	LastSeen       time.Time `json:"last_seen"`
	Status         string    `json:"status"` // open or resolved
}

// Plan is remediation guidance for one rule. Content comes from a
// lookup table, never generated per finding.
type Plan struct {
	Action       string `json:"action"`
	Effort       string `json:"effort"`        // e.g. "2 hours", "1 day"
	EffortHours  int    `json:"effort_hours"`  // numeric effort for quick-win selection
	CostRange    string `json:"cost_range"`    // e.g. "$1,000 - $5,000"
	TimelineBand string `json:"timeline_band"` // e.g. "1-2 weeks"
	Priority     string `json:"priority"`      // immediate, high, medium, low
	Pending      bool   `json:"pending,omitempty"`
}

// ComputeFindingID derives the stable finding identity from rule and
// asset alone. Timestamps, scan ids and evaluation order never feed the
// hash, so an unchanged environment yields byte-identical ids run after
// run.
func ComputeFindingID(ruleID, assetID string) string {
	h := sha256.New()
	h.Write([]byte(ruleID))
	h.Write([]byte{0x1f})
	h.Write([]byte(assetID))
	return hex.EncodeToString(h.Sum(nil))[:16]
}
