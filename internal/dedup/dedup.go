package dedup

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/veridianlabs/hipaascope/internal/evaluator"
	"github.com/veridianlabs/hipaascope/internal/models"
)

// Deduplicator collapses raw matches into findings with stable identity
// and reconciles them against the previous scan, if one is supplied.
type Deduplicator struct {
	logger *zap.Logger
}

// New creates a deduplicator. A nil logger disables logging.
func New(logger *zap.Logger) *Deduplicator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Deduplicator{logger: logger}
}

// Dedupe is the synchronization barrier between evaluation and scoring:
// it needs the complete match set. Duplicate (rule, asset) matches
// collapse into one finding; when duplicates disagree on severity the
// higher one wins, never an average or an arbitrary pick. Findings open
// in the previous result but absent now transition to resolved and stay
// in the history.
func (d *Deduplicator) Dedupe(matches []evaluator.RawMatch, previous *models.ScanResult, now time.Time) []models.Finding {
	byID := make(map[string]*models.Finding, len(matches))

	for _, m := range matches {
		id := models.ComputeFindingID(m.RuleID, m.AssetID)
		existing, ok := byID[id]
		if !ok {
			byID[id] = &models.Finding{
				FindingID:   id,
				RuleID:      m.RuleID,
				AssetID:     m.AssetID,
				Severity:    m.Severity,
				Category:    m.Category,
				Safeguard:   m.Safeguard,
				Description: m.Description,
				FirstSeen:   now,
				LastSeen:    now,
				Status:      models.StatusOpen,
			}
			continue
		}

		if models.SeverityRank(m.Severity) > models.SeverityRank(existing.Severity) {
			d.logger.Debug("duplicate match escalated severity",
				zap.String("finding", id),
				zap.String("from", existing.Severity),
				zap.String("to", m.Severity))
			existing.Severity = m.Severity
		}
	}

	if previous != nil {
		d.reconcile(byID, previous, now)
	}

	findings := make([]models.Finding, 0, len(byID))
	for _, f := range byID {
		findings = append(findings, *f)
	}
	Sort(findings)
	return findings
}

// reconcile carries history forward: still-open findings keep their
// original FirstSeen (a reappearance reopens with the old one), and
// previously-known findings absent from the current match set are
// retained as resolved.
func (d *Deduplicator) reconcile(current map[string]*models.Finding, previous *models.ScanResult, now time.Time) {
	for i := range previous.Findings {
		prev := &previous.Findings[i]

		if f, ok := current[prev.FindingID]; ok {
			if !prev.FirstSeen.IsZero() {
				f.FirstSeen = prev.FirstSeen
			}
			continue
		}

		resolved := *prev
		if resolved.Status == models.StatusOpen {
			d.logger.Info("finding resolved",
				zap.String("finding", prev.FindingID),
				zap.String("rule", prev.RuleID),
				zap.String("asset", prev.AssetID))
			resolved.Status = models.StatusResolved
			resolved.LastSeen = now
		}
		current[resolved.FindingID] = &resolved
	}
}

// Sort orders findings deterministically: open before resolved, then by
// severity rank, rule id, asset id. Serialized results are byte-stable
// regardless of worker scheduling.
func Sort(findings []models.Finding) {
	sort.Slice(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Status != b.Status {
			return a.Status == models.StatusOpen
		}
		if ra, rb := models.SeverityRank(a.Severity), models.SeverityRank(b.Severity); ra != rb {
			return ra > rb
		}
		if a.RuleID != b.RuleID {
			return a.RuleID < b.RuleID
		}
		return a.AssetID < b.AssetID
	})
}
