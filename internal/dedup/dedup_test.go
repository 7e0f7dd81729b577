package dedup

import (
	"testing"
	"time"

	"github.com/veridianlabs/hipaascope/internal/evaluator"
	"github.com/veridianlabs/hipaascope/internal/models"
)

var scanTime = time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

func match(rule, asset, severity string) evaluator.RawMatch {
	return evaluator.RawMatch{
		RuleID:      rule,
		AssetID:     asset,
		Severity:    severity,
		Category:    models.CategoryTechnical,
		Description: rule + " on " + asset,
	}
}

func TestDuplicateMatchesCollapse(t *testing.T) {
	d := New(nil)
	findings := d.Dedupe([]evaluator.RawMatch{
		match("hipaa.storage.public-access", "buckets/phi", models.SeverityCritical),
		match("hipaa.storage.public-access", "buckets/phi", models.SeverityCritical),
		match("hipaa.storage.public-access", "buckets/phi", models.SeverityCritical),
	}, nil, scanTime)

	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1", len(findings))
	}
	f := findings[0]
	if f.FindingID != models.ComputeFindingID("hipaa.storage.public-access", "buckets/phi") {
		t.Errorf("finding id not derived from (rule, asset): %q", f.FindingID)
	}
	if f.Status != models.StatusOpen {
		t.Errorf("status = %q, want open", f.Status)
	}
}

func TestSameAssetDifferentRulesStayDistinct(t *testing.T) {
	d := New(nil)
	findings := d.Dedupe([]evaluator.RawMatch{
		match("hipaa.storage.public-access", "buckets/phi", models.SeverityCritical),
		match("hipaa.storage.versioning", "buckets/phi", models.SeverityLow),
	}, nil, scanTime)

	if len(findings) != 2 {
		t.Fatalf("got %d findings, want 2 (dedup key includes rule id)", len(findings))
	}
}

func TestHigherSeverityWinsOnDisagreement(t *testing.T) {
	d := New(nil)

	// Order must not matter.
	for _, matches := range [][]evaluator.RawMatch{
		{
			match("hipaa.logging.audit-sink", models.AccountAssetID, models.SeverityMedium),
			match("hipaa.logging.audit-sink", models.AccountAssetID, models.SeverityCritical),
		},
		{
			match("hipaa.logging.audit-sink", models.AccountAssetID, models.SeverityCritical),
			match("hipaa.logging.audit-sink", models.AccountAssetID, models.SeverityMedium),
		},
	} {
		findings := d.Dedupe(matches, nil, scanTime)
		if len(findings) != 1 {
			t.Fatalf("got %d findings, want 1", len(findings))
		}
		if findings[0].Severity != models.SeverityCritical {
			t.Errorf("severity = %q, want critical (higher wins)", findings[0].Severity)
		}
	}
}

func TestAbsentFindingResolves(t *testing.T) {
	d := New(nil)
	previousTime := scanTime.Add(-24 * time.Hour)

	previous := &models.ScanResult{
		Findings: []models.Finding{
			{
				FindingID: models.ComputeFindingID("hipaa.storage.public-access", "buckets/phi"),
				RuleID:    "hipaa.storage.public-access",
				AssetID:   "buckets/phi",
				Severity:  models.SeverityCritical,
				FirstSeen: previousTime,
				LastSeen:  previousTime,
				Status:    models.StatusOpen,
			},
			{
				FindingID: models.ComputeFindingID("hipaa.db.backups", "db/main"),
				RuleID:    "hipaa.db.backups",
				AssetID:   "db/main",
				Severity:  models.SeverityMedium,
				FirstSeen: previousTime,
				LastSeen:  previousTime,
				Status:    models.StatusOpen,
			},
		},
	}

	// Only the db finding still matches.
	findings := d.Dedupe([]evaluator.RawMatch{
		match("hipaa.db.backups", "db/main", models.SeverityMedium),
	}, previous, scanTime)

	if len(findings) != 2 {
		t.Fatalf("got %d findings, want 2 (one open, one resolved)", len(findings))
	}

	var open, resolved *models.Finding
	for i := range findings {
		switch findings[i].Status {
		case models.StatusOpen:
			open = &findings[i]
		case models.StatusResolved:
			resolved = &findings[i]
		}
	}

	if open == nil || open.RuleID != "hipaa.db.backups" {
		t.Fatalf("still-matching finding should stay open: %+v", findings)
	}
	if !open.FirstSeen.Equal(previousTime) {
		t.Errorf("open finding should carry FirstSeen from the previous run")
	}
	if !open.LastSeen.Equal(scanTime) {
		t.Errorf("open finding LastSeen should advance to the current scan")
	}

	if resolved == nil || resolved.RuleID != "hipaa.storage.public-access" {
		t.Fatalf("absent finding should resolve: %+v", findings)
	}
}

func TestReappearingFindingKeepsOriginalFirstSeen(t *testing.T) {
	d := New(nil)
	origin := scanTime.Add(-72 * time.Hour)

	previous := &models.ScanResult{
		Findings: []models.Finding{{
			FindingID: models.ComputeFindingID("hipaa.storage.public-access", "buckets/phi"),
			RuleID:    "hipaa.storage.public-access",
			AssetID:   "buckets/phi",
			Severity:  models.SeverityCritical,
			FirstSeen: origin,
			LastSeen:  origin,
			Status:    models.StatusResolved,
		}},
	}

	findings := d.Dedupe([]evaluator.RawMatch{
		match("hipaa.storage.public-access", "buckets/phi", models.SeverityCritical),
	}, previous, scanTime)

	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1", len(findings))
	}
	f := findings[0]
	if f.Status != models.StatusOpen {
		t.Errorf("reappearing finding should reopen, status = %q", f.Status)
	}
	if !f.FirstSeen.Equal(origin) {
		t.Errorf("reopened finding should keep its original FirstSeen")
	}
}

func TestResolvedHistoryRetained(t *testing.T) {
	d := New(nil)
	previous := &models.ScanResult{
		Findings: []models.Finding{{
			FindingID: models.ComputeFindingID("hipaa.db.public-ip", "db/old"),
			RuleID:    "hipaa.db.public-ip",
			AssetID:   "db/old",
			Severity:  models.SeverityHigh,
			FirstSeen: scanTime.Add(-96 * time.Hour),
			LastSeen:  scanTime.Add(-48 * time.Hour),
			Status:    models.StatusResolved,
		}},
	}

	findings := d.Dedupe(nil, previous, scanTime)
	if len(findings) != 1 {
		t.Fatalf("resolved history should be retained, got %d findings", len(findings))
	}
	f := findings[0]
	if f.Status != models.StatusResolved {
		t.Errorf("status = %q, want resolved", f.Status)
	}
	// Already-resolved findings keep their resolution time.
	if !f.LastSeen.Equal(scanTime.Add(-48 * time.Hour)) {
		t.Errorf("already-resolved finding should not advance LastSeen")
	}
}

func TestDeterministicOrdering(t *testing.T) {
	d := New(nil)
	matches := []evaluator.RawMatch{
		match("hipaa.z", "asset/2", models.SeverityLow),
		match("hipaa.a", "asset/9", models.SeverityCritical),
		match("hipaa.a", "asset/1", models.SeverityCritical),
		match("hipaa.m", "asset/5", models.SeverityHigh),
	}

	first := d.Dedupe(matches, nil, scanTime)

	// Shuffled input, same output order.
	shuffled := []evaluator.RawMatch{matches[2], matches[0], matches[3], matches[1]}
	second := d.Dedupe(shuffled, nil, scanTime)

	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].FindingID != second[i].FindingID {
			t.Fatalf("ordering differs at %d: %s vs %s", i, first[i].FindingID, second[i].FindingID)
		}
	}

	// Severity rank descends, ties break on rule id.
	if first[0].RuleID != "hipaa.a" || first[0].AssetID != "asset/1" {
		t.Errorf("unexpected first finding: %s %s", first[0].RuleID, first[0].AssetID)
	}
	if first[len(first)-1].Severity != models.SeverityLow {
		t.Errorf("lowest severity should sort last")
	}
}
