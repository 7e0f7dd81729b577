package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/veridianlabs/hipaascope/internal/catalog"
	"github.com/veridianlabs/hipaascope/internal/models"
)

var scanClock = func() time.Time {
	return time.Date(2026, 8, 21, 14, 30, 0, 0, time.UTC)
}

func scanCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Parse(context.Background(), []byte(`
version: test-2026.1
rules:
  - id: hipaa.secret.replication-region
    category: technical
    severity: medium
    applies_to: {types: [secret-version]}
    condition: {attribute: replication_mode, operator: not_equals, value: user-managed}
    description: "Secret {{.AssetID}} replicates automatically without region control"
    remediation:
      action: "Recreate the secret with user-managed replication pinned to compliant regions"
      effort: "2 hours"
      effort_hours: 2
      timeline: "immediate"
  - id: hipaa.storage.public-access
    category: technical
    severity: critical
    applies_to: {types: [storage-bucket]}
    condition: {attribute: public_access, operator: is_true}
    description: "Bucket {{.AssetID}} is publicly accessible"
  - id: hipaa.admin.privacy-officer-designated
    category: administrative
    severity: high
    applies_to: {scope: account}
    condition: {attribute: privacy_officer, operator: absent}
    description: "No privacy officer is designated"
`))
	if err != nil {
		t.Fatalf("parse catalog: %v", err)
	}
	return cat
}

func secretRecord(name, replication string) models.RawRecord {
	return models.RawRecord{
		ResourceName:  name,
		ResourceKind:  "secretmanager.googleapis.com/SecretVersion",
		OwningService: "secretmanager",
		Attributes:    map[string]interface{}{"replication_mode": replication},
	}
}

func run(t *testing.T, opts Options) *models.ScanResult {
	t.Helper()
	if opts.Clock == nil {
		opts.Clock = scanClock
	}
	result, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return result
}

func TestEmptyCatalogAborts(t *testing.T) {
	_, err := Run(context.Background(), Options{Catalog: &catalog.Catalog{}})
	if err == nil {
		t.Fatal("empty catalog must abort the scan")
	}
	if !models.IsCatalogError(err) {
		t.Errorf("error type = %T, want CatalogError", err)
	}

	_, err = Run(context.Background(), Options{})
	if !models.IsCatalogError(err) {
		t.Errorf("nil catalog: error type = %T, want CatalogError", err)
	}
}

func TestScanProducesFindingsAndScore(t *testing.T) {
	result := run(t, Options{
		Catalog: scanCatalog(t),
		Records: []models.RawRecord{
			secretRecord("projects/acme/secrets/db/versions/1", "automatic"),
			secretRecord("projects/acme/secrets/api/versions/1", "user-managed"),
		},
		Account:           models.AccountMeta{ProjectID: "acme-prod"},
		AccountAttributes: models.AttrMap{"privacy_officer": "jordan@acme.example"},
	})

	if result.ScanID == "" {
		t.Error("scan id must be assigned")
	}
	if !result.Timestamp.Equal(scanClock()) {
		t.Errorf("timestamp = %v", result.Timestamp)
	}
	if result.CatalogVersion != "test-2026.1" {
		t.Errorf("catalog version = %q", result.CatalogVersion)
	}

	// One medium finding: the automatic-replication secret.
	if result.Stats.OpenFindings != 1 {
		t.Fatalf("open findings = %d, want 1: %+v", result.Stats.OpenFindings, result.Findings)
	}
	f := result.Findings[0]
	if f.RuleID != "hipaa.secret.replication-region" {
		t.Errorf("rule = %q", f.RuleID)
	}
	if f.Remediation == nil || f.Remediation.Pending {
		t.Errorf("catalogued rule should carry its plan, got %+v", f.Remediation)
	}

	if result.RiskScore != 2 {
		t.Errorf("risk score = %v, want 2 (one medium)", result.RiskScore)
	}
	if result.ComplianceStatus != models.ComplianceCompliant {
		t.Errorf("status = %q", result.ComplianceStatus)
	}
	if result.Stats.AssetCount != 2 {
		t.Errorf("asset count = %d", result.Stats.AssetCount)
	}
}

func TestFindingIdentityStableAcrossRuns(t *testing.T) {
	opts := Options{
		Catalog:           scanCatalog(t),
		Records:           []models.RawRecord{secretRecord("projects/acme/secrets/db/versions/1", "automatic")},
		AccountAttributes: models.AttrMap{"privacy_officer": "x"},
	}

	first := run(t, opts)
	second := run(t, opts)

	if first.ScanID == second.ScanID {
		t.Error("scan ids should be unique per run")
	}
	if len(first.Findings) != 1 || len(second.Findings) != 1 {
		t.Fatalf("findings = %d / %d", len(first.Findings), len(second.Findings))
	}
	if first.Findings[0].FindingID != second.Findings[0].FindingID {
		t.Errorf("finding identity must not depend on the run: %s vs %s",
			first.Findings[0].FindingID, second.Findings[0].FindingID)
	}
}

func TestSeverityCountsSumToOpenFindings(t *testing.T) {
	records := make([]models.RawRecord, 0, 40)
	for i := 0; i < 30; i++ {
		records = append(records, secretRecord(fmt.Sprintf("secrets/auto/%d", i), "automatic"))
	}
	for i := 0; i < 10; i++ {
		records = append(records, models.RawRecord{
			ResourceName: fmt.Sprintf("buckets/open-%d", i),
			ResourceKind: "storage.googleapis.com/Bucket",
			Attributes:   map[string]interface{}{"public_access": true},
		})
	}

	result := run(t, Options{Catalog: scanCatalog(t), Records: records})

	sum := 0
	for _, n := range result.SeverityCounts {
		sum += n
	}
	if sum != result.Stats.OpenFindings {
		t.Errorf("severity counts sum %d != open findings %d", sum, result.Stats.OpenFindings)
	}
	// 30 medium + 10 critical + 1 high (no privacy officer attribute).
	if result.Stats.OpenFindings != 41 {
		t.Errorf("open findings = %d, want 41", result.Stats.OpenFindings)
	}
	if result.ComplianceStatus != models.ComplianceNonCompliant {
		t.Errorf("10 criticals must be non-compliant, got %q", result.ComplianceStatus)
	}
	if result.RiskScore != 100 {
		t.Errorf("risk score = %v, want clamped 100", result.RiskScore)
	}
}

func TestMalformedRecordsSkippedNotFatal(t *testing.T) {
	result := run(t, Options{
		Catalog: scanCatalog(t),
		Records: []models.RawRecord{
			{ResourceKind: "storage.googleapis.com/Bucket"}, // no name
			secretRecord("projects/acme/secrets/db/versions/1", "automatic"),
		},
		AccountAttributes: models.AttrMap{"privacy_officer": "x"},
	})

	if result.Stats.SkippedRecords != 1 {
		t.Errorf("skipped = %d, want 1", result.Stats.SkippedRecords)
	}
	if result.Stats.AssetCount != 1 {
		t.Errorf("asset count = %d, want 1", result.Stats.AssetCount)
	}
	if result.Stats.OpenFindings != 1 {
		t.Errorf("healthy record should still be evaluated, open = %d", result.Stats.OpenFindings)
	}
}

func TestPreviousResultReconciled(t *testing.T) {
	cat := scanCatalog(t)
	base := Options{
		Catalog:           cat,
		Records:           []models.RawRecord{secretRecord("projects/acme/secrets/db/versions/1", "automatic")},
		AccountAttributes: models.AttrMap{"privacy_officer": "x"},
	}

	first := run(t, base)
	if first.Stats.OpenFindings != 1 {
		t.Fatalf("first scan open = %d", first.Stats.OpenFindings)
	}

	// Second scan: the secret is fixed.
	fixed := base
	fixed.Records = []models.RawRecord{secretRecord("projects/acme/secrets/db/versions/1", "user-managed")}
	fixed.Previous = first
	fixed.Clock = func() time.Time { return scanClock().Add(24 * time.Hour) }

	second := run(t, fixed)

	if second.Stats.OpenFindings != 0 {
		t.Errorf("open = %d, want 0", second.Stats.OpenFindings)
	}
	if second.Stats.ResolvedFindings != 1 {
		t.Errorf("resolved = %d, want 1", second.Stats.ResolvedFindings)
	}
	if second.RiskScore != 0 {
		t.Errorf("resolved findings must not feed the score, got %v", second.RiskScore)
	}
	if second.Trend == nil || second.Trend.Direction != "improving" {
		t.Errorf("trend = %+v, want improving", second.Trend)
	}
}

func TestTruncatedInventoryIsPartial(t *testing.T) {
	result := run(t, Options{
		Catalog:           scanCatalog(t),
		Records:           []models.RawRecord{secretRecord("s1", "user-managed")},
		AccountAttributes: models.AttrMap{"privacy_officer": "x"},
		Truncated:         true,
	})

	if !result.Partial {
		t.Error("truncated inventory must mark the result partial")
	}
	if result.ComplianceStatus != models.ComplianceUnknown {
		t.Errorf("partial scan status = %q, want unknown", result.ComplianceStatus)
	}
}

func TestAccountRuleFindingAttachedToAccount(t *testing.T) {
	result := run(t, Options{
		Catalog: scanCatalog(t),
		Records: []models.RawRecord{secretRecord("s1", "user-managed")},
		Account: models.AccountMeta{ProjectID: "acme-prod"},
	})

	var accountFinding *models.Finding
	for i := range result.Findings {
		if result.Findings[i].AssetID == models.AccountAssetID {
			accountFinding = &result.Findings[i]
		}
	}
	if accountFinding == nil {
		t.Fatal("missing privacy officer should produce an account finding")
	}
	if accountFinding.RuleID != "hipaa.admin.privacy-officer-designated" {
		t.Errorf("rule = %q", accountFinding.RuleID)
	}
	// No remediation entry in the catalog for this rule.
	if accountFinding.Remediation == nil || !accountFinding.Remediation.Pending {
		t.Errorf("uncatalogued rule should degrade to the pending plan, got %+v", accountFinding.Remediation)
	}
}
