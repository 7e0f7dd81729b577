package evaluator

import (
	"context"
	"fmt"
	"testing"

	"github.com/veridianlabs/hipaascope/internal/catalog"
	"github.com/veridianlabs/hipaascope/internal/models"
)

func replicationRule(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Parse(context.Background(), []byte(`
rules:
  - id: hipaa.secret.replication-region
    category: technical
    severity: medium
    applies_to: {types: [secret-version]}
    condition: {attribute: replication_mode, operator: not_equals, value: user-managed}
    description: "Secret {{.AssetID}} replicates automatically without region control"
`))
	if err != nil {
		t.Fatalf("parse catalog: %v", err)
	}
	return cat
}

func secretAsset(id, replication string) models.Asset {
	return models.Asset{
		ID:      id,
		Type:    models.TypeSecretVersion,
		Service: "secretmanager",
		Attributes: models.AttrMap{
			"replication_mode": replication,
		},
	}
}

func evaluate(t *testing.T, cat *catalog.Catalog, assets []models.Asset) *Result {
	t.Helper()
	ctx := context.Background()
	e := New(cat, Config{MaxConcurrency: 4})
	return e.Evaluate(ctx, StreamSlice(ctx, assets), AccountContext{})
}

func TestAutomaticReplicationIsFlagged(t *testing.T) {
	res := evaluate(t, replicationRule(t), []models.Asset{
		secretAsset("projects/acme/secrets/db/versions/1", "automatic"),
	})

	if len(res.Matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(res.Matches))
	}
	m := res.Matches[0]
	if m.Severity != models.SeverityMedium {
		t.Errorf("severity = %q, want medium", m.Severity)
	}
	if m.AssetID != "projects/acme/secrets/db/versions/1" {
		t.Errorf("asset id = %q", m.AssetID)
	}
	if m.RuleID != "hipaa.secret.replication-region" {
		t.Errorf("rule id = %q", m.RuleID)
	}
}

func TestUserManagedReplicationIsClean(t *testing.T) {
	res := evaluate(t, replicationRule(t), []models.Asset{
		secretAsset("projects/acme/secrets/db/versions/1", "user-managed"),
	})
	if len(res.Matches) != 0 {
		t.Fatalf("got %d matches, want 0", len(res.Matches))
	}
	if res.AssetCount != 1 {
		t.Errorf("asset count = %d, want 1", res.AssetCount)
	}
}

func TestOverlappingRulesEmitDistinctMatches(t *testing.T) {
	cat, err := catalog.Parse(context.Background(), []byte(`
rules:
  - id: hipaa.storage.public-access
    category: technical
    severity: critical
    applies_to: {types: [storage-bucket]}
    condition: {attribute: public_access, operator: is_true}
    description: "Bucket {{.AssetID}} is public"
  - id: hipaa.storage.service-wide
    category: technical
    severity: low
    applies_to: {services: [storage]}
    condition: {attribute: public_access, operator: is_true}
    description: "Storage resource {{.AssetID}} is public"
`))
	if err != nil {
		t.Fatal(err)
	}

	res := evaluate(t, cat, []models.Asset{{
		ID:         "buckets/phi-exports",
		Type:       models.TypeStorageBucket,
		Service:    "storage",
		Attributes: models.AttrMap{"public_access": true},
	}})

	if len(res.Matches) != 2 {
		t.Fatalf("got %d matches, want 2 (one per rule)", len(res.Matches))
	}
	if res.Matches[0].RuleID == res.Matches[1].RuleID {
		t.Error("overlapping rules should keep distinct rule ids")
	}
}

func TestAccountScopeRuleRunsOnce(t *testing.T) {
	cat, err := catalog.Parse(context.Background(), []byte(`
rules:
  - id: hipaa.admin.privacy-officer-designated
    category: administrative
    severity: high
    applies_to: {scope: account}
    condition: {attribute: privacy_officer, operator: absent}
    description: "No privacy officer is designated"
`))
	if err != nil {
		t.Fatal(err)
	}

	for _, size := range []int{10, 500} {
		assets := make([]models.Asset, size)
		for i := range assets {
			assets[i] = secretAsset(fmt.Sprintf("secrets/%d", i), "user-managed")
		}

		res := evaluate(t, cat, assets)
		if len(res.Matches) != 1 {
			t.Fatalf("inventory of %d: got %d matches, want exactly 1", size, len(res.Matches))
		}
		if res.Matches[0].AssetID != models.AccountAssetID {
			t.Errorf("asset id = %q, want %q", res.Matches[0].AssetID, models.AccountAssetID)
		}
	}
}

func TestAccountScopeSeesAggregateView(t *testing.T) {
	cat, err := catalog.Parse(context.Background(), []byte(`
rules:
  - id: hipaa.logging.audit-sink
    category: technical
    severity: high
    applies_to: {scope: account}
    condition: {attribute: asset_types, operator: not_contains, value: logging-sink}
    description: "No audit log sink configured"
`))
	if err != nil {
		t.Fatal(err)
	}

	// No sink in inventory: the rule fires.
	res := evaluate(t, cat, []models.Asset{secretAsset("s1", "automatic")})
	if len(res.Matches) != 1 {
		t.Fatalf("without sink: got %d matches, want 1", len(res.Matches))
	}

	// A sink asset present: satisfied.
	res = evaluate(t, cat, []models.Asset{
		secretAsset("s1", "automatic"),
		{ID: "sinks/audit", Type: models.TypeLoggingSink, Service: "logging", Attributes: models.AttrMap{}},
	})
	if len(res.Matches) != 0 {
		t.Fatalf("with sink: got %d matches, want 0", len(res.Matches))
	}
}

func TestMissingAttributeIsGapNotViolation(t *testing.T) {
	res := evaluate(t, replicationRule(t), []models.Asset{{
		ID:         "projects/acme/secrets/legacy/versions/3",
		Type:       models.TypeSecretVersion,
		Service:    "secretmanager",
		Attributes: models.AttrMap{},
	}})

	if len(res.Matches) != 0 {
		t.Errorf("missing attribute must not count as a violation, got %d matches", len(res.Matches))
	}
	if res.AttributeGaps != 1 {
		t.Errorf("attribute gaps = %d, want 1", res.AttributeGaps)
	}
	if len(res.Errors) != 0 {
		t.Errorf("a gap is not an evaluation error, got %d errors", len(res.Errors))
	}
}

func TestFailingConditionIsIsolated(t *testing.T) {
	cat, err := catalog.Parse(context.Background(), []byte(`
rules:
  - id: hipaa.broken.type-clash
    category: technical
    severity: high
    applies_to: {types: [secret-version]}
    condition: {attribute: replication_mode, operator: greater_than, value: 5}
    description: "type clash on {{.AssetID}}"
  - id: hipaa.secret.replication-region
    category: technical
    severity: medium
    applies_to: {types: [secret-version]}
    condition: {attribute: replication_mode, operator: not_equals, value: user-managed}
    description: "Secret {{.AssetID}} replicates automatically"
`))
	if err != nil {
		t.Fatal(err)
	}

	res := evaluate(t, cat, []models.Asset{secretAsset("secrets/a", "automatic")})

	if len(res.Errors) != 1 {
		t.Fatalf("got %d evaluation errors, want 1", len(res.Errors))
	}
	if res.Errors[0].RuleID != "hipaa.broken.type-clash" {
		t.Errorf("error attributed to %q", res.Errors[0].RuleID)
	}
	// The healthy rule still produced its match.
	if len(res.Matches) != 1 || res.Matches[0].RuleID != "hipaa.secret.replication-region" {
		t.Fatalf("healthy rule should survive a broken sibling, matches = %+v", res.Matches)
	}
}

func TestBulkViolationsAllEmitted(t *testing.T) {
	assets := make([]models.Asset, 300)
	for i := range assets {
		assets[i] = secretAsset(fmt.Sprintf("projects/acme/secrets/s%03d/versions/1", i), "automatic")
	}

	res := evaluate(t, replicationRule(t), assets)
	if len(res.Matches) != 300 {
		t.Fatalf("got %d matches, want 300", len(res.Matches))
	}
	seen := make(map[string]bool, 300)
	for _, m := range res.Matches {
		if seen[m.AssetID] {
			t.Fatalf("duplicate match for %s", m.AssetID)
		}
		seen[m.AssetID] = true
		if m.Severity != models.SeverityMedium {
			t.Fatalf("severity = %q, want medium", m.Severity)
		}
	}
}

func TestMatchSetIndependentOfScheduling(t *testing.T) {
	assets := make([]models.Asset, 64)
	for i := range assets {
		mode := "automatic"
		if i%3 == 0 {
			mode = "user-managed"
		}
		assets[i] = secretAsset(fmt.Sprintf("secrets/%02d", i), mode)
	}

	collect := func(concurrency int) map[string]bool {
		ctx := context.Background()
		e := New(replicationRule(t), Config{MaxConcurrency: concurrency})
		res := e.Evaluate(ctx, StreamSlice(ctx, assets), AccountContext{})
		set := make(map[string]bool, len(res.Matches))
		for _, m := range res.Matches {
			set[m.RuleID+"|"+m.AssetID] = true
		}
		return set
	}

	serial := collect(1)
	parallel := collect(16)

	if len(serial) != len(parallel) {
		t.Fatalf("match sets differ: %d vs %d", len(serial), len(parallel))
	}
	for k := range serial {
		if !parallel[k] {
			t.Errorf("match %s missing under high concurrency", k)
		}
	}
}

func TestCancelledContextMarksPartial(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assets := make([]models.Asset, 50)
	for i := range assets {
		assets[i] = secretAsset(fmt.Sprintf("secrets/%d", i), "automatic")
	}

	e := New(replicationRule(t), Config{MaxConcurrency: 2})
	res := e.Evaluate(ctx, StreamSlice(ctx, assets), AccountContext{})

	if !res.Partial {
		t.Error("cancelled scan should be marked partial")
	}
}

func TestAccountMetadataReachesConditions(t *testing.T) {
	cat, err := catalog.Parse(context.Background(), []byte(`
rules:
  - id: hipaa.admin.privacy-officer-designated
    category: administrative
    severity: high
    applies_to: {scope: account}
    condition: {attribute: privacy_officer, operator: absent}
    description: "No privacy officer designated for {{.ProjectID}}"
`))
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	e := New(cat, Config{})
	res := e.Evaluate(ctx, StreamSlice(ctx, nil), AccountContext{
		Meta:       models.AccountMeta{ProjectID: "acme-prod"},
		Attributes: map[string]interface{}{"privacy_officer": "jordan@acme.example"},
	})

	if len(res.Matches) != 0 {
		t.Fatalf("designated officer should satisfy the rule, got %d matches", len(res.Matches))
	}
}
