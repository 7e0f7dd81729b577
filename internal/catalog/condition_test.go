package catalog

import (
	"context"
	"testing"

	"github.com/veridianlabs/hipaascope/internal/models"
)

func secretAsset(attrs models.AttrMap) *models.Asset {
	return &models.Asset{
		ID:         "projects/acme/secrets/db-password/versions/3",
		Type:       models.TypeSecretVersion,
		Service:    "secretmanager",
		Attributes: attrs,
	}
}

func evalOp(t *testing.T, c *Condition, attrs models.AttrMap) Verdict {
	t.Helper()
	v, err := c.Eval(context.Background(), secretAsset(attrs), attrs)
	if err != nil {
		t.Fatalf("unexpected eval error: %v", err)
	}
	return v
}

func TestNotEqualsViolated(t *testing.T) {
	c := &Condition{Attribute: "replication_mode", Operator: OpNotEquals, Value: "user-managed"}
	v := evalOp(t, c, models.AttrMap{"replication_mode": "automatic"})
	if v != VerdictViolated {
		t.Errorf("automatic replication should violate, got %s", v)
	}
}

func TestNotEqualsSatisfied(t *testing.T) {
	c := &Condition{Attribute: "replication_mode", Operator: OpNotEquals, Value: "user-managed"}
	v := evalOp(t, c, models.AttrMap{"replication_mode": "user-managed"})
	if v != VerdictSatisfied {
		t.Errorf("user-managed replication should satisfy, got %s", v)
	}
}

func TestMissingAttributeIsGap(t *testing.T) {
	c := &Condition{Attribute: "replication_mode", Operator: OpNotEquals, Value: "user-managed"}
	v := evalOp(t, c, models.AttrMap{})
	if v != VerdictGap {
		t.Errorf("missing attribute should gap, got %s", v)
	}
}

func TestExistenceOperatorsNeverGap(t *testing.T) {
	absent := &Condition{Attribute: "privacy_officer", Operator: OpAbsent}
	if v := evalOp(t, absent, models.AttrMap{}); v != VerdictViolated {
		t.Errorf("absent on missing attribute should violate, got %s", v)
	}
	if v := evalOp(t, absent, models.AttrMap{"privacy_officer": "j.doe"}); v != VerdictSatisfied {
		t.Errorf("absent on present attribute should satisfy, got %s", v)
	}

	exists := &Condition{Attribute: "public_acl", Operator: OpExists}
	if v := evalOp(t, exists, models.AttrMap{}); v != VerdictSatisfied {
		t.Errorf("exists on missing attribute should satisfy, got %s", v)
	}
	if v := evalOp(t, exists, models.AttrMap{"public_acl": "allUsers"}); v != VerdictViolated {
		t.Errorf("exists on present attribute should violate, got %s", v)
	}
}

func TestContainsOnList(t *testing.T) {
	c := &Condition{Attribute: "source_ranges", Operator: OpContains, Value: "0.0.0.0/0"}
	v := evalOp(t, c, models.AttrMap{"source_ranges": []string{"10.0.0.0/8", "0.0.0.0/0"}})
	if v != VerdictViolated {
		t.Errorf("open range should violate, got %s", v)
	}
	v = evalOp(t, c, models.AttrMap{"source_ranges": []string{"10.0.0.0/8"}})
	if v != VerdictSatisfied {
		t.Errorf("private range should satisfy, got %s", v)
	}
}

func TestContainsOnString(t *testing.T) {
	c := &Condition{Attribute: "service_account", Operator: OpContains, Value: "-compute@developer.gserviceaccount.com"}
	v := evalOp(t, c, models.AttrMap{"service_account": "123456-compute@developer.gserviceaccount.com"})
	if v != VerdictViolated {
		t.Errorf("default service account should violate, got %s", v)
	}
}

func TestContainsOnDecodedJSONList(t *testing.T) {
	// JSON decoding yields []interface{}, not []string.
	c := &Condition{Attribute: "source_ranges", Operator: OpContains, Value: "0.0.0.0/0"}
	v := evalOp(t, c, models.AttrMap{"source_ranges": []interface{}{"0.0.0.0/0"}})
	if v != VerdictViolated {
		t.Errorf("open range should violate, got %s", v)
	}
}

func TestNotInMembership(t *testing.T) {
	c := &Condition{Attribute: "location", Operator: OpNotIn, Value: []string{"us-central1", "us-east1"}}
	if v := evalOp(t, c, models.AttrMap{"location": "europe-west1"}); v != VerdictViolated {
		t.Errorf("unapproved region should violate, got %s", v)
	}
	if v := evalOp(t, c, models.AttrMap{"location": "us-east1"}); v != VerdictSatisfied {
		t.Errorf("approved region should satisfy, got %s", v)
	}
}

func TestGreaterThan(t *testing.T) {
	c := &Condition{Attribute: "user_managed_key_count", Operator: OpGreaterThan, Value: 0}
	if v := evalOp(t, c, models.AttrMap{"user_managed_key_count": float64(2)}); v != VerdictViolated {
		t.Errorf("two keys should violate, got %s", v)
	}
	if v := evalOp(t, c, models.AttrMap{"user_managed_key_count": float64(0)}); v != VerdictSatisfied {
		t.Errorf("zero keys should satisfy, got %s", v)
	}
}

func TestBoolOperators(t *testing.T) {
	c := &Condition{Attribute: "public_access", Operator: OpIsTrue}
	if v := evalOp(t, c, models.AttrMap{"public_access": true}); v != VerdictViolated {
		t.Errorf("public access should violate, got %s", v)
	}
	if v := evalOp(t, c, models.AttrMap{"public_access": false}); v != VerdictSatisfied {
		t.Errorf("private access should satisfy, got %s", v)
	}
}

func TestTypeMismatchReturnsError(t *testing.T) {
	c := &Condition{Attribute: "replication_mode", Operator: OpEquals, Value: "automatic"}
	_, err := c.Eval(context.Background(), nil, models.AttrMap{"replication_mode": true})
	if err == nil {
		t.Error("expected a type mismatch error, got nil")
	}
}

func TestRegoConditionViolated(t *testing.T) {
	c := &Condition{Rego: `package hipaascope

import rego.v1

default violation := false

violation if {
	some binding in input.attributes.bindings
	binding.role == "roles/owner"
	some member in binding.members
	not startswith(member, "serviceAccount:")
}
`}
	if err := c.prepareRego(context.Background(), "test.rule"); err != nil {
		t.Fatalf("prepare rego: %v", err)
	}

	attrs := models.AttrMap{
		"bindings": []interface{}{
			map[string]interface{}{
				"role":    "roles/owner",
				"members": []interface{}{"user:alice@example.com"},
			},
		},
	}
	v, err := c.Eval(context.Background(), nil, attrs)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if v != VerdictViolated {
		t.Errorf("owner grant to a user should violate, got %s", v)
	}
}

func TestRegoConditionSatisfied(t *testing.T) {
	c := &Condition{Rego: `package hipaascope

import rego.v1

default violation := false

violation if {
	some binding in input.attributes.bindings
	binding.role == "roles/owner"
	some member in binding.members
	not startswith(member, "serviceAccount:")
}
`}
	if err := c.prepareRego(context.Background(), "test.rule"); err != nil {
		t.Fatalf("prepare rego: %v", err)
	}

	attrs := models.AttrMap{
		"bindings": []interface{}{
			map[string]interface{}{
				"role":    "roles/owner",
				"members": []interface{}{"serviceAccount:ci@acme.iam.gserviceaccount.com"},
			},
		},
	}
	v, err := c.Eval(context.Background(), nil, attrs)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if v != VerdictSatisfied {
		t.Errorf("owner grant to a service account should satisfy, got %s", v)
	}
}

func TestRegoWithoutPreparationErrors(t *testing.T) {
	c := &Condition{Rego: "package hipaascope\n"}
	_, err := c.Eval(context.Background(), nil, models.AttrMap{})
	if err == nil {
		t.Error("expected error for unprepared rego condition")
	}
}
