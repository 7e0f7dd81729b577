package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/open-policy-agent/opa/v1/rego"

	"github.com/veridianlabs/hipaascope/internal/models"
)

// Condition operators for declarative predicates.
const (
	OpEquals      = "equals"
	OpNotEquals   = "not_equals"
	OpExists      = "exists"
	OpAbsent      = "absent"
	OpContains    = "contains"
	OpNotContains = "not_contains"
	OpIn          = "in"
	OpNotIn       = "not_in"
	OpGreaterThan = "greater_than"
	OpLessThan    = "less_than"
	OpIsTrue      = "is_true"
	OpIsFalse     = "is_false"
)

var knownOperators = map[string]bool{
	OpEquals: true, OpNotEquals: true,
	OpExists: true, OpAbsent: true,
	OpContains: true, OpNotContains: true,
	OpIn: true, OpNotIn: true,
	OpGreaterThan: true, OpLessThan: true,
	OpIsTrue: true, OpIsFalse: true,
}

// Verdict is the outcome of evaluating one condition against one
// attribute map.
type Verdict int

const (
	// VerdictSatisfied means the asset complies with the rule.
	VerdictSatisfied Verdict = iota
	// VerdictViolated means the condition detected a violation.
	VerdictViolated
	// VerdictGap means the condition referenced an attribute the asset
	// does not carry, so it cannot be evaluated either way.
	VerdictGap
)

// String returns the verdict name for logs.
func (v Verdict) String() string {
	switch v {
	case VerdictSatisfied:
		return "satisfied"
	case VerdictViolated:
		return "violated"
	case VerdictGap:
		return "gap"
	}
	return "unknown"
}

// regoQuery is the boolean entrypoint every Rego condition must define.
const regoQuery = "data.hipaascope.violation"

// Condition decides whether an asset violates a rule. Exactly one form
// is set: a declarative operator over a single attribute, or an inline
// Rego module queried at data.hipaascope.violation.
type Condition struct {
	Attribute string      `yaml:"attribute,omitempty" json:"attribute,omitempty"`
	Operator  string      `yaml:"operator,omitempty" json:"operator,omitempty"`
	Value     interface{} `yaml:"value,omitempty" json:"value,omitempty"`
	Rego      string      `yaml:"rego,omitempty" json:"rego,omitempty"`

	prepared *rego.PreparedEvalQuery
}

// prepareRego compiles the inline module once so per-asset evaluation
// only pays for input binding.
func (c *Condition) prepareRego(ctx context.Context, ruleID string) error {
	r := rego.New(
		rego.Query(regoQuery),
		rego.Module(ruleID+".rego", c.Rego),
	)
	pq, err := r.PrepareForEval(ctx)
	if err != nil {
		return errors.Wrap(err, "prepare for eval")
	}
	c.prepared = &pq
	return nil
}

// regoInput is the document a Rego condition sees as input.
type regoInput struct {
	Asset      map[string]string      `json:"asset"`
	Attributes map[string]interface{} `json:"attributes"`
}

// Eval runs the condition against an attribute map. Declarative
// conditions report a gap when the referenced attribute is missing
// (except for the existence operators, which are about absence itself).
// Rego conditions treat an undefined result as satisfied.
func (c *Condition) Eval(ctx context.Context, asset *models.Asset, attrs models.AttrMap) (Verdict, error) {
	if c.Rego != "" {
		return c.evalRego(ctx, asset, attrs)
	}
	return c.evalOperator(attrs)
}

func (c *Condition) evalRego(ctx context.Context, asset *models.Asset, attrs models.AttrMap) (Verdict, error) {
	if c.prepared == nil {
		return VerdictSatisfied, errors.New("rego condition was not prepared at catalog load")
	}

	in := regoInput{Attributes: attrs}
	if asset != nil {
		in.Asset = map[string]string{
			"id":      asset.ID,
			"type":    asset.Type,
			"service": asset.Service,
		}
	}

	rs, err := c.prepared.Eval(ctx, rego.EvalInput(in))
	if err != nil {
		return VerdictSatisfied, errors.Wrap(err, "rego eval")
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return VerdictSatisfied, nil
	}
	violated, ok := rs[0].Expressions[0].Value.(bool)
	if !ok {
		return VerdictSatisfied, errors.Errorf("rego condition returned %T, want bool", rs[0].Expressions[0].Value)
	}
	if violated {
		return VerdictViolated, nil
	}
	return VerdictSatisfied, nil
}

func (c *Condition) evalOperator(attrs models.AttrMap) (Verdict, error) {
	// The condition states the violating condition: "exists" flags an
	// attribute that should not be there, "absent" one that should.
	// Existence checks never gap since absence is the thing tested.
	switch c.Operator {
	case OpExists:
		return verdictOf(attrs.Has(c.Attribute)), nil
	case OpAbsent:
		return verdictOf(!attrs.Has(c.Attribute)), nil
	}

	if !attrs.Has(c.Attribute) {
		return VerdictGap, nil
	}

	switch c.Operator {
	case OpEquals, OpNotEquals:
		return c.evalEquality(attrs)
	case OpContains, OpNotContains:
		return c.evalContains(attrs)
	case OpIn, OpNotIn:
		return c.evalMembership(attrs)
	case OpGreaterThan, OpLessThan:
		return c.evalComparison(attrs)
	case OpIsTrue, OpIsFalse:
		return c.evalBool(attrs)
	}
	return VerdictSatisfied, errors.Errorf("unknown operator %q", c.Operator)
}

// verdictOf maps a violation flag to a verdict.
func verdictOf(violated bool) Verdict {
	if violated {
		return VerdictViolated
	}
	return VerdictSatisfied
}

func (c *Condition) evalEquality(attrs models.AttrMap) (Verdict, error) {
	switch want := c.Value.(type) {
	case string:
		got, ok := attrs.String(c.Attribute)
		if !ok {
			return VerdictSatisfied, typeMismatch(c.Attribute, "string", attrs[c.Attribute])
		}
		return verdictOf((got == want) == (c.Operator == OpEquals)), nil
	case bool:
		got, ok := attrs.Bool(c.Attribute)
		if !ok {
			return VerdictSatisfied, typeMismatch(c.Attribute, "bool", attrs[c.Attribute])
		}
		return verdictOf((got == want) == (c.Operator == OpEquals)), nil
	case int, int64, float64:
		got, ok := attrs.Number(c.Attribute)
		if !ok {
			return VerdictSatisfied, typeMismatch(c.Attribute, "number", attrs[c.Attribute])
		}
		return verdictOf((got == toFloat(want)) == (c.Operator == OpEquals)), nil
	}
	return VerdictSatisfied, errors.Errorf("attribute %s: unsupported comparison value %T", c.Attribute, c.Value)
}

func (c *Condition) evalContains(attrs models.AttrMap) (Verdict, error) {
	want, ok := c.Value.(string)
	if !ok {
		return VerdictSatisfied, errors.Errorf("attribute %s: %s needs a string value", c.Attribute, c.Operator)
	}

	if list, ok := attrs.StringList(c.Attribute); ok {
		found := containsString(list, want)
		return verdictOf(found == (c.Operator == OpContains)), nil
	}
	if s, ok := attrs.String(c.Attribute); ok {
		found := strings.Contains(s, want)
		return verdictOf(found == (c.Operator == OpContains)), nil
	}
	return VerdictSatisfied, typeMismatch(c.Attribute, "string or list", attrs[c.Attribute])
}

func (c *Condition) evalMembership(attrs models.AttrMap) (Verdict, error) {
	allowed, err := valueList(c.Value)
	if err != nil {
		return VerdictSatisfied, errors.Wrapf(err, "attribute %s", c.Attribute)
	}
	got, ok := attrs.String(c.Attribute)
	if !ok {
		return VerdictSatisfied, typeMismatch(c.Attribute, "string", attrs[c.Attribute])
	}
	found := containsString(allowed, got)
	return verdictOf(found == (c.Operator == OpIn)), nil
}

func (c *Condition) evalComparison(attrs models.AttrMap) (Verdict, error) {
	want, ok := numericValue(c.Value)
	if !ok {
		return VerdictSatisfied, errors.Errorf("attribute %s: %s needs a numeric value", c.Attribute, c.Operator)
	}
	got, ok := attrs.Number(c.Attribute)
	if !ok {
		return VerdictSatisfied, typeMismatch(c.Attribute, "number", attrs[c.Attribute])
	}
	if c.Operator == OpGreaterThan {
		return verdictOf(got > want), nil
	}
	return verdictOf(got < want), nil
}

func (c *Condition) evalBool(attrs models.AttrMap) (Verdict, error) {
	got, ok := attrs.Bool(c.Attribute)
	if !ok {
		return VerdictSatisfied, typeMismatch(c.Attribute, "bool", attrs[c.Attribute])
	}
	return verdictOf(got == (c.Operator == OpIsTrue)), nil
}

func typeMismatch(attr, want string, got interface{}) error {
	return errors.Errorf("attribute %s: have %T, want %s", attr, got, want)
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case float64:
		return n
	}
	return 0
}

func numericValue(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func valueList(v interface{}) ([]string, error) {
	switch list := v.(type) {
	case []string:
		return list, nil
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("list value %v is %T, want string", item, item)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("value is %T, want a list", v)
}
