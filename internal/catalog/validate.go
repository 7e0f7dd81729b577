package catalog

import (
	"fmt"
	"reflect"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
)

// validate checks enum and presence tags on Rule fields. Field names in
// messages use the yaml spelling users see in their rules file.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// validateCatalog collects every schema problem instead of stopping at
// the first, so one validate run fixes a whole rules file.
func validateCatalog(c *Catalog) error {
	var result *multierror.Error

	if len(c.Rules) == 0 {
		result = multierror.Append(result, fmt.Errorf("catalog defines no rules"))
		return result.ErrorOrNil()
	}

	seen := make(map[string]bool, len(c.Rules))
	for i := range c.Rules {
		r := &c.Rules[i]

		if r.ID == "" {
			result = multierror.Append(result, fmt.Errorf("rule %d: missing id", i))
			continue
		}
		if seen[r.ID] {
			result = multierror.Append(result, fmt.Errorf("rule %s: duplicate id", r.ID))
			continue
		}
		seen[r.ID] = true

		if err := validate.Struct(r); err != nil {
			if fieldErrs, ok := err.(validator.ValidationErrors); ok {
				for _, fe := range fieldErrs {
					result = multierror.Append(result,
						fmt.Errorf("rule %s: %s %q is not valid", r.ID, fe.Field(), fmt.Sprintf("%v", fe.Value())))
				}
			} else {
				result = multierror.Append(result, fmt.Errorf("rule %s: %w", r.ID, err))
			}
		}

		for _, err := range validateScope(r) {
			result = multierror.Append(result, err)
		}
		for _, err := range validateCondition(r) {
			result = multierror.Append(result, err)
		}
	}

	return result.ErrorOrNil()
}

func validateScope(r *Rule) []error {
	var errs []error
	switch r.AppliesTo.Scope {
	case "", ScopeAsset:
		if len(r.AppliesTo.Types) == 0 && len(r.AppliesTo.Services) == 0 {
			errs = append(errs, fmt.Errorf("rule %s: applies_to selects nothing; set types, services or scope: account", r.ID))
		}
	case ScopeAccount:
		if len(r.AppliesTo.Types) > 0 || len(r.AppliesTo.Services) > 0 {
			errs = append(errs, fmt.Errorf("rule %s: account-scope rules cannot also select types or services", r.ID))
		}
	default:
		errs = append(errs, fmt.Errorf("rule %s: unknown scope %q", r.ID, r.AppliesTo.Scope))
	}
	return errs
}

func validateCondition(r *Rule) []error {
	c := r.Condition
	if c == nil {
		return []error{fmt.Errorf("rule %s: missing condition", r.ID)}
	}

	hasOperator := c.Attribute != "" || c.Operator != ""
	hasRego := c.Rego != ""
	if hasOperator == hasRego {
		return []error{fmt.Errorf("rule %s: condition needs exactly one of attribute/operator or rego", r.ID)}
	}
	if hasRego {
		return nil
	}

	var errs []error
	if c.Attribute == "" {
		errs = append(errs, fmt.Errorf("rule %s: condition missing attribute", r.ID))
	}
	if !knownOperators[c.Operator] {
		errs = append(errs, fmt.Errorf("rule %s: unknown operator %q", r.ID, c.Operator))
		return errs
	}

	switch c.Operator {
	case OpExists, OpAbsent, OpIsTrue, OpIsFalse:
		if c.Value != nil {
			errs = append(errs, fmt.Errorf("rule %s: operator %s takes no value", r.ID, c.Operator))
		}
	case OpIn, OpNotIn:
		if _, err := valueList(c.Value); err != nil {
			errs = append(errs, fmt.Errorf("rule %s: operator %s: %w", r.ID, c.Operator, err))
		}
	case OpGreaterThan, OpLessThan:
		if _, ok := numericValue(c.Value); !ok {
			errs = append(errs, fmt.Errorf("rule %s: operator %s needs a numeric value", r.ID, c.Operator))
		}
	case OpContains, OpNotContains:
		if _, ok := c.Value.(string); !ok {
			errs = append(errs, fmt.Errorf("rule %s: operator %s needs a string value", r.ID, c.Operator))
		}
	default:
		if c.Value == nil {
			errs = append(errs, fmt.Errorf("rule %s: operator %s needs a value", r.ID, c.Operator))
		}
	}

	return errs
}
