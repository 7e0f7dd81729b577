package catalog

import (
	"context"
	"os"
	"strings"
	"text/template"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/veridianlabs/hipaascope/internal/models"
)

// Scope values for rule applicability.
const (
	ScopeAsset   = "asset"
	ScopeAccount = "account"
)

// Catalog is a versioned, immutable set of compliance rules. Reloading
// produces a new Catalog value; an in-flight scan never observes rule
// changes.
type Catalog struct {
	Version string `yaml:"version" json:"version"`
	Rules   []Rule `yaml:"rules" json:"rules"`
}

// Rule is one declarative compliance check.
type Rule struct {
	ID              string       `yaml:"id" json:"id"`
	Category        string       `yaml:"category" json:"category" validate:"required,oneof=administrative physical technical minimum-necessary breach-notification"`
	Framework       string       `yaml:"framework,omitempty" json:"framework,omitempty"`
	Safeguard       string       `yaml:"safeguard,omitempty" json:"safeguard,omitempty"`
	DefaultSeverity string       `yaml:"severity" json:"severity" validate:"required,oneof=critical high medium low"`
	AppliesTo       AppliesTo    `yaml:"applies_to" json:"applies_to"`
	Condition       *Condition   `yaml:"condition" json:"condition"`
	Description     string       `yaml:"description" json:"description"`
	Remediation     *Remediation `yaml:"remediation,omitempty" json:"remediation,omitempty"`

	tmpl *template.Template
}

// AppliesTo selects which assets a rule runs against. An empty selector
// list matches everything within the given dimension. Scope "account"
// marks a rule that runs once per scan with no asset binding.
type AppliesTo struct {
	Scope    string   `yaml:"scope,omitempty" json:"scope,omitempty"`
	Types    []string `yaml:"types,omitempty" json:"types,omitempty"`
	Services []string `yaml:"services,omitempty" json:"services,omitempty"`
}

// Remediation is the advisory entry attached to a rule.
type Remediation struct {
	Action      string `yaml:"action" json:"action"`
	Effort      string `yaml:"effort,omitempty" json:"effort,omitempty"`
	EffortHours int    `yaml:"effort_hours,omitempty" json:"effort_hours,omitempty"`
	CostRange   string `yaml:"cost_range,omitempty" json:"cost_range,omitempty"`
	Timeline    string `yaml:"timeline,omitempty" json:"timeline,omitempty"`
}

// AccountScope reports whether the rule runs once per scan instead of
// per asset.
func (r *Rule) AccountScope() bool {
	return r.AppliesTo.Scope == ScopeAccount
}

// Matches reports whether a per-asset rule applies to the given asset.
func (r *Rule) Matches(asset *models.Asset) bool {
	if r.AccountScope() {
		return false
	}
	if len(r.AppliesTo.Types) > 0 && !containsString(r.AppliesTo.Types, asset.Type) {
		return false
	}
	if len(r.AppliesTo.Services) > 0 && !containsString(r.AppliesTo.Services, asset.Service) {
		return false
	}
	return true
}

// descContext is the data available to description templates.
type descContext struct {
	AssetID   string
	AssetType string
	Service   string
	ProjectID string
}

// RenderDescription fills the rule's description template with asset
// identity. Template errors were caught at catalog load, so rendering
// only fails on exotic template functions, which the loader rejects.
func (r *Rule) RenderDescription(assetID, assetType, service, projectID string) (string, error) {
	if r.tmpl == nil {
		return r.Description, nil
	}
	var b strings.Builder
	err := r.tmpl.Execute(&b, descContext{
		AssetID:   assetID,
		AssetType: assetType,
		Service:   service,
		ProjectID: projectID,
	})
	if err != nil {
		return "", errors.Wrapf(err, "render description for rule %s", r.ID)
	}
	return b.String(), nil
}

// Load reads and compiles a rule catalog from a YAML file.
func Load(ctx context.Context, path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &models.CatalogError{Source: path, Err: err}
	}
	cat, err := Parse(ctx, data)
	if err != nil {
		var ce *models.CatalogError
		if errors.As(err, &ce) {
			ce.Source = path
			return nil, ce
		}
		return nil, err
	}
	return cat, nil
}

// Parse decodes, validates and compiles a rule catalog from YAML bytes.
func Parse(ctx context.Context, data []byte) (*Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, &models.CatalogError{Source: "inline", Err: errors.Wrap(err, "parse yaml")}
	}
	if err := validateCatalog(&cat); err != nil {
		return nil, &models.CatalogError{Source: "inline", Err: err}
	}
	if err := cat.compile(ctx); err != nil {
		return nil, &models.CatalogError{Source: "inline", Err: err}
	}
	return &cat, nil
}

// compile parses description templates and prepares Rego queries.
// Called once per load; rules are immutable afterwards.
func (c *Catalog) compile(ctx context.Context) error {
	for i := range c.Rules {
		r := &c.Rules[i]
		if strings.Contains(r.Description, "{{") {
			tmpl, err := template.New(r.ID).Option("missingkey=error").Parse(r.Description)
			if err != nil {
				return errors.Wrapf(err, "rule %s: description template", r.ID)
			}
			r.tmpl = tmpl
		}
		if r.Condition != nil && r.Condition.Rego != "" {
			if err := r.Condition.prepareRego(ctx, r.ID); err != nil {
				return errors.Wrapf(err, "rule %s: rego condition", r.ID)
			}
		}
	}
	return nil
}

// RuleByID returns the rule with the given id, or nil.
func (c *Catalog) RuleByID(id string) *Rule {
	for i := range c.Rules {
		if c.Rules[i].ID == id {
			return &c.Rules[i]
		}
	}
	return nil
}

// AssetRules returns the per-asset rules.
func (c *Catalog) AssetRules() []*Rule {
	var out []*Rule
	for i := range c.Rules {
		if !c.Rules[i].AccountScope() {
			out = append(out, &c.Rules[i])
		}
	}
	return out
}

// AccountRules returns the account-scope rules.
func (c *Catalog) AccountRules() []*Rule {
	var out []*Rule
	for i := range c.Rules {
		if c.Rules[i].AccountScope() {
			out = append(out, &c.Rules[i])
		}
	}
	return out
}

// FindCatalogFile searches for a rules file in the current directory
// and parent directories up to the filesystem root.
func FindCatalogFile() string {
	names := []string{"hipaascope-rules.yaml", "hipaascope-rules.yml", ".hipaascope/rules.yaml"}

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

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
