package models

// Canonical asset types produced by the normalizer
const (
	TypeStorageBucket    = "storage-bucket"
	TypeSecretVersion    = "secret-version"
	TypeFirewallRule     = "compute-firewall-rule"
	TypeComputeInstance  = "compute-instance"
	TypeIAMPolicy        = "iam-policy"
	TypeServiceAccount   = "service-account"
	TypeLoggingSink      = "logging-sink"
	TypeDatabaseInstance = "database-instance"
	TypeNetwork          = "compute-network"
	TypeUnknown          = "unknown"
)

// AccountAssetID is the asset identity attached to account-scope findings.
const AccountAssetID = "account"

// AttrMap holds normalized asset attributes. Values are restricted to
// bool, string, float64 and []string; accessors return ok=false for a
// missing key or a type mismatch so callers can tell "absent" from a
// zero value.
type AttrMap map[string]interface{}

// String returns a string attribute.
func (m AttrMap) String(key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Bool returns a boolean attribute.
func (m AttrMap) Bool(key string) (bool, bool) {
	v, ok := m[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// Number returns a numeric attribute. JSON decoding yields float64 for
// all numbers; ints stored programmatically are widened here.
func (m AttrMap) Number(key string) (float64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// StringList returns a list attribute. Lists arriving from JSON decode
// as []interface{} and are converted element-wise.
func (m AttrMap) StringList(key string) ([]string, bool) {
	v, ok := m[key]
	if !ok {
		return nil, false
	}
	switch list := v.(type) {
	case []string:
		return list, true
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

// Has reports whether the attribute exists at all.
func (m AttrMap) Has(key string) bool {
	_, ok := m[key]
	return ok
}

// Asset is the canonical representation of one cloud resource under scan.
// Assets are built fresh by the normalizer each scan and are immutable
// while evaluation runs; only findings outlive the scan.
type Asset struct {
	ID         string            `json:"id"`         // provider-qualified resource name
	Type       string            `json:"type"`       // canonical kind, e.g. storage-bucket
	Service    string            `json:"service"`    // owning API/service name
	Attributes AttrMap           `json:"attributes"` // typed key/value pairs
	Tags       map[string]string `json:"tags,omitempty"`
}

// RawRecord is the inventory input contract: one provider-agnostic record
// as supplied by an external inventory adapter.
type RawRecord struct {
	ResourceName  string                 `json:"resource_name"`
	ResourceKind  string                 `json:"resource_kind"`
	OwningService string                 `json:"owning_service"`
	Attributes    map[string]interface{} `json:"attributes"`
	Labels        map[string]string      `json:"labels,omitempty"`
}

// AccountMeta carries account/project identity into account-scope
// rule evaluation and report headers.
type AccountMeta struct {
	ProjectID string `json:"project_id,omitempty"`
	OrgName   string `json:"org_name,omitempty"`
	Provider  string `json:"provider,omitempty"`
}
