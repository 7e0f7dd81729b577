package catalog

import (
	"context"

	"github.com/veridianlabs/hipaascope/internal/models"
)

// BuiltinVersion tags the shipped baseline catalog.
const BuiltinVersion = "hipaa-baseline-2026.1"

// Builtin returns the shipped HIPAA baseline catalog. It goes through
// the same validation and compilation as a file-loaded catalog.
func Builtin(ctx context.Context) (*Catalog, error) {
	cat := &Catalog{Version: BuiltinVersion, Rules: builtinRules()}
	if err := validateCatalog(cat); err != nil {
		return nil, &models.CatalogError{Source: "builtin", Err: err}
	}
	if err := cat.compile(ctx); err != nil {
		return nil, &models.CatalogError{Source: "builtin", Err: err}
	}
	return cat, nil
}

func builtinRules() []Rule {
	return []Rule{
		{
			ID:              "hipaa.secret.replication-region",
			Category:        models.CategoryTechnical,
			Framework:       "HIPAA",
			Safeguard:       "§164.312(e)(2)(ii)",
			DefaultSeverity: models.SeverityMedium,
			AppliesTo:       AppliesTo{Types: []string{models.TypeSecretVersion}},
			Condition:       &Condition{Attribute: "replication_mode", Operator: OpNotEquals, Value: "user-managed"},
			Description:     "Secret {{.AssetID}} replicates automatically without region control",
			Remediation: &Remediation{
				Action:      "Recreate the secret with user-managed replication pinned to approved regions",
				Effort:      "4 hours",
				EffortHours: 4,
				CostRange:   "$1,000 - $5,000",
				Timeline:    "1-2 weeks",
			},
		},
		{
			ID:              "hipaa.secret.rotation-period",
			Category:        models.CategoryTechnical,
			Framework:       "HIPAA",
			Safeguard:       "§164.312(d)",
			DefaultSeverity: models.SeverityMedium,
			AppliesTo:       AppliesTo{Types: []string{models.TypeSecretVersion}},
			Condition:       &Condition{Attribute: "rotation_period", Operator: OpAbsent},
			Description:     "Secret {{.AssetID}} has no rotation schedule",
			Remediation: &Remediation{
				Action:      "Configure automatic rotation on the secret",
				Effort:      "2 hours",
				EffortHours: 2,
				CostRange:   "$500 - $2,000",
				Timeline:    "1-2 weeks",
			},
		},
		{
			ID:              "hipaa.storage.public-access",
			Category:        models.CategoryTechnical,
			Framework:       "HIPAA",
			Safeguard:       "§164.312(a)(1)",
			DefaultSeverity: models.SeverityCritical,
			AppliesTo:       AppliesTo{Types: []string{models.TypeStorageBucket}},
			Condition:       &Condition{Attribute: "public_access", Operator: OpIsTrue},
			Description:     "Bucket {{.AssetID}} is publicly accessible",
			Remediation: &Remediation{
				Action:      "Enable public access prevention and remove allUsers/allAuthenticatedUsers grants",
				Effort:      "2 hours",
				EffortHours: 2,
				CostRange:   "$1,000 - $5,000",
				Timeline:    "immediately",
			},
		},
		{
			ID:              "hipaa.storage.uniform-access",
			Category:        models.CategoryTechnical,
			Framework:       "HIPAA",
			Safeguard:       "§164.312(a)(1)",
			DefaultSeverity: models.SeverityMedium,
			AppliesTo:       AppliesTo{Types: []string{models.TypeStorageBucket}},
			Condition:       &Condition{Attribute: "uniform_bucket_level_access", Operator: OpIsFalse},
			Description:     "Bucket {{.AssetID}} mixes ACLs with IAM instead of uniform bucket-level access",
			Remediation: &Remediation{
				Action:      "Enable uniform bucket-level access and migrate legacy ACLs to IAM",
				Effort:      "4 hours",
				EffortHours: 4,
				CostRange:   "$1,000 - $5,000",
				Timeline:    "2-4 weeks",
			},
		},
		{
			ID:              "hipaa.storage.versioning",
			Category:        models.CategoryTechnical,
			Framework:       "HIPAA",
			Safeguard:       "§164.312(c)(1)",
			DefaultSeverity: models.SeverityLow,
			AppliesTo:       AppliesTo{Types: []string{models.TypeStorageBucket}},
			Condition:       &Condition{Attribute: "versioning_enabled", Operator: OpIsFalse},
			Description:     "Bucket {{.AssetID}} does not version objects",
			Remediation: &Remediation{
				Action:      "Enable object versioning on the bucket",
				Effort:      "1 hour",
				EffortHours: 1,
				CostRange:   "$500 - $2,000",
				Timeline:    "1-3 months",
			},
		},
		{
			ID:              "hipaa.storage.retention-policy",
			Category:        models.CategoryAdministrative,
			Framework:       "HIPAA",
			Safeguard:       "§164.316(b)(2)(i)",
			DefaultSeverity: models.SeverityLow,
			AppliesTo:       AppliesTo{Types: []string{models.TypeStorageBucket}},
			Condition:       &Condition{Attribute: "retention_policy", Operator: OpAbsent},
			Description:     "Bucket {{.AssetID}} has no retention policy for records",
			Remediation: &Remediation{
				Action:      "Set a retention policy matching the six-year documentation requirement",
				Effort:      "2 hours",
				EffortHours: 2,
				CostRange:   "$500 - $2,000",
				Timeline:    "1-3 months",
			},
		},
		{
			ID:              "hipaa.network.open-ingress",
			Category:        models.CategoryTechnical,
			Framework:       "HIPAA",
			Safeguard:       "§164.312(e)(1)",
			DefaultSeverity: models.SeverityCritical,
			AppliesTo:       AppliesTo{Types: []string{models.TypeFirewallRule}},
			Condition:       &Condition{Attribute: "source_ranges", Operator: OpContains, Value: "0.0.0.0/0"},
			Description:     "Firewall rule {{.AssetID}} allows ingress from the entire internet",
			Remediation: &Remediation{
				Action:      "Restrict source ranges to the corporate CIDR blocks or IAP",
				Effort:      "4 hours",
				EffortHours: 4,
				CostRange:   "$1,000 - $5,000",
				Timeline:    "immediately",
			},
		},
		{
			ID:              "hipaa.network.remote-admin-open",
			Category:        models.CategoryTechnical,
			Framework:       "HIPAA",
			Safeguard:       "§164.312(e)(1)",
			DefaultSeverity: models.SeverityHigh,
			AppliesTo:       AppliesTo{Types: []string{models.TypeFirewallRule}},
			Condition: &Condition{Rego: `package hipaascope

import rego.v1

default violation := false

admin_ports := {"22", "3389"}

violation if {
	some r in input.attributes.source_ranges
	r == "0.0.0.0/0"
	some allow in input.attributes.allowed
	lower(allow.protocol) == "tcp"
	some port in allow.ports
	admin_ports[port]
}
`},
			Description: "Firewall rule {{.AssetID}} exposes SSH or RDP to the internet",
			Remediation: &Remediation{
				Action:      "Close ports 22 and 3389 to 0.0.0.0/0; tunnel admin access through IAP or a bastion",
				Effort:      "1 day",
				EffortHours: 8,
				CostRange:   "$2,000 - $8,000",
				Timeline:    "immediately",
			},
		},
		{
			ID:              "hipaa.compute.default-service-account",
			Category:        models.CategoryTechnical,
			Framework:       "HIPAA",
			Safeguard:       "§164.312(a)(2)(i)",
			DefaultSeverity: models.SeverityCritical,
			AppliesTo:       AppliesTo{Types: []string{models.TypeComputeInstance}},
			Condition:       &Condition{Attribute: "service_account", Operator: OpContains, Value: "-compute@developer.gserviceaccount.com"},
			Description:     "Instance {{.AssetID}} runs as the default compute service account",
			Remediation: &Remediation{
				Action:      "Create a dedicated service account with least-privilege roles and reattach the instance",
				Effort:      "1 day",
				EffortHours: 8,
				CostRange:   "$2,000 - $8,000",
				Timeline:    "1-2 weeks",
			},
		},
		{
			ID:              "hipaa.iam.primitive-roles",
			Category:        models.CategoryMinimumNecessary,
			Framework:       "HIPAA",
			Safeguard:       "§164.502(b)",
			DefaultSeverity: models.SeverityHigh,
			AppliesTo:       AppliesTo{Types: []string{models.TypeIAMPolicy}},
			Condition: &Condition{Rego: `package hipaascope

import rego.v1

default violation := false

primitive := {"roles/owner", "roles/editor"}

violation if {
	some binding in input.attributes.bindings
	primitive[binding.role]
	some member in binding.members
	not startswith(member, "serviceAccount:")
}
`},
			Description: "Policy {{.AssetID}} grants a primitive owner/editor role to a human principal",
			Remediation: &Remediation{
				Action:      "Replace owner/editor grants with predefined least-privilege roles",
				Effort:      "2 days",
				EffortHours: 16,
				CostRange:   "$3,000 - $10,000",
				Timeline:    "2-4 weeks",
			},
		},
		{
			ID:              "hipaa.iam.service-account-keys",
			Category:        models.CategoryTechnical,
			Framework:       "HIPAA",
			Safeguard:       "§164.312(d)",
			DefaultSeverity: models.SeverityMedium,
			AppliesTo:       AppliesTo{Types: []string{models.TypeServiceAccount}},
			Condition:       &Condition{Attribute: "user_managed_key_count", Operator: OpGreaterThan, Value: 0},
			Description:     "Service account {{.AssetID}} carries user-managed keys",
			Remediation: &Remediation{
				Action:      "Delete user-managed keys and switch workloads to attached service identities",
				Effort:      "1 day",
				EffortHours: 8,
				CostRange:   "$1,000 - $5,000",
				Timeline:    "2-4 weeks",
			},
		},
		{
			ID:              "hipaa.db.public-ip",
			Category:        models.CategoryTechnical,
			Framework:       "HIPAA",
			Safeguard:       "§164.312(e)(1)",
			DefaultSeverity: models.SeverityHigh,
			AppliesTo:       AppliesTo{Types: []string{models.TypeDatabaseInstance}},
			Condition:       &Condition{Attribute: "public_ip", Operator: OpIsTrue},
			Description:     "Database {{.AssetID}} is reachable over a public IP",
			Remediation: &Remediation{
				Action:      "Disable the public IP and connect through private service access",
				Effort:      "1 day",
				EffortHours: 8,
				CostRange:   "$2,000 - $8,000",
				Timeline:    "1-2 weeks",
			},
		},
		{
			ID:              "hipaa.db.backups",
			Category:        models.CategoryAdministrative,
			Framework:       "HIPAA",
			Safeguard:       "§164.308(a)(7)(ii)(A)",
			DefaultSeverity: models.SeverityMedium,
			AppliesTo:       AppliesTo{Types: []string{models.TypeDatabaseInstance}},
			Condition:       &Condition{Attribute: "backup_enabled", Operator: OpIsFalse},
			Description:     "Database {{.AssetID}} has automated backups disabled",
			Remediation: &Remediation{
				Action:      "Enable automated backups with point-in-time recovery",
				Effort:      "2 hours",
				EffortHours: 2,
				CostRange:   "$500 - $2,000",
				Timeline:    "1-2 weeks",
			},
		},
		{
			ID:              "hipaa.physical.data-residency",
			Category:        models.CategoryPhysical,
			Framework:       "HIPAA",
			Safeguard:       "§164.310(a)(1)",
			DefaultSeverity: models.SeverityLow,
			AppliesTo:       AppliesTo{Types: []string{models.TypeStorageBucket, models.TypeDatabaseInstance}},
			Condition:       &Condition{Attribute: "location", Operator: OpNotIn, Value: []string{"us-central1", "us-east1", "us-east4", "us-west1", "us-west2", "us"}},
			Description:     "Resource {{.AssetID}} is provisioned outside the approved regions",
			Remediation: &Remediation{
				Action:      "Migrate the resource into an approved region covered by the facility controls assessment",
				Effort:      "1 week",
				EffortHours: 40,
				CostRange:   "$5,000 - $15,000",
				Timeline:    "1-3 months",
			},
		},
		{
			ID:              "hipaa.logging.audit-sink",
			Category:        models.CategoryTechnical,
			Framework:       "HIPAA",
			Safeguard:       "§164.312(b)",
			DefaultSeverity: models.SeverityHigh,
			AppliesTo:       AppliesTo{Scope: ScopeAccount},
			Condition:       &Condition{Attribute: "asset_types", Operator: OpNotContains, Value: models.TypeLoggingSink},
			Description:     "Project {{.ProjectID}} exports no audit logs to a retention sink",
			Remediation: &Remediation{
				Action:      "Create an aggregated log sink shipping admin and data access logs to locked storage",
				Effort:      "1 day",
				EffortHours: 8,
				CostRange:   "$2,000 - $8,000",
				Timeline:    "1-2 weeks",
			},
		},
		{
			ID:              "hipaa.admin.privacy-officer-designated",
			Category:        models.CategoryAdministrative,
			Framework:       "HIPAA",
			Safeguard:       "§164.308(a)(2)",
			DefaultSeverity: models.SeverityHigh,
			AppliesTo:       AppliesTo{Scope: ScopeAccount},
			Condition:       &Condition{Attribute: "privacy_officer", Operator: OpAbsent},
			Description:     "No privacy officer is designated for the covered entity",
			Remediation: &Remediation{
				Action:      "Designate a privacy officer and record the assignment in the account metadata",
				Effort:      "4 hours",
				EffortHours: 4,
				CostRange:   "$500 - $2,000",
				Timeline:    "1-2 weeks",
			},
		},
		{
			ID:              "hipaa.admin.risk-analysis-current",
			Category:        models.CategoryAdministrative,
			Framework:       "HIPAA",
			Safeguard:       "§164.308(a)(1)(ii)(A)",
			DefaultSeverity: models.SeverityMedium,
			AppliesTo:       AppliesTo{Scope: ScopeAccount},
			Condition:       &Condition{Attribute: "last_risk_analysis", Operator: OpAbsent},
			Description:     "No current risk analysis is on record for the environment",
			Remediation: &Remediation{
				Action:      "Run a documented risk analysis and record its completion date",
				Effort:      "1 week",
				EffortHours: 40,
				CostRange:   "$5,000 - $15,000",
				Timeline:    "1-3 months",
			},
		},
		{
			ID:              "hipaa.breach.notification-contact",
			Category:        models.CategoryBreachNotification,
			Framework:       "HIPAA",
			Safeguard:       "§164.404",
			DefaultSeverity: models.SeverityMedium,
			AppliesTo:       AppliesTo{Scope: ScopeAccount},
			Condition:       &Condition{Attribute: "breach_contact", Operator: OpAbsent},
			Description:     "No breach notification contact is configured",
			Remediation: &Remediation{
				Action:      "Register a breach notification contact and escalation path",
				Effort:      "2 hours",
				EffortHours: 2,
				CostRange:   "$500 - $2,000",
				Timeline:    "1-2 weeks",
			},
		},
	}
}
