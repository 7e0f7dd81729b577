package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/veridianlabs/hipaascope/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config and example rules file",
	Long: `Init writes two files into the current directory:

  hipaascope.yaml        — annotated configuration with defaults
  hipaascope-rules.yaml  — small example rule catalog to adapt

Existing files are never overwritten unless --force is given.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false,
		"overwrite existing files")
}

func runInit(cmd *cobra.Command, args []string) error {
	files := []struct {
		name    string
		content string
	}{
		{"hipaascope.yaml", config.GenerateSampleConfig()},
		{"hipaascope-rules.yaml", exampleRules},
	}

	for _, f := range files {
		if _, err := os.Stat(f.name); err == nil && !initForce {
			fmt.Printf("  - %s already exists (use --force to overwrite)\n", f.name)
			continue
		}
		if err := os.WriteFile(f.name, []byte(f.content), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", f.name, err)
		}
		fmt.Printf("  ✓ wrote %s\n", f.name)
	}

	fmt.Println("\nNext steps:")
	fmt.Println("  hipaascope doctor")
	fmt.Println("  hipaascope scan inventory.json --store")
	return nil
}

const exampleRules = `# hipaascope rule catalog
# Each rule states the condition that constitutes a violation.
version: "example/1"

rules:
  - id: example.storage.public-access
    category: technical
    framework: HIPAA
    safeguard: "§164.312(a)(1)"
    severity: critical
    applies_to:
      types: [storage-bucket]
    condition:
      attribute: public_access
      operator: is_true
    description: "Bucket {{.AssetID}} is publicly accessible"
    remediation:
      action: "Remove allUsers/allAuthenticatedUsers grants and enable public access prevention"
      effort: "2 hours"
      effort_hours: 2
      cost_range: "$1,000 - $5,000"
      timeline: immediately

  - id: example.secret.replication-region
    category: technical
    framework: HIPAA
    safeguard: "§164.312(e)(2)(ii)"
    severity: medium
    applies_to:
      types: [secret-version]
    condition:
      attribute: replication_mode
      operator: not_equals
      value: user-managed
    description: "Secret {{.AssetID}} replicates automatically without region control"
    remediation:
      action: "Recreate the secret with user-managed replication in approved regions"
      effort: "4 hours"
      effort_hours: 4
      cost_range: "$1,000 - $5,000"
      timeline: 1-2 weeks

  - id: example.admin.privacy-officer
    category: administrative
    framework: HIPAA
    safeguard: "§164.308(a)(2)"
    severity: high
    applies_to:
      scope: account
    condition:
      attribute: privacy_officer
      operator: absent
    description: "No privacy officer is designated for {{.ProjectID}}"
    remediation:
      action: "Designate a privacy officer and record the assignment"
      effort: "1 hour"
      effort_hours: 1
      cost_range: "$500 - $2,000"
      timeline: 1-2 weeks
`
