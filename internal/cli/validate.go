package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/veridianlabs/hipaascope/internal/catalog"
)

var validateCmd = &cobra.Command{
	Use:   "validate <rules.yaml>",
	Short: "Validate a rule catalog file",
	Long: `Validate parses and checks a rule catalog without running a scan.
Every schema problem is reported in one pass, so a single validate run
fixes a whole rules file.

Exit codes:
  0  Catalog is valid
  2  Parse or validation errors`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	path := args[0]

	cat, err := catalog.Load(context.Background(), path)
	if err != nil {
		return &ValidationError{Message: fmt.Sprintf("catalog %s is invalid:\n%v", path, err)}
	}

	assetRules := len(cat.AssetRules())
	accountRules := len(cat.AccountRules())
	fmt.Printf("✓ %s is valid\n", path)
	fmt.Printf("  version: %s\n", cat.Version)
	fmt.Printf("  rules:   %d (%d asset-scope, %d account-scope)\n",
		len(cat.Rules), assetRules, accountRules)
	return nil
}
