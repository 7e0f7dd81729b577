package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/veridianlabs/hipaascope/internal/scoring"
)

var explainFormat string

var explainScoreCmd = &cobra.Command{
	Use:   "explain-score",
	Short: "Show the risk score formula step by step",
	Long: `Explain-score loads the latest stored result and shows exactly how
the risk score and compliance verdict were derived:

  1. Per-severity contributions (count × weight)
  2. The raw sum and the cap
  3. The non-compliance threshold
  4. The verdict and its reason

The derivation is recomputed from the configured weights, so a weights
change since the scan shows up as a score discrepancy.

This command requires a previous run stored with --store.`,
	RunE: runExplainScore,
}

func init() {
	explainScoreCmd.Flags().StringVar(&explainFormat, "format", "text",
		"output format: text or json")
}

func runExplainScore(cmd *cobra.Command, args []string) error {
	store, err := openStorage()
	if err != nil {
		return err
	}

	result, err := store.GetLatestRun()
	if err != nil {
		return fmt.Errorf("no stored runs found. Run 'hipaascope scan --store' first: %w", err)
	}

	scorer := scoring.NewScorer(cfg.Weights, cfg.Thresholds(), cfg.Impact)
	explanation := scorer.Explain(result)

	if explainFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(explanation)
	}

	return writeExplainText(explanation, result.RiskScore)
}

func writeExplainText(ex scoring.Explanation, storedScore float64) error {
	fmt.Println("Risk Score Breakdown")
	fmt.Println("====================")
	fmt.Println()

	// Step 1: Per-severity contributions
	fmt.Println("1. Contributions per severity:")
	for _, c := range ex.Contributions {
		fmt.Printf("   %-10s %3d × %5.1f = %7.1f\n", c.Severity, c.Count, c.Weight, c.Points)
	}
	fmt.Printf("   %-10s %17s %7.1f\n", "", "raw:", ex.RawScore)
	fmt.Println()

	// Step 2: Cap
	fmt.Println("2. Cap:")
	if ex.Clamped {
		fmt.Printf("   raw %.1f exceeds cap %.0f — clamped to %.1f\n", ex.RawScore, ex.Cap, ex.Score)
	} else {
		fmt.Printf("   raw %.1f within cap %.0f\n", ex.RawScore, ex.Cap)
	}
	fmt.Printf("   formula: %s\n", ex.Formula)
	fmt.Println()

	// Step 3: Threshold
	fmt.Println("3. Threshold:")
	fmt.Printf("   non-compliant above %.1f (a score exactly at the threshold passes)\n", ex.Threshold)
	fmt.Println()

	// Step 4: Verdict
	fmt.Println("4. Verdict:")
	fmt.Printf("   %s — %s\n", strings.ToUpper(ex.Status), ex.StatusReason)
	fmt.Println()

	fmt.Printf("Result: %.1f / %.0f\n", ex.Score, ex.Cap)
	if ex.Score != storedScore {
		fmt.Printf("Note: stored result carries score %.1f — weights changed since the scan.\n", storedScore)
	}
	return nil
}
