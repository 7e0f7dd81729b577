package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/veridianlabs/hipaascope/internal/models"
)

var (
	diffFormat   string
	diffOutput   string
	diffBaseline string
	diffFailNew  bool
)

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Show what changed between two scan runs",
	Long: `Compare the latest scan against a baseline to show compliance drift.

Shows new findings, resolved findings, and score deltas between two
runs. Finding identity is stable across runs, so the comparison is
exact, not heuristic. Useful in CI/CD to catch regressions introduced
by an infrastructure change.

By default compares the two most recent stored runs. Use --baseline to
specify a result file as the comparison target.

Exit codes:
  0  No new findings (or --fail-new not set)
  1  New findings detected (with --fail-new)

Example:
  hipaascope diff
  hipaascope diff --fail-new
  hipaascope diff --baseline ./baseline.json --format json`,
	RunE: runDiff,
}

func init() {
	diffCmd.Flags().StringVarP(&diffFormat, "format", "f", "text",
		"output format: text or json")
	diffCmd.Flags().StringVarP(&diffOutput, "output", "o", "",
		"write output to file instead of stdout")
	diffCmd.Flags().StringVar(&diffBaseline, "baseline", "",
		"path to baseline result JSON (default: previous stored run)")
	diffCmd.Flags().BoolVar(&diffFailNew, "fail-new", false,
		"exit 1 if new findings are found (for CI gating)")
}

// DiffResult is the structured output of a diff operation.
type DiffResult struct {
	Baseline     string           `json:"baseline"`
	Current      string           `json:"current"`
	NewFindings  []models.Finding `json:"new_findings"`
	ResolvedList []models.Finding `json:"resolved_findings"`
	Summary      DiffSummary      `json:"summary"`
}

// DiffSummary holds aggregate counts for a diff.
type DiffSummary struct {
	BaselineOpen  int            `json:"baseline_open"`
	CurrentOpen   int            `json:"current_open"`
	NewCount      int            `json:"new_count"`
	ResolvedCount int            `json:"resolved_count"`
	Delta         int            `json:"delta"` // positive = more open findings
	ScoreDelta    float64        `json:"score_delta"`
	NewBySeverity map[string]int `json:"new_by_severity"`
	NewByCategory map[string]int `json:"new_by_category"`
}

func runDiff(cmd *cobra.Command, args []string) error {
	store, err := openStorage()
	if err != nil {
		return err
	}

	// Load current (latest) run.
	current, err := store.GetLatestRun()
	if err != nil {
		logError("No current run found: %v", err)
		fmt.Println("No stored runs found. Run 'hipaascope scan --store' first.")
		return err
	}

	// Load baseline.
	var baseline *models.ScanResult
	if diffBaseline != "" {
		baseline, err = loadResultFromFile(diffBaseline)
		if err != nil {
			logError("Failed to load baseline: %v", err)
			return &ValidationError{Message: err.Error()}
		}
	} else {
		results, err := store.GetLastNRuns(2)
		if err != nil || len(results) < 2 {
			fmt.Println("Need at least 2 stored runs for diff.")
			fmt.Println("Run 'hipaascope scan --store' to generate more results.")
			return nil
		}
		baseline = results[0]
	}

	logVerbose("Comparing %s (current) vs %s (baseline)",
		current.Timestamp.Format("2006-01-02 15:04"),
		baseline.Timestamp.Format("2006-01-02 15:04"))

	result := computeDiff(baseline, current)

	if err := outputDiff(result, diffFormat, diffOutput); err != nil {
		return err
	}

	// CI gate.
	if diffFailNew && result.Summary.NewCount > 0 {
		return &GateFailedError{Violations: result.Summary.NewCount}
	}
	return nil
}

// computeDiff calculates new and resolved findings between baseline and
// current using the stable finding identity.
func computeDiff(baseline, current *models.ScanResult) *DiffResult {
	baseOpen := make(map[string]models.Finding)
	for _, f := range baseline.Findings {
		if f.Status == models.StatusOpen {
			baseOpen[f.FindingID] = f
		}
	}

	currOpen := make(map[string]models.Finding)
	for _, f := range current.Findings {
		if f.Status == models.StatusOpen {
			currOpen[f.FindingID] = f
		}
	}

	var newFindings, resolved []models.Finding
	for _, f := range current.Findings {
		if f.Status != models.StatusOpen {
			continue
		}
		if _, found := baseOpen[f.FindingID]; !found {
			newFindings = append(newFindings, f)
		}
	}
	for _, f := range baseline.Findings {
		if f.Status != models.StatusOpen {
			continue
		}
		if _, found := currOpen[f.FindingID]; !found {
			resolved = append(resolved, f)
		}
	}

	newBySeverity := map[string]int{}
	newByCategory := map[string]int{}
	for _, f := range newFindings {
		newBySeverity[f.Severity]++
		newByCategory[f.Category]++
	}

	return &DiffResult{
		Baseline:     baseline.Timestamp.Format("2006-01-02 15:04:05"),
		Current:      current.Timestamp.Format("2006-01-02 15:04:05"),
		NewFindings:  newFindings,
		ResolvedList: resolved,
		Summary: DiffSummary{
			BaselineOpen:  len(baseOpen),
			CurrentOpen:   len(currOpen),
			NewCount:      len(newFindings),
			ResolvedCount: len(resolved),
			Delta:         len(currOpen) - len(baseOpen),
			ScoreDelta:    current.RiskScore - baseline.RiskScore,
			NewBySeverity: newBySeverity,
			NewByCategory: newByCategory,
		},
	}
}

// outputDiff renders the diff result to the chosen format.
func outputDiff(result *DiffResult, format, outputPath string) error {
	var writer *os.File
	if outputPath != "" {
		var err error
		writer, err = os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() { _ = writer.Close() }()
	} else {
		writer = os.Stdout
	}

	switch format {
	case "json":
		enc := json.NewEncoder(writer)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case "text":
		return printDiffText(writer, result)
	default:
		return &ValidationError{Message: fmt.Sprintf("unsupported format: %s (use text or json)", format)}
	}
}

func printDiffText(w *os.File, r *DiffResult) error {
	p := func(format string, args ...interface{}) {
		_, _ = fmt.Fprintf(w, format, args...)
	}

	p("╔════════════════════════════════════════════╗\n")
	p("║         Compliance Drift Report            ║\n")
	p("╚════════════════════════════════════════════╝\n\n")

	p("Baseline: %s\n", r.Baseline)
	p("Current:  %s\n\n", r.Current)

	deltaSign := "+"
	if r.Summary.Delta < 0 {
		deltaSign = ""
	}
	p("Open findings: %d → %d (%s%d)\n", r.Summary.BaselineOpen, r.Summary.CurrentOpen, deltaSign, r.Summary.Delta)
	p("Risk score delta: %+.1f\n", r.Summary.ScoreDelta)
	p("New: %d   Resolved: %d\n\n", r.Summary.NewCount, r.Summary.ResolvedCount)

	if len(r.NewFindings) > 0 {
		p("New Findings:\n")
		p("--------------------------------------------------\n")
		for _, f := range r.NewFindings {
			sev := strings.ToUpper(f.Severity)
			p("  [%s] %s — %s: %s\n", sev, f.RuleID, f.Category, f.AssetID)
			if f.Description != "" {
				p("         %s\n", f.Description)
			}
		}
		p("\n")
	}

	if len(r.ResolvedList) > 0 {
		p("Resolved Findings:\n")
		p("--------------------------------------------------\n")
		for _, f := range r.ResolvedList {
			p("  ✓ %s — %s: %s\n", f.RuleID, f.Category, f.AssetID)
		}
		p("\n")
	}

	if len(r.Summary.NewBySeverity) > 0 {
		p("New by Severity:\n")
		for _, sev := range models.AllSeverities {
			if count, ok := r.Summary.NewBySeverity[sev]; ok {
				p("  %s: %d\n", strings.ToUpper(sev), count)
			}
		}
		p("\n")
	}

	if r.Summary.NewCount == 0 && r.Summary.ResolvedCount == 0 {
		p("No drift detected.\n")
	} else if r.Summary.NewCount == 0 {
		p("No new findings — only improvements.\n")
	}

	return nil
}
