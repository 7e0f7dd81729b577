package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/veridianlabs/hipaascope/internal/models"
	"github.com/veridianlabs/hipaascope/internal/scoring"
)

var (
	statusFormat string
	statusLast   int
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the latest compliance posture and historical trend",
	Long: `Status summarizes the most recent stored scan and how the posture has
moved across recent runs.

Example:
  hipaascope status
  hipaascope status --last 30 --format json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusFormat, "format", "text",
		"output format: text or json")
	statusCmd.Flags().IntVar(&statusLast, "last", 0,
		"number of stored runs to analyze (default: config last_runs)")
}

type statusResult struct {
	Latest  *statusLatest        `json:"latest,omitempty"`
	History *models.TrendSummary `json:"history,omitempty"`
	Storage string               `json:"storage"`
	Runs    int                  `json:"stored_runs"`
}

type statusLatest struct {
	ScanID         string         `json:"scan_id"`
	Timestamp      string         `json:"timestamp"`
	Status         string         `json:"compliance_status"`
	RiskScore      float64        `json:"risk_score"`
	Open           int            `json:"open_findings"`
	Resolved       int            `json:"resolved_findings"`
	SeverityCounts map[string]int `json:"severity_counts"`
	Partial        bool           `json:"partial,omitempty"`
	Trend          *models.Trend  `json:"trend,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	store, err := openStorage()
	if err != nil {
		return err
	}

	result := statusResult{Storage: store.GetStoragePath()}

	timestamps, err := store.ListRuns()
	if err == nil {
		result.Runs = len(timestamps)
	}

	latest, err := store.GetLatestRun()
	if err != nil {
		if statusFormat == "json" {
			return writeStatusJSON(result)
		}
		fmt.Println("No stored runs found. Run 'hipaascope scan --store' first.")
		return nil
	}

	result.Latest = &statusLatest{
		ScanID:         latest.ScanID,
		Timestamp:      latest.Timestamp.Format("2006-01-02 15:04:05"),
		Status:         latest.ComplianceStatus,
		RiskScore:      latest.RiskScore,
		Open:           latest.Stats.OpenFindings,
		Resolved:       latest.Stats.ResolvedFindings,
		SeverityCounts: latest.SeverityCounts,
		Partial:        latest.Partial,
		Trend:          latest.Trend,
	}

	last := statusLast
	if last == 0 {
		last = cfg.LastRuns
	}
	if runs, err := store.GetLastNRuns(last); err == nil && len(runs) > 0 {
		result.History = scoring.NewTrendAnalyzer().AnalyzeRuns(runs)
	}

	if statusFormat == "json" {
		return writeStatusJSON(result)
	}
	return writeStatusText(result)
}

func writeStatusJSON(result statusResult) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func writeStatusText(result statusResult) error {
	l := result.Latest

	fmt.Printf("Status:     %s\n", strings.ToUpper(l.Status))
	fmt.Printf("Risk score: %.1f / 100\n", l.RiskScore)
	fmt.Printf("Open:       %d (resolved: %d)\n", l.Open, l.Resolved)
	for _, sev := range models.AllSeverities {
		if count := l.SeverityCounts[sev]; count > 0 {
			fmt.Printf("  %-10s %d\n", sev, count)
		}
	}
	if l.Partial {
		fmt.Println("Partial:    inventory or evaluation was incomplete")
	}
	fmt.Printf("Scanned:    %s\n", l.Timestamp)

	if l.Trend != nil {
		fmt.Printf("Trend:      %s %s (%d new, %d resolved vs previous run)\n",
			scoring.TrendIndicator(l.Trend.Direction), l.Trend.Direction,
			l.Trend.NewFindings, l.Trend.ResolvedFindings)
	}

	if result.History != nil && result.History.RunsAnalyzed > 1 {
		fmt.Printf("\nHistory (%s, %d runs):\n", result.History.TimeRange, result.History.RunsAnalyzed)
		fmt.Printf("  scores: %s\n", sparklineFloats(result.History.ScoreSparkline))
		fmt.Printf("  open:   %s\n", sparklineInts(result.History.OpenSparkline))

		categories := make([]string, 0, len(result.History.ByCategory))
		for c := range result.History.ByCategory {
			categories = append(categories, c)
		}
		sort.Strings(categories)
		for _, c := range categories {
			ct := result.History.ByCategory[c]
			if ct.Change == 0 {
				continue
			}
			fmt.Printf("  %-22s %d → %d (%+d)\n", ct.Name, ct.PreviousOpen, ct.CurrentOpen, ct.Change)
		}
	}

	fmt.Printf("\nStorage:    %s (%d stored runs)\n", result.Storage, result.Runs)
	return nil
}

func sparklineFloats(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%.0f", v)
	}
	return strings.Join(parts, " → ")
}

func sparklineInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, " → ")
}
