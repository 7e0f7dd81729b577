package cli

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/veridianlabs/hipaascope/internal/scoring"
	"github.com/veridianlabs/hipaascope/internal/tui"
)

var browseScan string

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse findings interactively in the terminal",
	Long: `Browse opens an interactive findings browser over the latest stored
run (or a given result file).

Keys:
  ↑/↓, j/k   navigate findings
  enter      finding detail
  /          search
  s          filter by severity
  c          filter by category
  o          toggle open/resolved/all
  q          quit

Requires an interactive terminal; use 'hipaascope report' for
non-interactive output.`,
	RunE: runBrowse,
}

func init() {
	browseCmd.Flags().StringVar(&browseScan, "scan", "",
		"scan result JSON file (default: latest stored run)")
}

func runBrowse(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return &ValidationError{
			Message: "browse needs an interactive terminal; use 'hipaascope report' for piped output",
		}
	}

	result, err := resolveResult(browseScan)
	if err != nil {
		return err
	}

	// Historical trend enriches the header when storage holds runs.
	if store, err := openStorage(); err == nil {
		if runs, err := store.GetLastNRuns(cfg.LastRuns); err == nil && len(runs) > 1 {
			return tui.Run(result, scoring.NewTrendAnalyzer().AnalyzeRuns(runs))
		}
	}
	return tui.Run(result, nil)
}
