package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/veridianlabs/hipaascope/internal/models"
	"github.com/veridianlabs/hipaascope/internal/remediation"
	"github.com/veridianlabs/hipaascope/internal/report"
)

var (
	reportAudience string
	reportFormat   string
	reportScan     string
	reportAll      bool
	reportOutDir   string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render a compliance report from a stored or given scan result",
	Long: `Report renders an audience-specific view of a scan result without
re-evaluating any rules. By default it reads the latest stored run;
use --scan to render a specific result file.

Audiences:
  executive  — posture, business impact, critical findings, plan
  ciso       — safeguard coverage and per-category gaps
  cto        — affected resources and evaluation statistics
  board      — one-line posture, impact, and direction
  technical  — every finding with full detail

Example:
  hipaascope report --audience executive
  hipaascope report --audience ciso --format markdown
  hipaascope report --all --format markdown --out-dir ./reports`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportAudience, "audience", "",
		"report audience: executive, ciso, cto, board, technical")
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", "text",
		"output format: text, json, or markdown")
	reportCmd.Flags().StringVar(&reportScan, "scan", "",
		"scan result JSON file (default: latest stored run)")
	reportCmd.Flags().BoolVar(&reportAll, "all", false,
		"render every audience")
	reportCmd.Flags().StringVar(&reportOutDir, "out-dir", "",
		"with --all, write one file per audience into this directory")
}

func runReport(cmd *cobra.Command, args []string) error {
	result, err := resolveResult(reportScan)
	if err != nil {
		return err
	}

	advisor, err := resolveAdvisor()
	if err != nil {
		return err
	}

	if reportAll {
		return renderAllAudiences(result, advisor)
	}

	audience := reportAudience
	if audience == "" {
		audience = cfg.Audience
	}
	if !models.ValidAudience(audience) {
		return &ValidationError{Message: fmt.Sprintf("invalid audience: %s", audience)}
	}

	view := report.Build(result, audience, advisor)
	return renderReportView(view, reportFormat, os.Stdout)
}

// renderAllAudiences renders every audience, either concatenated to
// stdout or as one file per audience under --out-dir.
func renderAllAudiences(result *models.ScanResult, advisor *remediation.Advisor) error {
	views := report.BuildAll(result, advisor)

	if reportOutDir == "" {
		for _, audience := range models.AllAudiences {
			if err := renderReportView(views[audience], reportFormat, os.Stdout); err != nil {
				return err
			}
			fmt.Println()
		}
		return nil
	}

	if err := os.MkdirAll(reportOutDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	ext := map[string]string{"text": "txt", "json": "json", "markdown": "md"}[reportFormat]
	if ext == "" {
		return &ValidationError{Message: fmt.Sprintf("unsupported format: %s (use text, json, or markdown)", reportFormat)}
	}

	for _, audience := range models.AllAudiences {
		path := filepath.Join(reportOutDir, fmt.Sprintf("hipaascope-%s.%s", audience, ext))
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		renderErr := renderReportView(views[audience], reportFormat, f)
		closeErr := f.Close()
		if renderErr != nil {
			return renderErr
		}
		if closeErr != nil {
			return closeErr
		}
		logVerbose("wrote %s", path)
	}
	return nil
}

// renderReportView writes one view in text, json, or markdown.
func renderReportView(view models.ReportView, format string, w *os.File) error {
	switch format {
	case "text":
		return report.NewTextRenderer(w).Render(view)
	case "json":
		return report.NewJSONRenderer(w, true).Render(view)
	case "markdown":
		return report.NewMarkdownRenderer(w).Render(view)
	default:
		return &ValidationError{Message: fmt.Sprintf("unsupported format: %s (use text, json, or markdown)", format)}
	}
}

// resolveResult loads the scan result to report on: an explicit file,
// or the latest stored run.
func resolveResult(scanPath string) (*models.ScanResult, error) {
	if scanPath != "" {
		result, err := loadResultFromFile(scanPath)
		if err != nil {
			return nil, &ValidationError{Message: err.Error()}
		}
		return result, nil
	}

	store, err := openStorage()
	if err != nil {
		return nil, err
	}
	result, err := store.GetLatestRun()
	if err != nil {
		return nil, fmt.Errorf("no stored runs found. Run 'hipaascope scan --store' first: %w", err)
	}
	return result, nil
}

// resolveAdvisor builds the remediation advisor from the configured
// catalog so report lookups match what the scan used.
func resolveAdvisor() (*remediation.Advisor, error) {
	cat, err := loadCatalog(context.Background(), "")
	if err != nil {
		return nil, err
	}
	return remediation.NewAdvisor(cat), nil
}
