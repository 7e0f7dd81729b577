package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/spf13/cobra"

	"github.com/veridianlabs/hipaascope/internal/catalog"
	"github.com/veridianlabs/hipaascope/internal/engine"
	"github.com/veridianlabs/hipaascope/internal/inventory"
	"github.com/veridianlabs/hipaascope/internal/models"
	"github.com/veridianlabs/hipaascope/internal/policy"
	"github.com/veridianlabs/hipaascope/internal/remediation"
	"github.com/veridianlabs/hipaascope/internal/report"
	"github.com/veridianlabs/hipaascope/internal/runner"
	"github.com/veridianlabs/hipaascope/internal/storage"
)

var (
	scanRules       string
	scanPrevious    string
	scanStore       bool
	scanOutput      string
	scanAudience    string
	scanConcurrency int
	scanTimeout     time.Duration
	scanExec        bool
	scanGate        bool
)

var scanCmd = &cobra.Command{
	Use:   "scan [inventory-file...]",
	Short: "Evaluate inventory against the rule catalog and report findings",
	Long: `Scan runs a full compliance evaluation cycle:

  1. Load   — read inventory snapshots or provider exports
  2. Evaluate — run every catalog rule against every matching asset
  3. Score  — deduplicate findings, compute the risk score
  4. Report — print results for the chosen audience

Inventory files may be native inventory/v1 snapshots or GCP Cloud Asset
Inventory exports; the format is detected per file. Use --exec to run
the adapter commands from your config instead of passing files.

Use --store to persist the result for trend analysis, and --gate to
fail the build when the stored compliance gate rules are violated.`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanRules, "rules", "",
		"rule catalog file (default: discovered rules file or builtin HIPAA baseline)")
	scanCmd.Flags().StringVar(&scanPrevious, "previous", "",
		"previous scan result JSON for reconciliation (default: latest stored run)")
	scanCmd.Flags().BoolVar(&scanStore, "store", false,
		"persist the result for trend analysis")
	scanCmd.Flags().StringVarP(&scanOutput, "output", "o", "",
		"output format: text, json, or both (default: config format)")
	scanCmd.Flags().StringVar(&scanAudience, "audience", "",
		"report audience: executive, ciso, cto, board, technical")
	scanCmd.Flags().IntVar(&scanConcurrency, "concurrency", 0,
		"evaluation worker pool size (default: config concurrency)")
	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", 0,
		"scan deadline; findings so far are kept and the result marked partial")
	scanCmd.Flags().BoolVar(&scanExec, "exec", false,
		"run configured inventory adapter commands to produce snapshots")
	scanCmd.Flags().BoolVar(&scanGate, "gate", false,
		"apply the compliance gate; exit 1 on violation")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	logger := buildLogger()
	defer func() { _ = logger.Sync() }()

	// Step 1: Catalog
	cat, err := loadCatalog(ctx, scanRules)
	if err != nil {
		return err
	}
	logVerbose("loaded catalog %s with %d rules", cat.Version, len(cat.Rules))

	// Step 2: Inventory
	paths := args
	if scanExec {
		execPaths, cleanup, err := execAdapters(ctx)
		if cleanup != nil {
			defer cleanup()
		}
		if err != nil {
			return err
		}
		paths = append(paths, execPaths...)
	}
	if len(paths) == 0 {
		return &ValidationError{Message: "no inventory given: pass snapshot files or use --exec"}
	}

	loaded, err := inventory.NewLoader(logger).Load(ctx, paths)
	if err != nil {
		return &ValidationError{Message: err.Error()}
	}
	for _, fe := range loaded.FileErrors {
		logError("inventory file skipped: %s (%s)", fe.Path, fe.Reason)
	}
	logVerbose("loaded %d records from %d file(s)", len(loaded.Records), loaded.FilesLoaded)

	// Step 3: Previous result for reconciliation
	previous, err := loadPrevious(scanPrevious)
	if err != nil {
		return err
	}

	account := loaded.Account
	if account == (models.AccountMeta{}) {
		account = cfg.Account()
	}

	timeout := scanTimeout
	if timeout == 0 && cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	concurrency := scanConcurrency
	if concurrency == 0 {
		concurrency = cfg.Concurrency
	}

	// Step 4: Evaluate
	result, err := engine.Run(ctx, engine.Options{
		Catalog:     cat,
		Records:     loaded.Records,
		Account:     account,
		Previous:    previous,
		Concurrency: concurrency,
		Timeout:     timeout,
		Weights:     cfg.Weights,
		Thresholds:  cfg.Thresholds(),
		Impact:      cfg.Impact,
		Truncated:   loaded.Truncated || loaded.Partial(),
		Logger:      logger,
	})
	if err != nil {
		if models.IsCatalogError(err) {
			return &ValidationError{Message: err.Error()}
		}
		return err
	}

	// Step 5: Store
	if scanStore {
		store, err := openStorage()
		if err != nil {
			return err
		}
		if err := store.EnsureDirectoryExists(); err != nil {
			return fmt.Errorf("failed to create storage directory: %w", err)
		}
		if err := store.SaveScanResult(result); err != nil {
			return fmt.Errorf("failed to store result: %w", err)
		}
		logVerbose("stored result in %s", store.GetStoragePath())
	}

	// Step 6: Report
	format := scanOutput
	if format == "" {
		format = cfg.Format
	}
	audience := scanAudience
	if audience == "" {
		audience = cfg.Audience
	}
	if !models.ValidAudience(audience) {
		return &ValidationError{Message: fmt.Sprintf("invalid audience: %s", audience)}
	}

	view := report.Build(result, audience, remediation.NewAdvisor(cat))
	if err := renderView(view, format, os.Stdout); err != nil {
		return err
	}

	// Step 7: Compliance gate
	if scanGate {
		return applyGate(result)
	}
	return nil
}

// execAdapters runs the configured inventory adapter commands and
// returns the snapshot files they produced. Partial success is fine;
// only zero successes is an error.
func execAdapters(ctx context.Context) ([]string, func(), error) {
	if len(cfg.Adapters) == 0 {
		return nil, nil, &ValidationError{Message: "no adapters configured: add an adapters section to your config"}
	}

	execFn := func(ctx context.Context, name string, args ...string) ([]byte, error) {
		c := exec.CommandContext(ctx, name, args...)
		return c.Output()
	}

	r := runner.New(execFn)
	cleanup := func() { _ = r.Cleanup() }

	timeout := runner.DefaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	configs := runner.ConfigsFromAdapters(cfg.Adapters, timeout)

	logVerbose("executing %d adapter(s)...", len(configs))
	results := r.Run(ctx, configs)

	successCount := 0
	for _, res := range results {
		if res.Success {
			logVerbose("  ✓ %s (%s)", res.Name, res.Duration)
			successCount++
		} else {
			logError("  ✗ %s: %s", res.Name, res.Error)
		}
	}
	if successCount == 0 {
		return nil, cleanup, fmt.Errorf("all adapters failed — nothing to scan")
	}

	return runner.OutputFiles(results), cleanup, nil
}

// loadPrevious resolves the reconciliation baseline: an explicit file,
// or the latest stored run when storage already holds one.
func loadPrevious(path string) (*models.ScanResult, error) {
	if path != "" {
		result, err := loadResultFromFile(path)
		if err != nil {
			return nil, &ValidationError{Message: fmt.Sprintf("failed to load previous result: %v", err)}
		}
		return result, nil
	}

	store, err := openStorage()
	if err != nil {
		return nil, err
	}
	if previous, err := store.GetLatestRun(); err == nil {
		logVerbose("reconciling against run from %s", previous.Timestamp.Format("2006-01-02 15:04"))
		return previous, nil
	}
	logDebug("no previous run found")
	return nil, nil
}

// applyGate evaluates the compliance gate file against the result.
func applyGate(result *models.ScanResult) error {
	gatePath := policy.FindPolicyFile()
	if gatePath == "" {
		logVerbose("no gate file found; gate passes by default")
		return nil
	}

	gate, err := policy.LoadFromFile(gatePath)
	if err != nil {
		return fmt.Errorf("failed to load gate file: %w", err)
	}
	if gate == nil {
		return nil
	}

	gateResult := gate.Evaluate(result)
	if gateResult.Pass {
		logVerbose("compliance gate passed")
		return nil
	}
	for _, v := range gateResult.Violations {
		logError("gate violation [%s]: %s", v.Rule, v.Message)
	}
	return &GateFailedError{Violations: len(gateResult.Violations)}
}

// loadCatalog resolves the rule catalog: explicit flag, config entry,
// discovered file, or the builtin HIPAA baseline, in that order.
func loadCatalog(ctx context.Context, rulesFlag string) (*catalog.Catalog, error) {
	path := rulesFlag
	if path == "" {
		path = cfg.RulesFile
	}
	if path == "" {
		path = catalog.FindCatalogFile()
	}

	if path != "" {
		cat, err := catalog.Load(ctx, path)
		if err != nil {
			return nil, &ValidationError{Message: fmt.Sprintf("invalid rule catalog %s: %v", path, err)}
		}
		return cat, nil
	}

	logDebug("no rules file found, using builtin catalog")
	return catalog.Builtin(ctx)
}

// openStorage builds the local storage from the configured directory.
func openStorage() (*storage.LocalStorage, error) {
	storagePath, err := cfg.GetStoragePath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage path: %w", err)
	}
	return storage.NewLocal(storagePath), nil
}

// loadResultFromFile loads a ScanResult from a JSON file path.
func loadResultFromFile(path string) (*models.ScanResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var result models.ScanResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse scan result: %w", err)
	}
	return &result, nil
}

// renderView writes one report view in the requested format.
func renderView(view models.ReportView, format string, w *os.File) error {
	switch format {
	case "text":
		return report.NewTextRenderer(w).Render(view)
	case "json":
		return report.NewJSONRenderer(w, true).Render(view)
	case "markdown":
		return report.NewMarkdownRenderer(w).Render(view)
	case "both":
		if err := report.NewTextRenderer(w).Render(view); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "\n=== JSON Output ===\n\n"); err != nil {
			return err
		}
		return report.NewJSONRenderer(w, true).Render(view)
	default:
		return &ValidationError{Message: fmt.Sprintf("unsupported format: %s (use text, json, or both)", format)}
	}
}
