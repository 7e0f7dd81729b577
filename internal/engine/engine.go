// Package engine orchestrates one compliance scan: normalize the raw
// inventory, evaluate the rule catalog, deduplicate matches, score, and
// assemble the final ScanResult. The engine performs no I/O beyond the
// inputs it is handed.
package engine

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/veridianlabs/hipaascope/internal/catalog"
	"github.com/veridianlabs/hipaascope/internal/dedup"
	"github.com/veridianlabs/hipaascope/internal/evaluator"
	"github.com/veridianlabs/hipaascope/internal/inventory"
	"github.com/veridianlabs/hipaascope/internal/models"
	"github.com/veridianlabs/hipaascope/internal/remediation"
	"github.com/veridianlabs/hipaascope/internal/scoring"
)

// Options configures one scan run. Catalog and Records are the only
// required inputs; everything else falls back to documented defaults.
type Options struct {
	Catalog *catalog.Catalog
	Records []models.RawRecord

	Account           models.AccountMeta
	AccountAttributes models.AttrMap
	Previous          *models.ScanResult

	Concurrency int
	Timeout     time.Duration

	Weights    scoring.Weights
	Thresholds scoring.Thresholds
	Impact     scoring.ImpactTable

	// Truncated marks the inventory as known-incomplete (the adapter
	// hit a page limit or quota); the result becomes partial.
	Truncated bool

	// Clock supplies scan time; nil means time.Now. Injected so tests
	// and replays get byte-stable results.
	Clock func() time.Time

	Logger *zap.Logger
}

// Run executes a full scan and returns the result. Every non-fatal
// failure class (bad records, failing conditions, missing attributes,
// timeouts) degrades inside the result; the only error paths are a nil
// or empty catalog, which abort before any asset is touched.
func Run(ctx context.Context, opts Options) (*models.ScanResult, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := time.Now
	if opts.Clock != nil {
		now = opts.Clock
	}

	if opts.Catalog == nil || len(opts.Catalog.Rules) == 0 {
		return nil, errors.WithStack(&models.CatalogError{
			Source: "engine",
			Err:    errors.New("catalog is empty: a scan without rules proves nothing"),
		})
	}

	ctx, cancel := evaluator.Deadline(ctx, opts.Timeout)
	defer cancel()

	scanTime := now().UTC()
	logger.Info("scan started",
		zap.String("project", opts.Account.ProjectID),
		zap.Int("records", len(opts.Records)),
		zap.Int("rules", len(opts.Catalog.Rules)))

	stream := inventory.NewNormalizer(logger).Normalize(ctx, opts.Records)

	eval := evaluator.New(opts.Catalog, evaluator.Config{
		MaxConcurrency: opts.Concurrency,
		Logger:         logger,
	})
	evalResult := eval.Evaluate(ctx, stream.Assets(), evaluator.AccountContext{
		Meta:       opts.Account,
		Attributes: opts.AccountAttributes,
	})

	findings := dedup.New(logger).Dedupe(evalResult.Matches, opts.Previous, scanTime)

	result := &models.ScanResult{
		ScanID:         uuid.NewString(),
		Timestamp:      scanTime,
		Account:        opts.Account,
		CatalogVersion: opts.Catalog.Version,
		Findings:       findings,
		Partial:        evalResult.Partial || opts.Truncated,
		Stats: models.ScanStats{
			AssetCount:       evalResult.AssetCount,
			RuleCount:        evalResult.RulesApplied,
			SkippedRecords:   stream.Skipped(),
			EvaluationErrors: len(evalResult.Errors),
			AttributeGaps:    evalResult.AttributeGaps,
		},
	}

	scorer := scoring.NewScorer(opts.Weights, opts.Thresholds, opts.Impact)
	scorer.Apply(result)

	attachAdvice(opts.Catalog, result, logger)

	result.Trend = scoring.NewTrendAnalyzer().CalculateTrend(result, opts.Previous)

	logger.Info("scan finished",
		zap.String("scan_id", result.ScanID),
		zap.Int("open", result.Stats.OpenFindings),
		zap.Float64("risk_score", result.RiskScore),
		zap.String("status", result.ComplianceStatus),
		zap.Bool("partial", result.Partial))

	return result, nil
}

// attachAdvice resolves each open finding's remediation plan from the
// catalog's advisory table. A lookup miss leaves the pending plan on
// the finding; findings are never dropped for missing advice.
func attachAdvice(cat *catalog.Catalog, result *models.ScanResult, logger *zap.Logger) {
	advisor := remediation.NewAdvisor(cat)
	for i := range result.Findings {
		f := &result.Findings[i]
		if f.Status != models.StatusOpen {
			continue
		}
		plan, err := advisor.Advise(f.RuleID)
		if err != nil {
			logger.Debug("no remediation entry", zap.String("rule", f.RuleID))
		}
		f.Remediation = &plan
	}
}
