package evaluator

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/veridianlabs/hipaascope/internal/catalog"
	"github.com/veridianlabs/hipaascope/internal/models"
)

// DefaultConcurrency bounds the per-asset evaluation worker pool.
const DefaultConcurrency = 10

// Config holds evaluator settings.
type Config struct {
	MaxConcurrency int
	Logger         *zap.Logger
}

// RawMatch is one non-deduplicated violation emitted during evaluation.
// Rule metadata is copied in so downstream stages never reach back into
// the catalog.
type RawMatch struct {
	RuleID      string
	AssetID     string
	Severity    string
	Category    string
	Safeguard   string
	Description string
}

// Result collects everything one evaluation pass produced. Matches are
// raw: the deduplicator collapses overlapping rules later.
type Result struct {
	Matches       []RawMatch
	Errors        []*models.EvaluationError
	AttributeGaps int
	AssetCount    int
	RulesApplied  int
	Partial       bool
	PartialReason string
}

// AccountContext is the scan-level view account-scope rules evaluate
// against. Attributes carries explicit account metadata merged with an
// aggregate view of the inventory, so the same condition machinery
// applies to both rule kinds.
type AccountContext struct {
	Meta       models.AccountMeta
	Attributes models.AttrMap
}

// Evaluator applies a rule catalog to an asset stream.
type Evaluator struct {
	cat    *catalog.Catalog
	cfg    Config
	logger *zap.Logger
}

// New creates an evaluator over an immutable catalog.
func New(cat *catalog.Catalog, cfg Config) *Evaluator {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = DefaultConcurrency
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{cat: cat, cfg: cfg, logger: logger}
}

// collector is the append-only accumulator shared by workers. Merged
// state is read only after the pool drains.
type collector struct {
	mu      sync.Mutex
	matches []RawMatch
	errs    []*models.EvaluationError
	gaps    int
	assets  int
}

func (c *collector) addMatch(m RawMatch) {
	c.mu.Lock()
	c.matches = append(c.matches, m)
	c.mu.Unlock()
}

func (c *collector) addError(e *models.EvaluationError) {
	c.mu.Lock()
	c.errs = append(c.errs, e)
	c.mu.Unlock()
}

func (c *collector) addGap() {
	c.mu.Lock()
	c.gaps++
	c.mu.Unlock()
}

func (c *collector) addAsset() {
	c.mu.Lock()
	c.assets++
	c.mu.Unlock()
}

// aggregate accumulates the inventory view account-scope rules see.
// Guarded by its own mutex since workers feed it concurrently.
type aggregate struct {
	mu       sync.Mutex
	types    map[string]bool
	services map[string]bool
	count    int
}

func (a *aggregate) observe(asset *models.Asset) {
	a.mu.Lock()
	if a.types == nil {
		a.types = make(map[string]bool)
		a.services = make(map[string]bool)
	}
	a.types[asset.Type] = true
	a.services[asset.Service] = true
	a.count++
	a.mu.Unlock()
}

func (a *aggregate) merge(into models.AttrMap) {
	a.mu.Lock()
	defer a.mu.Unlock()
	into["asset_count"] = float64(a.count)
	into["asset_types"] = sortedKeys(a.types)
	into["services"] = sortedKeys(a.services)
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Evaluate runs every applicable rule against every asset from the
// stream, then account-scope rules exactly once. Each (rule, asset)
// pair is independent, so per-asset work is spread over a bounded
// worker pool. A context deadline stops intake and marks the result
// partial instead of aborting.
func (e *Evaluator) Evaluate(ctx context.Context, assets <-chan models.Asset, account AccountContext) *Result {
	col := &collector{}
	agg := &aggregate{}
	assetRules := e.cat.AssetRules()

	var wg sync.WaitGroup
	for i := 0; i < e.cfg.MaxConcurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case asset, ok := <-assets:
					if !ok {
						return
					}
					col.addAsset()
					agg.observe(&asset)
					e.evaluateAsset(ctx, &asset, assetRules, col)
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	wg.Wait()

	// Barrier: account-scope rules see the complete aggregate view and
	// run once per scan, never once per worker.
	e.evaluateAccount(ctx, account, agg, col)

	result := &Result{
		Matches:       col.matches,
		Errors:        col.errs,
		AttributeGaps: col.gaps,
		AssetCount:    col.assets,
		RulesApplied:  len(e.cat.Rules),
	}
	if ctx.Err() != nil {
		result.Partial = true
		result.PartialReason = (&models.PartialScanError{Reason: "evaluation deadline exceeded"}).Error()
		e.logger.Warn("scan is partial", zap.Error(ctx.Err()))
	}
	return result
}

// evaluateAsset applies every matching per-asset rule to one asset.
// A failing condition is isolated to its (rule, asset) pair.
func (e *Evaluator) evaluateAsset(ctx context.Context, asset *models.Asset, rules []*catalog.Rule, col *collector) {
	for _, rule := range rules {
		if !rule.Matches(asset) {
			continue
		}

		verdict, err := rule.Condition.Eval(ctx, asset, asset.Attributes)
		if err != nil {
			col.addError(&models.EvaluationError{RuleID: rule.ID, AssetID: asset.ID, Err: err})
			e.logger.Warn("condition failed",
				zap.String("rule", rule.ID),
				zap.String("asset", asset.ID),
				zap.Error(err))
			continue
		}

		switch verdict {
		case catalog.VerdictGap:
			col.addGap()
			e.logger.Debug("condition could not be evaluated",
				zap.String("rule", rule.ID),
				zap.String("asset", asset.ID))
		case catalog.VerdictViolated:
			e.emit(rule, asset.ID, asset.Type, asset.Service, "", col)
		}
	}
}

// evaluateAccount runs each account-scope rule once against the merged
// scan-level context.
func (e *Evaluator) evaluateAccount(ctx context.Context, account AccountContext, agg *aggregate, col *collector) {
	rules := e.cat.AccountRules()
	if len(rules) == 0 {
		return
	}

	attrs := make(models.AttrMap, len(account.Attributes)+3)
	for k, v := range account.Attributes {
		attrs[k] = v
	}
	if account.Meta.ProjectID != "" {
		attrs["project_id"] = account.Meta.ProjectID
	}
	agg.merge(attrs)

	var once sync.Map
	for _, rule := range rules {
		if _, ran := once.LoadOrStore(rule.ID, true); ran {
			continue
		}

		verdict, err := rule.Condition.Eval(ctx, nil, attrs)
		if err != nil {
			col.addError(&models.EvaluationError{RuleID: rule.ID, AssetID: models.AccountAssetID, Err: err})
			e.logger.Warn("account rule failed", zap.String("rule", rule.ID), zap.Error(err))
			continue
		}
		if verdict == catalog.VerdictGap {
			col.addGap()
			continue
		}
		if verdict == catalog.VerdictViolated {
			e.emit(rule, models.AccountAssetID, "", "", account.Meta.ProjectID, col)
		}
	}
}

// emit renders the finding description and records the raw match.
// A template failure is isolated like any other runtime error.
func (e *Evaluator) emit(rule *catalog.Rule, assetID, assetType, service, projectID string, col *collector) {
	desc, err := rule.RenderDescription(assetID, assetType, service, projectID)
	if err != nil {
		col.addError(&models.EvaluationError{RuleID: rule.ID, AssetID: assetID, Err: err})
		return
	}
	col.addMatch(RawMatch{
		RuleID:      rule.ID,
		AssetID:     assetID,
		Severity:    rule.DefaultSeverity,
		Category:    rule.Category,
		Safeguard:   rule.Safeguard,
		Description: desc,
	})
}

// StreamSlice adapts an in-memory asset slice to the stream interface,
// mainly for tests and account-only scans.
func StreamSlice(ctx context.Context, assets []models.Asset) <-chan models.Asset {
	ch := make(chan models.Asset)
	go func() {
		defer close(ch)
		for _, a := range assets {
			select {
			case ch <- a:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

// Deadline truncates a context for scan-level timeouts. A zero timeout
// leaves the context untouched.
func Deadline(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
