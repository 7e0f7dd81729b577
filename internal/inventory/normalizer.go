package inventory

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/veridianlabs/hipaascope/internal/models"
)

// kindMap is the static table translating provider kind spellings into
// canonical asset types. Canonical names map to themselves so native
// snapshots round-trip. Anything absent here becomes type "unknown".
var kindMap = map[string]string{
	// canonical
	models.TypeStorageBucket:    models.TypeStorageBucket,
	models.TypeSecretVersion:    models.TypeSecretVersion,
	models.TypeFirewallRule:     models.TypeFirewallRule,
	models.TypeComputeInstance:  models.TypeComputeInstance,
	models.TypeIAMPolicy:        models.TypeIAMPolicy,
	models.TypeServiceAccount:   models.TypeServiceAccount,
	models.TypeLoggingSink:      models.TypeLoggingSink,
	models.TypeDatabaseInstance: models.TypeDatabaseInstance,
	models.TypeNetwork:          models.TypeNetwork,

	// GCP asset inventory spellings
	"storage.googleapis.com/Bucket":              models.TypeStorageBucket,
	"secretmanager.googleapis.com/Secret":        models.TypeSecretVersion,
	"secretmanager.googleapis.com/SecretVersion": models.TypeSecretVersion,
	"compute.googleapis.com/Firewall":            models.TypeFirewallRule,
	"compute.googleapis.com/Instance":            models.TypeComputeInstance,
	"compute.googleapis.com/Network":             models.TypeNetwork,
	"iam.googleapis.com/ServiceAccount":          models.TypeServiceAccount,
	"logging.googleapis.com/LogSink":             models.TypeLoggingSink,
	"sqladmin.googleapis.com/Instance":           models.TypeDatabaseInstance,

	// AWS config/CloudFormation spellings
	"AWS::S3::Bucket":             models.TypeStorageBucket,
	"AWS::SecretsManager::Secret": models.TypeSecretVersion,
	"AWS::EC2::SecurityGroup":     models.TypeFirewallRule,
	"AWS::EC2::Instance":          models.TypeComputeInstance,
	"AWS::EC2::VPC":               models.TypeNetwork,
	"AWS::IAM::Role":              models.TypeServiceAccount,
	"AWS::RDS::DBInstance":        models.TypeDatabaseInstance,
}

// CanonicalType maps a provider kind string to a canonical asset type.
func CanonicalType(kind string) string {
	if t, ok := kindMap[strings.TrimSpace(kind)]; ok {
		return t
	}
	return models.TypeUnknown
}

// Normalizer converts raw inventory records into canonical assets.
type Normalizer struct {
	logger *zap.Logger
}

// NewNormalizer creates a normalizer. A nil logger disables logging.
func NewNormalizer(logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{logger: logger}
}

// Stream delivers normalized assets one at a time. Skip accounting is
// final once the asset channel closes.
type Stream struct {
	ch chan models.Asset

	mu      sync.Mutex
	skipped int
	errs    []*models.NormalizationError
}

// Assets returns the channel of normalized assets. It closes when the
// input is exhausted or the context is cancelled.
func (s *Stream) Assets() <-chan models.Asset { return s.ch }

// Skipped returns how many raw records failed normalization.
func (s *Stream) Skipped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skipped
}

// Errors returns the per-record normalization failures.
func (s *Stream) Errors() []*models.NormalizationError {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.NormalizationError, len(s.errs))
	copy(out, s.errs)
	return out
}

func (s *Stream) recordSkip(err *models.NormalizationError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skipped++
	s.errs = append(s.errs, err)
}

// Normalize turns raw records into a finite asset stream. Malformed
// records are skipped, counted and logged, never silently dropped.
// Calling Normalize again starts a fresh stream over the same input.
func (n *Normalizer) Normalize(ctx context.Context, records []models.RawRecord) *Stream {
	stream := &Stream{ch: make(chan models.Asset)}

	go func() {
		defer close(stream.ch)

		seen := make(map[string]bool, len(records))
		for i, rec := range records {
			asset, nerr := n.normalizeRecord(i, rec)
			if nerr != nil {
				stream.recordSkip(nerr)
				n.logger.Warn("skipped inventory record",
					zap.Int("index", i),
					zap.String("resource", rec.ResourceName),
					zap.String("reason", nerr.Reason))
				continue
			}
			if seen[asset.ID] {
				nerr := &models.NormalizationError{Index: i, Name: asset.ID, Reason: "duplicate resource name"}
				stream.recordSkip(nerr)
				n.logger.Warn("skipped inventory record",
					zap.Int("index", i),
					zap.String("resource", asset.ID),
					zap.String("reason", nerr.Reason))
				continue
			}
			seen[asset.ID] = true

			select {
			case stream.ch <- asset:
			case <-ctx.Done():
				return
			}
		}
	}()

	return stream
}

// normalizeRecord builds one Asset. A record without a resource name
// has no identity findings could attach to, so it is rejected rather
// than given a placeholder.
func (n *Normalizer) normalizeRecord(index int, rec models.RawRecord) (models.Asset, *models.NormalizationError) {
	name := strings.TrimSpace(rec.ResourceName)
	if name == "" {
		return models.Asset{}, &models.NormalizationError{Index: index, Reason: "missing resource name"}
	}

	assetType := CanonicalType(rec.ResourceKind)
	if assetType == models.TypeUnknown && strings.TrimSpace(rec.ResourceKind) != "" {
		n.logger.Debug("unmapped resource kind",
			zap.String("kind", rec.ResourceKind),
			zap.String("resource", name))
	}

	service := strings.TrimSpace(rec.OwningService)
	if service == "" {
		service = deriveService(rec.ResourceKind)
	}

	attrs := make(models.AttrMap, len(rec.Attributes))
	for k, v := range rec.Attributes {
		attrs[k] = v
	}

	var tags map[string]string
	if len(rec.Labels) > 0 {
		tags = make(map[string]string, len(rec.Labels))
		for k, v := range rec.Labels {
			tags[k] = v
		}
	}

	return models.Asset{
		ID:         name,
		Type:       assetType,
		Service:    service,
		Attributes: attrs,
		Tags:       tags,
	}, nil
}

// deriveService guesses the owning service from a provider kind string,
// e.g. "storage.googleapis.com/Bucket" -> "storage".
func deriveService(kind string) string {
	kind = strings.TrimSpace(kind)
	if host, _, found := strings.Cut(kind, "/"); found {
		if svc, _, ok := strings.Cut(host, "."); ok && svc != "" {
			return strings.ToLower(svc)
		}
	}
	if strings.HasPrefix(kind, "AWS::") {
		parts := strings.Split(kind, "::")
		if len(parts) >= 2 {
			return strings.ToLower(parts[1])
		}
	}
	return "unknown"
}
