package inventory

import (
	"context"
	"os"
	"sync"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/veridianlabs/hipaascope/internal/ingest"
	"github.com/veridianlabs/hipaascope/internal/models"
)

// loadWorkers bounds concurrent file reads.
const loadWorkers = 4

// FileError records one inventory file that could not be loaded.
type FileError struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// LoadResult is the merged outcome of loading one or more inventory
// files. Records preserves input file order so downstream identity is
// stable across runs.
type LoadResult struct {
	Records     []models.RawRecord
	Account     models.AccountMeta
	Truncated   bool
	FilesLoaded int
	FileErrors  []FileError
}

// Partial reports whether any input file failed to load.
func (r *LoadResult) Partial() bool {
	return len(r.FileErrors) > 0
}

// Loader reads inventory files of any supported format and merges them
// into a single record set.
type Loader struct {
	logger *zap.Logger
}

// NewLoader creates a loader. A nil logger disables logging.
func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{logger: logger}
}

type fileOutcome struct {
	records   []models.RawRecord
	account   models.AccountMeta
	truncated bool
	err       *FileError
}

// Load reads every path, detects its format, and merges the records.
// A file that fails to read or parse becomes a FileError; the load
// continues with what it has. Returns an error only when every file
// failed, since a scan over nothing is not a scan.
func (l *Loader) Load(ctx context.Context, paths []string) (*LoadResult, error) {
	if len(paths) == 0 {
		return nil, errors.New("no inventory files given")
	}

	outcomes := make([]fileOutcome, len(paths))
	sem := make(chan struct{}, loadWorkers)
	var wg sync.WaitGroup

	for i, path := range paths {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				outcomes[i] = fileOutcome{err: &FileError{Path: path, Reason: ctx.Err().Error()}}
				return
			}
			outcomes[i] = l.loadFile(path)
		}(i, path)
	}
	wg.Wait()

	result := &LoadResult{}
	for i, out := range outcomes {
		if out.err != nil {
			result.FileErrors = append(result.FileErrors, *out.err)
			l.logger.Warn("skipped inventory file",
				zap.String("path", out.err.Path),
				zap.String("reason", out.err.Reason))
			continue
		}
		result.FilesLoaded++
		result.Records = append(result.Records, out.records...)
		result.Truncated = result.Truncated || out.truncated
		if result.Account == (models.AccountMeta{}) {
			result.Account = out.account
		}
		l.logger.Debug("loaded inventory file",
			zap.String("path", paths[i]),
			zap.Int("records", len(out.records)))
	}

	if result.FilesLoaded == 0 {
		return nil, errors.Errorf("all %d inventory files failed to load", len(paths))
	}
	return result, nil
}

// loadFile reads and parses one inventory file into raw records.
func (l *Loader) loadFile(path string) fileOutcome {
	data, err := os.ReadFile(path)
	if err != nil {
		return fileOutcome{err: &FileError{Path: path, Reason: err.Error()}}
	}

	format, err := DetectFormat(data)
	if err != nil {
		return fileOutcome{err: &FileError{Path: path, Reason: err.Error()}}
	}

	switch format {
	case FormatSnapshot:
		snap, err := ParseSnapshot(data)
		if err != nil {
			return fileOutcome{err: &FileError{Path: path, Reason: err.Error()}}
		}
		return fileOutcome{
			records:   snap.Records,
			account:   snap.Account,
			truncated: snap.Truncated,
		}
	case FormatGCPExport:
		entries, err := ParseGCPExport(data)
		if err != nil {
			return fileOutcome{err: &FileError{Path: path, Reason: err.Error()}}
		}
		return fileOutcome{records: ingest.FlattenGCP(entries)}
	default:
		return fileOutcome{err: &FileError{Path: path, Reason: "unknown inventory format"}}
	}
}
