package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/veridianlabs/hipaascope/internal/models"
)

// LocalStorage implements Storage using the local filesystem. Results
// live under <baseDir>/runs as one JSON file per scan.
type LocalStorage struct {
	baseDir string
}

// NewLocal creates a new local storage instance
func NewLocal(baseDir string) *LocalStorage {
	return &LocalStorage{
		baseDir: baseDir,
	}
}

// SaveScanResult stores a scan result to disk
func (s *LocalStorage) SaveScanResult(result *models.ScanResult) error {
	runsDir := filepath.Join(s.baseDir, "runs")
	if err := os.MkdirAll(runsDir, 0755); err != nil {
		return fmt.Errorf("failed to create runs directory: %w", err)
	}

	filename := s.formatTimestamp(result.Timestamp) + "-scan.json"
	path := filepath.Join(runsDir, filename)

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// LoadScanResult loads a result from a specific timestamp
func (s *LocalStorage) LoadScanResult(timestamp time.Time) (*models.ScanResult, error) {
	filename := s.formatTimestamp(timestamp) + "-scan.json"
	path := filepath.Join(s.baseDir, "runs", filename)

	return s.loadResultFromFile(path)
}

// GetLatestRun retrieves the most recent scan result
func (s *LocalStorage) GetLatestRun() (*models.ScanResult, error) {
	timestamps, err := s.ListRuns()
	if err != nil {
		return nil, err
	}

	if len(timestamps) == 0 {
		return nil, fmt.Errorf("no runs found")
	}

	latest := timestamps[len(timestamps)-1]
	return s.LoadScanResult(latest)
}

// GetLastNRuns retrieves the last N scan results, oldest first
func (s *LocalStorage) GetLastNRuns(n int) ([]*models.ScanResult, error) {
	timestamps, err := s.ListRuns()
	if err != nil {
		return nil, err
	}

	if len(timestamps) == 0 {
		return nil, fmt.Errorf("no runs found")
	}

	start := len(timestamps) - n
	if start < 0 {
		start = 0
	}

	selected := timestamps[start:]
	results := make([]*models.ScanResult, 0, len(selected))

	for _, timestamp := range selected {
		result, err := s.LoadScanResult(timestamp)
		if err != nil {
			// Skip results that fail to load but continue with others
			continue
		}
		results = append(results, result)
	}

	return results, nil
}

// ListRuns returns all available run timestamps sorted chronologically
func (s *LocalStorage) ListRuns() ([]time.Time, error) {
	runsDir := filepath.Join(s.baseDir, "runs")

	if _, err := os.Stat(runsDir); os.IsNotExist(err) {
		return []time.Time{}, nil
	}

	entries, err := os.ReadDir(runsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read runs directory: %w", err)
	}

	var timestamps []time.Time

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		if !strings.HasSuffix(entry.Name(), "-scan.json") {
			continue
		}

		// Format: 2006-01-02T15-04-05-scan.json
		timestampStr := strings.TrimSuffix(entry.Name(), "-scan.json")
		timestamp, err := s.parseTimestamp(timestampStr)
		if err != nil {
			// Skip files with invalid timestamp format
			continue
		}

		timestamps = append(timestamps, timestamp)
	}

	sort.Slice(timestamps, func(i, j int) bool {
		return timestamps[i].Before(timestamps[j])
	})

	return timestamps, nil
}

// loadResultFromFile loads a scan result from a file path
func (s *LocalStorage) loadResultFromFile(path string) (*models.ScanResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("scan result not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var result models.ScanResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}

	return &result, nil
}

// formatTimestamp converts a time.Time to filename-safe format
func (s *LocalStorage) formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02T15-04-05")
}

// parseTimestamp converts filename format back to time.Time
func (s *LocalStorage) parseTimestamp(str string) (time.Time, error) {
	return time.Parse("2006-01-02T15-04-05", str)
}

// GetStoragePath returns the full path to the storage directory
func (s *LocalStorage) GetStoragePath() string {
	return s.baseDir
}

// EnsureDirectoryExists creates the storage directory if it doesn't exist
func (s *LocalStorage) EnsureDirectoryExists() error {
	return os.MkdirAll(filepath.Join(s.baseDir, "runs"), 0755)
}
