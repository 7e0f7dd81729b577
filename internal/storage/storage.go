package storage

import (
	"time"

	"github.com/veridianlabs/hipaascope/internal/models"
)

// Storage defines the interface for persisting scan results
type Storage interface {
	// SaveScanResult stores a complete scan result
	SaveScanResult(result *models.ScanResult) error

	// LoadScanResult loads a result from a specific timestamp
	LoadScanResult(timestamp time.Time) (*models.ScanResult, error)

	// GetLatestRun retrieves the most recent scan result
	GetLatestRun() (*models.ScanResult, error)

	// GetLastNRuns retrieves the last N scan results, oldest first
	GetLastNRuns(n int) ([]*models.ScanResult, error)

	// ListRuns returns all available run timestamps
	ListRuns() ([]time.Time, error)
}
