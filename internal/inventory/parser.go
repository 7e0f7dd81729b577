package inventory

import (
	"encoding/json"

	"github.com/cockroachdb/errors"

	"github.com/veridianlabs/hipaascope/internal/models"
)

// ParseSnapshot parses a native inventory/v1 snapshot file.
func ParseSnapshot(data []byte) (*models.Snapshot, error) {
	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, errors.Wrap(err, "parse snapshot")
	}
	if snap.Schema == "" {
		snap.Schema = models.SnapshotSchema
	}
	if snap.Schema != models.SnapshotSchema {
		return nil, errors.Errorf("unsupported snapshot schema %q", snap.Schema)
	}
	return &snap, nil
}

// ParseGCPExport parses a GCP Cloud Asset Inventory export array.
func ParseGCPExport(data []byte) ([]models.GCPAssetEntry, error) {
	var entries []models.GCPAssetEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.Wrap(err, "parse asset export")
	}
	return entries, nil
}
