package inventory

import (
	"bytes"
	"encoding/json"

	"github.com/cockroachdb/errors"

	"github.com/veridianlabs/hipaascope/internal/models"
)

// Format identifies what kind of inventory file was handed to a scan.
type Format string

const (
	// FormatSnapshot is the native inventory/v1 envelope.
	FormatSnapshot Format = "snapshot"
	// FormatGCPExport is a GCP Cloud Asset Inventory export array.
	FormatGCPExport Format = "gcp-export"
	// FormatUnknown is anything the detector could not place.
	FormatUnknown Format = "unknown"
)

// DetectFormat identifies the file format from its JSON structure.
// It checks the explicit schema tag first and falls back to structural
// analysis for exports that carry no self-description.
func DetectFormat(data []byte) (Format, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return FormatUnknown, errors.New("empty file")
	}

	// Arrays can only be provider exports.
	if trimmed[0] == '[' {
		var entries []models.GCPAssetEntry
		if err := json.Unmarshal(data, &entries); err != nil {
			return FormatUnknown, errors.Wrap(err, "parse export array")
		}
		if len(entries) == 0 || entries[0].AssetType != "" {
			return FormatGCPExport, nil
		}
		return FormatUnknown, errors.New("array entries carry no asset_type")
	}

	// Phase 1: explicit schema tag.
	var schemaField struct {
		Schema string `json:"schema"`
	}
	if err := json.Unmarshal(data, &schemaField); err != nil {
		return FormatUnknown, errors.Wrap(err, "parse json")
	}
	if schemaField.Schema == models.SnapshotSchema {
		return FormatSnapshot, nil
	}
	if schemaField.Schema != "" {
		return FormatUnknown, errors.Errorf("unsupported schema %q", schemaField.Schema)
	}

	// Phase 2: structural analysis.
	var structure map[string]json.RawMessage
	if err := json.Unmarshal(data, &structure); err != nil {
		return FormatUnknown, errors.Wrap(err, "parse json")
	}
	if _, ok := structure["records"]; ok {
		return FormatSnapshot, nil
	}

	return FormatUnknown, errors.New("unable to detect inventory format")
}
