package models

import "time"

// SnapshotSchema is the schema tag native inventory snapshots carry.
const SnapshotSchema = "inventory/v1"

// Snapshot is the inventory/v1 envelope, the normalized export format
// that inventory adapters emit. It is the preferred input to a scan.
type Snapshot struct {
	Schema     string      `json:"schema"`
	Adapter    string      `json:"adapter,omitempty"`
	Account    AccountMeta `json:"account,omitempty"`
	ExportedAt time.Time   `json:"exported_at,omitempty"`
	Truncated  bool        `json:"truncated,omitempty"` // adapter could not list everything
	Records    []RawRecord `json:"records"`
}

// GCPAssetEntry is one entry of a GCP Cloud Asset Inventory export
// (`gcloud asset list --format json` and the export API both produce
// this shape). The ingest layer flattens these into RawRecords.
// Entries from IAM_POLICY content exports carry iam_policy instead of
// a resource payload.
type GCPAssetEntry struct {
	Name      string                 `json:"name"`       // //service.googleapis.com/projects/p/...
	AssetType string                 `json:"asset_type"` // e.g. storage.googleapis.com/Bucket
	Resource  *GCPResource           `json:"resource,omitempty"`
	IAMPolicy map[string]interface{} `json:"iam_policy,omitempty"`
}

// GCPResource wraps the provider payload of one asset entry.
type GCPResource struct {
	DiscoveryName string                 `json:"discovery_name,omitempty"`
	Parent        string                 `json:"parent,omitempty"`
	Data          map[string]interface{} `json:"data,omitempty"`
}
