// Package ingest flattens provider-specific inventory exports into the
// provider-agnostic RawRecord stream the normalizer consumes. Each
// flattener is a static mapping table plus attribute extraction; no
// provider API is ever called.
package ingest

import (
	"strings"

	"github.com/veridianlabs/hipaascope/internal/models"
)

// FlattenGCP converts GCP Cloud Asset Inventory entries into raw
// records. Attribute extraction is per asset type: only fields that
// compliance rules reference are lifted out of the provider payload.
func FlattenGCP(entries []models.GCPAssetEntry) []models.RawRecord {
	records := make([]models.RawRecord, 0, len(entries))
	for _, entry := range entries {
		records = append(records, flattenEntry(entry))
	}
	return records
}

func flattenEntry(entry models.GCPAssetEntry) models.RawRecord {
	rec := models.RawRecord{
		ResourceName: trimAssetName(entry.Name),
		ResourceKind: entry.AssetType,
		Attributes:   map[string]interface{}{},
	}

	var data map[string]interface{}
	if entry.Resource != nil {
		data = entry.Resource.Data
	}

	switch entry.AssetType {
	case "storage.googleapis.com/Bucket":
		flattenBucket(data, entry.IAMPolicy, rec.Attributes)
	case "secretmanager.googleapis.com/Secret", "secretmanager.googleapis.com/SecretVersion":
		flattenSecret(data, rec.Attributes)
	case "compute.googleapis.com/Firewall":
		flattenFirewall(data, rec.Attributes)
	case "compute.googleapis.com/Instance":
		flattenInstance(data, rec.Attributes)
	case "sqladmin.googleapis.com/Instance":
		flattenSQLInstance(data, rec.Attributes)
	case "logging.googleapis.com/LogSink":
		flattenLogSink(data, rec.Attributes)
	case "iam.googleapis.com/ServiceAccount":
		flattenServiceAccount(data, rec.Attributes)
	default:
		// Unmapped types still pass through: generic rules can match
		// on labels or raw fields the normalizer preserves.
		copyScalars(data, rec.Attributes)
	}

	if labels := stringMap(data, "labels"); len(labels) > 0 {
		rec.Labels = labels
	}
	return rec
}

// trimAssetName strips the asset-inventory prefix, leaving the
// projects/... resource path rules and reports refer to.
func trimAssetName(name string) string {
	name = strings.TrimPrefix(name, "//")
	if idx := strings.Index(name, "/projects/"); idx >= 0 {
		return name[idx+1:]
	}
	return name
}

func flattenBucket(data, iamPolicy, attrs map[string]interface{}) {
	attrs["public_access"] = bucketIsPublic(data, iamPolicy)
	if enc, ok := nested(data, "encryption"); ok {
		_, hasKey := enc["defaultKmsKeyName"]
		attrs["cmek_encryption"] = hasKey
	} else {
		attrs["cmek_encryption"] = false
	}
	if versioning, ok := nested(data, "versioning"); ok {
		attrs["versioning_enabled"] = boolField(versioning, "enabled")
	}
	if v, ok := data["locationType"].(string); ok {
		attrs["location_type"] = strings.ToLower(v)
	}
	if iam, ok := nested(data, "iamConfiguration"); ok {
		if v, ok := iam["publicAccessPrevention"].(string); ok {
			attrs["public_access_prevention"] = v
		}
		if ubla, ok := nested(iam, "uniformBucketLevelAccess"); ok {
			attrs["uniform_access"] = boolField(ubla, "enabled")
		}
	}
	if v, ok := data["retentionPolicy"]; ok && v != nil {
		attrs["retention_policy"] = true
	}
}

// bucketIsPublic reports whether any IAM binding grants access to
// allUsers or allAuthenticatedUsers.
func bucketIsPublic(data, iamPolicy map[string]interface{}) bool {
	for _, policy := range []map[string]interface{}{iamPolicy, data} {
		bindings, ok := policy["bindings"].([]interface{})
		if !ok {
			continue
		}
		for _, b := range bindings {
			binding, ok := b.(map[string]interface{})
			if !ok {
				continue
			}
			members, ok := binding["members"].([]interface{})
			if !ok {
				continue
			}
			for _, m := range members {
				if s, ok := m.(string); ok && (s == "allUsers" || s == "allAuthenticatedUsers") {
					return true
				}
			}
		}
	}
	return false
}

func flattenSecret(data, attrs map[string]interface{}) {
	if repl, ok := nested(data, "replication"); ok {
		switch {
		case has(repl, "userManaged"):
			attrs["replication_mode"] = "user-managed"
		case has(repl, "automatic"):
			attrs["replication_mode"] = "automatic"
		}
	}
	if v, ok := data["expireTime"].(string); ok && v != "" {
		attrs["expiry_set"] = true
	}
	if rotation, ok := nested(data, "rotation"); ok {
		_, hasPeriod := rotation["rotationPeriod"]
		attrs["rotation_configured"] = hasPeriod
	} else {
		attrs["rotation_configured"] = false
	}
}

func flattenFirewall(data, attrs map[string]interface{}) {
	if v, ok := data["direction"].(string); ok {
		attrs["direction"] = strings.ToLower(v)
	}
	attrs["disabled"] = boolField(data, "disabled")

	if ranges, ok := data["sourceRanges"].([]interface{}); ok {
		out := make([]string, 0, len(ranges))
		for _, r := range ranges {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
		attrs["source_ranges"] = out
	}

	var ports []string
	if allowed, ok := data["allowed"].([]interface{}); ok {
		for _, a := range allowed {
			rule, ok := a.(map[string]interface{})
			if !ok {
				continue
			}
			if ps, ok := rule["ports"].([]interface{}); ok {
				for _, p := range ps {
					if s, ok := p.(string); ok {
						ports = append(ports, s)
					}
				}
			}
		}
	}
	if ports != nil {
		attrs["allowed_ports"] = ports
	}

	if logCfg, ok := nested(data, "logConfig"); ok {
		attrs["logging_enabled"] = boolField(logCfg, "enable")
	} else {
		attrs["logging_enabled"] = false
	}
}

func flattenInstance(data, attrs map[string]interface{}) {
	if v, ok := data["status"].(string); ok {
		attrs["status"] = strings.ToLower(v)
	}

	// A NIC with an accessConfig carries an external IP.
	external := false
	if nics, ok := data["networkInterfaces"].([]interface{}); ok {
		for _, n := range nics {
			nic, ok := n.(map[string]interface{})
			if !ok {
				continue
			}
			if cfgs, ok := nic["accessConfigs"].([]interface{}); ok && len(cfgs) > 0 {
				external = true
			}
		}
	}
	attrs["external_ip"] = external

	if shielded, ok := nested(data, "shieldedInstanceConfig"); ok {
		attrs["shielded_vm"] = boolField(shielded, "enableSecureBoot")
	}

	encrypted := true
	if disks, ok := data["disks"].([]interface{}); ok {
		for _, d := range disks {
			disk, ok := d.(map[string]interface{})
			if !ok {
				continue
			}
			if key, ok := nested(disk, "diskEncryptionKey"); !ok || len(key) == 0 {
				encrypted = false
			}
		}
	}
	attrs["disk_cmek_encryption"] = encrypted
}

func flattenSQLInstance(data, attrs map[string]interface{}) {
	settings, _ := nested(data, "settings")

	if backup, ok := nested(settings, "backupConfiguration"); ok {
		attrs["backups_enabled"] = boolField(backup, "enabled")
		attrs["point_in_time_recovery"] = boolField(backup, "pointInTimeRecoveryEnabled")
	} else {
		attrs["backups_enabled"] = false
	}

	if ipCfg, ok := nested(settings, "ipConfiguration"); ok {
		attrs["public_ip"] = boolField(ipCfg, "ipv4Enabled")
		attrs["require_ssl"] = boolField(ipCfg, "requireSsl")
	}

	if enc, ok := nested(data, "diskEncryptionConfiguration"); ok {
		_, hasKey := enc["kmsKeyName"]
		attrs["cmek_encryption"] = hasKey
	} else {
		attrs["cmek_encryption"] = false
	}
}

func flattenLogSink(data, attrs map[string]interface{}) {
	if v, ok := data["destination"].(string); ok {
		attrs["destination"] = v
	}
	if v, ok := data["filter"].(string); ok {
		attrs["filter"] = v
	}
	attrs["disabled"] = boolField(data, "disabled")
}

func flattenServiceAccount(data, attrs map[string]interface{}) {
	attrs["disabled"] = boolField(data, "disabled")
	if v, ok := data["email"].(string); ok {
		attrs["email"] = v
		attrs["default_service_account"] = strings.Contains(v, "-compute@developer.gserviceaccount.com") ||
			strings.Contains(v, "@appspot.gserviceaccount.com")
	}
}

// copyScalars lifts top-level scalar fields so generic rules can still
// reference unmapped asset types.
func copyScalars(data, attrs map[string]interface{}) {
	for k, v := range data {
		switch v.(type) {
		case string, bool, float64:
			attrs[k] = v
		}
	}
}

func nested(data map[string]interface{}, key string) (map[string]interface{}, bool) {
	if data == nil {
		return nil, false
	}
	m, ok := data[key].(map[string]interface{})
	return m, ok
}

func has(data map[string]interface{}, key string) bool {
	_, ok := data[key]
	return ok
}

func boolField(data map[string]interface{}, key string) bool {
	if data == nil {
		return false
	}
	b, _ := data[key].(bool)
	return b
}

func stringMap(data map[string]interface{}, key string) map[string]string {
	raw, ok := nested(data, key)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}
