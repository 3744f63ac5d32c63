package lode

import (
	"time"

	"github.com/pithecene-io/preload/metrics"
	"github.com/pithecene-io/preload/types"
)

// RecordKindMetrics marks the per-run metrics record. Archive records use
// their own kind ("loaded", "source") in the same partition key.
const RecordKindMetrics = "metrics"

// Partition keys, in Hive layout order.
const (
	KeyDay   = "day"
	KeyRunID = "run_id"
	KeyKind  = "kind"
)

// partitionKeys is the Hive layout shared by the write and read paths.
var partitionKeys = []string{KeyDay, KeyRunID, KeyKind}

// toRecordMap converts an archive record to a Lode row.
// Lode HiveLayout requires records as map[string]any carrying the
// partition keys.
func toRecordMap(rec *types.ArchiveRecord, cfg Config) map[string]any {
	m := map[string]any{
		"record_kind":      string(rec.Kind),
		"contract_version": rec.ContractVersion,
		KeyRunID:           rec.RunID,
		"name":             rec.Name,
		KeyKind:            string(rec.Kind),
		"interface_count":  rec.InterfaceCount,
		"ts":               rec.Timestamp,
		KeyDay:             cfg.Day,
	}
	if rec.RunID == "" {
		m[KeyRunID] = cfg.RunID
	}
	if rec.Loader != "" {
		m["loader"] = string(rec.Loader)
	}
	if rec.Location != "" {
		m["location"] = rec.Location
	}
	if rec.Origin != "" {
		m["origin"] = rec.Origin
	}
	if rec.SuperName != "" {
		m["super_name"] = rec.SuperName
	}
	if rec.MajorVersion != 0 {
		m["major_version"] = rec.MajorVersion
		m["minor_version"] = rec.MinorVersion
	}
	if rec.SizeBytes != 0 {
		m["size_bytes"] = rec.SizeBytes
	}
	if rec.Digest != "" {
		m["digest"] = rec.Digest
	}
	return m
}

// toMetricsRecordMap converts a metrics snapshot to a Lode row in the
// kind=metrics partition.
func toMetricsRecordMap(snap metrics.Snapshot, cfg Config, completedAt time.Time) map[string]any {
	return map[string]any{
		"record_kind":      RecordKindMetrics,
		KeyKind:            RecordKindMetrics,
		KeyDay:             cfg.Day,
		KeyRunID:           cfg.RunID,
		"contract_version": types.ContractVersion,
		"ts":               completedAt.UTC().Format(time.RFC3339Nano),

		"runs_started_total":   snap.RunsStarted,
		"runs_completed_total": snap.RunsCompleted,
		"runs_failed_total":    snap.RunsFailed,

		"manifest_lines":       snap.ManifestLines,
		"manifest_entries":     snap.ManifestEntries,
		"manifest_comments":    snap.ManifestComments,
		"manifest_blank":       snap.ManifestBlank,
		"unsupported_total":    snap.Unsupported,
		"segments":             snap.Segments,
		"loaded_total":         snap.Loaded,
		"from_source_total":    snap.FromSource,
		"fallback_total":       snap.Fallback,
		"not_found_total":      snap.NotFound,
		"incompatible_total":   snap.Incompatible,
		"rejected_total":       snap.Rejected,
		"worker_errors_total":  snap.WorkerErrors,
		"records_received":     snap.RecordsReceived,
		"records_persisted":    snap.RecordsPersisted,
		"flushes_total":        snap.Flushes,
		"sink_write_success":   snap.SinkWriteSuccess,
		"sink_write_failure":   snap.SinkWriteFailure,
		"policy":               snap.Policy,
		"storage_backend":      snap.StorageBackend,
	}
}

// fromRecordMap rebuilds an archive record from a row read back from Lode.
// JSONL decoding yields float64 for numbers.
func fromRecordMap(m map[string]any) *types.ArchiveRecord {
	return &types.ArchiveRecord{
		ContractVersion: toString(m["contract_version"]),
		RunID:           toString(m[KeyRunID]),
		Name:            toString(m["name"]),
		Kind:            types.RecordKind(toString(m[KeyKind])),
		Loader:          types.LoaderKind(toString(m["loader"])),
		Location:        toString(m["location"]),
		Origin:          toString(m["origin"]),
		SuperName:       toString(m["super_name"]),
		InterfaceCount:  int(toInt64(m["interface_count"])),
		MajorVersion:    uint16(toInt64(m["major_version"])),
		MinorVersion:    uint16(toInt64(m["minor_version"])),
		SizeBytes:       toInt64(m["size_bytes"]),
		Digest:          toString(m["digest"]),
		Timestamp:       toString(m["ts"]),
	}
}

// toString converts a value to string, returning empty string for nil/non-string.
func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// toInt64 converts a decoded JSON number to int64.
func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	case int:
		return int64(n)
	case uint16:
		return int64(n)
	default:
		return 0
	}
}
