package reader

import "errors"

// ParseMetricsRecord converts a Lode metrics row to RunMetrics.
// Handles both int64 (direct writes) and float64 (JSON round-trips).
func ParseMetricsRecord(row map[string]any) (*RunMetrics, error) {
	if row == nil {
		return nil, errors.New("nil record")
	}

	m := &RunMetrics{
		Ts:             toString(row["ts"]),
		RunID:          toString(row["run_id"]),
		Policy:         toString(row["policy"]),
		StorageBackend: toString(row["storage_backend"]),

		RunsCompleted: toInt64(row["runs_completed_total"]),
		RunsFailed:    toInt64(row["runs_failed_total"]),

		ManifestEntries: toInt64(row["manifest_entries"]),
		Segments:        toInt64(row["segments"]),
		Loaded:          toInt64(row["loaded_total"]),
		FromSource:      toInt64(row["from_source_total"]),
		NotFound:        toInt64(row["not_found_total"]),
		Incompatible:    toInt64(row["incompatible_total"]),
		Rejected:        toInt64(row["rejected_total"]),
		Unsupported:     toInt64(row["unsupported_total"]),

		RecordsPersisted: toInt64(row["records_persisted"]),
		SinkWriteFailure: toInt64(row["sink_write_failure"]),
	}

	// The write path always sets these.
	if m.Ts == "" {
		return nil, errors.New("metrics record missing required field: ts")
	}
	if m.RunID == "" {
		return nil, errors.New("metrics record missing required field: run_id")
	}
	if m.Policy == "" {
		return nil, errors.New("metrics record missing required field: policy")
	}
	return m, nil
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	case int:
		return int64(n)
	default:
		return 0
	}
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
