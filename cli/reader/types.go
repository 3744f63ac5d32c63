// Package reader is the read side of the preload CLI: it loads archive
// records written by a run and folds them into the views the inspect and
// stats commands render.
package reader

import "github.com/pithecene-io/preload/types"

// RecordItem is one archive record as shown by inspect.
type RecordItem struct {
	Name     string `json:"name" yaml:"name"`
	Kind     string `json:"kind" yaml:"kind"`
	Loader   string `json:"loader" yaml:"loader"`
	Where    string `json:"where" yaml:"where"`
	Major    uint16 `json:"major" yaml:"major"`
	Size     int64  `json:"size" yaml:"size"`
	Digest   string `json:"digest" yaml:"digest"`
	RunID    string `json:"run_id" yaml:"run_id"`
	Recorded string `json:"ts" yaml:"ts"`
}

// NewRecordItem flattens an archive record. Where is the class location for
// loaded records and the origin tag for source records.
func NewRecordItem(rec *types.ArchiveRecord) RecordItem {
	where := rec.Location
	if rec.Kind == types.RecordKindSource {
		where = rec.Origin
	}
	digest := rec.Digest
	if len(digest) > 12 {
		digest = digest[:12]
	}
	return RecordItem{
		Name:     rec.Name,
		Kind:     string(rec.Kind),
		Loader:   string(rec.Loader),
		Where:    where,
		Major:    rec.MajorVersion,
		Size:     rec.SizeBytes,
		Digest:   digest,
		RunID:    rec.RunID,
		Recorded: rec.Timestamp,
	}
}

// ArchiveStats summarizes an archive.
type ArchiveStats struct {
	Records    int            `json:"records" yaml:"records"`
	Runs       int            `json:"runs" yaml:"runs"`
	Loaded     int            `json:"loaded" yaml:"loaded"`
	Source     int            `json:"source" yaml:"source"`
	Primary    int            `json:"primary" yaml:"primary"`
	Fallback   int            `json:"fallback" yaml:"fallback"`
	TotalBytes int64          `json:"total_bytes" yaml:"total_bytes"`
	ByMajor    map[string]int `json:"by_major_version" yaml:"by_major_version"`
	// RunMetrics is the latest metrics row of the run, Lode archives only.
	RunMetrics *RunMetrics `json:"run_metrics,omitempty" yaml:"run_metrics,omitempty"`
}

// RunMetrics is the metrics row a run leaves in a Lode dataset.
type RunMetrics struct {
	Ts             string `json:"ts" yaml:"ts"`
	RunID          string `json:"run_id" yaml:"run_id"`
	Policy         string `json:"policy" yaml:"policy"`
	StorageBackend string `json:"storage_backend" yaml:"storage_backend"`

	RunsCompleted int64 `json:"runs_completed" yaml:"runs_completed"`
	RunsFailed    int64 `json:"runs_failed" yaml:"runs_failed"`

	ManifestEntries int64 `json:"manifest_entries" yaml:"manifest_entries"`
	Segments        int64 `json:"segments" yaml:"segments"`
	Loaded          int64 `json:"loaded" yaml:"loaded"`
	FromSource      int64 `json:"from_source" yaml:"from_source"`
	NotFound        int64 `json:"not_found" yaml:"not_found"`
	Incompatible    int64 `json:"incompatible" yaml:"incompatible"`
	Rejected        int64 `json:"rejected" yaml:"rejected"`
	Unsupported     int64 `json:"unsupported" yaml:"unsupported"`

	RecordsPersisted int64 `json:"records_persisted" yaml:"records_persisted"`
	SinkWriteFailure int64 `json:"sink_write_failure" yaml:"sink_write_failure"`
}
