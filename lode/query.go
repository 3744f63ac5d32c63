package lode

import (
	"context"
	"errors"
	"fmt"

	"github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/preload/types"
)

// ErrNoMetricsFound is returned when no metrics records exist in the dataset.
var ErrNoMetricsFound = errors.New("no metrics records found")

// ReadRecords returns every archive record in the dataset, oldest snapshot
// first. A non-empty runID restricts the result to that run. Metrics rows
// are skipped.
func ReadRecords(ctx context.Context, ds lode.Dataset, runID string) ([]*types.ArchiveRecord, error) {
	snapshots, err := ds.Snapshots(ctx)
	if err != nil {
		return nil, WrapReadError(err, fmt.Sprintf("%s/snapshots", ds.ID()))
	}

	var out []*types.ArchiveRecord
	for _, snap := range snapshots {
		if !snapshotMatchesFilter(snap, KeyRunID, runID) {
			continue
		}
		data, err := ds.Read(ctx, snap.ID)
		if err != nil {
			return nil, WrapReadError(err, fmt.Sprintf("%s/snapshot/%s", ds.ID(), snap.ID))
		}
		for _, item := range data {
			row, ok := item.(map[string]any)
			if !ok || row["record_kind"] == RecordKindMetrics {
				continue
			}
			if runID != "" && toString(row[KeyRunID]) != runID {
				continue
			}
			out = append(out, fromRecordMap(row))
		}
	}
	return out, nil
}

// QueryLatestMetrics finds and reads the most recent metrics record.
// Filters by runID if non-empty. Returns the raw row or ErrNoMetricsFound.
func QueryLatestMetrics(ctx context.Context, ds lode.Dataset, runID string) (map[string]any, error) {
	snapshots, err := ds.Snapshots(ctx)
	if err != nil {
		return nil, WrapReadError(err, fmt.Sprintf("%s/snapshots", ds.ID()))
	}

	// Latest first; snapshots are ordered by creation time.
	for i := len(snapshots) - 1; i >= 0; i-- {
		snap := snapshots[i]
		if !snapshotMatchesFilter(snap, KeyKind, RecordKindMetrics) {
			continue
		}
		if !snapshotMatchesFilter(snap, KeyRunID, runID) {
			continue
		}

		data, err := ds.Read(ctx, snap.ID)
		if err != nil {
			return nil, WrapReadError(err, fmt.Sprintf("%s/snapshot/%s", ds.ID(), snap.ID))
		}

		// Path filtering is coarse; row fields are authoritative.
		for _, item := range data {
			row, ok := item.(map[string]any)
			if !ok || row["record_kind"] != RecordKindMetrics {
				continue
			}
			if runID != "" && toString(row[KeyRunID]) != runID {
				continue
			}
			return row, nil
		}
	}

	return nil, ErrNoMetricsFound
}
