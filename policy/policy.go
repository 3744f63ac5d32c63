// Package policy decides when archive records reach a Sink.
//
// Two policies are provided:
//   - StrictPolicy writes every record through immediately
//   - BufferedPolicy batches records and writes them when the buffer fills
//     and on Flush/Close
//
// Archive records are never dropped: a record the policy cannot persist is
// an error, and the caller fails the run.
package policy

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pithecene-io/preload/types"
)

// Name identifies a policy in configuration.
type Name string

const (
	// NameStrict selects StrictPolicy.
	NameStrict Name = "strict"
	// NameBuffered selects BufferedPolicy.
	NameBuffered Name = "buffered"
)

// ErrUnknownPolicy is returned by ParseName for an unrecognized name.
var ErrUnknownPolicy = errors.New("unknown policy")

// ParseName validates a policy name. Empty means strict.
func ParseName(s string) (Name, error) {
	switch Name(s) {
	case "", NameStrict:
		return NameStrict, nil
	case NameBuffered:
		return NameBuffered, nil
	}
	return "", fmt.Errorf("%w: %q (want strict or buffered)", ErrUnknownPolicy, s)
}

// Policy handles archive records produced by the preprocessing engine.
// Implementations must be safe for concurrent use: every segment worker
// ingests through the same policy.
type Policy interface {
	// Ingest accepts one record. An error fails the run.
	Ingest(ctx context.Context, rec *types.ArchiveRecord) error

	// Flush writes any buffered records.
	Flush(ctx context.Context) error

	// Close flushes and releases the sink.
	Close() error

	// Stats returns a consistent snapshot of policy counters.
	Stats() Stats
}

// Stats represents policy counters.
type Stats struct {
	// TotalRecords is the number of records ingested.
	TotalRecords int64 `json:"total_records" yaml:"total_records"`
	// RecordsPersisted is the number of records the sink accepted.
	RecordsPersisted int64 `json:"records_persisted" yaml:"records_persisted"`
	// BufferedRecords is the number of records waiting for a flush.
	BufferedRecords int64 `json:"buffered_records" yaml:"buffered_records"`
	// BufferBytes is the estimated size of the buffered records.
	BufferBytes int64 `json:"buffer_bytes" yaml:"buffer_bytes"`
	// FlushCount is the number of flush operations.
	FlushCount int64 `json:"flush_count" yaml:"flush_count"`
	// Errors is the number of failed sink writes.
	Errors int64 `json:"errors" yaml:"errors"`
}

// statsRecorder is an internal helper for thread-safe stats management.
//
// Lock discipline:
//   - StrictPolicy uses the locking methods (incTotal, snapshot, etc.)
//   - BufferedPolicy uses the Locked methods only while holding
//     BufferedPolicy.mu, so buffer state and counters move together.
type statsRecorder struct {
	mu    sync.Mutex
	stats Stats
}

func (r *statsRecorder) incTotal() {
	r.mu.Lock()
	r.stats.TotalRecords++
	r.mu.Unlock()
}

func (r *statsRecorder) incPersisted(n int64) {
	r.mu.Lock()
	r.stats.RecordsPersisted += n
	r.mu.Unlock()
}

func (r *statsRecorder) incErrors() {
	r.mu.Lock()
	r.stats.Errors++
	r.mu.Unlock()
}

func (r *statsRecorder) incFlush() {
	r.mu.Lock()
	r.stats.FlushCount++
	r.mu.Unlock()
}

func (r *statsRecorder) snapshot() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// --- Locked methods for BufferedPolicy ---
// Caller must hold BufferedPolicy.mu.

func (r *statsRecorder) incTotalLocked()            { r.stats.TotalRecords++ }
func (r *statsRecorder) incPersistedLocked(n int64) { r.stats.RecordsPersisted += n }
func (r *statsRecorder) incErrorsLocked()           { r.stats.Errors++ }
func (r *statsRecorder) incFlushLocked()            { r.stats.FlushCount++ }

// snapshotLocked returns the counters with the given buffer state.
func (r *statsRecorder) snapshotLocked(records, bytes int64) Stats {
	s := r.stats
	s.BufferedRecords = records
	s.BufferBytes = bytes
	return s
}
