// Package metrics provides per-run metrics collection for a preload run.
//
// The Collector accumulates counters during a single run. It is a leaf package
// with no internal dependencies. Archive write policy metrics are absorbed from
// policy.Stats once the engine is closed rather than recorded live, avoiding
// double-counting.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all run metrics.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Run lifecycle
	RunsStarted   int64 `json:"runs_started" yaml:"runs_started"`
	RunsCompleted int64 `json:"runs_completed" yaml:"runs_completed"`
	RunsFailed    int64 `json:"runs_failed" yaml:"runs_failed"`

	// Manifest
	ManifestLines    int64 `json:"manifest_lines" yaml:"manifest_lines"`
	ManifestEntries  int64 `json:"manifest_entries" yaml:"manifest_entries"`
	ManifestComments int64 `json:"manifest_comments" yaml:"manifest_comments"`
	ManifestBlank    int64 `json:"manifest_blank" yaml:"manifest_blank"`
	Unsupported      int64 `json:"unsupported" yaml:"unsupported"`
	Segments         int64 `json:"segments" yaml:"segments"`

	// Per-entry outcomes
	Loaded       int64 `json:"loaded" yaml:"loaded"`
	FromSource   int64 `json:"from_source" yaml:"from_source"`
	Fallback     int64 `json:"fallback" yaml:"fallback"`
	NotFound     int64 `json:"not_found" yaml:"not_found"`
	Incompatible int64 `json:"incompatible" yaml:"incompatible"`
	Rejected     int64 `json:"rejected" yaml:"rejected"`
	WorkerErrors int64 `json:"worker_errors" yaml:"worker_errors"`

	// Archive (absorbed from policy.Stats after close)
	RecordsReceived  int64 `json:"records_received" yaml:"records_received"`
	RecordsPersisted int64 `json:"records_persisted" yaml:"records_persisted"`
	Flushes          int64 `json:"flushes" yaml:"flushes"`

	// Sink writes (per-call)
	SinkWriteSuccess int64 `json:"sink_write_success" yaml:"sink_write_success"`
	SinkWriteFailure int64 `json:"sink_write_failure" yaml:"sink_write_failure"`

	// Dimensions (informational, set at construction)
	Policy         string `json:"policy" yaml:"policy"`
	StorageBackend string `json:"storage_backend" yaml:"storage_backend"`
	RunID          string `json:"run_id" yaml:"run_id"`
}

// Collector accumulates metrics during a single run.
// Thread-safe via sync.Mutex. All methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex
	s  Snapshot
}

// NewCollector creates a Collector with dimension labels.
func NewCollector(policy, storageBackend, runID string) *Collector {
	return &Collector{s: Snapshot{
		Policy:         policy,
		StorageBackend: storageBackend,
		RunID:          runID,
	}}
}

func (c *Collector) add(field *int64, n int64) {
	c.mu.Lock()
	*field += n
	c.mu.Unlock()
}

// --- Run lifecycle ---

// IncRunStarted records a run start.
func (c *Collector) IncRunStarted() {
	if c == nil {
		return
	}
	c.add(&c.s.RunsStarted, 1)
}

// IncRunCompleted records a successful run completion.
func (c *Collector) IncRunCompleted() {
	if c == nil {
		return
	}
	c.add(&c.s.RunsCompleted, 1)
}

// IncRunFailed records a run that ended with a fatal error.
func (c *Collector) IncRunFailed() {
	if c == nil {
		return
	}
	c.add(&c.s.RunsFailed, 1)
}

// --- Manifest ---

// RecordManifest stores the manifest line counts. Called once per run
// after the manifest has been parsed.
func (c *Collector) RecordManifest(lines, entries, comments, blank, unsupported int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.s.ManifestLines = int64(lines)
	c.s.ManifestEntries = int64(entries)
	c.s.ManifestComments = int64(comments)
	c.s.ManifestBlank = int64(blank)
	c.s.Unsupported = int64(unsupported)
	c.mu.Unlock()
}

// SetSegments records how many segments the partitioner produced.
func (c *Collector) SetSegments(n int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.s.Segments = int64(n)
	c.mu.Unlock()
}

// --- Per-entry outcomes ---

// IncLoaded records a class resolved and handed to the engine.
// fallback is true when the class came from the fallback path.
func (c *Collector) IncLoaded(fallback bool) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.s.Loaded++
	if fallback {
		c.s.Fallback++
	}
	c.mu.Unlock()
}

// IncFromSource records an entry processed from an explicit origin.
func (c *Collector) IncFromSource() {
	if c == nil {
		return
	}
	c.add(&c.s.FromSource, 1)
}

// IncNotFound records an entry neither path could resolve.
func (c *Collector) IncNotFound() {
	if c == nil {
		return
	}
	c.add(&c.s.NotFound, 1)
}

// IncIncompatible records a class file that was found but skipped.
func (c *Collector) IncIncompatible() {
	if c == nil {
		return
	}
	c.add(&c.s.Incompatible, 1)
}

// IncRejected records a source entry in a protected namespace.
func (c *Collector) IncRejected() {
	if c == nil {
		return
	}
	c.add(&c.s.Rejected, 1)
}

// IncWorkerError records a worker that stopped on a fatal error.
func (c *Collector) IncWorkerError() {
	if c == nil {
		return
	}
	c.add(&c.s.WorkerErrors, 1)
}

// --- Sink ---
// Sink counters are per-call, not per-record. A single WriteRecords call
// with N records counts as 1 success.

// IncSinkWriteSuccess records a successful sink write (per-call).
func (c *Collector) IncSinkWriteSuccess() {
	if c == nil {
		return
	}
	c.add(&c.s.SinkWriteSuccess, 1)
}

// IncSinkWriteFailure records a failed sink write (per-call).
func (c *Collector) IncSinkWriteFailure() {
	if c == nil {
		return
	}
	c.add(&c.s.SinkWriteFailure, 1)
}

// AbsorbPolicyStats copies archive counters from policy.Stats into the
// collector. Called once after the engine is closed.
func (c *Collector) AbsorbPolicyStats(received, persisted, flushes int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.s.RecordsReceived = received
	c.s.RecordsPersisted = persisted
	c.s.Flushes = flushes
	c.mu.Unlock()
}

// --- Snapshot ---

// Snapshot returns a point-in-time copy of all metrics.
// The Collector can continue to be mutated independently.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.s
}
