// Package archive is the preprocessing engine: it turns resolved classes
// and source-declared entries into archive records and hands them to a
// write policy.
package archive

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pithecene-io/preload/log"
	"github.com/pithecene-io/preload/metrics"
	"github.com/pithecene-io/preload/policy"
	"github.com/pithecene-io/preload/types"
)

// ErrNilHandle is returned by Process for a nil handle.
var ErrNilHandle = errors.New("nil class handle")

// RunFinisher is implemented by sinks that persist end-of-run data next to
// the records.
type RunFinisher interface {
	WriteMetrics(ctx context.Context, snap metrics.Snapshot, completedAt time.Time) error
	PutFile(ctx context.Context, filename string, data []byte) error
}

// Engine builds archive records and feeds them to a policy.
// Safe for concurrent use by all segment workers.
type Engine struct {
	policy   policy.Policy
	runID    string
	now      func() time.Time
	logger   *log.Logger
	metrics  *metrics.Collector
	finisher RunFinisher

	closeOnce sync.Once
	closeErr  error
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the timestamp source for records.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics sets the collector that receives policy stats on Close.
func WithMetrics(c *metrics.Collector) Option {
	return func(e *Engine) { e.metrics = c }
}

// WithFinisher sets the sink used by Finish.
func WithFinisher(f RunFinisher) Option {
	return func(e *Engine) { e.finisher = f }
}

// NewEngine creates an engine writing through pol.
func NewEngine(pol policy.Policy, runID string, opts ...Option) *Engine {
	e := &Engine{
		policy: pol,
		runID:  runID,
		now:    time.Now,
		logger: log.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Process records a class resolved through a loader.
func (e *Engine) Process(ctx context.Context, h *types.ClassHandle) error {
	if h == nil {
		return ErrNilHandle
	}
	sum := sha256.Sum256(h.Data)
	rec := &types.ArchiveRecord{
		ContractVersion: types.ContractVersion,
		RunID:           e.runID,
		Name:            h.Name,
		Kind:            types.RecordKindLoaded,
		Loader:          h.Loader,
		Location:        h.Location,
		SuperName:       h.SuperName,
		InterfaceCount:  h.InterfaceCount,
		MajorVersion:    h.MajorVersion,
		MinorVersion:    h.MinorVersion,
		SizeBytes:       int64(len(h.Data)),
		Digest:          hex.EncodeToString(sum[:]),
		Timestamp:       e.timestamp(),
	}
	if err := e.policy.Ingest(ctx, rec); err != nil {
		return fmt.Errorf("archive %s: %w", h.Name, err)
	}
	return nil
}

// ProcessWithSource records a class declared with an explicit origin.
// Nothing is resolved: the record carries what the manifest declared.
func (e *Engine) ProcessWithSource(ctx context.Context, name, origin string, interfaceCount int) error {
	rec := &types.ArchiveRecord{
		ContractVersion: types.ContractVersion,
		RunID:           e.runID,
		Name:            name,
		Kind:            types.RecordKindSource,
		Origin:          origin,
		InterfaceCount:  interfaceCount,
		Timestamp:       e.timestamp(),
	}
	if err := e.policy.Ingest(ctx, rec); err != nil {
		return fmt.Errorf("archive %s from %s: %w", name, origin, err)
	}
	return nil
}

// Flush writes any buffered records.
func (e *Engine) Flush(ctx context.Context) error {
	return e.policy.Flush(ctx)
}

// Stats returns the policy counters.
func (e *Engine) Stats() policy.Stats {
	return e.policy.Stats()
}

// Close flushes and closes the policy, then copies its counters into the
// metrics collector. Later calls return the first result.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.closeErr = e.policy.Close()
		st := e.policy.Stats()
		e.metrics.AbsorbPolicyStats(st.TotalRecords, st.RecordsPersisted, st.FlushCount)
		fields := map[string]any{
			"records":   st.TotalRecords,
			"persisted": st.RecordsPersisted,
			"flushes":   st.FlushCount,
		}
		if e.closeErr != nil {
			fields["error"] = e.closeErr.Error()
			e.logger.Error("archive close failed", fields)
			return
		}
		e.logger.Debug("archive closed", fields)
	})
	return e.closeErr
}

// Finish writes the metrics snapshot and an optional summary file when the
// sink supports it. It is a no-op otherwise.
func (e *Engine) Finish(ctx context.Context, snap metrics.Snapshot, summary []byte) error {
	if e.finisher == nil {
		return nil
	}
	if err := e.finisher.WriteMetrics(ctx, snap, e.now()); err != nil {
		return fmt.Errorf("write run metrics: %w", err)
	}
	if len(summary) > 0 {
		if err := e.finisher.PutFile(ctx, "summary.json", summary); err != nil {
			return fmt.Errorf("write run summary: %w", err)
		}
	}
	return nil
}

func (e *Engine) timestamp() string {
	return e.now().UTC().Format(time.RFC3339Nano)
}
