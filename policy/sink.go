package policy

import (
	"context"
	"sync"

	"github.com/pithecene-io/preload/metrics"
	"github.com/pithecene-io/preload/types"
)

// Sink abstracts persistence for policies.
// Implementations may write to a frame file, a Lode dataset, or stub for
// testing. Implementations must be safe for concurrent use.
type Sink interface {
	// WriteRecords persists a batch of records.
	// Must preserve ordering within the batch.
	WriteRecords(ctx context.Context, records []*types.ArchiveRecord) error

	// Close releases any resources held by the sink.
	Close() error
}

// StubSink is a sink that accepts writes without persisting.
// Used for archive backend "none" and in tests; tracks write statistics.
type StubSink struct {
	mu sync.Mutex

	// Written stores every written record, when Keep is true.
	Written []*types.ArchiveRecord
	// Keep retains written records for inspection.
	Keep bool

	recordsWritten int64
	batches        int64
	closed         bool

	// ErrorOnWrite, if non-nil, is returned by WriteRecords.
	ErrorOnWrite error
}

// NewStubSink creates a stub sink that discards records.
func NewStubSink() *StubSink {
	return &StubSink{}
}

// NewRecordingSink creates a stub sink that keeps written records.
func NewRecordingSink() *StubSink {
	return &StubSink{Keep: true}
}

// WriteRecords counts the records without persisting.
func (s *StubSink) WriteRecords(_ context.Context, records []*types.ArchiveRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ErrorOnWrite != nil {
		return s.ErrorOnWrite
	}

	s.batches++
	s.recordsWritten += int64(len(records))
	if s.Keep {
		s.Written = append(s.Written, records...)
	}
	return nil
}

// SetError sets the error returned by subsequent writes.
func (s *StubSink) SetError(err error) {
	s.mu.Lock()
	s.ErrorOnWrite = err
	s.mu.Unlock()
}

// Records returns a copy of the kept records.
func (s *StubSink) Records() []*types.ArchiveRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*types.ArchiveRecord, len(s.Written))
	copy(out, s.Written)
	return out
}

// Close marks the sink as closed.
func (s *StubSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Stats returns a snapshot of sink statistics.
func (s *StubSink) Stats() StubSinkStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StubSinkStats{
		RecordsWritten: s.recordsWritten,
		Batches:        s.batches,
		Closed:         s.closed,
	}
}

// StubSinkStats is a snapshot of StubSink statistics.
type StubSinkStats struct {
	RecordsWritten int64
	Batches        int64
	Closed         bool
}

// InstrumentedSink wraps a Sink and records per-call write metrics.
type InstrumentedSink struct {
	inner     Sink
	collector *metrics.Collector
}

// NewInstrumentedSink wraps a sink with metrics instrumentation.
func NewInstrumentedSink(inner Sink, collector *metrics.Collector) *InstrumentedSink {
	return &InstrumentedSink{inner: inner, collector: collector}
}

// WriteRecords delegates to the inner sink and records success or failure.
func (s *InstrumentedSink) WriteRecords(ctx context.Context, records []*types.ArchiveRecord) error {
	err := s.inner.WriteRecords(ctx, records)
	if err != nil {
		s.collector.IncSinkWriteFailure()
	} else {
		s.collector.IncSinkWriteSuccess()
	}
	return err
}

// Close delegates to the inner sink.
func (s *InstrumentedSink) Close() error {
	return s.inner.Close()
}

var (
	_ Sink = (*StubSink)(nil)
	_ Sink = (*InstrumentedSink)(nil)
)
