package policy_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/pithecene-io/preload/policy"
)

func TestNewBufferedPolicy_InvalidConfig(t *testing.T) {
	_, err := policy.NewBufferedPolicy(policy.NewStubSink(), policy.BufferedConfig{})
	if !errors.Is(err, policy.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestBufferedPolicy_FlushesOnRecordLimit(t *testing.T) {
	sink := policy.NewRecordingSink()
	pol, err := policy.NewBufferedPolicy(sink, policy.BufferedConfig{MaxBufferRecords: 3})
	if err != nil {
		t.Fatal(err)
	}

	for i := range 7 {
		if err := pol.Ingest(t.Context(), record(fmt.Sprintf("c%d", i))); err != nil {
			t.Fatalf("Ingest %d: %v", i, err)
		}
	}

	// Two automatic flushes of 3; one record still buffered.
	s := sink.Stats()
	if s.Batches != 2 || s.RecordsWritten != 6 {
		t.Fatalf("sink batches/records = %d/%d, want 2/6", s.Batches, s.RecordsWritten)
	}
	stats := pol.Stats()
	if stats.BufferedRecords != 1 {
		t.Errorf("BufferedRecords = %d, want 1", stats.BufferedRecords)
	}
	if stats.BufferBytes <= 0 {
		t.Errorf("BufferBytes = %d, want > 0", stats.BufferBytes)
	}

	if err := pol.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	s = sink.Stats()
	if s.RecordsWritten != 7 || !s.Closed {
		t.Errorf("after close: records=%d closed=%v, want 7/true", s.RecordsWritten, s.Closed)
	}

	// Order within and across batches follows ingest order.
	recs := sink.Records()
	for i, r := range recs {
		if want := fmt.Sprintf("c%d", i); r.Name != want {
			t.Errorf("record %d = %q, want %q", i, r.Name, want)
		}
	}

	stats = pol.Stats()
	if stats.TotalRecords != 7 || stats.RecordsPersisted != 7 || stats.BufferedRecords != 0 {
		t.Errorf("final stats = %+v", stats)
	}
}

func TestBufferedPolicy_FlushesOnByteLimit(t *testing.T) {
	sink := policy.NewStubSink()
	pol, err := policy.NewBufferedPolicy(sink, policy.BufferedConfig{MaxBufferBytes: 1})
	if err != nil {
		t.Fatal(err)
	}

	if err := pol.Ingest(t.Context(), record("a.B")); err != nil {
		t.Fatal(err)
	}
	if got := sink.Stats().Batches; got != 1 {
		t.Errorf("Batches = %d, want 1 (any record exceeds a 1-byte limit)", got)
	}
}

func TestBufferedPolicy_FailedFlushKeepsBuffer(t *testing.T) {
	sink := policy.NewRecordingSink()
	pol, err := policy.NewBufferedPolicy(sink, policy.BufferedConfig{MaxBufferRecords: 100})
	if err != nil {
		t.Fatal(err)
	}

	for _, n := range []string{"a", "b"} {
		if err := pol.Ingest(t.Context(), record(n)); err != nil {
			t.Fatal(err)
		}
	}

	sinkErr := errors.New("disk full")
	sink.SetError(sinkErr)
	if err := pol.Flush(t.Context()); !errors.Is(err, sinkErr) {
		t.Fatalf("Flush err = %v, want %v", err, sinkErr)
	}
	stats := pol.Stats()
	if stats.BufferedRecords != 2 || stats.Errors != 1 {
		t.Fatalf("after failure: buffered=%d errors=%d, want 2/1", stats.BufferedRecords, stats.Errors)
	}

	sink.SetError(nil)
	if err := pol.Flush(t.Context()); err != nil {
		t.Fatalf("retry Flush: %v", err)
	}
	if got := len(sink.Records()); got != 2 {
		t.Errorf("records after retry = %d, want 2", got)
	}
	if got := pol.Stats().FlushCount; got != 2 {
		t.Errorf("FlushCount = %d, want 2", got)
	}
}

func TestBufferedPolicy_CloseReturnsFlushError(t *testing.T) {
	sink := policy.NewStubSink()
	pol, err := policy.NewBufferedPolicy(sink, policy.DefaultBufferedConfig())
	if err != nil {
		t.Fatal(err)
	}
	if err := pol.Ingest(t.Context(), record("a")); err != nil {
		t.Fatal(err)
	}

	sinkErr := errors.New("bucket gone")
	sink.SetError(sinkErr)
	if err := pol.Close(); !errors.Is(err, sinkErr) {
		t.Fatalf("Close err = %v, want %v", err, sinkErr)
	}
	if !sink.Stats().Closed {
		t.Error("sink must be closed even when the final flush fails")
	}
}

func TestBufferedPolicy_EmptyFlush(t *testing.T) {
	sink := policy.NewStubSink()
	pol, err := policy.NewBufferedPolicy(sink, policy.DefaultBufferedConfig())
	if err != nil {
		t.Fatal(err)
	}
	if err := pol.Flush(t.Context()); err != nil {
		t.Fatal(err)
	}
	if got := sink.Stats().Batches; got != 0 {
		t.Errorf("empty flush wrote %d batches", got)
	}
}

func TestBufferedPolicy_ConcurrentIngest(t *testing.T) {
	sink := policy.NewStubSink()
	pol, err := policy.NewBufferedPolicy(sink, policy.BufferedConfig{MaxBufferRecords: 7})
	if err != nil {
		t.Fatal(err)
	}

	const workers, perWorker = 6, 50
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWorker {
				if err := pol.Ingest(t.Context(), record("x")); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()
	if err := pol.Close(); err != nil {
		t.Fatal(err)
	}

	if got := sink.Stats().RecordsWritten; got != workers*perWorker {
		t.Errorf("RecordsWritten = %d, want %d", got, workers*perWorker)
	}
	stats := pol.Stats()
	if stats.TotalRecords != workers*perWorker || stats.RecordsPersisted != workers*perWorker {
		t.Errorf("stats = %+v", stats)
	}
}
