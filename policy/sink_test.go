package policy_test

import (
	"errors"
	"testing"

	"github.com/pithecene-io/preload/metrics"
	"github.com/pithecene-io/preload/policy"
	"github.com/pithecene-io/preload/types"
)

func TestStubSink_DiscardsByDefault(t *testing.T) {
	sink := policy.NewStubSink()

	err := sink.WriteRecords(t.Context(), []*types.ArchiveRecord{record("a"), record("b")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stats := sink.Stats()
	if stats.RecordsWritten != 2 || stats.Batches != 1 {
		t.Errorf("records/batches = %d/%d, want 2/1", stats.RecordsWritten, stats.Batches)
	}
	if len(sink.Records()) != 0 {
		t.Error("discarding sink should not keep records")
	}
}

func TestStubSink_Recording(t *testing.T) {
	sink := policy.NewRecordingSink()
	_ = sink.WriteRecords(t.Context(), []*types.ArchiveRecord{record("a")})
	_ = sink.WriteRecords(t.Context(), []*types.ArchiveRecord{record("b")})

	recs := sink.Records()
	if len(recs) != 2 || recs[0].Name != "a" || recs[1].Name != "b" {
		t.Errorf("unexpected records: %+v", recs)
	}
}

func TestStubSink_ErrorOnWrite(t *testing.T) {
	sink := policy.NewStubSink()
	expectedErr := errors.New("write failed")
	sink.SetError(expectedErr)

	err := sink.WriteRecords(t.Context(), []*types.ArchiveRecord{record("a")})
	if !errors.Is(err, expectedErr) {
		t.Errorf("expected %v, got %v", expectedErr, err)
	}
	if sink.Stats().RecordsWritten != 0 {
		t.Error("failed write should not be counted")
	}
}

func TestInstrumentedSink_RecordsMetrics(t *testing.T) {
	inner := policy.NewStubSink()
	collector := metrics.NewCollector("strict", "none", "run-1")
	sink := policy.NewInstrumentedSink(inner, collector)

	batch := []*types.ArchiveRecord{record("a"), record("b"), record("c")}
	if err := sink.WriteRecords(t.Context(), batch); err != nil {
		t.Fatal(err)
	}
	inner.SetError(errors.New("boom"))
	if err := sink.WriteRecords(t.Context(), batch); err == nil {
		t.Fatal("expected error")
	}

	snap := collector.Snapshot()
	// Per call, not per record.
	if snap.SinkWriteSuccess != 1 {
		t.Errorf("SinkWriteSuccess = %d, want 1", snap.SinkWriteSuccess)
	}
	if snap.SinkWriteFailure != 1 {
		t.Errorf("SinkWriteFailure = %d, want 1", snap.SinkWriteFailure)
	}

	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}
	if !inner.Stats().Closed {
		t.Error("Close should delegate")
	}
}

func TestInstrumentedSink_NilCollector(t *testing.T) {
	sink := policy.NewInstrumentedSink(policy.NewStubSink(), nil)
	if err := sink.WriteRecords(t.Context(), []*types.ArchiveRecord{record("a")}); err != nil {
		t.Fatal(err)
	}
}
