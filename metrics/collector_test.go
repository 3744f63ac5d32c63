package metrics

import (
	"sync"
	"testing"
)

func TestCollector_IncrementMethods(t *testing.T) {
	c := NewCollector("strict", "frame", "run-001")

	c.IncRunStarted()
	c.IncRunCompleted()
	c.IncRunFailed()
	c.IncRunFailed()
	c.IncLoaded(false)
	c.IncLoaded(true)
	c.IncLoaded(false)
	c.IncFromSource()
	c.IncNotFound()
	c.IncNotFound()
	c.IncIncompatible()
	c.IncRejected()
	c.IncWorkerError()
	c.IncSinkWriteSuccess()
	c.IncSinkWriteSuccess()
	c.IncSinkWriteFailure()

	s := c.Snapshot()

	checks := []struct {
		name string
		got  int64
		want int64
	}{
		{"RunsStarted", s.RunsStarted, 1},
		{"RunsCompleted", s.RunsCompleted, 1},
		{"RunsFailed", s.RunsFailed, 2},
		{"Loaded", s.Loaded, 3},
		{"Fallback", s.Fallback, 1},
		{"FromSource", s.FromSource, 1},
		{"NotFound", s.NotFound, 2},
		{"Incompatible", s.Incompatible, 1},
		{"Rejected", s.Rejected, 1},
		{"WorkerErrors", s.WorkerErrors, 1},
		{"SinkWriteSuccess", s.SinkWriteSuccess, 2},
		{"SinkWriteFailure", s.SinkWriteFailure, 1},
	}
	for _, tc := range checks {
		if tc.got != tc.want {
			t.Errorf("%s = %d, want %d", tc.name, tc.got, tc.want)
		}
	}
}

func TestCollector_Dimensions(t *testing.T) {
	c := NewCollector("buffered", "lode", "run-42")
	s := c.Snapshot()

	if s.Policy != "buffered" {
		t.Errorf("Policy = %q, want %q", s.Policy, "buffered")
	}
	if s.StorageBackend != "lode" {
		t.Errorf("StorageBackend = %q, want %q", s.StorageBackend, "lode")
	}
	if s.RunID != "run-42" {
		t.Errorf("RunID = %q, want %q", s.RunID, "run-42")
	}
}

func TestCollector_RecordManifest(t *testing.T) {
	c := NewCollector("strict", "none", "run-001")
	c.RecordManifest(6, 3, 1, 1, 1)
	c.SetSegments(2)

	s := c.Snapshot()
	if s.ManifestLines != 6 || s.ManifestEntries != 3 {
		t.Errorf("lines/entries = %d/%d, want 6/3", s.ManifestLines, s.ManifestEntries)
	}
	if s.ManifestComments != 1 || s.ManifestBlank != 1 || s.Unsupported != 1 {
		t.Errorf("comments/blank/unsupported = %d/%d/%d, want 1/1/1",
			s.ManifestComments, s.ManifestBlank, s.Unsupported)
	}
	if s.Segments != 2 {
		t.Errorf("Segments = %d, want 2", s.Segments)
	}
}

func TestCollector_AbsorbPolicyStats(t *testing.T) {
	c := NewCollector("buffered", "frame", "run-001")
	c.AbsorbPolicyStats(100, 92, 4)

	s := c.Snapshot()
	if s.RecordsReceived != 100 {
		t.Errorf("RecordsReceived = %d, want 100", s.RecordsReceived)
	}
	if s.RecordsPersisted != 92 {
		t.Errorf("RecordsPersisted = %d, want 92", s.RecordsPersisted)
	}
	if s.Flushes != 4 {
		t.Errorf("Flushes = %d, want 4", s.Flushes)
	}
}

func TestCollector_SnapshotImmutability(t *testing.T) {
	c := NewCollector("strict", "frame", "run-001")
	c.IncRunStarted()
	c.IncSinkWriteSuccess()

	s1 := c.Snapshot()

	c.IncRunCompleted()
	c.IncSinkWriteSuccess()
	c.IncSinkWriteSuccess()

	if s1.RunsCompleted != 0 {
		t.Errorf("s1.RunsCompleted = %d, want 0 (snapshot should be frozen)", s1.RunsCompleted)
	}
	if s1.SinkWriteSuccess != 1 {
		t.Errorf("s1.SinkWriteSuccess = %d, want 1 (snapshot should be frozen)", s1.SinkWriteSuccess)
	}

	s2 := c.Snapshot()
	if s2.RunsCompleted != 1 {
		t.Errorf("s2.RunsCompleted = %d, want 1", s2.RunsCompleted)
	}
	if s2.SinkWriteSuccess != 3 {
		t.Errorf("s2.SinkWriteSuccess = %d, want 3", s2.SinkWriteSuccess)
	}
}

func TestCollector_NilReceiverSafety(t *testing.T) {
	var c *Collector

	// None of these should panic
	c.IncRunStarted()
	c.IncRunCompleted()
	c.IncRunFailed()
	c.RecordManifest(1, 1, 0, 0, 0)
	c.SetSegments(1)
	c.IncLoaded(true)
	c.IncFromSource()
	c.IncNotFound()
	c.IncIncompatible()
	c.IncRejected()
	c.IncWorkerError()
	c.IncSinkWriteSuccess()
	c.IncSinkWriteFailure()
	c.AbsorbPolicyStats(10, 8, 2)

	s := c.Snapshot()
	if s != (Snapshot{}) {
		t.Errorf("nil collector snapshot should be zero, got %+v", s)
	}
}

func TestCollector_ConcurrentAccess(t *testing.T) {
	c := NewCollector("strict", "none", "run-001")
	const goroutines = 10
	const iterations = 1000

	var wg sync.WaitGroup
	wg.Add(goroutines)

	for range goroutines {
		go func() {
			defer wg.Done()
			for range iterations {
				c.IncLoaded(false)
				c.IncNotFound()
				c.IncSinkWriteSuccess()
			}
		}()
	}

	wg.Wait()

	s := c.Snapshot()
	want := int64(goroutines * iterations)

	if s.Loaded != want {
		t.Errorf("Loaded = %d, want %d", s.Loaded, want)
	}
	if s.NotFound != want {
		t.Errorf("NotFound = %d, want %d", s.NotFound, want)
	}
	if s.SinkWriteSuccess != want {
		t.Errorf("SinkWriteSuccess = %d, want %d", s.SinkWriteSuccess, want)
	}
}
