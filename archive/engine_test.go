package archive_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pithecene-io/preload/archive"
	"github.com/pithecene-io/preload/metrics"
	"github.com/pithecene-io/preload/policy"
	"github.com/pithecene-io/preload/types"
)

var fixedNow = time.Date(2026, 2, 3, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func TestEngine_Process(t *testing.T) {
	sink := policy.NewRecordingSink()
	eng := archive.NewEngine(policy.NewStrictPolicy(sink), "run-1", archive.WithClock(clock))

	data := []byte{0xca, 0xfe, 0xba, 0xbe, 1, 2, 3}
	h := &types.ClassHandle{
		Name:           "a.b.C$D",
		Location:       "/lib/app.jar!a/b/C$D.class",
		Loader:         types.LoaderPrimary,
		Data:           data,
		MajorVersion:   61,
		SuperName:      "a.b.Base",
		InterfaceCount: 2,
	}
	require.NoError(t, eng.Process(t.Context(), h))

	recs := sink.Records()
	require.Len(t, recs, 1)
	rec := recs[0]

	sum := sha256.Sum256(data)
	assert.Equal(t, types.RecordKindLoaded, rec.Kind)
	assert.Equal(t, "run-1", rec.RunID)
	assert.Equal(t, "a.b.C$D", rec.Name)
	assert.Equal(t, types.LoaderPrimary, rec.Loader)
	assert.Equal(t, h.Location, rec.Location)
	assert.Equal(t, "a.b.Base", rec.SuperName)
	assert.Equal(t, 2, rec.InterfaceCount)
	assert.Equal(t, uint16(61), rec.MajorVersion)
	assert.Equal(t, int64(len(data)), rec.SizeBytes)
	assert.Equal(t, hex.EncodeToString(sum[:]), rec.Digest)
	assert.Equal(t, "2026-02-03T12:00:00Z", rec.Timestamp)
	assert.Equal(t, types.ContractVersion, rec.ContractVersion)
}

func TestEngine_ProcessNilHandle(t *testing.T) {
	eng := archive.NewEngine(policy.NewStrictPolicy(policy.NewStubSink()), "run-1")
	assert.ErrorIs(t, eng.Process(t.Context(), nil), archive.ErrNilHandle)
}

func TestEngine_ProcessWithSource(t *testing.T) {
	sink := policy.NewRecordingSink()
	eng := archive.NewEngine(policy.NewStrictPolicy(sink), "run-1", archive.WithClock(clock))

	require.NoError(t, eng.ProcessWithSource(t.Context(), "gen.Proxy", "file:/tmp/gen.jar", 3))

	recs := sink.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, types.RecordKindSource, recs[0].Kind)
	assert.Equal(t, "gen.Proxy", recs[0].Name)
	assert.Equal(t, "file:/tmp/gen.jar", recs[0].Origin)
	assert.Equal(t, 3, recs[0].InterfaceCount)
	assert.Empty(t, recs[0].Loader)
	assert.Empty(t, recs[0].Digest)
}

func TestEngine_SinkErrorIsReturned(t *testing.T) {
	sink := policy.NewStubSink()
	sinkErr := errors.New("disk full")
	sink.SetError(sinkErr)
	eng := archive.NewEngine(policy.NewStrictPolicy(sink), "run-1")

	err := eng.ProcessWithSource(t.Context(), "x.Y", "file:/x", 0)
	require.ErrorIs(t, err, sinkErr)
	assert.Contains(t, err.Error(), "x.Y")
}

func TestEngine_CloseFlushesAndAbsorbsStats(t *testing.T) {
	sink := policy.NewRecordingSink()
	pol, err := policy.NewBufferedPolicy(sink, policy.BufferedConfig{MaxBufferRecords: 10})
	require.NoError(t, err)

	collector := metrics.NewCollector("buffered", "none", "run-1")
	eng := archive.NewEngine(pol, "run-1", archive.WithMetrics(collector))

	for _, n := range []string{"a", "b", "c"} {
		require.NoError(t, eng.ProcessWithSource(t.Context(), n, "file:/x", 0))
	}
	assert.Empty(t, sink.Records(), "buffered records are not written before close")

	require.NoError(t, eng.Close())
	require.NoError(t, eng.Close(), "second close returns the first result")

	assert.Len(t, sink.Records(), 3)
	snap := collector.Snapshot()
	assert.Equal(t, int64(3), snap.RecordsReceived)
	assert.Equal(t, int64(3), snap.RecordsPersisted)
	assert.Equal(t, int64(1), snap.Flushes)
}

func TestEngine_CloseReturnsFlushError(t *testing.T) {
	sink := policy.NewStubSink()
	pol, err := policy.NewBufferedPolicy(sink, policy.DefaultBufferedConfig())
	require.NoError(t, err)
	eng := archive.NewEngine(pol, "run-1")

	require.NoError(t, eng.ProcessWithSource(t.Context(), "a", "file:/x", 0))
	sinkErr := errors.New("bucket gone")
	sink.SetError(sinkErr)

	assert.ErrorIs(t, eng.Close(), sinkErr)
	assert.ErrorIs(t, eng.Close(), sinkErr)
	assert.Equal(t, int64(1), eng.Stats().BufferedRecords)
}

type fakeFinisher struct {
	snap    metrics.Snapshot
	at      time.Time
	files   map[string][]byte
	metrErr error
}

func (f *fakeFinisher) WriteMetrics(_ context.Context, snap metrics.Snapshot, at time.Time) error {
	f.snap, f.at = snap, at
	return f.metrErr
}

func (f *fakeFinisher) PutFile(_ context.Context, name string, data []byte) error {
	if f.files == nil {
		f.files = map[string][]byte{}
	}
	f.files[name] = data
	return nil
}

func TestEngine_Finish(t *testing.T) {
	fin := &fakeFinisher{}
	eng := archive.NewEngine(policy.NewStrictPolicy(policy.NewStubSink()), "run-1",
		archive.WithClock(clock), archive.WithFinisher(fin))

	snap := metrics.Snapshot{RunID: "run-1", Loaded: 5}
	require.NoError(t, eng.Finish(t.Context(), snap, []byte(`{"loaded":5}`)))

	assert.Equal(t, int64(5), fin.snap.Loaded)
	assert.Equal(t, fixedNow, fin.at)
	assert.Equal(t, `{"loaded":5}`, string(fin.files["summary.json"]))

	fin.metrErr = errors.New("nope")
	assert.ErrorIs(t, eng.Finish(t.Context(), snap, nil), fin.metrErr)
}

func TestEngine_FinishWithoutFinisher(t *testing.T) {
	eng := archive.NewEngine(policy.NewStrictPolicy(policy.NewStubSink()), "run-1")
	assert.NoError(t, eng.Finish(t.Context(), metrics.Snapshot{}, []byte("x")))
}
