package adapter_test

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/pithecene-io/preload/adapter"
	"github.com/pithecene-io/preload/log"
	"github.com/pithecene-io/preload/types"
)

func TestNewEvent(t *testing.T) {
	at := time.Date(2026, 2, 7, 12, 0, 0, 0, time.UTC)
	ev := adapter.NewEvent(adapter.RunSummary{
		RunID:    "run-1",
		Manifest: "/tmp/classlist",
		Loaded:   40,
		Entries:  42,
		Segments: 4,
		Workers:  4,
		Duration: 1500 * time.Millisecond,
	}, at)

	assert.Equal(t, adapter.EventTypePreloadCompleted, ev.EventType)
	assert.Equal(t, types.OutcomeSuccess, ev.Outcome)
	assert.Equal(t, types.ContractVersion, ev.ContractVersion)
	assert.Equal(t, "2026-02-07T12:00:00Z", ev.Timestamp)
	assert.Equal(t, int64(1500), ev.DurationMs)
	assert.Equal(t, 40, ev.Loaded)
	assert.Empty(t, ev.Error)

	failed := adapter.NewEvent(adapter.RunSummary{RunID: "run-2", Err: errors.New("line 3: malformed")}, at)
	assert.Equal(t, types.OutcomeError, failed.Outcome)
	assert.Equal(t, "line 3: malformed", failed.Error)
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	var calls atomic.Int32
	err := adapter.Retry(t.Context(), "test", adapter.RetryPolicy{Retries: 3, Backoff: time.Millisecond},
		func(context.Context) error {
			if calls.Add(1) < 3 {
				return errors.New("transient")
			}
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetry_Exhausts(t *testing.T) {
	var calls atomic.Int32
	cause := errors.New("down")
	err := adapter.Retry(t.Context(), "test", adapter.RetryPolicy{Retries: 2, Backoff: time.Millisecond},
		func(context.Context) error {
			calls.Add(1)
			return cause
		})
	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "failed after 3 attempts")
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetry_PermanentStopsImmediately(t *testing.T) {
	var calls atomic.Int32
	cause := errors.New("bad request")
	err := adapter.Retry(t.Context(), "test", adapter.RetryPolicy{
		Retries:   5,
		Backoff:   time.Millisecond,
		Permanent: func(err error) bool { return errors.Is(err, cause) },
	}, func(context.Context) error {
		calls.Add(1)
		return cause
	})
	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "non-retriable")
	assert.Equal(t, int32(1), calls.Load())
}

func TestRetry_ContextCanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()

	err := adapter.Retry(ctx, "test", adapter.RetryPolicy{Retries: 1, Backoff: time.Hour},
		func(context.Context) error { return errors.New("down") })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type fakeAdapter struct {
	err    error
	events []*adapter.PreloadCompletedEvent
}

func (f *fakeAdapter) Publish(_ context.Context, ev *adapter.PreloadCompletedEvent) error {
	f.events = append(f.events, ev)
	return f.err
}

func (f *fakeAdapter) Close() error { return nil }

func TestNotify_LogsFailureAsWarning(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewLoggerWithWriter(&types.RunMeta{RunID: "run-1", Workers: 1}, &buf, zapcore.DebugLevel)

	fa := &fakeAdapter{err: errors.New("connection refused")}
	adapter.Notify(t.Context(), fa, adapter.NewEvent(adapter.RunSummary{RunID: "run-1"}, time.Now()), logger)

	require.Len(t, fa.events, 1)
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), "completion event not delivered")
}

func TestNotify_NilAdapter(t *testing.T) {
	adapter.Notify(t.Context(), nil, &adapter.PreloadCompletedEvent{}, nil)
}
