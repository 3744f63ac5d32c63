// Package adapter publishes run completion notifications to downstream
// systems (see subpackages webhook and redis).
package adapter

import (
	"context"
	"time"

	"github.com/pithecene-io/preload/log"
	"github.com/pithecene-io/preload/types"
)

// EventTypePreloadCompleted is the event_type of every completion event.
const EventTypePreloadCompleted = "preload_completed"

// PreloadCompletedEvent is the payload published when a run finishes.
type PreloadCompletedEvent struct {
	ContractVersion string              `json:"contract_version"`
	EventType       string              `json:"event_type"` // always "preload_completed"
	RunID           string              `json:"run_id"`
	Manifest        string              `json:"manifest"`
	Outcome         types.OutcomeStatus `json:"outcome"`
	Loaded          int                 `json:"loaded"`
	Entries         int                 `json:"entries"`
	Segments        int                 `json:"segments"`
	Workers         int                 `json:"workers"`
	Error           string              `json:"error,omitempty"`
	Timestamp       string              `json:"timestamp"` // RFC 3339
	DurationMs      int64               `json:"duration_ms"`
}

// RunSummary is what the caller knows about a finished run.
// Counts are zero for runs that failed before completing.
type RunSummary struct {
	RunID    string
	Manifest string
	Loaded   int
	Entries  int
	Segments int
	Workers  int
	Err      error
	Duration time.Duration
}

// NewEvent builds the completion event for a run.
func NewEvent(s RunSummary, finishedAt time.Time) *PreloadCompletedEvent {
	ev := &PreloadCompletedEvent{
		ContractVersion: types.ContractVersion,
		EventType:       EventTypePreloadCompleted,
		RunID:           s.RunID,
		Manifest:        s.Manifest,
		Outcome:         types.OutcomeSuccess,
		Loaded:          s.Loaded,
		Entries:         s.Entries,
		Segments:        s.Segments,
		Workers:         s.Workers,
		Timestamp:       finishedAt.UTC().Format(time.RFC3339),
		DurationMs:      s.Duration.Milliseconds(),
	}
	if s.Err != nil {
		ev.Outcome = types.OutcomeError
		ev.Error = s.Err.Error()
	}
	return ev
}

// Adapter publishes completion events to a downstream system.
type Adapter interface {
	// Publish sends a completion event. Must respect context cancellation
	// and deadlines.
	Publish(ctx context.Context, event *PreloadCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}

// Notify publishes the event and logs the outcome. Publish failures never
// change the run's result, so Notify returns nothing.
func Notify(ctx context.Context, a Adapter, event *PreloadCompletedEvent, logger *log.Logger) {
	if a == nil {
		return
	}
	if logger == nil {
		logger = log.Nop()
	}
	if err := a.Publish(ctx, event); err != nil {
		logger.Warn("completion event not delivered", map[string]any{
			"run_id": event.RunID,
			"error":  err.Error(),
		})
		return
	}
	logger.Debug("completion event delivered", map[string]any{
		"run_id":  event.RunID,
		"outcome": event.Outcome,
	})
}
