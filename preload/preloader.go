// Package preload resolves and preprocesses every class named in a class
// list, in parallel.
//
// A run parses the whole manifest up front, splits the entries into
// contiguous segments (see package partition), and processes each segment
// on its own goroutine. Per-entry failures (class not found, protected
// namespace) are logged as warnings and skipped. Structural failures
// (malformed manifest, resolver or engine I/O errors) fail the run, but only
// after every segment worker has returned.
package preload

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/pithecene-io/preload/log"
	"github.com/pithecene-io/preload/manifest"
	"github.com/pithecene-io/preload/metrics"
	"github.com/pithecene-io/preload/types"
)

// ErrInvalidWorkers is returned when the worker count is below 1.
var ErrInvalidWorkers = errors.New("worker count must be >= 1")

// DefaultProtectedPrefixes are the namespaces that may never be loaded
// from an explicit source location.
var DefaultProtectedPrefixes = []string{"java."}

// Resolver looks classes up by dotted binary name. Both methods return an
// error wrapping types.ErrClassNotFound for an ordinary miss, and one
// wrapping types.ErrIncompatibleClass for a class file that was found but
// cannot be used. Implementations must be safe for concurrent use.
type Resolver interface {
	ResolvePrimary(ctx context.Context, name string) (*types.ClassHandle, error)
	ResolveFallback(ctx context.Context, name string) (*types.ClassHandle, error)
}

// Engine preprocesses resolved classes. Implementations must be safe for
// concurrent use.
type Engine interface {
	// Process handles a class resolved through the Resolver.
	Process(ctx context.Context, handle *types.ClassHandle) error
	// ProcessWithSource handles a class declared with an explicit origin.
	ProcessWithSource(ctx context.Context, name, origin string, interfaceCount int) error
}

// Result summarizes a completed run.
type Result struct {
	RunID    string           `json:"run_id" yaml:"run_id"`
	Manifest string           `json:"manifest" yaml:"manifest"`
	Loaded   int              `json:"loaded" yaml:"loaded"`
	Entries  int              `json:"entries" yaml:"entries"`
	Segments int              `json:"segments" yaml:"segments"`
	Workers  int              `json:"workers" yaml:"workers"`
	Duration time.Duration    `json:"duration" yaml:"duration"`
	Metrics  metrics.Snapshot `json:"metrics" yaml:"metrics"`
}

// Preloader runs class lists against a Resolver and an Engine.
// A Preloader may be reused for several runs; runs do not share state
// besides the collaborators, the logger and the metrics collector.
type Preloader struct {
	resolver  Resolver
	engine    Engine
	logger    *log.Logger
	metrics   *metrics.Collector
	protected []string
	now       func() time.Time
	runID     string
}

// Option configures a Preloader.
type Option func(*Preloader)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *log.Logger) Option {
	return func(p *Preloader) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMetrics sets the metrics collector. A nil collector is valid.
func WithMetrics(c *metrics.Collector) Option {
	return func(p *Preloader) { p.metrics = c }
}

// WithProtectedPrefixes replaces the protected namespace prefixes.
func WithProtectedPrefixes(prefixes ...string) Option {
	return func(p *Preloader) { p.protected = slices.Clone(prefixes) }
}

// WithClock overrides the time source used for run durations.
func WithClock(now func() time.Time) Option {
	return func(p *Preloader) {
		if now != nil {
			p.now = now
		}
	}
}

// WithRunID fixes the run identifier. The default is a random UUID per run.
func WithRunID(id string) Option {
	return func(p *Preloader) { p.runID = id }
}

// New creates a Preloader.
func New(resolver Resolver, engine Engine, opts ...Option) *Preloader {
	p := &Preloader{
		resolver:  resolver,
		engine:    engine,
		logger:    log.Nop(),
		protected: slices.Clone(DefaultProtectedPrefixes),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Preload runs the manifest at path and returns the number of classes
// successfully preprocessed.
func (p *Preloader) Preload(ctx context.Context, path string, workers int) (int, error) {
	res, err := p.Run(ctx, path, workers)
	if err != nil {
		return 0, err
	}
	return res.Loaded, nil
}

// Run parses the manifest at path, preprocesses it with the given number
// of workers, and returns a summary.
func (p *Preloader) Run(ctx context.Context, path string, workers int) (*Result, error) {
	if workers < 1 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidWorkers, workers)
	}

	runID := p.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	start := p.now()
	p.metrics.IncRunStarted()

	m, err := manifest.Load(path, p.warnUnsupported)
	if err != nil {
		p.metrics.IncRunFailed()
		return nil, fmt.Errorf("load manifest: %w", err)
	}
	p.metrics.RecordManifest(m.Counts.Lines, m.Counts.Entries, m.Counts.Comments, m.Counts.Blank, m.Counts.Arrays)

	loaded, segments, err := p.preprocess(ctx, m.Entries, workers)
	if err != nil {
		p.metrics.IncRunFailed()
		p.logger.Error("preload failed", map[string]any{
			"error":    err.Error(),
			"segments": segments,
		})
		return nil, err
	}
	p.metrics.IncRunCompleted()

	res := &Result{
		RunID:    runID,
		Manifest: path,
		Loaded:   loaded,
		Entries:  len(m.Entries),
		Segments: segments,
		Workers:  workers,
		Duration: p.now().Sub(start),
		Metrics:  p.metrics.Snapshot(),
	}

	p.logger.Info("preload complete", map[string]any{
		"loaded":      res.Loaded,
		"entries":     res.Entries,
		"segments":    res.Segments,
		"duration_ms": res.Duration.Milliseconds(),
	})
	return res, nil
}

// warnUnsupported reports an array-shaped manifest line.
func (p *Preloader) warnUnsupported(line int, text string) {
	p.logger.Warn(cannotFind(text), map[string]any{
		"line":   line,
		"reason": "unsupported entry",
	})
}

func cannotFind(name string) string {
	return "Preload Warning: Cannot find " + name
}
