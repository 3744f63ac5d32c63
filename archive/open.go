package archive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pithecene-io/preload/frame"
	"github.com/pithecene-io/preload/lode"
	"github.com/pithecene-io/preload/log"
	"github.com/pithecene-io/preload/metrics"
	"github.com/pithecene-io/preload/policy"
)

// Backend names where archive records go.
type Backend string

const (
	// BackendNone discards records.
	BackendNone Backend = "none"
	// BackendFrame writes msgpack frames to a local file.
	BackendFrame Backend = "frame"
	// BackendLode writes to a Lode dataset.
	BackendLode Backend = "lode"
)

// Lode storage kinds.
const (
	LodeStorageFS = "fs"
	LodeStorageS3 = "s3"
)

// ErrUnknownBackend is returned for an unrecognized backend name.
var ErrUnknownBackend = errors.New("unknown archive backend")

// ErrPathRequired is returned when a backend needs a path and none is set.
var ErrPathRequired = errors.New("archive path is required")

// ParseBackend validates a backend name. Empty means none.
func ParseBackend(s string) (Backend, error) {
	switch Backend(s) {
	case "", BackendNone:
		return BackendNone, nil
	case BackendFrame, BackendLode:
		return Backend(s), nil
	}
	return "", fmt.Errorf("%w: %q (want none, frame or lode)", ErrUnknownBackend, s)
}

// LodeOptions selects the Lode store.
type LodeOptions struct {
	// Storage is "fs" (default) or "s3".
	Storage string
	// Dataset overrides the dataset ID.
	Dataset string
	// Region, Endpoint and PathStyle configure S3.
	Region    string
	Endpoint  string
	PathStyle bool
}

// Config describes the archive for one run.
type Config struct {
	Backend Backend
	// Path is the frame file, the Lode root directory, or "bucket/prefix"
	// for S3.
	Path string
	Lode LodeOptions

	Policy        policy.Name
	BufferRecords int
	BufferBytes   int64

	RunID string
	Start time.Time
}

// Open builds the sink and policy described by cfg and returns an engine
// over them. The sink is instrumented with the collector.
func Open(ctx context.Context, cfg Config, logger *log.Logger, collector *metrics.Collector) (*Engine, error) {
	if logger == nil {
		logger = log.Nop()
	}
	if cfg.Start.IsZero() {
		cfg.Start = time.Now()
	}

	sink, finisher, err := openSink(ctx, cfg)
	if err != nil {
		return nil, err
	}

	instrumented := policy.NewInstrumentedSink(sink, collector)
	var pol policy.Policy
	switch cfg.Policy {
	case "", policy.NameStrict:
		pol = policy.NewStrictPolicy(instrumented)
	case policy.NameBuffered:
		bc := policy.DefaultBufferedConfig()
		if cfg.BufferRecords > 0 {
			bc.MaxBufferRecords = cfg.BufferRecords
		}
		if cfg.BufferBytes > 0 {
			bc.MaxBufferBytes = cfg.BufferBytes
		}
		bc.Logger = logger
		pol, err = policy.NewBufferedPolicy(instrumented, bc)
		if err != nil {
			_ = sink.Close()
			return nil, err
		}
	default:
		_ = sink.Close()
		return nil, fmt.Errorf("%w: %q", policy.ErrUnknownPolicy, cfg.Policy)
	}

	logger.Debug("archive opened", map[string]any{
		"backend": string(cfg.Backend),
		"path":    cfg.Path,
		"policy":  string(cfg.Policy),
	})

	opts := []Option{WithLogger(logger), WithMetrics(collector)}
	if finisher != nil {
		opts = append(opts, WithFinisher(finisher))
	}
	return NewEngine(pol, cfg.RunID, opts...), nil
}

func openSink(ctx context.Context, cfg Config) (policy.Sink, RunFinisher, error) {
	switch cfg.Backend {
	case "", BackendNone:
		return policy.NewStubSink(), nil, nil
	case BackendFrame:
		if cfg.Path == "" {
			return nil, nil, fmt.Errorf("frame backend: %w", ErrPathRequired)
		}
		s, err := frame.OpenFileSink(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	case BackendLode:
		if cfg.Path == "" {
			return nil, nil, fmt.Errorf("lode backend: %w", ErrPathRequired)
		}
		lc := lode.Config{
			Dataset: cfg.Lode.Dataset,
			Day:     lode.DeriveDay(cfg.Start),
			RunID:   cfg.RunID,
		}
		var (
			s   *lode.Sink
			err error
		)
		switch cfg.Lode.Storage {
		case "", LodeStorageFS:
			s, err = lode.NewFSSink(lc, cfg.Path)
		case LodeStorageS3:
			bucket, prefix := lode.ParseS3Path(cfg.Path)
			s, err = lode.NewS3Sink(ctx, lc, lode.S3Config{
				Bucket:       bucket,
				Prefix:       prefix,
				Region:       cfg.Lode.Region,
				Endpoint:     cfg.Lode.Endpoint,
				UsePathStyle: cfg.Lode.PathStyle,
			})
		default:
			return nil, nil, fmt.Errorf("%w: lode storage %q (want fs or s3)", ErrUnknownBackend, cfg.Lode.Storage)
		}
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	}
	return nil, nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
}
