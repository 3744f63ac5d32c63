// Package lode persists archive records to a Lode dataset.
//
// Records land in a Hive layout partitioned by day/run_id/kind, encoded as
// JSONL, on the local filesystem or S3.
package lode

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/preload/metrics"
	"github.com/pithecene-io/preload/policy"
	"github.com/pithecene-io/preload/types"
)

// DefaultDataset is the dataset ID used when Config.Dataset is empty.
const DefaultDataset = "preload"

// DeriveDay computes the partition day from run start time.
// Format: YYYY-MM-DD in UTC.
func DeriveDay(startTime time.Time) string {
	return startTime.UTC().Format("2006-01-02")
}

// Config holds Lode sink configuration.
type Config struct {
	// Dataset is the Lode dataset ID (default "preload").
	Dataset string
	// Day is the partition key derived from run start time (YYYY-MM-DD UTC).
	Day string
	// RunID is the partition key for the run identifier.
	RunID string
}

// Validate checks that the partition keys are set.
func (c Config) Validate() error {
	var errs []error
	if c.Day == "" {
		errs = append(errs, errors.New("day is required"))
	}
	if c.RunID == "" {
		errs = append(errs, errors.New("run_id is required"))
	}
	return errors.Join(errs...)
}

func (c Config) dataset() string {
	if c.Dataset == "" {
		return DefaultDataset
	}
	return c.Dataset
}

// Sink is a Lode-backed policy.Sink. Each WriteRecords call produces one
// dataset snapshot.
type Sink struct {
	dataset lode.Dataset
	config  Config

	mu sync.Mutex // serializes dataset writes

	storeFactory lode.StoreFactory
	storeOnce    sync.Once
	store        lode.Store
	storeErr     error
}

// NewSink creates a sink over the given store factory.
// Use lode.NewMemoryFactory() for testing.
func NewSink(cfg Config, factory lode.StoreFactory) (*Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("lode sink: %w", err)
	}
	ds, err := newDataset(cfg.dataset(), factory)
	if err != nil {
		return nil, WrapInitError(err, cfg.dataset())
	}
	return &Sink{
		dataset:      ds,
		config:       cfg,
		storeFactory: factory,
	}, nil
}

// NewFSSink creates a sink with filesystem storage rooted at root.
func NewFSSink(cfg Config, root string) (*Sink, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, WrapInitError(err, root)
	}
	return NewSink(cfg, lode.NewFSFactory(root))
}

// NewS3Sink creates a sink with S3 storage.
// Uses AWS SDK default credential chain (env vars, shared config, IAM role).
func NewS3Sink(ctx context.Context, cfg Config, s3cfg S3Config) (*Sink, error) {
	factory, err := newS3Factory(ctx, s3cfg)
	if err != nil {
		return nil, err
	}
	return NewSink(cfg, factory)
}

// WriteRecords writes a batch of archive records as one snapshot.
// Order within the batch is preserved.
func (s *Sink) WriteRecords(ctx context.Context, records []*types.ArchiveRecord) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([]any, 0, len(records))
	for _, rec := range records {
		rows = append(rows, toRecordMap(rec, s.config))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.dataset.Write(ctx, rows, lode.Metadata{}); err != nil {
		return WrapWriteError(err, s.partitionPath())
	}
	return nil
}

// WriteMetrics writes the run's metrics snapshot to the kind=metrics
// partition.
func (s *Sink) WriteMetrics(ctx context.Context, snap metrics.Snapshot, completedAt time.Time) error {
	row := toMetricsRecordMap(snap, s.config, completedAt)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.dataset.Write(ctx, []any{row}, lode.Metadata{}); err != nil {
		return WrapWriteError(err, s.partitionPath())
	}
	return nil
}

// Close releases sink resources. Lode datasets hold no open handles.
func (s *Sink) Close() error {
	return nil
}

func (s *Sink) partitionPath() string {
	return fmt.Sprintf("%s/%s=%s/%s=%s", s.config.dataset(), KeyDay, s.config.Day, KeyRunID, s.config.RunID)
}

var _ policy.Sink = (*Sink)(nil)
