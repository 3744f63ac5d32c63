package policy

import (
	"context"
	"errors"
	"sync"

	"github.com/pithecene-io/preload/log"
	"github.com/pithecene-io/preload/types"
)

// BufferedConfig configures a BufferedPolicy.
type BufferedConfig struct {
	// MaxBufferRecords flushes once this many records are buffered.
	// Zero means no record limit (use MaxBufferBytes instead).
	MaxBufferRecords int

	// MaxBufferBytes flushes once the estimated buffer size reaches it.
	// Zero means no byte limit (use MaxBufferRecords instead).
	// At least one limit must be set.
	MaxBufferBytes int64

	// Logger is an optional logger for flush failures.
	Logger *log.Logger
}

// DefaultBufferedConfig returns sensible defaults for buffered policy.
func DefaultBufferedConfig() BufferedConfig {
	return BufferedConfig{
		MaxBufferRecords: 1000,
		MaxBufferBytes:   4 * 1024 * 1024, // 4 MB
	}
}

// ErrInvalidConfig is returned when BufferedConfig has no limit.
var ErrInvalidConfig = errors.New("invalid config: at least one of MaxBufferRecords or MaxBufferBytes must be set")

// BufferedPolicy batches records and writes them in one sink call.
//
// A flush happens when a limit is reached, on Flush, and on Close. A failed
// flush keeps the buffer intact (at-least-once) and returns the error; the
// next flush retries the same records.
type BufferedPolicy struct {
	sink   Sink
	config BufferedConfig
	logger *log.Logger

	mu          sync.Mutex // guards buffer state; held across sink writes
	buffer      []*types.ArchiveRecord
	bufferBytes int64
	stats       statsRecorder
}

// NewBufferedPolicy creates a new buffered policy.
func NewBufferedPolicy(sink Sink, config BufferedConfig) (*BufferedPolicy, error) {
	if config.MaxBufferRecords <= 0 && config.MaxBufferBytes <= 0 {
		return nil, ErrInvalidConfig
	}
	logger := config.Logger
	if logger == nil {
		logger = log.Nop()
	}
	return &BufferedPolicy{
		sink:   sink,
		config: config,
		logger: logger,
		buffer: make([]*types.ArchiveRecord, 0, min(max(config.MaxBufferRecords, 16), 1024)),
	}, nil
}

// Ingest buffers the record and flushes when a limit is reached.
func (p *BufferedPolicy) Ingest(ctx context.Context, rec *types.ArchiveRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.incTotalLocked()
	p.buffer = append(p.buffer, rec)
	p.bufferBytes += estimateRecordSize(rec)

	if p.full() {
		return p.flushLocked(ctx, "limit")
	}
	return nil
}

// Flush writes all buffered records to the sink.
func (p *BufferedPolicy) Flush(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.flushLocked(ctx, "explicit")
}

// flushLocked writes the buffer. Caller must hold mu.
func (p *BufferedPolicy) flushLocked(ctx context.Context, trigger string) error {
	p.stats.incFlushLocked()
	if len(p.buffer) == 0 {
		return nil
	}

	if err := p.sink.WriteRecords(ctx, p.buffer); err != nil {
		p.stats.incErrorsLocked()
		p.logger.Error("flush failed", map[string]any{
			"trigger": trigger,
			"records": len(p.buffer),
			"error":   err.Error(),
			"policy":  string(NameBuffered),
		})
		// Keep the buffer intact: prefer duplicates over loss.
		return err
	}

	p.stats.incPersistedLocked(int64(len(p.buffer)))
	p.buffer = make([]*types.ArchiveRecord, 0, cap(p.buffer))
	p.bufferBytes = 0
	return nil
}

// full reports whether a limit is reached. Caller must hold mu.
func (p *BufferedPolicy) full() bool {
	if p.config.MaxBufferRecords > 0 && len(p.buffer) >= p.config.MaxBufferRecords {
		return true
	}
	return p.config.MaxBufferBytes > 0 && p.bufferBytes >= p.config.MaxBufferBytes
}

// Close flushes remaining records and closes the sink. Both errors are
// returned.
func (p *BufferedPolicy) Close() error {
	flushErr := p.Flush(context.Background())
	return errors.Join(flushErr, p.sink.Close())
}

// Stats returns policy statistics, captured under the buffer lock.
func (p *BufferedPolicy) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats.snapshotLocked(int64(len(p.buffer)), p.bufferBytes)
}

// estimateRecordSize returns a rough encoded size for buffer accounting.
func estimateRecordSize(rec *types.ArchiveRecord) int64 {
	// Fixed fields plus the variable-length strings.
	size := int64(96)
	size += int64(len(rec.RunID) + len(rec.Name) + len(rec.Location) + len(rec.Origin) + len(rec.SuperName) + len(rec.Digest))
	return size
}

var _ Policy = (*BufferedPolicy)(nil)
