package frame

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pithecene-io/preload/iox"
	"github.com/pithecene-io/preload/types"
)

// ErrClosed is returned by writes after Close.
var ErrClosed = errors.New("frame sink closed")

// FileSink appends archive records as frames to a local file.
// Safe for concurrent use; each batch is written and flushed under one lock,
// so frames from different batches never interleave.
type FileSink struct {
	path string

	mu     sync.Mutex
	file   *os.File
	buf    *bufio.Writer
	enc    *Encoder
	frames int64
	closed bool
}

// OpenFileSink creates (or truncates) the archive file at path. Parent
// directories are created as needed.
func OpenFileSink(path string) (*FileSink, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create archive directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create archive file: %w", err)
	}
	buf := bufio.NewWriter(f)
	return &FileSink{
		path: path,
		file: f,
		buf:  buf,
		enc:  NewEncoder(buf),
	}, nil
}

// Path returns the archive file path.
func (s *FileSink) Path() string {
	return s.path
}

// WriteRecords encodes the batch in order and flushes it to the file.
func (s *FileSink) WriteRecords(ctx context.Context, records []*types.ArchiveRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	for _, rec := range records {
		if err := s.enc.Encode(rec); err != nil {
			return fmt.Errorf("write frame: %w", err)
		}
		s.frames++
	}
	if err := s.buf.Flush(); err != nil {
		return fmt.Errorf("flush archive file: %w", err)
	}
	return nil
}

// Frames returns the number of frames written.
func (s *FileSink) Frames() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Close flushes and closes the file. Closing twice is a no-op.
func (s *FileSink) Close() (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	defer iox.CloseInto(&err, s.file)
	if ferr := s.buf.Flush(); ferr != nil {
		return fmt.Errorf("flush archive file: %w", ferr)
	}
	return nil
}

// ReadFile decodes every record in an archive file.
func ReadFile(path string) ([]*types.ArchiveRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer iox.DiscardClose(f)
	return ReadAll(bufio.NewReader(f))
}
