package lode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/justapithecus/lode/lode"
)

// ErrInvalidFilename is returned by PutFile for names containing a path
// separator or "..".
var ErrInvalidFilename = errors.New("invalid sidecar filename")

// PutFile writes a sidecar file (for example the run summary) next to the
// run's partitions, bypassing the dataset snapshot machinery.
func (s *Sink) PutFile(ctx context.Context, filename string, data []byte) error {
	if filename == "" || strings.ContainsAny(filename, `/\`) || strings.Contains(filename, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}

	store, err := s.getOrCreateStore()
	if err != nil {
		return WrapInitError(err, s.config.dataset())
	}

	path := s.filePath(filename)
	if err := store.Put(ctx, path, bytes.NewReader(data)); err != nil {
		return WrapWriteError(err, path)
	}
	return nil
}

// getOrCreateStore lazily initializes the Store from the factory.
func (s *Sink) getOrCreateStore() (lode.Store, error) {
	s.storeOnce.Do(func() {
		s.store, s.storeErr = s.storeFactory()
	})
	return s.store, s.storeErr
}

// filePath computes the sidecar path.
// Format: datasets/<dataset>/partitions/day=<d>/run_id=<r>/files/<filename>
func (s *Sink) filePath(filename string) string {
	return fmt.Sprintf("datasets/%s/partitions/%s=%s/%s=%s/files/%s",
		s.config.dataset(),
		KeyDay, s.config.Day,
		KeyRunID, s.config.RunID,
		filename,
	)
}
