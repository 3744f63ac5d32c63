// Package types defines core domain types shared across the preloader.
//
//nolint:revive // types is a common Go package naming convention
package types

import (
	"errors"
	"fmt"
)

// RunMeta identifies a single preload run.
type RunMeta struct {
	// RunID is the canonical run identifier. Must be globally unique.
	RunID string
	// Manifest is the path of the class list being preloaded.
	Manifest string
	// Workers is the requested partition count.
	Workers int
}

// Validate checks run identity rules:
//   - run_id must be non-empty
//   - workers >= 1
func (r *RunMeta) Validate() error {
	if r.RunID == "" {
		return errors.New("run_id must be non-empty")
	}
	if r.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", r.Workers)
	}
	return nil
}

// OutcomeStatus represents the final status of a run.
type OutcomeStatus string

const (
	// OutcomeSuccess indicates every segment completed without a fatal error.
	OutcomeSuccess OutcomeStatus = "success"
	// OutcomeError indicates the run was aborted by a fatal error.
	OutcomeError OutcomeStatus = "error"
)
