package preload

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/pithecene-io/preload/manifest"
	"github.com/pithecene-io/preload/partition"
)

// Preprocess splits entries into at most workers segments and processes
// every segment on its own goroutine. It returns the total number of
// classes preprocessed.
//
// Every worker runs to completion even when a sibling fails; the first
// fatal error is returned only after all of them have finished, and the
// count is discarded.
func (p *Preloader) Preprocess(ctx context.Context, entries []manifest.Entry, workers int) (int, error) {
	n, _, err := p.preprocess(ctx, entries, workers)
	return n, err
}

func (p *Preloader) preprocess(ctx context.Context, entries []manifest.Entry, workers int) (int, int, error) {
	segments, err := partition.Split(entries, workers, manifest.EntryName)
	if err != nil {
		return 0, 0, err
	}
	p.metrics.SetSegments(len(segments))

	var loaded atomic.Int64

	// No derived context: a failing segment must not cancel its siblings.
	var g errgroup.Group
	for _, seg := range segments {
		g.Go(func() error {
			n, err := p.processSegment(ctx, seg)
			if err != nil {
				p.metrics.IncWorkerError()
				p.logger.Error("segment failed", map[string]any{
					"segment": seg.Index,
					"start":   seg.Start,
					"end":     seg.End,
					"error":   err.Error(),
				})
				return err
			}
			loaded.Add(int64(n))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, len(segments), err
	}
	return int(loaded.Load()), len(segments), nil
}
