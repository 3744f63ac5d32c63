package preload

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pithecene-io/preload/manifest"
	"github.com/pithecene-io/preload/partition"
	"github.com/pithecene-io/preload/types"
)

// processSegment handles the entries of one segment in manifest order and
// returns how many were preprocessed. The first fatal error stops the
// segment.
func (p *Preloader) processSegment(ctx context.Context, seg partition.Segment[manifest.Entry]) (int, error) {
	loaded := 0
	for _, e := range seg.Items {
		ok, err := p.processEntry(ctx, e)
		if err != nil {
			return loaded, fmt.Errorf("segment %d: %s (line %d): %w", seg.Index, e.Name, e.Line, err)
		}
		if ok {
			loaded++
		}
	}

	p.logger.Debug("segment done", map[string]any{
		"segment": seg.Index,
		"entries": seg.Len(),
		"loaded":  loaded,
	})
	return loaded, nil
}

// processEntry reports whether the entry was preprocessed. A nil error with
// false means the entry was skipped for a per-entry reason.
func (p *Preloader) processEntry(ctx context.Context, e manifest.Entry) (bool, error) {
	if e.HasOrigin() {
		return p.processWithSource(ctx, e)
	}

	// Any primary failure falls through to the fallback loader; only the
	// fallback's outcome is classified.
	h, err := p.resolver.ResolvePrimary(ctx, e.Name)
	if err != nil {
		p.logger.Debug("primary lookup failed", map[string]any{
			"class": e.Name,
			"error": err.Error(),
		})
		h, err = p.resolver.ResolveFallback(ctx, e.Name)
	}

	switch {
	case err == nil:
	case errors.Is(err, types.ErrClassNotFound):
		p.metrics.IncNotFound()
		p.logger.Warn(cannotFind(e.Name), map[string]any{"line": e.Line})
		return false, nil
	case errors.Is(err, types.ErrIncompatibleClass):
		p.metrics.IncIncompatible()
		p.logger.Debug("skipping incompatible class", map[string]any{
			"class": e.Name,
			"error": err.Error(),
		})
		return false, nil
	default:
		return false, fmt.Errorf("resolve: %w", err)
	}

	if err := p.engine.Process(ctx, h); err != nil {
		return false, fmt.Errorf("process: %w", err)
	}
	p.metrics.IncLoaded(h.Loader == types.LoaderFallback)
	return true, nil
}

func (p *Preloader) processWithSource(ctx context.Context, e manifest.Entry) (bool, error) {
	if p.isProtected(e.Name) {
		p.metrics.IncRejected()
		p.logger.Warn(fmt.Sprintf("Preload Warning: Cannot load %s from source %s: prohibited package", e.Name, e.Origin),
			map[string]any{"line": e.Line})
		return false, nil
	}

	if err := p.engine.ProcessWithSource(ctx, e.Name, e.Origin, len(e.Interfaces)); err != nil {
		return false, fmt.Errorf("process with source %s: %w", e.Origin, err)
	}
	p.metrics.IncFromSource()
	return true, nil
}

func (p *Preloader) isProtected(name string) bool {
	for _, prefix := range p.protected {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
