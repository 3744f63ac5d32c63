// Package partition splits a sorted class list into contiguous segments,
// one per worker.
//
// Segment boundaries never separate a nested class ("Outer$Inner") from the
// entries before it. In sorted order nested classes follow their enclosing
// class, so a boundary only lands in front of a non-nested name.
package partition

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrInvalidCount is returned when the requested segment count is below 1.
var ErrInvalidCount = errors.New("partition count must be >= 1")

const nestedSeparator = "$"

// Segment is a contiguous run of the sorted input. Items aliases the
// sorted copy owned by the split; segments never overlap.
type Segment[T any] struct {
	// Index is the segment's position in the split, starting at 0.
	Index int
	// Start and End are the half-open bounds into the sorted input.
	Start int
	End   int
	// Items holds the segment's elements in sorted order.
	Items []T
}

// Len returns the number of items in the segment.
func (s Segment[T]) Len() int { return s.End - s.Start }

// Split sorts a copy of items by name and cuts it into at most count
// segments. Fewer segments are returned when the input runs out first.
// The caller's slice is never reordered.
func Split[T any](items []T, count int, name func(T) string) ([]Segment[T], error) {
	if count < 1 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidCount, count)
	}

	sorted := slices.Clone(items)
	byName := func(a, b T) int { return strings.Compare(name(a), name(b)) }
	if !slices.IsSortedFunc(sorted, byName) {
		slices.SortStableFunc(sorted, byName)
	}

	total := len(sorted)
	segments := make([]Segment[T], 0, min(count, total))

	next := 0
	remainingThreads := count
	for next < total && remainingThreads > 0 {
		start := next
		// Recomputed each round so rounding error does not pile up
		// in the last segment.
		target := max(1, (total-next)/remainingThreads)
		next += target

		for next < total && strings.Contains(name(sorted[next]), nestedSeparator) {
			next++
		}

		segments = append(segments, Segment[T]{
			Index: len(segments),
			Start: start,
			End:   next,
			Items: sorted[start:next:next],
		})
		remainingThreads--
	}

	return segments, nil
}

// SplitNames is Split for plain names.
func SplitNames(names []string, count int) ([]Segment[string], error) {
	return Split(names, count, func(s string) string { return s })
}
