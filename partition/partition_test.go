package partition

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func concat[T any](segs []Segment[T]) []T {
	var out []T
	for _, s := range segs {
		out = append(out, s.Items...)
	}
	return out
}

func TestSplit_InvalidCount(t *testing.T) {
	for _, n := range []int{0, -1} {
		_, err := SplitNames([]string{"a"}, n)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidCount)
	}
}

func TestSplit_Empty(t *testing.T) {
	segs, err := SplitNames(nil, 4)
	require.NoError(t, err)
	assert.Empty(t, segs)
}

func TestSplit_NestedScenario(t *testing.T) {
	segs, err := SplitNames([]string{"a.B", "a.B$Inner", "a.C"}, 2)
	require.NoError(t, err)
	require.Len(t, segs, 2)

	assert.Equal(t, []string{"a.B", "a.B$Inner"}, segs[0].Items)
	assert.Equal(t, []string{"a.C"}, segs[1].Items)
	assert.Equal(t, 0, segs[0].Start)
	assert.Equal(t, 2, segs[0].End)
	assert.Equal(t, 2, segs[1].Start)
	assert.Equal(t, 3, segs[1].End)
}

func TestSplit_EvenSplit(t *testing.T) {
	names := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	segs, err := SplitNames(names, 4)
	require.NoError(t, err)
	require.Len(t, segs, 4)
	for i, s := range segs {
		assert.Equal(t, i, s.Index)
		assert.Equal(t, 2, s.Len())
	}
}

func TestSplit_RemainderSpreads(t *testing.T) {
	// 10 over 4: 2, 2, 3, 3 (recomputed targets, not 2,2,2,4)
	names := make([]string, 10)
	for i := range names {
		names[i] = fmt.Sprintf("c%02d", i)
	}
	segs, err := SplitNames(names, 4)
	require.NoError(t, err)

	var sizes []int
	for _, s := range segs {
		sizes = append(sizes, s.Len())
	}
	assert.Equal(t, []int{2, 2, 3, 3}, sizes)
}

func TestSplit_MoreWorkersThanItems(t *testing.T) {
	segs, err := SplitNames([]string{"a", "b", "c"}, 8)
	require.NoError(t, err)
	assert.Len(t, segs, 3)
	assert.Equal(t, []string{"a", "b", "c"}, concat(segs))
}

func TestSplit_AllNestedCollapsesIntoOneSegment(t *testing.T) {
	names := []string{"a.A", "a.A$1", "a.A$2", "a.A$3", "a.A$4"}
	segs, err := SplitNames(names, 3)
	require.NoError(t, err)
	require.Len(t, segs, 1)
	assert.Equal(t, names, segs[0].Items)
}

func TestSplit_SortsCopy(t *testing.T) {
	input := []string{"c", "a", "b$x", "b"}
	original := slices.Clone(input)

	segs, err := SplitNames(input, 2)
	require.NoError(t, err)

	assert.Equal(t, original, input, "caller slice must not be reordered")
	assert.Equal(t, []string{"a", "b", "b$x", "c"}, concat(segs))
}

func TestSplit_GenericItems(t *testing.T) {
	type item struct {
		name string
		id   int
	}
	items := []item{{"z", 1}, {"m", 2}, {"m$1", 3}, {"a", 4}}

	segs, err := Split(items, 2, func(it item) string { return it.name })
	require.NoError(t, err)
	require.Len(t, segs, 2)
	assert.Equal(t, []item{{"a", 4}, {"m", 2}, {"m$1", 3}}, segs[0].Items)
	assert.Equal(t, []item{{"z", 1}}, segs[1].Items)
}

func TestSplit_SegmentsDoNotAlias(t *testing.T) {
	segs, err := SplitNames([]string{"a", "b", "c", "d"}, 2)
	require.NoError(t, err)
	require.Len(t, segs, 2)

	// Appending to one segment must not clobber the next.
	_ = append(segs[0].Items, "zzz")
	assert.Equal(t, []string{"c", "d"}, segs[1].Items)
}

// randomClassList builds a sorted list where nested names cluster after
// their enclosing class, like a real class list.
func randomClassList(r *rand.Rand, outer int) []string {
	var names []string
	for i := range outer {
		base := fmt.Sprintf("p%d.C%03d", r.IntN(3), i)
		names = append(names, base)
		for j := range r.IntN(4) {
			names = append(names, fmt.Sprintf("%s$%d", base, j))
		}
	}
	slices.Sort(names)
	return names
}

func TestSplit_Properties(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))

	for round := range 200 {
		names := randomClassList(r, r.IntN(40))
		count := 1 + r.IntN(12)

		segs, err := SplitNames(names, count)
		require.NoError(t, err)

		// Coverage: concatenation reproduces the input exactly.
		assert.Equal(t, names, concat(segs), "round %d", round)
		assert.LessOrEqual(t, len(segs), count)

		// Contiguity and alignment.
		prevEnd := 0
		for i, s := range segs {
			assert.Equal(t, prevEnd, s.Start, "round %d segment %d", round, i)
			assert.Positive(t, s.Len())
			if i > 0 {
				assert.False(t, strings.Contains(s.Items[0], "$"),
					"round %d: segment %d starts on nested name %q", round, i, s.Items[0])
			}
			prevEnd = s.End
		}
		assert.Equal(t, len(names), prevEnd)
	}
}
