package position_test

import (
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbhinayAmbati/kanbana/internal/position"
)

func ptr(f float64) *float64 { return &f }

func TestBetween(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		before *float64
		after  *float64
		want   float64
	}{
		{"empty list", nil, nil, position.DefaultGap},
		{"tail", ptr(3000), nil, 4000},
		{"head", nil, ptr(1000), 500},
		{"head below zero", nil, ptr(200), -300},
		{"between", ptr(1000), ptr(2000), 1500},
		{"between fractional", ptr(1000), ptr(1500), 1250},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := position.Between(tt.before, tt.after)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestBetween_PrecisionExhausted(t *testing.T) {
	t.Parallel()

	_, err := position.Between(ptr(1000), ptr(1000+position.MinGap/2))
	require.ErrorIs(t, err, position.ErrPrecisionExhausted)

	_, err = position.Between(ptr(5), ptr(5))
	require.ErrorIs(t, err, position.ErrPrecisionExhausted)
}

func TestAllocate_ClampsIndex(t *testing.T) {
	t.Parallel()

	list := []float64{1000, 2000}

	head, err := position.Allocate(list, -5)
	require.NoError(t, err)
	assert.InDelta(t, 500, head, 1e-9)

	tail, err := position.Allocate(list, 99)
	require.NoError(t, err)
	assert.InDelta(t, 3000, tail, 1e-9)
}

// Inserting "X" at index 0 of a column holding only "A" gives X a key below
// A's, and A keeps its key.
func TestAllocate_HeadOfSingleton(t *testing.T) {
	t.Parallel()

	p, err := position.Allocate([]float64{1000}, 0)
	require.NoError(t, err)
	assert.InDelta(t, 500, p, 1e-9)
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []float64{1000, 2000, 3000}, position.Normalize(3))
	assert.Empty(t, position.Normalize(0))
}

func TestPlace_RepeatedHeadInserts(t *testing.T) {
	t.Parallel()

	// Always insert between the first two elements so the gap halves every
	// time. Eventually precision runs out and Place must renormalize.
	list := []float64{1000, 2000}
	renormalized := false

	for i := 0; i < 200; i++ {
		pl := position.Place(list, 1)
		if pl.Renormalized {
			renormalized = true
			require.Len(t, pl.Siblings, len(list))
			list = append(append(append([]float64{}, pl.Siblings[:1]...), pl.Position), pl.Siblings[1:]...)
		} else {
			list = append(append(append([]float64{}, list[:1]...), pl.Position), list[1:]...)
		}

		require.True(t, sort.Float64sAreSorted(list), "iteration %d", i)
		for j := 1; j < len(list); j++ {
			require.Less(t, list[j-1], list[j], "iteration %d: keys must be distinct", i)
		}
	}

	assert.True(t, renormalized, "expected at least one renormalization")
}

func TestPlace_RenormalizeKeepsRelativeOrder(t *testing.T) {
	t.Parallel()

	list := []float64{1, 1 + 1e-7, 1 + 2e-7}
	pl := position.Place(list, 1)

	require.True(t, pl.Renormalized)
	assert.Equal(t, []float64{1000, 3000, 4000}, pl.Siblings)
	assert.InDelta(t, 2000, pl.Position, 1e-9)
}

func TestPlace_RandomInsertsStayStrictlyOrdered(t *testing.T) {
	t.Parallel()

	r := rand.New(rand.NewPCG(1, 2))

	// ids tracks identity so the final order can be compared with a
	// reference slice built by plain index insertion.
	type item struct {
		id  int
		pos float64
	}
	var list []item
	var reference []int

	for id := 0; id < 500; id++ {
		idx := r.IntN(len(list) + 1)

		positions := make([]float64, len(list))
		for i, it := range list {
			positions[i] = it.pos
		}

		pl := position.Place(positions, idx)
		if pl.Renormalized {
			for i := range list {
				list[i].pos = pl.Siblings[i]
			}
		}
		list = append(list[:idx], append([]item{{id: id, pos: pl.Position}}, list[idx:]...)...)
		reference = append(reference[:idx], append([]int{id}, reference[idx:]...)...)
	}

	sort.SliceStable(list, func(i, j int) bool { return list[i].pos < list[j].pos })
	got := make([]int, len(list))
	for i, it := range list {
		got[i] = it.id
		if i > 0 {
			require.Less(t, list[i-1].pos, it.pos)
		}
	}
	assert.Equal(t, reference, got)
}
