package optimizer

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/lujing/pkg/errors"
	"github.com/paiban/lujing/pkg/tour"
)

func TestInsertAt(t *testing.T) {
	tests := []struct {
		name string
		i, j int
		want tour.Tour
	}{
		{name: "向后插入", i: 1, j: 3, want: tour.Tour{0, 2, 3, 1, 4}},
		{name: "向前插入", i: 3, j: 1, want: tour.Tour{0, 3, 1, 2, 4}},
		{name: "移到末尾", i: 0, j: 4, want: tour.Tour{1, 2, 3, 4, 0}},
		{name: "移到开头", i: 4, j: 0, want: tour.Tour{4, 0, 1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tour.Identity(5)
			insertAt(got, tt.i, tt.j)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApply_2Opt(t *testing.T) {
	g := NewNeighborhoodGenerator(tour.MustMatrix(fiveCities), Move2Opt, 1, NewRNG(1))
	current := tour.Tour{0, 1, 2, 3, 4}
	move := g.moveAt(current, 1, 3)

	next := g.Apply(current, Neighbor{Move: move, i: 1, j: 3})
	assert.Equal(t, tour.Tour{0, 1, 3, 2, 4}, next)
	assert.Equal(t, tour.Tour{0, 1, 2, 3, 4}, current, "原路线不应被修改")
	assert.Equal(t, NewTwoOptMove(NewPair(1, 2), NewPair(3, 4)), move)
}

func TestNeighborhoodSize(t *testing.T) {
	tests := []struct {
		move MoveType
		n    int
		want int
	}{
		{MoveSwap, 1, 0},
		{MoveSwap, 2, 1},
		{MoveSwap, 5, 10},
		{MoveInvert, 4, 6},
		{Move2Opt, 3, 0},
		{Move2Opt, 4, 2},
		{Move2Opt, 5, 5},
		{Move2Opt, 10, 35},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NeighborhoodSize(tt.move, tt.n), "%s n=%d", tt.move, tt.n)
	}
}

func TestNext_KeepsPermutation(t *testing.T) {
	m := tour.MustMatrix(fiveCities)

	for _, mt := range []MoveType{MoveSwap, MoveInsert, MoveInvert, Move2Opt} {
		t.Run(mt.String(), func(t *testing.T) {
			g := NewNeighborhoodGenerator(m, mt, 1, NewRNG(7))
			current := tour.Identity(5)
			for i := 0; i < 200; i++ {
				next, move, ok := g.Next(current)
				require.True(t, ok)
				require.NoError(t, tour.Validate(next, 5))
				require.NotNil(t, move)
				current = next
			}
		})
	}
}

func TestNext_SwapKeyUsesCities(t *testing.T) {
	m := tour.MustMatrix(fiveCities)
	g := NewNeighborhoodGenerator(m, MoveSwap, 1, NewRNG(3))
	current := tour.Tour{4, 3, 2, 1, 0}

	next, move, ok := g.Next(current)
	require.True(t, ok)

	// 交换后恰有两个位置变化，键为这两个位置上的城市
	var changed []int
	for i := range current {
		if current[i] != next[i] {
			changed = append(changed, current[i])
		}
	}
	require.Len(t, changed, 2)
	assert.Equal(t, SwapMove{Cities: NewPair(changed[0], changed[1])}, move)
}

func TestNext_TooFewCities(t *testing.T) {
	m := tour.MustMatrix([][]float64{{0}})
	g := NewNeighborhoodGenerator(m, MoveSwap, 1, NewRNG(1))

	_, _, ok := g.Next(tour.Tour{0})
	assert.False(t, ok)
}

func TestBatch_SortedAndDistinct(t *testing.T) {
	m := circleMatrix(10)

	for _, mt := range []MoveType{MoveSwap, Move2Opt} {
		t.Run(mt.String(), func(t *testing.T) {
			g := NewNeighborhoodGenerator(m, mt, 20, NewRNG(11))
			batch, err := g.Batch(tour.Identity(10))
			require.NoError(t, err)
			require.Len(t, batch, 20)

			seen := make(map[Move]bool)
			for i, c := range batch {
				assert.False(t, seen[c.Move], "重复的移动 %v", c.Move)
				seen[c.Move] = true

				cost, err := tour.Cost(m, g.Apply(tour.Identity(10), c))
				require.NoError(t, err)
				assert.InDelta(t, cost, c.Cost, 1e-9)
				if i > 0 {
					assert.LessOrEqual(t, batch[i-1].Cost, c.Cost)
				}
			}
		})
	}
}

func TestBatch_DoesNotCopyTourPerCandidate(t *testing.T) {
	m := circleMatrix(1000)
	g := NewNeighborhoodGenerator(m, MoveSwap, 1000, NewRNG(9))
	current := tour.Identity(1000)

	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	batch, err := g.Batch(current)
	runtime.ReadMemStats(&after)

	require.NoError(t, err)
	require.Len(t, batch, 1000)
	// 每个候选各复制一条路线需要约 8MB
	assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(2<<20))

	best := g.Apply(current, batch[0])
	require.NoError(t, tour.Validate(best, 1000))
	cost, err := tour.Cost(m, best)
	require.NoError(t, err)
	assert.InDelta(t, batch[0].Cost, cost, 1e-9)
}

func TestBatch_ClampedToNeighborhood(t *testing.T) {
	m := tour.MustMatrix(fiveCities)

	g := NewNeighborhoodGenerator(m, MoveSwap, 100, NewRNG(5))
	batch, err := g.Batch(tour.Identity(5))
	require.NoError(t, err)
	assert.Len(t, batch, 10)

	g = NewNeighborhoodGenerator(m, Move2Opt, 100, NewRNG(5))
	batch, err = g.Batch(tour.Identity(5))
	require.NoError(t, err)
	assert.Len(t, batch, 5)
}

func TestBatch_UnsupportedMove(t *testing.T) {
	m := tour.MustMatrix(fiveCities)
	g := NewNeighborhoodGenerator(m, MoveInvert, 10, NewRNG(1))

	_, err := g.Batch(tour.Identity(5))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeInvalidConfig))
}
