package optimizer

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constantTenure(n int) TenurePolicy {
	return TenurePolicy{Type: TenureConstant, Constant: n}
}

// remaining 返回剩余期限，不存在时为 0
func remaining(tl *TabuList, key Pair) int {
	if e, ok := tl.entries[key]; ok {
		return e.remaining
	}
	return 0
}

func TestTabuList_TenureTiming(t *testing.T) {
	tl := NewTabuList(10, constantTenure(3), NewRNG(1))
	key := NewPair(2, 5)

	tl.Record(key)
	assert.True(t, tl.Contains(key))

	// 期限 3：之后两次衰减仍为禁忌，第三次衰减后解除
	tl.Decay()
	assert.True(t, tl.Contains(key))
	tl.Decay()
	assert.True(t, tl.Contains(key))
	tl.Decay()
	assert.False(t, tl.Contains(key))
	assert.Equal(t, 0, tl.Len())
}

func TestTabuList_OrderIndependentKey(t *testing.T) {
	tl := NewTabuList(10, constantTenure(3), NewRNG(1))
	tl.Record(NewPair(7, 1))
	assert.True(t, tl.Contains(NewPair(1, 7)))
}

func TestTabuList_EvictsLowestTenure(t *testing.T) {
	tl := NewTabuList(2, constantTenure(5), NewRNG(1))
	a, b, c := NewPair(0, 1), NewPair(1, 2), NewPair(2, 3)

	tl.Record(a)
	tl.Decay()
	tl.Record(b)
	tl.Record(c)

	assert.Equal(t, 2, tl.Len())
	assert.False(t, tl.Contains(a), "剩余期限最小的记录应被淘汰")
	assert.True(t, tl.Contains(b))
	assert.True(t, tl.Contains(c))
}

func TestTabuList_EvictsOldestOnTie(t *testing.T) {
	tl := NewTabuList(2, constantTenure(5), NewRNG(1))
	a, b, c := NewPair(0, 1), NewPair(1, 2), NewPair(2, 3)

	tl.Record(a)
	tl.Record(b)
	tl.Record(c)

	assert.Equal(t, 2, tl.Len())
	assert.False(t, tl.Contains(a))
	assert.True(t, tl.Contains(c))
}

func TestTabuList_NeverExceedsCapacity(t *testing.T) {
	tl := NewTabuList(3, TenurePolicy{Type: TenureRandom, Min: 1, Max: 6}, NewRNG(9))
	for i := 0; i < 50; i++ {
		tl.Record(NewPair(i, i+1))
		require.LessOrEqual(t, tl.Len(), tl.Capacity())
		if i%4 == 0 {
			tl.Decay()
		}
	}
}

func TestTabuList_RefreshTenure(t *testing.T) {
	tl := NewTabuList(10, constantTenure(5), NewRNG(1))
	key := NewPair(3, 4)

	tl.Record(key)
	tl.Decay()
	tl.Decay()
	assert.Equal(t, 3, remaining(tl, key))

	tl.Record(key)
	assert.Equal(t, 5, remaining(tl, key))
	assert.Equal(t, 1, tl.Len())
}

func TestTabuList_RandomTenureRange(t *testing.T) {
	tl := NewTabuList(1000, TenurePolicy{Type: TenureRandom, Min: 4, Max: 8}, NewRNG(2))
	for i := 0; i < 200; i++ {
		key := NewPair(i, i+1000)
		tl.Record(key)
		r := remaining(tl, key)
		assert.GreaterOrEqual(t, r, 4)
		assert.LessOrEqual(t, r, 8)
	}
}

func TestTabuList_LargeCapacityAllocatesLazily(t *testing.T) {
	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	tl := NewTabuList(50_000_000, constantTenure(3), NewRNG(1))
	runtime.ReadMemStats(&after)

	assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(1<<20))
	assert.Equal(t, 50_000_000, tl.Capacity())

	tl.Record(NewPair(0, 1))
	assert.True(t, tl.Contains(NewPair(0, 1)))
	assert.Equal(t, 1, tl.Len())
}

func TestTabuCapacity(t *testing.T) {
	tests := []struct {
		name   string
		method TabuLimitMethod
		n      int
		want   int
	}{
		{name: "N", method: LimitN, n: 10, want: 10},
		{name: "根号N向上取整", method: LimitSqrtN, n: 10, want: 4},
		{name: "根号N整数", method: LimitSqrtN, n: 9, want: 3},
		{name: "3N", method: LimitThreeN, n: 10, want: 30},
		{name: "N平方", method: LimitNSquared, n: 10, want: 100},
		{name: "自定义", method: LimitCustom, n: 10, want: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TabuCapacity(tt.method, tt.n, 7))
		})
	}
}
