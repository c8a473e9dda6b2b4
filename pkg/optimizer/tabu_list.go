package optimizer

import (
	"math"
	"math/rand"
)

// TenurePolicy 禁忌期限策略
type TenurePolicy struct {
	Type     TenureType
	Constant int
	Min, Max int
}

// next 返回新记录的禁忌期限
func (p TenurePolicy) next(rng *rand.Rand) int {
	if p.Type == TenureRandom {
		return p.Min + rng.Intn(p.Max-p.Min+1)
	}
	return p.Constant
}

// TabuCapacity 按容量方式计算 n 个城市时的禁忌表容量
func TabuCapacity(method TabuLimitMethod, n, custom int) int {
	switch method {
	case LimitSqrtN:
		return int(math.Ceil(math.Sqrt(float64(n))))
	case LimitThreeN:
		return 3 * n
	case LimitNSquared:
		return n * n
	case LimitCustom:
		return custom
	default:
		return n
	}
}

type tabuEntry struct {
	remaining int
	seq       uint64 // 插入序号，期限相同时先淘汰更早的记录
}

// TabuList 带期限的禁忌表
// 只在单个引擎的 goroutine 内使用，不加锁
type TabuList struct {
	entries  map[Pair]*tabuEntry
	capacity int
	tenure   TenurePolicy
	rng      *rand.Rand
	seq      uint64
}

// NewTabuList 创建禁忌表
// 容量只是上限，记录表按实际记录数增长
func NewTabuList(capacity int, tenure TenurePolicy, rng *rand.Rand) *TabuList {
	return &TabuList{
		entries:  map[Pair]*tabuEntry{},
		capacity: capacity,
		tenure:   tenure,
		rng:      rng,
	}
}

// Record 记录禁忌键，已存在时刷新期限
// 超出容量时每次淘汰一个剩余期限最小的记录
func (t *TabuList) Record(key Pair) {
	t.seq++
	tenure := t.tenure.next(t.rng)
	if e, ok := t.entries[key]; ok {
		e.remaining = tenure
		e.seq = t.seq
		return
	}

	t.entries[key] = &tabuEntry{remaining: tenure, seq: t.seq}
	for len(t.entries) > t.capacity {
		t.evictOne()
	}
}

// Contains 检查是否处于禁忌状态
func (t *TabuList) Contains(key Pair) bool {
	_, ok := t.entries[key]
	return ok
}

// Decay 所有记录期限减一，归零的移除
func (t *TabuList) Decay() {
	for key, e := range t.entries {
		e.remaining--
		if e.remaining <= 0 {
			delete(t.entries, key)
		}
	}
}

// Len 当前记录数
func (t *TabuList) Len() int {
	return len(t.entries)
}

// Capacity 容量
func (t *TabuList) Capacity() int {
	return t.capacity
}

func (t *TabuList) evictOne() {
	var victim Pair
	var min *tabuEntry
	for key, e := range t.entries {
		if min == nil || e.remaining < min.remaining ||
			(e.remaining == min.remaining && e.seq < min.seq) {
			victim, min = key, e
		}
	}
	if min != nil {
		delete(t.entries, victim)
	}
}
