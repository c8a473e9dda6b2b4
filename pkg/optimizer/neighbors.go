package optimizer

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/paiban/lujing/pkg/errors"
	"github.com/paiban/lujing/pkg/tour"
)

// Neighbor 候选移动及其代价
// 只记录移动位置，路线在被采纳时由 Apply 生成
type Neighbor struct {
	Cost float64
	Move Move
	i, j int
}

// NeighborhoodGenerator 邻域生成器
// 随机数生成器由所属引擎传入，不在多个引擎间共享
type NeighborhoodGenerator struct {
	matrix       *tour.Matrix
	moveType     MoveType
	maxNeighbors int
	rng          *rand.Rand
}

// NewNeighborhoodGenerator 创建邻域生成器，maxNeighbors 只对 Batch 生效
func NewNeighborhoodGenerator(m *tour.Matrix, moveType MoveType, maxNeighbors int, rng *rand.Rand) *NeighborhoodGenerator {
	return &NeighborhoodGenerator{
		matrix:       m,
		moveType:     moveType,
		maxNeighbors: maxNeighbors,
		rng:          rng,
	}
}

// MoveType 返回移动类型
func (g *NeighborhoodGenerator) MoveType() MoveType {
	return g.moveType
}

// NeighborhoodSize 返回 n 个城市时互不相同的移动数量
func NeighborhoodSize(moveType MoveType, n int) int {
	switch moveType {
	case Move2Opt:
		// i<j, j-i>=2，去掉等价于原路线的 (0, n-1)
		if n < 4 {
			return 0
		}
		return (n-1)*(n-2)/2 - 1
	default:
		if n < 2 {
			return 0
		}
		return n * (n - 1) / 2
	}
}

// Next 生成一个随机邻域解（模拟退火每步调用一次）
// 城市数不足以构成移动时 ok 为 false
func (g *NeighborhoodGenerator) Next(current tour.Tour) (next tour.Tour, move Move, ok bool) {
	if NeighborhoodSize(g.moveType, len(current)) == 0 {
		return nil, nil, false
	}

	i, j := g.positions(len(current))
	next = current.Clone()
	g.applyAt(next, i, j)
	return next, g.moveAt(current, i, j), true
}

// Batch 为禁忌搜索采样至多 maxNeighbors 个互不相同的候选，按代价升序返回
// 同代价候选保持生成顺序；所有候选共用一条临时路线计算代价
func (g *NeighborhoodGenerator) Batch(current tour.Tour) ([]Neighbor, error) {
	if g.moveType != MoveSwap && g.moveType != Move2Opt {
		return nil, errors.InvalidConfig("neighbor", fmt.Sprintf("批量邻域不支持 %s", g.moveType))
	}

	n := len(current)
	want := min(g.maxNeighbors, NeighborhoodSize(g.moveType, n))
	neighbors := make([]Neighbor, 0, want)
	seen := make(map[Move]struct{}, want)
	scratch := make(tour.Tour, n)

	for len(neighbors) < want {
		i, j := g.positions(n)
		move := g.moveAt(current, i, j)
		// 同一批次内按移动键去重，重复则重新采样
		if _, dup := seen[move]; dup {
			continue
		}
		seen[move] = struct{}{}

		copy(scratch, current)
		g.applyAt(scratch, i, j)
		cost, err := tour.Cost(g.matrix, scratch)
		if err != nil {
			return nil, err
		}
		neighbors = append(neighbors, Neighbor{Cost: cost, Move: move, i: i, j: j})
	}

	sort.SliceStable(neighbors, func(a, b int) bool {
		return neighbors[a].Cost < neighbors[b].Cost
	})

	return neighbors, nil
}

// Apply 返回 current 应用候选移动后的新路线
// current 必须是生成该候选时的路线
func (g *NeighborhoodGenerator) Apply(current tour.Tour, nb Neighbor) tour.Tour {
	next := current.Clone()
	g.applyAt(next, nb.i, nb.j)
	return next
}

// positions 按移动类型选取一对位置
func (g *NeighborhoodGenerator) positions(n int) (int, int) {
	if g.moveType == Move2Opt {
		return g.pick2Opt(n)
	}
	return g.pickPositions(n)
}

// moveAt 返回位置 (i, j) 上的移动，禁忌键取自移动前的路线
func (g *NeighborhoodGenerator) moveAt(current tour.Tour, i, j int) Move {
	if g.moveType == Move2Opt {
		n := len(current)
		return NewTwoOptMove(
			NewPair(current[i], current[i+1]),
			NewPair(current[j], current[(j+1)%n]),
		)
	}
	return SwapMove{Cities: NewPair(current[i], current[j])}
}

// applyAt 在 t 上原地执行位置 (i, j) 的移动
func (g *NeighborhoodGenerator) applyAt(t tour.Tour, i, j int) {
	switch g.moveType {
	case MoveSwap:
		t[i], t[j] = t[j], t[i]
	case MoveInsert:
		insertAt(t, i, j)
	case MoveInvert:
		reverse(t, min(i, j), max(i, j))
	case Move2Opt:
		// 反转两条边之间的路段 [i+1, j]
		reverse(t, i+1, j)
	}
}

// pickPositions 均匀选取两个不同位置
func (g *NeighborhoodGenerator) pickPositions(n int) (int, int) {
	i := g.rng.Intn(n)
	j := g.rng.Intn(n)
	for j == i {
		j = g.rng.Intn(n)
	}
	return i, j
}

// pick2Opt 均匀选取两条不相邻的边 (i,i+1) 与 (j,j+1)
func (g *NeighborhoodGenerator) pick2Opt(n int) (int, int) {
	for {
		i, j := g.pickPositions(n)
		if i > j {
			i, j = j, i
		}
		if j-i < 2 || (i == 0 && j == n-1) {
			continue
		}
		return i, j
	}
}

// insertAt 将位置 i 的城市取出并插入到位置 j
func insertAt(t tour.Tour, i, j int) {
	city := t[i]
	if i < j {
		copy(t[i:j], t[i+1:j+1])
	} else {
		copy(t[j+1:i+1], t[j:i])
	}
	t[j] = city
}

// reverse 原地反转闭区间 [i, j]
func reverse(t tour.Tour, i, j int) {
	for ; i < j; i, j = i+1, j-1 {
		t[i], t[j] = t[j], t[i]
	}
}
