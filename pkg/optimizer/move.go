package optimizer

import "fmt"

// Pair 无序城市对，A <= B，作为禁忌表的键
type Pair struct {
	A, B int
}

// NewPair 创建规范化的城市对
func NewPair(a, b int) Pair {
	if a > b {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

func (p Pair) String() string {
	return fmt.Sprintf("(%d,%d)", p.A, p.B)
}

// Move 邻域移动，只用于禁忌判断，不直接修改路线
// 只有 SwapMove 与 TwoOptMove 两种实现
type Move interface {
	// Keys 返回该移动涉及的禁忌键
	Keys() []Pair
	isMove()
}

// SwapMove 单个城市对移动（交换、插入、反转）
// 键为两个位置上的城市编号，而不是位置本身
type SwapMove struct {
	Cities Pair
}

// Keys 实现 Move
func (m SwapMove) Keys() []Pair { return []Pair{m.Cities} }

func (SwapMove) isMove() {}

func (m SwapMove) String() string { return "swap" + m.Cities.String() }

// TwoOptMove 2-opt 移动，键为被移除的两条边
type TwoOptMove struct {
	Removed [2]Pair
}

// NewTwoOptMove 创建规范化的 2-opt 移动，两条边按字典序排列
func NewTwoOptMove(e1, e2 Pair) TwoOptMove {
	if e2.A < e1.A || (e2.A == e1.A && e2.B < e1.B) {
		e1, e2 = e2, e1
	}
	return TwoOptMove{Removed: [2]Pair{e1, e2}}
}

// Keys 实现 Move
func (m TwoOptMove) Keys() []Pair { return []Pair{m.Removed[0], m.Removed[1]} }

func (TwoOptMove) isMove() {}

func (m TwoOptMove) String() string {
	return "2opt" + m.Removed[0].String() + m.Removed[1].String()
}
