package tour

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"

	"github.com/paiban/lujing/pkg/errors"
)

// Tour 城市访问顺序，是 [0,N) 的一个排列，末尾隐含回到起点的边
type Tour []int

// Clone 深拷贝路线
func (t Tour) Clone() Tour {
	c := make(Tour, len(t))
	copy(c, t)
	return c
}

// Ints 以 []int 形式返回副本
func (t Tour) Ints() []int {
	return []int(t.Clone())
}

// String 以逗号分隔输出
func (t Tour) String() string {
	var sb strings.Builder
	for i, city := range t {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(city))
	}
	return sb.String()
}

// Validate 检查路线是否为 [0,n) 的排列
func Validate(t Tour, n int) error {
	if len(t) != n {
		return errors.InvariantViolation(fmt.Sprintf("路线长度 %d，期望 %d", len(t), n))
	}
	seen := make([]bool, n)
	for pos, city := range t {
		if city < 0 || city >= n {
			return errors.InvariantViolation(fmt.Sprintf("位置 %d 的城市 %d 越界", pos, city))
		}
		if seen[city] {
			return errors.InvariantViolation(fmt.Sprintf("城市 %d 重复出现", city))
		}
		seen[city] = true
	}
	return nil
}

// Cost 计算闭合路线的总代价
// 空路线、越界下标或累计值非有限/为负时返回错误，不返回哨兵值
func Cost(m *Matrix, t Tour) (float64, error) {
	if len(t) == 0 {
		return 0, errors.InvariantViolation("路线为空")
	}

	n := m.N()
	for pos, city := range t {
		if city < 0 || city >= n {
			return 0, errors.InvariantViolation(fmt.Sprintf("位置 %d 的城市 %d 越界", pos, city))
		}
	}

	var sum float64
	last := len(t) - 1
	for i := 0; i < last; i++ {
		sum += m.At(t[i], t[i+1])
	}
	sum += m.At(t[last], t[0])

	if math.IsNaN(sum) || math.IsInf(sum, 0) || sum < 0 {
		return 0, errors.InvariantViolation(fmt.Sprintf("路线代价异常: %v", sum))
	}
	return sum, nil
}

// Random 生成随机排列
func Random(n int, rng *rand.Rand) Tour {
	t := Identity(n)
	rng.Shuffle(n, func(i, j int) { t[i], t[j] = t[j], t[i] })
	return t
}

// Identity 返回 0..n-1 顺序路线
func Identity(n int) Tour {
	t := make(Tour, n)
	for i := range t {
		t[i] = i
	}
	return t
}

// NearestNeighbor 从 start 出发的最近邻贪心路线
// 距离相同时选择下标较小的城市
func NearestNeighbor(m *Matrix, start int) Tour {
	n := m.N()
	t := make(Tour, 0, n)
	visited := make([]bool, n)

	current := start
	t = append(t, current)
	visited[current] = true

	for step := 1; step < n; step++ {
		closest := -1
		minDist := math.Inf(1)
		for city := 0; city < n; city++ {
			if !visited[city] && m.At(current, city) < minDist {
				closest = city
				minDist = m.At(current, city)
			}
		}
		t = append(t, closest)
		visited[closest] = true
		current = closest
	}

	return t
}

// RandomNearestNeighbor 从随机城市出发的最近邻贪心路线
func RandomNearestNeighbor(m *Matrix, rng *rand.Rand) Tour {
	return NearestNeighbor(m, rng.Intn(m.N()))
}
