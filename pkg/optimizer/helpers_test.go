package optimizer

import (
	"math"
	"sync"

	"github.com/paiban/lujing/pkg/progress"
	"github.com/paiban/lujing/pkg/tour"
)

// fiveCities 对称的 5 城市矩阵
var fiveCities = [][]float64{
	{0, 2, 9, 10, 7},
	{2, 0, 6, 4, 3},
	{9, 6, 0, 8, 5},
	{10, 4, 8, 0, 6},
	{7, 3, 5, 6, 0},
}

// squareMatrix 单位正方形四个顶点，最优回路长度为 4
func squareMatrix() *tour.Matrix {
	d := math.Sqrt2
	return tour.MustMatrix([][]float64{
		{0, 1, d, 1},
		{1, 0, 1, d},
		{d, 1, 0, 1},
		{1, d, 1, 0},
	})
}

// uniformMatrix 所有城市间距离相同
func uniformMatrix(n int) *tour.Matrix {
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, n)
		for j := range rows[i] {
			if i != j {
				rows[i][j] = 1
			}
		}
	}
	return tour.MustMatrix(rows)
}

// overflowMatrix 只有一条回路代价有限，其余回路的代价和溢出为 +Inf
func overflowMatrix() *tour.Matrix {
	const huge = 1e308
	return tour.MustMatrix([][]float64{
		{0, huge, 1, 1},
		{huge, 0, 1, 1},
		{1, 1, 0, huge},
		{1, 1, huge, 0},
	})
}

// circleMatrix 圆周上等距分布的 n 个城市
func circleMatrix(n int) *tour.Matrix {
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, n)
		for j := range rows[i] {
			a := 2 * math.Pi * float64(i) / float64(n)
			b := 2 * math.Pi * float64(j) / float64(n)
			rows[i][j] = math.Hypot(math.Cos(a)-math.Cos(b), math.Sin(a)-math.Sin(b))
		}
	}
	return tour.MustMatrix(rows)
}

// recordingReporter 记录所有快照
type recordingReporter struct {
	mu        sync.Mutex
	snapshots []progress.Snapshot
	done      []string
	err       error
}

func (r *recordingReporter) Report(s progress.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, s)
	return r.err
}

func (r *recordingReporter) Done(algorithm string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done = append(r.done, algorithm)
	return r.err
}
