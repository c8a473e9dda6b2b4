// Package tour 提供距离矩阵、路线与代价计算
package tour

import (
	"fmt"
	"io"
	"math"

	"gopkg.in/yaml.v3"

	"github.com/paiban/lujing/pkg/errors"
)

// Matrix N×N 距离矩阵，构造后只读，可在多个搜索间共享
type Matrix struct {
	n    int
	data []float64
}

// NewMatrix 从二维切片创建距离矩阵
// 矩阵必须非空、方阵，且所有元素为有限非负数；允许不对称
func NewMatrix(rows [][]float64) (*Matrix, error) {
	n := len(rows)
	if n == 0 {
		return nil, errors.InvalidConfig("matrix", "距离矩阵为空")
	}

	data := make([]float64, n*n)
	for i, row := range rows {
		if len(row) != n {
			return nil, errors.InvalidConfig("matrix",
				fmt.Sprintf("第 %d 行长度为 %d，期望 %d", i, len(row), n))
		}
		for j, d := range row {
			if math.IsNaN(d) || math.IsInf(d, 0) {
				return nil, errors.InvalidConfig("matrix",
					fmt.Sprintf("元素 (%d,%d) 不是有限数", i, j))
			}
			if d < 0 {
				return nil, errors.InvalidConfig("matrix",
					fmt.Sprintf("元素 (%d,%d) 为负数 %v", i, j, d))
			}
			data[i*n+j] = d
		}
	}

	return &Matrix{n: n, data: data}, nil
}

// MustMatrix 同 NewMatrix，出错时 panic，仅用于测试和示例
func MustMatrix(rows [][]float64) *Matrix {
	m, err := NewMatrix(rows)
	if err != nil {
		panic(err)
	}
	return m
}

// N 返回城市数量
func (m *Matrix) N() int {
	return m.n
}

// At 返回 i 到 j 的距离，调用方保证下标合法
func (m *Matrix) At(i, j int) float64 {
	return m.data[i*m.n+j]
}

// IsSymmetric 检查矩阵是否对称
func (m *Matrix) IsSymmetric() bool {
	for i := 0; i < m.n; i++ {
		for j := i + 1; j < m.n; j++ {
			if m.At(i, j) != m.At(j, i) {
				return false
			}
		}
	}
	return true
}

// MeanUpperTriangle 返回上三角（不含对角线）距离的平均值，N<2 时返回 0
func (m *Matrix) MeanUpperTriangle() float64 {
	var (
		total float64
		count int
	)
	for i := 0; i < m.n; i++ {
		for j := i + 1; j < m.n; j++ {
			total += m.At(i, j)
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

// Max 返回矩阵中最大的单个距离
func (m *Matrix) Max() float64 {
	max := 0.0
	for _, d := range m.data {
		if d > max {
			max = d
		}
	}
	return max
}

// matrixFile 矩阵文件格式，兼容 YAML 与 JSON
type matrixFile struct {
	Name   string      `yaml:"name"`
	Matrix [][]float64 `yaml:"matrix"`
}

// ReadMatrix 从 YAML/JSON 读取距离矩阵
// 支持 {"matrix": [[...]]} 对象或直接的二维数组
func ReadMatrix(r io.Reader) (*Matrix, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidInput, "读取矩阵失败")
	}

	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidInput, "解析矩阵失败")
	}
	if len(node.Content) == 0 {
		return nil, errors.InvalidConfig("matrix", "矩阵文件为空")
	}

	var rows [][]float64
	root := node.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&rows); err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidInput, "解析矩阵失败")
		}
	case yaml.MappingNode:
		var f matrixFile
		if err := root.Decode(&f); err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidInput, "解析矩阵失败")
		}
		rows = f.Matrix
	default:
		return nil, errors.InvalidConfig("matrix", "不支持的矩阵文件格式")
	}

	return NewMatrix(rows)
}
