package tour

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/lujing/pkg/errors"
)

func readTSPLIB(t *testing.T, doc string) *Matrix {
	t.Helper()
	m, err := ReadTSPLIB(strings.NewReader(doc))
	require.NoError(t, err)
	return m
}

func mustCost(t *testing.T, m *Matrix, tr Tour) float64 {
	t.Helper()
	c, err := Cost(m, tr)
	require.NoError(t, err)
	return c
}

func TestReadTSPLIB_Euc2D(t *testing.T) {
	m := readTSPLIB(t, `NAME: rect4
TYPE: TSP
COMMENT: 3-4-5 矩形
DIMENSION: 4
EDGE_WEIGHT_TYPE : EUC_2D
NODE_COORD_SECTION
1 0 0
2 3 0
3 3 4
4 0 4
EOF
`)

	require.Equal(t, 4, m.N())
	assert.Equal(t, 3.0, m.At(0, 1))
	assert.Equal(t, 4.0, m.At(1, 2))
	assert.Equal(t, 5.0, m.At(0, 2))
	assert.Equal(t, 0.0, m.At(3, 3))
	assert.True(t, m.IsSymmetric())
	assert.Equal(t, 14.0, mustCost(t, m, Tour{0, 1, 2, 3}))
}

func TestReadTSPLIB_Rounding(t *testing.T) {
	tests := []struct {
		name       string
		weightType string
		want       float64
	}{
		// (0,0) 到 (1,1)，欧氏距离约 1.414
		{"EUC_2D 四舍五入", "EUC_2D", 1},
		{"CEIL_2D 向上取整", "CEIL_2D", 2},
		// sqrt(2/10) 约 0.447，取整为 0 小于实际值，加 1
		{"ATT 伪欧氏", "ATT", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := readTSPLIB(t, "DIMENSION: 2\nEDGE_WEIGHT_TYPE: "+tt.weightType+
				"\nNODE_COORD_SECTION\n1 0 0\n2 1 1\nEOF\n")
			assert.Equal(t, tt.want, m.At(0, 1))
			assert.Equal(t, tt.want, m.At(1, 0))
		})
	}
}

func TestReadTSPLIB_Geo(t *testing.T) {
	// 同一经线上相差 1 度，约 111 km
	m := readTSPLIB(t, `DIMENSION: 3
EDGE_WEIGHT_TYPE: GEO
NODE_COORD_SECTION
1 10.00 20.00
2 11.00 20.00
3 10.00 20.00
EOF
`)

	assert.InDelta(t, 112, m.At(0, 1), 1)
	assert.Equal(t, 0.0, m.At(0, 0), "对角线为 0")
	assert.Equal(t, 1.0, m.At(0, 2), "重合点按公式加 1")
	assert.True(t, m.IsSymmetric())
}

func TestReadTSPLIB_Explicit(t *testing.T) {
	tests := []struct {
		name    string
		format  string
		weights string
	}{
		{"UPPER_ROW", "UPPER_ROW", "1 2\n3"},
		{"LOWER_DIAG_ROW", "LOWER_DIAG_ROW", "0\n1 0\n2 3 0"},
		{"UPPER_DIAG_ROW", "UPPER_DIAG_ROW", "0 1 2\n0 3\n0"},
		{"LOWER_ROW", "LOWER_ROW", "1\n2 3"},
		{"LOWER_COL 等价 UPPER_ROW", "LOWER_COL", "1 2 3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := readTSPLIB(t, "NAME: tri\nTYPE: TSP\nDIMENSION: 3\nEDGE_WEIGHT_TYPE: EXPLICIT\n"+
				"EDGE_WEIGHT_FORMAT: "+tt.format+"\nEDGE_WEIGHT_SECTION\n"+tt.weights+"\nEOF\n")
			assert.Equal(t, 1.0, m.At(0, 1))
			assert.Equal(t, 2.0, m.At(0, 2))
			assert.Equal(t, 3.0, m.At(1, 2))
			assert.True(t, m.IsSymmetric())
		})
	}
}

func TestReadTSPLIB_FullMatrixAsymmetric(t *testing.T) {
	m := readTSPLIB(t, `NAME: atsp3
TYPE: ATSP
DIMENSION: 3
EDGE_WEIGHT_TYPE: EXPLICIT
EDGE_WEIGHT_FORMAT: FULL_MATRIX
EDGE_WEIGHT_SECTION
0 1 9
5 0 2
3 7 0
DISPLAY_DATA_SECTION
1 0 0
EOF
`)

	assert.False(t, m.IsSymmetric())
	assert.Equal(t, 6.0, mustCost(t, m, Tour{0, 1, 2}))
	assert.Equal(t, 21.0, mustCost(t, m, Tour{0, 2, 1}))
}

func TestReadTSPLIB_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"缺少维度", "EDGE_WEIGHT_TYPE: EUC_2D\nNODE_COORD_SECTION\n1 0 0\nEOF\n"},
		{"维度无效", "DIMENSION: x\nEDGE_WEIGHT_TYPE: EUC_2D\n"},
		{"缺少权重类型", "DIMENSION: 1\nNODE_COORD_SECTION\n1 0 0\nEOF\n"},
		{"不支持的权重类型", "DIMENSION: 1\nEDGE_WEIGHT_TYPE: EUC_3D\n"},
		{"不支持的问题类型", "TYPE: CVRP\nDIMENSION: 1\nEDGE_WEIGHT_TYPE: EUC_2D\n"},
		{"坐标不足", "DIMENSION: 3\nEDGE_WEIGHT_TYPE: EUC_2D\nNODE_COORD_SECTION\n1 0 0\n2 1 1\nEOF\n"},
		{"节点编号越界", "DIMENSION: 2\nEDGE_WEIGHT_TYPE: EUC_2D\nNODE_COORD_SECTION\n1 0 0\n3 1 1\nEOF\n"},
		{"节点重复", "DIMENSION: 2\nEDGE_WEIGHT_TYPE: EUC_2D\nNODE_COORD_SECTION\n1 0 0\n1 1 1\nEOF\n"},
		{"坐标非数字", "DIMENSION: 1\nEDGE_WEIGHT_TYPE: EUC_2D\nNODE_COORD_SECTION\n1 a 0\nEOF\n"},
		{"权重数量不符", "DIMENSION: 3\nEDGE_WEIGHT_TYPE: EXPLICIT\nEDGE_WEIGHT_FORMAT: UPPER_ROW\nEDGE_WEIGHT_SECTION\n1 2\nEOF\n"},
		{"不支持的权重格式", "DIMENSION: 2\nEDGE_WEIGHT_TYPE: EXPLICIT\nEDGE_WEIGHT_FORMAT: FUNCTION\nEDGE_WEIGHT_SECTION\n1\nEOF\n"},
		{"无法识别的行", "DIMENSION 3\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadTSPLIB(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.CodeInvalidInput), "got %v", err)
		})
	}
}

func TestReadTSPLIB_CountCheckedBeforeAllocation(t *testing.T) {
	doc := "DIMENSION: 6000\nEDGE_WEIGHT_TYPE: EXPLICIT\nEDGE_WEIGHT_FORMAT: FULL_MATRIX\n" +
		"EDGE_WEIGHT_SECTION\n1 2 3\nEOF\n"

	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	_, err := ReadTSPLIB(strings.NewReader(doc))
	runtime.ReadMemStats(&after)

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeInvalidInput))
	// 6000x6000 的矩阵约 288MB，权重数不符时不应分配
	assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(1<<20))
}

func TestReadTSPLIB_DimensionOverflow(t *testing.T) {
	_, err := ReadTSPLIB(strings.NewReader("DIMENSION: 9223372036854775807\nEDGE_WEIGHT_TYPE: EXPLICIT\n" +
		"EDGE_WEIGHT_SECTION\n1\nEOF\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeInvalidInput))
}
