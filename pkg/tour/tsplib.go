package tour

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/paiban/lujing/pkg/errors"
)

// 支持的 EDGE_WEIGHT_TYPE
const (
	weightExplicit = "EXPLICIT"
	weightEuc2D    = "EUC_2D"
	weightCeil2D   = "CEIL_2D"
	weightATT      = "ATT"
	weightGeo      = "GEO"
)

// GEO 距离使用的常量，取 TSPLIB 文档中的值
const (
	geoPI     = 3.141592
	geoRadius = 6378.388
)

// 列优先格式与行优先格式等价，按转置映射
var columnFormats = map[string]string{
	"LOWER_COL":      "UPPER_ROW",
	"UPPER_COL":      "LOWER_ROW",
	"LOWER_DIAG_COL": "UPPER_DIAG_ROW",
	"UPPER_DIAG_COL": "LOWER_DIAG_ROW",
}

type point struct {
	x, y float64
}

// tsplibFile 解析中的实例
type tsplibFile struct {
	header  map[string]string
	coords  map[int]point
	weights []float64
}

// ReadTSPLIB 读取 TSPLIB 格式的 TSP/ATSP 实例
// 坐标型实例按 EDGE_WEIGHT_TYPE 计算整数距离，EXPLICIT 实例按 EDGE_WEIGHT_FORMAT 展开
func ReadTSPLIB(r io.Reader) (*Matrix, error) {
	f, err := scanTSPLIB(r)
	if err != nil {
		return nil, err
	}

	n, err := f.dimension()
	if err != nil {
		return nil, err
	}

	weightType := strings.ToUpper(f.header["EDGE_WEIGHT_TYPE"])
	switch weightType {
	case "":
		return nil, errors.InvalidInput("tsplib", "缺少 EDGE_WEIGHT_TYPE")
	case weightExplicit:
		return f.explicit(n)
	case weightEuc2D, weightCeil2D, weightATT, weightGeo:
		return f.coordinates(n, weightType)
	default:
		return nil, errors.InvalidInput("tsplib", "不支持的 EDGE_WEIGHT_TYPE: "+weightType)
	}
}

// scanTSPLIB 逐行读取头部、坐标段与权重段
func scanTSPLIB(r io.Reader) (*tsplibFile, error) {
	f := &tsplibFile{header: map[string]string{}, coords: map[int]point{}}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16<<20)

	section := ""
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		fields := strings.Fields(text)
		keyword := strings.ToUpper(strings.TrimSuffix(fields[0], ":"))

		switch keyword {
		case "EOF":
			return f, nil
		case "NODE_COORD_SECTION", "EDGE_WEIGHT_SECTION", "DISPLAY_DATA_SECTION":
			section = keyword
			continue
		}

		switch section {
		case "NODE_COORD_SECTION":
			if err := f.addCoord(fields); err != nil {
				return nil, errors.Wrap(err, errors.CodeInvalidInput, fmt.Sprintf("第 %d 行坐标无效", line))
			}
			continue
		case "EDGE_WEIGHT_SECTION":
			if err := f.addWeights(fields); err != nil {
				return nil, errors.Wrap(err, errors.CodeInvalidInput, fmt.Sprintf("第 %d 行权重无效", line))
			}
			continue
		case "DISPLAY_DATA_SECTION":
			continue
		}

		key, value, ok := strings.Cut(text, ":")
		if !ok {
			return nil, errors.InvalidInput("tsplib", fmt.Sprintf("第 %d 行无法识别: %s", line, text))
		}
		f.header[strings.ToUpper(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidInput, "读取 TSPLIB 文件失败")
	}
	return f, nil
}

func (f *tsplibFile) addCoord(fields []string) error {
	if len(fields) < 3 {
		return fmt.Errorf("需要编号和两个坐标，得到 %d 个字段", len(fields))
	}
	id, err := strconv.Atoi(fields[0])
	if err != nil {
		return err
	}
	x, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return err
	}
	y, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return err
	}
	if _, dup := f.coords[id]; dup {
		return fmt.Errorf("节点 %d 重复", id)
	}
	f.coords[id] = point{x: x, y: y}
	return nil
}

func (f *tsplibFile) addWeights(fields []string) error {
	for _, s := range fields {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		f.weights = append(f.weights, v)
	}
	return nil
}

func (f *tsplibFile) dimension() (int, error) {
	raw, ok := f.header["DIMENSION"]
	if !ok {
		return 0, errors.InvalidInput("tsplib", "缺少 DIMENSION")
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > math.MaxInt32 {
		return 0, errors.InvalidInput("tsplib", "DIMENSION 无效: "+raw)
	}
	if t := strings.ToUpper(f.header["TYPE"]); t != "" && t != "TSP" && t != "ATSP" {
		return 0, errors.InvalidInput("tsplib", "不支持的 TYPE: "+t)
	}
	return n, nil
}

// coordinates 按坐标计算距离，节点编号为 1..n
func (f *tsplibFile) coordinates(n int, weightType string) (*Matrix, error) {
	if len(f.coords) != n {
		return nil, errors.InvalidInput("tsplib",
			fmt.Sprintf("坐标数量为 %d，期望 %d", len(f.coords), n))
	}
	pts := make([]point, n)
	for id, p := range f.coords {
		if id < 1 || id > n {
			return nil, errors.InvalidInput("tsplib", fmt.Sprintf("节点编号 %d 超出 1..%d", id, n))
		}
		pts[id-1] = p
	}

	dist := distanceFunc(weightType)
	rows := newRows(n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := dist(pts[i], pts[j])
			rows[i][j], rows[j][i] = d, d
		}
	}
	return NewMatrix(rows)
}

func distanceFunc(weightType string) func(a, b point) float64 {
	switch weightType {
	case weightCeil2D:
		return func(a, b point) float64 {
			return math.Ceil(math.Hypot(a.x-b.x, a.y-b.y))
		}
	case weightATT:
		return func(a, b point) float64 {
			dx, dy := a.x-b.x, a.y-b.y
			r := math.Sqrt((dx*dx + dy*dy) / 10)
			t := math.Trunc(r + 0.5)
			if t < r {
				return t + 1
			}
			return t
		}
	case weightGeo:
		return geoDistance
	default:
		return func(a, b point) float64 {
			return math.Trunc(math.Hypot(a.x-b.x, a.y-b.y) + 0.5)
		}
	}
}

// geoRadians 将 DDD.MM 形式的度分转换为弧度
func geoRadians(v float64) float64 {
	deg := math.Trunc(v)
	minutes := v - deg
	return geoPI * (deg + 5*minutes/3) / 180
}

// geoDistance x 为纬度，y 为经度
func geoDistance(a, b point) float64 {
	latA, lonA := geoRadians(a.x), geoRadians(a.y)
	latB, lonB := geoRadians(b.x), geoRadians(b.y)

	q1 := math.Cos(lonA - lonB)
	q2 := math.Cos(latA - latB)
	q3 := math.Cos(latA + latB)
	return math.Trunc(geoRadius*math.Acos(0.5*((1+q1)*q2-(1-q1)*q3)) + 1)
}

// explicit 按 EDGE_WEIGHT_FORMAT 展开权重
func (f *tsplibFile) explicit(n int) (*Matrix, error) {
	format := strings.ToUpper(f.header["EDGE_WEIGHT_FORMAT"])
	if format == "" {
		format = "FULL_MATRIX"
	}
	if mapped, ok := columnFormats[format]; ok {
		format = mapped
	}

	want, ok := weightCount(format, n)
	if !ok {
		return nil, errors.InvalidInput("tsplib", "不支持的 EDGE_WEIGHT_FORMAT: "+format)
	}
	if int64(len(f.weights)) != want {
		return nil, errors.InvalidInput("tsplib",
			fmt.Sprintf("%s 需要 %d 个权重，得到 %d", format, want, len(f.weights)))
	}

	rows := newRows(n)
	full := format == "FULL_MATRIX"
	k := 0
	for i := 0; i < n; i++ {
		lo, hi := cellRange(format, n, i)
		for j := lo; j < hi; j++ {
			rows[i][j] = f.weights[k]
			if !full {
				rows[j][i] = f.weights[k]
			}
			k++
		}
	}
	if !full {
		for i := 0; i < n; i++ {
			rows[i][i] = 0
		}
	}
	return NewMatrix(rows)
}

// weightCount 各格式所需的权重个数，先于分配矩阵校验
func weightCount(format string, n int) (int64, bool) {
	m := int64(n)
	switch format {
	case "FULL_MATRIX":
		return m * m, true
	case "UPPER_ROW", "LOWER_ROW":
		return m * (m - 1) / 2, true
	case "UPPER_DIAG_ROW", "LOWER_DIAG_ROW":
		return m * (m + 1) / 2, true
	}
	return 0, false
}

// cellRange 第 i 行在该格式下占用的列区间 [lo, hi)
func cellRange(format string, n, i int) (lo, hi int) {
	switch format {
	case "UPPER_ROW":
		return i + 1, n
	case "UPPER_DIAG_ROW":
		return i, n
	case "LOWER_ROW":
		return 0, i
	case "LOWER_DIAG_ROW":
		return 0, i + 1
	}
	return 0, n
}

func newRows(n int) [][]float64 {
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, n)
	}
	return rows
}
