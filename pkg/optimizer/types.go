// Package optimizer 提供 TSP 局部搜索算法：模拟退火与禁忌搜索
package optimizer

import (
	"fmt"
	"strings"
)

// Algorithm 搜索算法
type Algorithm int

const (
	AlgorithmSA Algorithm = iota // 模拟退火
	AlgorithmTS                  // 禁忌搜索
)

var algorithmNames = map[Algorithm]string{
	AlgorithmSA: "sa",
	AlgorithmTS: "ts",
}

func (a Algorithm) String() string {
	if s, ok := algorithmNames[a]; ok {
		return s
	}
	return fmt.Sprintf("Algorithm(%d)", int(a))
}

// MarshalText 实现 encoding.TextMarshaler
func (a Algorithm) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// UnmarshalText 实现 encoding.TextUnmarshaler
func (a *Algorithm) UnmarshalText(text []byte) error {
	v, err := parseEnum("algorithm", text, map[string]Algorithm{
		"SA": AlgorithmSA, "SIMULATED_ANNEALING": AlgorithmSA,
		"TS": AlgorithmTS, "TABU_SEARCH": AlgorithmTS,
	})
	if err == nil {
		*a = v
	}
	return err
}

// MoveType 邻域移动类型
type MoveType int

const (
	MoveSwap   MoveType = iota // 交换两个位置上的城市
	MoveInsert                 // 取出一个城市插入到另一位置（仅模拟退火）
	MoveInvert                 // 反转一段路线（仅模拟退火）
	Move2Opt                   // 2-opt 边交换（仅禁忌搜索）
)

var moveTypeNames = map[MoveType]string{
	MoveSwap:   "SWAP",
	MoveInsert: "INSERT",
	MoveInvert: "INVERT",
	Move2Opt:   "OPT_2",
}

func (m MoveType) String() string {
	if s, ok := moveTypeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("MoveType(%d)", int(m))
}

// MarshalText 实现 encoding.TextMarshaler
func (m MoveType) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText 实现 encoding.TextUnmarshaler
func (m *MoveType) UnmarshalText(text []byte) error {
	v, err := parseEnum("move type", text, map[string]MoveType{
		"SWAP": MoveSwap, "INSERT": MoveInsert, "INVERT": MoveInvert,
		"OPT_2": Move2Opt, "2OPT": Move2Opt, "2_OPT": Move2Opt, "TWO_OPT": Move2Opt,
	})
	if err == nil {
		*m = v
	}
	return err
}

// InitialSolutionMethod 初始解生成方式
type InitialSolutionMethod int

const (
	InitialRandom InitialSolutionMethod = iota // 随机排列
	InitialGreedy                              // 随机起点的最近邻贪心
)

func (m InitialSolutionMethod) String() string {
	switch m {
	case InitialRandom:
		return "RANDOM"
	case InitialGreedy:
		return "GREEDY"
	}
	return fmt.Sprintf("InitialSolutionMethod(%d)", int(m))
}

// MarshalText 实现 encoding.TextMarshaler
func (m InitialSolutionMethod) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText 实现 encoding.TextUnmarshaler
func (m *InitialSolutionMethod) UnmarshalText(text []byte) error {
	v, err := parseEnum("initial solution", text, map[string]InitialSolutionMethod{
		"RANDOM": InitialRandom, "GREEDY": InitialGreedy, "NEAREST_NEIGHBOR": InitialGreedy,
	})
	if err == nil {
		*m = v
	}
	return err
}

// InitialTempMethod 初始温度计算方式
type InitialTempMethod int

const (
	TempAvg      InitialTempMethod = iota // 平均距离的一半
	TempMax                               // 最大距离的一半
	TempSampling                          // 随机采样代价差均值的一半
)

func (m InitialTempMethod) String() string {
	switch m {
	case TempAvg:
		return "AVG"
	case TempMax:
		return "MAX"
	case TempSampling:
		return "SAMPLING"
	}
	return fmt.Sprintf("InitialTempMethod(%d)", int(m))
}

// MarshalText 实现 encoding.TextMarshaler
func (m InitialTempMethod) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText 实现 encoding.TextUnmarshaler
func (m *InitialTempMethod) UnmarshalText(text []byte) error {
	v, err := parseEnum("initial temperature", text, map[string]InitialTempMethod{
		"AVG": TempAvg, "MAX": TempMax, "SAMPLING": TempSampling,
	})
	if err == nil {
		*m = v
	}
	return err
}

// DecayType 降温方式
type DecayType int

const (
	DecayGeometric   DecayType = iota // T *= alpha
	DecayLinear                       // T -= beta * T
	DecayLogarithmic                  // T = T0 * ln2 / ln(k+2)
)

func (d DecayType) String() string {
	switch d {
	case DecayGeometric:
		return "GEO"
	case DecayLinear:
		return "LINE"
	case DecayLogarithmic:
		return "LOG"
	}
	return fmt.Sprintf("DecayType(%d)", int(d))
}

// MarshalText 实现 encoding.TextMarshaler
func (d DecayType) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText 实现 encoding.TextUnmarshaler
func (d *DecayType) UnmarshalText(text []byte) error {
	v, err := parseEnum("decay", text, map[string]DecayType{
		"GEO": DecayGeometric, "GEOMETRIC": DecayGeometric,
		"LINE": DecayLinear, "LINEAR": DecayLinear,
		"LOG": DecayLogarithmic, "LOGARITHMIC": DecayLogarithmic,
	})
	if err == nil {
		*d = v
	}
	return err
}

// TenureType 禁忌期限类型
type TenureType int

const (
	TenureConstant TenureType = iota // 固定期限
	TenureRandom                     // 区间内均匀随机
)

func (t TenureType) String() string {
	switch t {
	case TenureConstant:
		return "CONSTANT"
	case TenureRandom:
		return "RANDOM"
	}
	return fmt.Sprintf("TenureType(%d)", int(t))
}

// MarshalText 实现 encoding.TextMarshaler
func (t TenureType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText 实现 encoding.TextUnmarshaler
func (t *TenureType) UnmarshalText(text []byte) error {
	v, err := parseEnum("tenure", text, map[string]TenureType{
		"CONSTANT": TenureConstant, "RANDOM": TenureRandom,
	})
	if err == nil {
		*t = v
	}
	return err
}

// TabuLimitMethod 禁忌表容量计算方式
type TabuLimitMethod int

const (
	LimitN        TabuLimitMethod = iota // N
	LimitSqrtN                           // ⌈√N⌉
	LimitThreeN                          // 3N
	LimitNSquared                        // N²
	LimitCustom                          // 自定义
)

var limitNames = map[TabuLimitMethod]string{
	LimitN:        "N",
	LimitSqrtN:    "SQRT_N",
	LimitThreeN:   "THREE_N",
	LimitNSquared: "N_SQUARED",
	LimitCustom:   "CUSTOM",
}

func (l TabuLimitMethod) String() string {
	if s, ok := limitNames[l]; ok {
		return s
	}
	return fmt.Sprintf("TabuLimitMethod(%d)", int(l))
}

// MarshalText 实现 encoding.TextMarshaler
func (l TabuLimitMethod) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

// UnmarshalText 实现 encoding.TextUnmarshaler
func (l *TabuLimitMethod) UnmarshalText(text []byte) error {
	table := make(map[string]TabuLimitMethod, len(limitNames))
	for k, v := range limitNames {
		table[v] = k
	}
	v, err := parseEnum("tabu limit", text, table)
	if err == nil {
		*l = v
	}
	return err
}

// parseEnum 大小写不敏感地解析枚举文本，'-' 与 ' ' 视为 '_'
func parseEnum[T any](kind string, text []byte, table map[string]T) (T, error) {
	key := strings.ToUpper(strings.TrimSpace(string(text)))
	key = strings.NewReplacer("-", "_", " ", "_").Replace(key)
	if v, ok := table[key]; ok {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("unknown %s %q", kind, string(text))
}
