package optimizer

import (
	"fmt"
	"time"

	"github.com/paiban/lujing/pkg/errors"
)

// AnnealingConfig 模拟退火配置
type AnnealingConfig struct {
	Duration         time.Duration         `yaml:"duration" json:"duration"`                   // 运行时限
	ReportInterval   time.Duration         `yaml:"report_interval" json:"report_interval"`     // 进度快照最小间隔
	InitialSolution  InitialSolutionMethod `yaml:"initial_solution" json:"initial_solution"`   // 初始解
	InitialTemp      InitialTempMethod     `yaml:"initial_temp" json:"initial_temp"`           // 初始温度
	Neighbor         MoveType              `yaml:"neighbor" json:"neighbor"`                   // 邻域移动
	Decay            DecayType             `yaml:"decay" json:"decay"`                         // 降温方式
	StepsPerTemp     int                   `yaml:"steps_per_temp" json:"steps_per_temp"`       // 每个温度的尝试次数
	Alpha            float64               `yaml:"alpha" json:"alpha"`                         // 几何降温系数
	Beta             float64               `yaml:"beta" json:"beta"`                           // 线性降温系数
	FinalTemperature float64               `yaml:"final_temperature" json:"final_temperature"` // 终止温度，0 表示仅按时限终止
	Seed             int64                 `yaml:"seed" json:"seed"`                           // 0 表示按时钟取种子
}

// DefaultAnnealingConfig 默认模拟退火配置
func DefaultAnnealingConfig() AnnealingConfig {
	return AnnealingConfig{
		Duration:        10 * time.Second,
		ReportInterval:  100 * time.Millisecond,
		InitialSolution: InitialGreedy,
		InitialTemp:     TempAvg,
		Neighbor:        MoveInvert,
		Decay:           DecayGeometric,
		StepsPerTemp:    100,
		Alpha:           0.995,
		Beta:            0.005,
	}
}

// Validate 校验配置，返回 INVALID_CONFIG 错误
func (c AnnealingConfig) Validate() error {
	ve := &errors.ValidationErrors{}

	if c.Duration <= 0 {
		ve.Add("duration", "必须大于 0")
	}
	if c.ReportInterval < 0 {
		ve.Add("report_interval", "不能为负")
	}
	if _, ok := moveTypeNames[c.Neighbor]; !ok || c.Neighbor == Move2Opt {
		ve.Add("neighbor", fmt.Sprintf("模拟退火不支持 %s", c.Neighbor))
	}
	if c.InitialSolution != InitialRandom && c.InitialSolution != InitialGreedy {
		ve.Add("initial_solution", fmt.Sprintf("未知方式 %s", c.InitialSolution))
	}
	if c.InitialTemp < TempAvg || c.InitialTemp > TempSampling {
		ve.Add("initial_temp", fmt.Sprintf("未知方式 %s", c.InitialTemp))
	}
	if c.StepsPerTemp < 1 {
		ve.Add("steps_per_temp", "必须至少为 1")
	}
	switch c.Decay {
	case DecayGeometric:
		if c.Alpha <= 0 || c.Alpha >= 1 {
			ve.Add("alpha", "几何降温要求 0 < alpha < 1")
		}
	case DecayLinear:
		if c.Beta <= 0 || c.Beta >= 1 {
			ve.Add("beta", "线性降温要求 0 < beta < 1")
		}
	case DecayLogarithmic:
	default:
		ve.Add("decay", fmt.Sprintf("未知方式 %s", c.Decay))
	}
	if c.FinalTemperature < 0 {
		ve.Add("final_temperature", "不能为负")
	}

	return ve.Err(errors.CodeInvalidConfig)
}

// TabuConfig 禁忌搜索配置
type TabuConfig struct {
	Duration        time.Duration         `yaml:"duration" json:"duration"`
	ReportInterval  time.Duration         `yaml:"report_interval" json:"report_interval"`
	InitialSolution InitialSolutionMethod `yaml:"initial_solution" json:"initial_solution"`
	Neighbor        MoveType              `yaml:"neighbor" json:"neighbor"`
	MaxNeighbors    int                   `yaml:"max_neighbors" json:"max_neighbors"` // 每轮采样的候选数上限
	LimitMethod     TabuLimitMethod       `yaml:"limit_method" json:"limit_method"`
	CustomLimit     int                   `yaml:"custom_limit" json:"custom_limit"`
	Tenure          TenureType            `yaml:"tenure" json:"tenure"`
	ConstantTenure  int                   `yaml:"constant_tenure" json:"constant_tenure"`
	TenureMin       int                   `yaml:"tenure_min" json:"tenure_min"`
	TenureMax       int                   `yaml:"tenure_max" json:"tenure_max"`
	Seed            int64                 `yaml:"seed" json:"seed"`
}

// DefaultTabuConfig 默认禁忌搜索配置
func DefaultTabuConfig() TabuConfig {
	return TabuConfig{
		Duration:        10 * time.Second,
		ReportInterval:  100 * time.Millisecond,
		InitialSolution: InitialGreedy,
		Neighbor:        Move2Opt,
		MaxNeighbors:    100,
		LimitMethod:     LimitN,
		Tenure:          TenureConstant,
		ConstantTenure:  10,
		TenureMin:       5,
		TenureMax:       15,
	}
}

// Validate 校验与城市数无关的配置项
func (c TabuConfig) Validate() error {
	ve := &errors.ValidationErrors{}

	if c.Duration <= 0 {
		ve.Add("duration", "必须大于 0")
	}
	if c.ReportInterval < 0 {
		ve.Add("report_interval", "不能为负")
	}
	if c.Neighbor != MoveSwap && c.Neighbor != Move2Opt {
		ve.Add("neighbor", fmt.Sprintf("禁忌搜索不支持 %s", c.Neighbor))
	}
	if c.InitialSolution != InitialRandom && c.InitialSolution != InitialGreedy {
		ve.Add("initial_solution", fmt.Sprintf("未知方式 %s", c.InitialSolution))
	}
	if c.MaxNeighbors < 1 {
		ve.Add("max_neighbors", "必须至少为 1")
	}
	if _, ok := limitNames[c.LimitMethod]; !ok {
		ve.Add("limit_method", fmt.Sprintf("未知方式 %s", c.LimitMethod))
	}
	if c.LimitMethod == LimitCustom && c.CustomLimit < 1 {
		ve.Add("custom_limit", "自定义容量必须至少为 1")
	}
	switch c.Tenure {
	case TenureConstant:
		if c.ConstantTenure < 1 {
			ve.Add("constant_tenure", "必须至少为 1")
		}
	case TenureRandom:
		if c.TenureMin < 1 || c.TenureMax < c.TenureMin {
			ve.Add("tenure_range", fmt.Sprintf("区间 [%d,%d] 无效", c.TenureMin, c.TenureMax))
		}
	default:
		ve.Add("tenure", fmt.Sprintf("未知方式 %s", c.Tenure))
	}

	return ve.Err(errors.CodeInvalidConfig)
}

// tenurePolicy 从配置提取禁忌期限策略
func (c TabuConfig) tenurePolicy() TenurePolicy {
	return TenurePolicy{
		Type:     c.Tenure,
		Constant: c.ConstantTenure,
		Min:      c.TenureMin,
		Max:      c.TenureMax,
	}
}
