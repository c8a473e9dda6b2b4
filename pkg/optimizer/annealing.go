package optimizer

import (
	"context"

	"github.com/paiban/lujing/pkg/tour"
)

// SimulatedAnnealing 模拟退火引擎
type SimulatedAnnealing struct {
	engine
	cfg       AnnealingConfig
	neighbors *NeighborhoodGenerator
	schedule  *Schedule
}

// NewSimulatedAnnealing 创建模拟退火引擎，配置无效时返回 INVALID_CONFIG
func NewSimulatedAnnealing(m *tour.Matrix, cfg AnnealingConfig) (*SimulatedAnnealing, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sa := &SimulatedAnnealing{
		engine: newEngine(AlgorithmSA, m, cfg.Seed, cfg.Duration, cfg.ReportInterval),
		cfg:    cfg,
	}
	sa.neighbors = NewNeighborhoodGenerator(m, cfg.Neighbor, 1, sa.rng)
	return sa, nil
}

// Config 返回配置
func (sa *SimulatedAnnealing) Config() AnnealingConfig {
	return sa.cfg
}

// Run 执行搜索直到时限、温度降到终止温度或 ctx 取消
func (sa *SimulatedAnnealing) Run(ctx context.Context) (*Result, error) {
	if err := sa.claim(); err != nil {
		return nil, err
	}
	return sa.run(ctx, sa.initialTour(sa.cfg.InitialSolution))
}

func (sa *SimulatedAnnealing) run(ctx context.Context, initial tour.Tour) (*Result, error) {
	if err := sa.begin(initial); err != nil {
		return sa.abort(err)
	}

	t0, err := InitialTemperature(sa.cfg.InitialTemp, sa.matrix, sa.current, sa.rng)
	if err != nil {
		return sa.abort(err)
	}
	sa.schedule = NewSchedule(sa.cfg.Decay, sa.cfg.Alpha, sa.cfg.Beta, t0)

	// 少于两个城市时不存在邻域
	movable := NeighborhoodSize(sa.cfg.Neighbor, sa.matrix.N()) > 0

	iteration := 0
	for movable && !sa.shouldStop(ctx) {
		temperature := sa.schedule.Temperature()
		if sa.frozen(t0, temperature) {
			break
		}

		for step := 0; step < sa.cfg.StepsPerTemp; step++ {
			next, _, _ := sa.neighbors.Next(sa.current)
			cost, err := sa.evaluate(next)
			if err != nil {
				return sa.abort(err)
			}
			if metropolisAccept(cost-sa.currentCost, temperature, sa.rng) {
				sa.adopt(next, cost, iteration)
			}
		}

		sa.schedule.Cool()
		iteration++

		if err := sa.snapshot(iteration, sa.schedule.Temperature()); err != nil {
			return sa.abort(err)
		}
	}

	return sa.finish(ctx, iteration, sa.schedule.Temperature())
}

// frozen 温度降到终止温度时停止
// 未设置终止温度时，降温到 0 即停止；初始温度本身为 0 时只按时限停止
func (sa *SimulatedAnnealing) frozen(t0, temperature float64) bool {
	if sa.cfg.FinalTemperature > 0 {
		return temperature <= sa.cfg.FinalTemperature
	}
	return t0 > 0 && temperature <= 0
}
