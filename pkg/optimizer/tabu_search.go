package optimizer

import (
	"context"
	"fmt"

	"github.com/paiban/lujing/pkg/errors"
	"github.com/paiban/lujing/pkg/tour"
)

// TabuSearch 禁忌搜索引擎
type TabuSearch struct {
	engine
	cfg       TabuConfig
	neighbors *NeighborhoodGenerator
	tabu      *TabuList
}

// NewTabuSearch 创建禁忌搜索引擎
// 2-opt 邻域要求至少 4 个城市
func NewTabuSearch(m *tour.Matrix, cfg TabuConfig) (*TabuSearch, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	n := m.N()
	if cfg.Neighbor == Move2Opt && n < 4 {
		return nil, errors.InvalidConfig("neighbor", fmt.Sprintf("OPT_2 至少需要 4 个城市，当前 %d", n))
	}
	capacity := TabuCapacity(cfg.LimitMethod, n, cfg.CustomLimit)
	if capacity < 1 {
		return nil, errors.InvalidConfig("limit_method", fmt.Sprintf("禁忌表容量 %d 无效", capacity))
	}

	ts := &TabuSearch{
		engine: newEngine(AlgorithmTS, m, cfg.Seed, cfg.Duration, cfg.ReportInterval),
		cfg:    cfg,
	}
	ts.neighbors = NewNeighborhoodGenerator(m, cfg.Neighbor, cfg.MaxNeighbors, ts.rng)
	ts.tabu = NewTabuList(capacity, cfg.tenurePolicy(), ts.rng)
	return ts, nil
}

// Config 返回配置
func (ts *TabuSearch) Config() TabuConfig {
	return ts.cfg
}

// TabuList 返回禁忌表
func (ts *TabuSearch) TabuList() *TabuList {
	return ts.tabu
}

// Run 执行搜索直到时限或 ctx 取消
func (ts *TabuSearch) Run(ctx context.Context) (*Result, error) {
	if err := ts.claim(); err != nil {
		return nil, err
	}
	return ts.run(ctx, ts.initialTour(ts.cfg.InitialSolution))
}

func (ts *TabuSearch) run(ctx context.Context, initial tour.Tour) (*Result, error) {
	if err := ts.begin(initial); err != nil {
		return ts.abort(err)
	}

	movable := NeighborhoodSize(ts.cfg.Neighbor, ts.matrix.N()) > 0

	iteration := 0
	for movable && !ts.shouldStop(ctx) {
		ts.tabu.Decay()

		candidates, err := ts.neighbors.Batch(ts.current)
		if err != nil {
			return ts.abort(err)
		}
		ts.stats.Evaluations += len(candidates)

		// 按代价从低到高扫描，接受第一个可接受的候选后丢弃其余候选
		for _, c := range candidates {
			ok, keys := admissible(c.Move, c.Cost, ts.bestCost, ts.tabu)
			if !ok {
				continue
			}
			ts.adopt(ts.neighbors.Apply(ts.current, c), c.Cost, iteration)
			for _, key := range keys {
				ts.tabu.Record(key)
			}
			break
		}

		iteration++

		if err := ts.snapshot(iteration, 0); err != nil {
			return ts.abort(err)
		}
	}

	return ts.finish(ctx, iteration, 0)
}
