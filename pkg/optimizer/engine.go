package optimizer

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/paiban/lujing/pkg/errors"
	"github.com/paiban/lujing/pkg/logger"
	"github.com/paiban/lujing/pkg/progress"
	"github.com/paiban/lujing/pkg/result"
	"github.com/paiban/lujing/pkg/tour"
)

// Result 一次搜索运行的结果
type Result struct {
	RunID            string        `json:"run_id"`
	Algorithm        Algorithm     `json:"algorithm"`
	BestTour         tour.Tour     `json:"best_tour"`
	BestCost         float64       `json:"best_cost"`
	InitialCost      float64       `json:"initial_cost"`
	Iterations       int           `json:"iterations"`   // 外层迭代次数
	Evaluations      int           `json:"evaluations"`  // 代价计算次数
	Accepted         int           `json:"accepted"`     // 接受的移动数
	Improvements     int           `json:"improvements"` // 历史最优被刷新的次数
	Duration         time.Duration `json:"duration"`
	FinalTemperature float64       `json:"final_temperature,omitempty"`
	FinishedAt       time.Time     `json:"finished_at"`
}

// Record 转换为持久化记录
func (r *Result) Record() *result.Record {
	return &result.Record{
		RunID:       r.RunID,
		Algorithm:   r.Algorithm.String(),
		Cities:      len(r.BestTour),
		BestTour:    r.BestTour.Clone(),
		BestCost:    r.BestCost,
		InitialCost: r.InitialCost,
		Iterations:  r.Iterations,
		Duration:    r.Duration,
		FinishedAt:  r.FinishedAt,
	}
}

// engine SA 与 TS 共用的搜索状态与输出逻辑
// 一个实例只属于一个 goroutine，只能运行一次
type engine struct {
	algorithm      Algorithm
	matrix         *tour.Matrix
	rng            *rand.Rand
	duration       time.Duration
	reportInterval time.Duration

	reporter  progress.Reporter
	publisher result.Publisher
	log       *logger.SearchLogger

	current     tour.Tour
	currentCost float64
	best        tour.Tour
	bestCost    float64
	start       time.Time
	throttle    *progress.Throttle
	stats       Result
	ran         bool
}

func newEngine(alg Algorithm, m *tour.Matrix, seed int64, duration, reportInterval time.Duration) engine {
	return engine{
		algorithm:      alg,
		matrix:         m,
		rng:            NewRNG(seed),
		duration:       duration,
		reportInterval: reportInterval,
		reporter:       progress.Nop{},
		log:            logger.NewSearchLogger(nil, alg.String()),
	}
}

// SetReporter 设置进度输出端
func (e *engine) SetReporter(r progress.Reporter) {
	if r == nil {
		r = progress.Nop{}
	}
	e.reporter = r
}

// SetPublisher 设置结果发布端，为空时不持久化
func (e *engine) SetPublisher(p result.Publisher) {
	e.publisher = p
}

// SetLogger 设置日志器
func (e *engine) SetLogger(l *zerolog.Logger) {
	e.log = logger.NewSearchLogger(l, e.algorithm.String())
}

// Algorithm 返回算法类型
func (e *engine) Algorithm() Algorithm {
	return e.algorithm
}

// claim 标记已运行，重复调用 Run 返回错误
func (e *engine) claim() error {
	if e.ran {
		return errors.New(errors.CodeInternal, e.algorithm.String()+" 引擎只能运行一次")
	}
	e.ran = true
	return nil
}

// initialTour 按方式生成初始路线
func (e *engine) initialTour(method InitialSolutionMethod) tour.Tour {
	if method == InitialRandom {
		return tour.Random(e.matrix.N(), e.rng)
	}
	return tour.RandomNearestNeighbor(e.matrix, e.rng)
}

// begin 初始化当前解与最优解
func (e *engine) begin(initial tour.Tour) error {
	if err := tour.Validate(initial, e.matrix.N()); err != nil {
		return err
	}
	cost, err := tour.Cost(e.matrix, initial)
	if err != nil {
		return err
	}

	e.start = time.Now()
	e.throttle = progress.NewThrottle(e.reportInterval)
	e.current = initial
	e.currentCost = cost
	e.best = initial.Clone()
	e.bestCost = cost
	e.stats = Result{
		RunID:       uuid.New().String(),
		Algorithm:   e.algorithm,
		InitialCost: cost,
	}

	e.log.StartRun(e.matrix.N(), cost, e.duration)
	return nil
}

// shouldStop 每个外层迭代检查一次时限与取消
func (e *engine) shouldStop(ctx context.Context) bool {
	return ctx.Err() != nil || time.Since(e.start) >= e.duration
}

// evaluate 计算候选代价
func (e *engine) evaluate(t tour.Tour) (float64, error) {
	e.stats.Evaluations++
	return tour.Cost(e.matrix, t)
}

// adopt 接受候选解为当前解，必要时刷新最优解
func (e *engine) adopt(next tour.Tour, cost float64, iteration int) {
	e.current = next
	e.currentCost = cost
	e.stats.Accepted++

	if cost < e.bestCost {
		e.best = next.Clone()
		e.bestCost = cost
		e.stats.Improvements++
		e.log.NewBest(iteration, cost)
	}
}

// snapshot 节流发送进度快照，发送前校验当前路线仍是排列
func (e *engine) snapshot(iteration int, temperature float64) error {
	var invalid error
	e.throttle.Do(func() {
		if err := tour.Validate(e.current, e.matrix.N()); err != nil {
			invalid = err
			return
		}
		s := progress.Snapshot{
			Algorithm:   e.algorithm.String(),
			Elapsed:     time.Since(e.start),
			Iteration:   iteration,
			BestCost:    e.bestCost,
			CurrentCost: e.currentCost,
			Temperature: temperature,
			Tour:        e.current.Clone(),
		}
		if err := e.reporter.Report(s); err != nil {
			e.log.SinkFailure("progress", errors.SinkFailure("progress", err))
		}
	})
	return invalid
}

// finish 发送结束标记，再持久化最优解
// 输出端失败只记录日志；ctx 已取消时跳过持久化
func (e *engine) finish(ctx context.Context, iterations int, temperature float64) (*Result, error) {
	if err := tour.Validate(e.best, e.matrix.N()); err != nil {
		return e.abort(err)
	}

	if err := e.reporter.Done(e.algorithm.String()); err != nil {
		e.log.SinkFailure("progress", errors.SinkFailure("progress", err))
	}

	res := e.stats
	res.BestTour = e.best.Clone()
	res.BestCost = e.bestCost
	res.Iterations = iterations
	res.FinalTemperature = temperature
	res.Duration = time.Since(e.start)
	res.FinishedAt = time.Now()

	if e.publisher != nil && ctx.Err() == nil {
		if err := e.publisher.Publish(ctx, res.Record()); err != nil {
			e.log.SinkFailure("result", errors.SinkFailure("result", err))
		}
	}

	e.log.RunComplete(iterations, res.Duration, res.BestCost)
	return &res, ctx.Err()
}

// abort 中止运行：仍发送结束标记，不持久化
func (e *engine) abort(err error) (*Result, error) {
	e.log.RunAborted(err)
	if derr := e.reporter.Done(e.algorithm.String()); derr != nil {
		e.log.SinkFailure("progress", errors.SinkFailure("progress", derr))
	}
	return nil, err
}
