// Package runner 并行运行模拟退火与禁忌搜索
package runner

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/paiban/lujing/pkg/errors"
	"github.com/paiban/lujing/pkg/logger"
	"github.com/paiban/lujing/pkg/optimizer"
	"github.com/paiban/lujing/pkg/progress"
	"github.com/paiban/lujing/pkg/result"
	"github.com/paiban/lujing/pkg/tour"
)

// 运行状态
const (
	StatusSuccess   = "success"
	StatusFailure   = "failure"
	StatusCancelled = "cancelled"
)

// Plan 一次求解计划，配置为空的算法不运行
type Plan struct {
	Matrix    *tour.Matrix
	Annealing *optimizer.AnnealingConfig
	Tabu      *optimizer.TabuConfig
	Seed      int64 // 父种子，0 表示按时钟取种子；算法配置里显式的种子优先
}

// Outcome 单个算法的运行结果
type Outcome struct {
	Algorithm optimizer.Algorithm
	Result    *optimizer.Result
	Err       error
}

// Status 返回运行状态
func (o Outcome) Status() string {
	switch {
	case o.Err == nil:
		return StatusSuccess
	case stderrors.Is(o.Err, context.Canceled) || stderrors.Is(o.Err, context.DeadlineExceeded):
		return StatusCancelled
	default:
		return StatusFailure
	}
}

// Observer 运行指标记录
type Observer interface {
	RunStarted(algorithm string)
	RunFinished(algorithm, status string, duration time.Duration, iterations int, bestCost float64)
	SinkFailed(sink string)
}

// ReporterFactory 为每个算法创建进度输出端
type ReporterFactory func(alg optimizer.Algorithm) progress.Reporter

// searchEngine SA 与 TS 的共同接口
type searchEngine interface {
	Algorithm() optimizer.Algorithm
	SetReporter(progress.Reporter)
	SetPublisher(result.Publisher)
	SetLogger(*zerolog.Logger)
	Run(ctx context.Context) (*optimizer.Result, error)
}

// Runner 求解执行器
type Runner struct {
	log       *zerolog.Logger
	observer  Observer
	reporters ReporterFactory
	publisher result.Publisher
}

// Option 执行器选项
type Option func(*Runner)

// WithLogger 设置日志器
func WithLogger(l *zerolog.Logger) Option {
	return func(r *Runner) { r.log = l }
}

// WithObserver 设置指标记录
func WithObserver(o Observer) Option {
	return func(r *Runner) { r.observer = o }
}

// WithReporters 设置进度输出端工厂
func WithReporters(f ReporterFactory) Option {
	return func(r *Runner) { r.reporters = f }
}

// WithPublisher 设置结果发布端
func WithPublisher(p result.Publisher) Option {
	return func(r *Runner) { r.publisher = p }
}

// New 创建执行器
func New(opts ...Option) *Runner {
	r := &Runner{}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		l := logger.Get().With().Str("component", "runner").Logger()
		r.log = &l
	}
	return r
}

// Run 构造所有引擎后并行运行，任一配置无效时不启动任何引擎
// 单个引擎失败不影响其他引擎，结果顺序为 SA 在前 TS 在后
func (r *Runner) Run(ctx context.Context, plan Plan) ([]Outcome, error) {
	engines, err := r.build(plan)
	if err != nil {
		return nil, err
	}

	outcomes := make([]Outcome, len(engines))
	var wg sync.WaitGroup
	for i, e := range engines {
		wg.Add(1)
		go func(i int, e searchEngine) {
			defer wg.Done()
			outcomes[i] = r.runOne(ctx, e)
		}(i, e)
	}
	wg.Wait()

	return outcomes, nil
}

// build 派生种子并构造引擎
func (r *Runner) build(plan Plan) ([]searchEngine, error) {
	if plan.Matrix == nil {
		return nil, errors.InvalidInput("matrix", "不能为空")
	}
	if plan.Annealing == nil && plan.Tabu == nil {
		return nil, errors.InvalidConfig("algorithms", "至少需要一个算法")
	}

	parent := plan.Seed
	if parent == 0 {
		parent = time.Now().UnixNano()
	}

	var engines []searchEngine
	if plan.Annealing != nil {
		cfg := *plan.Annealing
		if cfg.Seed == 0 {
			cfg.Seed = optimizer.DeriveSeed(parent, uint64(optimizer.AlgorithmSA))
		}
		sa, err := optimizer.NewSimulatedAnnealing(plan.Matrix, cfg)
		if err != nil {
			return nil, err
		}
		engines = append(engines, sa)
	}
	if plan.Tabu != nil {
		cfg := *plan.Tabu
		if cfg.Seed == 0 {
			cfg.Seed = optimizer.DeriveSeed(parent, uint64(optimizer.AlgorithmTS))
		}
		ts, err := optimizer.NewTabuSearch(plan.Matrix, cfg)
		if err != nil {
			return nil, err
		}
		engines = append(engines, ts)
	}

	for _, e := range engines {
		l := r.log.With().Logger()
		e.SetLogger(&l)
		if r.reporters != nil {
			e.SetReporter(r.observeReporter(r.reporters(e.Algorithm())))
		}
		if r.publisher != nil {
			e.SetPublisher(r.observePublisher(r.publisher))
		}
	}
	return engines, nil
}

// runOne 运行单个引擎并记录指标
func (r *Runner) runOne(ctx context.Context, e searchEngine) Outcome {
	alg := e.Algorithm().String()
	if r.observer != nil {
		r.observer.RunStarted(alg)
	}

	start := time.Now()
	res, err := e.Run(ctx)
	out := Outcome{Algorithm: e.Algorithm(), Result: res, Err: err}

	var (
		iterations int
		bestCost   float64
	)
	if res != nil {
		iterations, bestCost = res.Iterations, res.BestCost
	}

	if r.observer != nil {
		r.observer.RunFinished(alg, out.Status(), time.Since(start), iterations, bestCost)
	}

	event := r.log.Info()
	if err != nil {
		event = r.log.Error().Err(err)
	}
	event.Str("algorithm", alg).
		Str("status", out.Status()).
		Int("iterations", iterations).
		Float64("best_cost", bestCost).
		Msg("运行结束")

	return out
}

// observeReporter 输出端失败时计数
func (r *Runner) observeReporter(rep progress.Reporter) progress.Reporter {
	if r.observer == nil || rep == nil {
		return rep
	}
	return &observedReporter{next: rep, observer: r.observer}
}

// observePublisher 发布失败时计数
func (r *Runner) observePublisher(p result.Publisher) result.Publisher {
	if r.observer == nil {
		return p
	}
	return result.PublisherFunc(func(ctx context.Context, rec *result.Record) error {
		err := p.Publish(ctx, rec)
		if err != nil {
			r.observer.SinkFailed("result")
		}
		return err
	})
}

type observedReporter struct {
	next     progress.Reporter
	observer Observer
}

func (o *observedReporter) Report(s progress.Snapshot) error {
	err := o.next.Report(s)
	if err != nil {
		o.observer.SinkFailed("progress")
	}
	return err
}

func (o *observedReporter) Done(alg string) error {
	err := o.next.Done(alg)
	if err != nil {
		o.observer.SinkFailed("progress")
	}
	return err
}

// Best 返回代价最低的成功结果
func Best(outcomes []Outcome) *optimizer.Result {
	var best *optimizer.Result
	for _, o := range outcomes {
		if o.Err != nil || o.Result == nil {
			continue
		}
		if best == nil || o.Result.BestCost < best.BestCost {
			best = o.Result
		}
	}
	return best
}
