package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"

	"github.com/paiban/lujing/internal/config"
	"github.com/paiban/lujing/internal/database"
	"github.com/paiban/lujing/internal/metrics"
	"github.com/paiban/lujing/internal/repository"
	"github.com/paiban/lujing/pkg/optimizer"
	"github.com/paiban/lujing/pkg/progress"
	"github.com/paiban/lujing/pkg/result"
	"github.com/paiban/lujing/pkg/runner"
	"github.com/paiban/lujing/pkg/tour"
)

// app 命令行求解流程
type app struct {
	cfg *config.Config
	log *zerolog.Logger
	out io.Writer

	closers []io.Closer
}

// solve 加载矩阵、运行搜索、保存并打印结果
func (a *app) solve(ctx context.Context) error {
	defer a.close()

	m, err := loadMatrix(a.cfg.Search.MatrixPath)
	if err != nil {
		return err
	}

	files := result.NewFileStore(a.cfg.Results.Dir)
	publisher, err := a.publishers(ctx, files)
	if err != nil {
		return err
	}

	plan := runner.Plan{
		Matrix:    m,
		Annealing: a.cfg.Search.AnnealingConfig(),
		Tabu:      a.cfg.Search.TabuConfig(),
		Seed:      a.cfg.Search.Seed,
	}

	r := runner.New(
		runner.WithLogger(a.log),
		runner.WithObserver(metrics.NewSearchObserver(metrics.GetRegistry())),
		runner.WithReporters(a.reporters(ctx, plan)),
		runner.WithPublisher(publisher),
	)

	a.log.Info().
		Int("cities", m.N()).
		Bool("symmetric", m.IsSymmetric()).
		Str("matrix", a.cfg.Search.MatrixPath).
		Str("sink", a.cfg.Progress.Sink).
		Msg("开始求解")

	outcomes, err := r.Run(ctx, plan)
	if err != nil {
		return err
	}

	printSummary(a.out, outcomes, files)
	if runner.Best(outcomes) == nil {
		return fmt.Errorf("没有成功完成的算法")
	}
	return nil
}

// show 打印已保存的最优路线
func (a *app) show(ctx context.Context) error {
	defer a.close()

	var m *tour.Matrix
	if a.cfg.Search.MatrixPath != "" {
		if loaded, err := loadMatrix(a.cfg.Search.MatrixPath); err == nil {
			m = loaded
		}
	}

	files := result.NewFileStore(a.cfg.Results.Dir)
	for _, alg := range []optimizer.Algorithm{optimizer.AlgorithmSA, optimizer.AlgorithmTS} {
		t, err := files.Load(alg.String())
		if err != nil {
			fmt.Fprintf(a.out, "%s: %v\n", alg, err)
			continue
		}
		line := fmt.Sprintf("%s: %d 个城市 [%s]", alg, len(t), t)
		if m != nil {
			if cost, err := tour.Cost(m, t); err == nil {
				line += fmt.Sprintf(" 代价 %.6f", cost)
			}
		}
		fmt.Fprintln(a.out, line)
	}

	if !a.cfg.Results.BadgerEnabled {
		return nil
	}
	store, err := result.OpenBadger(a.cfg.Results.BadgerDir, a.log)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, store)

	for _, alg := range []string{"sa", "ts"} {
		recs, err := store.List(alg, 5)
		if err != nil {
			return err
		}
		for _, rec := range recs {
			fmt.Fprintf(a.out, "  %s %s 代价 %.6f 迭代 %d 用时 %s\n",
				rec.FinishedAt.Format("2006-01-02 15:04:05"), rec.Algorithm, rec.BestCost, rec.Iterations, rec.Duration)
		}
	}
	return nil
}

// publishers 组装结果发布端：文件总是启用，Badger 与数据库按配置启用
func (a *app) publishers(ctx context.Context, files *result.FileStore) (result.Publisher, error) {
	pubs := []result.Publisher{files}

	if a.cfg.Results.BadgerEnabled {
		store, err := result.OpenBadger(a.cfg.Results.BadgerDir, a.log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store)
		pubs = append(pubs, store)
	}

	if a.cfg.Database.Enabled {
		db, err := database.New(&a.cfg.Database)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db)
		if err := db.Migrate(ctx); err != nil {
			return nil, err
		}
		pubs = append(pubs, repository.NewRunRepository(db))
	}

	return result.Multi(pubs...), nil
}

// reporters 按配置为每个算法创建进度输出端
// TCP 连接失败时退回日志输出，不中断求解
func (a *app) reporters(ctx context.Context, plan runner.Plan) runner.ReporterFactory {
	tcp := map[optimizer.Algorithm]progress.Reporter{}
	if a.cfg.Progress.Sink == config.SinkTCP {
		var algs []optimizer.Algorithm
		if plan.Annealing != nil {
			algs = append(algs, optimizer.AlgorithmSA)
		}
		if plan.Tabu != nil {
			algs = append(algs, optimizer.AlgorithmTS)
		}
		for _, alg := range algs {
			rep, err := progress.DialTCP(ctx, a.cfg.Progress.TCPAddress, a.cfg.Progress.WriteTimeout)
			if err != nil {
				a.log.Warn().Err(err).Str("algorithm", alg.String()).Msg("TCP 进度端不可用，改用日志")
				continue
			}
			a.closers = append(a.closers, rep)
			tcp[alg] = rep
		}
	}

	return func(alg optimizer.Algorithm) progress.Reporter {
		switch a.cfg.Progress.Sink {
		case config.SinkNone:
			return progress.Nop{}
		case config.SinkTCP:
			if rep, ok := tcp[alg]; ok {
				return rep
			}
		}
		l := a.log.With().Str("component", "progress").Logger()
		return progress.NewLogReporter(&l)
	}
}

// close 关闭打开的资源
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.log.Warn().Err(err).Msg("关闭资源失败")
		}
	}
	a.closers = nil
}

// loadMatrix 读取矩阵文件，.tsp 按 TSPLIB 格式解析
func loadMatrix(path string) (*tour.Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开矩阵文件失败: %w", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".tsp") {
		return tour.ReadTSPLIB(f)
	}
	return tour.ReadMatrix(f)
}

// printSummary 打印各算法结果
func printSummary(w io.Writer, outcomes []runner.Outcome, files *result.FileStore) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "算法\t状态\t最优代价\t初始代价\t改进\t迭代\t用时\t结果文件")
	for _, o := range outcomes {
		if o.Result == nil {
			fmt.Fprintf(tw, "%s\t%s\t-\t-\t-\t-\t-\t-\n", o.Algorithm, o.Status())
			continue
		}
		res := o.Result
		file := "-"
		if o.Err == nil {
			file = files.Path(o.Algorithm.String())
		}
		fmt.Fprintf(tw, "%s\t%s\t%.6f\t%.6f\t%.2f%%\t%d\t%s\t%s\n",
			o.Algorithm, o.Status(), res.BestCost, res.InitialCost,
			res.Record().Improvement()*100, res.Iterations, res.Duration.Round(time.Millisecond), file)
	}
	tw.Flush()

	if best := runner.Best(outcomes); best != nil {
		fmt.Fprintf(w, "\n最优: %s 代价 %.6f\n%s\n", best.Algorithm, best.BestCost, best.BestTour)
	}
}
