// lujing-solve 命令行求解工具
// 读取距离矩阵，并行运行模拟退火与禁忌搜索，输出进度并保存最优路线

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/paiban/lujing/internal/config"
	"github.com/paiban/lujing/pkg/logger"
)

func main() {
	var (
		configPath = flag.String("config", os.Getenv("LUJING_CONFIG"), "YAML 配置文件路径")
		matrixPath = flag.String("matrix", "", "距离矩阵文件（YAML/JSON 或 TSPLIB .tsp），覆盖配置")
		algorithms = flag.String("alg", "", "运行的算法，逗号分隔：sa,ts")
		duration   = flag.Duration("duration", 0, "每个算法的运行时限，覆盖配置")
		seed       = flag.Int64("seed", 0, "随机种子，0 表示按时钟")
		sink       = flag.String("sink", "", "进度输出端：log|tcp|none")
		tcpAddr    = flag.String("tcp", "", "TCP 进度接收地址")
		outDir     = flag.String("out", "", "结果目录")
		show       = flag.Bool("show", false, "只显示已保存的最优路线")
	)
	flag.Parse()

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	applyFlags(cfg, flagOverrides{
		matrix:     *matrixPath,
		algorithms: *algorithms,
		duration:   *duration,
		seed:       *seed,
		sink:       *sink,
		tcpAddr:    *tcpAddr,
		outDir:     *outDir,
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "配置无效: %v\n", err)
		os.Exit(2)
	}

	logger.Init(logger.Config{
		Level:  cfg.App.LogLevel,
		Format: cfg.App.LogFormat,
		Output: "stderr",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := &app{cfg: cfg, log: logger.Get(), out: os.Stdout}
	if *show {
		err = app.show(ctx)
	} else {
		err = app.solve(ctx)
	}
	if err != nil {
		logger.Error().Err(err).Msg("执行失败")
		os.Exit(1)
	}
}

// flagOverrides 命令行覆盖项，零值表示不覆盖
type flagOverrides struct {
	matrix     string
	algorithms string
	duration   time.Duration
	seed       int64
	sink       string
	tcpAddr    string
	outDir     string
}

// applyFlags 将命令行参数覆盖到配置
func applyFlags(cfg *config.Config, f flagOverrides) {
	if f.matrix != "" {
		cfg.Search.MatrixPath = f.matrix
	}
	if f.algorithms != "" {
		cfg.Search.RunAnnealing, cfg.Search.RunTabu = false, false
		for _, name := range strings.Split(f.algorithms, ",") {
			switch strings.ToLower(strings.TrimSpace(name)) {
			case "sa":
				cfg.Search.RunAnnealing = true
			case "ts":
				cfg.Search.RunTabu = true
			}
		}
	}
	if f.duration > 0 {
		cfg.Search.Annealing.Duration = f.duration
		cfg.Search.Tabu.Duration = f.duration
	}
	if f.seed != 0 {
		cfg.Search.Seed = f.seed
	}
	if f.sink != "" {
		cfg.Progress.Sink = f.sink
	}
	if f.tcpAddr != "" {
		cfg.Progress.TCPAddress = f.tcpAddr
	}
	if f.outDir != "" {
		cfg.Results.Dir = f.outDir
	}
}
