// LuJing 路径搜索服务
// 主程序入口

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/paiban/lujing/internal/config"
	"github.com/paiban/lujing/internal/database"
	"github.com/paiban/lujing/internal/handler"
	"github.com/paiban/lujing/internal/metrics"
	"github.com/paiban/lujing/internal/middleware"
	"github.com/paiban/lujing/internal/repository"
	"github.com/paiban/lujing/pkg/logger"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", os.Getenv("LUJING_CONFIG"), "YAML 配置文件路径")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logger.Init(logger.Config{
		Level:  cfg.App.LogLevel,
		Format: cfg.App.LogFormat,
	})
	log := logger.Get()

	// 打印版本信息
	fmt.Printf("LuJing 路径搜索服务 v%s\n", Version)
	fmt.Printf("Build: %s (%s)\n", BuildTime, GitCommit)
	fmt.Println()

	// 运行历史
	var db *database.DB
	opts := []handler.SolveOption{
		handler.WithLogger(log),
		handler.WithObserver(metrics.NewSearchObserver(metrics.GetRegistry())),
	}
	if cfg.Database.Enabled {
		db, err = database.New(&cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("连接数据库失败")
		}
		defer db.Close()

		if err := db.Migrate(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("数据库迁移失败")
		}
		opts = append(opts, handler.WithStore(repository.NewRunRepository(db)))
	}

	if cfg.IsProduction() && len(cfg.API.APIKeys) == 0 {
		log.Warn().Msg("生产环境未配置 API 密钥，接口不做认证")
	}

	solveHandler := handler.NewSolveHandler(cfg.API, cfg.Search, opts...)

	// 创建 HTTP 服务器
	mux := http.NewServeMux()

	// ========================================
	// 系统端点
	// ========================================

	// 健康检查端点
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if db != nil {
			if err := db.Health(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				fmt.Fprintf(w, `{"status":"degraded","service":"lujing","database":%q}`, err.Error())
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"lujing"}`))
	})

	// 版本信息端点
	mux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"version":"%s","build_time":"%s","git_commit":"%s"}`, Version, BuildTime, GitCommit)
	})

	// ========================================
	// API v1 端点
	// ========================================

	mux.HandleFunc("GET /api/v1/{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{
			"message": "LuJing 路径搜索 API v1",
			"endpoints": {
				"solve": "POST /api/v1/solve",
				"runs": "GET /api/v1/runs",
				"run": "GET /api/v1/runs/{id}"
			}
		}`))
	})

	solveHandler.Routes(mux)

	// ========================================
	// 监控端点
	// ========================================

	if cfg.Metrics.Enabled {
		mux.Handle("GET "+cfg.Metrics.Path, metrics.Handler())
	}

	// ========================================
	// 中间件
	// ========================================

	// 中间件执行顺序：requestID -> recovery -> rateLimit -> cors -> apiKey -> logging -> handler
	mws := []middleware.Middleware{
		middleware.RequestID,
		middleware.Recovery(log),
		middleware.RateLimit(middleware.NewLimiter(cfg.API.RateLimit, cfg.API.Burst)),
	}
	if cfg.API.CORS.Enabled {
		mws = append(mws, middleware.CORS(cfg.API.CORS.Origins))
	}
	mws = append(mws,
		middleware.SecurityHeaders,
		middleware.APIKey(cfg.API.APIKeys, "/health", "/version", cfg.Metrics.Path),
		middleware.Logging(log),
	)
	root := middleware.Chain(mux, mws...)

	addr := fmt.Sprintf(":%d", cfg.App.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      root,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.API.Timeout,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if db != nil {
		go reportDBStats(ctx, db)
	}

	// 启动服务器（非阻塞）
	go func() {
		log.Info().
			Str("app", cfg.App.Name).
			Int("port", cfg.App.Port).
			Str("version", Version).
			Str("env", cfg.App.Env).
			Bool("history", db != nil).
			Str("api_docs", fmt.Sprintf("http://localhost%s/api/v1/", addr)).
			Msg("服务器启动")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("服务器启动失败")
			os.Exit(1)
		}
	}()

	// 优雅关闭
	<-ctx.Done()
	log.Info().Msg("正在关闭服务器...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("服务器关闭失败")
		os.Exit(1)
	}

	log.Info().Msg("服务器已关闭")
}

// loadConfig 加载并校验配置
func loadConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// reportDBStats 定期上报连接池指标
func reportDBStats(ctx context.Context, db *database.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := db.Stats()
			metrics.SetDBConnections(s.OpenConnections, s.InUse, s.Idle)
		}
	}
}
