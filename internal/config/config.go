// Package config 提供配置管理
package config

import (
	"encoding"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/paiban/lujing/pkg/errors"
	"github.com/paiban/lujing/pkg/optimizer"
)

// Config 应用配置
type Config struct {
	App      AppConfig      `yaml:"app"`
	Database DatabaseConfig `yaml:"database"`
	API      APIConfig      `yaml:"api"`
	Search   SearchConfig   `yaml:"search"`
	Progress ProgressConfig `yaml:"progress"`
	Results  ResultsConfig  `yaml:"results"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name      string `yaml:"name"`
	Env       string `yaml:"env"`
	Port      int    `yaml:"port"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // json/console
}

// 数据库驱动
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DatabaseConfig 数据库配置，未启用时运行历史只写入文件与 Badger
type DatabaseConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Driver          string        `yaml:"driver"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Name            string        `yaml:"name"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"ssl_mode"`
	Path            string        `yaml:"path"` // sqlite 文件路径，":memory:" 为内存库
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// DSN 返回数据库连接字符串
func (c *DatabaseConfig) DSN() string {
	if c.Driver == DriverSQLite {
		return c.Path
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// APIConfig API配置
type APIConfig struct {
	RateLimit    int           `yaml:"rate_limit"` // 每秒请求数
	Burst        int           `yaml:"burst"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxCities    int           `yaml:"max_cities"`
	MaxDuration  time.Duration `yaml:"max_duration"`   // 单次求解允许的最长时限
	MaxNeighbors int           `yaml:"max_neighbors"`  // 禁忌搜索每轮候选数上限
	MaxTabuLimit int           `yaml:"max_tabu_limit"` // 自定义禁忌表容量上限
	APIKeys      []string      `yaml:"api_keys"`       // 为空时不认证
	CORS         CORSConfig    `yaml:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	Enabled bool     `yaml:"enabled"`
	Origins []string `yaml:"origins"`
}

// SearchConfig 搜索配置
type SearchConfig struct {
	MatrixPath   string                    `yaml:"matrix_path"`
	Seed         int64                     `yaml:"seed"`
	RunAnnealing bool                      `yaml:"run_annealing"`
	RunTabu      bool                      `yaml:"run_tabu"`
	Annealing    optimizer.AnnealingConfig `yaml:"annealing"`
	Tabu         optimizer.TabuConfig      `yaml:"tabu"`
}

// AnnealingConfig 返回模拟退火配置，未启用时为 nil
func (c *SearchConfig) AnnealingConfig() *optimizer.AnnealingConfig {
	if !c.RunAnnealing {
		return nil
	}
	cfg := c.Annealing
	return &cfg
}

// TabuConfig 返回禁忌搜索配置，未启用时为 nil
func (c *SearchConfig) TabuConfig() *optimizer.TabuConfig {
	if !c.RunTabu {
		return nil
	}
	cfg := c.Tabu
	return &cfg
}

// 进度输出端
const (
	SinkNone = "none"
	SinkLog  = "log"
	SinkTCP  = "tcp"
)

// ProgressConfig 进度输出配置
type ProgressConfig struct {
	Sink         string        `yaml:"sink"`
	TCPAddress   string        `yaml:"tcp_address"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// ResultsConfig 结果持久化配置
type ResultsConfig struct {
	Dir           string `yaml:"dir"`
	BadgerEnabled bool   `yaml:"badger_enabled"`
	BadgerDir     string `yaml:"badger_dir"` // 为空时使用内存模式
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	sa := optimizer.DefaultAnnealingConfig()
	ts := optimizer.DefaultTabuConfig()

	duration := getEnvDuration("SEARCH_DURATION", sa.Duration)
	interval := getEnvDuration("SEARCH_REPORT_INTERVAL", sa.ReportInterval)
	initial := getEnvText("SEARCH_INITIAL_SOLUTION", sa.InitialSolution)

	sa.Duration, sa.ReportInterval, sa.InitialSolution = duration, interval, initial
	sa.Neighbor = getEnvText("SA_NEIGHBOR", sa.Neighbor)
	sa.InitialTemp = getEnvText("SA_INITIAL_TEMP", sa.InitialTemp)
	sa.Decay = getEnvText("SA_DECAY", sa.Decay)
	sa.StepsPerTemp = getEnvInt("SA_STEPS_PER_TEMP", sa.StepsPerTemp)
	sa.Alpha = getEnvFloat("SA_ALPHA", sa.Alpha)
	sa.Beta = getEnvFloat("SA_BETA", sa.Beta)
	sa.FinalTemperature = getEnvFloat("SA_FINAL_TEMPERATURE", sa.FinalTemperature)

	ts.Duration, ts.ReportInterval, ts.InitialSolution = duration, interval, initial
	ts.Neighbor = getEnvText("TS_NEIGHBOR", ts.Neighbor)
	ts.MaxNeighbors = getEnvInt("TS_MAX_NEIGHBORS", ts.MaxNeighbors)
	ts.LimitMethod = getEnvText("TS_LIMIT_METHOD", ts.LimitMethod)
	ts.CustomLimit = getEnvInt("TS_CUSTOM_LIMIT", ts.CustomLimit)
	ts.Tenure = getEnvText("TS_TENURE", ts.Tenure)
	ts.ConstantTenure = getEnvInt("TS_CONSTANT_TENURE", ts.ConstantTenure)
	ts.TenureMin = getEnvInt("TS_TENURE_MIN", ts.TenureMin)
	ts.TenureMax = getEnvInt("TS_TENURE_MAX", ts.TenureMax)

	cfg := &Config{
		App: AppConfig{
			Name:      getEnv("APP_NAME", "lujing"),
			Env:       getEnv("APP_ENV", "development"),
			Port:      getEnvInt("APP_PORT", 7012),
			LogLevel:  getEnv("APP_LOG_LEVEL", "info"),
			LogFormat: getEnv("APP_LOG_FORMAT", "console"),
		},
		Database: DatabaseConfig{
			Enabled:         getEnvBool("DB_ENABLED", false),
			Driver:          getEnv("DB_DRIVER", DriverPostgres),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnv("DB_NAME", "lujing"),
			User:            getEnv("DB_USER", "lujing"),
			Password:        getEnv("DB_PASSWORD", "lujing123"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			Path:            getEnv("DB_PATH", "data/lujing.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		API: APIConfig{
			RateLimit:    getEnvInt("API_RATE_LIMIT", 100),
			Burst:        getEnvInt("API_RATE_BURST", 20),
			Timeout:      getEnvDuration("API_TIMEOUT", 5*time.Minute),
			MaxCities:    getEnvInt("API_MAX_CITIES", 2000),
			MaxDuration:  getEnvDuration("API_MAX_DURATION", 2*time.Minute),
			MaxNeighbors: getEnvInt("API_MAX_NEIGHBORS", 1000),
			MaxTabuLimit: getEnvInt("API_MAX_TABU_LIMIT", 1_000_000),
			APIKeys:      getEnvList("API_KEYS"),
			CORS: CORSConfig{
				Enabled: getEnvBool("API_CORS_ENABLED", true),
				Origins: []string{"*"},
			},
		},
		Search: SearchConfig{
			MatrixPath:   getEnv("SEARCH_MATRIX", "data/matrix.yaml"),
			Seed:         getEnvInt64("SEARCH_SEED", 0),
			RunAnnealing: getEnvBool("SEARCH_RUN_SA", true),
			RunTabu:      getEnvBool("SEARCH_RUN_TS", true),
			Annealing:    sa,
			Tabu:         ts,
		},
		Progress: ProgressConfig{
			Sink:         getEnv("PROGRESS_SINK", SinkLog),
			TCPAddress:   getEnv("PROGRESS_TCP_ADDRESS", "127.0.0.1:5555"),
			WriteTimeout: getEnvDuration("PROGRESS_WRITE_TIMEOUT", time.Second),
		},
		Results: ResultsConfig{
			Dir:           getEnv("RESULTS_DIR", "data/best_solutions"),
			BadgerEnabled: getEnvBool("RESULTS_BADGER_ENABLED", false),
			BadgerDir:     getEnv("RESULTS_BADGER_DIR", "data/history"),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
	}

	return cfg, nil
}

// LoadFile 先从环境变量加载，再用 YAML 文件覆盖
func LoadFile(path string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidConfig, "配置文件格式错误")
	}

	return cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	ve := &errors.ValidationErrors{}

	if c.App.Port <= 0 || c.App.Port > 65535 {
		ve.Add("app.port", fmt.Sprintf("端口 %d 无效", c.App.Port))
	}
	if c.Database.Enabled && c.Database.Driver != DriverPostgres && c.Database.Driver != DriverSQLite {
		ve.Add("database.driver", fmt.Sprintf("不支持的驱动 %q", c.Database.Driver))
	}
	switch c.Progress.Sink {
	case SinkNone, SinkLog:
	case SinkTCP:
		if c.Progress.TCPAddress == "" {
			ve.Add("progress.tcp_address", "TCP 输出端需要地址")
		}
	default:
		ve.Add("progress.sink", fmt.Sprintf("未知输出端 %q", c.Progress.Sink))
	}
	if c.API.RateLimit < 0 {
		ve.Add("api.rate_limit", "不能为负")
	}
	if c.API.MaxNeighbors < 0 {
		ve.Add("api.max_neighbors", "不能为负")
	}
	if c.API.MaxTabuLimit < 0 {
		ve.Add("api.max_tabu_limit", "不能为负")
	}
	if c.API.Timeout > 0 && c.API.MaxDuration >= c.API.Timeout {
		ve.Add("api.max_duration", "必须小于 api.timeout")
	}
	if !c.Search.RunAnnealing && !c.Search.RunTabu {
		ve.Add("search", "至少启用一个算法")
	}
	if c.Search.RunAnnealing {
		addNested(ve, "search.annealing", c.Search.Annealing.Validate())
	}
	if c.Search.RunTabu {
		addNested(ve, "search.tabu", c.Search.Tabu.Validate())
	}

	return ve.Err(errors.CodeInvalidConfig)
}

// addNested 合并子配置的校验错误
func addNested(ve *errors.ValidationErrors, prefix string, err error) {
	if err == nil {
		return
	}
	if appErr, ok := err.(*errors.AppError); ok && len(appErr.Fields) > 0 {
		for field, msg := range appErr.Fields {
			ve.Add(prefix+"."+field, fmt.Sprint(msg))
		}
		return
	}
	ve.Add(prefix, err.Error())
}

// IsDevelopment 检查是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// IsTest 检查是否为测试环境
func (c *Config) IsTest() bool {
	return c.App.Env == "test"
}

// 辅助函数
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvText 解析实现了 encoding.TextUnmarshaler 的枚举值
func getEnvText[T any, P interface {
	*T
	encoding.TextUnmarshaler
}](key string, defaultValue T) T {
	if value := os.Getenv(key); value != "" {
		var v T
		if err := P(&v).UnmarshalText([]byte(value)); err == nil {
			return v
		}
	}
	return defaultValue
}
