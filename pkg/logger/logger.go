// Package logger 提供统一的日志框架
package logger

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

// Level 日志级别
type Level = zerolog.Level

const (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
	FatalLevel = zerolog.FatalLevel
)

// Config 日志配置
type Config struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"` // json/console
	Output     string `yaml:"output" json:"output"` // stdout/stderr/file
	FilePath   string `yaml:"file_path,omitempty" json:"file_path,omitempty"`
	TimeFormat string `yaml:"time_format,omitempty" json:"time_format,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	}
}

// Init 初始化日志器
func Init(cfg Config) {
	once.Do(func() {
		level := parseLevel(cfg.Level)
		zerolog.SetGlobalLevel(level)

		var output io.Writer
		switch cfg.Output {
		case "stderr":
			output = os.Stderr
		case "file":
			output = os.Stdout
			if cfg.FilePath != "" {
				if f, err := os.OpenFile(cfg.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err == nil {
					output = f
				}
			}
		default:
			output = os.Stdout
		}

		if cfg.Format == "console" {
			timeFormat := cfg.TimeFormat
			if timeFormat == "" {
				timeFormat = time.RFC3339
			}
			output = zerolog.ConsoleWriter{
				Out:        output,
				TimeFormat: timeFormat,
			}
		}

		logger = zerolog.New(output).With().Timestamp().Logger()
	})
}

// parseLevel 解析日志级别
func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// Get 获取日志器，未初始化时使用默认配置
func Get() *zerolog.Logger {
	Init(DefaultConfig())
	return &logger
}

// Nop 返回丢弃所有输出的日志器，测试中使用
func Nop() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// WithContext 从上下文创建日志器
func WithContext(ctx context.Context) *zerolog.Logger {
	l := Get().With().Logger()

	if reqID, ok := ctx.Value(RequestIDKey).(string); ok {
		l = l.With().Str("request_id", reqID).Logger()
	}

	return &l
}

type ctxKey string

// RequestIDKey 请求ID在 context 中的键
const RequestIDKey ctxKey = "request_id"

// Debug 记录调试日志
func Debug() *zerolog.Event {
	return Get().Debug()
}

// Info 记录信息日志
func Info() *zerolog.Event {
	return Get().Info()
}

// Warn 记录警告日志
func Warn() *zerolog.Event {
	return Get().Warn()
}

// Error 记录错误日志
func Error() *zerolog.Event {
	return Get().Error()
}

// Fatal 记录致命错误日志
func Fatal() *zerolog.Event {
	return Get().Fatal()
}

// WithError 添加错误信息
func WithError(err error) *zerolog.Event {
	return Get().Error().Err(err)
}

// WithField 添加字段
func WithField(key string, value interface{}) *zerolog.Logger {
	l := Get().With().Interface(key, value).Logger()
	return &l
}

// SearchLogger 搜索引擎专用日志器
type SearchLogger struct {
	base *zerolog.Logger
}

// NewSearchLogger 创建搜索引擎日志器，base 为空时使用全局日志器
func NewSearchLogger(base *zerolog.Logger, algorithm string) *SearchLogger {
	if base == nil {
		base = Get()
	}
	l := base.With().Str("component", "optimizer").Str("algorithm", algorithm).Logger()
	return &SearchLogger{base: &l}
}

// Logger 返回底层 zerolog 日志器
func (l *SearchLogger) Logger() *zerolog.Logger {
	return l.base
}

// StartRun 记录搜索开始
func (l *SearchLogger) StartRun(cities int, initialCost float64, deadline time.Duration) {
	l.base.Info().
		Int("cities", cities).
		Float64("initial_cost", initialCost).
		Dur("deadline", deadline).
		Msg("开始搜索")
}

// NewBest 记录发现更优解
func (l *SearchLogger) NewBest(iteration int, cost float64) {
	l.base.Debug().
		Int("iteration", iteration).
		Float64("best_cost", cost).
		Msg("发现更优解")
}

// SinkFailure 记录外部输出失败，搜索继续
func (l *SearchLogger) SinkFailure(sink string, err error) {
	l.base.Warn().
		Err(err).
		Str("sink", sink).
		Msg("输出端写入失败，继续搜索")
}

// RunAborted 记录搜索因不变量被破坏而中止
func (l *SearchLogger) RunAborted(err error) {
	l.base.Error().Err(err).Msg("搜索中止")
}

// RunComplete 记录搜索完成
func (l *SearchLogger) RunComplete(iterations int, duration time.Duration, bestCost float64) {
	l.base.Info().
		Int("iterations", iterations).
		Dur("duration", duration).
		Float64("best_cost", bestCost).
		Msg("搜索完成")
}
