package progress

import (
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

//go:generate mockgen -destination=mock_progress/mock_reporter.go -package=mock_progress github.com/paiban/lujing/pkg/progress Reporter

// Reporter 进度输出端
// Done 在搜索循环结束后、结果持久化之前恰好调用一次
type Reporter interface {
	Report(s Snapshot) error
	Done(algorithm string) error
}

// Nop 丢弃所有进度
type Nop struct{}

// Report 实现 Reporter
func (Nop) Report(Snapshot) error { return nil }

// Done 实现 Reporter
func (Nop) Done(string) error { return nil }

// Throttle 限制快照发送频率
// 每次运行使用独立实例
type Throttle struct {
	s *rate.Sometimes
}

// NewThrottle 创建节流器，interval <= 0 时不节流
func NewThrottle(interval time.Duration) *Throttle {
	if interval <= 0 {
		return &Throttle{s: &rate.Sometimes{Every: 1}}
	}
	return &Throttle{s: &rate.Sometimes{Interval: interval}}
}

// Do 第一次调用必然执行，之后距上次执行满 interval 才执行
func (t *Throttle) Do(f func()) {
	t.s.Do(f)
}

// LogReporter 将进度写入 zerolog
type LogReporter struct {
	log *zerolog.Logger
}

// NewLogReporter 创建日志输出端
func NewLogReporter(log *zerolog.Logger) *LogReporter {
	return &LogReporter{log: log}
}

// Report 实现 Reporter
func (r *LogReporter) Report(s Snapshot) error {
	r.log.Debug().
		Str("algorithm", s.Algorithm).
		Dur("elapsed", s.Elapsed).
		Int("iteration", s.Iteration).
		Float64("best_cost", s.BestCost).
		Float64("current_cost", s.CurrentCost).
		Float64("temperature", s.Temperature).
		Msg("搜索进度")
	return nil
}

// Done 实现 Reporter
func (r *LogReporter) Done(algorithm string) error {
	r.log.Info().Str("algorithm", algorithm).Msg(EOFMessage)
	return nil
}

// multiReporter 扇出到多个输出端
type multiReporter []Reporter

// Multi 组合多个输出端，任一失败不影响其他输出端
func Multi(reporters ...Reporter) Reporter {
	flat := make(multiReporter, 0, len(reporters))
	for _, r := range reporters {
		if r != nil {
			flat = append(flat, r)
		}
	}
	return flat
}

// Report 实现 Reporter
func (m multiReporter) Report(s Snapshot) error {
	var errs []error
	for _, r := range m {
		if err := r.Report(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Done 实现 Reporter
func (m multiReporter) Done(algorithm string) error {
	var errs []error
	for _, r := range m {
		if err := r.Done(algorithm); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
