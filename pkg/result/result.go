// Package result 持久化搜索得到的最优路线
package result

import (
	"context"
	"errors"
	"time"

	"github.com/paiban/lujing/pkg/tour"
)

//go:generate mockgen -destination=mock_result/mock_publisher.go -package=mock_result github.com/paiban/lujing/pkg/result Publisher

// Record 一次搜索运行的结果
type Record struct {
	RunID       string        `json:"run_id"`
	Algorithm   string        `json:"algorithm"`
	Cities      int           `json:"cities"`
	BestTour    tour.Tour     `json:"best_tour"`
	BestCost    float64       `json:"best_cost"`
	InitialCost float64       `json:"initial_cost"`
	Iterations  int           `json:"iterations"`
	Duration    time.Duration `json:"duration"`
	FinishedAt  time.Time     `json:"finished_at"`
}

// Improvement 相对初始解的改进比例
func (r *Record) Improvement() float64 {
	if r.InitialCost <= 0 {
		return 0
	}
	return (r.InitialCost - r.BestCost) / r.InitialCost
}

// Publisher 结果发布端
type Publisher interface {
	Publish(ctx context.Context, rec *Record) error
}

// PublisherFunc 函数适配为 Publisher
type PublisherFunc func(ctx context.Context, rec *Record) error

// Publish 实现 Publisher
func (f PublisherFunc) Publish(ctx context.Context, rec *Record) error {
	return f(ctx, rec)
}

type multiPublisher []Publisher

// Multi 组合多个发布端，依次发布并合并错误
func Multi(publishers ...Publisher) Publisher {
	flat := make(multiPublisher, 0, len(publishers))
	for _, p := range publishers {
		if p != nil {
			flat = append(flat, p)
		}
	}
	return flat
}

// Publish 实现 Publisher
func (m multiPublisher) Publish(ctx context.Context, rec *Record) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
