// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"
)

// Repository 通用仓储接口
type Repository[T any] interface {
	Create(ctx context.Context, entity *T) error
	GetByID(ctx context.Context, id string) (*T, error)
	List(ctx context.Context, filter ListFilter) ([]*T, int, error)
}

// ListFilter 列表查询过滤器
type ListFilter struct {
	Algorithm string `json:"algorithm,omitempty"`
	Cities    int    `json:"cities,omitempty"` // 0 表示不限
	Offset    int    `json:"offset"`
	Limit     int    `json:"limit"`
	OrderBy   string `json:"order_by,omitempty"`
	OrderDir  string `json:"order_dir,omitempty"` // asc/desc
}

// DefaultListFilter 返回默认过滤器
func DefaultListFilter() ListFilter {
	return ListFilter{
		Offset:   0,
		Limit:    20,
		OrderBy:  "finished_at",
		OrderDir: "desc",
	}
}

// WithLimit 设置限制
func (f ListFilter) WithLimit(limit int) ListFilter {
	f.Limit = limit
	return f
}

// WithOffset 设置偏移
func (f ListFilter) WithOffset(offset int) ListFilter {
	f.Offset = offset
	return f
}

// WithAlgorithm 设置算法过滤
func (f ListFilter) WithAlgorithm(alg string) ListFilter {
	f.Algorithm = alg
	return f
}

// sortable 允许排序的列
var sortable = map[string]bool{
	"finished_at": true,
	"best_cost":   true,
	"cities":      true,
	"iterations":  true,
}

// normalize 修正非法的分页与排序参数
func (f ListFilter) normalize() ListFilter {
	def := DefaultListFilter()
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = def.Limit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	if !sortable[f.OrderBy] {
		f.OrderBy = def.OrderBy
	}
	if f.OrderDir != "asc" {
		f.OrderDir = "desc"
	}
	return f
}

// DB 数据库接口
type DB interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Scanner 行扫描接口
type Scanner interface {
	Scan(dest ...interface{}) error
}
