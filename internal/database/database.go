// Package database 提供数据库连接和管理
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/paiban/lujing/internal/config"
	"github.com/paiban/lujing/pkg/logger"

	_ "github.com/lib/pq"  // PostgreSQL 驱动
	_ "modernc.org/sqlite" // SQLite 驱动
)

// slowQuery 慢查询阈值
const slowQuery = 100 * time.Millisecond

// DB 数据库连接封装
type DB struct {
	*sql.DB
	cfg *config.DatabaseConfig
}

// New 创建新的数据库连接
func New(cfg *config.DatabaseConfig) (*DB, error) {
	var driver string
	switch cfg.Driver {
	case config.DriverPostgres:
		driver = "postgres"
	case config.DriverSQLite:
		driver = "sqlite"
	default:
		return nil, fmt.Errorf("不支持的数据库驱动: %s", cfg.Driver)
	}

	db, err := sql.Open(driver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("打开数据库连接失败: %w", err)
	}

	// 配置连接池
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	if cfg.Driver == config.DriverSQLite {
		// SQLite 单写者，内存库每个连接都是独立数据库
		db.SetMaxOpenConns(1)
		db.SetConnMaxLifetime(0)
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("数据库连接测试失败: %w", err)
	}

	event := logger.Info().Str("driver", cfg.Driver)
	if cfg.Driver == config.DriverSQLite {
		event = event.Str("path", cfg.Path)
	} else {
		event = event.Str("host", cfg.Host).Int("port", cfg.Port).Str("database", cfg.Name)
	}
	event.Msg("数据库连接成功")

	return &DB{DB: db, cfg: cfg}, nil
}

// Driver 返回驱动名
func (db *DB) Driver() string {
	return db.cfg.Driver
}

// Close 关闭数据库连接
func (db *DB) Close() error {
	if db.DB != nil {
		logger.Info().Msg("关闭数据库连接")
		return db.DB.Close()
	}
	return nil
}

// Health 健康检查
func (db *DB) Health(ctx context.Context) error {
	return db.PingContext(ctx)
}

// Transaction 执行事务
func (db *DB) Transaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开始事务失败: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("事务回滚失败: %v (原始错误: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("事务提交失败: %w", err)
	}

	return nil
}

// Stats 返回数据库统计信息
func (db *DB) Stats() sql.DBStats {
	return db.DB.Stats()
}

// ExecContext 执行SQL语句，$n 占位符按驱动改写
func (db *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	query = db.Rebind(query)
	start := time.Now()
	result, err := db.DB.ExecContext(ctx, query, args...)
	logSlow(query, time.Since(start))
	return result, err
}

// QueryContext 执行查询
func (db *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	query = db.Rebind(query)
	start := time.Now()
	rows, err := db.DB.QueryContext(ctx, query, args...)
	logSlow(query, time.Since(start))
	return rows, err
}

// QueryRowContext 执行单行查询
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return db.DB.QueryRowContext(ctx, db.Rebind(query), args...)
}

// Rebind 将 $n 占位符改写为当前驱动的格式
func (db *DB) Rebind(query string) string {
	if db.cfg.Driver != config.DriverSQLite {
		return query
	}
	return Rebind(query)
}

// Rebind 将 $1..$n 改写为 ?1..?n
func Rebind(query string) string {
	var sb strings.Builder
	sb.Grow(len(query))
	for i := 0; i < len(query); i++ {
		c := query[i]
		if c == '$' && i+1 < len(query) && query[i+1] >= '0' && query[i+1] <= '9' {
			sb.WriteByte('?')
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

// Migrate 创建表结构
func (db *DB) Migrate(ctx context.Context) error {
	for i, stmt := range schema(db.cfg.Driver) {
		if _, err := db.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("迁移第 %d 步失败: %w", i+1, err)
		}
	}
	logger.Info().Str("driver", db.cfg.Driver).Msg("数据库迁移完成")
	return nil
}

// schema 返回建表语句
func schema(driver string) []string {
	ts := "TIMESTAMPTZ"
	if driver == config.DriverSQLite {
		ts = "TIMESTAMP"
	}
	return []string{
		`CREATE TABLE IF NOT EXISTS search_runs (
			id            TEXT PRIMARY KEY,
			algorithm     TEXT NOT NULL,
			cities        INTEGER NOT NULL,
			best_cost     DOUBLE PRECISION NOT NULL,
			initial_cost  DOUBLE PRECISION NOT NULL,
			iterations    INTEGER NOT NULL,
			duration_ms   BIGINT NOT NULL,
			best_tour     TEXT NOT NULL,
			finished_at   ` + ts + ` NOT NULL,
			created_at    ` + ts + ` NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_search_runs_algorithm ON search_runs (algorithm, best_cost)`,
		`CREATE INDEX IF NOT EXISTS idx_search_runs_finished ON search_runs (finished_at)`,
	}
}

// logSlow 记录慢SQL
func logSlow(query string, duration time.Duration) {
	if duration > slowQuery {
		logger.Warn().
			Str("query", truncateQuery(query)).
			Dur("duration", duration).
			Msg("慢SQL查询")
	}
}

// truncateQuery 截断长查询
func truncateQuery(query string) string {
	if len(query) > 200 {
		return query[:200] + "..."
	}
	return query
}
