package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/paiban/lujing/pkg/errors"
	"github.com/paiban/lujing/pkg/result"
)

var _ Repository[result.Record] = (*RunRepository)(nil)
var _ result.Publisher = (*RunRepository)(nil)

const runColumns = `id, algorithm, cities, best_cost, initial_cost, iterations, duration_ms, best_tour, finished_at`

// RunRepository 搜索运行记录仓储
type RunRepository struct {
	db DB
}

// NewRunRepository 创建运行记录仓储
func NewRunRepository(db DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create 保存运行记录
func (r *RunRepository) Create(ctx context.Context, rec *result.Record) error {
	if rec.RunID == "" {
		rec.RunID = uuid.New().String()
	}
	if rec.FinishedAt.IsZero() {
		rec.FinishedAt = time.Now()
	}

	tourJSON, err := json.Marshal(rec.BestTour)
	if err != nil {
		return fmt.Errorf("序列化路线失败: %w", err)
	}

	query := `
		INSERT INTO search_runs (
			id, algorithm, cities, best_cost, initial_cost, iterations,
			duration_ms, best_tour, finished_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = r.db.ExecContext(ctx, query,
		rec.RunID, rec.Algorithm, rec.Cities, rec.BestCost, rec.InitialCost, rec.Iterations,
		rec.Duration.Milliseconds(), string(tourJSON), rec.FinishedAt.UTC(), time.Now().UTC(),
	)
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "保存运行记录失败")
	}

	return nil
}

// Publish 实现 result.Publisher
func (r *RunRepository) Publish(ctx context.Context, rec *result.Record) error {
	return r.Create(ctx, rec)
}

// GetByID 根据ID获取运行记录
func (r *RunRepository) GetByID(ctx context.Context, id string) (*result.Record, error) {
	query := `SELECT ` + runColumns + ` FROM search_runs WHERE id = $1`

	rec, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("运行记录", id)
	}
	return rec, err
}

// Best 返回某算法代价最低的记录，cities 为 0 时不限城市数
func (r *RunRepository) Best(ctx context.Context, algorithm string, cities int) (*result.Record, error) {
	filter := ListFilter{
		Algorithm: algorithm,
		Cities:    cities,
		Limit:     1,
		OrderBy:   "best_cost",
		OrderDir:  "asc",
	}
	runs, _, err := r.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, errors.NotFound("运行记录", algorithm)
	}
	return runs[0], nil
}

// List 分页查询运行记录
func (r *RunRepository) List(ctx context.Context, filter ListFilter) ([]*result.Record, int, error) {
	filter = filter.normalize()

	conditions := []string{"1 = 1"}
	var args []interface{}
	argIndex := 1

	if filter.Algorithm != "" {
		conditions = append(conditions, fmt.Sprintf("algorithm = $%d", argIndex))
		args = append(args, filter.Algorithm)
		argIndex++
	}

	if filter.Cities > 0 {
		conditions = append(conditions, fmt.Sprintf("cities = $%d", argIndex))
		args = append(args, filter.Cities)
		argIndex++
	}

	whereClause := strings.Join(conditions, " AND ")

	// 查询总数
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM search_runs WHERE %s", whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, errors.CodeDatabaseError, "查询总数失败")
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM search_runs
		WHERE %s
		ORDER BY %s %s, id
		LIMIT $%d OFFSET $%d
	`, runColumns, whereClause, filter.OrderBy, filter.OrderDir, argIndex, argIndex+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.CodeDatabaseError, "查询列表失败")
	}
	defer rows.Close()

	var runs []*result.Record
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, 0, err
		}
		runs = append(runs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, errors.CodeDatabaseError, "遍历结果失败")
	}

	return runs, total, nil
}

// scanRun 扫描一行运行记录
func scanRun(row Scanner) (*result.Record, error) {
	var (
		rec        result.Record
		durationMS int64
		tourJSON   string
	)

	err := row.Scan(
		&rec.RunID, &rec.Algorithm, &rec.Cities, &rec.BestCost, &rec.InitialCost,
		&rec.Iterations, &durationMS, &tourJSON, &rec.FinishedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "扫描运行记录失败")
	}

	if err := json.Unmarshal([]byte(tourJSON), &rec.BestTour); err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "解析路线失败")
	}
	rec.Duration = time.Duration(durationMS) * time.Millisecond

	return &rec, nil
}
