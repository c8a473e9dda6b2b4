package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/paiban/lujing/internal/config"
	"github.com/paiban/lujing/internal/repository"
	"github.com/paiban/lujing/pkg/errors"
	"github.com/paiban/lujing/pkg/logger"
	"github.com/paiban/lujing/pkg/optimizer"
	"github.com/paiban/lujing/pkg/result"
	"github.com/paiban/lujing/pkg/runner"
	"github.com/paiban/lujing/pkg/tour"
)

// maxBodyBytes 请求体上限
const maxBodyBytes = 32 << 20

// RunStore 运行历史存储
type RunStore interface {
	result.Publisher
	GetByID(ctx context.Context, id string) (*result.Record, error)
	List(ctx context.Context, filter repository.ListFilter) ([]*result.Record, int, error)
}

// SolveHandler 求解处理器
type SolveHandler struct {
	limits   config.APIConfig
	search   config.SearchConfig
	store    RunStore
	observer runner.Observer
	log      *zerolog.Logger
}

// SolveOption 处理器选项
type SolveOption func(*SolveHandler)

// WithStore 设置运行历史存储，未设置时历史接口返回 404
func WithStore(s RunStore) SolveOption {
	return func(h *SolveHandler) { h.store = s }
}

// WithObserver 设置指标记录
func WithObserver(o runner.Observer) SolveOption {
	return func(h *SolveHandler) { h.observer = o }
}

// WithLogger 设置日志器
func WithLogger(l *zerolog.Logger) SolveOption {
	return func(h *SolveHandler) { h.log = l }
}

// NewSolveHandler 创建求解处理器，search 提供算法参数默认值
func NewSolveHandler(limits config.APIConfig, search config.SearchConfig, opts ...SolveOption) *SolveHandler {
	h := &SolveHandler{limits: limits, search: search}
	for _, opt := range opts {
		opt(h)
	}
	if h.log == nil {
		l := logger.Get().With().Str("component", "handler").Logger()
		h.log = &l
	}
	return h
}

// Duration 接受 "1500ms"/"2s" 字符串或毫秒数
type Duration time.Duration

// UnmarshalJSON 实现 json.Unmarshaler
func (d *Duration) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		*d = Duration(v)
		return nil
	}
	var ms int64
	if err := json.Unmarshal(b, &ms); err != nil {
		return fmt.Errorf("时长必须是字符串或毫秒数: %w", err)
	}
	*d = Duration(time.Duration(ms) * time.Millisecond)
	return nil
}

// MarshalJSON 实现 json.Marshaler
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// annealingParams 模拟退火参数，时长字段使用 Duration
type annealingParams struct {
	optimizer.AnnealingConfig
	Duration       Duration `json:"duration"`
	ReportInterval Duration `json:"report_interval"`
}

func (p annealingParams) config() optimizer.AnnealingConfig {
	cfg := p.AnnealingConfig
	cfg.Duration = time.Duration(p.Duration)
	cfg.ReportInterval = time.Duration(p.ReportInterval)
	return cfg
}

// tabuParams 禁忌搜索参数
type tabuParams struct {
	optimizer.TabuConfig
	Duration       Duration `json:"duration"`
	ReportInterval Duration `json:"report_interval"`
}

func (p tabuParams) config() optimizer.TabuConfig {
	cfg := p.TabuConfig
	cfg.Duration = time.Duration(p.Duration)
	cfg.ReportInterval = time.Duration(p.ReportInterval)
	return cfg
}

// SolveRequest 求解请求
type SolveRequest struct {
	Matrix     [][]float64      `json:"matrix"`
	Algorithms []string         `json:"algorithms,omitempty"` // 为空时使用配置中启用的算法
	Duration   *Duration        `json:"duration,omitempty"`   // 同时作用于所有算法
	Seed       int64            `json:"seed,omitempty"`
	Annealing  *json.RawMessage `json:"annealing,omitempty"`
	Tabu       *json.RawMessage `json:"tabu,omitempty"`
}

// RunOutput 单个算法的输出
type RunOutput struct {
	RunID       string  `json:"run_id,omitempty"`
	Algorithm   string  `json:"algorithm"`
	Status      string  `json:"status"`
	BestTour    []int   `json:"best_tour,omitempty"`
	BestCost    float64 `json:"best_cost"`
	InitialCost float64 `json:"initial_cost"`
	Improvement float64 `json:"improvement"`
	Iterations  int     `json:"iterations"`
	Evaluations int     `json:"evaluations"`
	Accepted    int     `json:"accepted"`
	Duration    string  `json:"duration"`
	Error       string  `json:"error,omitempty"`
}

// SolveResponse 求解响应
type SolveResponse struct {
	Success   bool        `json:"success"`
	Cities    int         `json:"cities"`
	Symmetric bool        `json:"symmetric"` // 不对称时按 ATSP 求解
	Best      *RunOutput  `json:"best,omitempty"`
	Runs      []RunOutput `json:"runs"`
	Duration  string      `json:"duration"`
}

// Solve 运行搜索并返回结果
func (h *SolveHandler) Solve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req SolveRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}

	plan, err := h.plan(&req)
	if err != nil {
		respondError(w, toAppError(err))
		return
	}

	log := h.log
	if id, ok := r.Context().Value(logger.RequestIDKey).(string); ok {
		l := h.log.With().Str("request_id", id).Logger()
		log = &l
	}

	var opts []runner.Option
	opts = append(opts, runner.WithLogger(log))
	if h.observer != nil {
		opts = append(opts, runner.WithObserver(h.observer))
	}
	if h.store != nil {
		opts = append(opts, runner.WithPublisher(h.store))
	}

	start := time.Now()
	outcomes, err := runner.New(opts...).Run(r.Context(), plan)
	if err != nil {
		respondError(w, toAppError(err))
		return
	}

	resp := SolveResponse{
		Success:   true,
		Cities:    plan.Matrix.N(),
		Symmetric: plan.Matrix.IsSymmetric(),
		Runs:      make([]RunOutput, 0, len(outcomes)),
		Duration:  time.Since(start).String(),
	}
	for _, o := range outcomes {
		out := outputFor(o)
		if o.Err != nil {
			resp.Success = false
		}
		resp.Runs = append(resp.Runs, out)
	}
	if best := runner.Best(outcomes); best != nil {
		for i := range resp.Runs {
			if resp.Runs[i].RunID == best.RunID {
				resp.Best = &resp.Runs[i]
			}
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

// plan 由请求与默认参数组装求解计划
func (h *SolveHandler) plan(req *SolveRequest) (runner.Plan, error) {
	m, err := tour.NewMatrix(req.Matrix)
	if err != nil {
		return runner.Plan{}, err
	}
	if h.limits.MaxCities > 0 && m.N() > h.limits.MaxCities {
		return runner.Plan{}, errors.InvalidInput("matrix",
			fmt.Sprintf("城市数 %d 超过上限 %d", m.N(), h.limits.MaxCities))
	}

	runSA, runTS := h.search.RunAnnealing, h.search.RunTabu
	if len(req.Algorithms) > 0 {
		runSA, runTS = false, false
		for _, name := range req.Algorithms {
			var alg optimizer.Algorithm
			if err := alg.UnmarshalText([]byte(name)); err != nil {
				return runner.Plan{}, errors.InvalidInput("algorithms", err.Error())
			}
			switch alg {
			case optimizer.AlgorithmSA:
				runSA = true
			case optimizer.AlgorithmTS:
				runTS = true
			}
		}
	}

	plan := runner.Plan{Matrix: m, Seed: req.Seed}
	if plan.Seed == 0 {
		plan.Seed = h.search.Seed
	}

	if runSA {
		p := annealingParams{
			AnnealingConfig: h.search.Annealing,
			Duration:        Duration(h.search.Annealing.Duration),
			ReportInterval:  Duration(h.search.Annealing.ReportInterval),
		}
		if req.Annealing != nil {
			if err := json.Unmarshal(*req.Annealing, &p); err != nil {
				return runner.Plan{}, errors.Wrap(err, errors.CodeInvalidConfig, "模拟退火参数无效")
			}
		}
		if req.Duration != nil {
			p.Duration = *req.Duration
		}
		cfg := p.config()
		plan.Annealing = &cfg
	}

	if runTS {
		p := tabuParams{
			TabuConfig:     h.search.Tabu,
			Duration:       Duration(h.search.Tabu.Duration),
			ReportInterval: Duration(h.search.Tabu.ReportInterval),
		}
		if req.Tabu != nil {
			if err := json.Unmarshal(*req.Tabu, &p); err != nil {
				return runner.Plan{}, errors.Wrap(err, errors.CodeInvalidConfig, "禁忌搜索参数无效")
			}
		}
		if req.Duration != nil {
			p.Duration = *req.Duration
		}
		cfg := p.config()
		plan.Tabu = &cfg
	}

	if err := h.checkDuration(plan); err != nil {
		return runner.Plan{}, err
	}
	if err := h.checkTabu(plan.Tabu); err != nil {
		return runner.Plan{}, err
	}
	return plan, nil
}

// checkTabu 限制禁忌搜索的候选数与禁忌表容量，二者决定每轮的内存占用
func (h *SolveHandler) checkTabu(cfg *optimizer.TabuConfig) error {
	if cfg == nil {
		return nil
	}
	if h.limits.MaxNeighbors > 0 && cfg.MaxNeighbors > h.limits.MaxNeighbors {
		return errors.InvalidConfig("tabu.max_neighbors",
			fmt.Sprintf("%d 超过上限 %d", cfg.MaxNeighbors, h.limits.MaxNeighbors))
	}
	if h.limits.MaxTabuLimit > 0 && cfg.LimitMethod == optimizer.LimitCustom && cfg.CustomLimit > h.limits.MaxTabuLimit {
		return errors.InvalidConfig("tabu.custom_limit",
			fmt.Sprintf("%d 超过上限 %d", cfg.CustomLimit, h.limits.MaxTabuLimit))
	}
	return nil
}

// checkDuration 限制单次求解的运行时长
func (h *SolveHandler) checkDuration(plan runner.Plan) error {
	if h.limits.MaxDuration <= 0 {
		return nil
	}
	var durations []time.Duration
	if plan.Annealing != nil {
		durations = append(durations, plan.Annealing.Duration)
	}
	if plan.Tabu != nil {
		durations = append(durations, plan.Tabu.Duration)
	}
	for _, d := range durations {
		if d > h.limits.MaxDuration {
			return errors.InvalidConfig("duration",
				fmt.Sprintf("%s 超过上限 %s", d, h.limits.MaxDuration))
		}
	}
	return nil
}

// outputFor 转换单个运行结果
func outputFor(o runner.Outcome) RunOutput {
	out := RunOutput{
		Algorithm: o.Algorithm.String(),
		Status:    o.Status(),
	}
	if o.Err != nil {
		out.Error = o.Err.Error()
	}
	if res := o.Result; res != nil {
		out.RunID = res.RunID
		out.BestTour = res.BestTour.Ints()
		out.BestCost = res.BestCost
		out.InitialCost = res.InitialCost
		out.Improvement = res.Record().Improvement()
		out.Iterations = res.Iterations
		out.Evaluations = res.Evaluations
		out.Accepted = res.Accepted
		out.Duration = res.Duration.String()
	}
	return out
}

// ListRuns 查询运行历史
func (h *SolveHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respondError(w, errors.New(errors.CodeNotFound, "未启用运行历史"))
		return
	}

	q := r.URL.Query()
	filter := repository.DefaultListFilter()
	filter.Algorithm = strings.ToLower(q.Get("algorithm"))
	if v := q.Get("order_by"); v != "" {
		filter.OrderBy = v
	}
	if v := q.Get("order_dir"); v != "" {
		filter.OrderDir = v
	}
	for key, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset, "cities": &filter.Cities} {
		v := q.Get(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, errors.InvalidInput(key, "必须是整数"))
			return
		}
		*dst = n
	}

	runs, total, err := h.store.List(r.Context(), filter)
	if err != nil {
		respondError(w, toAppError(err))
		return
	}
	if runs == nil {
		runs = []*result.Record{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"total": total,
	})
}

// GetRun 查询单条运行记录
func (h *SolveHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respondError(w, errors.New(errors.CodeNotFound, "未启用运行历史"))
		return
	}

	id := r.PathValue("id")
	if id == "" {
		respondError(w, errors.InvalidInput("id", "不能为空"))
		return
	}

	rec, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, toAppError(err))
		return
	}

	respondJSON(w, http.StatusOK, rec)
}

// Routes 注册路由
func (h *SolveHandler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/solve", h.Solve)
	mux.HandleFunc("GET /api/v1/runs", h.ListRuns)
	mux.HandleFunc("GET /api/v1/runs/{id}", h.GetRun)
}
