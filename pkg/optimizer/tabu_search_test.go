package optimizer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/paiban/lujing/pkg/errors"
	"github.com/paiban/lujing/pkg/logger"
	"github.com/paiban/lujing/pkg/progress/mock_progress"
	"github.com/paiban/lujing/pkg/result/mock_result"
	"github.com/paiban/lujing/pkg/tour"
)

func tabuConfig(d time.Duration) TabuConfig {
	cfg := DefaultTabuConfig()
	cfg.Duration = d
	cfg.ReportInterval = 0
	cfg.Seed = 42
	return cfg
}

func newTestTabu(t *testing.T, m *tour.Matrix, cfg TabuConfig) *TabuSearch {
	t.Helper()
	ts, err := NewTabuSearch(m, cfg)
	require.NoError(t, err)
	ts.SetLogger(logger.Nop())
	return ts
}

func TestTabuSearch_TwoOptFindsCircle(t *testing.T) {
	m := circleMatrix(10)
	cfg := tabuConfig(200 * time.Millisecond)
	cfg.InitialSolution = InitialRandom
	cfg.MaxNeighbors = 50

	ts := newTestTabu(t, m, cfg)
	res, err := ts.Run(context.Background())
	require.NoError(t, err)

	// 按圆周顺序访问的周长
	optimal, err := tour.Cost(m, tour.Identity(10))
	require.NoError(t, err)

	assert.InDelta(t, optimal, res.BestCost, 1e-6)
	assert.NoError(t, tour.Validate(res.BestTour, 10))
	assert.Equal(t, AlgorithmTS, res.Algorithm)
	assert.LessOrEqual(t, ts.TabuList().Len(), ts.TabuList().Capacity())
}

func TestTabuSearch_SingleNeighborNeverWorsensBest(t *testing.T) {
	cfg := tabuConfig(50 * time.Millisecond)
	cfg.Neighbor = MoveSwap
	cfg.MaxNeighbors = 1

	rec := &recordingReporter{}
	ts := newTestTabu(t, circleMatrix(9), cfg)
	ts.SetReporter(rec)

	res, err := ts.Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, rec.snapshots)

	prev := res.InitialCost
	for _, s := range rec.snapshots {
		require.NoError(t, tour.Validate(s.Tour, 9))
		assert.LessOrEqual(t, s.BestCost, prev)
		prev = s.BestCost
	}
	assert.LessOrEqual(t, res.BestCost, res.InitialCost)
}

func TestTabuSearch_GreedyInitialTour(t *testing.T) {
	m := tour.MustMatrix(fiveCities)
	ts := newTestTabu(t, m, tabuConfig(20*time.Millisecond))

	res, err := ts.run(context.Background(), tour.NearestNeighbor(m, 0))
	require.NoError(t, err)

	assert.Equal(t, 28.0, res.InitialCost)
	assert.LessOrEqual(t, res.BestCost, 28.0)
}

func TestTabuSearch_DoneBeforePublish(t *testing.T) {
	ctrl := gomock.NewController(t)
	reporter := mock_progress.NewMockReporter(ctrl)
	publisher := mock_result.NewMockPublisher(ctrl)

	reporter.EXPECT().Report(gomock.Any()).Return(nil).AnyTimes()
	gomock.InOrder(
		reporter.EXPECT().Done("ts").Return(nil).Times(1),
		publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).Times(1),
	)

	ts := newTestTabu(t, circleMatrix(6), tabuConfig(20*time.Millisecond))
	ts.SetReporter(reporter)
	ts.SetPublisher(publisher)

	_, err := ts.Run(context.Background())
	require.NoError(t, err)
}

func TestTabuSearch_SnapshotThrottled(t *testing.T) {
	cfg := tabuConfig(100 * time.Millisecond)
	cfg.ReportInterval = 40 * time.Millisecond

	rec := &recordingReporter{}
	ts := newTestTabu(t, circleMatrix(8), cfg)
	ts.SetReporter(rec)

	res, err := ts.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, rec.snapshots)
	assert.LessOrEqual(t, len(rec.snapshots), 4)
	assert.Greater(t, res.Iterations, len(rec.snapshots))
}

func TestNewTabuSearch_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		m      *tour.Matrix
		modify func(*TabuConfig)
	}{
		{name: "2-opt 城市过少", m: uniformMatrix(3), modify: func(c *TabuConfig) {}},
		{name: "不支持的邻域", m: squareMatrix(), modify: func(c *TabuConfig) { c.Neighbor = MoveInvert }},
		{name: "候选数为零", m: squareMatrix(), modify: func(c *TabuConfig) { c.MaxNeighbors = 0 }},
		{name: "自定义容量为零", m: squareMatrix(), modify: func(c *TabuConfig) { c.LimitMethod = LimitCustom }},
		{name: "期限区间无效", m: squareMatrix(), modify: func(c *TabuConfig) {
			c.Tenure = TenureRandom
			c.TenureMin, c.TenureMax = 5, 2
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultTabuConfig()
			tt.modify(&cfg)

			ts, err := NewTabuSearch(tt.m, cfg)
			require.Error(t, err)
			assert.Nil(t, ts)
			assert.True(t, errors.Is(err, errors.CodeInvalidConfig))
		})
	}
}

func TestNewTabuSearch_SwapOnThreeCities(t *testing.T) {
	cfg := tabuConfig(10 * time.Millisecond)
	cfg.Neighbor = MoveSwap

	res, err := newTestTabu(t, uniformMatrix(3), cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3.0, res.BestCost)
}

func TestTabuSearch_InfiniteCostAborts(t *testing.T) {
	ctrl := gomock.NewController(t)
	reporter := mock_progress.NewMockReporter(ctrl)
	publisher := mock_result.NewMockPublisher(ctrl)

	reporter.EXPECT().Report(gomock.Any()).Return(nil).AnyTimes()
	reporter.EXPECT().Done("ts").Return(nil).Times(1)

	cfg := tabuConfig(10 * time.Second)
	cfg.Neighbor = MoveSwap
	cfg.MaxNeighbors = 10

	ts := newTestTabu(t, overflowMatrix(), cfg)
	ts.SetReporter(reporter)
	ts.SetPublisher(publisher)

	res, err := ts.Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, errors.CodeInvariantViolation), "got %v", err)
}
