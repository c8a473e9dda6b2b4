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

func annealingConfig(d time.Duration) AnnealingConfig {
	cfg := DefaultAnnealingConfig()
	cfg.Duration = d
	cfg.ReportInterval = 0
	cfg.StepsPerTemp = 20
	cfg.Seed = 42
	return cfg
}

func newTestAnnealing(t *testing.T, m *tour.Matrix, cfg AnnealingConfig) *SimulatedAnnealing {
	t.Helper()
	sa, err := NewSimulatedAnnealing(m, cfg)
	require.NoError(t, err)
	sa.SetLogger(logger.Nop())
	return sa
}

func TestSimulatedAnnealing_FindsSquareOptimum(t *testing.T) {
	cfg := annealingConfig(200 * time.Millisecond)
	cfg.InitialSolution = InitialRandom

	sa := newTestAnnealing(t, squareMatrix(), cfg)
	res, err := sa.Run(context.Background())
	require.NoError(t, err)

	assert.InDelta(t, 4.0, res.BestCost, 1e-9)
	assert.NoError(t, tour.Validate(res.BestTour, 4))
	assert.Equal(t, AlgorithmSA, res.Algorithm)
	assert.NotEmpty(t, res.RunID)
	assert.Greater(t, res.Iterations, 0)
}

func TestSimulatedAnnealing_AllMoveTypes(t *testing.T) {
	m := circleMatrix(12)

	for _, mt := range []MoveType{MoveSwap, MoveInsert, MoveInvert} {
		for _, decay := range []DecayType{DecayGeometric, DecayLinear, DecayLogarithmic} {
			t.Run(mt.String()+"_"+decay.String(), func(t *testing.T) {
				cfg := annealingConfig(30 * time.Millisecond)
				cfg.Neighbor = mt
				cfg.Decay = decay
				cfg.InitialTemp = TempSampling

				res, err := newTestAnnealing(t, m, cfg).Run(context.Background())
				require.NoError(t, err)
				assert.NoError(t, tour.Validate(res.BestTour, 12))
				assert.LessOrEqual(t, res.BestCost, res.InitialCost)
			})
		}
	}
}

func TestSimulatedAnnealing_SnapshotsArePermutations(t *testing.T) {
	rec := &recordingReporter{}
	sa := newTestAnnealing(t, circleMatrix(8), annealingConfig(50*time.Millisecond))
	sa.SetReporter(rec)

	res, err := sa.Run(context.Background())
	require.NoError(t, err)

	require.NotEmpty(t, rec.snapshots)
	for _, s := range rec.snapshots {
		require.NoError(t, tour.Validate(s.Tour, 8))
		assert.Equal(t, "sa", s.Algorithm)
		assert.LessOrEqual(t, s.BestCost, s.CurrentCost+1e-9)
	}
	assert.Equal(t, []string{"sa"}, rec.done)
	assert.InDelta(t, res.BestCost, rec.snapshots[len(rec.snapshots)-1].BestCost, 1e-9)
}

func TestSimulatedAnnealing_UniformMatrixAcceptsEverything(t *testing.T) {
	cfg := annealingConfig(20 * time.Millisecond)
	cfg.Neighbor = MoveSwap

	res, err := newTestAnnealing(t, uniformMatrix(6), cfg).Run(context.Background())
	require.NoError(t, err)

	// 所有移动代价差均为 0，必然接受
	assert.Equal(t, res.Evaluations, res.Accepted)
	assert.Equal(t, 0, res.Improvements)
	assert.Equal(t, 6.0, res.BestCost)
}

func TestSimulatedAnnealing_DoneBeforePublish(t *testing.T) {
	ctrl := gomock.NewController(t)
	reporter := mock_progress.NewMockReporter(ctrl)
	publisher := mock_result.NewMockPublisher(ctrl)

	reporter.EXPECT().Report(gomock.Any()).Return(nil).AnyTimes()
	gomock.InOrder(
		reporter.EXPECT().Done("sa").Return(nil).Times(1),
		publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).Times(1),
	)

	sa := newTestAnnealing(t, squareMatrix(), annealingConfig(20*time.Millisecond))
	sa.SetReporter(reporter)
	sa.SetPublisher(publisher)

	_, err := sa.Run(context.Background())
	require.NoError(t, err)
}

func TestSimulatedAnnealing_SinkFailureDoesNotAbort(t *testing.T) {
	ctrl := gomock.NewController(t)
	publisher := mock_result.NewMockPublisher(ctrl)
	publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(assert.AnError)

	rec := &recordingReporter{err: assert.AnError}
	sa := newTestAnnealing(t, circleMatrix(6), annealingConfig(20*time.Millisecond))
	sa.SetReporter(rec)
	sa.SetPublisher(publisher)

	res, err := sa.Run(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, res)
	assert.Len(t, rec.done, 1)
}

func TestSimulatedAnnealing_FinalTemperatureStopsEarly(t *testing.T) {
	cfg := annealingConfig(10 * time.Second)
	cfg.FinalTemperature = 1e9

	start := time.Now()
	res, err := newTestAnnealing(t, squareMatrix(), cfg).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, res.Iterations)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSimulatedAnnealing_StopsWhenTemperatureReachesZero(t *testing.T) {
	cfg := annealingConfig(10 * time.Second)
	cfg.InitialTemp = TempMax
	cfg.Alpha = 1e-300

	start := time.Now()
	res, err := newTestAnnealing(t, squareMatrix(), cfg).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0.0, res.FinalTemperature)
	assert.Less(t, res.Iterations, 10)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSimulatedAnnealing_InfiniteCostAborts(t *testing.T) {
	ctrl := gomock.NewController(t)
	reporter := mock_progress.NewMockReporter(ctrl)
	publisher := mock_result.NewMockPublisher(ctrl) // 中止后不应持久化

	reporter.EXPECT().Report(gomock.Any()).Return(nil).AnyTimes()
	reporter.EXPECT().Done("sa").Return(nil).Times(1)

	cfg := annealingConfig(10 * time.Second)
	cfg.Neighbor = MoveSwap
	cfg.InitialTemp = TempMax

	sa := newTestAnnealing(t, overflowMatrix(), cfg)
	sa.SetReporter(reporter)
	sa.SetPublisher(publisher)

	res, err := sa.Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, errors.CodeInvariantViolation), "got %v", err)
}

func TestSimulatedAnnealing_Cancelled(t *testing.T) {
	ctrl := gomock.NewController(t)
	publisher := mock_result.NewMockPublisher(ctrl) // 取消后不应持久化

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sa := newTestAnnealing(t, squareMatrix(), annealingConfig(10*time.Second))
	sa.SetPublisher(publisher)

	res, err := sa.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.NoError(t, tour.Validate(res.BestTour, 4))
}

func TestSimulatedAnnealing_SingleCity(t *testing.T) {
	m := tour.MustMatrix([][]float64{{0}})
	res, err := newTestAnnealing(t, m, annealingConfig(time.Second)).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, tour.Tour{0}, res.BestTour)
	assert.Equal(t, 0.0, res.BestCost)
	assert.Equal(t, 0, res.Iterations)
}

func TestSimulatedAnnealing_RunOnce(t *testing.T) {
	sa := newTestAnnealing(t, squareMatrix(), annealingConfig(5*time.Millisecond))

	_, err := sa.Run(context.Background())
	require.NoError(t, err)

	_, err = sa.Run(context.Background())
	assert.Error(t, err)
}

func TestNewSimulatedAnnealing_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*AnnealingConfig)
	}{
		{name: "零时限", modify: func(c *AnnealingConfig) { c.Duration = 0 }},
		{name: "2-opt 邻域", modify: func(c *AnnealingConfig) { c.Neighbor = Move2Opt }},
		{name: "步数为零", modify: func(c *AnnealingConfig) { c.StepsPerTemp = 0 }},
		{name: "alpha 越界", modify: func(c *AnnealingConfig) { c.Alpha = 1 }},
		{name: "beta 越界", modify: func(c *AnnealingConfig) { c.Decay = DecayLinear; c.Beta = 0 }},
		{name: "负终止温度", modify: func(c *AnnealingConfig) { c.FinalTemperature = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultAnnealingConfig()
			tt.modify(&cfg)

			sa, err := NewSimulatedAnnealing(squareMatrix(), cfg)
			require.Error(t, err)
			assert.Nil(t, sa)
			assert.True(t, errors.Is(err, errors.CodeInvalidConfig))
		})
	}
}
