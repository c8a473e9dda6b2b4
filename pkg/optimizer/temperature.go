package optimizer

import (
	"math"
	"math/rand"

	"github.com/paiban/lujing/pkg/tour"
)

// samplingRounds 采样法计算初始温度时的随机排列次数
const samplingRounds = 100

// InitialTemperature 按方式计算初始温度
func InitialTemperature(method InitialTempMethod, m *tour.Matrix, current tour.Tour, rng *rand.Rand) (float64, error) {
	switch method {
	case TempMax:
		return m.Max() / 2, nil
	case TempSampling:
		return samplingTemperature(m, current, rng)
	default:
		return m.MeanUpperTriangle() / 2, nil
	}
}

// samplingTemperature 对当前路线随机打乱若干次，取代价差绝对值均值的一半
func samplingTemperature(m *tour.Matrix, current tour.Tour, rng *rand.Rand) (float64, error) {
	base, err := tour.Cost(m, current)
	if err != nil {
		return 0, err
	}

	sample := current.Clone()
	var sum float64
	for i := 0; i < samplingRounds; i++ {
		rng.Shuffle(len(sample), func(a, b int) { sample[a], sample[b] = sample[b], sample[a] })
		cost, err := tour.Cost(m, sample)
		if err != nil {
			return 0, err
		}
		sum += math.Abs(cost - base)
	}

	return sum / samplingRounds / 2, nil
}

// Schedule 降温计划
type Schedule struct {
	decay   DecayType
	alpha   float64
	beta    float64
	initial float64
	current float64
	step    int
}

// NewSchedule 创建降温计划
func NewSchedule(decay DecayType, alpha, beta, initial float64) *Schedule {
	return &Schedule{
		decay:   decay,
		alpha:   alpha,
		beta:    beta,
		initial: initial,
		current: initial,
	}
}

// Temperature 当前温度
func (s *Schedule) Temperature() float64 {
	return s.current
}

// Cool 执行一次降温
func (s *Schedule) Cool() {
	s.step++
	switch s.decay {
	case DecayLinear:
		s.current -= s.beta * s.current
	case DecayLogarithmic:
		s.current = s.initial * math.Ln2 / math.Log(float64(s.step+2))
	default:
		s.current *= s.alpha
	}
}
