package optimizer

import (
	"math"
	"math/rand"
)

// boltzmannProbability 计算模拟退火的接受概率
// delta: 代价差 (new - current)
// temperature: 当前温度
func boltzmannProbability(delta, temperature float64) float64 {
	if delta <= 0 {
		return 1.0
	}
	if temperature <= 0 {
		return 0.0
	}
	return math.Exp(-delta / temperature)
}

// metropolisAccept Metropolis 准则：更优解直接接受，较差解以 exp(-Δ/T) 概率接受
func metropolisAccept(delta, temperature float64, rng *rand.Rand) bool {
	if delta < 0 {
		return true
	}
	return rng.Float64() < boltzmannProbability(delta, temperature)
}

// admissible 判断禁忌搜索候选是否可接受，并返回接受后需要记录的禁忌键
// 代价严格优于历史最优时无视禁忌状态（特赦），被特赦的禁忌键不重新记录
func admissible(move Move, cost, bestCost float64, tabu *TabuList) (ok bool, record []Pair) {
	aspiration := cost < bestCost

	switch m := move.(type) {
	case SwapMove:
		if !tabu.Contains(m.Cities) {
			return true, []Pair{m.Cities}
		}
		return aspiration, nil
	case TwoOptMove:
		for _, edge := range m.Removed {
			if !tabu.Contains(edge) {
				record = append(record, edge)
			}
		}
		// 两条边至少一条非禁忌
		if len(record) > 0 {
			return true, record
		}
		return aspiration, nil
	}

	return false, nil
}
