package optimizer

import (
	"math/rand"
	"time"
)

// NewRNG 创建引擎独享的随机数生成器
// seed 为 0 时使用当前时间，math/rand.Rand 不能跨 goroutine 共享
func NewRNG(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// DeriveSeed 由父种子与流编号派生独立子种子（SplitMix64 混合）
// 用于并行运行的 SA/TS 获得互不相关的随机序列
func DeriveSeed(parent int64, stream uint64) int64 {
	x := uint64(parent) ^ (stream + 0x9e3779b97f4a7c15)
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	x ^= x >> 31
	s := int64(x)
	if s == 0 {
		s = 1
	}
	return s
}
