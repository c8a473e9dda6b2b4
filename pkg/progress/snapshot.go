// Package progress 定义搜索进度快照及其输出端
package progress

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/paiban/lujing/pkg/tour"
)

// EOFMessage 运行结束标记
const EOFMessage = "EOF"

// Snapshot 搜索进度快照
type Snapshot struct {
	Algorithm   string        `json:"algorithm"`
	Elapsed     time.Duration `json:"elapsed"`
	Iteration   int           `json:"iteration"`
	BestCost    float64       `json:"best_cost"`
	CurrentCost float64       `json:"current_cost"`
	Temperature float64       `json:"temperature,omitempty"`
	Tour        tour.Tour     `json:"tour"`
}

// Line 编码为行协议：<elapsed_ms> <best> <current> <i,j,k...>
func (s Snapshot) Line() string {
	var b strings.Builder
	b.WriteString(strconv.FormatInt(s.Elapsed.Milliseconds(), 10))
	b.WriteByte(' ')
	b.WriteString(strconv.FormatFloat(s.BestCost, 'f', 6, 64))
	b.WriteByte(' ')
	b.WriteString(strconv.FormatFloat(s.CurrentCost, 'f', 6, 64))
	b.WriteByte(' ')
	b.WriteString(s.Tour.String())
	return b.String()
}

// ParseLine 解析行协议，EOF 行返回 done=true
func ParseLine(line string) (s Snapshot, done bool, err error) {
	line = strings.TrimSpace(line)
	if line == EOFMessage {
		return Snapshot{}, true, nil
	}

	fields := strings.Fields(line)
	if len(fields) != 4 {
		return Snapshot{}, false, fmt.Errorf("malformed snapshot line %q", line)
	}

	ms, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("elapsed: %w", err)
	}
	best, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("best cost: %w", err)
	}
	current, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("current cost: %w", err)
	}

	parts := strings.Split(fields[3], ",")
	t := make(tour.Tour, len(parts))
	for i, p := range parts {
		if t[i], err = strconv.Atoi(p); err != nil {
			return Snapshot{}, false, fmt.Errorf("tour: %w", err)
		}
	}

	return Snapshot{
		Elapsed:     time.Duration(ms) * time.Millisecond,
		BestCost:    best,
		CurrentCost: current,
		Tour:        t,
	}, false, nil
}
