package progress

import (
	"bufio"
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/lujing/pkg/tour"
)

func sampleSnapshot() Snapshot {
	return Snapshot{
		Algorithm:   "sa",
		Elapsed:     1500 * time.Millisecond,
		Iteration:   7,
		BestCost:    12.5,
		CurrentCost: 13,
		Tour:        tour.Tour{0, 2, 1},
	}
}

func TestSnapshot_Line(t *testing.T) {
	assert.Equal(t, "1500 12.500000 13.000000 0,2,1", sampleSnapshot().Line())
}

func TestParseLine(t *testing.T) {
	s, done, err := ParseLine("1500 12.500000 13.000000 0,2,1\n")
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, 1500*time.Millisecond, s.Elapsed)
	assert.Equal(t, 12.5, s.BestCost)
	assert.Equal(t, 13.0, s.CurrentCost)
	assert.Equal(t, tour.Tour{0, 2, 1}, s.Tour)

	_, done, err = ParseLine(EOFMessage)
	require.NoError(t, err)
	assert.True(t, done)
}

func TestParseLine_Malformed(t *testing.T) {
	for _, line := range []string{
		"",
		"1500 12.5 13",
		"x 12.5 13 0,1",
		"1500 y 13 0,1",
		"1500 12.5 z 0,1",
		"1500 12.5 13 0,a",
	} {
		_, _, err := ParseLine(line)
		assert.Error(t, err, line)
	}
}

func TestThrottle(t *testing.T) {
	calls := 0
	always := NewThrottle(0)
	for i := 0; i < 5; i++ {
		always.Do(func() { calls++ })
	}
	assert.Equal(t, 5, calls)

	calls = 0
	rare := NewThrottle(time.Hour)
	for i := 0; i < 5; i++ {
		rare.Do(func() { calls++ })
	}
	assert.Equal(t, 1, calls, "首次调用必然执行")
}

func TestLogReporter(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)
	r := NewLogReporter(&log)

	require.NoError(t, r.Report(sampleSnapshot()))
	require.NoError(t, r.Done("sa"))

	out := buf.String()
	assert.Contains(t, out, `"best_cost":12.5`)
	assert.Contains(t, out, `"iteration":7`)
	assert.Contains(t, out, EOFMessage)
}

type failingReporter struct{ calls int }

func (f *failingReporter) Report(Snapshot) error { f.calls++; return assert.AnError }
func (f *failingReporter) Done(string) error     { f.calls++; return assert.AnError }

type countingReporter struct{ reports, dones int }

func (c *countingReporter) Report(Snapshot) error { c.reports++; return nil }
func (c *countingReporter) Done(string) error     { c.dones++; return nil }

func TestMulti(t *testing.T) {
	failing := &failingReporter{}
	counting := &countingReporter{}
	r := Multi(failing, nil, counting)

	err := r.Report(sampleSnapshot())
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 1, counting.reports, "一个输出端失败不影响其他输出端")

	err = r.Done("sa")
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 2, failing.calls)
	assert.Equal(t, 1, counting.dones)

	assert.NoError(t, Multi().Report(sampleSnapshot()))
}

func TestTCPReporter(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	lines := make(chan []string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			lines <- nil
			return
		}
		defer conn.Close()

		var got []string
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			got = append(got, scanner.Text())
			if scanner.Text() == EOFMessage {
				break
			}
		}
		lines <- got
	}()

	r, err := DialTCP(context.Background(), ln.Addr().String(), time.Second)
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.Report(sampleSnapshot()))
	require.NoError(t, r.Done("sa"))

	select {
	case got := <-lines:
		assert.Equal(t, []string{"1500 12.500000 13.000000 0,2,1", EOFMessage}, got)
	case <-time.After(5 * time.Second):
		t.Fatal("接收端超时")
	}
}

func TestTCPReporter_WriteTimeout(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	r := NewTCPReporter(client, 20*time.Millisecond)
	defer r.Close()

	// 对端不读取，写入应在截止时间后失败
	err := r.Report(sampleSnapshot())
	require.Error(t, err)

	var netErr net.Error
	require.ErrorAs(t, err, &netErr)
	assert.True(t, netErr.Timeout())
}

func TestDialTCP_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	_, err = DialTCP(context.Background(), addr, time.Second)
	assert.Error(t, err)
}
