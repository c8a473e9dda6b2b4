package progress

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"
)

// TCPReporter 通过 TCP 按行发送快照，结束时发送 EOF
// 每个算法使用独立连接
type TCPReporter struct {
	conn         net.Conn
	writeTimeout time.Duration
	mu           sync.Mutex
}

// DialTCP 连接进度接收端
func DialTCP(ctx context.Context, addr string, writeTimeout time.Duration) (*TCPReporter, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial progress sink %s: %w", addr, err)
	}
	return NewTCPReporter(conn, writeTimeout), nil
}

// NewTCPReporter 使用已建立的连接创建输出端
func NewTCPReporter(conn net.Conn, writeTimeout time.Duration) *TCPReporter {
	return &TCPReporter{conn: conn, writeTimeout: writeTimeout}
}

// Report 实现 Reporter
func (r *TCPReporter) Report(s Snapshot) error {
	return r.writeLine(s.Line())
}

// Done 实现 Reporter
func (r *TCPReporter) Done(string) error {
	return r.writeLine(EOFMessage)
}

// Close 关闭连接
func (r *TCPReporter) Close() error {
	return r.conn.Close()
}

func (r *TCPReporter) writeLine(line string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.writeTimeout > 0 {
		if err := r.conn.SetWriteDeadline(time.Now().Add(r.writeTimeout)); err != nil {
			return err
		}
	}
	_, err := r.conn.Write([]byte(line + "\n"))
	return err
}
