package result

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/paiban/lujing/pkg/tour"
)

// fileEOF 结果文件结束标记
const fileEOF = "EOF"

// FileStore 将最优路线写入 best_solution_<algorithm>.txt
// 每行一个城市编号，最后一行为 EOF
type FileStore struct {
	dir string
}

// NewFileStore 创建文件存储
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Path 返回算法对应的结果文件路径
func (s *FileStore) Path(algorithm string) string {
	return filepath.Join(s.dir, "best_solution_"+algorithm+".txt")
}

// Publish 原子写入结果文件
func (s *FileStore) Publish(ctx context.Context, rec *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create result dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".best_solution_*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for _, city := range rec.BestTour {
		w.WriteString(strconv.Itoa(city))
		w.WriteByte('\n')
	}
	w.WriteString(fileEOF)
	w.WriteByte('\n')

	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("write result file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close result file: %w", err)
	}

	return os.Rename(tmp.Name(), s.Path(rec.Algorithm))
}

// Load 读取算法的最优路线，缺少 EOF 标记视为文件不完整
func (s *FileStore) Load(algorithm string) (tour.Tour, error) {
	f, err := os.Open(s.Path(algorithm))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var t tour.Tour
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == fileEOF {
			return t, nil
		}
		city, err := strconv.Atoi(line)
		if err != nil {
			return nil, fmt.Errorf("parse city %q: %w", line, err)
		}
		t = append(t, city)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return nil, fmt.Errorf("%s: missing %s marker", s.Path(algorithm), fileEOF)
}
