package result

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

const (
	runKeyPrefix    = "run:"
	latestKeyPrefix = "latest:"
)

// BadgerStore 基于 Badger 的运行历史存储
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger 打开 Badger 存储，dir 为空时使用内存模式
func OpenBadger(dir string, log *zerolog.Logger) (*BadgerStore, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(dir)
	}
	if log != nil {
		opts = opts.WithLogger(badgerLogger{log: log})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// Close 关闭存储
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// runKey run:<algorithm>:<finished_at 纳秒，定宽>:<run_id>，按完成时间有序
func runKey(rec *Record) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d:%s", runKeyPrefix, rec.Algorithm, rec.FinishedAt.UnixNano(), rec.RunID))
}

// Publish 实现 Publisher，同一事务内更新最新记录
func (s *BadgerStore) Publish(ctx context.Context, rec *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(runKey(rec), data); err != nil {
			return err
		}
		return txn.Set([]byte(latestKeyPrefix+rec.Algorithm), data)
	})
}

// Latest 返回算法最近一次的结果，不存在时返回 nil
func (s *BadgerStore) Latest(algorithm string) (*Record, error) {
	var rec *Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(latestKeyPrefix + algorithm))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			rec = &Record{}
			return json.Unmarshal(val, rec)
		})
	})
	return rec, err
}

// List 按完成时间倒序列出算法的历史结果，limit <= 0 表示不限
func (s *BadgerStore) List(algorithm string, limit int) ([]*Record, error) {
	var records []*Record
	prefix := []byte(runKeyPrefix + algorithm + ":")

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			var rec Record
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			records = append(records, &rec)
			if limit > 0 && len(records) >= limit {
				break
			}
		}
		return nil
	})
	return records, err
}

// badgerLogger 将 Badger 日志转到 zerolog
type badgerLogger struct {
	log *zerolog.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error().Str("component", "badger").Msgf(strings.TrimSuffix(format, "\n"), args...)
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn().Str("component", "badger").Msgf(strings.TrimSuffix(format, "\n"), args...)
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Debug().Str("component", "badger").Msgf(strings.TrimSuffix(format, "\n"), args...)
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Debug().Str("component", "badger").Msgf(strings.TrimSuffix(format, "\n"), args...)
}
