// Package cache stores historical bars on disk, one parquet file per
// (symbol, interval, range) key. A written file is never rewritten.
package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
)

// BarRecord is the parquet schema of a cached bar.
type BarRecord struct {
	Symbol    string  `parquet:"symbol"`
	OpenTime  int64   `parquet:"open_time,timestamp(millisecond)"`
	CloseTime int64   `parquet:"close_time,timestamp(millisecond)"`
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	Volume    float64 `parquet:"volume"`
}

// Key identifies one cached series.
type Key struct {
	Symbol   string
	Interval types.Interval
	Start    time.Time
	End      time.Time
}

const keyTimeFormat = "20060102T150405Z"

// FileName is the file the key is stored in.
func (k Key) FileName() string {
	symbol := strings.NewReplacer("/", "-", "\\", "-", ":", "-").Replace(k.Symbol)

	return fmt.Sprintf("%s_%s_%s_%s.parquet", symbol, k.Interval,
		k.Start.UTC().Format(keyTimeFormat), k.End.UTC().Format(keyTimeFormat))
}

// Cache serializes access per key: any number of readers, or one writer.
type Cache struct {
	dir   string
	log   *logger.Logger
	mu    sync.Mutex
	locks map[string]*sync.RWMutex
}

func New(dir string, log *logger.Logger) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeCacheWriteFailed, "failed to create cache directory", err)
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Cache{
		dir:   dir,
		log:   log,
		locks: make(map[string]*sync.RWMutex),
	}, nil
}

func (c *Cache) lock(key Key) *sync.RWMutex {
	c.mu.Lock()
	defer c.mu.Unlock()

	name := key.FileName()

	l, ok := c.locks[name]
	if !ok {
		l = &sync.RWMutex{}
		c.locks[name] = l
	}

	return l
}

// Path returns the file path of key.
func (c *Cache) Path(key Key) string {
	return filepath.Join(c.dir, key.FileName())
}

// Read returns the cached bars of key. ok is false when nothing is cached.
func (c *Cache) Read(key Key) ([]types.Kline, bool, error) {
	l := c.lock(key)
	l.RLock()
	defer l.RUnlock()

	path := c.Path(key)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, false, nil
	}

	records, err := parquet.ReadFile[BarRecord](path)
	if err != nil {
		return nil, false, errors.Wrapf(errors.ErrCodeCacheReadFailed, err, "failed to read cache file %s", path)
	}

	bars := make([]types.Kline, len(records))
	for i, r := range records {
		bars[i] = types.Kline{
			Symbol:    r.Symbol,
			OpenTime:  time.UnixMilli(r.OpenTime).UTC(),
			CloseTime: time.UnixMilli(r.CloseTime).UTC(),
			Open:      r.Open,
			High:      r.High,
			Low:       r.Low,
			Close:     r.Close,
			Volume:    r.Volume,
		}
	}

	c.log.Debug("Cache hit", zap.String("key", key.FileName()), zap.Int("bars", len(bars)))

	return bars, true, nil
}

// Write stores bars under key. It reports false without touching the file
// when the key is already cached.
func (c *Cache) Write(key Key, bars []types.Kline) (bool, error) {
	l := c.lock(key)
	l.Lock()
	defer l.Unlock()

	path := c.Path(key)
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}

	records := make([]BarRecord, len(bars))
	for i, bar := range bars {
		records[i] = BarRecord{
			Symbol:    bar.Symbol,
			OpenTime:  bar.OpenTime.UnixMilli(),
			CloseTime: bar.CloseTime.UnixMilli(),
			Open:      bar.Open,
			High:      bar.High,
			Low:       bar.Low,
			Close:     bar.Close,
			Volume:    bar.Volume,
		}
	}

	tmp := path + ".tmp"
	if err := parquet.WriteFile(tmp, records); err != nil {
		_ = os.Remove(tmp)

		return false, errors.Wrapf(errors.ErrCodeCacheWriteFailed, err, "failed to write cache file %s", tmp)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)

		return false, errors.Wrapf(errors.ErrCodeCacheWriteFailed, err, "failed to move cache file into place %s", path)
	}

	c.log.Debug("Cache write", zap.String("key", key.FileName()), zap.Int("bars", len(bars)))

	return true, nil
}
