package datasource

import (
	"context"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/marketdata/cache"
	"go.uber.org/zap"
)

// CachedProvider serves bars from the disk cache and falls back to the
// wrapped provider on a miss. Fetched series are validated before they are
// cached, so malformed data is never persisted.
type CachedProvider struct {
	underlying HistoricalDataProvider
	cache      *cache.Cache
	log        *logger.Logger
}

func NewCachedProvider(underlying HistoricalDataProvider, c *cache.Cache, log *logger.Logger) *CachedProvider {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &CachedProvider{
		underlying: underlying,
		cache:      c,
		log:        log,
	}
}

// GetHistoricalBars implements HistoricalDataProvider.
func (c *CachedProvider) GetHistoricalBars(ctx context.Context, symbol string, interval types.Interval, start, end time.Time) ([]types.Kline, error) {
	key := cache.Key{Symbol: symbol, Interval: interval, Start: start, End: end}

	bars, ok, err := c.cache.Read(key)
	if err != nil {
		c.log.Warn("Ignoring unreadable cache entry", zap.String("key", key.FileName()), zap.Error(err))
	}

	if ok {
		return bars, nil
	}

	bars, err = c.underlying.GetHistoricalBars(ctx, symbol, interval, start, end)
	if err != nil {
		return nil, err
	}

	if err := ValidateSeries(symbol, bars); err != nil {
		return nil, err
	}

	if _, err := c.cache.Write(key, bars); err != nil {
		c.log.Warn("Failed to cache bars", zap.String("key", key.FileName()), zap.Error(err))
	}

	return bars, nil
}
