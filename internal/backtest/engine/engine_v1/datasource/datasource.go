package datasource

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// HistoricalDataProvider supplies the bars of one symbol. Bars must be
// ascending by open time. A zero start or end leaves that side unbounded.
type HistoricalDataProvider interface {
	GetHistoricalBars(ctx context.Context, symbol string, interval types.Interval, start, end time.Time) ([]types.Kline, error)
}

// HistoricalDataProviderFunc adapts a function to HistoricalDataProvider.
type HistoricalDataProviderFunc func(ctx context.Context, symbol string, interval types.Interval, start, end time.Time) ([]types.Kline, error)

func (f HistoricalDataProviderFunc) GetHistoricalBars(ctx context.Context, symbol string, interval types.Interval, start, end time.Time) ([]types.Kline, error) {
	return f(ctx, symbol, interval, start, end)
}

const maxConcurrentLoads = 4

// LoadResult is the usable data of a multi-symbol load.
type LoadResult struct {
	// Series holds the validated bars of every usable symbol.
	Series map[string][]types.Kline
	// Skipped lists symbols whose data could not be used, in request order.
	Skipped []types.SkippedSymbol
}

// LoadBars fetches every symbol concurrently and validates each series. A
// symbol whose provider call fails or whose bars are malformed is skipped and
// reported, it does not fail the load. Only context cancellation is fatal.
func LoadBars(ctx context.Context, provider HistoricalDataProvider, symbols []string, interval types.Interval, start, end time.Time, log *logger.Logger) (LoadResult, error) {
	series := make([][]types.Kline, len(symbols))
	reasons := make([]error, len(symbols))

	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLoads)

	for i, symbol := range symbols {
		g.Go(func() error {
			bars, err := provider.GetHistoricalBars(gctx, symbol, interval, start, end)
			if err == nil {
				err = ValidateSeries(symbol, bars)
			}

			if ctxErr := gctx.Err(); ctxErr != nil {
				return ctxErr
			}

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				reasons[i] = err

				return nil
			}

			series[i] = FilterRange(bars, start, end)

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return LoadResult{}, errors.Wrap(errors.ErrCodeHistoricalDataFailed, "loading historical bars cancelled", err)
	}

	result := LoadResult{
		Series:  make(map[string][]types.Kline, len(symbols)),
		Skipped: nil,
	}

	for i, symbol := range symbols {
		if reasons[i] != nil {
			result.Skipped = append(result.Skipped, types.SkippedSymbol{Symbol: symbol, Reason: reasons[i].Error()})

			if log != nil {
				log.Warn("Skipping symbol",
					zap.String("symbol", symbol),
					zap.Error(reasons[i]),
				)
			}

			continue
		}

		result.Series[symbol] = series[i]
	}

	return result, nil
}

// ValidateSeries checks every bar and the ascending order of the series.
func ValidateSeries(symbol string, bars []types.Kline) error {
	for i, bar := range bars {
		if bar.Symbol != symbol {
			return errors.Newf(errors.ErrCodeMalformedBar, "bar %d belongs to %s, expected %s", i, bar.Symbol, symbol)
		}

		if err := bar.Validate(); err != nil {
			return err
		}

		if i > 0 && !bars[i-1].OpenTime.Before(bar.OpenTime) {
			return errors.Newf(errors.ErrCodeMalformedBar, "bars of %s are not strictly ascending at index %d", symbol, i)
		}
	}

	return nil
}

// FilterRange keeps bars with start <= open time <= end. Zero bounds are open.
func FilterRange(bars []types.Kline, start, end time.Time) []types.Kline {
	filtered := make([]types.Kline, 0, len(bars))

	for _, bar := range bars {
		if !start.IsZero() && bar.OpenTime.Before(start) {
			continue
		}

		if !end.IsZero() && bar.OpenTime.After(end) {
			continue
		}

		filtered = append(filtered, bar)
	}

	return filtered
}

// MergeBars merges per-symbol series into one sequence ordered by open time,
// ties broken by symbol.
func MergeBars(series map[string][]types.Kline) []types.Kline {
	total := 0
	for _, bars := range series {
		total += len(bars)
	}

	merged := make([]types.Kline, 0, total)
	for _, bars := range series {
		merged = append(merged, bars...)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Less(merged[j])
	})

	return merged
}
