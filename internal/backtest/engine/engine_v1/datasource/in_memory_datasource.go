package datasource

import (
	"context"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// InMemoryProvider serves bars held in memory. Unknown symbols have no bars.
type InMemoryProvider struct {
	series map[string][]types.Kline
}

func NewInMemoryProvider(series map[string][]types.Kline) *InMemoryProvider {
	copied := make(map[string][]types.Kline, len(series))
	for symbol, bars := range series {
		copied[symbol] = append([]types.Kline(nil), bars...)
	}

	return &InMemoryProvider{series: copied}
}

// GetHistoricalBars implements HistoricalDataProvider.
func (p *InMemoryProvider) GetHistoricalBars(ctx context.Context, symbol string, _ types.Interval, start, end time.Time) ([]types.Kline, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return FilterRange(p.series[symbol], start, end), nil
}
