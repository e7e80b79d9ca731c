package provider

import (
	"context"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

//go:generate mockgen -destination=./mock_client_test.go -package=provider github.com/rxtech-lab/argo-backtest/pkg/marketdata/provider BinanceAPIClient,PolygonAPIClient

// ProviderType defines the type of market data provider.
type ProviderType string

const (
	ProviderPolygon ProviderType = "polygon"
	ProviderBinance ProviderType = "binance"
)

var AllProviders = []ProviderType{ProviderPolygon, ProviderBinance}

// Provider is a remote source of historical bars. Bars are returned in
// ascending open time with start <= open time <= end.
type Provider interface {
	GetHistoricalBars(ctx context.Context, symbol string, interval types.Interval, start, end time.Time) ([]types.Kline, error)
}

// NewMarketDataProvider creates a new market data provider based on the provider type.
func NewMarketDataProvider(providerType ProviderType, config Config, log *logger.Logger) (Provider, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	switch providerType {
	case ProviderBinance:
		if err := config.Binance.Validate(); err != nil {
			return nil, err
		}

		return NewBinanceClient(config.Binance, log), nil
	case ProviderPolygon:
		if err := config.Polygon.Validate(); err != nil {
			return nil, err
		}

		return NewPolygonClient(config.Polygon, log), nil
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidProvider, "unsupported market data provider: %s", providerType)
	}
}

// closeTime is the last millisecond covered by a bar opening at open.
func closeTime(open time.Time, interval types.Interval) time.Time {
	return open.Add(interval.Duration() - time.Millisecond)
}

func inRange(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}
