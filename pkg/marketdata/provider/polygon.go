package provider

import (
	"context"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
)

const polygonPageLimit = 50000

// PolygonAggsIterator walks the pages of an aggregates response.
type PolygonAggsIterator interface {
	Next() bool
	Item() models.Agg
	Err() error
}

// PolygonAPIClient is the subset of the Polygon REST client used for aggregates.
type PolygonAPIClient interface {
	ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) PolygonAggsIterator
}

type polygonAPI struct {
	client *polygon.Client
}

func (a *polygonAPI) ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) PolygonAggsIterator {
	return a.client.ListAggs(ctx, params, options...)
}

type PolygonClient struct {
	apiClient PolygonAPIClient
	log       *logger.Logger
}

func NewPolygonClient(config PolygonConfig, log *logger.Logger) *PolygonClient {
	return NewPolygonClientWithAPI(&polygonAPI{client: polygon.New(config.APIKey)}, log)
}

// NewPolygonClientWithAPI creates a client on top of an existing API client.
func NewPolygonClientWithAPI(apiClient PolygonAPIClient, log *logger.Logger) *PolygonClient {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &PolygonClient{
		apiClient: apiClient,
		log:       log.Named("polygon"),
	}
}

// polygonTimespan converts an interval to the Polygon multiplier and timespan.
func polygonTimespan(interval types.Interval) (int, models.Timespan, error) {
	switch interval {
	case types.Interval1m:
		return 1, models.Minute, nil
	case types.Interval5m:
		return 5, models.Minute, nil
	case types.Interval15m:
		return 15, models.Minute, nil
	case types.Interval30m:
		return 30, models.Minute, nil
	case types.Interval1h:
		return 1, models.Hour, nil
	case types.Interval4h:
		return 4, models.Hour, nil
	case types.Interval1d:
		return 1, models.Day, nil
	case types.Interval1w:
		return 1, models.Week, nil
	default:
		return 0, "", errors.Newf(errors.ErrCodeInvalidInterval, "unsupported interval for Polygon: %q", interval)
	}
}

// GetHistoricalBars lists the Polygon aggregates of symbol between start and end.
func (c *PolygonClient) GetHistoricalBars(ctx context.Context, symbol string, interval types.Interval, start, end time.Time) ([]types.Kline, error) {
	multiplier, timespan, err := polygonTimespan(interval)
	if err != nil {
		return nil, err
	}

	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     symbol,
		Multiplier: multiplier,
		Timespan:   timespan,
		From:       models.Millis(start),
		To:         models.Millis(end),
	}.WithLimit(polygonPageLimit)

	iter := c.apiClient.ListAggs(ctx, params)

	var bars []types.Kline

	for iter.Next() {
		agg := iter.Item()
		openTime := time.Time(agg.Timestamp).UTC()

		if !inRange(openTime, start, end) {
			continue
		}

		bars = append(bars, types.Kline{
			Symbol:    symbol,
			OpenTime:  openTime,
			CloseTime: closeTime(openTime, interval),
			Open:      agg.Open,
			High:      agg.High,
			Low:       agg.Low,
			Close:     agg.Close,
			Volume:    agg.Volume,
		})
	}

	if err := iter.Err(); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "error iterating polygon aggregates of %s", symbol)
	}

	c.log.Info("Downloaded Polygon aggregates",
		zap.String("symbol", symbol),
		zap.String("interval", string(interval)),
		zap.Int("bars", len(bars)),
	)

	return bars, nil
}
