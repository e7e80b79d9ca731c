package provider

import (
	"context"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
)

// binancePageLimit is the largest number of klines Binance returns per request.
const binancePageLimit = 1000

// BinanceAPIClient is the subset of the Binance client used for klines.
type BinanceAPIClient interface {
	NewKlinesService() BinanceKlinesService
}

// BinanceKlinesService is the klines request builder.
type BinanceKlinesService interface {
	Symbol(symbol string) BinanceKlinesService
	Interval(interval string) BinanceKlinesService
	StartTime(startTime int64) BinanceKlinesService
	EndTime(endTime int64) BinanceKlinesService
	Limit(limit int) BinanceKlinesService
	Do(ctx context.Context) ([]*binance.Kline, error)
}

type binanceAPI struct {
	client *binance.Client
}

func (a *binanceAPI) NewKlinesService() BinanceKlinesService {
	return &binanceKlinesService{service: a.client.NewKlinesService()}
}

type binanceKlinesService struct {
	service *binance.KlinesService
}

func (s *binanceKlinesService) Symbol(symbol string) BinanceKlinesService {
	s.service.Symbol(symbol)

	return s
}

func (s *binanceKlinesService) Interval(interval string) BinanceKlinesService {
	s.service.Interval(interval)

	return s
}

func (s *binanceKlinesService) StartTime(startTime int64) BinanceKlinesService {
	s.service.StartTime(startTime)

	return s
}

func (s *binanceKlinesService) EndTime(endTime int64) BinanceKlinesService {
	s.service.EndTime(endTime)

	return s
}

func (s *binanceKlinesService) Limit(limit int) BinanceKlinesService {
	s.service.Limit(limit)

	return s
}

func (s *binanceKlinesService) Do(ctx context.Context) ([]*binance.Kline, error) {
	return s.service.Do(ctx)
}

type BinanceClient struct {
	apiClient BinanceAPIClient
	log       *logger.Logger
}

func NewBinanceClient(config BinanceConfig, log *logger.Logger) *BinanceClient {
	return NewBinanceClientWithAPI(&binanceAPI{client: binance.NewClient(config.APIKey, config.SecretKey)}, log)
}

// NewBinanceClientWithAPI creates a client on top of an existing API client.
func NewBinanceClientWithAPI(apiClient BinanceAPIClient, log *logger.Logger) *BinanceClient {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &BinanceClient{
		apiClient: apiClient,
		log:       log.Named("binance"),
	}
}

// GetHistoricalBars pages through the Binance klines of symbol between start and end.
func (c *BinanceClient) GetHistoricalBars(ctx context.Context, symbol string, interval types.Interval, start, end time.Time) ([]types.Kline, error) {
	if !interval.IsValid() {
		return nil, errors.Newf(errors.ErrCodeInvalidInterval, "unsupported interval for Binance: %q", interval)
	}

	// Binance API uses milliseconds for timestamps
	currentStartTime := start.UnixMilli()
	endTimeMillis := end.UnixMilli()

	var bars []types.Kline

	for currentStartTime <= endTimeMillis {
		klines, err := c.apiClient.NewKlinesService().
			Symbol(symbol).
			Interval(string(interval)).
			StartTime(currentStartTime).
			EndTime(endTimeMillis).
			Limit(binancePageLimit).
			Do(ctx)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "failed to fetch klines for %s from Binance", symbol)
		}

		page, err := convertKlines(symbol, interval, klines)
		if err != nil {
			return nil, err
		}

		for _, bar := range page {
			if inRange(bar.OpenTime, start, end) {
				bars = append(bars, bar)
			}
		}

		c.log.Debug("Fetched Binance klines page",
			zap.String("symbol", symbol),
			zap.Int("count", len(klines)),
		)

		// last page
		if len(klines) < binancePageLimit {
			break
		}

		// Use the close time of the last kline + 1ms to avoid duplicates
		currentStartTime = klines[len(klines)-1].CloseTime + 1
	}

	c.log.Info("Downloaded Binance klines",
		zap.String("symbol", symbol),
		zap.String("interval", string(interval)),
		zap.Int("bars", len(bars)),
	)

	return bars, nil
}

// convertKlines converts Binance string encoded klines to bars.
func convertKlines(symbol string, interval types.Interval, klines []*binance.Kline) ([]types.Kline, error) {
	bars := make([]types.Kline, 0, len(klines))

	for _, k := range klines {
		values := make([]float64, 0, 5)

		for _, raw := range []string{k.Open, k.High, k.Low, k.Close, k.Volume} {
			value, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "failed to parse Binance kline of %s at %d", symbol, k.OpenTime)
			}

			values = append(values, value)
		}

		openTime := time.UnixMilli(k.OpenTime).UTC()

		closed := time.UnixMilli(k.CloseTime).UTC()
		if k.CloseTime == 0 {
			closed = closeTime(openTime, interval)
		}

		bars = append(bars, types.Kline{
			Symbol:    symbol,
			OpenTime:  openTime,
			CloseTime: closed,
			Open:      values[0],
			High:      values[1],
			Low:       values[2],
			Close:     values[3],
			Volume:    values[4],
		})
	}

	return bars, nil
}
