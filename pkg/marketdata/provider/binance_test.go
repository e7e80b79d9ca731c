package provider

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type klinesRequest struct {
	symbol   string
	interval string
	start    int64
	end      int64
	limit    int
}

// fakeKlines serves one page per klines request.
type fakeKlines struct {
	pages    [][]*binance.Kline
	errs     []error
	requests []klinesRequest
}

func (f *fakeKlines) service() BinanceKlinesService {
	return &fakeKlinesService{parent: f}
}

type fakeKlinesService struct {
	parent  *fakeKlines
	request klinesRequest
}

func (s *fakeKlinesService) Symbol(symbol string) BinanceKlinesService {
	s.request.symbol = symbol
	return s
}

func (s *fakeKlinesService) Interval(interval string) BinanceKlinesService {
	s.request.interval = interval
	return s
}

func (s *fakeKlinesService) StartTime(startTime int64) BinanceKlinesService {
	s.request.start = startTime
	return s
}

func (s *fakeKlinesService) EndTime(endTime int64) BinanceKlinesService {
	s.request.end = endTime
	return s
}

func (s *fakeKlinesService) Limit(limit int) BinanceKlinesService {
	s.request.limit = limit
	return s
}

func (s *fakeKlinesService) Do(_ context.Context) ([]*binance.Kline, error) {
	idx := len(s.parent.requests)
	s.parent.requests = append(s.parent.requests, s.request)

	var err error
	if idx < len(s.parent.errs) {
		err = s.parent.errs[idx]
	}

	if idx < len(s.parent.pages) {
		return s.parent.pages[idx], err
	}

	return nil, err
}

type BinanceClientTestSuite struct {
	suite.Suite
	ctrl   *gomock.Controller
	api    *MockBinanceAPIClient
	klines *fakeKlines
	client *BinanceClient
	start  time.Time
}

func TestBinanceClientSuite(t *testing.T) {
	suite.Run(t, new(BinanceClientTestSuite))
}

func (suite *BinanceClientTestSuite) SetupTest() {
	suite.ctrl = gomock.NewController(suite.T())
	suite.api = NewMockBinanceAPIClient(suite.ctrl)
	suite.klines = &fakeKlines{}
	suite.client = NewBinanceClientWithAPI(suite.api, logger.NewNopLogger())
	suite.start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
}

func (suite *BinanceClientTestSuite) TearDownTest() {
	suite.ctrl.Finish()
}

func (suite *BinanceClientTestSuite) expectRequests(n int) {
	suite.api.EXPECT().NewKlinesService().DoAndReturn(suite.klines.service).Times(n)
}

// kline builds the daily kline at index with string encoded prices.
func (suite *BinanceClientTestSuite) kline(index int, closePrice float64) *binance.Kline {
	open := suite.start.AddDate(0, 0, index)

	return &binance.Kline{
		OpenTime:  open.UnixMilli(),
		Open:      "100.5",
		High:      fmt.Sprintf("%.2f", closePrice+1),
		Low:       "99.25",
		Close:     fmt.Sprintf("%.2f", closePrice),
		Volume:    "1234.5",
		CloseTime: open.Add(24*time.Hour - time.Millisecond).UnixMilli(),
	}
}

func (suite *BinanceClientTestSuite) TestNewBinanceClient() {
	client := NewBinanceClient(BinanceConfig{}, nil)
	suite.NotNil(client)
	suite.NotNil(client.apiClient)
}

func (suite *BinanceClientTestSuite) TestGetHistoricalBars() {
	suite.klines.pages = [][]*binance.Kline{{suite.kline(0, 101), suite.kline(1, 102)}}
	suite.expectRequests(1)

	end := suite.start.AddDate(0, 0, 5)

	bars, err := suite.client.GetHistoricalBars(context.Background(), "BTCUSDT", types.Interval1d, suite.start, end)
	suite.Require().NoError(err)
	suite.Require().Len(bars, 2)

	suite.Equal(types.Kline{
		Symbol:    "BTCUSDT",
		OpenTime:  suite.start,
		CloseTime: suite.start.Add(24*time.Hour - time.Millisecond),
		Open:      100.5,
		High:      102,
		Low:       99.25,
		Close:     101,
		Volume:    1234.5,
	}, bars[0])
	suite.NoError(bars[1].Validate())

	suite.Equal([]klinesRequest{{
		symbol:   "BTCUSDT",
		interval: "1d",
		start:    suite.start.UnixMilli(),
		end:      end.UnixMilli(),
		limit:    binancePageLimit,
	}}, suite.klines.requests)
}

func (suite *BinanceClientTestSuite) TestPagination() {
	first := make([]*binance.Kline, 0, binancePageLimit)
	for i := 0; i < binancePageLimit; i++ {
		first = append(first, suite.kline(i, 101))
	}

	suite.klines.pages = [][]*binance.Kline{first, {suite.kline(binancePageLimit, 102)}}
	suite.expectRequests(2)

	end := suite.start.AddDate(0, 0, binancePageLimit+10)

	bars, err := suite.client.GetHistoricalBars(context.Background(), "BTCUSDT", types.Interval1d, suite.start, end)
	suite.Require().NoError(err)
	suite.Len(bars, binancePageLimit+1)

	suite.Require().Len(suite.klines.requests, 2)
	suite.Equal(first[len(first)-1].CloseTime+1, suite.klines.requests[1].start)
}

func (suite *BinanceClientTestSuite) TestFiltersBarsOutsideRange() {
	suite.klines.pages = [][]*binance.Kline{{suite.kline(0, 101), suite.kline(1, 102), suite.kline(3, 103)}}
	suite.expectRequests(1)

	bars, err := suite.client.GetHistoricalBars(context.Background(), "BTCUSDT", types.Interval1d, suite.start, suite.start.AddDate(0, 0, 1))
	suite.Require().NoError(err)
	suite.Len(bars, 2)
}

func (suite *BinanceClientTestSuite) TestFetchError() {
	suite.klines.errs = []error{stderrors.New("rate limited")}
	suite.expectRequests(1)

	_, err := suite.client.GetHistoricalBars(context.Background(), "BTCUSDT", types.Interval1d, suite.start, suite.start.AddDate(0, 0, 1))
	suite.True(errors.HasCode(err, errors.ErrCodeMarketDataFetchFailed))
	suite.Contains(err.Error(), "rate limited")
}

func (suite *BinanceClientTestSuite) TestParseError() {
	bad := suite.kline(0, 101)
	bad.Close = "not-a-number"

	suite.klines.pages = [][]*binance.Kline{{bad}}
	suite.expectRequests(1)

	_, err := suite.client.GetHistoricalBars(context.Background(), "BTCUSDT", types.Interval1d, suite.start, suite.start.AddDate(0, 0, 1))
	suite.True(errors.HasCode(err, errors.ErrCodeMarketDataParseFailed))
}

func (suite *BinanceClientTestSuite) TestUnsupportedInterval() {
	_, err := suite.client.GetHistoricalBars(context.Background(), "BTCUSDT", types.Interval("2h"), suite.start, suite.start.AddDate(0, 0, 1))
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidInterval))
}

func (suite *BinanceClientTestSuite) TestMissingCloseTimeIsDerived() {
	k := suite.kline(0, 101)
	k.CloseTime = 0

	bars, err := convertKlines("BTCUSDT", types.Interval1h, []*binance.Kline{k})
	suite.Require().NoError(err)
	suite.Equal(suite.start.Add(time.Hour-time.Millisecond), bars[0].CloseTime)
}
