package provider

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/polygon-io/client-go/rest/models"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

// fakeAggsIterator implements PolygonAggsIterator for testing.
type fakeAggsIterator struct {
	aggs  []models.Agg
	index int
	err   error
}

func (f *fakeAggsIterator) Next() bool {
	if f.index < len(f.aggs) {
		f.index++
		return true
	}

	return false
}

func (f *fakeAggsIterator) Item() models.Agg {
	if f.index > 0 && f.index <= len(f.aggs) {
		return f.aggs[f.index-1]
	}

	return models.Agg{}
}

func (f *fakeAggsIterator) Err() error {
	return f.err
}

type PolygonClientTestSuite struct {
	suite.Suite
	ctrl   *gomock.Controller
	api    *MockPolygonAPIClient
	client *PolygonClient
	start  time.Time
}

func TestPolygonClientSuite(t *testing.T) {
	suite.Run(t, new(PolygonClientTestSuite))
}

func (suite *PolygonClientTestSuite) SetupTest() {
	suite.ctrl = gomock.NewController(suite.T())
	suite.api = NewMockPolygonAPIClient(suite.ctrl)
	suite.client = NewPolygonClientWithAPI(suite.api, logger.NewNopLogger())
	suite.start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
}

func (suite *PolygonClientTestSuite) TearDownTest() {
	suite.ctrl.Finish()
}

func (suite *PolygonClientTestSuite) agg(offset time.Duration, closePrice float64) models.Agg {
	return models.Agg{
		Timestamp: models.Millis(suite.start.Add(offset)),
		Open:      100,
		High:      closePrice + 1,
		Low:       99,
		Close:     closePrice,
		Volume:    500,
	}
}

func (suite *PolygonClientTestSuite) TestNewPolygonClient() {
	client := NewPolygonClient(PolygonConfig{APIKey: "test-api-key"}, nil)
	suite.NotNil(client)
	suite.NotNil(client.apiClient)
}

func (suite *PolygonClientTestSuite) TestGetHistoricalBars() {
	end := suite.start.Add(8 * time.Hour)
	iterator := &fakeAggsIterator{aggs: []models.Agg{suite.agg(0, 101), suite.agg(4*time.Hour, 102)}}

	suite.api.EXPECT().
		ListAggs(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, params *models.ListAggsParams, _ ...models.RequestOption) PolygonAggsIterator {
			suite.Equal("SPY", params.Ticker)
			suite.Equal(4, params.Multiplier)
			suite.Equal(models.Hour, params.Timespan)
			suite.True(time.Time(params.From).Equal(suite.start))
			suite.True(time.Time(params.To).Equal(end))

			return iterator
		})

	bars, err := suite.client.GetHistoricalBars(context.Background(), "SPY", types.Interval4h, suite.start, end)
	suite.Require().NoError(err)
	suite.Require().Len(bars, 2)

	suite.Equal(types.Kline{
		Symbol:    "SPY",
		OpenTime:  suite.start.Add(4 * time.Hour),
		CloseTime: suite.start.Add(8*time.Hour - time.Millisecond),
		Open:      100,
		High:      103,
		Low:       99,
		Close:     102,
		Volume:    500,
	}, bars[1])
}

func (suite *PolygonClientTestSuite) TestFiltersBarsOutsideRange() {
	iterator := &fakeAggsIterator{aggs: []models.Agg{
		suite.agg(-24*time.Hour, 100),
		suite.agg(0, 101),
		suite.agg(48*time.Hour, 102),
	}}
	suite.api.EXPECT().ListAggs(gomock.Any(), gomock.Any()).Return(iterator)

	bars, err := suite.client.GetHistoricalBars(context.Background(), "SPY", types.Interval1d, suite.start, suite.start.Add(24*time.Hour))
	suite.Require().NoError(err)
	suite.Require().Len(bars, 1)
	suite.Equal(101.0, bars[0].Close)
}

func (suite *PolygonClientTestSuite) TestIteratorError() {
	iterator := &fakeAggsIterator{err: stderrors.New("unauthorized")}
	suite.api.EXPECT().ListAggs(gomock.Any(), gomock.Any()).Return(iterator)

	_, err := suite.client.GetHistoricalBars(context.Background(), "SPY", types.Interval1d, suite.start, suite.start.Add(24*time.Hour))
	suite.True(errors.HasCode(err, errors.ErrCodeMarketDataFetchFailed))
	suite.Contains(err.Error(), "unauthorized")
}

func (suite *PolygonClientTestSuite) TestPolygonTimespan() {
	tests := []struct {
		interval   types.Interval
		multiplier int
		timespan   models.Timespan
	}{
		{types.Interval1m, 1, models.Minute},
		{types.Interval5m, 5, models.Minute},
		{types.Interval15m, 15, models.Minute},
		{types.Interval30m, 30, models.Minute},
		{types.Interval1h, 1, models.Hour},
		{types.Interval4h, 4, models.Hour},
		{types.Interval1d, 1, models.Day},
		{types.Interval1w, 1, models.Week},
	}

	for _, tc := range tests {
		suite.Run(string(tc.interval), func() {
			multiplier, timespan, err := polygonTimespan(tc.interval)
			suite.Require().NoError(err)
			suite.Equal(tc.multiplier, multiplier)
			suite.Equal(tc.timespan, timespan)
		})
	}

	_, _, err := polygonTimespan(types.Interval("2h"))
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidInterval))
}
