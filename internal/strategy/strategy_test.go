package strategy

import (
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/mocks"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type StrategyTestSuite struct {
	suite.Suite
	start time.Time
}

func TestStrategySuite(t *testing.T) {
	suite.Run(t, new(StrategyTestSuite))
}

func (suite *StrategyTestSuite) SetupTest() {
	suite.start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
}

func (suite *StrategyTestSuite) marketData(closes ...float64) types.MarketData {
	pairs := make([][2]float64, len(closes))
	for i, c := range closes {
		pairs[i] = [2]float64{c, c}
	}

	return types.MarketData{
		Symbol:   "AAPL",
		Interval: types.Interval1d,
		Bars:     mocks.Bars("AAPL", suite.start, 0.5, pairs...),
	}
}

func (suite *StrategyTestSuite) TestMovingAverageCrossover() {
	params := DefaultMovingAverageParams()
	params.ShortWindow = 2
	params.LongWindow = 3

	s, err := NewMovingAverageCrossover(params)
	suite.Require().NoError(err)
	suite.Equal("SMA_Cross_2_3", s.Name())

	tests := []struct {
		name     string
		closes   []float64
		expected optional.Option[types.PurchaseType]
	}{
		{"not enough bars", []float64{5, 4, 3}, optional.None[types.PurchaseType]()},
		{"crosses above", []float64{5, 4, 3, 2, 6}, optional.Some(types.PurchaseTypeBuy)},
		{"crosses below", []float64{1, 2, 3, 4, 0}, optional.Some(types.PurchaseTypeSell)},
		{"stays above", []float64{1, 2, 3, 4, 5}, optional.None[types.PurchaseType]()},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			signal, err := s.GenerateSignal(suite.marketData(tc.closes...))
			suite.Require().NoError(err)
			suite.Equal(tc.expected.IsSome(), signal.IsSome())

			if tc.expected.IsSome() {
				got := signal.Unwrap()
				suite.Equal(tc.expected.Unwrap(), got.Side)
				suite.Equal("AAPL", got.Symbol)
				suite.Equal(tc.closes[len(tc.closes)-1], got.Price)
				suite.NoError(got.Validate())
			}
		})
	}
}

func (suite *StrategyTestSuite) TestMovingAverageProtectiveLevels() {
	params := DefaultMovingAverageParams()
	params.ShortWindow = 2
	params.LongWindow = 3
	params.StopLossPct = 0.05
	params.TakeProfitPct = 0.1

	s, err := NewMovingAverageCrossover(params)
	suite.Require().NoError(err)

	signal, err := s.GenerateSignal(suite.marketData(5, 4, 3, 2, 6))
	suite.Require().NoError(err)
	suite.Require().True(signal.IsSome())
	suite.InDelta(5.7, signal.Unwrap().StopLoss.Unwrap(), 1e-9)
	suite.InDelta(6.6, signal.Unwrap().TakeProfit.Unwrap(), 1e-9)
}

func (suite *StrategyTestSuite) TestMovingAverageVolumeConfirmation() {
	params := DefaultMovingAverageParams()
	params.ShortWindow = 2
	params.LongWindow = 3
	params.VolumeConfirmation = true

	s, err := NewMovingAverageCrossover(params)
	suite.Require().NoError(err)

	// flat volume never reaches 1.5x its own average
	signal, err := s.GenerateSignal(suite.marketData(5, 4, 3, 2, 6))
	suite.Require().NoError(err)
	suite.True(signal.IsNone())

	data := suite.marketData(5, 4, 3, 2, 6)
	data.Bars[len(data.Bars)-1].Volume = 5000
	signal, err = s.GenerateSignal(data)
	suite.Require().NoError(err)
	suite.True(signal.IsSome())
}

func (suite *StrategyTestSuite) TestRSIReversion() {
	s, err := NewRSIReversion(RSIParams{Period: 2, Oversold: 30, Overbought: 70})
	suite.Require().NoError(err)

	buy, err := s.GenerateSignal(suite.marketData(10, 11, 12, 9))
	suite.Require().NoError(err)
	suite.Require().True(buy.IsSome())
	suite.Equal(types.PurchaseTypeBuy, buy.Unwrap().Side)
	suite.InDelta(5.0/30.0, buy.Unwrap().Confidence, 1e-9)

	sell, err := s.GenerateSignal(suite.marketData(10, 9, 8, 11))
	suite.Require().NoError(err)
	suite.Require().True(sell.IsSome())
	suite.Equal(types.PurchaseTypeSell, sell.Unwrap().Side)

	none, err := s.GenerateSignal(suite.marketData(10, 11))
	suite.Require().NoError(err)
	suite.True(none.IsNone())
}

func (suite *StrategyTestSuite) TestBuyAndHold() {
	s := NewBuyAndHold(BuyAndHoldParams{Quantity: 3})

	first, err := s.GenerateSignal(suite.marketData(100))
	suite.Require().NoError(err)
	suite.Require().True(first.IsSome())
	suite.Equal(3.0, first.Unwrap().Quantity.Unwrap())

	later, err := s.GenerateSignal(suite.marketData(100, 101))
	suite.Require().NoError(err)
	suite.True(later.IsNone())
}

func (suite *StrategyTestSuite) TestNull() {
	signal, err := NewNull().GenerateSignal(suite.marketData(1, 2, 3))
	suite.NoError(err)
	suite.True(signal.IsNone())
}

func (suite *StrategyTestSuite) TestScripted() {
	s := NewScripted("script", []ScriptedSignal{
		{Symbol: "AAPL", Index: 1, Signal: types.Signal{Side: types.PurchaseTypeBuy, Quantity: optional.Some(10.0)}},
	})

	none, err := s.GenerateSignal(suite.marketData(100))
	suite.Require().NoError(err)
	suite.True(none.IsNone())

	signal, err := s.GenerateSignal(suite.marketData(100, 101))
	suite.Require().NoError(err)
	suite.Require().True(signal.IsSome())
	suite.Equal("AAPL", signal.Unwrap().Symbol)
	suite.Equal(suite.start.AddDate(0, 0, 1), signal.Unwrap().Time)

	other := types.MarketData{Symbol: "MSFT", Bars: mocks.Bars("MSFT", suite.start, 0, [2]float64{1, 1}, [2]float64{1, 1})}
	none, err = s.GenerateSignal(other)
	suite.Require().NoError(err)
	suite.True(none.IsNone())
}

func (suite *StrategyTestSuite) TestNew() {
	tests := []struct {
		name        string
		kind        Kind
		params      Params
		expectName  string
		expectError errors.ErrorCode
	}{
		{"defaults", KindMovingAverageCrossover, nil, "SMA_Cross_5_20", 0},
		{"overrides", KindMovingAverageCrossover, Params{"short_window": 3.0, "long_window": 8.0, "ma_type": "EMA"}, "EMA_Cross_3_8", 0},
		{"invalid windows", KindMovingAverageCrossover, Params{"short_window": 20, "long_window": 5}, "", errors.ErrCodeStrategyConfigError},
		{"rsi", KindRSIReversion, Params{"period": 7}, "RSI_7_30_70", 0},
		{"buy and hold", KindBuyAndHold, nil, "BuyAndHold", 0},
		{"null", KindNull, nil, "Null", 0},
		{"unknown", Kind("martingale"), nil, "", errors.ErrCodeUnsupportedStrategy},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			s, err := New(tc.kind, tc.params)
			if tc.expectError != 0 {
				suite.True(errors.HasCode(err, tc.expectError), "got %v", err)

				return
			}

			suite.Require().NoError(err)
			suite.Equal(tc.expectName, s.Name())
		})
	}
}

func (suite *StrategyTestSuite) TestParamsSchema() {
	schema, err := ParamsSchema(KindMovingAverageCrossover)
	suite.Require().NoError(err)
	suite.Contains(schema, "short_window")
	suite.Contains(schema, "signal_threshold")

	_, err = ParamsSchema("unknown")
	suite.Error(err)
}
