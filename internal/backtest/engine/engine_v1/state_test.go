package engine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/stretchr/testify/suite"
)

type BacktestStateTestSuite struct {
	suite.Suite
	state *BacktestState
	start time.Time
}

func TestBacktestStateSuite(t *testing.T) {
	suite.Run(t, new(BacktestStateTestSuite))
}

func (suite *BacktestStateTestSuite) SetupTest() {
	state, err := NewBacktestState(logger.NewNopLogger())
	suite.Require().NoError(err)
	suite.Require().NoError(state.Initialize())

	suite.state = state
	suite.start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
}

func (suite *BacktestStateTestSuite) TearDownTest() {
	suite.NoError(suite.state.Close())
}

func (suite *BacktestStateTestSuite) record() {
	orders := []types.Order{
		{
			ID: "order-1", Symbol: "AAPL", Side: types.PurchaseTypeBuy, OrderType: types.OrderTypeMarket,
			Quantity: 10, Status: types.OrderStatusFilled, CreatedAt: suite.start, FilledAt: suite.start.AddDate(0, 0, 1),
			FillPrice: 100, Commission: 1, Reason: types.OrderReasonStrategy, LimitPrice: optional.None[float64](),
		},
		{
			ID: "order-2", Symbol: "AAPL", Side: types.PurchaseTypeSell, OrderType: types.OrderTypeLimit,
			Quantity: 10, Status: types.OrderStatusCancelled, CreatedAt: suite.start.AddDate(0, 0, 2),
			Reason: types.OrderReasonUnfilledAtEnd, LimitPrice: optional.Some(120.0),
		},
	}

	trades := []types.Trade{
		{ID: "trade-1", Symbol: "AAPL", Side: types.PositionTypeLong, EntryTime: suite.start, ExitTime: suite.start.AddDate(0, 0, 5), EntryPrice: 100, ExitPrice: 110, Quantity: 10, Commission: 2.1, PnL: 97.9},
		{ID: "trade-2", Symbol: "AAPL", Side: types.PositionTypeLong, EntryTime: suite.start, ExitTime: suite.start.AddDate(0, 0, 6), EntryPrice: 100, ExitPrice: 95, Quantity: 5, Commission: 1, PnL: -26},
		{ID: "trade-3", Symbol: "MSFT", Side: types.PositionTypeShort, EntryTime: suite.start, ExitTime: suite.start.AddDate(0, 0, 3), EntryPrice: 300, ExitPrice: 290, Quantity: 1, Commission: 0.5, PnL: 9.5},
		{ID: "trade-4", Symbol: "MSFT", Side: types.PositionTypeLong, EntryTime: suite.start.AddDate(0, 0, 4), EntryPrice: 295, Quantity: 1, Commission: 0.3},
	}

	curve := []types.EquityPoint{
		{Timestamp: suite.start, Equity: 100000},
		{Timestamp: suite.start.AddDate(0, 0, 1), Equity: 100050, Benchmark: 101},
		{Timestamp: suite.start.AddDate(0, 0, 2), Equity: 100020, Drawdown: 0.0003, Benchmark: 99},
	}

	suite.Require().NoError(suite.state.Record(orders, trades, curve))
}

func (suite *BacktestStateTestSuite) TestRecordCounts() {
	suite.record()

	for table, expected := range map[string]int{"orders": 2, "trades": 4, "equity": 3} {
		count, err := suite.state.Count(table)
		suite.Require().NoError(err)
		suite.Equal(expected, count, table)
	}
}

func (suite *BacktestStateTestSuite) TestSymbolStatsSkipsOpenTrades() {
	suite.record()

	stats, err := suite.state.SymbolStats()
	suite.Require().NoError(err)
	suite.Require().Len(stats, 2)

	suite.Equal("AAPL", stats[0].Symbol)
	suite.Equal(2, stats[0].Trades)
	suite.Equal(1, stats[0].WinningTrades)
	suite.Equal(1, stats[0].LosingTrades)
	suite.InDelta(71.9, stats[0].PnL, 1e-9)
	suite.InDelta(3.1, stats[0].Commission, 1e-9)

	suite.Equal("MSFT", stats[1].Symbol)
	suite.Equal(1, stats[1].Trades)
	suite.InDelta(0.5, stats[1].Commission, 1e-9)
}

func (suite *BacktestStateTestSuite) TestWriteParquet() {
	suite.record()

	dir := filepath.Join(suite.T().TempDir(), "archive")
	suite.Require().NoError(suite.state.Write(dir))

	for _, name := range []string{OrdersFileName, TradesFileName, EquityFileName} {
		info, err := os.Stat(filepath.Join(dir, name))
		suite.Require().NoError(err, name)
		suite.Positive(info.Size())
	}
}

func (suite *BacktestStateTestSuite) TestCleanup() {
	suite.record()
	suite.Require().NoError(suite.state.Cleanup())

	count, err := suite.state.Count("trades")
	suite.Require().NoError(err)
	suite.Zero(count)

	stats, err := suite.state.SymbolStats()
	suite.NoError(err)
	suite.Empty(stats)
}
