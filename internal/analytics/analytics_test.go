package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/stretchr/testify/suite"
)

type AnalyticsTestSuite struct {
	suite.Suite
	start time.Time
}

func TestAnalyticsSuite(t *testing.T) {
	suite.Run(t, new(AnalyticsTestSuite))
}

func (suite *AnalyticsTestSuite) SetupTest() {
	suite.start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
}

func (suite *AnalyticsTestSuite) curve(values ...float64) []types.EquityPoint {
	points := make([]types.EquityPoint, len(values))
	for i, v := range values {
		points[i] = types.EquityPoint{Timestamp: suite.start.AddDate(0, 0, i), Equity: v}
	}

	return points
}

func (suite *AnalyticsTestSuite) TestSampleStandardDeviation() {
	suite.Equal(0.0, SampleStandardDeviation(nil))
	suite.Equal(0.0, SampleStandardDeviation([]float64{5}))
	suite.InDelta(2.138089935, SampleStandardDeviation([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 1e-9)
}

func (suite *AnalyticsTestSuite) TestPercentile() {
	values := []float64{5, 1, 4, 2, 3}

	suite.Equal(1.0, Percentile(values, 0))
	suite.Equal(5.0, Percentile(values, 1))
	suite.Equal(3.0, Percentile(values, 0.5))
	suite.InDelta(1.2, Percentile(values, 0.05), 1e-12)
	suite.Equal(0.0, Percentile(nil, 0.5))
	// input is not reordered
	suite.Equal([]float64{5, 1, 4, 2, 3}, values)
}

func (suite *AnalyticsTestSuite) TestMaxDrawdown() {
	tests := []struct {
		name   string
		values []float64
		dd     float64
		start  int
		end    int
	}{
		{"monotonic increase", []float64{100, 101, 105, 110}, 0, 0, 0},
		{"single dip", []float64{100, 120, 90, 130}, 0.25, 1, 2},
		{"deepest of two", []float64{100, 90, 100, 150, 100}, 1.0 / 3.0, 3, 4},
		{"empty", nil, 0, 0, 0},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			dd, start, end := MaxDrawdown(tc.values)
			suite.InDelta(tc.dd, dd, 1e-12)
			suite.Equal(tc.start, start)
			suite.Equal(tc.end, end)
		})
	}
}

func (suite *AnalyticsTestSuite) TestAnnualizedReturn() {
	suite.InDelta(0.1, AnnualizedReturn(0.1, 252), 1e-12)
	suite.InDelta(math.Pow(1.05, 2)-1, AnnualizedReturn(0.05, 126), 1e-12)
	suite.Equal(0.0, AnnualizedReturn(0.1, 0))
	suite.Equal(0.0, AnnualizedReturn(-1, 10))
}

func (suite *AnalyticsTestSuite) TestAnalyzeFlatCurveIsZero() {
	report := Analyze(Input{
		InitialCapital: 100000,
		EquityCurve:    suite.curve(100000, 100000, 100000, 100000),
		VaRConfidence:  0.95,
	})

	suite.Equal(0.0, report.Returns.TotalReturn)
	suite.Equal(0.0, report.Returns.AnnualizedReturn)
	suite.Equal(0.0, report.Risk.Volatility)
	suite.Equal(0.0, report.Risk.MaxDrawdown)
	suite.Equal(0.0, report.RiskAdjusted.SharpeRatio)
	suite.Equal(0.0, report.RiskAdjusted.SortinoRatio)
	suite.Equal(0.0, report.RiskAdjusted.CalmarRatio)
	suite.Equal(0, report.Trading.TotalTrades)
	suite.Equal(0.0, report.Trading.WinRate)
	suite.Equal(0.0, report.Trading.ProfitFactor)
	suite.Equal(3, report.Returns.TradingDays)
}

func (suite *AnalyticsTestSuite) TestAnalyzeEmptyCurve() {
	report := Analyze(Input{InitialCapital: 100000, VaRConfidence: 0.95})

	suite.Equal(0.0, report.Returns.TotalReturn)
	suite.Equal(0.0, report.Risk.VaR)
	suite.Equal(0.95, report.Risk.VaRConfidence)
	suite.Nil(report.Returns.MonthlyReturns)
}

func (suite *AnalyticsTestSuite) TestAnalyzeReturnsAndRisk() {
	report := Analyze(Input{
		InitialCapital: 100,
		EquityCurve:    suite.curve(100, 110, 99, 108.9),
		VaRConfidence:  0.95,
	})

	suite.InDelta(0.089, report.Returns.TotalReturn, 1e-12)
	suite.InDelta(0.1, report.Risk.MaxDrawdown, 1e-12)
	suite.Equal(1, report.Risk.MaxDrawdownStart)
	suite.Equal(2, report.Risk.MaxDrawdownEnd)
	suite.True(report.Risk.MaxDrawdownEndTime.Equal(suite.start.AddDate(0, 0, 2)))

	// returns are 0.1, -0.1, 0.1
	suite.InDelta(0.11547005, report.Risk.Volatility, 1e-8)
	suite.InDelta(math.Sqrt(0.01/3), report.Risk.DownsideDeviation, 1e-12)
	// 5th percentile interpolates between -0.1 and 0.1
	suite.InDelta(-0.08, report.Risk.VaR, 1e-9)
	suite.InDelta(-0.1, report.Risk.CVaR, 1e-12)
	suite.InDelta((0.1/3)/0.11547005, report.RiskAdjusted.SharpeRatio, 1e-6)
	suite.InDelta((0.1/3)/math.Sqrt(0.01/3), report.RiskAdjusted.SortinoRatio, 1e-9)
	suite.InDelta(report.Returns.AnnualizedReturn/0.1, report.RiskAdjusted.CalmarRatio, 1e-9)
}

func (suite *AnalyticsTestSuite) TestBenchmarkMetrics() {
	curve := suite.curve(100, 110, 121)
	curve[0].Benchmark = 50
	curve[1].Benchmark = 55
	curve[2].Benchmark = 60.5

	returns := ComputeReturns(100, curve)

	suite.InDelta(0.21, returns.BuyAndHoldReturn, 1e-12)
	// identical returns have no spread, so beta is undefined and falls back to 0
	suite.Equal(0.0, returns.Beta)

	curve = suite.curve(100, 110, 99, 118.8)
	curve[0].Benchmark = 10
	curve[1].Benchmark = 10.5
	curve[2].Benchmark = 9.975
	curve[3].Benchmark = 10.9725

	returns = ComputeReturns(100, curve)
	// strategy returns are twice the benchmark returns
	suite.InDelta(2.0, returns.Beta, 1e-9)
	suite.InDelta(0.0, returns.Alpha, 1e-9)
}

func (suite *AnalyticsTestSuite) TestMonthlyReturns() {
	curve := []types.EquityPoint{
		{Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Equity: 100},
		{Timestamp: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), Equity: 105},
		{Timestamp: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), Equity: 110},
		{Timestamp: time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC), Equity: 99},
	}

	months := MonthlyReturns(curve)
	suite.Require().Len(months, 2)
	suite.Equal("2024-01", months[0].Month)
	suite.InDelta(0.1, months[0].Return, 1e-12)
	suite.Equal("2024-02", months[1].Month)
	suite.InDelta(-0.1, months[1].Return, 1e-12)
}

func (suite *AnalyticsTestSuite) TestTradingStats() {
	entry := suite.start
	trades := []types.Trade{
		{PnL: 97.9, Commission: 2.1, EntryTime: entry, ExitTime: entry.Add(6 * 24 * time.Hour)},
		{PnL: -50, Commission: 2, EntryTime: entry, ExitTime: entry.Add(2 * 24 * time.Hour)},
		{PnL: 20, Commission: 1, EntryTime: entry, ExitTime: entry.Add(24 * time.Hour)},
		{Commission: 1, EntryTime: entry},
	}

	stats := ComputeTradingStats(trades)

	suite.Equal(3, stats.TotalTrades)
	suite.Equal(2, stats.WinningTrades)
	suite.Equal(1, stats.LosingTrades)
	suite.Equal(1, stats.OpenTrades)
	suite.InDelta(2.0/3.0, stats.WinRate, 1e-12)
	suite.InDelta(117.9/50, stats.ProfitFactor, 1e-12)
	suite.InDelta(67.9/3, stats.AverageTrade, 1e-12)
	suite.InDelta(58.95, stats.AverageWin, 1e-12)
	suite.InDelta(-50, stats.AverageLoss, 1e-12)
	suite.Equal(97.9, stats.LargestWin)
	suite.Equal(-50.0, stats.LargestLoss)
	suite.InDelta(6.1, stats.TotalCommission, 1e-12)
	suite.InDelta(3*24*3600, stats.AverageHoldingPeriod, 1e-6)
}

func (suite *AnalyticsTestSuite) TestTradingStatsNoLosers() {
	stats := ComputeTradingStats([]types.Trade{
		{PnL: 10, EntryTime: suite.start, ExitTime: suite.start.Add(time.Hour)},
	})

	suite.Equal(1.0, stats.WinRate)
	suite.Equal(0.0, stats.ProfitFactor)
	suite.Equal(0.0, stats.AverageLoss)
}
