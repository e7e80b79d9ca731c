// Package analytics derives return, risk and trading statistics from an
// equity curve and a trade ledger. Every function is pure. Degenerate input
// (empty curves, zero volatility, no losing trades) yields zeroed metrics
// instead of NaN or Inf.
package analytics

import (
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// Input is everything the analytics need from one run.
type Input struct {
	InitialCapital float64
	EquityCurve    []types.EquityPoint
	Trades         []types.Trade
	// VaRConfidence is the VaR confidence level, e.g. 0.95.
	VaRConfidence float64
}

// Report holds the derived metric blocks of a result.
type Report struct {
	Returns      types.Returns
	Risk         types.Risk
	RiskAdjusted types.RiskAdjusted
	Trading      types.TradingStats
}

// Analyze computes every metric block.
func Analyze(in Input) Report {
	equity := make([]float64, len(in.EquityCurve))
	for i, p := range in.EquityCurve {
		equity[i] = p.Equity
	}

	returns := PeriodReturns(equity)

	r := ComputeReturns(in.InitialCapital, in.EquityCurve)
	risk := ComputeRisk(in.EquityCurve, returns, in.VaRConfidence)

	return Report{
		Returns:      r,
		Risk:         risk,
		RiskAdjusted: ComputeRiskAdjusted(returns, r.AnnualizedReturn, risk.MaxDrawdown),
		Trading:      ComputeTradingStats(in.Trades),
	}
}

// TradingDays counts the distinct UTC dates of the curve after its initial point.
func TradingDays(curve []types.EquityPoint) int {
	if len(curve) < 2 {
		return 0
	}

	days := make(map[string]struct{})
	for _, p := range curve[1:] {
		days[p.Timestamp.UTC().Format(time.DateOnly)] = struct{}{}
	}

	return len(days)
}

func ComputeReturns(initialCapital float64, curve []types.EquityPoint) types.Returns {
	result := types.Returns{}

	if len(curve) == 0 {
		return result
	}

	final := curve[len(curve)-1].Equity
	result.TotalReturn = SafeDivide(final-initialCapital, initialCapital)
	result.TradingDays = TradingDays(curve)
	result.AnnualizedReturn = AnnualizedReturn(result.TotalReturn, result.TradingDays)
	result.BuyAndHoldReturn = buyAndHoldReturn(curve)
	result.Alpha, result.Beta = alphaBeta(curve)
	result.MonthlyReturns = MonthlyReturns(curve)

	return result
}

func buyAndHoldReturn(curve []types.EquityPoint) float64 {
	first := 0.0

	for _, p := range curve {
		if p.Benchmark > 0 {
			first = p.Benchmark

			break
		}
	}

	last := curve[len(curve)-1].Benchmark

	return SafeDivide(last-first, first)
}

// alphaBeta regresses per-point strategy returns on benchmark returns over
// the points where both are defined. Alpha is per point.
func alphaBeta(curve []types.EquityPoint) (float64, float64) {
	var strategy, benchmark []float64

	for i := 1; i < len(curve); i++ {
		prev, cur := curve[i-1], curve[i]
		if prev.Benchmark <= 0 || cur.Benchmark <= 0 || prev.Equity == 0 {
			continue
		}

		strategy = append(strategy, (cur.Equity-prev.Equity)/prev.Equity)
		benchmark = append(benchmark, (cur.Benchmark-prev.Benchmark)/prev.Benchmark)
	}

	if len(strategy) < 2 {
		return 0, 0
	}

	variance := SampleStandardDeviation(benchmark)
	variance *= variance

	beta := SafeDivide(SampleCovariance(strategy, benchmark), variance)
	alpha := ArithmeticAverage(strategy) - beta*ArithmeticAverage(benchmark)

	return alpha, beta
}

// MonthlyReturns returns the equity return of every calendar month (UTC)
// touched by the curve, measured from the last equity of the previous month.
func MonthlyReturns(curve []types.EquityPoint) []types.MonthlyReturn {
	if len(curve) < 2 {
		return nil
	}

	var months []types.MonthlyReturn

	base := curve[0].Equity
	month := curve[1].Timestamp.UTC().Format("2006-01")
	last := base

	for _, p := range curve[1:] {
		key := p.Timestamp.UTC().Format("2006-01")
		if key != month {
			months = append(months, types.MonthlyReturn{Month: month, Return: SafeDivide(last-base, base)})
			base = last
			month = key
		}

		last = p.Equity
	}

	months = append(months, types.MonthlyReturn{Month: month, Return: SafeDivide(last-base, base)})

	return months
}

func ComputeRisk(curve []types.EquityPoint, returns []float64, confidence float64) types.Risk {
	risk := types.Risk{VaRConfidence: confidence}

	if len(curve) == 0 {
		return risk
	}

	equity := make([]float64, len(curve))
	for i, p := range curve {
		equity[i] = p.Equity
	}

	risk.MaxDrawdown, risk.MaxDrawdownStart, risk.MaxDrawdownEnd = MaxDrawdown(equity)
	if risk.MaxDrawdown > 0 {
		risk.MaxDrawdownStartTime = curve[risk.MaxDrawdownStart].Timestamp
		risk.MaxDrawdownEndTime = curve[risk.MaxDrawdownEnd].Timestamp
	}

	risk.Volatility = SampleStandardDeviation(returns)
	risk.DownsideDeviation = DownsideDeviation(returns)

	if len(returns) > 0 && confidence > 0 && confidence < 1 {
		risk.VaR = Percentile(returns, 1-confidence)

		var tail []float64
		for _, r := range returns {
			if r <= risk.VaR {
				tail = append(tail, r)
			}
		}

		risk.CVaR = ArithmeticAverage(tail)
	}

	return risk
}

func ComputeRiskAdjusted(returns []float64, annualizedReturn, maxDrawdown float64) types.RiskAdjusted {
	mean := ArithmeticAverage(returns)

	return types.RiskAdjusted{
		SharpeRatio:  SafeDivide(mean, SampleStandardDeviation(returns)),
		SortinoRatio: SafeDivide(mean, DownsideDeviation(returns)),
		CalmarRatio:  SafeDivide(annualizedReturn, maxDrawdown),
	}
}

// ComputeTradingStats summarizes the closed trades. Open trades only count
// towards OpenTrades and TotalCommission.
func ComputeTradingStats(trades []types.Trade) types.TradingStats {
	stats := types.TradingStats{}

	var (
		grossWin, grossLoss float64
		holding             time.Duration
		pnls                []float64
	)

	for _, trade := range trades {
		stats.TotalCommission += trade.Commission

		if trade.IsOpen() {
			stats.OpenTrades++

			continue
		}

		stats.TotalTrades++
		pnls = append(pnls, trade.PnL)
		holding += trade.HoldingPeriod()

		switch {
		case trade.PnL > 0:
			stats.WinningTrades++
			grossWin += trade.PnL

			if trade.PnL > stats.LargestWin {
				stats.LargestWin = trade.PnL
			}
		case trade.PnL < 0:
			stats.LosingTrades++
			grossLoss += trade.PnL

			if trade.PnL < stats.LargestLoss {
				stats.LargestLoss = trade.PnL
			}
		}
	}

	stats.TotalPnL = grossWin + grossLoss
	stats.WinRate = SafeDivide(float64(stats.WinningTrades), float64(stats.TotalTrades))
	stats.ProfitFactor = SafeDivide(grossWin, -grossLoss)
	stats.AverageTrade = ArithmeticAverage(pnls)
	stats.AverageWin = SafeDivide(grossWin, float64(stats.WinningTrades))
	stats.AverageLoss = SafeDivide(grossLoss, float64(stats.LosingTrades))
	stats.AverageHoldingPeriod = SafeDivide(holding.Seconds(), float64(stats.TotalTrades))

	return stats
}
