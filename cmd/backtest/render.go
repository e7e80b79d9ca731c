package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/sweep"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).MarginTop(1)

	helpStyle = lipgloss.NewStyle().Faint(true)

	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))

	bestStyle = lipgloss.NewStyle().Bold(true)
)

// metricRow is one labelled value of a result.
type metricRow struct {
	label string
	value func(types.BacktestResult) string
}

func percent(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

func number(v float64) string {
	return fmt.Sprintf("%.4f", v)
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// summaryRows are the headline metrics shared by the summary and compare views.
var summaryRows = []metricRow{
	{"Strategy", func(r types.BacktestResult) string { return r.Summary.StrategyName }},
	{"Symbols", func(r types.BacktestResult) string { return strings.Join(r.Summary.Symbols, ", ") }},
	{"Bars", func(r types.BacktestResult) string { return fmt.Sprint(r.Summary.BarsProcessed) }},
	{"Initial Equity", func(r types.BacktestResult) string { return money(r.Summary.InitialEquity) }},
	{"Final Equity", func(r types.BacktestResult) string { return money(r.Summary.FinalEquity) }},
	{"Total Return", func(r types.BacktestResult) string { return percent(r.Returns.TotalReturn) }},
	{"Annualized Return", func(r types.BacktestResult) string { return percent(r.Returns.AnnualizedReturn) }},
	{"Buy and Hold", func(r types.BacktestResult) string { return percent(r.Returns.BuyAndHoldReturn) }},
	{"Max Drawdown", func(r types.BacktestResult) string { return percent(r.Risk.MaxDrawdown) }},
	{"Sharpe Ratio", func(r types.BacktestResult) string { return number(r.RiskAdjusted.SharpeRatio) }},
	{"Sortino Ratio", func(r types.BacktestResult) string { return number(r.RiskAdjusted.SortinoRatio) }},
	{"Trades", func(r types.BacktestResult) string { return fmt.Sprint(r.Trading.TotalTrades) }},
	{"Win Rate", func(r types.BacktestResult) string { return percent(r.Trading.WinRate) }},
	{"Profit Factor", func(r types.BacktestResult) string { return number(r.Trading.ProfitFactor) }},
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...)
}

func renderSummary(result types.BacktestResult) string {
	t := newTable("Metric", "Value")

	for _, row := range summaryRows {
		t.Row(row.label, row.value(result))
	}

	return t.Render()
}

func section(title string, rows [][]string) string {
	t := newTable("Metric", "Value").Rows(rows...)

	return lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(title), t.Render())
}

// renderReport renders every block of the result plus its trade list.
func renderReport(result types.BacktestResult) string {
	summary := result.Summary
	returns := result.Returns
	risk := result.Risk
	adjusted := result.RiskAdjusted
	trading := result.Trading

	parts := []string{
		section("Summary", [][]string{
			{"Run ID", summary.RunID},
			{"Strategy", summary.StrategyName},
			{"Symbols", strings.Join(summary.Symbols, ", ")},
			{"Interval", string(summary.Interval)},
			{"Period", fmt.Sprintf("%s - %s", summary.StartTime.Format(time.DateOnly), summary.EndTime.Format(time.DateOnly))},
			{"Bars", fmt.Sprint(summary.BarsProcessed)},
			{"Initial Equity", money(summary.InitialEquity)},
			{"Final Equity", money(summary.FinalEquity)},
			{"Unfilled Orders", fmt.Sprint(summary.UnfilledOrders)},
			{"Rejected Signals", fmt.Sprint(summary.RejectedSignals)},
		}),
		section("Returns", [][]string{
			{"Total Return", percent(returns.TotalReturn)},
			{"Annualized Return", percent(returns.AnnualizedReturn)},
			{"Buy and Hold", percent(returns.BuyAndHoldReturn)},
			{"Alpha", number(returns.Alpha)},
			{"Beta", number(returns.Beta)},
			{"Trading Days", fmt.Sprint(returns.TradingDays)},
		}),
		section("Risk", [][]string{
			{"Volatility", percent(risk.Volatility)},
			{"Downside Deviation", percent(risk.DownsideDeviation)},
			{"Max Drawdown", percent(risk.MaxDrawdown)},
			{fmt.Sprintf("VaR (%.0f%%)", risk.VaRConfidence*100), percent(risk.VaR)},
			{"CVaR", percent(risk.CVaR)},
		}),
		section("Risk Adjusted", [][]string{
			{"Sharpe Ratio", number(adjusted.SharpeRatio)},
			{"Sortino Ratio", number(adjusted.SortinoRatio)},
			{"Calmar Ratio", number(adjusted.CalmarRatio)},
		}),
		section("Trading", [][]string{
			{"Trades", fmt.Sprint(trading.TotalTrades)},
			{"Winning", fmt.Sprint(trading.WinningTrades)},
			{"Losing", fmt.Sprint(trading.LosingTrades)},
			{"Open", fmt.Sprint(trading.OpenTrades)},
			{"Win Rate", percent(trading.WinRate)},
			{"Profit Factor", number(trading.ProfitFactor)},
			{"Average Trade", money(trading.AverageTrade)},
			{"Largest Win", money(trading.LargestWin)},
			{"Largest Loss", money(trading.LargestLoss)},
			{"Total PnL", money(trading.TotalPnL)},
			{"Commission", money(trading.TotalCommission)},
		}),
	}

	if len(result.Trades) > 0 {
		trades := newTable("ID", "Symbol", "Side", "Entry", "Exit", "Quantity", "PnL", "Reason")

		for _, trade := range result.Trades {
			exit := "open"
			if !trade.IsOpen() {
				exit = fmt.Sprintf("%s @ %s", money(trade.ExitPrice), trade.ExitTime.Format(time.DateTime))
			}

			trades.Row(
				trade.ID,
				trade.Symbol,
				string(trade.Side),
				fmt.Sprintf("%s @ %s", money(trade.EntryPrice), trade.EntryTime.Format(time.DateTime)),
				exit,
				number(trade.Quantity),
				money(trade.PnL),
				trade.Reason,
			)
		}

		parts = append(parts, lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render("Trades"), trades.Render()))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// renderComparison puts the summary rows of several results side by side,
// one column per file.
func renderComparison(paths []string, results []types.BacktestResult) string {
	headers := []string{"Metric"}
	for _, path := range paths {
		headers = append(headers, path)
	}

	t := newTable(headers...)

	for _, row := range summaryRows {
		cells := []string{row.label}
		for _, result := range results {
			cells = append(cells, row.value(result))
		}

		t.Row(cells...)
	}

	return t.Render()
}

func renderSweep(report sweep.Report) string {
	bestIndex := -1
	if report.Best.IsSome() {
		bestIndex = report.Best.Unwrap().Index
	}

	t := newTable("#", "Params", string(report.Metric), "Return", "Trades", "Status").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row >= 0 && row < len(report.Results) && report.Results[row].Index == bestIndex {
				return bestStyle
			}

			return lipgloss.NewStyle()
		})

	for _, job := range report.Results {
		status := "ok"
		score := number(job.Score)
		ret := percent(job.Result.Returns.TotalReturn)

		if job.Err != nil {
			status = job.Err.Error()
			score, ret = "-", "-"
		}

		t.Row(fmt.Sprint(job.Index), formatParams(job.Params), score, ret, fmt.Sprint(job.Result.Trading.TotalTrades), status)
	}

	if bestIndex < 0 {
		return t.Render()
	}

	best := report.Best.Unwrap()

	return lipgloss.JoinVertical(lipgloss.Left,
		t.Render(),
		bestStyle.Render(fmt.Sprintf("Best: #%d %s %s=%s", best.Index, formatParams(best.Params), report.Metric, number(best.Score))),
	)
}

func formatParams(params map[string]any) string {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	parts := make([]string, 0, len(keys))

	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", key, params[key]))
	}

	return strings.Join(parts, " ")
}
