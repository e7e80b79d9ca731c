package types

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	StatsFileName  = "stats.yaml"
	ResultFileName = "result.json"
)

// SkippedSymbol records a symbol whose data could not be used.
type SkippedSymbol struct {
	Symbol string `yaml:"symbol" json:"symbol"`
	Reason string `yaml:"reason" json:"reason"`
}

// Summary describes the run that produced a result.
type Summary struct {
	RunID        string    `yaml:"run_id" json:"run_id"`
	StrategyName string    `yaml:"strategy_name" json:"strategy_name"`
	Symbol       string    `yaml:"symbol" json:"symbol"`
	Symbols      []string  `yaml:"symbols" json:"symbols"`
	Interval     Interval  `yaml:"interval" json:"interval"`
	StartTime    time.Time `yaml:"start_time" json:"start_time"`
	EndTime      time.Time `yaml:"end_time" json:"end_time"`
	// InitialEquity is the configured starting capital.
	InitialEquity float64 `yaml:"initial_equity" json:"initial_equity"`
	// FinalEquity is the last mark-to-market account value.
	FinalEquity    float64         `yaml:"final_equity" json:"final_equity"`
	BarsProcessed  int             `yaml:"bars_processed" json:"bars_processed"`
	SkippedSymbols []SkippedSymbol `yaml:"skipped_symbols" json:"skipped_symbols"`
	// UnfilledOrders counts orders still pending when the replay ended.
	UnfilledOrders int `yaml:"unfilled_orders" json:"unfilled_orders"`
	// RejectedSignals counts signals that failed sizing or risk checks.
	RejectedSignals int       `yaml:"rejected_signals" json:"rejected_signals"`
	CompletedAt     time.Time `yaml:"completed_at" json:"completed_at"`
}

// MonthlyReturn is the return over one calendar month (UTC).
type MonthlyReturn struct {
	Month  string  `yaml:"month" json:"month"`
	Return float64 `yaml:"return" json:"return"`
}

type Returns struct {
	TotalReturn      float64 `yaml:"total_return" json:"total_return"`
	AnnualizedReturn float64 `yaml:"annualized_return" json:"annualized_return"`
	// BuyAndHoldReturn is the return of holding the benchmark symbol over the run.
	BuyAndHoldReturn float64         `yaml:"buy_and_hold_return" json:"buy_and_hold_return"`
	Alpha            float64         `yaml:"alpha" json:"alpha"`
	Beta             float64         `yaml:"beta" json:"beta"`
	TradingDays      int             `yaml:"trading_days" json:"trading_days"`
	MonthlyReturns   []MonthlyReturn `yaml:"monthly_returns" json:"monthly_returns"`
}

type Risk struct {
	Volatility        float64 `yaml:"volatility" json:"volatility"`
	DownsideDeviation float64 `yaml:"downside_deviation" json:"downside_deviation"`
	MaxDrawdown       float64 `yaml:"max_drawdown" json:"max_drawdown"`
	// MaxDrawdownStart and MaxDrawdownEnd index the equity curve.
	MaxDrawdownStart     int       `yaml:"max_drawdown_start" json:"max_drawdown_start"`
	MaxDrawdownEnd       int       `yaml:"max_drawdown_end" json:"max_drawdown_end"`
	MaxDrawdownStartTime time.Time `yaml:"max_drawdown_start_time" json:"max_drawdown_start_time"`
	MaxDrawdownEndTime   time.Time `yaml:"max_drawdown_end_time" json:"max_drawdown_end_time"`
	VaRConfidence        float64   `yaml:"var_confidence" json:"var_confidence"`
	VaR                  float64   `yaml:"var" json:"var"`
	CVaR                 float64   `yaml:"cvar" json:"cvar"`
}

type RiskAdjusted struct {
	SharpeRatio  float64 `yaml:"sharpe_ratio" json:"sharpe_ratio"`
	SortinoRatio float64 `yaml:"sortino_ratio" json:"sortino_ratio"`
	CalmarRatio  float64 `yaml:"calmar_ratio" json:"calmar_ratio"`
}

type TradingStats struct {
	TotalTrades     int     `yaml:"total_trades" json:"total_trades"`
	WinningTrades   int     `yaml:"winning_trades" json:"winning_trades"`
	LosingTrades    int     `yaml:"losing_trades" json:"losing_trades"`
	OpenTrades      int     `yaml:"open_trades" json:"open_trades"`
	WinRate         float64 `yaml:"win_rate" json:"win_rate"`
	ProfitFactor    float64 `yaml:"profit_factor" json:"profit_factor"`
	AverageTrade    float64 `yaml:"average_trade" json:"average_trade"`
	AverageWin      float64 `yaml:"average_win" json:"average_win"`
	AverageLoss     float64 `yaml:"average_loss" json:"average_loss"`
	LargestWin      float64 `yaml:"largest_win" json:"largest_win"`
	LargestLoss     float64 `yaml:"largest_loss" json:"largest_loss"`
	TotalPnL        float64 `yaml:"total_pnl" json:"total_pnl"`
	TotalCommission float64 `yaml:"total_commission" json:"total_commission"`
	// AverageHoldingPeriod is in seconds.
	AverageHoldingPeriod float64 `yaml:"average_holding_period" json:"average_holding_period"`
}

// BacktestResult is the immutable output of one completed run.
type BacktestResult struct {
	Summary      Summary       `yaml:"summary" json:"summary"`
	Returns      Returns       `yaml:"returns" json:"returns"`
	Risk         Risk          `yaml:"risk" json:"risk"`
	RiskAdjusted RiskAdjusted  `yaml:"risk_adjusted" json:"risk_adjusted"`
	Trading      TradingStats  `yaml:"trading" json:"trading"`
	Trades       []Trade       `yaml:"trades" json:"trades"`
	EquityCurve  []EquityPoint `yaml:"equity_curve" json:"equity_curve"`
}

// statsView is the stats.yaml layout: every block except the trade list and
// equity curve, which are archived separately.
type statsView struct {
	Summary      Summary      `yaml:"summary"`
	Returns      Returns      `yaml:"returns"`
	Risk         Risk         `yaml:"risk"`
	RiskAdjusted RiskAdjusted `yaml:"risk_adjusted"`
	Trading      TradingStats `yaml:"trading"`
}

// WriteResult writes stats.yaml and result.json into dir.
func WriteResult(dir string, result BacktestResult) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestResultWrite, "failed to create results folder", err)
	}

	statsBytes, err := yaml.Marshal(statsView{
		Summary:      result.Summary,
		Returns:      result.Returns,
		Risk:         result.Risk,
		RiskAdjusted: result.RiskAdjusted,
		Trading:      result.Trading,
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestResultWrite, "failed to marshal stats", err)
	}

	if err := os.WriteFile(filepath.Join(dir, StatsFileName), statsBytes, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestResultWrite, "failed to write stats", err)
	}

	resultBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestResultWrite, "failed to marshal result", err)
	}

	if err := os.WriteFile(filepath.Join(dir, ResultFileName), resultBytes, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestResultWrite, "failed to write result", err)
	}

	return nil
}

// ReadResult loads a result written by WriteResult. JSON files carry the full
// result; YAML files carry the stats blocks only.
func ReadResult(path string) (BacktestResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return BacktestResult{}, errors.Wrapf(errors.ErrCodeDataNotFound, err, "failed to read result %s", path)
	}

	var result BacktestResult

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var stats statsView
		if err := yaml.Unmarshal(data, &stats); err != nil {
			return BacktestResult{}, errors.Wrapf(errors.ErrCodeInvalidParameter, err, "failed to parse stats %s", path)
		}

		result = BacktestResult{
			Summary:      stats.Summary,
			Returns:      stats.Returns,
			Risk:         stats.Risk,
			RiskAdjusted: stats.RiskAdjusted,
			Trading:      stats.Trading,
		}
	default:
		if err := json.Unmarshal(data, &result); err != nil {
			return BacktestResult{}, errors.Wrapf(errors.ErrCodeInvalidParameter, err, "failed to parse result %s", path)
		}
	}

	return result, nil
}
