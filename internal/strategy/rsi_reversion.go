package strategy

import (
	"fmt"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// RSIParams configures RSIReversion.
type RSIParams struct {
	Period        int     `yaml:"period" json:"period" jsonschema:"title=Period,minimum=2,default=14" validate:"gte=2"`
	Oversold      float64 `yaml:"oversold" json:"oversold" jsonschema:"title=Oversold,minimum=0,maximum=100,default=30" validate:"gte=0,lte=100"`
	Overbought    float64 `yaml:"overbought" json:"overbought" jsonschema:"title=Overbought,minimum=0,maximum=100,default=70" validate:"gtfield=Oversold,lte=100"`
	StopLossPct   float64 `yaml:"stop_loss_pct" json:"stop_loss_pct" jsonschema:"title=Stop Loss Percent,minimum=0,maximum=1" validate:"gte=0,lt=1"`
	TakeProfitPct float64 `yaml:"take_profit_pct" json:"take_profit_pct" jsonschema:"title=Take Profit Percent,minimum=0" validate:"gte=0"`
}

func DefaultRSIParams() RSIParams {
	return RSIParams{Period: 14, Oversold: 30, Overbought: 70}
}

// RSIReversion buys when RSI drops into the oversold zone and sells when it
// rises into the overbought zone.
type RSIReversion struct {
	params RSIParams
}

func NewRSIReversion(params RSIParams) (*RSIReversion, error) {
	if err := validate.Struct(params); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStrategyConfigError, "invalid rsi params", err)
	}

	return &RSIReversion{params: params}, nil
}

func (s *RSIReversion) Name() string {
	return fmt.Sprintf("RSI_%d_%.0f_%.0f", s.params.Period, s.params.Oversold, s.params.Overbought)
}

func (s *RSIReversion) GenerateSignal(data types.MarketData) (optional.Option[types.Signal], error) {
	closes := data.Closes()
	if len(closes) < s.params.Period+2 {
		return optional.None[types.Signal](), nil
	}

	prev, err := indicator.RSI(closes[:len(closes)-1], s.params.Period)
	if err != nil {
		return optional.None[types.Signal](), err
	}

	now, err := indicator.RSI(closes, s.params.Period)
	if err != nil {
		return optional.None[types.Signal](), err
	}

	current := data.Current()

	var side types.PurchaseType

	var confidence float64

	switch {
	case prev >= s.params.Oversold && now < s.params.Oversold:
		side = types.PurchaseTypeBuy
		confidence = (s.params.Oversold - now) / s.params.Oversold
	case prev <= s.params.Overbought && now > s.params.Overbought:
		side = types.PurchaseTypeSell
		confidence = (now - s.params.Overbought) / (100 - s.params.Overbought)
	default:
		return optional.None[types.Signal](), nil
	}

	signal := types.Signal{
		Symbol:     data.Symbol,
		Side:       side,
		OrderType:  types.OrderTypeMarket,
		Price:      current.Close,
		Confidence: clamp01(confidence),
		Reason:     fmt.Sprintf("rsi %.2f crossed %s", now, side),
		Time:       current.OpenTime,
	}
	signal.StopLoss, signal.TakeProfit = protectiveLevels(side, current.Close, s.params.StopLossPct, s.params.TakeProfitPct)

	return optional.Some(signal), nil
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
