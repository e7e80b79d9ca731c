package strategy

import (
	"fmt"
	"math"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// MovingAverageParams configures MovingAverageCrossover.
type MovingAverageParams struct {
	ShortWindow int                         `yaml:"short_window" json:"short_window" jsonschema:"title=Short Window,minimum=1,default=5" validate:"gte=1"`
	LongWindow  int                         `yaml:"long_window" json:"long_window" jsonschema:"title=Long Window,minimum=2,default=20" validate:"gtfield=ShortWindow"`
	MAType      indicator.MovingAverageType `yaml:"ma_type" json:"ma_type" jsonschema:"title=Moving Average Type,enum=SMA,enum=EMA,default=SMA" validate:"oneof=SMA EMA"`
	// SignalThreshold is the minimum relative gap between the averages for a regime change.
	SignalThreshold float64 `yaml:"signal_threshold" json:"signal_threshold" jsonschema:"title=Signal Threshold,minimum=0,default=0.01" validate:"gte=0,lt=1"`
	// VolumeConfirmation requires the current volume to exceed VolumeMultiplier times the long-window average.
	VolumeConfirmation bool    `yaml:"volume_confirmation" json:"volume_confirmation" jsonschema:"title=Volume Confirmation,default=false"`
	VolumeMultiplier   float64 `yaml:"volume_multiplier" json:"volume_multiplier" jsonschema:"title=Volume Multiplier,minimum=0,default=1.5" validate:"gte=0"`
	StopLossPct        float64 `yaml:"stop_loss_pct" json:"stop_loss_pct" jsonschema:"title=Stop Loss Percent,minimum=0,maximum=1" validate:"gte=0,lt=1"`
	TakeProfitPct      float64 `yaml:"take_profit_pct" json:"take_profit_pct" jsonschema:"title=Take Profit Percent,minimum=0" validate:"gte=0"`
}

func DefaultMovingAverageParams() MovingAverageParams {
	return MovingAverageParams{
		ShortWindow:      5,
		LongWindow:       20,
		MAType:           indicator.MovingAverageSMA,
		SignalThreshold:  0.01,
		VolumeMultiplier: 1.5,
	}
}

// MovingAverageCrossover buys when the short average moves above the long one
// by more than the threshold and sells when it moves below.
type MovingAverageCrossover struct {
	params MovingAverageParams
}

func NewMovingAverageCrossover(params MovingAverageParams) (*MovingAverageCrossover, error) {
	if err := validate.Struct(params); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStrategyConfigError, "invalid moving average params", err)
	}

	return &MovingAverageCrossover{params: params}, nil
}

func (s *MovingAverageCrossover) Name() string {
	return fmt.Sprintf("%s_Cross_%d_%d", s.params.MAType, s.params.ShortWindow, s.params.LongWindow)
}

// regime is +1 above the band, -1 below it and 0 inside.
func (s *MovingAverageCrossover) regime(closes []float64) (int, float64, error) {
	short, err := indicator.MovingAverage(s.params.MAType, closes, s.params.ShortWindow)
	if err != nil {
		return 0, 0, err
	}

	long, err := indicator.MovingAverage(s.params.MAType, closes, s.params.LongWindow)
	if err != nil {
		return 0, 0, err
	}

	if long == 0 {
		return 0, 0, nil
	}

	gap := (short - long) / long

	switch {
	case gap > s.params.SignalThreshold:
		return 1, gap, nil
	case gap < -s.params.SignalThreshold:
		return -1, gap, nil
	default:
		return 0, gap, nil
	}
}

func (s *MovingAverageCrossover) GenerateSignal(data types.MarketData) (optional.Option[types.Signal], error) {
	closes := data.Closes()
	if len(closes) < s.params.LongWindow+1 {
		return optional.None[types.Signal](), nil
	}

	prev, _, err := s.regime(closes[:len(closes)-1])
	if err != nil {
		return optional.None[types.Signal](), err
	}

	now, gap, err := s.regime(closes)
	if err != nil {
		return optional.None[types.Signal](), err
	}

	if now == prev || now == 0 {
		return optional.None[types.Signal](), nil
	}

	if s.params.VolumeConfirmation && !s.volumeConfirmed(data.Volumes()) {
		return optional.None[types.Signal](), nil
	}

	side := types.PurchaseTypeBuy
	reason := "short average crossed above long average"

	if now < 0 {
		side = types.PurchaseTypeSell
		reason = "short average crossed below long average"
	}

	current := data.Current()
	signal := types.Signal{
		Symbol:     data.Symbol,
		Side:       side,
		OrderType:  types.OrderTypeMarket,
		Price:      current.Close,
		Confidence: s.confidence(gap),
		Reason:     reason,
		Time:       current.OpenTime,
	}
	// the engine ignores protective levels on signals that close a position
	signal.StopLoss, signal.TakeProfit = protectiveLevels(side, current.Close, s.params.StopLossPct, s.params.TakeProfitPct)

	return optional.Some(signal), nil
}

func (s *MovingAverageCrossover) volumeConfirmed(volumes []float64) bool {
	avg, err := indicator.SMA(volumes, s.params.LongWindow)
	if err != nil || avg == 0 {
		return false
	}

	return volumes[len(volumes)-1] >= avg*s.params.VolumeMultiplier
}

func (s *MovingAverageCrossover) confidence(gap float64) float64 {
	if s.params.SignalThreshold == 0 {
		return 1
	}

	return math.Min(1, math.Abs(gap)/(2*s.params.SignalThreshold))
}
