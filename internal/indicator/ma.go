package indicator

import (
	"fmt"

	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// MovingAverageType selects between simple and exponential averaging.
type MovingAverageType string

const (
	MovingAverageSMA MovingAverageType = "SMA"
	MovingAverageEMA MovingAverageType = "EMA"
)

// MovingAverage dispatches to SMA or EMA.
func MovingAverage(kind MovingAverageType, values []float64, period int) (float64, error) {
	switch kind {
	case MovingAverageSMA, "":
		return SMA(values, period)
	case MovingAverageEMA:
		return EMA(values, period)
	default:
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "unknown moving average type %q", kind)
	}
}

// SMA returns the simple average of the last period values.
func SMA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidPeriod, "period must be a positive integer, got %d", period)
	}

	if len(values) < period {
		return 0, errors.NewInsufficientDataErrorf(period, len(values), "", "SMA(%d) needs %d values, got %d", period, period, len(values))
	}

	sum := 0.0
	for _, v := range values[len(values)-period:] {
		sum += v
	}

	return sum / float64(period), nil
}

// EMA seeds with the SMA of the first period values and then applies
// EMA = value*alpha + prev*(1-alpha) with alpha = 2/(period+1).
func EMA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidPeriod, "period must be a positive integer, got %d", period)
	}

	if len(values) < period {
		return 0, errors.NewInsufficientDataErrorf(period, len(values), "", "EMA(%d) needs %d values, got %d", period, period, len(values))
	}

	ema := 0.0
	for _, v := range values[:period] {
		ema += v
	}

	ema /= float64(period)

	alpha := 2.0 / float64(period+1)
	for _, v := range values[period:] {
		ema = v*alpha + ema*(1-alpha)
	}

	return ema, nil
}

// Crossover compares the fast and slow averages on the last two bars.
// It returns +1 when fast crossed above slow, -1 when it crossed below, 0 otherwise.
func Crossover(kind MovingAverageType, values []float64, fast, slow int) (int, error) {
	if fast >= slow {
		return 0, fmt.Errorf("fast period %d must be shorter than slow period %d", fast, slow)
	}

	if len(values) < slow+1 {
		return 0, errors.NewInsufficientDataErrorf(slow+1, len(values), "", "crossover needs %d values, got %d", slow+1, len(values))
	}

	prev := values[:len(values)-1]

	fastNow, err := MovingAverage(kind, values, fast)
	if err != nil {
		return 0, err
	}

	slowNow, err := MovingAverage(kind, values, slow)
	if err != nil {
		return 0, err
	}

	fastPrev, err := MovingAverage(kind, prev, fast)
	if err != nil {
		return 0, err
	}

	slowPrev, err := MovingAverage(kind, prev, slow)
	if err != nil {
		return 0, err
	}

	switch {
	case fastPrev <= slowPrev && fastNow > slowNow:
		return 1, nil
	case fastPrev >= slowPrev && fastNow < slowNow:
		return -1, nil
	default:
		return 0, nil
	}
}
