package indicator

import (
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// RSI computes the relative strength index over period using Wilder's
// smoothing. It needs period+1 values.
func RSI(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidPeriod, "period must be a positive integer, got %d", period)
	}

	if len(values) < period+1 {
		return 0, errors.NewInsufficientDataErrorf(period+1, len(values), "", "RSI(%d) needs %d values, got %d", period, period+1, len(values))
	}

	avgGain, avgLoss := 0.0, 0.0

	for i := 1; i < len(values); i++ {
		gain, loss := 0.0, 0.0

		change := values[i] - values[i-1]
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}

		if i <= period {
			avgGain += gain / float64(period)
			avgLoss += loss / float64(period)

			continue
		}

		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50, nil
		}

		return 100, nil
	}

	rs := avgGain / avgLoss

	return 100 - (100 / (1 + rs)), nil
}
