package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

var validate = validator.New()

// Interval is the bar width of a historical series.
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval30m Interval = "30m"
	Interval1h  Interval = "1h"
	Interval4h  Interval = "4h"
	Interval1d  Interval = "1d"
	Interval1w  Interval = "1w"
)

var AllIntervals = []any{
	Interval1m, Interval5m, Interval15m, Interval30m, Interval1h, Interval4h, Interval1d, Interval1w,
}

// Duration returns the width of one bar. Unknown intervals return 0.
func (i Interval) Duration() time.Duration {
	switch i {
	case Interval1m:
		return time.Minute
	case Interval5m:
		return 5 * time.Minute
	case Interval15m:
		return 15 * time.Minute
	case Interval30m:
		return 30 * time.Minute
	case Interval1h:
		return time.Hour
	case Interval4h:
		return 4 * time.Hour
	case Interval1d:
		return 24 * time.Hour
	case Interval1w:
		return 7 * 24 * time.Hour
	default:
		return 0
	}
}

// IsValid reports whether the interval is one of the supported bar widths.
func (i Interval) IsValid() bool {
	return i.Duration() > 0
}

// Kline is one OHLCV bar. Bars are immutable once produced and ordered by
// open time, then symbol.
type Kline struct {
	Symbol    string    `yaml:"symbol" json:"symbol" validate:"required"`
	OpenTime  time.Time `yaml:"open_time" json:"open_time"`
	CloseTime time.Time `yaml:"close_time" json:"close_time"`
	Open      float64   `yaml:"open" json:"open" validate:"gt=0"`
	High      float64   `yaml:"high" json:"high" validate:"gt=0"`
	Low       float64   `yaml:"low" json:"low" validate:"gt=0"`
	Close     float64   `yaml:"close" json:"close" validate:"gt=0"`
	Volume    float64   `yaml:"volume" json:"volume" validate:"gte=0"`
}

// Validate checks field ranges and OHLC consistency.
func (k Kline) Validate() error {
	if err := validate.Struct(k); err != nil {
		return errors.Wrap(errors.ErrCodeMalformedBar, "invalid bar", err)
	}

	if k.OpenTime.IsZero() {
		return errors.Newf(errors.ErrCodeMalformedBar, "bar %s has no open time", k.Symbol)
	}

	if k.High < k.Low {
		return errors.Newf(errors.ErrCodeMalformedBar, "bar %s at %s has high %.4f below low %.4f",
			k.Symbol, k.OpenTime.Format(time.RFC3339), k.High, k.Low)
	}

	if k.Open > k.High || k.Open < k.Low || k.Close > k.High || k.Close < k.Low {
		return errors.Newf(errors.ErrCodeMalformedBar, "bar %s at %s has open/close outside high/low range",
			k.Symbol, k.OpenTime.Format(time.RFC3339))
	}

	if !k.CloseTime.IsZero() && k.CloseTime.Before(k.OpenTime) {
		return errors.Newf(errors.ErrCodeMalformedBar, "bar %s closes before it opens", k.Symbol)
	}

	return nil
}

// Less orders bars by open time and breaks ties by symbol.
func (k Kline) Less(other Kline) bool {
	if !k.OpenTime.Equal(other.OpenTime) {
		return k.OpenTime.Before(other.OpenTime)
	}

	return k.Symbol < other.Symbol
}

// MarketData is the view handed to a strategy: every bar of one symbol up to
// and including the current one.
type MarketData struct {
	Symbol   string
	Interval Interval
	Bars     []Kline
}

// Current returns the latest bar of the view.
func (m MarketData) Current() Kline {
	if len(m.Bars) == 0 {
		return Kline{}
	}

	return m.Bars[len(m.Bars)-1]
}

// Closes returns the close prices of the view in time order.
func (m MarketData) Closes() []float64 {
	closes := make([]float64, len(m.Bars))
	for i, bar := range m.Bars {
		closes[i] = bar.Close
	}

	return closes
}

// Volumes returns the volumes of the view in time order.
func (m MarketData) Volumes() []float64 {
	volumes := make([]float64, len(m.Bars))
	for i, bar := range m.Bars {
		volumes[i] = bar.Volume
	}

	return volumes
}
