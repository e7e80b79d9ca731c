package types

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// Signal is what a strategy emits for one bar of one symbol. The engine never
// mutates it.
type Signal struct {
	Symbol string       `validate:"required"`
	Side   PurchaseType `validate:"required,oneof=BUY SELL"`
	// OrderType defaults to MARKET when empty. LIMIT orders use Price as the limit.
	OrderType OrderType `validate:"omitempty,oneof=MARKET LIMIT"`
	// Price is the suggested price. Zero means "use the current close".
	Price      float64 `validate:"gte=0"`
	Confidence float64 `validate:"gte=0,lte=1"`
	// Quantity overrides position sizing when set.
	Quantity   optional.Option[float64]
	StopLoss   optional.Option[float64]
	TakeProfit optional.Option[float64]
	Reason     string
	Time       time.Time
}

// Validate checks the signal fields and the protective price levels.
func (s *Signal) Validate() error {
	if err := validate.Struct(s); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidSignal, "invalid signal", err)
	}

	if s.OrderType == OrderTypeLimit && s.Price <= 0 {
		return errors.New(errors.ErrCodeInvalidSignal, "limit signal requires a positive price")
	}

	if s.Quantity.IsSome() && s.Quantity.Unwrap() <= 0 {
		return errors.New(errors.ErrCodeInvalidSignal, "signal quantity must be positive")
	}

	if s.StopLoss.IsSome() && s.StopLoss.Unwrap() <= 0 {
		return errors.New(errors.ErrCodeInvalidStopLoss, "stop loss must be positive")
	}

	if s.TakeProfit.IsSome() && s.TakeProfit.Unwrap() <= 0 {
		return errors.New(errors.ErrCodeInvalidStopLoss, "take profit must be positive")
	}

	return nil
}

// EffectiveOrderType returns MARKET when the signal does not name a type.
func (s *Signal) EffectiveOrderType() OrderType {
	if s.OrderType == "" {
		return OrderTypeMarket
	}

	return s.OrderType
}
