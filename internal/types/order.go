package types

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

type PurchaseType string

type OrderType string

type OrderStatus string

type PositionType string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusFilled    OrderStatus = "FILLED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

const (
	PositionTypeLong  PositionType = "LONG"
	PositionTypeShort PositionType = "SHORT"
)

const (
	PurchaseTypeBuy  PurchaseType = "BUY"
	PurchaseTypeSell PurchaseType = "SELL"
)

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
	// OrderTypeStop is only created by the engine for protective stop-loss exits.
	OrderTypeStop OrderType = "STOP"
)

const (
	OrderReasonStrategy              string = "strategy"
	OrderReasonStopLoss              string = "stop_loss"
	OrderReasonTakeProfit            string = "take_profit"
	OrderReasonInsufficientBuyPower  string = "insufficient_buying_power"
	OrderReasonPositionLimit         string = "position_limit"
	OrderReasonOcoCancelled          string = "oco_cancelled"
	OrderReasonPositionClosed        string = "position_closed"
	OrderReasonUnfilledAtEnd         string = "unfilled_at_end"
	OrderReasonShortSellingDisabled  string = "short_selling_disabled"
	OrderReasonPyramidingDisabled    string = "pyramiding_disabled"
	OrderReasonInvalidQuantity       string = "invalid_quantity"
	OrderReasonInsufficientSellPower string = "insufficient_selling_power"
)

// Opposite returns the other side of the book.
func (p PurchaseType) Opposite() PurchaseType {
	if p == PurchaseTypeBuy {
		return PurchaseTypeSell
	}

	return PurchaseTypeBuy
}

// Sign is +1 for buys and -1 for sells.
func (p PurchaseType) Sign() float64 {
	if p == PurchaseTypeBuy {
		return 1
	}

	return -1
}

// Order is a simulated order. Its lifecycle is PENDING -> FILLED, or PENDING
// -> CANCELLED when it is still pending at the end of the replay or its
// protective sibling filled first.
type Order struct {
	ID        string       `yaml:"id" json:"id" validate:"required"`
	Symbol    string       `yaml:"symbol" json:"symbol" validate:"required"`
	Side      PurchaseType `yaml:"side" json:"side" validate:"required,oneof=BUY SELL"`
	OrderType OrderType    `yaml:"order_type" json:"order_type" validate:"required,oneof=MARKET LIMIT STOP"`
	Quantity  float64      `yaml:"quantity" json:"quantity" validate:"gt=0"`
	// LimitPrice is the limit for LIMIT orders and the trigger for STOP orders.
	LimitPrice optional.Option[float64] `yaml:"-" json:"limit_price"`
	Status     OrderStatus              `yaml:"status" json:"status"`
	CreatedAt  time.Time                `yaml:"created_at" json:"created_at"`
	FilledAt   time.Time                `yaml:"filled_at" json:"filled_at"`
	FillPrice  float64                  `yaml:"fill_price" json:"fill_price"`
	Commission float64                  `yaml:"commission" json:"commission"`
	Reason     string                   `yaml:"reason" json:"reason"`
	Message    string                   `yaml:"message" json:"message"`
	// StrategyName is the name of the strategy that created this order
	StrategyName string `yaml:"strategy_name" json:"strategy_name"`
	// StopLoss and TakeProfit come from the signal and become protective
	// exits once this order opens a position.
	StopLoss   optional.Option[float64] `yaml:"-" json:"stop_loss"`
	TakeProfit optional.Option[float64] `yaml:"-" json:"take_profit"`
	// OcoGroup links the protective exits of one position. Filling one
	// cancels the others.
	OcoGroup string `yaml:"oco_group" json:"oco_group"`
}

// Validate validates the Order struct.
func (o *Order) Validate() error {
	if err := validate.Struct(o); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrder, "invalid order", err)
	}

	if o.OrderType != OrderTypeMarket && (o.LimitPrice.IsNone() || o.LimitPrice.Unwrap() <= 0) {
		return errors.Newf(errors.ErrCodeInvalidOrder, "%s order requires a positive price", o.OrderType)
	}

	return nil
}

// IsProtective reports whether the order is an engine-created stop-loss or
// take-profit exit.
func (o *Order) IsProtective() bool {
	return o.Reason == OrderReasonStopLoss || o.Reason == OrderReasonTakeProfit
}
