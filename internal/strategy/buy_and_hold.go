package strategy

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// BuyAndHoldParams configures BuyAndHold. A zero Quantity lets the engine size the order.
type BuyAndHoldParams struct {
	Quantity float64 `yaml:"quantity" json:"quantity" jsonschema:"title=Quantity,minimum=0" validate:"gte=0"`
}

// BuyAndHold buys on the first bar of every symbol and never sells.
type BuyAndHold struct {
	params BuyAndHoldParams
}

func NewBuyAndHold(params BuyAndHoldParams) *BuyAndHold {
	return &BuyAndHold{params: params}
}

func (s *BuyAndHold) Name() string {
	return "BuyAndHold"
}

func (s *BuyAndHold) GenerateSignal(data types.MarketData) (optional.Option[types.Signal], error) {
	if len(data.Bars) != 1 {
		return optional.None[types.Signal](), nil
	}

	current := data.Current()
	signal := types.Signal{
		Symbol:     data.Symbol,
		Side:       types.PurchaseTypeBuy,
		OrderType:  types.OrderTypeMarket,
		Price:      current.Close,
		Confidence: 1,
		Reason:     "buy and hold entry",
		Time:       current.OpenTime,
	}

	if s.params.Quantity > 0 {
		signal.Quantity = optional.Some(s.params.Quantity)
	}

	return optional.Some(signal), nil
}
