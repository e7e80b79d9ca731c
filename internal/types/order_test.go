package types

import (
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/assert"
)

func TestOrderValidate(t *testing.T) {
	tests := []struct {
		name        string
		order       Order
		shouldError bool
	}{
		{
			name: "valid market order",
			order: Order{
				ID: "order-1", Symbol: "AAPL", Side: PurchaseTypeBuy, OrderType: OrderTypeMarket,
				Quantity: 10, CreatedAt: time.Now(),
			},
			shouldError: false,
		},
		{
			name: "valid limit order",
			order: Order{
				ID: "order-2", Symbol: "AAPL", Side: PurchaseTypeSell, OrderType: OrderTypeLimit,
				Quantity: 10, LimitPrice: optional.Some(110.0),
			},
			shouldError: false,
		},
		{
			name: "limit order without price",
			order: Order{
				ID: "order-3", Symbol: "AAPL", Side: PurchaseTypeBuy, OrderType: OrderTypeLimit,
				Quantity: 10, LimitPrice: optional.None[float64](),
			},
			shouldError: true,
		},
		{
			name: "stop order with zero trigger",
			order: Order{
				ID: "order-4", Symbol: "AAPL", Side: PurchaseTypeSell, OrderType: OrderTypeStop,
				Quantity: 10, LimitPrice: optional.Some(0.0),
			},
			shouldError: true,
		},
		{
			name: "zero quantity",
			order: Order{
				ID: "order-5", Symbol: "AAPL", Side: PurchaseTypeBuy, OrderType: OrderTypeMarket,
			},
			shouldError: true,
		},
		{
			name: "unknown side",
			order: Order{
				ID: "order-6", Symbol: "AAPL", Side: "HOLD", OrderType: OrderTypeMarket, Quantity: 1,
			},
			shouldError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.order.Validate()
			if tt.shouldError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPurchaseTypeHelpers(t *testing.T) {
	assert.Equal(t, PurchaseTypeSell, PurchaseTypeBuy.Opposite())
	assert.Equal(t, PurchaseTypeBuy, PurchaseTypeSell.Opposite())
	assert.Equal(t, 1.0, PurchaseTypeBuy.Sign())
	assert.Equal(t, -1.0, PurchaseTypeSell.Sign())
	assert.Equal(t, PositionTypeLong, PositionTypeFor(PurchaseTypeBuy))
	assert.Equal(t, PositionTypeShort, PositionTypeFor(PurchaseTypeSell))
}

func TestSignalValidate(t *testing.T) {
	tests := []struct {
		name        string
		signal      Signal
		shouldError bool
	}{
		{"market buy", Signal{Symbol: "AAPL", Side: PurchaseTypeBuy, Confidence: 0.8}, false},
		{"limit without price", Signal{Symbol: "AAPL", Side: PurchaseTypeBuy, OrderType: OrderTypeLimit}, true},
		{"limit with price", Signal{Symbol: "AAPL", Side: PurchaseTypeBuy, OrderType: OrderTypeLimit, Price: 99}, false},
		{"confidence above one", Signal{Symbol: "AAPL", Side: PurchaseTypeSell, Confidence: 1.5}, true},
		{"negative quantity", Signal{Symbol: "AAPL", Side: PurchaseTypeSell, Quantity: optional.Some(-1.0)}, true},
		{"zero stop loss", Signal{Symbol: "AAPL", Side: PurchaseTypeBuy, StopLoss: optional.Some(0.0)}, true},
		{"missing symbol", Signal{Side: PurchaseTypeBuy}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.signal.Validate()
			if tt.shouldError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	assert.Equal(t, OrderTypeMarket, (&Signal{}).EffectiveOrderType())
}

func TestTradeHelpers(t *testing.T) {
	entry := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	open := Trade{EntryTime: entry}
	assert.True(t, open.IsOpen())
	assert.Zero(t, open.HoldingPeriod())

	closed := Trade{EntryTime: entry, ExitTime: entry.Add(48 * time.Hour)}
	assert.False(t, closed.IsOpen())
	assert.Equal(t, 48*time.Hour, closed.HoldingPeriod())
}
