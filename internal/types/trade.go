package types

import (
	"time"
)

// Trade pairs an opening fill with the fill that closed it. A zero ExitTime
// means the trade is still open.
type Trade struct {
	ID              string       `yaml:"id" json:"id"`
	Symbol          string       `yaml:"symbol" json:"symbol"`
	Side            PositionType `yaml:"side" json:"side"`
	EntryTime       time.Time    `yaml:"entry_time" json:"entry_time"`
	ExitTime        time.Time    `yaml:"exit_time" json:"exit_time"`
	EntryPrice      float64      `yaml:"entry_price" json:"entry_price"`
	ExitPrice       float64      `yaml:"exit_price" json:"exit_price"`
	Quantity        float64      `yaml:"quantity" json:"quantity"`
	EntryCommission float64      `yaml:"entry_commission" json:"entry_commission"`
	ExitCommission  float64      `yaml:"exit_commission" json:"exit_commission"`
	// Commission is the sum of both legs.
	Commission float64 `yaml:"commission" json:"commission"`
	// PnL is the realized profit net of both commissions. Zero while open.
	PnL        float64 `yaml:"pnl" json:"pnl"`
	PnLPercent float64 `yaml:"pnl_percent" json:"pnl_percent"`
	// Reason is the closing reason, e.g. strategy, stop_loss, take_profit.
	Reason       string `yaml:"reason" json:"reason"`
	EntryOrderID string `yaml:"entry_order_id" json:"entry_order_id"`
	ExitOrderID  string `yaml:"exit_order_id" json:"exit_order_id"`
}

// IsOpen reports whether the trade has not been closed yet.
func (t Trade) IsOpen() bool {
	return t.ExitTime.IsZero()
}

// HoldingPeriod is the time between entry and exit, or 0 for open trades.
func (t Trade) HoldingPeriod() time.Duration {
	if t.IsOpen() {
		return 0
	}

	return t.ExitTime.Sub(t.EntryTime)
}

// PositionTypeFor returns the position a fill on side opens.
func PositionTypeFor(side PurchaseType) PositionType {
	if side == PurchaseTypeBuy {
		return PositionTypeLong
	}

	return PositionTypeShort
}
