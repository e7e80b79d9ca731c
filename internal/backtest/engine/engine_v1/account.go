package engine

import (
	"sort"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/shopspring/decimal"
)

// account is the simulated cash and position book of one run. It is only
// mutated by fills and by marking to market.
type account struct {
	cash      decimal.Decimal
	fees      decimal.Decimal
	positions map[string]*types.Position
}

func newAccount(initialCapital float64) *account {
	return &account{
		cash:      decimal.NewFromFloat(initialCapital),
		fees:      decimal.Zero,
		positions: make(map[string]*types.Position),
	}
}

// applyFill moves cash and position for one fill. Buys debit notional plus
// commission, sells credit notional minus commission.
func (a *account) applyFill(symbol string, side types.PurchaseType, quantity, price, commission float64) {
	qty := decimal.NewFromFloat(quantity)
	notional := qty.Mul(decimal.NewFromFloat(price))
	fee := decimal.NewFromFloat(commission)

	if side == types.PurchaseTypeBuy {
		a.cash = a.cash.Sub(notional).Sub(fee)
	} else {
		a.cash = a.cash.Add(notional).Sub(fee)
	}

	a.fees = a.fees.Add(fee)

	position := a.position(symbol)
	signed := qty.Mul(decimal.NewFromFloat(side.Sign()))
	current := decimal.NewFromFloat(position.Quantity)
	next := current.Add(signed)

	switch {
	case next.IsZero():
		position.AverageEntryPrice = 0
	case current.IsZero() || current.Sign() != next.Sign():
		position.AverageEntryPrice = price
	case current.Sign() == signed.Sign():
		// same direction add: volume weighted entry
		cost := current.Abs().Mul(decimal.NewFromFloat(position.AverageEntryPrice)).Add(notional)
		position.AverageEntryPrice = cost.Div(next.Abs()).InexactFloat64()
	}

	position.Quantity = next.InexactFloat64()
	position.LastPrice = price
}

// mark updates the last seen price of symbol.
func (a *account) mark(symbol string, price float64) {
	a.position(symbol).LastPrice = price
}

func (a *account) position(symbol string) *types.Position {
	position, ok := a.positions[symbol]
	if !ok {
		position = &types.Position{Symbol: symbol}
		a.positions[symbol] = position
	}

	return position
}

// quantity returns the signed holding of symbol.
func (a *account) quantity(symbol string) float64 {
	if position, ok := a.positions[symbol]; ok {
		return position.Quantity
	}

	return 0
}

func (a *account) cashFloat() float64 {
	return a.cash.InexactFloat64()
}

// totalValue is cash plus the market value of every position.
func (a *account) totalValue() float64 {
	total := a.cash

	for _, symbol := range a.symbols() {
		position := a.positions[symbol]
		total = total.Add(decimal.NewFromFloat(position.Quantity).Mul(decimal.NewFromFloat(position.LastPrice)))
	}

	return total.InexactFloat64()
}

func (a *account) symbols() []string {
	symbols := make([]string, 0, len(a.positions))
	for symbol := range a.positions {
		symbols = append(symbols, symbol)
	}

	sort.Strings(symbols)

	return symbols
}

// snapshot returns the account state. reserved is the cash held back by
// pending buy orders.
func (a *account) snapshot(reserved float64) types.AccountState {
	positions := make(map[string]float64, len(a.positions))
	for symbol, position := range a.positions {
		if !position.IsFlat() {
			positions[symbol] = position.Quantity
		}
	}

	return types.AccountState{
		Cash:            a.cashFloat(),
		Positions:       positions,
		TotalValue:      a.totalValue(),
		AvailableMargin: a.cash.Sub(decimal.NewFromFloat(reserved)).InexactFloat64(),
		TotalFees:       a.fees.InexactFloat64(),
	}
}
