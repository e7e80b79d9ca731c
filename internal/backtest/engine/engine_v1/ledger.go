package engine

import (
	"sort"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/shopspring/decimal"
)

// fill is one executed order as seen by the ledger.
type fill struct {
	orderID    string
	symbol     string
	side       types.PurchaseType
	quantity   float64
	price      float64
	commission float64
	time       time.Time
	reason     string
}

type openTrade struct {
	id              string
	symbol          string
	side            types.PositionType
	entryTime       time.Time
	entryPrice      decimal.Decimal
	quantity        decimal.Decimal
	entryCommission decimal.Decimal
	entryOrderID    string
}

// ledger pairs opening and closing fills into trades. There is at most one
// open trade per symbol; same-direction adds extend it at a volume weighted
// entry price. A closing fill smaller than the open quantity realizes the
// closed share proportionally and leaves the rest open.
type ledger struct {
	open   map[string]*openTrade
	closed []types.Trade
	nextID func() string
}

func newLedger(nextID func() string) *ledger {
	return &ledger{
		open:   make(map[string]*openTrade),
		closed: nil,
		nextID: nextID,
	}
}

// openQuantity returns the unsigned quantity and side of the open trade of symbol.
func (l *ledger) openQuantity(symbol string) (float64, types.PositionType, bool) {
	trade, ok := l.open[symbol]
	if !ok {
		return 0, "", false
	}

	return trade.quantity.InexactFloat64(), trade.side, true
}

func (l *ledger) record(f fill) {
	qty := decimal.NewFromFloat(f.quantity)
	price := decimal.NewFromFloat(f.price)
	commission := decimal.NewFromFloat(f.commission)
	side := types.PositionTypeFor(f.side)

	trade, ok := l.open[f.symbol]
	if !ok {
		l.openTrade(f, qty, price, commission)

		return
	}

	if trade.side == side {
		total := trade.quantity.Add(qty)
		trade.entryPrice = trade.entryPrice.Mul(trade.quantity).Add(price.Mul(qty)).Div(total)
		trade.quantity = total
		trade.entryCommission = trade.entryCommission.Add(commission)

		return
	}

	closeQty := decimal.Min(qty, trade.quantity)
	exitCommission := commission.Mul(closeQty).Div(qty)
	entryShare := trade.entryCommission.Mul(closeQty).Div(trade.quantity)

	direction := decimal.NewFromInt(1)
	if trade.side == types.PositionTypeShort {
		direction = decimal.NewFromInt(-1)
	}

	pnl := direction.Mul(price.Sub(trade.entryPrice)).Mul(closeQty).Sub(entryShare).Sub(exitCommission)

	pnlPercent := decimal.Zero
	if basis := trade.entryPrice.Mul(closeQty); !basis.IsZero() {
		pnlPercent = pnl.Div(basis)
	}

	id := trade.id
	fullClose := closeQty.Equal(trade.quantity)

	if !fullClose {
		id = l.nextID()
	}

	l.closed = append(l.closed, types.Trade{
		ID:              id,
		Symbol:          trade.symbol,
		Side:            trade.side,
		EntryTime:       trade.entryTime,
		ExitTime:        f.time,
		EntryPrice:      trade.entryPrice.InexactFloat64(),
		ExitPrice:       f.price,
		Quantity:        closeQty.InexactFloat64(),
		EntryCommission: entryShare.InexactFloat64(),
		ExitCommission:  exitCommission.InexactFloat64(),
		Commission:      entryShare.Add(exitCommission).InexactFloat64(),
		PnL:             pnl.InexactFloat64(),
		PnLPercent:      pnlPercent.InexactFloat64(),
		Reason:          f.reason,
		EntryOrderID:    trade.entryOrderID,
		ExitOrderID:     f.orderID,
	})

	if fullClose {
		delete(l.open, f.symbol)
	} else {
		trade.quantity = trade.quantity.Sub(closeQty)
		trade.entryCommission = trade.entryCommission.Sub(entryShare)
	}

	// the remainder of a larger closing fill opens the opposite side
	if remainder := qty.Sub(closeQty); remainder.IsPositive() {
		l.openTrade(fill{
			orderID: f.orderID,
			symbol:  f.symbol,
			side:    f.side,
			time:    f.time,
		}, remainder, price, commission.Sub(exitCommission))
	}
}

func (l *ledger) openTrade(f fill, qty, price, commission decimal.Decimal) {
	l.open[f.symbol] = &openTrade{
		id:              l.nextID(),
		symbol:          f.symbol,
		side:            types.PositionTypeFor(f.side),
		entryTime:       f.time,
		entryPrice:      price,
		quantity:        qty,
		entryCommission: commission,
		entryOrderID:    f.orderID,
	}
}

// trades returns the closed trades in closing order followed by the open
// trades ordered by symbol.
func (l *ledger) trades() []types.Trade {
	trades := make([]types.Trade, 0, len(l.closed)+len(l.open))
	trades = append(trades, l.closed...)

	symbols := make([]string, 0, len(l.open))
	for symbol := range l.open {
		symbols = append(symbols, symbol)
	}

	sort.Strings(symbols)

	for _, symbol := range symbols {
		trade := l.open[symbol]
		trades = append(trades, types.Trade{
			ID:              trade.id,
			Symbol:          trade.symbol,
			Side:            trade.side,
			EntryTime:       trade.entryTime,
			EntryPrice:      trade.entryPrice.InexactFloat64(),
			Quantity:        trade.quantity.InexactFloat64(),
			EntryCommission: trade.entryCommission.InexactFloat64(),
			Commission:      trade.entryCommission.InexactFloat64(),
			EntryOrderID:    trade.entryOrderID,
		})
	}

	return trades
}
