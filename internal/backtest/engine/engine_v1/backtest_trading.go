package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/metrics"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/internal/utils"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
)

// BacktestTrading is the simulated broker of one run. It turns signals into
// orders, fills pending orders against bars and keeps the account and the
// trade ledger in step with every fill.
//
// Market orders fill at the open of the next bar of their symbol. Limit buys
// fill at the limit when low <= limit, limit sells when high >= limit. Stop
// orders are only created as protective exits and fill at the stop when the
// bar trades through it. Pending orders are evaluated in creation order, so a
// stop-loss wins over a take-profit triggered on the same bar.
type BacktestTrading struct {
	config     BacktestEngineV1Config
	commission commission_fee.CommissionFee
	account    *account
	ledger     *ledger
	log        *logger.Logger
	metrics    *metrics.Metrics

	orders        []types.Order
	orderIndex    map[string]int
	pending       []string
	reservations  map[string]float64
	closingOrders map[string]bool
	nextOrder     int
	nextTrade     int
	rejected      int
}

func NewBacktestTrading(config BacktestEngineV1Config, log *logger.Logger, m *metrics.Metrics) *BacktestTrading {
	b := &BacktestTrading{
		config:     config,
		commission: commission_fee.GetCommissionFeeHandler(config.Broker, config.CommissionRate),
		log:        log,
		metrics:    m,
	}
	b.Reset()

	return b
}

// Reset discards every order, fill and trade and restores the initial capital.
func (b *BacktestTrading) Reset() {
	b.account = newAccount(b.config.InitialCapital)
	b.ledger = newLedger(b.newTradeID)
	b.orders = nil
	b.orderIndex = make(map[string]int)
	b.pending = nil
	b.reservations = make(map[string]float64)
	b.closingOrders = make(map[string]bool)
	b.nextOrder = 0
	b.nextTrade = 0
	b.rejected = 0
}

// ids are derived from the run sequence so identical runs produce identical ids.
func (b *BacktestTrading) newOrderID() string {
	b.nextOrder++

	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("order-%d", b.nextOrder))).String()
}

func (b *BacktestTrading) newTradeID() string {
	b.nextTrade++

	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("trade-%d", b.nextTrade))).String()
}

// AvailableCash is cash minus what pending buy orders have reserved.
func (b *BacktestTrading) AvailableCash() float64 {
	reserved := 0.0
	for _, id := range b.pending {
		reserved += b.reservations[id]
	}

	return b.account.cashFloat() - reserved
}

// PlaceSignal sizes and validates signal against the account and enqueues
// the resulting order. bar is the bar the signal was generated on. A
// rejected signal returns an error and creates no order.
func (b *BacktestTrading) PlaceSignal(signal types.Signal, bar types.Kline, strategyName string) (types.Order, error) {
	order, err := b.buildOrder(signal, bar, strategyName)
	if err != nil {
		b.rejected++
		b.metrics.Order(string(signal.Side), "REJECTED")
		b.log.Info("Signal rejected",
			zap.String("symbol", signal.Symbol),
			zap.String("side", string(signal.Side)),
			zap.Time("time", bar.OpenTime),
			zap.Error(err),
		)

		return types.Order{}, err
	}

	b.enqueue(order)

	b.log.Debug("Order placed",
		zap.String("id", order.ID),
		zap.String("symbol", order.Symbol),
		zap.String("side", string(order.Side)),
		zap.String("type", string(order.OrderType)),
		zap.Float64("quantity", order.Quantity),
	)

	return order, nil
}

func (b *BacktestTrading) buildOrder(signal types.Signal, bar types.Kline, strategyName string) (types.Order, error) {
	if err := signal.Validate(); err != nil {
		return types.Order{}, err
	}

	if signal.Symbol != bar.Symbol {
		return types.Order{}, errors.Newf(errors.ErrCodeInvalidSignal, "signal for %s generated on a %s bar", signal.Symbol, bar.Symbol)
	}

	orderType := signal.EffectiveOrderType()

	price := bar.Close
	if signal.Price > 0 {
		price = signal.Price
	}

	held := b.account.quantity(signal.Symbol)
	direction := signal.Side.Sign()
	closing := held*direction < 0

	switch {
	case held == 0 && signal.Side == types.PurchaseTypeSell && !b.config.AllowShort:
		return types.Order{}, errors.New(errors.ErrCodeInvalidOrder, types.OrderReasonShortSellingDisabled)
	case held*direction > 0 && !b.config.AllowPyramiding:
		return types.Order{}, errors.New(errors.ErrCodeInvalidOrder, types.OrderReasonPyramidingDisabled)
	}

	available := b.AvailableCash()
	equity := b.account.totalValue()

	var quantity float64

	switch {
	case signal.Quantity.IsSome():
		quantity = signal.Quantity.Unwrap()
	case closing:
		quantity = math.Abs(held)
	default:
		quantity = math.Min(
			utils.CalculateMaxQuantity(available, price, b.commission, b.config.DecimalPrecision),
			utils.CalculateOrderQuantityByPercentage(equity, price, b.commission, b.config.MaxPositionSize, b.config.DecimalPrecision),
		)
	}

	quantity = utils.RoundToDecimalPrecision(quantity, b.config.DecimalPrecision)

	if closing && quantity > math.Abs(held) && !b.config.AllowShort {
		quantity = utils.RoundToDecimalPrecision(math.Abs(held), b.config.DecimalPrecision)
	}

	if quantity <= 0 {
		return types.Order{}, errors.New(errors.ErrCodeInvalidOrder, types.OrderReasonInvalidQuantity)
	}

	// only the part that opens exposure needs cash and counts against the position limit
	opening := quantity
	if closing {
		opening = math.Max(quantity-math.Abs(held), 0)
	}

	var reservation float64

	if opening > 0 {
		notional := opening * price
		cost := notional + b.commission.Calculate(opening, price)

		if cost > available {
			return types.Order{}, errors.Newf(errors.ErrCodeInsufficientCash,
				"%s: order cost %.2f exceeds available cash %.2f", types.OrderReasonInsufficientBuyPower, cost, available)
		}

		if limit := b.config.MaxPositionSize * equity; notional > limit*(1+1e-9) {
			return types.Order{}, errors.Newf(errors.ErrCodePositionSize,
				"%s: order notional %.2f exceeds %.2f", types.OrderReasonPositionLimit, notional, limit)
		}

		reservation = cost
	}

	createdAt := signal.Time
	if createdAt.IsZero() {
		createdAt = bar.OpenTime
	}

	order := types.Order{
		ID:           b.newOrderID(),
		Symbol:       signal.Symbol,
		Side:         signal.Side,
		OrderType:    orderType,
		Quantity:     quantity,
		LimitPrice:   optional.None[float64](),
		Status:       types.OrderStatusPending,
		CreatedAt:    createdAt,
		Reason:       types.OrderReasonStrategy,
		Message:      signal.Reason,
		StrategyName: strategyName,
		StopLoss:     optional.None[float64](),
		TakeProfit:   optional.None[float64](),
	}

	if orderType == types.OrderTypeLimit {
		order.LimitPrice = optional.Some(signal.Price)
	}

	// protective levels only apply to orders that open or extend a position
	if !closing {
		order.StopLoss = signal.StopLoss
		order.TakeProfit = signal.TakeProfit
	}

	if err := order.Validate(); err != nil {
		return types.Order{}, err
	}

	if closing {
		b.closingOrders[order.ID] = true
	}

	if order.Side == types.PurchaseTypeBuy {
		b.reservations[order.ID] = reservation
	}

	return order, nil
}

func (b *BacktestTrading) enqueue(order types.Order) {
	b.orderIndex[order.ID] = len(b.orders)
	b.orders = append(b.orders, order)
	b.pending = append(b.pending, order.ID)
	b.metrics.Order(string(order.Side), string(types.OrderStatusPending))
}

// ProcessBar fills or cancels the pending orders of bar's symbol. Orders
// created while processing the bar are evaluated from the next bar on.
func (b *BacktestTrading) ProcessBar(bar types.Kline) {
	snapshot := make([]string, 0, len(b.pending))

	for _, id := range b.pending {
		if b.orders[b.orderIndex[id]].Symbol == bar.Symbol {
			snapshot = append(snapshot, id)
		}
	}

	for _, id := range snapshot {
		order := b.orders[b.orderIndex[id]]
		if order.Status != types.OrderStatusPending {
			continue
		}

		price, ok := fillPrice(order, bar)
		if !ok {
			continue
		}

		b.execute(order, price, bar.OpenTime)
	}
}

// fillPrice reports whether order fills on bar and at which price.
func fillPrice(order types.Order, bar types.Kline) (float64, bool) {
	switch order.OrderType {
	case types.OrderTypeMarket:
		return bar.Open, true
	case types.OrderTypeLimit:
		limit := order.LimitPrice.Unwrap()
		if order.Side == types.PurchaseTypeBuy && bar.Low <= limit {
			return limit, true
		}

		if order.Side == types.PurchaseTypeSell && bar.High >= limit {
			return limit, true
		}
	case types.OrderTypeStop:
		stop := order.LimitPrice.Unwrap()
		if order.Side == types.PurchaseTypeSell && bar.Low <= stop {
			return stop, true
		}

		if order.Side == types.PurchaseTypeBuy && bar.High >= stop {
			return stop, true
		}
	}

	return 0, false
}

func (b *BacktestTrading) execute(order types.Order, price float64, at time.Time) {
	held := b.account.quantity(order.Symbol)
	direction := order.Side.Sign()
	closing := b.closingOrders[order.ID] || order.IsProtective()

	if closing && held*direction >= 0 {
		b.cancel(order.ID, types.OrderReasonPositionClosed, "position already closed")

		return
	}

	quantity := order.Quantity

	if closing && (order.IsProtective() || !b.config.AllowShort) && quantity > math.Abs(held) {
		quantity = math.Abs(held)
	}

	opening := quantity
	if held*direction < 0 {
		opening = math.Max(quantity-math.Abs(held), 0)
	}

	commission := b.commission.Calculate(quantity, price)

	if order.Side == types.PurchaseTypeBuy {
		cost := quantity*price + commission
		if cost > b.account.cashFloat()-b.reservedExcept(order.ID)+1e-9 {
			b.cancel(order.ID, types.OrderReasonInsufficientBuyPower,
				fmt.Sprintf("fill cost %.2f exceeds cash %.2f", cost, b.account.cashFloat()))

			return
		}
	}

	b.account.applyFill(order.Symbol, order.Side, quantity, price, commission)
	b.ledger.record(fill{
		orderID:    order.ID,
		symbol:     order.Symbol,
		side:       order.Side,
		quantity:   quantity,
		price:      price,
		commission: commission,
		time:       at,
		reason:     order.Reason,
	})

	filled := &b.orders[b.orderIndex[order.ID]]
	filled.Status = types.OrderStatusFilled
	filled.Quantity = quantity
	filled.FillPrice = price
	filled.FilledAt = at
	filled.Commission = commission
	b.removePending(order.ID)
	b.metrics.Order(string(order.Side), string(types.OrderStatusFilled))

	b.log.Debug("Order filled",
		zap.String("id", order.ID),
		zap.String("symbol", order.Symbol),
		zap.String("side", string(order.Side)),
		zap.Float64("quantity", quantity),
		zap.Float64("price", price),
		zap.Float64("commission", commission),
	)

	if order.OcoGroup != "" {
		b.cancelGroup(order.OcoGroup, order.ID, types.OrderReasonOcoCancelled)
	}

	after := b.account.quantity(order.Symbol)
	if held != 0 && held*after <= 0 {
		b.cancelProtective(order.Symbol)
	}

	if opening > 0 {
		b.attachProtective(*filled, opening, at)
	}
}

// attachProtective creates the stop-loss and take-profit exits of a filled
// opening order. The stop is created first so it wins a same-bar tie.
func (b *BacktestTrading) attachProtective(parent types.Order, quantity float64, at time.Time) {
	exitSide := parent.Side.Opposite()

	if parent.StopLoss.IsSome() {
		b.enqueue(types.Order{
			ID:           b.newOrderID(),
			Symbol:       parent.Symbol,
			Side:         exitSide,
			OrderType:    types.OrderTypeStop,
			Quantity:     quantity,
			LimitPrice:   parent.StopLoss,
			Status:       types.OrderStatusPending,
			CreatedAt:    at,
			Reason:       types.OrderReasonStopLoss,
			Message:      "Stop loss order",
			StrategyName: parent.StrategyName,
			StopLoss:     optional.None[float64](),
			TakeProfit:   optional.None[float64](),
			OcoGroup:     parent.ID,
		})
	}

	if parent.TakeProfit.IsSome() {
		b.enqueue(types.Order{
			ID:           b.newOrderID(),
			Symbol:       parent.Symbol,
			Side:         exitSide,
			OrderType:    types.OrderTypeLimit,
			Quantity:     quantity,
			LimitPrice:   parent.TakeProfit,
			Status:       types.OrderStatusPending,
			CreatedAt:    at,
			Reason:       types.OrderReasonTakeProfit,
			Message:      "Take profit order",
			StrategyName: parent.StrategyName,
			StopLoss:     optional.None[float64](),
			TakeProfit:   optional.None[float64](),
			OcoGroup:     parent.ID,
		})
	}
}

func (b *BacktestTrading) reservedExcept(id string) float64 {
	reserved := 0.0

	for _, pendingID := range b.pending {
		if pendingID != id {
			reserved += b.reservations[pendingID]
		}
	}

	return reserved
}

func (b *BacktestTrading) cancel(id string, reason string, message string) {
	order := &b.orders[b.orderIndex[id]]
	if order.Status != types.OrderStatusPending {
		return
	}

	order.Status = types.OrderStatusCancelled
	order.Reason = reason
	order.Message = message
	b.removePending(id)
	b.metrics.Order(string(order.Side), string(types.OrderStatusCancelled))

	b.log.Debug("Order cancelled",
		zap.String("id", id),
		zap.String("symbol", order.Symbol),
		zap.String("reason", reason),
	)
}

func (b *BacktestTrading) cancelGroup(group string, except string, reason string) {
	for _, id := range append([]string(nil), b.pending...) {
		order := b.orders[b.orderIndex[id]]
		if order.OcoGroup == group && id != except {
			b.cancel(id, reason, "sibling protective order filled")
		}
	}
}

func (b *BacktestTrading) cancelProtective(symbol string) {
	for _, id := range append([]string(nil), b.pending...) {
		order := b.orders[b.orderIndex[id]]
		if order.Symbol == symbol && order.IsProtective() {
			b.cancel(id, types.OrderReasonPositionClosed, "position closed")
		}
	}
}

func (b *BacktestTrading) removePending(id string) {
	for i, pendingID := range b.pending {
		if pendingID == id {
			b.pending = append(b.pending[:i], b.pending[i+1:]...)

			break
		}
	}

	delete(b.reservations, id)
}

// CancelPending cancels every order still pending at the end of the replay
// and returns how many there were.
func (b *BacktestTrading) CancelPending() int {
	ids := append([]string(nil), b.pending...)
	for _, id := range ids {
		b.cancel(id, types.OrderReasonUnfilledAtEnd, "still pending when the replay ended")
	}

	return len(ids)
}

// PendingOrders returns the orders that have not filled or been cancelled.
func (b *BacktestTrading) PendingOrders() []types.Order {
	orders := make([]types.Order, 0, len(b.pending))
	for _, id := range b.pending {
		orders = append(orders, b.orders[b.orderIndex[id]])
	}

	return orders
}

// Orders returns every order of the run in creation order.
func (b *BacktestTrading) Orders() []types.Order {
	return append([]types.Order(nil), b.orders...)
}

// Trades returns the closed trades followed by the open ones.
func (b *BacktestTrading) Trades() []types.Trade {
	return b.ledger.trades()
}

// Mark records the last close of symbol.
func (b *BacktestTrading) Mark(symbol string, price float64) {
	b.account.mark(symbol, price)
}

// Equity is the mark-to-market account value.
func (b *BacktestTrading) Equity() float64 {
	return b.account.totalValue()
}

func (b *BacktestTrading) Cash() float64 {
	return b.account.cashFloat()
}

func (b *BacktestTrading) GetPosition(symbol string) types.Position {
	return *b.account.position(symbol)
}

func (b *BacktestTrading) AccountState() types.AccountState {
	return b.account.snapshot(b.account.cashFloat() - b.AvailableCash())
}

// Rejected is the number of signals that produced no order.
func (b *BacktestTrading) Rejected() int {
	return b.rejected
}
