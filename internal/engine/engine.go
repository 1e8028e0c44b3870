package engine

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/driftline/matchcore/internal/book"
	"github.com/driftline/matchcore/internal/domain"
)

// EventListener is invoked under the engine lock whenever a resting order's
// status changes during matching. Implementations must not call back into
// the engine.
type EventListener func(orderID, traderID string, status domain.OrderStatus)

// Engine matches incoming orders against the book with price-time priority.
// A single mutex linearizes ProcessOrder and CancelOrder, so callers may
// submit concurrently; book reads remain safe through the book's own lock.
type Engine struct {
	mu        sync.Mutex
	book      *book.Book
	validator *Validator
	trades    *TradeGenerator

	status    map[string]domain.OrderStatus
	remaining map[string]decimal.Decimal
	volume    map[string]decimal.Decimal

	listener EventListener
}

// New creates an engine over the given book.
func New(b *book.Book, v *Validator) *Engine {
	return &Engine{
		book:      b,
		validator: v,
		trades:    NewTradeGenerator(),
		status:    make(map[string]domain.OrderStatus),
		remaining: make(map[string]decimal.Decimal),
		volume:    make(map[string]decimal.Decimal),
	}
}

// Book returns the engine's order book for read-side queries.
func (e *Engine) Book() *book.Book {
	return e.book
}

// SetEventListener registers a listener for resting-order status changes.
// Must be called before the engine starts processing orders.
func (e *Engine) SetEventListener(fn EventListener) {
	e.listener = fn
}

// ProcessOrder validates and matches an incoming order, resting any unfilled
// limit remainder on the book. Validation failures reject the order with no
// state change.
func (e *Engine) ProcessOrder(order domain.Order) (domain.MatchResult, error) {
	if err := e.validator.ValidateOrder(order); err != nil {
		return domain.MatchResult{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.status[order.ID]; exists {
		return domain.MatchResult{}, fmt.Errorf("order %s: %w", order.ID, domain.ErrDuplicateOrder)
	}
	e.status[order.ID] = domain.OrderStatusNew
	e.remaining[order.ID] = order.Quantity

	result, err := e.match(order)
	if err != nil {
		return domain.MatchResult{}, err
	}

	e.status[order.ID] = result.FinalStatus
	switch {
	case result.IsFullyFilled():
		delete(e.remaining, order.ID)
	case result.RemainingOrder != nil:
		if result.RemainingOrder.IsLimit() {
			e.remaining[order.ID] = result.RemainingOrder.Quantity
			if err := e.book.AddOrder(*result.RemainingOrder); err != nil {
				return domain.MatchResult{}, fmt.Errorf("rest remainder of %s: %w", order.ID, err)
			}
		} else {
			// Market remainders are discarded, nothing left to track.
			delete(e.remaining, order.ID)
		}
	}
	return result, nil
}

// CancelOrder removes a resting order from the book and marks it cancelled.
// Returns false when no resting order has the ID; already filled or
// cancelled orders cannot be cancelled again.
func (e *Engine) CancelOrder(orderID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.book.GetOrder(orderID); !ok {
		return false
	}
	e.book.RemoveOrder(orderID)
	e.status[orderID] = domain.OrderStatusCancelled
	delete(e.remaining, orderID)
	return true
}

// OrderStatus returns the tracked status for an order ID. Unknown IDs report
// StatusNew.
func (e *Engine) OrderStatus(orderID string) domain.OrderStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	if st, ok := e.status[orderID]; ok {
		return st
	}
	return domain.OrderStatusNew
}

// RemainingQuantity returns the unfilled quantity tracked for an order ID,
// or zero when the order is unknown or fully settled.
func (e *Engine) RemainingQuantity(orderID string) decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()

	if qty, ok := e.remaining[orderID]; ok {
		return qty
	}
	return decimal.Zero
}

// TradedVolume returns the cumulative executed notional for a trader across
// both sides of all trades.
func (e *Engine) TradedVolume(traderID string) decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()

	if vol, ok := e.volume[traderID]; ok {
		return vol
	}
	return decimal.Zero
}

// match runs the matching loop: walk best opposite price levels, fill FIFO
// within each level, and stop when the incoming order is exhausted, prices
// no longer cross, or a level yields no fill at all.
func (e *Engine) match(order domain.Order) (domain.MatchResult, error) {
	var (
		trades    []domain.Trade
		remaining = order.Quantity
		notional  = decimal.Zero
		current   = order
	)

	for remaining.Sign() > 0 {
		bestPrice, ok := e.bestOpposite(order.Side)
		if !ok {
			break
		}
		resting := e.book.OrdersAtPrice(order.Side.Opposite(), bestPrice)
		if len(resting) == 0 {
			break
		}

		filledAtLevel := false
		for _, passive := range resting {
			if remaining.Sign() <= 0 {
				break
			}
			if !current.CanMatch(passive) || !e.validator.CanTrade(current, passive) {
				continue
			}

			matchQty := decimal.Min(remaining, passive.Quantity)
			trade, err := e.trades.Generate(current, passive, matchQty)
			if err != nil {
				return domain.MatchResult{}, err
			}
			trades = append(trades, trade)
			filledAtLevel = true

			remaining = remaining.Sub(matchQty)
			notional = notional.Add(trade.Notional())
			if remaining.Sign() > 0 {
				current = order.WithQuantity(remaining)
			}

			e.volume[trade.Buyer] = e.volume[trade.Buyer].Add(trade.Notional())
			e.volume[trade.Seller] = e.volume[trade.Seller].Add(trade.Notional())

			e.settlePassiveFill(passive, matchQty)
		}

		// A level where every resting order was skipped (self-trade) blocks
		// further matching rather than letting the order jump past it.
		if !filledAtLevel {
			break
		}
	}

	return e.classify(order, trades, remaining, notional), nil
}

func (e *Engine) bestOpposite(side domain.Side) (decimal.Decimal, bool) {
	if side == domain.SideBuy {
		return e.book.BestAsk()
	}
	return e.book.BestBid()
}

// settlePassiveFill updates the resting order after a fill: remove it when
// exhausted, otherwise shrink it in place so it keeps its queue position.
func (e *Engine) settlePassiveFill(passive domain.Order, filled decimal.Decimal) {
	left := passive.Quantity.Sub(filled)
	if left.Sign() <= 0 {
		e.book.RemoveOrder(passive.ID)
		e.status[passive.ID] = domain.OrderStatusFilled
		delete(e.remaining, passive.ID)
		e.emit(passive.ID, passive.TraderID, domain.OrderStatusFilled)
		return
	}

	if err := e.book.ReplaceOrder(passive.ID, passive.WithQuantity(left)); err != nil {
		// The order was just read from the book under the engine lock, so a
		// replace failure means the book is corrupt.
		panic(fmt.Sprintf("engine: replace resting order %s: %v", passive.ID, err))
	}
	e.status[passive.ID] = domain.OrderStatusPartiallyFilled
	e.remaining[passive.ID] = left
	e.emit(passive.ID, passive.TraderID, domain.OrderStatusPartiallyFilled)
}

func (e *Engine) classify(order domain.Order, trades []domain.Trade, remaining, notional decimal.Decimal) domain.MatchResult {
	if len(trades) == 0 {
		return domain.NoMatch(order)
	}
	if remaining.Sign() <= 0 {
		avg := notional.DivRound(order.Quantity, domain.PriceScale)
		return domain.FullyFilled(trades, avg)
	}
	filled := order.Quantity.Sub(remaining)
	avg := notional.DivRound(filled, domain.PriceScale)
	return domain.PartiallyFilled(trades, order.WithQuantity(remaining), avg)
}

func (e *Engine) emit(orderID, traderID string, status domain.OrderStatus) {
	if e.listener != nil {
		e.listener(orderID, traderID, status)
	}
}
