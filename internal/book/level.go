// Package book implements the price-time-priority order book: FIFO price
// levels kept in two sorted sides plus an O(1) order index.
package book

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/driftline/matchcore/internal/domain"
)

// PriceLevel holds all resting orders at one exact price in arrival order,
// together with aggregate quantity and order count. The level is not safe
// for concurrent use on its own; the owning Book serializes access.
type PriceLevel struct {
	price         decimal.Decimal
	orders        []domain.Order
	totalQuantity decimal.Decimal
}

// NewPriceLevel creates an empty level for the given price.
func NewPriceLevel(price decimal.Decimal) *PriceLevel {
	return &PriceLevel{
		price:         price,
		totalQuantity: decimal.Zero,
	}
}

// Price returns the price of this level. Two levels are the same level iff
// their prices compare equal.
func (l *PriceLevel) Price() decimal.Decimal { return l.price }

// TotalQuantity returns the sum of all resting order quantities.
func (l *PriceLevel) TotalQuantity() decimal.Decimal { return l.totalQuantity }

// OrderCount returns the number of resting orders.
func (l *PriceLevel) OrderCount() int { return len(l.orders) }

// IsEmpty reports whether the level holds no orders.
func (l *PriceLevel) IsEmpty() bool { return len(l.orders) == 0 }

// Orders returns a snapshot copy of the resting orders in time priority.
// Mutating the returned slice never affects level state.
func (l *PriceLevel) Orders() []domain.Order {
	out := make([]domain.Order, len(l.orders))
	copy(out, l.orders)
	return out
}

// AddOrder appends an order to the end of the FIFO sequence. The order's
// price must compare equal to the level price.
func (l *PriceLevel) AddOrder(order domain.Order) error {
	if !order.Price.Equal(l.price) {
		return fmt.Errorf("%w: order price %s, level price %s",
			domain.ErrPriceMismatch, order.Price, l.price)
	}
	l.orders = append(l.orders, order)
	l.totalQuantity = l.totalQuantity.Add(order.Quantity)
	return nil
}

// RemoveOrder removes the order with the given ID, returning it and true, or
// the zero order and false when not present. Linear in level depth.
func (l *PriceLevel) RemoveOrder(orderID string) (domain.Order, bool) {
	for i, o := range l.orders {
		if o.ID == orderID {
			l.orders = append(l.orders[:i], l.orders[i+1:]...)
			l.totalQuantity = l.totalQuantity.Sub(o.Quantity)
			return o, true
		}
	}
	return domain.Order{}, false
}

// ReplaceOrder swaps the order with the given ID for a same-price
// replacement in place, keeping its FIFO position. Time priority survives a
// partial fill; only the remaining quantity changes.
func (l *PriceLevel) ReplaceOrder(orderID string, replacement domain.Order) bool {
	if !replacement.Price.Equal(l.price) {
		return false
	}
	for i, o := range l.orders {
		if o.ID == orderID {
			l.totalQuantity = l.totalQuantity.Sub(o.Quantity).Add(replacement.Quantity)
			l.orders[i] = replacement
			return true
		}
	}
	return false
}

// PeekFirst returns the oldest order without removing it.
func (l *PriceLevel) PeekFirst() (domain.Order, bool) {
	if len(l.orders) == 0 {
		return domain.Order{}, false
	}
	return l.orders[0], true
}

// PollFirst removes and returns the oldest order, updating the aggregates.
func (l *PriceLevel) PollFirst() (domain.Order, bool) {
	if len(l.orders) == 0 {
		return domain.Order{}, false
	}
	o := l.orders[0]
	l.orders = l.orders[1:]
	l.totalQuantity = l.totalQuantity.Sub(o.Quantity)
	return o, true
}

// Summary returns the aggregated view of this level for depth snapshots.
func (l *PriceLevel) Summary() domain.DepthLevel {
	return domain.DepthLevel{
		Price:      l.price,
		Quantity:   l.totalQuantity,
		OrderCount: len(l.orders),
	}
}
