package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Side indicates whether this is a buy or sell.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Opposite returns the other side of the book.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// OrderType selects the execution policy.
//
// Market orders execute immediately at the best available price and never
// rest in the book. Limit orders only execute at their price or better.
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

// OrderStatus tracks the order lifecycle. Transitions move forward through
// new -> partially_filled -> filled, or terminate at cancelled; filled and
// cancelled are terminal.
type OrderStatus string

const (
	OrderStatusNew             OrderStatus = "new"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCancelled       OrderStatus = "cancelled"
)

// PriceScale and QuantityScale are the decimal scales every price and
// quantity is normalized to before storage or comparison.
const (
	PriceScale    = 2
	QuantityScale = 2
)

// Order is an immutable description of a trading intent. A partially filled
// order is represented by a new Order value carrying the same ID and the
// reduced quantity; Order values are never mutated in place.
type Order struct {
	ID        string
	Type      OrderType
	Side      Side
	Price     decimal.Decimal // zero for market orders
	Quantity  decimal.Decimal
	TraderID  string
	Timestamp time.Time
}

// NewOrder validates and normalizes an order. Price and quantity are rounded
// half-up to two decimals before validation, so values that round to zero
// (for example a quantity of 0.004) are rejected. Market orders must not
// carry a price.
func NewOrder(id string, typ OrderType, side Side, price, quantity decimal.Decimal, traderID string, ts time.Time) (Order, error) {
	if strings.TrimSpace(id) == "" {
		return Order{}, fmt.Errorf("%w: order ID cannot be blank", ErrInvalidOrder)
	}
	if strings.TrimSpace(traderID) == "" {
		return Order{}, fmt.Errorf("%w: trader ID cannot be blank", ErrInvalidOrder)
	}
	if typ != OrderTypeMarket && typ != OrderTypeLimit {
		return Order{}, fmt.Errorf("%w: unknown order type %q", ErrInvalidOrder, typ)
	}
	if side != SideBuy && side != SideSell {
		return Order{}, fmt.Errorf("%w: unknown side %q", ErrInvalidOrder, side)
	}

	price = price.Round(PriceScale)
	quantity = quantity.Round(QuantityScale)

	if quantity.LessThanOrEqual(decimal.Zero) {
		return Order{}, fmt.Errorf("%w: quantity must be positive after rounding, got %s", ErrInvalidOrder, quantity)
	}
	switch typ {
	case OrderTypeLimit:
		if price.LessThanOrEqual(decimal.Zero) {
			return Order{}, fmt.Errorf("%w: price must be positive for limit order, got %s", ErrInvalidOrder, price)
		}
	case OrderTypeMarket:
		if !price.IsZero() {
			return Order{}, fmt.Errorf("%w: market order cannot carry a price", ErrInvalidOrder)
		}
	}
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	return Order{
		ID:        id,
		Type:      typ,
		Side:      side,
		Price:     price,
		Quantity:  quantity,
		TraderID:  traderID,
		Timestamp: ts,
	}, nil
}

// WithQuantity returns a copy of the order carrying the given remaining
// quantity. Used after partial fills; everything else, including the ID and
// the original timestamp (time priority), is preserved.
func (o Order) WithQuantity(remaining decimal.Decimal) Order {
	o.Quantity = remaining
	return o
}

// Value returns price * quantity, or zero for market orders.
func (o Order) Value() decimal.Decimal {
	if o.Type == OrderTypeMarket {
		return decimal.Zero
	}
	return o.Price.Mul(o.Quantity)
}

// IsLimit reports whether this is a limit order.
func (o Order) IsLimit() bool { return o.Type == OrderTypeLimit }

// IsMarket reports whether this is a market order.
func (o Order) IsMarket() bool { return o.Type == OrderTypeMarket }

// CanMatch reports whether this order can trade against other: the orders
// must be on opposite sides, and unless one of them is a market order, their
// limit prices must cross.
func (o Order) CanMatch(other Order) bool {
	if o.Side == other.Side {
		return false
	}
	if o.IsMarket() || other.IsMarket() {
		return true
	}
	return o.pricesCross(other)
}

// pricesCross: a buy crosses when its price >= the sell's price, a sell when
// its price <= the buy's price.
func (o Order) pricesCross(other Order) bool {
	if o.Side == SideBuy {
		return o.Price.GreaterThanOrEqual(other.Price)
	}
	return o.Price.LessThanOrEqual(other.Price)
}
