package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Trade is the immutable record of a single execution between a buyer and a
// seller. Trades are created only by the trade generator at the moment of a
// match and are append-only afterwards.
type Trade struct {
	ID        string
	Buyer     string
	Seller    string
	Price     decimal.Decimal
	Quantity  decimal.Decimal
	Timestamp time.Time
}

// NewTrade validates and builds a trade record.
func NewTrade(id, buyer, seller string, price, quantity decimal.Decimal, ts time.Time) (Trade, error) {
	if buyer == "" || seller == "" {
		return Trade{}, fmt.Errorf("%w: trade requires buyer and seller", ErrInvalidOrder)
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return Trade{}, fmt.Errorf("%w: trade quantity must be positive", ErrBadQuantity)
	}
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return Trade{
		ID:        id,
		Buyer:     buyer,
		Seller:    seller,
		Price:     price,
		Quantity:  quantity,
		Timestamp: ts,
	}, nil
}

// Notional returns price * quantity for this trade.
func (t Trade) Notional() decimal.Decimal {
	return t.Price.Mul(t.Quantity)
}
