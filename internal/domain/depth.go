package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DepthLevel is a single aggregated price level in a depth snapshot.
type DepthLevel struct {
	Price      decimal.Decimal `json:"price"`
	Quantity   decimal.Decimal `json:"quantity"`
	OrderCount int             `json:"order_count"`
}

// DepthSnapshot is a point-in-time view of the top of the book, published to
// display paths after each mutation. Readers observe a consistent prior
// state, not necessarily the very latest one.
type DepthSnapshot struct {
	Bids      []DepthLevel     `json:"bids"`
	Asks      []DepthLevel     `json:"asks"`
	BestBid   *decimal.Decimal `json:"best_bid,omitempty"`
	BestAsk   *decimal.Decimal `json:"best_ask,omitempty"`
	Spread    *decimal.Decimal `json:"spread,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}
