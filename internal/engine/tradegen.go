package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/driftline/matchcore/internal/domain"
)

// TradeGenerator builds trades from matched order pairs. The execution price
// always comes from the resting order; when the resting order is a market
// order the incoming order must carry the price.
type TradeGenerator struct{}

// NewTradeGenerator creates a trade generator.
func NewTradeGenerator() *TradeGenerator {
	return &TradeGenerator{}
}

// Generate creates a trade for quantity matched between the incoming and
// resting orders. Preconditions are engine invariants, so a failure here
// means a matching bug and aborts the match attempt.
func (g *TradeGenerator) Generate(incoming, resting domain.Order, quantity decimal.Decimal) (domain.Trade, error) {
	if incoming.Side == resting.Side {
		return domain.Trade{}, fmt.Errorf("matched %s against %s: %w", incoming.ID, resting.ID, domain.ErrSameSide)
	}
	if quantity.Sign() <= 0 {
		return domain.Trade{}, fmt.Errorf("match quantity %s: %w", quantity, domain.ErrBadQuantity)
	}
	if quantity.GreaterThan(incoming.Quantity) || quantity.GreaterThan(resting.Quantity) {
		return domain.Trade{}, fmt.Errorf("match quantity %s exceeds order quantity: %w", quantity, domain.ErrBadQuantity)
	}

	price, err := executionPrice(incoming, resting)
	if err != nil {
		return domain.Trade{}, err
	}

	buyer, seller := incoming.TraderID, resting.TraderID
	if incoming.Side == domain.SideSell {
		buyer, seller = resting.TraderID, incoming.TraderID
	}

	return domain.NewTrade(uuid.NewString(), buyer, seller, price, quantity, time.Now().UTC())
}

func executionPrice(incoming, resting domain.Order) (decimal.Decimal, error) {
	if resting.IsLimit() {
		return resting.Price, nil
	}
	if incoming.IsLimit() {
		return incoming.Price, nil
	}
	return decimal.Zero, fmt.Errorf("orders %s and %s: %w", incoming.ID, resting.ID, domain.ErrNoPrice)
}
