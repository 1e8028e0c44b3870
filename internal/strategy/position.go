// Package strategy hosts the trading strategies that sit on top of the
// matching engine: position and capital accounting, a registry, and the
// quoting strategies themselves.
package strategy

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/driftline/matchcore/internal/domain"
)

// PositionTracker maintains one trader's inventory from their fills. Realized
// PnL uses weighted-average entry cost: a fill that reduces the open position
// realizes the difference between its price and the average entry price of
// the opposite side. Safe for concurrent use.
type PositionTracker struct {
	mu sync.RWMutex

	trader string

	netQuantity  decimal.Decimal
	totalBought  decimal.Decimal
	totalSold    decimal.Decimal
	buyNotional  decimal.Decimal
	sellNotional decimal.Decimal
	realizedPnL  decimal.Decimal

	openedAt    time.Time
	lastUpdated time.Time
}

// NewPositionTracker creates an empty tracker for the given trader.
func NewPositionTracker(trader string) *PositionTracker {
	return &PositionTracker{trader: trader}
}

// Trader returns the trader this tracker accounts for.
func (p *PositionTracker) Trader() string { return p.trader }

// ApplyTrade folds a trade into the position. Trades where the trader is
// neither buyer nor seller are ignored, so the full trade stream can be fed
// in unfiltered.
func (p *PositionTracker) ApplyTrade(trade domain.Trade) {
	isBuy := trade.Buyer == p.trader
	isSell := trade.Seller == p.trader
	if !isBuy && !isSell {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.openedAt.IsZero() {
		p.openedAt = trade.Timestamp
	}
	p.lastUpdated = trade.Timestamp

	// Self-trades never reach here through the engine, but a replayed feed
	// could contain one; treat it as a wash with no position effect.
	if isBuy && isSell {
		return
	}
	if isBuy {
		p.applyBuy(trade.Price, trade.Quantity)
		return
	}
	p.applySell(trade.Price, trade.Quantity)
}

func (p *PositionTracker) applyBuy(price, qty decimal.Decimal) {
	if p.netQuantity.Sign() < 0 {
		closing := decimal.Min(qty, p.netQuantity.Neg())
		avgSell := ratio(p.sellNotional, p.totalSold)
		p.realizedPnL = p.realizedPnL.Add(avgSell.Sub(price).Mul(closing))
	}
	p.totalBought = p.totalBought.Add(qty)
	p.buyNotional = p.buyNotional.Add(price.Mul(qty))
	p.netQuantity = p.netQuantity.Add(qty)
}

func (p *PositionTracker) applySell(price, qty decimal.Decimal) {
	if p.netQuantity.Sign() > 0 {
		closing := decimal.Min(qty, p.netQuantity)
		avgBuy := ratio(p.buyNotional, p.totalBought)
		p.realizedPnL = p.realizedPnL.Add(price.Sub(avgBuy).Mul(closing))
	}
	p.totalSold = p.totalSold.Add(qty)
	p.sellNotional = p.sellNotional.Add(price.Mul(qty))
	p.netQuantity = p.netQuantity.Sub(qty)
}

// Snapshot returns the current position as an immutable value.
func (p *PositionTracker) Snapshot() domain.Position {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return domain.Position{
		NetQuantity:   p.netQuantity,
		TotalBought:   p.totalBought,
		TotalSold:     p.totalSold,
		AvgBuyPrice:   ratio(p.buyNotional, p.totalBought).Round(domain.PriceScale),
		AvgSellPrice:  ratio(p.sellNotional, p.totalSold).Round(domain.PriceScale),
		RealizedPnL:   p.realizedPnL.Round(domain.PriceScale),
		Turnover:      p.totalBought.Add(p.totalSold),
		OpenedAt:      p.openedAt,
		LastUpdatedAt: p.lastUpdated,
	}
}

// NetQuantity returns the current signed inventory.
func (p *PositionTracker) NetQuantity() decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.netQuantity
}

// Reset clears all accumulated state.
func (p *PositionTracker) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.netQuantity = decimal.Zero
	p.totalBought = decimal.Zero
	p.totalSold = decimal.Zero
	p.buyNotional = decimal.Zero
	p.sellNotional = decimal.Zero
	p.realizedPnL = decimal.Zero
	p.openedAt = time.Time{}
	p.lastUpdated = time.Time{}
}

func ratio(notional, qty decimal.Decimal) decimal.Decimal {
	if qty.IsZero() {
		return decimal.Zero
	}
	return notional.Div(qty)
}
