package strategy

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/driftline/matchcore/internal/domain"
)

// CapitalManager tracks how a strategy's bankroll is split between available
// funds, reservations held against open orders, and capital locked in
// positions. Safe for concurrent use.
type CapitalManager struct {
	mu sync.RWMutex

	total           decimal.Decimal
	reserved        decimal.Decimal
	positionCapital decimal.Decimal
	realizedPnL     decimal.Decimal
	lastUpdated     time.Time
}

// NewCapitalManager creates a manager with the given starting capital.
func NewCapitalManager(total decimal.Decimal) *CapitalManager {
	return &CapitalManager{total: total, lastUpdated: time.Now().UTC()}
}

// Reserve holds amount against a pending order. Fails with
// domain.ErrInsufficientCapital when the available balance cannot cover it.
func (c *CapitalManager) Reserve(amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return fmt.Errorf("reserve amount must be positive, got %s", amount)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.availableLocked().LessThan(amount) {
		return fmt.Errorf("reserve %s with %s available: %w",
			amount, c.availableLocked(), domain.ErrInsufficientCapital)
	}
	c.reserved = c.reserved.Add(amount)
	c.lastUpdated = time.Now().UTC()
	return nil
}

// Release returns a reservation to the available pool, e.g. after an order
// is cancelled. Releasing more than is reserved clamps to zero.
func (c *CapitalManager) Release(amount decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.reserved = decimal.Max(decimal.Zero, c.reserved.Sub(amount))
	c.lastUpdated = time.Now().UTC()
}

// SettleFill converts a reservation into position capital after a fill and
// books the realized PnL component, if any.
func (c *CapitalManager) SettleFill(reserved, position, pnl decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.reserved = decimal.Max(decimal.Zero, c.reserved.Sub(reserved))
	c.positionCapital = decimal.Max(decimal.Zero, c.positionCapital.Add(position))
	c.realizedPnL = c.realizedPnL.Add(pnl)
	c.lastUpdated = time.Now().UTC()
}

// Allocation returns the current split as an immutable snapshot.
func (c *CapitalManager) Allocation() domain.CapitalAllocation {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return domain.CapitalAllocation{
		TotalCapital:    c.total,
		Available:       c.availableLocked(),
		Reserved:        c.reserved,
		PositionCapital: c.positionCapital,
		RealizedPnL:     c.realizedPnL,
		LastUpdatedAt:   c.lastUpdated,
	}
}

// Available returns the balance currently free to reserve.
func (c *CapitalManager) Available() decimal.Decimal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.availableLocked()
}

func (c *CapitalManager) availableLocked() decimal.Decimal {
	return c.total.Add(c.realizedPnL).Sub(c.reserved).Sub(c.positionCapital)
}
