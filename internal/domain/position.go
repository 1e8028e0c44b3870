package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is an immutable snapshot of one trader's inventory derived from
// their fills.
type Position struct {
	NetQuantity   decimal.Decimal // bought - sold; negative when short
	TotalBought   decimal.Decimal
	TotalSold     decimal.Decimal
	AvgBuyPrice   decimal.Decimal
	AvgSellPrice  decimal.Decimal
	RealizedPnL   decimal.Decimal
	Turnover      decimal.Decimal // bought + sold
	OpenedAt      time.Time
	LastUpdatedAt time.Time
}

// IsLong reports whether the position is net long.
func (p Position) IsLong() bool { return p.NetQuantity.GreaterThan(decimal.Zero) }

// IsShort reports whether the position is net short.
func (p Position) IsShort() bool { return p.NetQuantity.LessThan(decimal.Zero) }

// IsFlat reports whether the position is flat.
func (p Position) IsFlat() bool { return p.NetQuantity.IsZero() }

// CapitalAllocation is an immutable snapshot of how a strategy's capital is
// split between available funds, reservations for pending orders, and open
// positions. The accounting identity available + reserved + position ==
// total + realized PnL holds for every snapshot.
type CapitalAllocation struct {
	TotalCapital    decimal.Decimal
	Available       decimal.Decimal
	Reserved        decimal.Decimal
	PositionCapital decimal.Decimal
	RealizedPnL     decimal.Decimal
	LastUpdatedAt   time.Time
}

// UsedCapital returns reserved + position capital.
func (c CapitalAllocation) UsedCapital() decimal.Decimal {
	return c.Reserved.Add(c.PositionCapital)
}

// EffectiveCapital returns the initial capital adjusted for realized PnL.
func (c CapitalAllocation) EffectiveCapital() decimal.Decimal {
	return c.TotalCapital.Add(c.RealizedPnL)
}

// HasSufficient reports whether at least amount is available.
func (c CapitalAllocation) HasSufficient(amount decimal.Decimal) bool {
	return c.Available.GreaterThanOrEqual(amount)
}
