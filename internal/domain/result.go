package domain

import "github.com/shopspring/decimal"

// MatchResult describes everything that happened while processing one order:
// the trades generated, the unfilled remainder (if any), the final status,
// and the volume-weighted average execution price across all fills.
type MatchResult struct {
	Trades         []Trade
	RemainingOrder *Order // nil when fully filled
	FinalStatus    OrderStatus
	FilledQuantity decimal.Decimal
	AveragePrice   decimal.Decimal // zero when nothing filled
}

// NoMatch builds the result for an order that generated no trades.
func NoMatch(order Order) MatchResult {
	o := order
	return MatchResult{
		Trades:         nil,
		RemainingOrder: &o,
		FinalStatus:    OrderStatusNew,
		FilledQuantity: decimal.Zero,
	}
}

// FullyFilled builds the result for an order whose quantity was exhausted.
func FullyFilled(trades []Trade, avgPrice decimal.Decimal) MatchResult {
	return MatchResult{
		Trades:         trades,
		FinalStatus:    OrderStatusFilled,
		FilledQuantity: sumQuantities(trades),
		AveragePrice:   avgPrice,
	}
}

// PartiallyFilled builds the result for an order that traded but still has
// remaining quantity.
func PartiallyFilled(trades []Trade, remaining Order, avgPrice decimal.Decimal) MatchResult {
	r := remaining
	return MatchResult{
		Trades:         trades,
		RemainingOrder: &r,
		FinalStatus:    OrderStatusPartiallyFilled,
		FilledQuantity: sumQuantities(trades),
		AveragePrice:   avgPrice,
	}
}

// HasExecutions reports whether at least one trade was generated.
func (r MatchResult) HasExecutions() bool { return len(r.Trades) > 0 }

// IsFullyFilled reports whether the order was completely filled.
func (r MatchResult) IsFullyFilled() bool { return r.FinalStatus == OrderStatusFilled }

// IsPartiallyFilled reports whether the order was partially filled.
func (r MatchResult) IsPartiallyFilled() bool { return r.FinalStatus == OrderStatusPartiallyFilled }

func sumQuantities(trades []Trade) decimal.Decimal {
	total := decimal.Zero
	for _, t := range trades {
		total = total.Add(t.Quantity)
	}
	return total
}
