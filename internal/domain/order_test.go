package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrderNormalization(t *testing.T) {
	o, err := NewOrder("o1", OrderTypeLimit, SideBuy,
		decimal.RequireFromString("100.255"), decimal.RequireFromString("10.255"),
		"t1", time.Now().UTC())
	require.NoError(t, err)

	assert.Equal(t, "100.26", o.Price.StringFixed(2), "price rounds half-up to two decimals")
	assert.Equal(t, "10.26", o.Quantity.StringFixed(2), "quantity rounds half-up to two decimals")

	// Half a cent is the smallest input that survives rounding.
	o, err = NewOrder("o2", OrderTypeLimit, SideBuy,
		decimal.RequireFromString("0.005"), decimal.RequireFromString("0.005"),
		"t1", time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, "0.01", o.Price.StringFixed(2))
	assert.Equal(t, "0.01", o.Quantity.StringFixed(2))
}

func TestNewOrderValidation(t *testing.T) {
	now := time.Now().UTC()
	price := decimal.NewFromInt(100)
	qty := decimal.NewFromInt(10)

	cases := []struct {
		name string
		fn   func() (Order, error)
	}{
		{"blank id", func() (Order, error) {
			return NewOrder("  ", OrderTypeLimit, SideBuy, price, qty, "t1", now)
		}},
		{"blank trader", func() (Order, error) {
			return NewOrder("o1", OrderTypeLimit, SideBuy, price, qty, "", now)
		}},
		{"zero quantity", func() (Order, error) {
			return NewOrder("o1", OrderTypeLimit, SideBuy, price, decimal.Zero, "t1", now)
		}},
		{"quantity rounds to zero", func() (Order, error) {
			return NewOrder("o1", OrderTypeLimit, SideBuy, price, decimal.RequireFromString("0.004"), "t1", now)
		}},
		{"price rounds to zero", func() (Order, error) {
			return NewOrder("o1", OrderTypeLimit, SideBuy, decimal.RequireFromString("0.004"), qty, "t1", now)
		}},
		{"limit without price", func() (Order, error) {
			return NewOrder("o1", OrderTypeLimit, SideBuy, decimal.Zero, qty, "t1", now)
		}},
		{"market with price", func() (Order, error) {
			return NewOrder("o1", OrderTypeMarket, SideBuy, price, qty, "t1", now)
		}},
		{"unknown side", func() (Order, error) {
			return NewOrder("o1", OrderTypeLimit, Side("hold"), price, qty, "t1", now)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.fn()
			assert.ErrorIs(t, err, ErrInvalidOrder)
		})
	}
}

func TestWithQuantityPreservesIdentity(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	o, err := NewOrder("o1", OrderTypeLimit, SideBuy,
		decimal.NewFromInt(100), decimal.NewFromInt(10), "t1", ts)
	require.NoError(t, err)

	reduced := o.WithQuantity(decimal.NewFromInt(4))
	assert.Equal(t, o.ID, reduced.ID)
	assert.Equal(t, ts, reduced.Timestamp, "time priority survives partial fills")
	assert.True(t, reduced.Quantity.Equal(decimal.NewFromInt(4)))
	assert.True(t, o.Quantity.Equal(decimal.NewFromInt(10)), "original value untouched")
}

func TestCanMatch(t *testing.T) {
	now := time.Now().UTC()
	mk := func(side Side, typ OrderType, price string) Order {
		p := decimal.Zero
		if typ == OrderTypeLimit {
			p = decimal.RequireFromString(price)
		}
		o, err := NewOrder("x", typ, side, p, decimal.NewFromInt(1), "t", now)
		require.NoError(t, err)
		return o
	}

	buy100 := mk(SideBuy, OrderTypeLimit, "100")
	sell100 := mk(SideSell, OrderTypeLimit, "100")
	sell101 := mk(SideSell, OrderTypeLimit, "101")
	mktSell := mk(SideSell, OrderTypeMarket, "")

	assert.True(t, buy100.CanMatch(sell100), "equal prices cross")
	assert.False(t, buy100.CanMatch(sell101), "buy below ask does not cross")
	assert.True(t, buy100.CanMatch(mktSell), "market orders always cross")
	assert.False(t, sell100.CanMatch(sell101), "same side never matches")
}

func TestSideOpposite(t *testing.T) {
	assert.Equal(t, SideSell, SideBuy.Opposite())
	assert.Equal(t, SideBuy, SideSell.Opposite())
}
