package book

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftline/matchcore/internal/domain"
)

func limit(t *testing.T, id string, side domain.Side, price, qty string) domain.Order {
	t.Helper()
	o, err := domain.NewOrder(id, domain.OrderTypeLimit, side,
		decimal.RequireFromString(price), decimal.RequireFromString(qty),
		"trader-"+id, time.Now().UTC())
	require.NoError(t, err)
	return o
}

func TestBookAddOrder(t *testing.T) {
	t.Run("rejects duplicate IDs", func(t *testing.T) {
		b := New()
		require.NoError(t, b.AddOrder(limit(t, "o1", domain.SideBuy, "10.00", "5")))

		err := b.AddOrder(limit(t, "o1", domain.SideBuy, "11.00", "5"))
		assert.ErrorIs(t, err, domain.ErrDuplicateOrder)
	})

	t.Run("rejects market orders", func(t *testing.T) {
		b := New()
		o, err := domain.NewOrder("m1", domain.OrderTypeMarket, domain.SideBuy,
			decimal.Zero, decimal.NewFromInt(5), "t1", time.Now().UTC())
		require.NoError(t, err)

		assert.ErrorIs(t, b.AddOrder(o), domain.ErrInvalidOrder)
	})

	t.Run("groups same-price orders into one level", func(t *testing.T) {
		b := New()
		require.NoError(t, b.AddOrder(limit(t, "o1", domain.SideBuy, "10.00", "5")))
		require.NoError(t, b.AddOrder(limit(t, "o2", domain.SideBuy, "10.00", "3")))

		assert.Equal(t, 1, b.PriceLevelCount(domain.SideBuy))
		assert.True(t, b.QuantityAtPrice(domain.SideBuy, decimal.RequireFromString("10.00")).
			Equal(decimal.NewFromInt(8)))
	})
}

func TestBookBestPrices(t *testing.T) {
	b := New()

	_, ok := b.BestBid()
	assert.False(t, ok, "empty book has no best bid")
	_, ok = b.BestAsk()
	assert.False(t, ok, "empty book has no best ask")

	require.NoError(t, b.AddOrder(limit(t, "b1", domain.SideBuy, "9.50", "1")))
	require.NoError(t, b.AddOrder(limit(t, "b2", domain.SideBuy, "10.00", "1")))
	require.NoError(t, b.AddOrder(limit(t, "a1", domain.SideSell, "10.50", "1")))
	require.NoError(t, b.AddOrder(limit(t, "a2", domain.SideSell, "11.00", "1")))

	bid, ok := b.BestBid()
	require.True(t, ok)
	assert.True(t, bid.Equal(decimal.RequireFromString("10.00")))

	ask, ok := b.BestAsk()
	require.True(t, ok)
	assert.True(t, ask.Equal(decimal.RequireFromString("10.50")))

	spread, ok := b.Spread()
	require.True(t, ok)
	assert.True(t, spread.Equal(decimal.RequireFromString("0.50")))
}

func TestBookSpreadNeedsBothSides(t *testing.T) {
	b := New()
	require.NoError(t, b.AddOrder(limit(t, "b1", domain.SideBuy, "10.00", "1")))

	_, ok := b.Spread()
	assert.False(t, ok)
}

func TestBookRemoveOrder(t *testing.T) {
	b := New()
	require.NoError(t, b.AddOrder(limit(t, "o1", domain.SideBuy, "10.00", "5")))
	require.NoError(t, b.AddOrder(limit(t, "o2", domain.SideBuy, "10.00", "3")))

	b.RemoveOrder("o1")

	_, ok := b.GetOrder("o1")
	assert.False(t, ok)
	assert.Equal(t, 1, b.TotalOrderCount())

	// Removing the last order at a price drops the level entirely.
	b.RemoveOrder("o2")
	assert.Equal(t, 0, b.PriceLevelCount(domain.SideBuy))
	assert.True(t, b.IsEmpty())

	// Unknown IDs are a no-op.
	b.RemoveOrder("o2")
	assert.True(t, b.IsEmpty())
}

func TestBookFIFOWithinLevel(t *testing.T) {
	b := New()
	require.NoError(t, b.AddOrder(limit(t, "first", domain.SideSell, "10.00", "1")))
	require.NoError(t, b.AddOrder(limit(t, "second", domain.SideSell, "10.00", "2")))
	require.NoError(t, b.AddOrder(limit(t, "third", domain.SideSell, "10.00", "3")))

	orders := b.OrdersAtPrice(domain.SideSell, decimal.RequireFromString("10.00"))
	require.Len(t, orders, 3)
	assert.Equal(t, "first", orders[0].ID)
	assert.Equal(t, "second", orders[1].ID)
	assert.Equal(t, "third", orders[2].ID)
}

func TestBookReplaceOrderKeepsQueuePosition(t *testing.T) {
	b := New()
	require.NoError(t, b.AddOrder(limit(t, "first", domain.SideSell, "10.00", "5")))
	require.NoError(t, b.AddOrder(limit(t, "second", domain.SideSell, "10.00", "5")))

	shrunk := limit(t, "first", domain.SideSell, "10.00", "2")
	require.NoError(t, b.ReplaceOrder("first", shrunk))

	orders := b.OrdersAtPrice(domain.SideSell, decimal.RequireFromString("10.00"))
	require.Len(t, orders, 2)
	assert.Equal(t, "first", orders[0].ID, "shrunk order stays at the front of the queue")
	assert.True(t, orders[0].Quantity.Equal(decimal.NewFromInt(2)))
	assert.True(t, b.QuantityAtPrice(domain.SideSell, decimal.RequireFromString("10.00")).
		Equal(decimal.NewFromInt(7)))
}

func TestBookReplaceOrderAcrossPrices(t *testing.T) {
	b := New()
	require.NoError(t, b.AddOrder(limit(t, "o1", domain.SideBuy, "10.00", "5")))

	moved := limit(t, "o1", domain.SideBuy, "9.00", "5")
	require.NoError(t, b.ReplaceOrder("o1", moved))

	assert.Equal(t, 1, b.PriceLevelCount(domain.SideBuy))
	got, ok := b.GetOrder("o1")
	require.True(t, ok)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("9.00")))
}

func TestBookTopPriceLevels(t *testing.T) {
	b := New()
	require.NoError(t, b.AddOrder(limit(t, "b1", domain.SideBuy, "9.00", "1")))
	require.NoError(t, b.AddOrder(limit(t, "b2", domain.SideBuy, "10.00", "2")))
	require.NoError(t, b.AddOrder(limit(t, "b3", domain.SideBuy, "10.00", "4")))
	require.NoError(t, b.AddOrder(limit(t, "b4", domain.SideBuy, "8.00", "1")))

	levels := b.TopPriceLevels(domain.SideBuy, 2)
	require.Len(t, levels, 2)
	assert.True(t, levels[0].Price.Equal(decimal.RequireFromString("10.00")))
	assert.True(t, levels[0].Quantity.Equal(decimal.NewFromInt(6)))
	assert.Equal(t, 2, levels[0].OrderCount)
	assert.True(t, levels[1].Price.Equal(decimal.RequireFromString("9.00")))

	assert.Nil(t, b.TopPriceLevels(domain.SideBuy, 0))
}

func TestBookDepthSnapshot(t *testing.T) {
	b := New()
	require.NoError(t, b.AddOrder(limit(t, "b1", domain.SideBuy, "10.00", "2")))
	require.NoError(t, b.AddOrder(limit(t, "a1", domain.SideSell, "10.40", "3")))

	snap := b.DepthSnapshot(5)
	require.Len(t, snap.Bids, 1)
	require.Len(t, snap.Asks, 1)
	require.NotNil(t, snap.BestBid)
	require.NotNil(t, snap.BestAsk)
	require.NotNil(t, snap.Spread)
	assert.True(t, snap.Spread.Equal(decimal.RequireFromString("0.40")))
	assert.False(t, snap.Timestamp.IsZero())
}

func TestBookClear(t *testing.T) {
	b := New()
	require.NoError(t, b.AddOrder(limit(t, "b1", domain.SideBuy, "10.00", "2")))
	require.NoError(t, b.AddOrder(limit(t, "a1", domain.SideSell, "11.00", "2")))

	b.Clear()

	assert.True(t, b.IsEmpty())
	assert.Equal(t, 0, b.PriceLevelCount(domain.SideBuy))
	assert.Equal(t, 0, b.PriceLevelCount(domain.SideSell))
}
