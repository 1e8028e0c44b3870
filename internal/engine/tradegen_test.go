package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftline/matchcore/internal/domain"
)

func TestTradeGeneratorPriceComesFromRestingOrder(t *testing.T) {
	gen := NewTradeGenerator()

	incoming := mustLimit(t, "in", domain.SideBuy, "105.00", "5", "buyer")
	resting := mustLimit(t, "rest", domain.SideSell, "100.00", "5", "seller")

	trade, err := gen.Generate(incoming, resting, decimal.NewFromInt(5))
	require.NoError(t, err)
	assert.True(t, trade.Price.Equal(decimal.RequireFromString("100.00")),
		"execution price is the resting order's price")
	assert.Equal(t, "buyer", trade.Buyer)
	assert.Equal(t, "seller", trade.Seller)
	assert.NotEmpty(t, trade.ID)
}

func TestTradeGeneratorMarketResting(t *testing.T) {
	gen := NewTradeGenerator()

	incoming := mustLimit(t, "in", domain.SideSell, "99.00", "5", "seller")
	resting := mustMarket(t, "rest", domain.SideBuy, "5", "buyer")

	trade, err := gen.Generate(incoming, resting, decimal.NewFromInt(5))
	require.NoError(t, err)
	assert.True(t, trade.Price.Equal(decimal.RequireFromString("99.00")),
		"incoming limit supplies the price when the resting order is market")
	assert.Equal(t, "buyer", trade.Buyer)
	assert.Equal(t, "seller", trade.Seller)
}

func TestTradeGeneratorInvariants(t *testing.T) {
	gen := NewTradeGenerator()

	t.Run("same side", func(t *testing.T) {
		a := mustLimit(t, "a", domain.SideBuy, "10.00", "5", "t1")
		b := mustLimit(t, "b", domain.SideBuy, "10.00", "5", "t2")
		_, err := gen.Generate(a, b, decimal.NewFromInt(1))
		assert.ErrorIs(t, err, domain.ErrSameSide)
	})

	t.Run("quantity exceeds an order", func(t *testing.T) {
		a := mustLimit(t, "a", domain.SideBuy, "10.00", "5", "t1")
		b := mustLimit(t, "b", domain.SideSell, "10.00", "3", "t2")
		_, err := gen.Generate(a, b, decimal.NewFromInt(4))
		assert.ErrorIs(t, err, domain.ErrBadQuantity)
	})

	t.Run("two market orders have no price", func(t *testing.T) {
		a := mustMarket(t, "a", domain.SideBuy, "5", "t1")
		b := mustMarket(t, "b", domain.SideSell, "5", "t2")
		_, err := gen.Generate(a, b, decimal.NewFromInt(5))
		assert.ErrorIs(t, err, domain.ErrNoPrice)
	})
}
