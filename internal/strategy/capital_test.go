package strategy

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftline/matchcore/internal/domain"
)

func TestCapitalManagerReserveRelease(t *testing.T) {
	c := NewCapitalManager(decimal.NewFromInt(1000))

	require.NoError(t, c.Reserve(decimal.NewFromInt(400)))
	assert.True(t, c.Available().Equal(decimal.NewFromInt(600)))

	err := c.Reserve(decimal.NewFromInt(700))
	assert.ErrorIs(t, err, domain.ErrInsufficientCapital)

	c.Release(decimal.NewFromInt(400))
	assert.True(t, c.Available().Equal(decimal.NewFromInt(1000)))
}

func TestCapitalManagerSettleFill(t *testing.T) {
	c := NewCapitalManager(decimal.NewFromInt(1000))
	require.NoError(t, c.Reserve(decimal.NewFromInt(500)))

	// A buy fill converts the reservation into position capital.
	c.SettleFill(decimal.NewFromInt(500), decimal.NewFromInt(500), decimal.Zero)

	alloc := c.Allocation()
	assert.True(t, alloc.Reserved.IsZero())
	assert.True(t, alloc.PositionCapital.Equal(decimal.NewFromInt(500)))
	assert.True(t, alloc.Available.Equal(decimal.NewFromInt(500)))

	// Selling out books the PnL and frees the position capital.
	c.SettleFill(decimal.Zero, decimal.NewFromInt(-500), decimal.NewFromInt(25))

	alloc = c.Allocation()
	assert.True(t, alloc.PositionCapital.IsZero())
	assert.True(t, alloc.RealizedPnL.Equal(decimal.NewFromInt(25)))
	assert.True(t, alloc.Available.Equal(decimal.NewFromInt(1025)))
	assert.True(t, alloc.EffectiveCapital().Equal(decimal.NewFromInt(1025)))
}

func TestCapitalManagerRejectsNonPositiveReserve(t *testing.T) {
	c := NewCapitalManager(decimal.NewFromInt(100))
	assert.Error(t, c.Reserve(decimal.Zero))
	assert.Error(t, c.Reserve(decimal.NewFromInt(-5)))
}

func TestCapitalAllocationHasSufficient(t *testing.T) {
	c := NewCapitalManager(decimal.NewFromInt(100))
	alloc := c.Allocation()
	assert.True(t, alloc.HasSufficient(decimal.NewFromInt(100)))
	assert.False(t, alloc.HasSufficient(decimal.NewFromInt(101)))
}
