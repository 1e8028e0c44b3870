package strategy

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftline/matchcore/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func quoterConfig() Config {
	return Config{
		Name:        "spread_quoter",
		TraderID:    "mm-1",
		QuoteSize:   decimal.NewFromInt(5),
		HalfSpread:  decimal.RequireFromString("0.50"),
		SkewPerUnit: decimal.RequireFromString("0.01"),
		MaxPosition: decimal.NewFromInt(20),
	}
}

func depthWith(bid, ask string) domain.DepthSnapshot {
	snap := domain.DepthSnapshot{Timestamp: time.Now().UTC()}
	if bid != "" {
		p := decimal.RequireFromString(bid)
		snap.BestBid = &p
	}
	if ask != "" {
		p := decimal.RequireFromString(ask)
		snap.BestAsk = &p
	}
	return snap
}

func TestSpreadQuoterQuotesAroundMid(t *testing.T) {
	s := NewSpreadQuoter(quoterConfig(), NewPositionTracker("mm-1"), nil, testLogger())
	require.NoError(t, s.Init(context.Background()))

	orders, err := s.OnDepth(context.Background(), depthWith("99.00", "101.00"))
	require.NoError(t, err)
	require.Len(t, orders, 2)

	var bid, ask domain.Order
	for _, o := range orders {
		if o.Side == domain.SideBuy {
			bid = o
		} else {
			ask = o
		}
	}
	assert.Equal(t, "99.50", bid.Price.StringFixed(2))
	assert.Equal(t, "100.50", ask.Price.StringFixed(2))
	assert.Equal(t, "mm-1", bid.TraderID)
	assert.True(t, bid.Quantity.Equal(decimal.NewFromInt(5)))
}

func TestSpreadQuoterSkewsAgainstInventory(t *testing.T) {
	positions := NewPositionTracker("mm-1")
	s := NewSpreadQuoter(quoterConfig(), positions, nil, testLogger())
	require.NoError(t, s.Init(context.Background()))

	// Long 10 units shifts both quotes down by 10 * 0.01.
	positions.ApplyTrade(trade(t, "mm-1", "other", "100.00", "10"))

	orders, err := s.OnDepth(context.Background(), depthWith("99.00", "101.00"))
	require.NoError(t, err)
	require.Len(t, orders, 2)

	for _, o := range orders {
		if o.Side == domain.SideBuy {
			assert.Equal(t, "99.40", o.Price.StringFixed(2))
		} else {
			assert.Equal(t, "100.40", o.Price.StringFixed(2))
		}
	}
}

func TestSpreadQuoterStopsBiddingAtMaxPosition(t *testing.T) {
	positions := NewPositionTracker("mm-1")
	s := NewSpreadQuoter(quoterConfig(), positions, nil, testLogger())
	require.NoError(t, s.Init(context.Background()))

	positions.ApplyTrade(trade(t, "mm-1", "other", "100.00", "20"))

	orders, err := s.OnDepth(context.Background(), depthWith("99.00", "101.00"))
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, domain.SideSell, orders[0].Side)
}

func TestSpreadQuoterEmptyBook(t *testing.T) {
	s := NewSpreadQuoter(quoterConfig(), NewPositionTracker("mm-1"), nil, testLogger())
	require.NoError(t, s.Init(context.Background()))

	orders, err := s.OnDepth(context.Background(), domain.DepthSnapshot{})
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestSpreadQuoterCapitalGatesBids(t *testing.T) {
	capital := NewCapitalManager(decimal.NewFromInt(100)) // too small for 5 @ ~99.50
	s := NewSpreadQuoter(quoterConfig(), NewPositionTracker("mm-1"), capital, testLogger())
	require.NoError(t, s.Init(context.Background()))

	orders, err := s.OnDepth(context.Background(), depthWith("99.00", "101.00"))
	require.NoError(t, err)
	require.Len(t, orders, 1, "only the ask survives without capital")
	assert.Equal(t, domain.SideSell, orders[0].Side)
}

func TestSpreadQuoterReleasesCancelledBidReservation(t *testing.T) {
	capital := NewCapitalManager(decimal.NewFromInt(10000))
	s := NewSpreadQuoter(quoterConfig(), NewPositionTracker("mm-1"), capital, testLogger())
	require.NoError(t, s.Init(context.Background()))

	orders, err := s.OnDepth(context.Background(), depthWith("99.00", "101.00"))
	require.NoError(t, err)
	require.Len(t, orders, 2)

	var bidID string
	for _, o := range orders {
		if o.Side == domain.SideBuy {
			bidID = o.ID
		}
	}
	assert.True(t, capital.Available().LessThan(decimal.NewFromInt(10000)))

	require.NoError(t, s.OnOrderUpdate(context.Background(), bidID, domain.OrderStatusCancelled))
	assert.True(t, capital.Available().Equal(decimal.NewFromInt(10000)))
}

func TestSpreadQuoterInitValidation(t *testing.T) {
	cfg := quoterConfig()
	cfg.QuoteSize = decimal.Zero
	s := NewSpreadQuoter(cfg, NewPositionTracker("mm-1"), nil, testLogger())
	assert.Error(t, s.Init(context.Background()))
}
