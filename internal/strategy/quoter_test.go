package strategy

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftline/matchcore/internal/domain"
)

type fakeSubmitter struct {
	submitted []domain.Order
	cancelled []string
}

func (f *fakeSubmitter) SubmitOrder(ctx context.Context, order domain.Order) (domain.MatchResult, error) {
	f.submitted = append(f.submitted, order)
	return domain.NoMatch(order), nil
}

func (f *fakeSubmitter) CancelOrder(ctx context.Context, orderID string) (bool, error) {
	f.cancelled = append(f.cancelled, orderID)
	return true, nil
}

type fakeDepth struct {
	snap domain.DepthSnapshot
}

func (f *fakeDepth) DepthSnapshot(levels int) domain.DepthSnapshot { return f.snap }

func TestQuoterRequoteCancelsPreviousSet(t *testing.T) {
	sub := &fakeSubmitter{}
	depth := &fakeDepth{snap: depthWith("99.00", "101.00")}
	s := NewSpreadQuoter(quoterConfig(), NewPositionTracker("mm-1"), nil, testLogger())
	q := NewQuoter(s, sub, depth, 0, 0, testLogger())
	require.NoError(t, s.Init(context.Background()))

	q.requote(context.Background())
	require.Len(t, sub.submitted, 2)
	assert.Empty(t, sub.cancelled)

	q.requote(context.Background())
	assert.Len(t, sub.submitted, 4)
	assert.Len(t, sub.cancelled, 2, "previous quote set is withdrawn first")
	assert.Equal(t, int64(4), q.OrdersSent())
}

func TestQuoterDropsSettledOrdersFromOpenSet(t *testing.T) {
	sub := &fakeSubmitter{}
	depth := &fakeDepth{snap: depthWith("99.00", "101.00")}
	s := NewSpreadQuoter(quoterConfig(), NewPositionTracker("mm-1"), nil, testLogger())
	q := NewQuoter(s, sub, depth, 0, 0, testLogger())
	require.NoError(t, s.Init(context.Background()))

	q.requote(context.Background())
	require.Len(t, sub.submitted, 2)

	q.OnOrderUpdate(context.Background(), sub.submitted[0].ID, domain.OrderStatusFilled)
	q.withdraw(context.Background())
	assert.Len(t, sub.cancelled, 1, "filled order is not cancelled again")
}

func TestQuoterOnTradeFeedsStrategy(t *testing.T) {
	sub := &fakeSubmitter{}
	positions := NewPositionTracker("mm-1")
	s := NewSpreadQuoter(quoterConfig(), positions, nil, testLogger())
	q := NewQuoter(s, sub, &fakeDepth{}, 0, 0, testLogger())

	q.OnTrade(context.Background(), trade(t, "mm-1", "other", "100.00", "5"))

	assert.True(t, positions.NetQuantity().Equal(decimal.NewFromInt(5)))
	assert.Equal(t, int64(0), q.ErrorCount())
}
