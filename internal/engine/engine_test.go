package engine

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftline/matchcore/internal/book"
	"github.com/driftline/matchcore/internal/domain"
)

func newTestEngine() *Engine {
	return New(book.New(), NewValidator(DefaultBounds()))
}

func TestExactMatchFillsBothOrders(t *testing.T) {
	e := newTestEngine()

	res, err := e.ProcessOrder(mustLimit(t, "buy-1", domain.SideBuy, "100.00", "10", "TRADER-1"))
	require.NoError(t, err)
	assert.False(t, res.HasExecutions())

	res, err = e.ProcessOrder(mustLimit(t, "sell-1", domain.SideSell, "100.00", "10", "TRADER-2"))
	require.NoError(t, err)

	require.Len(t, res.Trades, 1)
	trade := res.Trades[0]
	assert.True(t, trade.Price.Equal(decimal.RequireFromString("100.00")))
	assert.True(t, trade.Quantity.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, "TRADER-1", trade.Buyer)
	assert.Equal(t, "TRADER-2", trade.Seller)

	assert.Equal(t, domain.OrderStatusFilled, e.OrderStatus("buy-1"))
	assert.Equal(t, domain.OrderStatusFilled, e.OrderStatus("sell-1"))
	assert.True(t, e.Book().IsEmpty())
}

func TestFIFOAcrossEqualPrices(t *testing.T) {
	e := newTestEngine()

	for _, trader := range []string{"TRADER-A", "TRADER-B", "TRADER-C"} {
		_, err := e.ProcessOrder(mustLimit(t, "buy-"+trader, domain.SideBuy, "100.00", "5", trader))
		require.NoError(t, err)
	}

	res, err := e.ProcessOrder(mustLimit(t, "sell-1", domain.SideSell, "100.00", "15", "TRADER-D"))
	require.NoError(t, err)

	require.Len(t, res.Trades, 3)
	assert.Equal(t, "TRADER-A", res.Trades[0].Buyer)
	assert.Equal(t, "TRADER-B", res.Trades[1].Buyer)
	assert.Equal(t, "TRADER-C", res.Trades[2].Buyer)

	assert.Equal(t, domain.OrderStatusFilled, e.OrderStatus("sell-1"))
	for _, trader := range []string{"TRADER-A", "TRADER-B", "TRADER-C"} {
		assert.Equal(t, domain.OrderStatusFilled, e.OrderStatus("buy-"+trader))
	}
}

func TestSelfTradePrevented(t *testing.T) {
	e := newTestEngine()

	_, err := e.ProcessOrder(mustLimit(t, "buy-1", domain.SideBuy, "100.00", "10", "TRADER-A"))
	require.NoError(t, err)

	res, err := e.ProcessOrder(mustLimit(t, "sell-1", domain.SideSell, "100.00", "10", "TRADER-A"))
	require.NoError(t, err)

	assert.Empty(t, res.Trades)
	assert.Equal(t, domain.OrderStatusNew, e.OrderStatus("buy-1"))
	assert.Equal(t, domain.OrderStatusNew, e.OrderStatus("sell-1"))

	// Both orders remain resting.
	_, ok := e.Book().GetOrder("buy-1")
	assert.True(t, ok)
	_, ok = e.Book().GetOrder("sell-1")
	assert.True(t, ok)
}

func TestSelfTradeBlocksDeeperLevels(t *testing.T) {
	e := newTestEngine()

	// TRADER-A owns the best ask; liquidity from TRADER-B sits behind it.
	_, err := e.ProcessOrder(mustLimit(t, "ask-a", domain.SideSell, "100.00", "5", "TRADER-A"))
	require.NoError(t, err)
	_, err = e.ProcessOrder(mustLimit(t, "ask-b", domain.SideSell, "101.00", "5", "TRADER-B"))
	require.NoError(t, err)

	res, err := e.ProcessOrder(mustLimit(t, "buy-a", domain.SideBuy, "101.00", "5", "TRADER-A"))
	require.NoError(t, err)

	assert.Empty(t, res.Trades, "a level blocked by self-trade stops the match entirely")
	_, ok := e.Book().GetOrder("ask-b")
	assert.True(t, ok, "deeper liquidity is not reached past the blocked level")
}

func TestMarketOrderWalksTheBook(t *testing.T) {
	e := newTestEngine()

	_, err := e.ProcessOrder(mustLimit(t, "ask-1", domain.SideSell, "101.00", "5", "T1"))
	require.NoError(t, err)
	_, err = e.ProcessOrder(mustLimit(t, "ask-2", domain.SideSell, "100.00", "5", "T2"))
	require.NoError(t, err)
	_, err = e.ProcessOrder(mustLimit(t, "ask-3", domain.SideSell, "102.00", "5", "T3"))
	require.NoError(t, err)

	res, err := e.ProcessOrder(mustMarket(t, "mkt-1", domain.SideBuy, "10", "T4"))
	require.NoError(t, err)

	require.Len(t, res.Trades, 2)
	assert.True(t, res.Trades[0].Price.Equal(decimal.RequireFromString("100.00")))
	assert.True(t, res.Trades[1].Price.Equal(decimal.RequireFromString("101.00")))
	assert.True(t, res.FilledQuantity.Equal(decimal.NewFromInt(10)))
	assert.True(t, res.AveragePrice.Equal(decimal.RequireFromString("100.50")))
	assert.True(t, res.IsFullyFilled())

	_, ok := e.Book().GetOrder("mkt-1")
	assert.False(t, ok, "market orders never rest")
}

func TestMarketOrderNoLiquidity(t *testing.T) {
	e := newTestEngine()

	res, err := e.ProcessOrder(mustMarket(t, "mkt-1", domain.SideBuy, "10", "T1"))
	require.NoError(t, err)

	assert.Empty(t, res.Trades)
	assert.Equal(t, domain.OrderStatusNew, res.FinalStatus)
	assert.True(t, e.Book().IsEmpty())
}

func TestPartialFillOfRestingOrder(t *testing.T) {
	e := newTestEngine()

	_, err := e.ProcessOrder(mustLimit(t, "buy-1", domain.SideBuy, "100.00", "20", "T1"))
	require.NoError(t, err)

	res, err := e.ProcessOrder(mustLimit(t, "sell-1", domain.SideSell, "100.00", "5", "T2"))
	require.NoError(t, err)

	require.Len(t, res.Trades, 1)
	assert.True(t, res.Trades[0].Quantity.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, domain.OrderStatusFilled, e.OrderStatus("sell-1"))

	assert.Equal(t, domain.OrderStatusPartiallyFilled, e.OrderStatus("buy-1"))
	assert.True(t, e.RemainingQuantity("buy-1").Equal(decimal.NewFromInt(15)))

	rest, ok := e.Book().GetOrder("buy-1")
	require.True(t, ok, "partially filled order keeps resting under its original id")
	assert.True(t, rest.Price.Equal(decimal.RequireFromString("100.00")))
	assert.True(t, rest.Quantity.Equal(decimal.NewFromInt(15)))
}

func TestPartialFillOfIncomingOrderRests(t *testing.T) {
	e := newTestEngine()

	_, err := e.ProcessOrder(mustLimit(t, "ask-1", domain.SideSell, "100.00", "4", "T1"))
	require.NoError(t, err)

	res, err := e.ProcessOrder(mustLimit(t, "buy-1", domain.SideBuy, "100.00", "10", "T2"))
	require.NoError(t, err)

	assert.True(t, res.IsPartiallyFilled())
	require.NotNil(t, res.RemainingOrder)
	assert.True(t, res.RemainingOrder.Quantity.Equal(decimal.NewFromInt(6)))
	assert.True(t, res.AveragePrice.Equal(decimal.RequireFromString("100.00")))

	bid, ok := e.Book().BestBid()
	require.True(t, ok)
	assert.True(t, bid.Equal(decimal.RequireFromString("100.00")))
}

func TestAveragePriceIsVolumeWeighted(t *testing.T) {
	e := newTestEngine()

	_, err := e.ProcessOrder(mustLimit(t, "ask-1", domain.SideSell, "100.00", "6", "T1"))
	require.NoError(t, err)
	_, err = e.ProcessOrder(mustLimit(t, "ask-2", domain.SideSell, "103.00", "4", "T2"))
	require.NoError(t, err)

	res, err := e.ProcessOrder(mustLimit(t, "buy-1", domain.SideBuy, "103.00", "10", "T3"))
	require.NoError(t, err)

	// (6*100 + 4*103) / 10 = 101.20
	assert.True(t, res.AveragePrice.Equal(decimal.RequireFromString("101.20")))
	assert.True(t, res.FilledQuantity.Equal(decimal.NewFromInt(10)))
}

func TestCancelOrder(t *testing.T) {
	e := newTestEngine()

	_, err := e.ProcessOrder(mustLimit(t, "buy-1", domain.SideBuy, "100.00", "10", "T1"))
	require.NoError(t, err)

	assert.True(t, e.CancelOrder("buy-1"))
	assert.Equal(t, domain.OrderStatusCancelled, e.OrderStatus("buy-1"))
	assert.True(t, e.Book().IsEmpty())

	// Cancelled and unknown orders both report false.
	assert.False(t, e.CancelOrder("buy-1"))
	assert.False(t, e.CancelOrder("never-seen"))
}

func TestCancelledOrderDoesNotMatch(t *testing.T) {
	e := newTestEngine()

	_, err := e.ProcessOrder(mustLimit(t, "buy-1", domain.SideBuy, "100.00", "10", "T1"))
	require.NoError(t, err)
	require.True(t, e.CancelOrder("buy-1"))

	res, err := e.ProcessOrder(mustLimit(t, "sell-1", domain.SideSell, "100.00", "10", "T2"))
	require.NoError(t, err)
	assert.Empty(t, res.Trades)
}

func TestOrderStatusDefaultsToNew(t *testing.T) {
	e := newTestEngine()
	assert.Equal(t, domain.OrderStatusNew, e.OrderStatus("unknown"))
}

func TestDuplicateOrderIDRejected(t *testing.T) {
	e := newTestEngine()

	_, err := e.ProcessOrder(mustLimit(t, "o1", domain.SideBuy, "100.00", "10", "T1"))
	require.NoError(t, err)

	_, err = e.ProcessOrder(mustLimit(t, "o1", domain.SideBuy, "101.00", "10", "T1"))
	assert.ErrorIs(t, err, domain.ErrDuplicateOrder)
}

func TestValidationRejectLeavesNoState(t *testing.T) {
	e := newTestEngine()

	_, err := e.ProcessOrder(mustLimit(t, "o1", domain.SideBuy, "100.00", "1000000.01", "T1"))
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)

	assert.True(t, e.Book().IsEmpty())
	assert.Equal(t, domain.OrderStatusNew, e.OrderStatus("o1"))
	assert.True(t, e.RemainingQuantity("o1").IsZero())
}

func TestTradedVolume(t *testing.T) {
	e := newTestEngine()

	_, err := e.ProcessOrder(mustLimit(t, "buy-1", domain.SideBuy, "100.00", "10", "alice"))
	require.NoError(t, err)
	_, err = e.ProcessOrder(mustLimit(t, "sell-1", domain.SideSell, "100.00", "10", "bob"))
	require.NoError(t, err)

	want := decimal.NewFromInt(1000)
	assert.True(t, e.TradedVolume("alice").Equal(want))
	assert.True(t, e.TradedVolume("bob").Equal(want))
	assert.True(t, e.TradedVolume("carol").IsZero())
}

func TestEventListenerSeesPassiveFills(t *testing.T) {
	e := newTestEngine()

	type event struct {
		orderID string
		status  domain.OrderStatus
	}
	var events []event
	e.SetEventListener(func(orderID, traderID string, status domain.OrderStatus) {
		events = append(events, event{orderID, status})
	})

	_, err := e.ProcessOrder(mustLimit(t, "buy-1", domain.SideBuy, "100.00", "10", "T1"))
	require.NoError(t, err)
	_, err = e.ProcessOrder(mustLimit(t, "sell-1", domain.SideSell, "100.00", "4", "T2"))
	require.NoError(t, err)
	_, err = e.ProcessOrder(mustLimit(t, "sell-2", domain.SideSell, "100.00", "6", "T2"))
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, event{"buy-1", domain.OrderStatusPartiallyFilled}, events[0])
	assert.Equal(t, event{"buy-1", domain.OrderStatusFilled}, events[1])
}

func TestConcurrentSubmissionsConserveQuantity(t *testing.T) {
	e := newTestEngine()

	_, err := e.ProcessOrder(mustLimit(t, "ask", domain.SideSell, "100.00", "100", "maker"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := "buy-" + string(rune('a'+n))
			_, err := e.ProcessOrder(mustLimit(t, id, domain.SideBuy, "100.00", "10", "taker"))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, domain.OrderStatusFilled, e.OrderStatus("ask"))
	assert.True(t, e.Book().IsEmpty())
	assert.True(t, e.TradedVolume("maker").Equal(decimal.NewFromInt(10000)))
}
