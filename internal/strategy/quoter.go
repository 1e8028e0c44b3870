package strategy

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/driftline/matchcore/internal/domain"
)

// OrderSubmitter routes strategy orders into the matching path and cancels
// resting ones. Implemented by the exchange service.
type OrderSubmitter interface {
	SubmitOrder(ctx context.Context, order domain.Order) (domain.MatchResult, error)
	CancelOrder(ctx context.Context, orderID string) (bool, error)
}

// DepthSource supplies the book view strategies quote against.
type DepthSource interface {
	DepthSnapshot(levels int) domain.DepthSnapshot
}

// Quoter runs one strategy against the live book on a fixed interval: pull a
// depth snapshot, let the strategy propose orders, cancel the previous quote
// set, and submit the new one.
type Quoter struct {
	strategy  Strategy
	submitter OrderSubmitter
	depth     DepthSource
	interval  time.Duration
	levels    int
	logger    *slog.Logger

	mu          sync.Mutex
	open        []string // order IDs of the live quote set
	ordersSent  int64
	errorCount  int64
	lastOrderAt time.Time
}

// NewQuoter creates a quoter driving the given strategy.
func NewQuoter(s Strategy, submitter OrderSubmitter, depth DepthSource, interval time.Duration, levels int, logger *slog.Logger) *Quoter {
	if interval <= 0 {
		interval = time.Second
	}
	if levels <= 0 {
		levels = 10
	}
	return &Quoter{
		strategy:  s,
		submitter: submitter,
		depth:     depth,
		interval:  interval,
		levels:    levels,
		logger:    logger.With(slog.String("component", "quoter"), slog.String("strategy", s.Name())),
	}
}

// Run drives the strategy until ctx is cancelled, then withdraws any open
// quotes and closes the strategy.
func (q *Quoter) Run(ctx context.Context) error {
	if err := q.strategy.Init(ctx); err != nil {
		return err
	}
	q.logger.Info("quoter started", slog.Duration("interval", q.interval))

	ticker := time.NewTicker(q.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			q.withdraw(context.WithoutCancel(ctx))
			q.logger.Info("quoter stopped",
				slog.Int64("orders_sent", q.OrdersSent()),
				slog.Int64("errors", q.ErrorCount()))
			return q.strategy.Close()
		case <-ticker.C:
			q.requote(ctx)
		}
	}
}

// OnTrade forwards an execution to the strategy and submits whatever it
// proposes in response.
func (q *Quoter) OnTrade(ctx context.Context, trade domain.Trade) {
	orders, err := q.strategy.OnTrade(ctx, trade)
	if err != nil {
		q.fail("strategy trade handler", err)
		return
	}
	q.submit(ctx, orders)
}

// OnOrderUpdate forwards an order status change to the strategy and drops
// settled orders from the live quote set.
func (q *Quoter) OnOrderUpdate(ctx context.Context, orderID string, status domain.OrderStatus) {
	if status == domain.OrderStatusFilled || status == domain.OrderStatusCancelled {
		q.mu.Lock()
		q.open = remove(q.open, orderID)
		q.mu.Unlock()
	}
	if err := q.strategy.OnOrderUpdate(ctx, orderID, status); err != nil {
		q.fail("strategy order update handler", err)
	}
}

// OrdersSent returns the number of orders submitted so far.
func (q *Quoter) OrdersSent() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.ordersSent
}

// ErrorCount returns the number of strategy or submission failures so far.
func (q *Quoter) ErrorCount() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.errorCount
}

// LastOrderAt returns when the quoter last submitted an order, or the zero
// time when nothing has been submitted yet.
func (q *Quoter) LastOrderAt() time.Time {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lastOrderAt
}

func (q *Quoter) requote(ctx context.Context) {
	snap := q.depth.DepthSnapshot(q.levels)
	orders, err := q.strategy.OnDepth(ctx, snap)
	if err != nil {
		q.fail("strategy depth handler", err)
		return
	}
	if len(orders) == 0 {
		return
	}
	q.withdraw(ctx)
	q.submit(ctx, orders)
}

func (q *Quoter) submit(ctx context.Context, orders []domain.Order) {
	for _, order := range orders {
		if _, err := q.submitter.SubmitOrder(ctx, order); err != nil {
			q.fail("submit order", err)
			continue
		}
		q.mu.Lock()
		q.open = append(q.open, order.ID)
		q.ordersSent++
		q.lastOrderAt = time.Now().UTC()
		q.mu.Unlock()
	}
}

// withdraw cancels the live quote set. Cancels that report false are normal,
// the order was filled between requotes.
func (q *Quoter) withdraw(ctx context.Context) {
	q.mu.Lock()
	open := q.open
	q.open = nil
	q.mu.Unlock()

	for _, id := range open {
		if _, err := q.submitter.CancelOrder(ctx, id); err != nil {
			q.fail("cancel quote", err)
		}
	}
}

func (q *Quoter) fail(op string, err error) {
	q.mu.Lock()
	q.errorCount++
	q.mu.Unlock()
	q.logger.Error(op+" failed", slog.String("error", err.Error()))
}

func remove(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
