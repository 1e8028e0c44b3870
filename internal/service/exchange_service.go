// Package service wires the matching engine to durable storage and event
// distribution.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/driftline/matchcore/internal/domain"
	"github.com/driftline/matchcore/internal/engine"
)

// Bus channel and stream names used for event distribution.
const (
	TradeChannel  = "events:trades"
	OrderChannel  = "events:orders"
	TradeStream   = "stream:trades"
	depthTopN     = 20
	eventQueueLen = 1024
)

// orderEventMsg is the wire form of an order status change.
type orderEventMsg struct {
	OrderID   string             `json:"order_id"`
	TraderID  string             `json:"trader_id"`
	Status    domain.OrderStatus `json:"status"`
	Timestamp time.Time          `json:"timestamp"`
}

// tradeMsg is the wire form of an execution.
type tradeMsg struct {
	ID        string          `json:"id"`
	Buyer     string          `json:"buyer"`
	Seller    string          `json:"seller"`
	Price     decimal.Decimal `json:"price"`
	Quantity  decimal.Decimal `json:"quantity"`
	Timestamp time.Time       `json:"timestamp"`
}

// ExchangeService is the mutation path of the exchange: it runs orders
// through the matching engine, persists the resulting trades and order
// events, refreshes the depth cache, and fans events out on the signal bus.
// Stores, cache, and bus are all optional; a nil dependency disables that
// concern, which keeps the core usable in-process and in tests.
type ExchangeService struct {
	engine *engine.Engine
	trades domain.TradeStore
	events domain.OrderEventStore
	cache  domain.BookCache
	bus    domain.SignalBus
	logger *slog.Logger

	queue chan orderEventMsg
}

// NewExchangeService creates the service and registers its listener with the
// engine. Call Run to start the background event drain before submitting
// orders when stores or the bus are configured.
func NewExchangeService(
	eng *engine.Engine,
	trades domain.TradeStore,
	events domain.OrderEventStore,
	cache domain.BookCache,
	bus domain.SignalBus,
	logger *slog.Logger,
) *ExchangeService {
	s := &ExchangeService{
		engine: eng,
		trades: trades,
		events: events,
		cache:  cache,
		bus:    bus,
		logger: logger.With(slog.String("component", "exchange_service")),
		queue:  make(chan orderEventMsg, eventQueueLen),
	}
	eng.SetEventListener(s.onPassiveEvent)
	return s
}

// Run drains the order-event queue until ctx is cancelled. Events are
// persisted and published outside the engine lock so matching latency never
// pays for I/O.
func (s *ExchangeService) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-s.queue:
			s.persistAndPublishEvent(context.WithoutCancel(ctx), msg)
		}
	}
}

// SubmitOrder validates and matches an order, then records everything that
// happened: trades to the store and stream, status changes to the event log,
// and a fresh depth snapshot to the cache.
func (s *ExchangeService) SubmitOrder(ctx context.Context, order domain.Order) (domain.MatchResult, error) {
	result, err := s.engine.ProcessOrder(order)
	if err != nil {
		s.logger.Warn("order rejected",
			slog.String("order_id", order.ID),
			slog.String("trader_id", order.TraderID),
			slog.String("error", err.Error()))
		return domain.MatchResult{}, err
	}

	s.logger.Info("order processed",
		slog.String("order_id", order.ID),
		slog.String("trader_id", order.TraderID),
		slog.String("side", string(order.Side)),
		slog.String("status", string(result.FinalStatus)),
		slog.Int("trades", len(result.Trades)),
		slog.String("filled", result.FilledQuantity.String()))

	s.recordTrades(ctx, result.Trades)
	s.enqueue(orderEventMsg{
		OrderID:   order.ID,
		TraderID:  order.TraderID,
		Status:    result.FinalStatus,
		Timestamp: time.Now().UTC(),
	})
	s.refreshDepth(ctx)

	return result, nil
}

// CancelOrder withdraws a resting order. The bool mirrors the engine: false
// when no resting order carries the ID.
func (s *ExchangeService) CancelOrder(ctx context.Context, orderID string) (bool, error) {
	ok := s.engine.CancelOrder(orderID)
	if !ok {
		return false, nil
	}

	s.logger.Info("order cancelled", slog.String("order_id", orderID))
	s.enqueue(orderEventMsg{
		OrderID:   orderID,
		Status:    domain.OrderStatusCancelled,
		Timestamp: time.Now().UTC(),
	})
	s.refreshDepth(ctx)
	return true, nil
}

// OrderStatus reports the engine's tracked status for an order ID.
func (s *ExchangeService) OrderStatus(orderID string) domain.OrderStatus {
	return s.engine.OrderStatus(orderID)
}

// TradedVolume reports the cumulative executed notional for a trader.
func (s *ExchangeService) TradedVolume(traderID string) decimal.Decimal {
	return s.engine.TradedVolume(traderID)
}

// DepthSnapshot returns the current book depth, capped at levels per side.
// Strategies quote against this live view.
func (s *ExchangeService) DepthSnapshot(levels int) domain.DepthSnapshot {
	return s.engine.Book().DepthSnapshot(levels)
}

// DisplayDepth returns the book depth for display paths. It serves the
// cached snapshot, refreshed after each mutation, and falls back to the
// live book when the cache misses, fails, or cannot cover the requested
// number of levels.
func (s *ExchangeService) DisplayDepth(ctx context.Context, levels int) domain.DepthSnapshot {
	if s.cache == nil || levels > depthTopN {
		return s.engine.Book().DepthSnapshot(levels)
	}

	snap, err := s.cache.GetDepth(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("depth cache read failed", slog.String("error", err.Error()))
		}
		return s.engine.Book().DepthSnapshot(levels)
	}

	if len(snap.Bids) > levels {
		snap.Bids = snap.Bids[:levels]
	}
	if len(snap.Asks) > levels {
		snap.Asks = snap.Asks[:levels]
	}
	return snap
}

// RecentTrades lists persisted trades, newest first. Without a trade store
// it falls back to the durable trade stream on the bus, best effort.
func (s *ExchangeService) RecentTrades(ctx context.Context, opts domain.ListOpts) ([]domain.Trade, error) {
	if s.trades != nil {
		return s.trades.ListRecent(ctx, opts)
	}
	if s.bus == nil {
		return nil, nil
	}
	return s.tradesFromStream(ctx, opts.Limit)
}

// tradesFromStream replays the trade stream and returns the newest entries.
func (s *ExchangeService) tradesFromStream(ctx context.Context, limit int) ([]domain.Trade, error) {
	msgs, err := s.bus.StreamRead(ctx, TradeStream, "0", 0)
	if err != nil {
		return nil, err
	}

	var out []domain.Trade
	for i := len(msgs) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		var m tradeMsg
		if err := json.Unmarshal(msgs[i].Payload, &m); err != nil {
			s.logger.Warn("malformed stream trade", slog.String("stream_id", msgs[i].ID))
			continue
		}
		t, err := domain.NewTrade(m.ID, m.Buyer, m.Seller, m.Price, m.Quantity, m.Timestamp)
		if err != nil {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// TraderTrades lists persisted trades where the trader took either side.
func (s *ExchangeService) TraderTrades(ctx context.Context, traderID string, opts domain.ListOpts) ([]domain.Trade, error) {
	if s.trades == nil {
		return nil, nil
	}
	return s.trades.ListByTrader(ctx, traderID, opts)
}

// OrderHistory lists the recorded lifecycle of one order.
func (s *ExchangeService) OrderHistory(ctx context.Context, orderID string) ([]domain.OrderEvent, error) {
	if s.events == nil {
		return nil, nil
	}
	return s.events.ListByOrder(ctx, orderID)
}

// onPassiveEvent runs under the engine lock; it must only hand off.
func (s *ExchangeService) onPassiveEvent(orderID, traderID string, status domain.OrderStatus) {
	s.enqueue(orderEventMsg{
		OrderID:   orderID,
		TraderID:  traderID,
		Status:    status,
		Timestamp: time.Now().UTC(),
	})
}

func (s *ExchangeService) enqueue(msg orderEventMsg) {
	select {
	case s.queue <- msg:
	default:
		s.logger.Warn("order event queue full, dropping event",
			slog.String("order_id", msg.OrderID),
			slog.String("status", string(msg.Status)))
	}
}

func (s *ExchangeService) recordTrades(ctx context.Context, trades []domain.Trade) {
	if len(trades) == 0 {
		return
	}

	if s.trades != nil {
		if err := s.trades.InsertBatch(ctx, trades); err != nil {
			s.logger.Error("persist trades failed",
				slog.Int("count", len(trades)),
				slog.String("error", err.Error()))
		}
	}

	if s.bus == nil {
		return
	}
	for _, t := range trades {
		payload, err := json.Marshal(tradeMsg{
			ID: t.ID, Buyer: t.Buyer, Seller: t.Seller,
			Price: t.Price, Quantity: t.Quantity, Timestamp: t.Timestamp,
		})
		if err != nil {
			s.logger.Error("encode trade failed", slog.String("trade_id", t.ID), slog.String("error", err.Error()))
			continue
		}
		if err := s.bus.Publish(ctx, TradeChannel, payload); err != nil {
			s.logger.Error("publish trade failed", slog.String("trade_id", t.ID), slog.String("error", err.Error()))
		}
		if err := s.bus.StreamAppend(ctx, TradeStream, payload); err != nil {
			s.logger.Error("stream trade failed", slog.String("trade_id", t.ID), slog.String("error", err.Error()))
		}
	}
}

func (s *ExchangeService) persistAndPublishEvent(ctx context.Context, msg orderEventMsg) {
	if s.events != nil {
		event := domain.OrderEvent{
			OrderID:   msg.OrderID,
			TraderID:  msg.TraderID,
			Status:    msg.Status,
			CreatedAt: msg.Timestamp,
		}
		if err := s.events.Append(ctx, event); err != nil {
			s.logger.Error("persist order event failed",
				slog.String("order_id", msg.OrderID),
				slog.String("error", err.Error()))
		}
	}

	if s.bus != nil {
		payload, err := json.Marshal(msg)
		if err != nil {
			s.logger.Error("encode order event failed", slog.String("order_id", msg.OrderID), slog.String("error", err.Error()))
			return
		}
		if err := s.bus.Publish(ctx, OrderChannel, payload); err != nil {
			s.logger.Error("publish order event failed", slog.String("order_id", msg.OrderID), slog.String("error", err.Error()))
		}
	}
}

func (s *ExchangeService) refreshDepth(ctx context.Context) {
	if s.cache == nil {
		return
	}
	snap := s.engine.Book().DepthSnapshot(depthTopN)
	if err := s.cache.SetDepth(ctx, snap); err != nil {
		s.logger.Error("refresh depth cache failed", slog.String("error", err.Error()))
	}
}

// Healthy reports whether the service considers itself operational. It is
// used by the HTTP health endpoint.
func (s *ExchangeService) Healthy() bool {
	return s.engine != nil
}
