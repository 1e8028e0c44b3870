package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/driftline/matchcore/internal/domain"
)

// SpreadQuoter is a symmetric market-making strategy: it quotes one bid and
// one ask around the book mid, shifted against its own inventory so that a
// growing position prices its exit more aggressively.
type SpreadQuoter struct {
	cfg       Config
	positions *PositionTracker
	capital   *CapitalManager
	logger    *slog.Logger

	mu       sync.Mutex
	reserves map[string]decimal.Decimal // open bid reservations by order ID
}

// NewSpreadQuoter creates a spread quoter. The capital manager may be nil,
// in which case quotes are not capital-checked.
func NewSpreadQuoter(cfg Config, positions *PositionTracker, capital *CapitalManager, logger *slog.Logger) *SpreadQuoter {
	return &SpreadQuoter{
		cfg:       cfg,
		positions: positions,
		capital:   capital,
		logger:    logger.With(slog.String("strategy", "spread_quoter")),
		reserves:  make(map[string]decimal.Decimal),
	}
}

// Name returns the strategy identifier.
func (s *SpreadQuoter) Name() string { return "spread_quoter" }

// Init validates the configuration.
func (s *SpreadQuoter) Init(ctx context.Context) error {
	if s.cfg.TraderID == "" {
		return fmt.Errorf("spread quoter requires a trader id")
	}
	if s.cfg.QuoteSize.Sign() <= 0 {
		return fmt.Errorf("spread quoter requires a positive quote size, got %s", s.cfg.QuoteSize)
	}
	if s.cfg.HalfSpread.Sign() <= 0 {
		return fmt.Errorf("spread quoter requires a positive half spread, got %s", s.cfg.HalfSpread)
	}
	return nil
}

// OnDepth proposes a fresh bid/ask pair around the current mid. No quotes
// are produced on an empty book.
func (s *SpreadQuoter) OnDepth(ctx context.Context, snap domain.DepthSnapshot) ([]domain.Order, error) {
	mid, ok := midPrice(snap)
	if !ok {
		return nil, nil
	}

	net := s.positions.NetQuantity()
	skew := s.cfg.SkewPerUnit.Mul(net)
	bidPrice := mid.Sub(s.cfg.HalfSpread).Sub(skew).Round(domain.PriceScale)
	askPrice := mid.Add(s.cfg.HalfSpread).Sub(skew).Round(domain.PriceScale)

	var orders []domain.Order
	if s.wantSide(domain.SideBuy, net) && bidPrice.Sign() > 0 {
		if order, ok := s.buildQuote(domain.SideBuy, bidPrice); ok {
			orders = append(orders, order)
		}
	}
	if s.wantSide(domain.SideSell, net) {
		if order, ok := s.buildQuote(domain.SideSell, askPrice); ok {
			orders = append(orders, order)
		}
	}
	return orders, nil
}

// OnTrade folds own executions into the position tracker and settles the
// capital reservation for the filled side.
func (s *SpreadQuoter) OnTrade(ctx context.Context, trade domain.Trade) ([]domain.Order, error) {
	if trade.Buyer != s.cfg.TraderID && trade.Seller != s.cfg.TraderID {
		return nil, nil
	}

	before := s.positions.Snapshot().RealizedPnL
	s.positions.ApplyTrade(trade)
	after := s.positions.Snapshot().RealizedPnL

	if s.capital != nil {
		notional := trade.Notional()
		if trade.Buyer == s.cfg.TraderID {
			s.capital.SettleFill(notional, notional, after.Sub(before))
		} else {
			s.capital.SettleFill(decimal.Zero, notional.Neg(), after.Sub(before))
		}
	}

	s.logger.Debug("fill applied",
		slog.String("trade_id", trade.ID),
		slog.String("price", trade.Price.String()),
		slog.String("quantity", trade.Quantity.String()),
		slog.String("net_position", s.positions.NetQuantity().String()))
	return nil, nil
}

// OnOrderUpdate releases the capital reservation of a cancelled bid. Filled
// bids drop their entry without a release, the fill already settled it.
func (s *SpreadQuoter) OnOrderUpdate(ctx context.Context, orderID string, status domain.OrderStatus) error {
	if status != domain.OrderStatusCancelled && status != domain.OrderStatusFilled {
		return nil
	}
	s.mu.Lock()
	amount, ok := s.reserves[orderID]
	delete(s.reserves, orderID)
	s.mu.Unlock()
	if ok && s.capital != nil && status == domain.OrderStatusCancelled {
		s.capital.Release(amount)
	}
	return nil
}

// Close is a no-op; the quoter withdraws open orders on shutdown.
func (s *SpreadQuoter) Close() error { return nil }

func (s *SpreadQuoter) buildQuote(side domain.Side, price decimal.Decimal) (domain.Order, bool) {
	order, err := domain.NewOrder(uuid.NewString(), domain.OrderTypeLimit, side,
		price, s.cfg.QuoteSize, s.cfg.TraderID, time.Now().UTC())
	if err != nil {
		s.logger.Warn("quote rejected", slog.String("side", string(side)), slog.String("error", err.Error()))
		return domain.Order{}, false
	}
	if s.capital != nil && side == domain.SideBuy {
		notional := order.Value()
		if err := s.capital.Reserve(notional); err != nil {
			s.logger.Warn("quote skipped", slog.String("side", string(side)), slog.String("error", err.Error()))
			return domain.Order{}, false
		}
		s.mu.Lock()
		s.reserves[order.ID] = notional
		s.mu.Unlock()
	}
	return order, true
}

// wantSide enforces the inventory cap: a maxed long stops bidding, a maxed
// short stops offering.
func (s *SpreadQuoter) wantSide(side domain.Side, net decimal.Decimal) bool {
	if s.cfg.MaxPosition.Sign() <= 0 {
		return true
	}
	if side == domain.SideBuy {
		return net.LessThan(s.cfg.MaxPosition)
	}
	return net.GreaterThan(s.cfg.MaxPosition.Neg())
}

func midPrice(snap domain.DepthSnapshot) (decimal.Decimal, bool) {
	switch {
	case snap.BestBid != nil && snap.BestAsk != nil:
		return snap.BestBid.Add(*snap.BestAsk).Div(decimal.NewFromInt(2)), true
	case snap.BestBid != nil:
		return *snap.BestBid, true
	case snap.BestAsk != nil:
		return *snap.BestAsk, true
	default:
		return decimal.Zero, false
	}
}
