package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/driftline/matchcore/internal/book"
	"github.com/driftline/matchcore/internal/domain"
	"github.com/driftline/matchcore/internal/engine"
	"github.com/driftline/matchcore/internal/notify"
	"github.com/driftline/matchcore/internal/server"
	"github.com/driftline/matchcore/internal/server/handler"
	"github.com/driftline/matchcore/internal/server/ws"
	"github.com/driftline/matchcore/internal/service"
	"github.com/driftline/matchcore/internal/strategy"
)

// shutdownGrace is how long in-flight HTTP requests get to finish.
const shutdownGrace = 10 * time.Second

// EngineMode runs the exchange core: matching engine, persistence, the HTTP
// API, the WebSocket hub, and archival when enabled.
func (a *App) EngineMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting engine mode")

	g, ctx := errgroup.WithContext(ctx)
	svc := a.buildExchange(deps)
	a.startCore(ctx, g, deps, svc, nil)

	a.notifyStartup(ctx, deps, "engine")
	return a.wait(g)
}

// MakerMode runs the exchange core plus the market-making strategy quoting
// into its own book.
func (a *App) MakerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting maker mode",
		slog.String("strategy", a.cfg.Strategy.Name),
		slog.String("trader_id", a.cfg.Strategy.TraderID),
	)

	g, ctx := errgroup.WithContext(ctx)
	svc := a.buildExchange(deps)
	mk, err := a.buildMaker(svc)
	if err != nil {
		return err
	}
	a.startCore(ctx, g, deps, svc, mk)
	a.startMaker(ctx, g, deps, mk)

	a.notifyStartup(ctx, deps, "maker")
	return a.wait(g)
}

// FullMode runs everything: the exchange core, the market maker, and
// archival. It is the configuration used for single-node deployments.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	svc := a.buildExchange(deps)
	var mk *makerRuntime
	if a.cfg.Strategy.Enabled {
		var err error
		if mk, err = a.buildMaker(svc); err != nil {
			return err
		}
	}
	a.startCore(ctx, g, deps, svc, mk)
	if mk != nil {
		a.startMaker(ctx, g, deps, mk)
	}

	a.notifyStartup(ctx, deps, "full")
	return a.wait(g)
}

// buildExchange assembles the matching engine and the exchange service on
// top of the wired stores, cache, and bus.
func (a *App) buildExchange(deps *Dependencies) *service.ExchangeService {
	minPrice, maxPrice, minQty, maxQty := a.cfg.Engine.Bounds()
	validator := engine.NewValidator(engine.Bounds{
		MinPrice:    minPrice,
		MaxPrice:    maxPrice,
		MinQuantity: minQty,
		MaxQuantity: maxQty,
	})
	eng := engine.New(book.New(), validator)
	return service.NewExchangeService(eng, deps.TradeStore, deps.OrderEventStore,
		deps.BookCache, deps.SignalBus, a.logger)
}

// startCore launches the goroutines every mode shares: the service event
// drain, the WebSocket hub, the HTTP server, and the archive sweeper.
func (a *App) startCore(ctx context.Context, g *errgroup.Group, deps *Dependencies, svc *service.ExchangeService, mk *makerRuntime) {
	g.Go(func() error {
		return svc.Run(ctx)
	})

	var hub *ws.Hub
	if deps.SignalBus != nil {
		hub = ws.NewHub(deps.SignalBus, deps.BookCache, a.cfg.Engine.Instrument, a.logger)
		g.Go(func() error {
			return hub.Run(ctx)
		})
	}

	if a.cfg.Server.Enabled {
		handlers := server.Handlers{
			Health: handler.NewHealthHandler(svc, a.logger),
			Orders: handler.NewOrderHandler(svc, a.logger),
			Book:   handler.NewBookHandler(svc, a.logger),
			Trades: handler.NewTradeHandler(svc, a.logger),
		}
		if mk != nil {
			handlers.Positions = handler.NewPositionHandler(mk.positions, mk.capital, a.logger)
			handlers.Strategies = handler.NewStrategyHandler(mk.runtime, a.logger)
		}
		srv := server.NewServer(server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
			APIKey:      a.cfg.Server.APIKey,
			RateLimit:   a.cfg.Server.RatePerSecond,
		}, handlers, deps.RateLimiter, hub, a.logger)

		g.Go(srv.Start)
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if a.cfg.Archive.Enabled && deps.BlobWriter != nil {
		archiver := service.NewArchiveService(deps.TradeStore, deps.OrderEventStore,
			deps.BlobWriter, a.cfg.Archive.RetentionDays, a.cfg.Archive.Interval.Duration, a.logger)
		g.Go(func() error {
			return archiver.Run(ctx)
		})
	}
}

// makerRuntime holds the strategy components shared between the quoter
// goroutines and the positions endpoint.
type makerRuntime struct {
	quoter    *strategy.Quoter
	positions *strategy.PositionTracker
	capital   *strategy.CapitalManager
	runtime   *strategy.Runtime
}

// buildMaker assembles the configured strategy, its position and capital
// tracking, and the quoter that drives it against the exchange.
func (a *App) buildMaker(svc *service.ExchangeService) (*makerRuntime, error) {
	cfg := a.cfg.Strategy
	if cfg.TraderID == "" {
		return nil, fmt.Errorf("app: maker mode requires strategy.trader_id")
	}

	positions := strategy.NewPositionTracker(cfg.TraderID)
	capital := strategy.NewCapitalManager(decimal.NewFromFloat(cfg.Capital))
	quoterCfg := strategy.Config{
		Name:            cfg.Name,
		TraderID:        cfg.TraderID,
		QuoteSize:       decimal.NewFromFloat(cfg.QuoteSize),
		HalfSpread:      decimal.NewFromFloat(cfg.HalfSpread),
		SkewPerUnit:     decimal.NewFromFloat(cfg.SkewPerUnit),
		MaxPosition:     decimal.NewFromFloat(cfg.MaxPosition),
		RequoteInterval: int(cfg.RequoteInterval.Duration.Seconds()),
		Params:          cfg.Params,
	}
	reg := strategy.NewRegistry()
	maker := strategy.NewSpreadQuoter(quoterCfg, positions, capital, a.logger)
	reg.Register(maker.Name(), maker)

	strat, err := reg.Get(cfg.Name)
	if err != nil {
		return nil, fmt.Errorf("app: %w (available: %v)", err, reg.List())
	}
	quoter := strategy.NewQuoter(strat, svc, svc, cfg.RequoteInterval.Duration, cfg.DepthLevels, a.logger)

	return &makerRuntime{
		quoter:    quoter,
		positions: positions,
		capital:   capital,
		runtime:   strategy.NewRuntime(reg, cfg.Name, quoter),
	}, nil
}

// startMaker launches the market-making quoter and the bus feeder that
// forwards executions and order updates back to it.
func (a *App) startMaker(ctx context.Context, g *errgroup.Group, deps *Dependencies, mk *makerRuntime) {
	g.Go(func() error {
		return mk.quoter.Run(ctx)
	})
	g.Go(func() error {
		return a.feedQuoter(ctx, deps.SignalBus, mk.quoter)
	})
}

// tradeEventMsg mirrors the trade payload published on the signal bus.
type tradeEventMsg struct {
	ID        string          `json:"id"`
	Buyer     string          `json:"buyer"`
	Seller    string          `json:"seller"`
	Price     decimal.Decimal `json:"price"`
	Quantity  decimal.Decimal `json:"quantity"`
	Timestamp time.Time       `json:"timestamp"`
}

// orderUpdateMsg mirrors the order status payload published on the bus.
type orderUpdateMsg struct {
	OrderID string             `json:"order_id"`
	Status  domain.OrderStatus `json:"status"`
}

// feedQuoter subscribes to the trade and order channels and forwards events
// to the quoter so the strategy sees its own fills and cancellations.
func (a *App) feedQuoter(ctx context.Context, bus domain.SignalBus, quoter *strategy.Quoter) error {
	tradeCh, err := bus.Subscribe(ctx, service.TradeChannel)
	if err != nil {
		return fmt.Errorf("app: subscribe trades: %w", err)
	}
	orderCh, err := bus.Subscribe(ctx, service.OrderChannel)
	if err != nil {
		return fmt.Errorf("app: subscribe orders: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case data, ok := <-tradeCh:
			if !ok {
				return errors.New("app: trade channel closed")
			}
			var msg tradeEventMsg
			if err := json.Unmarshal(data, &msg); err != nil {
				a.logger.Warn("malformed trade event", slog.String("error", err.Error()))
				continue
			}
			trade, err := domain.NewTrade(msg.ID, msg.Buyer, msg.Seller, msg.Price, msg.Quantity, msg.Timestamp)
			if err != nil {
				a.logger.Warn("invalid trade event", slog.String("error", err.Error()))
				continue
			}
			quoter.OnTrade(ctx, trade)

		case data, ok := <-orderCh:
			if !ok {
				return errors.New("app: order channel closed")
			}
			var msg orderUpdateMsg
			if err := json.Unmarshal(data, &msg); err != nil {
				a.logger.Warn("malformed order event", slog.String("error", err.Error()))
				continue
			}
			quoter.OnOrderUpdate(ctx, msg.OrderID, msg.Status)
		}
	}
}

// notifyStartup announces the mode start on the configured alert channels.
func (a *App) notifyStartup(ctx context.Context, deps *Dependencies, mode string) {
	if deps.Notifier == nil {
		return
	}
	msg := fmt.Sprintf("matchcore started in %s mode (instrument %s)", mode, a.cfg.Engine.Instrument)
	if err := deps.Notifier.Notify(ctx, notify.EventStartup, "matchcore up", msg); err != nil {
		a.logger.Warn("startup notification failed", slog.String("error", err.Error()))
	}
}

// wait blocks on the errgroup and maps context cancellation to a clean exit.
func (a *App) wait(g *errgroup.Group) error {
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
