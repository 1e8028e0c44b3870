package strategy

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/driftline/matchcore/internal/domain"
)

// Strategy defines the contract for trading strategies driven by market
// events. Returned orders are intents the caller submits to the engine;
// strategies never touch the book directly.
type Strategy interface {
	Name() string
	Init(ctx context.Context) error
	OnDepth(ctx context.Context, snap domain.DepthSnapshot) ([]domain.Order, error)
	OnTrade(ctx context.Context, trade domain.Trade) ([]domain.Order, error)
	OnOrderUpdate(ctx context.Context, orderID string, status domain.OrderStatus) error
	Close() error
}

// Config holds strategy configuration.
type Config struct {
	Name            string
	TraderID        string
	QuoteSize       decimal.Decimal
	HalfSpread      decimal.Decimal // absolute price offset from mid per side
	SkewPerUnit     decimal.Decimal // price shift applied per unit of inventory
	MaxPosition     decimal.Decimal // absolute net inventory cap; zero means unlimited
	RequoteInterval int             // seconds between forced requotes
	Params          map[string]any
}
