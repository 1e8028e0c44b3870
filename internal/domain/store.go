package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and time filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// TradeStore persists the append-only trade record.
type TradeStore interface {
	InsertBatch(ctx context.Context, trades []Trade) error
	ListRecent(ctx context.Context, opts ListOpts) ([]Trade, error)
	ListByTrader(ctx context.Context, traderID string, opts ListOpts) ([]Trade, error)
	ListBefore(ctx context.Context, before time.Time) ([]Trade, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// OrderEvent is one order lifecycle transition as observed by the engine.
type OrderEvent struct {
	ID        int64
	OrderID   string
	TraderID  string
	Status    OrderStatus
	CreatedAt time.Time
}

// OrderEventStore persists order status transitions.
type OrderEventStore interface {
	Append(ctx context.Context, event OrderEvent) error
	ListByOrder(ctx context.Context, orderID string) ([]OrderEvent, error)
	ListBefore(ctx context.Context, before time.Time) ([]OrderEvent, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// BlobWriter writes an object to blob storage.
type BlobWriter interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// Archiver exports aged history out of hot storage.
type Archiver interface {
	ArchiveBefore(ctx context.Context, before time.Time) error
}
