package domain

import (
	"context"
	"time"
)

// BookCache stores the latest depth snapshot for display/analytics paths.
type BookCache interface {
	SetDepth(ctx context.Context, snap DepthSnapshot) error
	GetDepth(ctx context.Context) (DepthSnapshot, error)
	GetBBO(ctx context.Context) (bestBid, bestAsk string, err error)
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// StreamMessage is a single entry read from a durable stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus provides pub/sub for ephemeral events and durable ordered
// streams for trade history consumers.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}
