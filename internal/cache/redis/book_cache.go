package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/driftline/matchcore/internal/domain"
)

// depthTTL bounds how long a stale snapshot can be served after the engine
// stops refreshing it.
const depthTTL = 30 * time.Second

// BookCache implements domain.BookCache for one instrument.
//
// Key schema:
//
//	book:{instrument}:depth - JSON-encoded depth snapshot
//	book:{instrument}:bbo   - hash with fields "bid" and "ask"
type BookCache struct {
	rdb        *redis.Client
	instrument string
}

// NewBookCache creates a BookCache backed by the given Client.
func NewBookCache(c *Client, instrument string) *BookCache {
	return &BookCache{rdb: c.Underlying(), instrument: instrument}
}

func (bc *BookCache) depthKey() string { return "book:" + bc.instrument + ":depth" }
func (bc *BookCache) bboKey() string   { return "book:" + bc.instrument + ":bbo" }

// SetDepth stores the snapshot and its best-of-book summary atomically.
func (bc *BookCache) SetDepth(ctx context.Context, snap domain.DepthSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: encode depth snapshot: %w", err)
	}

	bbo := map[string]string{"bid": "", "ask": ""}
	if snap.BestBid != nil {
		bbo["bid"] = snap.BestBid.String()
	}
	if snap.BestAsk != nil {
		bbo["ask"] = snap.BestAsk.String()
	}

	pipe := bc.rdb.TxPipeline()
	pipe.Set(ctx, bc.depthKey(), data, depthTTL)
	pipe.HSet(ctx, bc.bboKey(), bbo)
	pipe.Expire(ctx, bc.bboKey(), depthTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set depth for %s: %w", bc.instrument, err)
	}
	return nil
}

// GetDepth returns the latest stored snapshot. A missing key yields
// domain.ErrNotFound.
func (bc *BookCache) GetDepth(ctx context.Context) (domain.DepthSnapshot, error) {
	data, err := bc.rdb.Get(ctx, bc.depthKey()).Bytes()
	if err != nil {
		if err == redis.Nil {
			return domain.DepthSnapshot{}, domain.ErrNotFound
		}
		return domain.DepthSnapshot{}, fmt.Errorf("redis: get depth for %s: %w", bc.instrument, err)
	}

	var snap domain.DepthSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.DepthSnapshot{}, fmt.Errorf("redis: decode depth snapshot: %w", err)
	}
	return snap, nil
}

// GetBBO returns the best bid and ask as decimal strings; either may be
// empty when the side has no liquidity.
func (bc *BookCache) GetBBO(ctx context.Context) (string, string, error) {
	vals, err := bc.rdb.HGetAll(ctx, bc.bboKey()).Result()
	if err != nil {
		return "", "", fmt.Errorf("redis: get bbo for %s: %w", bc.instrument, err)
	}
	if len(vals) == 0 {
		return "", "", domain.ErrNotFound
	}
	return vals["bid"], vals["ask"], nil
}

// Compile-time interface check.
var _ domain.BookCache = (*BookCache)(nil)
