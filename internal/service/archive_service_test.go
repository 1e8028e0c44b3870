package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftline/matchcore/internal/domain"
)

type memBlobWriter struct {
	objects map[string][]byte
	types   map[string]string
}

func newMemBlobWriter() *memBlobWriter {
	return &memBlobWriter{objects: make(map[string][]byte), types: make(map[string]string)}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (m *memBlobWriter) Put(_ context.Context, key string, data []byte, contentType string) error {
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

func archiveTrade(t *testing.T, id string, ts time.Time) domain.Trade {
	t.Helper()
	trade, err := domain.NewTrade(id, "alice", "bob",
		decimal.RequireFromString("100.00"), decimal.RequireFromString("1.00"), ts)
	require.NoError(t, err)
	return trade
}

func TestArchiveBeforeExportsAndDeletes(t *testing.T) {
	now := time.Now().UTC()
	old := now.Add(-40 * 24 * time.Hour)
	cutoff := now.Add(-30 * 24 * time.Hour)

	trades := &memTradeStore{}
	require.NoError(t, trades.InsertBatch(context.Background(), []domain.Trade{
		archiveTrade(t, "old-1", old),
		archiveTrade(t, "old-2", old.Add(time.Hour)),
		archiveTrade(t, "fresh", now.Add(-time.Hour)),
	}))

	events := &memEventStore{}
	require.NoError(t, events.Append(context.Background(), domain.OrderEvent{
		OrderID: "o1", TraderID: "alice", Status: domain.OrderStatusFilled, CreatedAt: old,
	}))
	require.NoError(t, events.Append(context.Background(), domain.OrderEvent{
		OrderID: "o2", TraderID: "bob", Status: domain.OrderStatusNew, CreatedAt: now,
	}))

	blobs := newMemBlobWriter()
	svc := NewArchiveService(trades, events, blobs, 30, time.Hour, testLogger())

	require.NoError(t, svc.ArchiveBefore(context.Background(), cutoff))

	// Two objects were written, one per table.
	require.Len(t, blobs.objects, 2)
	for key, ct := range blobs.types {
		assert.Equal(t, "application/json", ct, key)
	}

	tradeKey := archiveKey("trades", cutoff)
	var exported []archivedTrade
	require.NoError(t, json.Unmarshal(blobs.objects[tradeKey], &exported))
	require.Len(t, exported, 2)
	assert.Equal(t, "old-1", exported[0].ID)
	assert.Equal(t, "100", exported[0].Price)

	// Hot storage keeps only recent rows.
	remaining, err := trades.ListRecent(context.Background(), domain.ListOpts{Limit: 10})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "fresh", remaining[0].ID)

	left, err := events.ListByOrder(context.Background(), "o2")
	require.NoError(t, err)
	assert.Len(t, left, 1)
	gone, err := events.ListByOrder(context.Background(), "o1")
	require.NoError(t, err)
	assert.Empty(t, gone)
}

func TestArchiveBeforeSkipsUploadWhenEmpty(t *testing.T) {
	blobs := newMemBlobWriter()
	svc := NewArchiveService(&memTradeStore{}, &memEventStore{}, blobs, 30, time.Hour, testLogger())

	require.NoError(t, svc.ArchiveBefore(context.Background(), time.Now().UTC()))
	assert.Empty(t, blobs.objects)
}
