package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/driftline/matchcore/internal/domain"
)

// ArchiveService exports aged trades and order events to blob storage and
// then deletes them from hot storage. Objects are written as JSON under
// trades/<date>.json and order_events/<date>.json keys.
type ArchiveService struct {
	trades    domain.TradeStore
	events    domain.OrderEventStore
	blobs     domain.BlobWriter
	logger    *slog.Logger
	retention time.Duration
	interval  time.Duration
}

// NewArchiveService creates an ArchiveService. retentionDays controls how
// much history stays in Postgres; interval is the sweep period for Run.
func NewArchiveService(trades domain.TradeStore, events domain.OrderEventStore, blobs domain.BlobWriter,
	retentionDays int, interval time.Duration, logger *slog.Logger) *ArchiveService {
	return &ArchiveService{
		trades:    trades,
		events:    events,
		blobs:     blobs,
		logger:    logger.With(slog.String("component", "archiver")),
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		interval:  interval,
	}
}

// Run sweeps on the configured interval until the context is cancelled. One
// sweep runs immediately on start so restarts do not delay overdue archival.
func (s *ArchiveService) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		cutoff := time.Now().UTC().Add(-s.retention)
		if err := s.ArchiveBefore(ctx, cutoff); err != nil {
			s.logger.Error("archive sweep failed", slog.String("error", err.Error()))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// archivedTrade is the JSON shape of one trade in an archive object.
type archivedTrade struct {
	ID         string    `json:"id"`
	Buyer      string    `json:"buyer"`
	Seller     string    `json:"seller"`
	Price      string    `json:"price"`
	Quantity   string    `json:"quantity"`
	ExecutedAt time.Time `json:"executed_at"`
}

// archivedEvent is the JSON shape of one order event in an archive object.
type archivedEvent struct {
	OrderID   string    `json:"order_id"`
	TraderID  string    `json:"trader_id,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// ArchiveBefore exports all trades and order events older than the cutoff
// and deletes them from hot storage. The upload happens before the delete,
// so a failure between the two leaves duplicate history rather than a gap.
func (s *ArchiveService) ArchiveBefore(ctx context.Context, before time.Time) error {
	if err := s.archiveTrades(ctx, before); err != nil {
		return err
	}
	return s.archiveEvents(ctx, before)
}

func (s *ArchiveService) archiveTrades(ctx context.Context, before time.Time) error {
	trades, err := s.trades.ListBefore(ctx, before)
	if err != nil {
		return fmt.Errorf("archive: list trades: %w", err)
	}
	if len(trades) == 0 {
		return nil
	}

	records := make([]archivedTrade, 0, len(trades))
	for _, t := range trades {
		records = append(records, archivedTrade{
			ID:         t.ID,
			Buyer:      t.Buyer,
			Seller:     t.Seller,
			Price:      t.Price.String(),
			Quantity:   t.Quantity.String(),
			ExecutedAt: t.Timestamp,
		})
	}

	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("archive: marshal trades: %w", err)
	}

	key := archiveKey("trades", before)
	if err := s.blobs.Put(ctx, key, data, "application/json"); err != nil {
		return fmt.Errorf("archive: upload trades: %w", err)
	}

	deleted, err := s.trades.DeleteBefore(ctx, before)
	if err != nil {
		return fmt.Errorf("archive: delete trades: %w", err)
	}

	s.logger.Info("archived trades",
		slog.String("key", key),
		slog.Int("exported", len(records)),
		slog.Int64("deleted", deleted))
	return nil
}

func (s *ArchiveService) archiveEvents(ctx context.Context, before time.Time) error {
	events, err := s.events.ListBefore(ctx, before)
	if err != nil {
		return fmt.Errorf("archive: list order events: %w", err)
	}
	if len(events) == 0 {
		return nil
	}

	records := make([]archivedEvent, 0, len(events))
	for _, e := range events {
		records = append(records, archivedEvent{
			OrderID:   e.OrderID,
			TraderID:  e.TraderID,
			Status:    string(e.Status),
			CreatedAt: e.CreatedAt,
		})
	}

	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("archive: marshal order events: %w", err)
	}

	key := archiveKey("order_events", before)
	if err := s.blobs.Put(ctx, key, data, "application/json"); err != nil {
		return fmt.Errorf("archive: upload order events: %w", err)
	}

	deleted, err := s.events.DeleteBefore(ctx, before)
	if err != nil {
		return fmt.Errorf("archive: delete order events: %w", err)
	}

	s.logger.Info("archived order events",
		slog.String("key", key),
		slog.Int("exported", len(records)),
		slog.Int64("deleted", deleted))
	return nil
}

// archiveKey builds the object key for one export, e.g.
// trades/2026-08-29T06:00:00Z.json.
func archiveKey(prefix string, before time.Time) string {
	return fmt.Sprintf("%s/%s.json", prefix, before.UTC().Format(time.RFC3339))
}
