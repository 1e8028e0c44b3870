package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/driftline/matchcore/internal/domain"
)

// OrderEventStore implements domain.OrderEventStore using PostgreSQL.
type OrderEventStore struct {
	pool *pgxpool.Pool
}

// NewOrderEventStore creates a new OrderEventStore backed by the given pool.
func NewOrderEventStore(pool *pgxpool.Pool) *OrderEventStore {
	return &OrderEventStore{pool: pool}
}

// Append records one order status transition.
func (s *OrderEventStore) Append(ctx context.Context, event domain.OrderEvent) error {
	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO order_events (order_id, trader_id, status, created_at)
		 VALUES ($1, $2, $3, $4)`,
		event.OrderID, event.TraderID, string(event.Status), createdAt)
	if err != nil {
		return fmt.Errorf("postgres: append order event for %s: %w", event.OrderID, err)
	}
	return nil
}

// ListByOrder returns the lifecycle history for one order in insertion order.
func (s *OrderEventStore) ListByOrder(ctx context.Context, orderID string) ([]domain.OrderEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, order_id, trader_id, status, created_at
		 FROM order_events WHERE order_id = $1 ORDER BY id ASC`,
		orderID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list order events for %s: %w", orderID, err)
	}
	defer rows.Close()
	return scanOrderEventRows(rows)
}

// ListBefore returns all events recorded before the cutoff, oldest first.
func (s *OrderEventStore) ListBefore(ctx context.Context, before time.Time) ([]domain.OrderEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, order_id, trader_id, status, created_at
		 FROM order_events WHERE created_at < $1 ORDER BY id ASC`,
		before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list order events before %s: %w", before, err)
	}
	defer rows.Close()
	return scanOrderEventRows(rows)
}

// DeleteBefore removes events recorded before the cutoff.
func (s *OrderEventStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM order_events WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete order events before %s: %w", before, err)
	}
	return tag.RowsAffected(), nil
}

func scanOrderEventRows(rows pgx.Rows) ([]domain.OrderEvent, error) {
	var events []domain.OrderEvent
	for rows.Next() {
		var (
			e      domain.OrderEvent
			status string
		)
		if err := rows.Scan(&e.ID, &e.OrderID, &e.TraderID, &status, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Status = domain.OrderStatus(status)
		events = append(events, e)
	}
	return events, rows.Err()
}
