package book

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/driftline/matchcore/internal/domain"
)

// bookSide keeps price levels sorted best-first: descending for bids,
// ascending for asks.
type bookSide struct {
	levels     []*PriceLevel
	descending bool
}

// search returns the slice position where price belongs in priority order,
// and whether a level with that exact price already exists there.
func (s *bookSide) search(price decimal.Decimal) (int, bool) {
	i := sort.Search(len(s.levels), func(i int) bool {
		if s.descending {
			return s.levels[i].Price().LessThanOrEqual(price)
		}
		return s.levels[i].Price().GreaterThanOrEqual(price)
	})
	found := i < len(s.levels) && s.levels[i].Price().Equal(price)
	return i, found
}

// upsert returns the level at price, creating and inserting it when absent.
func (s *bookSide) upsert(price decimal.Decimal) *PriceLevel {
	i, found := s.search(price)
	if found {
		return s.levels[i]
	}
	lvl := NewPriceLevel(price)
	s.levels = append(s.levels, nil)
	copy(s.levels[i+1:], s.levels[i:])
	s.levels[i] = lvl
	return lvl
}

// remove deletes the level with the given price, if present.
func (s *bookSide) remove(price decimal.Decimal) {
	if i, found := s.search(price); found {
		s.levels = append(s.levels[:i], s.levels[i+1:]...)
	}
}

// find returns the level at price, or nil.
func (s *bookSide) find(price decimal.Decimal) *PriceLevel {
	if i, found := s.search(price); found {
		return s.levels[i]
	}
	return nil
}

// best returns the highest-priority level, or nil when the side is empty.
func (s *bookSide) best() *PriceLevel {
	if len(s.levels) == 0 {
		return nil
	}
	return s.levels[0]
}

// indexEntry is the non-owning back-reference from an order ID to its
// current value and home level.
type indexEntry struct {
	order domain.Order
	level *PriceLevel
}

// Book is the live order book for a single instrument. All mutating calls
// are expected to be linearized by the matching engine; the internal lock
// additionally keeps read-only queries safe while a mutation is in flight
// (readers observe a consistent prior state).
type Book struct {
	mu    sync.RWMutex
	bids  bookSide
	asks  bookSide
	index map[string]indexEntry
}

// New creates an empty order book.
func New() *Book {
	return &Book{
		bids:  bookSide{descending: true},
		asks:  bookSide{},
		index: make(map[string]indexEntry),
	}
}

// AddOrder inserts a limit order at its price level in FIFO position and
// records it in the index. Duplicate IDs are rejected: silently overwriting
// an ID would corrupt the index. Market orders never enter the book.
func (b *Book) AddOrder(order domain.Order) error {
	if order.ID == "" {
		return fmt.Errorf("%w: blank order ID", domain.ErrInvalidOrder)
	}
	if order.Quantity.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: quantity must be positive", domain.ErrInvalidOrder)
	}
	if !order.IsLimit() {
		return fmt.Errorf("%w: only limit orders can rest in the book", domain.ErrInvalidOrder)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.index[order.ID]; exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateOrder, order.ID)
	}

	side := b.sideFor(order.Side)
	lvl := side.upsert(order.Price)
	if err := lvl.AddOrder(order); err != nil {
		if lvl.IsEmpty() {
			side.remove(order.Price)
		}
		return err
	}
	b.index[order.ID] = indexEntry{order: order, level: lvl}
	return nil
}

// RemoveOrder removes an order by ID, dropping its level when it becomes
// empty. Unknown IDs are a no-op; the call is idempotent.
func (b *Book) RemoveOrder(orderID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(orderID)
}

func (b *Book) removeLocked(orderID string) {
	entry, ok := b.index[orderID]
	if !ok {
		return
	}
	entry.level.RemoveOrder(orderID)
	if entry.level.IsEmpty() {
		b.sideFor(entry.order.Side).remove(entry.level.Price())
	}
	delete(b.index, orderID)
}

// ReplaceOrder swaps a resting order for a same-ID, same-price version with
// reduced quantity. The replacement keeps its FIFO position so time priority
// survives a partial fill. Falls back to remove+add when the order is not
// resting or the price differs.
func (b *Book) ReplaceOrder(orderID string, replacement domain.Order) error {
	b.mu.Lock()
	entry, ok := b.index[orderID]
	if ok && entry.level.ReplaceOrder(orderID, replacement) {
		b.index[orderID] = indexEntry{order: replacement, level: entry.level}
		b.mu.Unlock()
		return nil
	}
	b.removeLocked(orderID)
	b.mu.Unlock()
	return b.AddOrder(replacement)
}

// GetOrder returns the current resting version of an order by ID.
func (b *Book) GetOrder(orderID string) (domain.Order, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	entry, ok := b.index[orderID]
	return entry.order, ok
}

// BestBid returns the highest bid price, if any bids exist.
func (b *Book) BestBid() (decimal.Decimal, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if lvl := b.bids.best(); lvl != nil {
		return lvl.Price(), true
	}
	return decimal.Decimal{}, false
}

// BestAsk returns the lowest ask price, if any asks exist.
func (b *Book) BestAsk() (decimal.Decimal, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if lvl := b.asks.best(); lvl != nil {
		return lvl.Price(), true
	}
	return decimal.Decimal{}, false
}

// Spread returns bestAsk - bestBid when both sides are populated.
func (b *Book) Spread() (decimal.Decimal, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	bid, ask := b.bids.best(), b.asks.best()
	if bid == nil || ask == nil {
		return decimal.Decimal{}, false
	}
	return ask.Price().Sub(bid.Price()), true
}

// OrdersAtPrice returns a snapshot of the orders resting at the given price
// on the given side, in time priority. Empty when no such level exists.
func (b *Book) OrdersAtPrice(side domain.Side, price decimal.Decimal) []domain.Order {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if lvl := b.sideFor(side).find(price); lvl != nil {
		return lvl.Orders()
	}
	return nil
}

// QuantityAtPrice returns the total resting quantity at the given price, or
// zero when no such level exists.
func (b *Book) QuantityAtPrice(side domain.Side, price decimal.Decimal) decimal.Decimal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if lvl := b.sideFor(side).find(price); lvl != nil {
		return lvl.TotalQuantity()
	}
	return decimal.Zero
}

// PriceLevelCount returns the number of distinct price levels on a side.
func (b *Book) PriceLevelCount(side domain.Side) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.sideFor(side).levels)
}

// TopPriceLevels returns aggregated views of the first n levels on a side in
// priority order. Empty when n <= 0.
func (b *Book) TopPriceLevels(side domain.Side, n int) []domain.DepthLevel {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if n <= 0 {
		return nil
	}
	levels := b.sideFor(side).levels
	if n > len(levels) {
		n = len(levels)
	}
	out := make([]domain.DepthLevel, 0, n)
	for _, lvl := range levels[:n] {
		out = append(out, lvl.Summary())
	}
	return out
}

// MarketDepth returns the number of resting orders across the top n levels
// of a side; n <= 0 means all levels.
func (b *Book) MarketDepth(side domain.Side, n int) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	levels := b.sideFor(side).levels
	if n <= 0 || n > len(levels) {
		n = len(levels)
	}
	depth := 0
	for _, lvl := range levels[:n] {
		depth += lvl.OrderCount()
	}
	return depth
}

// TotalOrderCount returns the number of resting orders on both sides.
func (b *Book) TotalOrderCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.index)
}

// IsEmpty reports whether the book holds no orders at all.
func (b *Book) IsEmpty() bool {
	return b.TotalOrderCount() == 0
}

// Clear resets the book to empty.
func (b *Book) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bids.levels = nil
	b.asks.levels = nil
	b.index = make(map[string]indexEntry)
}

// DepthSnapshot builds the display view of the top n levels of both sides.
func (b *Book) DepthSnapshot(n int) domain.DepthSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	snap := domain.DepthSnapshot{Timestamp: time.Now().UTC()}

	take := func(s *bookSide) []domain.DepthLevel {
		limit := n
		if limit <= 0 || limit > len(s.levels) {
			limit = len(s.levels)
		}
		out := make([]domain.DepthLevel, 0, limit)
		for _, lvl := range s.levels[:limit] {
			out = append(out, lvl.Summary())
		}
		return out
	}
	snap.Bids = take(&b.bids)
	snap.Asks = take(&b.asks)

	if lvl := b.bids.best(); lvl != nil {
		p := lvl.Price()
		snap.BestBid = &p
	}
	if lvl := b.asks.best(); lvl != nil {
		p := lvl.Price()
		snap.BestAsk = &p
	}
	if snap.BestBid != nil && snap.BestAsk != nil {
		spread := snap.BestAsk.Sub(*snap.BestBid)
		snap.Spread = &spread
	}
	return snap
}

func (b *Book) sideFor(s domain.Side) *bookSide {
	if s == domain.SideBuy {
		return &b.bids
	}
	return &b.asks
}
