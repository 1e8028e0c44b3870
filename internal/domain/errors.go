package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidOrder   = errors.New("invalid order")
	ErrDuplicateOrder = errors.New("duplicate order id")
	ErrPriceMismatch  = errors.New("order price does not match level price")
	ErrSameSide       = errors.New("orders are on the same side")
	ErrBadQuantity    = errors.New("invalid trade quantity")
	// ErrNoPrice indicates a trade between two market orders. The book stores
	// limit orders only, so hitting this means a logic bug, not a runtime
	// condition; the match attempt is aborted.
	ErrNoPrice             = errors.New("cannot determine price for two market orders")
	ErrRateLimited         = errors.New("rate limited")
	ErrInsufficientCapital = errors.New("insufficient available capital")
)

// ValidationError is a business-rule rejection raised by the order validator
// before matching begins, carrying a human-readable bound description. It is
// distinct from the structural ErrInvalidOrder failures raised at
// construction.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "order validation failed: " + e.Reason
}
