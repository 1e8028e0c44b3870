// Package engine implements the price-time-priority matching engine: order
// validation, trade generation, and the matching loop over the book.
package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/driftline/matchcore/internal/domain"
)

// Bounds are the business-rule limits applied to every incoming order on top
// of the structural checks done at construction.
type Bounds struct {
	MinPrice    decimal.Decimal
	MaxPrice    decimal.Decimal
	MinQuantity decimal.Decimal
	MaxQuantity decimal.Decimal
}

// DefaultBounds returns the standard trading limits: one cent to one million
// for both price and quantity.
func DefaultBounds() Bounds {
	return Bounds{
		MinPrice:    decimal.RequireFromString("0.01"),
		MaxPrice:    decimal.RequireFromString("1000000.00"),
		MinQuantity: decimal.RequireFromString("0.01"),
		MaxQuantity: decimal.RequireFromString("1000000.00"),
	}
}

// Validator applies stateless business-rule checks to orders before and
// during matching.
type Validator struct {
	bounds Bounds
}

// NewValidator creates a validator with the given bounds.
func NewValidator(bounds Bounds) *Validator {
	return &Validator{bounds: bounds}
}

// ValidateOrder checks quantity bounds for every order and price bounds for
// limit orders. Violations return a *domain.ValidationError describing the
// bound; no engine or book state changes on rejection.
func (v *Validator) ValidateOrder(order domain.Order) error {
	if err := v.validateQuantity(order.Quantity); err != nil {
		return err
	}
	if order.IsLimit() {
		return v.validatePrice(order.Price)
	}
	return nil
}

// CanTrade is the self-trade prevention predicate: false iff both orders
// belong to the same trader. Re-checked per candidate match, not just at
// order entry.
func (v *Validator) CanTrade(incoming, resting domain.Order) bool {
	return incoming.TraderID != resting.TraderID
}

func (v *Validator) validatePrice(price decimal.Decimal) error {
	if price.LessThan(v.bounds.MinPrice) {
		return &domain.ValidationError{Reason: fmt.Sprintf(
			"price %s is below minimum allowed price %s", price, v.bounds.MinPrice)}
	}
	if price.GreaterThan(v.bounds.MaxPrice) {
		return &domain.ValidationError{Reason: fmt.Sprintf(
			"price %s exceeds maximum allowed price %s", price, v.bounds.MaxPrice)}
	}
	return nil
}

func (v *Validator) validateQuantity(quantity decimal.Decimal) error {
	if quantity.LessThan(v.bounds.MinQuantity) {
		return &domain.ValidationError{Reason: fmt.Sprintf(
			"quantity %s is below minimum allowed quantity %s", quantity, v.bounds.MinQuantity)}
	}
	if quantity.GreaterThan(v.bounds.MaxQuantity) {
		return &domain.ValidationError{Reason: fmt.Sprintf(
			"quantity %s exceeds maximum allowed quantity %s", quantity, v.bounds.MaxQuantity)}
	}
	return nil
}
