package pricing

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"acropolis/internal/domain/shared/domainerr"
	"acropolis/internal/domain/shared/money"
)

type DiscountType string

const (
	DiscountNone       DiscountType = "none"
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

var (
	ErrDiscountType       = domainerr.Validation("Discount type must be either percentage or fixed.")
	ErrDiscountValue      = domainerr.Validation("Discount value must be greater than 0.")
	ErrPercentageTooHigh  = domainerr.Validation("Percentage discount cannot exceed 100%.")
	ErrFixedExceedsTotal  = domainerr.Validation("Fixed discount cannot exceed the booking subtotal.")
	ErrDiscountNotAllowed = domainerr.Validation("Discounts can only be applied to pending or confirmed bookings.")
	maxPercentage         = decimal.NewFromInt(100)
)

func ParseDiscountType(value string) (DiscountType, error) {
	switch DiscountType(strings.ToLower(strings.TrimSpace(value))) {
	case DiscountPercentage:
		return DiscountPercentage, nil
	case DiscountFixed:
		return DiscountFixed, nil
	default:
		return "", ErrDiscountType
	}
}

// Discount is the single active discount of a booking, with audit fields.
type Discount struct {
	Type      DiscountType
	Value     decimal.Decimal
	Amount    money.Money
	Reason    string
	AppliedBy string
	AppliedAt time.Time
}

// ComputeDiscountAmount returns the amount taken off subtotal. Percentages are
// rounded to cents; fixed discounts are capped at the subtotal.
func ComputeDiscountAmount(subtotal money.Money, kind DiscountType, value decimal.Decimal) money.Money {
	switch kind {
	case DiscountPercentage:
		return subtotal.Percent(value)
	case DiscountFixed:
		fixed := money.Money{Amount: value.Round(money.Places), Currency: subtotal.Currency}
		return subtotal.Min(fixed)
	default:
		return money.Zero(subtotal.Currency)
	}
}

// ValidateDiscount checks discount parameters against the subtotal.
func ValidateDiscount(subtotal money.Money, kind DiscountType, value decimal.Decimal) error {
	if kind != DiscountPercentage && kind != DiscountFixed {
		return ErrDiscountType
	}
	if !value.IsPositive() {
		return ErrDiscountValue
	}
	if kind == DiscountPercentage && value.GreaterThan(maxPercentage) {
		return ErrPercentageTooHigh
	}
	if kind == DiscountFixed && value.GreaterThan(subtotal.Amount) {
		return ErrFixedExceedsTotal
	}
	return nil
}

// ApplyDiscount returns a copy of p repriced on the discounted subtotal.
func ApplyDiscount(p PriceBreakdown, kind DiscountType, value decimal.Decimal) (PriceBreakdown, error) {
	if err := ValidateDiscount(p.Subtotal, kind, value); err != nil {
		return PriceBreakdown{}, err
	}
	out := p.Copy()
	out.DiscountAmount = ComputeDiscountAmount(p.Subtotal, kind, value)
	if err := out.RecalculateTotal(); err != nil {
		return PriceBreakdown{}, err
	}
	return out, nil
}

// RemoveDiscount returns a copy of p repriced at the full subtotal.
func RemoveDiscount(p PriceBreakdown) (PriceBreakdown, error) {
	out := p.Copy()
	out.DiscountAmount = money.Zero(p.Currency())
	if err := out.RecalculateTotal(); err != nil {
		return PriceBreakdown{}, err
	}
	return out, nil
}
