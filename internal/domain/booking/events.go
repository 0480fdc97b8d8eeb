package booking

import (
	"time"

	"github.com/shopspring/decimal"

	"acropolis/internal/domain/listings"
	"acropolis/internal/domain/pricing"
	"acropolis/internal/domain/shared/daterange"
	"acropolis/internal/domain/shared/money"
)

type BookingRequested struct {
	BookingID BookingID
	Reference string
	ListingID listings.ListingID
	Range     daterange.DateRange
	Adults    int
	Children  int
	Total     money.Money
	At        time.Time
}

func (e BookingRequested) EventName() string     { return "booking.requested" }
func (e BookingRequested) AggregateID() string   { return string(e.BookingID) }
func (e BookingRequested) OccurredAt() time.Time { return e.At }

// StatusChanged is named after the target status, e.g. booking.confirmed.
type StatusChanged struct {
	BookingID BookingID
	ListingID listings.ListingID
	From      Status
	To        Status
	Total     money.Money
	At        time.Time
}

func (e StatusChanged) EventName() string     { return "booking." + string(e.To) }
func (e StatusChanged) AggregateID() string   { return string(e.BookingID) }
func (e StatusChanged) OccurredAt() time.Time { return e.At }

type BookingRepriced struct {
	BookingID     BookingID
	ListingID     listings.ListingID
	Range         daterange.DateRange
	PreviousTotal money.Money
	Total         money.Money
	At            time.Time
}

func (e BookingRepriced) EventName() string     { return "booking.repriced" }
func (e BookingRepriced) AggregateID() string   { return string(e.BookingID) }
func (e BookingRepriced) OccurredAt() time.Time { return e.At }

type DiscountApplied struct {
	BookingID BookingID
	Type      pricing.DiscountType
	Value     decimal.Decimal
	Amount    money.Money
	Total     money.Money
	AppliedBy string
	At        time.Time
}

func (e DiscountApplied) EventName() string     { return "booking.discount_applied" }
func (e DiscountApplied) AggregateID() string   { return string(e.BookingID) }
func (e DiscountApplied) OccurredAt() time.Time { return e.At }

type DiscountRemoved struct {
	BookingID BookingID
	Total     money.Money
	At        time.Time
}

func (e DiscountRemoved) EventName() string     { return "booking.discount_removed" }
func (e DiscountRemoved) AggregateID() string   { return string(e.BookingID) }
func (e DiscountRemoved) OccurredAt() time.Time { return e.At }

type BookingDeleted struct {
	BookingID BookingID
	ListingID listings.ListingID
	At        time.Time
}

func (e BookingDeleted) EventName() string     { return "booking.deleted" }
func (e BookingDeleted) AggregateID() string   { return string(e.BookingID) }
func (e BookingDeleted) OccurredAt() time.Time { return e.At }
