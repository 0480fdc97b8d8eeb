package pricing

import (
	"context"
	"fmt"
	"time"

	"acropolis/internal/domain/listings"
	"acropolis/internal/domain/shared/daterange"
	"acropolis/internal/domain/shared/domainerr"
	"acropolis/internal/domain/shared/money"
)

// MaxNights bounds a single priced stay.
const MaxNights = 365

var ErrStayTooLong = domainerr.Validation(fmt.Sprintf("A stay can be at most %d nights.", MaxNights))

// Engine is the store-backed Calculator.
type Engine struct {
	Rates RateResolver
}

func NewEngine(source RateSource) *Engine {
	return &Engine{Rates: RateResolver{Source: source}}
}

// Calculate prices [checkIn, checkOut). A range with no nights yields a zero
// breakdown instead of an error; callers creating bookings validate dates first.
// Stays longer than MaxNights are rejected.
func (e *Engine) Calculate(ctx context.Context, listing *listings.Listing, checkIn, checkOut time.Time) (PriceBreakdown, error) {
	dr := daterange.Between(checkIn, checkOut)
	if dr.Nights() == 0 {
		return ZeroBreakdown(listing.Currency), nil
	}
	if dr.Nights() > MaxNights {
		return PriceBreakdown{}, ErrStayTooLong
	}
	table, err := e.Rates.Table(ctx, listing, dr)
	if err != nil {
		return PriceBreakdown{}, err
	}
	return Compute(listing, table, dr)
}

// Compute builds the breakdown from an already loaded rate table.
func Compute(listing *listings.Listing, table RateTable, dr daterange.DateRange) (PriceBreakdown, error) {
	days := dr.Days()
	if len(days) == 0 {
		return ZeroBreakdown(listing.Currency), nil
	}
	subtotal := money.Zero(listing.Currency)
	nightly := make([]NightlyRate, 0, len(days))
	for _, day := range days {
		price := table.Rate(day)
		next, err := subtotal.Add(price)
		if err != nil {
			return PriceBreakdown{}, err
		}
		subtotal = next
		nightly = append(nightly, NightlyRate{Date: day, Price: price})
	}

	rates := RatesOf(listing)
	breakdown := PriceBreakdown{
		Nights:           len(days),
		Subtotal:         subtotal,
		DiscountAmount:   money.Zero(listing.Currency),
		ClimateCrisisFee: listing.ClimateCrisisFeePerNight.Multiply(int64(len(days))).Round(),
		CleaningFee:      listing.CleaningFee,
		ServiceFee:       subtotal.Percent(rates.ServiceFeeRate),
		Rates:            rates,
		Nightly:          nightly,
	}
	if err := breakdown.RecalculateTotal(); err != nil {
		return PriceBreakdown{}, err
	}
	return breakdown, nil
}

var _ Calculator = (*Engine)(nil)
