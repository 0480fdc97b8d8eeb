package booking

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acropolis/internal/domain/listings"
	"acropolis/internal/domain/pricing"
	"acropolis/internal/domain/shared/daterange"
	"acropolis/internal/domain/shared/domainerr"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func day(t *testing.T, v string) time.Time {
	t.Helper()
	out, err := daterange.ParseDay(v)
	require.NoError(t, err)
	return out
}

func stay(t *testing.T, in, out string) daterange.DateRange {
	t.Helper()
	dr, err := daterange.New(day(t, in), day(t, out))
	require.NoError(t, err)
	return dr
}

func newListing(t *testing.T) *listings.Listing {
	t.Helper()
	l, err := listings.NewListing(listings.CreateListingParams{
		ID:                       "villa-1",
		Currency:                 "EUR",
		NightlyPrice:             decimal.NewFromInt(100),
		VATRate:                  decimal.NewFromInt(13),
		MunicipalityTaxRate:      decimal.RequireFromString("1.5"),
		ClimateCrisisFeePerNight: decimal.RequireFromString("1.5"),
		CleaningFee:              decimal.NewFromInt(20),
		ServiceFeeRate:           decimal.NewFromInt(5),
		MaxGuests:                4,
		MaxAdults:                3,
		MaxChildren:              2,
		Now:                      now,
	})
	require.NoError(t, err)
	return l
}

func quote(t *testing.T, l *listings.Listing, dr daterange.DateRange) pricing.PriceBreakdown {
	t.Helper()
	p, err := pricing.NewEngine(nil).Calculate(context.Background(), l, dr.CheckIn, dr.CheckOut)
	require.NoError(t, err)
	return p
}

func newBooking(t *testing.T) (*Booking, *listings.Listing) {
	t.Helper()
	l := newListing(t)
	dr := stay(t, "2024-07-01", "2024-07-04")
	b, err := NewBooking(CreateParams{
		ID:        "b-1",
		Reference: "ABCDEF12",
		Listing:   l,
		Guest:     Guest{FirstName: " Maria ", LastName: "Papadopoulou", Email: "Maria@Example.com"},
		Range:     dr,
		Adults:    2,
		Children:  1,
		Price:     quote(t, l, dr),
		CreatedAt: now,
	})
	require.NoError(t, err)
	return b, l
}

func TestNewBookingStartsPendingAndRecalculable(t *testing.T) {
	b, _ := newBooking(t)
	assert.Equal(t, StatusPending, b.Status)
	assert.Equal(t, PricingRecalculable, b.Pricing)
	assert.False(t, b.AdminConfirmed())
	assert.Equal(t, "Maria", b.Guest.FirstName)
	assert.Equal(t, "maria@example.com", b.Guest.Email)
	assert.Equal(t, LanguageEnglish, b.Guest.Language)
	assert.Equal(t, "383.00", b.Price.Total.String())
	require.Len(t, b.Nights(), 3)

	evts := b.DrainEvents()
	require.Len(t, evts, 1)
	assert.Equal(t, "booking.requested", evts[0].EventName())
}

func TestValidateGuests(t *testing.T) {
	l := newListing(t)
	cases := []struct {
		name             string
		adults, children int
		want             error
	}{
		{"nobody", 0, 0, ErrNoGuests},
		{"negative", -1, 2, ErrNegativeGuests},
		{"too many total", 3, 2, ErrTooManyGuests},
		{"too many adults", 4, 0, ErrTooManyAdults},
		{"children limit", 1, 3, ErrTooManyChildren},
		{"ok", 3, 1, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateGuests(l, tc.adults, tc.children)
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}

	l.MaxGuests = 6
	assert.ErrorIs(t, ValidateGuests(l, 4, 0), ErrTooManyAdults)
}

func TestGuestValidation(t *testing.T) {
	assert.ErrorIs(t, Guest{FirstName: "A", LastName: "B", Email: "nope"}.Normalize().Validate(), ErrGuestEmail)
	assert.ErrorIs(t, Guest{FirstName: "A", Email: "a@b.gr"}.Normalize().Validate(), ErrGuestName)
	assert.ErrorIs(t, Guest{FirstName: "A", LastName: "B", Email: "a@b.gr", Language: "de"}.Normalize().Validate(), ErrGuestLanguage)
	assert.NoError(t, Guest{FirstName: "A", LastName: "B", Email: "a@b.gr", Language: LanguageGreek}.Normalize().Validate())
}

func TestEnsureNoOverlap(t *testing.T) {
	first, _ := newBooking(t)
	first.Range = stay(t, "2024-06-01", "2024-06-05")

	candidate := stay(t, "2024-06-03", "2024-06-10")
	err := EnsureNoOverlap([]*Booking{first}, candidate, "")
	assert.ErrorIs(t, err, ErrDatesTaken)
	assert.True(t, domainerr.IsValidation(err))
	assert.Equal(t, "This listing is already booked for the selected dates.", err.Error())

	assert.NoError(t, EnsureNoOverlap([]*Booking{first}, candidate, first.ID), "a booking never blocks itself")
	assert.NoError(t, EnsureNoOverlap([]*Booking{first}, stay(t, "2024-06-05", "2024-06-07"), ""), "check-out day is free")

	require.NoError(t, first.Cancel(now))
	assert.NoError(t, EnsureNoOverlap([]*Booking{first}, candidate, ""))
}

func TestTransitions(t *testing.T) {
	b, _ := newBooking(t)
	assert.ErrorIs(t, b.Complete(now), ErrInvalidTransition)

	require.NoError(t, b.Confirm(now))
	assert.True(t, b.AdminConfirmed())
	assert.Equal(t, PricingFrozen, b.Pricing)

	require.NoError(t, b.CheckIn(now))
	assert.False(t, b.AdminConfirmed())
	require.NoError(t, b.Complete(now))
	assert.True(t, b.Status.Terminal())
	assert.ErrorIs(t, b.Cancel(now), ErrInvalidTransition)

	names := []string{}
	for _, e := range b.DrainEvents() {
		names = append(names, e.EventName())
	}
	assert.Equal(t, []string{"booking.requested", "booking.confirmed", "booking.checked_in", "booking.completed"}, names)
}

func TestCancelledIsTerminal(t *testing.T) {
	b, _ := newBooking(t)
	require.NoError(t, b.Cancel(now))
	assert.False(t, b.AdminConfirmed())
	assert.ErrorIs(t, b.TransitionTo(StatusConfirmed, now), ErrInvalidTransition)
	assert.ErrorIs(t, b.TransitionTo(StatusPending, now), ErrInvalidTransition)
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("Checked_In")
	require.NoError(t, err)
	assert.Equal(t, StatusCheckedIn, s)
	_, err = ParseStatus("archived")
	assert.ErrorIs(t, err, ErrUnknownStatus)
}

func TestConfirmedBookingDatesAreImmutable(t *testing.T) {
	b, l := newBooking(t)
	require.NoError(t, b.Confirm(now))

	dr := stay(t, "2024-07-02", "2024-07-05")
	err := b.Reschedule(l, dr, 2, 0, quote(t, l, dr), now)
	assert.ErrorIs(t, err, ErrImmutableBooking)
	assert.True(t, domainerr.IsValidation(err))

	other := *l
	other.ID = "villa-2"
	assert.ErrorIs(t, b.ChangeStay(other.ID, b.Range), ErrImmutableBooking)
	assert.NoError(t, b.ChangeStay(b.ListingID, b.Range), "unchanged stay is always accepted")
}

func TestRescheduleRepricesPendingBooking(t *testing.T) {
	b, l := newBooking(t)
	b.DrainEvents()

	dr := stay(t, "2024-07-01", "2024-07-06")
	require.NoError(t, b.Reschedule(l, dr, 2, 0, quote(t, l, dr), now))
	assert.Equal(t, 5, b.Price.Nights)
	assert.Len(t, b.Nights(), 5)
	assert.Equal(t, 2, b.Guests())

	evts := b.DrainEvents()
	require.Len(t, evts, 1)
	assert.Equal(t, "booking.repriced", evts[0].EventName())
}

func TestDiscountFreezesPricing(t *testing.T) {
	b, l := newBooking(t)
	require.NoError(t, b.ApplyDiscount(pricing.DiscountPercentage, decimal.NewFromInt(10), "returning guest", "admin-1", now))
	assert.Equal(t, "348.65", b.Price.Total.String())
	assert.Equal(t, "30.00", b.Discount.Amount.String())
	assert.Equal(t, PricingFrozen, b.Pricing)

	dr := stay(t, "2024-07-02", "2024-07-05")
	assert.ErrorIs(t, b.Reschedule(l, dr, 2, 0, quote(t, l, dr), now), ErrPricingFrozen)

	err := b.ApplyDiscount(pricing.DiscountFixed, decimal.NewFromInt(500), "", "admin-1", now)
	assert.ErrorIs(t, err, pricing.ErrFixedExceedsTotal)
	assert.Equal(t, "348.65", b.Price.Total.String(), "rejected discount leaves price untouched")
}

func TestRemoveDiscount(t *testing.T) {
	b, _ := newBooking(t)
	assert.ErrorIs(t, b.RemoveDiscount(now), ErrNoDiscount)

	require.NoError(t, b.ApplyDiscount(pricing.DiscountFixed, decimal.NewFromInt(50), "", "admin-1", now))
	require.NoError(t, b.RemoveDiscount(now))
	assert.Nil(t, b.Discount)
	assert.Equal(t, "383.00", b.Price.Total.String())
	assert.Equal(t, PricingRecalculable, b.Pricing)

	require.NoError(t, b.ApplyDiscount(pricing.DiscountFixed, decimal.NewFromInt(50), "", "admin-1", now))
	require.NoError(t, b.Confirm(now))
	require.NoError(t, b.RemoveDiscount(now))
	assert.Equal(t, PricingFrozen, b.Pricing, "confirmed bookings stay frozen")
}

func TestDiscountBlockedByStatus(t *testing.T) {
	b, _ := newBooking(t)
	require.NoError(t, b.Confirm(now))
	require.NoError(t, b.CheckIn(now))
	assert.False(t, b.CanApplyDiscount())
	assert.ErrorIs(t, b.ApplyDiscount(pricing.DiscountPercentage, decimal.NewFromInt(5), "", "admin", now), pricing.ErrDiscountNotAllowed)
	assert.ErrorIs(t, b.RemoveDiscount(now), pricing.ErrDiscountNotAllowed)
}

func TestNewReference(t *testing.T) {
	ref := NewReference()
	assert.Len(t, ref, 8)
	assert.Regexp(t, "^[0-9A-F]{8}$", ref)
}

func TestValidateStay(t *testing.T) {
	assert.NoError(t, ValidateStay(stay(t, "2024-07-01", "2025-07-01")))
	assert.ErrorIs(t, ValidateStay(daterange.Between(day(t, "2024-07-01"), day(t, "2024-07-01"))), ErrInvalidDates)

	long := daterange.Between(day(t, "2024-07-01"), day(t, "2124-07-01"))
	err := ValidateStay(long)
	assert.ErrorIs(t, err, pricing.ErrStayTooLong)
	assert.True(t, domainerr.IsValidation(err))

	b, l := newBooking(t)
	assert.ErrorIs(t, b.ChangeStay(l.ID, long), pricing.ErrStayTooLong)
}

func TestFinishedBookingsRejectGuestChanges(t *testing.T) {
	for _, finish := range []func(*Booking) error{
		func(b *Booking) error { return b.Cancel(now) },
		func(b *Booking) error {
			if err := b.Confirm(now); err != nil {
				return err
			}
			if err := b.CheckIn(now); err != nil {
				return err
			}
			return b.Complete(now)
		},
	} {
		b, l := newBooking(t)
		require.NoError(t, finish(b))

		assert.ErrorIs(t, b.ChangeGuests(l, 1, 0, now), ErrBookingClosed)
		assert.ErrorIs(t, b.UpdateGuest(Guest{FirstName: "A", LastName: "B", Email: "a@b.gr"}, now), ErrBookingClosed)
		assert.Equal(t, 2, b.Adults)
		assert.Equal(t, 1, b.Children)
	}

	b, l := newBooking(t)
	require.NoError(t, b.Confirm(now))
	require.NoError(t, b.ChangeGuests(l, 1, 0, now), "confirmed bookings still accept guest changes")
}
