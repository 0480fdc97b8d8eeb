package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"acropolis/internal/domain/listings"
	"acropolis/internal/domain/shared/daterange"
	"acropolis/internal/domain/shared/money"
)

// Night is one booked night with the price frozen at booking time.
type Night struct {
	BookingID BookingID
	ListingID listings.ListingID
	Date      time.Time
	Price     money.Money
}

type NightRepository interface {
	// ReplaceForBooking drops existing nights of the booking and stores nights.
	ReplaceForBooking(ctx context.Context, id BookingID, nights []Night) error
	DeleteForBooking(ctx context.Context, id BookingID) error
	ForBooking(ctx context.Context, id BookingID) ([]Night, error)
	// BookedDates lists nights of non-cancelled bookings within dr, ascending.
	BookedDates(ctx context.Context, listingID listings.ListingID, dr daterange.DateRange) ([]time.Time, error)
	// AllBookedDates lists every night of non-cancelled bookings, ascending.
	AllBookedDates(ctx context.Context, listingID listings.ListingID) ([]time.Time, error)
}

const referenceLength = 8

// NewReference returns an 8 character uppercase booking reference.
func NewReference() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:referenceLength])
}

// UniqueReference draws references until one is unused.
func UniqueReference(ctx context.Context, repo Repository, attempts int) (string, error) {
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		ref := NewReference()
		taken, err := repo.ReferenceExists(ctx, ref)
		if err != nil {
			return "", err
		}
		if !taken {
			return ref, nil
		}
	}
	return "", fmt.Errorf("booking: no free reference after %d attempts", attempts)
}
