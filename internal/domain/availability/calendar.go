package availability

import (
	"context"
	"sort"
	"time"

	"acropolis/internal/domain/listings"
	"acropolis/internal/domain/pricing"
	"acropolis/internal/domain/shared/daterange"
	"acropolis/internal/domain/shared/money"
)

// MaxWindow bounds a single availability query.
const MaxWindow = 366

// Day is one calendar entry of a listing.
type Day struct {
	Date      time.Time
	Available bool
	Price     money.Money
}

// BookedSource lists nights held by non-cancelled bookings.
type BookedSource interface {
	BookedDates(ctx context.Context, listingID listings.ListingID, dr daterange.DateRange) ([]time.Time, error)
	AllBookedDates(ctx context.Context, listingID listings.ListingID) ([]time.Time, error)
}

type Tracker struct {
	Nights BookedSource
	Rates  pricing.RateResolver
}

// GetAvailability returns one entry per night in [start, end). Prices come
// from the rate calendar whether or not the night is booked.
func (t Tracker) GetAvailability(ctx context.Context, listing *listings.Listing, start, end time.Time) ([]Day, error) {
	dr := daterange.Between(start, end)
	days := dr.Days()
	if len(days) == 0 {
		return []Day{}, nil
	}
	booked, err := t.Nights.BookedDates(ctx, listing.ID, dr)
	if err != nil {
		return nil, err
	}
	taken := make(map[time.Time]struct{}, len(booked))
	for _, d := range booked {
		taken[daterange.Day(d)] = struct{}{}
	}
	table, err := t.Rates.Table(ctx, listing, dr)
	if err != nil {
		return nil, err
	}
	out := make([]Day, 0, len(days))
	for _, d := range days {
		_, isBooked := taken[d]
		out = append(out, Day{Date: d, Available: !isBooked, Price: table.Rate(d)})
	}
	return out, nil
}

// GetUnavailableRanges collapses every booked night of the listing into
// half-open ranges.
func (t Tracker) GetUnavailableRanges(ctx context.Context, listingID listings.ListingID) ([]daterange.DateRange, error) {
	booked, err := t.Nights.AllBookedDates(ctx, listingID)
	if err != nil {
		return nil, err
	}
	return CollapseNights(booked), nil
}

// CollapseNights merges consecutive nights into ranges whose check-out is the
// day after the last night. Input order and duplicates do not matter.
func CollapseNights(dates []time.Time) []daterange.DateRange {
	if len(dates) == 0 {
		return []daterange.DateRange{}
	}
	sorted := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		sorted = append(sorted, daterange.Day(d))
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	var out []daterange.DateRange
	start, last := sorted[0], sorted[0]
	for _, d := range sorted[1:] {
		if d.Equal(last) {
			continue
		}
		if d.Equal(last.AddDate(0, 0, 1)) {
			last = d
			continue
		}
		out = append(out, daterange.Between(start, last.AddDate(0, 0, 1)))
		start, last = d, d
	}
	return append(out, daterange.Between(start, last.AddDate(0, 0, 1)))
}
