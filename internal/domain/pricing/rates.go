package pricing

import (
	"context"
	"time"

	"acropolis/internal/domain/listings"
	"acropolis/internal/domain/shared/daterange"
	"acropolis/internal/domain/shared/money"
)

// RateSource is the read side of the listing rate calendar.
type RateSource interface {
	Overrides(ctx context.Context, id listings.ListingID, dr daterange.DateRange) ([]listings.PriceOverride, error)
	Seasons(ctx context.Context, id listings.ListingID, dr daterange.DateRange) ([]listings.SeasonalPrice, error)
}

// RateResolver resolves nightly prices with precedence
// override -> seasonal price -> listing base price.
type RateResolver struct {
	Source RateSource
}

// ResolveNightlyRate resolves the price of a single night.
func (r RateResolver) ResolveNightlyRate(ctx context.Context, listing *listings.Listing, day time.Time) (money.Money, error) {
	day = daterange.Day(day)
	table, err := r.Table(ctx, listing, daterange.Between(day, day.AddDate(0, 0, 1)))
	if err != nil {
		return money.Money{}, err
	}
	return table.Rate(day), nil
}

// Table loads overrides and seasons touching dr once and returns a lookup
// table for every night in it.
func (r RateResolver) Table(ctx context.Context, listing *listings.Listing, dr daterange.DateRange) (RateTable, error) {
	table := RateTable{base: listing.NightlyPrice}
	if r.Source == nil || dr.Nights() == 0 {
		return table, nil
	}
	overrides, err := r.Source.Overrides(ctx, listing.ID, dr)
	if err != nil {
		return RateTable{}, err
	}
	seasons, err := r.Source.Seasons(ctx, listing.ID, dr)
	if err != nil {
		return RateTable{}, err
	}
	return NewRateTable(listing.NightlyPrice, overrides, seasons), nil
}

// RateTable answers nightly prices without further store access.
type RateTable struct {
	base      money.Money
	overrides map[string]money.Money
	seasons   []listings.SeasonalPrice
}

func NewRateTable(base money.Money, overrides []listings.PriceOverride, seasons []listings.SeasonalPrice) RateTable {
	table := RateTable{
		base:      base,
		overrides: make(map[string]money.Money, len(overrides)),
		seasons:   append([]listings.SeasonalPrice(nil), seasons...),
	}
	for _, o := range overrides {
		table.overrides[dayKey(o.Date)] = o.Price
	}
	listings.OrderSeasons(table.seasons)
	return table
}

func (t RateTable) Rate(day time.Time) money.Money {
	if price, ok := t.overrides[dayKey(day)]; ok {
		return price
	}
	for _, s := range t.seasons {
		if s.Covers(day) {
			return s.Price
		}
	}
	return t.base
}

func dayKey(t time.Time) string {
	return daterange.Day(t).Format(daterange.DateLayout)
}
