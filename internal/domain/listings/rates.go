package listings

import (
	"errors"
	"sort"
	"time"

	"acropolis/internal/domain/shared/daterange"
	"acropolis/internal/domain/shared/domainerr"
	"acropolis/internal/domain/shared/money"
)

var (
	ErrSeasonRange   = domainerr.Validation("Seasonal price start date must be before its end date.")
	ErrSeasonOverlap = domainerr.Validation("Seasonal price overlaps an existing season for this listing.")
	ErrRatePrice     = domainerr.Validation("Price must be non-negative.")
	ErrRateListing   = errors.New("listings: rate must reference a listing")
)

// PriceOverride pins the price of one night. Unique per (listing, date).
type PriceOverride struct {
	ListingID ListingID
	Date      time.Time
	Price     money.Money
}

// SeasonalPrice applies to nights in [StartDate, EndDate).
type SeasonalPrice struct {
	ID        string
	ListingID ListingID
	StartDate time.Time
	EndDate   time.Time
	Price     money.Money
	CreatedAt time.Time
}

func (s SeasonalPrice) Range() daterange.DateRange {
	return daterange.Between(s.StartDate, s.EndDate)
}

func (s SeasonalPrice) Covers(day time.Time) bool {
	return s.Range().ContainsDate(day)
}

func NewPriceOverride(listingID ListingID, date time.Time, price money.Money) (PriceOverride, error) {
	if listingID == "" {
		return PriceOverride{}, ErrRateListing
	}
	if price.Amount.IsNegative() {
		return PriceOverride{}, ErrRatePrice
	}
	return PriceOverride{ListingID: listingID, Date: daterange.Day(date), Price: price}, nil
}

func NewSeasonalPrice(id string, listingID ListingID, start, end time.Time, price money.Money, now time.Time) (SeasonalPrice, error) {
	if listingID == "" {
		return SeasonalPrice{}, ErrRateListing
	}
	if price.Amount.IsNegative() {
		return SeasonalPrice{}, ErrRatePrice
	}
	start, end = daterange.Day(start), daterange.Day(end)
	if !start.Before(end) {
		return SeasonalPrice{}, ErrSeasonRange
	}
	return SeasonalPrice{ID: id, ListingID: listingID, StartDate: start, EndDate: end, Price: price, CreatedAt: now.UTC()}, nil
}

// EnsureNoSeasonOverlap rejects a candidate season that overlaps any other
// season of the same listing. A season with the candidate's id is ignored so
// updates do not collide with themselves.
func EnsureNoSeasonOverlap(existing []SeasonalPrice, candidate SeasonalPrice) error {
	for _, s := range existing {
		if s.ListingID != candidate.ListingID || (candidate.ID != "" && s.ID == candidate.ID) {
			continue
		}
		if s.Range().Overlaps(candidate.Range()) {
			return ErrSeasonOverlap
		}
	}
	return nil
}

// OrderSeasons sorts seasons by precedence: most recently created first, ties
// broken by id descending. Resolution takes the first covering season.
func OrderSeasons(seasons []SeasonalPrice) {
	sort.SliceStable(seasons, func(i, j int) bool {
		if !seasons[i].CreatedAt.Equal(seasons[j].CreatedAt) {
			return seasons[i].CreatedAt.After(seasons[j].CreatedAt)
		}
		return seasons[i].ID > seasons[j].ID
	})
}
