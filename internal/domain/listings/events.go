package listings

import (
	"time"

	"acropolis/internal/domain/shared/money"
)

type RateCardSaved struct {
	ListingID    ListingID
	NightlyPrice money.Money
	At           time.Time
}

func (e RateCardSaved) EventName() string     { return "listing.rate_card_saved" }
func (e RateCardSaved) AggregateID() string   { return string(e.ListingID) }
func (e RateCardSaved) OccurredAt() time.Time { return e.At }

type PriceOverrideSet struct {
	ListingID ListingID
	Date      time.Time
	Price     money.Money
	At        time.Time
}

func (e PriceOverrideSet) EventName() string     { return "listing.price_override_set" }
func (e PriceOverrideSet) AggregateID() string   { return string(e.ListingID) }
func (e PriceOverrideSet) OccurredAt() time.Time { return e.At }

type SeasonAdded struct {
	ListingID ListingID
	SeasonID  string
	StartDate time.Time
	EndDate   time.Time
	Price     money.Money
	At        time.Time
}

func (e SeasonAdded) EventName() string     { return "listing.season_added" }
func (e SeasonAdded) AggregateID() string   { return string(e.ListingID) }
func (e SeasonAdded) OccurredAt() time.Time { return e.At }
