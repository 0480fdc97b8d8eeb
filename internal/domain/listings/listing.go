package listings

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"acropolis/internal/domain/shared/daterange"
	"acropolis/internal/domain/shared/domainerr"
	"acropolis/internal/domain/shared/money"
)

var (
	ErrIDRequired      = domainerr.Validation("Listing id is required.")
	ErrNightlyRate     = domainerr.Validation("Nightly price must be non-negative.")
	ErrNegativeRate    = domainerr.Validation("Tax and service fee rates must be non-negative.")
	ErrNegativeFee     = domainerr.Validation("Cleaning and climate crisis fees must be non-negative.")
	ErrGuestsLimit     = domainerr.Validation("Max guests must be at least 1.")
	ErrCapacityLimits  = domainerr.Validation("Adult and child limits must be non-negative.")
	ErrCurrencyMissing = domainerr.Validation("Currency is required.")
	ErrCurrencyChange  = domainerr.Validation("Listing currency cannot be changed once the listing exists.")
)

type ListingID string

// Listing is the short-term listing record the pricing core reads. Rates are
// stored as percentages (13.25 means 13.25%) and never pre-converted.
type Listing struct {
	ID                       ListingID
	Title                    string
	Currency                 string
	NightlyPrice             money.Money
	VATRate                  decimal.Decimal
	MunicipalityTaxRate      decimal.Decimal
	ClimateCrisisFeePerNight money.Money
	CleaningFee              money.Money
	ServiceFeeRate           decimal.Decimal
	MaxGuests                int
	MaxAdults                int
	MaxChildren              int
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// Repository reads listings and their rate calendars. Lock takes a write lock
// on the listing inside the current unit of work so booking writes for the
// same listing are serialized.
type Repository interface {
	ByID(ctx context.Context, id ListingID) (*Listing, error)
	Save(ctx context.Context, listing *Listing) error
	Lock(ctx context.Context, id ListingID) error
	Overrides(ctx context.Context, id ListingID, dr daterange.DateRange) ([]PriceOverride, error)
	Seasons(ctx context.Context, id ListingID, dr daterange.DateRange) ([]SeasonalPrice, error)
	SaveOverride(ctx context.Context, override PriceOverride) error
	SaveSeason(ctx context.Context, season SeasonalPrice) error
}

type CreateListingParams struct {
	ID                       ListingID
	Title                    string
	Currency                 string
	NightlyPrice             decimal.Decimal
	VATRate                  decimal.Decimal
	MunicipalityTaxRate      decimal.Decimal
	ClimateCrisisFeePerNight decimal.Decimal
	CleaningFee              decimal.Decimal
	ServiceFeeRate           decimal.Decimal
	MaxGuests                int
	MaxAdults                int
	MaxChildren              int
	Now                      time.Time
}

func NewListing(params CreateListingParams) (*Listing, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrIDRequired
	}
	if strings.TrimSpace(params.Currency) == "" {
		return nil, ErrCurrencyMissing
	}
	if params.NightlyPrice.IsNegative() {
		return nil, ErrNightlyRate
	}
	if params.VATRate.IsNegative() || params.MunicipalityTaxRate.IsNegative() || params.ServiceFeeRate.IsNegative() {
		return nil, ErrNegativeRate
	}
	if params.ClimateCrisisFeePerNight.IsNegative() || params.CleaningFee.IsNegative() {
		return nil, ErrNegativeFee
	}
	if params.MaxGuests < 1 {
		return nil, ErrGuestsLimit
	}
	if params.MaxAdults < 0 || params.MaxChildren < 0 {
		return nil, ErrCapacityLimits
	}
	nightly, err := money.New(params.NightlyPrice, params.Currency)
	if err != nil {
		return nil, err
	}
	climate, err := money.New(params.ClimateCrisisFeePerNight, params.Currency)
	if err != nil {
		return nil, err
	}
	cleaning, err := money.New(params.CleaningFee, params.Currency)
	if err != nil {
		return nil, err
	}
	now := params.Now.UTC()
	return &Listing{
		ID:                       params.ID,
		Title:                    strings.TrimSpace(params.Title),
		Currency:                 nightly.Currency,
		NightlyPrice:             nightly,
		VATRate:                  params.VATRate.Round(2),
		MunicipalityTaxRate:      params.MunicipalityTaxRate.Round(2),
		ClimateCrisisFeePerNight: climate,
		CleaningFee:              cleaning,
		ServiceFeeRate:           params.ServiceFeeRate.Round(2),
		MaxGuests:                params.MaxGuests,
		MaxAdults:                params.MaxAdults,
		MaxChildren:              params.MaxChildren,
		CreatedAt:                now,
		UpdatedAt:                now,
	}, nil
}

// Replaces carries audit fields of the stored listing over to l. The currency
// is fixed because stored rates and booking prices are kept in it.
func (l *Listing) Replaces(existing *Listing) error {
	if existing.Currency != l.Currency {
		return ErrCurrencyChange
	}
	l.CreatedAt = existing.CreatedAt
	return nil
}
