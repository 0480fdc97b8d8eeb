package listings

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"acropolis/internal/app/commands"
	"acropolis/internal/app/dto"
	"acropolis/internal/app/handlers/support"
	"acropolis/internal/app/outbox"
	domainlistings "acropolis/internal/domain/listings"
	"acropolis/internal/domain/shared/daterange"
	"acropolis/internal/domain/shared/domainerr"
	"acropolis/internal/domain/shared/events"
	"acropolis/internal/domain/shared/money"
)

const (
	saveListingKey = "listing.save"
	setOverrideKey = "listing.set_override"
	addSeasonKey   = "listing.add_season"
)

// SaveListingCommand creates or replaces a listing's rate card.
type SaveListingCommand struct {
	ID                       string `validate:"required"`
	Title                    string `validate:"max=255"`
	Currency                 string `validate:"required,len=3"`
	NightlyPrice             decimal.Decimal
	VATRate                  decimal.Decimal
	MunicipalityTaxRate      decimal.Decimal
	ClimateCrisisFeePerNight decimal.Decimal
	CleaningFee              decimal.Decimal
	ServiceFeeRate           decimal.Decimal
	MaxGuests                int `validate:"gte=1"`
	MaxAdults                int `validate:"gte=0"`
	MaxChildren              int `validate:"gte=0"`
}

func (c SaveListingCommand) Key() string { return saveListingKey }

func (c SaveListingCommand) RequiresActor() bool { return true }

type SaveListingResult struct {
	ListingID string `json:"listing_id"`
}

// RateCardDeps are shared by the rate card handlers.
type RateCardDeps struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Now     func() time.Time
}

func (d RateCardDeps) now() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}

func (d RateCardDeps) record(ctx context.Context, ev events.DomainEvent) error {
	return outbox.RecordDomainEvents(ctx, d.Outbox, d.Encoder, []events.DomainEvent{ev})
}

type SaveListingHandler struct {
	RateCardDeps
}

func (h *SaveListingHandler) Handle(ctx context.Context, cmd SaveListingCommand) (*SaveListingResult, error) {
	unit, err := support.RequireUnit(ctx)
	if err != nil {
		return nil, err
	}
	now := h.now()
	listing, err := domainlistings.NewListing(domainlistings.CreateListingParams{
		ID:                       domainlistings.ListingID(cmd.ID),
		Title:                    cmd.Title,
		Currency:                 cmd.Currency,
		NightlyPrice:             cmd.NightlyPrice,
		VATRate:                  cmd.VATRate,
		MunicipalityTaxRate:      cmd.MunicipalityTaxRate,
		ClimateCrisisFeePerNight: cmd.ClimateCrisisFeePerNight,
		CleaningFee:              cmd.CleaningFee,
		ServiceFeeRate:           cmd.ServiceFeeRate,
		MaxGuests:                cmd.MaxGuests,
		MaxAdults:                cmd.MaxAdults,
		MaxChildren:              cmd.MaxChildren,
		Now:                      now,
	})
	if err != nil {
		return nil, invalid(err)
	}
	existing, err := unit.Listings().ByID(ctx, listing.ID)
	switch {
	case err == nil:
		if err := listing.Replaces(existing); err != nil {
			return nil, err
		}
	case !domainerr.IsNotFound(err):
		return nil, err
	}
	if err := unit.Listings().Save(ctx, listing); err != nil {
		return nil, err
	}
	if err := h.record(ctx, domainlistings.RateCardSaved{ListingID: listing.ID, NightlyPrice: listing.NightlyPrice, At: now}); err != nil {
		return nil, err
	}
	return &SaveListingResult{ListingID: string(listing.ID)}, nil
}

// SetPriceOverrideCommand pins the price of one night, replacing any earlier
// override for that date.
type SetPriceOverrideCommand struct {
	ListingID string    `validate:"required"`
	Date      time.Time `validate:"required"`
	Price     decimal.Decimal
}

func (c SetPriceOverrideCommand) Key() string { return setOverrideKey }

func (c SetPriceOverrideCommand) RequiresActor() bool { return true }

type SetPriceOverrideHandler struct {
	RateCardDeps
}

func (h *SetPriceOverrideHandler) Handle(ctx context.Context, cmd SetPriceOverrideCommand) (*dto.PriceOverride, error) {
	unit, err := support.RequireUnit(ctx)
	if err != nil {
		return nil, err
	}
	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(cmd.ListingID))
	if err != nil {
		return nil, err
	}
	price, err := money.New(cmd.Price, listing.Currency)
	if err != nil {
		return nil, invalid(err)
	}
	override, err := domainlistings.NewPriceOverride(listing.ID, cmd.Date, price)
	if err != nil {
		return nil, invalid(err)
	}
	if err := unit.Listings().SaveOverride(ctx, override); err != nil {
		return nil, err
	}
	if err := h.record(ctx, domainlistings.PriceOverrideSet{ListingID: listing.ID, Date: override.Date, Price: override.Price, At: h.now()}); err != nil {
		return nil, err
	}
	out := dto.MapPriceOverride(override)
	return &out, nil
}

// AddSeasonCommand adds a seasonal price for [StartDate, EndDate). Seasons of
// a listing may not overlap.
type AddSeasonCommand struct {
	ListingID string    `validate:"required"`
	StartDate time.Time `validate:"required"`
	EndDate   time.Time `validate:"required"`
	Price     decimal.Decimal
}

func (c AddSeasonCommand) Key() string { return addSeasonKey }

func (c AddSeasonCommand) RequiresActor() bool { return true }

type AddSeasonHandler struct {
	RateCardDeps
}

func (h *AddSeasonHandler) Handle(ctx context.Context, cmd AddSeasonCommand) (*dto.SeasonalPrice, error) {
	unit, err := support.RequireUnit(ctx)
	if err != nil {
		return nil, err
	}
	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(cmd.ListingID))
	if err != nil {
		return nil, err
	}
	price, err := money.New(cmd.Price, listing.Currency)
	if err != nil {
		return nil, invalid(err)
	}
	season, err := domainlistings.NewSeasonalPrice(uuid.NewString(), listing.ID, cmd.StartDate, cmd.EndDate, price, h.now())
	if err != nil {
		return nil, invalid(err)
	}
	if err := unit.Listings().Lock(ctx, listing.ID); err != nil {
		return nil, err
	}
	existing, err := unit.Listings().Seasons(ctx, listing.ID, daterange.Between(season.StartDate, season.EndDate))
	if err != nil {
		return nil, err
	}
	if err := domainlistings.EnsureNoSeasonOverlap(existing, season); err != nil {
		return nil, err
	}
	if err := unit.Listings().SaveSeason(ctx, season); err != nil {
		return nil, err
	}
	evt := domainlistings.SeasonAdded{
		ListingID: listing.ID,
		SeasonID:  season.ID,
		StartDate: season.StartDate,
		EndDate:   season.EndDate,
		Price:     season.Price,
		At:        season.CreatedAt,
	}
	if err := h.record(ctx, evt); err != nil {
		return nil, err
	}
	out := dto.MapSeasonalPrice(season)
	return &out, nil
}

// invalid classifies rate card construction failures as caller errors.
func invalid(err error) error {
	if domainerr.IsValidation(err) {
		return err
	}
	return domainerr.Validation(err.Error())
}

var (
	_ commands.Handler[SaveListingCommand, *SaveListingResult]      = (*SaveListingHandler)(nil)
	_ commands.Handler[SetPriceOverrideCommand, *dto.PriceOverride] = (*SetPriceOverrideHandler)(nil)
	_ commands.Handler[AddSeasonCommand, *dto.SeasonalPrice]        = (*AddSeasonHandler)(nil)
)
