package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"acropolis/internal/app/commands"
	"acropolis/internal/app/dto"
	listingsapp "acropolis/internal/app/handlers/listings"
	"acropolis/internal/app/middleware"
	"acropolis/internal/domain/shared/daterange"
)

type listingFixture struct {
	ID                       string            `json:"id"`
	Title                    string            `json:"title"`
	Currency                 string            `json:"currency"`
	NightlyPrice             decimal.Decimal   `json:"nightly_price"`
	VATRate                  decimal.Decimal   `json:"vat_rate"`
	MunicipalityTaxRate      decimal.Decimal   `json:"municipality_tax_rate"`
	ClimateCrisisFeePerNight decimal.Decimal   `json:"climate_crisis_fee_per_night"`
	CleaningFee              decimal.Decimal   `json:"cleaning_fee"`
	ServiceFeeRate           decimal.Decimal   `json:"service_fee_rate"`
	MaxGuests                int               `json:"max_guests"`
	MaxAdults                int               `json:"max_adults"`
	MaxChildren              int               `json:"max_children"`
	Overrides                []overrideFixture `json:"overrides"`
	Seasons                  []seasonFixture   `json:"seasons"`
}

type overrideFixture struct {
	Date  string          `json:"date"`
	Price decimal.Decimal `json:"price"`
}

type seasonFixture struct {
	StartDate string          `json:"start_date"`
	EndDate   string          `json:"end_date"`
	Price     decimal.Decimal `json:"price"`
}

// loadListingFixtures seeds rate cards through the command bus so fixtures go
// through the same validation and outbox as admin edits. Invalid entries are
// logged and skipped.
func loadListingFixtures(ctx context.Context, bus commands.Bus, path string, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("listing fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	if len(data) == 0 {
		logger.Warn("listing fixtures file empty", "path", path)
		return nil
	}
	var fixtures []listingFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}

	ctx = middleware.ContextWithActor(ctx, systemActor)
	for _, fx := range fixtures {
		if err := importListing(ctx, bus, fx); err != nil {
			logger.Error("fixture import failed", "listing_id", fx.ID, "error", err)
			continue
		}
		logger.Info("listing fixture imported", "listing_id", fx.ID, "overrides", len(fx.Overrides), "seasons", len(fx.Seasons))
	}
	return nil
}

func importListing(ctx context.Context, bus commands.Bus, fx listingFixture) error {
	_, err := commands.Dispatch[listingsapp.SaveListingCommand, *listingsapp.SaveListingResult](ctx, bus, listingsapp.SaveListingCommand{
		ID:                       fx.ID,
		Title:                    fx.Title,
		Currency:                 fx.Currency,
		NightlyPrice:             fx.NightlyPrice,
		VATRate:                  fx.VATRate,
		MunicipalityTaxRate:      fx.MunicipalityTaxRate,
		ClimateCrisisFeePerNight: fx.ClimateCrisisFeePerNight,
		CleaningFee:              fx.CleaningFee,
		ServiceFeeRate:           fx.ServiceFeeRate,
		MaxGuests:                fx.MaxGuests,
		MaxAdults:                fx.MaxAdults,
		MaxChildren:              fx.MaxChildren,
	})
	if err != nil {
		return err
	}
	for _, o := range fx.Overrides {
		date, err := daterange.ParseDay(o.Date)
		if err != nil {
			return fmt.Errorf("override date %q: %w", o.Date, err)
		}
		cmd := listingsapp.SetPriceOverrideCommand{ListingID: fx.ID, Date: date, Price: o.Price}
		if _, err := commands.Dispatch[listingsapp.SetPriceOverrideCommand, *dto.PriceOverride](ctx, bus, cmd); err != nil {
			return err
		}
	}
	for _, s := range fx.Seasons {
		start, err := daterange.ParseDay(s.StartDate)
		if err != nil {
			return fmt.Errorf("season start %q: %w", s.StartDate, err)
		}
		end, err := daterange.ParseDay(s.EndDate)
		if err != nil {
			return fmt.Errorf("season end %q: %w", s.EndDate, err)
		}
		cmd := listingsapp.AddSeasonCommand{ListingID: fx.ID, StartDate: start, EndDate: end, Price: s.Price}
		if _, err := commands.Dispatch[listingsapp.AddSeasonCommand, *dto.SeasonalPrice](ctx, bus, cmd); err != nil {
			return err
		}
	}
	return nil
}

func fixturesPath(configured string) string {
	if configured != "" {
		return configured
	}
	candidates := []string{
		filepath.Join("data", "listings.json"),
		filepath.Join("..", "..", "data", "listings.json"),
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return candidates[0]
}
