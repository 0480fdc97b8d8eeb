package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"acropolis/internal/app/commands"
	"acropolis/internal/app/dto"
	availabilityapp "acropolis/internal/app/handlers/availability"
	listingsapp "acropolis/internal/app/handlers/listings"
	pricingapp "acropolis/internal/app/handlers/pricing"
	"acropolis/internal/app/queries"
)

// ListingHandler serves quotes, calendars and the admin rate card of a listing.
type ListingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type saveListingRequest struct {
	Title                    string          `json:"title"`
	Currency                 string          `json:"currency"`
	NightlyPrice             decimal.Decimal `json:"nightly_price"`
	VATRate                  decimal.Decimal `json:"vat_rate"`
	MunicipalityTaxRate      decimal.Decimal `json:"municipality_tax_rate"`
	ClimateCrisisFeePerNight decimal.Decimal `json:"climate_crisis_fee_per_night"`
	CleaningFee              decimal.Decimal `json:"cleaning_fee"`
	ServiceFeeRate           decimal.Decimal `json:"service_fee_rate"`
	MaxGuests                int             `json:"max_guests"`
	MaxAdults                int             `json:"max_adults"`
	MaxChildren              int             `json:"max_children"`
}

type priceRequest struct {
	Price decimal.Decimal `json:"price"`
}

type seasonRequest struct {
	StartDate string          `json:"start_date"`
	EndDate   string          `json:"end_date"`
	Price     decimal.Decimal `json:"price"`
}

func (h ListingHandler) Quote(c *gin.Context) {
	checkIn, ok, msg := parseDay("check_in", c.Query("check_in"))
	if !ok {
		badRequest(c, msg)
		return
	}
	checkOut, ok, msg := parseDay("check_out", c.Query("check_out"))
	if !ok {
		badRequest(c, msg)
		return
	}
	query := pricingapp.QuotePriceQuery{ListingID: c.Param("id"), CheckIn: checkIn, CheckOut: checkOut}
	result, err := queries.Ask[pricingapp.QuotePriceQuery, dto.Quote](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Availability returns one entry per night in [start, end).
func (h ListingHandler) Availability(c *gin.Context) {
	start, ok, msg := parseDay("start", c.Query("start"))
	if !ok {
		badRequest(c, msg)
		return
	}
	end, ok, msg := parseDay("end", c.Query("end"))
	if !ok {
		badRequest(c, msg)
		return
	}
	query := availabilityapp.GetAvailabilityQuery{ListingID: c.Param("id"), Start: start, End: end}
	result, err := queries.Ask[availabilityapp.GetAvailabilityQuery, dto.Availability](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ListingHandler) UnavailableRanges(c *gin.Context) {
	h.unavailable(c, c.Param("id"))
}

// UnavailableDates is the query-string form kept for older clients.
func (h ListingHandler) UnavailableDates(c *gin.Context) {
	listingID := strings.TrimSpace(c.Query("listing"))
	if listingID == "" {
		badRequest(c, "Missing 'listing' parameter")
		return
	}
	h.unavailable(c, listingID)
}

func (h ListingHandler) unavailable(c *gin.Context, listingID string) {
	query := availabilityapp.GetUnavailableRangesQuery{ListingID: listingID}
	result, err := queries.Ask[availabilityapp.GetUnavailableRangesQuery, []dto.DateRange](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ListingHandler) SaveRateCard(c *gin.Context) {
	var req saveListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Request body must be valid JSON.")
		return
	}
	cmd := listingsapp.SaveListingCommand{
		ID:                       c.Param("id"),
		Title:                    req.Title,
		Currency:                 strings.ToUpper(strings.TrimSpace(req.Currency)),
		NightlyPrice:             req.NightlyPrice,
		VATRate:                  req.VATRate,
		MunicipalityTaxRate:      req.MunicipalityTaxRate,
		ClimateCrisisFeePerNight: req.ClimateCrisisFeePerNight,
		CleaningFee:              req.CleaningFee,
		ServiceFeeRate:           req.ServiceFeeRate,
		MaxGuests:                req.MaxGuests,
		MaxAdults:                req.MaxAdults,
		MaxChildren:              req.MaxChildren,
	}
	result, err := commands.Dispatch[listingsapp.SaveListingCommand, *listingsapp.SaveListingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ListingHandler) SetPriceOverride(c *gin.Context) {
	date, ok, msg := parseDay("date", c.Param("date"))
	if !ok {
		badRequest(c, msg)
		return
	}
	var req priceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "A numeric price is required.")
		return
	}
	cmd := listingsapp.SetPriceOverrideCommand{ListingID: c.Param("id"), Date: date, Price: req.Price}
	result, err := commands.Dispatch[listingsapp.SetPriceOverrideCommand, *dto.PriceOverride](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ListingHandler) AddSeason(c *gin.Context) {
	var req seasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Request body must be valid JSON.")
		return
	}
	start, ok, msg := parseDay("start_date", req.StartDate)
	if !ok {
		badRequest(c, msg)
		return
	}
	end, ok, msg := parseDay("end_date", req.EndDate)
	if !ok {
		badRequest(c, msg)
		return
	}
	cmd := listingsapp.AddSeasonCommand{ListingID: c.Param("id"), StartDate: start, EndDate: end, Price: req.Price}
	result, err := commands.Dispatch[listingsapp.AddSeasonCommand, *dto.SeasonalPrice](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}
