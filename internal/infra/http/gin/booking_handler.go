package ginserver

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	gin "github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"acropolis/internal/app/commands"
	"acropolis/internal/app/dto"
	bookingapp "acropolis/internal/app/handlers/booking"
	"acropolis/internal/app/queries"
)

// BookingHandler serves the short-term booking resource.
type BookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type createBookingRequest struct {
	ListingID   string `json:"listing_id"`
	CheckIn     string `json:"check_in"`
	CheckOut    string `json:"check_out"`
	Adults      int    `json:"adults"`
	Children    int    `json:"children"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Message     string `json:"message"`
	Language    string `json:"language"`
}

type updateBookingRequest struct {
	ListingID   *string `json:"listing_id"`
	CheckIn     *string `json:"check_in"`
	CheckOut    *string `json:"check_out"`
	Adults      *int    `json:"adults"`
	Children    *int    `json:"children"`
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	Email       *string `json:"email"`
	PhoneNumber *string `json:"phone_number"`
	Message     *string `json:"message"`
	Language    *string `json:"language"`
}

type changeStatusRequest struct {
	Status string `json:"status"`
}

type applyDiscountRequest struct {
	Type   string          `json:"discount_type"`
	Value  decimal.Decimal `json:"discount_value"`
	Reason string          `json:"discount_reason"`
}

func (h BookingHandler) Create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Request body must be valid JSON.")
		return
	}
	checkIn, ok, msg := parseDay("check_in", req.CheckIn)
	if !ok {
		badRequest(c, msg)
		return
	}
	checkOut, ok, msg := parseDay("check_out", req.CheckOut)
	if !ok {
		badRequest(c, msg)
		return
	}
	cmd := bookingapp.CreateBookingCommand{
		ListingID:       strings.TrimSpace(req.ListingID),
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		Adults:          req.Adults,
		Children:        req.Children,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Email:           strings.TrimSpace(req.Email),
		PhoneNumber:     req.PhoneNumber,
		Message:         req.Message,
		Language:        req.Language,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[bookingapp.CreateBookingCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h BookingHandler) List(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			badRequest(c, "limit must be a non-negative integer.")
			return
		}
		limit = n
	}
	query := bookingapp.ListBookingsQuery{
		ListingID: strings.TrimSpace(c.Query("listing")),
		Status:    strings.TrimSpace(c.Query("status")),
		Limit:     limit,
	}
	result, err := queries.Ask[bookingapp.ListBookingsQuery, dto.BookingList](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Get(c *gin.Context) {
	query := bookingapp.GetBookingQuery{BookingID: c.Param("id")}
	result, err := queries.Ask[bookingapp.GetBookingQuery, dto.Booking](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Update(c *gin.Context) {
	var req updateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Request body must be valid JSON.")
		return
	}
	checkIn, ok, msg := parseOptionalDay("check_in", req.CheckIn)
	if !ok {
		badRequest(c, msg)
		return
	}
	checkOut, ok, msg := parseOptionalDay("check_out", req.CheckOut)
	if !ok {
		badRequest(c, msg)
		return
	}
	cmd := bookingapp.UpdateBookingCommand{
		BookingID:   c.Param("id"),
		ListingID:   req.ListingID,
		CheckIn:     checkIn,
		CheckOut:    checkOut,
		Adults:      req.Adults,
		Children:    req.Children,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Message:     req.Message,
		Language:    req.Language,
	}
	result, err := commands.Dispatch[bookingapp.UpdateBookingCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Delete(c *gin.Context) {
	cmd := bookingapp.DeleteBookingCommand{BookingID: c.Param("id")}
	if _, err := commands.Dispatch[bookingapp.DeleteBookingCommand, *bookingapp.DeleteBookingResult](c.Request.Context(), h.Commands, cmd); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h BookingHandler) ChangeStatus(c *gin.Context) {
	var req changeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Request body must be valid JSON.")
		return
	}
	cmd := bookingapp.ChangeBookingStatusCommand{
		BookingID: c.Param("id"),
		Status:    strings.ToLower(strings.TrimSpace(req.Status)),
	}
	result, err := commands.Dispatch[bookingapp.ChangeBookingStatusCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) ApplyDiscount(c *gin.Context) {
	var req applyDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "discount_type and a numeric discount_value are required.")
		return
	}
	cmd := bookingapp.ApplyDiscountCommand{
		BookingID: c.Param("id"),
		Type:      strings.ToLower(strings.TrimSpace(req.Type)),
		Value:     req.Value,
		Reason:    req.Reason,
	}
	result, err := commands.Dispatch[bookingapp.ApplyDiscountCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) RemoveDiscount(c *gin.Context) {
	cmd := bookingapp.RemoveDiscountCommand{BookingID: c.Param("id")}
	result, err := commands.Dispatch[bookingapp.RemoveDiscountCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Statistics(c *gin.Context) {
	query := bookingapp.BookingStatisticsQuery{ListingID: strings.TrimSpace(c.Query("listing"))}
	result, err := queries.Ask[bookingapp.BookingStatisticsQuery, dto.BookingStatistics](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
