package ginserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	gin "github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acropolis/internal/app/commands"
	"acropolis/internal/app/dto"
	"acropolis/internal/app/handlers"
	listingsapp "acropolis/internal/app/handlers/listings"
	"acropolis/internal/app/middleware"
	"acropolis/internal/infra/obs"
	"acropolis/internal/infra/storage/memory"
)

type testAPI struct {
	router *gin.Engine
}

func newTestAPI(t *testing.T) testAPI {
	t.Helper()
	return newLimitedTestAPI(t, nil)
}

func newLimitedTestAPI(t *testing.T, createLimiter gin.HandlerFunc) testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := memory.NewStore()
	cmdBus, queryBus := handlers.Buses(handlers.Dependencies{
		UoW:    memory.NewFactory(store),
		Outbox: store.Outbox(),
	}, memory.NewIdempotencyStore(0))

	ctx := middleware.ContextWithActor(context.Background(), "admin@example.com")
	_, err := commands.Dispatch[listingsapp.SaveListingCommand, *listingsapp.SaveListingResult](ctx, cmdBus, listingsapp.SaveListingCommand{
		ID:           "villa-1",
		Title:        "Villa",
		Currency:     "EUR",
		NightlyPrice: decimal.RequireFromString("100"),
		VATRate:      decimal.RequireFromString("10"),
		MaxGuests:    4,
		MaxAdults:    4,
		MaxChildren:  2,
	})
	require.NoError(t, err)

	router := NewRouter(nil, obs.Middleware{}, obs.HealthHandlers{}, Handlers{
		Booking:       BookingHandler{Commands: cmdBus, Queries: queryBus},
		Listing:       ListingHandler{Commands: cmdBus, Queries: queryBus},
		CreateLimiter: createLimiter,
	})
	return testAPI{router: router}
}

func (a testAPI) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func bookingRequest(checkIn, checkOut string) map[string]any {
	return map[string]any{
		"listing_id": "villa-1",
		"check_in":   checkIn,
		"check_out":  checkOut,
		"adults":     2,
		"first_name": "Eleni",
		"last_name":  "Papadopoulou",
		"email":      "Eleni@Example.com",
	}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestCreateBookingReturnsFrozenPrice(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/v1/short-term-bookings", bookingRequest("2025-03-10", "2025-03-12"), nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[dto.Booking](t, rec)
	assert.Equal(t, "pending", created.Status)
	assert.Equal(t, "eleni@example.com", created.Guest.Email)
	assert.Len(t, created.Reference, 8)
	assert.Equal(t, "200.00", created.Price.Subtotal)
	assert.Equal(t, "20.00", created.Price.VAT)
	assert.Equal(t, "220.00", created.Price.Total)
	assert.Len(t, created.Price.Nightly, 2)

	rec = api.do(t, http.MethodGet, "/api/v1/short-term-bookings/"+created.ID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	fetched := decode[dto.Booking](t, rec)
	assert.Equal(t, created.Reference, fetched.Reference)
	require.Len(t, fetched.Price.Nightly, 2)
	assert.Equal(t, "2025-03-10", fetched.Price.Nightly[0].Date)
	assert.Equal(t, "100.00", fetched.Price.Nightly[0].Price)
}

func TestCreateBookingRejectsOverlap(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/v1/short-term-bookings", bookingRequest("2025-03-10", "2025-03-13"), nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/v1/short-term-bookings", bookingRequest("2025-03-12", "2025-03-14"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "This listing is already booked for the selected dates.", decode[map[string]string](t, rec)["error"])

	// Back-to-back stays share the turnover day.
	rec = api.do(t, http.MethodPost, "/api/v1/short-term-bookings", bookingRequest("2025-03-13", "2025-03-15"), nil)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCreateBookingValidation(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/v1/short-term-bookings", bookingRequest("2025-03-12", "2025-03-10"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Check-out date must be after check-in date.", decode[map[string]string](t, rec)["error"])

	rec = api.do(t, http.MethodPost, "/api/v1/short-term-bookings", bookingRequest("10/03/2025", "2025-03-12"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := bookingRequest("2025-03-10", "2025-03-12")
	req["adults"] = 5
	rec = api.do(t, http.MethodPost, "/api/v1/short-term-bookings", req, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "The number of guests exceeds the maximum allowed for this listing.", decode[map[string]string](t, rec)["error"])
}

func TestCreateBookingIdempotencyKeyReplays(t *testing.T) {
	api := newTestAPI(t)
	headers := map[string]string{"Idempotency-Key": "req-1"}

	first := api.do(t, http.MethodPost, "/api/v1/short-term-bookings", bookingRequest("2025-03-10", "2025-03-12"), headers)
	require.Equal(t, http.StatusCreated, first.Code)
	second := api.do(t, http.MethodPost, "/api/v1/short-term-bookings", bookingRequest("2025-03-10", "2025-03-12"), headers)
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, decode[dto.Booking](t, first).ID, decode[dto.Booking](t, second).ID)

	rec := api.do(t, http.MethodGet, "/api/v1/short-term-bookings", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[dto.BookingList](t, rec).Items, 1)
}

func TestUnknownBookingIsNotFound(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodGet, "/api/v1/short-term-bookings/missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDiscountRequiresActor(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodPost, "/api/v1/short-term-bookings", bookingRequest("2025-03-10", "2025-03-12"), nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[dto.Booking](t, rec).ID
	body := map[string]any{"discount_type": "percentage", "discount_value": "10"}

	rec = api.do(t, http.MethodPost, "/api/v1/short-term-bookings/"+id+"/apply-discount", body, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/v1/short-term-bookings/"+id+"/apply-discount", body, map[string]string{actorHeader: "maria"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	discounted := decode[dto.Booking](t, rec)
	require.NotNil(t, discounted.Discount)
	assert.Equal(t, "maria", discounted.Discount.AppliedBy)
	assert.Equal(t, "20.00", discounted.Price.DiscountAmount)
	assert.Equal(t, "220.00", discounted.OriginalTotal)
	assert.Equal(t, "198.00", discounted.Price.Total)
}

func TestChangeStatusFollowsLifecycle(t *testing.T) {
	api := newTestAPI(t)
	admin := map[string]string{actorHeader: "maria"}
	rec := api.do(t, http.MethodPost, "/api/v1/short-term-bookings", bookingRequest("2025-03-10", "2025-03-12"), nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[dto.Booking](t, rec).ID

	rec = api.do(t, http.MethodPatch, "/api/v1/short-term-bookings/"+id+"/status", map[string]string{"status": "completed"}, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPatch, "/api/v1/short-term-bookings/"+id+"/status", map[string]string{"status": "confirmed"}, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	confirmed := decode[dto.Booking](t, rec)
	assert.True(t, confirmed.AdminConfirmed)

	rec = api.do(t, http.MethodPatch, "/api/v1/short-term-bookings/"+id, map[string]string{"check_out": "2025-03-14"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnavailableDates(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/v1/short-term-bookings/unavailable-dates", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing 'listing' parameter", decode[map[string]string](t, rec)["error"])

	for _, stay := range [][2]string{{"2025-03-10", "2025-03-12"}, {"2025-03-12", "2025-03-14"}, {"2025-03-20", "2025-03-21"}} {
		rec = api.do(t, http.MethodPost, "/api/v1/short-term-bookings", bookingRequest(stay[0], stay[1]), nil)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec = api.do(t, http.MethodGet, "/api/v1/short-term-bookings/unavailable-dates?listing=villa-1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []dto.DateRange{
		{CheckIn: "2025-03-10", CheckOut: "2025-03-14"},
		{CheckIn: "2025-03-20", CheckOut: "2025-03-21"},
	}, decode[[]dto.DateRange](t, rec))

	rec = api.do(t, http.MethodGet, "/api/v1/listings/villa-1/availability?start=2025-03-09&end=2025-03-11", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cal := decode[dto.Availability](t, rec)
	require.Len(t, cal.Days, 2)
	assert.True(t, cal.Days[0].Available)
	assert.False(t, cal.Days[1].Available)
}

func TestQuoteUsesOverrides(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPut, "/api/v1/listings/villa-1/overrides/2025-03-11", map[string]string{"price": "150"}, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(t, http.MethodPut, "/api/v1/listings/villa-1/overrides/2025-03-11", map[string]string{"price": "150"}, map[string]string{actorHeader: "maria"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.do(t, http.MethodGet, "/api/v1/listings/villa-1/quote?check_in=2025-03-10&check_out=2025-03-12", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	quote := decode[dto.Quote](t, rec)
	assert.Equal(t, "250.00", quote.Price.Subtotal)
	assert.Equal(t, "275.00", quote.Price.Total)

	rec = api.do(t, http.MethodGet, "/api/v1/listings/unknown/quote?check_in=2025-03-10&check_out=2025-03-12", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateBookingIsRateLimited(t *testing.T) {
	store, err := NewLimiterStore(nil)
	require.NoError(t, err)
	limit, err := RateLimit("1-M", store)
	require.NoError(t, err)
	api := newLimitedTestAPI(t, limit)

	rec := api.do(t, http.MethodPost, "/api/v1/short-term-bookings", bookingRequest("2025-03-10", "2025-03-12"), nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = api.do(t, http.MethodPost, "/api/v1/short-term-bookings", bookingRequest("2025-04-10", "2025-04-12"), nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/v1/short-term-bookings", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code, "reads are not limited")
}

func TestOverlongStayIsRejected(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/v1/listings/villa-1/quote?check_in=2025-01-01&check_out=2125-01-01", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	rec = api.do(t, http.MethodPost, "/api/v1/short-term-bookings", bookingRequest("2025-01-01", "2125-01-01"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "at most 365 nights")
}

func TestInvalidRateFormat(t *testing.T) {
	store, err := NewLimiterStore(nil)
	require.NoError(t, err)
	_, err = RateLimit("lots", store)
	assert.Error(t, err)
}
