package handlers_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acropolis/internal/app/commands"
	"acropolis/internal/app/dto"
	"acropolis/internal/app/handlers"
	availabilityapp "acropolis/internal/app/handlers/availability"
	bookingapp "acropolis/internal/app/handlers/booking"
	listingsapp "acropolis/internal/app/handlers/listings"
	pricingapp "acropolis/internal/app/handlers/pricing"
	"acropolis/internal/app/middleware"
	appoutbox "acropolis/internal/app/outbox"
	"acropolis/internal/app/queries"
	"acropolis/internal/domain/shared/daterange"
	"acropolis/internal/domain/shared/domainerr"
	"acropolis/internal/infra/storage/memory"
)

type (
	availabilityQuery = availabilityapp.GetUnavailableRangesQuery
	quoteQuery        = pricingapp.QuotePriceQuery
)

var fixedNow = time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)

type fakeReceipts struct {
	archived []dto.Receipt
	err      error
}

func (f *fakeReceipts) ArchiveReceipt(_ context.Context, receipt dto.Receipt) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.archived = append(f.archived, receipt)
	return "https://receipts.example.com/" + receipt.Reference + ".json", nil
}

type failingOutbox struct{}

func (failingOutbox) Add(context.Context, appoutbox.EventRecord) error { return errors.New("outbox down") }
func (failingOutbox) Flush(context.Context) error                    { return nil }

type harness struct {
	store    *memory.Store
	commands commands.Bus
	queries  queries.Bus
	receipts *fakeReceipts
	admin    context.Context
}

func newHarness(t *testing.T) harness {
	t.Helper()
	store := memory.NewStore()
	receipts := &fakeReceipts{}
	cmdBus, queryBus := handlers.Buses(handlers.Dependencies{
		UoW:      memory.NewFactory(store),
		Outbox:   store.Outbox(),
		Receipts: receipts,
		Now:      func() time.Time { return fixedNow },
	}, memory.NewIdempotencyStore(time.Hour))
	h := harness{
		store:    store,
		commands: cmdBus,
		queries:  queryBus,
		receipts: receipts,
		admin:    middleware.ContextWithActor(context.Background(), "maria"),
	}
	h.saveListing(t, "villa-1", 4)
	h.saveListing(t, "studio-2", 2)
	return h
}

func (h harness) saveListing(t *testing.T, id string, maxGuests int) {
	t.Helper()
	_, err := commands.Dispatch[listingsapp.SaveListingCommand, *listingsapp.SaveListingResult](h.admin, h.commands, listingsapp.SaveListingCommand{
		ID:             id,
		Currency:       "EUR",
		NightlyPrice:   decimal.RequireFromString("100"),
		VATRate:        decimal.RequireFromString("13"),
		CleaningFee:    decimal.RequireFromString("30"),
		ServiceFeeRate: decimal.RequireFromString("5"),
		MaxGuests:      maxGuests,
		MaxAdults:      maxGuests,
		MaxChildren:    1,
	})
	require.NoError(t, err)
}

func day(value string) time.Time {
	d, err := daterange.ParseDay(value)
	if err != nil {
		panic(err)
	}
	return d
}

func (h harness) create(ctx context.Context, listing, checkIn, checkOut string) (*dto.Booking, error) {
	return commands.Dispatch[bookingapp.CreateBookingCommand, *dto.Booking](ctx, h.commands, bookingapp.CreateBookingCommand{
		ListingID: listing,
		CheckIn:   day(checkIn),
		CheckOut:  day(checkOut),
		Adults:    2,
		FirstName: "Nikos",
		LastName:  "Georgiou",
		Email:     "nikos@example.com",
	})
}

func (h harness) get(t *testing.T, id string) dto.Booking {
	t.Helper()
	out, err := queries.Ask[bookingapp.GetBookingQuery, dto.Booking](context.Background(), h.queries, bookingapp.GetBookingQuery{BookingID: id})
	require.NoError(t, err)
	return out
}

func (h harness) booked(t *testing.T, listing string) []dto.DateRange {
	t.Helper()
	out, err := queries.Ask[availabilityQuery, []dto.DateRange](context.Background(), h.queries, availabilityQuery{ListingID: listing})
	require.NoError(t, err)
	return out
}

func TestCreateBookingStoresNightsAndEvents(t *testing.T) {
	h := newHarness(t)
	before := len(h.store.Outbox().Pending())

	b, err := h.create(context.Background(), "villa-1", "2025-05-01", "2025-05-04")
	require.NoError(t, err)
	assert.Equal(t, 3, b.Price.Nights)
	assert.Equal(t, "300.00", b.Price.Subtotal)
	assert.Equal(t, "15.00", b.Price.ServiceFee)
	assert.Equal(t, "39.00", b.Price.VAT)
	assert.Equal(t, "384.00", b.Price.Total)
	assert.Equal(t, fixedNow, b.CreatedAt)

	got := h.get(t, b.ID)
	assert.Len(t, got.Price.Nightly, 3)
	assert.Equal(t, []dto.DateRange{{CheckIn: "2025-05-01", CheckOut: "2025-05-04"}}, h.booked(t, "villa-1"))

	pending := h.store.Outbox().Pending()
	require.Len(t, pending, before+1)
	assert.Equal(t, "booking.requested", pending[len(pending)-1].Name)
	assert.Equal(t, b.ID, pending[len(pending)-1].Aggregate)
}

func TestFailedCommandLeavesNoPartialBooking(t *testing.T) {
	store := memory.NewStore()
	cmdBus, queryBus := handlers.Buses(handlers.Dependencies{UoW: memory.NewFactory(store)}, nil)
	admin := middleware.ContextWithActor(context.Background(), "maria")
	_, err := commands.Dispatch[listingsapp.SaveListingCommand, *listingsapp.SaveListingResult](admin, cmdBus, listingsapp.SaveListingCommand{
		ID: "villa-1", Currency: "EUR", NightlyPrice: decimal.RequireFromString("80"), MaxGuests: 2, MaxAdults: 2,
	})
	require.NoError(t, err)

	broken, _ := handlers.Buses(handlers.Dependencies{UoW: memory.NewFactory(store), Outbox: failingOutbox{}}, nil)
	_, err = commands.Dispatch[bookingapp.CreateBookingCommand, *dto.Booking](context.Background(), broken, bookingapp.CreateBookingCommand{
		ListingID: "villa-1",
		CheckIn:   day("2025-05-01"),
		CheckOut:  day("2025-05-03"),
		Adults:    1,
		FirstName: "Nikos",
		LastName:  "Georgiou",
		Email:     "nikos@example.com",
	})
	require.Error(t, err)

	list, err := queries.Ask[bookingapp.ListBookingsQuery, dto.BookingList](context.Background(), queryBus, bookingapp.ListBookingsQuery{})
	require.NoError(t, err)
	assert.Empty(t, list.Items)
	ranges, err := queries.Ask[availabilityQuery, []dto.DateRange](context.Background(), queryBus, availabilityQuery{ListingID: "villa-1"})
	require.NoError(t, err)
	assert.Empty(t, ranges)
}

func TestUpdateBookingRepricesAndRegeneratesNights(t *testing.T) {
	h := newHarness(t)
	b, err := h.create(context.Background(), "villa-1", "2025-05-01", "2025-05-03")
	require.NoError(t, err)

	_, err = commands.Dispatch[listingsapp.SetPriceOverrideCommand, *dto.PriceOverride](h.admin, h.commands, listingsapp.SetPriceOverrideCommand{
		ListingID: "studio-2", Date: day("2025-06-11"), Price: decimal.RequireFromString("150"),
	})
	require.NoError(t, err)

	listing := "studio-2"
	checkIn, checkOut := day("2025-06-10"), day("2025-06-12")
	updated, err := commands.Dispatch[bookingapp.UpdateBookingCommand, *dto.Booking](context.Background(), h.commands, bookingapp.UpdateBookingCommand{
		BookingID: b.ID,
		ListingID: &listing,
		CheckIn:   &checkIn,
		CheckOut:  &checkOut,
	})
	require.NoError(t, err)
	assert.Equal(t, "studio-2", updated.ListingID)
	assert.Equal(t, "250.00", updated.Price.Subtotal)

	got := h.get(t, b.ID)
	require.Len(t, got.Price.Nightly, 2)
	assert.Equal(t, "2025-06-10", got.Price.Nightly[0].Date)
	assert.Equal(t, "150.00", got.Price.Nightly[1].Price)
	assert.Empty(t, h.booked(t, "villa-1"))
	assert.Equal(t, []dto.DateRange{{CheckIn: "2025-06-10", CheckOut: "2025-06-12"}}, h.booked(t, "studio-2"))
}

func TestGuestOnlyUpdateKeepsFrozenPrice(t *testing.T) {
	h := newHarness(t)
	b, err := h.create(context.Background(), "villa-1", "2025-05-01", "2025-05-03")
	require.NoError(t, err)

	_, err = commands.Dispatch[listingsapp.SaveListingCommand, *listingsapp.SaveListingResult](h.admin, h.commands, listingsapp.SaveListingCommand{
		ID: "villa-1", Currency: "EUR", NightlyPrice: decimal.RequireFromString("500"), MaxGuests: 4, MaxAdults: 4,
	})
	require.NoError(t, err)

	phone := "+30 210 0000000"
	updated, err := commands.Dispatch[bookingapp.UpdateBookingCommand, *dto.Booking](context.Background(), h.commands, bookingapp.UpdateBookingCommand{
		BookingID:   b.ID,
		PhoneNumber: &phone,
	})
	require.NoError(t, err)
	assert.Equal(t, phone, updated.Guest.PhoneNumber)
	assert.Equal(t, b.Price.Total, updated.Price.Total)
}

func TestConfirmArchivesReceiptAndLocksDates(t *testing.T) {
	h := newHarness(t)
	b, err := h.create(context.Background(), "villa-1", "2025-05-01", "2025-05-03")
	require.NoError(t, err)

	_, err = commands.Dispatch[bookingapp.ChangeBookingStatusCommand, *dto.Booking](context.Background(), h.commands, bookingapp.ChangeBookingStatusCommand{BookingID: b.ID, Status: "confirmed"})
	assert.True(t, domainerr.IsForbidden(err))

	confirmed, err := commands.Dispatch[bookingapp.ChangeBookingStatusCommand, *dto.Booking](h.admin, h.commands, bookingapp.ChangeBookingStatusCommand{BookingID: b.ID, Status: "confirmed"})
	require.NoError(t, err)
	assert.Equal(t, "confirmed", confirmed.Status)
	assert.Equal(t, "frozen", confirmed.PricingState)
	assert.Equal(t, "https://receipts.example.com/"+b.Reference+".json", confirmed.ReceiptURL)
	require.Len(t, h.receipts.archived, 1)
	assert.Equal(t, b.Reference, h.receipts.archived[0].Reference)

	checkOut := day("2025-05-05")
	_, err = commands.Dispatch[bookingapp.UpdateBookingCommand, *dto.Booking](context.Background(), h.commands, bookingapp.UpdateBookingCommand{BookingID: b.ID, CheckOut: &checkOut})
	assert.True(t, domainerr.IsValidation(err))

	_, err = commands.Dispatch[bookingapp.ChangeBookingStatusCommand, *dto.Booking](h.admin, h.commands, bookingapp.ChangeBookingStatusCommand{BookingID: b.ID, Status: "pending"})
	assert.True(t, domainerr.IsValidation(err))
}

func TestReceiptFailureDoesNotBlockConfirmation(t *testing.T) {
	h := newHarness(t)
	h.receipts.err = errors.New("bucket unavailable")
	b, err := h.create(context.Background(), "villa-1", "2025-05-01", "2025-05-03")
	require.NoError(t, err)

	confirmed, err := commands.Dispatch[bookingapp.ChangeBookingStatusCommand, *dto.Booking](h.admin, h.commands, bookingapp.ChangeBookingStatusCommand{BookingID: b.ID, Status: "confirmed"})
	require.NoError(t, err)
	assert.Equal(t, "confirmed", confirmed.Status)
	assert.Empty(t, confirmed.ReceiptURL)
}

func TestCancelledBookingFreesDates(t *testing.T) {
	h := newHarness(t)
	b, err := h.create(context.Background(), "villa-1", "2025-05-01", "2025-05-03")
	require.NoError(t, err)
	_, err = h.create(context.Background(), "villa-1", "2025-05-02", "2025-05-04")
	require.True(t, domainerr.IsValidation(err))

	_, err = commands.Dispatch[bookingapp.ChangeBookingStatusCommand, *dto.Booking](h.admin, h.commands, bookingapp.ChangeBookingStatusCommand{BookingID: b.ID, Status: "cancelled"})
	require.NoError(t, err)
	assert.Empty(t, h.booked(t, "villa-1"))

	_, err = h.create(context.Background(), "villa-1", "2025-05-02", "2025-05-04")
	require.NoError(t, err)
}

func TestDiscountLifecycleAndStatistics(t *testing.T) {
	h := newHarness(t)
	b, err := h.create(context.Background(), "villa-1", "2025-05-01", "2025-05-03")
	require.NoError(t, err)
	_, err = h.create(context.Background(), "studio-2", "2025-05-01", "2025-05-02")
	require.NoError(t, err)

	discounted, err := commands.Dispatch[bookingapp.ApplyDiscountCommand, *dto.Booking](h.admin, h.commands, bookingapp.ApplyDiscountCommand{
		BookingID: b.ID, Type: "fixed", Value: decimal.RequireFromString("50"), Reason: "returning guest",
	})
	require.NoError(t, err)
	assert.Equal(t, "50.00", discounted.Price.DiscountAmount)
	assert.Equal(t, "frozen", discounted.PricingState)
	require.NotNil(t, discounted.Discount)
	assert.Equal(t, "maria", discounted.Discount.AppliedBy)

	checkOut := day("2025-05-04")
	_, err = commands.Dispatch[bookingapp.UpdateBookingCommand, *dto.Booking](context.Background(), h.commands, bookingapp.UpdateBookingCommand{BookingID: b.ID, CheckOut: &checkOut})
	assert.True(t, domainerr.IsValidation(err))

	_, err = commands.Dispatch[bookingapp.ApplyDiscountCommand, *dto.Booking](h.admin, h.commands, bookingapp.ApplyDiscountCommand{
		BookingID: b.ID, Type: "fixed", Value: decimal.RequireFromString("5000"),
	})
	assert.True(t, domainerr.IsValidation(err))

	stats, err := queries.Ask[bookingapp.BookingStatisticsQuery, dto.BookingStatistics](context.Background(), h.queries, bookingapp.BookingStatisticsQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalBookings)
	assert.Equal(t, 2, stats.ByStatus["pending"])
	assert.Equal(t, 0, stats.ByStatus["cancelled"])
	assert.Equal(t, 1, stats.WithDiscount)
	assert.Equal(t, map[string]string{"EUR": "50.00"}, stats.TotalDiscountsGiven)

	restored, err := commands.Dispatch[bookingapp.RemoveDiscountCommand, *dto.Booking](h.admin, h.commands, bookingapp.RemoveDiscountCommand{BookingID: b.ID})
	require.NoError(t, err)
	assert.Nil(t, restored.Discount)
	assert.Equal(t, "recalculable", restored.PricingState)
	assert.Equal(t, b.Price.Total, restored.Price.Total)

	_, err = commands.Dispatch[bookingapp.RemoveDiscountCommand, *dto.Booking](h.admin, h.commands, bookingapp.RemoveDiscountCommand{BookingID: b.ID})
	assert.True(t, domainerr.IsValidation(err))
}

func TestDeleteBookingRemovesNights(t *testing.T) {
	h := newHarness(t)
	b, err := h.create(context.Background(), "villa-1", "2025-05-01", "2025-05-03")
	require.NoError(t, err)

	_, err = commands.Dispatch[bookingapp.DeleteBookingCommand, *bookingapp.DeleteBookingResult](context.Background(), h.commands, bookingapp.DeleteBookingCommand{BookingID: b.ID})
	assert.True(t, domainerr.IsForbidden(err))

	res, err := commands.Dispatch[bookingapp.DeleteBookingCommand, *bookingapp.DeleteBookingResult](h.admin, h.commands, bookingapp.DeleteBookingCommand{BookingID: b.ID})
	require.NoError(t, err)
	assert.True(t, res.Deleted)
	assert.Empty(t, h.booked(t, "villa-1"))

	_, err = queries.Ask[bookingapp.GetBookingQuery, dto.Booking](context.Background(), h.queries, bookingapp.GetBookingQuery{BookingID: b.ID})
	assert.True(t, domainerr.IsNotFound(err))
}

func TestSeasonsMayNotOverlap(t *testing.T) {
	h := newHarness(t)
	add := func(start, end string) error {
		_, err := commands.Dispatch[listingsapp.AddSeasonCommand, *dto.SeasonalPrice](h.admin, h.commands, listingsapp.AddSeasonCommand{
			ListingID: "villa-1", StartDate: day(start), EndDate: day(end), Price: decimal.RequireFromString("180"),
		})
		return err
	}
	require.NoError(t, add("2025-07-01", "2025-08-01"))
	assert.True(t, domainerr.IsValidation(add("2025-07-15", "2025-08-15")))
	require.NoError(t, add("2025-08-01", "2025-09-01"))

	quote, err := queries.Ask[quoteQuery, dto.Quote](context.Background(), h.queries, quoteQuery{ListingID: "villa-1", CheckIn: day("2025-06-30"), CheckOut: day("2025-07-02")})
	require.NoError(t, err)
	assert.Equal(t, "280.00", quote.Price.Subtotal)
}

func TestListingCurrencyIsFixed(t *testing.T) {
	h := newHarness(t)
	_, err := commands.Dispatch[listingsapp.SetPriceOverrideCommand, *dto.PriceOverride](h.admin, h.commands, listingsapp.SetPriceOverrideCommand{
		ListingID: "villa-1", Date: day("2025-05-02"), Price: decimal.RequireFromString("150"),
	})
	require.NoError(t, err)

	_, err = commands.Dispatch[listingsapp.SaveListingCommand, *listingsapp.SaveListingResult](h.admin, h.commands, listingsapp.SaveListingCommand{
		ID: "villa-1", Currency: "USD", NightlyPrice: decimal.RequireFromString("100"), MaxGuests: 4, MaxAdults: 4,
	})
	require.Error(t, err)
	assert.True(t, domainerr.IsValidation(err))

	quote, err := queries.Ask[quoteQuery, dto.Quote](context.Background(), h.queries, quoteQuery{ListingID: "villa-1", CheckIn: day("2025-05-01"), CheckOut: day("2025-05-03")})
	require.NoError(t, err)
	assert.Equal(t, "250.00", quote.Price.Subtotal)
	_, err = h.create(context.Background(), "villa-1", "2025-05-01", "2025-05-03")
	require.NoError(t, err)
}

func TestStayLengthIsBounded(t *testing.T) {
	h := newHarness(t)

	_, err := queries.Ask[quoteQuery, dto.Quote](context.Background(), h.queries, quoteQuery{ListingID: "villa-1", CheckIn: day("2025-01-01"), CheckOut: day("2125-01-01")})
	assert.True(t, domainerr.IsValidation(err))

	_, err = h.create(context.Background(), "villa-1", "2025-01-01", "2125-01-01")
	assert.True(t, domainerr.IsValidation(err))
	assert.Empty(t, h.booked(t, "villa-1"))

	b, err := h.create(context.Background(), "villa-1", "2025-05-01", "2025-05-03")
	require.NoError(t, err)
	checkOut := day("2125-05-03")
	_, err = commands.Dispatch[bookingapp.UpdateBookingCommand, *dto.Booking](context.Background(), h.commands, bookingapp.UpdateBookingCommand{BookingID: b.ID, CheckOut: &checkOut})
	assert.True(t, domainerr.IsValidation(err))
	assert.Equal(t, []dto.DateRange{{CheckIn: "2025-05-01", CheckOut: "2025-05-03"}}, h.booked(t, "villa-1"))
}

func TestRegisteredKeys(t *testing.T) {
	cmdBus := commands.NewInMemoryBus()
	handlers.RegisterCommands(cmdBus, handlers.Dependencies{})
	assert.Equal(t, []string{
		"booking.apply_discount",
		"booking.change_status",
		"booking.create",
		"booking.delete",
		"booking.remove_discount",
		"booking.update",
		"listing.add_season",
		"listing.save",
		"listing.set_override",
	}, cmdBus.Keys())

	queryBus := queries.NewInMemoryBus()
	handlers.RegisterQueries(queryBus, handlers.Dependencies{})
	assert.Len(t, queryBus.Keys(), 6)
}
