package handlers

import (
	"log/slog"
	"time"

	"acropolis/internal/app/commands"
	"acropolis/internal/app/dto"
	availabilityapp "acropolis/internal/app/handlers/availability"
	bookingapp "acropolis/internal/app/handlers/booking"
	listingsapp "acropolis/internal/app/handlers/listings"
	pricingapp "acropolis/internal/app/handlers/pricing"
	"acropolis/internal/app/middleware"
	"acropolis/internal/app/outbox"
	"acropolis/internal/app/policies"
	"acropolis/internal/app/queries"
	"acropolis/internal/app/uow"
)

// Dependencies are shared by every registered handler. Receipts and Logger
// are optional.
type Dependencies struct {
	UoW      uow.UoWFactory
	Outbox   outbox.Outbox
	Encoder  outbox.EventEncoder
	Receipts policies.ReceiptArchive
	Logger   *slog.Logger
	Now      func() time.Time
}

// RegisterCommands attaches every write handler to bus.
func RegisterCommands(bus *commands.InMemoryBus, deps Dependencies) {
	booking := bookingapp.Deps{Outbox: deps.Outbox, Encoder: deps.Encoder, Now: deps.Now}
	rateCard := listingsapp.RateCardDeps{Outbox: deps.Outbox, Encoder: deps.Encoder, Now: deps.Now}

	commands.RegisterHandler[bookingapp.CreateBookingCommand, *dto.Booking](bus, bookingapp.CreateBookingCommand{}.Key(), &bookingapp.CreateBookingHandler{Deps: booking})
	commands.RegisterHandler[bookingapp.UpdateBookingCommand, *dto.Booking](bus, bookingapp.UpdateBookingCommand{}.Key(), &bookingapp.UpdateBookingHandler{Deps: booking})
	commands.RegisterHandler[bookingapp.DeleteBookingCommand, *bookingapp.DeleteBookingResult](bus, bookingapp.DeleteBookingCommand{}.Key(), &bookingapp.DeleteBookingHandler{Deps: booking})
	commands.RegisterHandler[bookingapp.ChangeBookingStatusCommand, *dto.Booking](bus, bookingapp.ChangeBookingStatusCommand{}.Key(), &bookingapp.ChangeBookingStatusHandler{
		Deps:     booking,
		Receipts: deps.Receipts,
		Logger:   deps.Logger,
	})
	commands.RegisterHandler[bookingapp.ApplyDiscountCommand, *dto.Booking](bus, bookingapp.ApplyDiscountCommand{}.Key(), &bookingapp.ApplyDiscountHandler{Deps: booking})
	commands.RegisterHandler[bookingapp.RemoveDiscountCommand, *dto.Booking](bus, bookingapp.RemoveDiscountCommand{}.Key(), &bookingapp.RemoveDiscountHandler{Deps: booking})

	commands.RegisterHandler[listingsapp.SaveListingCommand, *listingsapp.SaveListingResult](bus, listingsapp.SaveListingCommand{}.Key(), &listingsapp.SaveListingHandler{RateCardDeps: rateCard})
	commands.RegisterHandler[listingsapp.SetPriceOverrideCommand, *dto.PriceOverride](bus, listingsapp.SetPriceOverrideCommand{}.Key(), &listingsapp.SetPriceOverrideHandler{RateCardDeps: rateCard})
	commands.RegisterHandler[listingsapp.AddSeasonCommand, *dto.SeasonalPrice](bus, listingsapp.AddSeasonCommand{}.Key(), &listingsapp.AddSeasonHandler{RateCardDeps: rateCard})
}

// RegisterQueries attaches every read handler to bus.
func RegisterQueries(bus *queries.InMemoryBus, deps Dependencies) {
	queries.RegisterHandler[bookingapp.GetBookingQuery, dto.Booking](bus, bookingapp.GetBookingQuery{}.Key(), &bookingapp.GetBookingHandler{UoWFactory: deps.UoW})
	queries.RegisterHandler[bookingapp.ListBookingsQuery, dto.BookingList](bus, bookingapp.ListBookingsQuery{}.Key(), &bookingapp.ListBookingsHandler{UoWFactory: deps.UoW})
	queries.RegisterHandler[bookingapp.BookingStatisticsQuery, dto.BookingStatistics](bus, bookingapp.BookingStatisticsQuery{}.Key(), &bookingapp.BookingStatisticsHandler{UoWFactory: deps.UoW})
	queries.RegisterHandler[pricingapp.QuotePriceQuery, dto.Quote](bus, pricingapp.QuotePriceQuery{}.Key(), &pricingapp.QuotePriceHandler{UoWFactory: deps.UoW})
	queries.RegisterHandler[availabilityapp.GetAvailabilityQuery, dto.Availability](bus, availabilityapp.GetAvailabilityQuery{}.Key(), &availabilityapp.GetAvailabilityHandler{UoWFactory: deps.UoW})
	queries.RegisterHandler[availabilityapp.GetUnavailableRangesQuery, []dto.DateRange](bus, availabilityapp.GetUnavailableRangesQuery{}.Key(), &availabilityapp.GetUnavailableRangesHandler{UoWFactory: deps.UoW})
}

// Buses registers every handler and wraps the buses with the standard
// pipeline. Each command runs in its own unit of work and the outbox is
// flushed once that unit commits.
func Buses(deps Dependencies, idempotency middleware.IdempotencyStore) (commands.Bus, queries.Bus) {
	commandBus := commands.NewInMemoryBus()
	RegisterCommands(commandBus, deps)
	queryBus := queries.NewInMemoryBus()
	RegisterQueries(queryBus, deps)

	validator := middleware.NewStructValidator()
	mws := []middleware.CommandMiddleware{
		middleware.Logging(deps.Logger),
		middleware.Validation(validator),
		middleware.Authorization(middleware.ActorAuthorizer{}),
	}
	if idempotency != nil {
		mws = append(mws, middleware.Idempotency(idempotency, nil))
	}
	if deps.Outbox != nil {
		mws = append(mws, middleware.OutboxFlush(deps.Outbox))
	}
	mws = append(mws, middleware.Transaction(deps.UoW, nil))

	return middleware.ChainCommands(commandBus, mws...), middleware.ChainQueries(queryBus, middleware.QueryValidation(validator))
}
