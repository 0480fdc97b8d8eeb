package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"acropolis/internal/app/commands"
	"acropolis/internal/app/dto"
	"acropolis/internal/app/handlers/support"
	"acropolis/internal/app/middleware"
	domainbooking "acropolis/internal/domain/booking"
	domainlistings "acropolis/internal/domain/listings"
	"acropolis/internal/domain/shared/daterange"
)

const createBookingKey = "booking.create"

type CreateBookingCommand struct {
	ListingID   string    `validate:"required"`
	CheckIn     time.Time `validate:"required"`
	CheckOut    time.Time `validate:"required"`
	Adults      int       `validate:"gte=0"`
	Children    int       `validate:"gte=0"`
	FirstName   string    `validate:"required,max=255"`
	LastName    string    `validate:"required,max=255"`
	Email       string    `validate:"required,email"`
	PhoneNumber string    `validate:"max=32"`
	Message     string    `validate:"max=2000"`
	Language    string    `validate:"omitempty,oneof=en el"`

	IdempotencyKeyV string
}

func (c CreateBookingCommand) Key() string { return createBookingKey }

func (c CreateBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c CreateBookingCommand) ResultPrototype() any { return &dto.Booking{} }

// CreateBookingHandler prices and stores a pending booking with its nights.
// The listing lock taken first keeps the overlap check and the write atomic.
type CreateBookingHandler struct {
	Deps
}

func (h *CreateBookingHandler) Handle(ctx context.Context, cmd CreateBookingCommand) (*dto.Booking, error) {
	unit, err := support.RequireUnit(ctx)
	if err != nil {
		return nil, err
	}
	dr := daterange.Between(cmd.CheckIn, cmd.CheckOut)
	if err := domainbooking.ValidateStay(dr); err != nil {
		return nil, err
	}

	listingID := domainlistings.ListingID(strings.TrimSpace(cmd.ListingID))
	listing, err := unit.Listings().ByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if err := domainbooking.ValidateGuests(listing, cmd.Adults, cmd.Children); err != nil {
		return nil, err
	}
	if err := unit.Listings().Lock(ctx, listing.ID); err != nil {
		return nil, fmt.Errorf("lock listing %s: %w", listing.ID, err)
	}
	existing, err := unit.Bookings().Overlapping(ctx, listing.ID, dr, "")
	if err != nil {
		return nil, err
	}
	if err := domainbooking.EnsureNoOverlap(existing, dr, ""); err != nil {
		return nil, err
	}

	price, err := unit.Pricing().Calculate(ctx, listing, dr.CheckIn, dr.CheckOut)
	if err != nil {
		return nil, err
	}
	reference, err := domainbooking.UniqueReference(ctx, unit.Bookings(), referenceAttempts)
	if err != nil {
		return nil, err
	}
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:        domainbooking.BookingID(uuid.NewString()),
		Reference: reference,
		Listing:   listing,
		Guest: domainbooking.Guest{
			FirstName:   cmd.FirstName,
			LastName:    cmd.LastName,
			Email:       cmd.Email,
			PhoneNumber: cmd.PhoneNumber,
			Message:     cmd.Message,
			Language:    domainbooking.Language(cmd.Language),
		},
		Range:     dr,
		Adults:    cmd.Adults,
		Children:  cmd.Children,
		Price:     price,
		CreatedAt: h.now(),
	})
	if err != nil {
		return nil, err
	}
	if err := h.persist(ctx, unit, b); err != nil {
		return nil, err
	}
	if err := unit.Nights().ReplaceForBooking(ctx, b.ID, b.Nights()); err != nil {
		return nil, err
	}
	out := dto.MapBooking(b)
	out.Price.Nightly = dto.MapPriceBreakdown(b.Price).Nightly
	return &out, nil
}

var _ commands.Handler[CreateBookingCommand, *dto.Booking] = (*CreateBookingHandler)(nil)
var _ middleware.IdempotentCommand = CreateBookingCommand{}
