package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"acropolis/internal/app/commands"
	"acropolis/internal/app/dto"
	"acropolis/internal/app/handlers/support"
	domainbooking "acropolis/internal/domain/booking"
	domainlistings "acropolis/internal/domain/listings"
	"acropolis/internal/domain/shared/daterange"
)

const updateBookingKey = "booking.update"

// UpdateBookingCommand is a partial update; nil fields keep their value.
type UpdateBookingCommand struct {
	BookingID   string     `validate:"required"`
	ListingID   *string    `validate:"omitempty,min=1"`
	CheckIn     *time.Time `validate:"omitempty"`
	CheckOut    *time.Time `validate:"omitempty"`
	Adults      *int       `validate:"omitempty,gte=0"`
	Children    *int       `validate:"omitempty,gte=0"`
	FirstName   *string    `validate:"omitempty,max=255"`
	LastName    *string    `validate:"omitempty,max=255"`
	Email       *string    `validate:"omitempty,email"`
	PhoneNumber *string    `validate:"omitempty,max=32"`
	Message     *string    `validate:"omitempty,max=2000"`
	Language    *string    `validate:"omitempty,oneof=en el"`
}

func (c UpdateBookingCommand) Key() string { return updateBookingKey }

// UpdateBookingHandler applies lifecycle rules to booking edits: a changed
// stay is repriced and its nights regenerated in the same unit of work.
type UpdateBookingHandler struct {
	Deps
}

func (h *UpdateBookingHandler) Handle(ctx context.Context, cmd UpdateBookingCommand) (*dto.Booking, error) {
	unit, err := support.RequireUnit(ctx)
	if err != nil {
		return nil, err
	}
	b, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, err
	}
	now := h.now()

	listingID := b.ListingID
	if cmd.ListingID != nil {
		listingID = domainlistings.ListingID(strings.TrimSpace(*cmd.ListingID))
	}
	checkIn, checkOut := b.Range.CheckIn, b.Range.CheckOut
	if cmd.CheckIn != nil {
		checkIn = *cmd.CheckIn
	}
	if cmd.CheckOut != nil {
		checkOut = *cmd.CheckOut
	}
	dr := daterange.Between(checkIn, checkOut)
	adults, children := b.Adults, b.Children
	if cmd.Adults != nil {
		adults = *cmd.Adults
	}
	if cmd.Children != nil {
		children = *cmd.Children
	}

	stayChanged := listingID != b.ListingID || !dr.Equal(b.Range)
	if stayChanged {
		if err := b.ChangeStay(listingID, dr); err != nil {
			return nil, err
		}
		listing, err := unit.Listings().ByID(ctx, listingID)
		if err != nil {
			return nil, err
		}
		if err := domainbooking.ValidateGuests(listing, adults, children); err != nil {
			return nil, err
		}
		if err := unit.Listings().Lock(ctx, listing.ID); err != nil {
			return nil, fmt.Errorf("lock listing %s: %w", listing.ID, err)
		}
		existing, err := unit.Bookings().Overlapping(ctx, listing.ID, dr, b.ID)
		if err != nil {
			return nil, err
		}
		if err := domainbooking.EnsureNoOverlap(existing, dr, b.ID); err != nil {
			return nil, err
		}
		price, err := unit.Pricing().Calculate(ctx, listing, dr.CheckIn, dr.CheckOut)
		if err != nil {
			return nil, err
		}
		if err := b.Reschedule(listing, dr, adults, children, price, now); err != nil {
			return nil, err
		}
		if err := unit.Nights().ReplaceForBooking(ctx, b.ID, b.Nights()); err != nil {
			return nil, err
		}
	} else if adults != b.Adults || children != b.Children {
		listing, err := unit.Listings().ByID(ctx, b.ListingID)
		if err != nil {
			return nil, err
		}
		if err := b.ChangeGuests(listing, adults, children, now); err != nil {
			return nil, err
		}
	}

	if guest, changed := mergeGuest(b.Guest, cmd); changed {
		if err := b.UpdateGuest(guest, now); err != nil {
			return nil, err
		}
	}
	if err := h.persist(ctx, unit, b); err != nil {
		return nil, err
	}
	out := dto.MapBooking(b)
	return &out, nil
}

func mergeGuest(g domainbooking.Guest, cmd UpdateBookingCommand) (domainbooking.Guest, bool) {
	changed := false
	set := func(dst *string, src *string) {
		if src != nil && *src != *dst {
			*dst = *src
			changed = true
		}
	}
	set(&g.FirstName, cmd.FirstName)
	set(&g.LastName, cmd.LastName)
	set(&g.Email, cmd.Email)
	set(&g.PhoneNumber, cmd.PhoneNumber)
	set(&g.Message, cmd.Message)
	if cmd.Language != nil && domainbooking.Language(*cmd.Language) != g.Language {
		g.Language = domainbooking.Language(*cmd.Language)
		changed = true
	}
	return g, changed
}

var _ commands.Handler[UpdateBookingCommand, *dto.Booking] = (*UpdateBookingHandler)(nil)
