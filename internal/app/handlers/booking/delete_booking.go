package booking

import (
	"context"

	"acropolis/internal/app/commands"
	"acropolis/internal/app/handlers/support"
	"acropolis/internal/app/outbox"
	domainbooking "acropolis/internal/domain/booking"
	"acropolis/internal/domain/shared/events"
)

const deleteBookingKey = "booking.delete"

type DeleteBookingCommand struct {
	BookingID string `validate:"required"`
}

func (c DeleteBookingCommand) Key() string { return deleteBookingKey }

func (c DeleteBookingCommand) RequiresActor() bool { return true }

type DeleteBookingResult struct {
	BookingID string `json:"booking_id"`
	Deleted   bool   `json:"deleted"`
}

// DeleteBookingHandler removes a booking together with its nights.
type DeleteBookingHandler struct {
	Deps
}

func (h *DeleteBookingHandler) Handle(ctx context.Context, cmd DeleteBookingCommand) (*DeleteBookingResult, error) {
	unit, err := support.RequireUnit(ctx)
	if err != nil {
		return nil, err
	}
	b, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, err
	}
	if err := unit.Nights().DeleteForBooking(ctx, b.ID); err != nil {
		return nil, err
	}
	if err := unit.Bookings().Delete(ctx, b.ID); err != nil {
		return nil, err
	}
	evt := domainbooking.BookingDeleted{BookingID: b.ID, ListingID: b.ListingID, At: h.now()}
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.encoder(), []events.DomainEvent{evt}); err != nil {
		return nil, err
	}
	return &DeleteBookingResult{BookingID: string(b.ID), Deleted: true}, nil
}

var _ commands.Handler[DeleteBookingCommand, *DeleteBookingResult] = (*DeleteBookingHandler)(nil)
