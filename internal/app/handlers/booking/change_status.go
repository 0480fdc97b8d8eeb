package booking

import (
	"context"
	"log/slog"

	"acropolis/internal/app/commands"
	"acropolis/internal/app/dto"
	"acropolis/internal/app/handlers/support"
	"acropolis/internal/app/policies"
	domainbooking "acropolis/internal/domain/booking"
)

const changeStatusKey = "booking.change_status"

type ChangeBookingStatusCommand struct {
	BookingID string `validate:"required"`
	Status    string `validate:"required,oneof=pending confirmed checked_in completed cancelled"`
}

func (c ChangeBookingStatusCommand) Key() string { return changeStatusKey }

func (c ChangeBookingStatusCommand) RequiresActor() bool { return true }

// ChangeBookingStatusHandler drives the lifecycle state machine. Confirmed
// bookings get a receipt archived; archive failures never block the change.
type ChangeBookingStatusHandler struct {
	Deps
	Receipts policies.ReceiptArchive
	Logger   *slog.Logger
}

func (h *ChangeBookingStatusHandler) Handle(ctx context.Context, cmd ChangeBookingStatusCommand) (*dto.Booking, error) {
	unit, err := support.RequireUnit(ctx)
	if err != nil {
		return nil, err
	}
	next, err := domainbooking.ParseStatus(cmd.Status)
	if err != nil {
		return nil, err
	}
	b, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, err
	}
	if err := b.TransitionTo(next, h.now()); err != nil {
		return nil, err
	}
	if err := h.persist(ctx, unit, b); err != nil {
		return nil, err
	}
	out := dto.MapBooking(b)
	if next == domainbooking.StatusConfirmed && h.Receipts != nil {
		url, err := h.Receipts.ArchiveReceipt(ctx, dto.MapReceipt(b))
		if err != nil {
			h.logger().WarnContext(ctx, "receipt archive failed", "booking_id", b.ID, "error", err)
		} else {
			out.ReceiptURL = url
		}
	}
	return &out, nil
}

func (h *ChangeBookingStatusHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

var _ commands.Handler[ChangeBookingStatusCommand, *dto.Booking] = (*ChangeBookingStatusHandler)(nil)
