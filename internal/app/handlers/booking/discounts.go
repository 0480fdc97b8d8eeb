package booking

import (
	"context"

	"github.com/shopspring/decimal"

	"acropolis/internal/app/commands"
	"acropolis/internal/app/dto"
	"acropolis/internal/app/handlers/support"
	"acropolis/internal/app/middleware"
	domainbooking "acropolis/internal/domain/booking"
	"acropolis/internal/domain/pricing"
)

const (
	applyDiscountKey  = "booking.apply_discount"
	removeDiscountKey = "booking.remove_discount"
)

type ApplyDiscountCommand struct {
	BookingID string `validate:"required"`
	Type      string `validate:"required,oneof=percentage fixed"`
	Value     decimal.Decimal
	Reason    string `validate:"max=500"`
}

func (c ApplyDiscountCommand) Key() string { return applyDiscountKey }

func (c ApplyDiscountCommand) RequiresActor() bool { return true }

type RemoveDiscountCommand struct {
	BookingID string `validate:"required"`
}

func (c RemoveDiscountCommand) Key() string { return removeDiscountKey }

func (c RemoveDiscountCommand) RequiresActor() bool { return true }

// ApplyDiscountHandler records the acting staff member as applied_by.
type ApplyDiscountHandler struct {
	Deps
}

func (h *ApplyDiscountHandler) Handle(ctx context.Context, cmd ApplyDiscountCommand) (*dto.Booking, error) {
	unit, err := support.RequireUnit(ctx)
	if err != nil {
		return nil, err
	}
	kind, err := pricing.ParseDiscountType(cmd.Type)
	if err != nil {
		return nil, err
	}
	b, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, err
	}
	if err := b.ApplyDiscount(kind, cmd.Value, cmd.Reason, middleware.ActorFromContext(ctx), h.now()); err != nil {
		return nil, err
	}
	if err := h.persist(ctx, unit, b); err != nil {
		return nil, err
	}
	out := dto.MapBooking(b)
	return &out, nil
}

type RemoveDiscountHandler struct {
	Deps
}

func (h *RemoveDiscountHandler) Handle(ctx context.Context, cmd RemoveDiscountCommand) (*dto.Booking, error) {
	unit, err := support.RequireUnit(ctx)
	if err != nil {
		return nil, err
	}
	b, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, err
	}
	if err := b.RemoveDiscount(h.now()); err != nil {
		return nil, err
	}
	if err := h.persist(ctx, unit, b); err != nil {
		return nil, err
	}
	out := dto.MapBooking(b)
	return &out, nil
}

var _ commands.Handler[ApplyDiscountCommand, *dto.Booking] = (*ApplyDiscountHandler)(nil)
var _ commands.Handler[RemoveDiscountCommand, *dto.Booking] = (*RemoveDiscountHandler)(nil)
var _ middleware.AdminCommand = ApplyDiscountCommand{}
