package availability

import (
	"context"
	"fmt"
	"time"

	"acropolis/internal/app/dto"
	"acropolis/internal/app/handlers/support"
	"acropolis/internal/app/queries"
	"acropolis/internal/app/uow"
	domainavailability "acropolis/internal/domain/availability"
	domainlistings "acropolis/internal/domain/listings"
	"acropolis/internal/domain/shared/daterange"
	"acropolis/internal/domain/shared/domainerr"
)

const (
	getAvailabilityKey      = "availability.get"
	getUnavailableRangesKey = "availability.unavailable_ranges"
)

var ErrWindowTooLarge = domainerr.Validation(fmt.Sprintf("Availability can be requested for at most %d days.", domainavailability.MaxWindow))

// GetAvailabilityQuery covers nights in [Start, End).
type GetAvailabilityQuery struct {
	ListingID string    `validate:"required"`
	Start     time.Time `validate:"required"`
	End       time.Time `validate:"required"`
}

func (q GetAvailabilityQuery) Key() string { return getAvailabilityKey }

type GetAvailabilityHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetAvailabilityHandler) Handle(ctx context.Context, q GetAvailabilityQuery) (dto.Availability, error) {
	dr := daterange.Between(q.Start, q.End)
	if dr.Nights() > domainavailability.MaxWindow {
		return dto.Availability{}, ErrWindowTooLarge
	}
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Availability{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(q.ListingID))
	if err != nil {
		return dto.Availability{}, err
	}
	days, err := unit.Availability().GetAvailability(ctx, listing, dr.CheckIn, dr.CheckOut)
	if err != nil {
		return dto.Availability{}, err
	}
	return dto.MapAvailability(string(listing.ID), listing.Currency, days), nil
}

type GetUnavailableRangesQuery struct {
	ListingID string `validate:"required"`
}

func (q GetUnavailableRangesQuery) Key() string { return getUnavailableRangesKey }

// GetUnavailableRangesHandler lists booked stretches as half-open ranges.
type GetUnavailableRangesHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetUnavailableRangesHandler) Handle(ctx context.Context, q GetUnavailableRangesQuery) ([]dto.DateRange, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(q.ListingID))
	if err != nil {
		return nil, err
	}
	ranges, err := unit.Availability().GetUnavailableRanges(ctx, listing.ID)
	if err != nil {
		return nil, err
	}
	return dto.MapDateRanges(ranges), nil
}

var (
	_ queries.Handler[GetAvailabilityQuery, dto.Availability]      = (*GetAvailabilityHandler)(nil)
	_ queries.Handler[GetUnavailableRangesQuery, []dto.DateRange] = (*GetUnavailableRangesHandler)(nil)
)
