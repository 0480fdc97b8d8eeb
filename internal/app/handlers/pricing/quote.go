package pricing

import (
	"context"
	"time"

	"acropolis/internal/app/dto"
	"acropolis/internal/app/handlers/support"
	"acropolis/internal/app/queries"
	"acropolis/internal/app/uow"
	domainlistings "acropolis/internal/domain/listings"
	"acropolis/internal/domain/shared/daterange"
)

const quotePriceKey = "pricing.quote"

// QuotePriceQuery prices a prospective stay. A check-out on or before the
// check-in yields a zero quote.
type QuotePriceQuery struct {
	ListingID string    `validate:"required"`
	CheckIn   time.Time `validate:"required"`
	CheckOut  time.Time `validate:"required"`
}

func (q QuotePriceQuery) Key() string { return quotePriceKey }

type QuotePriceHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *QuotePriceHandler) Handle(ctx context.Context, q QuotePriceQuery) (dto.Quote, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Quote{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(q.ListingID))
	if err != nil {
		return dto.Quote{}, err
	}
	dr := daterange.Between(q.CheckIn, q.CheckOut)
	breakdown, err := unit.Pricing().Calculate(ctx, listing, dr.CheckIn, dr.CheckOut)
	if err != nil {
		return dto.Quote{}, err
	}
	return dto.Quote{
		ListingID: string(listing.ID),
		CheckIn:   dr.CheckIn.Format(daterange.DateLayout),
		CheckOut:  dr.CheckOut.Format(daterange.DateLayout),
		Price:     dto.MapPriceBreakdown(breakdown),
	}, nil
}

var _ queries.Handler[QuotePriceQuery, dto.Quote] = (*QuotePriceHandler)(nil)
