package booking

import (
	"context"

	"acropolis/internal/app/dto"
	"acropolis/internal/app/handlers/support"
	"acropolis/internal/app/queries"
	"acropolis/internal/app/uow"
	domainbooking "acropolis/internal/domain/booking"
	domainlistings "acropolis/internal/domain/listings"
	"acropolis/internal/domain/shared/daterange"
	"acropolis/internal/domain/shared/money"
)

const (
	getBookingKey        = "booking.get"
	listBookingsKey      = "booking.list"
	bookingStatisticsKey = "booking.statistics"
	defaultListLimit     = 100
)

type GetBookingQuery struct {
	BookingID string `validate:"required"`
}

func (q GetBookingQuery) Key() string { return getBookingKey }

type GetBookingHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetBookingHandler) Handle(ctx context.Context, q GetBookingQuery) (dto.Booking, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Booking{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	b, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(q.BookingID))
	if err != nil {
		return dto.Booking{}, err
	}
	out := dto.MapBooking(b)
	nights, err := unit.Nights().ForBooking(ctx, b.ID)
	if err != nil {
		return dto.Booking{}, err
	}
	out.Price.Nightly = make([]dto.NightlyPrice, 0, len(nights))
	for _, n := range nights {
		out.Price.Nightly = append(out.Price.Nightly, dto.NightlyPrice{Date: n.Date.Format(daterange.DateLayout), Price: n.Price.String()})
	}
	return out, nil
}

// ListBookingsQuery returns bookings newest first.
type ListBookingsQuery struct {
	ListingID string
	Status    string `validate:"omitempty,oneof=pending confirmed checked_in completed cancelled"`
	Limit     int    `validate:"gte=0,lte=500"`
}

func (q ListBookingsQuery) Key() string { return listBookingsKey }

type ListBookingsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListBookingsHandler) Handle(ctx context.Context, q ListBookingsQuery) (dto.BookingList, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.BookingList{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	filter := domainbooking.Filter{ListingID: domainlistings.ListingID(q.ListingID), Limit: q.Limit}
	if filter.Limit == 0 {
		filter.Limit = defaultListLimit
	}
	if q.Status != "" {
		status, err := domainbooking.ParseStatus(q.Status)
		if err != nil {
			return dto.BookingList{}, err
		}
		filter.Status = status
	}
	items, err := unit.Bookings().List(ctx, filter)
	if err != nil {
		return dto.BookingList{}, err
	}
	out := dto.BookingList{Items: make([]dto.Booking, 0, len(items))}
	for _, b := range items {
		out.Items = append(out.Items, dto.MapBooking(b))
	}
	return out, nil
}

type BookingStatisticsQuery struct {
	ListingID string
}

func (q BookingStatisticsQuery) Key() string { return bookingStatisticsKey }

// BookingStatisticsHandler aggregates booking counts and discounts given.
type BookingStatisticsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *BookingStatisticsHandler) Handle(ctx context.Context, q BookingStatisticsQuery) (dto.BookingStatistics, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.BookingStatistics{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	items, err := unit.Bookings().List(ctx, domainbooking.Filter{ListingID: domainlistings.ListingID(q.ListingID)})
	if err != nil {
		return dto.BookingStatistics{}, err
	}
	return Statistics(items), nil
}

// Statistics summarises bookings; discount totals are kept per currency.
func Statistics(items []*domainbooking.Booking) dto.BookingStatistics {
	stats := dto.BookingStatistics{
		TotalBookings:       len(items),
		ByStatus:            make(map[string]int, len(domainbooking.AllStatuses())),
		TotalDiscountsGiven: map[string]string{},
	}
	for _, s := range domainbooking.AllStatuses() {
		stats.ByStatus[string(s)] = 0
	}
	totals := map[string]money.Money{}
	for _, b := range items {
		stats.ByStatus[string(b.Status)]++
		if !b.HasDiscount() {
			continue
		}
		stats.WithDiscount++
		amount := b.Price.DiscountAmount
		current, ok := totals[amount.Currency]
		if !ok {
			current = money.Zero(amount.Currency)
		}
		if next, err := current.Add(amount); err == nil {
			totals[amount.Currency] = next
		}
	}
	for currency, total := range totals {
		stats.TotalDiscountsGiven[currency] = total.String()
	}
	return stats
}

var (
	_ queries.Handler[GetBookingQuery, dto.Booking]                  = (*GetBookingHandler)(nil)
	_ queries.Handler[ListBookingsQuery, dto.BookingList]            = (*ListBookingsHandler)(nil)
	_ queries.Handler[BookingStatisticsQuery, dto.BookingStatistics] = (*BookingStatisticsHandler)(nil)
)
