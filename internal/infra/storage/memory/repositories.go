package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	domainbooking "acropolis/internal/domain/booking"
	domainlistings "acropolis/internal/domain/listings"
	"acropolis/internal/domain/shared/daterange"
	"acropolis/internal/domain/shared/domainerr"
)

// ListingRepository reads and writes listings and their rate calendars.
type ListingRepository struct {
	store *Store
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	listing, ok := r.store.data.listings[id]
	if !ok {
		return nil, fmt.Errorf("listing %s: %w", id, domainerr.ErrNotFound)
	}
	return &listing, nil
}

func (r *ListingRepository) Save(ctx context.Context, listing *domainlistings.Listing) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.data.listings[listing.ID] = *listing
	return nil
}

// Lock is satisfied by the store-wide writer lock held by the unit.
func (r *ListingRepository) Lock(ctx context.Context, id domainlistings.ListingID) error {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	if _, ok := r.store.data.listings[id]; !ok {
		return fmt.Errorf("listing %s: %w", id, domainerr.ErrNotFound)
	}
	return nil
}

func (r *ListingRepository) Overrides(ctx context.Context, id domainlistings.ListingID, dr daterange.DateRange) ([]domainlistings.PriceOverride, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make([]domainlistings.PriceOverride, 0)
	for _, o := range r.store.data.overrides[id] {
		if dr.ContainsDate(o.Date) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (r *ListingRepository) Seasons(ctx context.Context, id domainlistings.ListingID, dr daterange.DateRange) ([]domainlistings.SeasonalPrice, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make([]domainlistings.SeasonalPrice, 0)
	for _, s := range r.store.data.seasons[id] {
		if s.Range().Overlaps(dr) {
			out = append(out, s)
		}
	}
	domainlistings.OrderSeasons(out)
	return out, nil
}

func (r *ListingRepository) SaveOverride(ctx context.Context, override domainlistings.PriceOverride) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	byDate, ok := r.store.data.overrides[override.ListingID]
	if !ok {
		byDate = make(map[string]domainlistings.PriceOverride)
		r.store.data.overrides[override.ListingID] = byDate
	}
	byDate[override.Date.Format(daterange.DateLayout)] = override
	return nil
}

func (r *ListingRepository) SaveSeason(ctx context.Context, season domainlistings.SeasonalPrice) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	seasons := r.store.data.seasons[season.ListingID]
	for i, s := range seasons {
		if s.ID == season.ID {
			seasons[i] = season
			return nil
		}
	}
	r.store.data.seasons[season.ListingID] = append(seasons, season)
	return nil
}

// BookingRepository stores bookings with optimistic versions.
type BookingRepository struct {
	store *Store
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	b, ok := r.store.data.bookings[id]
	if !ok {
		return nil, fmt.Errorf("booking %s: %w", id, domainerr.ErrNotFound)
	}
	out := copyBooking(b)
	return &out, nil
}

func (r *BookingRepository) Save(ctx context.Context, booking *domainbooking.Booking) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if current, ok := r.store.data.bookings[booking.ID]; ok && current.Version != booking.Version {
		return fmt.Errorf("memory: booking %s version conflict", booking.ID)
	}
	booking.Version++
	r.store.data.bookings[booking.ID] = copyBooking(*booking)
	return nil
}

func (r *BookingRepository) Delete(ctx context.Context, id domainbooking.BookingID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.data.bookings[id]; !ok {
		return fmt.Errorf("booking %s: %w", id, domainerr.ErrNotFound)
	}
	delete(r.store.data.bookings, id)
	return nil
}

// List returns bookings newest first.
func (r *BookingRepository) List(ctx context.Context, filter domainbooking.Filter) ([]*domainbooking.Booking, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make([]*domainbooking.Booking, 0)
	for _, b := range r.store.data.bookings {
		if filter.ListingID != "" && b.ListingID != filter.ListingID {
			continue
		}
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		cp := copyBooking(b)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *BookingRepository) Overlapping(ctx context.Context, listingID domainlistings.ListingID, dr daterange.DateRange, exclude domainbooking.BookingID) ([]*domainbooking.Booking, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make([]*domainbooking.Booking, 0)
	for _, b := range r.store.data.bookings {
		if b.ListingID != listingID || b.ID == exclude || b.Status == domainbooking.StatusCancelled {
			continue
		}
		if b.Range.Overlaps(dr) {
			cp := copyBooking(b)
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *BookingRepository) ReferenceExists(ctx context.Context, reference string) (bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, b := range r.store.data.bookings {
		if b.Reference == reference {
			return true, nil
		}
	}
	return false, nil
}

// NightRepository keeps the per-night rows of each booking.
type NightRepository struct {
	store *Store
}

func (r *NightRepository) ReplaceForBooking(ctx context.Context, id domainbooking.BookingID, nights []domainbooking.Night) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.data.nights[id] = append([]domainbooking.Night(nil), nights...)
	return nil
}

func (r *NightRepository) DeleteForBooking(ctx context.Context, id domainbooking.BookingID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.data.nights, id)
	return nil
}

func (r *NightRepository) ForBooking(ctx context.Context, id domainbooking.BookingID) ([]domainbooking.Night, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := append([]domainbooking.Night(nil), r.store.data.nights[id]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (r *NightRepository) BookedDates(ctx context.Context, listingID domainlistings.ListingID, dr daterange.DateRange) ([]time.Time, error) {
	return r.booked(listingID, func(d time.Time) bool { return dr.ContainsDate(d) }), nil
}

func (r *NightRepository) AllBookedDates(ctx context.Context, listingID domainlistings.ListingID) ([]time.Time, error) {
	return r.booked(listingID, func(time.Time) bool { return true }), nil
}

func (r *NightRepository) booked(listingID domainlistings.ListingID, keep func(time.Time) bool) []time.Time {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make([]time.Time, 0)
	for id, nights := range r.store.data.nights {
		b, ok := r.store.data.bookings[id]
		if !ok || b.ListingID != listingID || b.Status == domainbooking.StatusCancelled {
			continue
		}
		for _, n := range nights {
			if keep(n.Date) {
				out = append(out, n.Date)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

var (
	_ domainlistings.Repository     = (*ListingRepository)(nil)
	_ domainbooking.Repository      = (*BookingRepository)(nil)
	_ domainbooking.NightRepository = (*NightRepository)(nil)
)
