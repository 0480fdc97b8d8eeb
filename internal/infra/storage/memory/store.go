package memory

import (
	"sync"

	domainbooking "acropolis/internal/domain/booking"
	domainlistings "acropolis/internal/domain/listings"
	"acropolis/internal/domain/shared/events"
)

// Store keeps every aggregate of the service in process memory. Write units
// hold tx for their whole lifetime, so writers are serialized and a rollback
// can restore the snapshot taken at Begin.
type Store struct {
	tx   sync.Mutex
	mu   sync.RWMutex
	data *state

	outbox *Outbox
}

type state struct {
	listings  map[domainlistings.ListingID]domainlistings.Listing
	overrides map[domainlistings.ListingID]map[string]domainlistings.PriceOverride
	seasons   map[domainlistings.ListingID][]domainlistings.SeasonalPrice
	bookings  map[domainbooking.BookingID]domainbooking.Booking
	nights    map[domainbooking.BookingID][]domainbooking.Night
}

func NewStore() *Store {
	return &Store{data: newState(), outbox: NewOutbox()}
}

// Outbox returns the event log shared by every unit of the store.
func (s *Store) Outbox() *Outbox {
	return s.outbox
}

func newState() *state {
	return &state{
		listings:  make(map[domainlistings.ListingID]domainlistings.Listing),
		overrides: make(map[domainlistings.ListingID]map[string]domainlistings.PriceOverride),
		seasons:   make(map[domainlistings.ListingID][]domainlistings.SeasonalPrice),
		bookings:  make(map[domainbooking.BookingID]domainbooking.Booking),
		nights:    make(map[domainbooking.BookingID][]domainbooking.Night),
	}
}

func (s *state) clone() *state {
	out := newState()
	for id, l := range s.listings {
		out.listings[id] = l
	}
	for id, byDate := range s.overrides {
		cp := make(map[string]domainlistings.PriceOverride, len(byDate))
		for k, v := range byDate {
			cp[k] = v
		}
		out.overrides[id] = cp
	}
	for id, seasons := range s.seasons {
		out.seasons[id] = append([]domainlistings.SeasonalPrice(nil), seasons...)
	}
	for id, b := range s.bookings {
		out.bookings[id] = copyBooking(b)
	}
	for id, nights := range s.nights {
		out.nights[id] = append([]domainbooking.Night(nil), nights...)
	}
	return out
}

func (s *Store) snapshot() *state {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.clone()
}

func (s *Store) restore(snap *state) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = snap
}

// copyBooking detaches a booking from the caller. Pending events never reach
// the store.
func copyBooking(b domainbooking.Booking) domainbooking.Booking {
	b.Price = b.Price.Copy()
	if b.Discount != nil {
		d := *b.Discount
		b.Discount = &d
	}
	b.EventRecorder = events.EventRecorder{}
	return b
}
