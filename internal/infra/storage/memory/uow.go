package memory

import (
	"context"
	"sync"

	appoutbox "acropolis/internal/app/outbox"
	"acropolis/internal/app/uow"
	domainavailability "acropolis/internal/domain/availability"
	domainbooking "acropolis/internal/domain/booking"
	domainlistings "acropolis/internal/domain/listings"
	domainpricing "acropolis/internal/domain/pricing"
)

// Factory opens units of work over a Store.
type Factory struct {
	Store *Store
}

func NewFactory(store *Store) Factory {
	return Factory{Store: store}
}

// Begin starts a unit. Write units take the store's writer lock and a
// snapshot; read-only units see committed and in-flight writes alike.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Store == nil {
		return nil, uow.ErrUnitOfWorkMissing
	}
	u := &Unit{
		store:    f.Store,
		readOnly: opts.ReadOnly,
		listings: &ListingRepository{store: f.Store},
		bookings: &BookingRepository{store: f.Store},
		nights:   &NightRepository{store: f.Store},
	}
	u.pricing, u.availability = uow.Services(u.listings, u.nights)
	if !opts.ReadOnly {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f.Store.tx.Lock()
		u.snapshot = f.Store.snapshot()
	}
	return u, nil
}

// Unit is a uow.UnitOfWork backed by the in-memory store.
type Unit struct {
	store    *Store
	readOnly bool
	snapshot *state

	mu     sync.Mutex
	staged []appoutbox.EventRecord
	done   bool

	listings     *ListingRepository
	bookings     *BookingRepository
	nights       *NightRepository
	pricing      domainpricing.Calculator
	availability domainavailability.Tracker
}

func (u *Unit) Listings() domainlistings.Repository      { return u.listings }
func (u *Unit) Bookings() domainbooking.Repository       { return u.bookings }
func (u *Unit) Nights() domainbooking.NightRepository    { return u.nights }
func (u *Unit) Pricing() domainpricing.Calculator        { return u.pricing }
func (u *Unit) Availability() domainavailability.Tracker { return u.availability }

// stage holds an outbox record until the unit commits.
func (u *Unit) stage(ev appoutbox.EventRecord) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.staged = append(u.staged, ev)
}

func (u *Unit) Commit(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return nil
	}
	u.done = true
	if u.readOnly {
		return nil
	}
	u.store.outbox.append(u.staged)
	u.staged = nil
	u.snapshot = nil
	u.store.tx.Unlock()
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return nil
	}
	u.done = true
	if u.readOnly {
		return nil
	}
	u.store.restore(u.snapshot)
	u.staged = nil
	u.snapshot = nil
	u.store.tx.Unlock()
	return nil
}

var (
	_ uow.UoWFactory = Factory{}
	_ uow.UnitOfWork = (*Unit)(nil)
)
