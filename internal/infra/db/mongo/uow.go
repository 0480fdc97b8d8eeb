package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"acropolis/internal/app/uow"
	domainavailability "acropolis/internal/domain/availability"
	domainbooking "acropolis/internal/domain/booking"
	domainlistings "acropolis/internal/domain/listings"
	domainpricing "acropolis/internal/domain/pricing"
)

// Factory wires Mongo transactions into the generic UnitOfWork interface.
type Factory struct {
	DB *mongo.Database

	ListingsRepo *ListingRepository
	BookingRepo  *BookingRepository
	NightsRepo   *NightRepository
}

func NewFactory(db *mongo.Database) Factory {
	return Factory{
		DB:           db,
		ListingsRepo: NewListingRepository(db),
		BookingRepo:  NewBookingRepository(db),
		NightsRepo:   NewNightRepository(db),
	}
}

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// Begin starts a session. Write units run inside a snapshot transaction;
// read-only units only carry the session.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil || f.ListingsRepo == nil || f.BookingRepo == nil || f.NightsRepo == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	if !opts.ReadOnly {
		txnOpts := options.Transaction().
			SetReadConcern(readconcern.Snapshot()).
			SetWriteConcern(writeconcern.Majority())
		if err := session.StartTransaction(txnOpts); err != nil {
			session.EndSession(ctx)
			return nil, err
		}
	}
	u := &Unit{
		session:  session,
		readOnly: opts.ReadOnly,
		listings: f.ListingsRepo,
		bookings: f.BookingRepo,
		nights:   f.NightsRepo,
	}
	u.pricing, u.availability = uow.Services(u.listings, u.nights)
	return u, nil
}

type Unit struct {
	session  mongo.Session
	readOnly bool

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

func (u *Unit) Commit(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	if u.readOnly {
		return nil
	}
	return u.session.CommitTransaction(ctx)
}

func (u *Unit) Rollback(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	if u.readOnly {
		return nil
	}
	return u.session.AbortTransaction(ctx)
}

// InjectContext ensures Mongo session is available in context for downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}

var (
	_ uow.UoWFactory = Factory{}
	_ uow.UnitOfWork = (*Unit)(nil)
)
