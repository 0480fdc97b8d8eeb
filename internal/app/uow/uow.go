package uow

import (
	"context"

	domainavailability "acropolis/internal/domain/availability"
	domainbooking "acropolis/internal/domain/booking"
	domainlistings "acropolis/internal/domain/listings"
	domainpricing "acropolis/internal/domain/pricing"
)

// UnitOfWork groups repositories sharing one transaction boundary.
type UnitOfWork interface {
	Listings() domainlistings.Repository
	Bookings() domainbooking.Repository
	Nights() domainbooking.NightRepository
	Pricing() domainpricing.Calculator
	Availability() domainavailability.Tracker

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}

// Services derives the pricing and availability services for a set of
// repositories so every store backend composes them the same way.
func Services(listings domainlistings.Repository, nights domainbooking.NightRepository) (domainpricing.Calculator, domainavailability.Tracker) {
	resolver := domainpricing.RateResolver{Source: listings}
	return &domainpricing.Engine{Rates: resolver}, domainavailability.Tracker{Nights: nights, Rates: resolver}
}
