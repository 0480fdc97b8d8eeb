package booking

import (
	"context"
	"time"

	"acropolis/internal/app/outbox"
	"acropolis/internal/app/uow"
	domainbooking "acropolis/internal/domain/booking"
)

const referenceAttempts = 5

// Deps are shared by the booking command handlers.
type Deps struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Now     func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}

func (d Deps) encoder() outbox.EventEncoder {
	if d.Encoder != nil {
		return d.Encoder
	}
	return outbox.JSONEventEncoder{}
}

// persist saves the booking and moves its pending events into the outbox.
func (d Deps) persist(ctx context.Context, unit uow.UnitOfWork, b *domainbooking.Booking) error {
	if err := unit.Bookings().Save(ctx, b); err != nil {
		return err
	}
	return outbox.RecordDomainEvents(ctx, d.Outbox, d.encoder(), b.DrainEvents())
}
