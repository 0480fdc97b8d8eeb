package booking

import (
	"strings"
	"time"

	"acropolis/internal/domain/shared/domainerr"
)

var ErrInvalidTransition = domainerr.Validation("This status change is not allowed for the booking.")
var ErrUnknownStatus = domainerr.Validation("Unknown booking status.")

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCheckedIn Status = "checked_in"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCheckedIn, StatusCancelled},
	StatusCheckedIn: {StatusCompleted, StatusCancelled},
}

func ParseStatus(value string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(value)))
	switch s {
	case StatusPending, StatusConfirmed, StatusCheckedIn, StatusCompleted, StatusCancelled:
		return s, nil
	}
	return "", ErrUnknownStatus
}

func AllStatuses() []Status {
	return []Status{StatusPending, StatusConfirmed, StatusCheckedIn, StatusCompleted, StatusCancelled}
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (b *Booking) Confirm(now time.Time) error  { return b.TransitionTo(StatusConfirmed, now) }
func (b *Booking) CheckIn(now time.Time) error  { return b.TransitionTo(StatusCheckedIn, now) }
func (b *Booking) Complete(now time.Time) error { return b.TransitionTo(StatusCompleted, now) }
func (b *Booking) Cancel(now time.Time) error   { return b.TransitionTo(StatusCancelled, now) }

// TransitionTo moves the booking along the lifecycle. Leaving pending freezes
// the price.
func (b *Booking) TransitionTo(next Status, now time.Time) error {
	if !b.Status.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	previous := b.Status
	b.Status = next
	if next != StatusPending {
		b.Pricing = PricingFrozen
	}
	b.UpdatedAt = now.UTC()
	b.Record(StatusChanged{
		BookingID: b.ID,
		ListingID: b.ListingID,
		From:      previous,
		To:        next,
		Total:     b.Price.Total,
		At:        b.UpdatedAt,
	})
	return nil
}
