package booking

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"acropolis/internal/domain/listings"
	"acropolis/internal/domain/pricing"
	"acropolis/internal/domain/shared/daterange"
	"acropolis/internal/domain/shared/domainerr"
	"acropolis/internal/domain/shared/events"
)

var (
	ErrDatesTaken       = domainerr.Validation("This listing is already booked for the selected dates.")
	ErrInvalidDates     = domainerr.Validation("Check-out date must be after check-in date.")
	ErrNoGuests         = domainerr.Validation("At least one guest is required.")
	ErrTooManyGuests    = domainerr.Validation("The number of guests exceeds the maximum allowed for this listing.")
	ErrTooManyAdults    = domainerr.Validation("The number of adults exceeds the maximum allowed for this listing.")
	ErrTooManyChildren  = domainerr.Validation("The number of children exceeds the maximum allowed for this listing.")
	ErrNegativeGuests   = domainerr.Validation("Guest counts cannot be negative.")
	ErrImmutableBooking = domainerr.Validation("Check-in, check-out and listing cannot be changed once the booking is confirmed.")
	ErrPricingFrozen    = domainerr.Validation("Dates cannot be changed after a discount has been applied. Remove the discount first.")
	ErrGuestName        = domainerr.Validation("First and last name are required.")
	ErrGuestEmail       = domainerr.Validation("A valid email address is required.")
	ErrGuestLanguage    = domainerr.Validation("Language must be either en or el.")
	ErrNoDiscount       = domainerr.Validation("This booking has no discount to remove.")
	ErrBookingClosed    = domainerr.Validation("Completed or cancelled bookings cannot be changed.")
)

var guestRules = validator.New()

type BookingID string

// Language is the guest's correspondence language.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageGreek   Language = "el"
)

// Guest holds the contact details captured with a booking request.
type Guest struct {
	FirstName   string
	LastName    string
	Email       string
	PhoneNumber string
	Message     string
	Language    Language
}

func (g Guest) Normalize() Guest {
	g.FirstName = strings.TrimSpace(g.FirstName)
	g.LastName = strings.TrimSpace(g.LastName)
	g.Email = strings.ToLower(strings.TrimSpace(g.Email))
	g.PhoneNumber = strings.TrimSpace(g.PhoneNumber)
	g.Message = strings.TrimSpace(g.Message)
	if g.Language == "" {
		g.Language = LanguageEnglish
	}
	return g
}

func (g Guest) Validate() error {
	if g.FirstName == "" || g.LastName == "" {
		return ErrGuestName
	}
	if err := guestRules.Var(g.Email, "required,email"); err != nil {
		return ErrGuestEmail
	}
	if g.Language != LanguageEnglish && g.Language != LanguageGreek {
		return ErrGuestLanguage
	}
	return nil
}

func (g Guest) FullName() string {
	return strings.TrimSpace(g.FirstName + " " + g.LastName)
}

// PricingState tells whether the frozen price may still be recomputed.
type PricingState string

const (
	// PricingRecalculable holds only while the booking is pending without a discount.
	PricingRecalculable PricingState = "recalculable"
	PricingFrozen       PricingState = "frozen"
)

type Booking struct {
	ID        BookingID
	Reference string
	ListingID listings.ListingID
	Guest     Guest
	Range     daterange.DateRange
	Adults    int
	Children  int
	Status    Status
	Pricing   PricingState
	Price     pricing.PriceBreakdown
	Discount  *pricing.Discount
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64
	events.EventRecorder
}

// Filter narrows booking listings. Zero values match everything.
type Filter struct {
	ListingID listings.ListingID
	Status    Status
	Limit     int
}

type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	Save(ctx context.Context, booking *Booking) error
	Delete(ctx context.Context, id BookingID) error
	List(ctx context.Context, filter Filter) ([]*Booking, error)
	// Overlapping returns non-cancelled bookings of the listing whose range
	// overlaps dr, skipping exclude.
	Overlapping(ctx context.Context, listingID listings.ListingID, dr daterange.DateRange, exclude BookingID) ([]*Booking, error)
	ReferenceExists(ctx context.Context, reference string) (bool, error)
}

type CreateParams struct {
	ID        BookingID
	Reference string
	Listing   *listings.Listing
	Guest     Guest
	Range     daterange.DateRange
	Adults    int
	Children  int
	Price     pricing.PriceBreakdown
	CreatedAt time.Time
}

// NewBooking creates a pending, recalculable booking with its price frozen.
// The caller checks for overlaps in the same unit of work.
func NewBooking(params CreateParams) (*Booking, error) {
	if err := ValidateStay(params.Range); err != nil {
		return nil, err
	}
	if err := ValidateGuests(params.Listing, params.Adults, params.Children); err != nil {
		return nil, err
	}
	guest := params.Guest.Normalize()
	if err := guest.Validate(); err != nil {
		return nil, err
	}
	if err := params.Price.RecalculateTotal(); err != nil {
		return nil, err
	}
	now := params.CreatedAt.UTC()
	b := &Booking{
		ID:        params.ID,
		Reference: params.Reference,
		ListingID: params.Listing.ID,
		Guest:     guest,
		Range:     params.Range,
		Adults:    params.Adults,
		Children:  params.Children,
		Status:    StatusPending,
		Pricing:   PricingRecalculable,
		Price:     params.Price.Copy(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	b.Record(BookingRequested{
		BookingID: b.ID,
		Reference: b.Reference,
		ListingID: b.ListingID,
		Range:     b.Range,
		Adults:    b.Adults,
		Children:  b.Children,
		Total:     b.Price.Total,
		At:        now,
	})
	return b, nil
}

// ValidateGuests enforces the listing's capacity limits.
func ValidateGuests(listing *listings.Listing, adults, children int) error {
	if adults < 0 || children < 0 {
		return ErrNegativeGuests
	}
	total := adults + children
	if total < 1 {
		return ErrNoGuests
	}
	if total > listing.MaxGuests {
		return ErrTooManyGuests
	}
	if adults > listing.MaxAdults {
		return ErrTooManyAdults
	}
	if children > listing.MaxChildren {
		return ErrTooManyChildren
	}
	return nil
}

// EnsureNoOverlap rejects the range when any of the given bookings blocks it.
func EnsureNoOverlap(existing []*Booking, dr daterange.DateRange, self BookingID) error {
	for _, other := range existing {
		if other == nil || other.ID == self || other.Status == StatusCancelled {
			continue
		}
		if other.Range.Overlaps(dr) {
			return ErrDatesTaken
		}
	}
	return nil
}

func (b *Booking) Guests() int {
	return b.Adults + b.Children
}

// AdminConfirmed is the legacy confirmation flag, derived from the status.
func (b *Booking) AdminConfirmed() bool {
	return b.Status == StatusConfirmed
}

// CanApplyDiscount reports whether the booking accepts discount changes.
func (b *Booking) CanApplyDiscount() bool {
	return b.Status == StatusPending || b.Status == StatusConfirmed
}

func (b *Booking) HasDiscount() bool {
	return b.Discount != nil && b.Discount.Type != pricing.DiscountNone
}

// DatesLocked reports whether listing and dates are immutable for the status.
func (b *Booking) DatesLocked() bool {
	switch b.Status {
	case StatusConfirmed, StatusCheckedIn, StatusCompleted:
		return true
	default:
		return false
	}
}

// ChangeStay validates a change of listing or dates without applying it.
func (b *Booking) ChangeStay(listingID listings.ListingID, dr daterange.DateRange) error {
	if listingID == b.ListingID && dr.Equal(b.Range) {
		return nil
	}
	if b.DatesLocked() {
		return ErrImmutableBooking
	}
	if b.Status == StatusCancelled {
		return ErrInvalidTransition
	}
	if b.Pricing != PricingRecalculable {
		return ErrPricingFrozen
	}
	return ValidateStay(dr)
}

// ValidateStay checks that dr has at least one night and at most
// pricing.MaxNights.
func ValidateStay(dr daterange.DateRange) error {
	if err := dr.Validate(); err != nil {
		return ErrInvalidDates
	}
	if dr.Nights() > pricing.MaxNights {
		return pricing.ErrStayTooLong
	}
	return nil
}

// Reschedule moves a recalculable booking to new dates (and possibly another
// listing) with a freshly computed price.
func (b *Booking) Reschedule(listing *listings.Listing, dr daterange.DateRange, adults, children int, price pricing.PriceBreakdown, now time.Time) error {
	if err := b.ChangeStay(listing.ID, dr); err != nil {
		return err
	}
	if err := ValidateGuests(listing, adults, children); err != nil {
		return err
	}
	previous := b.Price.Total
	b.ListingID = listing.ID
	b.Range = dr
	b.Adults = adults
	b.Children = children
	b.Price = price.Copy()
	b.UpdatedAt = now.UTC()
	b.Record(BookingRepriced{
		BookingID:     b.ID,
		ListingID:     b.ListingID,
		Range:         b.Range,
		PreviousTotal: previous,
		Total:         b.Price.Total,
		At:            b.UpdatedAt,
	})
	return nil
}

// ChangeGuests updates guest counts without touching dates or price. Finished
// bookings keep the counts they ended with.
func (b *Booking) ChangeGuests(listing *listings.Listing, adults, children int, now time.Time) error {
	if b.Status.Terminal() {
		return ErrBookingClosed
	}
	if err := ValidateGuests(listing, adults, children); err != nil {
		return err
	}
	b.Adults = adults
	b.Children = children
	b.UpdatedAt = now.UTC()
	return nil
}

func (b *Booking) UpdateGuest(guest Guest, now time.Time) error {
	if b.Status.Terminal() {
		return ErrBookingClosed
	}
	guest = guest.Normalize()
	if err := guest.Validate(); err != nil {
		return err
	}
	b.Guest = guest
	b.UpdatedAt = now.UTC()
	return nil
}

// ApplyDiscount replaces any active discount and reprices the booking using
// the rates frozen at booking time.
func (b *Booking) ApplyDiscount(kind pricing.DiscountType, value decimal.Decimal, reason, appliedBy string, now time.Time) error {
	if !b.CanApplyDiscount() {
		return pricing.ErrDiscountNotAllowed
	}
	repriced, err := pricing.ApplyDiscount(b.Price, kind, value)
	if err != nil {
		return err
	}
	now = now.UTC()
	b.Price = repriced
	b.Discount = &pricing.Discount{
		Type:      kind,
		Value:     value,
		Amount:    repriced.DiscountAmount,
		Reason:    strings.TrimSpace(reason),
		AppliedBy: appliedBy,
		AppliedAt: now,
	}
	b.Pricing = PricingFrozen
	b.UpdatedAt = now
	b.Record(DiscountApplied{
		BookingID: b.ID,
		Type:      kind,
		Value:     value,
		Amount:    repriced.DiscountAmount,
		Total:     repriced.Total,
		AppliedBy: appliedBy,
		At:        now,
	})
	return nil
}

// RemoveDiscount restores the undiscounted price. A pending booking becomes
// recalculable again.
func (b *Booking) RemoveDiscount(now time.Time) error {
	if !b.CanApplyDiscount() {
		return pricing.ErrDiscountNotAllowed
	}
	if !b.HasDiscount() {
		return ErrNoDiscount
	}
	restored, err := pricing.RemoveDiscount(b.Price)
	if err != nil {
		return err
	}
	now = now.UTC()
	b.Price = restored
	b.Discount = nil
	if b.Status == StatusPending {
		b.Pricing = PricingRecalculable
	}
	b.UpdatedAt = now
	b.Record(DiscountRemoved{BookingID: b.ID, Total: restored.Total, At: now})
	return nil
}

// Nights expands the booking into one row per night with its frozen price.
func (b *Booking) Nights() []Night {
	nights := make([]Night, 0, len(b.Price.Nightly))
	for _, n := range b.Price.Nightly {
		nights = append(nights, Night{BookingID: b.ID, ListingID: b.ListingID, Date: n.Date, Price: n.Price})
	}
	return nights
}
