package dto

import (
	"time"

	domainbooking "acropolis/internal/domain/booking"
	"acropolis/internal/domain/shared/daterange"
)

type Guest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Message     string `json:"message,omitempty"`
	Language    string `json:"language"`
}

type Discount struct {
	Type      string    `json:"type"`
	Value     string    `json:"value"`
	Amount    string    `json:"amount"`
	Reason    string    `json:"reason,omitempty"`
	AppliedBy string    `json:"applied_by,omitempty"`
	AppliedAt time.Time `json:"applied_at"`
}

type Booking struct {
	ID             string         `json:"id"`
	Reference      string         `json:"reference"`
	ListingID      string         `json:"listing_id"`
	Guest          Guest          `json:"guest"`
	CheckIn        string         `json:"check_in"`
	CheckOut       string         `json:"check_out"`
	Adults         int            `json:"adults"`
	Children       int            `json:"children"`
	Status         string         `json:"status"`
	AdminConfirmed bool           `json:"admin_confirmed"`
	PricingState   string         `json:"pricing_state"`
	Price          PriceBreakdown `json:"price"`
	OriginalTotal  string         `json:"original_total"`
	Discount       *Discount      `json:"discount,omitempty"`
	ReceiptURL     string         `json:"receipt_url,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

type BookingList struct {
	Items []Booking `json:"items"`
}

type BookingStatistics struct {
	TotalBookings int            `json:"total_bookings"`
	ByStatus      map[string]int `json:"by_status"`
	WithDiscount  int            `json:"with_discount"`
	// TotalDiscountsGiven is keyed by currency code.
	TotalDiscountsGiven map[string]string `json:"total_discounts_given"`
}

// Receipt is the archived summary of a confirmed booking.
type Receipt struct {
	BookingID   string         `json:"booking_id"`
	Reference   string         `json:"reference"`
	ListingID   string         `json:"listing_id"`
	GuestName   string         `json:"guest_name"`
	GuestEmail  string         `json:"guest_email"`
	CheckIn     string         `json:"check_in"`
	CheckOut    string         `json:"check_out"`
	Price       PriceBreakdown `json:"price"`
	ConfirmedAt time.Time      `json:"confirmed_at"`
}

func MapBooking(b *domainbooking.Booking) Booking {
	out := Booking{
		ID:        string(b.ID),
		Reference: b.Reference,
		ListingID: string(b.ListingID),
		Guest: Guest{
			FirstName:   b.Guest.FirstName,
			LastName:    b.Guest.LastName,
			Email:       b.Guest.Email,
			PhoneNumber: b.Guest.PhoneNumber,
			Message:     b.Guest.Message,
			Language:    string(b.Guest.Language),
		},
		CheckIn:        b.Range.CheckIn.Format(daterange.DateLayout),
		CheckOut:       b.Range.CheckOut.Format(daterange.DateLayout),
		Adults:         b.Adults,
		Children:       b.Children,
		Status:         string(b.Status),
		AdminConfirmed: b.AdminConfirmed(),
		PricingState:   string(b.Pricing),
		Price:          MapPriceBreakdown(b.Price.Summary()),
		OriginalTotal:  b.Price.OriginalTotal().String(),
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
	}
	if b.HasDiscount() {
		out.Discount = &Discount{
			Type:      string(b.Discount.Type),
			Value:     b.Discount.Value.String(),
			Amount:    b.Discount.Amount.String(),
			Reason:    b.Discount.Reason,
			AppliedBy: b.Discount.AppliedBy,
			AppliedAt: b.Discount.AppliedAt,
		}
	}
	return out
}

func MapReceipt(b *domainbooking.Booking) Receipt {
	return Receipt{
		BookingID:   string(b.ID),
		Reference:   b.Reference,
		ListingID:   string(b.ListingID),
		GuestName:   b.Guest.FullName(),
		GuestEmail:  b.Guest.Email,
		CheckIn:     b.Range.CheckIn.Format(daterange.DateLayout),
		CheckOut:    b.Range.CheckOut.Format(daterange.DateLayout),
		Price:       MapPriceBreakdown(b.Price),
		ConfirmedAt: b.UpdatedAt,
	}
}
