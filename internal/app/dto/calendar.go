package dto

import (
	"acropolis/internal/domain/availability"
	"acropolis/internal/domain/shared/daterange"
)

type AvailabilityDay struct {
	Date      string `json:"date"`
	Available bool   `json:"available"`
	Price     string `json:"price"`
}

type Availability struct {
	ListingID string            `json:"listing_id"`
	Currency  string            `json:"currency"`
	Days      []AvailabilityDay `json:"days"`
}

type DateRange struct {
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
}

func MapAvailability(listingID, currency string, days []availability.Day) Availability {
	out := Availability{ListingID: listingID, Currency: currency, Days: make([]AvailabilityDay, 0, len(days))}
	for _, d := range days {
		out.Days = append(out.Days, AvailabilityDay{
			Date:      d.Date.Format(daterange.DateLayout),
			Available: d.Available,
			Price:     d.Price.String(),
		})
	}
	return out
}

func MapDateRanges(ranges []daterange.DateRange) []DateRange {
	out := make([]DateRange, 0, len(ranges))
	for _, r := range ranges {
		out = append(out, DateRange{
			CheckIn:  r.CheckIn.Format(daterange.DateLayout),
			CheckOut: r.CheckOut.Format(daterange.DateLayout),
		})
	}
	return out
}
