package dto

import (
	"acropolis/internal/domain/listings"
	"acropolis/internal/domain/pricing"
	"acropolis/internal/domain/shared/daterange"
)

type NightlyPrice struct {
	Date  string `json:"date"`
	Price string `json:"price"`
}

// PriceBreakdown renders amounts as 2-decimal strings.
type PriceBreakdown struct {
	Currency         string         `json:"currency"`
	Nights           int            `json:"nights"`
	Subtotal         string         `json:"subtotal"`
	DiscountAmount   string         `json:"discount_amount"`
	VAT              string         `json:"vat"`
	MunicipalityTax  string         `json:"municipality_tax"`
	ClimateCrisisFee string         `json:"climate_crisis_fee"`
	CleaningFee      string         `json:"cleaning_fee"`
	ServiceFee       string         `json:"service_fee"`
	Total            string         `json:"total"`
	Nightly          []NightlyPrice `json:"nightly,omitempty"`
}

type Quote struct {
	ListingID string         `json:"listing_id"`
	CheckIn   string         `json:"check_in"`
	CheckOut  string         `json:"check_out"`
	Price     PriceBreakdown `json:"price"`
}

func MapPriceBreakdown(p pricing.PriceBreakdown) PriceBreakdown {
	out := PriceBreakdown{
		Currency:         p.Currency(),
		Nights:           p.Nights,
		Subtotal:         p.Subtotal.String(),
		DiscountAmount:   p.DiscountAmount.String(),
		VAT:              p.VAT.String(),
		MunicipalityTax:  p.MunicipalityTax.String(),
		ClimateCrisisFee: p.ClimateCrisisFee.String(),
		CleaningFee:      p.CleaningFee.String(),
		ServiceFee:       p.ServiceFee.String(),
		Total:            p.Total.String(),
	}
	for _, n := range p.Nightly {
		out.Nightly = append(out.Nightly, NightlyPrice{Date: n.Date.Format(daterange.DateLayout), Price: n.Price.String()})
	}
	return out
}

type PriceOverride struct {
	ListingID string `json:"listing_id"`
	Date      string `json:"date"`
	Price     string `json:"price"`
}

type SeasonalPrice struct {
	ID        string `json:"id"`
	ListingID string `json:"listing_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Price     string `json:"price"`
}

func MapPriceOverride(o listings.PriceOverride) PriceOverride {
	return PriceOverride{ListingID: string(o.ListingID), Date: o.Date.Format(daterange.DateLayout), Price: o.Price.String()}
}

func MapSeasonalPrice(s listings.SeasonalPrice) SeasonalPrice {
	return SeasonalPrice{
		ID:        s.ID,
		ListingID: string(s.ListingID),
		StartDate: s.StartDate.Format(daterange.DateLayout),
		EndDate:   s.EndDate.Format(daterange.DateLayout),
		Price:     s.Price.String(),
	}
}
