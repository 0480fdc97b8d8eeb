package pricing

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"acropolis/internal/domain/listings"
	"acropolis/internal/domain/shared/money"
)

var (
	ErrCurrencyUnset = errors.New("pricing: currency must be defined")
)

// Rates are the percentages a breakdown was computed with. They are frozen
// with the booking so later recalculations reuse booking-time rates.
type Rates struct {
	VATRate             decimal.Decimal
	MunicipalityTaxRate decimal.Decimal
	ServiceFeeRate      decimal.Decimal
}

func RatesOf(l *listings.Listing) Rates {
	return Rates{
		VATRate:             l.VATRate,
		MunicipalityTaxRate: l.MunicipalityTaxRate,
		ServiceFeeRate:      l.ServiceFeeRate,
	}
}

type NightlyRate struct {
	Date  time.Time
	Price money.Money
}

// PriceBreakdown is the full price of a stay. Subtotal is always the
// undiscounted sum of nightly prices; DiscountAmount lowers the tax base.
type PriceBreakdown struct {
	Nights           int
	Subtotal         money.Money
	DiscountAmount   money.Money
	VAT              money.Money
	MunicipalityTax  money.Money
	ClimateCrisisFee money.Money
	CleaningFee      money.Money
	ServiceFee       money.Money
	Total            money.Money
	Rates            Rates
	Nightly          []NightlyRate
}

// ZeroBreakdown is the result for degenerate ranges.
func ZeroBreakdown(currency string) PriceBreakdown {
	zero := money.Zero(currency)
	return PriceBreakdown{
		Subtotal:         zero,
		DiscountAmount:   zero,
		VAT:              zero,
		MunicipalityTax:  zero,
		ClimateCrisisFee: zero,
		CleaningFee:      zero,
		ServiceFee:       zero,
		Total:            zero,
	}
}

func (p PriceBreakdown) Currency() string {
	return p.Subtotal.Currency
}

// TaxBase is the subtotal after discount.
func (p PriceBreakdown) TaxBase() money.Money {
	base, err := p.Subtotal.Sub(p.DiscountAmount)
	if err != nil {
		return p.Subtotal
	}
	return base
}

// OriginalTotal is what the stay costs without any discount.
func (p PriceBreakdown) OriginalTotal() money.Money {
	clone := p.Copy()
	clone.DiscountAmount = money.Zero(p.Currency())
	if err := clone.RecalculateTotal(); err != nil {
		return p.Total
	}
	return clone.Total
}

// RecalculateTotal recomputes VAT and municipality tax on the tax base and sums
// the total. Climate, cleaning and service fees are kept as computed; the
// service fee is a commission on the undiscounted subtotal.
func (p *PriceBreakdown) RecalculateTotal() error {
	if p.Subtotal.Currency == "" {
		return ErrCurrencyUnset
	}
	if p.DiscountAmount.Currency == "" {
		p.DiscountAmount = money.Zero(p.Subtotal.Currency)
	}
	base := p.TaxBase()
	p.VAT = base.Percent(p.Rates.VATRate)
	p.MunicipalityTax = base.Percent(p.Rates.MunicipalityTaxRate)
	total, err := money.Sum(p.Subtotal.Currency, base, p.VAT, p.MunicipalityTax, p.ClimateCrisisFee, p.CleaningFee, p.ServiceFee)
	if err != nil {
		return err
	}
	p.Total = total
	return nil
}

// Summary drops the nightly list, keeping the frozen snapshot fields.
func (p PriceBreakdown) Summary() PriceBreakdown {
	clone := p
	clone.Nightly = nil
	return clone
}

func (p PriceBreakdown) Copy() PriceBreakdown {
	clone := p
	clone.Nightly = append([]NightlyRate(nil), p.Nightly...)
	return clone
}

// Calculator prices stays for a listing.
type Calculator interface {
	Calculate(ctx context.Context, listing *listings.Listing, checkIn, checkOut time.Time) (PriceBreakdown, error)
}
