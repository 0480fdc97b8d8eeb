package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidCurrency  = errors.New("money: invalid currency code")
	ErrCurrencyMismatch = errors.New("money: currency mismatch")
	ErrInvalidAmount    = errors.New("money: invalid amount")
)

// Places is the number of decimal places kept for currency amounts.
const Places = 2

var hundred = decimal.NewFromInt(100)

// Money is a fixed-point currency amount.
type Money struct {
	Amount   decimal.Decimal
	Currency string
}

// New constructs Money rounded to cents.
func New(amount decimal.Decimal, currency string) (Money, error) {
	if len(strings.TrimSpace(currency)) != 3 {
		return Money{}, ErrInvalidCurrency
	}
	return Money{Amount: amount.Round(Places), Currency: strings.ToUpper(strings.TrimSpace(currency))}, nil
}

// Parse builds Money from a decimal string such as "120.50".
func Parse(amount, currency string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return New(d, currency)
}

// Must creates Money and panics if validation fails; useful in tests and fixtures.
func Must(amount string, currency string) Money {
	m, err := Parse(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns a zero amount in the given currency.
func Zero(currency string) Money {
	return Money{Amount: decimal.Zero, Currency: strings.ToUpper(currency)}
}

// Add adds two money values ensuring currencies match.
func (m Money) Add(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount.Add(other.Amount), Currency: m.Currency}, nil
}

// Sub subtracts other from the receiver.
func (m Money) Sub(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount.Sub(other.Amount), Currency: m.Currency}, nil
}

// Multiply multiplies the amount by the provided factor.
func (m Money) Multiply(times int64) Money {
	return Money{Amount: m.Amount.Mul(decimal.NewFromInt(times)), Currency: m.Currency}
}

// Percent returns rate% of the amount, rounded to cents. Rates are human
// readable percentages: 13.25 means 13.25%.
func (m Money) Percent(rate decimal.Decimal) Money {
	return Money{Amount: m.Amount.Mul(rate).Div(hundred).Round(Places), Currency: m.Currency}
}

// Min returns the smaller of two amounts in the receiver's currency.
func (m Money) Min(other Money) Money {
	if other.Amount.LessThan(m.Amount) {
		return Money{Amount: other.Amount, Currency: m.Currency}
	}
	return m
}

// Round rounds the amount to cents.
func (m Money) Round() Money {
	return Money{Amount: m.Amount.Round(Places), Currency: m.Currency}
}

// IsZero returns true if the amount equals zero.
func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

func (m Money) IsPositive() bool {
	return m.Amount.IsPositive()
}

// Equal compares amount and currency.
func (m Money) Equal(other Money) bool {
	return m.Currency == other.Currency && m.Amount.Equal(other.Amount)
}

// String renders the amount with two decimals, without the currency.
func (m Money) String() string {
	return m.Amount.StringFixed(Places)
}

// Sum adds amounts of the same currency. An empty list yields zero in currency.
func Sum(currency string, items ...Money) (Money, error) {
	total := Zero(currency)
	for _, item := range items {
		next, err := total.Add(item)
		if err != nil {
			return Money{}, err
		}
		total = next
	}
	return total, nil
}

func (m Money) ensureSameCurrency(other Money) error {
	if m.Currency == "" || other.Currency == "" {
		return ErrInvalidCurrency
	}
	if m.Currency != other.Currency {
		return ErrCurrencyMismatch
	}
	return nil
}
