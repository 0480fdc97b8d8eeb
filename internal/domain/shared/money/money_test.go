package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRoundsHalfAwayFromZero(t *testing.T) {
	m, err := New(decimal.RequireFromString("10.005"), "eur")
	require.NoError(t, err)
	assert.Equal(t, "10.01", m.String())
	assert.Equal(t, "EUR", m.Currency)

	neg, err := New(decimal.RequireFromString("-10.005"), "EUR")
	require.NoError(t, err)
	assert.Equal(t, "-10.01", neg.String())
}

func TestNewRejectsBadCurrency(t *testing.T) {
	_, err := New(decimal.NewFromInt(1), "EURO")
	assert.ErrorIs(t, err, ErrInvalidCurrency)
	_, err = Parse("abc", "EUR")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestArithmetic(t *testing.T) {
	a := Must("10.50", "EUR")
	b := Must("2.25", "EUR")

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, "12.75", sum.String())

	diff, err := a.Sub(b)
	require.NoError(t, err)
	assert.Equal(t, "8.25", diff.String())

	assert.Equal(t, "31.50", a.Multiply(3).String())
	assert.Equal(t, "1.37", a.Percent(decimal.RequireFromString("13")).String())
	assert.True(t, b.Equal(a.Min(b)))

	_, err = a.Add(Must("1", "USD"))
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestSum(t *testing.T) {
	total, err := Sum("EUR", Must("1.10", "EUR"), Must("2.20", "EUR"))
	require.NoError(t, err)
	assert.Equal(t, "3.30", total.String())

	empty, err := Sum("EUR")
	require.NoError(t, err)
	assert.True(t, empty.IsZero())
}
