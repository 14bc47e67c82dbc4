package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Valid(t *testing.T) {
	m, err := New(decimal.NewFromFloat(19.99), "USD")
	require.NoError(t, err)
	assert.Equal(t, "19.99 USD", m.String())
	assert.Equal(t, "USD", m.Currency())
}

func TestNew_RoundsToTwoPlaces(t *testing.T) {
	m, err := New(decimal.RequireFromString("10.005"), "EUR")
	require.NoError(t, err)
	assert.Equal(t, "10.01 EUR", m.String())
}

func TestNew_RejectsNegative(t *testing.T) {
	_, err := New(decimal.NewFromInt(-1), "USD")
	assert.ErrorIs(t, err, ErrNegativeAmount)
}

func TestNew_RejectsBadCurrency(t *testing.T) {
	for _, code := range []string{"", "US", "usd", "DOLL", "U$D"} {
		_, err := New(decimal.NewFromInt(1), code)
		assert.ErrorIs(t, err, ErrInvalidCurrency, "code %q", code)
	}
}

func TestNewFromString(t *testing.T) {
	m, err := NewFromString("7.50", "USD")
	require.NoError(t, err)
	assert.Equal(t, "7.50 USD", m.String())

	_, err = NewFromString("not-a-number", "USD")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestAdd_ExactArithmetic(t *testing.T) {
	a, err := NewFromString("0.10", "USD")
	require.NoError(t, err)
	b, err := NewFromString("0.20", "USD")
	require.NoError(t, err)

	sum := a.Add(b)
	assert.Equal(t, "0.30 USD", sum.String())
	// operands unchanged
	assert.Equal(t, "0.10 USD", a.String())
	assert.Equal(t, "0.20 USD", b.String())
}

func TestMulInt(t *testing.T) {
	unit, err := NewFromString("2.35", "USD")
	require.NoError(t, err)
	assert.Equal(t, "7.05 USD", unit.MulInt(3).String())
}

func TestAdd_CurrencyMismatchPanics(t *testing.T) {
	usd, err := NewFromString("1.00", "USD")
	require.NoError(t, err)
	eur, err := NewFromString("1.00", "EUR")
	require.NoError(t, err)

	assert.Panics(t, func() { usd.Add(eur) })
	assert.Panics(t, func() { usd.Cmp(eur) })
}

func TestZero(t *testing.T) {
	z := Zero("USD")
	assert.True(t, z.IsZero())
	assert.Equal(t, "USD", z.Currency())
}

func TestEqual(t *testing.T) {
	a, _ := NewFromString("5.00", "USD")
	b, _ := NewFromString("5.00", "USD")
	c, _ := NewFromString("5.00", "EUR")

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}
