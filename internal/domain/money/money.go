package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount   = errors.New("money: invalid amount")
	ErrNegativeAmount  = errors.New("money: amount must be zero or greater")
	ErrInvalidCurrency = errors.New("money: currency must be a 3-letter code")
)

// Money is an exact decimal amount tagged with a currency. It is a value
// type: every operation returns a new Money and never mutates the receiver.
type Money struct {
	amount   decimal.Decimal
	currency string
}

// New builds a Money from a decimal amount and a 3-letter currency code.
// Amounts are normalised to two decimal places.
func New(amount decimal.Decimal, currency string) (Money, error) {
	if amount.IsNegative() {
		return Money{}, ErrNegativeAmount
	}
	if !validCurrency(currency) {
		return Money{}, ErrInvalidCurrency
	}
	return Money{amount: amount.Round(2), currency: currency}, nil
}

// NewFromString parses a decimal string such as "19.99".
func NewFromString(amount, currency string) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	return New(d, currency)
}

// Zero returns a zero value in the given currency.
func Zero(currency string) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

func (m Money) Amount() decimal.Decimal { return m.amount }
func (m Money) Currency() string        { return m.currency }

// Add returns m + other. Mixing currencies is a programming error and
// panics rather than returning a domain error.
func (m Money) Add(other Money) Money {
	m.mustMatch(other)
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}
}

// MulInt returns m scaled by an integer quantity.
func (m Money) MulInt(n int) Money {
	return Money{amount: m.amount.Mul(decimal.NewFromInt(int64(n))), currency: m.currency}
}

// Equal reports whether both amount and currency match.
func (m Money) Equal(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// Cmp compares amounts; mixing currencies panics.
func (m Money) Cmp(other Money) int {
	m.mustMatch(other)
	return m.amount.Cmp(other.amount)
}

func (m Money) IsZero() bool { return m.amount.IsZero() }

func (m Money) String() string {
	return m.amount.StringFixed(2) + " " + m.currency
}

func (m Money) mustMatch(other Money) {
	if m.currency != other.currency {
		panic(fmt.Sprintf("money: currency mismatch: %s vs %s", m.currency, other.currency))
	}
}

func validCurrency(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
