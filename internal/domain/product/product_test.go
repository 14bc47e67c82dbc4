package product

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ventamart/orderstock/internal/domain/money"
)

func price(t *testing.T, amount string) money.Money {
	t.Helper()
	m, err := money.NewFromString(amount, "USD")
	require.NoError(t, err)
	return m
}

func TestNew(t *testing.T) {
	p, err := New("p-1", "SKU-1", "Widget", "a widget", price(t, "9.99"), 10, 2)
	require.NoError(t, err)
	assert.True(t, p.Active)
	assert.Equal(t, 10, p.StockQuantity)

	_, err = New("p-1", "  ", "Widget", "", price(t, "9.99"), 10, 0)
	assert.ErrorIs(t, err, ErrInvalidCode)
	_, err = New("p-1", "SKU-1", "", "", price(t, "9.99"), 10, 0)
	assert.ErrorIs(t, err, ErrInvalidName)
	_, err = New("p-1", "SKU-1", "Widget", "", price(t, "9.99"), -1, 0)
	assert.ErrorIs(t, err, ErrNegativeStock)
	_, err = New("p-1", "SKU-1", "Widget", "", price(t, "9.99"), 0, -1)
	assert.ErrorIs(t, err, ErrNegativeStock)
}

func TestDecrement(t *testing.T) {
	p, err := New("p-1", "SKU-1", "Widget", "", price(t, "9.99"), 5, 0)
	require.NoError(t, err)

	remaining, err := p.Decrement(3)
	require.NoError(t, err)
	assert.Equal(t, 2, remaining)

	remaining, err = p.Decrement(2)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
}

func TestDecrement_InsufficientStock(t *testing.T) {
	p, err := New("p-1", "SKU-1", "Widget", "", price(t, "9.99"), 2, 0)
	require.NoError(t, err)

	_, err = p.Decrement(3)
	require.ErrorIs(t, err, ErrInsufficientStock)

	var detail *InsufficientStockError
	require.True(t, errors.As(err, &detail))
	assert.Equal(t, "p-1", detail.ProductID)
	assert.Equal(t, 3, detail.Requested)
	assert.Equal(t, 2, detail.Available)

	// a failed decrement leaves stock untouched
	assert.Equal(t, 2, p.StockQuantity)
}

func TestDecrement_InvalidQuantity(t *testing.T) {
	p, err := New("p-1", "SKU-1", "Widget", "", price(t, "9.99"), 2, 0)
	require.NoError(t, err)

	_, err = p.Decrement(0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = p.Decrement(-1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestRestock(t *testing.T) {
	p, err := New("p-1", "SKU-1", "Widget", "", price(t, "9.99"), 1, 0)
	require.NoError(t, err)

	require.NoError(t, p.Restock(4))
	assert.Equal(t, 5, p.StockQuantity)

	assert.ErrorIs(t, p.Restock(0), ErrInvalidQuantity)
	assert.ErrorIs(t, p.Restock(-2), ErrInvalidQuantity)
}

func TestDeactivate(t *testing.T) {
	p, err := New("p-1", "SKU-1", "Widget", "", price(t, "9.99"), 1, 0)
	require.NoError(t, err)

	p.Deactivate()
	assert.False(t, p.Active)
}

func TestBelowMinimum(t *testing.T) {
	p, err := New("p-1", "SKU-1", "Widget", "", price(t, "9.99"), 5, 2)
	require.NoError(t, err)
	assert.False(t, p.BelowMinimum())

	_, err = p.Decrement(3)
	require.NoError(t, err)
	assert.True(t, p.BelowMinimum())
}

func TestClone(t *testing.T) {
	p, err := New("p-1", "SKU-1", "Widget", "", price(t, "9.99"), 5, 0)
	require.NoError(t, err)

	clone := p.Clone()
	_, err = clone.Decrement(5)
	require.NoError(t, err)
	assert.Equal(t, 5, p.StockQuantity)

	var nilProduct *Product
	assert.Nil(t, nilProduct.Clone())
}
