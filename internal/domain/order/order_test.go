package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ventamart/orderstock/internal/domain/money"
)

func usd(t *testing.T, amount string) money.Money {
	t.Helper()
	m, err := money.NewFromString(amount, "USD")
	require.NoError(t, err)
	return m
}

func TestNew(t *testing.T) {
	o, err := New("o-1", "c-1")
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, o.Status)
	assert.True(t, o.IsDraft())
	assert.Empty(t, o.Lines)

	_, err = New("", "c-1")
	assert.Error(t, err)
	_, err = New("o-1", "")
	assert.Error(t, err)
}

func TestAddLine(t *testing.T) {
	o, err := New("o-1", "c-1")
	require.NoError(t, err)

	require.NoError(t, o.AddLine("p-1", 2, usd(t, "9.99")))
	require.NoError(t, o.AddLine("p-2", 1, usd(t, "5.00")))
	assert.Len(t, o.Lines, 2)
}

func TestAddLine_Validation(t *testing.T) {
	o, err := New("o-1", "c-1")
	require.NoError(t, err)

	assert.ErrorIs(t, o.AddLine("", 1, usd(t, "1.00")), ErrInvalidProduct)
	assert.ErrorIs(t, o.AddLine("p-1", 0, usd(t, "1.00")), ErrInvalidQuantity)
	assert.ErrorIs(t, o.AddLine("p-1", -3, usd(t, "1.00")), ErrInvalidQuantity)
	assert.Empty(t, o.Lines)
}

func TestAddLine_CurrencyMismatch(t *testing.T) {
	o, err := New("o-1", "c-1")
	require.NoError(t, err)
	require.NoError(t, o.AddLine("p-1", 1, usd(t, "1.00")))

	eur, err := money.NewFromString("1.00", "EUR")
	require.NoError(t, err)
	assert.ErrorIs(t, o.AddLine("p-2", 1, eur), ErrCurrencyMismatch)
	assert.Len(t, o.Lines, 1)
}

func TestTotal(t *testing.T) {
	o, err := New("o-1", "c-1")
	require.NoError(t, err)
	assert.True(t, o.Total().IsZero())

	require.NoError(t, o.AddLine("p-1", 3, usd(t, "2.35")))
	require.NoError(t, o.AddLine("p-2", 1, usd(t, "0.10")))
	assert.Equal(t, "7.15 USD", o.Total().String())

	// removing nothing, adding a line keeps the total derived
	require.NoError(t, o.AddLine("p-1", 1, usd(t, "2.35")))
	assert.Equal(t, "9.50 USD", o.Total().String())
}

func TestLineItem_Subtotal(t *testing.T) {
	line := LineItem{ProductID: "p-1", Quantity: 4, UnitPrice: usd(t, "1.25")}
	assert.Equal(t, "5.00 USD", line.Subtotal().String())
}

func TestConfirm(t *testing.T) {
	o, err := New("o-1", "c-1")
	require.NoError(t, err)
	require.NoError(t, o.AddLine("p-1", 1, usd(t, "1.00")))

	require.NoError(t, o.Confirm())
	assert.Equal(t, StatusConfirmed, o.Status)

	// terminal: no further transitions, no new lines
	assert.ErrorIs(t, o.Confirm(), ErrInvalidState)
	assert.ErrorIs(t, o.Cancel(), ErrInvalidState)
	assert.ErrorIs(t, o.AddLine("p-2", 1, usd(t, "1.00")), ErrInvalidState)
	assert.Equal(t, StatusConfirmed, o.Status)
}

func TestCancel(t *testing.T) {
	o, err := New("o-1", "c-1")
	require.NoError(t, err)

	require.NoError(t, o.Cancel())
	assert.Equal(t, StatusCancelled, o.Status)

	assert.ErrorIs(t, o.Confirm(), ErrInvalidState)
	assert.ErrorIs(t, o.Cancel(), ErrInvalidState)
	assert.ErrorIs(t, o.AddLine("p-1", 1, usd(t, "1.00")), ErrInvalidState)
}

func TestProductIDs_Distinct(t *testing.T) {
	o, err := New("o-1", "c-1")
	require.NoError(t, err)
	require.NoError(t, o.AddLine("p-b", 1, usd(t, "1.00")))
	require.NoError(t, o.AddLine("p-a", 1, usd(t, "1.00")))
	require.NoError(t, o.AddLine("p-b", 2, usd(t, "1.00")))

	assert.Equal(t, []string{"p-b", "p-a"}, o.ProductIDs())
}

func TestQuantityByProduct_FoldsDuplicates(t *testing.T) {
	o, err := New("o-1", "c-1")
	require.NoError(t, err)
	require.NoError(t, o.AddLine("p-1", 2, usd(t, "1.00")))
	require.NoError(t, o.AddLine("p-1", 3, usd(t, "1.00")))
	require.NoError(t, o.AddLine("p-2", 1, usd(t, "1.00")))

	assert.Equal(t, map[string]int{"p-1": 5, "p-2": 1}, o.QuantityByProduct())
}

func TestClone_IsIndependent(t *testing.T) {
	o, err := New("o-1", "c-1")
	require.NoError(t, err)
	require.NoError(t, o.AddLine("p-1", 1, usd(t, "1.00")))

	clone := o.Clone()
	require.NoError(t, clone.AddLine("p-2", 1, usd(t, "1.00")))
	require.NoError(t, clone.Confirm())

	assert.Len(t, o.Lines, 1)
	assert.Equal(t, StatusDraft, o.Status)

	var nilOrder *Order
	assert.Nil(t, nilOrder.Clone())
}
