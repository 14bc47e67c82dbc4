package catalog

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appOrder "github.com/ventamart/orderstock/internal/application/order"
	domaudit "github.com/ventamart/orderstock/internal/domain/audit"
	"github.com/ventamart/orderstock/internal/domain/money"
	domain "github.com/ventamart/orderstock/internal/domain/product"
	"github.com/ventamart/orderstock/internal/infrastructure/memory"
)

type seqIDGenerator struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDGenerator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("id-%d", g.n)
}

type recordingRecorder struct {
	mu      sync.Mutex
	records []domaudit.Record
}

func (r *recordingRecorder) Notify(record domaudit.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
}

func (r *recordingRecorder) last(t *testing.T) domaudit.Record {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.records)
	return r.records[len(r.records)-1]
}

func newService(t *testing.T) (*Service, *recordingRecorder) {
	t.Helper()
	recorder := &recordingRecorder{}
	store := memory.NewStore(0)
	return NewService(store.ProductRepository(), &seqIDGenerator{}, recorder, nil), recorder
}

func validInput() CreateInput {
	return CreateInput{
		Code:        "SKU-1",
		Name:        "Widget",
		Description: "a widget",
		PriceAmount: "9.99",
		Currency:    "USD",
		Stock:       10,
		MinStock:    2,
	}
}

func TestService_Create(t *testing.T) {
	svc, recorder := newService(t)

	p, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "SKU-1", p.Code)
	assert.Equal(t, "9.99 USD", p.UnitPrice.String())
	assert.True(t, p.Active)

	rec := recorder.last(t)
	assert.Equal(t, domaudit.ActionProductCreated, rec.Action)
	assert.Equal(t, p.ID, rec.EntityID)
}

func TestService_Create_DuplicateCode(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	input := validInput()
	input.Name = "Another widget"
	_, err = svc.Create(context.Background(), input)
	assert.ErrorIs(t, err, domain.ErrCodeTaken)
}

func TestService_Create_InvalidPrice(t *testing.T) {
	svc, _ := newService(t)

	input := validInput()
	input.PriceAmount = "nine"
	_, err := svc.Create(context.Background(), input)
	assert.ErrorIs(t, err, money.ErrInvalidAmount)

	input = validInput()
	input.PriceAmount = "-1.00"
	_, err = svc.Create(context.Background(), input)
	assert.ErrorIs(t, err, money.ErrNegativeAmount)
}

func TestService_Restock(t *testing.T) {
	svc, recorder := newService(t)

	p, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	restocked, err := svc.Restock(context.Background(), p.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 15, restocked.StockQuantity)

	rec := recorder.last(t)
	assert.Equal(t, domaudit.ActionStockRestocked, rec.Action)

	_, err = svc.Restock(context.Background(), p.ID, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	_, err = svc.Restock(context.Background(), "missing", 5)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_Deactivate(t *testing.T) {
	svc, _ := newService(t)

	p, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	deactivated, err := svc.Deactivate(context.Background(), p.ID)
	require.NoError(t, err)
	assert.False(t, deactivated.Active)

	got, err := svc.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
}

// A confirmation that lands between reading a product and restocking it
// must keep its decrement; the restock applies on top of the live count.
func TestService_Restock_KeepsConfirmedDecrement(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(0)
	catalogSvc := NewService(store.ProductRepository(), &seqIDGenerator{}, nil, nil)
	orderSvc := appOrder.NewService(
		store, store.ProductRepository(), memory.NewCustomerDirectory(), &seqIDGenerator{}, nil, nil,
	)

	input := validInput()
	input.Stock = 1
	p, err := catalogSvc.Create(ctx, input)
	require.NoError(t, err)

	o, err := orderSvc.Create(ctx, appOrder.CreateInput{CustomerID: "c-1"})
	require.NoError(t, err)
	_, err = orderSvc.AddLine(ctx, appOrder.AddLineInput{OrderID: o.ID, ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = orderSvc.Confirm(ctx, o.ID)
	require.NoError(t, err)

	restocked, err := catalogSvc.Restock(ctx, p.ID, 5)
	require.NoError(t, err)
	// 1 - 1 + 5, not 1 + 5
	assert.Equal(t, 5, restocked.StockQuantity)
}

func TestService_LowStock(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	healthy := validInput()
	_, err := svc.Create(ctx, healthy)
	require.NoError(t, err)

	low := validInput()
	low.Code = "SKU-2"
	low.Stock = 2
	low.MinStock = 3
	lowProduct, err := svc.Create(ctx, low)
	require.NoError(t, err)

	inactive := validInput()
	inactive.Code = "SKU-3"
	inactive.Stock = 0
	inactiveProduct, err := svc.Create(ctx, inactive)
	require.NoError(t, err)
	_, err = svc.Deactivate(ctx, inactiveProduct.ID)
	require.NoError(t, err)

	got, err := svc.LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, lowProduct.ID, got[0].ID)
}
