package order

import (
	"errors"
	"time"

	"github.com/ventamart/orderstock/internal/domain/money"
)

var (
	ErrNotFound         = errors.New("order: not found")
	ErrInvalidState     = errors.New("order: operation not allowed in current state")
	ErrInvalidQuantity  = errors.New("order: quantity must be greater than zero")
	ErrInvalidProduct   = errors.New("order: product id is required")
	ErrCurrencyMismatch = errors.New("order: line currency differs from order currency")
	ErrLockWaitTimeout  = errors.New("order: lock wait timeout, retry the confirmation")
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// LineItem is one product-and-quantity claim inside an order. The unit
// price is captured when the line is added and never re-read afterwards.
type LineItem struct {
	ProductID string
	Quantity  int
	UnitPrice money.Money
}

// Subtotal is always derived; it is never stored where it could drift.
func (l LineItem) Subtotal() money.Money {
	return l.UnitPrice.MulInt(l.Quantity)
}

// Order is the aggregate root. It exclusively owns its line items and holds
// non-owning references to the customer and the products. Quantity claims
// have no effect on product stock until the confirmation protocol commits.
type Order struct {
	ID         string
	CustomerID string
	Status     Status
	Lines      []LineItem
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func New(id, customerID string) (*Order, error) {
	if id == "" {
		return nil, errors.New("order: id is required")
	}
	if customerID == "" {
		return nil, errors.New("order: customer id is required")
	}

	now := time.Now().UTC()
	return &Order{
		ID:         id,
		CustomerID: customerID,
		Status:     StatusDraft,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// AddLine appends a line while the order is still a draft. The caller is
// responsible for having resolved the product's current unit price; the
// aggregate only enforces local invariants.
func (o *Order) AddLine(productID string, quantity int, unitPrice money.Money) error {
	if productID == "" {
		return ErrInvalidProduct
	}
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	if len(o.Lines) > 0 && o.Lines[0].UnitPrice.Currency() != unitPrice.Currency() {
		return ErrCurrencyMismatch
	}

	line := LineItem{ProductID: productID, Quantity: quantity, UnitPrice: unitPrice}
	next, err := o.state().OnAddLine(o, line)
	if err != nil {
		return err
	}
	o.Status = next.Status()
	o.touch()
	return nil
}

// Total recomputes the sum of line subtotals on every call. An order with
// no lines totals zero with no currency attached yet.
func (o *Order) Total() money.Money {
	if len(o.Lines) == 0 {
		return money.Money{}
	}
	total := money.Zero(o.Lines[0].UnitPrice.Currency())
	for _, line := range o.Lines {
		total = total.Add(line.Subtotal())
	}
	return total
}

// Confirm moves a draft to its terminal success state. Only the repository's
// confirmation protocol calls this, after every line's stock was validated
// and decremented inside the same transaction.
func (o *Order) Confirm() error {
	next, err := o.state().OnConfirm(o)
	if err != nil {
		return err
	}
	o.Status = next.Status()
	o.touch()
	return nil
}

// Cancel terminates a draft without any stock interaction.
func (o *Order) Cancel() error {
	next, err := o.state().OnCancel(o)
	if err != nil {
		return err
	}
	o.Status = next.Status()
	o.touch()
	return nil
}

func (o *Order) IsDraft() bool { return o.Status == StatusDraft }

// ProductIDs returns the distinct products referenced by the order's lines,
// in first-appearance order.
func (o *Order) ProductIDs() []string {
	seen := make(map[string]struct{}, len(o.Lines))
	ids := make([]string, 0, len(o.Lines))
	for _, line := range o.Lines {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		ids = append(ids, line.ProductID)
	}
	return ids
}

// QuantityByProduct folds line quantities per product, so an order with two
// lines on the same product claims their sum.
func (o *Order) QuantityByProduct() map[string]int {
	quantities := make(map[string]int, len(o.Lines))
	for _, line := range o.Lines {
		quantities[line.ProductID] += line.Quantity
	}
	return quantities
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Lines = append([]LineItem(nil), o.Lines...)
	return &clone
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}
