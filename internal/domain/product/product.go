package product

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ventamart/orderstock/internal/domain/money"
)

var (
	ErrNotFound          = errors.New("product: not found")
	ErrCodeTaken         = errors.New("product: code already in use")
	ErrInvalidCode       = errors.New("product: code is required")
	ErrInvalidName       = errors.New("product: name is required")
	ErrInvalidQuantity   = errors.New("product: quantity must be greater than zero")
	ErrNegativeStock     = errors.New("product: stock must be zero or greater")
	ErrInactive          = errors.New("product: inactive")
	ErrInsufficientStock = errors.New("product: insufficient stock")
)

// InsufficientStockError names the product whose stock could not cover a
// requested quantity. It unwraps to ErrInsufficientStock.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("product %s: insufficient stock: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// Product is one entry in the stock ledger: the authoritative count of
// available units plus the catalog attributes needed to price a line.
type Product struct {
	ID            string
	Code          string
	Name          string
	Description   string
	UnitPrice     money.Money
	StockQuantity int
	MinStock      int
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func New(id, code, name, description string, unitPrice money.Money, stock, minStock int) (*Product, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrInvalidCode
	}
	if strings.TrimSpace(name) == "" {
		return nil, ErrInvalidName
	}
	if stock < 0 || minStock < 0 {
		return nil, ErrNegativeStock
	}

	now := time.Now().UTC()
	return &Product{
		ID:            id,
		Code:          code,
		Name:          name,
		Description:   description,
		UnitPrice:     unitPrice,
		StockQuantity: stock,
		MinStock:      minStock,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Decrement reduces stock by quantity and returns the remaining count.
// It is not safe against concurrent callers on its own; the repository's
// confirmation protocol is the only place allowed to invoke it, inside the
// critical section that holds this product's row lock.
func (p *Product) Decrement(quantity int) (int, error) {
	if quantity <= 0 {
		return 0, ErrInvalidQuantity
	}
	if quantity > p.StockQuantity {
		return 0, &InsufficientStockError{
			ProductID: p.ID,
			Requested: quantity,
			Available: p.StockQuantity,
		}
	}
	p.StockQuantity -= quantity
	p.touch()
	return p.StockQuantity, nil
}

// Restock adds units back to the ledger.
func (p *Product) Restock(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	p.StockQuantity += quantity
	p.touch()
	return nil
}

// Deactivate soft-deletes the product. Existing confirmed orders keep their
// captured prices; new lines may no longer reference it.
func (p *Product) Deactivate() {
	p.Active = false
	p.touch()
}

// BelowMinimum reports whether stock has reached the replenishment threshold.
func (p *Product) BelowMinimum() bool {
	return p.StockQuantity <= p.MinStock
}

func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

func (p *Product) touch() {
	p.UpdatedAt = time.Now().UTC()
}
