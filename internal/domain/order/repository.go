package order

import "context"

// Repository is the order store and the transaction boundary.
//
// ConfirmWithStock is the single operation allowed to read, validate, and
// decrement product stock. It must acquire an exclusive per-product lock for
// every distinct product on the order, in ascending product-id order, hold
// the locks across the re-read/validate/decrement sequence, and make all
// writes (stock decrements plus the draft→confirmed transition) visible
// atomically or not at all. Callers must never compose Get with their own
// stock mutation; that reintroduces the oversell race this contract exists
// to prevent.
type Repository interface {
	// Save persists a draft. Confirmed orders are only written by
	// ConfirmWithStock.
	Save(ctx context.Context, o *Order) error

	Get(ctx context.Context, id string) (*Order, error)

	// ConfirmWithStock returns the confirmed order, or ErrNotFound,
	// ErrInvalidState, a product.InsufficientStockError naming the offending
	// product, or ErrLockWaitTimeout when the locks could not be acquired
	// within the configured bound (safe to retry).
	ConfirmWithStock(ctx context.Context, id string) (*Order, error)
}
