package product

import "context"

// Repository persists stock-ledger entries. Stock decrements are not part
// of this contract: they happen only inside the order repository's
// confirmation transaction.
type Repository interface {
	// Save creates a ledger entry (ErrCodeTaken on a code collision).
	// Mutations of existing entries go through Update; composing Get with
	// Save would write stock from a stale read.
	Save(ctx context.Context, p *Product) error

	// Update applies mutate to the stored product while holding its
	// exclusive lock, so restocks and deactivations serialize with the
	// confirmation protocol's decrements.
	Update(ctx context.Context, id string, mutate func(*Product) error) (*Product, error)

	Get(ctx context.Context, id string) (*Product, error)
	GetByCode(ctx context.Context, code string) (*Product, error)
	List(ctx context.Context) ([]*Product, error)
}
