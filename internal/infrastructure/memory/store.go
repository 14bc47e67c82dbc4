package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	domorder "github.com/ventamart/orderstock/internal/domain/order"
	domproduct "github.com/ventamart/orderstock/internal/domain/product"
)

const defaultLockWait = 3 * time.Second

// Store keeps orders and products in process memory behind clone-on-read
// maps. It implements both repository contracts, because the confirmation
// protocol has to mutate an order and its products inside one critical
// section; splitting the maps across two stores would split that atomicity.
type Store struct {
	mu       sync.RWMutex
	orders   map[string]*domorder.Order
	products map[string]*domproduct.Product

	locks    *lockTable
	lockWait time.Duration
}

func NewStore(lockWait time.Duration) *Store {
	if lockWait <= 0 {
		lockWait = defaultLockWait
	}
	return &Store{
		orders:   make(map[string]*domorder.Order),
		products: make(map[string]*domproduct.Product),
		locks:    newLockTable(),
		lockWait: lockWait,
	}
}

// Save persists a draft or cancels one. Confirmed orders are written only
// by ConfirmWithStock; once the stored copy has left draft, Save refuses to
// overwrite it. Save takes the order's lock slot so a write cannot slip in
// between a running confirmation's re-read and its commit.
func (s *Store) Save(ctx context.Context, o *domorder.Order) error {
	if o == nil || o.ID == "" {
		return fmt.Errorf("memory: order id is required")
	}
	if o.Status == domorder.StatusConfirmed {
		return domorder.ErrInvalidState
	}

	if err := s.locks.acquire(ctx, orderLockKey(o.ID), s.lockWait); err != nil {
		return err
	}
	defer s.locks.release(orderLockKey(o.ID))

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.orders[o.ID]; ok && !existing.IsDraft() {
		return domorder.ErrInvalidState
	}
	s.orders[o.ID] = o.Clone()
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*domorder.Order, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, domorder.ErrNotFound
	}
	return o.Clone(), nil
}

// ConfirmWithStock decides commit or reject for one draft order.
//
// Locks are taken on the order first and then on each distinct product in
// ascending id order, so two confirmations competing for overlapping
// product sets can never hold pieces of each other's lock set. Stock is
// re-read only after every lock is held; the values seen before that point
// are treated as stale.
func (s *Store) ConfirmWithStock(ctx context.Context, id string) (*domorder.Order, error) {
	for {
		s.mu.RLock()
		stored, ok := s.orders[id]
		var productIDs []string
		if ok {
			productIDs = stored.ProductIDs()
		}
		s.mu.RUnlock()

		if !ok {
			return nil, domorder.ErrNotFound
		}
		sort.Strings(productIDs)

		confirmed, retry, err := s.confirmLocked(ctx, id, productIDs)
		if retry {
			// A line landed on the order between the snapshot and the lock
			// acquisition; the lock set no longer covers the order. Rebuild it.
			continue
		}
		return confirmed, err
	}
}

// confirmLocked runs one attempt of the protocol's critical section against
// a candidate lock set. retry is reported when the order's product set
// changed before the locks were all held.
func (s *Store) confirmLocked(ctx context.Context, id string, productIDs []string) (_ *domorder.Order, retry bool, err error) {
	lockKeys := append([]string{orderLockKey(id)}, productIDs...)

	held := make([]string, 0, len(lockKeys))
	defer func() {
		for i := len(held) - 1; i >= 0; i-- {
			s.locks.release(held[i])
		}
	}()
	for _, key := range lockKeys {
		if err := s.locks.acquire(ctx, key, s.lockWait); err != nil {
			return nil, false, err
		}
		held = append(held, key)
	}

	// All locks held: re-read everything, validate everything, then write
	// everything. A failure anywhere before the write leaves no trace.
	s.mu.RLock()
	working := s.orders[id].Clone()
	products := make(map[string]*domproduct.Product, len(productIDs))
	for _, pid := range productIDs {
		products[pid] = s.products[pid].Clone()
	}
	s.mu.RUnlock()

	if working == nil {
		return nil, false, domorder.ErrNotFound
	}
	if !working.IsDraft() {
		return nil, false, domorder.ErrInvalidState
	}

	current := working.ProductIDs()
	sort.Strings(current)
	if !equalIDs(current, productIDs) {
		return nil, true, nil
	}

	quantities := working.QuantityByProduct()
	for _, pid := range productIDs {
		p := products[pid]
		if p == nil {
			return nil, false, fmt.Errorf("%w: %s", domproduct.ErrNotFound, pid)
		}
		if qty := quantities[pid]; p.StockQuantity < qty {
			return nil, false, &domproduct.InsufficientStockError{
				ProductID: pid,
				Requested: qty,
				Available: p.StockQuantity,
			}
		}
	}

	for _, pid := range productIDs {
		if _, err := products[pid].Decrement(quantities[pid]); err != nil {
			return nil, false, err
		}
	}
	if err := working.Confirm(); err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	for _, pid := range productIDs {
		s.products[pid] = products[pid]
	}
	s.orders[id] = working
	s.mu.Unlock()

	return working.Clone(), false, nil
}

// SaveProduct inserts or updates a ledger entry, enforcing code uniqueness
// across active and inactive products alike.
func (s *Store) SaveProduct(ctx context.Context, p *domproduct.Product) error {
	_ = ctx
	if p == nil || p.ID == "" {
		return fmt.Errorf("memory: product id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.products {
		if existing.Code == p.Code && existing.ID != p.ID {
			return domproduct.ErrCodeTaken
		}
	}
	s.products[p.ID] = p.Clone()
	return nil
}

// UpdateProduct applies mutate to the stored product inside the product's
// critical section. Stock adjustments must come through here rather than a
// Get/SaveProduct pair: holding the lock slot serializes the mutation
// against a confirmation's decrement, so neither write is lost.
func (s *Store) UpdateProduct(ctx context.Context, id string, mutate func(*domproduct.Product) error) (*domproduct.Product, error) {
	if err := s.locks.acquire(ctx, id, s.lockWait); err != nil {
		return nil, err
	}
	defer s.locks.release(id)

	s.mu.RLock()
	working := s.products[id].Clone()
	s.mu.RUnlock()
	if working == nil {
		return nil, domproduct.ErrNotFound
	}

	if err := mutate(working); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.products {
		if existing.Code == working.Code && existing.ID != working.ID {
			return nil, domproduct.ErrCodeTaken
		}
	}
	s.products[id] = working
	return working.Clone(), nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domproduct.Product, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, domproduct.ErrNotFound
	}
	return p.Clone(), nil
}

func (s *Store) GetProductByCode(ctx context.Context, code string) (*domproduct.Product, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.products {
		if p.Code == code {
			return p.Clone(), nil
		}
	}
	return nil, domproduct.ErrNotFound
}

func (s *Store) ListProducts(ctx context.Context) ([]*domproduct.Product, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domproduct.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Order and product ids share one lock table; the prefix keeps an order
// from colliding with a product that happens to carry the same id.
func orderLockKey(id string) string { return "order/" + id }

// ProductRepository adapts the store to the product repository interface.
func (s *Store) ProductRepository() *ProductRepository {
	return &ProductRepository{store: s}
}

type ProductRepository struct{ store *Store }

func (r *ProductRepository) Save(ctx context.Context, p *domproduct.Product) error {
	return r.store.SaveProduct(ctx, p)
}

func (r *ProductRepository) Update(ctx context.Context, id string, mutate func(*domproduct.Product) error) (*domproduct.Product, error) {
	return r.store.UpdateProduct(ctx, id, mutate)
}

func (r *ProductRepository) Get(ctx context.Context, id string) (*domproduct.Product, error) {
	return r.store.GetProduct(ctx, id)
}

func (r *ProductRepository) GetByCode(ctx context.Context, code string) (*domproduct.Product, error) {
	return r.store.GetProductByCode(ctx, code)
}

func (r *ProductRepository) List(ctx context.Context) ([]*domproduct.Product, error) {
	return r.store.ListProducts(ctx)
}
