package memory

import (
	"context"
	"sync"
	"time"

	domorder "github.com/ventamart/orderstock/internal/domain/order"
)

// lockTable is a partitioned mutex keyed by entity id, standing in for the
// row-level exclusive locks a SQL store takes with SELECT ... FOR UPDATE.
// Each slot is a capacity-1 channel: send acquires, receive releases, and
// waiters queue on the channel until the holder commits or aborts. Slots are
// refcounted by holders plus waiters and removed once uncontended, so the
// table does not grow with every id ever locked.
type lockTable struct {
	mu    sync.Mutex
	slots map[string]*lockSlot
}

type lockSlot struct {
	ch   chan struct{}
	refs int
}

func newLockTable() *lockTable {
	return &lockTable{slots: make(map[string]*lockSlot)}
}

func (t *lockTable) retain(key string) *lockSlot {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.slots[key]
	if !ok {
		s = &lockSlot{ch: make(chan struct{}, 1)}
		t.slots[key] = s
	}
	s.refs++
	return s
}

func (t *lockTable) put(key string, s *lockSlot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(t.slots, key)
	}
}

// acquire blocks until the slot is free, the wait bound elapses, or the
// context is done. A timed-out wait surfaces the retryable lock-wait error.
func (t *lockTable) acquire(ctx context.Context, key string, wait time.Duration) error {
	s := t.retain(key)

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case s.ch <- struct{}{}:
		return nil
	case <-timer.C:
		t.put(key, s)
		return domorder.ErrLockWaitTimeout
	case <-ctx.Done():
		t.put(key, s)
		return ctx.Err()
	}
}

// release must only be called by the current holder; the holder's reference
// keeps the slot alive until here.
func (t *lockTable) release(key string) {
	t.mu.Lock()
	s := t.slots[key]
	t.mu.Unlock()

	<-s.ch
	t.put(key, s)
}

func (t *lockTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.slots)
}
