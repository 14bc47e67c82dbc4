package memory

import (
	"context"
	"sync"
)

// CustomerDirectory is a process-local stand-in for the customer-account
// system this core does not own. With no registered ids it accepts every
// customer, which is the useful default for demos and load tools.
type CustomerDirectory struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

func NewCustomerDirectory(ids ...string) *CustomerDirectory {
	d := &CustomerDirectory{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		d.ids[id] = struct{}{}
	}
	return d
}

func (d *CustomerDirectory) Register(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids[id] = struct{}{}
}

func (d *CustomerDirectory) Exists(ctx context.Context, customerID string) (bool, error) {
	_ = ctx
	if customerID == "" {
		return false, nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if len(d.ids) == 0 {
		return true, nil
	}
	_, ok := d.ids[customerID]
	return ok, nil
}
