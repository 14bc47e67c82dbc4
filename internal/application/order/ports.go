package order

import "context"

type IDGenerator interface {
	NewID() string
}

// CustomerDirectory is the customer-existence collaborator. Customer
// accounts are owned elsewhere; this core only asks whether one exists.
type CustomerDirectory interface {
	Exists(ctx context.Context, customerID string) (bool, error)
}
