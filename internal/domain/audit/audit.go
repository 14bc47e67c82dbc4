package audit

import "time"

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"

	ActionOrderCreated   = "order.created"
	ActionLineAdded      = "order.line_added"
	ActionOrderConfirmed = "order.confirmed"
	ActionOrderCancelled = "order.cancelled"
	ActionProductCreated = "product.created"
	ActionStockRestocked = "product.restocked"
)

// Record is one immutable audit notification: who acted on what, when, and
// with which outcome.
type Record struct {
	EntityType string
	EntityID   string
	Action     string
	Outcome    string
	Message    string
	OccurredAt time.Time
}

func NewRecord(entityType, entityID, action, outcome, message string) Record {
	return Record{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Outcome:    outcome,
		Message:    message,
		OccurredAt: time.Now().UTC(),
	}
}

// Recorder receives fire-and-forget notifications of state changes. Notify
// has no error return on purpose: a failure to record must never fail or
// delay the operation being audited. Implementations absorb and log their
// own errors.
type Recorder interface {
	Notify(record Record)
}

type nopRecorder struct{}

func (nopRecorder) Notify(Record) {}

// NopRecorder discards every record. Useful as a safe fallback and in tests.
func NopRecorder() Recorder { return nopRecorder{} }
