package audit

import (
	"context"
	"sync"

	domaudit "github.com/ventamart/orderstock/internal/domain/audit"
	"github.com/ventamart/orderstock/internal/observability"
)

const componentAudit = "audit_recorder"

// Recorder drains audit records to the structured log on a worker
// goroutine. Notify never blocks and never reports failure to the caller:
// when the queue is full the record is dropped, counted, and logged here.
type Recorder struct {
	queue     chan domaudit.Record
	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}

	log     observability.Logger
	dropped observability.Counter
}

func NewRecorder(logger observability.Logger, metrics observability.Metrics, queueSize int) *Recorder {
	if logger == nil {
		logger = observability.NopLogger()
	}
	if metrics == nil {
		metrics = observability.NopMetrics()
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Recorder{
		queue:   make(chan domaudit.Record, queueSize),
		done:    make(chan struct{}),
		log:     logger.With(observability.F("component", componentAudit)),
		dropped: metrics.Counter(observability.MAuditRecordsDropped),
	}
}

func (r *Recorder) Start(ctx context.Context) {
	r.startOnce.Do(func() {
		go r.drainLoop()
		r.log.Info("audit_recorder_started")
	})
	_ = ctx
}

// Stop closes the queue and waits for buffered records to be written.
func (r *Recorder) Stop(ctx context.Context) {
	r.stopOnce.Do(func() {
		close(r.queue)
		select {
		case <-r.done:
		case <-ctx.Done():
		}
		r.log.Info("audit_recorder_stopped")
	})
}

// Notify implements the fire-and-forget contract: no error return, no
// blocking. A full queue drops the record rather than slow the operation
// being audited.
func (r *Recorder) Notify(record domaudit.Record) {
	select {
	case r.queue <- record:
	default:
		r.dropped.Add(1)
		r.log.Warn("audit_record_dropped",
			observability.F("entity_type", record.EntityType),
			observability.F("entity_id", record.EntityID),
			observability.F("action", record.Action),
		)
	}
}

func (r *Recorder) drainLoop() {
	defer close(r.done)
	for record := range r.queue {
		r.log.Info("audit_record",
			observability.F("entity_type", record.EntityType),
			observability.F("entity_id", record.EntityID),
			observability.F("action", record.Action),
			observability.F("outcome", record.Outcome),
			observability.F("message", record.Message),
			observability.F("occurred_at", record.OccurredAt),
		)
	}
}
