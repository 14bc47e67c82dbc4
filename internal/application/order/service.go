package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	domaudit "github.com/ventamart/orderstock/internal/domain/audit"
	domain "github.com/ventamart/orderstock/internal/domain/order"
	domproduct "github.com/ventamart/orderstock/internal/domain/product"
	"github.com/ventamart/orderstock/internal/observability"
	"github.com/ventamart/orderstock/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	serviceName = "order-service"
	spanPrefix  = "UC."

	useCaseCreate  = "order.create"
	useCaseAddLine = "order.add_line"
	useCaseConfirm = "order.confirm"
	useCaseCancel  = "order.cancel"

	entityOrder = "order"
)

var (
	ErrCustomerNotFound = errors.New("order: customer not found")
	ErrInvalidValue     = errors.New("order: invalid value")
	ErrRepository       = errors.New("order: repository failure")
)

// Service drives the order lifecycle: draft creation, line capture, and the
// stock-safe confirmation. The repository owns the locking transaction;
// this layer never reads stock and writes it back itself.
type Service struct {
	repo      domain.Repository
	products  domproduct.Repository
	customers CustomerDirectory
	idGen     IDGenerator
	recorder  domaudit.Recorder
	tel       observability.Observability

	log          observability.Logger
	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
	confirmCount observability.Counter   // order_confirm_attempts_total{outcome}
}

func NewService(
	repo domain.Repository,
	products domproduct.Repository,
	customers CustomerDirectory,
	idGen IDGenerator,
	recorder domaudit.Recorder,
	tel observability.Observability,
) *Service {
	if tel == nil {
		tel = observability.Nop()
	}
	if recorder == nil {
		recorder = domaudit.NopRecorder()
	}
	metrics := tel.Metrics()

	return &Service{
		repo:         repo,
		products:     products,
		customers:    customers,
		idGen:        idGen,
		recorder:     recorder,
		tel:          tel,
		log:          tel.Logger().With(observability.F("service", serviceName)),
		reqCounter:   metrics.Counter(observability.MUsecaseRequests),
		durHistogram: metrics.Histogram(observability.MUsecaseDuration),
		confirmCount: metrics.Counter(observability.MConfirmAttempts),
	}
}

type CreateInput struct {
	CustomerID string
}

// Create opens an empty draft for a known customer. No stock is touched.
func (s *Service) Create(ctx context.Context, input CreateInput) (_ *domain.Order, err error) {
	ctx, finish := s.begin(ctx, useCaseCreate,
		attribute.String("order.customer_id", input.CustomerID),
	)
	defer func() { finish(err) }()

	if input.CustomerID == "" {
		return nil, newValidation("customer id is required")
	}

	known, err := s.customers.Exists(ctx, input.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("order: customer lookup: %w", err)
	}
	if !known {
		return nil, ErrCustomerNotFound
	}

	entity, err := domain.New(s.idGen.NewID(), input.CustomerID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, entity); err != nil {
		return nil, wrapRepositoryError(err)
	}

	s.recorder.Notify(domaudit.NewRecord(
		entityOrder, entity.ID, domaudit.ActionOrderCreated, domaudit.OutcomeSuccess, "",
	))
	return entity, nil
}

type AddLineInput struct {
	OrderID   string
	ProductID string
	Quantity  int
}

// AddLine validates the product reference and captures its current unit
// price onto the draft. Availability is deliberately not checked here; only
// the confirmation protocol may reason about stock.
func (s *Service) AddLine(ctx context.Context, input AddLineInput) (_ *domain.Order, err error) {
	ctx, finish := s.begin(ctx, useCaseAddLine,
		attribute.String("order.id", input.OrderID),
		attribute.String("order.product_id", input.ProductID),
		attribute.Int("order.quantity", input.Quantity),
	)
	defer func() { finish(err) }()

	if input.OrderID == "" {
		return nil, newValidation("order id is required")
	}
	if input.Quantity < 1 {
		return nil, newValidation("quantity must be at least 1")
	}

	p, err := s.products.Get(ctx, input.ProductID)
	if err != nil {
		return nil, wrapRepositoryError(err)
	}
	if !p.Active {
		return nil, fmt.Errorf("%w: %s", domproduct.ErrInactive, p.ID)
	}

	entity, err := s.repo.Get(ctx, input.OrderID)
	if err != nil {
		return nil, wrapRepositoryError(err)
	}
	if err := entity.AddLine(p.ID, input.Quantity, p.UnitPrice); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, entity); err != nil {
		return nil, wrapRepositoryError(err)
	}

	s.recorder.Notify(domaudit.NewRecord(
		entityOrder, entity.ID, domaudit.ActionLineAdded, domaudit.OutcomeSuccess,
		fmt.Sprintf("product=%s quantity=%d", p.ID, input.Quantity),
	))
	return entity, nil
}

// Confirm runs the stock-safe confirmation protocol and audits the outcome
// either way. The audit notification is fire-and-forget: it happens after
// the repository committed or aborted, and it cannot fail the caller.
func (s *Service) Confirm(ctx context.Context, orderID string) (_ *domain.Order, err error) {
	ctx, finish := s.begin(ctx, useCaseConfirm,
		attribute.String("order.id", orderID),
	)
	defer func() { finish(err) }()

	if orderID == "" {
		return nil, newValidation("order id is required")
	}

	entity, err := s.repo.ConfirmWithStock(ctx, orderID)

	outcome := "success"
	switch {
	case err == nil:
		s.recorder.Notify(domaudit.NewRecord(
			entityOrder, orderID, domaudit.ActionOrderConfirmed, domaudit.OutcomeSuccess,
			fmt.Sprintf("total=%s", entity.Total()),
		))
	case errors.Is(err, domproduct.ErrInsufficientStock):
		outcome = "insufficient_stock"
		s.recorder.Notify(domaudit.NewRecord(
			entityOrder, orderID, domaudit.ActionOrderConfirmed, domaudit.OutcomeFailure, err.Error(),
		))
	case errors.Is(err, domain.ErrLockWaitTimeout):
		outcome = "lock_timeout"
	case errors.Is(err, domain.ErrInvalidState):
		outcome = "invalid_state"
	case errors.Is(err, domain.ErrNotFound):
		outcome = "not_found"
	default:
		outcome = "error"
	}
	s.confirmCount.Add(1, observability.L("outcome", outcome))

	if err != nil {
		return nil, err
	}
	return entity, nil
}

// Cancel terminates a draft. Stock is untouched because a draft never held
// any.
func (s *Service) Cancel(ctx context.Context, orderID string) (_ *domain.Order, err error) {
	ctx, finish := s.begin(ctx, useCaseCancel,
		attribute.String("order.id", orderID),
	)
	defer func() { finish(err) }()

	if orderID == "" {
		return nil, newValidation("order id is required")
	}

	entity, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, wrapRepositoryError(err)
	}
	if err := entity.Cancel(); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, entity); err != nil {
		return nil, wrapRepositoryError(err)
	}

	s.recorder.Notify(domaudit.NewRecord(
		entityOrder, entity.ID, domaudit.ActionOrderCancelled, domaudit.OutcomeSuccess, "",
	))
	return entity, nil
}

func (s *Service) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	if orderID == "" {
		return nil, newValidation("order id is required")
	}
	entity, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, wrapRepositoryError(err)
	}
	return entity, nil
}

// begin opens the span and returns the deferred close that records metrics,
// span status, and the completion log entry for the use case.
func (s *Service) begin(ctx context.Context, useCase string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	attrs = append(attrs, attribute.String("use_case", useCase))
	ctx, span := s.tel.Tracer().Start(ctx, spanPrefix+useCase, attrs...)
	start := time.Now()

	logger := logctx.FromOr(ctx, s.log).With(observability.F("use_case", useCase))
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		logger = logger.With(
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}
	ctx = logctx.With(ctx, logger)

	return ctx, func(err error) {
		lat := time.Since(start).Seconds()
		outcome := "success"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "OK")
		}
		span.End()

		s.reqCounter.Add(1,
			observability.L("use_case", useCase),
			observability.L("outcome", outcome),
		)
		s.durHistogram.Observe(lat, observability.L("use_case", useCase))

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("latency_seconds", lat),
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}
		logger.Info("use_case_done", fields...)
	}
}

func wrapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrLockWaitTimeout),
		errors.Is(err, domproduct.ErrNotFound),
		errors.Is(err, domproduct.ErrInsufficientStock):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrRepository, err)
	}
}

func newValidation(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidValue, msg)
}
