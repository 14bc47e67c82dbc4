package catalog

import (
	"context"
	"errors"
	"fmt"

	domaudit "github.com/ventamart/orderstock/internal/domain/audit"
	"github.com/ventamart/orderstock/internal/domain/money"
	domain "github.com/ventamart/orderstock/internal/domain/product"
	"github.com/ventamart/orderstock/internal/observability"
	"github.com/ventamart/orderstock/internal/observability/logctx"
)

const entityProduct = "product"

type IDGenerator interface {
	NewID() string
}

// Service maintains the product catalog. It writes ledger entries but never
// decrements stock; decrements belong to the order repository's
// confirmation transaction, restocks come through here.
type Service struct {
	repo     domain.Repository
	idGen    IDGenerator
	recorder domaudit.Recorder
	log      observability.Logger
}

func NewService(repo domain.Repository, idGen IDGenerator, recorder domaudit.Recorder, logger observability.Logger) *Service {
	if recorder == nil {
		recorder = domaudit.NopRecorder()
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Service{
		repo:     repo,
		idGen:    idGen,
		recorder: recorder,
		log:      logger.With(observability.F("service", "catalog-service")),
	}
}

type CreateInput struct {
	Code        string
	Name        string
	Description string
	PriceAmount string
	Currency    string
	Stock       int
	MinStock    int
}

func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.Product, error) {
	price, err := money.NewFromString(input.PriceAmount, input.Currency)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByCode(ctx, input.Code); err == nil {
		return nil, domain.ErrCodeTaken
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("catalog: code lookup: %w", err)
	}

	p, err := domain.New(s.idGen.NewID(), input.Code, input.Name, input.Description, price, input.Stock, input.MinStock)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("catalog: save: %w", err)
	}

	s.recorder.Notify(domaudit.NewRecord(
		entityProduct, p.ID, domaudit.ActionProductCreated, domaudit.OutcomeSuccess,
		fmt.Sprintf("code=%s stock=%d", p.Code, p.StockQuantity),
	))
	return p, nil
}

// Restock adjusts the ledger through the repository's locked update, never
// by writing back a product read earlier: a confirmation committing in
// between would lose its decrement to the stale copy.
func (s *Service) Restock(ctx context.Context, productID string, quantity int) (*domain.Product, error) {
	p, err := s.repo.Update(ctx, productID, func(p *domain.Product) error {
		return p.Restock(quantity)
	})
	if err != nil {
		return nil, err
	}

	s.recorder.Notify(domaudit.NewRecord(
		entityProduct, p.ID, domaudit.ActionStockRestocked, domaudit.OutcomeSuccess,
		fmt.Sprintf("quantity=%d stock=%d", quantity, p.StockQuantity),
	))
	return p, nil
}

func (s *Service) Deactivate(ctx context.Context, productID string) (*domain.Product, error) {
	return s.repo.Update(ctx, productID, func(p *domain.Product) error {
		p.Deactivate()
		return nil
	})
}

func (s *Service) Get(ctx context.Context, productID string) (*domain.Product, error) {
	return s.repo.Get(ctx, productID)
}

// LowStock reports products at or below their replenishment threshold.
func (s *Service) LowStock(ctx context.Context) ([]*domain.Product, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	logger := logctx.FromOr(ctx, s.log)
	var low []*domain.Product
	for _, p := range all {
		if p.Active && p.BelowMinimum() {
			low = append(low, p)
		}
	}
	if len(low) > 0 {
		logger.Warn("products_below_min_stock", observability.F("count", len(low)))
	}
	return low, nil
}
