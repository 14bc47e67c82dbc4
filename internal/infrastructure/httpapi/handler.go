package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	appCatalog "github.com/ventamart/orderstock/internal/application/catalog"
	appOrder "github.com/ventamart/orderstock/internal/application/order"
	"github.com/ventamart/orderstock/internal/domain/money"
	domainOrder "github.com/ventamart/orderstock/internal/domain/order"
	domainProduct "github.com/ventamart/orderstock/internal/domain/product"
)

type Handler struct {
	orderService   *appOrder.Service
	catalogService *appCatalog.Service
}

func NewHandler(orderSvc *appOrder.Service, catalogSvc *appCatalog.Service) *Handler {
	return &Handler{
		orderService:   orderSvc,
		catalogService: catalogSvc,
	}
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /orders", h.handleCreateOrder)
	mux.HandleFunc("GET /orders/{id}", h.handleGetOrder)
	mux.HandleFunc("POST /orders/{id}/lines", h.handleAddLine)
	mux.HandleFunc("POST /orders/{id}/confirm", h.handleConfirmOrder)
	mux.HandleFunc("POST /orders/{id}/cancel", h.handleCancelOrder)

	mux.HandleFunc("POST /products", h.handleCreateProduct)
	mux.HandleFunc("GET /products/low-stock", h.handleLowStock)
	mux.HandleFunc("GET /products/{id}", h.handleGetProduct)
	mux.HandleFunc("POST /products/{id}/restock", h.handleRestock)
	mux.HandleFunc("POST /products/{id}/deactivate", h.handleDeactivate)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return mux
}

type createOrderRequest struct {
	CustomerID string `json:"customer_id"`
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	o, err := h.orderService.Create(r.Context(), appOrder.CreateInput{CustomerID: req.CustomerID})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orderService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

type addLineRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (h *Handler) handleAddLine(w http.ResponseWriter, r *http.Request) {
	var req addLineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	o, err := h.orderService.AddLine(r.Context(), appOrder.AddLineInput{
		OrderID:   r.PathValue("id"),
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) handleConfirmOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orderService.Confirm(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orderService.Cancel(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

type createProductRequest struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	PriceAmount string `json:"price_amount"`
	Currency    string `json:"currency"`
	Stock       int    `json:"stock"`
	MinStock    int    `json:"min_stock"`
}

func (h *Handler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	p, err := h.catalogService.Create(r.Context(), appCatalog.CreateInput{
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		PriceAmount: req.PriceAmount,
		Currency:    req.Currency,
		Stock:       req.Stock,
		MinStock:    req.MinStock,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductResponse(p))
}

func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalogService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(p))
}

type restockRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) handleRestock(w http.ResponseWriter, r *http.Request) {
	var req restockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	p, err := h.catalogService.Restock(r.Context(), r.PathValue("id"), req.Quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(p))
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalogService.Deactivate(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(p))
}

func (h *Handler) handleLowStock(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalogService.LowStock(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

type lineResponse struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Subtotal  string `json:"subtotal"`
}

type orderResponse struct {
	ID         string         `json:"id"`
	CustomerID string         `json:"customer_id"`
	State      string         `json:"state"`
	Total      string         `json:"total"`
	Currency   string         `json:"currency,omitempty"`
	ItemCount  int            `json:"item_count"`
	Lines      []lineResponse `json:"lines"`
	Active     bool           `json:"active"`
	CreatedAt  time.Time      `json:"created_at"`
	ModifiedAt time.Time      `json:"modified_at"`
}

func toOrderResponse(o *domainOrder.Order) orderResponse {
	lines := make([]lineResponse, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, lineResponse{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice.Amount().StringFixed(2),
			Subtotal:  l.Subtotal().Amount().StringFixed(2),
		})
	}
	total := o.Total()
	return orderResponse{
		ID:         o.ID,
		CustomerID: o.CustomerID,
		State:      string(o.Status),
		Total:      total.Amount().StringFixed(2),
		Currency:   total.Currency(),
		ItemCount:  len(o.Lines),
		Lines:      lines,
		Active:     o.Active,
		CreatedAt:  o.CreatedAt,
		ModifiedAt: o.UpdatedAt,
	}
}

type productResponse struct {
	ID            string    `json:"id"`
	Code          string    `json:"code"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	UnitPrice     string    `json:"unit_price"`
	Currency      string    `json:"currency"`
	StockQuantity int       `json:"stock_quantity"`
	MinStock      int       `json:"min_stock"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
	ModifiedAt    time.Time `json:"modified_at"`
}

func toProductResponse(p *domainProduct.Product) productResponse {
	return productResponse{
		ID:            p.ID,
		Code:          p.Code,
		Name:          p.Name,
		Description:   p.Description,
		UnitPrice:     p.UnitPrice.Amount().StringFixed(2),
		Currency:      p.UnitPrice.Currency(),
		StockQuantity: p.StockQuantity,
		MinStock:      p.MinStock,
		Active:        p.Active,
		CreatedAt:     p.CreatedAt,
		ModifiedAt:    p.UpdatedAt,
	}
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeDomainError(w http.ResponseWriter, err error) {
	var stockErr *domainProduct.InsufficientStockError

	switch {
	case errors.Is(err, domainOrder.ErrNotFound),
		errors.Is(err, domainProduct.ErrNotFound),
		errors.Is(err, appOrder.ErrCustomerNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.As(err, &stockErr),
		errors.Is(err, domainProduct.ErrInsufficientStock),
		errors.Is(err, domainProduct.ErrCodeTaken):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, domainOrder.ErrLockWaitTimeout):
		writeError(w, http.StatusServiceUnavailable, err)
	case errors.Is(err, domainOrder.ErrInvalidState):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, appOrder.ErrInvalidValue),
		errors.Is(err, money.ErrInvalidAmount),
		errors.Is(err, money.ErrNegativeAmount),
		errors.Is(err, money.ErrInvalidCurrency),
		errors.Is(err, domainOrder.ErrInvalidQuantity),
		errors.Is(err, domainOrder.ErrCurrencyMismatch),
		errors.Is(err, domainProduct.ErrInvalidQuantity),
		errors.Is(err, domainProduct.ErrInvalidCode),
		errors.Is(err, domainProduct.ErrInvalidName),
		errors.Is(err, domainProduct.ErrNegativeStock),
		errors.Is(err, domainProduct.ErrInactive):
		writeError(w, http.StatusBadRequest, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
