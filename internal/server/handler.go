package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"cantina/internal/logger"
	"cantina/internal/models"
	"cantina/internal/receipt"
)

// CatalogService is the catalog reader the handler consumes
type CatalogService interface {
	Tables(ctx context.Context) ([]models.Table, error)
	Table(ctx context.Context, id int) (models.Table, error)
	Products(ctx context.Context) ([]models.Product, error)
	ProductsByCategory(ctx context.Context, category string) ([]models.Product, error)
	Categories(ctx context.Context) ([]string, error)
	Product(ctx context.Context, id int) (models.Product, error)
	Invalidate()
}

// OrderService is the order lifecycle the handler consumes
type OrderService interface {
	Resolve(ctx context.Context, tableID, partySize int) (models.Order, error)
	Order(ctx context.Context, orderID int) (models.Order, error)
	Append(ctx context.Context, orderID, productID, quantity int, unitPrice decimal.Decimal) error
	Items(ctx context.Context, orderID int) ([]models.LineItem, decimal.Decimal, error)
	Finalize(ctx context.Context, orderID int) (models.Order, error)
}

// Pinger reports storage health
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler exposes the order-capture workflow over HTTP
type Handler struct {
	catalog  CatalogService
	orders   OrderService
	renderer *receipt.Renderer
	venue    string
	pinger   Pinger
	logger   *logger.Logger
}

// NewHandler creates an HTTP handler over the catalog and order services
func NewHandler(catalog CatalogService, orders OrderService, renderer *receipt.Renderer, venue string, pinger Pinger, log *logger.Logger) *Handler {
	return &Handler{
		catalog:  catalog,
		orders:   orders,
		renderer: renderer,
		venue:    venue,
		pinger:   pinger,
		logger:   log,
	}
}

// SetupRoutes sets up the HTTP routes
func (h *Handler) SetupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.withLogging(h.HealthCheck))
	mux.HandleFunc("GET /tables", h.withLogging(h.ListTables))
	mux.HandleFunc("GET /products", h.withLogging(h.ListProducts))
	mux.HandleFunc("GET /categories", h.withLogging(h.ListCategories))
	mux.HandleFunc("POST /catalog/refresh", h.withLogging(h.RefreshCatalog))
	mux.HandleFunc("POST /orders", h.withLogging(h.ResolveOrder))
	mux.HandleFunc("GET /orders/{id}", h.withLogging(h.GetOrder))
	mux.HandleFunc("POST /orders/{id}/items", h.withLogging(h.AppendItem))
	mux.HandleFunc("POST /orders/{id}/finalize", h.withLogging(h.FinalizeOrder))
	mux.HandleFunc("GET /orders/{id}/receipt", h.withLogging(h.DownloadReceipt))

	return mux
}

// HealthCheck handles GET /health requests
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	healthy := true
	if h.pinger != nil && h.pinger.Ping(ctx) != nil {
		healthy = false
	}

	response := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "table-service",
	}

	w.Header().Set("Content-Type", "application/json")
	if !healthy {
		response["status"] = "unhealthy"
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(response)
}

// ListTables handles GET /tables
func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)

	tables, err := h.catalog.Tables(r.Context())
	if err != nil {
		h.writeDomainError(w, err, requestID)
		return
	}
	h.writeJSON(w, http.StatusOK, tables)
}

// ListProducts handles GET /products, optionally filtered by category
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)

	var (
		products []models.Product
		err      error
	)
	if category := r.URL.Query().Get("category"); category != "" {
		products, err = h.catalog.ProductsByCategory(r.Context(), category)
	} else {
		products, err = h.catalog.Products(r.Context())
	}
	if err != nil {
		h.writeDomainError(w, err, requestID)
		return
	}
	h.writeJSON(w, http.StatusOK, products)
}

// ListCategories handles GET /categories
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)

	categories, err := h.catalog.Categories(r.Context())
	if err != nil {
		h.writeDomainError(w, err, requestID)
		return
	}
	h.writeJSON(w, http.StatusOK, categories)
}

// RefreshCatalog handles POST /catalog/refresh
func (h *Handler) RefreshCatalog(w http.ResponseWriter, r *http.Request) {
	h.catalog.Invalidate()
	w.WriteHeader(http.StatusNoContent)
}

// ResolveOrder handles POST /orders: returns the table's open order,
// creating one if needed
func (h *Handler) ResolveOrder(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)

	var req models.ResolveOrderRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "invalid JSON format", requestID)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	order, err := h.orders.Resolve(ctx, req.TableID, req.PartySize)
	if err != nil {
		h.writeDomainError(w, err, requestID)
		return
	}
	h.writeJSON(w, http.StatusOK, order)
}

// GetOrder handles GET /orders/{id}: order, line items and running total
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)

	orderID, ok := h.orderID(w, r, requestID)
	if !ok {
		return
	}

	order, err := h.orders.Order(r.Context(), orderID)
	if err != nil {
		h.writeDomainError(w, err, requestID)
		return
	}

	items, total, err := h.orders.Items(r.Context(), orderID)
	if err != nil {
		h.writeDomainError(w, err, requestID)
		return
	}

	h.writeJSON(w, http.StatusOK, models.OrderDetails{
		Order: order,
		Items: items,
		Total: total,
	})
}

// AppendItem handles POST /orders/{id}/items. The product's current
// catalog price is captured into the line item.
func (h *Handler) AppendItem(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)

	orderID, ok := h.orderID(w, r, requestID)
	if !ok {
		return
	}

	var req models.AppendItemRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "invalid JSON format", requestID)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	product, err := h.catalog.Product(ctx, req.ProductID)
	if err != nil {
		h.writeDomainError(w, err, requestID)
		return
	}

	if err := h.orders.Append(ctx, orderID, product.ID, req.Quantity, product.UnitPrice); err != nil {
		h.writeDomainError(w, err, requestID)
		return
	}

	items, total, err := h.orders.Items(ctx, orderID)
	if err != nil {
		h.writeDomainError(w, err, requestID)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"items": items,
		"total": total,
	})
}

// FinalizeOrder handles POST /orders/{id}/finalize
func (h *Handler) FinalizeOrder(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)

	orderID, ok := h.orderID(w, r, requestID)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	order, err := h.orders.Finalize(ctx, orderID)
	if err != nil {
		h.writeDomainError(w, err, requestID)
		return
	}
	h.writeJSON(w, http.StatusOK, order)
}

// DownloadReceipt handles GET /orders/{id}/receipt, offering the rendered
// ticket as a downloadable file
func (h *Handler) DownloadReceipt(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)

	orderID, ok := h.orderID(w, r, requestID)
	if !ok {
		return
	}

	order, err := h.orders.Order(r.Context(), orderID)
	if err != nil {
		h.writeDomainError(w, err, requestID)
		return
	}

	items, total, err := h.orders.Items(r.Context(), orderID)
	if err != nil {
		h.writeDomainError(w, err, requestID)
		return
	}

	table, err := h.catalog.Table(r.Context(), order.TableID)
	if err != nil {
		h.writeDomainError(w, err, requestID)
		return
	}

	doc, err := h.renderer.Render(models.Receipt{
		Venue:       h.venue,
		TableName:   table.Name,
		PartySize:   order.PartySize,
		OrderID:     order.ID,
		GeneratedAt: time.Now().UTC(),
		Lines:       items,
		Total:       total,
	})
	if err != nil {
		h.writeDomainError(w, err, requestID)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset="+h.renderer.Charset())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=ticket_%d.txt", order.ID))
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}

// orderID parses the {id} path segment
func (h *Handler) orderID(w http.ResponseWriter, r *http.Request, requestID string) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		h.writeErrorResponse(w, http.StatusBadRequest, "invalid order id", requestID)
		return 0, false
	}
	return id, true
}

// writeDomainError maps the error taxonomy onto HTTP statuses. The error
// detail is shown inline; the session stays usable for other actions.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error, requestID string) {
	var (
		vErr   models.ValidationError
		stErr  models.StateError
		encErr models.EncodingError
	)

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &vErr):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrOrderNotFound),
		errors.Is(err, models.ErrProductNotFound),
		errors.Is(err, models.ErrTableNotFound):
		status = http.StatusNotFound
	case errors.As(err, &stErr):
		status = http.StatusConflict
	case errors.As(err, &encErr):
		status = http.StatusInternalServerError
	}

	if status == http.StatusInternalServerError && h.logger != nil {
		h.logger.Error("request_failed", requestID, "Action failed", err)
	}
	h.writeErrorResponse(w, status, err.Error(), requestID)
}

// writeErrorResponse writes an error response in JSON format
func (h *Handler) writeErrorResponse(w http.ResponseWriter, statusCode int, message, requestID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResponse := map[string]interface{}{
		"error":      message,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"request_id": requestID,
	}
	json.NewEncoder(w).Encode(errorResponse)
}

func (h *Handler) writeJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil && h.logger != nil {
		h.logger.Error("response_encoding_failed", "", "Failed to encode response", err)
	}
}

type contextKey string

const requestIDKey contextKey = "request_id"

func requestIDFrom(r *http.Request) string {
	if id, ok := r.Context().Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// withLogging adds request logging middleware
func (h *Handler) withLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := logger.GenerateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		if h.logger != nil {
			h.logger.Debug("request_started",
				requestID,
				fmt.Sprintf("%s %s", r.Method, r.URL.Path))
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		if h.logger != nil {
			h.logger.Debug("request_completed",
				requestID,
				fmt.Sprintf("%s %s - %d (%dms)", r.Method, r.URL.Path, rw.statusCode, time.Since(start).Milliseconds()))
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
