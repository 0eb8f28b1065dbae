package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/electromart/internal/orders/domain"
	"github.com/fjod/electromart/internal/orders/service"
	"github.com/go-chi/chi/v5"
)

type OrderReader interface {
	GetOrder(ctx context.Context, userID, orderID string) (*domain.Order, error)
	ListUserOrders(ctx context.Context, userID string, limit, skip int64) ([]*domain.Order, error)
	Tracking(ctx context.Context, userID, orderID string) (*domain.Tracker, error)
	Invoice(ctx context.Context, userID, orderID string) (*domain.Invoice, error)
}

type OrderAdmin interface {
	ListAllOrders(ctx context.Context, status string, limit, skip int64) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, req service.UpdateStatusRequest) (*domain.Order, error)
}

type OrdersHandler struct {
	orders  OrderReader
	timeout time.Duration
}

func NewOrdersHandler(orders OrderReader, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		orders:  orders,
		timeout: timeout,
	}
}

type OrdersResponseDTO struct {
	Orders []*domain.Order `json:"orders"`
}

// parsePage reads limit and skip; zero values defer to the repository defaults.
func parsePage(r *http.Request) (limit, skip int64, ok bool) {
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return 0, 0, false
		}
		limit = n
	}
	if v := q.Get("skip"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return 0, 0, false
		}
		skip = n
	}
	return limit, skip, true
}

func ordersResponse(orders []*domain.Order) OrdersResponseDTO {
	if orders == nil {
		orders = []*domain.Order{}
	}
	return OrdersResponseDTO{Orders: orders}
}

// GET /api/v1/orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	limit, skip, ok := parsePage(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_pagination", "limit and skip must be non-negative integers")
		return
	}

	orders, err := h.orders.ListUserOrders(ctx, getUserID(r.Context()), limit, skip)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, ordersResponse(orders))
}

// GET /api/v1/orders/{order_id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID := chi.URLParam(r, "order_id")
	if orderID == "" {
		respondError(w, http.StatusBadRequest, "missing_order_id", "order_id is required")
		return
	}

	order, err := h.orders.GetOrder(ctx, getUserID(r.Context()), orderID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// GET /api/v1/orders/{order_id}/tracking
func (h *OrdersHandler) Tracking(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	tracker, err := h.orders.Tracking(ctx, getUserID(r.Context()), chi.URLParam(r, "order_id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, tracker)
}

// GET /api/v1/orders/{order_id}/invoice
func (h *OrdersHandler) Invoice(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	invoice, err := h.orders.Invoice(ctx, getUserID(r.Context()), chi.URLParam(r, "order_id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, invoice)
}
