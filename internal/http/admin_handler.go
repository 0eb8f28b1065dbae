package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/electromart/internal/orders/service"
	"github.com/go-chi/chi/v5"
)

type AdminHandler struct {
	orders  OrderAdmin
	timeout time.Duration
}

func NewAdminHandler(orders OrderAdmin, timeout time.Duration) *AdminHandler {
	return &AdminHandler{
		orders:  orders,
		timeout: timeout,
	}
}

type UpdateStatusRequestDTO struct {
	Status     string `json:"status"`
	Note       string `json:"note"`
	Correction bool   `json:"correction"`
}

// GET /api/v1/admin/orders?status=
func (h *AdminHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	limit, skip, ok := parsePage(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_pagination", "limit and skip must be non-negative integers")
		return
	}

	orders, err := h.orders.ListAllOrders(ctx, r.URL.Query().Get("status"), limit, skip)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, ordersResponse(orders))
}

// PATCH /api/v1/admin/orders/{order_id}/status
func (h *AdminHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req UpdateStatusRequestDTO
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Status == "" {
		respondError(w, http.StatusBadRequest, "invalid_status", "status is required")
		return
	}

	order, err := h.orders.UpdateStatus(ctx, service.UpdateStatusRequest{
		OrderID:    chi.URLParam(r, "order_id"),
		Status:     req.Status,
		Note:       req.Note,
		Correction: req.Correction,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}
