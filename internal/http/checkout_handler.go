package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	d "github.com/fjod/electromart/internal/checkout/domain"
	ordersdomain "github.com/fjod/electromart/internal/orders/domain"
	"github.com/fjod/electromart/internal/payment/gateway"
	"github.com/go-chi/chi/v5"
)

const HeaderIdempotencyKey = "Idempotency-Key"

type CheckoutOperations interface {
	Begin(ctx context.Context, req d.BeginRequest) (*d.BeginResponse, error)
	Complete(ctx context.Context, req d.CompleteRequest) (*d.CompleteResponse, error)
	Cancel(ctx context.Context, sessionID, checkoutID, reason string) error
}

type CheckoutHandler struct {
	checkout CheckoutOperations
	timeout  time.Duration
}

func NewCheckoutHandler(checkout CheckoutOperations, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: checkout,
		timeout:  timeout,
	}
}

type InitiateCheckoutRequestDTO struct {
	IdempotencyKey  string                `json:"idempotency_key"`
	DeliveryAddress ordersdomain.Address  `json:"delivery_address"`
	Customer        ordersdomain.Customer `json:"customer"`
}

type CancelCheckoutRequestDTO struct {
	Reason string `json:"reason"`
}

type CheckoutStatusResponseDTO struct {
	CheckoutID string           `json:"checkout_id"`
	Status     d.CheckoutStatus `json:"status"`
}

func missingAddressField(a ordersdomain.Address) string {
	switch {
	case strings.TrimSpace(a.Name) == "":
		return "name"
	case strings.TrimSpace(a.Phone) == "":
		return "phone"
	case strings.TrimSpace(a.Address) == "":
		return "address"
	case strings.TrimSpace(a.City) == "":
		return "city"
	case strings.TrimSpace(a.Pincode) == "":
		return "pincode"
	}
	return ""
}

// POST /api/v1/checkout
func (h *CheckoutHandler) InitiateCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req InitiateCheckoutRequestDTO
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	key := r.Header.Get(HeaderIdempotencyKey)
	if key == "" {
		key = req.IdempotencyKey
	}
	if key == "" {
		respondError(w, http.StatusBadRequest, "missing_idempotency_key",
			"idempotency_key is required")
		return
	}
	if field := missingAddressField(req.DeliveryAddress); field != "" {
		respondError(w, http.StatusBadRequest, "invalid_address",
			"delivery_address."+field+" is required")
		return
	}

	resp, err := h.checkout.Begin(ctx, d.BeginRequest{
		SessionID:      getSessionID(r.Context()),
		UserID:         getUserID(r.Context()),
		IdempotencyKey: key,
		Address:        req.DeliveryAddress,
		Customer:       req.Customer,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if resp == nil {
		// empty cart: nothing to pay for
		w.WriteHeader(http.StatusNoContent)
		return
	}

	status := http.StatusCreated
	if resp.Duplicate {
		status = http.StatusOK
	}
	respondJSON(w, status, resp)
}

// POST /api/v1/checkout/{checkout_id}/confirm
func (h *CheckoutHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var payload gateway.CallbackPayload
	if err := decodeJSON(r, &payload, false); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if payload.OrderID == "" || payload.PaymentID == "" || payload.Signature == "" {
		respondError(w, http.StatusBadRequest, "invalid_request",
			"razorpay_order_id, razorpay_payment_id and razorpay_signature are required")
		return
	}

	resp, err := h.checkout.Complete(ctx, d.CompleteRequest{
		SessionID:  getSessionID(r.Context()),
		CheckoutID: chi.URLParam(r, "checkout_id"),
		Payload:    payload,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// POST /api/v1/checkout/{checkout_id}/cancel
func (h *CheckoutHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CancelCheckoutRequestDTO
	if err := decodeJSON(r, &req, true); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	checkoutID := chi.URLParam(r, "checkout_id")
	if err := h.checkout.Cancel(ctx, getSessionID(r.Context()), checkoutID, req.Reason); err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, CheckoutStatusResponseDTO{
		CheckoutID: checkoutID,
		Status:     d.CheckoutStatusFailed,
	})
}
