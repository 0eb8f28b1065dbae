package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	cartcache "github.com/fjod/electromart/internal/cart/cache"
	cartservice "github.com/fjod/electromart/internal/cart/service"
	checkoutservice "github.com/fjod/electromart/internal/checkout/service"
	ordersdomain "github.com/fjod/electromart/internal/orders/domain"
	ordersrepo "github.com/fjod/electromart/internal/orders/repository"
	"github.com/fjod/electromart/internal/payment/gateway"
	"github.com/fjod/electromart/internal/payment/razorpay"
	productrepo "github.com/fjod/electromart/internal/product/repository"
	"github.com/fjod/electromart/pkg/logger"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Default.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// decodeJSON reads a JSON body. An empty body leaves v untouched when allowEmpty is set.
func decodeJSON(r *http.Request, v interface{}, allowEmpty bool) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) && allowEmpty {
		return nil
	}
	return err
}

type errorMapping struct {
	target error
	status int
	code   string
}

// Ordered: the first target matched with errors.Is wins.
var errorMappings = []errorMapping{
	{cartservice.ErrEmptySession, http.StatusBadRequest, "missing_session"},
	{checkoutservice.ErrMissingSession, http.StatusBadRequest, "missing_session"},
	{checkoutservice.ErrMissingIdempotencyKey, http.StatusBadRequest, "missing_idempotency_key"},
	{checkoutservice.ErrIdempotencyKeyInUse, http.StatusConflict, "idempotency_key_in_use"},
	{productrepo.ErrProductNotFound, http.StatusNotFound, "product_not_found"},
	{cartcache.ErrConflict, http.StatusConflict, "conflict"},
	{checkoutservice.ErrCheckoutNotFound, http.StatusNotFound, "checkout_not_found"},
	{checkoutservice.ErrCheckoutClosed, http.StatusConflict, "checkout_closed"},
	{checkoutservice.IllegalTransitionError, http.StatusConflict, "illegal_transition"},
	{checkoutservice.ErrGatewayOrderMismatch, http.StatusBadRequest, "gateway_order_mismatch"},
	{checkoutservice.ErrInvalidSignature, http.StatusBadRequest, "invalid_signature"},
	{gateway.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount"},
	{razorpay.ErrUnavailable, http.StatusServiceUnavailable, "service_unavailable"},
	{checkoutservice.ErrPaymentIntent, http.StatusBadGateway, "payment_gateway_error"},
	{ordersrepo.ErrOrderNotFound, http.StatusNotFound, "order_not_found"},
	{ordersrepo.ErrStatusConflict, http.StatusConflict, "status_conflict"},
	{ordersdomain.ErrInvalidStatus, http.StatusBadRequest, "invalid_status"},
	{ordersdomain.ErrIllegalTransition, http.StatusConflict, "illegal_transition"},
	{ordersdomain.ErrSameStatus, http.StatusConflict, "same_status"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
}

// handleServiceError converts service errors into HTTP responses. Unknown errors become a
// 500 without leaking their text.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			respondError(w, m.status, m.code, m.target.Error())
			return
		}
	}
	logger.FromContext(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
	respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
}
