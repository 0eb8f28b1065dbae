package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/electromart/internal/payment/gateway"
	"github.com/fjod/electromart/internal/payment/razorpay"
	"github.com/fjod/electromart/pkg/logger"
	"github.com/shopspring/decimal"
)

type GatewayOrders interface {
	CreateOrder(ctx context.Context, req razorpay.CreateOrderRequest) (*razorpay.Order, error)
}

type SignatureVerifier interface {
	Verify(orderID, paymentID, signature string) bool
}

// PaymentHandler serves the raw gateway endpoints the hosted widget talks to.
type PaymentHandler struct {
	orders      GatewayOrders
	verifier    SignatureVerifier
	currency    string
	pingMessage string
	timeout     time.Duration
	now         func() time.Time
}

func NewPaymentHandler(orders GatewayOrders, verifier SignatureVerifier, currency, pingMessage string, timeout time.Duration) *PaymentHandler {
	return &PaymentHandler{
		orders:      orders,
		verifier:    verifier,
		currency:    currency,
		pingMessage: pingMessage,
		timeout:     timeout,
		now:         time.Now,
	}
}

type CreateOrderRequestDTO struct {
	Amount   decimal.Decimal `json:"amount"` // major units
	Currency string          `json:"currency"`
	Receipt  string          `json:"receipt"`
}

type CreateOrderResponseDTO struct {
	Success bool            `json:"success"`
	Order   *razorpay.Order `json:"order,omitempty"`
	Message string          `json:"message,omitempty"`
}

type VerifyPaymentResponseDTO struct {
	Success   bool   `json:"success"`
	OrderID   string `json:"orderId,omitempty"`
	PaymentID string `json:"paymentId,omitempty"`
	Signature string `json:"signature,omitempty"`
	Message   string `json:"message,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// POST /api/payment/create-order
func (h *PaymentHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	log := logger.FromContext(r.Context())

	var req CreateOrderRequestDTO
	if err := decodeJSON(r, &req, false); err != nil {
		respondJSON(w, http.StatusBadRequest, CreateOrderResponseDTO{Message: "Invalid request body"})
		return
	}
	if !req.Amount.IsPositive() {
		respondJSON(w, http.StatusBadRequest, CreateOrderResponseDTO{Message: "Amount must be positive"})
		return
	}
	if req.Currency == "" {
		req.Currency = h.currency
	}
	if req.Receipt == "" {
		req.Receipt = gateway.DefaultReceipt(h.now())
	}

	order, err := h.orders.CreateOrder(ctx, razorpay.CreateOrderRequest{
		Amount:   gateway.ToMinorUnits(req.Amount),
		Currency: req.Currency,
		Receipt:  req.Receipt,
	})
	if err != nil {
		log.Error("error creating order", "error", err)
		respondJSON(w, http.StatusInternalServerError, CreateOrderResponseDTO{Message: "Failed to create order"})
		return
	}

	respondJSON(w, http.StatusOK, CreateOrderResponseDTO{Success: true, Order: order})
}

// POST /api/payment/verify-payment
func (h *PaymentHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req gateway.CallbackPayload
	if err := decodeJSON(r, &req, false); err != nil {
		logger.FromContext(r.Context()).Error("error verifying payment", "error", err)
		respondJSON(w, http.StatusInternalServerError, VerifyPaymentResponseDTO{Message: "Failed to verify payment"})
		return
	}

	if !h.verifier.Verify(req.OrderID, req.PaymentID, req.Signature) {
		respondJSON(w, http.StatusBadRequest, VerifyPaymentResponseDTO{Message: "Invalid payment signature"})
		return
	}

	respondJSON(w, http.StatusOK, VerifyPaymentResponseDTO{
		Success:   true,
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
	})
}

// GET /api/ping
func (h *PaymentHandler) Ping(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, MessageResponse{Message: h.pingMessage})
}

// GET /api/demo
func (h *PaymentHandler) Demo(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, MessageResponse{Message: "Hello from the storefront server"})
}

func Health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
