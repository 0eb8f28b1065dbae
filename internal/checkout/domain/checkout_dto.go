package domain

import (
	ordersdomain "github.com/fjod/electromart/internal/orders/domain"
	"github.com/fjod/electromart/internal/payment/gateway"
	"github.com/shopspring/decimal"
)

type BeginRequest struct {
	SessionID      string
	UserID         string
	IdempotencyKey string
	Address        ordersdomain.Address
	Customer       ordersdomain.Customer
}

// BeginResponse carries what the hosted widget needs to open.
type BeginResponse struct {
	CheckoutID  string            `json:"checkout_id"`
	Status      CheckoutStatus    `json:"status"`
	Intent      *gateway.Intent   `json:"intent,omitempty"`
	KeyID       string            `json:"key_id"`
	Merchant    string            `json:"merchant"`
	Description string            `json:"description"`
	Prefill     gateway.PayerInfo `json:"prefill"`
	Subtotal    decimal.Decimal   `json:"subtotal"`
	TaxAmount   decimal.Decimal   `json:"tax_amount"`
	TotalAmount decimal.Decimal   `json:"total_amount"`
	Currency    string            `json:"currency"`
	OrderID     string            `json:"order_id,omitempty"`
	Duplicate   bool              `json:"duplicate,omitempty"`
}

type CompleteRequest struct {
	SessionID  string
	CheckoutID string
	Payload    gateway.CallbackPayload
}

type CompleteResponse struct {
	CheckoutID string              `json:"checkout_id"`
	Status     CheckoutStatus      `json:"status"`
	Order      *ordersdomain.Order `json:"order"`
}
