// Package gateway adapts the hosted payment gateway to the checkout flow.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrPaymentCancelled = errors.New("payment cancelled by payer")
	ErrPaymentFailed    = errors.New("payment failed")
)

// Intent is a gateway-side order the payer is asked to pay.
type Intent struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"` // minor units
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// CallbackPayload is what the hosted widget hands back after a successful payment.
type CallbackPayload struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

type PayerInfo struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
}

type Gateway interface {
	CreatePaymentIntent(ctx context.Context, amount decimal.Decimal, currency string) (*Intent, error)
	VerifyPayment(ctx context.Context, payload CallbackPayload) (bool, error)
}

// Collector drives the payer through the hosted widget and returns its callback.
type Collector interface {
	CollectPayment(ctx context.Context, intent *Intent, payer PayerInfo) (*CallbackPayload, error)
}

// ToMinorUnits converts a major-unit amount to paise, rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func DefaultReceipt(now time.Time) string {
	return fmt.Sprintf("receipt_%d", now.UnixMilli())
}
