package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/fjod/electromart/internal/payment/razorpay"
	"github.com/fjod/electromart/internal/payment/signature"
	"github.com/shopspring/decimal"
)

type OrderCreator interface {
	CreateOrder(ctx context.Context, req razorpay.CreateOrderRequest) (*razorpay.Order, error)
}

// Direct talks to the gateway in-process.
type Direct struct {
	orders   OrderCreator
	verifier *signature.Verifier
	now      func() time.Time
}

func NewDirect(orders OrderCreator, secret string) *Direct {
	return &Direct{
		orders:   orders,
		verifier: signature.NewVerifier(secret),
		now:      time.Now,
	}
}

func (d *Direct) CreatePaymentIntent(ctx context.Context, amount decimal.Decimal, currency string) (*Intent, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	order, err := d.orders.CreateOrder(ctx, razorpay.CreateOrderRequest{
		Amount:   ToMinorUnits(amount),
		Currency: currency,
		Receipt:  DefaultReceipt(d.now()),
	})
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	return &Intent{
		ID:       order.ID,
		Amount:   order.Amount,
		Currency: order.Currency,
		Receipt:  order.Receipt,
		Status:   order.Status,
	}, nil
}

func (d *Direct) VerifyPayment(_ context.Context, payload CallbackPayload) (bool, error) {
	return d.verifier.Verify(payload.OrderID, payload.PaymentID, payload.Signature), nil
}
