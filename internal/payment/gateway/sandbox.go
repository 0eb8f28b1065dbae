package gateway

import (
	"context"

	"github.com/fjod/electromart/internal/payment/signature"
	"github.com/google/uuid"
)

// SandboxCollector stands in for the hosted widget: it "pays" any intent and signs the
// callback with the merchant secret, the way the gateway's test mode does.
type SandboxCollector struct {
	Secret string
	// Cancel makes every collection end as if the payer closed the widget.
	Cancel bool
}

func (s SandboxCollector) CollectPayment(ctx context.Context, intent *Intent, _ PayerInfo) (*CallbackPayload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Cancel {
		return nil, ErrPaymentCancelled
	}
	paymentID := "pay_" + uuid.NewString()[:14]
	return &CallbackPayload{
		OrderID:   intent.ID,
		PaymentID: paymentID,
		Signature: signature.Sign(s.Secret, intent.ID, paymentID),
	}, nil
}
