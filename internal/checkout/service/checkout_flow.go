package service

import (
	"context"
	"errors"
	"fmt"

	d "github.com/fjod/electromart/internal/checkout/domain"
	"github.com/fjod/electromart/internal/payment/gateway"
	"github.com/fjod/electromart/pkg/logger"
)

// Checkout runs the whole flow in one call with collector standing in for the hosted
// widget. An empty cart yields (nil, nil). On any failure the cart is unchanged.
func (s *CheckoutServiceImpl) Checkout(ctx context.Context, req d.BeginRequest, collector gateway.Collector) (*d.CompleteResponse, error) {
	begun, err := s.Begin(ctx, req)
	if err != nil || begun == nil {
		return nil, err
	}

	switch begun.Status {
	case d.CheckoutStatusCompleted, d.CheckoutStatusPaymentVerified:
		session, err := s.ownedSession(ctx, req.SessionID, begun.CheckoutID)
		if err != nil {
			return nil, err
		}
		return s.finish(ctx, session)
	case d.CheckoutStatusPaymentPending:
	default:
		return nil, ErrCheckoutClosed
	}

	payload, err := collector.CollectPayment(ctx, begun.Intent, begun.Prefill)
	if err != nil {
		reason := err.Error()
		if cancelErr := s.Cancel(ctx, req.SessionID, begun.CheckoutID, reason); cancelErr != nil {
			logger.FromContext(ctx).Error("failed to cancel checkout after collection failure",
				"checkout_id", begun.CheckoutID, "error", cancelErr)
		}
		if errors.Is(err, gateway.ErrPaymentCancelled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", gateway.ErrPaymentFailed, err)
	}

	return s.Complete(ctx, d.CompleteRequest{
		SessionID:  req.SessionID,
		CheckoutID: begun.CheckoutID,
		Payload:    *payload,
	})
}
