package service

import (
	"context"
	"errors"
	"fmt"

	d "github.com/fjod/electromart/internal/checkout/domain"
	r "github.com/fjod/electromart/internal/checkout/repository"
	"github.com/fjod/electromart/pkg/logger"
)

// Cancel fails an open checkout when the payer abandons the widget. The cart is kept so
// the payer can try again with a new idempotency key.
func (s *CheckoutServiceImpl) Cancel(ctx context.Context, sessionID, checkoutID, reason string) error {
	session, err := s.ownedSession(ctx, sessionID, checkoutID)
	if err != nil {
		return err
	}
	if session.Status == d.CheckoutStatusFailed {
		return nil
	}
	if !d.CanTransitionTo(session.Status, d.CheckoutStatusFailed) {
		return ErrCheckoutClosed
	}
	if reason == "" {
		reason = "cancelled by payer"
	}
	err = s.repo.FailCheckoutSession(ctx, session.ID, reason)
	if errors.Is(err, r.ErrStatusConflict) {
		return ErrCheckoutClosed
	}
	if err != nil {
		return fmt.Errorf("failed to cancel checkout: %w", err)
	}
	logger.FromContext(ctx).Info("checkout cancelled", "checkout_id", session.ID, "reason", reason)
	return nil
}
