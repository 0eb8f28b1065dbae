package service

import (
	"context"
	"time"

	"github.com/fjod/electromart/pkg/logger"
)

// RecoverStuckSessions finishes checkouts whose payment was verified more than olderThan
// ago but which never completed, writing the order from the stored snapshot. It returns
// how many sessions were recovered.
func (s *CheckoutServiceImpl) RecoverStuckSessions(ctx context.Context, olderThan time.Duration) (int, error) {
	log := logger.FromContext(ctx)
	sessions, err := s.repo.GetStuckSessions(ctx, olderThan)
	if err != nil {
		return 0, err
	}

	recovered := 0
	for _, session := range sessions {
		log.Info("recovering stuck session", "checkout_id", session.ID)
		order, err := s.placeOrder(ctx, session)
		if err != nil {
			log.Error("failed to place order for stuck session", "checkout_id", session.ID, "error", err)
			continue
		}
		if err := s.complete(ctx, session, order); err != nil {
			log.Error("failed to complete stuck session", "checkout_id", session.ID, "error", err)
			continue
		}
		recovered++
		log.Info("session recovered", "checkout_id", session.ID, "order_id", order.ID)
	}
	return recovered, nil
}
