package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	d "github.com/fjod/electromart/internal/checkout/domain"
	r "github.com/fjod/electromart/internal/checkout/repository"
	"github.com/fjod/electromart/internal/events"
	ordersdomain "github.com/fjod/electromart/internal/orders/domain"
	"github.com/fjod/electromart/pkg/logger"
)

// Complete verifies the gateway callback and turns the checkout into an order. Nothing is
// written and the cart is left alone unless the signature verifies.
func (s *CheckoutServiceImpl) Complete(ctx context.Context, req d.CompleteRequest) (*d.CompleteResponse, error) {
	log := logger.FromContext(ctx)

	session, err := s.ownedSession(ctx, req.SessionID, req.CheckoutID)
	if err != nil {
		return nil, err
	}

	switch session.Status {
	case d.CheckoutStatusCompleted, d.CheckoutStatusPaymentVerified:
		// retry after the payment was already accepted; only the same payment may finish it
		if req.Payload.PaymentID != session.PaymentID || req.Payload.OrderID != session.GatewayOrderID {
			return nil, ErrGatewayOrderMismatch
		}
		return s.finish(ctx, session)
	case d.CheckoutStatusPaymentPending:
	default:
		return nil, ErrCheckoutClosed
	}

	if req.Payload.OrderID != session.GatewayOrderID {
		log.Warn("gateway order mismatch", "checkout_id", session.ID,
			"expected", session.GatewayOrderID, "got", req.Payload.OrderID)
		return nil, ErrGatewayOrderMismatch
	}

	gwCtx, cancel := context.WithTimeout(ctx, s.settings.GatewayTimeout)
	ok, err := s.gateway.VerifyPayment(gwCtx, req.Payload)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("failed to verify payment: %w", err)
	}
	if !ok {
		log.Warn("payment signature rejected", "checkout_id", session.ID, "payment_id", req.Payload.PaymentID)
		return nil, ErrInvalidSignature
	}

	if !d.CanTransitionTo(session.Status, d.CheckoutStatusPaymentVerified) {
		return nil, IllegalTransitionError
	}
	if err := s.repo.SetPayment(ctx, session.ID, req.Payload.PaymentID); err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}
	session.Status = d.CheckoutStatusPaymentVerified
	session.PaymentID = req.Payload.PaymentID

	return s.finish(ctx, session)
}

// finish places the order for a verified session, completes the ledger row and clears the
// cart. Safe to repeat.
func (s *CheckoutServiceImpl) finish(ctx context.Context, session *r.CheckoutSession) (*d.CompleteResponse, error) {
	order, err := s.placeOrder(ctx, session)
	if err != nil {
		return nil, err
	}

	// a completed session already had its cart cleared; the payer may have started a new one
	if session.Status != d.CheckoutStatusCompleted {
		if err := s.complete(ctx, session, order); err != nil {
			return nil, err
		}
		if err := s.carts.ClearCart(ctx, session.SessionID); err != nil {
			// the order.placed consumer clears it later
			logger.FromContext(ctx).Warn("failed to clear cart after checkout",
				"checkout_id", session.ID, "session_id", session.SessionID, "error", err)
		}
	}

	return &d.CompleteResponse{
		CheckoutID: session.ID,
		Status:     d.CheckoutStatusCompleted,
		Order:      order,
	}, nil
}

func (s *CheckoutServiceImpl) placeOrder(ctx context.Context, session *r.CheckoutSession) (*ordersdomain.Order, error) {
	snapshot, err := decodeSnapshot(session)
	if err != nil {
		return nil, err
	}
	order, err := s.orders.PlaceOrder(ctx, ordersdomain.NewOrder{
		ID:              s.newID(),
		CheckoutID:      session.ID,
		UserID:          session.UserID,
		Products:        snapshot.LineItems(),
		Subtotal:        snapshot.Subtotal,
		TaxAmount:       snapshot.TaxAmount,
		TotalAmount:     snapshot.TotalAmount,
		Currency:        snapshot.Currency,
		PaymentID:       session.PaymentID,
		GatewayOrderID:  session.GatewayOrderID,
		DeliveryAddress: snapshot.DeliveryAddress,
		Customer:        snapshot.Customer,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to place order: %w", err)
	}
	return order, nil
}

func (s *CheckoutServiceImpl) complete(ctx context.Context, session *r.CheckoutSession, order *ordersdomain.Order) error {
	if !d.CanTransitionTo(session.Status, d.CheckoutStatusCompleted) {
		return IllegalTransitionError
	}
	snapshot, err := decodeSnapshot(session)
	if err != nil {
		return err
	}
	payload := events.OrderPlacedPayload{
		CheckoutID:     session.ID,
		OrderID:        order.ID,
		SessionID:      session.SessionID,
		UserID:         session.UserID,
		TotalAmount:    order.TotalAmount,
		Currency:       order.Currency,
		PaymentID:      order.PaymentID,
		CartSnapshotAt: snapshot.CapturedAt,
		PlacedAt:       order.CreatedAt,
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal checkout payload: %w", err)
	}

	event := &r.OutboxEvent{
		AggregateId: session.ID,
		EventType:   events.OrderPlaced,
		Payload:     payloadJSON,
	}
	err = s.repo.CompleteCheckoutSession(ctx, session.ID, order.ID, event)
	if errors.Is(err, r.ErrStatusConflict) {
		// completed concurrently by the recovery poller
		logger.FromContext(ctx).Info("checkout already completed", "checkout_id", session.ID)
		return nil
	}
	if err != nil {
		return err
	}
	session.Status = d.CheckoutStatusCompleted
	session.OrderID = order.ID
	return nil
}

func (s *CheckoutServiceImpl) ownedSession(ctx context.Context, sessionID, checkoutID string) (*r.CheckoutSession, error) {
	if sessionID == "" {
		return nil, ErrMissingSession
	}
	session, err := s.repo.GetCheckoutSession(ctx, checkoutID)
	if errors.Is(err, r.ErrCheckoutNotFound) {
		return nil, ErrCheckoutNotFound
	}
	if err != nil {
		return nil, err
	}
	if session.SessionID != sessionID {
		return nil, ErrCheckoutNotFound
	}
	return session, nil
}
