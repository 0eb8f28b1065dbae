package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	d "github.com/fjod/electromart/internal/checkout/domain"
	r "github.com/fjod/electromart/internal/checkout/repository"
	"github.com/fjod/electromart/internal/payment/gateway"
	"github.com/fjod/electromart/pkg/logger"
)

// Begin opens a checkout for the session cart. An empty cart returns (nil, nil) without
// touching the ledger or the gateway. A repeated idempotency key returns the session it
// first created, but only to the session that created it.
func (s *CheckoutServiceImpl) Begin(ctx context.Context, req d.BeginRequest) (*d.BeginResponse, error) {
	if req.SessionID == "" {
		return nil, ErrMissingSession
	}
	if req.IdempotencyKey == "" {
		return nil, ErrMissingIdempotencyKey
	}
	log := logger.FromContext(ctx)

	existing, err := s.repo.GetCheckoutSessionByIdempotencyKey(ctx, req.IdempotencyKey)
	if err != nil && !errors.Is(err, r.ErrIdempotencyKeyNotFound) {
		return nil, fmt.Errorf("failed to check idempotency: %w", err)
	}
	if existing != nil {
		log.Info("duplicate checkout request",
			"idempotency_key", req.IdempotencyKey, "checkout_id", existing.ID, "status", existing.Status)
		return s.replay(ctx, req, existing)
	}

	cart, err := s.carts.GetCart(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if cart.IsEmpty() {
		return nil, nil
	}

	snapshot := d.NewCartSnapshot(cart, s.settings.Currency, req.Address, req.Customer, s.now().UTC())
	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cart snapshot: %w", err)
	}

	session := &r.CheckoutSession{
		ID:             s.newID(),
		SessionID:      req.SessionID,
		UserID:         req.UserID,
		IdempotencyKey: req.IdempotencyKey,
		CartSnapshot:   snapshotJSON,
		Subtotal:       snapshot.Subtotal,
		TaxAmount:      snapshot.TaxAmount,
		TotalAmount:    snapshot.TotalAmount,
		Currency:       snapshot.Currency,
	}
	if err := s.repo.CreateCheckoutSession(ctx, session); err != nil {
		if errors.Is(err, r.ErrDuplicateIdempotencyKey) {
			// lost a race with a concurrent request carrying the same key
			winner, getErr := s.repo.GetCheckoutSessionByIdempotencyKey(ctx, req.IdempotencyKey)
			if getErr != nil {
				return nil, fmt.Errorf("failed to load concurrent checkout: %w", getErr)
			}
			return s.replay(ctx, req, winner)
		}
		return nil, err
	}

	intent, err := s.createIntent(ctx, session)
	if err != nil {
		if failErr := s.repo.FailCheckoutSession(ctx, session.ID, err.Error()); failErr != nil {
			log.Error("failed to mark checkout failed", "checkout_id", session.ID, "error", failErr)
		}
		return nil, fmt.Errorf("%w: %w", ErrPaymentIntent, err)
	}
	session.Status = d.CheckoutStatusPaymentPending
	session.GatewayOrderID = intent.ID

	log.Info("checkout started", "checkout_id", session.ID, "gateway_order_id", intent.ID,
		"total", snapshot.TotalAmount.String())
	return s.response(session, snapshot, intent), nil
}

func (s *CheckoutServiceImpl) createIntent(ctx context.Context, session *r.CheckoutSession) (*gateway.Intent, error) {
	gwCtx, cancel := context.WithTimeout(ctx, s.settings.GatewayTimeout)
	defer cancel()

	intent, err := s.gateway.CreatePaymentIntent(gwCtx, session.TotalAmount, session.Currency)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetGatewayOrder(ctx, session.ID, intent.ID); err != nil {
		return nil, fmt.Errorf("failed to record gateway order: %w", err)
	}
	return intent, nil
}

func (s *CheckoutServiceImpl) replay(ctx context.Context, req d.BeginRequest, session *r.CheckoutSession) (*d.BeginResponse, error) {
	if session.SessionID != req.SessionID {
		logger.FromContext(ctx).Warn("idempotency key reused by another session",
			"idempotency_key", req.IdempotencyKey, "session_id", req.SessionID)
		return nil, ErrIdempotencyKeyInUse
	}
	return s.existingResponse(session)
}

func (s *CheckoutServiceImpl) existingResponse(session *r.CheckoutSession) (*d.BeginResponse, error) {
	snapshot, err := decodeSnapshot(session)
	if err != nil {
		return nil, err
	}
	var intent *gateway.Intent
	if session.GatewayOrderID != "" {
		intent = &gateway.Intent{
			ID:       session.GatewayOrderID,
			Amount:   gateway.ToMinorUnits(session.TotalAmount),
			Currency: session.Currency,
			Status:   "created",
		}
	}
	resp := s.response(session, snapshot, intent)
	resp.Duplicate = true
	return resp, nil
}

func (s *CheckoutServiceImpl) response(session *r.CheckoutSession, snapshot *d.CartSnapshot, intent *gateway.Intent) *d.BeginResponse {
	return &d.BeginResponse{
		CheckoutID:  session.ID,
		Status:      session.Status,
		Intent:      intent,
		KeyID:       s.settings.KeyID,
		Merchant:    s.settings.MerchantName,
		Description: fmt.Sprintf("Order for %d items", snapshot.ItemCount()),
		Prefill: gateway.PayerInfo{
			Name:    snapshot.Customer.Name,
			Email:   snapshot.Customer.Email,
			Contact: snapshot.Customer.Phone,
		},
		Subtotal:    session.Subtotal,
		TaxAmount:   session.TaxAmount,
		TotalAmount: session.TotalAmount,
		Currency:    session.Currency,
		OrderID:     session.OrderID,
	}
}

func decodeSnapshot(session *r.CheckoutSession) (*d.CartSnapshot, error) {
	var snapshot d.CartSnapshot
	if err := json.Unmarshal(session.CartSnapshot, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cart snapshot for checkout %s: %w", session.ID, err)
	}
	return &snapshot, nil
}
