package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/electromart/internal/events"
	"github.com/fjod/electromart/internal/orders/domain"
	"github.com/fjod/electromart/internal/orders/repository"
	"github.com/fjod/electromart/pkg/logger"
)

type UpdateStatusRequest struct {
	OrderID    string
	Status     string
	Note       string
	Correction bool
}

type OrderService struct {
	repo   repository.OrderRepository
	events events.Writer
	now    func() time.Time
}

// NewOrderService wires the repository; w may be nil to skip status events.
func NewOrderService(repo repository.OrderRepository, w events.Writer) *OrderService {
	return &OrderService{
		repo:   repo,
		events: w,
		now:    func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// PlaceOrder persists a new order. A second order for the same checkout returns the
// first one instead.
func (s *OrderService) PlaceOrder(ctx context.Context, n domain.NewOrder) (*domain.Order, error) {
	order := domain.Place(n, s.now())
	err := s.repo.CreateOrder(ctx, order)
	if errors.Is(err, repository.ErrDuplicateCheckout) {
		logger.FromContext(ctx).Info("order already exists for checkout", "checkout_id", n.CheckoutID)
		return s.repo.GetOrderByCheckoutID(ctx, n.CheckoutID)
	}
	if err != nil {
		return nil, fmt.Errorf("persist order: %w", err)
	}
	return order, nil
}

// GetOrder returns the order only when it belongs to userID.
func (s *OrderService) GetOrder(ctx context.Context, userID, orderID string) (*domain.Order, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, repository.ErrOrderNotFound
	}
	return order, nil
}

func (s *OrderService) ListUserOrders(ctx context.Context, userID string, limit, skip int64) ([]*domain.Order, error) {
	return s.repo.ListOrders(ctx, repository.ListFilter{UserID: userID, Limit: limit, Skip: skip})
}

// ListAllOrders is the back-office listing, optionally narrowed to one status.
func (s *OrderService) ListAllOrders(ctx context.Context, status string, limit, skip int64) ([]*domain.Order, error) {
	f := repository.ListFilter{Limit: limit, Skip: skip}
	if status != "" {
		st, err := domain.ParseStatus(status)
		if err != nil {
			return nil, err
		}
		f.Status = st
	}
	return s.repo.ListOrders(ctx, f)
}

func (s *OrderService) Tracking(ctx context.Context, userID, orderID string) (*domain.Tracker, error) {
	order, err := s.GetOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	tr := domain.BuildTracker(order)
	return &tr, nil
}

func (s *OrderService) Invoice(ctx context.Context, userID, orderID string) (*domain.Invoice, error) {
	order, err := s.GetOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	inv := domain.BuildInvoice(order)
	return &inv, nil
}

// UpdateStatus appends exactly one timeline entry and moves the current status with it.
// Only forward transitions are accepted unless req.Correction is set.
func (s *OrderService) UpdateStatus(ctx context.Context, req UpdateStatusRequest) (*domain.Order, error) {
	to, err := domain.ParseStatus(req.Status)
	if err != nil {
		return nil, err
	}

	order, err := s.repo.GetOrder(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	from := order.OrderStatus

	if err := domain.CheckTransition(from, to, req.Correction); err != nil {
		return nil, err
	}

	entry := domain.TimelineEntry{
		Status:     to,
		Timestamp:  s.now(),
		Note:       req.Note,
		Correction: req.Correction,
	}
	updated, err := s.repo.AppendStatus(ctx, req.OrderID, from, entry)
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	log.Info("order status updated", "order_id", req.OrderID, "from", from, "to", to, "correction", req.Correction)

	if s.events != nil {
		payload := events.StatusChangedPayload{
			OrderID:    updated.ID,
			UserID:     updated.UserID,
			From:       from.String(),
			To:         to.String(),
			Correction: req.Correction,
			ChangedAt:  entry.Timestamp,
		}
		if err := events.Publish(ctx, s.events, updated.ID, events.OrderStatusChanged, payload); err != nil {
			log.Warn("status event not published", "order_id", updated.ID, "error", err)
		}
	}
	return updated, nil
}
