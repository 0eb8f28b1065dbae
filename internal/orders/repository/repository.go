package repository

import (
	"context"
	"errors"

	"github.com/fjod/electromart/internal/orders/domain"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrDuplicateCheckout = errors.New("order for this checkout already exists")
	ErrStatusConflict    = errors.New("order status changed concurrently")
)

type ListFilter struct {
	UserID string
	Status domain.OrderStatus
	Limit  int64
	Skip   int64
}

// OrderRepository is the persistence contract consumers depend on.
type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	GetOrderByCheckoutID(ctx context.Context, checkoutID string) (*domain.Order, error)
	ListOrders(ctx context.Context, filter ListFilter) ([]*domain.Order, error)
	// AppendStatus moves the order from expected to entry.Status and appends entry to the
	// timeline in one document update.
	AppendStatus(ctx context.Context, id string, expected domain.OrderStatus, entry domain.TimelineEntry) (*domain.Order, error)
}
