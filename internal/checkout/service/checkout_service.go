// Package service runs the checkout: cart snapshot, payment intent, verification, order
// placement and outbox event, recorded step by step in the checkout ledger.
package service

import (
	"context"
	"time"

	cartdomain "github.com/fjod/electromart/internal/cart/domain"
	r "github.com/fjod/electromart/internal/checkout/repository"
	ordersdomain "github.com/fjod/electromart/internal/orders/domain"
	"github.com/fjod/electromart/internal/payment/gateway"
	"github.com/google/uuid"
)

type CartStore interface {
	GetCart(ctx context.Context, sessionID string) (*cartdomain.Cart, error)
	ClearCart(ctx context.Context, sessionID string) error
}

type OrderPlacer interface {
	PlaceOrder(ctx context.Context, n ordersdomain.NewOrder) (*ordersdomain.Order, error)
}

type Settings struct {
	KeyID          string
	MerchantName   string
	Currency       string
	GatewayTimeout time.Duration
}

type CheckoutServiceImpl struct {
	repo     r.RepoInterface
	carts    CartStore
	orders   OrderPlacer
	gateway  gateway.Gateway
	settings Settings
	now      func() time.Time
	newID    func() string
}

func NewCheckoutService(repo r.RepoInterface, carts CartStore, orders OrderPlacer, gw gateway.Gateway, settings Settings) *CheckoutServiceImpl {
	if settings.Currency == "" {
		settings.Currency = "INR"
	}
	if settings.GatewayTimeout <= 0 {
		settings.GatewayTimeout = 10 * time.Second
	}
	return &CheckoutServiceImpl{
		repo:     repo,
		carts:    carts,
		orders:   orders,
		gateway:  gw,
		settings: settings,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
}
