package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	cartdomain "github.com/fjod/electromart/internal/cart/domain"
	d "github.com/fjod/electromart/internal/checkout/domain"
	r "github.com/fjod/electromart/internal/checkout/repository"
	ordersdomain "github.com/fjod/electromart/internal/orders/domain"
	"github.com/fjod/electromart/internal/payment/razorpay"
)

// MockRepository implements r.RepoInterface in memory with the same status guards as
// the postgres ledger.
type MockRepository struct {
	mu       sync.Mutex
	sessions map[string]*r.CheckoutSession
	outbox   []*r.OutboxEvent
	GetErr   error
}

func newMockRepository() *MockRepository {
	return &MockRepository{sessions: map[string]*r.CheckoutSession{}}
}

func (m *MockRepository) Close() error { return nil }

func (m *MockRepository) RunMigrations(*r.Credentials) error { return nil }

func (m *MockRepository) GetCheckoutSessionByIdempotencyKey(_ context.Context, key string) (*r.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	for _, s := range m.sessions {
		if s.IdempotencyKey == key {
			cp := *s
			return &cp, nil
		}
	}
	return nil, r.ErrIdempotencyKeyNotFound
}

func (m *MockRepository) GetCheckoutSession(_ context.Context, id string) (*r.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, r.ErrCheckoutNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MockRepository) CreateCheckoutSession(_ context.Context, session *r.CheckoutSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.IdempotencyKey == session.IdempotencyKey {
			return r.ErrDuplicateIdempotencyKey
		}
	}
	session.Status = d.CheckoutStatusInitiated
	session.CreatedAt = time.Now()
	session.UpdatedAt = session.CreatedAt
	cp := *session
	m.sessions[session.ID] = &cp
	return nil
}

func (m *MockRepository) move(id string, from []d.CheckoutStatus, mutate func(*r.CheckoutSession)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return r.ErrCheckoutNotFound
	}
	for _, f := range from {
		if s.Status == f {
			mutate(s)
			s.UpdatedAt = time.Now()
			return nil
		}
	}
	return r.ErrStatusConflict
}

func (m *MockRepository) SetGatewayOrder(_ context.Context, id, gatewayOrderID string) error {
	return m.move(id, []d.CheckoutStatus{d.CheckoutStatusInitiated}, func(s *r.CheckoutSession) {
		s.Status = d.CheckoutStatusPaymentPending
		s.GatewayOrderID = gatewayOrderID
	})
}

func (m *MockRepository) SetPayment(_ context.Context, id, paymentID string) error {
	return m.move(id, []d.CheckoutStatus{d.CheckoutStatusPaymentPending}, func(s *r.CheckoutSession) {
		s.Status = d.CheckoutStatusPaymentVerified
		s.PaymentID = paymentID
	})
}

func (m *MockRepository) FailCheckoutSession(_ context.Context, id, reason string) error {
	return m.move(id, []d.CheckoutStatus{d.CheckoutStatusInitiated, d.CheckoutStatusPaymentPending}, func(s *r.CheckoutSession) {
		s.Status = d.CheckoutStatusFailed
		s.FailureReason = reason
	})
}

func (m *MockRepository) CompleteCheckoutSession(_ context.Context, id, orderID string, event *r.OutboxEvent) error {
	err := m.move(id, []d.CheckoutStatus{d.CheckoutStatusPaymentVerified}, func(s *r.CheckoutSession) {
		s.Status = d.CheckoutStatusCompleted
		s.OrderID = orderID
	})
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	event.ID = int64(len(m.outbox) + 1)
	m.outbox = append(m.outbox, event)
	return nil
}

func (m *MockRepository) GetUnprocessedEvents(_ context.Context, _ int) ([]*r.OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*r.OutboxEvent(nil), m.outbox...), nil
}

func (m *MockRepository) MarkEventAsProcessed(_ context.Context, _ int64) error { return nil }

func (m *MockRepository) GetStuckSessions(_ context.Context, _ time.Duration) ([]*r.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*r.CheckoutSession
	for _, s := range m.sessions {
		if s.Status == d.CheckoutStatusPaymentVerified {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockRepository) status(id string) d.CheckoutStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id].Status
}

func (m *MockRepository) events() []*r.OutboxEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*r.OutboxEvent(nil), m.outbox...)
}

// mockCarts keeps carts by session id.
type mockCarts struct {
	carts    map[string]*cartdomain.Cart
	clearErr error
	cleared  int
}

func newMockCarts() *mockCarts {
	return &mockCarts{carts: map[string]*cartdomain.Cart{}}
}

func (m *mockCarts) GetCart(_ context.Context, sessionID string) (*cartdomain.Cart, error) {
	if c, ok := m.carts[sessionID]; ok {
		return c, nil
	}
	return cartdomain.NewCart(sessionID), nil
}

func (m *mockCarts) ClearCart(_ context.Context, sessionID string) error {
	if m.clearErr != nil {
		return m.clearErr
	}
	m.cleared++
	delete(m.carts, sessionID)
	return nil
}

func (m *mockCarts) fill(sessionID string, items ...cartdomain.CartItem) {
	c := cartdomain.NewCart(sessionID)
	for _, it := range items {
		c.Add(it)
	}
	m.carts[sessionID] = c
}

// mockOrders mimics the order service's one-order-per-checkout rule.
type mockOrders struct {
	byCheckout map[string]*ordersdomain.Order
	err        error
	calls      int
}

func newMockOrders() *mockOrders {
	return &mockOrders{byCheckout: map[string]*ordersdomain.Order{}}
}

func (m *mockOrders) PlaceOrder(_ context.Context, n ordersdomain.NewOrder) (*ordersdomain.Order, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if o, ok := m.byCheckout[n.CheckoutID]; ok {
		return o, nil
	}
	o := ordersdomain.Place(n, time.Now())
	m.byCheckout[n.CheckoutID] = o
	return o, nil
}

// fakeRazorpay answers order creation like the gateway's test mode.
type fakeRazorpay struct {
	calls int
	err   error
}

func (f *fakeRazorpay) CreateOrder(_ context.Context, req razorpay.CreateOrderRequest) (*razorpay.Order, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &razorpay.Order{
		ID:        fmt.Sprintf("order_test_%d", f.calls),
		Entity:    "order",
		Amount:    req.Amount,
		AmountDue: req.Amount,
		Currency:  req.Currency,
		Receipt:   req.Receipt,
		Status:    "created",
	}, nil
}

var errBoom = errors.New("boom")
