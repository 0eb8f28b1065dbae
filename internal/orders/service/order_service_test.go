package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/fjod/electromart/internal/events"
	"github.com/fjod/electromart/internal/orders/domain"
	"github.com/fjod/electromart/internal/orders/repository"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	m      sync.Mutex
	orders map[string]*domain.Order
	err    error
}

func newMockRepository() *mockRepository {
	return &mockRepository{orders: map[string]*domain.Order{}}
}

func (m *mockRepository) CreateOrder(_ context.Context, order *domain.Order) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, o := range m.orders {
		if o.CheckoutID == order.CheckoutID {
			return repository.ErrDuplicateCheckout
		}
	}
	cp := *order
	m.orders[order.ID] = &cp
	return nil
}

func (m *mockRepository) GetOrder(_ context.Context, id string) (*domain.Order, error) {
	m.m.Lock()
	defer m.m.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockRepository) GetOrderByCheckoutID(_ context.Context, checkoutID string) (*domain.Order, error) {
	m.m.Lock()
	defer m.m.Unlock()
	for _, o := range m.orders {
		if o.CheckoutID == checkoutID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (m *mockRepository) ListOrders(_ context.Context, f repository.ListFilter) ([]*domain.Order, error) {
	m.m.Lock()
	defer m.m.Unlock()
	var out []*domain.Order
	for _, o := range m.orders {
		if f.UserID != "" && o.UserID != f.UserID {
			continue
		}
		if f.Status != "" && o.OrderStatus != f.Status {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *mockRepository) AppendStatus(_ context.Context, id string, expected domain.OrderStatus, entry domain.TimelineEntry) (*domain.Order, error) {
	m.m.Lock()
	defer m.m.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	if o.OrderStatus != expected {
		return nil, repository.ErrStatusConflict
	}
	o.OrderStatus = entry.Status
	o.StatusTimeline = append(o.StatusTimeline, entry)
	o.UpdatedAt = entry.Timestamp
	cp := *o
	return &cp, nil
}

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func newOrderInput(checkoutID string) domain.NewOrder {
	return domain.NewOrder{
		ID:          "order-" + checkoutID,
		CheckoutID:  checkoutID,
		UserID:      "user-1",
		Products:    []domain.LineItem{{ProductID: "arduino-uno-r3", Name: "Arduino Uno R3", Price: decimal.NewFromInt(500), Quantity: 2}},
		Subtotal:    decimal.NewFromInt(1000),
		TaxAmount:   decimal.NewFromInt(180),
		TotalAmount: decimal.NewFromInt(1180),
		Currency:    "INR",
		PaymentID:   "pay_1",
	}
}

func TestPlaceOrder(t *testing.T) {
	svc := NewOrderService(newMockRepository(), nil)

	order, err := svc.PlaceOrder(context.Background(), newOrderInput("chk-1"))

	require.NoError(t, err)
	assert.Equal(t, domain.StatusOrderPlaced, order.OrderStatus)
	assert.Len(t, order.StatusTimeline, 1)
	assert.True(t, decimal.NewFromInt(1180).Equal(order.TotalAmount))
}

func TestPlaceOrder_DuplicateCheckoutReturnsExisting(t *testing.T) {
	repo := newMockRepository()
	svc := NewOrderService(repo, nil)
	ctx := context.Background()

	first, err := svc.PlaceOrder(ctx, newOrderInput("chk-1"))
	require.NoError(t, err)

	dup := newOrderInput("chk-1")
	dup.ID = "another-id"
	second, err := svc.PlaceOrder(ctx, dup)

	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, repo.orders, 1)
}

func TestPlaceOrder_RepoError(t *testing.T) {
	repo := newMockRepository()
	repo.err = errors.New("write concern error")
	svc := NewOrderService(repo, nil)

	_, err := svc.PlaceOrder(context.Background(), newOrderInput("chk-1"))
	assert.ErrorContains(t, err, "write concern error")
}

func TestGetOrder_OtherUser(t *testing.T) {
	svc := NewOrderService(newMockRepository(), nil)
	ctx := context.Background()
	order, err := svc.PlaceOrder(ctx, newOrderInput("chk-1"))
	require.NoError(t, err)

	_, err = svc.GetOrder(ctx, "someone-else", order.ID)
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)

	got, err := svc.GetOrder(ctx, "user-1", order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
}

func TestUpdateStatus_AppendsOneEntry(t *testing.T) {
	w := &recordingWriter{}
	svc := NewOrderService(newMockRepository(), w)
	ctx := context.Background()
	order, err := svc.PlaceOrder(ctx, newOrderInput("chk-1"))
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(ctx, UpdateStatusRequest{OrderID: order.ID, Status: "confirmed", Note: "verified by ops"})

	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, updated.OrderStatus)
	require.Len(t, updated.StatusTimeline, 2)
	last := updated.StatusTimeline[1]
	assert.Equal(t, domain.StatusConfirmed, last.Status)
	assert.Equal(t, "verified by ops", last.Note)
	assert.False(t, last.Correction)
	assert.False(t, last.Timestamp.IsZero())
	assert.Equal(t, order.Products, updated.Products)
	assert.Equal(t, order.PaymentID, updated.PaymentID)

	require.Len(t, w.msgs, 1)
	assert.Equal(t, events.OrderStatusChanged, events.TypeOf(w.msgs[0]))
	var payload events.StatusChangedPayload
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &payload))
	assert.Equal(t, "ORDER_PLACED", payload.From)
	assert.Equal(t, "CONFIRMED", payload.To)
}

func TestUpdateStatus_RejectsBackwardsWithoutCorrection(t *testing.T) {
	svc := NewOrderService(newMockRepository(), nil)
	ctx := context.Background()
	order, err := svc.PlaceOrder(ctx, newOrderInput("chk-1"))
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, UpdateStatusRequest{OrderID: order.ID, Status: "CONFIRMED"})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, UpdateStatusRequest{OrderID: order.ID, Status: "ORDER_PLACED"})
	assert.ErrorIs(t, err, domain.ErrIllegalTransition)

	got, err := svc.GetOrder(ctx, "user-1", order.ID)
	require.NoError(t, err)
	assert.Len(t, got.StatusTimeline, 2)
}

func TestUpdateStatus_CorrectionMarksEntry(t *testing.T) {
	svc := NewOrderService(newMockRepository(), nil)
	ctx := context.Background()
	order, err := svc.PlaceOrder(ctx, newOrderInput("chk-1"))
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, UpdateStatusRequest{OrderID: order.ID, Status: "CONFIRMED"})
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(ctx, UpdateStatusRequest{OrderID: order.ID, Status: "ORDER_PLACED", Correction: true})

	require.NoError(t, err)
	assert.Equal(t, domain.StatusOrderPlaced, updated.OrderStatus)
	require.Len(t, updated.StatusTimeline, 3)
	assert.True(t, updated.StatusTimeline[2].Correction)
	assert.True(t, updated.TimelineConsistent())
}

func TestUpdateStatus_Errors(t *testing.T) {
	svc := NewOrderService(newMockRepository(), nil)
	ctx := context.Background()

	_, err := svc.UpdateStatus(ctx, UpdateStatusRequest{OrderID: "x", Status: "LOST"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	_, err = svc.UpdateStatus(ctx, UpdateStatusRequest{OrderID: "missing", Status: "CONFIRMED"})
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)
}

func TestUpdateStatus_EventFailureDoesNotFail(t *testing.T) {
	svc := NewOrderService(newMockRepository(), &recordingWriter{err: errors.New("broker down")})
	ctx := context.Background()
	order, err := svc.PlaceOrder(ctx, newOrderInput("chk-1"))
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, UpdateStatusRequest{OrderID: order.ID, Status: "CONFIRMED"})
	assert.NoError(t, err)
}

func TestTrackingAndInvoice(t *testing.T) {
	svc := NewOrderService(newMockRepository(), nil)
	svc.now = func() time.Time { return time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC) }
	ctx := context.Background()
	order, err := svc.PlaceOrder(ctx, newOrderInput("chk-1"))
	require.NoError(t, err)

	tr, err := svc.Tracking(ctx, "user-1", order.ID)
	require.NoError(t, err)
	assert.True(t, tr.Steps[0].Current)
	assert.False(t, tr.Steps[1].Completed)

	inv, err := svc.Invoice(ctx, "user-1", order.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(180).Equal(inv.Tax))
	assert.True(t, decimal.NewFromInt(1180).Equal(inv.Total))

	_, err = svc.Invoice(ctx, "user-2", order.ID)
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)
}

func TestListAllOrders_StatusFilter(t *testing.T) {
	svc := NewOrderService(newMockRepository(), nil)
	ctx := context.Background()
	a, err := svc.PlaceOrder(ctx, newOrderInput("chk-1"))
	require.NoError(t, err)
	_, err = svc.PlaceOrder(ctx, newOrderInput("chk-2"))
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, UpdateStatusRequest{OrderID: a.ID, Status: "CONFIRMED"})
	require.NoError(t, err)

	confirmed, err := svc.ListAllOrders(ctx, "confirmed", 0, 0)
	require.NoError(t, err)
	require.Len(t, confirmed, 1)
	assert.Equal(t, a.ID, confirmed[0].ID)

	_, err = svc.ListAllOrders(ctx, "bogus", 0, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}
