package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/electromart/internal/cart/cache"
	"github.com/fjod/electromart/internal/cart/domain"
	"github.com/fjod/electromart/internal/events"
	"github.com/redis/go-redis/v9"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"gotest.tools/v3/assert"
)

const topic = "order-events"

type recordingClearer struct {
	mu       sync.Mutex
	sessions []string
	since    []time.Time
}

func (r *recordingClearer) ClearCartIfUnchangedSince(_ context.Context, sessionID string, since time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = append(r.sessions, sessionID)
	r.since = append(r.since, since)
	return true, nil
}

type storeClearer struct {
	store cache.SessionStore
}

func (s storeClearer) ClearCartIfUnchangedSince(ctx context.Context, sessionID string, since time.Time) (bool, error) {
	return s.store.DeleteIf(ctx, sessionID, func(c *domain.Cart) bool {
		return !c.UpdatedAt.After(since)
	})
}

func orderPlaced(t *testing.T, payload events.OrderPlacedPayload) kafkaGo.Message {
	value, err := json.Marshal(payload)
	require.NoError(t, err)
	return events.NewMessage(payload.CheckoutID, events.OrderPlaced, value)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandle_ClearsCartOnOrderPlaced(t *testing.T) {
	clearer := &recordingClearer{}
	p := &Poller{carts: clearer, log: discardLogger()}

	snapshotAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	p.handle(context.Background(), orderPlaced(t, events.OrderPlacedPayload{
		CheckoutID:     "chk-1",
		SessionID:      "sess-9",
		CartSnapshotAt: snapshotAt,
		PlacedAt:       snapshotAt.Add(time.Minute),
	}))

	assert.DeepEqual(t, []string{"sess-9"}, clearer.sessions)
	assert.DeepEqual(t, []time.Time{snapshotAt}, clearer.since)
}

func TestHandle_FallsBackToPlacedAt(t *testing.T) {
	clearer := &recordingClearer{}
	p := &Poller{carts: clearer, log: discardLogger()}

	placedAt := time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC)
	p.handle(context.Background(), orderPlaced(t, events.OrderPlacedPayload{
		CheckoutID: "chk-1",
		SessionID:  "sess-9",
		PlacedAt:   placedAt,
	}))

	assert.DeepEqual(t, []time.Time{placedAt}, clearer.since)
}

func TestHandle_LateEventKeepsRefilledCart(t *testing.T) {
	store, cleanup := setupTestRedis(t)
	defer cleanup()
	ctx := context.Background()
	p := &Poller{carts: storeClearer{store}, log: discardLogger()}

	snapshotAt := time.Now().Add(-time.Minute)
	_, err := store.Update(ctx, "sess-1", func(c *domain.Cart) error {
		c.Add(domain.CartItem{ProductID: "esp32-devkit", Name: "ESP32 DevKit", UnitPrice: decimal.NewFromInt(450)})
		return nil
	})
	require.NoError(t, err)

	p.handle(ctx, orderPlaced(t, events.OrderPlacedPayload{
		CheckoutID:     "chk-1",
		OrderID:        "order-1",
		SessionID:      "sess-1",
		CartSnapshotAt: snapshotAt,
		PlacedAt:       snapshotAt.Add(time.Second),
	}))

	cart, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 1, cart.TotalItems)
}

func TestHandle_ClearsCartLeftFromCheckout(t *testing.T) {
	store, cleanup := setupTestRedis(t)
	defer cleanup()
	ctx := context.Background()
	p := &Poller{carts: storeClearer{store}, log: discardLogger()}

	_, err := store.Update(ctx, "sess-1", func(c *domain.Cart) error {
		c.Add(domain.CartItem{ProductID: "esp32-devkit", Name: "ESP32 DevKit", UnitPrice: decimal.NewFromInt(450)})
		return nil
	})
	require.NoError(t, err)

	p.handle(ctx, orderPlaced(t, events.OrderPlacedPayload{
		CheckoutID:     "chk-1",
		SessionID:      "sess-1",
		CartSnapshotAt: time.Now().Add(time.Second),
	}))

	_, err = store.Get(ctx, "sess-1")
	require.ErrorIs(t, err, cache.ErrCacheMiss)
}

func TestHandle_IgnoresOtherEvents(t *testing.T) {
	clearer := &recordingClearer{}
	p := &Poller{carts: clearer, log: discardLogger()}

	msg := events.NewMessage("o-1", events.OrderStatusChanged, []byte(`{"order_id":"o-1","to":"SHIPPED"}`))
	p.handle(context.Background(), msg)

	assert.Equal(t, 0, len(clearer.sessions))
}

func TestHandle_MalformedPayload(t *testing.T) {
	clearer := &recordingClearer{}
	p := &Poller{carts: clearer, log: discardLogger()}

	p.handle(context.Background(), events.NewMessage("chk-1", events.OrderPlaced, []byte(`{corrupted`)))
	p.handle(context.Background(), events.NewMessage("chk-2", events.OrderPlaced, []byte(`{"checkout_id":"chk-2"}`)))
	p.handle(context.Background(), events.NewMessage("chk-3", events.OrderPlaced, []byte(`{"checkout_id":"chk-3","session_id":"sess-3"}`)))

	assert.Equal(t, 0, len(clearer.sessions))
}

func setupTestRedis(t *testing.T) (*cache.RedisCache, func()) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	store := cache.NewRedisCache(client, time.Hour)

	cleanup := func() {
		client.Close()
		mr.Close()
	}
	return store, cleanup
}

func setupKafka(t *testing.T) (string, func()) {
	ctx := context.Background()

	kafkaContainer, err := kafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err)

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers, "broker address should not be empty")

	cleanup := func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate kafka container: %v", err)
		}
	}

	return brokers[0], cleanup
}

func createTopic(t *testing.T, brokerAddr, topic string) {
	conn, err := kafkaGo.Dial("tcp", brokerAddr)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	controllerConn, err := kafkaGo.Dial("tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	require.NoError(t, err)
	defer controllerConn.Close()

	err = controllerConn.CreateTopics(kafkaGo.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		t.Logf("topic creation error (may already exist): %v", err)
	}
}

func TestPoller_Run(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, cleanupRedis := setupTestRedis(t)
	defer cleanupRedis()
	broker, cleanupKafka := setupKafka(t)
	defer cleanupKafka()
	createTopic(t, broker, topic)

	_, err := store.Update(ctx, "sess-123", func(c *domain.Cart) error {
		c.Add(domain.CartItem{ProductID: "arduino-uno-r3", Name: "Arduino Uno R3", UnitPrice: decimal.NewFromInt(500)})
		return nil
	})
	require.NoError(t, err)

	w := events.NewWriter(topic, broker)
	err = events.Publish(ctx, w, "chk-1", events.OrderPlaced, events.OrderPlacedPayload{
		CheckoutID:     "chk-1",
		OrderID:        "order-1",
		SessionID:      "sess-123",
		UserID:         "guest",
		Currency:       "INR",
		CartSnapshotAt: time.Now(),
		PlacedAt:       time.Now(),
	})
	require.NoError(t, err)
	w.Close()

	p := NewPoller(storeClearer{store}, discardLogger(), topic, broker)
	defer p.Close()
	go p.Run(ctx)

	require.Eventually(t, func() bool {
		_, errGet := store.Get(ctx, "sess-123")
		return errors.Is(errGet, cache.ErrCacheMiss)
	}, 30*time.Second, 500*time.Millisecond)
}
