package poller

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/fjod/electromart/internal/events"
	"github.com/segmentio/kafka-go"
)

const consumerGroup = "cart-service-consumer"

// CartClearer is the part of the cart service the poller needs.
type CartClearer interface {
	ClearCartIfUnchangedSince(ctx context.Context, sessionID string, since time.Time) (bool, error)
}

// Poller clears session carts when an order.placed event arrives. Checkout clears the
// cart itself; this covers a crash between persisting the order and that clear. A cart
// modified after the checkout snapshot belongs to a new purchase and is left alone.
type Poller struct {
	carts  CartClearer
	reader *kafka.Reader
	log    *slog.Logger
}

func NewPoller(carts CartClearer, log *slog.Logger, topic string, brokers ...string) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  consumerGroup,
		MaxBytes: 10e6, // 10MB
	})
	return &Poller{carts: carts, reader: reader, log: log}
}

func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		p.consume(ctx)
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.log.Error("error closing reader", "error", err)
	}
}

func (p *Poller) consume(ctx context.Context) {
	m, err := p.reader.ReadMessage(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			p.log.Error("error reading message", "error", err)
		}
		return
	}
	p.handle(ctx, m)
}

func (p *Poller) handle(ctx context.Context, m kafka.Message) {
	if events.TypeOf(m) != events.OrderPlaced {
		return
	}

	var payload events.OrderPlacedPayload
	if err := json.Unmarshal(m.Value, &payload); err != nil {
		p.log.Error("error parsing message", "error", err)
		return
	}
	if payload.SessionID == "" {
		p.log.Warn("order.placed event without session id", "order_id", payload.OrderID)
		return
	}

	since := payload.CartSnapshotAt
	if since.IsZero() {
		since = payload.PlacedAt
	}
	if since.IsZero() {
		p.log.Warn("order.placed event without snapshot time", "order_id", payload.OrderID)
		return
	}

	cleared, err := p.carts.ClearCartIfUnchangedSince(ctx, payload.SessionID, since)
	if err != nil {
		p.log.Error("failed to clear cart", "session_id", payload.SessionID, "error", err)
		return
	}
	if !cleared {
		p.log.Info("cart changed after checkout, kept", "session_id", payload.SessionID, "order_id", payload.OrderID)
		return
	}
	p.log.Info("cart cleared from order event", "session_id", payload.SessionID, "order_id", payload.OrderID)
}
