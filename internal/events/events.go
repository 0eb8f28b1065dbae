// Package events defines the messages exchanged over the order-events topic.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

const (
	OrderPlaced        = "order.placed"
	OrderStatusChanged = "order.status_changed"

	headerEventType = "event_type"
)

// OrderPlacedPayload announces a placed order. CartSnapshotAt is when checkout captured the
// session cart; consumers must not touch a cart modified after it.
type OrderPlacedPayload struct {
	CheckoutID     string          `json:"checkout_id"`
	OrderID        string          `json:"order_id"`
	SessionID      string          `json:"session_id"`
	UserID         string          `json:"user_id"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Currency       string          `json:"currency"`
	PaymentID      string          `json:"payment_id"`
	CartSnapshotAt time.Time       `json:"cart_snapshot_at"`
	PlacedAt       time.Time       `json:"placed_at"`
}

type StatusChangedPayload struct {
	OrderID    string    `json:"order_id"`
	UserID     string    `json:"user_id"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	Correction bool      `json:"correction,omitempty"`
	ChangedAt  time.Time `json:"changed_at"`
}

// NewMessage builds a message keyed by aggregate id so events of one order stay ordered.
func NewMessage(key, eventType string, value []byte) kafka.Message {
	return kafka.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: headerEventType, Value: []byte(eventType)},
		},
	}
}

func TypeOf(m kafka.Message) string {
	for _, h := range m.Headers {
		if h.Key == headerEventType {
			return string(h.Value)
		}
	}
	return ""
}

// Writer is the subset of *kafka.Writer used by publishers.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func NewWriter(topic string, brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		WriteTimeout:           10 * time.Second,
	}
}

// Publish marshals payload and writes it as a single event.
func Publish(ctx context.Context, w Writer, key, eventType string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	if err := w.WriteMessages(ctx, NewMessage(key, eventType, value)); err != nil {
		return fmt.Errorf("write %s event: %w", eventType, err)
	}
	return nil
}
