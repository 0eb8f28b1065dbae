package domain

import (
	"errors"
	"fmt"
	"strings"
)

type OrderStatus string

const (
	StatusOrderPlaced    OrderStatus = "ORDER_PLACED"
	StatusConfirmed      OrderStatus = "CONFIRMED"
	StatusPacked         OrderStatus = "PACKED"
	StatusShipped        OrderStatus = "SHIPPED"
	StatusOutForDelivery OrderStatus = "OUT_FOR_DELIVERY"
	StatusDelivered      OrderStatus = "DELIVERED"
)

var (
	ErrInvalidStatus     = errors.New("unknown order status")
	ErrIllegalTransition = errors.New("illegal order status transition")
	ErrSameStatus        = errors.New("order already has this status")
)

// Lifecycle lists the statuses in delivery order.
var Lifecycle = []OrderStatus{
	StatusOrderPlaced,
	StatusConfirmed,
	StatusPacked,
	StatusShipped,
	StatusOutForDelivery,
	StatusDelivered,
}

var labels = map[OrderStatus]string{
	StatusOrderPlaced:    "Order Placed",
	StatusConfirmed:      "Confirmed",
	StatusPacked:         "Packed",
	StatusShipped:        "Shipped",
	StatusOutForDelivery: "Out for Delivery",
	StatusDelivered:      "Delivered",
}

// transitions is the forward-only path an order may take without a correction.
var transitions = map[OrderStatus][]OrderStatus{
	StatusOrderPlaced:    {StatusConfirmed},
	StatusConfirmed:      {StatusPacked},
	StatusPacked:         {StatusShipped},
	StatusShipped:        {StatusOutForDelivery, StatusDelivered},
	StatusOutForDelivery: {StatusDelivered},
	StatusDelivered:      {},
}

func (s OrderStatus) Valid() bool {
	_, ok := labels[s]
	return ok
}

func (s OrderStatus) Label() string {
	if l, ok := labels[s]; ok {
		return l
	}
	return string(s)
}

func (s OrderStatus) String() string {
	return string(s)
}

// Position is the index in Lifecycle, or -1.
func (s OrderStatus) Position() int {
	for i, st := range Lifecycle {
		if st == s {
			return i
		}
	}
	return -1
}

func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered
}

// ParseStatus accepts any casing and "-" or " " as word separators.
func ParseStatus(raw string) (OrderStatus, error) {
	norm := strings.ToUpper(strings.TrimSpace(raw))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	s := OrderStatus(norm)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return s, nil
}

// CheckTransition reports whether from → to is allowed. A correction may move to any
// other known status, including backwards.
func CheckTransition(from, to OrderStatus, correction bool) error {
	if !to.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}
	if from == to {
		return ErrSameStatus
	}
	if correction {
		return nil
	}
	for _, next := range transitions[from] {
		if next == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
}
