package domain

import (
	"time"

	cartdomain "github.com/fjod/electromart/internal/cart/domain"
	ordersdomain "github.com/fjod/electromart/internal/orders/domain"
	"github.com/shopspring/decimal"
)

type CartSnapshotItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Image     string          `json:"image,omitempty"`
}

// CartSnapshot is the cart and delivery details as they were when checkout began. The
// order is written from it, never from the live cart.
type CartSnapshot struct {
	Items           []CartSnapshotItem    `json:"items"`
	Subtotal        decimal.Decimal       `json:"subtotal"`
	TaxAmount       decimal.Decimal       `json:"tax_amount"`
	TotalAmount     decimal.Decimal       `json:"total_amount"`
	Currency        string                `json:"currency"`
	DeliveryAddress ordersdomain.Address  `json:"delivery_address"`
	Customer        ordersdomain.Customer `json:"customer"`
	CapturedAt      time.Time             `json:"captured_at"`
}

func NewCartSnapshot(cart *cartdomain.Cart, currency string, address ordersdomain.Address, customer ordersdomain.Customer, now time.Time) *CartSnapshot {
	items := make([]CartSnapshotItem, len(cart.Items))
	for i, it := range cart.Items {
		items[i] = CartSnapshotItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Subtotal:  it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))),
			Image:     it.Image,
		}
	}
	amounts := cart.Amounts()
	return &CartSnapshot{
		Items:           items,
		Subtotal:        amounts.Subtotal,
		TaxAmount:       amounts.Tax,
		TotalAmount:     amounts.Final,
		Currency:        currency,
		DeliveryAddress: address,
		Customer:        customer,
		CapturedAt:      now,
	}
}

func (s *CartSnapshot) ItemCount() int {
	n := 0
	for _, it := range s.Items {
		n += it.Quantity
	}
	return n
}

func (s *CartSnapshot) LineItems() []ordersdomain.LineItem {
	lines := make([]ordersdomain.LineItem, len(s.Items))
	for i, it := range s.Items {
		lines[i] = ordersdomain.LineItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     it.UnitPrice,
			Quantity:  it.Quantity,
			Image:     it.Image,
		}
	}
	return lines
}
