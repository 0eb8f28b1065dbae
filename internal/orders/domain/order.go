package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	SchemaVersion = 2
	PaymentPaid   = "PAID"
)

type LineItem struct {
	ProductID string          `bson:"productId" json:"product_id"`
	Name      string          `bson:"name" json:"name"`
	Price     decimal.Decimal `bson:"price" json:"price"`
	Quantity  int             `bson:"quantity" json:"quantity"`
	Image     string          `bson:"image" json:"image"`
}

func (l LineItem) Total() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Address struct {
	Name    string `bson:"name" json:"name"`
	Phone   string `bson:"phone" json:"phone"`
	Address string `bson:"address" json:"address"`
	City    string `bson:"city" json:"city"`
	State   string `bson:"state" json:"state"`
	Pincode string `bson:"pincode" json:"pincode"`
}

type Customer struct {
	Name  string `bson:"name" json:"name"`
	Email string `bson:"email" json:"email"`
	Phone string `bson:"phone" json:"phone"`
}

type TimelineEntry struct {
	Status     OrderStatus `bson:"status" json:"status"`
	Timestamp  time.Time   `bson:"timestamp" json:"timestamp"`
	Note       string      `bson:"note,omitempty" json:"note,omitempty"`
	Correction bool        `bson:"correction,omitempty" json:"correction,omitempty"`
}

// Order is immutable after creation except for OrderStatus and StatusTimeline, which
// always change together.
type Order struct {
	ID              string          `bson:"_id" json:"id"`
	CheckoutID      string          `bson:"checkoutId" json:"checkout_id"`
	UserID          string          `bson:"userId" json:"user_id"`
	Products        []LineItem      `bson:"products" json:"products"`
	Subtotal        decimal.Decimal `bson:"subtotal" json:"subtotal"`
	TaxAmount       decimal.Decimal `bson:"taxAmount" json:"tax_amount"`
	Discount        decimal.Decimal `bson:"discount" json:"discount"`
	ShippingCharges decimal.Decimal `bson:"shippingCharges" json:"shipping_charges"`
	TotalAmount     decimal.Decimal `bson:"totalAmount" json:"total_amount"`
	Currency        string          `bson:"currency" json:"currency"`
	PaymentID       string          `bson:"paymentId" json:"payment_id"`
	GatewayOrderID  string          `bson:"gatewayOrderId" json:"gateway_order_id"`
	PaymentStatus   string          `bson:"paymentStatus" json:"payment_status"`
	DeliveryAddress Address         `bson:"deliveryAddress" json:"delivery_address"`
	Customer        Customer        `bson:"customer" json:"customer"`
	OrderStatus     OrderStatus     `bson:"orderStatus" json:"order_status"`
	StatusTimeline  []TimelineEntry `bson:"statusTimeline" json:"status_timeline"`
	SchemaVersion   int             `bson:"schemaVersion" json:"schema_version"`
	CreatedAt       time.Time       `bson:"createdAt" json:"created_at"`
	UpdatedAt       time.Time       `bson:"updatedAt" json:"updated_at"`
}

type NewOrder struct {
	ID              string
	CheckoutID      string
	UserID          string
	Products        []LineItem
	Subtotal        decimal.Decimal
	TaxAmount       decimal.Decimal
	TotalAmount     decimal.Decimal
	Currency        string
	PaymentID       string
	GatewayOrderID  string
	DeliveryAddress Address
	Customer        Customer
}

// Place builds a paid order with a single ORDER_PLACED timeline entry.
func Place(n NewOrder, now time.Time) *Order {
	now = now.UTC().Truncate(time.Millisecond)
	return &Order{
		ID:              n.ID,
		CheckoutID:      n.CheckoutID,
		UserID:          n.UserID,
		Products:        n.Products,
		Subtotal:        n.Subtotal,
		TaxAmount:       n.TaxAmount,
		Discount:        decimal.Zero,
		ShippingCharges: decimal.Zero,
		TotalAmount:     n.TotalAmount,
		Currency:        n.Currency,
		PaymentID:       n.PaymentID,
		GatewayOrderID:  n.GatewayOrderID,
		PaymentStatus:   PaymentPaid,
		DeliveryAddress: n.DeliveryAddress,
		Customer:        n.Customer,
		OrderStatus:     StatusOrderPlaced,
		StatusTimeline:  []TimelineEntry{{Status: StatusOrderPlaced, Timestamp: now}},
		SchemaVersion:   SchemaVersion,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// ItemCount sums quantities across lines.
func (o *Order) ItemCount() int {
	n := 0
	for _, p := range o.Products {
		n += p.Quantity
	}
	return n
}

// TimelineConsistent reports whether the last timeline entry matches OrderStatus.
func (o *Order) TimelineConsistent() bool {
	if len(o.StatusTimeline) == 0 {
		return false
	}
	return o.StatusTimeline[len(o.StatusTimeline)-1].Status == o.OrderStatus
}
