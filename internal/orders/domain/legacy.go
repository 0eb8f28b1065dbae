package domain

import (
	"strings"
	"time"

	cartdomain "github.com/fjod/electromart/internal/cart/domain"
	"github.com/shopspring/decimal"
)

// LegacyOrder is the pre-versioned document shape: flat items, a float finalAmount and
// a lowercase status string. Fields of the current shape may be present as well.
type LegacyOrder struct {
	UserID          string                `bson:"userId"`
	Items           []LegacyItem          `bson:"items"`
	Products        []LegacyItem          `bson:"products"`
	TotalDiscount   float64               `bson:"totalDiscount"`
	TotalTax        float64               `bson:"totalTax"`
	ShippingCharges float64               `bson:"shippingCharges"`
	FinalAmount     float64               `bson:"finalAmount"`
	TotalAmount     float64               `bson:"totalAmount"`
	PaymentID       string                `bson:"paymentId"`
	PaymentStatus   string                `bson:"paymentStatus"`
	Status          string                `bson:"status"`
	OrderStatus     string                `bson:"orderStatus"`
	StatusTimeline  []LegacyTimelineEntry `bson:"statusTimeline"`
	DeliveryAddress *Address              `bson:"deliveryAddress"`
	Customer        *Customer             `bson:"customer"`
	Date            string                `bson:"date"`
	CreatedAt       time.Time             `bson:"createdAt"`
}

type LegacyItem struct {
	ProductID string  `bson:"productId"`
	ID        string  `bson:"id"`
	Name      string  `bson:"name"`
	Price     float64 `bson:"price"`
	Quantity  int     `bson:"quantity"`
	Image     string  `bson:"image"`
}

type LegacyTimelineEntry struct {
	Status    string    `bson:"status"`
	Timestamp time.Time `bson:"timestamp"`
}

var legacyStatuses = map[string]OrderStatus{
	"":                 StatusOrderPlaced,
	"pending":          StatusOrderPlaced,
	"placed":           StatusOrderPlaced,
	"order_placed":     StatusOrderPlaced,
	"completed":        StatusOrderPlaced,
	"confirmed":        StatusConfirmed,
	"processing":       StatusConfirmed,
	"packed":           StatusPacked,
	"shipped":          StatusShipped,
	"out_for_delivery": StatusOutForDelivery,
	"delivered":        StatusDelivered,
}

func legacyStatus(raw string) OrderStatus {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.NewReplacer("-", "_", " ", "_").Replace(key)
	if s, ok := legacyStatuses[key]; ok {
		return s
	}
	return StatusOrderPlaced
}

func legacyPaymentStatus(raw string) string {
	switch strings.ToLower(raw) {
	case "paid", "completed", "captured", "success":
		return PaymentPaid
	case "":
		return "PENDING"
	default:
		return strings.ToUpper(raw)
	}
}

// splitUntaxed derives subtotal and tax for a document that never recorded tax. Line
// items fix the subtotal and tax is whatever the total holds beyond it; without items the
// total is split the way checkout applies TaxRate.
func splitUntaxed(products []LineItem, total, shipping, discount decimal.Decimal) (subtotal, tax, final decimal.Decimal) {
	if len(products) == 0 {
		tax = total.Mul(cartdomain.TaxRate).Round(0)
		return total.Sub(tax).Sub(shipping).Add(discount), tax, total
	}
	subtotal = decimal.Zero
	for _, p := range products {
		subtotal = subtotal.Add(p.Price.Mul(decimal.NewFromInt(int64(p.Quantity))))
	}
	if total.IsZero() {
		tax = cartdomain.ComputeAmounts(subtotal).Tax
		return subtotal, tax, subtotal.Add(tax).Add(shipping).Sub(discount)
	}
	tax = total.Sub(subtotal).Sub(shipping).Add(discount)
	if tax.IsNegative() {
		tax = decimal.Zero
	}
	return subtotal, tax, total
}

// Upgrade converts a legacy document into the current schema. Missing tax is derived
// from the line items, or from the total when the document has none.
func (l *LegacyOrder) Upgrade(id string) *Order {
	items := l.Products
	if len(items) == 0 {
		items = l.Items
	}
	products := make([]LineItem, len(items))
	for i, it := range items {
		pid := it.ProductID
		if pid == "" {
			pid = it.ID
		}
		products[i] = LineItem{
			ProductID: pid,
			Name:      it.Name,
			Price:     decimal.NewFromFloat(it.Price),
			Quantity:  it.Quantity,
			Image:     it.Image,
		}
	}

	total := l.TotalAmount
	if total == 0 {
		total = l.FinalAmount
	}
	totalDec := decimal.NewFromFloat(total)
	shipping := decimal.NewFromFloat(l.ShippingCharges)
	discount := decimal.NewFromFloat(l.TotalDiscount)
	tax := decimal.NewFromFloat(l.TotalTax)
	subtotal := totalDec.Sub(tax).Sub(shipping).Add(discount)
	if l.TotalTax == 0 {
		subtotal, tax, totalDec = splitUntaxed(products, totalDec, shipping, discount)
	}

	createdAt := l.CreatedAt
	if createdAt.IsZero() && l.Date != "" {
		if d, err := time.Parse("2006-01-02", l.Date); err == nil {
			createdAt = d
		}
	}
	createdAt = createdAt.UTC()

	rawStatus := l.OrderStatus
	if rawStatus == "" {
		rawStatus = l.Status
	}
	status := legacyStatus(rawStatus)

	timeline := make([]TimelineEntry, 0, len(l.StatusTimeline)+1)
	for _, e := range l.StatusTimeline {
		timeline = append(timeline, TimelineEntry{Status: legacyStatus(e.Status), Timestamp: e.Timestamp.UTC()})
	}
	if len(timeline) == 0 || timeline[len(timeline)-1].Status != status {
		timeline = append(timeline, TimelineEntry{Status: status, Timestamp: createdAt, Note: "migrated"})
	}

	var address Address
	if l.DeliveryAddress != nil {
		address = *l.DeliveryAddress
	}
	var customer Customer
	if l.Customer != nil {
		customer = *l.Customer
	}
	if address.Name == "" {
		address.Name = customer.Name
	}
	if address.Phone == "" {
		address.Phone = customer.Phone
	}

	return &Order{
		ID:              id,
		CheckoutID:      "legacy-" + id,
		UserID:          l.UserID,
		Products:        products,
		Subtotal:        subtotal,
		TaxAmount:       tax,
		Discount:        discount,
		ShippingCharges: shipping,
		TotalAmount:     totalDec,
		Currency:        "INR",
		PaymentID:       l.PaymentID,
		PaymentStatus:   legacyPaymentStatus(l.PaymentStatus),
		DeliveryAddress: address,
		Customer:        customer,
		OrderStatus:     status,
		StatusTimeline:  timeline,
		SchemaVersion:   SchemaVersion,
		CreatedAt:       createdAt,
		UpdatedAt:       time.Now().UTC().Truncate(time.Millisecond),
	}
}
