package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceLine struct {
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Total     decimal.Decimal `json:"total"`
}

type Invoice struct {
	Number    string          `json:"number"`
	OrderID   string          `json:"order_id"`
	PaymentID string          `json:"payment_id"`
	IssuedAt  time.Time       `json:"issued_at"`
	BillTo    Customer        `json:"bill_to"`
	ShipTo    Address         `json:"ship_to"`
	Lines     []InvoiceLine   `json:"lines"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Discount  decimal.Decimal `json:"discount"`
	Tax       decimal.Decimal `json:"tax"`
	Shipping  decimal.Decimal `json:"shipping"`
	Total     decimal.Decimal `json:"total"`
	Currency  string          `json:"currency"`
}

// BuildInvoice derives the printable breakdown from the stored amounts.
func BuildInvoice(o *Order) Invoice {
	lines := make([]InvoiceLine, len(o.Products))
	for i, p := range o.Products {
		lines[i] = InvoiceLine{
			Name:      p.Name,
			UnitPrice: p.Price,
			Quantity:  p.Quantity,
			Total:     p.Total(),
		}
	}

	billTo := o.Customer
	if billTo.Name == "" {
		billTo.Name = o.DeliveryAddress.Name
	}
	if billTo.Phone == "" {
		billTo.Phone = o.DeliveryAddress.Phone
	}

	return Invoice{
		Number:    invoiceNumber(o.ID),
		OrderID:   o.ID,
		PaymentID: o.PaymentID,
		IssuedAt:  o.CreatedAt,
		BillTo:    billTo,
		ShipTo:    o.DeliveryAddress,
		Lines:     lines,
		Subtotal:  o.Subtotal,
		Discount:  o.Discount,
		Tax:       o.TaxAmount,
		Shipping:  o.ShippingCharges,
		Total:     o.TotalAmount,
		Currency:  o.Currency,
	}
}

func invoiceNumber(orderID string) string {
	if len(orderID) > 8 {
		orderID = orderID[:8]
	}
	return "INV-" + orderID
}
