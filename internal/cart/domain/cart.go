package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TaxRate is the flat GST applied at checkout.
var TaxRate = decimal.NewFromFloat(0.18)

type CartItem struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Image     string          `json:"image,omitempty"`
	AddedAt   time.Time       `json:"added_at"`
}

// Cart is the session-scoped aggregate. TotalItems and TotalAmount are derived
// from Items after every mutation and are never written directly.
type Cart struct {
	SessionID   string          `json:"session_id"`
	Items       []CartItem      `json:"items"`
	TotalItems  int             `json:"total_items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func NewCart(sessionID string) *Cart {
	now := time.Now()
	return &Cart{
		SessionID:   sessionID,
		Items:       []CartItem{},
		TotalAmount: decimal.Zero,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Add increments the quantity of an existing line for the same product, or appends a new
// line with a fresh identity and quantity 1.
func (c *Cart) Add(item CartItem) {
	for i := range c.Items {
		if c.Items[i].ProductID == item.ProductID {
			c.Items[i].Quantity++
			c.recompute()
			return
		}
	}
	item.ID = uuid.NewString()
	item.Quantity = 1
	if item.AddedAt.IsZero() {
		item.AddedAt = time.Now()
	}
	c.Items = append(c.Items, item)
	c.recompute()
}

func (c *Cart) Remove(productID string) {
	kept := c.Items[:0]
	for _, item := range c.Items {
		if item.ProductID != productID {
			kept = append(kept, item)
		}
	}
	c.Items = kept
	c.recompute()
}

// SetQuantity clamps negative values to zero; a zero quantity removes the line.
func (c *Cart) SetQuantity(productID string, quantity int) {
	if quantity < 0 {
		quantity = 0
	}
	kept := c.Items[:0]
	for _, item := range c.Items {
		if item.ProductID == productID {
			item.Quantity = quantity
		}
		if item.Quantity > 0 {
			kept = append(kept, item)
		}
	}
	c.Items = kept
	c.recompute()
}

func (c *Cart) Clear() {
	c.Items = []CartItem{}
	c.recompute()
}

// Find returns the line for productID.
func (c *Cart) Find(productID string) (CartItem, bool) {
	for _, item := range c.Items {
		if item.ProductID == productID {
			return item, true
		}
	}
	return CartItem{}, false
}

func (c *Cart) recompute() {
	totalItems := 0
	total := decimal.Zero
	for _, item := range c.Items {
		totalItems += item.Quantity
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	c.TotalItems = totalItems
	c.TotalAmount = total
	c.UpdatedAt = time.Now()
}

// Amounts is the checkout breakdown of a cart.
type Amounts struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Final    decimal.Decimal `json:"final"`
}

// ComputeAmounts applies TaxRate to subtotal, rounded to whole currency units.
func ComputeAmounts(subtotal decimal.Decimal) Amounts {
	tax := subtotal.Mul(TaxRate).Round(0)
	return Amounts{
		Subtotal: subtotal,
		Tax:      tax,
		Final:    subtotal.Add(tax),
	}
}

func (c *Cart) Amounts() Amounts {
	return ComputeAmounts(c.TotalAmount)
}
