package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Offer is a time-bounded percentage discount.
type Offer struct {
	Active             bool      `json:"is_active"`
	DiscountPercentage int       `json:"discount_percentage"`
	EndDate            time.Time `json:"end_date"`
	Description        string    `json:"description,omitempty"`
}

func (o *Offer) ValidAt(t time.Time) bool {
	if o == nil || !o.Active {
		return false
	}
	if o.DiscountPercentage < 1 || o.DiscountPercentage > 99 {
		return false
	}
	return o.EndDate.IsZero() || t.Before(o.EndDate)
}

type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Rating      float64         `json:"rating"`
	Sales       int             `json:"sales"`
	ImageURL    string          `json:"image_url,omitempty"`
	Offer       *Offer          `json:"offer,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// EffectivePriceAt applies the offer discount when it is valid at t, rounded to paise.
func (p *Product) EffectivePriceAt(t time.Time) decimal.Decimal {
	if !p.Offer.ValidAt(t) {
		return p.Price
	}
	factor := decimal.NewFromInt(int64(100 - p.Offer.DiscountPercentage)).Div(decimal.NewFromInt(100))
	return p.Price.Mul(factor).Round(2)
}

func (p *Product) EffectivePrice() decimal.Decimal {
	return p.EffectivePriceAt(time.Now())
}
