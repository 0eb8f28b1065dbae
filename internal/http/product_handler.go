package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/electromart/internal/product/domain"
	"github.com/fjod/electromart/internal/product/service"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type ProductReader interface {
	ListProducts(ctx context.Context, f service.Filter) ([]*domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}

type ProductHandler struct {
	products ProductReader
	timeout  time.Duration
}

func NewProductHandler(products ProductReader, timeout time.Duration) *ProductHandler {
	return &ProductHandler{
		products: products,
		timeout:  timeout,
	}
}

type ProductResponse struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Category       string          `json:"category"`
	Description    string          `json:"description,omitempty"`
	Price          decimal.Decimal `json:"price"`
	EffectivePrice decimal.Decimal `json:"effective_price"`
	Stock          int             `json:"stock"`
	Rating         float64         `json:"rating"`
	Sales          int             `json:"sales"`
	ImageURL       string          `json:"image_url,omitempty"`
	Offer          *domain.Offer   `json:"offer,omitempty"`
}

type ProductsResponse struct {
	Products []ProductResponse `json:"products"`
}

func toProductResponse(p *domain.Product) ProductResponse {
	return ProductResponse{
		ID:             p.ID,
		Name:           p.Name,
		Category:       p.Category,
		Description:    p.Description,
		Price:          p.Price,
		EffectivePrice: p.EffectivePrice(),
		Stock:          p.Stock,
		Rating:         p.Rating,
		Sales:          p.Sales,
		ImageURL:       p.ImageURL,
		Offer:          p.Offer,
	}
}

// GET /api/v1/products?category=&q=
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	res, err := h.products.ListProducts(ctx, service.Filter{
		Category: r.URL.Query().Get("category"),
		Query:    r.URL.Query().Get("q"),
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	products := make([]ProductResponse, len(res))
	for i, p := range res {
		products[i] = toProductResponse(p)
	}

	respondJSON(w, http.StatusOK, &ProductsResponse{Products: products})
}

// GET /api/v1/products/{product_id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, err := h.products.GetProduct(ctx, chi.URLParam(r, "product_id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toProductResponse(p))
}
