package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/electromart/internal/cart/domain"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

const maxLineQuantity = 99

type CartOperations interface {
	GetCart(ctx context.Context, sessionID string) (*domain.Cart, error)
	AddItem(ctx context.Context, sessionID, productID string) (*domain.Cart, error)
	SetQuantity(ctx context.Context, sessionID, productID string, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, sessionID, productID string) (*domain.Cart, error)
	ClearCart(ctx context.Context, sessionID string) error
}

type CartHandler struct {
	carts   CartOperations
	timeout time.Duration
}

func NewCartHandler(carts CartOperations, timeout time.Duration) *CartHandler {
	return &CartHandler{
		carts:   carts,
		timeout: timeout,
	}
}

type AddItemRequestDTO struct {
	ProductID string `json:"product_id"`
}

type UpdateQuantityRequestDTO struct {
	Quantity *int `json:"quantity"`
}

type CartResponseDTO struct {
	SessionID   string            `json:"session_id"`
	Items       []domain.CartItem `json:"items"`
	TotalItems  int               `json:"total_items"`
	TotalAmount decimal.Decimal   `json:"total_amount"`
	Tax         decimal.Decimal   `json:"tax"`
	FinalAmount decimal.Decimal   `json:"final_amount"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func toCartResponse(c *domain.Cart) CartResponseDTO {
	amounts := c.Amounts()
	items := c.Items
	if items == nil {
		items = []domain.CartItem{}
	}
	return CartResponseDTO{
		SessionID:   c.SessionID,
		Items:       items,
		TotalItems:  c.TotalItems,
		TotalAmount: c.TotalAmount,
		Tax:         amounts.Tax,
		FinalAmount: amounts.Final,
		UpdatedAt:   c.UpdatedAt,
	}
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, err := h.carts.GetCart(ctx, getSessionID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartResponse(cart))
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	cart, err := h.carts.AddItem(ctx, getSessionID(r.Context()), req.ProductID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toCartResponse(cart))
}

// PUT /api/v1/cart/items/{product_id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID := chi.URLParam(r, "product_id")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	var req UpdateQuantityRequestDTO
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity == nil {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity is required")
		return
	}
	if *req.Quantity > maxLineQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be at most 99")
		return
	}

	// zero or negative removes the line
	cart, err := h.carts.SetQuantity(ctx, getSessionID(r.Context()), productID, *req.Quantity)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartResponse(cart))
}

// DELETE /api/v1/cart/items/{product_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID := chi.URLParam(r, "product_id")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	cart, err := h.carts.RemoveItem(ctx, getSessionID(r.Context()), productID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartResponse(cart))
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionID(r.Context())
	if err := h.carts.ClearCart(ctx, sessionID); err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartResponse(domain.NewCart(sessionID)))
}

// DELETE /api/v1/session ends the shopping session: the cart is cleared and the cookie
// expired.
func (h *CartHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.carts.ClearCart(ctx, getSessionID(r.Context())); err != nil {
		handleServiceError(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}
