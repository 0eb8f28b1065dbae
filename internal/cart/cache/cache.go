package cache

import (
	"context"
	"errors"

	"github.com/fjod/electromart/internal/cart/domain"
)

// SessionStore holds one cart per browsing session.
type SessionStore interface {
	Get(ctx context.Context, sessionID string) (*domain.Cart, error)
	// Update loads the session cart (a fresh one on miss), applies fn and saves the result
	// atomically with respect to concurrent updates of the same session.
	Update(ctx context.Context, sessionID string, fn func(*domain.Cart) error) (*domain.Cart, error)
	Delete(ctx context.Context, sessionID string) error
	// DeleteIf removes the session cart only when match reports true for its current
	// contents, checked and deleted atomically. A missing cart reports false.
	DeleteIf(ctx context.Context, sessionID string, match func(*domain.Cart) bool) (bool, error)
}

var (
	ErrCacheMiss = errors.New("cache miss")
	ErrConflict  = errors.New("cart modified concurrently")
)
