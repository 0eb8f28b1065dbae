package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/electromart/internal/cart/cache"
	"github.com/fjod/electromart/internal/cart/domain"
	productdomain "github.com/fjod/electromart/internal/product/domain"
	"github.com/fjod/electromart/pkg/logger"
	"golang.org/x/sync/singleflight"
)

var ErrEmptySession = errors.New("session id is required")

// ProductLookup resolves the catalog entry a cart line is snapshotted from.
type ProductLookup interface {
	GetProduct(ctx context.Context, id string) (*productdomain.Product, error)
}

type CartService struct {
	store    cache.SessionStore
	products ProductLookup
	sfg      singleflight.Group // coalesces concurrent reads of one session
}

func NewCartService(store cache.SessionStore, products ProductLookup) *CartService {
	return &CartService{
		store:    store,
		products: products,
	}
}

func (s *CartService) GetCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	if sessionID == "" {
		return nil, ErrEmptySession
	}
	v, err, _ := s.sfg.Do(sessionID, func() (interface{}, error) {
		cart, err := s.store.Get(ctx, sessionID)
		if errors.Is(err, cache.ErrCacheMiss) {
			return domain.NewCart(sessionID), nil
		}
		if err != nil {
			return nil, err
		}
		return cart, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Cart), nil
}

// AddItem snapshots the product's name, effective price and image into the cart.
func (s *CartService) AddItem(ctx context.Context, sessionID, productID string) (*domain.Cart, error) {
	if sessionID == "" {
		return nil, ErrEmptySession
	}
	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("lookup product %s: %w", productID, err)
	}

	item := domain.CartItem{
		ProductID: product.ID,
		Name:      product.Name,
		UnitPrice: product.EffectivePrice(),
		Image:     product.ImageURL,
	}
	cart, err := s.store.Update(ctx, sessionID, func(c *domain.Cart) error {
		c.Add(item)
		return nil
	})
	if err != nil {
		logger.FromContext(ctx).Error("cart add item failed", "session_id", sessionID, "product_id", productID, "error", err)
		return nil, err
	}
	return cart, nil
}

func (s *CartService) RemoveItem(ctx context.Context, sessionID, productID string) (*domain.Cart, error) {
	if sessionID == "" {
		return nil, ErrEmptySession
	}
	cart, err := s.store.Update(ctx, sessionID, func(c *domain.Cart) error {
		c.Remove(productID)
		return nil
	})
	if err != nil {
		logger.FromContext(ctx).Error("cart remove item failed", "session_id", sessionID, "product_id", productID, "error", err)
		return nil, err
	}
	return cart, nil
}

func (s *CartService) SetQuantity(ctx context.Context, sessionID, productID string, quantity int) (*domain.Cart, error) {
	if sessionID == "" {
		return nil, ErrEmptySession
	}
	cart, err := s.store.Update(ctx, sessionID, func(c *domain.Cart) error {
		c.SetQuantity(productID, quantity)
		return nil
	})
	if err != nil {
		logger.FromContext(ctx).Error("cart update quantity failed", "session_id", sessionID, "product_id", productID, "error", err)
		return nil, err
	}
	return cart, nil
}

func (s *CartService) ClearCart(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrEmptySession
	}
	if err := s.store.Delete(ctx, sessionID); err != nil {
		logger.FromContext(ctx).Error("cart clear failed", "session_id", sessionID, "error", err)
		return err
	}
	return nil
}

// ClearCartIfUnchangedSince clears the session cart unless it was modified after since. It
// reports whether a cart was removed.
func (s *CartService) ClearCartIfUnchangedSince(ctx context.Context, sessionID string, since time.Time) (bool, error) {
	if sessionID == "" {
		return false, ErrEmptySession
	}
	cleared, err := s.store.DeleteIf(ctx, sessionID, func(c *domain.Cart) bool {
		return !c.UpdatedAt.After(since)
	})
	if err != nil {
		logger.FromContext(ctx).Error("cart conditional clear failed", "session_id", sessionID, "error", err)
		return false, err
	}
	return cleared, nil
}
