package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/fjod/electromart/internal/product/domain"
	"github.com/fjod/electromart/internal/product/repository"
)

// Filter narrows a catalog listing. Empty fields match everything.
type Filter struct {
	Category string
	Query    string
}

type ProductService struct {
	repo repository.RepoInterface
}

func NewProductService(repo repository.RepoInterface) *ProductService {
	return &ProductService{repo: repo}
}

func (s *ProductService) ListProducts(ctx context.Context, f Filter) ([]*domain.Product, error) {
	products, err := s.repo.GetAllProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}

	category := strings.TrimSpace(f.Category)
	query := strings.ToLower(strings.TrimSpace(f.Query))
	if category == "" && query == "" {
		return products, nil
	}

	filtered := make([]*domain.Product, 0, len(products))
	for _, p := range products {
		if category != "" && !strings.EqualFold(p.Category, category) {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(p.Name), query) {
			continue
		}
		filtered = append(filtered, p)
	}
	return filtered, nil
}

// GetProduct satisfies the cart's ProductLookup.
func (s *ProductService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return s.repo.GetProduct(ctx, id)
}
