package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fjod/electromart/internal/product/domain"
	"github.com/fjod/electromart/internal/product/repository"
	"github.com/fjod/electromart/internal/product/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock repository for testing
type mockRepository struct {
	products []*domain.Product
	err      error
}

func (m *mockRepository) GetAllProducts(context.Context) ([]*domain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.products, nil
}

func (m *mockRepository) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, p := range m.products {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, repository.ErrProductNotFound
}

func (m *mockRepository) Close() error         { return nil }
func (m *mockRepository) RunMigrations() error { return nil }

func catalog() *mockRepository {
	return &mockRepository{
		products: []*domain.Product{
			{ID: "arduino-uno-r3", Name: "Arduino Uno R3", Category: "Microcontrollers", Price: decimal.NewFromInt(500), CreatedAt: time.Now()},
			{ID: "esp32-devkit", Name: "ESP32 DevKit V1", Category: "Microcontrollers", Price: decimal.NewFromInt(450), CreatedAt: time.Now()},
			{ID: "dht22", Name: "DHT22 Temperature Sensor", Category: "Sensors", Price: decimal.NewFromInt(249), CreatedAt: time.Now()},
		},
	}
}

func TestListProducts_NoFilter(t *testing.T) {
	svc := service.NewProductService(catalog())

	products, err := svc.ListProducts(context.Background(), service.Filter{})

	require.NoError(t, err)
	assert.Len(t, products, 3)
}

func TestListProducts_ByCategory(t *testing.T) {
	svc := service.NewProductService(catalog())

	products, err := svc.ListProducts(context.Background(), service.Filter{Category: "sensors"})

	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "dht22", products[0].ID)
}

func TestListProducts_ByQuery(t *testing.T) {
	svc := service.NewProductService(catalog())

	products, err := svc.ListProducts(context.Background(), service.Filter{Query: "esp"})

	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "esp32-devkit", products[0].ID)
}

func TestListProducts_CategoryAndQuery(t *testing.T) {
	svc := service.NewProductService(catalog())

	products, err := svc.ListProducts(context.Background(), service.Filter{Category: "Sensors", Query: "arduino"})

	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestListProducts_RepositoryError(t *testing.T) {
	svc := service.NewProductService(&mockRepository{err: errors.New("disk I/O error")})

	products, err := svc.ListProducts(context.Background(), service.Filter{})

	assert.Nil(t, products)
	assert.ErrorContains(t, err, "failed to fetch products")
}

func TestGetProduct_NotFound(t *testing.T) {
	svc := service.NewProductService(catalog())

	_, err := svc.GetProduct(context.Background(), "missing")

	assert.ErrorIs(t, err, repository.ErrProductNotFound)
}
