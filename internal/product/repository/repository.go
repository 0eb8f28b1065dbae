package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/fjod/electromart/internal/product/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var ErrProductNotFound = errors.New("product not found")

type Repository struct {
	db *sql.DB
}

type RepoInterface interface {
	GetAllProducts(ctx context.Context) ([]*domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	Close() error
	RunMigrations() error
}

func NewRepository(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("could not open embedded migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

const selectProducts = `
	SELECT id, name, category, description, price, stock, rating, sales, image_url,
	       offer_active, offer_discount_percentage, offer_end_date, offer_description, created_at
	FROM products`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	p := &domain.Product{}
	var (
		offerActive   bool
		offerDiscount int
		offerEnd      sql.NullTime
		offerDesc     string
	)
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Category,
		&p.Description,
		&p.Price,
		&p.Stock,
		&p.Rating,
		&p.Sales,
		&p.ImageURL,
		&offerActive,
		&offerDiscount,
		&offerEnd,
		&offerDesc,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if offerActive || offerDiscount > 0 {
		p.Offer = &domain.Offer{
			Active:             offerActive,
			DiscountPercentage: offerDiscount,
			Description:        offerDesc,
		}
		if offerEnd.Valid {
			p.Offer.EndDate = offerEnd.Time
		}
	}
	return p, nil
}

func (r *Repository) GetAllProducts(ctx context.Context) ([]*domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, selectProducts+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return products, nil
}

func (r *Repository) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	row := r.db.QueryRowContext(ctx, selectProducts+` WHERE id = ?`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query product: %w", err)
	}
	return p, nil
}

// SetOffer replaces the product's offer; a nil offer clears it.
func (r *Repository) SetOffer(ctx context.Context, id string, offer *domain.Offer) error {
	var (
		active   bool
		discount int
		end      any
		desc     string
	)
	if offer != nil {
		if offer.DiscountPercentage < 1 || offer.DiscountPercentage > 99 {
			return fmt.Errorf("discount percentage must be between 1 and 99, got %d", offer.DiscountPercentage)
		}
		active, discount, desc = offer.Active, offer.DiscountPercentage, offer.Description
		if !offer.EndDate.IsZero() {
			end = offer.EndDate.UTC()
		}
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE products
		   SET offer_active = ?, offer_discount_percentage = ?, offer_end_date = ?, offer_description = ?
		 WHERE id = ?`, active, discount, end, desc, id)
	if err != nil {
		return fmt.Errorf("failed to update offer: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}
