package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	d "github.com/fjod/electromart/internal/checkout/domain"
	"github.com/fjod/electromart/pkg/logger"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	ErrIdempotencyKeyNotFound  = errors.New("idempotency key not found")
	ErrCheckoutNotFound        = errors.New("checkout session not found")
	ErrDuplicateIdempotencyKey = errors.New("idempotency key already used")
	ErrStatusConflict          = errors.New("checkout session is not in the expected status")
)

type Credentials struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	// MigrationsDirPath overrides the embedded migrations when set.
	MigrationsDirPath string
}

// CheckoutSession is one row of the checkout ledger.
type CheckoutSession struct {
	ID             string
	SessionID      string
	UserID         string
	IdempotencyKey string
	Status         d.CheckoutStatus
	CartSnapshot   []byte
	Subtotal       decimal.Decimal
	TaxAmount      decimal.Decimal
	TotalAmount    decimal.Decimal
	Currency       string
	GatewayOrderID string
	PaymentID      string
	OrderID        string
	FailureReason  string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type OutboxEvent struct {
	ID          int64
	AggregateId string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

type RepoInterface interface {
	Close() error
	RunMigrations(*Credentials) error
	GetCheckoutSessionByIdempotencyKey(ctx context.Context, key string) (*CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error)
	CreateCheckoutSession(ctx context.Context, session *CheckoutSession) error
	SetGatewayOrder(ctx context.Context, id, gatewayOrderID string) error
	SetPayment(ctx context.Context, id, paymentID string) error
	FailCheckoutSession(ctx context.Context, id, reason string) error
	CompleteCheckoutSession(ctx context.Context, id, orderID string, event *OutboxEvent) error
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
	GetStuckSessions(ctx context.Context, olderThan time.Duration) ([]*CheckoutSession, error)
}

type Repository struct {
	db *sql.DB
}

func NewRepository(cred *Credentials) (*Repository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	logger.Default.Info("connected to postgres", "host", cred.Host, "db", cred.DBName)
	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	var m *migrate.Migrate
	if cred != nil && cred.MigrationsDirPath != "" {
		m, err = migrate.NewWithDatabaseInstance(
			fmt.Sprintf("file://%s", cred.MigrationsDirPath),
			"postgres",
			driver,
		)
	} else {
		src, srcErr := iofs.New(migrationsFS, "migrations")
		if srcErr != nil {
			return fmt.Errorf("could not open embedded migrations: %w", srcErr)
		}
		m, err = migrate.NewWithInstance("iofs", src, "postgres", driver)
	}
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

const sessionColumns = `id, session_id, user_id, idempotency_key, status, cart_snapshot,
	subtotal, tax_amount, total_amount, currency,
	COALESCE(gateway_order_id, ''), COALESCE(payment_id, ''), COALESCE(order_id, ''),
	COALESCE(failure_reason, ''), created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*CheckoutSession, error) {
	var s CheckoutSession
	err := row.Scan(&s.ID, &s.SessionID, &s.UserID, &s.IdempotencyKey, &s.Status, &s.CartSnapshot,
		&s.Subtotal, &s.TaxAmount, &s.TotalAmount, &s.Currency,
		&s.GatewayOrderID, &s.PaymentID, &s.OrderID,
		&s.FailureReason, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repository) GetCheckoutSessionByIdempotencyKey(ctx context.Context, key string) (*CheckoutSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM checkout_sessions WHERE idempotency_key = $1`
	s, err := scanSession(r.db.QueryRowContext(ctx, query, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrIdempotencyKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query checkout session by idempotency key: %w", err)
	}
	return s, nil
}

func (r *Repository) GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM checkout_sessions WHERE id = $1`
	s, err := scanSession(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCheckoutNotFound
	}
	if err != nil {
		var pqErr *pq.Error
		// malformed uuid
		if errors.As(err, &pqErr) && pqErr.Code == "22P02" {
			return nil, ErrCheckoutNotFound
		}
		return nil, fmt.Errorf("failed to query checkout session: %w", err)
	}
	return s, nil
}

// CreateCheckoutSession inserts a new session. The stored status is always INITIATED.
func (r *Repository) CreateCheckoutSession(ctx context.Context, session *CheckoutSession) error {
	query := `INSERT INTO checkout_sessions
		(id, session_id, user_id, idempotency_key, status, cart_snapshot,
		 subtotal, tax_amount, total_amount, currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING created_at, updated_at`

	session.Status = d.CheckoutStatusInitiated
	err := r.db.QueryRowContext(ctx, query,
		session.ID,
		session.SessionID,
		session.UserID,
		session.IdempotencyKey,
		session.Status,
		session.CartSnapshot,
		session.Subtotal,
		session.TaxAmount,
		session.TotalAmount,
		session.Currency,
	).Scan(&session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("failed to create checkout session: %w", err)
	}
	return nil
}

func (r *Repository) SetGatewayOrder(ctx context.Context, id, gatewayOrderID string) error {
	query := `UPDATE checkout_sessions SET status = $3, gateway_order_id = $4, updated_at = NOW()
		WHERE id = $1 AND status = $2`
	res, err := r.db.ExecContext(ctx, query, id,
		d.CheckoutStatusInitiated, d.CheckoutStatusPaymentPending, gatewayOrderID)
	if err != nil {
		return fmt.Errorf("failed to set gateway order: %w", err)
	}
	return r.checkAffected(ctx, res, id)
}

func (r *Repository) SetPayment(ctx context.Context, id, paymentID string) error {
	query := `UPDATE checkout_sessions SET status = $3, payment_id = $4, updated_at = NOW()
		WHERE id = $1 AND status = $2`
	res, err := r.db.ExecContext(ctx, query, id,
		d.CheckoutStatusPaymentPending, d.CheckoutStatusPaymentVerified, paymentID)
	if err != nil {
		return fmt.Errorf("failed to set payment: %w", err)
	}
	return r.checkAffected(ctx, res, id)
}

// FailCheckoutSession marks a session FAILED. Sessions whose payment was already verified
// cannot fail.
func (r *Repository) FailCheckoutSession(ctx context.Context, id, reason string) error {
	query := `UPDATE checkout_sessions SET status = $4, failure_reason = $5, updated_at = NOW()
		WHERE id = $1 AND status IN ($2, $3)`
	res, err := r.db.ExecContext(ctx, query, id,
		d.CheckoutStatusInitiated, d.CheckoutStatusPaymentPending, d.CheckoutStatusFailed, reason)
	if err != nil {
		return fmt.Errorf("failed to fail checkout session: %w", err)
	}
	return r.checkAffected(ctx, res, id)
}

// CompleteCheckoutSession records the order id, marks the session COMPLETED and queues
// event in the outbox, all in one transaction.
func (r *Repository) CompleteCheckoutSession(ctx context.Context, id, orderID string, event *OutboxEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE checkout_sessions SET status = $3, order_id = $4, updated_at = NOW()
		 WHERE id = $1 AND status = $2`,
		id, d.CheckoutStatusPaymentVerified, d.CheckoutStatusCompleted, orderID)
	if err != nil {
		return fmt.Errorf("failed to complete checkout session: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	} else if n == 0 {
		if _, getErr := r.GetCheckoutSession(ctx, id); getErr != nil {
			return getErr
		}
		return ErrStatusConflict
	}

	if event != nil {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO outbox_events (aggregate_id, event_type, payload) VALUES ($1, $2, $3)`,
			event.AggregateId, event.EventType, event.Payload)
		if err != nil {
			return fmt.Errorf("failed to insert outbox event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit checkout completion: %w", err)
	}
	return nil
}

func (r *Repository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, aggregate_id, event_type, payload, created_at
		 FROM outbox_events WHERE processed_at IS NULL ORDER BY id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		var e OutboxEvent
		if err := rows.Scan(&e.ID, &e.AggregateId, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

func (r *Repository) MarkEventAsProcessed(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE outbox_events SET processed_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}
	return nil
}

// GetStuckSessions returns sessions whose payment was verified more than olderThan ago but
// never reached COMPLETED.
func (r *Repository) GetStuckSessions(ctx context.Context, olderThan time.Duration) ([]*CheckoutSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM checkout_sessions
		WHERE status = $1 AND updated_at < $2 ORDER BY updated_at LIMIT 100`
	rows, err := r.db.QueryContext(ctx, query,
		d.CheckoutStatusPaymentVerified, time.Now().Add(-olderThan))
	if err != nil {
		return nil, fmt.Errorf("failed to query stuck sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*CheckoutSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stuck session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *Repository) checkAffected(ctx context.Context, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := r.GetCheckoutSession(ctx, id); err != nil {
		return err
	}
	return ErrStatusConflict
}
