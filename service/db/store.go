package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brojonat/checkout/service/checkout"
	"github.com/brojonat/checkout/service/metrics"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// DBTX is the query surface shared by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store provides database operations for products and transactions.
// It satisfies checkout.Store.
type Store struct {
	db      DBTX
	metrics *metrics.Metrics
}

// NewStore creates a new Store with the given database connection pool.
// If m is nil, no query metrics are recorded.
func NewStore(pool *pgxpool.Pool, m *metrics.Metrics) *Store {
	return &Store{db: pool, metrics: m}
}

// DemoProduct is inserted by SeedDemoProduct into an empty catalog.
var DemoProduct = checkout.Product{
	ID:          1,
	Name:        "RubberDuck",
	Description: "Meet the Rubber Duck, the ultimate coding companion. Silent but remarkably insightful, it turns your programming monologues into brilliant fixes. Adopt a duck and say goodbye to bugs!",
	Price:       decimal.RequireFromString("10.00"),
}

const transactionColumns = `id, customer_name, customer_email, amount::text, currency,
	payment_intent_id, status, product_id, created_at, updated_at, version`

// AddTransaction inserts txn, assigning a new id if it has none.
func (s *Store) AddTransaction(ctx context.Context, txn *checkout.Transaction) (err error) {
	defer s.observe("insert", "transactions", time.Now(), &err)

	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	if txn.Version == 0 {
		txn.Version = 1
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO transactions (
			id, customer_name, customer_email, amount, currency,
			payment_intent_id, status, product_id, created_at, updated_at, version
		) VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9, $10, $11)`,
		txn.ID,
		txn.CustomerName,
		txn.CustomerEmail,
		txn.Amount.String(),
		txn.Currency,
		txn.PaymentIntentID,
		string(txn.Status),
		txn.ProductID,
		txn.CreatedAt,
		txn.UpdatedAt,
		txn.Version,
	)
	if err != nil {
		return fmt.Errorf("insert transaction %s: %w", txn.ID, err)
	}
	return nil
}

// GetTransaction retrieves a transaction by id.
// Returns checkout.ErrNotFound if it does not exist.
func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (txn *checkout.Transaction, err error) {
	defer s.observe("select", "transactions", time.Now(), &err)

	row := s.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
	txn, err = scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, checkout.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select transaction %s: %w", id, err)
	}
	return txn, nil
}

// GetTransactionByPaymentIntent retrieves the transaction that owns a payment intent.
func (s *Store) GetTransactionByPaymentIntent(ctx context.Context, paymentIntentID string) (txn *checkout.Transaction, err error) {
	defer s.observe("select", "transactions", time.Now(), &err)

	row := s.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE payment_intent_id = $1`, paymentIntentID)
	txn, err = scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, checkout.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select transaction for intent %s: %w", paymentIntentID, err)
	}
	return txn, nil
}

// SaveTransaction persists the mutable fields of txn. The write only applies
// if the stored version still equals txn.Version; otherwise another writer got
// there first and checkout.ErrConflict is returned. On success txn.Version is
// incremented.
func (s *Store) SaveTransaction(ctx context.Context, txn *checkout.Transaction) (err error) {
	defer s.observe("update", "transactions", time.Now(), &err)

	tag, err := s.db.Exec(ctx, `
		UPDATE transactions
		SET status = $2, updated_at = $3, version = version + 1
		WHERE id = $1 AND version = $4`,
		txn.ID,
		string(txn.Status),
		txn.UpdatedAt,
		txn.Version,
	)
	if err != nil {
		return fmt.Errorf("update transaction %s: %w", txn.ID, err)
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM transactions WHERE id = $1)`, txn.ID).Scan(&exists); err != nil {
			return fmt.Errorf("check transaction %s: %w", txn.ID, err)
		}
		if !exists {
			return checkout.ErrNotFound
		}
		return checkout.ErrConflict
	}

	txn.Version++
	return nil
}

// ListTransactionsParams contains pagination and filter parameters.
type ListTransactionsParams struct {
	Status string // empty for all
	Limit  int32
	Offset int32
}

// ListTransactions returns transactions, newest first.
func (s *Store) ListTransactions(ctx context.Context, params ListTransactionsParams) (txns []*checkout.Transaction, err error) {
	defer s.observe("select", "transactions", time.Now(), &err)

	if params.Limit <= 0 {
		params.Limit = 100
	}

	rows, err := s.db.Query(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		params.Status, params.Limit, params.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txns = make([]*checkout.Transaction, 0)
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}

// GetProduct retrieves a product by id.
// Returns checkout.ErrNotFound if it does not exist.
func (s *Store) GetProduct(ctx context.Context, id int64) (product *checkout.Product, err error) {
	defer s.observe("select", "products", time.Now(), &err)

	row := s.db.QueryRow(ctx, `SELECT id, name, description, price::text FROM products WHERE id = $1`, id)
	product, err = scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, checkout.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select product %d: %w", id, err)
	}
	return product, nil
}

// ListProducts returns the whole catalog ordered by id.
func (s *Store) ListProducts(ctx context.Context) (products []*checkout.Product, err error) {
	defer s.observe("select", "products", time.Now(), &err)

	rows, err := s.db.Query(ctx, `SELECT id, name, description, price::text FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products = make([]*checkout.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// SeedDemoProduct inserts DemoProduct when the products table is empty.
// It reports whether a row was inserted.
func (s *Store) SeedDemoProduct(ctx context.Context) (seeded bool, err error) {
	defer s.observe("insert", "products", time.Now(), &err)

	tag, err := s.db.Exec(ctx, `
		INSERT INTO products (id, name, description, price)
		SELECT $1, $2, $3, $4::numeric
		WHERE NOT EXISTS (SELECT 1 FROM products)`,
		DemoProduct.ID,
		DemoProduct.Name,
		DemoProduct.Description,
		DemoProduct.Price.String(),
	)
	if err != nil {
		return false, fmt.Errorf("seed products: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) observe(operation, table string, start time.Time, errp *error) {
	if s.metrics == nil {
		return
	}
	err := *errp
	if errors.Is(err, checkout.ErrNotFound) {
		err = nil
	}
	s.metrics.RecordDBQuery(operation, table, time.Since(start).Seconds(), err)
}

func scanTransaction(row pgx.Row) (*checkout.Transaction, error) {
	var (
		id              uuid.UUID
		name, email     string
		amount          string
		currency        string
		paymentIntentID string
		status          string
		productID       *int64
		createdAt       time.Time
		updatedAt       time.Time
		version         int32
	)
	if err := row.Scan(&id, &name, &email, &amount, &currency, &paymentIntentID, &status, &productID, &createdAt, &updatedAt, &version); err != nil {
		return nil, err
	}
	amt, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	return checkout.RestoreTransaction(
		id, name, email, amt, currency, paymentIntentID,
		checkout.Status(status), productID, createdAt.UTC(), updatedAt.UTC(), version,
	), nil
}

func scanProduct(row pgx.Row) (*checkout.Product, error) {
	var (
		p     checkout.Product
		price string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &price); err != nil {
		return nil, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse price %q: %w", price, err)
	}
	p.Price = d
	return &p, nil
}
