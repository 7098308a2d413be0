package db

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/brojonat/checkout/service/checkout"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPendingTransaction(t *testing.T, intentID string, productID *int64) *checkout.Transaction {
	t.Helper()
	txn, err := checkout.NewTransaction(checkout.NewTransactionParams{
		CustomerName:    "Ada Lovelace",
		CustomerEmail:   "ada@example.com",
		Amount:          decimal.RequireFromString("10.00"),
		Currency:        "cad",
		PaymentIntentID: intentID,
		ProductID:       productID,
	}, time.Now().Truncate(time.Microsecond))
	require.NoError(t, err)
	return txn
}

func TestSeedDemoProduct(t *testing.T) {
	store := NewTestStore(t)
	ctx := context.Background()

	seeded, err := store.SeedDemoProduct(ctx)
	require.NoError(t, err)
	assert.True(t, seeded)

	// Second call is a no-op
	seeded, err = store.SeedDemoProduct(ctx)
	require.NoError(t, err)
	assert.False(t, seeded)

	products, err := store.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, DemoProduct.Name, products[0].Name)
	assert.True(t, DemoProduct.Price.Equal(products[0].Price))
}

func TestGetProduct_NotFound(t *testing.T) {
	store := NewTestStore(t)

	_, err := store.GetProduct(context.Background(), 999)
	assert.ErrorIs(t, err, checkout.ErrNotFound)
}

func TestAddAndGetTransaction(t *testing.T) {
	store := NewTestStore(t)
	ctx := context.Background()

	_, err := store.SeedDemoProduct(ctx)
	require.NoError(t, err)

	productID := DemoProduct.ID
	txn := newPendingTransaction(t, "pi_123", &productID)
	require.Equal(t, uuid.Nil, txn.ID)

	require.NoError(t, store.AddTransaction(ctx, txn))
	assert.NotEqual(t, uuid.Nil, txn.ID, "store assigns an id")
	assert.Equal(t, int32(1), txn.Version)

	got, err := store.GetTransaction(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, txn.ID, got.ID)
	assert.Equal(t, "Ada Lovelace", got.CustomerName)
	assert.Equal(t, "ada@example.com", got.CustomerEmail)
	assert.True(t, decimal.RequireFromString("10").Equal(got.Amount))
	assert.Equal(t, "cad", got.Currency)
	assert.Equal(t, "pi_123", got.PaymentIntentID)
	assert.Equal(t, checkout.StatusPending, got.Status)
	require.NotNil(t, got.ProductID)
	assert.Equal(t, productID, *got.ProductID)
	assert.WithinDuration(t, txn.CreatedAt, got.CreatedAt, time.Microsecond)

	byIntent, err := store.GetTransactionByPaymentIntent(ctx, "pi_123")
	require.NoError(t, err)
	assert.Equal(t, txn.ID, byIntent.ID)
}

func TestGetTransaction_NotFound(t *testing.T) {
	store := NewTestStore(t)

	_, err := store.GetTransaction(context.Background(), uuid.New())
	assert.ErrorIs(t, err, checkout.ErrNotFound)
}

func TestSaveTransaction(t *testing.T) {
	store := NewTestStore(t)
	ctx := context.Background()

	txn := newPendingTransaction(t, "pi_save", nil)
	require.NoError(t, store.AddTransaction(ctx, txn))

	txn.Status = checkout.StatusSucceeded
	txn.UpdatedAt = time.Now().UTC()
	require.NoError(t, store.SaveTransaction(ctx, txn))
	assert.Equal(t, int32(2), txn.Version)

	got, err := store.GetTransaction(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, checkout.StatusSucceeded, got.Status)
	assert.Equal(t, int32(2), got.Version)
	assert.Nil(t, got.ProductID)
}

func TestSaveTransaction_StaleVersion(t *testing.T) {
	store := NewTestStore(t)
	ctx := context.Background()

	txn := newPendingTransaction(t, "pi_race", nil)
	require.NoError(t, store.AddTransaction(ctx, txn))

	first, err := store.GetTransaction(ctx, txn.ID)
	require.NoError(t, err)
	second, err := store.GetTransaction(ctx, txn.ID)
	require.NoError(t, err)

	first.Status = checkout.StatusSucceeded
	require.NoError(t, store.SaveTransaction(ctx, first))

	second.Status = checkout.StatusFailed
	err = store.SaveTransaction(ctx, second)
	assert.ErrorIs(t, err, checkout.ErrConflict)

	got, err := store.GetTransaction(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, checkout.StatusSucceeded, got.Status, "losing writer must not overwrite")
}

func TestSaveTransaction_ConcurrentWriters(t *testing.T) {
	store := NewTestStore(t)
	ctx := context.Background()

	txn := newPendingTransaction(t, "pi_concurrent", nil)
	require.NoError(t, store.AddTransaction(ctx, txn))

	const writers = 5
	copies := make([]*checkout.Transaction, writers)
	for i := range copies {
		c, err := store.GetTransaction(ctx, txn.ID)
		require.NoError(t, err)
		c.Status = checkout.StatusSucceeded
		copies[i] = c
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for _, c := range copies {
		wg.Add(1)
		go func(c *checkout.Transaction) {
			defer wg.Done()
			err := store.SaveTransaction(ctx, c)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if assert.ErrorIs(t, err, checkout.ErrConflict) {
				conflicts++
			}
		}(c)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, writers-1, conflicts)
}

func TestSaveTransaction_Missing(t *testing.T) {
	store := NewTestStore(t)

	txn := newPendingTransaction(t, "pi_missing", nil)
	txn.ID = uuid.New()
	txn.Version = 1

	err := store.SaveTransaction(context.Background(), txn)
	assert.ErrorIs(t, err, checkout.ErrNotFound)
}

func TestProductDeleteRestricted(t *testing.T) {
	store := NewTestStore(t)
	ctx := context.Background()

	_, err := store.SeedDemoProduct(ctx)
	require.NoError(t, err)

	productID := DemoProduct.ID
	require.NoError(t, store.AddTransaction(ctx, newPendingTransaction(t, "pi_fk", &productID)))

	_, err = store.pool.Exec(ctx, "DELETE FROM products WHERE id = $1", productID)
	assert.Error(t, err, "referenced product must not be deletable")
}

func TestListTransactions(t *testing.T) {
	store := NewTestStore(t)
	ctx := context.Background()

	for i, intent := range []string{"pi_a", "pi_b", "pi_c"} {
		txn := newPendingTransaction(t, intent, nil)
		txn.CreatedAt = txn.CreatedAt.Add(time.Duration(i) * time.Second)
		require.NoError(t, store.AddTransaction(ctx, txn))
		if intent == "pi_b" {
			txn.Status = checkout.StatusFailed
			require.NoError(t, store.SaveTransaction(ctx, txn))
		}
	}

	all, err := store.ListTransactions(ctx, ListTransactionsParams{Limit: 10})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "pi_c", all[0].PaymentIntentID, "newest first")

	failed, err := store.ListTransactions(ctx, ListTransactionsParams{Status: string(checkout.StatusFailed)})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "pi_b", failed[0].PaymentIntentID)

	page, err := store.ListTransactions(ctx, ListTransactionsParams{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "pi_b", page[0].PaymentIntentID)
}
