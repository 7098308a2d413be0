package checkout

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapIntentStatus(t *testing.T) {
	tests := map[string]Status{
		"succeeded":               StatusSucceeded,
		"requires_payment_method": StatusFailed,
		"canceled":                StatusCanceled,
		"processing":              StatusPending,
		"requires_action":         StatusPending,
		"requires_confirmation":   StatusPending,
		"requires_capture":        StatusPending,
		"bogus":                   StatusPending,
		"SUCCEEDED":               StatusPending,
		"":                        StatusPending,
	}
	for remote, want := range tests {
		assert.Equal(t, want, MapIntentStatus(remote), "remote status %q", remote)
	}
}

func TestStatus_ValidAndTerminal(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusSucceeded, StatusFailed, StatusCanceled} {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, Status("Refunded").Valid())
	assert.False(t, Status("pending").Valid())

	assert.True(t, StatusSucceeded.Terminal())
	assert.True(t, StatusCanceled.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusFailed.Terminal(), "a failed card can be retried on the same intent")
}

func validParams() NewTransactionParams {
	return NewTransactionParams{
		CustomerName:    "  Ada Lovelace ",
		CustomerEmail:   "ada@example.com",
		Amount:          decimal.RequireFromString("10.00"),
		Currency:        "CAD",
		PaymentIntentID: "pi_123",
	}
}

func TestNewTransaction(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.FixedZone("EST", -5*3600))

	txn, err := NewTransaction(validParams(), now)
	require.NoError(t, err)

	assert.Equal(t, "Ada Lovelace", txn.CustomerName, "name is trimmed")
	assert.Equal(t, "cad", txn.Currency, "currency is lower-cased")
	assert.Equal(t, StatusPending, txn.Status)
	assert.Equal(t, "pi_123", txn.PaymentIntentID)
	assert.Equal(t, time.UTC, txn.CreatedAt.Location())
	assert.Equal(t, txn.CreatedAt, txn.UpdatedAt)
	assert.Zero(t, txn.Version)
}

func TestNewTransaction_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*NewTransactionParams)
		field  string
	}{
		{"empty name", func(p *NewTransactionParams) { p.CustomerName = "" }, "customerName"},
		{"long name", func(p *NewTransactionParams) { p.CustomerName = strings.Repeat("a", 201) }, "customerName"},
		{"bad email", func(p *NewTransactionParams) { p.CustomerEmail = "ada@" }, "customerEmail"},
		{"zero amount", func(p *NewTransactionParams) { p.Amount = decimal.Zero }, "amount"},
		{"no currency", func(p *NewTransactionParams) { p.Currency = "" }, "currency"},
		{"no intent", func(p *NewTransactionParams) { p.PaymentIntentID = "" }, "paymentIntentId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := validParams()
			tt.modify(&params)

			_, err := NewTransaction(params, time.Now())
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestTransaction_Apply(t *testing.T) {
	created := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	txn, err := NewTransaction(validParams(), created)
	require.NoError(t, err)

	later := created.Add(time.Minute)
	assert.True(t, txn.apply(StatusSucceeded, later))
	assert.Equal(t, StatusSucceeded, txn.Status)
	assert.Equal(t, later, txn.UpdatedAt)
	assert.Equal(t, created, txn.CreatedAt)

	assert.False(t, txn.apply(StatusSucceeded, later.Add(time.Minute)))
}

func TestTransaction_String(t *testing.T) {
	txn, err := NewTransaction(validParams(), time.Now())
	require.NoError(t, err)
	assert.Contains(t, txn.String(), "10.00 cad, Pending")
}
