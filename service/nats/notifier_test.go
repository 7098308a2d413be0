package nats

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/brojonat/checkout/service/checkout"
	"github.com/brojonat/checkout/service/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTransaction(status checkout.Status) *checkout.Transaction {
	productID := int64(1)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return checkout.RestoreTransaction(
		uuid.MustParse("6f1c2a1e-8d0b-4c55-9a43-0b8b6d7f2e11"),
		"Ada Lovelace", "ada@example.com",
		decimal.RequireFromString("10.00"), "cad", "pi_123",
		status, &productID, now, now, 1,
	)
}

func TestNotifier_TransactionCreated(t *testing.T) {
	mock := NewMockPublisher()
	n := NewNotifier(mock, metrics.NewMetrics(prometheus.NewRegistry()))

	txn := testTransaction(checkout.StatusPending)
	require.NoError(t, n.TransactionCreated(context.Background(), txn))

	events := mock.GetEventsForTransaction(txn.ID.String())
	require.Len(t, events, 1)
	event := events[0]
	assert.Equal(t, EventTransactionCreated, event.Type)
	assert.Equal(t, "pi_123", event.PaymentIntentID)
	assert.Equal(t, "10", event.Amount)
	assert.Equal(t, "cad", event.Currency)
	assert.Equal(t, "Pending", event.Status)
	assert.Empty(t, event.PreviousStatus)
	require.NotNil(t, event.ProductID)
	assert.Equal(t, int64(1), *event.ProductID)
}

func TestNotifier_TransactionStatusChanged(t *testing.T) {
	mock := NewMockPublisher()
	n := NewNotifier(mock, nil)

	txn := testTransaction(checkout.StatusSucceeded)
	require.NoError(t, n.TransactionStatusChanged(context.Background(), txn, checkout.StatusPending))

	events := mock.GetPublishedEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventTransactionStatusChanged, events[0].Type)
	assert.Equal(t, "Succeeded", events[0].Status)
	assert.Equal(t, "Pending", events[0].PreviousStatus)
}

func TestNotifier_PublishError(t *testing.T) {
	mock := NewMockPublisher()
	mock.SetPublishError(errors.New("nats unavailable"))
	n := NewNotifier(mock, nil)

	err := n.TransactionCreated(context.Background(), testTransaction(checkout.StatusPending))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nats unavailable")
	assert.Empty(t, mock.GetPublishedEvents())
}

func TestTransactionEvent_OmitsCustomerDetails(t *testing.T) {
	event := FromTransaction(EventTransactionCreated, testTransaction(checkout.StatusPending))

	data, err := json.Marshal(event)
	require.NoError(t, err)

	assert.NotContains(t, string(data), "ada@example.com")
	assert.NotContains(t, string(data), "Ada Lovelace")
	assert.Contains(t, string(data), `"transaction_id":"6f1c2a1e-8d0b-4c55-9a43-0b8b6d7f2e11"`)
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "checkout.transactions.abc", Subject("abc"))
}
