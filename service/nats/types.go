package nats

import (
	"time"

	"github.com/brojonat/checkout/service/checkout"
)

// Event types carried in TransactionEvent.Type.
const (
	EventTransactionCreated       = "transaction.created"
	EventTransactionStatusChanged = "transaction.status_changed"
)

// TransactionEvent is published to "checkout.transactions.{transaction_id}".
type TransactionEvent struct {
	Type string `json:"type"`

	TransactionID   string `json:"transaction_id"`
	PaymentIntentID string `json:"payment_intent_id"`
	ProductID       *int64 `json:"product_id,omitempty"`

	Amount   string `json:"amount"`
	Currency string `json:"currency"`

	Status         string `json:"status"`
	PreviousStatus string `json:"previous_status,omitempty"`

	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	PublishedAt time.Time `json:"published_at"`
}

// FromTransaction converts a transaction into an event of the given type.
// Customer name and email are deliberately left out of the event payload.
func FromTransaction(eventType string, txn *checkout.Transaction) *TransactionEvent {
	return &TransactionEvent{
		Type:            eventType,
		TransactionID:   txn.ID.String(),
		PaymentIntentID: txn.PaymentIntentID,
		ProductID:       txn.ProductID,
		Amount:          txn.Amount.String(),
		Currency:        txn.Currency,
		Status:          string(txn.Status),
		CreatedAt:       txn.CreatedAt,
		UpdatedAt:       txn.UpdatedAt,
		PublishedAt:     time.Now().UTC(),
	}
}
