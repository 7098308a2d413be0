package nats

import (
	"context"
	"time"

	"github.com/brojonat/checkout/service/checkout"
	"github.com/brojonat/checkout/service/metrics"
)

// Notifier adapts a Publisher to checkout.Notifier.
type Notifier struct {
	publisher Publisher
	metrics   *metrics.Metrics
}

var _ checkout.Notifier = (*Notifier)(nil)

// NewNotifier wraps publisher. If m is nil, no metrics are recorded.
func NewNotifier(publisher Publisher, m *metrics.Metrics) *Notifier {
	return &Notifier{publisher: publisher, metrics: m}
}

// TransactionCreated publishes a transaction.created event.
func (n *Notifier) TransactionCreated(ctx context.Context, txn *checkout.Transaction) error {
	return n.publish(ctx, FromTransaction(EventTransactionCreated, txn))
}

// TransactionStatusChanged publishes a transaction.status_changed event.
func (n *Notifier) TransactionStatusChanged(ctx context.Context, txn *checkout.Transaction, previous checkout.Status) error {
	event := FromTransaction(EventTransactionStatusChanged, txn)
	event.PreviousStatus = string(previous)
	return n.publish(ctx, event)
}

func (n *Notifier) publish(ctx context.Context, event *TransactionEvent) error {
	start := time.Now()
	err := n.publisher.PublishTransaction(ctx, event)
	if n.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		n.metrics.RecordNATSPublish(event.Type, status, time.Since(start).Seconds())
	}
	return err
}
