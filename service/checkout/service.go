package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/brojonat/checkout/service/gateway"
	"github.com/brojonat/checkout/service/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Gateway is the subset of the payment processor client the service needs.
type Gateway interface {
	CreateIntent(ctx context.Context, amount decimal.Decimal, currency string) (*gateway.RemoteIntent, error)
	GetIntent(ctx context.Context, id string) (*gateway.RemoteIntent, error)
}

// Store persists products and transactions. Lookups return an error matching
// ErrNotFound when the record does not exist.
type Store interface {
	AddTransaction(ctx context.Context, txn *Transaction) error
	GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error)
	SaveTransaction(ctx context.Context, txn *Transaction) error
	GetProduct(ctx context.Context, id int64) (*Product, error)
}

// Notifier is told about transaction lifecycle events. Failures are logged
// and never fail the operation that triggered them.
type Notifier interface {
	TransactionCreated(ctx context.Context, txn *Transaction) error
	TransactionStatusChanged(ctx context.Context, txn *Transaction, previous Status) error
}

// Config holds the dependencies of a Service.
type Config struct {
	Gateway  Gateway
	Store    Store
	Notifier Notifier // optional
	Currency string
	Metrics  *metrics.Metrics // optional
	Logger   *slog.Logger
	Now      func() time.Time // defaults to time.Now
}

// Service runs the checkout lifecycle: it opens payment intents, records
// pending transactions and reconciles them against the processor on request.
type Service struct {
	gateway  Gateway
	store    Store
	notifier Notifier
	currency string
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a Service from cfg.
func NewService(cfg Config) (*Service, error) {
	if cfg.Gateway == nil {
		return nil, fmt.Errorf("gateway is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Currency == "" {
		return nil, fmt.Errorf("currency is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		gateway:  cfg.Gateway,
		store:    cfg.Store,
		notifier: cfg.Notifier,
		currency: cfg.Currency,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		now:      cfg.Now,
	}, nil
}

// Currency returns the processor currency code used for new intents.
func (s *Service) Currency() string {
	return s.currency
}

// CheckoutRequest is the input to BeginCheckout. Exactly one of Amount and
// ProductID must be set.
type CheckoutRequest struct {
	CustomerName  string
	CustomerEmail string
	Amount        *decimal.Decimal
	ProductID     *int64
}

// CheckoutResult is returned by BeginCheckout.
type CheckoutResult struct {
	TransactionID uuid.UUID
	ClientSecret  string
}

// VerifyResult is returned by VerifyPayment.
type VerifyResult struct {
	TransactionID uuid.UUID
	Status        Status
}

// BeginCheckout validates the request, opens a payment intent with the
// processor and records a Pending transaction referencing it. The returned
// client secret lets the browser confirm the card payment with the processor
// directly.
func (s *Service) BeginCheckout(ctx context.Context, req CheckoutRequest) (result *CheckoutResult, err error) {
	defer func() { s.recordOperation("begin_checkout", err) }()

	name, err := validateCustomerName(req.CustomerName)
	if err != nil {
		return nil, err
	}
	email, err := validateCustomerEmail(req.CustomerEmail)
	if err != nil {
		return nil, err
	}

	amount, productID, err := s.resolveAmount(ctx, req)
	if err != nil {
		return nil, err
	}

	intent, err := s.gateway.CreateIntent(ctx, amount, s.currency)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to create payment intent",
			"amount", amount.String(),
			"currency", s.currency,
			"error", err,
		)
		return nil, &PaymentInitiationError{Err: err}
	}

	txn, err := NewTransaction(NewTransactionParams{
		CustomerName:    name,
		CustomerEmail:   email,
		Amount:          amount,
		Currency:        s.currency,
		PaymentIntentID: intent.ID,
		ProductID:       productID,
	}, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.store.AddTransaction(ctx, txn); err != nil {
		// No compensating cancel is issued; the remote intent is left orphaned.
		s.logger.WarnContext(ctx, "failed to persist transaction, payment intent orphaned",
			"payment_intent_id", intent.ID,
			"error", err,
		)
		return nil, fmt.Errorf("failed to save transaction: %w", err)
	}

	s.logger.InfoContext(ctx, "checkout started",
		"transaction_id", txn.ID.String(),
		"payment_intent_id", intent.ID,
		"amount", amount.String(),
		"currency", s.currency,
	)

	if s.notifier != nil {
		if err := s.notifier.TransactionCreated(ctx, txn); err != nil {
			s.logger.WarnContext(ctx, "failed to publish transaction created event",
				"transaction_id", txn.ID.String(),
				"error", err,
			)
		}
	}

	return &CheckoutResult{
		TransactionID: txn.ID,
		ClientSecret:  intent.ClientSecret,
	}, nil
}

// resolveAmount returns the amount to charge and, for product checkouts, the
// product id to reference.
func (s *Service) resolveAmount(ctx context.Context, req CheckoutRequest) (decimal.Decimal, *int64, error) {
	switch {
	case req.Amount != nil && req.ProductID != nil:
		return decimal.Zero, nil, validationErrorf("amount", "specify either amount or productId, not both")
	case req.ProductID != nil:
		product, err := s.GetProduct(ctx, *req.ProductID)
		if err != nil {
			return decimal.Zero, nil, err
		}
		if err := validateAmount(product.Price); err != nil {
			return decimal.Zero, nil, validationErrorf("productId", "product %d has no positive price", product.ID)
		}
		id := product.ID
		return product.Price, &id, nil
	case req.Amount != nil:
		if err := validateAmount(*req.Amount); err != nil {
			return decimal.Zero, nil, err
		}
		return *req.Amount, nil, nil
	default:
		return decimal.Zero, nil, validationErrorf("amount", "amount or productId is required")
	}
}

// VerifyPayment fetches the processor's current view of the transaction's
// payment intent and stores the mapped status. A Failed or Canceled outcome
// is still a successful return; callers decide what to do with the status.
func (s *Service) VerifyPayment(ctx context.Context, transactionID uuid.UUID, paymentIntentID string) (result *VerifyResult, err error) {
	defer func() { s.recordOperation("verify_payment", err) }()

	txn, err := s.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	if txn.PaymentIntentID != paymentIntentID {
		s.logger.WarnContext(ctx, "payment intent mismatch",
			"transaction_id", transactionID.String(),
			"supplied_payment_intent_id", paymentIntentID,
		)
		return nil, &MismatchError{
			TransactionID:   transactionID.String(),
			PaymentIntentID: paymentIntentID,
		}
	}

	intent, err := s.gateway.GetIntent(ctx, paymentIntentID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to fetch payment intent",
			"transaction_id", transactionID.String(),
			"payment_intent_id", paymentIntentID,
			"error", err,
		)
		return nil, &PaymentVerificationError{TransactionID: transactionID.String(), Err: err}
	}

	previous := txn.Status
	status := MapIntentStatus(intent.Status)
	changed := txn.apply(status, s.now())

	if err := s.store.SaveTransaction(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to save transaction %s: %w", transactionID, err)
	}

	s.logger.InfoContext(ctx, "payment verified",
		"transaction_id", transactionID.String(),
		"payment_intent_id", paymentIntentID,
		"remote_status", intent.Status,
		"status", string(status),
		"previous_status", string(previous),
	)
	if s.metrics != nil {
		s.metrics.RecordTransactionStatus(string(status))
	}

	if changed && s.notifier != nil {
		if err := s.notifier.TransactionStatusChanged(ctx, txn, previous); err != nil {
			s.logger.WarnContext(ctx, "failed to publish status change event",
				"transaction_id", transactionID.String(),
				"error", err,
			)
		}
	}

	return &VerifyResult{
		TransactionID: txn.ID,
		Status:        status,
	}, nil
}

// GetTransaction returns the transaction with the given id.
func (s *Service) GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	txn, err := s.store.GetTransaction(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, &NotFoundError{Kind: "transaction", ID: id.String()}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction %s: %w", id, err)
	}
	return txn, nil
}

// GetProduct returns the product with the given id.
func (s *Service) GetProduct(ctx context.Context, id int64) (*Product, error) {
	product, err := s.store.GetProduct(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, &NotFoundError{Kind: "product", ID: strconv.FormatInt(id, 10)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load product %d: %w", id, err)
	}
	return product, nil
}

func (s *Service) recordOperation(operation string, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordCheckoutOperation(operation, Outcome(err))
}

// Outcome classifies an operation error for metrics and logs.
func Outcome(err error) string {
	var (
		mismatch     *MismatchError
		initiation   *PaymentInitiationError
		verification *PaymentVerificationError
	)
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.As(err, &mismatch):
		return "mismatch"
	case errors.As(err, &initiation), errors.As(err, &verification):
		return "gateway"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}
