package checkout

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const maxCustomerNameLength = 200

// Status is the local view of a payment intent's lifecycle.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusSucceeded Status = "Succeeded"
	StatusFailed    Status = "Failed"
	StatusCanceled  Status = "Canceled"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSucceeded, StatusFailed, StatusCanceled:
		return true
	}
	return false
}

// Terminal reports whether no further processor transitions are expected.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusCanceled
}

// MapIntentStatus converts a processor payment intent status to a local Status.
//
// Every status other than succeeded, requires_payment_method and canceled maps
// to Pending. That includes requires_action and processing, so a transaction
// waiting on 3DS authentication reads as Pending here.
func MapIntentStatus(remote string) Status {
	switch remote {
	case "succeeded":
		return StatusSucceeded
	case "requires_payment_method":
		return StatusFailed
	case "canceled":
		return StatusCanceled
	default:
		return StatusPending
	}
}

// Product is a purchasable item.
type Product struct {
	ID          int64
	Name        string
	Description string
	Price       decimal.Decimal
}

// Transaction is one checkout attempt. Only Status, UpdatedAt and Version
// change after creation.
type Transaction struct {
	ID              uuid.UUID
	CustomerName    string
	CustomerEmail   string
	Amount          decimal.Decimal
	Currency        string
	PaymentIntentID string
	Status          Status
	ProductID       *int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Version         int32
}

// NewTransactionParams holds the fields required to open a transaction.
type NewTransactionParams struct {
	CustomerName    string
	CustomerEmail   string
	Amount          decimal.Decimal
	Currency        string
	PaymentIntentID string
	ProductID       *int64
}

// NewTransaction validates params and returns a Pending transaction.
// The ID is left unset; the store assigns it on add.
func NewTransaction(params NewTransactionParams, now time.Time) (*Transaction, error) {
	name, err := validateCustomerName(params.CustomerName)
	if err != nil {
		return nil, err
	}
	email, err := validateCustomerEmail(params.CustomerEmail)
	if err != nil {
		return nil, err
	}
	if err := validateAmount(params.Amount); err != nil {
		return nil, err
	}
	if params.Currency == "" {
		return nil, validationErrorf("currency", "currency is required")
	}
	if params.PaymentIntentID == "" {
		return nil, validationErrorf("paymentIntentId", "payment intent id is required")
	}

	now = now.UTC()
	return &Transaction{
		CustomerName:    name,
		CustomerEmail:   email,
		Amount:          params.Amount,
		Currency:        strings.ToLower(params.Currency),
		PaymentIntentID: params.PaymentIntentID,
		Status:          StatusPending,
		ProductID:       params.ProductID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// RestoreTransaction rebuilds a transaction from persisted data without
// validation. Only the store should call it.
func RestoreTransaction(
	id uuid.UUID,
	customerName, customerEmail string,
	amount decimal.Decimal,
	currency, paymentIntentID string,
	status Status,
	productID *int64,
	createdAt, updatedAt time.Time,
	version int32,
) *Transaction {
	return &Transaction{
		ID:              id,
		CustomerName:    customerName,
		CustomerEmail:   customerEmail,
		Amount:          amount,
		Currency:        currency,
		PaymentIntentID: paymentIntentID,
		Status:          status,
		ProductID:       productID,
		CreatedAt:       createdAt,
		UpdatedAt:       updatedAt,
		Version:         version,
	}
}

// apply records a reconciled status. It returns true when the status changed.
func (t *Transaction) apply(status Status, now time.Time) bool {
	changed := t.Status != status
	t.Status = status
	t.UpdatedAt = now.UTC()
	return changed
}

func validateCustomerName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", validationErrorf("customerName", "customer name is required")
	}
	if len(name) > maxCustomerNameLength {
		return "", validationErrorf("customerName", "customer name too long: maximum length is %d characters", maxCustomerNameLength)
	}
	return name, nil
}

func validateCustomerEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", validationErrorf("customerEmail", "customer email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", validationErrorf("customerEmail", "invalid customer email %q", email)
	}
	return email, nil
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return validationErrorf("amount", "amount must be positive, got %s", amount.String())
	}
	return nil
}

// String implements fmt.Stringer for log output.
func (t *Transaction) String() string {
	return fmt.Sprintf("transaction %s (%s %s, %s)", t.ID, t.Amount.StringFixed(2), t.Currency, t.Status)
}
