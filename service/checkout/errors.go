package checkout

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation matches any *ValidationError via errors.Is.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned by stores when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned by stores when a save loses an optimistic
	// concurrency check against another writer.
	ErrConflict = errors.New("transaction was modified concurrently")
)

// ValidationError describes malformed checkout input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func validationErrorf(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports an unknown product or transaction.
type NotFoundError struct {
	Kind string // "product" or "transaction"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// MismatchError is returned when a verification names a payment intent that
// does not belong to the transaction.
type MismatchError struct {
	TransactionID   string
	PaymentIntentID string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("payment intent %s does not belong to transaction %s", e.PaymentIntentID, e.TransactionID)
}

// PaymentInitiationError wraps a gateway failure while creating an intent.
type PaymentInitiationError struct {
	Err error
}

func (e *PaymentInitiationError) Error() string {
	return fmt.Sprintf("failed to initiate payment: %v", e.Err)
}

func (e *PaymentInitiationError) Unwrap() error {
	return e.Err
}

// PaymentVerificationError wraps a gateway failure while fetching an intent.
type PaymentVerificationError struct {
	TransactionID string
	Err           error
}

func (e *PaymentVerificationError) Error() string {
	return fmt.Sprintf("failed to verify payment for transaction %s: %v", e.TransactionID, e.Err)
}

func (e *PaymentVerificationError) Unwrap() error {
	return e.Err
}
