package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrInvalidAmount is returned when an amount cannot be represented exactly
// in the currency's minor unit.
var ErrInvalidAmount = errors.New("invalid amount")

// RemoteIntent is the processor's view of a payment intent.
type RemoteIntent struct {
	ID           string
	ClientSecret string // only populated on create
	Status       string // processor status string, e.g. "succeeded"
	Amount       int64  // minor units
	Currency     string
}

// GatewayError is returned for every failed processor call.
type GatewayError struct {
	Op         string // "create_intent" or "get_intent"
	HTTPStatus int    // 0 when no response was received
	Code       string // processor error code, if any
	Message    string
	Err        error
}

func (e *GatewayError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.HTTPStatus != 0 {
		return fmt.Sprintf("gateway %s failed (status %d): %s", e.Op, e.HTTPStatus, msg)
	}
	return fmt.Sprintf("gateway %s failed: %s", e.Op, msg)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the call was cut off by its deadline.
func (e *GatewayError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// Rejected reports whether the processor (or local amount conversion) refused
// the request itself, as opposed to an outage, auth or network failure.
func (e *GatewayError) Rejected() bool {
	if errors.Is(e.Err, ErrInvalidAmount) {
		return true
	}
	switch e.HTTPStatus {
	case http.StatusBadRequest, http.StatusPaymentRequired, http.StatusNotFound:
		return true
	}
	return false
}
