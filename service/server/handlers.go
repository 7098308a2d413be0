package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/brojonat/checkout/service/checkout"
	"github.com/brojonat/checkout/service/gateway"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const maxRequestBodySize = 1 << 20 // 1MB

type createPaymentIntentRequest struct {
	CustomerName  string           `json:"customerName"`
	CustomerEmail string           `json:"customerEmail"`
	Amount        *decimal.Decimal `json:"amount"`
	ProductID     *int64           `json:"productId"`
}

type createPaymentIntentResponse struct {
	TransactionID string `json:"transactionId"`
	ClientSecret  string `json:"clientSecret"`
}

type verifyPaymentRequest struct {
	TransactionID   string `json:"transactionId"`
	PaymentIntentID string `json:"paymentIntentId"`
}

type verifyPaymentResponse struct {
	TransactionID string `json:"transactionId"`
	Status        string `json:"status"`
}

type transactionResponse struct {
	TransactionID   string    `json:"transactionId"`
	CustomerName    string    `json:"customerName"`
	CustomerEmail   string    `json:"customerEmail"`
	Amount          string    `json:"amount"`
	Currency        string    `json:"currency"`
	PaymentIntentID string    `json:"paymentIntentId"`
	Status          string    `json:"status"`
	ProductID       *int64    `json:"productId,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// handleCreatePaymentIntent returns a handler that opens a payment intent and
// records a pending transaction.
// POST /transaction/create-payment-intent
func handleCreatePaymentIntent(svc *checkout.Service, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		var req createPaymentIntentRequest
		if !decodeJSON(w, r, &req, logger) {
			return
		}

		result, err := svc.BeginCheckout(r.Context(), checkout.CheckoutRequest{
			CustomerName:  req.CustomerName,
			CustomerEmail: req.CustomerEmail,
			Amount:        req.Amount,
			ProductID:     req.ProductID,
		})
		if err != nil {
			writeServiceError(w, err, logger)
			return
		}

		writeJSON(w, createPaymentIntentResponse{
			TransactionID: result.TransactionID.String(),
			ClientSecret:  result.ClientSecret,
		}, http.StatusOK)
	})
}

// handleVerifyPayment returns a handler that reconciles a transaction with
// the processor's view of its payment intent.
// POST /transaction/verify-payment
func handleVerifyPayment(svc *checkout.Service, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		var req verifyPaymentRequest
		if !decodeJSON(w, r, &req, logger) {
			return
		}

		id, err := parseTransactionID(req.TransactionID)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		result, err := svc.VerifyPayment(r.Context(), id, req.PaymentIntentID)
		if err != nil {
			writeServiceError(w, err, logger)
			return
		}

		writeJSON(w, verifyPaymentResponse{
			TransactionID: result.TransactionID.String(),
			Status:        string(result.Status),
		}, http.StatusOK)
	})
}

// handleGetTransaction returns a handler that retrieves a single transaction.
// GET /transaction/{transactionId}
func handleGetTransaction(svc *checkout.Service, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := parseTransactionID(r.PathValue("transactionId"))
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		txn, err := svc.GetTransaction(r.Context(), id)
		if err != nil {
			writeServiceError(w, err, logger)
			return
		}

		writeJSON(w, transactionToResponse(txn), http.StatusOK)
	})
}

func transactionToResponse(t *checkout.Transaction) transactionResponse {
	return transactionResponse{
		TransactionID:   t.ID.String(),
		CustomerName:    t.CustomerName,
		CustomerEmail:   t.CustomerEmail,
		Amount:          formatAmount(t.Amount, t.Currency),
		Currency:        t.Currency,
		PaymentIntentID: t.PaymentIntentID,
		Status:          string(t.Status),
		ProductID:       t.ProductID,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

// formatAmount renders amount with the currency's minor-unit precision.
func formatAmount(amount decimal.Decimal, currency string) string {
	return amount.StringFixed(gateway.MinorUnitExponent(currency))
}

func parseTransactionID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, errors.New("transactionId is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.New("invalid transactionId: must be a UUID")
	}
	return id, nil
}

// decodeJSON decodes the request body into v, writing a 400 and returning
// false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}, logger *slog.Logger) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		logger.Debug("failed to decode request", "path", r.URL.Path, "error", err)
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) || strings.Contains(err.Error(), "http: request body too large") {
			writeError(w, "request body too large: maximum size is 1MB", http.StatusBadRequest)
			return false
		}
		writeError(w, "invalid request body: must be valid JSON", http.StatusBadRequest)
		return false
	}
	return true
}

// writeServiceError maps a checkout error to an HTTP status and JSON body.
func writeServiceError(w http.ResponseWriter, err error, logger *slog.Logger) {
	var (
		mismatch     *checkout.MismatchError
		gwErr        *gateway.GatewayError
		initiation   *checkout.PaymentInitiationError
		verification *checkout.PaymentVerificationError
	)
	switch {
	case errors.Is(err, checkout.ErrValidation):
		logger.Debug("invalid checkout request", "error", err)
		writeError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, checkout.ErrNotFound):
		writeError(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &mismatch):
		writeError(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &gwErr):
		if gwErr.Rejected() {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.Error("payment processor unavailable", "error", err, "timeout", gwErr.Timeout())
		writeError(w, "payment processor unavailable", http.StatusBadGateway)
	case errors.As(err, &initiation), errors.As(err, &verification):
		logger.Error("payment processor call failed", "error", err)
		writeError(w, "payment processor unavailable", http.StatusBadGateway)
	case errors.Is(err, checkout.ErrConflict):
		writeError(w, "transaction was modified concurrently, retry the request", http.StatusConflict)
	default:
		logger.Error("checkout request failed", "error", err)
		writeError(w, "internal server error", http.StatusInternalServerError)
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
