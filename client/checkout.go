package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// CheckoutRequest starts a checkout. Set exactly one of Amount and ProductID.
type CheckoutRequest struct {
	CustomerName  string           `json:"customerName"`
	CustomerEmail string           `json:"customerEmail"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	ProductID     *int64           `json:"productId,omitempty"`
}

// PaymentIntent is the server's answer to a checkout request. The client
// secret is handed to Stripe.js to confirm the card payment.
type PaymentIntent struct {
	TransactionID string `json:"transactionId"`
	ClientSecret  string `json:"clientSecret"`
}

// Verification is the reconciled status of a transaction.
type Verification struct {
	TransactionID string `json:"transactionId"`
	Status        string `json:"status"` // Pending, Succeeded, Failed, Canceled
}

// Transaction is a checkout attempt as reported by the server.
type Transaction struct {
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

// APIError is returned when the server answers with a non-success status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("request failed (status %d): %s", e.StatusCode, e.Message)
}

// Client is the HTTP client for the checkout service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new checkout service client.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// CreatePaymentIntent opens a payment intent and a pending transaction.
func (c *Client) CreatePaymentIntent(ctx context.Context, req CheckoutRequest) (*PaymentIntent, error) {
	var out PaymentIntent
	if err := c.postJSON(ctx, "/transaction/create-payment-intent", req, &out); err != nil {
		return nil, err
	}
	c.logger.Debug("payment intent created", "transaction_id", out.TransactionID)
	return &out, nil
}

// VerifyPayment asks the server to reconcile a transaction with the processor.
// A Failed status is a successful call; inspect Verification.Status.
func (c *Client) VerifyPayment(ctx context.Context, transactionID, paymentIntentID string) (*Verification, error) {
	reqBody := map[string]string{
		"transactionId":   transactionID,
		"paymentIntentId": paymentIntentID,
	}
	var out Verification
	if err := c.postJSON(ctx, "/transaction/verify-payment", reqBody, &out); err != nil {
		return nil, err
	}
	c.logger.Debug("payment verified", "transaction_id", out.TransactionID, "status", out.Status)
	return &out, nil
}

// GetTransaction retrieves a single transaction.
func (c *Client) GetTransaction(ctx context.Context, transactionID string) (*Transaction, error) {
	u := fmt.Sprintf("%s/transaction/%s", c.baseURL, url.PathEscape(transactionID))
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	var txn Transaction
	if err := json.NewDecoder(resp.Body).Decode(&txn); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &txn, nil
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.parseErrorResponse(resp)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.parseErrorResponse(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// parseErrorResponse attempts to parse an error response from the server.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	var errResp struct {
		Error string `json:"error"`
	}

	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		return &APIError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
}
