package gateway

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/brojonat/checkout/service/metrics"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
)

// IntentAPI is the subset of the Stripe payment intent API we call.
// It lets tests substitute the processor without network access.
type IntentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// Client creates and fetches payment intents. It holds no local state and
// never retries; retry policy belongs to the caller.
type Client struct {
	api     IntentAPI
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewClient creates a gateway client. A zero timeout disables the per-call
// deadline. If metrics is nil, no metrics are recorded.
func NewClient(api IntentAPI, timeout time.Duration, m *metrics.Metrics, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		api:     api,
		timeout: timeout,
		metrics: m,
		logger:  logger,
	}
}

// CreateIntent opens a payment intent for amount in currency.
func (c *Client) CreateIntent(ctx context.Context, amount decimal.Decimal, currency string) (*RemoteIntent, error) {
	const op = "create_intent"

	currency = strings.ToLower(currency)
	units, err := ToMinorUnits(amount, currency)
	if err != nil {
		return nil, &GatewayError{Op: op, Err: err}
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(units),
		Currency: stripe.String(currency),
	}
	params.Context = ctx

	c.logger.DebugContext(ctx, "creating payment intent",
		"amount_minor", units,
		"currency", currency,
	)

	start := time.Now()
	pi, err := c.api.New(params)
	c.record(op, err, start)
	if err != nil {
		gerr := toGatewayError(ctx, op, err)
		c.logger.ErrorContext(ctx, "payment intent creation failed",
			"amount_minor", units,
			"currency", currency,
			"http_status", gerr.HTTPStatus,
			"code", gerr.Code,
			"error", err,
		)
		return nil, gerr
	}

	return intentFromStripe(pi), nil
}

// GetIntent fetches the current state of a payment intent.
func (c *Client) GetIntent(ctx context.Context, id string) (*RemoteIntent, error) {
	const op = "get_intent"

	if id == "" {
		return nil, &GatewayError{Op: op, Message: "payment intent id is required"}
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	start := time.Now()
	pi, err := c.api.Get(id, params)
	c.record(op, err, start)
	if err != nil {
		gerr := toGatewayError(ctx, op, err)
		c.logger.ErrorContext(ctx, "payment intent lookup failed",
			"payment_intent_id", id,
			"http_status", gerr.HTTPStatus,
			"code", gerr.Code,
			"error", err,
		)
		return nil, gerr
	}

	c.logger.DebugContext(ctx, "fetched payment intent",
		"payment_intent_id", pi.ID,
		"status", string(pi.Status),
	)

	return intentFromStripe(pi), nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Client) record(op string, err error, start time.Time) {
	if c.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.metrics.RecordGatewayCall(op, status, time.Since(start).Seconds())
}

func intentFromStripe(pi *stripe.PaymentIntent) *RemoteIntent {
	return &RemoteIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
	}
}

func toGatewayError(ctx context.Context, op string, err error) *GatewayError {
	gerr := &GatewayError{Op: op, Err: err}

	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		gerr.HTTPStatus = stripeErr.HTTPStatusCode
		gerr.Code = string(stripeErr.Code)
		gerr.Message = stripeErr.Msg
	}

	// The stripe backend reports deadline expiry as a plain transport error.
	if ctx.Err() != nil && !errors.Is(err, ctx.Err()) {
		gerr.Err = errors.Join(ctx.Err(), err)
	}
	return gerr
}
