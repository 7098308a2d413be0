package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/brojonat/checkout/service/checkout"
	"github.com/brojonat/checkout/service/config"
	"github.com/brojonat/checkout/service/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ProductSeeder inserts the demonstration product when the catalogue is empty.
type ProductSeeder interface {
	SeedDemoProduct(ctx context.Context) (bool, error)
}

// Server represents the HTTP server for the checkout service.
type Server struct {
	addr     string
	cfg      *config.Config
	service  *checkout.Service
	seeder   ProductSeeder
	renderer *TemplateRenderer
	metrics  *metrics.Metrics
	logger   *slog.Logger
	server   *http.Server
}

// New creates a new HTTP server with the given dependencies.
// The seeder is optional - if nil, no demonstration product is inserted on start.
// The metrics is optional - if nil, the metrics endpoint won't be available.
func New(addr string, cfg *config.Config, svc *checkout.Service, seeder ProductSeeder, m *metrics.Metrics, logger *slog.Logger) *Server {
	return &Server{
		addr:    addr,
		cfg:     cfg,
		service: svc,
		seeder:  seeder,
		metrics: m,
		logger:  logger,
	}
}

// WithTemplates adds template rendering support to the server using embedded files.
// Without templates the product and confirmation pages are not served.
func (s *Server) WithTemplates() error {
	renderer, err := NewTemplateRenderer(s.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize templates: %w", err)
	}
	s.renderer = renderer
	s.logger.Info("HTML templates loaded from embedded files")
	return nil
}

// Handler builds the routed handler. Start serves it; tests call it directly.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	route := func(pattern, name string, h http.Handler) {
		mux.Handle(pattern, metrics.HTTPMetricsMiddleware(s.metrics, name)(h))
	}

	// Transaction API
	route("POST /transaction/create-payment-intent", "/transaction/create-payment-intent",
		handleCreatePaymentIntent(s.service, s.logger))
	route("POST /transaction/verify-payment", "/transaction/verify-payment",
		handleVerifyPayment(s.service, s.logger))
	route("GET /transaction/{transactionId}", "/transaction/{transactionId}",
		handleGetTransaction(s.service, s.logger))

	// HTML pages (if template renderer is configured)
	if s.renderer != nil {
		route("GET /product/details/{id}", "/product/details/{id}",
			handleProductDetails(s.service, s.renderer, s.cfg.Stripe.PublicKey))
		route("GET /transaction/confirmation/{transactionId}", "/transaction/confirmation/{transactionId}",
			handleConfirmation(s.service, s.renderer, s.cfg.PublicBaseURL))
		mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/product/details/1", http.StatusFound)
		})
		s.logger.Info("HTML page endpoints enabled")
	}

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus metrics endpoint (if metrics collector is configured)
	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.Handler())
		s.logger.Info("Prometheus metrics endpoint enabled")
	}

	return corsMiddleware(mux)
}

// Start seeds the catalogue and starts the HTTP server.
func (s *Server) Start() error {
	if err := s.ensureDemoProduct(context.Background()); err != nil {
		return fmt.Errorf("failed to seed demo product: %w", err)
	}

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// ensureDemoProduct inserts the demonstration product so the landing page has
// something to sell on a fresh database.
func (s *Server) ensureDemoProduct(ctx context.Context) error {
	if s.seeder == nil {
		return nil
	}
	inserted, err := s.seeder.SeedDemoProduct(ctx)
	if err != nil {
		return err
	}
	if inserted {
		s.logger.Info("seeded demo product")
	} else {
		s.logger.Debug("products already present, skipping seed")
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// corsMiddleware adds CORS headers to all responses and handles OPTIONS preflight requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
