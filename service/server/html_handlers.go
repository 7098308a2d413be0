package server

import (
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/brojonat/checkout/service/checkout"
	"github.com/google/uuid"
)

//go:embed templates/*.html
var templatesFS embed.FS

// TemplateRenderer holds parsed HTML templates
type TemplateRenderer struct {
	templates *template.Template
	logger    *slog.Logger
}

// NewTemplateRenderer creates a new template renderer from embedded files
func NewTemplateRenderer(logger *slog.Logger) (*TemplateRenderer, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	return &TemplateRenderer{
		templates: tmpl,
		logger:    logger,
	}, nil
}

// Render renders a template with the given data
func (tr *TemplateRenderer) Render(w http.ResponseWriter, name string, data interface{}) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return tr.templates.ExecuteTemplate(w, name, data)
}

// renderError renders the error page with the given status.
func (tr *TemplateRenderer) renderError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tr.templates.ExecuteTemplate(w, "error.html", map[string]interface{}{
		"Status":  status,
		"Title":   http.StatusText(status),
		"Message": message,
	}); err != nil {
		tr.logger.Error("failed to render error template", "error", err)
	}
}

type productPage struct {
	Product         *checkout.Product
	Price           string
	Currency        string
	StripePublicKey string
}

// handleProductDetails serves the product page with the card payment form.
// GET /product/details/{id}
func handleProductDetails(svc *checkout.Service, renderer *TemplateRenderer, stripePublicKey string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			renderer.renderError(w, http.StatusNotFound, "Product not found.")
			return
		}

		product, err := svc.GetProduct(r.Context(), id)
		if errors.Is(err, checkout.ErrNotFound) {
			renderer.renderError(w, http.StatusNotFound, "Product not found.")
			return
		}
		if err != nil {
			renderer.logger.Error("failed to load product", "product_id", id, "error", err)
			renderer.renderError(w, http.StatusInternalServerError, "Something went wrong. Please try again.")
			return
		}

		data := productPage{
			Product:         product,
			Price:           formatAmount(product.Price, svc.Currency()),
			Currency:        svc.Currency(),
			StripePublicKey: stripePublicKey,
		}
		if err := renderer.Render(w, "product.html", data); err != nil {
			renderer.logger.Error("failed to render template", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
	})
}

// handleConfirmation serves the confirmation page for a transaction,
// including a QR code linking back to it.
// GET /transaction/confirmation/{transactionId}
func handleConfirmation(svc *checkout.Service, renderer *TemplateRenderer, baseURL string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.PathValue("transactionId"))
		if err != nil {
			renderer.renderError(w, http.StatusNotFound, "Transaction not found.")
			return
		}

		txn, err := svc.GetTransaction(r.Context(), id)
		if errors.Is(err, checkout.ErrNotFound) {
			renderer.renderError(w, http.StatusNotFound, "Transaction not found.")
			return
		}
		if err != nil {
			renderer.logger.Error("failed to load transaction", "transaction_id", id.String(), "error", err)
			renderer.renderError(w, http.StatusInternalServerError, "Something went wrong. Please try again.")
			return
		}

		if err := renderer.Render(w, "confirmation.html", newReceipt(baseURL, txn, renderer.logger)); err != nil {
			renderer.logger.Error("failed to render template", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
	})
}
