package server

import (
	"encoding/base64"
	"fmt"
	"html/template"
	"log/slog"
	"strings"

	"github.com/skip2/go-qrcode"

	"github.com/brojonat/checkout/service/checkout"
)

// Receipt is the view model for the confirmation page.
type Receipt struct {
	TransactionID   string
	CustomerName    string
	Amount          string // formatted with the currency's precision
	Currency        string // upper-case for display
	Status          string
	Paid            bool
	PaymentIntentID string
	CreatedAt       string
	URL             string       // permalink to this page
	QRCode          template.URL // data: URL of a PNG encoding URL; empty if generation failed
}

// newReceipt builds the confirmation view for txn. baseURL is the externally
// reachable origin used to build the permalink encoded in the QR code.
func newReceipt(baseURL string, txn *checkout.Transaction, logger *slog.Logger) Receipt {
	url := receiptURL(baseURL, txn.ID.String())

	qr, err := generateQRCode(url)
	if err != nil {
		// QR code is optional; the page still renders without it.
		logger.Warn("failed to generate receipt QR code", "transaction_id", txn.ID.String(), "error", err)
	}

	return Receipt{
		TransactionID:   txn.ID.String(),
		CustomerName:    txn.CustomerName,
		Amount:          formatAmount(txn.Amount, txn.Currency),
		Currency:        strings.ToUpper(txn.Currency),
		Status:          string(txn.Status),
		Paid:            txn.Status == checkout.StatusSucceeded,
		PaymentIntentID: txn.PaymentIntentID,
		CreatedAt:       txn.CreatedAt.Format("2006-01-02 15:04 MST"),
		URL:             url,
		QRCode:          qr,
	}
}

func receiptURL(baseURL, transactionID string) string {
	return fmt.Sprintf("%s/transaction/confirmation/%s", baseURL, transactionID)
}

// generateQRCode encodes data as a 256x256 PNG QR code and returns it as a
// data: URL ready for an <img> src attribute.
func generateQRCode(data string) (template.URL, error) {
	qr, err := qrcode.New(data, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("failed to create QR code: %w", err)
	}

	png, err := qr.PNG(256)
	if err != nil {
		return "", fmt.Errorf("failed to encode QR code as PNG: %w", err)
	}

	// html/template rejects data: URLs unless they are typed as trusted.
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png)), nil
}
