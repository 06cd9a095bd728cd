package service

import (
	"context"
	"math"
)

// Gateway is the interface to the external payment/transfer provider. It is
// the only seam through which money-moving calls leave the system; services
// depend on it so tests can count and fail individual calls.
type Gateway interface {
	// CreateCustomer creates a billing customer and returns its id.
	CreateCustomer(ctx context.Context, email, name string, metadata map[string]string) (string, error)

	// CreateInvoice creates a draft invoice for the customer and returns its id.
	CreateInvoice(ctx context.Context, customerID string, daysUntilDue int, metadata map[string]string) (string, error)

	// AddInvoiceLine attaches a line item to a draft invoice.
	AddInvoiceLine(ctx context.Context, customerID, invoiceID string, amountMinor int64, currency, description string) error

	// FinalizeAndSendInvoice finalizes and sends an invoice, returning the
	// hosted invoice URL.
	FinalizeAndSendInvoice(ctx context.Context, invoiceID string) (string, error)

	// CreateTransfer moves funds to a connected account and returns the
	// transfer id.
	CreateTransfer(ctx context.Context, amountMinor int64, currency, destination string, metadata map[string]string) (string, error)

	// CreateConnectedAccount creates a transfer-capable connected account.
	CreateConnectedAccount(ctx context.Context, country, email, businessType string, metadata map[string]string) (string, error)

	// CreateAccountOnboardingLink returns an onboarding URL for a connected
	// account.
	CreateAccountOnboardingLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error)
}

// minorUnits converts a decimal amount to the gateway's integer minor units.
func minorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
