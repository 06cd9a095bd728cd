package repository

import (
	"context"
	"time"

	"tripflow/internal/domain"
)

// PaymentRepository defines the persistence operations for payments.
type PaymentRepository interface {
	// Create persists a new payment. Returns ErrDuplicate if the trip
	// already has an active payment.
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByID retrieves a payment by ID.
	GetByID(ctx context.Context, id string) (*domain.Payment, error)

	// GetByTripID retrieves the active payment for a trip.
	// Returns nil if none exists.
	GetByTripID(ctx context.Context, tripID string) (*domain.Payment, error)

	// MarkPaid transitions a pending payment to paid and sets paid_at.
	// Returns ErrConflict if the payment is no longer pending.
	MarkPaid(ctx context.Context, id string, at time.Time) error

	// MarkRefunded transitions a paid payment to refunded.
	MarkRefunded(ctx context.Context, id string, at time.Time) error

	// UpsertSupplierInvoice inserts or replaces the supplier invoice payment
	// keyed by trip_id, leaving it pending with the invoice reference set.
	UpsertSupplierInvoice(ctx context.Context, tripID string, amount float64, invoiceID string) error

	// MarkPaidByInvoice marks the payment carrying the given invoice
	// reference as paid. Returns ErrConflict if it is not pending.
	MarkPaidByInvoice(ctx context.Context, tripID, invoiceID string, at time.Time) error

	// MarkFailedByInvoice marks the payment carrying the given invoice
	// reference as failed. Returns ErrConflict if it is not pending.
	MarkFailedByInvoice(ctx context.Context, tripID, invoiceID string) error
}
