package repository

import (
	"context"
	"time"

	"tripflow/internal/domain"
)

// PayoutRepository defines the persistence operations for payouts.
type PayoutRepository interface {
	// Create persists a new payout. Returns ErrDuplicate when a payout
	// already exists for the trip; callers treat that as success so
	// completion stays idempotent. One payout per trip, whoever the
	// beneficiary is.
	Create(ctx context.Context, payout *domain.Payout) error

	// GetByID retrieves a payout by ID.
	GetByID(ctx context.Context, id string) (*domain.Payout, error)

	// GetByTripID retrieves the payout for a trip.
	// Returns nil if none exists.
	GetByTripID(ctx context.Context, tripID string) (*domain.Payout, error)

	// GetPendingByTripID retrieves the pending payout for a trip.
	// Returns nil if none is pending.
	GetPendingByTripID(ctx context.Context, tripID string) (*domain.Payout, error)

	// MarkPaid transitions a pending payout to paid, recording the payment
	// date, method and external reference. Returns ErrConflict if the
	// payout is no longer pending.
	MarkPaid(ctx context.Context, id string, at time.Time, method, referenceID string) error

	// SetInvoiceID records the supplier invoice tied to a payout.
	SetInvoiceID(ctx context.Context, id, invoiceID string) error

	// SumPaid aggregates disbursed payout amounts over the period.
	SumPaid(ctx context.Context, from, to time.Time) (float64, error)
}
