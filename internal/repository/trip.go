package repository

import (
	"context"
	"time"

	"tripflow/internal/domain"
)

// TripRepository defines the persistence operations for trips.
//
// The transition methods are single conditional updates: the expected current
// status is part of the WHERE clause, and ErrConflict is returned when the
// update matched no rows. This is what makes each trip's state machine
// linearizable under concurrent callers.
type TripRepository interface {
	// Create persists a new trip.
	Create(ctx context.Context, trip *domain.Trip) error

	// GetByID retrieves a trip by ID.
	GetByID(ctx context.Context, id string) (*domain.Trip, error)

	// ListByStatus retrieves trips in the given status, newest first.
	ListByStatus(ctx context.Context, status domain.TripStatus) ([]*domain.Trip, error)

	// MarkPendingPayment transitions DRAFT -> PENDING_PAYMENT.
	MarkPendingPayment(ctx context.Context, id string) error

	// Publish transitions PENDING_PAYMENT -> PUBLISHED.
	Publish(ctx context.Context, id string) error

	// Claim transitions PUBLISHED -> CLAIMED and assigns the driver. The
	// update additionally requires driver_id to be unset, so two racing
	// claims cannot both succeed.
	Claim(ctx context.Context, id, driverID string, at time.Time) error

	// Start transitions CLAIMED -> IN_PROGRESS for the assigned driver.
	Start(ctx context.Context, id, driverID string, at time.Time) error

	// Complete transitions IN_PROGRESS -> COMPLETED for the assigned driver.
	Complete(ctx context.Context, id, driverID string, at time.Time) error

	// Cancel transitions any non-terminal status -> CANCELED.
	Cancel(ctx context.Context, id, reason string, at time.Time) error

	// MarkRefunded transitions COMPLETED or CANCELED -> REFUNDED.
	MarkRefunded(ctx context.Context, id string) error

	// SumFinancials aggregates customer price, driver payout and estimated
	// costs over completed trips in the period.
	SumFinancials(ctx context.Context, from, to time.Time) (revenue, payouts, costs float64, trips int, err error)
}
