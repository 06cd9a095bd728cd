package repository

import (
	"context"

	"tripflow/internal/domain"
)

// DriverRepository defines the persistence operations for drivers.
type DriverRepository interface {
	// GetByID retrieves a driver by ID.
	GetByID(ctx context.Context, id string) (*domain.Driver, error)

	// SetStripeAccountID records the driver's connected payment account.
	SetStripeAccountID(ctx context.Context, id, accountID string) error
}

// FleetRepository defines the persistence operations for fleets.
type FleetRepository interface {
	// GetByID retrieves a fleet by ID.
	GetByID(ctx context.Context, id string) (*domain.Fleet, error)

	// SetStripeAccountID records the fleet's connected payment account.
	SetStripeAccountID(ctx context.Context, id, accountID string) error
}
