package repository

import (
	"context"

	"tripflow/internal/domain"
)

// SupplierRepository defines the persistence operations for suppliers.
type SupplierRepository interface {
	// GetByID retrieves a supplier by ID.
	GetByID(ctx context.Context, id string) (*domain.Supplier, error)

	// SetStripeCustomerID caches the external customer reference on the
	// supplier so retries reuse it instead of creating a duplicate.
	SetStripeCustomerID(ctx context.Context, id, customerID string) error
}
