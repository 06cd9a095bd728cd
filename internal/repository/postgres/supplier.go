package postgres

import (
	"context"
	"database/sql"
	"errors"

	"tripflow/internal/domain"
	"tripflow/internal/repository"
)

// SupplierRepository is a PostgreSQL implementation of repository.SupplierRepository.
type SupplierRepository struct {
	q Querier
}

// NewSupplierRepository creates a new PostgreSQL supplier repository.
func NewSupplierRepository(db *sql.DB) *SupplierRepository {
	return &SupplierRepository{q: db}
}

// GetByID retrieves a supplier by ID.
func (r *SupplierRepository) GetByID(ctx context.Context, id string) (*domain.Supplier, error) {
	query := `SELECT id, code, name, email, stripe_customer_id FROM suppliers WHERE id = $1`

	var supplier domain.Supplier
	var stripeCustomerID sql.NullString

	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&supplier.ID,
		&supplier.Code,
		&supplier.Name,
		&supplier.Email,
		&stripeCustomerID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	supplier.StripeCustomerID = stripeCustomerID.String

	return &supplier, nil
}

// SetStripeCustomerID caches the external customer reference on the supplier.
func (r *SupplierRepository) SetStripeCustomerID(ctx context.Context, id, customerID string) error {
	query := `UPDATE suppliers SET stripe_customer_id = $1 WHERE id = $2`

	result, err := r.q.ExecContext(ctx, query, customerID, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Ensure SupplierRepository implements repository.SupplierRepository.
var _ repository.SupplierRepository = (*SupplierRepository)(nil)
