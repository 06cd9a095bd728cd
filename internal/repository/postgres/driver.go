package postgres

import (
	"context"
	"database/sql"
	"errors"

	"tripflow/internal/domain"
	"tripflow/internal/repository"
)

// DriverRepository is a PostgreSQL implementation of repository.DriverRepository.
type DriverRepository struct {
	q Querier
}

// NewDriverRepository creates a new PostgreSQL driver repository.
func NewDriverRepository(db *sql.DB) *DriverRepository {
	return &DriverRepository{q: db}
}

// GetByID retrieves a driver by ID.
func (r *DriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	query := `SELECT id, name, email, phone, status, stripe_account_id FROM drivers WHERE id = $1`

	var driver domain.Driver
	var stripeAccountID sql.NullString

	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&driver.ID,
		&driver.Name,
		&driver.Email,
		&driver.Phone,
		&driver.Status,
		&stripeAccountID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	driver.StripeAccountID = stripeAccountID.String

	return &driver, nil
}

// SetStripeAccountID records the driver's connected payment account.
func (r *DriverRepository) SetStripeAccountID(ctx context.Context, id, accountID string) error {
	query := `UPDATE drivers SET stripe_account_id = $1 WHERE id = $2`

	result, err := r.q.ExecContext(ctx, query, accountID, id)
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

// FleetRepository is a PostgreSQL implementation of repository.FleetRepository.
type FleetRepository struct {
	q Querier
}

// NewFleetRepository creates a new PostgreSQL fleet repository.
func NewFleetRepository(db *sql.DB) *FleetRepository {
	return &FleetRepository{q: db}
}

// GetByID retrieves a fleet by ID.
func (r *FleetRepository) GetByID(ctx context.Context, id string) (*domain.Fleet, error) {
	query := `SELECT id, company_name, contact_email, status, stripe_account_id FROM fleets WHERE id = $1`

	var fleet domain.Fleet
	var stripeAccountID sql.NullString

	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&fleet.ID,
		&fleet.CompanyName,
		&fleet.ContactEmail,
		&fleet.Status,
		&stripeAccountID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	fleet.StripeAccountID = stripeAccountID.String

	return &fleet, nil
}

// SetStripeAccountID records the fleet's connected payment account.
func (r *FleetRepository) SetStripeAccountID(ctx context.Context, id, accountID string) error {
	query := `UPDATE fleets SET stripe_account_id = $1 WHERE id = $2`

	result, err := r.q.ExecContext(ctx, query, accountID, id)
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

// Ensure implementations satisfy the repository interfaces.
var (
	_ repository.DriverRepository = (*DriverRepository)(nil)
	_ repository.FleetRepository  = (*FleetRepository)(nil)
)
