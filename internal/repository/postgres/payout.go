package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"tripflow/internal/domain"
	"tripflow/internal/repository"
)

const payoutColumns = `
	id, trip_id, driver_id, fleet_id, amount, status, payment_date, method, reference_id, invoice_id, created_at
`

// PayoutRepository is a PostgreSQL implementation of repository.PayoutRepository.
type PayoutRepository struct {
	q Querier
}

// NewPayoutRepository creates a new PostgreSQL payout repository.
func NewPayoutRepository(db *sql.DB) *PayoutRepository {
	return &PayoutRepository{q: db}
}

// NewPayoutRepositoryWithTx creates a payout repository using a transaction.
func NewPayoutRepositoryWithTx(tx *sql.Tx) *PayoutRepository {
	return &PayoutRepository{q: tx}
}

// Create persists a new payout. The payouts table carries a unique index
// on trip_id, so re-running completion for the same trip surfaces as
// repository.ErrDuplicate instead of a second payout row. The index is
// deliberately not on (trip_id, driver_id, fleet_id): one of those columns
// is always NULL and PostgreSQL treats NULLs as distinct, which would let
// duplicates through.
func (r *PayoutRepository) Create(ctx context.Context, payout *domain.Payout) error {
	query := `
		INSERT INTO payouts (` + payoutColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.q.ExecContext(ctx, query,
		payout.ID,
		payout.TripID,
		nullString(payout.DriverID),
		nullString(payout.FleetID),
		payout.Amount,
		payout.Status,
		nullTime(payout.PaymentDate),
		nullString(payout.Method),
		nullString(payout.ReferenceID),
		nullString(payout.InvoiceID),
		payout.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return err
	}

	return nil
}

// GetByID retrieves a payout by ID.
func (r *PayoutRepository) GetByID(ctx context.Context, id string) (*domain.Payout, error) {
	query := `SELECT ` + payoutColumns + ` FROM payouts WHERE id = $1`

	payout, err := scanPayout(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return payout, nil
}

// GetByTripID retrieves the payout for a trip. Returns nil if none exists.
func (r *PayoutRepository) GetByTripID(ctx context.Context, tripID string) (*domain.Payout, error) {
	query := `SELECT ` + payoutColumns + ` FROM payouts WHERE trip_id = $1`

	payout, err := scanPayout(r.q.QueryRowContext(ctx, query, tripID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return payout, nil
}

// GetPendingByTripID retrieves the pending payout for a trip.
// Returns nil if none is pending.
func (r *PayoutRepository) GetPendingByTripID(ctx context.Context, tripID string) (*domain.Payout, error) {
	query := `SELECT ` + payoutColumns + ` FROM payouts WHERE trip_id = $1 AND status = $2`

	payout, err := scanPayout(r.q.QueryRowContext(ctx, query, tripID, domain.PayoutStatusPending))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return payout, nil
}

// MarkPaid transitions a pending payout to paid. The status precondition is
// part of the WHERE clause; zero affected rows means the payout was already
// disbursed and surfaces as repository.ErrConflict.
func (r *PayoutRepository) MarkPaid(ctx context.Context, id string, at time.Time, method, referenceID string) error {
	query := `
		UPDATE payouts
		SET status = $1, payment_date = $2, method = $3, reference_id = $4
		WHERE id = $5 AND status = $6
	`

	result, err := r.q.ExecContext(ctx, query,
		domain.PayoutStatusPaid, at, method, referenceID, id, domain.PayoutStatusPending,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrConflict
	}

	return nil
}

// SetInvoiceID records the supplier invoice tied to a payout.
func (r *PayoutRepository) SetInvoiceID(ctx context.Context, id, invoiceID string) error {
	query := `UPDATE payouts SET invoice_id = $1 WHERE id = $2`

	result, err := r.q.ExecContext(ctx, query, invoiceID, id)
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

// SumPaid aggregates disbursed payout amounts over the period.
func (r *PayoutRepository) SumPaid(ctx context.Context, from, to time.Time) (float64, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM payouts
		WHERE status = $1 AND payment_date >= $2 AND payment_date < $3
	`

	var total float64
	if err := r.q.QueryRowContext(ctx, query, domain.PayoutStatusPaid, from, to).Scan(&total); err != nil {
		return 0, err
	}

	return total, nil
}

func scanPayout(row scanner) (*domain.Payout, error) {
	var payout domain.Payout
	var driverID, fleetID, method, referenceID, invoiceID sql.NullString
	var paymentDate sql.NullTime

	err := row.Scan(
		&payout.ID,
		&payout.TripID,
		&driverID,
		&fleetID,
		&payout.Amount,
		&payout.Status,
		&paymentDate,
		&method,
		&referenceID,
		&invoiceID,
		&payout.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	payout.DriverID = driverID.String
	payout.FleetID = fleetID.String
	payout.Method = method.String
	payout.ReferenceID = referenceID.String
	payout.InvoiceID = invoiceID.String
	if paymentDate.Valid {
		payout.PaymentDate = paymentDate.Time
	}

	return &payout, nil
}

// Ensure PayoutRepository implements repository.PayoutRepository.
var _ repository.PayoutRepository = (*PayoutRepository)(nil)
