package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"tripflow/internal/domain"
	"tripflow/internal/repository"
)

const tripColumns = `
	id, customer_name, customer_phone, customer_email, origin_text, destination_text,
	pickup_at, passengers, luggage, notes, price_customer, payout_driver, estimated_costs,
	status, driver_id, fleet_id, supplier_id,
	claimed_at, started_at, completed_at, canceled_at, cancel_reason, created_at
`

// TripRepository is a PostgreSQL implementation of repository.TripRepository.
type TripRepository struct {
	q Querier
}

// NewTripRepository creates a new PostgreSQL trip repository.
func NewTripRepository(db *sql.DB) *TripRepository {
	return &TripRepository{q: db}
}

// NewTripRepositoryWithTx creates a trip repository using a transaction.
func NewTripRepositoryWithTx(tx *sql.Tx) *TripRepository {
	return &TripRepository{q: tx}
}

// Create persists a new trip.
func (r *TripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	query := `
		INSERT INTO trips (` + tripColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
	`

	_, err := r.q.ExecContext(ctx, query,
		trip.ID,
		trip.CustomerName,
		trip.CustomerPhone,
		nullString(trip.CustomerEmail),
		trip.OriginText,
		trip.DestinationText,
		trip.PickupAt,
		trip.Passengers,
		trip.Luggage,
		nullString(trip.Notes),
		trip.PriceCustomer,
		trip.PayoutDriver,
		trip.EstimatedCosts,
		trip.Status,
		nullString(trip.DriverID),
		nullString(trip.FleetID),
		nullString(trip.SupplierID),
		nullTime(trip.ClaimedAt),
		nullTime(trip.StartedAt),
		nullTime(trip.CompletedAt),
		nullTime(trip.CanceledAt),
		nullString(trip.CancelReason),
		trip.CreatedAt,
	)

	return err
}

// GetByID retrieves a trip by ID.
func (r *TripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`

	trip, err := scanTrip(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return trip, nil
}

// ListByStatus retrieves trips in the given status, newest first.
func (r *TripRepository) ListByStatus(ctx context.Context, status domain.TripStatus) ([]*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE status = $1 ORDER BY pickup_at ASC LIMIT 100`

	rows, err := r.q.QueryContext(ctx, query, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []*domain.Trip
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}

	return trips, rows.Err()
}

// MarkPendingPayment transitions DRAFT -> PENDING_PAYMENT.
func (r *TripRepository) MarkPendingPayment(ctx context.Context, id string) error {
	query := `UPDATE trips SET status = $1 WHERE id = $2 AND status = $3`

	return r.conditional(ctx, query, domain.TripStatusPendingPayment, id, domain.TripStatusDraft)
}

// Publish transitions PENDING_PAYMENT -> PUBLISHED.
func (r *TripRepository) Publish(ctx context.Context, id string) error {
	query := `UPDATE trips SET status = $1 WHERE id = $2 AND status = $3`

	return r.conditional(ctx, query, domain.TripStatusPublished, id, domain.TripStatusPendingPayment)
}

// Claim transitions PUBLISHED -> CLAIMED and assigns the driver. The status
// and driver_id preconditions live in the WHERE clause so that two racing
// claims can never both see an affected row.
func (r *TripRepository) Claim(ctx context.Context, id, driverID string, at time.Time) error {
	query := `
		UPDATE trips
		SET status = $1, driver_id = $2, claimed_at = $3
		WHERE id = $4 AND status = $5 AND driver_id IS NULL
	`

	return r.conditional(ctx, query, domain.TripStatusClaimed, driverID, at, id, domain.TripStatusPublished)
}

// Start transitions CLAIMED -> IN_PROGRESS for the assigned driver.
func (r *TripRepository) Start(ctx context.Context, id, driverID string, at time.Time) error {
	query := `
		UPDATE trips
		SET status = $1, started_at = $2
		WHERE id = $3 AND status = $4 AND driver_id = $5
	`

	return r.conditional(ctx, query, domain.TripStatusInProgress, at, id, domain.TripStatusClaimed, driverID)
}

// Complete transitions IN_PROGRESS -> COMPLETED for the assigned driver.
func (r *TripRepository) Complete(ctx context.Context, id, driverID string, at time.Time) error {
	query := `
		UPDATE trips
		SET status = $1, completed_at = $2
		WHERE id = $3 AND status = $4 AND driver_id = $5
	`

	return r.conditional(ctx, query, domain.TripStatusCompleted, at, id, domain.TripStatusInProgress, driverID)
}

// Cancel transitions any non-terminal status -> CANCELED.
func (r *TripRepository) Cancel(ctx context.Context, id, reason string, at time.Time) error {
	query := `
		UPDATE trips
		SET status = $1, cancel_reason = $2, canceled_at = $3
		WHERE id = $4 AND status NOT IN ($5, $6, $7)
	`

	return r.conditional(ctx, query,
		domain.TripStatusCanceled, reason, at, id,
		domain.TripStatusCompleted, domain.TripStatusCanceled, domain.TripStatusRefunded,
	)
}

// MarkRefunded transitions COMPLETED or CANCELED -> REFUNDED.
func (r *TripRepository) MarkRefunded(ctx context.Context, id string) error {
	query := `UPDATE trips SET status = $1 WHERE id = $2 AND status IN ($3, $4)`

	return r.conditional(ctx, query, domain.TripStatusRefunded, id, domain.TripStatusCompleted, domain.TripStatusCanceled)
}

// SumFinancials aggregates financials over completed trips in the period.
func (r *TripRepository) SumFinancials(ctx context.Context, from, to time.Time) (float64, float64, float64, int, error) {
	query := `
		SELECT COALESCE(SUM(price_customer), 0), COALESCE(SUM(payout_driver), 0), COALESCE(SUM(estimated_costs), 0), COUNT(*)
		FROM trips
		WHERE status = $1 AND completed_at >= $2 AND completed_at < $3
	`

	var revenue, payouts, costs float64
	var trips int
	err := r.q.QueryRowContext(ctx, query, domain.TripStatusCompleted, from, to).
		Scan(&revenue, &payouts, &costs, &trips)
	if err != nil {
		return 0, 0, 0, 0, err
	}

	return revenue, payouts, costs, trips, nil
}

// conditional executes a conditional update and maps zero affected rows to
// repository.ErrConflict.
func (r *TripRepository) conditional(ctx context.Context, query string, args ...any) error {
	result, err := r.q.ExecContext(ctx, query, args...)
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

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTrip(row scanner) (*domain.Trip, error) {
	var trip domain.Trip
	var customerEmail, notes, driverID, fleetID, supplierID, cancelReason sql.NullString
	var claimedAt, startedAt, completedAt, canceledAt sql.NullTime

	err := row.Scan(
		&trip.ID,
		&trip.CustomerName,
		&trip.CustomerPhone,
		&customerEmail,
		&trip.OriginText,
		&trip.DestinationText,
		&trip.PickupAt,
		&trip.Passengers,
		&trip.Luggage,
		&notes,
		&trip.PriceCustomer,
		&trip.PayoutDriver,
		&trip.EstimatedCosts,
		&trip.Status,
		&driverID,
		&fleetID,
		&supplierID,
		&claimedAt,
		&startedAt,
		&completedAt,
		&canceledAt,
		&cancelReason,
		&trip.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	trip.CustomerEmail = customerEmail.String
	trip.Notes = notes.String
	trip.DriverID = driverID.String
	trip.FleetID = fleetID.String
	trip.SupplierID = supplierID.String
	trip.CancelReason = cancelReason.String
	if claimedAt.Valid {
		trip.ClaimedAt = claimedAt.Time
	}
	if startedAt.Valid {
		trip.StartedAt = startedAt.Time
	}
	if completedAt.Valid {
		trip.CompletedAt = completedAt.Time
	}
	if canceledAt.Valid {
		trip.CanceledAt = canceledAt.Time
	}

	return &trip, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

// Ensure TripRepository implements repository.TripRepository.
var _ repository.TripRepository = (*TripRepository)(nil)
