package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"tripflow/internal/domain"
	"tripflow/internal/repository"
)

const paymentColumns = `
	id, trip_id, amount, method, status, gateway_payment_id, paid_at, refunded_at, created_at
`

// PaymentRepository is a PostgreSQL implementation of repository.PaymentRepository.
type PaymentRepository struct {
	q Querier
}

// NewPaymentRepository creates a new PostgreSQL payment repository.
func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{q: db}
}

// NewPaymentRepositoryWithTx creates a payment repository using a transaction.
func NewPaymentRepositoryWithTx(tx *sql.Tx) *PaymentRepository {
	return &PaymentRepository{q: tx}
}

// Create persists a new payment. The payments table carries a unique
// constraint on trip_id, so a second active payment for the same trip
// surfaces as repository.ErrDuplicate.
func (r *PaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.q.ExecContext(ctx, query,
		payment.ID,
		payment.TripID,
		payment.Amount,
		payment.Method,
		payment.Status,
		nullString(payment.GatewayPaymentID),
		nullTime(payment.PaidAt),
		nullTime(payment.RefundedAt),
		payment.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return err
	}

	return nil
}

// GetByID retrieves a payment by ID.
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	payment, err := scanPayment(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return payment, nil
}

// GetByTripID retrieves the active payment for a trip.
// Returns nil if none exists.
func (r *PaymentRepository) GetByTripID(ctx context.Context, tripID string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE trip_id = $1`

	payment, err := scanPayment(r.q.QueryRowContext(ctx, query, tripID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return payment, nil
}

// MarkPaid transitions a pending payment to paid.
func (r *PaymentRepository) MarkPaid(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE payments SET status = $1, paid_at = $2 WHERE id = $3 AND status = $4`

	return r.conditional(ctx, query, domain.PaymentStatusPaid, at, id, domain.PaymentStatusPending)
}

// MarkRefunded transitions a paid payment to refunded.
func (r *PaymentRepository) MarkRefunded(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE payments SET status = $1, refunded_at = $2 WHERE id = $3 AND status = $4`

	return r.conditional(ctx, query, domain.PaymentStatusRefunded, at, id, domain.PaymentStatusPaid)
}

// UpsertSupplierInvoice inserts or replaces the supplier invoice payment
// keyed by trip_id. On conflict the existing row is pointed at the latest
// invoice and reset to pending; payments that already settled are left alone.
func (r *PaymentRepository) UpsertSupplierInvoice(ctx context.Context, tripID string, amount float64, invoiceID string) error {
	query := `
		INSERT INTO payments (id, trip_id, amount, method, status, gateway_payment_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (trip_id) DO UPDATE
		SET amount = EXCLUDED.amount, method = EXCLUDED.method,
		    gateway_payment_id = EXCLUDED.gateway_payment_id, status = EXCLUDED.status
		WHERE payments.status IN ($8, $9)
	`

	_, err := r.q.ExecContext(ctx, query,
		newPaymentID(),
		tripID,
		amount,
		domain.PaymentMethodInvoice,
		domain.PaymentStatusPending,
		invoiceID,
		time.Now(),
		domain.PaymentStatusPending,
		domain.PaymentStatusFailed,
	)

	return err
}

// MarkPaidByInvoice marks the payment carrying the invoice reference as paid.
func (r *PaymentRepository) MarkPaidByInvoice(ctx context.Context, tripID, invoiceID string, at time.Time) error {
	query := `
		UPDATE payments SET status = $1, paid_at = $2
		WHERE trip_id = $3 AND gateway_payment_id = $4 AND status = $5
	`

	return r.conditional(ctx, query, domain.PaymentStatusPaid, at, tripID, invoiceID, domain.PaymentStatusPending)
}

// MarkFailedByInvoice marks the payment carrying the invoice reference as failed.
func (r *PaymentRepository) MarkFailedByInvoice(ctx context.Context, tripID, invoiceID string) error {
	query := `
		UPDATE payments SET status = $1
		WHERE trip_id = $2 AND gateway_payment_id = $3 AND status = $4
	`

	return r.conditional(ctx, query, domain.PaymentStatusFailed, tripID, invoiceID, domain.PaymentStatusPending)
}

func (r *PaymentRepository) conditional(ctx context.Context, query string, args ...any) error {
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

func scanPayment(row scanner) (*domain.Payment, error) {
	var payment domain.Payment
	var gatewayPaymentID sql.NullString
	var paidAt, refundedAt sql.NullTime

	err := row.Scan(
		&payment.ID,
		&payment.TripID,
		&payment.Amount,
		&payment.Method,
		&payment.Status,
		&gatewayPaymentID,
		&paidAt,
		&refundedAt,
		&payment.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	payment.GatewayPaymentID = gatewayPaymentID.String
	if paidAt.Valid {
		payment.PaidAt = paidAt.Time
	}
	if refundedAt.Valid {
		payment.RefundedAt = refundedAt.Time
	}

	return &payment, nil
}

func newPaymentID() string {
	return uuid.New().String()
}

// Ensure PaymentRepository implements repository.PaymentRepository.
var _ repository.PaymentRepository = (*PaymentRepository)(nil)
