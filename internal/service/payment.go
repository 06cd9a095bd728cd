package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"tripflow/internal/domain"
	"tripflow/internal/redis"
	"tripflow/internal/repository"
	"tripflow/internal/repository/postgres"
)

// PaymentService drives the customer payment flow: DRAFT -> PENDING_PAYMENT
// on initiation, PENDING_PAYMENT -> PUBLISHED on confirmation.
type PaymentService struct {
	db                  *sql.DB
	paymentRepo         repository.PaymentRepository
	tripRepo            repository.TripRepository
	notificationService *NotificationService
	cacheStore          redis.CacheStoreInterface
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(
	db *sql.DB,
	paymentRepo repository.PaymentRepository,
	tripRepo repository.TripRepository,
	notificationService *NotificationService,
	cacheStore redis.CacheStoreInterface,
) *PaymentService {
	return &PaymentService{
		db:                  db,
		paymentRepo:         paymentRepo,
		tripRepo:            tripRepo,
		notificationService: notificationService,
		cacheStore:          cacheStore,
	}
}

// InitiatePaymentRequest contains the parameters for initiating a payment.
type InitiatePaymentRequest struct {
	TripID string
	Method domain.PaymentMethod
}

// InitiatePayment creates a pending payment for a draft trip and moves the
// trip to PENDING_PAYMENT. Both writes commit together or not at all.
func (s *PaymentService) InitiatePayment(ctx context.Context, req InitiatePaymentRequest) (*domain.Payment, error) {
	if req.TripID == "" {
		return nil, ErrInvalidTripID
	}

	trip, err := s.tripRepo.GetByID(ctx, req.TripID)
	if err != nil {
		return nil, err
	}

	if trip.Status != domain.TripStatusDraft {
		return nil, ErrTripNotDraft
	}

	method := req.Method
	if method == "" {
		method = domain.PaymentMethodPix
	}

	payment := &domain.Payment{
		ID:        uuid.New().String(),
		TripID:    trip.ID,
		Amount:    trip.PriceCustomer,
		Method:    method,
		Status:    domain.PaymentStatusPending,
		CreatedAt: time.Now(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	txPaymentRepo := postgres.NewPaymentRepositoryWithTx(tx)
	txTripRepo := postgres.NewTripRepositoryWithTx(tx)

	if err = txPaymentRepo.Create(ctx, payment); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			err = ErrTripNotDraft
		}
		return nil, err
	}

	if err = txTripRepo.MarkPendingPayment(ctx, trip.ID); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			err = ErrTripNotDraft
		}
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return payment, nil
}

// ConfirmPaymentRequest contains the parameters for confirming a payment.
// Either PaymentID or TripID identifies the payment.
type ConfirmPaymentRequest struct {
	PaymentID string
	TripID    string
}

// ConfirmPayment applies the gateway's payment confirmation: the payment
// becomes paid and the trip is published. Confirmation may be delivered more
// than once; a payment that is already paid is a no-op, not an error.
func (s *PaymentService) ConfirmPayment(ctx context.Context, req ConfirmPaymentRequest) (*domain.Payment, error) {
	payment, err := s.resolvePayment(ctx, req)
	if err != nil {
		return nil, err
	}

	// Duplicate delivery converges without touching paid_at again.
	if payment.Status == domain.PaymentStatusPaid {
		return payment, nil
	}

	trip, err := s.tripRepo.GetByID(ctx, payment.TripID)
	if err != nil {
		return nil, err
	}

	if trip.Status != domain.TripStatusPendingPayment {
		return nil, ErrTripNotAwaitingPayment
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	txPaymentRepo := postgres.NewPaymentRepositoryWithTx(tx)
	txTripRepo := postgres.NewTripRepositoryWithTx(tx)

	if err = txPaymentRepo.MarkPaid(ctx, payment.ID, time.Now()); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// A concurrent confirmation won; converge on its result.
			_ = tx.Rollback()
			err = nil
			return s.paymentRepo.GetByID(ctx, payment.ID)
		}
		return nil, err
	}

	if err = txTripRepo.Publish(ctx, trip.ID); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			err = ErrTripNotAwaitingPayment
		}
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	if s.cacheStore != nil {
		_ = s.cacheStore.InvalidatePublishedTrips(ctx)
	}

	if s.notificationService != nil {
		_ = s.notificationService.NotifyTripPublished(ctx, trip)
	}

	return s.paymentRepo.GetByID(ctx, payment.ID)
}

// GetPayment retrieves a payment by ID.
func (s *PaymentService) GetPayment(ctx context.Context, paymentID string) (*domain.Payment, error) {
	if paymentID == "" {
		return nil, ErrInvalidPaymentID
	}

	return s.paymentRepo.GetByID(ctx, paymentID)
}

func (s *PaymentService) resolvePayment(ctx context.Context, req ConfirmPaymentRequest) (*domain.Payment, error) {
	switch {
	case req.PaymentID != "":
		return s.paymentRepo.GetByID(ctx, req.PaymentID)
	case req.TripID != "":
		payment, err := s.paymentRepo.GetByTripID(ctx, req.TripID)
		if err != nil {
			return nil, err
		}
		if payment == nil {
			return nil, repository.ErrNotFound
		}
		return payment, nil
	default:
		return nil, ErrInvalidPaymentID
	}
}
