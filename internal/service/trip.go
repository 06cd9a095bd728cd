package service

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"tripflow/internal/domain"
	"tripflow/internal/redis"
	"tripflow/internal/repository"
	"tripflow/internal/repository/postgres"
)

// TripService enforces the trip status state machine. Every transition is a
// single conditional update against the store; the service only interprets
// the outcome, it never decides legality from a prior read.
type TripService struct {
	db                  *sql.DB
	tripRepo            repository.TripRepository
	driverRepo          repository.DriverRepository
	paymentRepo         repository.PaymentRepository
	settlementService   *SettlementService
	notificationService *NotificationService
	cacheStore          redis.CacheStoreInterface
}

// NewTripService creates a new TripService.
func NewTripService(
	db *sql.DB,
	tripRepo repository.TripRepository,
	driverRepo repository.DriverRepository,
	paymentRepo repository.PaymentRepository,
	settlementService *SettlementService,
	notificationService *NotificationService,
	cacheStore redis.CacheStoreInterface,
) *TripService {
	return &TripService{
		db:                  db,
		tripRepo:            tripRepo,
		driverRepo:          driverRepo,
		paymentRepo:         paymentRepo,
		settlementService:   settlementService,
		notificationService: notificationService,
		cacheStore:          cacheStore,
	}
}

// CreateTripRequest contains the parameters for creating a trip.
type CreateTripRequest struct {
	CustomerName    string
	CustomerPhone   string
	CustomerEmail   string
	OriginText      string
	DestinationText string
	PickupAt        time.Time
	Passengers      int
	Luggage         int
	Notes           string
	PriceCustomer   float64
	PayoutDriver    float64
	EstimatedCosts  float64
	FleetID         string
	SupplierID      string
}

// CreateTrip creates a new trip in DRAFT state.
func (s *TripService) CreateTrip(ctx context.Context, req CreateTripRequest) (*domain.Trip, error) {
	if req.PriceCustomer <= 0 || req.PayoutDriver <= 0 {
		return nil, ErrInvalidAmount
	}

	trip := &domain.Trip{
		ID:              uuid.New().String(),
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		CustomerEmail:   req.CustomerEmail,
		OriginText:      req.OriginText,
		DestinationText: req.DestinationText,
		PickupAt:        req.PickupAt,
		Passengers:      req.Passengers,
		Luggage:         req.Luggage,
		Notes:           req.Notes,
		PriceCustomer:   req.PriceCustomer,
		PayoutDriver:    req.PayoutDriver,
		EstimatedCosts:  req.EstimatedCosts,
		Status:          domain.TripStatusDraft,
		FleetID:         req.FleetID,
		SupplierID:      req.SupplierID,
		CreatedAt:       time.Now(),
	}

	if err := s.tripRepo.Create(ctx, trip); err != nil {
		return nil, err
	}

	return trip, nil
}

// GetTrip retrieves a trip by ID.
func (s *TripService) GetTrip(ctx context.Context, tripID string) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	return s.tripRepo.GetByID(ctx, tripID)
}

// ListAvailableTrips lists PUBLISHED trips for the driver app, served from
// the cache when fresh.
func (s *TripService) ListAvailableTrips(ctx context.Context) ([]*domain.Trip, error) {
	if s.cacheStore != nil {
		cached, err := s.cacheStore.GetPublishedTrips(ctx)
		if err == nil && cached != nil {
			if trips, ok := cachedToTrips(cached); ok {
				return trips, nil
			}
		}
	}

	trips, err := s.tripRepo.ListByStatus(ctx, domain.TripStatusPublished)
	if err != nil {
		return nil, err
	}

	if s.cacheStore != nil {
		_ = s.cacheStore.SetPublishedTrips(ctx, tripsToCached(trips))
	}

	return trips, nil
}

// ClaimTripRequest contains the parameters for claiming a trip.
type ClaimTripRequest struct {
	TripID   string
	DriverID string
}

// ClaimTrip assigns a published trip to a verified driver. Exactly one of N
// concurrent claims succeeds; the rest see ErrTripAlreadyClaimed.
func (s *TripService) ClaimTrip(ctx context.Context, req ClaimTripRequest) (*domain.Trip, error) {
	if req.TripID == "" {
		return nil, ErrInvalidTripID
	}
	if req.DriverID == "" {
		return nil, ErrInvalidDriverID
	}

	driver, err := s.driverRepo.GetByID(ctx, req.DriverID)
	if err != nil {
		return nil, err
	}
	if !driver.Verified() {
		return nil, ErrDriverNotVerified
	}

	err = s.tripRepo.Claim(ctx, req.TripID, req.DriverID, time.Now())
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, s.classifyClaimConflict(ctx, req.TripID)
		}
		return nil, err
	}

	s.invalidatePublishedCache(ctx)

	trip, err := s.tripRepo.GetByID(ctx, req.TripID)
	if err != nil {
		return nil, err
	}

	if s.notificationService != nil {
		_ = s.notificationService.NotifyTripClaimed(ctx, trip, req.DriverID)
	}

	return trip, nil
}

// classifyClaimConflict distinguishes "lost the race" from "trip not open"
// and "trip does not exist" after a failed conditional claim.
func (s *TripService) classifyClaimConflict(ctx context.Context, tripID string) error {
	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return err
	}

	if trip.DriverID != "" {
		return ErrTripAlreadyClaimed
	}

	return ErrTripNotPublished
}

// StartTripRequest contains the parameters for starting a trip.
type StartTripRequest struct {
	TripID   string
	DriverID string
}

// StartTrip moves a claimed trip to IN_PROGRESS. Only the assigned driver
// may start it.
func (s *TripService) StartTrip(ctx context.Context, req StartTripRequest) (*domain.Trip, error) {
	if req.TripID == "" {
		return nil, ErrInvalidTripID
	}
	if req.DriverID == "" {
		return nil, ErrInvalidDriverID
	}

	err := s.tripRepo.Start(ctx, req.TripID, req.DriverID, time.Now())
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, s.classifyOwnedConflict(ctx, req.TripID, req.DriverID, ErrTripNotClaimed)
		}
		return nil, err
	}

	return s.tripRepo.GetByID(ctx, req.TripID)
}

// CompleteTripResponse contains the result of completing a trip.
type CompleteTripResponse struct {
	Trip       *domain.Trip
	Settlement *SettlementResult
	// Warning carries a non-fatal settlement failure. The trip completion
	// itself has already committed and is never rolled back for it.
	Warning error
}

// CompleteTripRequest contains the parameters for completing a trip.
type CompleteTripRequest struct {
	TripID   string
	DriverID string
}

// CompleteTrip moves a trip from IN_PROGRESS to COMPLETED and runs
// settlement (payout creation and supplier invoicing). A settlement failure
// is reported as a warning on an otherwise successful completion.
func (s *TripService) CompleteTrip(ctx context.Context, req CompleteTripRequest) (*CompleteTripResponse, error) {
	if req.TripID == "" {
		return nil, ErrInvalidTripID
	}
	if req.DriverID == "" {
		return nil, ErrInvalidDriverID
	}

	err := s.tripRepo.Complete(ctx, req.TripID, req.DriverID, time.Now())
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, s.classifyOwnedConflict(ctx, req.TripID, req.DriverID, ErrTripNotInProgress)
		}
		return nil, err
	}

	trip, err := s.tripRepo.GetByID(ctx, req.TripID)
	if err != nil {
		return nil, err
	}

	if s.notificationService != nil {
		_ = s.notificationService.NotifyTripCompleted(ctx, trip)
	}

	response := &CompleteTripResponse{Trip: trip}

	// Settlement runs after the transition committed. The operational fact
	// that the ride happened is never reverted for a billing failure.
	settlement, warn := s.settlementService.Settle(ctx, trip)
	response.Settlement = settlement
	response.Warning = warn
	if warn != nil {
		log.Printf("trip %s completed with settlement warning: %v", trip.ID, warn)
	}

	return response, nil
}

// RetrySettlement re-runs settlement for a completed trip after an earlier
// invoicing failure. Payout creation and customer persistence are idempotent,
// so a retry picks up where the failed attempt stopped.
func (s *TripService) RetrySettlement(ctx context.Context, tripID string) (*SettlementResult, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	if trip.Status != domain.TripStatusCompleted {
		return nil, ErrTripNotCompleted
	}

	settlement, warn := s.settlementService.Settle(ctx, trip)
	if warn != nil {
		return settlement, warn
	}

	return settlement, nil
}

// classifyOwnedConflict distinguishes an ownership violation from a status
// violation after a failed driver-owned transition.
func (s *TripService) classifyOwnedConflict(ctx context.Context, tripID, driverID string, statusErr error) error {
	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return err
	}

	if trip.DriverID != "" && trip.DriverID != driverID {
		return ErrNotTripDriver
	}

	return statusErr
}

// CancelTripRequest contains the parameters for canceling a trip.
type CancelTripRequest struct {
	TripID string
	Reason string
}

// CancelTrip cancels any non-terminal trip.
func (s *TripService) CancelTrip(ctx context.Context, req CancelTripRequest) (*domain.Trip, error) {
	if req.TripID == "" {
		return nil, ErrInvalidTripID
	}
	if req.Reason == "" {
		return nil, ErrInvalidCancelReason
	}

	err := s.tripRepo.Cancel(ctx, req.TripID, req.Reason, time.Now())
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			if _, getErr := s.tripRepo.GetByID(ctx, req.TripID); getErr != nil {
				return nil, getErr
			}
			return nil, ErrTripNotCancelable
		}
		return nil, err
	}

	s.invalidatePublishedCache(ctx)

	return s.tripRepo.GetByID(ctx, req.TripID)
}

// RefundTrip marks a paid payment refunded and the trip REFUNDED. Both
// writes happen in one transaction so the records cannot diverge.
func (s *TripService) RefundTrip(ctx context.Context, tripID string) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	if trip.Status != domain.TripStatusCompleted && trip.Status != domain.TripStatusCanceled {
		return nil, ErrTripNotRefundable
	}

	payment, err := s.paymentRepo.GetByTripID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, repository.ErrNotFound
	}
	if payment.Status != domain.PaymentStatusPaid {
		return nil, ErrPaymentNotPaid
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

	txTripRepo := postgres.NewTripRepositoryWithTx(tx)
	txPaymentRepo := postgres.NewPaymentRepositoryWithTx(tx)

	now := time.Now()

	if err = txPaymentRepo.MarkRefunded(ctx, payment.ID, now); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			err = ErrPaymentNotPaid
		}
		return nil, err
	}

	if err = txTripRepo.MarkRefunded(ctx, tripID); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			err = ErrTripNotRefundable
		}
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return s.tripRepo.GetByID(ctx, tripID)
}

func (s *TripService) invalidatePublishedCache(ctx context.Context) {
	if s.cacheStore == nil {
		return
	}
	_ = s.cacheStore.InvalidatePublishedTrips(ctx)
}

func tripsToCached(trips []*domain.Trip) []redis.CachedTrip {
	cached := make([]redis.CachedTrip, 0, len(trips))
	for _, trip := range trips {
		cached = append(cached, redis.CachedTrip{
			ID:              trip.ID,
			OriginText:      trip.OriginText,
			DestinationText: trip.DestinationText,
			PickupAt:        trip.PickupAt.Format(time.RFC3339),
			Passengers:      trip.Passengers,
			Luggage:         trip.Luggage,
			PayoutDriver:    trip.PayoutDriver,
		})
	}
	return cached
}

// cachedToTrips rebuilds trips from cache entries. A corrupt entry makes the
// whole result unusable, so it reports !ok and the caller falls through to
// the store.
func cachedToTrips(cached []redis.CachedTrip) ([]*domain.Trip, bool) {
	trips := make([]*domain.Trip, 0, len(cached))
	for _, c := range cached {
		pickupAt, err := time.Parse(time.RFC3339, c.PickupAt)
		if err != nil {
			return nil, false
		}
		trips = append(trips, &domain.Trip{
			ID:              c.ID,
			OriginText:      c.OriginText,
			DestinationText: c.DestinationText,
			PickupAt:        pickupAt,
			Passengers:      c.Passengers,
			Luggage:         c.Luggage,
			PayoutDriver:    c.PayoutDriver,
			Status:          domain.TripStatusPublished,
		})
	}
	return trips, true
}
