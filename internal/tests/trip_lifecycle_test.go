package tests

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tripflow/internal/domain"
	"tripflow/internal/redis"
	"tripflow/internal/service"
)

// ──────────────────────────────────────────────
// TRIP CLAIMING AND LIFECYCLE
// ──────────────────────────────────────────────

func newTripService(tripRepo *MockTripRepository, driverRepo *MockDriverRepository, settlement *service.SettlementService) *service.TripService {
	return service.NewTripService(
		nil, // no *sql.DB needed for non-transactional paths
		tripRepo,
		driverRepo,
		NewMockPaymentRepository(),
		settlement,
		service.NewNotificationService(),
		NewMockCacheStore(),
	)
}

func newSettlementService(payoutRepo *MockPayoutRepository, paymentRepo *MockPaymentRepository, supplierRepo *MockSupplierRepository, gw *MockGateway) *service.SettlementService {
	return service.NewSettlementService(
		payoutRepo,
		paymentRepo,
		supplierRepo,
		gw,
		service.NewNotificationService(),
		"brl",
		25,
	)
}

func publishedTrip(id string) *domain.Trip {
	return &domain.Trip{
		ID:              id,
		CustomerName:    "Ana Souza",
		OriginText:      "GRU Airport",
		DestinationText: "Paulista Ave 1000",
		PickupAt:        time.Now().Add(24 * time.Hour),
		Passengers:      2,
		PriceCustomer:   500,
		PayoutDriver:    350,
		EstimatedCosts:  0,
		Status:          domain.TripStatusPublished,
		CreatedAt:       time.Now(),
	}
}

func activeDriver(id string) *domain.Driver {
	return &domain.Driver{
		ID:     id,
		Name:   "Carlos Lima",
		Status: domain.DriverStatusActive,
	}
}

func TestClaimTrip_ExactlyOneConcurrentWinner(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	driverRepo := NewMockDriverRepository()
	tripRepo.AddTrip(publishedTrip("trip-1"))

	const drivers = 20
	for i := 0; i < drivers; i++ {
		driverRepo.AddDriver(activeDriver(driverID(i)))
	}

	settlement := newSettlementService(NewMockPayoutRepository(), NewMockPaymentRepository(), NewMockSupplierRepository(), NewMockGateway())
	svc := newTripService(tripRepo, driverRepo, settlement)

	var wins, losses int32
	var wg sync.WaitGroup
	for i := 0; i < drivers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := svc.ClaimTrip(context.Background(), service.ClaimTripRequest{
				TripID:   "trip-1",
				DriverID: driverID(n),
			})
			if err == nil {
				atomic.AddInt32(&wins, 1)
				return
			}
			if errors.Is(err, service.ErrTripAlreadyClaimed) {
				atomic.AddInt32(&losses, 1)
				return
			}
			t.Errorf("unexpected claim error: %v", err)
		}(i)
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("expected exactly 1 winner, got %d", wins)
	}
	if losses != drivers-1 {
		t.Errorf("expected %d losers, got %d", drivers-1, losses)
	}

	stored := tripRepo.GetTrip("trip-1")
	if stored.Status != domain.TripStatusClaimed {
		t.Errorf("expected status CLAIMED, got %s", stored.Status)
	}
	if stored.DriverID == "" {
		t.Error("expected winning driver to be recorded")
	}
}

func driverID(n int) string {
	return "driver-" + string(rune('a'+n%26)) + string(rune('0'+n/26))
}

func TestClaimTrip_UnverifiedDriverRejected(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	driverRepo := NewMockDriverRepository()
	tripRepo.AddTrip(publishedTrip("trip-1"))
	driverRepo.AddDriver(&domain.Driver{ID: "driver-1", Status: domain.DriverStatusPending})

	settlement := newSettlementService(NewMockPayoutRepository(), NewMockPaymentRepository(), NewMockSupplierRepository(), NewMockGateway())
	svc := newTripService(tripRepo, driverRepo, settlement)

	_, err := svc.ClaimTrip(context.Background(), service.ClaimTripRequest{TripID: "trip-1", DriverID: "driver-1"})
	if !errors.Is(err, service.ErrDriverNotVerified) {
		t.Errorf("expected ErrDriverNotVerified, got %v", err)
	}

	// The trip must be untouched.
	if got := tripRepo.GetTrip("trip-1").Status; got != domain.TripStatusPublished {
		t.Errorf("expected trip to stay PUBLISHED, got %s", got)
	}
	if tripRepo.ClaimCallCount != 0 {
		t.Error("claim must not reach the repository for an unverified driver")
	}
}

func TestClaimTrip_NotPublished(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	driverRepo := NewMockDriverRepository()
	trip := publishedTrip("trip-1")
	trip.Status = domain.TripStatusDraft
	tripRepo.AddTrip(trip)
	driverRepo.AddDriver(activeDriver("driver-1"))

	settlement := newSettlementService(NewMockPayoutRepository(), NewMockPaymentRepository(), NewMockSupplierRepository(), NewMockGateway())
	svc := newTripService(tripRepo, driverRepo, settlement)

	_, err := svc.ClaimTrip(context.Background(), service.ClaimTripRequest{TripID: "trip-1", DriverID: "driver-1"})
	if !errors.Is(err, service.ErrTripNotPublished) {
		t.Errorf("expected ErrTripNotPublished, got %v", err)
	}
}

func TestStartTrip_OnlyAssignedDriver(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	driverRepo := NewMockDriverRepository()
	trip := publishedTrip("trip-1")
	trip.Status = domain.TripStatusClaimed
	trip.DriverID = "driver-1"
	tripRepo.AddTrip(trip)
	driverRepo.AddDriver(activeDriver("driver-1"))
	driverRepo.AddDriver(activeDriver("driver-2"))

	settlement := newSettlementService(NewMockPayoutRepository(), NewMockPaymentRepository(), NewMockSupplierRepository(), NewMockGateway())
	svc := newTripService(tripRepo, driverRepo, settlement)

	_, err := svc.StartTrip(context.Background(), service.StartTripRequest{TripID: "trip-1", DriverID: "driver-2"})
	if !errors.Is(err, service.ErrNotTripDriver) {
		t.Errorf("expected ErrNotTripDriver, got %v", err)
	}

	started, err := svc.StartTrip(context.Background(), service.StartTripRequest{TripID: "trip-1", DriverID: "driver-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if started.Status != domain.TripStatusInProgress {
		t.Errorf("expected IN_PROGRESS, got %s", started.Status)
	}
	if started.StartedAt.IsZero() {
		t.Error("expected started_at to be set")
	}
}

func TestCompleteTrip_OnlyAssignedDriver(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	driverRepo := NewMockDriverRepository()
	payoutRepo := NewMockPayoutRepository()
	trip := publishedTrip("trip-1")
	trip.Status = domain.TripStatusInProgress
	trip.DriverID = "driver-1"
	tripRepo.AddTrip(trip)
	driverRepo.AddDriver(activeDriver("driver-1"))
	driverRepo.AddDriver(activeDriver("driver-2"))

	settlement := newSettlementService(payoutRepo, NewMockPaymentRepository(), NewMockSupplierRepository(), NewMockGateway())
	svc := newTripService(tripRepo, driverRepo, settlement)

	_, err := svc.CompleteTrip(context.Background(), service.CompleteTripRequest{TripID: "trip-1", DriverID: "driver-2"})
	if !errors.Is(err, service.ErrNotTripDriver) {
		t.Errorf("expected ErrNotTripDriver, got %v", err)
	}

	// The wrong driver must not move the trip or trigger settlement.
	if got := tripRepo.GetTrip("trip-1").Status; got != domain.TripStatusInProgress {
		t.Errorf("expected trip to stay IN_PROGRESS, got %s", got)
	}
	if payoutRepo.CountPayouts() != 0 {
		t.Errorf("expected no payout, got %d", payoutRepo.CountPayouts())
	}

	completed, err := svc.CompleteTrip(context.Background(), service.CompleteTripRequest{TripID: "trip-1", DriverID: "driver-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if completed.Trip.Status != domain.TripStatusCompleted {
		t.Errorf("expected COMPLETED, got %s", completed.Trip.Status)
	}
}

func TestStartTrip_NotClaimed(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	driverRepo := NewMockDriverRepository()
	tripRepo.AddTrip(publishedTrip("trip-1"))
	driverRepo.AddDriver(activeDriver("driver-1"))

	settlement := newSettlementService(NewMockPayoutRepository(), NewMockPaymentRepository(), NewMockSupplierRepository(), NewMockGateway())
	svc := newTripService(tripRepo, driverRepo, settlement)

	_, err := svc.StartTrip(context.Background(), service.StartTripRequest{TripID: "trip-1", DriverID: "driver-1"})
	if !errors.Is(err, service.ErrTripNotClaimed) {
		t.Errorf("expected ErrTripNotClaimed, got %v", err)
	}
}

func TestCancelTrip_RequiresReason(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	tripRepo.AddTrip(publishedTrip("trip-1"))

	settlement := newSettlementService(NewMockPayoutRepository(), NewMockPaymentRepository(), NewMockSupplierRepository(), NewMockGateway())
	svc := newTripService(tripRepo, NewMockDriverRepository(), settlement)

	_, err := svc.CancelTrip(context.Background(), service.CancelTripRequest{TripID: "trip-1"})
	if !errors.Is(err, service.ErrInvalidCancelReason) {
		t.Errorf("expected ErrInvalidCancelReason, got %v", err)
	}

	canceled, err := svc.CancelTrip(context.Background(), service.CancelTripRequest{TripID: "trip-1", Reason: "customer no-show"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if canceled.Status != domain.TripStatusCanceled {
		t.Errorf("expected CANCELED, got %s", canceled.Status)
	}
	if canceled.CancelReason != "customer no-show" {
		t.Errorf("expected cancel reason to be stored, got %q", canceled.CancelReason)
	}
}

func TestCancelTrip_TerminalStateRejected(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	trip := publishedTrip("trip-1")
	trip.Status = domain.TripStatusCompleted
	trip.DriverID = "driver-1"
	tripRepo.AddTrip(trip)

	settlement := newSettlementService(NewMockPayoutRepository(), NewMockPaymentRepository(), NewMockSupplierRepository(), NewMockGateway())
	svc := newTripService(tripRepo, NewMockDriverRepository(), settlement)

	_, err := svc.CancelTrip(context.Background(), service.CancelTripRequest{TripID: "trip-1", Reason: "late"})
	if !errors.Is(err, service.ErrTripNotCancelable) {
		t.Errorf("expected ErrTripNotCancelable, got %v", err)
	}
}

func TestListAvailableTrips_ServedFromCacheAfterFirstHit(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	tripRepo.AddTrip(publishedTrip("trip-1"))
	tripRepo.AddTrip(publishedTrip("trip-2"))
	cacheStore := NewMockCacheStore()

	settlement := newSettlementService(NewMockPayoutRepository(), NewMockPaymentRepository(), NewMockSupplierRepository(), NewMockGateway())
	svc := service.NewTripService(nil, tripRepo, NewMockDriverRepository(), NewMockPaymentRepository(), settlement, nil, cacheStore)

	first, err := svc.ListAvailableTrips(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("expected 2 trips, got %d", len(first))
	}

	// A trip added behind the cache's back is invisible until invalidation.
	tripRepo.AddTrip(publishedTrip("trip-3"))

	second, err := svc.ListAvailableTrips(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(second) != 2 {
		t.Errorf("expected cached list of 2, got %d", len(second))
	}

	if err := cacheStore.InvalidatePublishedTrips(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	third, err := svc.ListAvailableTrips(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(third) != 3 {
		t.Errorf("expected fresh list of 3, got %d", len(third))
	}
}

func TestListAvailableTrips_CorruptCacheEntryFallsBackToStore(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	tripRepo.AddTrip(publishedTrip("trip-1"))
	cacheStore := NewMockCacheStore()

	// A cache entry with an unreadable pickup time must not surface as a
	// zero-time trip; the list is served from the store instead.
	if err := cacheStore.SetPublishedTrips(context.Background(), []redis.CachedTrip{
		{ID: "trip-1", OriginText: "A", DestinationText: "B", PickupAt: "garbage"},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	settlement := newSettlementService(NewMockPayoutRepository(), NewMockPaymentRepository(), NewMockSupplierRepository(), NewMockGateway())
	svc := service.NewTripService(nil, tripRepo, NewMockDriverRepository(), NewMockPaymentRepository(), settlement, nil, cacheStore)

	trips, err := svc.ListAvailableTrips(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trips) != 1 {
		t.Fatalf("expected 1 trip from the store, got %d", len(trips))
	}
	if trips[0].PickupAt.IsZero() {
		t.Error("expected a real pickup time, not a zero value from the corrupt cache entry")
	}
}

func TestRefund_MockStateMachine(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	trip := publishedTrip("trip-1")
	trip.Status = domain.TripStatusInProgress
	trip.DriverID = "driver-1"
	tripRepo.AddTrip(trip)

	ctx := context.Background()

	// Refunding an in-progress trip must fail at the store level.
	if err := tripRepo.MarkRefunded(ctx, "trip-1"); err == nil {
		t.Error("expected refund of in-progress trip to fail")
	}

	if err := tripRepo.Complete(ctx, "trip-1", "driver-1", time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tripRepo.MarkRefunded(ctx, "trip-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := tripRepo.GetTrip("trip-1").Status; got != domain.TripStatusRefunded {
		t.Errorf("expected REFUNDED, got %s", got)
	}

	// Refund is terminal; a second refund must fail.
	if err := tripRepo.MarkRefunded(ctx, "trip-1"); err == nil {
		t.Error("expected second refund to fail")
	}
}
