package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"tripflow/internal/domain"
	"tripflow/internal/service"
)

// ──────────────────────────────────────────────
// COMPLETION AND SETTLEMENT
// ──────────────────────────────────────────────

func inProgressTrip(id, driverID string) *domain.Trip {
	trip := publishedTrip(id)
	trip.Status = domain.TripStatusInProgress
	trip.DriverID = driverID
	trip.StartedAt = time.Now()
	return trip
}

func TestCompleteTrip_CreatesDriverPayout(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	payoutRepo := NewMockPayoutRepository()
	tripRepo.AddTrip(inProgressTrip("trip-1", "driver-1"))

	settlement := newSettlementService(payoutRepo, NewMockPaymentRepository(), NewMockSupplierRepository(), NewMockGateway())
	svc := newTripService(tripRepo, NewMockDriverRepository(), settlement)

	result, err := svc.CompleteTrip(context.Background(), service.CompleteTripRequest{TripID: "trip-1", DriverID: "driver-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Warning != nil {
		t.Errorf("unexpected settlement warning: %v", result.Warning)
	}

	if result.Trip.Status != domain.TripStatusCompleted {
		t.Errorf("expected COMPLETED, got %s", result.Trip.Status)
	}
	if result.Settlement == nil || result.Settlement.Payout == nil {
		t.Fatal("expected a payout in the settlement result")
	}

	payout := result.Settlement.Payout
	// Trip economics: customer pays 500, driver is owed 350, margin 150.
	if payout.Amount != 350 {
		t.Errorf("expected payout amount 350, got %v", payout.Amount)
	}
	if payout.DriverID != "driver-1" {
		t.Errorf("expected driver beneficiary, got driver=%q fleet=%q", payout.DriverID, payout.FleetID)
	}
	if payout.Status != domain.PayoutStatusPending {
		t.Errorf("expected pending payout, got %s", payout.Status)
	}
	if got := result.Trip.Margin(); got != 150 {
		t.Errorf("expected margin 150, got %v", got)
	}
}

func TestCompleteTrip_FleetTakesPrecedenceOverDriver(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	payoutRepo := NewMockPayoutRepository()
	trip := inProgressTrip("trip-1", "driver-1")
	trip.FleetID = "fleet-1"
	tripRepo.AddTrip(trip)

	settlement := newSettlementService(payoutRepo, NewMockPaymentRepository(), NewMockSupplierRepository(), NewMockGateway())
	svc := newTripService(tripRepo, NewMockDriverRepository(), settlement)

	result, err := svc.CompleteTrip(context.Background(), service.CompleteTripRequest{TripID: "trip-1", DriverID: "driver-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	payout := result.Settlement.Payout
	if payout.FleetID != "fleet-1" || payout.DriverID != "" {
		t.Errorf("expected fleet beneficiary, got driver=%q fleet=%q", payout.DriverID, payout.FleetID)
	}
}

func TestCompleteTrip_SecondAttemptRejected(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	payoutRepo := NewMockPayoutRepository()
	tripRepo.AddTrip(inProgressTrip("trip-1", "driver-1"))

	settlement := newSettlementService(payoutRepo, NewMockPaymentRepository(), NewMockSupplierRepository(), NewMockGateway())
	svc := newTripService(tripRepo, NewMockDriverRepository(), settlement)

	if _, err := svc.CompleteTrip(context.Background(), service.CompleteTripRequest{TripID: "trip-1", DriverID: "driver-1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := svc.CompleteTrip(context.Background(), service.CompleteTripRequest{TripID: "trip-1", DriverID: "driver-1"})
	if !errors.Is(err, service.ErrTripNotInProgress) {
		t.Errorf("expected ErrTripNotInProgress, got %v", err)
	}

	if payoutRepo.CountPayouts() != 1 {
		t.Errorf("expected exactly 1 payout, got %d", payoutRepo.CountPayouts())
	}
}

func TestRetrySettlement_ReusesExistingPayout(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	payoutRepo := NewMockPayoutRepository()
	tripRepo.AddTrip(inProgressTrip("trip-1", "driver-1"))

	settlement := newSettlementService(payoutRepo, NewMockPaymentRepository(), NewMockSupplierRepository(), NewMockGateway())
	svc := newTripService(tripRepo, NewMockDriverRepository(), settlement)

	first, err := svc.CompleteTrip(context.Background(), service.CompleteTripRequest{TripID: "trip-1", DriverID: "driver-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	retried, err := svc.RetrySettlement(context.Background(), "trip-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if payoutRepo.CountPayouts() != 1 {
		t.Errorf("expected 1 payout after retry, got %d", payoutRepo.CountPayouts())
	}
	if retried.Payout.ID != first.Settlement.Payout.ID {
		t.Error("expected retry to reuse the original payout")
	}
}

// A retry after the trip's beneficiary changed must still dedupe on the trip.
// Payout uniqueness is keyed on trip_id alone, so a second insert with a
// different driver/fleet combination is rejected, not treated as a new row.
func TestRetrySettlement_BeneficiaryChangeKeepsSinglePayout(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	payoutRepo := NewMockPayoutRepository()
	tripRepo.AddTrip(inProgressTrip("trip-1", "driver-1"))

	settlement := newSettlementService(payoutRepo, NewMockPaymentRepository(), NewMockSupplierRepository(), NewMockGateway())
	svc := newTripService(tripRepo, NewMockDriverRepository(), settlement)

	first, err := svc.CompleteTrip(context.Background(), service.CompleteTripRequest{TripID: "trip-1", DriverID: "driver-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The driver joins a fleet after completion, changing the beneficiary
	// a fresh settlement pass would compute.
	tripRepo.GetTrip("trip-1").FleetID = "fleet-1"

	retried, err := svc.RetrySettlement(context.Background(), "trip-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if payoutRepo.CountPayouts() != 1 {
		t.Errorf("expected 1 payout after beneficiary change, got %d", payoutRepo.CountPayouts())
	}
	if retried.Payout.ID != first.Settlement.Payout.ID {
		t.Error("expected retry to reuse the original payout")
	}
	if retried.Payout.DriverID != "driver-1" || retried.Payout.FleetID != "" {
		t.Errorf("expected original driver beneficiary to stand, got driver=%q fleet=%q",
			retried.Payout.DriverID, retried.Payout.FleetID)
	}
}

func TestRetrySettlement_OnlyForCompletedTrips(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	tripRepo.AddTrip(inProgressTrip("trip-1", "driver-1"))

	settlement := newSettlementService(NewMockPayoutRepository(), NewMockPaymentRepository(), NewMockSupplierRepository(), NewMockGateway())
	svc := newTripService(tripRepo, NewMockDriverRepository(), settlement)

	_, err := svc.RetrySettlement(context.Background(), "trip-1")
	if !errors.Is(err, service.ErrTripNotCompleted) {
		t.Errorf("expected ErrTripNotCompleted, got %v", err)
	}
}

func TestSettlement_SupplierInvoiceFlow(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	payoutRepo := NewMockPayoutRepository()
	paymentRepo := NewMockPaymentRepository()
	supplierRepo := NewMockSupplierRepository()
	gw := NewMockGateway()

	trip := inProgressTrip("trip-1", "driver-1")
	trip.SupplierID = "supplier-1"
	tripRepo.AddTrip(trip)
	supplierRepo.AddSupplier(&domain.Supplier{ID: "supplier-1", Code: "ACME", Name: "Acme Transfers", Email: "billing@acme.example"})

	settlement := newSettlementService(payoutRepo, paymentRepo, supplierRepo, gw)
	svc := newTripService(tripRepo, NewMockDriverRepository(), settlement)

	result, err := svc.CompleteTrip(context.Background(), service.CompleteTripRequest{TripID: "trip-1", DriverID: "driver-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Warning != nil {
		t.Fatalf("unexpected settlement warning: %v", result.Warning)
	}

	if result.Settlement.InvoiceID == "" || !result.Settlement.InvoiceSent {
		t.Error("expected a sent invoice in the settlement result")
	}

	// The supplier's gateway customer must be persisted for reuse.
	supplier, _ := supplierRepo.GetByID(context.Background(), "supplier-1")
	if supplier.StripeCustomerID == "" {
		t.Error("expected supplier customer id to be persisted")
	}

	// Invoice metadata must carry the trip reference the webhook matches on.
	if gw.LastInvoiceMetadata["trip_id"] != "trip-1" {
		t.Errorf("expected trip_id metadata on invoice, got %v", gw.LastInvoiceMetadata)
	}

	// The invoice payment record is pending until the webhook confirms it.
	payment, _ := paymentRepo.GetByTripID(context.Background(), "trip-1")
	if payment == nil {
		t.Fatal("expected supplier invoice payment record")
	}
	if payment.Status != domain.PaymentStatusPending {
		t.Errorf("expected pending payment, got %s", payment.Status)
	}
	if payment.Amount != 500 {
		t.Errorf("expected invoice amount 500, got %v", payment.Amount)
	}
	if payment.GatewayPaymentID != result.Settlement.InvoiceID {
		t.Error("expected payment to reference the created invoice")
	}

	// The payout is tied to the invoice for reconciliation.
	payout, _ := payoutRepo.GetByTripID(context.Background(), "trip-1")
	if payout.InvoiceID != result.Settlement.InvoiceID {
		t.Error("expected payout to reference the created invoice")
	}
}

func TestSettlement_InvoiceFailureIsWarningNotError(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	payoutRepo := NewMockPayoutRepository()
	supplierRepo := NewMockSupplierRepository()
	gw := NewMockGateway()
	gw.FinalizeError = errors.New("stripe: rate limited")

	trip := inProgressTrip("trip-1", "driver-1")
	trip.SupplierID = "supplier-1"
	tripRepo.AddTrip(trip)
	supplierRepo.AddSupplier(&domain.Supplier{ID: "supplier-1", Name: "Acme Transfers", Email: "billing@acme.example"})

	settlement := newSettlementService(payoutRepo, NewMockPaymentRepository(), supplierRepo, gw)
	svc := newTripService(tripRepo, NewMockDriverRepository(), settlement)

	result, err := svc.CompleteTrip(context.Background(), service.CompleteTripRequest{TripID: "trip-1", DriverID: "driver-1"})
	if err != nil {
		t.Fatalf("completion must not fail for an invoicing error, got: %v", err)
	}
	if result.Warning == nil {
		t.Fatal("expected a settlement warning")
	}
	if !errors.Is(result.Warning, service.ErrGateway) {
		t.Errorf("expected warning to wrap ErrGateway, got %v", result.Warning)
	}

	// The completion itself stands and the payout was still created.
	if got := tripRepo.GetTrip("trip-1").Status; got != domain.TripStatusCompleted {
		t.Errorf("expected trip to stay COMPLETED, got %s", got)
	}
	if payoutRepo.CountPayouts() != 1 {
		t.Errorf("expected payout despite invoice failure, got %d", payoutRepo.CountPayouts())
	}
}

func TestSettlement_RetryAfterFailureReusesCustomer(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	payoutRepo := NewMockPayoutRepository()
	supplierRepo := NewMockSupplierRepository()
	gw := NewMockGateway()
	gw.CreateInvoiceError = errors.New("stripe: unavailable")

	trip := inProgressTrip("trip-1", "driver-1")
	trip.SupplierID = "supplier-1"
	tripRepo.AddTrip(trip)
	supplierRepo.AddSupplier(&domain.Supplier{ID: "supplier-1", Name: "Acme Transfers", Email: "billing@acme.example"})

	settlement := newSettlementService(payoutRepo, NewMockPaymentRepository(), supplierRepo, gw)
	svc := newTripService(tripRepo, NewMockDriverRepository(), settlement)

	result, err := svc.CompleteTrip(context.Background(), service.CompleteTripRequest{TripID: "trip-1", DriverID: "driver-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Warning == nil {
		t.Fatal("expected settlement warning on first attempt")
	}

	// The customer was created and persisted before the failing call.
	if gw.CreateCustomerCallCount != 1 {
		t.Fatalf("expected 1 customer creation, got %d", gw.CreateCustomerCallCount)
	}

	gw.CreateInvoiceError = nil

	retried, err := svc.RetrySettlement(context.Background(), "trip-1")
	if err != nil {
		t.Fatalf("unexpected error on retry: %v", err)
	}
	if retried.InvoiceID == "" {
		t.Error("expected invoice on retry")
	}

	// No duplicate customer, no duplicate payout.
	if gw.CreateCustomerCallCount != 1 {
		t.Errorf("expected customer to be reused, got %d creations", gw.CreateCustomerCallCount)
	}
	if payoutRepo.CountPayouts() != 1 {
		t.Errorf("expected 1 payout, got %d", payoutRepo.CountPayouts())
	}
}

func TestSettlement_NoSupplierSkipsInvoicing(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	gw := NewMockGateway()
	tripRepo.AddTrip(inProgressTrip("trip-1", "driver-1"))

	settlement := newSettlementService(NewMockPayoutRepository(), NewMockPaymentRepository(), NewMockSupplierRepository(), gw)
	svc := newTripService(tripRepo, NewMockDriverRepository(), settlement)

	result, err := svc.CompleteTrip(context.Background(), service.CompleteTripRequest{TripID: "trip-1", DriverID: "driver-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Settlement.SupplierBased {
		t.Error("expected non-supplier settlement")
	}
	if gw.CreateInvoiceCallCount != 0 {
		t.Errorf("expected no invoice calls, got %d", gw.CreateInvoiceCallCount)
	}
}
