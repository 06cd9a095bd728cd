package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"tripflow/internal/domain"
	"tripflow/internal/repository"
)

// SettlementService runs the post-completion side effects: payout creation
// for the driver or fleet, and supplier invoicing through the gateway. The
// two are independently retriable; neither is wrapped in a transaction with
// the trip transition, because the gateway call cannot be rolled back.
type SettlementService struct {
	payoutRepo   repository.PayoutRepository
	paymentRepo  repository.PaymentRepository
	supplierRepo repository.SupplierRepository
	gateway      Gateway
	notification *NotificationService

	currency       string
	invoiceDueDays int
}

// NewSettlementService creates a new SettlementService.
func NewSettlementService(
	payoutRepo repository.PayoutRepository,
	paymentRepo repository.PaymentRepository,
	supplierRepo repository.SupplierRepository,
	gw Gateway,
	notification *NotificationService,
	currency string,
	invoiceDueDays int,
) *SettlementService {
	return &SettlementService{
		payoutRepo:     payoutRepo,
		paymentRepo:    paymentRepo,
		supplierRepo:   supplierRepo,
		gateway:        gw,
		notification:   notification,
		currency:       currency,
		invoiceDueDays: invoiceDueDays,
	}
}

// SettlementResult describes what settlement accomplished.
type SettlementResult struct {
	Payout        *domain.Payout
	InvoiceID     string
	InvoiceURL    string
	InvoiceSent   bool
	SupplierBased bool
}

// Settle creates the payout for the trip's beneficiary and, when a supplier
// is attached, issues the supplier invoice. The returned error is a warning:
// the caller's trip completion has already committed and must still report
// success. Settle is safe to re-run; every step either upserts or reuses
// persisted references.
func (s *SettlementService) Settle(ctx context.Context, trip *domain.Trip) (*SettlementResult, error) {
	result := &SettlementResult{}

	payout, err := s.ensurePayout(ctx, trip)
	if err != nil {
		return result, err
	}
	result.Payout = payout

	if trip.SupplierID == "" {
		return result, nil
	}
	result.SupplierBased = true

	if err := s.invoiceSupplier(ctx, trip, payout, result); err != nil {
		return result, err
	}

	return result, nil
}

// ensurePayout inserts the payout row; an existing row for the same
// (trip, beneficiary) is returned as-is, which makes retried completions
// converge instead of double-paying.
func (s *SettlementService) ensurePayout(ctx context.Context, trip *domain.Trip) (*domain.Payout, error) {
	driverID, fleetID := trip.Beneficiary()

	payout := &domain.Payout{
		ID:        uuid.New().String(),
		TripID:    trip.ID,
		DriverID:  driverID,
		FleetID:   fleetID,
		Amount:    trip.PayoutDriver,
		Status:    domain.PayoutStatusPending,
		CreatedAt: time.Now(),
	}

	err := s.payoutRepo.Create(ctx, payout)
	if err == nil {
		return payout, nil
	}

	if errors.Is(err, repository.ErrDuplicate) {
		existing, getErr := s.payoutRepo.GetByTripID(ctx, trip.ID)
		if getErr != nil {
			return nil, getErr
		}
		if existing != nil {
			log.Printf("payout for trip %s already exists, reusing %s", trip.ID, existing.ID)
			return existing, nil
		}
	}

	return nil, err
}

// invoiceSupplier drives the invoice sub-flow. The gateway customer id is
// persisted immediately after creation so a retry after a partial failure
// reuses it instead of creating a duplicate customer.
func (s *SettlementService) invoiceSupplier(ctx context.Context, trip *domain.Trip, payout *domain.Payout, result *SettlementResult) error {
	supplier, err := s.supplierRepo.GetByID(ctx, trip.SupplierID)
	if err != nil {
		return err
	}

	customerID := supplier.StripeCustomerID
	if customerID == "" {
		customerID, err = s.gateway.CreateCustomer(ctx, supplier.Email, supplier.Name, map[string]string{
			"supplier_id":   supplier.ID,
			"supplier_code": supplier.Code,
		})
		if err != nil {
			return fmt.Errorf("%w: create customer: %v", ErrGateway, err)
		}

		if err := s.supplierRepo.SetStripeCustomerID(ctx, supplier.ID, customerID); err != nil {
			return err
		}
	}

	invoiceID, err := s.gateway.CreateInvoice(ctx, customerID, s.invoiceDueDays, map[string]string{
		"trip_id":     trip.ID,
		"supplier_id": supplier.ID,
	})
	if err != nil {
		return fmt.Errorf("%w: create invoice: %v", ErrGateway, err)
	}

	description := fmt.Sprintf("Transport service: %s to %s", trip.OriginText, trip.DestinationText)
	if err := s.gateway.AddInvoiceLine(ctx, customerID, invoiceID, minorUnits(trip.PriceCustomer), s.currency, description); err != nil {
		return fmt.Errorf("%w: add invoice line: %v", ErrGateway, err)
	}

	hostedURL, err := s.gateway.FinalizeAndSendInvoice(ctx, invoiceID)
	if err != nil {
		return fmt.Errorf("%w: finalize invoice: %v", ErrGateway, err)
	}

	result.InvoiceID = invoiceID
	result.InvoiceURL = hostedURL
	result.InvoiceSent = true

	// These two records are what the webhook reconciler matches against.
	if err := s.paymentRepo.UpsertSupplierInvoice(ctx, trip.ID, trip.PriceCustomer, invoiceID); err != nil {
		return err
	}
	if err := s.payoutRepo.SetInvoiceID(ctx, payout.ID, invoiceID); err != nil {
		return err
	}

	if s.notification != nil {
		_ = s.notification.NotifyInvoiceSent(ctx, supplier.ID, invoiceID, hostedURL)
	}

	return nil
}
