package service

import (
	"context"
	"errors"
	"log"

	"tripflow/internal/gateway"
	"tripflow/internal/repository"
)

const payoutMethodStripeInvoice = "stripe_invoice"

// WebhookService reconciles gateway invoice events against local payment
// and payout records. Handling is deliberately idempotent: replayed or
// out-of-order events resolve to no-ops rather than errors, so the webhook
// endpoint can always acknowledge delivery.
type WebhookService struct {
	payoutRepo  repository.PayoutRepository
	paymentRepo repository.PaymentRepository
}

// NewWebhookService creates a new WebhookService.
func NewWebhookService(payoutRepo repository.PayoutRepository, paymentRepo repository.PaymentRepository) *WebhookService {
	return &WebhookService{
		payoutRepo:  payoutRepo,
		paymentRepo: paymentRepo,
	}
}

// HandleEvent dispatches a verified gateway event. Unrecognized event types
// are acknowledged and ignored.
func (s *WebhookService) HandleEvent(ctx context.Context, event *gateway.Event) error {
	switch event.Type {
	case gateway.EventInvoicePaid:
		return s.handleInvoicePaid(ctx, event)
	case gateway.EventInvoicePaymentFailed:
		return s.handleInvoicePaymentFailed(ctx, event)
	default:
		log.Printf("ignoring webhook event %s of type %s", event.ID, event.Type)
		return nil
	}
}

func (s *WebhookService) handleInvoicePaid(ctx context.Context, event *gateway.Event) error {
	if event.TripID == "" {
		log.Printf("invoice %s paid but carries no trip metadata, skipping", event.InvoiceID)
		return nil
	}

	if err := s.paymentRepo.MarkPaidByInvoice(ctx, event.TripID, event.InvoiceID, event.CreatedAt); err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict), errors.Is(err, repository.ErrNotFound):
			// Already reconciled or the invoice never matched a pending
			// payment. Either way the event is spent.
			log.Printf("payment for invoice %s already settled or unknown", event.InvoiceID)
		default:
			return err
		}
	}

	payout, err := s.payoutRepo.GetPendingByTripID(ctx, event.TripID)
	if err != nil {
		return err
	}
	if payout == nil {
		log.Printf("no pending payout for trip %s on invoice %s", event.TripID, event.InvoiceID)
		return nil
	}

	if err := s.payoutRepo.MarkPaid(ctx, payout.ID, event.CreatedAt, payoutMethodStripeInvoice, event.InvoiceID); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			log.Printf("payout %s already paid, replayed invoice %s ignored", payout.ID, event.InvoiceID)
			return nil
		}
		return err
	}

	log.Printf("invoice %s paid, payout %s settled for trip %s", event.InvoiceID, payout.ID, event.TripID)
	return nil
}

func (s *WebhookService) handleInvoicePaymentFailed(ctx context.Context, event *gateway.Event) error {
	if event.TripID == "" {
		log.Printf("invoice %s failed but carries no trip metadata, skipping", event.InvoiceID)
		return nil
	}

	if err := s.paymentRepo.MarkFailedByInvoice(ctx, event.TripID, event.InvoiceID); err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict), errors.Is(err, repository.ErrNotFound):
			log.Printf("payment for invoice %s not pending, failure event ignored", event.InvoiceID)
			return nil
		default:
			return err
		}
	}

	log.Printf("invoice %s payment failed for trip %s", event.InvoiceID, event.TripID)
	return nil
}
