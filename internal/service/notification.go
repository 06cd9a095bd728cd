package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"tripflow/internal/domain"
)

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationTripPublished NotificationType = "TRIP_PUBLISHED"
	NotificationTripClaimed   NotificationType = "TRIP_CLAIMED"
	NotificationTripStarted   NotificationType = "TRIP_STARTED"
	NotificationTripCompleted NotificationType = "TRIP_COMPLETED"
	NotificationTripCanceled  NotificationType = "TRIP_CANCELED"
	NotificationInvoiceSent   NotificationType = "INVOICE_SENT"
	NotificationPayoutPaid    NotificationType = "PAYOUT_PAID"
)

// Notification represents a notification to be sent.
type Notification struct {
	Type        NotificationType
	RecipientID string // customer, driver or supplier ID
	Title       string
	Message     string
	Data        map[string]interface{}
	CreatedAt   time.Time
}

// NotificationService handles notification delivery.
type NotificationService struct {
	// In a real system, this would have:
	// - Push notification client (FCM, APNS)
	// - SMS client (Twilio)
	// - Email client (SendGrid)
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

// NotifyTripPublished notifies drivers that a trip is open for claims.
func (s *NotificationService) NotifyTripPublished(ctx context.Context, trip *domain.Trip) error {
	return s.send(ctx, Notification{
		Type:    NotificationTripPublished,
		Title:   "New Trip Available",
		Message: fmt.Sprintf("Trip %s to %s, payout %.2f", trip.OriginText, trip.DestinationText, trip.PayoutDriver),
		Data: map[string]interface{}{
			"trip_id":   trip.ID,
			"pickup_at": trip.PickupAt,
		},
		CreatedAt: time.Now(),
	})
}

// NotifyTripClaimed notifies the operator that a driver took the trip.
func (s *NotificationService) NotifyTripClaimed(ctx context.Context, trip *domain.Trip, driverID string) error {
	return s.send(ctx, Notification{
		Type:        NotificationTripClaimed,
		RecipientID: driverID,
		Title:       "Trip Claimed",
		Message:     fmt.Sprintf("Driver %s claimed trip %s", driverID, trip.ID),
		Data: map[string]interface{}{
			"trip_id":   trip.ID,
			"driver_id": driverID,
		},
		CreatedAt: time.Now(),
	})
}

// NotifyTripCompleted notifies the customer that the trip finished.
func (s *NotificationService) NotifyTripCompleted(ctx context.Context, trip *domain.Trip) error {
	return s.send(ctx, Notification{
		Type:    NotificationTripCompleted,
		Title:   "Trip Completed",
		Message: fmt.Sprintf("Trip %s completed", trip.ID),
		Data: map[string]interface{}{
			"trip_id":      trip.ID,
			"completed_at": trip.CompletedAt,
		},
		CreatedAt: time.Now(),
	})
}

// NotifyInvoiceSent notifies the supplier that an invoice was issued.
func (s *NotificationService) NotifyInvoiceSent(ctx context.Context, supplierID, invoiceID, hostedURL string) error {
	return s.send(ctx, Notification{
		Type:        NotificationInvoiceSent,
		RecipientID: supplierID,
		Title:       "Invoice Sent",
		Message:     fmt.Sprintf("Invoice %s sent to supplier", invoiceID),
		Data: map[string]interface{}{
			"invoice_id": invoiceID,
			"hosted_url": hostedURL,
		},
		CreatedAt: time.Now(),
	})
}

// NotifyPayoutPaid notifies the beneficiary that a payout was disbursed.
func (s *NotificationService) NotifyPayoutPaid(ctx context.Context, payout *domain.Payout) error {
	recipient := payout.DriverID
	if recipient == "" {
		recipient = payout.FleetID
	}
	return s.send(ctx, Notification{
		Type:        NotificationPayoutPaid,
		RecipientID: recipient,
		Title:       "Payout Sent",
		Message:     fmt.Sprintf("Payout of %.2f for trip %s was sent", payout.Amount, payout.TripID),
		Data: map[string]interface{}{
			"payout_id": payout.ID,
			"trip_id":   payout.TripID,
		},
		CreatedAt: time.Now(),
	})
}

func (s *NotificationService) send(ctx context.Context, notification Notification) error {
	// In a real implementation, this would store the notification and push
	// it through FCM/SMS/email channels.
	log.Printf("[NOTIFICATION] Type=%s, Recipient=%s, Title=%s, Message=%s",
		notification.Type, notification.RecipientID, notification.Title, notification.Message)

	return nil
}
