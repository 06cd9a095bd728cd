package domain

import "time"

// TripStatus represents the current status of a trip.
type TripStatus string

const (
	TripStatusDraft          TripStatus = "DRAFT"
	TripStatusPendingPayment TripStatus = "PENDING_PAYMENT"
	TripStatusPublished      TripStatus = "PUBLISHED"
	TripStatusClaimed        TripStatus = "CLAIMED"
	TripStatusInProgress     TripStatus = "IN_PROGRESS"
	TripStatusCompleted      TripStatus = "COMPLETED"
	TripStatusCanceled       TripStatus = "CANCELED"
	TripStatusRefunded       TripStatus = "REFUNDED"
)

// IsTerminal reports whether no further transition is possible from s.
func (s TripStatus) IsTerminal() bool {
	return s == TripStatusCompleted || s == TripStatusCanceled || s == TripStatusRefunded
}

// Trip represents a single transport booking and its state machine.
type Trip struct {
	ID              string
	CustomerName    string
	CustomerPhone   string
	CustomerEmail   string
	OriginText      string
	DestinationText string
	PickupAt        time.Time
	Passengers      int
	Luggage         int
	Notes           string

	PriceCustomer  float64 // amount charged to the customer
	PayoutDriver   float64 // amount owed to the driver or fleet
	EstimatedCosts float64

	Status     TripStatus
	DriverID   string
	FleetID    string
	SupplierID string

	ClaimedAt    time.Time
	StartedAt    time.Time
	CompletedAt  time.Time
	CanceledAt   time.Time
	CancelReason string

	CreatedAt time.Time
}

// Margin is the customer price minus the driver payout and estimated costs.
func (t *Trip) Margin() float64 {
	return t.PriceCustomer - t.PayoutDriver - t.EstimatedCosts
}

// Beneficiary returns the payout beneficiary for the trip: the fleet when one
// is attached, otherwise the assigned driver.
func (t *Trip) Beneficiary() (driverID, fleetID string) {
	if t.FleetID != "" {
		return "", t.FleetID
	}
	return t.DriverID, ""
}
