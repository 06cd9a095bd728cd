package domain

import "time"

// PayoutStatus represents the current status of a payout.
type PayoutStatus string

const (
	PayoutStatusPending PayoutStatus = "pending"
	PayoutStatusPaid    PayoutStatus = "paid"
)

// Payout represents money owed to a driver or fleet for one completed trip.
// Exactly one of DriverID/FleetID is set, and at most one payout may exist
// per (trip, beneficiary) pair.
type Payout struct {
	ID          string
	TripID      string
	DriverID    string
	FleetID     string
	Amount      float64
	Status      PayoutStatus
	PaymentDate time.Time
	Method      string // e.g. "stripe_connect", "stripe_invoice"
	ReferenceID string // external transfer or invoice id
	InvoiceID   string // supplier invoice tied to this payout, if any
	CreatedAt   time.Time
}
