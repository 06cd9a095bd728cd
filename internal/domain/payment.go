package domain

import "time"

// PaymentStatus represents the current status of a payment.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// PaymentMethod represents how a payment is collected.
type PaymentMethod string

const (
	PaymentMethodPix     PaymentMethod = "PIX"
	PaymentMethodCard    PaymentMethod = "CARD"
	PaymentMethodInvoice PaymentMethod = "INVOICE"
)

// Payment represents money collected (or owed) for one trip. A trip has at
// most one active payment at a time; supplier invoices are upserted onto the
// same trip key.
type Payment struct {
	ID               string
	TripID           string
	Amount           float64
	Method           PaymentMethod
	Status           PaymentStatus
	GatewayPaymentID string // external reference, e.g. a Stripe invoice id
	PaidAt           time.Time
	RefundedAt       time.Time
	CreatedAt        time.Time
}
