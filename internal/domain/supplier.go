package domain

// Supplier is a third party invoiced for a trip's customer price. The Stripe
// customer is created lazily on first invoice and cached on the record.
type Supplier struct {
	ID               string
	Code             string
	Name             string
	Email            string
	StripeCustomerID string
}
