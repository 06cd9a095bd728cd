package domain

// DriverStatus represents the verification status of a driver.
type DriverStatus string

const (
	DriverStatusPending  DriverStatus = "pending"
	DriverStatusActive   DriverStatus = "active"
	DriverStatusInactive DriverStatus = "inactive"
	DriverStatusBlocked  DriverStatus = "blocked"
)

// Driver represents a driver who can claim published trips.
type Driver struct {
	ID              string
	Name            string
	Email           string
	Phone           string
	Status          DriverStatus
	StripeAccountID string // connected account for payout transfers
}

// Verified reports whether the driver may claim trips.
func (d *Driver) Verified() bool {
	return d.Status == DriverStatusActive
}

// FleetStatus represents the verification status of a fleet.
type FleetStatus string

const (
	FleetStatusPending  FleetStatus = "pending"
	FleetStatusActive   FleetStatus = "active"
	FleetStatusInactive FleetStatus = "inactive"
	FleetStatusBlocked  FleetStatus = "blocked"
)

// Fleet represents a company that receives payouts on behalf of its drivers.
type Fleet struct {
	ID              string
	CompanyName     string
	ContactEmail    string
	Status          FleetStatus
	StripeAccountID string
}
