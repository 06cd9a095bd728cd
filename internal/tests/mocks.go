package tests

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"tripflow/internal/domain"
	"tripflow/internal/redis"
	"tripflow/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK TRIP REPOSITORY
// ──────────────────────────────────────────────

// MockTripRepository is a mock implementation of TripRepository. Transition
// methods hold the mutex across check-and-set, mirroring the atomicity of
// the conditional UPDATE in the real store.
type MockTripRepository struct {
	mu    sync.Mutex
	trips map[string]*domain.Trip

	// Counters for verification
	ClaimCallCount    int32
	CompleteCallCount int32

	// Error injection
	CreateError error
	GetError    error
}

// NewMockTripRepository creates a new mock trip repository.
func NewMockTripRepository() *MockTripRepository {
	return &MockTripRepository{
		trips: make(map[string]*domain.Trip),
	}
}

// AddTrip adds a trip to the mock repository.
func (m *MockTripRepository) AddTrip(trip *domain.Trip) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips[trip.ID] = trip
}

// GetTrip returns the stored trip without copying, for assertions.
func (m *MockTripRepository) GetTrip(id string) *domain.Trip {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.trips[id]
}

func (m *MockTripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips[trip.ID] = trip
	return nil
}

func (m *MockTripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	trip, ok := m.trips[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *trip
	return &copy, nil
}

func (m *MockTripRepository) ListByStatus(ctx context.Context, status domain.TripStatus) ([]*domain.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*domain.Trip, 0)
	for _, trip := range m.trips {
		if trip.Status == status {
			copy := *trip
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m *MockTripRepository) MarkPendingPayment(ctx context.Context, id string) error {
	return m.transition(id, func(t *domain.Trip) bool {
		if t.Status != domain.TripStatusDraft {
			return false
		}
		t.Status = domain.TripStatusPendingPayment
		return true
	})
}

func (m *MockTripRepository) Publish(ctx context.Context, id string) error {
	return m.transition(id, func(t *domain.Trip) bool {
		if t.Status != domain.TripStatusPendingPayment {
			return false
		}
		t.Status = domain.TripStatusPublished
		return true
	})
}

func (m *MockTripRepository) Claim(ctx context.Context, id, driverID string, at time.Time) error {
	atomic.AddInt32(&m.ClaimCallCount, 1)
	return m.transition(id, func(t *domain.Trip) bool {
		if t.Status != domain.TripStatusPublished || t.DriverID != "" {
			return false
		}
		t.Status = domain.TripStatusClaimed
		t.DriverID = driverID
		t.ClaimedAt = at
		return true
	})
}

func (m *MockTripRepository) Start(ctx context.Context, id, driverID string, at time.Time) error {
	return m.transition(id, func(t *domain.Trip) bool {
		if t.Status != domain.TripStatusClaimed || t.DriverID != driverID {
			return false
		}
		t.Status = domain.TripStatusInProgress
		t.StartedAt = at
		return true
	})
}

func (m *MockTripRepository) Complete(ctx context.Context, id, driverID string, at time.Time) error {
	atomic.AddInt32(&m.CompleteCallCount, 1)
	return m.transition(id, func(t *domain.Trip) bool {
		if t.Status != domain.TripStatusInProgress || t.DriverID != driverID {
			return false
		}
		t.Status = domain.TripStatusCompleted
		t.CompletedAt = at
		return true
	})
}

func (m *MockTripRepository) Cancel(ctx context.Context, id, reason string, at time.Time) error {
	return m.transition(id, func(t *domain.Trip) bool {
		if t.Status.IsTerminal() {
			return false
		}
		t.Status = domain.TripStatusCanceled
		t.CancelReason = reason
		t.CanceledAt = at
		return true
	})
}

func (m *MockTripRepository) MarkRefunded(ctx context.Context, id string) error {
	return m.transition(id, func(t *domain.Trip) bool {
		if t.Status != domain.TripStatusCompleted && t.Status != domain.TripStatusCanceled {
			return false
		}
		t.Status = domain.TripStatusRefunded
		return true
	})
}

func (m *MockTripRepository) SumFinancials(ctx context.Context, from, to time.Time) (float64, float64, float64, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var revenue, payouts, costs float64
	var count int
	for _, t := range m.trips {
		if t.Status != domain.TripStatusCompleted {
			continue
		}
		if t.CompletedAt.Before(from) || !t.CompletedAt.Before(to) {
			continue
		}
		revenue += t.PriceCustomer
		payouts += t.PayoutDriver
		costs += t.EstimatedCosts
		count++
	}
	return revenue, payouts, costs, count, nil
}

func (m *MockTripRepository) transition(id string, apply func(*domain.Trip) bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	trip, ok := m.trips[id]
	if !ok {
		return repository.ErrConflict
	}
	if !apply(trip) {
		return repository.ErrConflict
	}
	return nil
}

// ──────────────────────────────────────────────
// MOCK PAYMENT REPOSITORY
// ──────────────────────────────────────────────

// MockPaymentRepository is a mock implementation of PaymentRepository.
type MockPaymentRepository struct {
	mu       sync.Mutex
	payments map[string]*domain.Payment // by payment id
	byTrip   map[string]string          // trip id -> payment id

	// Counters for verification
	UpsertInvoiceCallCount int32

	// Error injection
	UpsertInvoiceError error
}

// NewMockPaymentRepository creates a new mock payment repository.
func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{
		payments: make(map[string]*domain.Payment),
		byTrip:   make(map[string]string),
	}
}

// AddPayment adds a payment to the mock repository.
func (m *MockPaymentRepository) AddPayment(payment *domain.Payment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[payment.ID] = payment
	m.byTrip[payment.TripID] = payment.ID
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byTrip[payment.TripID]; exists {
		return repository.ErrDuplicate
	}
	m.payments[payment.ID] = payment
	m.byTrip[payment.TripID] = payment.ID
	return nil
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	payment, ok := m.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *payment
	return &copy, nil
}

func (m *MockPaymentRepository) GetByTripID(ctx context.Context, tripID string) (*domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byTrip[tripID]
	if !ok {
		return nil, nil
	}
	copy := *m.payments[id]
	return &copy, nil
}

func (m *MockPaymentRepository) MarkPaid(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	payment, ok := m.payments[id]
	if !ok || payment.Status != domain.PaymentStatusPending {
		return repository.ErrConflict
	}
	payment.Status = domain.PaymentStatusPaid
	payment.PaidAt = at
	return nil
}

func (m *MockPaymentRepository) MarkRefunded(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	payment, ok := m.payments[id]
	if !ok || payment.Status != domain.PaymentStatusPaid {
		return repository.ErrConflict
	}
	payment.Status = domain.PaymentStatusRefunded
	payment.RefundedAt = at
	return nil
}

func (m *MockPaymentRepository) UpsertSupplierInvoice(ctx context.Context, tripID string, amount float64, invoiceID string) error {
	atomic.AddInt32(&m.UpsertInvoiceCallCount, 1)
	if m.UpsertInvoiceError != nil {
		return m.UpsertInvoiceError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, exists := m.byTrip[tripID]; exists {
		payment := m.payments[id]
		if payment.Status != domain.PaymentStatusPending && payment.Status != domain.PaymentStatusFailed {
			return nil
		}
		payment.Amount = amount
		payment.Method = domain.PaymentMethodInvoice
		payment.Status = domain.PaymentStatusPending
		payment.GatewayPaymentID = invoiceID
		return nil
	}
	payment := &domain.Payment{
		ID:               fmt.Sprintf("pay-%s", tripID),
		TripID:           tripID,
		Amount:           amount,
		Method:           domain.PaymentMethodInvoice,
		Status:           domain.PaymentStatusPending,
		GatewayPaymentID: invoiceID,
		CreatedAt:        time.Now(),
	}
	m.payments[payment.ID] = payment
	m.byTrip[tripID] = payment.ID
	return nil
}

func (m *MockPaymentRepository) MarkPaidByInvoice(ctx context.Context, tripID, invoiceID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byTrip[tripID]
	if !ok {
		return repository.ErrNotFound
	}
	payment := m.payments[id]
	if payment.GatewayPaymentID != invoiceID {
		return repository.ErrNotFound
	}
	if payment.Status != domain.PaymentStatusPending {
		return repository.ErrConflict
	}
	payment.Status = domain.PaymentStatusPaid
	payment.PaidAt = at
	return nil
}

func (m *MockPaymentRepository) MarkFailedByInvoice(ctx context.Context, tripID, invoiceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byTrip[tripID]
	if !ok {
		return repository.ErrNotFound
	}
	payment := m.payments[id]
	if payment.GatewayPaymentID != invoiceID {
		return repository.ErrNotFound
	}
	if payment.Status != domain.PaymentStatusPending {
		return repository.ErrConflict
	}
	payment.Status = domain.PaymentStatusFailed
	return nil
}

// ──────────────────────────────────────────────
// MOCK PAYOUT REPOSITORY
// ──────────────────────────────────────────────

// MockPayoutRepository is a mock implementation of PayoutRepository. Create
// enforces the one-payout-per-trip uniqueness the real table carries.
type MockPayoutRepository struct {
	mu      sync.Mutex
	payouts map[string]*domain.Payout

	// Counters for verification
	CreateCallCount   int32
	MarkPaidCallCount int32

	// Error injection
	CreateError     error
	SetInvoiceError error
}

// NewMockPayoutRepository creates a new mock payout repository.
func NewMockPayoutRepository() *MockPayoutRepository {
	return &MockPayoutRepository{
		payouts: make(map[string]*domain.Payout),
	}
}

// AddPayout adds a payout to the mock repository.
func (m *MockPayoutRepository) AddPayout(payout *domain.Payout) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payouts[payout.ID] = payout
}

// CountPayouts returns the number of stored payouts.
func (m *MockPayoutRepository) CountPayouts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.payouts)
}

func (m *MockPayoutRepository) Create(ctx context.Context, payout *domain.Payout) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payouts {
		if p.TripID == payout.TripID {
			return repository.ErrDuplicate
		}
	}
	m.payouts[payout.ID] = payout
	return nil
}

func (m *MockPayoutRepository) GetByID(ctx context.Context, id string) (*domain.Payout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	payout, ok := m.payouts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *payout
	return &copy, nil
}

func (m *MockPayoutRepository) GetByTripID(ctx context.Context, tripID string) (*domain.Payout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payouts {
		if p.TripID == tripID {
			copy := *p
			return &copy, nil
		}
	}
	return nil, nil
}

func (m *MockPayoutRepository) GetPendingByTripID(ctx context.Context, tripID string) (*domain.Payout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payouts {
		if p.TripID == tripID && p.Status == domain.PayoutStatusPending {
			copy := *p
			return &copy, nil
		}
	}
	return nil, nil
}

func (m *MockPayoutRepository) MarkPaid(ctx context.Context, id string, at time.Time, method, referenceID string) error {
	atomic.AddInt32(&m.MarkPaidCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	payout, ok := m.payouts[id]
	if !ok || payout.Status != domain.PayoutStatusPending {
		return repository.ErrConflict
	}
	payout.Status = domain.PayoutStatusPaid
	payout.PaymentDate = at
	payout.Method = method
	payout.ReferenceID = referenceID
	return nil
}

func (m *MockPayoutRepository) SetInvoiceID(ctx context.Context, id, invoiceID string) error {
	if m.SetInvoiceError != nil {
		return m.SetInvoiceError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	payout, ok := m.payouts[id]
	if !ok {
		return repository.ErrNotFound
	}
	payout.InvoiceID = invoiceID
	return nil
}

func (m *MockPayoutRepository) SumPaid(ctx context.Context, from, to time.Time) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total float64
	for _, p := range m.payouts {
		if p.Status != domain.PayoutStatusPaid {
			continue
		}
		if p.PaymentDate.Before(from) || !p.PaymentDate.Before(to) {
			continue
		}
		total += p.Amount
	}
	return total, nil
}

// ──────────────────────────────────────────────
// MOCK DRIVER / FLEET REPOSITORIES
// ──────────────────────────────────────────────

// MockDriverRepository is a mock implementation of DriverRepository.
type MockDriverRepository struct {
	mu      sync.RWMutex
	drivers map[string]*domain.Driver
}

// NewMockDriverRepository creates a new mock driver repository.
func NewMockDriverRepository() *MockDriverRepository {
	return &MockDriverRepository{
		drivers: make(map[string]*domain.Driver),
	}
}

// AddDriver adds a driver to the mock repository.
func (m *MockDriverRepository) AddDriver(driver *domain.Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[driver.ID] = driver
}

func (m *MockDriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	driver, ok := m.drivers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *driver
	return &copy, nil
}

func (m *MockDriverRepository) SetStripeAccountID(ctx context.Context, id, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	driver, ok := m.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	driver.StripeAccountID = accountID
	return nil
}

// MockFleetRepository is a mock implementation of FleetRepository.
type MockFleetRepository struct {
	mu     sync.RWMutex
	fleets map[string]*domain.Fleet
}

// NewMockFleetRepository creates a new mock fleet repository.
func NewMockFleetRepository() *MockFleetRepository {
	return &MockFleetRepository{
		fleets: make(map[string]*domain.Fleet),
	}
}

// AddFleet adds a fleet to the mock repository.
func (m *MockFleetRepository) AddFleet(fleet *domain.Fleet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fleets[fleet.ID] = fleet
}

func (m *MockFleetRepository) GetByID(ctx context.Context, id string) (*domain.Fleet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fleet, ok := m.fleets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *fleet
	return &copy, nil
}

func (m *MockFleetRepository) SetStripeAccountID(ctx context.Context, id, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	fleet, ok := m.fleets[id]
	if !ok {
		return repository.ErrNotFound
	}
	fleet.StripeAccountID = accountID
	return nil
}

// ──────────────────────────────────────────────
// MOCK SUPPLIER REPOSITORY
// ──────────────────────────────────────────────

// MockSupplierRepository is a mock implementation of SupplierRepository.
type MockSupplierRepository struct {
	mu        sync.RWMutex
	suppliers map[string]*domain.Supplier

	// Counters for verification
	SetCustomerCallCount int32
}

// NewMockSupplierRepository creates a new mock supplier repository.
func NewMockSupplierRepository() *MockSupplierRepository {
	return &MockSupplierRepository{
		suppliers: make(map[string]*domain.Supplier),
	}
}

// AddSupplier adds a supplier to the mock repository.
func (m *MockSupplierRepository) AddSupplier(supplier *domain.Supplier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suppliers[supplier.ID] = supplier
}

func (m *MockSupplierRepository) GetByID(ctx context.Context, id string) (*domain.Supplier, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	supplier, ok := m.suppliers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *supplier
	return &copy, nil
}

func (m *MockSupplierRepository) SetStripeCustomerID(ctx context.Context, id, customerID string) error {
	atomic.AddInt32(&m.SetCustomerCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	supplier, ok := m.suppliers[id]
	if !ok {
		return repository.ErrNotFound
	}
	supplier.StripeCustomerID = customerID
	return nil
}

// ──────────────────────────────────────────────
// MOCK GATEWAY
// ──────────────────────────────────────────────

// MockGateway is a mock implementation of the payment gateway. Every call
// can be failed independently to exercise partial settlement failures.
type MockGateway struct {
	mu sync.Mutex

	// Counters for verification
	CreateCustomerCallCount  int32
	CreateInvoiceCallCount   int32
	AddInvoiceLineCallCount  int32
	FinalizeInvoiceCallCount int32
	CreateTransferCallCount  int32
	CreateAccountCallCount   int32
	OnboardingLinkCallCount  int32

	// Error injection
	CreateCustomerError error
	CreateInvoiceError  error
	AddInvoiceLineError error
	FinalizeError       error
	CreateTransferError error
	CreateAccountError  error
	OnboardingLinkError error

	// Last seen arguments
	LastTransferAmount      int64
	LastTransferDestination string
	LastInvoiceMetadata     map[string]string
}

// NewMockGateway creates a new mock gateway.
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

func (m *MockGateway) CreateCustomer(ctx context.Context, email, name string, metadata map[string]string) (string, error) {
	n := atomic.AddInt32(&m.CreateCustomerCallCount, 1)
	if m.CreateCustomerError != nil {
		return "", m.CreateCustomerError
	}
	return fmt.Sprintf("cus_mock_%d", n), nil
}

func (m *MockGateway) CreateInvoice(ctx context.Context, customerID string, daysUntilDue int, metadata map[string]string) (string, error) {
	n := atomic.AddInt32(&m.CreateInvoiceCallCount, 1)
	if m.CreateInvoiceError != nil {
		return "", m.CreateInvoiceError
	}
	m.mu.Lock()
	m.LastInvoiceMetadata = metadata
	m.mu.Unlock()
	return fmt.Sprintf("in_mock_%d", n), nil
}

func (m *MockGateway) AddInvoiceLine(ctx context.Context, customerID, invoiceID string, amountMinor int64, currency, description string) error {
	atomic.AddInt32(&m.AddInvoiceLineCallCount, 1)
	if m.AddInvoiceLineError != nil {
		return m.AddInvoiceLineError
	}
	return nil
}

func (m *MockGateway) FinalizeAndSendInvoice(ctx context.Context, invoiceID string) (string, error) {
	atomic.AddInt32(&m.FinalizeInvoiceCallCount, 1)
	if m.FinalizeError != nil {
		return "", m.FinalizeError
	}
	return "https://invoice.example/" + invoiceID, nil
}

func (m *MockGateway) CreateTransfer(ctx context.Context, amountMinor int64, currency, destination string, metadata map[string]string) (string, error) {
	n := atomic.AddInt32(&m.CreateTransferCallCount, 1)
	if m.CreateTransferError != nil {
		return "", m.CreateTransferError
	}
	m.mu.Lock()
	m.LastTransferAmount = amountMinor
	m.LastTransferDestination = destination
	m.mu.Unlock()
	return fmt.Sprintf("tr_mock_%d", n), nil
}

func (m *MockGateway) CreateConnectedAccount(ctx context.Context, country, email, businessType string, metadata map[string]string) (string, error) {
	n := atomic.AddInt32(&m.CreateAccountCallCount, 1)
	if m.CreateAccountError != nil {
		return "", m.CreateAccountError
	}
	return fmt.Sprintf("acct_mock_%d", n), nil
}

func (m *MockGateway) CreateAccountOnboardingLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error) {
	atomic.AddInt32(&m.OnboardingLinkCallCount, 1)
	if m.OnboardingLinkError != nil {
		return "", m.OnboardingLinkError
	}
	return "https://onboard.example/" + accountID, nil
}

// ──────────────────────────────────────────────
// MOCK REDIS STORES
// ──────────────────────────────────────────────

// MockLockStore is an in-memory LockStoreInterface.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]bool

	// Counters for verification
	AcquireCallCount int32
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{locks: make(map[string]bool)}
}

func (m *MockLockStore) AcquirePayoutLock(ctx context.Context, payoutID string, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[payoutID] {
		return false, nil
	}
	m.locks[payoutID] = true
	return true, nil
}

func (m *MockLockStore) ReleasePayoutLock(ctx context.Context, payoutID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, payoutID)
	return nil
}

// MockCacheStore is an in-memory CacheStoreInterface.
type MockCacheStore struct {
	mu    sync.Mutex
	trips []redis.CachedTrip
	set   bool

	// Counters for verification
	InvalidateCallCount int32
}

// NewMockCacheStore creates a new mock cache store.
func NewMockCacheStore() *MockCacheStore {
	return &MockCacheStore{}
}

func (m *MockCacheStore) GetPublishedTrips(ctx context.Context) ([]redis.CachedTrip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.set {
		return nil, nil
	}
	return m.trips, nil
}

func (m *MockCacheStore) SetPublishedTrips(ctx context.Context, trips []redis.CachedTrip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips = trips
	m.set = true
	return nil
}

func (m *MockCacheStore) InvalidatePublishedTrips(ctx context.Context) error {
	atomic.AddInt32(&m.InvalidateCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips = nil
	m.set = false
	return nil
}
