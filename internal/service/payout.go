package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"tripflow/internal/domain"
	"tripflow/internal/redis"
	"tripflow/internal/repository"
)

const (
	payoutMethodStripeConnect = "stripe_connect"

	// disburseLockTTL bounds how long a crashed disbursement can block
	// retries.
	disburseLockTTL = 30 * time.Second
)

// PayoutService disburses pending payouts to connected accounts.
type PayoutService struct {
	payoutRepo   repository.PayoutRepository
	driverRepo   repository.DriverRepository
	fleetRepo    repository.FleetRepository
	gateway      Gateway
	lockStore    redis.LockStoreInterface
	notification *NotificationService
	currency     string
}

// NewPayoutService creates a new PayoutService.
func NewPayoutService(
	payoutRepo repository.PayoutRepository,
	driverRepo repository.DriverRepository,
	fleetRepo repository.FleetRepository,
	gw Gateway,
	lockStore redis.LockStoreInterface,
	notification *NotificationService,
	currency string,
) *PayoutService {
	return &PayoutService{
		payoutRepo:   payoutRepo,
		driverRepo:   driverRepo,
		fleetRepo:    fleetRepo,
		gateway:      gw,
		lockStore:    lockStore,
		notification: notification,
		currency:     currency,
	}
}

// GetPayout retrieves a payout by ID.
func (s *PayoutService) GetPayout(ctx context.Context, payoutID string) (*domain.Payout, error) {
	if payoutID == "" {
		return nil, ErrInvalidPayoutID
	}
	return s.payoutRepo.GetByID(ctx, payoutID)
}

// Disburse transfers a pending payout to the beneficiary's connected
// account. The redis lock rejects concurrent disbursement attempts, the
// conditional status update makes the transfer recordable at most once,
// and a gateway failure leaves the payout pending for retry.
func (s *PayoutService) Disburse(ctx context.Context, payoutID string) (*domain.Payout, error) {
	if payoutID == "" {
		return nil, ErrInvalidPayoutID
	}

	payout, err := s.payoutRepo.GetByID(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if payout.Status == domain.PayoutStatusPaid {
		return nil, ErrPayoutAlreadyPaid
	}

	accountID, err := s.resolveConnectedAccount(ctx, payout)
	if err != nil {
		return nil, err
	}

	if s.lockStore != nil {
		acquired, lockErr := s.lockStore.AcquirePayoutLock(ctx, payout.ID, disburseLockTTL)
		if lockErr != nil {
			log.Printf("payout lock unavailable for %s: %v", payout.ID, lockErr)
		} else if !acquired {
			return nil, ErrPayoutInProgress
		} else {
			defer func() {
				if releaseErr := s.lockStore.ReleasePayoutLock(context.Background(), payout.ID); releaseErr != nil {
					log.Printf("failed to release payout lock for %s: %v", payout.ID, releaseErr)
				}
			}()
		}
	}

	// Re-read under the lock in case another worker finished first.
	payout, err = s.payoutRepo.GetByID(ctx, payout.ID)
	if err != nil {
		return nil, err
	}
	if payout.Status == domain.PayoutStatusPaid {
		return nil, ErrPayoutAlreadyPaid
	}

	transferID, err := s.gateway.CreateTransfer(ctx, minorUnits(payout.Amount), s.currency, accountID, map[string]string{
		"payout_id": payout.ID,
		"trip_id":   payout.TripID,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create transfer: %v", ErrGateway, err)
	}

	now := time.Now()
	if err := s.payoutRepo.MarkPaid(ctx, payout.ID, now, payoutMethodStripeConnect, transferID); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// The transfer went through but someone else recorded payment
			// first. Log the reference so it can be reconciled manually.
			log.Printf("payout %s already marked paid, transfer %s may be duplicate", payout.ID, transferID)
			return nil, ErrPayoutAlreadyPaid
		}
		return nil, err
	}

	payout.Status = domain.PayoutStatusPaid
	payout.PaymentDate = now
	payout.Method = payoutMethodStripeConnect
	payout.ReferenceID = transferID

	if s.notification != nil {
		_ = s.notification.NotifyPayoutPaid(ctx, payout)
	}

	return payout, nil
}

// resolveConnectedAccount returns the Stripe account for the payout's
// beneficiary, fleet taking precedence over driver.
func (s *PayoutService) resolveConnectedAccount(ctx context.Context, payout *domain.Payout) (string, error) {
	if payout.FleetID != "" {
		fleet, err := s.fleetRepo.GetByID(ctx, payout.FleetID)
		if err != nil {
			return "", err
		}
		if fleet.StripeAccountID == "" {
			return "", ErrNoConnectedAccount
		}
		return fleet.StripeAccountID, nil
	}

	if payout.DriverID != "" {
		driver, err := s.driverRepo.GetByID(ctx, payout.DriverID)
		if err != nil {
			return "", err
		}
		if driver.StripeAccountID == "" {
			return "", ErrNoConnectedAccount
		}
		return driver.StripeAccountID, nil
	}

	return "", ErrNoConnectedAccount
}
