package service

import (
	"context"
	"fmt"

	"tripflow/internal/repository"
)

// ConnectService onboards drivers and fleets onto the gateway's connected
// account program so payout transfers have somewhere to land.
type ConnectService struct {
	driverRepo repository.DriverRepository
	fleetRepo  repository.FleetRepository
	gateway    Gateway

	country    string
	appBaseURL string
}

// NewConnectService creates a new ConnectService.
func NewConnectService(driverRepo repository.DriverRepository, fleetRepo repository.FleetRepository, gw Gateway, country, appBaseURL string) *ConnectService {
	return &ConnectService{
		driverRepo: driverRepo,
		fleetRepo:  fleetRepo,
		gateway:    gw,
		country:    country,
		appBaseURL: appBaseURL,
	}
}

// OnboardingLink is the result of an onboarding request.
type OnboardingLink struct {
	AccountID string `json:"account_id"`
	URL       string `json:"url"`
}

// OnboardDriver ensures the driver has a connected account and returns a
// fresh onboarding link. The account id is persisted before the link call
// so a failure there never strands an orphaned account.
func (s *ConnectService) OnboardDriver(ctx context.Context, driverID string) (*OnboardingLink, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	driver, err := s.driverRepo.GetByID(ctx, driverID)
	if err != nil {
		return nil, err
	}

	accountID := driver.StripeAccountID
	if accountID == "" {
		accountID, err = s.gateway.CreateConnectedAccount(ctx, s.country, driver.Email, "individual", map[string]string{
			"entity_type": "driver",
			"entity_id":   driver.ID,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: create connected account: %v", ErrGateway, err)
		}

		if err := s.driverRepo.SetStripeAccountID(ctx, driver.ID, accountID); err != nil {
			return nil, err
		}
	}

	return s.onboardingLink(ctx, accountID, "drivers", driver.ID)
}

// OnboardFleet ensures the fleet has a connected account and returns a
// fresh onboarding link.
func (s *ConnectService) OnboardFleet(ctx context.Context, fleetID string) (*OnboardingLink, error) {
	if fleetID == "" {
		return nil, ErrInvalidFleetID
	}

	fleet, err := s.fleetRepo.GetByID(ctx, fleetID)
	if err != nil {
		return nil, err
	}

	accountID := fleet.StripeAccountID
	if accountID == "" {
		accountID, err = s.gateway.CreateConnectedAccount(ctx, s.country, fleet.ContactEmail, "company", map[string]string{
			"entity_type": "fleet",
			"entity_id":   fleet.ID,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: create connected account: %v", ErrGateway, err)
		}

		if err := s.fleetRepo.SetStripeAccountID(ctx, fleet.ID, accountID); err != nil {
			return nil, err
		}
	}

	return s.onboardingLink(ctx, accountID, "fleets", fleet.ID)
}

func (s *ConnectService) onboardingLink(ctx context.Context, accountID, kind, entityID string) (*OnboardingLink, error) {
	refreshURL := fmt.Sprintf("%s/%s/%s/onboarding/refresh", s.appBaseURL, kind, entityID)
	returnURL := fmt.Sprintf("%s/%s/%s/onboarding/complete", s.appBaseURL, kind, entityID)

	url, err := s.gateway.CreateAccountOnboardingLink(ctx, accountID, refreshURL, returnURL)
	if err != nil {
		return nil, fmt.Errorf("%w: create onboarding link: %v", ErrGateway, err)
	}

	return &OnboardingLink{AccountID: accountID, URL: url}, nil
}
