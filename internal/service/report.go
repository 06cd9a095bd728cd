package service

import (
	"context"
	"time"

	"tripflow/internal/repository"
)

// FinancialReport summarizes completed-trip economics for a period.
type FinancialReport struct {
	From           time.Time `json:"from"`
	To             time.Time `json:"to"`
	CompletedTrips int       `json:"completed_trips"`
	Revenue        float64   `json:"revenue"`
	DriverPayouts  float64   `json:"driver_payouts"`
	EstimatedCosts float64   `json:"estimated_costs"`
	DisbursedTotal float64   `json:"disbursed_total"`
	Margin         float64   `json:"margin"`
}

// ReportService aggregates financials across trips and payouts.
type ReportService struct {
	tripRepo   repository.TripRepository
	payoutRepo repository.PayoutRepository
}

// NewReportService creates a new ReportService.
func NewReportService(tripRepo repository.TripRepository, payoutRepo repository.PayoutRepository) *ReportService {
	return &ReportService{
		tripRepo:   tripRepo,
		payoutRepo: payoutRepo,
	}
}

// Financial builds the report for trips completed in [from, to). A zero `to`
// defaults to now, a zero `from` covers the preceding 30 days.
func (s *ReportService) Financial(ctx context.Context, from, to time.Time) (*FinancialReport, error) {
	if to.IsZero() {
		to = time.Now()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}

	revenue, payouts, costs, trips, err := s.tripRepo.SumFinancials(ctx, from, to)
	if err != nil {
		return nil, err
	}

	disbursed, err := s.payoutRepo.SumPaid(ctx, from, to)
	if err != nil {
		return nil, err
	}

	return &FinancialReport{
		From:           from,
		To:             to,
		CompletedTrips: trips,
		Revenue:        revenue,
		DriverPayouts:  payouts,
		EstimatedCosts: costs,
		DisbursedTotal: disbursed,
		Margin:         revenue - payouts - costs,
	}, nil
}
