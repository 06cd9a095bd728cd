package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tripflow/internal/domain"
	"tripflow/internal/service"
)

// TripHandler handles HTTP requests for trips.
type TripHandler struct {
	tripService *service.TripService
}

// NewTripHandler creates a new TripHandler.
func NewTripHandler(tripService *service.TripService) *TripHandler {
	return &TripHandler{tripService: tripService}
}

// CreateTripRequest is the HTTP request body for creating a trip.
type CreateTripRequest struct {
	CustomerName    string  `json:"customer_name" binding:"required"`
	CustomerPhone   string  `json:"customer_phone"`
	CustomerEmail   string  `json:"customer_email"`
	OriginText      string  `json:"origin" binding:"required"`
	DestinationText string  `json:"destination" binding:"required"`
	PickupAt        string  `json:"pickup_at" binding:"required"`
	Passengers      int     `json:"passengers"`
	Luggage         int     `json:"luggage"`
	Notes           string  `json:"notes"`
	PriceCustomer   float64 `json:"price_customer" binding:"required"`
	PayoutDriver    float64 `json:"payout_driver" binding:"required"`
	EstimatedCosts  float64 `json:"estimated_costs"`
	FleetID         string  `json:"fleet_id"`
	SupplierID      string  `json:"supplier_id"`
}

// ClaimTripRequest is the HTTP request body for claiming a trip.
type ClaimTripRequest struct {
	DriverID string `json:"driver_id" binding:"required"`
}

// DriverActionRequest is the HTTP request body for start/complete actions.
type DriverActionRequest struct {
	DriverID string `json:"driver_id" binding:"required"`
}

// CancelTripRequest is the HTTP request body for canceling a trip.
type CancelTripRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// TripResponse is the HTTP response for trip operations.
type TripResponse struct {
	TripID          string  `json:"trip_id"`
	Status          string  `json:"status"`
	CustomerName    string  `json:"customer_name"`
	Origin          string  `json:"origin"`
	Destination     string  `json:"destination"`
	PickupAt        string  `json:"pickup_at"`
	Passengers      int     `json:"passengers,omitempty"`
	Luggage         int     `json:"luggage,omitempty"`
	PriceCustomer   float64 `json:"price_customer"`
	PayoutDriver    float64 `json:"payout_driver"`
	EstimatedCosts  float64 `json:"estimated_costs,omitempty"`
	Margin          float64 `json:"margin"`
	DriverID        string  `json:"driver_id,omitempty"`
	FleetID         string  `json:"fleet_id,omitempty"`
	SupplierID      string  `json:"supplier_id,omitempty"`
	ClaimedAt       string  `json:"claimed_at,omitempty"`
	StartedAt       string  `json:"started_at,omitempty"`
	CompletedAt     string  `json:"completed_at,omitempty"`
	CanceledAt      string  `json:"canceled_at,omitempty"`
	CancelReason    string  `json:"cancel_reason,omitempty"`
	CreatedAt       string  `json:"created_at"`
}

// SettlementInfo contains settlement details in the response.
type SettlementInfo struct {
	PayoutID    string  `json:"payout_id"`
	Beneficiary string  `json:"beneficiary"`
	Amount      float64 `json:"amount"`
	InvoiceID   string  `json:"invoice_id,omitempty"`
	InvoiceURL  string  `json:"invoice_url,omitempty"`
}

// CompleteTripResponse is the HTTP response for trip completion.
type CompleteTripResponse struct {
	Trip       TripResponse    `json:"trip"`
	Settlement *SettlementInfo `json:"settlement,omitempty"`
	Warning    string          `json:"warning,omitempty"`
}

func toTripResponse(trip *domain.Trip) TripResponse {
	resp := TripResponse{
		TripID:         trip.ID,
		Status:         string(trip.Status),
		CustomerName:   trip.CustomerName,
		Origin:         trip.OriginText,
		Destination:    trip.DestinationText,
		PickupAt:       trip.PickupAt.Format(time.RFC3339),
		Passengers:     trip.Passengers,
		Luggage:        trip.Luggage,
		PriceCustomer:  trip.PriceCustomer,
		PayoutDriver:   trip.PayoutDriver,
		EstimatedCosts: trip.EstimatedCosts,
		Margin:         trip.Margin(),
		DriverID:       trip.DriverID,
		FleetID:        trip.FleetID,
		SupplierID:     trip.SupplierID,
		CancelReason:   trip.CancelReason,
		CreatedAt:      trip.CreatedAt.Format(time.RFC3339),
	}
	if !trip.ClaimedAt.IsZero() {
		resp.ClaimedAt = trip.ClaimedAt.Format(time.RFC3339)
	}
	if !trip.StartedAt.IsZero() {
		resp.StartedAt = trip.StartedAt.Format(time.RFC3339)
	}
	if !trip.CompletedAt.IsZero() {
		resp.CompletedAt = trip.CompletedAt.Format(time.RFC3339)
	}
	if !trip.CanceledAt.IsZero() {
		resp.CanceledAt = trip.CanceledAt.Format(time.RFC3339)
	}
	return resp
}

func toSettlementInfo(result *service.SettlementResult) *SettlementInfo {
	if result == nil || result.Payout == nil {
		return nil
	}
	beneficiary := result.Payout.DriverID
	if result.Payout.FleetID != "" {
		beneficiary = result.Payout.FleetID
	}
	return &SettlementInfo{
		PayoutID:    result.Payout.ID,
		Beneficiary: beneficiary,
		Amount:      result.Payout.Amount,
		InvoiceID:   result.InvoiceID,
		InvoiceURL:  result.InvoiceURL,
	}
}

// CreateTrip handles POST /v1/trips
func (h *TripHandler) CreateTrip(c *gin.Context) {
	var req CreateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Kind: "validation"})
		return
	}

	pickupAt, err := time.Parse(time.RFC3339, req.PickupAt)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "pickup_at must be RFC3339", Kind: "validation"})
		return
	}

	trip, err := h.tripService.CreateTrip(c.Request.Context(), service.CreateTripRequest{
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		CustomerEmail:   req.CustomerEmail,
		OriginText:      req.OriginText,
		DestinationText: req.DestinationText,
		PickupAt:        pickupAt,
		Passengers:      req.Passengers,
		Luggage:         req.Luggage,
		Notes:           req.Notes,
		PriceCustomer:   req.PriceCustomer,
		PayoutDriver:    req.PayoutDriver,
		EstimatedCosts:  req.EstimatedCosts,
		FleetID:         req.FleetID,
		SupplierID:      req.SupplierID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toTripResponse(trip))
}

// GetTrip handles GET /v1/trips/:id
func (h *TripHandler) GetTrip(c *gin.Context) {
	trip, err := h.tripService.GetTrip(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

// ListAvailableTrips handles GET /v1/trips/available
func (h *TripHandler) ListAvailableTrips(c *gin.Context) {
	trips, err := h.tripService.ListAvailableTrips(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]TripResponse, 0, len(trips))
	for _, trip := range trips {
		responses = append(responses, toTripResponse(trip))
	}

	respondJSON(c, http.StatusOK, gin.H{"trips": responses})
}

// ClaimTrip handles POST /v1/trips/:id/claim
func (h *TripHandler) ClaimTrip(c *gin.Context) {
	var req ClaimTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Kind: "validation"})
		return
	}

	trip, err := h.tripService.ClaimTrip(c.Request.Context(), service.ClaimTripRequest{
		TripID:   c.Param("id"),
		DriverID: req.DriverID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

// StartTrip handles POST /v1/trips/:id/start
func (h *TripHandler) StartTrip(c *gin.Context) {
	var req DriverActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Kind: "validation"})
		return
	}

	trip, err := h.tripService.StartTrip(c.Request.Context(), service.StartTripRequest{
		TripID:   c.Param("id"),
		DriverID: req.DriverID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

// CompleteTrip handles POST /v1/trips/:id/complete
func (h *TripHandler) CompleteTrip(c *gin.Context) {
	var req DriverActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Kind: "validation"})
		return
	}

	result, err := h.tripService.CompleteTrip(c.Request.Context(), service.CompleteTripRequest{
		TripID:   c.Param("id"),
		DriverID: req.DriverID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	response := CompleteTripResponse{
		Trip:       toTripResponse(result.Trip),
		Settlement: toSettlementInfo(result.Settlement),
	}
	if result.Warning != nil {
		response.Warning = result.Warning.Error()
	}

	respondJSON(c, http.StatusOK, response)
}

// RetrySettlement handles POST /v1/trips/:id/settle
func (h *TripHandler) RetrySettlement(c *gin.Context) {
	result, err := h.tripService.RetrySettlement(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"settlement": toSettlementInfo(result)})
}

// CancelTrip handles POST /v1/trips/:id/cancel
func (h *TripHandler) CancelTrip(c *gin.Context) {
	var req CancelTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Kind: "validation"})
		return
	}

	trip, err := h.tripService.CancelTrip(c.Request.Context(), service.CancelTripRequest{
		TripID: c.Param("id"),
		Reason: req.Reason,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

// RefundTrip handles POST /v1/trips/:id/refund
func (h *TripHandler) RefundTrip(c *gin.Context) {
	trip, err := h.tripService.RefundTrip(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTripResponse(trip))
}
