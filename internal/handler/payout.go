package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tripflow/internal/domain"
	"tripflow/internal/service"
)

// PayoutHandler handles HTTP requests for payouts.
type PayoutHandler struct {
	payoutService *service.PayoutService
}

// NewPayoutHandler creates a new PayoutHandler.
func NewPayoutHandler(payoutService *service.PayoutService) *PayoutHandler {
	return &PayoutHandler{payoutService: payoutService}
}

// PayoutResponse is the HTTP response for payout operations.
type PayoutResponse struct {
	PayoutID    string  `json:"payout_id"`
	TripID      string  `json:"trip_id"`
	DriverID    string  `json:"driver_id,omitempty"`
	FleetID     string  `json:"fleet_id,omitempty"`
	Amount      float64 `json:"amount"`
	Status      string  `json:"status"`
	Method      string  `json:"method,omitempty"`
	ReferenceID string  `json:"reference_id,omitempty"`
	InvoiceID   string  `json:"invoice_id,omitempty"`
	PaymentDate string  `json:"payment_date,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

func toPayoutResponse(payout *domain.Payout) PayoutResponse {
	resp := PayoutResponse{
		PayoutID:    payout.ID,
		TripID:      payout.TripID,
		DriverID:    payout.DriverID,
		FleetID:     payout.FleetID,
		Amount:      payout.Amount,
		Status:      string(payout.Status),
		Method:      payout.Method,
		ReferenceID: payout.ReferenceID,
		InvoiceID:   payout.InvoiceID,
		CreatedAt:   payout.CreatedAt.Format(time.RFC3339),
	}
	if !payout.PaymentDate.IsZero() {
		resp.PaymentDate = payout.PaymentDate.Format(time.RFC3339)
	}
	return resp
}

// GetPayout handles GET /v1/payouts/:id
func (h *PayoutHandler) GetPayout(c *gin.Context) {
	payout, err := h.payoutService.GetPayout(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPayoutResponse(payout))
}

// Disburse handles POST /v1/payouts/:id/disburse
func (h *PayoutHandler) Disburse(c *gin.Context) {
	payout, err := h.payoutService.Disburse(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPayoutResponse(payout))
}
