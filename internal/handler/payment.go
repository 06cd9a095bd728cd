package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tripflow/internal/domain"
	"tripflow/internal/service"
)

// PaymentHandler handles HTTP requests for payments.
type PaymentHandler struct {
	paymentService *service.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// InitiatePaymentRequest is the HTTP request body for initiating a payment.
type InitiatePaymentRequest struct {
	TripID string `json:"trip_id" binding:"required"`
	Method string `json:"method"`
}

// ConfirmPaymentRequest is the HTTP request body for confirming a payment.
// One of payment_id or trip_id must be provided.
type ConfirmPaymentRequest struct {
	PaymentID string `json:"payment_id"`
	TripID    string `json:"trip_id"`
}

// PaymentResponse is the HTTP response for payment operations.
type PaymentResponse struct {
	PaymentID        string  `json:"payment_id"`
	TripID           string  `json:"trip_id"`
	Amount           float64 `json:"amount"`
	Method           string  `json:"method"`
	Status           string  `json:"status"`
	GatewayPaymentID string  `json:"gateway_payment_id,omitempty"`
	PaidAt           string  `json:"paid_at,omitempty"`
	RefundedAt       string  `json:"refunded_at,omitempty"`
	CreatedAt        string  `json:"created_at"`
}

func toPaymentResponse(payment *domain.Payment) PaymentResponse {
	resp := PaymentResponse{
		PaymentID:        payment.ID,
		TripID:           payment.TripID,
		Amount:           payment.Amount,
		Method:           string(payment.Method),
		Status:           string(payment.Status),
		GatewayPaymentID: payment.GatewayPaymentID,
		CreatedAt:        payment.CreatedAt.Format(time.RFC3339),
	}
	if !payment.PaidAt.IsZero() {
		resp.PaidAt = payment.PaidAt.Format(time.RFC3339)
	}
	if !payment.RefundedAt.IsZero() {
		resp.RefundedAt = payment.RefundedAt.Format(time.RFC3339)
	}
	return resp
}

// InitiatePayment handles POST /v1/payments
func (h *PaymentHandler) InitiatePayment(c *gin.Context) {
	var req InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Kind: "validation"})
		return
	}

	payment, err := h.paymentService.InitiatePayment(c.Request.Context(), service.InitiatePaymentRequest{
		TripID: req.TripID,
		Method: domain.PaymentMethod(req.Method),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toPaymentResponse(payment))
}

// ConfirmPayment handles POST /v1/payments/confirm
func (h *PaymentHandler) ConfirmPayment(c *gin.Context) {
	var req ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Kind: "validation"})
		return
	}

	payment, err := h.paymentService.ConfirmPayment(c.Request.Context(), service.ConfirmPaymentRequest{
		PaymentID: req.PaymentID,
		TripID:    req.TripID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPaymentResponse(payment))
}

// GetPayment handles GET /v1/payments/:id
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	payment, err := h.paymentService.GetPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPaymentResponse(payment))
}
