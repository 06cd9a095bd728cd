package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"tripflow/internal/gateway"
	"tripflow/internal/service"
)

// maxWebhookBodyBytes bounds the webhook payload size.
const maxWebhookBodyBytes = 1 << 20

// WebhookHandler receives and verifies gateway webhook deliveries.
type WebhookHandler struct {
	verifier       *gateway.WebhookVerifier
	webhookService *service.WebhookService
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(verifier *gateway.WebhookVerifier, webhookService *service.WebhookService) *WebhookHandler {
	return &WebhookHandler{
		verifier:       verifier,
		webhookService: webhookService,
	}
}

// HandleStripe handles POST /webhooks/stripe. The signature is checked
// against the raw body before any parsing, and handled events always return
// 200 so the gateway stops redelivering.
func (h *WebhookHandler) HandleStripe(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unreadable body", Kind: "validation"})
		return
	}

	event, err := h.verifier.VerifyAndParse(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, gateway.ErrInvalidSignature) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid signature", Kind: "validation"})
			return
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Kind: "validation"})
		return
	}

	if err := h.webhookService.HandleEvent(c.Request.Context(), event); err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"received": true})
}
