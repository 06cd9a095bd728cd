package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tripflow/internal/service"
)

// ConnectHandler handles HTTP requests for connected account onboarding.
type ConnectHandler struct {
	connectService *service.ConnectService
}

// NewConnectHandler creates a new ConnectHandler.
func NewConnectHandler(connectService *service.ConnectService) *ConnectHandler {
	return &ConnectHandler{connectService: connectService}
}

// OnboardRequest is the HTTP request body for onboarding.
type OnboardRequest struct {
	DriverID string `json:"driver_id"`
	FleetID  string `json:"fleet_id"`
}

// Onboard handles POST /v1/connect/onboard. Exactly one of driver_id or
// fleet_id must be set.
func (h *ConnectHandler) Onboard(c *gin.Context) {
	var req OnboardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Kind: "validation"})
		return
	}

	if (req.DriverID == "") == (req.FleetID == "") {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "exactly one of driver_id or fleet_id is required", Kind: "validation"})
		return
	}

	var (
		link *service.OnboardingLink
		err  error
	)
	if req.DriverID != "" {
		link, err = h.connectService.OnboardDriver(c.Request.Context(), req.DriverID)
	} else {
		link, err = h.connectService.OnboardFleet(c.Request.Context(), req.FleetID)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, link)
}
