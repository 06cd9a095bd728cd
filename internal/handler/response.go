package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tripflow/internal/repository"
	"tripflow/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code, kind := classifyError(err)
	c.JSON(code, ErrorResponse{Error: err.Error(), Kind: kind})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// classifyError maps service/repository errors to an HTTP status and a
// machine-readable error kind.
func classifyError(err error) (int, string) {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidTripID),
		errors.Is(err, service.ErrInvalidDriverID),
		errors.Is(err, service.ErrInvalidFleetID),
		errors.Is(err, service.ErrInvalidPaymentID),
		errors.Is(err, service.ErrInvalidPayoutID),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidCancelReason):
		return http.StatusBadRequest, "validation"

	// State conflicts - a transition precondition failed or was lost to a
	// concurrent writer
	case errors.Is(err, service.ErrTripAlreadyClaimed),
		errors.Is(err, service.ErrTripNotPublished),
		errors.Is(err, service.ErrTripNotClaimed),
		errors.Is(err, service.ErrTripNotInProgress),
		errors.Is(err, service.ErrTripNotCancelable),
		errors.Is(err, service.ErrTripNotRefundable),
		errors.Is(err, service.ErrTripNotCompleted),
		errors.Is(err, service.ErrTripNotDraft),
		errors.Is(err, service.ErrTripNotAwaitingPayment),
		errors.Is(err, service.ErrPaymentNotPaid),
		errors.Is(err, service.ErrPayoutAlreadyPaid),
		errors.Is(err, service.ErrPayoutInProgress),
		errors.Is(err, repository.ErrConflict):
		return http.StatusConflict, "state_conflict"

	// Authorization errors
	case errors.Is(err, service.ErrNotTripDriver),
		errors.Is(err, service.ErrDriverNotVerified):
		return http.StatusForbidden, "authorization"

	// Missing prerequisites on the caller's side
	case errors.Is(err, service.ErrNoConnectedAccount):
		return http.StatusUnprocessableEntity, "precondition"

	// Upstream gateway failures
	case errors.Is(err, service.ErrGateway):
		return http.StatusBadGateway, "external"

	// Default to internal server error
	default:
		return http.StatusInternalServerError, "internal"
	}
}
