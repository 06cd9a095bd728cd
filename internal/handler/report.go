package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tripflow/internal/service"
)

// ReportHandler handles HTTP requests for financial reports.
type ReportHandler struct {
	reportService *service.ReportService
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reportService *service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// Financial handles GET /v1/reports/financial?from=...&to=...
// Bounds are RFC3339 and both are optional.
func (h *ReportHandler) Financial(c *gin.Context) {
	var from, to time.Time
	var err error

	if raw := c.Query("from"); raw != "" {
		from, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "from must be RFC3339", Kind: "validation"})
			return
		}
	}
	if raw := c.Query("to"); raw != "" {
		to, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "to must be RFC3339", Kind: "validation"})
			return
		}
	}

	report, err := h.reportService.Financial(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, report)
}
