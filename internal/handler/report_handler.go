package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BladexZN/dashboard-c/internal/dto"
	"github.com/BladexZN/dashboard-c/internal/models"
	appErrors "github.com/BladexZN/dashboard-c/pkg/errors"
	"github.com/BladexZN/dashboard-c/pkg/export"
	"github.com/BladexZN/dashboard-c/pkg/response"
)

type reportService interface {
	Summary(ctx context.Context, window string) (*models.ReportSummary, error)
	Export(ctx context.Context, window, format string) ([]byte, string, export.Exporter, error)
}

// ReportHandler exposes lifecycle reports.
type ReportHandler struct {
	service reportService
	enabled bool
}

// NewReportHandler constructs handler. A disabled handler answers 404.
func NewReportHandler(svc reportService, enabled bool) *ReportHandler {
	return &ReportHandler{service: svc, enabled: enabled}
}

// Summary godoc
// @Summary Report summary
// @Description Counts, KPIs, per-advisor and per-product stats and per-request metrics
// @Tags Reports
// @Produce json
// @Param window query string false "today|month|year|YYYY-MM-DD|all"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/summary [get]
func (h *ReportHandler) Summary(c *gin.Context) {
	if !h.available(c) {
		return
	}
	var query dto.ReportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, bindingError(err, "invalid report query"))
		return
	}
	summary, err := h.service.Summary(c.Request.Context(), query.Window)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Export godoc
// @Summary Export detailed report
// @Tags Reports
// @Produce octet-stream
// @Param window query string false "today|month|year|YYYY-MM-DD|all"
// @Param format query string false "csv|pdf|xlsx"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /reports/export [get]
func (h *ReportHandler) Export(c *gin.Context) {
	if !h.available(c) {
		return
	}
	var query dto.ReportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, bindingError(err, "invalid report query"))
		return
	}
	content, filename, exporter, err := h.service.Export(c.Request.Context(), query.Window, query.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	sendFile(c, content, filename, exporter.ContentType())
}

func (h *ReportHandler) available(c *gin.Context) bool {
	if !h.enabled || h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "reports are disabled"))
		return false
	}
	return true
}
