package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/BladexZN/dashboard-c/internal/dto"
	"github.com/BladexZN/dashboard-c/internal/models"
	appErrors "github.com/BladexZN/dashboard-c/pkg/errors"
	"github.com/BladexZN/dashboard-c/pkg/export"
	"github.com/BladexZN/dashboard-c/pkg/response"
)

type auditService interface {
	List(ctx context.Context, limit uint64, before *time.Time) ([]models.AuditEntry, error)
	Export(ctx context.Context, format string, limit uint64) ([]byte, export.Exporter, error)
}

// AuditHandler exposes the status change log.
type AuditHandler struct {
	service auditService
	now     func() time.Time
}

// NewAuditHandler constructs the handler.
func NewAuditHandler(svc auditService) *AuditHandler {
	return &AuditHandler{service: svc, now: time.Now}
}

// List godoc
// @Summary Audit log
// @Description Status changes newest first, with folio and user names
// @Tags Audit
// @Produce json
// @Param limit query int false "Max rows (default 200)"
// @Param before query string false "RFC3339 timestamp to page backwards from"
// @Success 200 {object} response.Envelope
// @Router /audit [get]
func (h *AuditHandler) List(c *gin.Context) {
	var query dto.AuditQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, bindingError(err, "invalid audit query"))
		return
	}
	var before *time.Time
	if query.Before != "" {
		ts, err := time.Parse(time.RFC3339, query.Before)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "before must be RFC3339"))
			return
		}
		before = &ts
	}
	entries, err := h.service.List(c.Request.Context(), query.Limit, before)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Export godoc
// @Summary Export audit log
// @Tags Audit
// @Produce octet-stream
// @Param format query string false "csv|pdf|xlsx"
// @Param limit query int false "Max rows (default 200)"
// @Success 200 {file} file
// @Router /audit/export [get]
func (h *AuditHandler) Export(c *gin.Context) {
	var query dto.AuditQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, bindingError(err, "invalid audit query"))
		return
	}
	content, exporter, err := h.service.Export(c.Request.Context(), c.Query("format"), query.Limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("bitacora_%s.%s", h.now().Format("2006-01-02"), exporter.Extension())
	sendFile(c, content, filename, exporter.ContentType())
}

func sendFile(c *gin.Context, content []byte, filename, contentType string) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, contentType, content)
}
