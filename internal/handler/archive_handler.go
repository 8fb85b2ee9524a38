package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/BladexZN/dashboard-c/internal/models"
	"github.com/BladexZN/dashboard-c/pkg/response"
)

type archiveSweeper interface {
	Sweep(ctx context.Context, dryRun bool) (*models.ArchiveSweepResult, error)
}

// ArchiveHandler lets directors trigger the retention sweep on demand.
type ArchiveHandler struct {
	service archiveSweeper
}

// NewArchiveHandler constructs the handler.
func NewArchiveHandler(svc archiveSweeper) *ArchiveHandler {
	return &ArchiveHandler{service: svc}
}

// Sweep godoc
// @Summary Archive delivered requests
// @Description Moves requests delivered before the retention window to the trash
// @Tags Archive
// @Produce json
// @Param dry_run query bool false "List folios without archiving"
// @Success 200 {object} response.Envelope
// @Router /archive/sweep [post]
func (h *ArchiveHandler) Sweep(c *gin.Context) {
	dryRun, _ := strconv.ParseBool(c.Query("dry_run"))
	result, err := h.service.Sweep(c.Request.Context(), dryRun)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
