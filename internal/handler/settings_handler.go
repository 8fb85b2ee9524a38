package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BladexZN/dashboard-c/internal/dto"
	"github.com/BladexZN/dashboard-c/pkg/response"
)

type settingsService interface {
	List(ctx context.Context, userID string) ([]dto.SettingItem, error)
	Set(ctx context.Context, userID, key string, value bool) (*dto.SettingItem, error)
}

// SettingsHandler exposes per-user notification toggles.
type SettingsHandler struct {
	service settingsService
}

// NewSettingsHandler constructs the handler.
func NewSettingsHandler(svc settingsService) *SettingsHandler {
	return &SettingsHandler{service: svc}
}

// List godoc
// @Summary List settings
// @Tags Settings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /settings [get]
func (h *SettingsHandler) List(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	items, err := h.service.List(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Update godoc
// @Summary Update setting
// @Tags Settings
// @Accept json
// @Produce json
// @Param key path string true "notify_production or notify_advisor"
// @Param payload body dto.UpdateSettingRequest true "New value"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /settings/{key} [put]
func (h *SettingsHandler) Update(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var req dto.UpdateSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Value == nil {
		response.Error(c, bindingError(err, "value is required"))
		return
	}
	item, err := h.service.Set(c.Request.Context(), claims.UserID, c.Param("key"), *req.Value)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}
