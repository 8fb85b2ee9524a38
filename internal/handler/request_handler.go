package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BladexZN/dashboard-c/internal/dto"
	"github.com/BladexZN/dashboard-c/internal/middleware"
	"github.com/BladexZN/dashboard-c/internal/models"
	"github.com/BladexZN/dashboard-c/pkg/response"
)

type requestService interface {
	Get(ctx context.Context, ref string) (*models.RequestView, error)
	Events(ctx context.Context, ref string) ([]models.StatusEvent, error)
	Update(ctx context.Context, ref string, payload dto.UpdateRequestRequest) (*models.RequestView, error)
	SoftDelete(ctx context.Context, ref string, actor *models.JWTClaims) error
	Restore(ctx context.Context, ref string) (*models.RequestView, error)
	Trash(ctx context.Context, limit int) ([]models.TrashItem, error)
}

type transitionService interface {
	Create(ctx context.Context, payload dto.CreateRequestRequest, actor *models.JWTClaims) (*models.RequestView, error)
	Transition(ctx context.Context, ref string, payload dto.TransitionRequest, actor *models.JWTClaims) (*dto.TransitionResult, error)
}

// RequestHandler exposes request CRUD, trash and status transitions.
type RequestHandler struct {
	requests    requestService
	transitions transitionService
	sessions    func(userID string) BoardSession
}

// NewRequestHandler constructs the handler.
func NewRequestHandler(requests requestService, transitions transitionService, sessions func(userID string) BoardSession) *RequestHandler {
	return &RequestHandler{requests: requests, transitions: transitions, sessions: sessions}
}

// Create godoc
// @Summary Create request
// @Description Stores the request with its first Pendiente event and notifies production
// @Tags Requests
// @Accept json
// @Produce json
// @Param payload body dto.CreateRequestRequest true "Request payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /requests [post]
func (h *RequestHandler) Create(c *gin.Context) {
	var payload dto.CreateRequestRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, bindingError(err, "invalid request payload"))
		return
	}
	view, err := h.transitions.Create(c.Request.Context(), payload, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, view)
}

// Get godoc
// @Summary Get request
// @Tags Requests
// @Produce json
// @Param ref path string true "Request id or folio (#REQ-12)"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /requests/{ref} [get]
func (h *RequestHandler) Get(c *gin.Context) {
	view, err := h.requests.Get(c.Request.Context(), c.Param("ref"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Update godoc
// @Summary Edit request fields
// @Description Field edits never change the status
// @Tags Requests
// @Accept json
// @Produce json
// @Param ref path string true "Request id or folio"
// @Param payload body dto.UpdateRequestRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /requests/{ref} [put]
func (h *RequestHandler) Update(c *gin.Context) {
	var payload dto.UpdateRequestRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, bindingError(err, "invalid request payload"))
		return
	}
	view, err := h.requests.Update(c.Request.Context(), c.Param("ref"), payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Events godoc
// @Summary Status history
// @Tags Requests
// @Produce json
// @Param ref path string true "Request id or folio"
// @Success 200 {object} response.Envelope
// @Router /requests/{ref}/events [get]
func (h *RequestHandler) Events(c *gin.Context) {
	events, err := h.requests.Events(c.Request.Context(), c.Param("ref"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if events == nil {
		events = []models.StatusEvent{}
	}
	response.JSON(c, http.StatusOK, events, nil)
}

// Transition godoc
// @Summary Change request status
// @Description Shows the new status on the caller's board immediately and reverts it if the change is not recorded
// @Tags Requests
// @Accept json
// @Produce json
// @Param ref path string true "Request id or folio"
// @Param payload body dto.TransitionRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /requests/{ref}/status [post]
func (h *RequestHandler) Transition(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var payload dto.TransitionRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, bindingError(err, "invalid transition payload"))
		return
	}

	ref := c.Param("ref")
	session := h.sessions(claims.UserID)
	revert := session.Speculate(ref, payload.Status)

	result, err := h.transitions.Transition(c.Request.Context(), ref, payload, claims)
	if err != nil {
		revert()
		response.Error(c, err)
		return
	}

	if snapshot, stale, err := session.Reload(c.Request.Context()); err == nil {
		response.Snapshot(c, result, response.SnapshotMeta{Generation: snapshot.Generation, Stale: stale}, middleware.ExtractMeta(c))
		return
	}
	response.JSON(c, http.StatusOK, result, nil, middleware.ExtractMeta(c))
}

// Delete godoc
// @Summary Move request to trash
// @Tags Requests
// @Param ref path string true "Request id or folio"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /requests/{ref} [delete]
func (h *RequestHandler) Delete(c *gin.Context) {
	if err := h.requests.SoftDelete(c.Request.Context(), c.Param("ref"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Restore godoc
// @Summary Restore request from trash
// @Tags Requests
// @Produce json
// @Param ref path string true "Request id or folio"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /requests/{ref}/restore [post]
func (h *RequestHandler) Restore(c *gin.Context) {
	view, err := h.requests.Restore(c.Request.Context(), c.Param("ref"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Trash godoc
// @Summary List deleted requests
// @Tags Requests
// @Produce json
// @Param limit query int false "Max rows (default 500)"
// @Success 200 {object} response.Envelope
// @Router /requests/trash [get]
func (h *RequestHandler) Trash(c *gin.Context) {
	var query dto.TrashQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, bindingError(err, "invalid trash query"))
		return
	}
	items, err := h.requests.Trash(c.Request.Context(), query.Limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	if items == nil {
		items = []models.TrashItem{}
	}
	response.JSON(c, http.StatusOK, items, nil)
}
