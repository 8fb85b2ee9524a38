package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BladexZN/dashboard-c/internal/dto"
	"github.com/BladexZN/dashboard-c/internal/models"
	"github.com/BladexZN/dashboard-c/pkg/response"
)

type userService interface {
	List(ctx context.Context, query dto.UserQuery) ([]models.UserInfo, error)
	Create(ctx context.Context, req dto.CreateUserRequest, actor *models.JWTClaims) (*models.UserInfo, error)
	SetActive(ctx context.Context, id string, active bool, actor *models.JWTClaims) error
}

// UserHandler handles the team directory.
type UserHandler struct {
	service userService
}

// NewUserHandler creates a new user handler.
func NewUserHandler(svc userService) *UserHandler {
	return &UserHandler{service: svc}
}

// List godoc
// @Summary List users
// @Description Team directory, active users only unless include_inactive is set
// @Tags Users
// @Produce json
// @Param role query string false "Role filter"
// @Param search query string false "Search term"
// @Param include_inactive query bool false "Include inactive users"
// @Success 200 {object} response.Envelope
// @Router /users [get]
func (h *UserHandler) List(c *gin.Context) {
	var query dto.UserQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, bindingError(err, "invalid user query"))
		return
	}
	users, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, nil)
}

// Create godoc
// @Summary Create user
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body dto.CreateUserRequest true "User payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /users [post]
func (h *UserHandler) Create(c *gin.Context) {
	var req dto.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindingError(err, "invalid create user payload"))
		return
	}
	user, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, user)
}

// SetActive godoc
// @Summary Activate or deactivate user
// @Tags Users
// @Accept json
// @Param id path string true "User ID"
// @Param payload body dto.SetActiveRequest true "Active flag"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /users/{id}/active [put]
func (h *UserHandler) SetActive(c *gin.Context) {
	var req dto.SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Active == nil {
		response.Error(c, bindingError(err, "active is required"))
		return
	}
	if err := h.service.SetActive(c.Request.Context(), c.Param("id"), *req.Active, claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
