package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/BladexZN/dashboard-c/internal/middleware"
	"github.com/BladexZN/dashboard-c/internal/models"
	appErrors "github.com/BladexZN/dashboard-c/pkg/errors"
	"github.com/BladexZN/dashboard-c/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, _ := middleware.CurrentUser(c)
	return claims
}

// requireClaims writes 401 and returns false when the route ran without JWT.
func requireClaims(c *gin.Context) (*models.JWTClaims, bool) {
	claims, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil, false
	}
	return claims, true
}

func bindingError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}
