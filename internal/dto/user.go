package dto

import "github.com/BladexZN/dashboard-c/internal/models"

// UserQuery captures GET /users params.
type UserQuery struct {
	Role            models.UserRole `form:"role" validate:"omitempty,oneof=Productor Dirección Diseñador Asesor"`
	Search          string          `form:"search" validate:"max=100"`
	IncludeInactive bool            `form:"include_inactive"`
}

// CreateUserRequest captures POST /users payload.
type CreateUserRequest struct {
	Email    string          `json:"email" validate:"required,email"`
	FullName string          `json:"full_name" validate:"required,min=2,max=120"`
	Role     models.UserRole `json:"role" validate:"required,oneof=Productor Dirección Diseñador Asesor"`
	Password string          `json:"password" validate:"required,min=8"`
}

// SetActiveRequest captures PUT /users/:id/active payload.
type SetActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}
