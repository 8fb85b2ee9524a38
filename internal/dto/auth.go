package dto

// UpdateProfileRequest captures PUT /auth/me payload.
type UpdateProfileRequest struct {
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"full_name" validate:"required,min=2,max=120"`
}
