package dto

import (
	"time"

	"github.com/BladexZN/dashboard-c/internal/models"
)

// CreateRequestRequest captures POST /requests payload.
type CreateRequestRequest struct {
	Client      string                 `json:"client" validate:"required,max=200"`
	Product     string                 `json:"product" validate:"required,max=200"`
	Type        models.RequestType     `json:"type" validate:"required,oneof='Nueva solicitud' 'Corrección/Añadido' Ajuste"`
	Priority    models.RequestPriority `json:"priority" validate:"omitempty,oneof=Alta Media Baja Urgente"`
	Description string                 `json:"description" validate:"max=5000"`
	Brief       string                 `json:"brief" validate:"max=20000"`
	Links       []string               `json:"links" validate:"omitempty,dive,url"`
	AdvisorID   *string                `json:"advisor_id" validate:"omitempty,uuid"`
	BoardNumber *int                   `json:"board_number" validate:"omitempty,min=1,max=4"`
	// CreatedByUserID is set when the request is filed on behalf of a master dashboard user.
	CreatedByUserID *string `json:"created_by_user_id" validate:"omitempty,uuid"`
}

// UpdateRequestRequest captures PUT /requests/:ref payload. Omitted fields are left untouched.
type UpdateRequestRequest struct {
	Client      *string                 `json:"client" validate:"omitempty,min=1,max=200"`
	Product     *string                 `json:"product" validate:"omitempty,min=1,max=200"`
	Type        *models.RequestType     `json:"type" validate:"omitempty,oneof='Nueva solicitud' 'Corrección/Añadido' Ajuste"`
	Priority    *models.RequestPriority `json:"priority" validate:"omitempty,oneof=Alta Media Baja Urgente"`
	Description *string                 `json:"description" validate:"omitempty,max=5000"`
	Brief       *string                 `json:"brief" validate:"omitempty,max=20000"`
	Links       []string                `json:"links" validate:"omitempty,dive,url"`
	AdvisorID   *string                 `json:"advisor_id" validate:"omitempty,uuid"`
	BoardNumber *int                    `json:"board_number" validate:"omitempty,min=1,max=4"`
}

// TransitionRequest captures POST /requests/:ref/status payload.
type TransitionRequest struct {
	Status models.RequestStatus `json:"status" validate:"required"`
	Note   *string              `json:"note" validate:"omitempty,max=500"`
}

// TransitionResult reports the outcome of a status change.
type TransitionResult struct {
	RequestID      string               `json:"request_id"`
	Folio          string               `json:"folio"`
	PreviousStatus models.RequestStatus `json:"previous_status"`
	Status         models.RequestStatus `json:"status"`
	Changed        bool                 `json:"changed"`
	Event          *models.StatusEvent  `json:"event,omitempty"`
}

// AttachmentUpload describes one uploaded file handed to the request service.
type AttachmentUpload struct {
	Name    string
	Size    int64
	Content []byte
	Final   bool
}

// DownloadLink is a signed, expiring attachment URL.
type DownloadLink struct {
	URL       string    `json:"url"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TrashQuery captures GET /requests/trash params.
type TrashQuery struct {
	Limit int `form:"limit" validate:"omitempty,min=1,max=500"`
}
