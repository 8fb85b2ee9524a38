package dto

import "github.com/BladexZN/dashboard-c/internal/models"

// BoardQuery captures GET /requests/board params.
type BoardQuery struct {
	Window  string               `form:"window"`
	Search  string               `form:"search" validate:"max=200"`
	Status  models.RequestStatus `form:"status"`
	Advisor string               `form:"advisor"`
}

// BoardResponse wraps the published snapshot with its derived counters.
type BoardResponse struct {
	Snapshot models.BoardSnapshot   `json:"snapshot"`
	Counts   models.DashboardCounts `json:"counts"`
	Stale    bool                   `json:"stale"`
}

// AuditQuery captures GET /audit params.
type AuditQuery struct {
	Limit  uint64 `form:"limit" validate:"omitempty,min=1,max=1000"`
	Before string `form:"before"`
}
