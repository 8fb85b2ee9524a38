package models

import "time"

// RequestView is a request with its projected current status and display names.
type RequestView struct {
	Request
	DisplayFolio  string        `json:"display_folio"`
	Status        RequestStatus `json:"status"`
	StatusAt      *time.Time    `json:"status_at,omitempty"`
	AdvisorName   string        `json:"advisor_name"`
	DeletedByName string        `json:"deleted_by_name,omitempty"`
}

// BoardSnapshot is a published working set.
type BoardSnapshot struct {
	Generation  uint64        `json:"generation"`
	Requests    []RequestView `json:"requests"`
	Audit       []AuditEntry  `json:"audit"`
	RefreshedAt time.Time     `json:"refreshed_at"`
	Speculative bool          `json:"speculative"`
}

// BoardQuery scopes one board refresh.
type BoardQuery struct {
	Window  string
	Search  string
	Status  RequestStatus
	Advisor string
}
