package models

import "time"

// AuditEntry is one status event rendered for the audit log.
type AuditEntry struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Folio     string        `json:"folio"`
	RequestID string        `json:"request_id"`
	User      string        `json:"user"`
	Status    RequestStatus `json:"status"`
	Action    string        `json:"action"`
}

// AuditRow is a status event joined with its request folio and actor name.
type AuditRow struct {
	StatusEvent
	Folio    *int64  `db:"folio"`
	UserName *string `db:"user_name"`
}
