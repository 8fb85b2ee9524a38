package models

import "time"

// RequestStatus is a position in the production pipeline.
type RequestStatus string

const (
	StatusPending      RequestStatus = "Pendiente"
	StatusInProduction RequestStatus = "En Producción"
	StatusCorrection   RequestStatus = "Corrección"
	StatusDelivered    RequestStatus = "Entregado"
)

// CreationNote marks the first event appended together with a new request.
const CreationNote = "created"

// Valid reports whether s is one of the pipeline statuses.
func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProduction, StatusCorrection, StatusDelivered:
		return true
	}
	return false
}

// StatusEvent is one immutable entry in a request's status log. Seq is a
// database sequence used only to order events sharing a timestamp.
type StatusEvent struct {
	ID        string        `db:"id" json:"id"`
	Seq       int64         `db:"seq" json:"seq"`
	RequestID string        `db:"request_id" json:"request_id"`
	Status    RequestStatus `db:"status" json:"status"`
	UserID    *string       `db:"user_id" json:"user_id,omitempty"`
	Timestamp time.Time     `db:"occurred_at" json:"timestamp"`
	Note      *string       `db:"note" json:"note,omitempty"`
}
