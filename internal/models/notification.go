package models

import "time"

// Notification categories.
const (
	NotificationRequestCreated   = "solicitud_creada"
	NotificationRequestDelivered = "solicitud_entregada"
)

// Notification is an in-app inbox entry.
type Notification struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	RequestID string    `db:"request_id" json:"request_id"`
	Title     string    `db:"title" json:"title"`
	Message   string    `db:"message" json:"message"`
	Category  string    `db:"category" json:"category"`
	IsRead    bool      `db:"is_read" json:"is_read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Inbox is the notification panel payload.
type Inbox struct {
	Items       []Notification `json:"items"`
	UnreadCount int            `json:"unread_count"`
}
