package models

import "time"

// UserRole is the team role of a dashboard user.
type UserRole string

const (
	RoleProducer UserRole = "Productor"
	RoleDirector UserRole = "Dirección"
	RoleDesigner UserRole = "Diseñador"
	RoleAdvisor  UserRole = "Asesor"
)

// ProductionRoles receive new-request notifications.
var ProductionRoles = []UserRole{RoleProducer, RoleDirector}

// User represents an application user stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	Active       bool       `db:"active" json:"active"`
	AvatarURL    *string    `db:"avatar_url" json:"avatar_url,omitempty"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// UserFilter narrows the team directory.
type UserFilter struct {
	Role       UserRole
	ActiveOnly bool
	Search     string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
