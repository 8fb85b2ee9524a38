package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/BladexZN/dashboard-c/internal/models"
)

const selectUser = `SELECT id, email, password_hash, full_name, role, active, avatar_url, last_login, created_at, updated_at FROM users`

// UserRepository provides database access for users.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail returns a user by email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.GetContext(ctx, &user, selectUser+` WHERE LOWER(email) = LOWER($1) LIMIT 1`, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.GetContext(ctx, &user, selectUser+` WHERE id = $1 LIMIT 1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// ListAll returns every user, used to resolve display names.
func (r *UserRepository) ListAll(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, selectUser+` ORDER BY full_name ASC`); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// List returns users matching the filter ordered by name.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, error) {
	builder := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Select("id", "email", "password_hash", "full_name", "role", "active", "avatar_url", "last_login", "created_at", "updated_at").
		From("users").
		OrderBy("full_name ASC")
	if filter.Role != "" {
		builder = builder.Where(sq.Eq{"role": string(filter.Role)})
	}
	if filter.ActiveOnly {
		builder = builder.Where(sq.Eq{"active": true})
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		builder = builder.Where(sq.Or{sq.ILike{"full_name": pattern}, sq.ILike{"email": pattern}})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list users query: %w", err)
	}
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// ListActiveByRoles returns active users holding any of roles.
func (r *UserRepository) ListActiveByRoles(ctx context.Context, roles []models.UserRole) ([]models.User, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = string(role)
	}
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, selectUser+` WHERE active = TRUE AND role = ANY($1)`, pq.Array(names)); err != nil {
		return nil, fmt.Errorf("list users by role: %w", err)
	}
	return users, nil
}

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	const query = `INSERT INTO users (id, email, password_hash, full_name, role, active, avatar_url, created_at, updated_at)
VALUES (:id, :email, :password_hash, :full_name, :role, :active, :avatar_url, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// UpdateProfile refreshes the name and email of an existing user.
func (r *UserRepository) UpdateProfile(ctx context.Context, id, email, fullName string) error {
	const query = `UPDATE users SET email = $2, full_name = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, email, fullName, time.Now().UTC()); err != nil {
		return fmt.Errorf("update user profile: %w", err)
	}
	return nil
}

// SetActive toggles whether the user may sign in and receive notifications.
func (r *UserRepository) SetActive(ctx context.Context, id string, active bool) error {
	const query = `UPDATE users SET active = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, active, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set user active: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check set user active rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateLastLogin updates the last_login timestamp for a user.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	const query = `UPDATE users SET last_login = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, ts, ts); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}
