package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/BladexZN/dashboard-c/internal/models"
)

// NotificationRepository persists in-app notifications.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

const insertNotification = `INSERT INTO notifications (id, user_id, request_id, title, message, category, is_read, created_at)
VALUES (:id, :user_id, :request_id, :title, :message, :category, :is_read, :created_at)`

// Create stores one notification.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	prepareNotification(n)
	if _, err := r.db.NamedExecContext(ctx, insertNotification, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// CreateMany stores a batch of notifications in one transaction.
func (r *NotificationRepository) CreateMany(ctx context.Context, items []models.Notification) error {
	if len(items) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin notifications tx: %w", err)
	}
	for i := range items {
		prepareNotification(&items[i])
		if _, err := tx.NamedExecContext(ctx, insertNotification, items[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("create notifications: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit notifications tx: %w", err)
	}
	return nil
}

func prepareNotification(n *models.Notification) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
}

// ListByRecipient returns the newest notifications addressed to userID.
func (r *NotificationRepository) ListByRecipient(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	const query = `SELECT id, user_id, request_id, title, message, category, is_read, created_at
FROM notifications WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`
	var items []models.Notification
	if err := r.db.SelectContext(ctx, &items, query, userID, limit); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return items, nil
}

// CountUnread returns the number of unread notifications for userID.
func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE`, userID); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead marks one notification read. Only the recipient may do so.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check mark read rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkAllRead marks every unread notification of userID read and returns how many changed.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check mark all read rows: %w", err)
	}
	return affected, nil
}
