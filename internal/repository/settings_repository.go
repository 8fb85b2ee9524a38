package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/BladexZN/dashboard-c/internal/models"
)

// SettingsRepository persists per-user key/value settings.
type SettingsRepository struct {
	db *sqlx.DB
}

// NewSettingsRepository constructs the repository.
func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// ListForUser returns every stored setting of userID.
func (r *SettingsRepository) ListForUser(ctx context.Context, userID string) ([]models.UserSetting, error) {
	const query = `SELECT user_id, key, value, updated_at FROM user_settings WHERE user_id = $1 ORDER BY key ASC`
	var settings []models.UserSetting
	if err := r.db.SelectContext(ctx, &settings, query, userID); err != nil {
		return nil, fmt.Errorf("list user settings: %w", err)
	}
	return settings, nil
}

// Upsert inserts or updates one setting.
func (r *SettingsRepository) Upsert(ctx context.Context, setting *models.UserSetting) error {
	const query = `INSERT INTO user_settings (user_id, key, value, updated_at)
VALUES (:user_id, :key, :value, :updated_at)
ON CONFLICT (user_id, key)
DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
	setting.UpdatedAt = time.Now().UTC()
	if _, err := r.db.NamedExecContext(ctx, query, setting); err != nil {
		return fmt.Errorf("upsert user setting: %w", err)
	}
	return nil
}
