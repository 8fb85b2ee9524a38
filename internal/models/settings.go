package models

import "time"

// Setting keys.
const (
	SettingNotifyProduction = "notify_production"
	SettingNotifyAdvisor    = "notify_advisor"
)

// UserSetting is one persisted per-user toggle.
type UserSetting struct {
	UserID    string    `db:"user_id" json:"user_id"`
	Key       string    `db:"key" json:"key"`
	Value     string    `db:"value" json:"value"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// NotificationSettings are the toggles read by the dispatcher.
type NotificationSettings struct {
	NotifyProduction bool `json:"notify_production"`
	NotifyAdvisor    bool `json:"notify_advisor"`
}
