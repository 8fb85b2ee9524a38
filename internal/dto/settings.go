package dto

// SettingItem represents one per-user setting exposed via API.
type SettingItem struct {
	Key         string `json:"key"`
	Value       bool   `json:"value"`
	Description string `json:"description"`
}

// UpdateSettingRequest describes payload for toggling a setting.
type UpdateSettingRequest struct {
	Value *bool `json:"value" validate:"required"`
}
