package service

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/BladexZN/dashboard-c/internal/dto"
	"github.com/BladexZN/dashboard-c/internal/models"
	appErrors "github.com/BladexZN/dashboard-c/pkg/errors"
)

type settingsRepository interface {
	ListForUser(ctx context.Context, userID string) ([]models.UserSetting, error)
	Upsert(ctx context.Context, setting *models.UserSetting) error
}

type settingsCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

var allowedSettingKeys = []string{
	models.SettingNotifyProduction,
	models.SettingNotifyAdvisor,
}

var settingDescriptions = map[string]string{
	models.SettingNotifyProduction: "Notify producers and directors when a new request is created",
	models.SettingNotifyAdvisor:    "Notify the assigned advisor when a request is delivered",
}

// SettingsServiceConfig carries defaults and cache TTL.
type SettingsServiceConfig struct {
	CacheTTL                time.Duration
	DefaultNotifyProduction bool
	DefaultNotifyAdvisor    bool
}

// SettingsService reads and writes per-user notification toggles.
type SettingsService struct {
	repo     settingsRepository
	cache    settingsCache
	ttl      time.Duration
	defaults map[string]bool
	logger   *zap.Logger
	now      func() time.Time
}

// NewSettingsService constructs the settings service. cache may be nil.
func NewSettingsService(repo settingsRepository, cache settingsCache, logger *zap.Logger, cfg SettingsServiceConfig) *SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsService{
		repo:  repo,
		cache: cache,
		ttl:   cfg.CacheTTL,
		defaults: map[string]bool{
			models.SettingNotifyProduction: cfg.DefaultNotifyProduction,
			models.SettingNotifyAdvisor:    cfg.DefaultNotifyAdvisor,
		},
		logger: logger,
		now:    time.Now,
	}
}

// Get returns the effective notification settings of a user.
func (s *SettingsService) Get(ctx context.Context, userID string) (models.NotificationSettings, error) {
	values, err := s.values(ctx, userID)
	if err != nil {
		return models.NotificationSettings{}, err
	}
	return models.NotificationSettings{
		NotifyProduction: values[models.SettingNotifyProduction],
		NotifyAdvisor:    values[models.SettingNotifyAdvisor],
	}, nil
}

// List returns every known setting with its effective value.
func (s *SettingsService) List(ctx context.Context, userID string) ([]dto.SettingItem, error) {
	values, err := s.values(ctx, userID)
	if err != nil {
		return nil, err
	}
	items := make([]dto.SettingItem, 0, len(allowedSettingKeys))
	for _, key := range allowedSettingKeys {
		items = append(items, dto.SettingItem{Key: key, Value: values[key], Description: settingDescriptions[key]})
	}
	return items, nil
}

// Set persists one toggle and drops the cached copy.
func (s *SettingsService) Set(ctx context.Context, userID, key string, value bool) (*dto.SettingItem, error) {
	if userID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "missing user")
	}
	if _, ok := settingDescriptions[key]; !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown setting key")
	}

	setting := &models.UserSetting{
		UserID:    userID,
		Key:       key,
		Value:     strconv.FormatBool(value),
		UpdatedAt: s.now().UTC(),
	}
	if err := s.repo.Upsert(ctx, setting); err != nil {
		return nil, internalError(err, "failed to save setting")
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, settingsCacheKey(userID)); err != nil {
			s.logger.Warn("settings cache invalidate failed", zap.String("user_id", userID), zap.String("key", key), zap.Error(err))
		}
	}

	s.logger.Sugar().Infow("setting updated", "user_id", userID, "key", key, "value", value)
	return &dto.SettingItem{Key: key, Value: value, Description: settingDescriptions[key]}, nil
}

func (s *SettingsService) values(ctx context.Context, userID string) (map[string]bool, error) {
	cacheKey := settingsCacheKey(userID)
	if s.cache != nil {
		var cached map[string]bool
		if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit && cached != nil {
			return s.withDefaults(cached), nil
		}
	}

	rows, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, internalError(err, "failed to load settings")
	}
	stored := make(map[string]bool, len(rows))
	for _, row := range rows {
		parsed, err := strconv.ParseBool(row.Value)
		if err != nil {
			s.logger.Warn("ignoring malformed setting", zap.String("user_id", userID), zap.String("key", row.Key), zap.String("value", row.Value))
			continue
		}
		stored[row.Key] = parsed
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, cacheKey, stored, s.ttl)
	}
	return s.withDefaults(stored), nil
}

func (s *SettingsService) withDefaults(stored map[string]bool) map[string]bool {
	values := make(map[string]bool, len(allowedSettingKeys))
	for _, key := range allowedSettingKeys {
		if v, ok := stored[key]; ok {
			values[key] = v
			continue
		}
		values[key] = s.defaults[key]
	}
	return values
}

func settingsCacheKey(userID string) string {
	return "settings:" + userID
}
