package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Notifications NotificationsConfig
	Settings      SettingsConfig
	Storage       StorageConfig
	Refresh       RefreshConfig
	Archive       ArchiveConfig
	Reports       ReportsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	// CrossLoginSecret verifies tokens minted by the master dashboard.
	CrossLoginSecret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// NotificationsConfig configures the outbound cross-system notifier.
type NotificationsConfig struct {
	CrossSystemURL   string
	CrossSystemToken string
	Timeout          time.Duration
	RatePerSecond    float64
	Burst            int
	Workers          int
	Retries          int
	RetryDelay       time.Duration
	OriginTag        string
}

// SettingsConfig controls per-user settings defaults and caching.
type SettingsConfig struct {
	CacheTTL                time.Duration
	DefaultNotifyProduction bool
	DefaultNotifyAdvisor    bool
}

// StorageConfig controls attachment storage & validation.
type StorageConfig struct {
	Dir              string
	PublicPrefix     string
	SignedURLSecret  string
	SignedURLTTL     time.Duration
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
}

// RefreshConfig bounds the board read path.
type RefreshConfig struct {
	AuditLimit     uint64
	SessionIdleTTL time.Duration
}

// ArchiveConfig defines the retention window used by the archive sweep.
type ArchiveConfig struct {
	Retention time.Duration
}

// ReportsConfig gates the report endpoints.
type ReportsConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:           v.GetString("JWT_SECRET"),
		Expiration:       parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		CrossLoginSecret: v.GetString("CROSS_PROJECT_JWT_SECRET"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Notifications = NotificationsConfig{
		CrossSystemURL:   v.GetString("CROSS_NOTIFY_URL"),
		CrossSystemToken: v.GetString("CROSS_NOTIFY_TOKEN"),
		Timeout:          parseDuration(v.GetString("CROSS_NOTIFY_TIMEOUT"), 5*time.Second),
		RatePerSecond:    v.GetFloat64("CROSS_NOTIFY_RATE"),
		Burst:            v.GetInt("CROSS_NOTIFY_BURST"),
		Workers:          v.GetInt("CROSS_NOTIFY_WORKERS"),
		Retries:          v.GetInt("CROSS_NOTIFY_RETRIES"),
		RetryDelay:       parseDuration(v.GetString("CROSS_NOTIFY_RETRY_DELAY"), 2*time.Second),
		OriginTag:        v.GetString("CROSS_NOTIFY_ORIGIN"),
	}

	cfg.Settings = SettingsConfig{
		CacheTTL:                parseDuration(v.GetString("SETTINGS_CACHE_TTL"), 10*time.Minute),
		DefaultNotifyProduction: v.GetBool("SETTINGS_DEFAULT_NOTIFY_PRODUCTION"),
		DefaultNotifyAdvisor:    v.GetBool("SETTINGS_DEFAULT_NOTIFY_ADVISOR"),
	}

	maxFileSize := v.GetInt64("ATTACHMENTS_MAX_FILE_SIZE")
	if maxFileSize <= 0 {
		maxFileSize = 20 * 1024 * 1024
	}
	cfg.Storage = StorageConfig{
		Dir:              v.GetString("ATTACHMENTS_STORAGE_DIR"),
		PublicPrefix:     v.GetString("ATTACHMENTS_PUBLIC_PREFIX"),
		SignedURLSecret:  v.GetString("ATTACHMENTS_SIGNED_URL_SECRET"),
		SignedURLTTL:     parseDuration(v.GetString("ATTACHMENTS_SIGNED_URL_TTL"), 30*time.Minute),
		MaxFileSizeBytes: maxFileSize,
		AllowedMIMEs:     splitAndTrim(v.GetString("ATTACHMENTS_ALLOWED_MIME_TYPES")),
	}

	auditLimit := v.GetInt64("REFRESH_AUDIT_LIMIT")
	if auditLimit <= 0 {
		auditLimit = 200
	}
	cfg.Refresh = RefreshConfig{
		AuditLimit:     uint64(auditLimit),
		SessionIdleTTL: parseDuration(v.GetString("REFRESH_SESSION_IDLE_TTL"), 30*time.Minute),
	}

	cfg.Archive = ArchiveConfig{
		Retention: parseDuration(v.GetString("ARCHIVE_RETENTION"), 30*24*time.Hour),
	}

	cfg.Reports = ReportsConfig{
		Enabled: v.GetBool("ENABLE_REPORTS"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// devSecrets are the defaults shipped for local work; production refuses them.
var devSecrets = map[string]string{
	"JWT_SECRET":                    "dev_secret",
	"CROSS_PROJECT_JWT_SECRET":      "dev_cross_secret",
	"ATTACHMENTS_SIGNED_URL_SECRET": "dev_attachments_secret",
}

// Validate rejects settings that cannot run. In production every signing
// secret must be overridden.
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}
	if !strings.HasPrefix(c.APIPrefix, "/") {
		errs = append(errs, fmt.Errorf("API_PREFIX %q must start with /", c.APIPrefix))
	}
	if c.Notifications.CrossSystemURL != "" && !strings.HasPrefix(c.Notifications.CrossSystemURL, "http") {
		errs = append(errs, fmt.Errorf("CROSS_NOTIFY_URL %q is not an http url", c.Notifications.CrossSystemURL))
	}
	if c.Env == EnvProduction {
		current := map[string]string{
			"JWT_SECRET":                    c.JWT.Secret,
			"CROSS_PROJECT_JWT_SECRET":      c.JWT.CrossLoginSecret,
			"ATTACHMENTS_SIGNED_URL_SECRET": c.Storage.SignedURLSecret,
		}
		for _, key := range []string{"JWT_SECRET", "CROSS_PROJECT_JWT_SECRET", "ATTACHMENTS_SIGNED_URL_SECRET"} {
			if current[key] == "" || current[key] == devSecrets[key] {
				errs = append(errs, fmt.Errorf("%s must be set in production", key))
			}
		}
	}
	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "design_dashboard")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("CROSS_PROJECT_JWT_SECRET", "dev_cross_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("CROSS_NOTIFY_URL", "")
	v.SetDefault("CROSS_NOTIFY_TOKEN", "")
	v.SetDefault("CROSS_NOTIFY_TIMEOUT", "5s")
	v.SetDefault("CROSS_NOTIFY_RATE", 5)
	v.SetDefault("CROSS_NOTIFY_BURST", 10)
	v.SetDefault("CROSS_NOTIFY_WORKERS", 2)
	v.SetDefault("CROSS_NOTIFY_RETRIES", 3)
	v.SetDefault("CROSS_NOTIFY_RETRY_DELAY", "2s")
	v.SetDefault("CROSS_NOTIFY_ORIGIN", "design")

	v.SetDefault("SETTINGS_CACHE_TTL", "10m")
	v.SetDefault("SETTINGS_DEFAULT_NOTIFY_PRODUCTION", true)
	v.SetDefault("SETTINGS_DEFAULT_NOTIFY_ADVISOR", true)

	v.SetDefault("ATTACHMENTS_STORAGE_DIR", "./design-attachments")
	v.SetDefault("ATTACHMENTS_PUBLIC_PREFIX", "/design-attachments/")
	v.SetDefault("ATTACHMENTS_SIGNED_URL_SECRET", "dev_attachments_secret")
	v.SetDefault("ATTACHMENTS_SIGNED_URL_TTL", "30m")
	v.SetDefault("ATTACHMENTS_MAX_FILE_SIZE", 20*1024*1024)
	v.SetDefault("ATTACHMENTS_ALLOWED_MIME_TYPES", "image/png,image/jpeg,image/gif,image/webp,application/pdf,application/zip,image/vnd.adobe.photoshop,application/postscript")

	v.SetDefault("REFRESH_AUDIT_LIMIT", 200)
	v.SetDefault("REFRESH_SESSION_IDLE_TTL", "30m")
	v.SetDefault("ARCHIVE_RETENTION", "720h")
	v.SetDefault("ENABLE_REPORTS", true)
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
