package config

import (
	"errors"
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
	Sync          SyncConfig
	Risks         RisksConfig
	Notifications NotificationsConfig
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
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SyncConfig controls the offline change queue drain behaviour.
type SyncConfig struct {
	Enabled       bool
	DrainInterval time.Duration
	RemoteBaseURL string
}

// RisksConfig tunes the risk register reporting surface.
type RisksConfig struct {
	TopRiskCount  int
	ExportEnabled bool
}

// NotificationsConfig gates best-effort notification writes.
type NotificationsConfig struct {
	Enabled bool
}

// Load reads configuration from the environment, honouring a local .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "smap")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 20)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_EXPIRATION", "15m")
	v.SetDefault("JWT_ISSUER", "smap-compliance-api")

	v.SetDefault("CORS_ALLOWED_ORIGINS", "")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SYNC_ENABLED", true)
	v.SetDefault("SYNC_DRAIN_INTERVAL", "1m")
	v.SetDefault("SYNC_REMOTE_BASE_URL", "")

	v.SetDefault("RISKS_TOP_COUNT", 5)
	v.SetDefault("RISKS_EXPORT_ENABLED", true)

	v.SetDefault("NOTIFICATIONS_ENABLED", true)

	cfg := &Config{
		Env:       strings.ToLower(v.GetString("ENV")),
		Port:      v.GetInt("PORT"),
		APIPrefix: v.GetString("API_PREFIX"),
		Database: DatabaseConfig{
			Host:         v.GetString("DB_HOST"),
			Port:         v.GetInt("DB_PORT"),
			User:         v.GetString("DB_USER"),
			Password:     v.GetString("DB_PASSWORD"),
			Name:         v.GetString("DB_NAME"),
			SSLMode:      v.GetString("DB_SSLMODE"),
			MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:     v.GetString("JWT_SECRET"),
			Expiration: v.GetDuration("JWT_EXPIRATION"),
			Issuer:     v.GetString("JWT_ISSUER"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitNonEmpty(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Sync: SyncConfig{
			Enabled:       v.GetBool("SYNC_ENABLED"),
			DrainInterval: v.GetDuration("SYNC_DRAIN_INTERVAL"),
			RemoteBaseURL: v.GetString("SYNC_REMOTE_BASE_URL"),
		},
		Risks: RisksConfig{
			TopRiskCount:  v.GetInt("RISKS_TOP_COUNT"),
			ExportEnabled: v.GetBool("RISKS_EXPORT_ENABLED"),
		},
		Notifications: NotificationsConfig{
			Enabled: v.GetBool("NOTIFICATIONS_ENABLED"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Env == EnvProduction && c.JWT.Secret == "" {
		return errors.New("JWT_SECRET is required in production")
	}
	if c.Port <= 0 {
		return errors.New("PORT must be positive")
	}
	if c.Sync.DrainInterval <= 0 {
		c.Sync.DrainInterval = time.Minute
	}
	if c.Risks.TopRiskCount <= 0 {
		c.Risks.TopRiskCount = 5
	}
	return nil
}

func splitNonEmpty(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
