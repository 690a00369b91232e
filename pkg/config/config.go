package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Local store drivers.
const (
	StoreDriverSQLite = "sqlite"
	StoreDriverRedis  = "redis"
	StoreDriverMemory = "memory"
)

// Remote table drivers.
const (
	TablesDriverREST     = "rest"
	TablesDriverPostgres = "postgres"
)

// Remote catalog list orders.
const (
	CatalogOrderName      = "name"
	CatalogOrderCreatedAt = "created_at"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	CORS       CORSConfig
	Log        LogConfig
	Supabase   SupabaseConfig
	Database   DatabaseConfig
	LocalStore LocalStoreConfig
	Redis      RedisConfig
	MockAuth   MockAuthConfig
	Chat       ChatConfig
	Catalog    CatalogConfig
	Metrics    MetricsConfig
}

// SupabaseConfig points at the hosted auth + table service.
type SupabaseConfig struct {
	URL           string
	AnonKey       string
	TablesDriver  string
	RefreshLeeway time.Duration
}

// DatabaseConfig is used when remote tables are reached over SQL instead of HTTPS.
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

// LocalStoreConfig selects the persistent key-value driver.
type LocalStoreConfig struct {
	Driver string
	Path   string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// MockAuthConfig seeds the local-mock administrator account.
type MockAuthConfig struct {
	AdminEmail    string
	AdminPassword string
	AdminName     string
}

// ChatConfig configures the chat relay webhook.
type ChatConfig struct {
	WebhookURL string
}

// CatalogConfig tunes remote listing order.
type CatalogConfig struct {
	Order string
}

type MetricsConfig struct {
	Enabled bool
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// RemoteConfigured reports whether both hosted-service settings are present.
func (c *Config) RemoteConfigured() bool {
	return strings.TrimSpace(c.Supabase.URL) != "" && strings.TrimSpace(c.Supabase.AnonKey) != ""
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
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Supabase = SupabaseConfig{
		URL:           strings.TrimRight(strings.TrimSpace(v.GetString("SUPABASE_URL")), "/"),
		AnonKey:       strings.TrimSpace(v.GetString("SUPABASE_ANON_KEY")),
		TablesDriver:  strings.ToLower(v.GetString("SUPABASE_TABLES_DRIVER")),
		RefreshLeeway: parseDuration(v.GetString("SUPABASE_REFRESH_LEEWAY"), time.Minute),
	}

	cfg.Database = DatabaseConfig{
		URL:          v.GetString("DATABASE_URL"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.LocalStore = LocalStoreConfig{
		Driver: strings.ToLower(v.GetString("LOCAL_STORE_DRIVER")),
		Path:   v.GetString("LOCAL_STORE_PATH"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.MockAuth = MockAuthConfig{
		AdminEmail:    v.GetString("MOCK_ADMIN_EMAIL"),
		AdminPassword: v.GetString("MOCK_ADMIN_PASSWORD"),
		AdminName:     v.GetString("MOCK_ADMIN_NAME"),
	}

	cfg.Chat = ChatConfig{WebhookURL: strings.TrimSpace(v.GetString("N8N_CHAT_WEBHOOK_URL"))}
	cfg.Catalog = CatalogConfig{Order: strings.ToLower(v.GetString("CATALOG_ORDER"))}
	cfg.Metrics = MetricsConfig{Enabled: v.GetBool("ENABLE_METRICS")}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SUPABASE_URL", "")
	v.SetDefault("SUPABASE_ANON_KEY", "")
	v.SetDefault("SUPABASE_TABLES_DRIVER", TablesDriverREST)
	v.SetDefault("SUPABASE_REFRESH_LEEWAY", "60s")

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("LOCAL_STORE_DRIVER", StoreDriverSQLite)
	v.SetDefault("LOCAL_STORE_PATH", "./estudaia.db")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("MOCK_ADMIN_EMAIL", "admin@estuda.ia")
	v.SetDefault("MOCK_ADMIN_PASSWORD", "admin123")
	v.SetDefault("MOCK_ADMIN_NAME", "Administrador")

	v.SetDefault("N8N_CHAT_WEBHOOK_URL", "")
	v.SetDefault("CATALOG_ORDER", CatalogOrderName)
	v.SetDefault("ENABLE_METRICS", true)
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
