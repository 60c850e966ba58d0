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

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Cache    CacheConfig
	Requests RequestsConfig
	Reports  ReportsConfig
	Storage  StorageConfig
	Outbox   OutboxConfig
	SMTP     SMTPConfig
	SMS      SMSConfig
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
	Enabled  bool
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

// CacheConfig controls read-through caching of reference data.
type CacheConfig struct {
	Namespace   string
	CategoryTTL time.Duration
	ReportTTL   time.Duration
}

// RequestsConfig holds waste request lifecycle tunables.
type RequestsConfig struct {
	MinLeadTime time.Duration
}

// ReportsConfig configures PDF/CSV report generation.
type ReportsConfig struct {
	Title    string
	MaxRows  int
	Timezone string
}

// StorageConfig controls where driver images are kept and how download links are signed.
type StorageConfig struct {
	BaseDir          string
	SignedURLSecret  string
	SignedURLTTL     time.Duration
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
}

// OutboxConfig tunes the domain event dispatcher.
type OutboxConfig struct {
	Enabled      bool
	PollInterval time.Duration
	BatchSize    int
	Workers      int
	MaxRetries   int
	SendTimeout  time.Duration
}

// SMTPConfig holds outbound email settings.
type SMTPConfig struct {
	Enabled   bool
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string
}

// SMSConfig holds AWS SNS settings for driver text messages.
type SMSConfig struct {
	Enabled bool
	Region  string
	Sender  string
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
		Enabled:  v.GetBool("ENABLE_REDIS"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Cache = CacheConfig{
		Namespace:   v.GetString("CACHE_NAMESPACE"),
		CategoryTTL: parseDuration(v.GetString("CACHE_CATEGORY_TTL"), 10*time.Minute),
		ReportTTL:   parseDuration(v.GetString("CACHE_REPORT_TTL"), 5*time.Minute),
	}

	cfg.Requests = RequestsConfig{
		MinLeadTime: parseDuration(v.GetString("REQUEST_MIN_LEAD_TIME"), 48*time.Hour),
	}

	cfg.Reports = ReportsConfig{
		Title:    v.GetString("REPORTS_TITLE"),
		MaxRows:  v.GetInt("REPORTS_MAX_ROWS"),
		Timezone: v.GetString("REPORTS_TIMEZONE"),
	}

	maxImageSize := v.GetInt64("STORAGE_MAX_FILE_SIZE")
	if maxImageSize <= 0 {
		maxImageSize = 5 * 1024 * 1024
	}
	cfg.Storage = StorageConfig{
		BaseDir:          v.GetString("STORAGE_DIR"),
		SignedURLSecret:  v.GetString("STORAGE_SIGNED_URL_SECRET"),
		SignedURLTTL:     parseDuration(v.GetString("STORAGE_SIGNED_URL_TTL"), 30*time.Minute),
		MaxFileSizeBytes: maxImageSize,
		AllowedMIMEs:     splitAndTrim(v.GetString("STORAGE_ALLOWED_MIME_TYPES")),
	}

	cfg.Outbox = OutboxConfig{
		Enabled:      v.GetBool("ENABLE_OUTBOX"),
		PollInterval: parseDuration(v.GetString("OUTBOX_POLL_INTERVAL"), 5*time.Second),
		BatchSize:    v.GetInt("OUTBOX_BATCH_SIZE"),
		Workers:      v.GetInt("OUTBOX_WORKERS"),
		MaxRetries:   v.GetInt("OUTBOX_MAX_RETRIES"),
		SendTimeout:  parseDuration(v.GetString("OUTBOX_SEND_TIMEOUT"), 10*time.Second),
	}

	cfg.SMTP = SMTPConfig{
		Enabled:   v.GetBool("ENABLE_SMTP"),
		Host:      v.GetString("SMTP_HOST"),
		Port:      v.GetInt("SMTP_PORT"),
		Username:  v.GetString("SMTP_USERNAME"),
		Password:  v.GetString("SMTP_PASSWORD"),
		FromEmail: v.GetString("SMTP_FROM_EMAIL"),
		FromName:  v.GetString("SMTP_FROM_NAME"),
	}

	cfg.SMS = SMSConfig{
		Enabled: v.GetBool("ENABLE_SMS"),
		Region:  v.GetString("SMS_AWS_REGION"),
		Sender:  v.GetString("SMS_SENDER_ID"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "waste_mgmt")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("ENABLE_REDIS", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "waste-mgmt-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("CACHE_NAMESPACE", "waste-mgmt")
	v.SetDefault("CACHE_CATEGORY_TTL", "10m")
	v.SetDefault("CACHE_REPORT_TTL", "5m")

	v.SetDefault("REQUEST_MIN_LEAD_TIME", "48h")

	v.SetDefault("REPORTS_TITLE", "Waste Collection Report")
	v.SetDefault("REPORTS_MAX_ROWS", 5000)
	v.SetDefault("REPORTS_TIMEZONE", "UTC")

	v.SetDefault("STORAGE_DIR", "./uploads")
	v.SetDefault("STORAGE_SIGNED_URL_SECRET", "dev_storage_secret")
	v.SetDefault("STORAGE_SIGNED_URL_TTL", "30m")
	v.SetDefault("STORAGE_MAX_FILE_SIZE", 5*1024*1024)
	v.SetDefault("STORAGE_ALLOWED_MIME_TYPES", "image/jpeg,image/png,image/webp")

	v.SetDefault("ENABLE_OUTBOX", true)
	v.SetDefault("OUTBOX_POLL_INTERVAL", "5s")
	v.SetDefault("OUTBOX_BATCH_SIZE", 50)
	v.SetDefault("OUTBOX_WORKERS", 2)
	v.SetDefault("OUTBOX_MAX_RETRIES", 5)
	v.SetDefault("OUTBOX_SEND_TIMEOUT", "10s")

	v.SetDefault("ENABLE_SMTP", false)
	v.SetDefault("SMTP_HOST", "localhost")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USERNAME", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("SMTP_FROM_EMAIL", "noreply@waste.local")
	v.SetDefault("SMTP_FROM_NAME", "Waste Collection")

	v.SetDefault("ENABLE_SMS", false)
	v.SetDefault("SMS_AWS_REGION", "us-east-1")
	v.SetDefault("SMS_SENDER_ID", "WASTE")
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
