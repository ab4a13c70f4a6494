// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"paynow-wallet/internal/notification"
	"paynow-wallet/pkg/db" // Import db package for its Config struct
)

// OTP store backends.
const (
	OTPStoreMemory = "memory"
	OTPStoreRedis  = "redis"
)

// AppConfig holds all application-wide configurations.
type AppConfig struct {
	ServerPort string
	LogLevel   string
	DB         db.Config
	// AutoMigrate applies the embedded schema migrations on startup.
	AutoMigrate bool

	Redis RedisConfig
	OTP   OTPConfig

	Currency            string
	SMTP                notification.SMTPConfig
	SMSGatewayURL       string
	SMSGatewayAPIKey    string
	NotificationTimeout time.Duration

	CORSAllowedOrigins     []string
	LegacyEndpointsEnabled bool
}

// RedisConfig locates the Redis server backing the OTP store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// OTPConfig controls the one-time password store.
type OTPConfig struct {
	Store         string // memory or redis
	TTL           time.Duration
	PurgeInterval time.Duration
}

// LoadConfig loads configuration from environment variables, after reading an optional .env file.
// It returns an AppConfig instance or an error if any variable is invalid.
func LoadConfig() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	var errs []error
	p := &parser{errs: &errs}

	cfg := &AppConfig{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		DB: db.Config{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            p.int("DB_PORT", 5432),
			User:            getEnv("DB_USER", "user"),
			Password:        getEnv("DB_PASSWORD", "password"),
			DBName:          getEnv("DB_NAME", "walletdb"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    p.int("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    p.int("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: p.duration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		AutoMigrate: p.bool("DB_AUTO_MIGRATE", true),
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       p.int("REDIS_DB", 0),
		},
		OTP: OTPConfig{
			Store:         strings.ToLower(getEnv("OTP_STORE", OTPStoreMemory)),
			TTL:           p.duration("OTP_TTL", 5*time.Minute),
			PurgeInterval: p.duration("OTP_PURGE_INTERVAL", time.Minute),
		},
		Currency: strings.ToUpper(getEnv("WALLET_CURRENCY", "INR")),
		SMTP: notification.SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     p.int("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", ""),
		},
		SMSGatewayURL:          getEnv("SMS_GATEWAY_URL", ""),
		SMSGatewayAPIKey:       getEnv("SMS_GATEWAY_API_KEY", ""),
		NotificationTimeout:    p.duration("NOTIFICATION_TIMEOUT", 10*time.Second),
		CORSAllowedOrigins:     splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		LegacyEndpointsEnabled: p.bool("LEGACY_ENDPOINTS_ENABLED", false),
	}

	if cfg.OTP.Store != OTPStoreMemory && cfg.OTP.Store != OTPStoreRedis {
		errs = append(errs, fmt.Errorf("invalid OTP_STORE %q: want %s or %s", cfg.OTP.Store, OTPStoreMemory, OTPStoreRedis))
	}
	if cfg.OTP.TTL <= 0 {
		errs = append(errs, fmt.Errorf("invalid OTP_TTL %s: must be positive", cfg.OTP.TTL))
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

// parser reads typed variables and collects every malformed one.
type parser struct {
	errs *[]error
}

func (p *parser) int(key string, fallback int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*p.errs = append(*p.errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return v
}

func (p *parser) bool(key string, fallback bool) bool {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		*p.errs = append(*p.errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return v
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		*p.errs = append(*p.errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
