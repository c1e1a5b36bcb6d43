package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/bookmarks/internal/auth/authz"
)

// Database drivers accepted in DB_DRIVER.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	AppName string // Issuer and audience of every token, TOTP issuer (default: bookmarks)

	ChallengeSecret string // Optional: HMAC secret for challenge tokens, generated into SecretsDir when empty
	AccessSecret    string // Optional: HMAC secret for access tokens
	RefreshSecret   string // Optional: HMAC secret for refresh tokens
	CookieSecret    string // Optional: HMAC secret for dashboard cookies
	SecretsDir      string // Directory holding generated secrets (default: ./secrets)

	AccessTTL  time.Duration // Access token lifetime (default: 15m)
	RefreshTTL time.Duration // Refresh token lifetime (default: 7 days)
	CookieTTL  time.Duration // Dashboard session lifetime (default: 24h)

	CookieName   string // Dashboard session cookie (default: bookmarks-session)
	CookieSecure bool   // Secure attribute on the cookie (default: true)
	CSRFHeader   string // Header carrying the CSRF token (default: X-CSRF-Token)
	CSRFParam    string // Form field carrying the CSRF token (default: csrf)

	PublicURL string // Base of the links in emails (default: http://localhost:8080)

	DBDriver     string // sqlite or postgres (default: sqlite)
	DatabaseFile string // SQLite database file (default: ./auth.db)
	DatabaseDSN  string // Postgres connection string

	RedisAddr     string // Optional: keep the consumed-token ledger in Redis
	RedisPassword string
	RedisDB       int

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	return Config{
		AppName: getEnvOrDefault("AUTH_APP_NAME", "bookmarks"),

		ChallengeSecret: os.Getenv("AUTH_CHALLENGE_SECRET"),
		AccessSecret:    os.Getenv("AUTH_ACCESS_SECRET"),
		RefreshSecret:   os.Getenv("AUTH_REFRESH_SECRET"),
		CookieSecret:    os.Getenv("AUTH_COOKIE_SECRET"),
		SecretsDir:      getEnvOrDefault("AUTH_SECRETS_DIR", "secrets"),

		// Expiries are plain minutes, as well as Go durations
		AccessTTL:  getEnvDurationOrDefault("ACCESS_TOKEN_EXPIRES", 15*time.Minute),
		RefreshTTL: getEnvDurationOrDefault("REFRESH_TOKEN_EXPIRES", 7*24*time.Hour),
		CookieTTL:  getEnvDurationOrDefault("COOKIE_SESSION_EXPIRES", 24*time.Hour),

		CookieName:   getEnvOrDefault("SESSION_COOKIE_NAME", authz.DefaultCookieName),
		CookieSecure: getEnvBoolOrDefault("COOKIE_SECURE", true),
		CSRFHeader:   getEnvOrDefault("CSRF_HEADER_NAME", authz.DefaultCSRFHeader),
		CSRFParam:    getEnvOrDefault("CSRF_PARAM_NAME", authz.DefaultCSRFParam),

		PublicURL: getEnvOrDefault("PUBLIC_URL", "http://localhost:8080"),

		DBDriver:     strings.ToLower(getEnvOrDefault("DB_DRIVER", DriverSQLite)),
		DatabaseFile: getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		DatabaseDSN:  os.Getenv("DATABASE_DSN"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvIntOrDefault("REDIS_DB", 0),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}
}

// Validate reports every problem with the configuration at once.
func (c Config) Validate() error {
	var errs []error

	switch c.DBDriver {
	case DriverSQLite:
		if c.DatabaseFile == "" {
			errs = append(errs, errors.New("AUTH_DATABASE_FILE must not be empty"))
		}
	case DriverPostgres:
		if c.DatabaseDSN == "" {
			errs = append(errs, errors.New("DATABASE_DSN is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver))
	}

	for name, d := range map[string]time.Duration{
		"ACCESS_TOKEN_EXPIRES":   c.AccessTTL,
		"REFRESH_TOKEN_EXPIRES":  c.RefreshTTL,
		"COOKIE_SESSION_EXPIRES": c.CookieTTL,
		"HOUSEKEEPING_INTERVAL":  c.HousekeepingInterval,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if c.RefreshTTL > 0 && c.RefreshTTL < c.AccessTTL {
		errs = append(errs, errors.New("REFRESH_TOKEN_EXPIRES must not be shorter than ACCESS_TOKEN_EXPIRES"))
	}

	if c.AppName == "" {
		errs = append(errs, errors.New("AUTH_APP_NAME must not be empty"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}
	return errors.Join(errs...)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
