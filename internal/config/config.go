package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// SMS providers.
const (
	SMSProviderTwilio = "twilio"
	SMSProviderLog    = "log"
)

// AuthConfig holds ID-token verification configuration.
// Issuer, audience and JWKS URL default to the Firebase values derived from ProjectID.
type AuthConfig struct {
	ProjectID string
	Issuer    string // e.g., "https://securetoken.google.com/<project>"
	Audience  string
	JWKSURL   string
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // seconds
}

// SMSConfig holds outbound SMS transport configuration.
type SMSConfig struct {
	Provider   string
	AccountSID string
	AuthToken  string
	From       string
	BaseURL    string // overrides the Twilio API base URL (tests, proxies)
}

// ReminderConfig holds the daily reminder schedule.
type ReminderConfig struct {
	Enabled     bool
	Hour        int // 0-23, local to Location
	Location    *time.Location
	Concurrency int
	RunTimeout  time.Duration
}

type Config struct {
	Port           string
	Environment    string
	StoreBackend   string
	MigrationsPath string
	CORSOrigins    []string // empty allows any origin
	Database       DatabaseConfig
	Auth           AuthConfig
	SMS            SMSConfig
	Reminder       ReminderConfig
}

const firebaseJWKSURL = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"

// Load reads configuration from environment variables.
// It fails fast with clear errors for missing required values.
func Load() (*Config, error) {
	var missing []string

	port := getEnv("PORT", "8080")

	env := getEnv("ENV", "development")
	if env != "development" && env != "staging" && env != "production" {
		return nil, fmt.Errorf("invalid ENV value %q: must be development, staging, or production", env)
	}

	storeBackend := getEnv("STORE_BACKEND", StorePostgres)
	if storeBackend != StorePostgres && storeBackend != StoreMemory {
		return nil, fmt.Errorf("invalid STORE_BACKEND value %q: must be postgres or memory", storeBackend)
	}
	if storeBackend == StoreMemory && env == "production" {
		return nil, fmt.Errorf("STORE_BACKEND=memory is not allowed in production")
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if storeBackend == StorePostgres && databaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	projectID := os.Getenv("AUTH_PROJECT_ID")
	issuer := os.Getenv("AUTH_ISSUER")
	audience := os.Getenv("AUTH_AUDIENCE")
	jwksURL := os.Getenv("AUTH_JWKS_URL")
	if projectID != "" {
		if issuer == "" {
			issuer = "https://securetoken.google.com/" + projectID
		}
		if audience == "" {
			audience = projectID
		}
		if jwksURL == "" {
			jwksURL = firebaseJWKSURL
		}
	}
	if issuer == "" {
		missing = append(missing, "AUTH_ISSUER or AUTH_PROJECT_ID")
	}
	if audience == "" {
		missing = append(missing, "AUTH_AUDIENCE or AUTH_PROJECT_ID")
	}
	if jwksURL == "" {
		missing = append(missing, "AUTH_JWKS_URL or AUTH_PROJECT_ID")
	}

	smsProvider := getEnv("SMS_PROVIDER", SMSProviderTwilio)
	if smsProvider != SMSProviderTwilio && smsProvider != SMSProviderLog {
		return nil, fmt.Errorf("invalid SMS_PROVIDER value %q: must be twilio or log", smsProvider)
	}
	sms := SMSConfig{
		Provider:   smsProvider,
		AccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		AuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		From:       os.Getenv("TWILIO_PHONE_NUMBER"),
		BaseURL:    os.Getenv("TWILIO_BASE_URL"),
	}
	if smsProvider == SMSProviderTwilio {
		if sms.AccountSID == "" {
			missing = append(missing, "TWILIO_ACCOUNT_SID")
		}
		if sms.AuthToken == "" {
			missing = append(missing, "TWILIO_AUTH_TOKEN")
		}
		if sms.From == "" {
			missing = append(missing, "TWILIO_PHONE_NUMBER")
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %v", missing)
	}

	if databaseURL != "" {
		if err := validateDatabaseURL(databaseURL); err != nil {
			return nil, fmt.Errorf("invalid DATABASE_URL: %w", err)
		}
	}

	if err := validateHTTPSURL(jwksURL); err != nil {
		return nil, fmt.Errorf("invalid AUTH_JWKS_URL: %w", err)
	}

	reminder, err := loadReminderConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:           port,
		Environment:    env,
		StoreBackend:   storeBackend,
		MigrationsPath: os.Getenv("MIGRATIONS_PATH"),
		CORSOrigins:    splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		Database: DatabaseConfig{
			URL:             databaseURL,
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvInt("DB_CONN_MAX_LIFETIME", 300),
		},
		Auth: AuthConfig{
			ProjectID: projectID,
			Issuer:    issuer,
			Audience:  audience,
			JWKSURL:   jwksURL,
		},
		SMS:      sms,
		Reminder: reminder,
	}, nil
}

func loadReminderConfig() (ReminderConfig, error) {
	tzName := getEnv("CRON_TZ", "Asia/Kolkata")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return ReminderConfig{}, fmt.Errorf("invalid CRON_TZ %q: %w", tzName, err)
	}

	hour := 18
	if raw := os.Getenv("DAILY_SMS_HOUR"); raw != "" {
		hour, err = strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || hour < 0 || hour > 23 {
			return ReminderConfig{}, fmt.Errorf("invalid DAILY_SMS_HOUR %q: must be an integer between 0 and 23", raw)
		}
	}

	timeout := 5 * time.Minute
	if raw := os.Getenv("REMINDER_RUN_TIMEOUT"); raw != "" {
		timeout, err = time.ParseDuration(raw)
		if err != nil || timeout <= 0 {
			return ReminderConfig{}, fmt.Errorf("invalid REMINDER_RUN_TIMEOUT %q: must be a positive duration", raw)
		}
	}

	concurrency := getEnvInt("REMINDER_CONCURRENCY", 1)
	if concurrency < 1 {
		concurrency = 1
	}

	return ReminderConfig{
		Enabled:     getEnvBool("SCHEDULER_ENABLED", true),
		Hour:        hour,
		Location:    loc,
		Concurrency: concurrency,
		RunTimeout:  timeout,
	}, nil
}

// validateDatabaseURL ensures the database URL is a valid PostgreSQL connection string.
func validateDatabaseURL(dbURL string) error {
	parsed, err := url.Parse(dbURL)
	if err != nil {
		return fmt.Errorf("malformed URL: %w", err)
	}

	if parsed.Scheme != "postgres" && parsed.Scheme != "postgresql" {
		return fmt.Errorf("URL must use postgres:// or postgresql:// scheme, got %q", parsed.Scheme)
	}

	if parsed.Host == "" {
		return fmt.Errorf("URL must include a host")
	}

	return nil
}

func validateHTTPSURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("malformed URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("URL must use http or https scheme")
	}
	if parsed.Host == "" {
		return fmt.Errorf("URL must include a host")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvInt reads an environment variable as an integer with a default fallback.
func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return intVal
}

func getEnvBool(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

// splitList parses a comma-separated list, dropping blank entries.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
