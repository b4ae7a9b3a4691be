package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Logging  LoggingConfig
	Billing  BillingConfig
	Archive  ArchiveConfig
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	FrontendURL     string
	PublicBaseURL   string
	Environment     string
}

// DatabaseConfig contains database configuration
type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// For SQLite
	Path string
}

// AuthConfig contains authentication configuration
type AuthConfig struct {
	JWTSecret string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string
	Format     string // json or console
	OutputPath string
}

// BillingConfig controls the payment gateway and reconciliation behaviour.
// It is read once at startup and passed by value to the billing services.
type BillingConfig struct {
	PaymentsEnabled    bool
	SecretKey          string
	WebhookSecret      string
	MonthlyPriceID     string
	YearlyPriceID      string
	Currency           string
	EnforceEventOrder  bool
	SyncSchedule       string
	OneTimeDescription string
}

// ArchiveConfig configures the optional raw webhook payload archive
type ArchiveConfig struct {
	Backend string // s3 or gcs
	Bucket  string
	Prefix  string
	Region  string
	// Static keys for s3; empty uses the default AWS credential chain
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	// Service account JSON for gcs; empty uses application default credentials
	GCPCredentialsJSON string
}

// Enabled reports whether payloads should be archived
func (a ArchiveConfig) Enabled() bool {
	return a.Bucket != ""
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors as it's optional)
	_ = godotenv.Load()

	cfg := FromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// FromEnv builds a Config from the current environment without validating it
func FromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			FrontendURL:     getEnv("FRONTEND_URL", "http://localhost:5173"),
			PublicBaseURL:   strings.TrimRight(getEnv("PUBLIC_BASE_URL", ""), "/"),
			Environment:     getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "sqlite"),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			Name:            getEnv("DB_NAME", "jobtrail"),
			User:            getEnv("DB_USER", ""),
			Password:        getEnv("DB_PASSWORD", ""),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			Path:            getEnv("DB_PATH", "./data.db"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "json"),
			OutputPath: getEnv("LOG_OUTPUT", "stdout"),
		},
		Billing: BillingConfig{
			PaymentsEnabled:    getEnvAsBool("PAYMENTS_ENABLED", false),
			SecretKey:          getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret:      getEnv("STRIPE_WEBHOOK_SECRET", ""),
			MonthlyPriceID:     getEnv("STRIPE_PRO_MONTHLY_PRICE_ID", ""),
			YearlyPriceID:      getEnv("STRIPE_PRO_YEARLY_PRICE_ID", ""),
			Currency:           strings.ToLower(getEnv("BILLING_CURRENCY", "usd")),
			EnforceEventOrder:  getEnvAsBool("BILLING_ENFORCE_EVENT_ORDER", false),
			SyncSchedule:       getEnv("BILLING_SYNC_SCHEDULE", "@every 6h"),
			OneTimeDescription: getEnv("BILLING_ONE_TIME_DESCRIPTION", "Recent Grad / First-Time Job Seeker - Pay What You Want"),
		},
		Archive: ArchiveConfig{
			Backend:            strings.ToLower(getEnv("BILLING_ARCHIVE_BACKEND", "s3")),
			Bucket:             getEnv("BILLING_ARCHIVE_BUCKET", ""),
			Prefix:             strings.Trim(getEnv("BILLING_ARCHIVE_PREFIX", "stripe-events"), "/"),
			Region:             getEnv("AWS_REGION", "us-east-1"),
			AWSAccessKeyID:     getEnv("BILLING_ARCHIVE_AWS_ACCESS_KEY_ID", ""),
			AWSSecretAccessKey: getEnv("BILLING_ARCHIVE_AWS_SECRET_ACCESS_KEY", ""),
			GCPCredentialsJSON: getEnv("BILLING_ARCHIVE_GCP_CREDENTIALS", ""),
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must be set")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Driver != "sqlite" && c.Database.Driver != "postgres" {
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if c.Archive.Enabled() && c.Archive.Backend != "s3" && c.Archive.Backend != "gcs" {
		return fmt.Errorf("unsupported archive backend: %s", c.Archive.Backend)
	}

	return c.Billing.Validate()
}

// Validate checks that payments have the credentials they need. Payments that
// are turned off need nothing.
func (b BillingConfig) Validate() error {
	if !b.PaymentsEnabled {
		return nil
	}
	if b.SecretKey == "" {
		return fmt.Errorf("STRIPE_SECRET_KEY is required when PAYMENTS_ENABLED=true")
	}
	if b.WebhookSecret == "" {
		return fmt.Errorf("STRIPE_WEBHOOK_SECRET is required when PAYMENTS_ENABLED=true")
	}
	if len(b.Currency) != 3 {
		return fmt.Errorf("invalid BILLING_CURRENCY: %q", b.Currency)
	}
	return nil
}

// PriceID returns the configured price for a billing interval ("month" or "year")
func (b BillingConfig) PriceID(interval string) string {
	if interval == "year" {
		return b.YearlyPriceID
	}
	return b.MonthlyPriceID
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
