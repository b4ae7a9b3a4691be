package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Server:   ServerConfig{Port: 8080},
		Database: DatabaseConfig{Driver: "sqlite"},
		Auth:     AuthConfig{JWTSecret: "secret"},
		Billing:  BillingConfig{Currency: "usd"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "payments disabled needs no keys", mutate: func(c *Config) {}},
		{name: "missing jwt secret", mutate: func(c *Config) { c.Auth.JWTSecret = "" }, wantErr: "JWT_SECRET"},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: "invalid server port"},
		{name: "bad driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, wantErr: "unsupported database driver"},
		{
			name:    "payments enabled without secret key",
			mutate:  func(c *Config) { c.Billing.PaymentsEnabled = true; c.Billing.WebhookSecret = "whsec" },
			wantErr: "STRIPE_SECRET_KEY",
		},
		{
			name:    "payments enabled without webhook secret",
			mutate:  func(c *Config) { c.Billing.PaymentsEnabled = true; c.Billing.SecretKey = "sk_test" },
			wantErr: "STRIPE_WEBHOOK_SECRET",
		},
		{
			name: "payments enabled with keys",
			mutate: func(c *Config) {
				c.Billing.PaymentsEnabled = true
				c.Billing.SecretKey = "sk_test"
				c.Billing.WebhookSecret = "whsec"
			},
		},
		{
			name:    "unknown archive backend",
			mutate:  func(c *Config) { c.Archive = ArchiveConfig{Backend: "azure", Bucket: "b"} },
			wantErr: "unsupported archive backend",
		},
		{
			name:   "archive backend ignored without bucket",
			mutate: func(c *Config) { c.Archive = ArchiveConfig{Backend: "azure"} },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("PAYMENTS_ENABLED", "true")
	t.Setenv("BILLING_CURRENCY", "EUR")
	t.Setenv("PUBLIC_BASE_URL", "https://jobtrail.app/")
	t.Setenv("BILLING_ARCHIVE_PREFIX", "/events/")
	t.Setenv("SERVER_PORT", "not-a-number")

	cfg := FromEnv()
	if !cfg.Billing.PaymentsEnabled {
		t.Error("PaymentsEnabled = false")
	}
	if cfg.Billing.Currency != "eur" {
		t.Errorf("Currency = %q", cfg.Billing.Currency)
	}
	if cfg.Server.PublicBaseURL != "https://jobtrail.app" {
		t.Errorf("PublicBaseURL = %q", cfg.Server.PublicBaseURL)
	}
	if cfg.Archive.Prefix != "events" {
		t.Errorf("Prefix = %q", cfg.Archive.Prefix)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want default", cfg.Server.Port)
	}
	if cfg.Archive.Backend != "s3" {
		t.Errorf("Backend = %q", cfg.Archive.Backend)
	}
}

func TestPriceID(t *testing.T) {
	b := BillingConfig{MonthlyPriceID: "price_m", YearlyPriceID: "price_y"}
	if got := b.PriceID("year"); got != "price_y" {
		t.Errorf("PriceID(year) = %q", got)
	}
	if got := b.PriceID(""); got != "price_m" {
		t.Errorf("PriceID(\"\") = %q", got)
	}
}
