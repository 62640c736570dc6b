package config

import (
	"errors"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port string `envconfig:"PORT" default:"8080"`

	// DatabaseURL selects the SQLite database file. Empty means the
	// in-memory store: state lives for the process lifetime only.
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// LicenseSecret is the master secret behind code derivation. It is
	// never logged and never leaves the process.
	LicenseSecret string `envconfig:"LICENSE_SECRET"`

	StripeSecretKey     string `envconfig:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `envconfig:"STRIPE_WEBHOOK_SECRET"`
	StripeSuccessURL    string `envconfig:"STRIPE_SUCCESS_URL" default:"https://recusapp.app/success"`
	StripeCancelURL     string `envconfig:"STRIPE_CANCEL_URL" default:"https://recusapp.app/cancel"`

	SentryDSN string `envconfig:"SENTRY_DSN"`

	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`

	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"30"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`

	SMTPHost  string `envconfig:"SMTP_HOST"`
	SMTPPort  string `envconfig:"SMTP_PORT"`
	SMTPUser  string `envconfig:"SMTP_USER"`
	SMTPPass  string `envconfig:"SMTP_PASS"`
	EmailFrom string `envconfig:"EMAIL_FROM" default:"licenses@recusapp.app"`

	// TestMode skips webhook signature verification.
	TestMode bool `envconfig:"TEST_MODE"`
}

func New() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	var result *multierror.Error

	if cfg.LicenseSecret == "" {
		result = multierror.Append(result, errors.New("LICENSE_SECRET environment variable is required"))
	}
	if cfg.StripeSecretKey != "" && cfg.StripeWebhookSecret == "" && !cfg.TestMode {
		result = multierror.Append(result, errors.New("STRIPE_WEBHOOK_SECRET environment variable is required when STRIPE_SECRET_KEY is set"))
	}
	if cfg.RateLimitRequests < 0 {
		result = multierror.Append(result, errors.New("RATE_LIMIT_REQUESTS must not be negative"))
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// StripeEnabled reports whether the hosted checkout gateway is configured.
func (c *Config) StripeEnabled() bool {
	return c.StripeSecretKey != ""
}

// EmailEnabled reports whether SMTP delivery is configured.
func (c *Config) EmailEnabled() bool {
	return c.SMTPHost != "" && c.SMTPPort != "" && c.SMTPUser != "" && c.SMTPPass != ""
}
