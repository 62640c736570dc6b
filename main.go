package main

import (
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"

	"recusapp.app/cloud/handlers"
	"recusapp.app/cloud/internal/config"
	"recusapp.app/cloud/internal/email"
	"recusapp.app/cloud/internal/logger"
	"recusapp.app/cloud/ledger"
	"recusapp.app/cloud/license"
	"recusapp.app/cloud/payment"
	"recusapp.app/cloud/storage"
)

var version = "dev"

func main() {
	if versionBytes, err := os.ReadFile("VERSION"); err == nil {
		version = strings.TrimSpace(string(versionBytes))
	}

	godotenv.Load()

	cfg, err := config.New()
	if err != nil {
		log.Fatalf("config: %s", err)
	}

	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			TracesSampleRate: 1.0,
		})
		if err != nil {
			log.Fatalf("sentry.Init: %s", err)
		}
	}

	var store storage.Store
	if cfg.DatabaseURL != "" {
		store, err = storage.NewSQLiteStore(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("storage: %s", err)
		}
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory storage")
		store = storage.NewMemoryStore()
	}
	defer store.Close()

	led := ledger.New(store, license.NewEngine(cfg.LicenseSecret))

	var gateway payment.Gateway
	if cfg.StripeEnabled() {
		gateway = payment.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeSuccessURL, cfg.StripeCancelURL)
	} else {
		logger.Warn("STRIPE_SECRET_KEY not set, checkout disabled")
	}

	var sender *email.Sender
	if cfg.EmailEnabled() {
		sender = &email.Sender{
			Host: cfg.SMTPHost,
			Port: cfg.SMTPPort,
			User: cfg.SMTPUser,
			Pass: cfg.SMTPPass,
			From: cfg.EmailFrom,
		}
	}

	srv := handlers.NewServer(led, gateway, sender, handlers.Config{
		Version:           version,
		WebhookSecret:     cfg.StripeWebhookSecret,
		TestMode:          cfg.TestMode,
		AllowedOrigins:    cfg.CORSOrigins,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
	})

	logger.Info("RecusApp cloud API starting", map[string]interface{}{
		"version": version,
		"port":    cfg.Port,
	})
	log.Fatal(http.ListenAndServe(":"+cfg.Port, srv.Router))
}
