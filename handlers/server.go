package handlers

import (
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"go.uber.org/atomic"

	"recusapp.app/cloud/internal/email"
	"recusapp.app/cloud/internal/logger"
	"recusapp.app/cloud/internal/ratelimit"
	"recusapp.app/cloud/ledger"
	"recusapp.app/cloud/payment"
)

type Config struct {
	Version           string
	WebhookSecret     string
	TestMode          bool
	AllowedOrigins    []string
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

type Server struct {
	Router  chi.Router
	Ledger  *ledger.Ledger
	Gateway payment.Gateway
	Email   *email.Sender

	cfg     Config
	limiter ratelimit.RateLimit

	webhookReceived  atomic.Int64
	webhookProcessed atomic.Int64
}

func NewServer(led *ledger.Ledger, gateway payment.Gateway, sender *email.Sender, cfg Config) *Server {
	if cfg.RateLimitRequests == 0 {
		cfg.RateLimitRequests = 30
	}
	if cfg.RateLimitWindow == 0 {
		cfg.RateLimitWindow = time.Minute
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	s := &Server{
		Ledger:  led,
		Gateway: gateway,
		Email:   sender,
		cfg:     cfg,
		limiter: ratelimit.New(cfg.RateLimitRequests, cfg.RateLimitWindow),
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Stripe-Signature"},
		MaxAge:         300,
	}))

	r.Get("/health", s.Health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/payments", s.CreatePayment)
		r.Get("/payments/{id}", s.PaymentStatus)
		r.Post("/payments/{id}/confirm", s.ConfirmPayment)
		r.Post("/webhooks/stripe", s.StripeWebhook)
		r.With(s.rateLimited).Post("/licenses/validate", s.ValidateLicense)
		r.Get("/stats", s.GetStats)
	})
	s.Router = r

	return s
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, HealthResponse{
		Status:    "healthy",
		Version:   s.cfg.Version,
		Timestamp: time.Now(),
	})
}

type ErrorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// writeError maps ledger classifications to HTTP statuses; anything
// unclassified is an infrastructure fault and stays opaque to the caller.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	reason := ledger.ReasonOf(err)
	status := http.StatusInternalServerError
	message := err.Error()

	switch reason {
	case ledger.ReasonValidationError:
		status = http.StatusBadRequest
	case ledger.ReasonNotFound:
		status = http.StatusNotFound
	default:
		logger.Error("Request failed", map[string]interface{}{
			"error": err.Error(),
			"path":  r.URL.Path,
		})
		message = "Internal server error"
	}

	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: message, Reason: reason})
}

func writeBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, ErrorResponse{Error: message})
}

func (s *Server) rateLimited(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if !s.limiter.Allow(host) {
			render.Status(r, http.StatusTooManyRequests)
			render.JSON(w, r, ErrorResponse{Error: "Too many requests"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
