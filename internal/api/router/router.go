package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpmiddleware "github.com/reprocare/reprocare/internal/http/middleware"
	"github.com/reprocare/reprocare/internal/visit"
	"github.com/reprocare/reprocare/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	VisitHandler       *visit.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// RateLimitRPS enables per-IP rate limiting when positive.
	RateLimitRPS   float64
	RateLimitBurst int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	if cfg.RateLimitRPS > 0 {
		r.Use(httpmiddleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	}

	r.Get("/health", healthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// Visit lifecycle
	r.Post("/visit", cfg.VisitHandler.CreateVisit)
	r.Get("/visit/{visitID}", cfg.VisitHandler.GetVisit)
	r.Post("/intake_to_json", cfg.VisitHandler.SubmitIntake)
	r.Post("/create_room", cfg.VisitHandler.CreateRoom)
	r.Post("/post_visit_explain", cfg.VisitHandler.PostVisitExplain)
	r.Post("/pharmacy_order", cfg.VisitHandler.PharmacyOrder)

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
