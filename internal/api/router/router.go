package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wellspring-health/practice-scheduler/internal/http/handlers"
	httpmiddleware "github.com/wellspring-health/practice-scheduler/internal/http/middleware"
	"github.com/wellspring-health/practice-scheduler/internal/patients"
	"github.com/wellspring-health/practice-scheduler/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	BookingHandler     *handlers.BookingHandler
	SchedulingHandler  *handlers.SchedulingHandler
	SessionsHandler    *handlers.SessionsHandler
	PatientsHandler    *patients.Handler
	MetricsHandler     http.Handler
	TherapistJWTSecret string
	CORSAllowedOrigins []string
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

	// Public endpoints (health, metrics, patient-facing booking)
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.BookingHandler != nil {
			public.Post("/book", cfg.BookingHandler.Book)
			public.Get("/book/{token}", cfg.BookingHandler.ValidateLink)
		}
	})

	// Therapist endpoints (JWT required, scoped to one practice)
	r.Route("/api", func(api chi.Router) {
		api.Use(httpmiddleware.TherapistJWT(cfg.TherapistJWTSecret))

		if cfg.SchedulingHandler != nil {
			api.Get("/availability", cfg.SchedulingHandler.GetAvailability)
			api.Put("/availability", cfg.SchedulingHandler.PutAvailability)
			api.Get("/slots", cfg.SchedulingHandler.GetSlots)
		}
		if cfg.BookingHandler != nil {
			api.Post("/booking-links", cfg.BookingHandler.IssueLink)
		}
		if cfg.SessionsHandler != nil {
			api.Route("/sessions", func(r chi.Router) {
				r.Post("/", cfg.SessionsHandler.Create)
				r.Get("/", cfg.SessionsHandler.List)
				r.Post("/{sessionID}/status", cfg.SessionsHandler.UpdateStatus)
			})
		}
		if cfg.PatientsHandler != nil {
			api.Route("/patients", func(r chi.Router) {
				r.Post("/", cfg.PatientsHandler.Create)
				r.Get("/{patientID}", cfg.PatientsHandler.Get)
			})
		}
	})

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
