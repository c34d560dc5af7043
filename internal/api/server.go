// Package api provides the HTTP server for tally.
// It exposes the scoring engine, the points ledger and health as JSON.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tutu-network/tally/internal/app/engagement"
	"github.com/tutu-network/tally/internal/app/ledger"
	"github.com/tutu-network/tally/internal/domain"
	"github.com/tutu-network/tally/internal/health"
)

// Version is reported by /api/version.
const Version = "0.1.0"

// Server is the tally HTTP API server.
type Server struct {
	eng            *engagement.Engine
	ledger         *ledger.Service
	health         *health.Checker
	log            *zap.Logger
	validate       *validator.Validate
	limiter        *rate.Limiter // nil disables rate limiting
	corsOrigins    []string
	metricsEnabled bool
}

// NewServer creates a new API server. hc may be nil.
func NewServer(eng *engagement.Engine, led *ledger.Service, hc *health.Checker, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		eng:         eng,
		ledger:      led,
		health:      hc,
		log:         log.Named("api"),
		validate:    validator.New(),
		corsOrigins: []string{"*"},
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetRateLimit limits mutating requests to perSec with the given burst.
func (s *Server) SetRateLimit(perSec float64, burst int) {
	if burst <= 0 {
		burst = 1
	}
	s.limiter = rate.NewLimiter(rate.Limit(perSec), burst)
}

// SetCORSOrigins sets the allowed origins. Empty keeps the default "*".
func (s *Server) SetCORSOrigins(origins []string) {
	if len(origins) > 0 {
		s.corsOrigins = origins
	}
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(s.corsMiddleware)
	r.Use(s.metricsMiddleware)

	r.Get("/health", s.handleHealth)

	r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"version": Version,
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)

		r.Get("/achievements", s.handleAchievements)
		r.Get("/achievements/summary", s.handleAchievementSummary)

		r.Get("/goals", s.handleGoals)
		r.Get("/goals/daily", s.handleDailyGoal)
		r.Get("/goals/weekly", s.handleWeeklyGoal)
		r.Get("/goals/monthly", s.handleMonthlyGoal)
		r.Get("/goals/suggestions", s.handleGoalSuggestions)

		r.Get("/report", s.handleReport)

		r.Get("/ledger", s.handleLedger)
		r.Get("/ledger/reconcile", s.handleReconcile)

		r.Get("/notifications", s.handleNotifications)

		// Mutating routes share the rate limiter. Listing tracked goals
		// refreshes their progress, so it counts as a write.
		r.Group(func(r chi.Router) {
			r.Use(s.rateLimitMiddleware)

			r.Get("/goals/tracked", s.handleTrackedGoals)

			r.Post("/completions", s.handleComplete)
			r.Post("/tasks/created", s.handleTaskCreated)
			r.Post("/penalties", s.handlePenalties)
			r.Post("/achievements/check", s.handleAchievementCheck)
			r.Put("/goals", s.handleSetGoals)
			r.Post("/goals/tracked", s.handleTrackGoal)
			r.Delete("/goals/tracked/{id}", s.handleUntrackGoal)
			r.Post("/notifications/{id}/shown", s.handleNotificationShown)
		})
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errorType(status),
		},
	})
}

func errorType(status int) string {
	switch {
	case status == http.StatusTooManyRequests:
		return "rate_limited"
	case status == http.StatusNotFound:
		return "not_found"
	case status < 500:
		return "invalid_request"
	default:
		return "internal"
	}
}

// writeDomainError maps engine errors onto HTTP statuses.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		s.log.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeBody decodes and validates a JSON request body.
// An empty body decodes to the zero value.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fe.Namespace()+" failed "+fe.Tag())
	}
	return "validation failed: " + strings.Join(parts, ", ")
}
