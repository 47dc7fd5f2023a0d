package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/flight-delay-service/internal/domain"
	"github.com/couchcryptid/flight-delay-service/internal/observability"
)

// APIVersion is reported by the root endpoint.
const APIVersion = "1.0.0"

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Predictor is the serving state the API answers from.
type Predictor interface {
	ReadinessChecker
	Predict(ctx context.Context, req domain.PredictionRequest) (domain.Prediction, error)
	Airports(limit, offset int) (int, []domain.Airport, error)
	RunID() string
}

// EventPublisher receives every successful prediction.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.PredictionEvent) error
}

// Option configures optional server collaborators.
type Option func(*Server)

// WithPublisher streams prediction events to p.
func WithPublisher(p EventPublisher) Option {
	return func(s *Server) { s.publisher = p }
}

// WithMetrics records request outcomes in m.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// Server exposes the prediction API plus health, readiness, and metrics
// endpoints.
type Server struct {
	httpServer *http.Server
	predictor  Predictor
	publisher  EventPublisher
	metrics    *observability.Metrics
	validate   *validator.Validate
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the API routes and /healthz, /readyz,
// and /metrics.
func NewServer(addr string, predictor Predictor, logger *slog.Logger, opts ...Option) *Server {
	r := chi.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		predictor: predictor,
		validate:  newValidator(),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware([]string{"*"}))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/airports", s.handleAirports)
	r.Post("/predict", s.handlePredict)

	r.Get("/healthz", s.handleLiveness)
	r.Get("/readyz", handleReady(predictor))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if checker == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "error": "model not loaded"})
			return
		}
		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
