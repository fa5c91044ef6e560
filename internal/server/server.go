// Package server provides the HTTP server and routing for Meridian.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/meridian/internal/domain"
	"github.com/aristath/meridian/internal/modules/market_hours"
)

// TickerSource lists the active universe
type TickerSource interface {
	GetAll(ctx context.Context) ([]domain.Ticker, error)
}

// OrderSource lists decided orders
type OrderSource interface {
	GetForDay(ctx context.Context, accountID string, day time.Time) ([]domain.Order, error)
}

// HistorySource lists fills
type HistorySource interface {
	GetBySymbol(ctx context.Context, accountID, symbol string, limit int) ([]domain.OrderHistory, error)
	GetRecent(ctx context.Context, accountID string, limit int) ([]domain.OrderHistory, error)
}

// JobRunner triggers scheduled jobs by name
type JobRunner interface {
	Jobs() []string
	RunNow(ctx context.Context, name string) error
}

// HealthChecker verifies the store
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// MarketStatus reports today's market state
type MarketStatus interface {
	Status(ctx context.Context) (*market_hours.Status, error)
}

// MetricsRecorder exposes prometheus metrics and instruments requests
type MetricsRecorder interface {
	Handler() http.Handler
	Middleware(next http.Handler) http.Handler
}

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Port      int
	AccountID string
	DataDir   string

	Tickers TickerSource
	Orders  OrderSource
	History HistorySource
	Jobs    JobRunner
	DB      HealthChecker
	Market  MarketStatus
	Metrics MetricsRecorder
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
	cfg    Config
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
		cfg:    cfg,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	if s.cfg.Metrics != nil {
		s.router.Use(s.cfg.Metrics.Middleware)
	}
	// Job triggers run a full stage synchronously
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	if s.cfg.Metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.cfg.Metrics.Handler())
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/tickers", s.handleTickers)

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", s.handleOrders)
			r.Get("/history", s.handleOrderHistory)
		})

		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", s.handleJobs)
			r.Post("/{name}/run", s.handleRunJob)
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		event := s.log.Debug()
		if ww.Status() >= http.StatusInternalServerError {
			event = s.log.Warn()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
