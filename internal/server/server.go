// Package server exposes the trading backend over HTTP: REST endpoints for
// quotes, portfolios and trades, a WebSocket quote stream, Prometheus
// metrics and a system status probe.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/henryhwan14/DISCORDBOT/internal/engine"
	"github.com/henryhwan14/DISCORDBOT/internal/journal"
	"github.com/henryhwan14/DISCORDBOT/internal/market"
	"github.com/henryhwan14/DISCORDBOT/internal/metrics"
)

// Config holds server configuration.
type Config struct {
	Addr    string
	Log     zerolog.Logger
	Feed    *market.Feed
	Engine  *engine.Engine
	Journal *journal.Journal
	Metrics *metrics.Metrics
}

// Server represents the HTTP server.
type Server struct {
	router  *chi.Mux
	server  *http.Server
	log     zerolog.Logger
	feed    *market.Feed
	engine  *engine.Engine
	journal *journal.Journal
	metrics *metrics.Metrics
	started time.Time

	wsMu      sync.RWMutex
	wsClients map[*wsClient]bool
}

// New creates a new HTTP server.
func New(cfg Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		feed:      cfg.Feed,
		engine:    cfg.Engine,
		journal:   cfg.Journal,
		metrics:   cfg.Metrics,
		started:   time.Now(),
		wsClients: make(map[*wsClient]bool),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:        cfg.Addr,
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware.
func (s *Server) setupMiddleware() {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// Timeout
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

// setupRoutes configures all routes.
func (s *Server) setupRoutes() {
	// Health check
	s.router.Get("/health", s.handleHealth)

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/stocks", s.handleListStocks)
		r.Get("/stocks/{symbol}", s.handleGetStock)

		r.Get("/users/{userID}/portfolio", s.handlePortfolio)

		r.Post("/trades", s.handleTrade)
		r.Get("/trades/recent", s.handleRecentTrades)

		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.handleSystemStatus)
		})
	})

	// Prometheus exposition
	s.router.Handle("/metrics", s.metrics.Handler())

	// Live quote stream
	s.router.Get("/ws/quotes", s.handleQuotesWS)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server. WebSocket clients are not
// waited on here; stopping the feed closes their subscriptions, which ends
// their pumps.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
