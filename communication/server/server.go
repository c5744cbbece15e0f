// Package server exposes a Simulator over a JSON HTTP API.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/applied-statistics/competitions/communication"
	"github.com/applied-statistics/competitions/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

type Server struct {
	router  *chi.Mux
	server  *http.Server
	sim     communication.Simulator
	maxBody int64
	log     zerolog.Logger
}

// New wires the routes of sim. Metrics registered with gatherer are served on /metrics.
func New(cfg config.Server, sim communication.Simulator, gatherer prometheus.Gatherer) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		sim:     sim,
		maxBody: cfg.MaxBodyBytes,
		log:     log.With().Str("component", "server").Logger(),
	}

	s.setupMiddleware(cfg.AllowedOrigins)
	s.setupRoutes(cfg, gatherer)

	s.server = &http.Server{
		Addr:        cfg.Addr,
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
	return s
}

func (s *Server) setupMiddleware(origins []string) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes(cfg config.Server, gatherer prometheus.Gatherer) {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	s.router.Route("/v1", func(r chi.Router) {
		if cfg.RateLimit > 0 {
			r.Use(rateLimit(rate.NewLimiter(rate.Limit(cfg.RateLimit), max(cfg.Burst, 1))))
		}
		r.Post("/sequences", s.handleSequence)

		r.Route("/stopping", func(r chi.Router) {
			r.Post("/evaluate", s.handleEvaluate)
			r.Post("/batch", s.handleStoppingBatch)
		})

		r.Route("/fund", func(r chi.Router) {
			r.Post("/path", s.handleFundPath)
			r.Post("/batch", s.handleFundBatch)
		})

		r.Get("/scenario/{lab}", s.handleScenario)
		r.Get("/scenario/{lab}/audit", s.handleAudit)
	})
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("starting HTTP server")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

// rateLimit rejects requests beyond the limiter's rate with 429.
func rateLimit(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				respondJSON(w, http.StatusTooManyRequests, communication.ErrorResponse{Error: "too many requests"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
