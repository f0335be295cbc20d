package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"ledger/internal/ledger"
	"ledger/internal/log"
	"ledger/internal/metrics"
	"ledger/internal/render"
	appweb "ledger/web"
)

// Server serves the ledger page and its HTMX partials.
//
// The controller is single-threaded, so every call into it and the snapshot
// read that follows happen under mu.
type Server struct {
	http.Server

	mu     sync.Mutex
	ledger *ledger.Controller
	view   *render.Snapshot

	templates *template.Template
	metrics   *metrics.Collector
	ready     func(ctx context.Context) error
	limiter   *rateLimiter
	logger    *log.Logger

	shutdownOnce sync.Once
}

// Option customizes a Server.
type Option func(*Server)

func WithMetrics(m *metrics.Collector) Option {
	return func(s *Server) { s.metrics = m }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithReadiness sets the probe behind /readyz.
func WithReadiness(ready func(ctx context.Context) error) Option {
	return func(s *Server) { s.ready = ready }
}

// WithRateLimit caps mutating requests per client IP.
func WithRateLimit(limit int, window time.Duration) Option {
	return func(s *Server) {
		if s.limiter != nil {
			s.limiter.stop()
		}
		s.limiter = newRateLimiter(limit, window)
	}
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, ctrl *ledger.Controller, view *render.Snapshot, opts ...Option) (*Server, error) {
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		ledger:    ctrl,
		view:      view,
		templates: t,
		ready:     func(context.Context) error { return nil },
		logger:    log.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.limiter == nil {
		s.limiter = newRateLimiter(60, time.Minute)
	}
	s.logger = s.logger.WithComponent(log.ComponentHTTP)

	r := mux.NewRouter()
	r.Use(
		requestIDMiddleware,
		log.Middleware(s.logger, func(r *http.Request) string { return requestIDFromContext(r.Context()) }),
		s.observe,
		securityHeadersMiddleware,
	)

	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}
	fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(static)))
	r.PathPrefix("/static/").Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		fileServer.ServeHTTP(w, r)
	})).Methods(http.MethodGet, http.MethodHead)

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/transactions", s.rateLimited(s.handleCreate)).Methods(http.MethodPost)
	r.HandleFunc("/transactions/clear", s.rateLimited(s.handleClear)).Methods(http.MethodPost)
	r.HandleFunc("/transactions/delete", s.rateLimited(s.handleDelete)).Methods(http.MethodPost)
	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Shutdown stops the rate limiter and gracefully shuts the HTTP server down.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
