// Package api is the vempat-remote HTTP server: a document store the sync
// queue reconciles against, plus a small identity service for logins.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vempat/vempat/internal/remote"
)

// Server is the HTTP API server for vempat-remote.
type Server struct {
	config  Config
	http    *http.Server
	docs    remote.DocStore
	users   *userStore
	metrics *Metrics
	ping    func(ctx context.Context) error
}

// Option customizes a Server.
type Option func(*Server)

// WithPing sets the backend health check used by /healthz.
func WithPing(ping func(ctx context.Context) error) Option {
	return func(s *Server) { s.ping = ping }
}

// NewServer creates a Server storing documents in docs.
func NewServer(cfg Config, docs remote.DocStore, opts ...Option) (*Server, error) {
	if docs == nil {
		return nil, errors.New("nil document store")
	}
	s := &Server{
		config:  cfg,
		docs:    docs,
		users:   &userStore{docs: docs},
		metrics: NewMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.http = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s, nil
}

// SeedAdmin creates the configured admin user unless one already exists.
func (s *Server) SeedAdmin(ctx context.Context) error {
	if s.config.AdminEmail == "" || s.config.AdminPassword == "" {
		return nil
	}
	u, err := s.users.create(ctx, newUser{
		Email:    s.config.AdminEmail,
		Password: s.config.AdminPassword,
		Name:     "Administrator",
		Role:     "SuperAdmin",
	})
	if errors.Is(err, errEmailTaken) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	slog.Info("seeded admin user", "uid", u.UID, "email", u.Email)
	return nil
}

// Start begins listening for HTTP requests (non-blocking).
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	go func() {
		if err := s.http.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("http server", "err", err)
		}
	}()
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Handler builds the HTTP handler with all routes and middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		requestLog,
		recoverPanics,
		s.metrics.Middleware,
		secureHeaders(s.config),
		cors(corsPolicy{origins: s.config.CORSAllowedOrigins}),
		middleware.RequestSize(maxBodyBytes),
	)

	// Health & metrics
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		// Auth (public)
		r.Group(func(r chi.Router) {
			r.Use(rateLimit(s.config.RateLimitAuth))
			r.Post("/auth/login", s.handleLogin)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireAPIKey, rateLimit(s.config.RateLimit))
			r.Post("/users", s.handleCreateUser)

			r.Get("/collections/{collection}/docs", s.handleListDocs)
			r.Get("/collections/{collection}/docs/{id}", s.handleGetDoc)
			r.Patch("/collections/{collection}/docs/{id}", s.handleMergeDoc)
			r.Delete("/collections/{collection}/docs/{id}", s.handleDeleteDoc)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "no such route")
	})
	return r
}

// handleHealth returns a health check response, pinging the backend.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ping(ctx); err != nil {
			logFor(r.Context()).Warn("backend ping failed", "err", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error", "detail": "backend unreachable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
