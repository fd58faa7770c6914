// Package api provides the HTTP surface of the license server: the
// public validation endpoint and the authenticated admin API.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// Server is the license server's HTTP front end.
type Server struct {
	mux      *http.ServeMux
	server   *http.Server
	logger   *slog.Logger
	validate *ValidationHandler
	licenses *LicenseHandler
	auth     *AuthHandler
	mw       *Middleware
}

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultServerConfig returns the default server configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:         "0.0.0.0:8080",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// NewServer creates the API server and registers all routes.
func NewServer(cfg ServerConfig, validate *ValidationHandler, licenses *LicenseHandler, auth *AuthHandler, mw *Middleware, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	s := &Server{
		mux:      mux,
		logger:   logger,
		validate: validate,
		licenses: licenses,
		auth:     auth,
		mw:       mw,
	}

	s.registerRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.mw.RequestLogging(s.mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// registerRoutes sets up the API routes.
func (s *Server) registerRoutes() {
	// Public
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.Handle("POST /api/v1/licenses/validate", s.mw.IPRateLimit(http.HandlerFunc(s.validate.Validate)))

	// Admin authentication
	s.mux.HandleFunc("POST /api/v1/auth/login", s.auth.Login)
	s.mux.HandleFunc("POST /api/v1/auth/refresh", s.auth.Refresh)

	// Admin license management
	s.mux.Handle("POST /api/v1/licenses", s.mw.RequireAdmin(http.HandlerFunc(s.licenses.Create)))
	s.mux.Handle("GET /api/v1/licenses", s.mw.RequireAdmin(http.HandlerFunc(s.licenses.List)))
	s.mux.Handle("GET /api/v1/licenses/{licenseID}", s.mw.RequireAdmin(http.HandlerFunc(s.licenses.Get)))
	s.mux.Handle("PATCH /api/v1/licenses/{licenseID}", s.mw.RequireAdmin(http.HandlerFunc(s.licenses.Update)))
	s.mux.Handle("DELETE /api/v1/licenses/{licenseID}", s.mw.RequireAdmin(http.HandlerFunc(s.licenses.Deactivate)))
	s.mux.Handle("GET /api/v1/licenses/{licenseID}/history", s.mw.RequireAdmin(http.HandlerFunc(s.licenses.History)))
	s.mux.Handle("GET /api/v1/admin/stats", s.mw.RequireAdmin(http.HandlerFunc(s.licenses.Stats)))
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Start starts the API server.
func (s *Server) Start() error {
	s.logger.Info("starting license API server",
		"addr", s.server.Addr,
	)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down license API server")
	return s.server.Shutdown(ctx)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", "error", err)
		}
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error":   http.StatusText(status),
		"message": message,
	})
}
