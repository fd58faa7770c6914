package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	identityapp "github.com/keygate/keygate/internal/identity/application"
	"github.com/keygate/keygate/internal/identity/domain"
	"github.com/keygate/keygate/internal/ratelimit"
)

type contextKey string

const adminContextKey contextKey = "admin"

// Middleware bundles the cross-cutting HTTP concerns: request logging,
// per-IP rate limiting on the public endpoint, and admin bearer auth.
type Middleware struct {
	auth      *identityapp.AuthService
	ipLimiter ratelimit.Limiter
	logger    *slog.Logger
}

// NewMiddleware creates the middleware set. ipLimiter may be nil to
// disable per-IP limiting, and auth may be nil when no admin routes are
// mounted.
func NewMiddleware(auth *identityapp.AuthService, ipLimiter ratelimit.Limiter, logger *slog.Logger) *Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &Middleware{auth: auth, ipLimiter: ipLimiter, logger: logger}
}

// RequestLogging logs one line per request with method, path, status and
// duration.
func (m *Middleware) RequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		m.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"remote", clientIP(r),
		)
	})
}

// IPRateLimit rejects requests from IPs that exceed the configured rate.
// Limiter errors fail open so a degraded Redis never blocks validation.
func (m *Middleware) IPRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.ipLimiter != nil {
			allowed, err := m.ipLimiter.Allow(r.Context(), clientIP(r))
			if err != nil {
				m.logger.Warn("ip rate limiter unavailable", "error", err)
			} else if !allowed {
				w.Header().Set("Retry-After", "60")
				writeError(w, http.StatusTooManyRequests, "Too many requests")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin verifies the bearer token and stores the admin in the
// request context.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Missing or malformed Authorization header")
			return
		}
		admin, err := m.auth.VerifyAccess(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		ctx := context.WithValue(r.Context(), adminContextKey, admin)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AdminFromContext returns the authenticated admin stored by RequireAdmin.
func AdminFromContext(ctx context.Context) (*domain.Admin, bool) {
	admin, ok := ctx.Value(adminContextKey).(*domain.Admin)
	return admin, ok
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}

// clientIP prefers the first X-Forwarded-For hop, falling back to the
// connection's remote address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first, _, found := strings.Cut(fwd, ","); found || first != "" {
			return strings.TrimSpace(first)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
