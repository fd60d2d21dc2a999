package http

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/example/barcamp-slotplanner/internal/application"
)

type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (application.Principal, error)
}

// RequireSession rejects requests that do not carry a valid admin session
// token and attaches the resolved principal to the request context.
func RequireSession(validator SessionValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractTokenFromRequest(r)
			if token == "" {
				responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
				return
			}

			principal, err := validator.ValidateSession(r.Context(), token)
			if err != nil {
				switch {
				case errors.Is(err, application.ErrSessionExpired):
					responder.writeJSON(r.Context(), w, http.StatusUnauthorized, errorResponse{Message: "the session has expired, log in again"})
				case errors.Is(err, application.ErrNotFound), errors.Is(err, application.ErrInvalidCredentials):
					responder.writeJSON(r.Context(), w, http.StatusUnauthorized, errorResponse{Message: "the session token is not valid, log in again"})
				default:
					responder.writeJSON(r.Context(), w, http.StatusInternalServerError, errorResponse{Message: "session validation failed"})
				}
				return
			}

			ctx := ContextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestLogger attaches a request scoped logger carrying a per-process
// request counter and logs the request boundaries.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	var counter atomic.Uint64

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := counter.Add(1)
			logger := base.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := ContextWithLogger(r.Context(), logger)
			start := time.Now()
			logger.InfoContext(ctx, "request started")
			next.ServeHTTP(w, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed", "duration", time.Since(start))
		})
	}
}

// ipRateLimiter keeps one token bucket per client address.
type ipRateLimiter struct {
	mu    sync.Mutex
	ips   map[string]*rate.Limiter
	limit rate.Limit
	burst int
}

func newIPRateLimiter(limit rate.Limit, burst int) *ipRateLimiter {
	return &ipRateLimiter{
		ips:   make(map[string]*rate.Limiter),
		limit: limit,
		burst: burst,
	}
}

func (l *ipRateLimiter) limiterFor(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	limiter, ok := l.ips[ip]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.ips[ip] = limiter
	}
	return limiter
}

// RateLimit throttles requests per client IP. perMinute is the sustained
// allowance; burst is the number of requests a quiet client may issue at once.
func RateLimit(perMinute, burst int, logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)
	limiters := newIPRateLimiter(rate.Limit(float64(perMinute)/60.0), burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if !limiters.limiterFor(ip).Allow() {
				responder.writeJSON(r.Context(), w, http.StatusTooManyRequests, errorResponse{
					ErrorCode: "RATE_LIMITED",
					Message:   "too many requests, slow down",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
