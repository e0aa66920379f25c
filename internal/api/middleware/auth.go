package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tantalumq/taco/internal/api/response"
	"github.com/tantalumq/taco/internal/domain"
	"github.com/tantalumq/taco/internal/repository/redis"
)

type contextKey string

const (
	UserIDKey       contextKey = "userID"
	SessionTokenKey contextKey = "sessionToken"
)

// SessionValidator resolves a bearer token to a user id, renewing the
// session's expiry on every successful lookup.
type SessionValidator interface {
	ValidateAndRenew(ctx context.Context, token string) (string, error)
}

// AuthMiddleware handles session token authentication
type AuthMiddleware struct {
	sessions SessionValidator
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(sessions SessionValidator) *AuthMiddleware {
	return &AuthMiddleware{sessions: sessions}
}

// Authenticate validates the bearer token and renews the session
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			response.Unauthorized(w, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			response.Unauthorized(w, "invalid authorization header format")
			return
		}
		token := strings.TrimSpace(parts[1])

		userID, err := m.sessions.ValidateAndRenew(r.Context(), token)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidSession) {
				response.Unauthorized(w, "invalid or expired session")
				return
			}
			response.InternalError(w, "failed to validate session")
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, userID)
		ctx = context.WithValue(ctx, SessionTokenKey, token)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserID gets the authenticated user ID from context
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}

// GetSessionToken gets the bearer token from context
func GetSessionToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(SessionTokenKey).(string)
	return token, ok
}

// RateLimitMiddleware handles per-user rate limiting
type RateLimitMiddleware struct {
	rateLimiter *redis.RateLimiter
}

// NewRateLimitMiddleware creates a new rate limit middleware
func NewRateLimitMiddleware(rateLimiter *redis.RateLimiter) *RateLimitMiddleware {
	return &RateLimitMiddleware{rateLimiter: rateLimiter}
}

// Limit applies rate limiting keyed by the authenticated user
func (m *RateLimitMiddleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := GetUserID(r.Context())
		if !ok {
			response.Unauthorized(w, "unauthorized")
			return
		}

		allowed, remaining, resetTime, err := m.rateLimiter.Allow(r.Context(), userID)
		if err != nil {
			// A broken limiter should not take the API down with it.
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", resetTime.Format(time.RFC3339))

		if !allowed {
			response.TooManyRequests(w, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}
