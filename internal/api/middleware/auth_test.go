package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tantalumq/taco/internal/domain"
)

type stubValidator struct {
	userID string
	err    error
	seen   string
}

func (s *stubValidator) ValidateAndRenew(ctx context.Context, token string) (string, error) {
	s.seen = token
	return s.userID, s.err
}

func protectedEcho(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := GetUserID(r.Context())
		assert.True(t, ok)
		w.Write([]byte(userID))
	})
}

func TestAuthMiddleware_Authenticate(t *testing.T) {
	t.Run("valid token reaches handler with user in context", func(t *testing.T) {
		validator := &stubValidator{userID: "alice"}
		mw := NewAuthMiddleware(validator)

		req := httptest.NewRequest(http.MethodGet, "/chats", nil)
		req.Header.Set("Authorization", "Bearer tok123")
		rec := httptest.NewRecorder()

		mw.Authenticate(protectedEcho(t)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "alice", rec.Body.String())
		assert.Equal(t, "tok123", validator.seen)
	})

	t.Run("missing header", func(t *testing.T) {
		mw := NewAuthMiddleware(&stubValidator{userID: "alice"})

		req := httptest.NewRequest(http.MethodGet, "/chats", nil)
		rec := httptest.NewRecorder()

		mw.Authenticate(protectedEcho(t)).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		mw := NewAuthMiddleware(&stubValidator{userID: "alice"})

		req := httptest.NewRequest(http.MethodGet, "/chats", nil)
		req.Header.Set("Authorization", "tok123")
		rec := httptest.NewRecorder()

		mw.Authenticate(protectedEcho(t)).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid session", func(t *testing.T) {
		mw := NewAuthMiddleware(&stubValidator{err: domain.ErrInvalidSession})

		req := httptest.NewRequest(http.MethodGet, "/chats", nil)
		req.Header.Set("Authorization", "Bearer expired")
		rec := httptest.NewRecorder()

		mw.Authenticate(protectedEcho(t)).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
