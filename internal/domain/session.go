package domain

import (
	"context"
	"time"
)

// Session binds an opaque token to a user for a sliding window of time.
// The token is the primary key; it is never reassigned to another user.
type Session struct {
	ID        string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"-"`
}

// SessionRepository defines the interface for session storage
type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) error
	// Delete removes a session; deleting an absent session is not an error.
	Delete(ctx context.Context, id string) error
}
