package domain

import "errors"

// Sentinel errors shared across services and handlers. Handlers translate
// them to HTTP status codes with errors.Is; services wrap them with context.
var (
	// ErrInvalidSession covers missing, malformed, expired, and unknown
	// session tokens. An expired token is deleted on first use and can
	// never become valid again.
	ErrInvalidSession = errors.New("invalid session")

	// ErrConflict is returned for self-chat creation and duplicate usernames.
	ErrConflict = errors.New("conflict")

	// ErrNotFound is returned when a record does not exist or the caller
	// is not a member of the chat that owns it.
	ErrNotFound = errors.New("not found")

	// ErrInvalidCredentials is returned on failed login.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
