package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tantalumq/taco/internal/domain"
	"github.com/tantalumq/taco/internal/security"
)

// AuthService handles account registration and session lifecycle.
// Session tokens are opaque and stored server side; every successful
// validation renews the expiry, so only idle sessions die.
type AuthService struct {
	userRepo    domain.UserRepository
	sessionRepo domain.SessionRepository
	hasher      *security.PasswordHasher
	sessionTTL  time.Duration
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo domain.UserRepository,
	sessionRepo domain.SessionRepository,
	hasher *security.PasswordHasher,
	sessionTTL time.Duration,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		hasher:      hasher,
		sessionTTL:  sessionTTL,
	}
}

// Register creates a new user account and opens a session for it
func (s *AuthService) Register(ctx context.Context, input domain.LoginInfo) (*domain.Session, error) {
	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		ID:           input.Username,
		DisplayName:  input.Username,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, domain.ErrConflict
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.CreateSession(ctx, user.ID)
}

// Login verifies credentials and opens a new session
func (s *AuthService) Login(ctx context.Context, input domain.LoginInfo) (*domain.Session, error) {
	user, err := s.userRepo.GetByID(ctx, input.Username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !s.hasher.Compare(user.PasswordHash, input.Password) {
		return nil, domain.ErrInvalidCredentials
	}

	return s.CreateSession(ctx, user.ID)
}

// Logout destroys the session identified by the token. Unknown tokens
// are treated as already logged out.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if err := s.sessionRepo.Delete(ctx, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// CreateSession issues a fresh opaque token for the user
func (s *AuthService) CreateSession(ctx context.Context, userID string) (*domain.Session, error) {
	token, err := security.NewSessionToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	session := &domain.Session{
		ID:        token,
		UserID:    userID,
		ExpiresAt: time.Now().Add(s.sessionTTL),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// ValidateAndRenew resolves a token to its user and pushes the expiry
// forward. An expired session is deleted on sight, so a token rejected
// once stays rejected.
func (s *AuthService) ValidateAndRenew(ctx context.Context, token string) (string, error) {
	session, err := s.sessionRepo.Get(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.ErrInvalidSession
		}
		return "", fmt.Errorf("failed to get session: %w", err)
	}

	now := time.Now()
	if now.After(session.ExpiresAt) {
		if err := s.sessionRepo.Delete(ctx, token); err != nil {
			return "", fmt.Errorf("failed to delete expired session: %w", err)
		}
		return "", domain.ErrInvalidSession
	}

	if err := s.sessionRepo.UpdateExpiry(ctx, token, now.Add(s.sessionTTL)); err != nil {
		return "", fmt.Errorf("failed to renew session: %w", err)
	}

	return session.UserID, nil
}
