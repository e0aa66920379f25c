package service

import (
	"context"
	"fmt"

	"github.com/tantalumq/taco/internal/domain"
)

// Presence reports whether a user currently has an open connection
type Presence interface {
	IsOnline(ctx context.Context, userID string) (bool, error)
}

// UserService handles profile reads and updates
type UserService struct {
	userRepo domain.UserRepository
	presence Presence
}

// NewUserService creates a new user service
func NewUserService(userRepo domain.UserRepository, presence Presence) *UserService {
	return &UserService{
		userRepo: userRepo,
		presence: presence,
	}
}

// Status returns a user's public profile together with their presence
func (s *UserService) Status(ctx context.Context, userID string) (*domain.UserStatus, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	online, err := s.presence.IsOnline(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check presence: %w", err)
	}

	return &domain.UserStatus{
		ID:             user.ID,
		DisplayName:    user.DisplayName,
		ProfilePicture: user.ProfilePicture,
		Online:         online,
	}, nil
}

// UpdateProfile applies the requester's profile changes
func (s *UserService) UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) error {
	if err := s.userRepo.UpdateProfile(ctx, userID, update); err != nil {
		return err
	}
	return nil
}
