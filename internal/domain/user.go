package domain

import (
	"context"
	"time"
)

// User represents a platform user. The ID doubles as the public username;
// it is what chat member lists and message sender fields refer to.
type User struct {
	ID             string    `json:"id"`
	DisplayName    string    `json:"display_name"`
	ProfilePicture *string   `json:"profile_picture,omitempty"`
	PasswordHash   string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

// LoginInfo represents registration and login credentials
type LoginInfo struct {
	Username string `json:"username" validate:"required,min=1,max=64"`
	Password string `json:"password" validate:"required,min=1,max=72"`
}

// UserStatus is the public view of a user returned by the status endpoint.
// Online is derived from the presence store, not persisted with the user.
type UserStatus struct {
	ID             string  `json:"id"`
	DisplayName    string  `json:"display_name"`
	ProfilePicture *string `json:"profile_picture"`
	Online         bool    `json:"online"`
}

// ProfileUpdate carries the optional fields of an update_profile call.
// Nil means "leave unchanged"; ProfilePicture may be set to null to clear it.
type ProfileUpdate struct {
	DisplayName    *string `json:"display_name,omitempty"`
	ProfilePicture *string `json:"profile_picture,omitempty"`
}

// UserRepository defines the interface for user storage
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	Exists(ctx context.Context, id string) (bool, error)
	UpdateProfile(ctx context.Context, id string, update ProfileUpdate) error
}
