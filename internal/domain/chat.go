package domain

import (
	"context"
	"time"
)

// Chat is a direct conversation between exactly two users. Creation with
// yourself or with an unknown user is rejected.
type Chat struct {
	ID          string    `json:"id"`
	Members     []string  `json:"members"`
	LastUpdated time.Time `json:"last_updated"`
}

// OtherMember returns the member that is not userID. A chat that has
// degenerated to a single member returns that member instead of failing.
func (c *Chat) OtherMember(userID string) string {
	for _, m := range c.Members {
		if m != userID {
			return m
		}
	}
	if len(c.Members) > 0 {
		return c.Members[0]
	}
	return ""
}

// CreateChatRequest asks to open a chat with one other user.
type CreateChatRequest struct {
	OtherMembers string `json:"other_members" validate:"required"`
}

// LeaveChatRequest asks to leave a chat.
type LeaveChatRequest struct {
	ChatID string `json:"chat_id" validate:"required"`
}

// ChatRepository defines the interface for chat storage
type ChatRepository interface {
	Create(ctx context.Context, chat *Chat) error
	// Get returns the chat with its current member list, or ErrNotFound.
	Get(ctx context.Context, id string) (*Chat, error)
	ListByMember(ctx context.Context, userID string) ([]Chat, error)
	// IsMember reports whether userID is currently a member of the chat.
	IsMember(ctx context.Context, chatID, userID string) (bool, error)
}
