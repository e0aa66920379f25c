package domain

import (
	"context"
	"time"
)

// Message is a persisted chat message. Immutable once created, except for
// hard deletion. ReplyTo may point at a message that has since been
// deleted; viewers tolerate the dangling reference.
type Message struct {
	ID        string    `json:"message_id"`
	ChatID    string    `json:"chat_id"`
	SenderID  string    `json:"sender_id"`
	Content   string    `json:"message"`
	ReplyTo   *string   `json:"reply_to,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateMessageRequest is the body of a send-message call. The sender is
// always the authenticated requester, never taken from the body.
type CreateMessageRequest struct {
	ChatID    string  `json:"chat_id" validate:"required"`
	Content   string  `json:"content" validate:"required"`
	ReplyToID *string `json:"reply_to_id,omitempty"`
}

// DeleteMessageRequest is the body of a delete-message call.
type DeleteMessageRequest struct {
	ID string `json:"id" validate:"required"`
}

// MessageRepository defines the interface for message storage
type MessageRepository interface {
	// Create inserts the message and advances the owning chat's
	// last_updated to the message's creation time in one transaction.
	Create(ctx context.Context, message *Message) error
	Get(ctx context.Context, id string) (*Message, error)
	Delete(ctx context.Context, id string) error
	// ListByChat returns the chat's messages ordered ascending by created_at.
	ListByChat(ctx context.Context, chatID string) ([]Message, error)
}
