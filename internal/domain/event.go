package domain

import "time"

// EventKind identifies the populated variant of an EventPayload.
type EventKind string

const (
	EventChatMessage   EventKind = "ChatMessage"
	EventCreateChat    EventKind = "CreateChat"
	EventLeaveChat     EventKind = "LeaveChat"
	EventDeleteMessage EventKind = "DeleteMessage"
)

// WsChatMessage is the wire form of a delivered message. It is also the
// element type of the get-messages history response.
type WsChatMessage struct {
	ChatID    string    `json:"chat_id"`
	SenderID  string    `json:"sender_id"`
	MessageID string    `json:"message_id"`
	Message   string    `json:"message"`
	ReplyTo   *string   `json:"reply_to"`
	CreatedAt time.Time `json:"created_at"`
}

// WsCreateChat announces a newly created chat to its members.
type WsCreateChat struct {
	ChatID  string   `json:"chat_id"`
	Members []string `json:"members"`
}

// WsLeaveChat announces that a member left a chat.
type WsLeaveChat struct {
	ChatID string `json:"chat_id"`
	Member string `json:"member"`
}

// WsDeleteMessage announces a hard-deleted message.
type WsDeleteMessage struct {
	ChatID    string `json:"chat_id"`
	MessageID string `json:"message_id"`
}

// EventPayload is the externally-tagged union written to sockets:
// exactly one field is non-nil, and the JSON object carries exactly one
// key naming the variant, e.g. {"ChatMessage": {...}}.
type EventPayload struct {
	ChatMessage   *WsChatMessage   `json:"ChatMessage,omitempty"`
	CreateChat    *WsCreateChat    `json:"CreateChat,omitempty"`
	LeaveChat     *WsLeaveChat     `json:"LeaveChat,omitempty"`
	DeleteMessage *WsDeleteMessage `json:"DeleteMessage,omitempty"`
}

// Kind returns the populated variant, or "" for a malformed payload.
func (p EventPayload) Kind() EventKind {
	switch {
	case p.ChatMessage != nil:
		return EventChatMessage
	case p.CreateChat != nil:
		return EventCreateChat
	case p.LeaveChat != nil:
		return EventLeaveChat
	case p.DeleteMessage != nil:
		return EventDeleteMessage
	}
	return ""
}

// RecipientEvent pairs a payload with the user ids that should receive it.
// It is transient: constructed after a successful mutation, consumed once
// by the bus fan-out, never persisted or replayed.
type RecipientEvent struct {
	RecipientIDs map[string]struct{}
	Payload      EventPayload
}

// NewRecipientEvent builds an event targeted at the given user ids.
func NewRecipientEvent(payload EventPayload, recipients ...string) RecipientEvent {
	ids := make(map[string]struct{}, len(recipients))
	for _, r := range recipients {
		ids[r] = struct{}{}
	}
	return RecipientEvent{RecipientIDs: ids, Payload: payload}
}

// IsRecipient reports whether userID should receive the event.
func (e RecipientEvent) IsRecipient(userID string) bool {
	_, ok := e.RecipientIDs[userID]
	return ok
}

// EventPublisher is the outbound side of the message bus as seen by the
// mutation services. Publish never blocks the caller.
type EventPublisher interface {
	Publish(event RecipientEvent)
}
