package client

import (
	"sort"
	"sync"
	"time"

	"github.com/tantalumq/taco/internal/domain"
)

// Reconciler merges the three update sources of a chat client, full
// reloads, send responses and push events, into one view. A single
// mutex serializes all writers so a reload's clear can never interleave
// with an in-flight push upsert.
type Reconciler struct {
	mu         sync.Mutex
	userID     string
	chats      map[string]domain.Chat
	openChatID string
	history    *History
	replyDraft string
}

// NewReconciler creates a reconciler for the given user
func NewReconciler(userID string) *Reconciler {
	return &Reconciler{
		userID:  userID,
		chats:   make(map[string]domain.Chat),
		history: NewHistory(),
	}
}

// SetChats replaces the chat list, e.g. from the initial chats fetch
func (r *Reconciler) SetChats(chats []domain.Chat) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.chats = make(map[string]domain.Chat, len(chats))
	for _, chat := range chats {
		r.chats[chat.ID] = chat
	}
}

// Chats returns the chat list sorted by last activity, newest first.
// The ordering is recomputed from scratch on every call.
func (r *Reconciler) Chats() []domain.Chat {
	r.mu.Lock()
	defer r.mu.Unlock()

	chats := make([]domain.Chat, 0, len(r.chats))
	for _, chat := range r.chats {
		chats = append(chats, chat)
	}
	sort.Slice(chats, func(i, j int) bool {
		return chats[i].LastUpdated.After(chats[j].LastUpdated)
	})
	return chats
}

// OpenChat switches the view to a chat and resets its history from a
// full fetch, in server order. Also the resynchronization path after a
// gap: missed events are unrecoverable, so the slate is wiped first.
func (r *Reconciler) OpenChat(chatID string, messages []domain.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.openChatID = chatID
	r.replyDraft = ""
	r.history.Clear()
	for _, message := range messages {
		r.history.Upsert(message)
	}
}

// CloseChat leaves the open chat view
func (r *Reconciler) CloseChat() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.openChatID = ""
	r.replyDraft = ""
	r.history.Clear()
}

// OpenChatID returns the id of the currently open chat, if any
func (r *Reconciler) OpenChatID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.openChatID
}

// Messages returns the open chat's messages in insertion order
func (r *Reconciler) Messages() []domain.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.history.Messages()
}

// ReplyPreview resolves a message's reply target within the open chat.
// The target may have been deleted after the reply was sent; in that
// case ok is false and the reply renders without its quote.
func (r *Reconciler) ReplyPreview(message domain.Message) (domain.Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if message.ReplyTo == nil {
		return domain.Message{}, false
	}
	return r.history.Get(*message.ReplyTo)
}

// SetReplyDraft marks a message as the reply target being composed
func (r *Reconciler) SetReplyDraft(messageID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replyDraft = messageID
}

// ReplyDraft returns the current reply target, or ""
func (r *Reconciler) ReplyDraft() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.replyDraft
}

// ClearReplyDraft cancels reply composition
func (r *Reconciler) ClearReplyDraft() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replyDraft = ""
}

// ApplySendResponse records the caller's own message once the server
// confirms it. There is no optimistic placeholder beforehand: if the
// push event for the same id raced ahead, the upsert lands in place.
// Sending consumes the reply draft.
func (r *Reconciler) ApplySendResponse(messageID, content string, createdAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.openChatID == "" {
		return
	}

	var replyTo *string
	if r.replyDraft != "" {
		draft := r.replyDraft
		replyTo = &draft
	}
	r.history.Upsert(domain.Message{
		ID:        messageID,
		ChatID:    r.openChatID,
		SenderID:  r.userID,
		Content:   content,
		ReplyTo:   replyTo,
		CreatedAt: createdAt,
	})
	r.replyDraft = ""
	r.bumpChat(r.openChatID, createdAt)
}

// Apply feeds one push event into the view. Events for the open chat
// mutate its history; events for other chats only affect the chat
// list's ordering.
func (r *Reconciler) Apply(payload domain.EventPayload) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch payload.Kind() {
	case domain.EventChatMessage:
		ev := payload.ChatMessage
		r.bumpChat(ev.ChatID, ev.CreatedAt)
		if ev.ChatID != r.openChatID {
			return
		}
		r.history.Upsert(domain.Message{
			ID:        ev.MessageID,
			ChatID:    ev.ChatID,
			SenderID:  ev.SenderID,
			Content:   ev.Message,
			ReplyTo:   ev.ReplyTo,
			CreatedAt: ev.CreatedAt,
		})

	case domain.EventDeleteMessage:
		ev := payload.DeleteMessage
		if ev.ChatID != r.openChatID {
			return
		}
		r.history.Remove(ev.MessageID)
		// Never leave a dangling reply target in the composer.
		if r.replyDraft == ev.MessageID {
			r.replyDraft = ""
		}

	case domain.EventCreateChat:
		ev := payload.CreateChat
		if _, ok := r.chats[ev.ChatID]; !ok {
			r.chats[ev.ChatID] = domain.Chat{
				ID:          ev.ChatID,
				Members:     ev.Members,
				LastUpdated: time.Now(),
			}
		}

	case domain.EventLeaveChat:
		ev := payload.LeaveChat
		delete(r.chats, ev.ChatID)
		if ev.ChatID == r.openChatID {
			r.openChatID = ""
			r.replyDraft = ""
			r.history.Clear()
		}
	}
}

// bumpChat advances a chat's ordering key, never moving it backwards
func (r *Reconciler) bumpChat(chatID string, at time.Time) {
	chat, ok := r.chats[chatID]
	if !ok {
		return
	}
	if at.After(chat.LastUpdated) {
		chat.LastUpdated = at
		r.chats[chatID] = chat
	}
}
