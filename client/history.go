// Package client implements the client side of the chat protocol: an
// HTTP caller for mutations, a WebSocket listener for push events, and
// the reconciler that merges both into one consistent view.
package client

import "github.com/tantalumq/taco/internal/domain"

// History is an insertion-ordered map of message id to message. Upsert
// of an existing id overwrites in place without changing its position,
// so arrival order is preserved no matter how often an id is re-seen.
type History struct {
	order []string
	byID  map[string]domain.Message
}

// NewHistory creates an empty history
func NewHistory() *History {
	return &History{byID: make(map[string]domain.Message)}
}

// Upsert inserts the message or overwrites an existing entry in place
func (h *History) Upsert(message domain.Message) {
	if _, ok := h.byID[message.ID]; !ok {
		h.order = append(h.order, message.ID)
	}
	h.byID[message.ID] = message
}

// Remove deletes the message; removing an absent id is a no-op
func (h *History) Remove(messageID string) {
	if _, ok := h.byID[messageID]; !ok {
		return
	}
	delete(h.byID, messageID)
	for i, id := range h.order {
		if id == messageID {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

// Get returns the message with the given id
func (h *History) Get(messageID string) (domain.Message, bool) {
	message, ok := h.byID[messageID]
	return message, ok
}

// Len returns the number of messages held
func (h *History) Len() int {
	return len(h.order)
}

// Messages returns the messages in insertion order
func (h *History) Messages() []domain.Message {
	messages := make([]domain.Message, len(h.order))
	for i, id := range h.order {
		messages[i] = h.byID[id]
	}
	return messages
}

// Clear drops all messages
func (h *History) Clear() {
	h.order = h.order[:0]
	h.byID = make(map[string]domain.Message)
}
