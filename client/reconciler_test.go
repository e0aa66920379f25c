package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tantalumq/taco/internal/domain"
)

func chatMessageEvent(chatID, messageID, sender, content string, at time.Time) domain.EventPayload {
	return domain.EventPayload{ChatMessage: &domain.WsChatMessage{
		ChatID:    chatID,
		SenderID:  sender,
		MessageID: messageID,
		Message:   content,
		CreatedAt: at,
	}}
}

func TestReconciler_PushUpsertsIntoOpenChatOnly(t *testing.T) {
	r := NewReconciler("bob")
	now := time.Now()
	r.SetChats([]domain.Chat{
		{ID: "c1", Members: []string{"alice", "bob"}, LastUpdated: now.Add(-time.Hour)},
		{ID: "c2", Members: []string{"bob", "carol"}, LastUpdated: now.Add(-time.Minute)},
	})
	r.OpenChat("c1", nil)

	// Event for the open chat lands in the history.
	r.Apply(chatMessageEvent("c1", "m1", "alice", "hi", now))
	require.Len(t, r.Messages(), 1)
	assert.Equal(t, "m1", r.Messages()[0].ID)

	// Event for another chat only reorders the list.
	r.Apply(chatMessageEvent("c2", "m2", "carol", "yo", now.Add(time.Second)))
	assert.Len(t, r.Messages(), 1)

	chats := r.Chats()
	assert.Equal(t, "c2", chats[0].ID)
	assert.Equal(t, "c1", chats[1].ID)
}

func TestReconciler_ChatListReordersOnActivity(t *testing.T) {
	r := NewReconciler("bob")
	now := time.Now()
	r.SetChats([]domain.Chat{
		{ID: "c1", LastUpdated: now.Add(-2 * time.Hour)},
		{ID: "c2", LastUpdated: now.Add(-time.Hour)},
	})

	assert.Equal(t, "c2", r.Chats()[0].ID)

	r.Apply(chatMessageEvent("c1", "m1", "alice", "bump", now))
	assert.Equal(t, "c1", r.Chats()[0].ID)
}

// Reload-then-delete-event and delete-event-then-reload must converge
// to the same state: the message is gone either way.
func TestReconciler_DeleteAndReloadConverge(t *testing.T) {
	now := time.Now()
	history := []domain.Message{
		{ID: "m1", ChatID: "c1", SenderID: "alice", Content: "a", CreatedAt: now},
		{ID: "m2", ChatID: "c1", SenderID: "bob", Content: "b", CreatedAt: now.Add(time.Second)},
	}
	historyAfterDelete := history[1:]
	deleteEvent := domain.EventPayload{DeleteMessage: &domain.WsDeleteMessage{ChatID: "c1", MessageID: "m1"}}

	// Client one: loaded the full history, then saw the delete event.
	first := NewReconciler("bob")
	first.SetChats([]domain.Chat{{ID: "c1"}})
	first.OpenChat("c1", history)
	first.Apply(deleteEvent)

	// Client two: reconnected after the delete, reloaded, then got the
	// stale event redelivered on top.
	second := NewReconciler("bob")
	second.SetChats([]domain.Chat{{ID: "c1"}})
	second.OpenChat("c1", historyAfterDelete)
	second.Apply(deleteEvent)

	assert.Equal(t, first.Messages(), second.Messages())
	require.Len(t, first.Messages(), 1)
	assert.Equal(t, "m2", first.Messages()[0].ID)
}

func TestReconciler_DeletingReplyTargetClearsDraft(t *testing.T) {
	now := time.Now()
	r := NewReconciler("bob")
	r.SetChats([]domain.Chat{{ID: "c1"}})
	r.OpenChat("c1", []domain.Message{
		{ID: "m1", ChatID: "c1", SenderID: "alice", Content: "a", CreatedAt: now},
	})

	r.SetReplyDraft("m1")
	require.Equal(t, "m1", r.ReplyDraft())

	r.Apply(domain.EventPayload{DeleteMessage: &domain.WsDeleteMessage{ChatID: "c1", MessageID: "m1"}})
	assert.Equal(t, "", r.ReplyDraft())
}

// A reply whose target was deleted afterwards must still render; only
// its quoted preview disappears.
func TestReconciler_ReplyToDeletedMessageLosesPreviewOnly(t *testing.T) {
	now := time.Now()
	target := "m1"
	r := NewReconciler("bob")
	r.SetChats([]domain.Chat{{ID: "c1"}})
	r.OpenChat("c1", []domain.Message{
		{ID: "m1", ChatID: "c1", SenderID: "alice", Content: "original", CreatedAt: now},
		{ID: "m2", ChatID: "c1", SenderID: "bob", Content: "reply", ReplyTo: &target, CreatedAt: now.Add(time.Second)},
	})

	// The preview resolves while the target is still around.
	preview, ok := r.ReplyPreview(r.Messages()[1])
	require.True(t, ok)
	assert.Equal(t, "original", preview.Content)

	r.Apply(domain.EventPayload{DeleteMessage: &domain.WsDeleteMessage{ChatID: "c1", MessageID: "m1"}})

	// The reply survives with its dangling target id; the preview is
	// simply gone.
	messages := r.Messages()
	require.Len(t, messages, 1)
	reply := messages[0]
	assert.Equal(t, "m2", reply.ID)
	require.NotNil(t, reply.ReplyTo)
	assert.Equal(t, "m1", *reply.ReplyTo)

	_, ok = r.ReplyPreview(reply)
	assert.False(t, ok)

	// Same answer after a reconnect reload that never contained m1.
	r.OpenChat("c1", messages)
	_, ok = r.ReplyPreview(r.Messages()[0])
	assert.False(t, ok)
}

func TestReconciler_SendResponseEchoesReplyDraft(t *testing.T) {
	now := time.Now()
	r := NewReconciler("bob")
	r.SetChats([]domain.Chat{{ID: "c1", LastUpdated: now.Add(-time.Hour)}})
	r.OpenChat("c1", []domain.Message{
		{ID: "m1", ChatID: "c1", SenderID: "alice", Content: "a", CreatedAt: now.Add(-time.Minute)},
	})
	r.SetReplyDraft("m1")

	r.ApplySendResponse("m2", "replying", now)

	messages := r.Messages()
	require.Len(t, messages, 2)
	sent := messages[1]
	assert.Equal(t, "m2", sent.ID)
	assert.Equal(t, "bob", sent.SenderID)
	require.NotNil(t, sent.ReplyTo)
	assert.Equal(t, "m1", *sent.ReplyTo)

	// Sending consumed the draft and bumped the chat.
	assert.Equal(t, "", r.ReplyDraft())
	assert.Equal(t, now, r.Chats()[0].LastUpdated)
}

// The push for our own message may beat the HTTP response; applying
// both in either order must yield a single entry.
func TestReconciler_OwnPushAndResponseDoNotDuplicate(t *testing.T) {
	now := time.Now()
	r := NewReconciler("bob")
	r.SetChats([]domain.Chat{{ID: "c1"}})
	r.OpenChat("c1", nil)

	r.Apply(chatMessageEvent("c1", "m1", "bob", "hello", now))
	r.ApplySendResponse("m1", "hello", now)

	require.Len(t, r.Messages(), 1)
	assert.Equal(t, "hello", r.Messages()[0].Content)
}

func TestReconciler_CreateAndLeaveChatEvents(t *testing.T) {
	r := NewReconciler("bob")
	r.SetChats(nil)

	r.Apply(domain.EventPayload{CreateChat: &domain.WsCreateChat{ChatID: "c1", Members: []string{"alice", "bob"}}})
	require.Len(t, r.Chats(), 1)
	assert.Equal(t, []string{"alice", "bob"}, r.Chats()[0].Members)

	r.OpenChat("c1", nil)
	r.Apply(domain.EventPayload{LeaveChat: &domain.WsLeaveChat{ChatID: "c1", Member: "alice"}})

	assert.Empty(t, r.Chats())
	assert.Equal(t, "", r.OpenChatID())
	assert.Empty(t, r.Messages())
}

func TestReconciler_ReloadReplacesHistory(t *testing.T) {
	now := time.Now()
	r := NewReconciler("bob")
	r.SetChats([]domain.Chat{{ID: "c1"}})
	r.OpenChat("c1", []domain.Message{
		{ID: "m1", ChatID: "c1", Content: "stale", CreatedAt: now},
	})

	r.OpenChat("c1", []domain.Message{
		{ID: "m2", ChatID: "c1", Content: "fresh", CreatedAt: now.Add(time.Second)},
		{ID: "m3", ChatID: "c1", Content: "fresher", CreatedAt: now.Add(2 * time.Second)},
	})

	messages := r.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, "m2", messages[0].ID)
	assert.Equal(t, "m3", messages[1].ID)
}
