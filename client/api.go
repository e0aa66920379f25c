package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/tantalumq/taco/internal/domain"
)

// API is the HTTP side of the client. All mutations go through it; the
// WebSocket stream is read-only.
type API struct {
	baseURL string
	http    *http.Client
	session *domain.Session
}

// NewAPI creates a client for the server at baseURL, e.g. "http://localhost:3000"
func NewAPI(baseURL string) *API {
	return &API{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Session returns the active session, or nil before login
func (a *API) Session() *domain.Session {
	return a.session
}

// envelope mirrors the server's response wrapper
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
}

func (a *API) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.session != nil {
		req.Header.Set("Authorization", "Bearer "+a.session.ID)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(env.Error))
	}

	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return nil
}

// Register creates an account and stores the resulting session
func (a *API) Register(ctx context.Context, username, password string) error {
	var session domain.Session
	err := a.do(ctx, http.MethodPost, "/register", domain.LoginInfo{Username: username, Password: password}, &session)
	if err != nil {
		return err
	}
	a.session = &session
	return nil
}

// LogIn authenticates and stores the resulting session
func (a *API) LogIn(ctx context.Context, username, password string) error {
	var session domain.Session
	err := a.do(ctx, http.MethodPost, "/log_in", domain.LoginInfo{Username: username, Password: password}, &session)
	if err != nil {
		return err
	}
	a.session = &session
	return nil
}

// LogOut destroys the session on the server and forgets it locally
func (a *API) LogOut(ctx context.Context) error {
	if err := a.do(ctx, http.MethodPost, "/log_out", nil, nil); err != nil {
		return err
	}
	a.session = nil
	return nil
}

// Chats fetches the caller's chat list
func (a *API) Chats(ctx context.Context) ([]domain.Chat, error) {
	var chats []domain.Chat
	if err := a.do(ctx, http.MethodGet, "/chats", nil, &chats); err != nil {
		return nil, err
	}
	return chats, nil
}

// Messages fetches a chat's full history, oldest first
func (a *API) Messages(ctx context.Context, chatID string) ([]domain.Message, error) {
	var messages []domain.Message
	if err := a.do(ctx, http.MethodGet, "/messages/"+chatID, nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// CreateChat opens a chat with another user
func (a *API) CreateChat(ctx context.Context, otherMember string) (*domain.Chat, error) {
	var chat domain.Chat
	err := a.do(ctx, http.MethodPost, "/create_chat", domain.CreateChatRequest{OtherMembers: otherMember}, &chat)
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// CreateMessage sends a message and returns the server-assigned id
func (a *API) CreateMessage(ctx context.Context, chatID, content string, replyTo *string) (string, error) {
	var out struct {
		MessageID string `json:"message_id"`
	}
	err := a.do(ctx, http.MethodPost, "/create_message", domain.CreateMessageRequest{
		ChatID:    chatID,
		Content:   content,
		ReplyToID: replyTo,
	}, &out)
	if err != nil {
		return "", err
	}
	return out.MessageID, nil
}

// DeleteMessage removes one of the caller's own messages
func (a *API) DeleteMessage(ctx context.Context, messageID string) error {
	return a.do(ctx, http.MethodPost, "/delete_message", domain.DeleteMessageRequest{ID: messageID}, nil)
}

// LeaveChat announces the caller's departure from a chat
func (a *API) LeaveChat(ctx context.Context, chatID string) error {
	return a.do(ctx, http.MethodPost, "/leave_chat", domain.LeaveChatRequest{ChatID: chatID}, nil)
}

// Status fetches a user's public profile and presence
func (a *API) Status(ctx context.Context, userID string) (*domain.UserStatus, error) {
	var status domain.UserStatus
	if err := a.do(ctx, http.MethodGet, "/status/"+userID, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// UpdateProfile applies profile changes for the logged-in user
func (a *API) UpdateProfile(ctx context.Context, update domain.ProfileUpdate) error {
	return a.do(ctx, http.MethodPost, "/update_profile", update, nil)
}
