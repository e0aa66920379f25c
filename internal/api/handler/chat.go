package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tantalumq/taco/internal/api/middleware"
	"github.com/tantalumq/taco/internal/api/response"
	"github.com/tantalumq/taco/internal/domain"
	"github.com/tantalumq/taco/internal/service"
)

// ChatHandler handles chat and message endpoints
type ChatHandler struct {
	chatService *service.ChatService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// CreateChat opens a chat with one other user
func (h *ChatHandler) CreateChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var input domain.CreateChatRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, validationMessages(err))
		return
	}

	chat, err := h.chatService.CreateChat(r.Context(), userID, input)
	if err != nil {
		serviceError(w, err)
		return
	}

	response.Created(w, chat)
}

// LeaveChat announces the caller's departure from a chat
func (h *ChatHandler) LeaveChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var input domain.LeaveChatRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, validationMessages(err))
		return
	}

	if err := h.chatService.LeaveChat(r.Context(), userID, input); err != nil {
		serviceError(w, err)
		return
	}

	response.OK(w, nil)
}

// ListChats returns the caller's chats, most recently active first
func (h *ChatHandler) ListChats(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	chats, err := h.chatService.ListChats(r.Context(), userID)
	if err != nil {
		serviceError(w, err)
		return
	}

	response.OK(w, chats)
}

// CreateMessage sends a message into one of the caller's chats
func (h *ChatHandler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var input domain.CreateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, validationMessages(err))
		return
	}

	message, err := h.chatService.SendMessage(r.Context(), userID, input)
	if err != nil {
		serviceError(w, err)
		return
	}

	response.Created(w, map[string]string{
		"message_id": message.ID,
	})
}

// DeleteMessage removes one of the caller's own messages
func (h *ChatHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var input domain.DeleteMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, validationMessages(err))
		return
	}

	if err := h.chatService.DeleteMessage(r.Context(), userID, input); err != nil {
		serviceError(w, err)
		return
	}

	response.OK(w, nil)
}

// GetMessages returns a chat's history, oldest first
func (h *ChatHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	chatID := chi.URLParam(r, "chatID")
	if chatID == "" {
		response.BadRequest(w, "missing chat ID")
		return
	}

	messages, err := h.chatService.GetMessages(r.Context(), userID, chatID)
	if err != nil {
		serviceError(w, err)
		return
	}

	response.OK(w, messages)
}
