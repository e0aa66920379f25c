package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/tantalumq/taco/internal/domain"
)

// ChatService handles chats and messages and fans the resulting events
// out to connected clients. Every mutation persists first and publishes
// after, so a delivered event always reflects committed state.
type ChatService struct {
	chatRepo    domain.ChatRepository
	messageRepo domain.MessageRepository
	userRepo    domain.UserRepository
	publisher   domain.EventPublisher
}

// NewChatService creates a new chat service
func NewChatService(
	chatRepo domain.ChatRepository,
	messageRepo domain.MessageRepository,
	userRepo domain.UserRepository,
	publisher domain.EventPublisher,
) *ChatService {
	return &ChatService{
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		userRepo:    userRepo,
		publisher:   publisher,
	}
}

// CreateChat creates a two-person chat between the requester and the
// named user and notifies both members
func (s *ChatService) CreateChat(ctx context.Context, requesterID string, input domain.CreateChatRequest) (*domain.Chat, error) {
	other := input.OtherMembers
	if other == requesterID {
		return nil, domain.ErrConflict
	}

	exists, err := s.userRepo.Exists(ctx, other)
	if err != nil {
		return nil, fmt.Errorf("failed to check user: %w", err)
	}
	if !exists {
		return nil, domain.ErrNotFound
	}

	members := []string{requesterID, other}
	sort.Strings(members)

	chat := &domain.Chat{
		ID:          uuid.New().String(),
		Members:     members,
		LastUpdated: time.Now(),
	}

	if err := s.chatRepo.Create(ctx, chat); err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}

	s.publisher.Publish(domain.NewRecipientEvent(domain.EventPayload{
		CreateChat: &domain.WsCreateChat{
			ChatID:  chat.ID,
			Members: chat.Members,
		},
	}, chat.Members...))

	return chat, nil
}

// SendMessage persists a message in one of the requester's chats and
// notifies everyone who is a member at commit time
func (s *ChatService) SendMessage(ctx context.Context, requesterID string, input domain.CreateMessageRequest) (*domain.Message, error) {
	member, err := s.chatRepo.IsMember(ctx, input.ChatID, requesterID)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if !member {
		return nil, domain.ErrNotFound
	}

	message := &domain.Message{
		ID:        uuid.New().String(),
		ChatID:    input.ChatID,
		SenderID:  requesterID,
		Content:   input.Content,
		ReplyTo:   input.ReplyToID,
		CreatedAt: time.Now(),
	}

	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	// Re-read members after the insert so the recipient set matches
	// the chat as stored, not as it looked when the request arrived.
	chat, err := s.chatRepo.Get(ctx, input.ChatID)
	if err != nil {
		return nil, fmt.Errorf("failed to get chat: %w", err)
	}

	s.publisher.Publish(domain.NewRecipientEvent(domain.EventPayload{
		ChatMessage: &domain.WsChatMessage{
			ChatID:    message.ChatID,
			SenderID:  message.SenderID,
			MessageID: message.ID,
			Message:   message.Content,
			ReplyTo:   message.ReplyTo,
			CreatedAt: message.CreatedAt,
		},
	}, chat.Members...))

	return message, nil
}

// DeleteMessage removes a message the requester sent and notifies the
// chat's members. Messages sent by others are reported as not found.
func (s *ChatService) DeleteMessage(ctx context.Context, requesterID string, input domain.DeleteMessageRequest) error {
	message, err := s.messageRepo.Get(ctx, input.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("failed to get message: %w", err)
	}
	if message.SenderID != requesterID {
		return domain.ErrNotFound
	}

	if err := s.messageRepo.Delete(ctx, input.ID); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}

	chat, err := s.chatRepo.Get(ctx, message.ChatID)
	if err != nil {
		return fmt.Errorf("failed to get chat: %w", err)
	}

	s.publisher.Publish(domain.NewRecipientEvent(domain.EventPayload{
		DeleteMessage: &domain.WsDeleteMessage{
			ChatID:    message.ChatID,
			MessageID: message.ID,
		},
	}, chat.Members...))

	return nil
}

// LeaveChat announces the requester's departure to every member of the
// chat, the leaver included, so their own other devices drop it too.
// The chat record itself is kept.
func (s *ChatService) LeaveChat(ctx context.Context, requesterID string, input domain.LeaveChatRequest) error {
	chat, err := s.chatRepo.Get(ctx, input.ChatID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("failed to get chat: %w", err)
	}

	s.publisher.Publish(domain.NewRecipientEvent(domain.EventPayload{
		LeaveChat: &domain.WsLeaveChat{
			ChatID: chat.ID,
			Member: requesterID,
		},
	}, chat.Members...))

	return nil
}

// GetMessages returns a chat's full history, oldest first
func (s *ChatService) GetMessages(ctx context.Context, requesterID, chatID string) ([]domain.Message, error) {
	member, err := s.chatRepo.IsMember(ctx, chatID, requesterID)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if !member {
		return nil, domain.ErrNotFound
	}

	messages, err := s.messageRepo.ListByChat(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

// ListChats returns the requester's chats, most recently active first
func (s *ChatService) ListChats(ctx context.Context, requesterID string) ([]domain.Chat, error) {
	chats, err := s.chatRepo.ListByMember(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	return chats, nil
}
