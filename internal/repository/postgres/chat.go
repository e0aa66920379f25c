package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tantalumq/taco/internal/domain"
)

// ChatRepository implements domain.ChatRepository
type ChatRepository struct {
	pool *pgxpool.Pool
}

// NewChatRepository creates a new chat repository
func NewChatRepository(pool *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{pool: pool}
}

// Create inserts the chat and its member rows in one transaction.
func (r *ChatRepository) Create(ctx context.Context, chat *domain.Chat) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `INSERT INTO chats (id, last_updated) VALUES ($1, $2)`
	if _, err := tx.Exec(ctx, query, chat.ID, chat.LastUpdated); err != nil {
		return fmt.Errorf("failed to create chat: %w", err)
	}

	memberQuery := `INSERT INTO chat_members (chat_id, user_id) VALUES ($1, $2)`
	for _, member := range chat.Members {
		if _, err := tx.Exec(ctx, memberQuery, chat.ID, member); err != nil {
			return fmt.Errorf("failed to add chat member: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *ChatRepository) Get(ctx context.Context, id string) (*domain.Chat, error) {
	query := `
		SELECT c.id, c.last_updated, array_agg(m.user_id ORDER BY m.user_id)
		FROM chats c
		JOIN chat_members m ON m.chat_id = c.id
		WHERE c.id = $1
		GROUP BY c.id, c.last_updated
	`
	var chat domain.Chat
	err := r.pool.QueryRow(ctx, query, id).Scan(&chat.ID, &chat.LastUpdated, &chat.Members)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get chat: %w", err)
	}
	return &chat, nil
}

func (r *ChatRepository) ListByMember(ctx context.Context, userID string) ([]domain.Chat, error) {
	query := `
		SELECT c.id, c.last_updated, array_agg(m.user_id ORDER BY m.user_id)
		FROM chats c
		JOIN chat_members m ON m.chat_id = c.id
		WHERE c.id IN (SELECT chat_id FROM chat_members WHERE user_id = $1)
		GROUP BY c.id, c.last_updated
		ORDER BY c.last_updated DESC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	defer rows.Close()

	var chats []domain.Chat
	for rows.Next() {
		var chat domain.Chat
		if err := rows.Scan(&chat.ID, &chat.LastUpdated, &chat.Members); err != nil {
			return nil, fmt.Errorf("failed to scan chat: %w", err)
		}
		chats = append(chats, chat)
	}
	return chats, rows.Err()
}

func (r *ChatRepository) IsMember(ctx context.Context, chatID, userID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM chat_members WHERE chat_id = $1 AND user_id = $2)`
	var ok bool
	if err := r.pool.QueryRow(ctx, query, chatID, userID).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to check chat membership: %w", err)
	}
	return ok, nil
}
