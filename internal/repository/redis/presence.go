package redis

import (
	"context"
	"fmt"
	"time"
)

const (
	presencePrefix = "presence:"

	// presenceTTL bounds how long a crashed gateway can leave a user
	// marked online; live connections refresh membership on connect.
	presenceTTL = 5 * time.Minute
)

// PresenceStore tracks which users have at least one open WebSocket
// connection. Each connection registers its own id, so a user with
// several devices stays online until the last one disconnects.
type PresenceStore struct {
	client *Client
}

// NewPresenceStore creates a new presence store
func NewPresenceStore(client *Client) *PresenceStore {
	return &PresenceStore{client: client}
}

// SetOnline records a connection for the user
func (p *PresenceStore) SetOnline(ctx context.Context, userID, connID string) error {
	key := presencePrefix + userID
	pipe := p.client.rdb.Pipeline()
	pipe.SAdd(ctx, key, connID)
	pipe.Expire(ctx, key, presenceTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to mark user online: %w", err)
	}
	return nil
}

// SetOffline removes a connection for the user
func (p *PresenceStore) SetOffline(ctx context.Context, userID, connID string) error {
	key := presencePrefix + userID
	if err := p.client.rdb.SRem(ctx, key, connID).Err(); err != nil {
		return fmt.Errorf("failed to mark user offline: %w", err)
	}
	return nil
}

// Refresh extends the presence key's TTL for a still-open connection
func (p *PresenceStore) Refresh(ctx context.Context, userID string) error {
	return p.client.rdb.Expire(ctx, presencePrefix+userID, presenceTTL).Err()
}

// IsOnline reports whether the user has any registered connection
func (p *PresenceStore) IsOnline(ctx context.Context, userID string) (bool, error) {
	count, err := p.client.rdb.SCard(ctx, presencePrefix+userID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check presence: %w", err)
	}
	return count > 0, nil
}
