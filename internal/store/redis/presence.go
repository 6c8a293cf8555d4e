package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/AbhinayAmbati/kanbana/internal/realtime"
)

// DefaultPresenceTTL bounds how long a board's presence hash outlives its
// last write, so entries left by a crashed instance eventually expire.
const DefaultPresenceTTL = 12 * time.Hour

// Presence is a realtime.PresenceStore shared by every instance. Each board
// is one hash keyed by connection id.
type Presence struct {
	client *redis.Client
	ttl    time.Duration
}

var _ realtime.PresenceStore = (*Presence)(nil)

func NewPresence(client *redis.Client, ttl time.Duration) *Presence {
	if ttl <= 0 {
		ttl = DefaultPresenceTTL
	}
	return &Presence{client: client, ttl: ttl}
}

func (p *Presence) Add(ctx context.Context, boardID uuid.UUID, e realtime.PresenceEntry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("redis.Presence.Add: marshal: %w", err)
	}

	key := PresenceKey(boardID)
	pipe := p.client.TxPipeline()
	pipe.HSet(ctx, key, e.ConnectionID, raw)
	pipe.Expire(ctx, key, p.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis.Presence.Add: %w", err)
	}
	return nil
}

// Remove deletes one connection. Redis drops the hash with its last field.
func (p *Presence) Remove(ctx context.Context, boardID uuid.UUID, connID string) error {
	if err := p.client.HDel(ctx, PresenceKey(boardID), connID).Err(); err != nil {
		return fmt.Errorf("redis.Presence.Remove: %w", err)
	}
	return nil
}

func (p *Presence) List(ctx context.Context, boardID uuid.UUID) ([]realtime.PresenceEntry, error) {
	fields, err := p.client.HGetAll(ctx, PresenceKey(boardID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis.Presence.List: %w", err)
	}

	out := make([]realtime.PresenceEntry, 0, len(fields))
	for connID, raw := range fields {
		var e realtime.PresenceEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("redis.Presence.List: entry %s: %w", connID, err)
		}
		out = append(out, e)
	}
	realtime.SortPresence(out)
	return out, nil
}
