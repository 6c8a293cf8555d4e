package redis

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type PubSub struct {
	client *redis.Client
}

func New(ctx context.Context, addr, password string, db int) (*PubSub, error) {
	return NewWithOptions(ctx, &redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// NewWithOptions connects with explicit client options.
func NewWithOptions(ctx context.Context, opts *redis.Options) (*PubSub, error) {
	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis.New: ping: %w", err)
	}

	return &PubSub{client: client}, nil
}

func (ps *PubSub) Close() error {
	if err := ps.client.Close(); err != nil {
		return fmt.Errorf("redis.PubSub.Close: %w", err)
	}
	return nil
}

func (ps *PubSub) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := ps.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis.PubSub.Publish: %w", err)
	}
	return nil
}

// PSubscribe subscribes to every channel matching a glob pattern and waits
// for the confirmation. Each message carries the concrete channel it was
// published on. The returned channel closes when ctx is cancelled.
func (ps *PubSub) PSubscribe(ctx context.Context, pattern string) (<-chan *redis.Message, func(), error) {
	sub := ps.client.PSubscribe(ctx, pattern)

	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("redis.PubSub.PSubscribe: receive confirmation: %w", err)
	}

	out := make(chan *redis.Message, 64)
	redisCh := sub.Channel()

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-redisCh:
				if !ok {
					return
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	cleanup := func() {
		_ = sub.Close()
	}

	return out, cleanup, nil
}

// Client exposes the underlying client for key-value use such as presence.
func (ps *PubSub) Client() *redis.Client {
	return ps.client
}

const boardChannelPrefix = "board:"

// BoardChannel returns the Redis channel name for a board's events.
func BoardChannel(boardID uuid.UUID) string {
	return boardChannelPrefix + boardID.String()
}

// BoardPattern matches every board channel.
func BoardPattern() string {
	return boardChannelPrefix + "*"
}

// ParseBoardChannel extracts the board id from a channel name.
func ParseBoardChannel(channel string) (uuid.UUID, error) {
	rest, ok := strings.CutPrefix(channel, boardChannelPrefix)
	if !ok {
		return uuid.Nil, fmt.Errorf("redis.ParseBoardChannel: not a board channel: %q", channel)
	}
	id, err := uuid.Parse(rest)
	if err != nil {
		return uuid.Nil, fmt.Errorf("redis.ParseBoardChannel: %w", err)
	}
	return id, nil
}

// PresenceKey returns the hash key holding a board's viewers.
func PresenceKey(boardID uuid.UUID) string {
	return "presence:" + boardID.String()
}
