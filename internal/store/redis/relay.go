package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/AbhinayAmbati/kanbana/internal/realtime"
)

// envelope is the cross-instance form of a realtime.Event.
type envelope struct {
	Event   string          `json:"event"`
	Exclude   string          `json:"exclude,omitempty"`
	Revoke    string          `json:"revoke,omitempty"`
	RevokeAll bool            `json:"revokeAll,omitempty"`
	Data      json.RawMessage `json:"data"`
}

// Relay fans board events out to every server instance over Redis pub/sub.
type Relay struct {
	ps *PubSub
}

var _ realtime.Relay = (*Relay)(nil)

func NewRelay(ps *PubSub) *Relay {
	return &Relay{ps: ps}
}

func (r *Relay) Publish(ctx context.Context, ev realtime.Event) error {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return fmt.Errorf("redis.Relay.Publish: marshal data: %w", err)
	}
	env := envelope{Event: ev.Name, Exclude: ev.Exclude, RevokeAll: ev.RevokeAll, Data: data}
	if ev.Revoke != uuid.Nil {
		env.Revoke = ev.Revoke.String()
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("redis.Relay.Publish: marshal envelope: %w", err)
	}
	if err := r.ps.Publish(ctx, BoardChannel(ev.BoardID), payload); err != nil {
		return fmt.Errorf("redis.Relay.Publish: %w", err)
	}
	return nil
}

// Run subscribes to every board channel and hands each event to deliver
// until ctx is cancelled. ready, if non-nil, is closed once the
// subscription is confirmed.
func (r *Relay) Run(ctx context.Context, deliver func(realtime.Event), ready chan<- struct{}) error {
	msgs, cleanup, err := r.ps.PSubscribe(ctx, BoardPattern())
	if err != nil {
		return fmt.Errorf("redis.Relay.Run: %w", err)
	}
	defer cleanup()
	if ready != nil {
		close(ready)
	}

	for msg := range msgs {
		ev, err := decodeEvent(msg.Channel, []byte(msg.Payload))
		if err != nil {
			log.Warn().Err(err).Str("channel", msg.Channel).Msg("drop malformed relay message")
			continue
		}
		deliver(ev)
	}
	return ctx.Err()
}

func decodeEvent(channel string, payload []byte) (realtime.Event, error) {
	boardID, err := ParseBoardChannel(channel)
	if err != nil {
		return realtime.Event{}, err
	}
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return realtime.Event{}, fmt.Errorf("redis.decodeEvent: %w", err)
	}
	if env.Event == "" {
		return realtime.Event{}, fmt.Errorf("redis.decodeEvent: missing event name")
	}
	ev := realtime.Event{BoardID: boardID, Name: env.Event, Data: env.Data, Exclude: env.Exclude, RevokeAll: env.RevokeAll}
	if env.Revoke != "" {
		if ev.Revoke, err = uuid.Parse(env.Revoke); err != nil {
			return realtime.Event{}, fmt.Errorf("redis.decodeEvent: revoke: %w", err)
		}
	}
	return ev, nil
}
