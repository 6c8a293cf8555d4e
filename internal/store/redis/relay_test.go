package redis_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbhinayAmbati/kanbana/internal/realtime"
	redisstore "github.com/AbhinayAmbati/kanbana/internal/store/redis"
)

func startRelay(t *testing.T, ps *redisstore.PubSub) (*redisstore.Relay, <-chan realtime.Event) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	relay := redisstore.NewRelay(ps)
	events := make(chan realtime.Event, 16)
	ready := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		_ = relay.Run(ctx, func(ev realtime.Event) { events <- ev }, ready)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not subscribe")
	}
	return relay, events
}

func TestRelay_RoundTrip(t *testing.T) {
	t.Parallel()

	ps, _ := newPubSub(t)
	relay, events := startRelay(t, ps)

	boardID := uuid.New()
	err := relay.Publish(context.Background(), realtime.Event{
		BoardID: boardID,
		Name:    realtime.EventCardCreated,
		Data:    map[string]any{"title": "Ship it"},
		Exclude: "conn-1",
	})
	require.NoError(t, err)

	select {
	case ev := <-events:
		assert.Equal(t, boardID, ev.BoardID)
		assert.Equal(t, realtime.EventCardCreated, ev.Name)
		assert.Equal(t, "conn-1", ev.Exclude)

		frame, err := ev.Frame()
		require.NoError(t, err)
		var decoded struct {
			Event string         `json:"event"`
			Data  map[string]any `json:"data"`
		}
		require.NoError(t, json.Unmarshal(frame, &decoded))
		assert.Equal(t, "card:created", decoded.Event)
		assert.Equal(t, "Ship it", decoded.Data["title"])
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for relayed event")
	}
}

func TestRelay_CarriesRevocation(t *testing.T) {
	t.Parallel()

	ps, _ := newPubSub(t)
	relay, events := startRelay(t, ps)

	boardID, userID := uuid.New(), uuid.New()
	ctx := context.Background()
	require.NoError(t, relay.Publish(ctx, realtime.Event{
		BoardID: boardID,
		Name:    realtime.EventMemberRemoved,
		Data:    map[string]any{"userId": userID},
		Revoke:  userID,
	}))
	require.NoError(t, relay.Publish(ctx, realtime.Event{
		BoardID:   boardID,
		Name:      realtime.EventBoardArchived,
		RevokeAll: true,
	}))

	for _, want := range []realtime.Event{
		{Name: realtime.EventMemberRemoved, Revoke: userID},
		{Name: realtime.EventBoardArchived, RevokeAll: true},
	} {
		select {
		case ev := <-events:
			assert.Equal(t, want.Name, ev.Name)
			assert.Equal(t, want.Revoke, ev.Revoke)
			assert.Equal(t, want.RevokeAll, ev.RevokeAll)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for relayed event")
		}
	}
}

func TestRelay_DropsMalformed(t *testing.T) {
	t.Parallel()

	ps, _ := newPubSub(t)
	relay, events := startRelay(t, ps)
	ctx := context.Background()

	boardID := uuid.New()
	require.NoError(t, ps.Publish(ctx, redisstore.BoardChannel(boardID), []byte("{not json")))
	require.NoError(t, ps.Publish(ctx, redisstore.BoardChannel(boardID), []byte(`{"data":1}`)))
	require.NoError(t, relay.Publish(ctx, realtime.Event{BoardID: boardID, Name: realtime.EventTypingStart}))

	select {
	case ev := <-events:
		assert.Equal(t, realtime.EventTypingStart, ev.Name)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for relayed event")
	}
}

func TestRelay_DeliversThroughHub(t *testing.T) {
	t.Parallel()

	ps, _ := newPubSub(t)
	relay := redisstore.NewRelay(ps)
	hub := realtime.NewHub(realtime.WithRelay(relay))

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = relay.Run(ctx, hub.Deliver, ready)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	<-ready

	boardID := uuid.New()
	a := realtime.NewConn("a", realtime.Identity{UserID: uuid.New(), Name: "A"}, 8)
	b := realtime.NewConn("b", realtime.Identity{UserID: uuid.New(), Name: "B"}, 8)
	require.NoError(t, hub.Join(ctx, a, boardID))
	require.NoError(t, hub.Join(ctx, b, boardID))

	drain := func(c *realtime.Conn) {
		for {
			select {
			case <-c.Outbox():
			case <-time.After(200 * time.Millisecond):
				return
			}
		}
	}
	drain(a)
	drain(b)

	require.NoError(t, hub.Publish(ctx, realtime.Event{BoardID: boardID, Name: realtime.EventColumnCreated, Exclude: "a"}))

	select {
	case raw := <-b.Outbox():
		assert.Contains(t, string(raw), `"column:created"`)
	case <-time.After(2 * time.Second):
		t.Fatal("b did not receive the event")
	}
	select {
	case raw := <-a.Outbox():
		t.Fatalf("origin received its own event: %s", raw)
	case <-time.After(200 * time.Millisecond):
	}
}
