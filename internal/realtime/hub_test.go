package realtime_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbhinayAmbati/kanbana/internal/realtime"
)

type wireFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// drain returns every frame currently queued on c.
func drain(t *testing.T, c *realtime.Conn) []wireFrame {
	t.Helper()

	var out []wireFrame
	for {
		select {
		case b := <-c.Outbox():
			var f wireFrame
			require.NoError(t, json.Unmarshal(b, &f))
			out = append(out, f)
		default:
			return out
		}
	}
}

func names(frames []wireFrame) []string {
	out := make([]string, len(frames))
	for i, f := range frames {
		out[i] = f.Event
	}
	return out
}

func newConn(id, name string) *realtime.Conn {
	return realtime.NewConn(id, realtime.Identity{UserID: uuid.New(), Name: name}, 16)
}

func TestHub_JoinSendsPresenceToJoinerAndJoinedToOthers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	hub := realtime.NewHub()
	board := uuid.New()

	alice := newConn("c1", "alice")
	bob := newConn("c2", "bob")

	require.NoError(t, hub.Join(ctx, alice, board))
	got := drain(t, alice)
	require.Equal(t, []string{realtime.EventActiveUsers}, names(got))

	var users []realtime.PresenceEntry
	require.NoError(t, json.Unmarshal(got[0].Data, &users))
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].Name)

	require.NoError(t, hub.Join(ctx, bob, board))

	bobFrames := drain(t, bob)
	require.Equal(t, []string{realtime.EventActiveUsers}, names(bobFrames))
	require.NoError(t, json.Unmarshal(bobFrames[0].Data, &users))
	assert.Len(t, users, 2)

	aliceFrames := drain(t, alice)
	require.Equal(t, []string{realtime.EventUserJoined}, names(aliceFrames))
	assert.Contains(t, string(aliceFrames[0].Data), `"name":"bob"`)
}

func TestHub_PublishExcludesOriginator(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	hub := realtime.NewHub()
	board := uuid.New()

	c1 := newConn("c1", "one")
	c2 := newConn("c2", "two")
	require.NoError(t, hub.Join(ctx, c1, board))
	require.NoError(t, hub.Join(ctx, c2, board))
	drain(t, c1)
	drain(t, c2)

	require.NoError(t, hub.Publish(ctx, realtime.Event{
		BoardID: board,
		Name:    realtime.EventCardMoved,
		Data:    map[string]any{"cardId": "x"},
		Exclude: "c1",
	}))

	assert.Empty(t, drain(t, c1), "originator must not receive its own event")
	assert.Equal(t, []string{realtime.EventCardMoved}, names(drain(t, c2)))
}

func TestHub_PublishWithoutExcludeReachesEveryone(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	hub := realtime.NewHub()
	board := uuid.New()

	c1 := newConn("c1", "one")
	c2 := newConn("c2", "two")
	require.NoError(t, hub.Join(ctx, c1, board))
	require.NoError(t, hub.Join(ctx, c2, board))
	drain(t, c1)
	drain(t, c2)

	require.NoError(t, hub.Publish(ctx, realtime.Event{BoardID: board, Name: realtime.EventBoardUpdated}))

	assert.Len(t, drain(t, c1), 1)
	assert.Len(t, drain(t, c2), 1)
}

func TestHub_PublishIsScopedToBoard(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	hub := realtime.NewHub()

	c1 := newConn("c1", "one")
	c2 := newConn("c2", "two")
	require.NoError(t, hub.Join(ctx, c1, uuid.New()))
	other := uuid.New()
	require.NoError(t, hub.Join(ctx, c2, other))
	drain(t, c1)
	drain(t, c2)

	require.NoError(t, hub.Publish(ctx, realtime.Event{BoardID: other, Name: realtime.EventCardCreated}))

	assert.Empty(t, drain(t, c1))
	assert.Len(t, drain(t, c2), 1)
}

func TestHub_LeaveAnnouncesOnceAndDiscardsEmptyRoom(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	presence := realtime.NewMemoryPresence()
	hub := realtime.NewHub(realtime.WithPresence(presence))
	board := uuid.New()

	c1 := newConn("c1", "one")
	c2 := newConn("c2", "two")
	require.NoError(t, hub.Join(ctx, c1, board))
	require.NoError(t, hub.Join(ctx, c2, board))
	drain(t, c1)
	drain(t, c2)

	require.NoError(t, hub.Leave(ctx, c1, board))
	require.NoError(t, hub.Leave(ctx, c1, board))

	assert.Equal(t, []string{realtime.EventUserLeft}, names(drain(t, c2)))
	assert.Empty(t, drain(t, c1))
	assert.Equal(t, 1, hub.Rooms())

	require.NoError(t, hub.Leave(ctx, c2, board))
	assert.Equal(t, 0, hub.Rooms())
	assert.Equal(t, 0, presence.Boards())

	users, err := hub.ActiveUsers(ctx, board)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestHub_RejoinDoesNotDuplicate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	hub := realtime.NewHub()
	board := uuid.New()

	c1 := newConn("c1", "one")
	c2 := newConn("c2", "two")
	require.NoError(t, hub.Join(ctx, c1, board))
	require.NoError(t, hub.Join(ctx, c2, board))
	drain(t, c1)
	drain(t, c2)

	require.NoError(t, hub.Join(ctx, c2, board))
	assert.Equal(t, []string{realtime.EventActiveUsers}, names(drain(t, c2)))
	assert.Empty(t, drain(t, c1))

	users, err := hub.ActiveUsers(ctx, board)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestHub_SlowConsumerIsClosed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	hub := realtime.NewHub()
	board := uuid.New()

	slow := realtime.NewConn("slow", realtime.Identity{UserID: uuid.New()}, 2)
	fast := realtime.NewConn("fast", realtime.Identity{UserID: uuid.New()}, 64)
	require.NoError(t, hub.Join(ctx, slow, board))
	require.NoError(t, hub.Join(ctx, fast, board))
	drain(t, fast)

	// slow already holds board:activeUsers and user:joined.
	for i := 0; i < 5; i++ {
		require.NoError(t, hub.Publish(ctx, realtime.Event{BoardID: board, Name: realtime.EventCardUpdated}))
	}

	select {
	case <-slow.Done():
	default:
		t.Fatal("slow connection should have been closed")
	}
	assert.Equal(t, "slow consumer", slow.CloseReason())
	assert.Len(t, drain(t, fast), 5)
}

func TestHub_DeliveryPreservesPublishOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	hub := realtime.NewHub()
	board := uuid.New()

	c := realtime.NewConn("c", realtime.Identity{UserID: uuid.New()}, 128)
	require.NoError(t, hub.Join(ctx, c, board))
	drain(t, c)

	for i := 0; i < 100; i++ {
		require.NoError(t, hub.Publish(ctx, realtime.Event{BoardID: board, Name: realtime.EventCardMoved, Data: i}))
	}

	frames := drain(t, c)
	require.Len(t, frames, 100)
	for i, f := range frames {
		var n int
		require.NoError(t, json.Unmarshal(f.Data, &n))
		assert.Equal(t, i, n)
	}
}

type recordingRelay struct {
	events []realtime.Event
	err    error
}

func (r *recordingRelay) Publish(_ context.Context, ev realtime.Event) error {
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, ev)
	return nil
}

func TestHub_PublishGoesThroughRelay(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	relay := &recordingRelay{}
	hub := realtime.NewHub(realtime.WithRelay(relay))
	board := uuid.New()

	c := newConn("c1", "one")
	require.NoError(t, hub.Join(ctx, c, board))
	drain(t, c)

	ev := realtime.Event{BoardID: board, Name: realtime.EventCardCreated}
	require.NoError(t, hub.Publish(ctx, ev))

	// Nothing is delivered locally until the relay calls back.
	assert.Empty(t, drain(t, c))
	require.NotEmpty(t, relay.events)
	assert.Equal(t, realtime.EventCardCreated, relay.events[len(relay.events)-1].Name)

	hub.Deliver(ev)
	assert.Len(t, drain(t, c), 1)

	relay.err = errors.New("relay down")
	require.Error(t, hub.Publish(ctx, ev))
}

// listFailingPresence accepts entries but cannot list them.
type listFailingPresence struct {
	*realtime.MemoryPresence
}

func (listFailingPresence) List(context.Context, uuid.UUID) ([]realtime.PresenceEntry, error) {
	return nil, errors.New("presence unavailable")
}

func TestHub_FailedJoinLeavesNothingBehind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts func(p *realtime.MemoryPresence) []realtime.HubOption
	}{
		{
			name: "presence list fails",
			opts: func(p *realtime.MemoryPresence) []realtime.HubOption {
				return []realtime.HubOption{realtime.WithPresence(listFailingPresence{p})}
			},
		},
		{
			name: "relay publish fails",
			opts: func(p *realtime.MemoryPresence) []realtime.HubOption {
				return []realtime.HubOption{
					realtime.WithPresence(p),
					realtime.WithRelay(&recordingRelay{err: errors.New("relay down")}),
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			presence := realtime.NewMemoryPresence()
			hub := realtime.NewHub(tt.opts(presence)...)
			reg := realtime.NewRegistry(hub)
			board := uuid.New()

			c := newConn("c1", "one")
			require.NoError(t, reg.Register(c))
			require.Error(t, reg.Join(ctx, "c1", board))

			assert.False(t, hub.InRoom(board, "c1"))
			assert.Equal(t, 0, hub.Rooms())
			assert.Equal(t, 0, presence.Boards())
			assert.Empty(t, reg.BoardsOf("c1"))
			assert.Empty(t, drain(t, c), "a failed join sends no presence list")

			reg.Forget(ctx, "c1")
			assert.Equal(t, 0, hub.Rooms())
		})
	}
}

func TestHub_RevokedUserLeavesAfterDelivery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	hub := realtime.NewHub()
	reg := realtime.NewRegistry(hub)
	board := uuid.New()

	kept := newConn("kept", "kept")
	removedUser := uuid.New()
	gone1 := realtime.NewConn("gone1", realtime.Identity{UserID: removedUser, Name: "gone"}, 16)
	gone2 := realtime.NewConn("gone2", realtime.Identity{UserID: removedUser, Name: "gone"}, 16)
	for _, c := range []*realtime.Conn{kept, gone1, gone2} {
		require.NoError(t, reg.Register(c))
		require.NoError(t, reg.Join(ctx, c.ID(), board))
	}
	drain(t, kept)
	drain(t, gone1)
	drain(t, gone2)

	require.NoError(t, hub.Publish(ctx, realtime.Event{
		BoardID: board,
		Name:    realtime.EventMemberRemoved,
		Data:    map[string]any{"userId": removedUser},
		Revoke:  removedUser,
	}))

	// The removed user still learns about the removal. Whichever of its
	// sockets leaves second also hears the first one go.
	for _, c := range []*realtime.Conn{gone1, gone2} {
		got := names(drain(t, c))
		require.NotEmpty(t, got)
		assert.Equal(t, realtime.EventMemberRemoved, got[0])
	}
	assert.Equal(t,
		[]string{realtime.EventMemberRemoved, realtime.EventUserLeft, realtime.EventUserLeft},
		names(drain(t, kept)))

	assert.False(t, reg.Joined("gone1", board))
	assert.False(t, reg.Joined("gone2", board))
	assert.True(t, reg.Joined("kept", board))

	require.NoError(t, hub.Publish(ctx, realtime.Event{BoardID: board, Name: realtime.EventCardCreated}))
	assert.Empty(t, drain(t, gone1))
	assert.Empty(t, drain(t, gone2))
	assert.Len(t, drain(t, kept), 1)

	users, err := hub.ActiveUsers(ctx, board)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "kept", users[0].ConnectionID)
}

func TestHub_RevokeAllEmptiesRoom(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	hub := realtime.NewHub()
	reg := realtime.NewRegistry(hub)
	board := uuid.New()

	for _, id := range []string{"a", "b"} {
		require.NoError(t, reg.Register(newConn(id, id)))
		require.NoError(t, reg.Join(ctx, id, board))
	}

	require.NoError(t, hub.Publish(ctx, realtime.Event{BoardID: board, Name: realtime.EventBoardArchived, RevokeAll: true}))

	assert.Equal(t, 0, hub.Rooms())
	assert.Empty(t, reg.BoardsOf("a"))
	assert.Empty(t, reg.BoardsOf("b"))
}

func TestHub_RevokeWithoutRegistry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	hub := realtime.NewHub()
	board := uuid.New()

	c := newConn("c1", "one")
	require.NoError(t, hub.Join(ctx, c, board))

	hub.Deliver(realtime.Event{BoardID: board, Name: realtime.EventMemberRemoved, Revoke: c.Identity().UserID})
	assert.False(t, hub.InRoom(board, "c1"))
}
