package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbhinayAmbati/kanbana/internal/realtime"
	redisstore "github.com/AbhinayAmbati/kanbana/internal/store/redis"
)

func newPresence(t *testing.T) (*redisstore.Presence, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redisstore.NewPresence(client, time.Hour), mr
}

func TestPresence_AddListRemove(t *testing.T) {
	t.Parallel()

	p, mr := newPresence(t)
	ctx := context.Background()
	boardID := uuid.New()
	user := uuid.New()

	require.NoError(t, p.Add(ctx, boardID, realtime.PresenceEntry{UserID: user, Name: "Ada", ConnectionID: "02"}))
	require.NoError(t, p.Add(ctx, boardID, realtime.PresenceEntry{UserID: user, Name: "Ada", ConnectionID: "01"}))

	got, err := p.List(ctx, boardID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "01", got[0].ConnectionID)
	assert.Equal(t, "02", got[1].ConnectionID)
	assert.Equal(t, "Ada", got[0].Name)

	assert.Equal(t, time.Hour, mr.TTL(redisstore.PresenceKey(boardID)))

	require.NoError(t, p.Remove(ctx, boardID, "01"))
	require.NoError(t, p.Remove(ctx, boardID, "02"))

	got, err = p.List(ctx, boardID)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.False(t, mr.Exists(redisstore.PresenceKey(boardID)), "empty board leaves no key behind")
}

func TestPresence_RemoveUnknownIsNoop(t *testing.T) {
	t.Parallel()

	p, _ := newPresence(t)
	assert.NoError(t, p.Remove(context.Background(), uuid.New(), "missing"))
}

func TestPresence_BoardsIsolated(t *testing.T) {
	t.Parallel()

	p, _ := newPresence(t)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()

	require.NoError(t, p.Add(ctx, a, realtime.PresenceEntry{UserID: uuid.New(), Name: "A", ConnectionID: "c1"}))

	got, err := p.List(ctx, b)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPresence_DefaultTTL(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	p := redisstore.NewPresence(client, 0)
	boardID := uuid.New()
	require.NoError(t, p.Add(context.Background(), boardID, realtime.PresenceEntry{ConnectionID: "c"}))
	assert.Equal(t, redisstore.DefaultPresenceTTL, mr.TTL(redisstore.PresenceKey(boardID)))
}

func TestPresence_ServesHub(t *testing.T) {
	t.Parallel()

	p, _ := newPresence(t)
	hub := realtime.NewHub(realtime.WithPresence(p))
	ctx := context.Background()
	boardID := uuid.New()

	c := realtime.NewConn("c1", realtime.Identity{UserID: uuid.New(), Name: "Ada"}, 8)
	require.NoError(t, hub.Join(ctx, c, boardID))

	users, err := hub.ActiveUsers(ctx, boardID)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Ada", users[0].Name)

	require.NoError(t, hub.Leave(ctx, c, boardID))
	users, err = hub.ActiveUsers(ctx, boardID)
	require.NoError(t, err)
	assert.Empty(t, users)
}
