package redis_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisstore "github.com/AbhinayAmbati/kanbana/internal/store/redis"
)

func newPubSub(t *testing.T) (*redisstore.PubSub, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	ps, err := redisstore.New(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ps.Close() })
	return ps, mr
}

func TestBoardChannel(t *testing.T) {
	t.Parallel()

	boardID := uuid.MustParse("11111111-2222-3333-4444-555555555555")

	t.Run("format", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, "board:11111111-2222-3333-4444-555555555555", redisstore.BoardChannel(boardID))
	})

	t.Run("matches pattern prefix", func(t *testing.T) {
		t.Parallel()

		prefix := strings.TrimSuffix(redisstore.BoardPattern(), "*")
		assert.True(t, strings.HasPrefix(redisstore.BoardChannel(boardID), prefix))
	})

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		got, err := redisstore.ParseBoardChannel(redisstore.BoardChannel(boardID))
		require.NoError(t, err)
		assert.Equal(t, boardID, got)
	})

	t.Run("rejects foreign channel", func(t *testing.T) {
		t.Parallel()

		_, err := redisstore.ParseBoardChannel("agent:" + boardID.String())
		assert.Error(t, err)
	})

	t.Run("rejects bad id", func(t *testing.T) {
		t.Parallel()

		_, err := redisstore.ParseBoardChannel("board:not-a-uuid")
		assert.Error(t, err)
	})
}

func TestPresenceKey_DistinctFromChannel(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	assert.NotEqual(t, redisstore.BoardChannel(id), redisstore.PresenceKey(id))
}

func TestNew_PingFails(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := redisstore.New(ctx, addr, "", 0)
	assert.Error(t, err)
}

func TestPubSub_PSubscribeReceivesEveryBoard(t *testing.T) {
	t.Parallel()

	ps, _ := newPubSub(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, cleanup, err := ps.PSubscribe(ctx, redisstore.BoardPattern())
	require.NoError(t, err)
	defer cleanup()

	a, b := uuid.New(), uuid.New()
	require.NoError(t, ps.Publish(ctx, redisstore.BoardChannel(a), []byte("a")))
	require.NoError(t, ps.Publish(ctx, redisstore.BoardChannel(b), []byte("b")))
	require.NoError(t, ps.Publish(ctx, "other:channel", []byte("x")))

	got := map[string]string{}
	for len(got) < 2 {
		select {
		case msg := <-msgs:
			got[msg.Channel] = msg.Payload
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out, got %v", got)
		}
	}
	assert.Equal(t, "a", got[redisstore.BoardChannel(a)])
	assert.Equal(t, "b", got[redisstore.BoardChannel(b)])
}

func TestPubSub_ClosesOnCancel(t *testing.T) {
	t.Parallel()

	ps, _ := newPubSub(t)
	ctx, cancel := context.WithCancel(context.Background())

	msgs, cleanup, err := ps.PSubscribe(ctx, redisstore.BoardPattern())
	require.NoError(t, err)
	defer cleanup()

	cancel()
	select {
	case _, ok := <-msgs:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}
