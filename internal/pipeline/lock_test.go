package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoardLocks_SerializesSameBoard(t *testing.T) {
	t.Parallel()

	l := newBoardLocks()
	board := uuid.New()

	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.LockAll(context.Background(), []uuid.UUID{board})
			if !assert.NoError(t, err) {
				return
			}
			n := inside.Add(1)
			for {
				m := maxInside.Load()
				if n <= m || maxInside.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			release()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside.Load())
	assert.Equal(t, 0, l.Len())
}

func TestBoardLocks_DifferentBoardsDoNotBlock(t *testing.T) {
	t.Parallel()

	l := newBoardLocks()
	release, err := l.LockAll(context.Background(), []uuid.UUID{uuid.New()})
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	other, err := l.LockAll(ctx, []uuid.UUID{uuid.New()})
	require.NoError(t, err)
	other()
}

func TestBoardLocks_CancelWhileWaiting(t *testing.T) {
	t.Parallel()

	l := newBoardLocks()
	a, b := uuid.New(), uuid.New()

	release, err := l.LockAll(context.Background(), []uuid.UUID{b})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.LockAll(ctx, []uuid.UUID{a, b})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	assert.Equal(t, 0, l.Len(), "a failed acquire must release what it took")
}

func TestBoardLocks_OverlappingSetsDoNotDeadlock(t *testing.T) {
	t.Parallel()

	l := newBoardLocks()
	a, b := uuid.New(), uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			release, err := l.LockAll(context.Background(), []uuid.UUID{a, b})
			if assert.NoError(t, err) {
				release()
			}
		}()
		go func() {
			defer wg.Done()
			release, err := l.LockAll(context.Background(), []uuid.UUID{b, a, b})
			if assert.NoError(t, err) {
				release()
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("deadlock")
	}
	assert.Equal(t, 0, l.Len())
}
