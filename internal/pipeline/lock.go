package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

type boardLock struct {
	sem  chan struct{}
	refs int
}

// boardLocks is a keyed mutex: one lock per board, created on first use and
// dropped once nobody holds or waits for it.
type boardLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*boardLock
}

func newBoardLocks() *boardLocks {
	return &boardLocks{locks: make(map[uuid.UUID]*boardLock)}
}

func (l *boardLocks) ref(id uuid.UUID) *boardLock {
	l.mu.Lock()
	defer l.mu.Unlock()

	bl, ok := l.locks[id]
	if !ok {
		bl = &boardLock{sem: make(chan struct{}, 1)}
		l.locks[id] = bl
	}
	bl.refs++
	return bl
}

func (l *boardLocks) unref(id uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()

	bl := l.locks[id]
	bl.refs--
	if bl.refs == 0 {
		delete(l.locks, id)
	}
}

func (l *boardLocks) lock(ctx context.Context, id uuid.UUID) error {
	bl := l.ref(id)
	select {
	case bl.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.unref(id)
		return fmt.Errorf("pipeline.boardLocks.lock: %w", ctx.Err())
	}
}

func (l *boardLocks) unlock(id uuid.UUID) {
	l.mu.Lock()
	bl := l.locks[id]
	l.mu.Unlock()

	<-bl.sem
	l.unref(id)
}

// LockAll acquires the locks of every board in ids, in ascending id order so
// two callers locking overlapping sets cannot deadlock. The returned func
// releases all of them.
func (l *boardLocks) LockAll(ctx context.Context, ids []uuid.UUID) (func(), error) {
	ordered := sortedUnique(ids)

	held := make([]uuid.UUID, 0, len(ordered))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			l.unlock(held[i])
		}
	}

	for _, id := range ordered {
		if err := l.lock(ctx, id); err != nil {
			release()
			return nil, err
		}
		held = append(held, id)
	}
	return release, nil
}

// Len returns the number of boards with a live lock entry.
func (l *boardLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func sortedUnique(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i][:], out[j][:]) < 0 })
	return out
}
