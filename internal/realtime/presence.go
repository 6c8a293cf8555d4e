package realtime

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// PresenceEntry records one connection viewing a board.
type PresenceEntry struct {
	UserID       uuid.UUID `json:"userId"`
	Name         string    `json:"name"`
	ConnectionID string    `json:"connectionId"`
}

// PresenceStore holds the ephemeral who-is-viewing state per board.
type PresenceStore interface {
	Add(ctx context.Context, boardID uuid.UUID, e PresenceEntry) error
	Remove(ctx context.Context, boardID uuid.UUID, connID string) error
	List(ctx context.Context, boardID uuid.UUID) ([]PresenceEntry, error)
}

// MemoryPresence is a process-local PresenceStore. A board's entry set is
// dropped as soon as it becomes empty.
type MemoryPresence struct {
	mu     sync.Mutex
	boards map[uuid.UUID]map[string]PresenceEntry
}

func NewMemoryPresence() *MemoryPresence {
	return &MemoryPresence{boards: make(map[uuid.UUID]map[string]PresenceEntry)}
}

func (p *MemoryPresence) Add(_ context.Context, boardID uuid.UUID, e PresenceEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	set, ok := p.boards[boardID]
	if !ok {
		set = make(map[string]PresenceEntry)
		p.boards[boardID] = set
	}
	set[e.ConnectionID] = e
	return nil
}

func (p *MemoryPresence) Remove(_ context.Context, boardID uuid.UUID, connID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	set, ok := p.boards[boardID]
	if !ok {
		return nil
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(p.boards, boardID)
	}
	return nil
}

func (p *MemoryPresence) List(_ context.Context, boardID uuid.UUID) ([]PresenceEntry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	set := p.boards[boardID]
	out := make([]PresenceEntry, 0, len(set))
	for _, e := range set {
		out = append(out, e)
	}
	SortPresence(out)
	return out, nil
}

// Boards returns the number of boards with at least one viewer.
func (p *MemoryPresence) Boards() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.boards)
}

// SortPresence orders entries by connection id, which for ULID ids is join
// order.
func SortPresence(entries []PresenceEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ConnectionID < entries[j].ConnectionID
	})
}
