// Package memory is a process-local implementation of the domain store used
// for development and tests. Writes inside InBoardTx are rolled back when the
// callback fails.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/AbhinayAmbati/kanbana/internal/domain"
)

type state struct {
	users      map[uuid.UUID]*domain.User
	workspaces map[uuid.UUID]*domain.Workspace
	boards     map[uuid.UUID]*domain.Board
	columns    map[uuid.UUID]*domain.Column
	cards      map[uuid.UUID]*domain.Card
	comments   map[uuid.UUID]*domain.Comment
	activities []*domain.Activity
}

// snapshot copies the maps. Stored values are replaced on write, never
// mutated in place, so sharing the pointers is safe.
func (s *state) snapshot() *state {
	cp := &state{
		users:      make(map[uuid.UUID]*domain.User, len(s.users)),
		workspaces: make(map[uuid.UUID]*domain.Workspace, len(s.workspaces)),
		boards:     make(map[uuid.UUID]*domain.Board, len(s.boards)),
		columns:    make(map[uuid.UUID]*domain.Column, len(s.columns)),
		cards:      make(map[uuid.UUID]*domain.Card, len(s.cards)),
		comments:   make(map[uuid.UUID]*domain.Comment, len(s.comments)),
		activities: s.activities[:len(s.activities):len(s.activities)],
	}
	for k, v := range s.users {
		cp.users[k] = v
	}
	for k, v := range s.workspaces {
		cp.workspaces[k] = v
	}
	for k, v := range s.boards {
		cp.boards[k] = v
	}
	for k, v := range s.columns {
		cp.columns[k] = v
	}
	for k, v := range s.cards {
		cp.cards[k] = v
	}
	for k, v := range s.comments {
		cp.comments[k] = v
	}
	return cp
}

// dropComments deletes every comment match selects.
func (s *state) dropComments(match func(*domain.Comment) bool) {
	for id, c := range s.comments {
		if match(c) {
			delete(s.comments, id)
		}
	}
}

// Store implements domain.Store in memory.
type Store struct {
	mu sync.RWMutex
	st *state
}

var _ domain.Store = (*Store)(nil)

func New() *Store {
	return &Store{st: &state{
		users:      make(map[uuid.UUID]*domain.User),
		workspaces: make(map[uuid.UUID]*domain.Workspace),
		boards:     make(map[uuid.UUID]*domain.Board),
		columns:    make(map[uuid.UUID]*domain.Column),
		cards:      make(map[uuid.UUID]*domain.Card),
		comments:   make(map[uuid.UUID]*domain.Comment),
	}}
}

// access is how a repository reaches the state: through the store lock
// outside a transaction, directly inside one.
type access struct {
	s  *Store
	tx bool
}

func (a access) read() func() {
	if a.tx {
		return func() {}
	}
	a.s.mu.RLock()
	return a.s.mu.RUnlock
}

func (a access) write() func() {
	if a.tx {
		return func() {}
	}
	a.s.mu.Lock()
	return a.s.mu.Unlock
}

func (s *Store) Users() domain.UserRepository { return &userRepo{access{s: s}} }
func (s *Store) Workspaces() domain.WorkspaceRepository { return &workspaceRepo{access{s: s}} }
func (s *Store) Boards() domain.BoardRepository { return &boardRepo{access{s: s}} }
func (s *Store) Columns() domain.ColumnRepository { return &columnRepo{access{s: s}} }
func (s *Store) Cards() domain.CardRepository { return &cardRepo{access{s: s}} }
func (s *Store) Comments() domain.CommentRepository { return &commentRepo{access{s: s}} }
func (s *Store) Activities() domain.ActivityRepository { return &activityRepo{access{s: s}} }

type txRepos struct{ a access }

func (t txRepos) Boards() domain.BoardRepository { return &boardRepo{t.a} }
func (t txRepos) Columns() domain.ColumnRepository { return &columnRepo{t.a} }
func (t txRepos) Cards() domain.CardRepository { return &cardRepo{t.a} }
func (t txRepos) Comments() domain.CommentRepository { return &commentRepo{t.a} }
func (t txRepos) Activities() domain.ActivityRepository { return &activityRepo{t.a} }

// InBoardTx runs fn with exclusive access to the whole store. The lock is
// global, which trivially covers every listed board.
func (s *Store) InBoardTx(ctx context.Context, _ []uuid.UUID, fn func(domain.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("memory.Store.InBoardTx: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	saved := s.st.snapshot()
	if err := fn(txRepos{access{s: s, tx: true}}); err != nil {
		s.st = saved
		return err
	}
	return nil
}
