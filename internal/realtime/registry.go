package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrUnknownConnection = errors.New("realtime: unknown connection")
	ErrDuplicateConn     = errors.New("realtime: connection already registered")
)

type session struct {
	mu     sync.Mutex
	conn   *Conn
	boards map[uuid.UUID]struct{}
	gone   bool
}

// Registry tracks which boards each live connection has joined and drives
// the hub's join and leave lifecycle. It is the only caller of Hub.Join and
// Hub.Leave.
type Registry struct {
	hub *Hub

	mu       sync.Mutex
	sessions map[string]*session
}

func NewRegistry(hub *Hub) *Registry {
	r := &Registry{hub: hub, sessions: make(map[string]*session)}
	hub.setRevokeHandler(r.revoke)
	return r
}

// Register records a new authenticated connection.
func (r *Registry) Register(c *Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[c.ID()]; ok {
		return fmt.Errorf("realtime.Registry.Register: %w", ErrDuplicateConn)
	}
	r.sessions[c.ID()] = &session{conn: c, boards: make(map[uuid.UUID]struct{})}
	return nil
}

func (r *Registry) session(connID string) (*session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[connID]
	if !ok {
		return nil, ErrUnknownConnection
	}
	return s, nil
}

// Join subscribes the connection to a board. Authorization is the caller's
// job.
func (r *Registry) Join(ctx context.Context, connID string, boardID uuid.UUID) error {
	s, err := r.session(connID)
	if err != nil {
		return fmt.Errorf("realtime.Registry.Join: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gone {
		return fmt.Errorf("realtime.Registry.Join: %w", ErrUnknownConnection)
	}

	if err := r.hub.Join(ctx, s.conn, boardID); err != nil {
		return fmt.Errorf("realtime.Registry.Join: %w", err)
	}
	s.boards[boardID] = struct{}{}
	return nil
}

// Leave unsubscribes the connection from a board it joined.
func (r *Registry) Leave(ctx context.Context, connID string, boardID uuid.UUID) error {
	s, err := r.session(connID)
	if err != nil {
		return fmt.Errorf("realtime.Registry.Leave: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.boards[boardID]; !ok {
		return nil
	}
	delete(s.boards, boardID)

	if err := r.hub.Leave(ctx, s.conn, boardID); err != nil {
		return fmt.Errorf("realtime.Registry.Leave: %w", err)
	}
	return nil
}

// revoke removes a connection from a board after its access was withdrawn,
// keeping the session's joined set in step with the hub.
func (r *Registry) revoke(c *Conn, boardID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), revokeTimeout)
	defer cancel()

	err := r.Leave(ctx, c.ID(), boardID)
	if errors.Is(err, ErrUnknownConnection) {
		err = r.hub.Leave(ctx, c, boardID)
	}
	if err != nil {
		log.Warn().Err(err).Str("conn_id", c.ID()).Str("board_id", boardID.String()).Msg("revoke")
	}
}

// Forget drops the connection and leaves every board it had joined. Calling
// it for an unknown connection is a no-op.
func (r *Registry) Forget(ctx context.Context, connID string) {
	r.mu.Lock()
	s, ok := r.sessions[connID]
	delete(r.sessions, connID)
	r.mu.Unlock()
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.gone = true

	for boardID := range s.boards {
		if err := r.hub.Leave(ctx, s.conn, boardID); err != nil {
			log.Warn().Err(err).Str("conn_id", connID).Str("board_id", boardID.String()).Msg("leave on disconnect")
		}
	}
	s.boards = nil
}

// BoardsOf returns the boards the connection has joined.
func (r *Registry) BoardsOf(connID string) []uuid.UUID {
	s, err := r.session(connID)
	if err != nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]uuid.UUID, 0, len(s.boards))
	for id := range s.boards {
		out = append(out, id)
	}
	return out
}

// Joined reports whether the connection is currently in the board's room.
func (r *Registry) Joined(connID string, boardID uuid.UUID) bool {
	s, err := r.session(connID)
	if err != nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.boards[boardID]
	return ok
}

// Identity returns the user behind a registered connection. HTTP handlers
// use it to check that a connection named by a request belongs to the
// caller.
func (r *Registry) Identity(connID string) (Identity, bool) {
	s, err := r.session(connID)
	if err != nil {
		return Identity{}, false
	}
	return s.conn.Identity(), true
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
