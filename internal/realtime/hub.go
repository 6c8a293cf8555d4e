package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Relay carries events between server instances. When a hub has a relay,
// Publish hands events to it and the relay calls Deliver on every instance,
// this one included.
type Relay interface {
	Publish(ctx context.Context, ev Event) error
}

// room is the set of local connections subscribed to one board.
type room struct {
	mu    sync.Mutex
	conns map[string]*Conn
}

// Hub fans board events out to joined connections. Each room has its own
// lock, so delivery to different boards never contends.
type Hub struct {
	mu    sync.Mutex
	rooms map[uuid.UUID]*room

	presence PresenceStore
	relay    Relay
	onRevoke func(c *Conn, boardID uuid.UUID)
}

// revokeTimeout bounds the leave that follows a revocation.
const revokeTimeout = 5 * time.Second

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithPresence replaces the default in-memory presence store.
func WithPresence(p PresenceStore) HubOption {
	return func(h *Hub) { h.presence = p }
}

// WithRelay routes published events through r.
func WithRelay(r Relay) HubOption {
	return func(h *Hub) { h.relay = r }
}

func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		rooms:    make(map[uuid.UUID]*room),
		presence: NewMemoryPresence(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Join subscribes c to the board's room. The joiner receives the current
// presence list; everyone else receives user:joined. Joining a room the
// connection is already in only resends the presence list. A failed join
// leaves neither a room entry nor a presence entry behind.
func (h *Hub) Join(ctx context.Context, c *Conn, boardID uuid.UUID) error {
	already := h.attach(boardID, c)

	entry := PresenceEntry{UserID: c.Identity().UserID, Name: c.Identity().Name, ConnectionID: c.ID()}
	if !already {
		if err := h.presence.Add(ctx, boardID, entry); err != nil {
			h.detach(boardID, c.ID())
			return fmt.Errorf("realtime.Hub.Join: %w", err)
		}
	}

	users, err := h.presence.List(ctx, boardID)
	if err != nil {
		if !already {
			h.rollback(ctx, boardID, c.ID())
		}
		return fmt.Errorf("realtime.Hub.Join: %w", err)
	}

	if !already {
		err := h.Publish(ctx, Event{
			BoardID: boardID,
			Name:    EventUserJoined,
			Data:    map[string]any{"userId": entry.UserID, "name": entry.Name},
			Exclude: c.ID(),
		})
		if err != nil {
			h.rollback(ctx, boardID, c.ID())
			return fmt.Errorf("realtime.Hub.Join: %w", err)
		}
	}

	h.sendTo(c, Event{BoardID: boardID, Name: EventActiveUsers, Data: users})
	return nil
}

// rollback undoes the attach and presence add of a join that failed.
func (h *Hub) rollback(ctx context.Context, boardID uuid.UUID, connID string) {
	h.detach(boardID, connID)
	if err := h.presence.Remove(context.WithoutCancel(ctx), boardID, connID); err != nil {
		log.Warn().Err(err).Str("board_id", boardID.String()).Str("conn_id", connID).Msg("presence rollback")
	}
}

// Leave unsubscribes the connection from the board's room and announces
// user:left. Leaving a room the connection is not in is a no-op, so the
// announcement happens once per join.
func (h *Hub) Leave(ctx context.Context, c *Conn, boardID uuid.UUID) error {
	if !h.detach(boardID, c.ID()) {
		return nil
	}

	if err := h.presence.Remove(ctx, boardID, c.ID()); err != nil {
		log.Warn().Err(err).Str("board_id", boardID.String()).Str("conn_id", c.ID()).Msg("presence remove")
	}

	return h.Publish(ctx, Event{
		BoardID: boardID,
		Name:    EventUserLeft,
		Data:    map[string]any{"userId": c.Identity().UserID, "name": c.Identity().Name},
		Exclude: c.ID(),
	})
}

// attach adds c to the board's room, creating the room if needed. It
// reports whether c was already present.
func (h *Hub) attach(boardID uuid.UUID, c *Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[boardID]
	if !ok {
		r = &room{conns: make(map[string]*Conn)}
		h.rooms[boardID] = r
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	_, present := r.conns[c.ID()]
	r.conns[c.ID()] = c
	return present
}

// detach removes connID from the room, discarding the room when it empties.
// It reports whether the connection was present.
func (h *Hub) detach(boardID uuid.UUID, connID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[boardID]
	if !ok {
		return false
	}

	r.mu.Lock()
	_, present := r.conns[connID]
	delete(r.conns, connID)
	empty := len(r.conns) == 0
	r.mu.Unlock()

	if empty {
		delete(h.rooms, boardID)
	}
	return present
}

// Publish sends ev to the board's room, through the relay when configured.
func (h *Hub) Publish(ctx context.Context, ev Event) error {
	if h.relay != nil {
		if err := h.relay.Publish(ctx, ev); err != nil {
			return fmt.Errorf("realtime.Hub.Publish: %w", err)
		}
		return nil
	}
	h.Deliver(ev)
	return nil
}

// Deliver fans ev out to this instance's connections in the room. Delivery
// to one room is serialized, so subscribers observe events in the order
// Deliver was called. Connections the event revokes leave the room after
// they have received it.
func (h *Hub) Deliver(ev Event) {
	h.mu.Lock()
	r, ok := h.rooms[ev.BoardID]
	revoke := h.onRevoke
	h.mu.Unlock()
	if !ok {
		return
	}

	frame, err := ev.Frame()
	if err != nil {
		log.Error().Err(err).Str("event", ev.Name).Msg("encode event")
		return
	}

	var revoked []*Conn
	r.mu.Lock()
	for id, c := range r.conns {
		if ev.revokes(c) {
			revoked = append(revoked, c)
		}
		if id == ev.Exclude {
			continue
		}
		if !c.Send(frame) {
			log.Warn().Str("conn_id", id).Str("board_id", ev.BoardID.String()).Str("event", ev.Name).
				Msg("dropped event for closed or slow connection")
		}
	}
	r.mu.Unlock()

	for _, c := range revoked {
		if revoke != nil {
			revoke(c, ev.BoardID)
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), revokeTimeout)
		if err := h.Leave(ctx, c, ev.BoardID); err != nil {
			log.Warn().Err(err).Str("conn_id", c.ID()).Str("board_id", ev.BoardID.String()).Msg("revoke")
		}
		cancel()
	}
}

// setRevokeHandler routes revocations through fn instead of Leave.
func (h *Hub) setRevokeHandler(fn func(c *Conn, boardID uuid.UUID)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onRevoke = fn
}

// sendTo delivers ev to a single connection.
func (h *Hub) sendTo(c *Conn, ev Event) {
	frame, err := ev.Frame()
	if err != nil {
		log.Error().Err(err).Str("event", ev.Name).Msg("encode event")
		return
	}
	c.Send(frame)
}

// ActiveUsers returns the presence list of a board.
func (h *Hub) ActiveUsers(ctx context.Context, boardID uuid.UUID) ([]PresenceEntry, error) {
	users, err := h.presence.List(ctx, boardID)
	if err != nil {
		return nil, fmt.Errorf("realtime.Hub.ActiveUsers: %w", err)
	}
	return users, nil
}
