package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Event names sent to clients.
const (
	EventCardCreated    = "card:created"
	EventCardUpdated    = "card:updated"
	EventCardMoved      = "card:moved"
	EventCardDeleted    = "card:deleted"
	EventCommentAdded   = "comment:added"
	EventCommentUpdated = "comment:updated"
	EventCommentDeleted = "comment:deleted"
	EventColumnCreated  = "column:created"
	EventColumnUpdated  = "column:updated"
	EventColumnMoved    = "column:moved"
	EventColumnDeleted  = "column:deleted"
	EventBoardCreated   = "board:created"
	EventBoardUpdated   = "board:updated"
	EventBoardArchived  = "board:archived"
	EventMemberUpdated  = "board:memberUpdated"
	EventMemberRemoved  = "board:memberRemoved"
	EventActiveUsers    = "board:activeUsers"
	EventUserJoined     = "user:joined"
	EventUserLeft       = "user:left"
	EventTypingStart    = "typing:start"
	EventTypingStop     = "typing:stop"
)

// Event is one message for a board room.
type Event struct {
	BoardID uuid.UUID
	Name    string
	Data    any
	// Exclude is the connection that caused the event. It does not receive
	// the event. Empty means everyone in the room does.
	Exclude string
	// Revoke names a user whose connections are removed from the room once
	// the event has been delivered. RevokeAll empties the room.
	Revoke    uuid.UUID
	RevokeAll bool
}

// revokes reports whether c loses its place in the room after ev.
func (e Event) revokes(c *Conn) bool {
	return e.RevokeAll || (e.Revoke != uuid.Nil && c.Identity().UserID == e.Revoke)
}

type frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Frame encodes the event in its wire form: {"event": ..., "data": ...}.
func (e Event) Frame() ([]byte, error) {
	b, err := json.Marshal(frame{Event: e.Name, Data: e.Data})
	if err != nil {
		return nil, fmt.Errorf("realtime.Event.Frame: %w", err)
	}
	return b, nil
}
