package realtime

import "github.com/google/uuid"

// Rooms returns the number of non-empty local rooms.
func (h *Hub) Rooms() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}

// InRoom reports whether connID is subscribed to the board locally.
func (h *Hub) InRoom(boardID uuid.UUID, connID string) bool {
	h.mu.Lock()
	r, ok := h.rooms[boardID]
	h.mu.Unlock()
	if !ok {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, in := r.conns[connID]
	return in
}
