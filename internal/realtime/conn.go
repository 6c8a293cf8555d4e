package realtime

import (
	"sync"

	"github.com/google/uuid"
)

// Identity is the authenticated user behind a connection.
type Identity struct {
	UserID uuid.UUID `json:"userId"`
	Name   string    `json:"name"`
}

// DefaultSendBuffer is the outbox size used when none is configured.
const DefaultSendBuffer = 64

// Conn is the hub-side half of a live client connection. Frames queued on
// the outbox are written to the socket by the transport; the hub never
// blocks on a slow client.
type Conn struct {
	id       string
	identity Identity
	out      chan []byte

	done      chan struct{}
	closeOnce sync.Once
	mu        sync.Mutex
	reason    string
}

// NewConn creates a connection with an outbox of the given size.
func NewConn(id string, identity Identity, buffer int) *Conn {
	if buffer <= 0 {
		buffer = DefaultSendBuffer
	}
	return &Conn{
		id:       id,
		identity: identity,
		out:      make(chan []byte, buffer),
		done:     make(chan struct{}),
	}
}

func (c *Conn) ID() string { return c.id }
func (c *Conn) Identity() Identity { return c.identity }
func (c *Conn) Outbox() <-chan []byte { return c.out }
func (c *Conn) Done() <-chan struct{} { return c.done }

// Send queues a frame without blocking. A full outbox closes the connection
// as a slow consumer. It reports whether the frame was queued.
func (c *Conn) Send(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.out <- frame:
		return true
	default:
		c.Close("slow consumer")
		return false
	}
}

// Close marks the connection as finished. Safe to call more than once; the
// first reason wins.
func (c *Conn) Close(reason string) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.reason = reason
		c.mu.Unlock()
		close(c.done)
	})
}

// CloseReason returns the reason passed to the first Close call.
func (c *Conn) CloseReason() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason
}
