package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/AbhinayAmbati/kanbana/internal/domain"
	"github.com/AbhinayAmbati/kanbana/internal/pipeline"
	"github.com/AbhinayAmbati/kanbana/internal/realtime"
	"github.com/AbhinayAmbati/kanbana/internal/server/middleware"
)

const (
	readLimit           = 64 << 10
	defaultWriteTimeout = 10 * time.Second
	defaultCommandRate  = 20
	defaultCommandBurst = 40
	disconnectTimeout   = 5 * time.Second
)

// Boards is the slice of the mutation pipeline the socket transport needs.
type Boards interface {
	Apply(ctx context.Context, m pipeline.Mutation) (*pipeline.Result, error)
	Authorize(ctx context.Context, actor, boardID uuid.UUID, required domain.Role) (domain.Role, error)
}

type Options struct {
	SendBuffer     int
	CommandRate    float64
	CommandBurst   int
	WriteTimeout   time.Duration
	OriginPatterns []string
}

// Handler upgrades authenticated requests to WebSocket sessions and
// dispatches their commands.
type Handler struct {
	registry *realtime.Registry
	hub      *realtime.Hub
	boards   Boards
	opts     Options
}

func NewHandler(registry *realtime.Registry, hub *realtime.Hub, boards Boards, opts Options) *Handler {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = realtime.DefaultSendBuffer
	}
	if opts.CommandRate <= 0 {
		opts.CommandRate = defaultCommandRate
	}
	if opts.CommandBurst <= 0 {
		opts.CommandBurst = defaultCommandBurst
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	return &Handler{registry: registry, hub: hub, boards: boards, opts: opts}
}

// ServeHTTP expects the Auth middleware to have stored the caller on the
// request context.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	who, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	sock, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.opts.OriginPatterns,
	})
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer sock.CloseNow()
	sock.SetReadLimit(readLimit)

	c := realtime.NewConn(ulid.Make().String(), realtime.Identity{UserID: who.UserID, Name: who.Name}, h.opts.SendBuffer)
	if err := h.registry.Register(c); err != nil {
		log.Error().Err(err).Str("conn_id", c.ID()).Msg("register connection")
		sock.Close(websocket.StatusInternalError, "register failed")
		return
	}
	log.Debug().Str("conn_id", c.ID()).Str("user_id", who.UserID.String()).Msg("websocket connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(ctx, sock, c)
	}()

	h.readLoop(ctx, sock, c)

	c.Close("client gone")
	cancel()
	<-writerDone

	// The session may end because the request context died; leaving rooms
	// must still happen.
	leaveCtx, leaveCancel := context.WithTimeout(context.WithoutCancel(r.Context()), disconnectTimeout)
	defer leaveCancel()
	h.registry.Forget(leaveCtx, c.ID())
	log.Debug().Str("conn_id", c.ID()).Str("reason", c.CloseReason()).Msg("websocket disconnected")
}

func (h *Handler) writeLoop(ctx context.Context, sock *websocket.Conn, c *realtime.Conn) {
	for {
		select {
		case frame := <-c.Outbox():
			if err := h.write(ctx, sock, frame); err != nil {
				c.Close("write failed")
				sock.CloseNow()
				return
			}
		case <-c.Done():
			if c.CloseReason() == "slow consumer" {
				log.Warn().Str("conn_id", c.ID()).Msg("closing slow consumer")
				sock.Close(websocket.StatusPolicyViolation, "slow consumer")
				return
			}
			sock.Close(websocket.StatusNormalClosure, "")
			return
		case <-ctx.Done():
			return
		}
	}
}

func (h *Handler) write(ctx context.Context, sock *websocket.Conn, frame []byte) error {
	ctx, cancel := context.WithTimeout(ctx, h.opts.WriteTimeout)
	defer cancel()
	return sock.Write(ctx, websocket.MessageText, frame)
}

func (h *Handler) readLoop(ctx context.Context, sock *websocket.Conn, c *realtime.Conn) {
	limiter := rate.NewLimiter(rate.Limit(h.opts.CommandRate), h.opts.CommandBurst)
	for {
		typ, data, err := sock.Read(ctx)
		if err != nil {
			if status := websocket.CloseStatus(err); status == -1 && !errors.Is(err, context.Canceled) {
				log.Debug().Err(err).Str("conn_id", c.ID()).Msg("websocket read")
			}
			return
		}
		if typ != websocket.MessageText {
			h.ack(c, Ack{Error: CodeBadRequest, Message: "text frames only"})
			continue
		}

		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil || cmd.Event == "" {
			h.ack(c, Ack{ID: cmd.ID, Event: cmd.Event, Error: CodeBadRequest, Message: "malformed command"})
			continue
		}
		if !limiter.Allow() {
			h.ack(c, Ack{ID: cmd.ID, Event: cmd.Event, Error: CodeRateLimited, Message: "too many commands"})
			continue
		}

		h.ack(c, h.dispatch(ctx, c, cmd))
	}
}

// dispatch runs one command and returns its ack.
func (h *Handler) dispatch(ctx context.Context, c *realtime.Conn, cmd Command) Ack {
	ack := Ack{ID: cmd.ID, Event: cmd.Event}
	fail := func(err error) Ack {
		ack.Error = errorCode(err)
		ack.Message = err.Error()
		if ack.Error == CodeInternal {
			log.Error().Err(err).Str("conn_id", c.ID()).Str("event", cmd.Event).Msg("websocket command")
			ack.Message = "internal error"
		}
		return ack
	}
	actor := c.Identity().UserID

	switch cmd.Event {
	case CmdJoinBoard, CmdLeaveBoard:
		var ref boardRef
		if err := json.Unmarshal(cmd.Data, &ref); err != nil || ref.BoardID == uuid.Nil {
			return badRequest(ack, "boardId is required")
		}
		if cmd.Event == CmdLeaveBoard {
			if err := h.registry.Leave(ctx, c.ID(), ref.BoardID); err != nil {
				return fail(err)
			}
			ack.OK = true
			return ack
		}
		if _, err := h.boards.Authorize(ctx, actor, ref.BoardID, domain.RoleViewer); err != nil {
			return fail(err)
		}
		if err := h.registry.Join(ctx, c.ID(), ref.BoardID); err != nil {
			return fail(err)
		}
		ack.OK = true
		return ack

	case CmdTypingStart, CmdTypingStop:
		var d typingData
		if err := json.Unmarshal(cmd.Data, &d); err != nil || d.BoardID == uuid.Nil {
			return badRequest(ack, "boardId is required")
		}
		if !h.registry.Joined(c.ID(), d.BoardID) {
			return fail(errNotJoined)
		}
		name := realtime.EventTypingStart
		if cmd.Event == CmdTypingStop {
			name = realtime.EventTypingStop
		}
		who := c.Identity()
		err := h.hub.Publish(ctx, realtime.Event{
			BoardID: d.BoardID,
			Name:    name,
			Data:    map[string]any{"userId": who.UserID, "name": who.Name, "cardId": d.CardID},
			Exclude: c.ID(),
		})
		if err != nil {
			return fail(err)
		}
		ack.OK = true
		return ack
	}

	m, ok, err := mutationFor(cmd)
	if !ok {
		return badRequest(ack, "unknown command")
	}
	if err != nil {
		return badRequest(ack, "malformed data")
	}
	m.Actor = actor
	m.Origin = c.ID()

	res, err := h.boards.Apply(ctx, m)
	if err != nil {
		return fail(err)
	}
	ack.OK = true
	ack.Data = resultData(res)
	return ack
}

func badRequest(ack Ack, msg string) Ack {
	ack.Error = CodeBadRequest
	ack.Message = msg
	return ack
}

func (h *Handler) ack(c *realtime.Conn, a Ack) {
	frame, err := json.Marshal(struct {
		Event string `json:"event"`
		Data  Ack    `json:"data"`
	}{Event: EventAck, Data: a})
	if err != nil {
		log.Error().Err(err).Str("conn_id", c.ID()).Msg("encode ack")
		return
	}
	c.Send(frame)
}
