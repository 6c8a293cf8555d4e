package ws

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/AbhinayAmbati/kanbana/internal/domain"
	"github.com/AbhinayAmbati/kanbana/internal/pipeline"
)

// Commands a client may send.
const (
	CmdJoinBoard     = "join:board"
	CmdLeaveBoard    = "leave:board"
	CmdTypingStart   = "typing:start"
	CmdTypingStop    = "typing:stop"
	CmdCardCreate    = "card:create"
	CmdCardUpdate    = "card:update"
	CmdCardMove      = "card:move"
	CmdCardDelete    = "card:delete"
	CmdColumnCreate  = "column:create"
	CmdColumnUpdate  = "column:update"
	CmdColumnMove    = "column:move"
	CmdColumnDelete  = "column:delete"
	CmdCommentAdd    = "comment:add"
	CmdCommentUpdate = "comment:update"
	CmdCommentDelete = "comment:delete"

	// EventAck answers every command, on the sender's socket only.
	EventAck = "ack"
)

// Command is an inbound frame. ID is echoed in the ack.
type Command struct {
	ID    string          `json:"id,omitempty"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Ack reports the outcome of one command.
type Ack struct {
	ID      string `json:"id,omitempty"`
	Event   string `json:"event"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Ack error codes.
const (
	CodeBadRequest       = "bad_request"
	CodeRateLimited      = "rate_limited"
	CodeNotFound         = "not_found"
	CodeForbidden        = "forbidden"
	CodeValidation       = "validation"
	CodeInvalidOperation = "invalid_operation"
	CodeUnauthorized     = "unauthorized"
	CodeNotJoined        = "not_joined"
	CodeInternal         = "internal"
)

var errNotJoined = errors.New("ws: board not joined")

func errorCode(err error) string {
	switch {
	case errors.Is(err, errNotJoined):
		return CodeNotJoined
	case errors.Is(err, domain.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, domain.ErrForbidden):
		return CodeForbidden
	case errors.Is(err, domain.ErrValidation):
		return CodeValidation
	case errors.Is(err, domain.ErrInvalidOperation):
		return CodeInvalidOperation
	case errors.Is(err, domain.ErrUnauthorized):
		return CodeUnauthorized
	default:
		return CodeInternal
	}
}

type boardRef struct {
	BoardID uuid.UUID `json:"boardId"`
}

type typingData struct {
	BoardID uuid.UUID `json:"boardId"`
	CardID  uuid.UUID `json:"cardId"`
}

type cardCreateData struct {
	BoardID     uuid.UUID      `json:"boardId"`
	ColumnID    uuid.UUID      `json:"columnId"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Priority    string         `json:"priority"`
	Labels      []domain.Label `json:"labels"`
	Assignees   []uuid.UUID    `json:"assignees"`
	DueDate     *time.Time     `json:"dueDate"`
	Index       *int           `json:"index"`
}

type cardUpdateData struct {
	BoardID      uuid.UUID       `json:"boardId"`
	CardID       uuid.UUID       `json:"cardId"`
	Title        *string         `json:"title"`
	Description  *string         `json:"description"`
	Priority     *string         `json:"priority"`
	Labels       *[]domain.Label `json:"labels"`
	Assignees    *[]uuid.UUID    `json:"assignees"`
	DueDate      *time.Time      `json:"dueDate"`
	ClearDueDate bool            `json:"clearDueDate"`
}

type cardMoveData struct {
	BoardID  uuid.UUID `json:"boardId"`
	CardID   uuid.UUID `json:"cardId"`
	ColumnID uuid.UUID `json:"columnId"`
	Index    int       `json:"index"`
}

type cardDeleteData struct {
	BoardID uuid.UUID `json:"boardId"`
	CardID  uuid.UUID `json:"cardId"`
}

type columnCreateData struct {
	BoardID  uuid.UUID `json:"boardId"`
	Title    string    `json:"title"`
	Color    string    `json:"color"`
	WIPLimit *int      `json:"wipLimit"`
	Index    *int      `json:"index"`
}

type columnUpdateData struct {
	BoardID       uuid.UUID `json:"boardId"`
	ColumnID      uuid.UUID `json:"columnId"`
	Title         *string   `json:"title"`
	Color         *string   `json:"color"`
	WIPLimit      *int      `json:"wipLimit"`
	ClearWIPLimit bool      `json:"clearWipLimit"`
}

type columnMoveData struct {
	BoardID  uuid.UUID `json:"boardId"`
	ColumnID uuid.UUID `json:"columnId"`
	Index    int       `json:"index"`
}

type columnDeleteData struct {
	BoardID  uuid.UUID `json:"boardId"`
	ColumnID uuid.UUID `json:"columnId"`
}

type commentAddData struct {
	BoardID  uuid.UUID   `json:"boardId"`
	CardID   uuid.UUID   `json:"cardId"`
	Content  string      `json:"content"`
	Mentions []uuid.UUID `json:"mentions"`
}

type commentUpdateData struct {
	BoardID   uuid.UUID   `json:"boardId"`
	CommentID uuid.UUID   `json:"commentId"`
	Content   string      `json:"content"`
	Mentions  []uuid.UUID `json:"mentions"`
}

type commentDeleteData struct {
	BoardID   uuid.UUID `json:"boardId"`
	CommentID uuid.UUID `json:"commentId"`
}

// mutationFor decodes a mutation command. ok is false for commands that are
// not mutations.
func mutationFor(cmd Command) (m pipeline.Mutation, ok bool, err error) {
	decode := func(v any) error {
		if len(cmd.Data) == 0 {
			return errors.New("missing data")
		}
		return json.Unmarshal(cmd.Data, v)
	}

	switch cmd.Event {
	case CmdCardCreate:
		var d cardCreateData
		if err := decode(&d); err != nil {
			return m, true, err
		}
		return pipeline.Mutation{Kind: pipeline.KindCardCreate, BoardID: d.BoardID, Payload: pipeline.CardCreate{
			ColumnID:    d.ColumnID,
			Title:       d.Title,
			Description: d.Description,
			Priority:    d.Priority,
			Labels:      d.Labels,
			Assignees:   d.Assignees,
			DueDate:     d.DueDate,
			Index:       d.Index,
		}}, true, nil
	case CmdCardUpdate:
		var d cardUpdateData
		if err := decode(&d); err != nil {
			return m, true, err
		}
		return pipeline.Mutation{Kind: pipeline.KindCardUpdate, BoardID: d.BoardID, Payload: pipeline.CardUpdate{
			CardID:       d.CardID,
			Title:        d.Title,
			Description:  d.Description,
			Priority:     d.Priority,
			Labels:       d.Labels,
			Assignees:    d.Assignees,
			DueDate:      d.DueDate,
			ClearDueDate: d.ClearDueDate,
		}}, true, nil
	case CmdCardMove:
		var d cardMoveData
		if err := decode(&d); err != nil {
			return m, true, err
		}
		return pipeline.Mutation{Kind: pipeline.KindCardMove, BoardID: d.BoardID, Payload: pipeline.CardMove{
			CardID:   d.CardID,
			ColumnID: d.ColumnID,
			Index:    d.Index,
		}}, true, nil
	case CmdCardDelete:
		var d cardDeleteData
		if err := decode(&d); err != nil {
			return m, true, err
		}
		return pipeline.Mutation{Kind: pipeline.KindCardDelete, BoardID: d.BoardID, Payload: pipeline.CardDelete{CardID: d.CardID}}, true, nil
	case CmdColumnCreate:
		var d columnCreateData
		if err := decode(&d); err != nil {
			return m, true, err
		}
		return pipeline.Mutation{Kind: pipeline.KindColumnCreate, BoardID: d.BoardID, Payload: pipeline.ColumnCreate{
			Title:    d.Title,
			Color:    d.Color,
			WIPLimit: d.WIPLimit,
			Index:    d.Index,
		}}, true, nil
	case CmdColumnUpdate:
		var d columnUpdateData
		if err := decode(&d); err != nil {
			return m, true, err
		}
		return pipeline.Mutation{Kind: pipeline.KindColumnUpdate, BoardID: d.BoardID, Payload: pipeline.ColumnUpdate{
			ColumnID:      d.ColumnID,
			Title:         d.Title,
			Color:         d.Color,
			WIPLimit:      d.WIPLimit,
			ClearWIPLimit: d.ClearWIPLimit,
		}}, true, nil
	case CmdColumnMove:
		var d columnMoveData
		if err := decode(&d); err != nil {
			return m, true, err
		}
		return pipeline.Mutation{Kind: pipeline.KindColumnMove, BoardID: d.BoardID, Payload: pipeline.ColumnMove{
			ColumnID: d.ColumnID,
			Index:    d.Index,
		}}, true, nil
	case CmdColumnDelete:
		var d columnDeleteData
		if err := decode(&d); err != nil {
			return m, true, err
		}
		return pipeline.Mutation{Kind: pipeline.KindColumnDelete, BoardID: d.BoardID, Payload: pipeline.ColumnDelete{ColumnID: d.ColumnID}}, true, nil
	case CmdCommentAdd:
		var d commentAddData
		if err := decode(&d); err != nil {
			return m, true, err
		}
		return pipeline.Mutation{Kind: pipeline.KindCommentCreate, BoardID: d.BoardID, Payload: pipeline.CommentCreate{
			CardID:   d.CardID,
			Content:  d.Content,
			Mentions: d.Mentions,
		}}, true, nil
	case CmdCommentUpdate:
		var d commentUpdateData
		if err := decode(&d); err != nil {
			return m, true, err
		}
		return pipeline.Mutation{Kind: pipeline.KindCommentUpdate, BoardID: d.BoardID, Payload: pipeline.CommentUpdate{
			CommentID: d.CommentID,
			Content:   d.Content,
			Mentions:  d.Mentions,
		}}, true, nil
	case CmdCommentDelete:
		var d commentDeleteData
		if err := decode(&d); err != nil {
			return m, true, err
		}
		return pipeline.Mutation{Kind: pipeline.KindCommentDelete, BoardID: d.BoardID, Payload: pipeline.CommentDelete{CommentID: d.CommentID}}, true, nil
	default:
		return m, false, nil
	}
}

// resultData picks the entity an ack carries back to the sender.
func resultData(res *pipeline.Result) any {
	switch {
	case res == nil:
		return nil
	case res.Comment != nil:
		return res.Comment
	case res.Card != nil:
		return res.Card
	case res.Column != nil:
		return res.Column
	case res.Board != nil:
		return res.Board
	default:
		return nil
	}
}
