package pipeline

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/AbhinayAmbati/kanbana/internal/domain"
	"github.com/AbhinayAmbati/kanbana/internal/realtime"
)

// Kind names a mutation.
type Kind string

const (
	KindBoardCreate       Kind = "board.create"
	KindBoardUpdate       Kind = "board.update"
	KindBoardArchive      Kind = "board.archive"
	KindBoardMemberSet    Kind = "board.member.set"
	KindBoardMemberRemove Kind = "board.member.remove"
	KindColumnCreate      Kind = "column.create"
	KindColumnUpdate      Kind = "column.update"
	KindColumnMove        Kind = "column.move"
	KindColumnDelete      Kind = "column.delete"
	KindCardCreate        Kind = "card.create"
	KindCardUpdate        Kind = "card.update"
	KindCardMove          Kind = "card.move"
	KindCardDelete        Kind = "card.delete"
	KindCommentCreate     Kind = "comment.create"
	KindCommentUpdate     Kind = "comment.update"
	KindCommentDelete     Kind = "comment.delete"
)

// Mutation is one state change requested by an authenticated actor.
type Mutation struct {
	Actor uuid.UUID
	// Origin is the connection that issued the mutation, if any. It is
	// excluded from the resulting broadcast.
	Origin string
	Kind   Kind
	// BoardID scopes the mutation. For card and column mutations it may be
	// left zero and is then taken from the target entity; when set, the
	// entity must live on that board.
	BoardID uuid.UUID
	Payload any
}

type BoardCreate struct {
	WorkspaceID uuid.UUID
	Title       string
	Description string
}

// BoardUpdate patches a board. Nil fields are left alone.
type BoardUpdate struct {
	Title       *string
	Description *string
	Archived    *bool
}

type BoardArchive struct{}

type MemberSet struct {
	UserID uuid.UUID
	Role   string
}

type MemberRemove struct {
	UserID uuid.UUID
}

type ColumnCreate struct {
	Title    string
	Color    string
	WIPLimit *int
	// Index is the insert position among the board's columns. Nil appends.
	Index *int
}

type ColumnUpdate struct {
	ColumnID      uuid.UUID
	Title         *string
	Color         *string
	WIPLimit      *int
	ClearWIPLimit bool
}

type ColumnMove struct {
	ColumnID uuid.UUID
	Index    int
}

type ColumnDelete struct {
	ColumnID uuid.UUID
}

type CardCreate struct {
	ColumnID    uuid.UUID
	Title       string
	Description string
	Priority    string
	Labels      []domain.Label
	Assignees   []uuid.UUID
	DueDate     *time.Time
	// Index is the insert position within the column. Nil appends.
	Index *int
}

// CardUpdate patches a card's fields. It never changes position or column.
type CardUpdate struct {
	CardID       uuid.UUID
	Title        *string
	Description  *string
	Priority     *string
	Labels       *[]domain.Label
	Assignees    *[]uuid.UUID
	DueDate      *time.Time
	ClearDueDate bool
}

// CardMove moves a card to Index within ColumnID. Index counts the
// destination column's cards without the moved card.
type CardMove struct {
	CardID   uuid.UUID
	ColumnID uuid.UUID
	Index    int
}

type CardDelete struct {
	CardID uuid.UUID
}

// CommentCreate adds a comment to a card. Mentions must be board members.
type CommentCreate struct {
	CardID   uuid.UUID
	Content  string
	Mentions []uuid.UUID
}

// CommentUpdate rewrites a comment's content. Only its author may do so.
type CommentUpdate struct {
	CommentID uuid.UUID
	Content   string
	Mentions  []uuid.UUID
}

type CommentDelete struct {
	CommentID uuid.UUID
}

// Result is the outcome of an accepted mutation.
type Result struct {
	Board   *domain.Board
	Column  *domain.Column
	Card    *domain.Card
	Comment *domain.Comment
	// Activity is nil when the mutation changed nothing the audit trail
	// tracks.
	Activity *domain.Activity
	// Events were published after commit, in order.
	Events []realtime.Event
}

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrValidation, fmt.Sprintf(format, args...))
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidOperation, fmt.Sprintf(format, args...))
}

// cleanTitle trims s and checks it is present and within limit runes.
func cleanTitle(field, s string, limit int) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", validationf("%s is required", field)
	}
	if utf8.RuneCountInString(s) > limit {
		return "", validationf("%s must be at most %d characters", field, limit)
	}
	return s, nil
}

func checkLen(field, s string, limit int) error {
	if utf8.RuneCountInString(s) > limit {
		return validationf("%s must be at most %d characters", field, limit)
	}
	return nil
}

func checkIndex(idx *int) error {
	if idx != nil && *idx < 0 {
		return validationf("index must not be negative")
	}
	return nil
}

func checkWIPLimit(n *int) error {
	if n != nil && *n < 1 {
		return validationf("wip limit must be at least 1")
	}
	return nil
}

func checkLabels(labels []domain.Label) error {
	for _, l := range labels {
		if strings.TrimSpace(l.Name) == "" {
			return validationf("label name is required")
		}
	}
	return nil
}

func checkID(field string, id uuid.UUID) error {
	if id == uuid.Nil {
		return validationf("%s is required", field)
	}
	return nil
}
