package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Comment is a message on a card. BoardID mirrors the card's board so
// comments can be authorized and broadcast without loading the card.
type Comment struct {
	ID        uuid.UUID   `json:"id"`
	BoardID   uuid.UUID   `json:"board_id"`
	CardID    uuid.UUID   `json:"card_id"`
	AuthorID  uuid.UUID   `json:"author_id"`
	Content   string      `json:"content"`
	Mentions  []uuid.UUID `json:"mentions"`
	Edited    bool        `json:"edited"`
	EditedAt  *time.Time  `json:"edited_at,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

const MaxCommentLen = 2000

type CommentRepository interface {
	Create(ctx context.Context, c *Comment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Comment, error)
	// ListByCard returns the card's comments oldest first.
	ListByCard(ctx context.Context, cardID uuid.UUID) ([]*Comment, error)
	Update(ctx context.Context, c *Comment) error
	Delete(ctx context.Context, id uuid.UUID) error
}
