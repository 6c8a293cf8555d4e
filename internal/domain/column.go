package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Column struct {
	ID        uuid.UUID `json:"id"`
	BoardID   uuid.UUID `json:"board_id"`
	Title     string    `json:"title"`
	Position  float64   `json:"position"`
	WIPLimit  *int      `json:"wip_limit,omitempty"` // nil means no limit
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	MaxColumnTitleLen  = 50
	DefaultColumnColor = "#6b7280"
)

type ColumnRepository interface {
	Create(ctx context.Context, c *Column) error
	GetByID(ctx context.Context, id uuid.UUID) (*Column, error)
	// ListByBoard returns the board's columns ordered by position ascending.
	ListByBoard(ctx context.Context, boardID uuid.UUID) ([]*Column, error)
	Update(ctx context.Context, c *Column) error
	UpdatePosition(ctx context.Context, id uuid.UUID, position float64) error
	Delete(ctx context.Context, id uuid.UUID) error
}
