package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Priority string

const (
	PriorityNone   Priority = "none"
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ParsePriority validates a priority string.
func ParsePriority(s string) (Priority, error) {
	switch p := Priority(s); p {
	case PriorityNone, PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return p, nil
	default:
		return "", fmt.Errorf("%w: unknown priority %q", ErrValidation, s)
	}
}

type Label struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Card belongs to one column and, redundantly, to that column's board.
// BoardID must always equal the column's BoardID.
type Card struct {
	ID          uuid.UUID   `json:"id"`
	BoardID     uuid.UUID   `json:"board_id"`
	ColumnID    uuid.UUID   `json:"column_id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Position    float64     `json:"position"`
	Priority    Priority    `json:"priority"`
	Labels      []Label     `json:"labels"`
	Assignees   []uuid.UUID `json:"assignees"`
	DueDate     *time.Time  `json:"due_date,omitempty"`
	CreatedBy   uuid.UUID   `json:"created_by"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

const MaxCardTitleLen = 200

type CardRepository interface {
	Create(ctx context.Context, c *Card) error
	GetByID(ctx context.Context, id uuid.UUID) (*Card, error)
	// ListByColumn returns the column's cards ordered by position ascending.
	ListByColumn(ctx context.Context, columnID uuid.UUID) ([]*Card, error)
	ListByBoard(ctx context.Context, boardID uuid.UUID) ([]*Card, error)
	CountByColumn(ctx context.Context, columnID uuid.UUID) (int, error)
	Update(ctx context.Context, c *Card) error
	UpdatePosition(ctx context.Context, id uuid.UUID, position float64) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByColumn(ctx context.Context, columnID uuid.UUID) error
}
