package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ActivityType string

const (
	ActivityBoardCreated  ActivityType = "board_created"
	ActivityBoardUpdated  ActivityType = "board_updated"
	ActivityBoardArchived ActivityType = "board_archived"
	ActivityMemberAdded   ActivityType = "member_added"
	ActivityMemberRemoved ActivityType = "member_removed"
	ActivityColumnCreated ActivityType = "column_created"
	ActivityColumnUpdated ActivityType = "column_updated"
	ActivityColumnMoved   ActivityType = "column_moved"
	ActivityColumnDeleted ActivityType = "column_deleted"
	ActivityCardCreated   ActivityType = "card_created"
	ActivityCardUpdated   ActivityType = "card_updated"
	ActivityCardMoved     ActivityType = "card_moved"
	ActivityCardDeleted   ActivityType = "card_deleted"

	ActivityCommentAdded   ActivityType = "comment_added"
	ActivityCommentUpdated ActivityType = "comment_updated"
	ActivityCommentDeleted ActivityType = "comment_deleted"
)

// Activity is an immutable audit entry for one committed mutation.
type Activity struct {
	ID         uuid.UUID      `json:"id"`
	Type       ActivityType   `json:"type"`
	ActorID    uuid.UUID      `json:"actor_id"`
	BoardID    uuid.UUID      `json:"board_id"`
	EntityType string         `json:"entity_type"` // "board", "column", "card", "comment"
	EntityID   uuid.UUID      `json:"entity_id"`
	Details    map[string]any `json:"details"`
	CreatedAt  time.Time      `json:"created_at"`
}

// ActivityRepository is append-only: there is no update or delete.
type ActivityRepository interface {
	Append(ctx context.Context, a *Activity) error
	ListByBoard(ctx context.Context, boardID uuid.UUID, limit, offset int) ([]*Activity, error)
}
