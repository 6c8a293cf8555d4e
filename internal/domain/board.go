package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Member is a user's role assignment on a board or workspace.
type Member struct {
	UserID  uuid.UUID `json:"user_id"`
	Role    Role      `json:"role"`
	AddedAt time.Time `json:"added_at"`
}

type Board struct {
	ID          uuid.UUID `json:"id"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Members     []Member  `json:"members"`
	Archived    bool      `json:"archived"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RoleOf returns the effective role of userID on the board. The owner is
// always an admin even when absent from Members.
func (b *Board) RoleOf(userID uuid.UUID) (Role, bool) {
	if b.OwnerID == userID {
		return RoleAdmin, true
	}
	for _, m := range b.Members {
		if m.UserID == userID {
			return m.Role, true
		}
	}
	return "", false
}

// Board field limits.
const (
	MaxBoardTitleLen       = 100
	MaxBoardDescriptionLen = 500
)

type BoardRepository interface {
	Create(ctx context.Context, b *Board) error
	GetByID(ctx context.Context, id uuid.UUID) (*Board, error)
	Update(ctx context.Context, b *Board) error
	SetMember(ctx context.Context, boardID uuid.UUID, m Member) error
	RemoveMember(ctx context.Context, boardID, userID uuid.UUID) error
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*Board, error)
}
