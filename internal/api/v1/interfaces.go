package v1

import (
	"context"

	"github.com/google/uuid"

	"github.com/AbhinayAmbati/kanbana/internal/domain"
	"github.com/AbhinayAmbati/kanbana/internal/pipeline"
	"github.com/AbhinayAmbati/kanbana/internal/realtime"
)

// Boards abstracts the mutation pipeline and its read paths for handler
// testing. *pipeline.Pipeline satisfies this interface.
type Boards interface {
	Apply(ctx context.Context, m pipeline.Mutation) (*pipeline.Result, error)
	Authorize(ctx context.Context, actor, boardID uuid.UUID, required domain.Role) (domain.Role, error)
	Snapshot(ctx context.Context, actor, boardID uuid.UUID) (*pipeline.Snapshot, error)
	Activities(ctx context.Context, actor, boardID uuid.UUID, limit, offset int) ([]*domain.Activity, error)
	Boards(ctx context.Context, actor uuid.UUID) ([]*domain.Board, error)
	Comments(ctx context.Context, actor, cardID uuid.UUID) ([]*domain.Comment, error)
}

// Presence reads who is viewing a board. *realtime.Hub satisfies this
// interface.
type Presence interface {
	ActiveUsers(ctx context.Context, boardID uuid.UUID) ([]realtime.PresenceEntry, error)
}

// Connections identifies live sockets. *realtime.Registry satisfies this
// interface.
type Connections interface {
	Identity(connID string) (realtime.Identity, bool)
}
