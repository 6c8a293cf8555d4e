package domain

import (
	"context"

	"github.com/google/uuid"
)

// Repos groups the board-scoped repositories a mutation writes through.
type Repos interface {
	Boards() BoardRepository
	Columns() ColumnRepository
	Cards() CardRepository
	Comments() CommentRepository
	Activities() ActivityRepository
}

// Transactor runs fn inside one write transaction that holds the
// serialization lock of every listed board. Either everything fn wrote is
// committed or nothing is.
type Transactor interface {
	InBoardTx(ctx context.Context, boardIDs []uuid.UUID, fn func(Repos) error) error
}

// Store is the full persistence surface: pooled reads plus transactional
// board-scoped writes.
type Store interface {
	Repos
	Transactor
	Users() UserRepository
	Workspaces() WorkspaceRepository
}
