package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/AbhinayAmbati/kanbana/internal/domain"
)

// ColumnView is a column with its cards in position order.
type ColumnView struct {
	domain.Column
	Cards []*domain.Card `json:"cards"`
}

// Snapshot is the full state of a board as a client renders it.
type Snapshot struct {
	Board   *domain.Board `json:"board"`
	Columns []ColumnView  `json:"columns"`
	Role    domain.Role   `json:"role"`
}

const (
	DefaultActivityLimit = 50
	MaxActivityLimit     = 200
)

// Authorize resolves actor's role on a board for read paths that live
// outside the pipeline, such as joining a board room.
func (p *Pipeline) Authorize(ctx context.Context, actor, boardID uuid.UUID, required domain.Role) (domain.Role, error) {
	role, err := p.boards.Authorize(ctx, actor, boardID, required)
	if err != nil {
		return "", fmt.Errorf("pipeline.Authorize: %w", classify(err))
	}
	return role, nil
}

// Snapshot returns the board with its ordered columns and cards. Clients
// use it to reconcile after reconnecting.
func (p *Pipeline) Snapshot(ctx context.Context, actor, boardID uuid.UUID) (*Snapshot, error) {
	role, err := p.Authorize(ctx, actor, boardID, domain.RoleViewer)
	if err != nil {
		return nil, err
	}

	board, err := p.store.Boards().GetByID(ctx, boardID)
	if err != nil {
		return nil, fmt.Errorf("pipeline.Snapshot: %w", classify(err))
	}
	cols, err := p.store.Columns().ListByBoard(ctx, boardID)
	if err != nil {
		return nil, fmt.Errorf("pipeline.Snapshot: %w", classify(err))
	}
	cards, err := p.store.Cards().ListByBoard(ctx, boardID)
	if err != nil {
		return nil, fmt.Errorf("pipeline.Snapshot: %w", classify(err))
	}

	byColumn := make(map[uuid.UUID][]*domain.Card, len(cols))
	for _, c := range cards {
		byColumn[c.ColumnID] = append(byColumn[c.ColumnID], c)
	}

	snap := &Snapshot{Board: board, Role: role, Columns: make([]ColumnView, 0, len(cols))}
	for _, col := range cols {
		cc := byColumn[col.ID]
		if cc == nil {
			cc = []*domain.Card{}
		}
		snap.Columns = append(snap.Columns, ColumnView{Column: *col, Cards: cc})
	}
	return snap, nil
}

// Activities returns a page of the board's audit trail, newest first.
func (p *Pipeline) Activities(ctx context.Context, actor, boardID uuid.UUID, limit, offset int) ([]*domain.Activity, error) {
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	if limit > MaxActivityLimit {
		limit = MaxActivityLimit
	}
	if offset < 0 {
		offset = 0
	}
	if _, err := p.Authorize(ctx, actor, boardID, domain.RoleViewer); err != nil {
		return nil, err
	}

	acts, err := p.store.Activities().ListByBoard(ctx, boardID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("pipeline.Activities: %w", classify(err))
	}
	return acts, nil
}

// Boards lists the boards the actor can see.
func (p *Pipeline) Boards(ctx context.Context, actor uuid.UUID) ([]*domain.Board, error) {
	boards, err := p.store.Boards().ListForUser(ctx, actor)
	if err != nil {
		return nil, fmt.Errorf("pipeline.Boards: %w", classify(err))
	}
	return boards, nil
}

// Comments returns a card's comments oldest first.
func (p *Pipeline) Comments(ctx context.Context, actor, cardID uuid.UUID) ([]*domain.Comment, error) {
	card, err := p.store.Cards().GetByID(ctx, cardID)
	if err != nil {
		return nil, fmt.Errorf("pipeline.Comments: %w", classify(err))
	}
	if _, err := p.Authorize(ctx, actor, card.BoardID, domain.RoleViewer); err != nil {
		return nil, err
	}

	comments, err := p.store.Comments().ListByCard(ctx, cardID)
	if err != nil {
		return nil, fmt.Errorf("pipeline.Comments: %w", classify(err))
	}
	return comments, nil
}
