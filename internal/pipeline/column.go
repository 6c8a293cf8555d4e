package pipeline

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/AbhinayAmbati/kanbana/internal/domain"
	"github.com/AbhinayAmbati/kanbana/internal/realtime"
)

func (p *Pipeline) columnCreate(ctx context.Context, m Mutation, in ColumnCreate) (*plan, error) {
	if err := checkID("board id", m.BoardID); err != nil {
		return nil, err
	}
	title, err := cleanTitle("title", in.Title, domain.MaxColumnTitleLen)
	if err != nil {
		return nil, err
	}
	if err := checkIndex(in.Index); err != nil {
		return nil, err
	}
	if err := checkWIPLimit(in.WIPLimit); err != nil {
		return nil, err
	}
	if err := p.authorize(ctx, m.Actor, domain.RoleMember, m.BoardID); err != nil {
		return nil, err
	}

	color := strings.TrimSpace(in.Color)
	if color == "" {
		color = domain.DefaultColumnColor
	}

	return &plan{
		boards: []uuid.UUID{m.BoardID},
		exec: func(ctx context.Context, r domain.Repos, res *Result) error {
			if _, err := activeBoard(ctx, r, m.BoardID); err != nil {
				return err
			}
			cols, err := r.Columns().ListByBoard(ctx, m.BoardID)
			if err != nil {
				return err
			}
			ids, keys := columnKeys(cols)
			pl, err := place(ctx, ids, keys, indexOr(in.Index, len(cols)), r.Columns().UpdatePosition)
			if err != nil {
				return err
			}

			col := &domain.Column{
				ID:       uuid.New(),
				BoardID:  m.BoardID,
				Title:    title,
				Position: pl.position,
				WIPLimit: in.WIPLimit,
				Color:    color,
			}
			if err := r.Columns().Create(ctx, col); err != nil {
				return err
			}
			if err := record(ctx, r, res, &domain.Activity{
				Type:       domain.ActivityColumnCreated,
				ActorID:    m.Actor,
				BoardID:    m.BoardID,
				EntityType: "column",
				EntityID:   col.ID,
				Details:    map[string]any{"title": col.Title},
			}); err != nil {
				return err
			}

			res.Column = col
			data := map[string]any{"column": col}
			if len(pl.rewritten) > 0 {
				data["positions"] = pl.rewritten
			}
			res.Events = append(res.Events, realtime.Event{BoardID: m.BoardID, Name: realtime.EventColumnCreated, Data: data})
			return nil
		},
	}, nil
}

// lookupColumn resolves the column a mutation targets and checks it is on
// the mutation's board.
func (p *Pipeline) lookupColumn(ctx context.Context, m Mutation, id uuid.UUID) (*domain.Column, error) {
	if err := checkID("column id", id); err != nil {
		return nil, err
	}
	col, err := p.store.Columns().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := scope(m, col.BoardID); err != nil {
		return nil, err
	}
	return col, nil
}

// reloadColumn re-reads a column inside the transaction and checks it has
// not left its board since the mutation was planned.
func reloadColumn(ctx context.Context, r domain.Repos, id, boardID uuid.UUID) (*domain.Column, error) {
	col, err := r.Columns().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if col.BoardID != boardID {
		return nil, domain.ErrNotFound
	}
	return col, nil
}

func (p *Pipeline) columnUpdate(ctx context.Context, m Mutation, in ColumnUpdate) (*plan, error) {
	var title string
	if in.Title != nil {
		t, err := cleanTitle("title", *in.Title, domain.MaxColumnTitleLen)
		if err != nil {
			return nil, err
		}
		title = t
	}
	if err := checkWIPLimit(in.WIPLimit); err != nil {
		return nil, err
	}
	if in.ClearWIPLimit && in.WIPLimit != nil {
		return nil, validationf("wip limit cannot be both set and cleared")
	}
	col, err := p.lookupColumn(ctx, m, in.ColumnID)
	if err != nil {
		return nil, err
	}
	boardID := col.BoardID
	if err := p.authorize(ctx, m.Actor, domain.RoleMember, boardID); err != nil {
		return nil, err
	}

	return &plan{
		boards: []uuid.UUID{boardID},
		exec: func(ctx context.Context, r domain.Repos, res *Result) error {
			if _, err := activeBoard(ctx, r, boardID); err != nil {
				return err
			}
			col, err := reloadColumn(ctx, r, in.ColumnID, boardID)
			if err != nil {
				return err
			}

			changed := map[string]any{}
			if in.Title != nil && title != col.Title {
				changed["title"] = map[string]any{"from": col.Title, "to": title}
				col.Title = title
			}
			if in.Color != nil && strings.TrimSpace(*in.Color) != col.Color {
				changed["color"] = strings.TrimSpace(*in.Color)
				col.Color = strings.TrimSpace(*in.Color)
			}
			if in.WIPLimit != nil {
				changed["wipLimit"] = *in.WIPLimit
				col.WIPLimit = in.WIPLimit
			}
			if in.ClearWIPLimit && col.WIPLimit != nil {
				changed["wipLimit"] = nil
				col.WIPLimit = nil
			}

			if err := r.Columns().Update(ctx, col); err != nil {
				return err
			}
			if len(changed) > 0 {
				if err := record(ctx, r, res, &domain.Activity{
					Type:       domain.ActivityColumnUpdated,
					ActorID:    m.Actor,
					BoardID:    boardID,
					EntityType: "column",
					EntityID:   col.ID,
					Details:    map[string]any{"changes": changed},
				}); err != nil {
					return err
				}
			}

			res.Column = col
			res.Events = append(res.Events, realtime.Event{
				BoardID: boardID,
				Name:    realtime.EventColumnUpdated,
				Data:    map[string]any{"columnId": col.ID, "column": col},
			})
			return nil
		},
	}, nil
}

func (p *Pipeline) columnMove(ctx context.Context, m Mutation, in ColumnMove) (*plan, error) {
	if in.Index < 0 {
		return nil, validationf("index must not be negative")
	}
	col, err := p.lookupColumn(ctx, m, in.ColumnID)
	if err != nil {
		return nil, err
	}
	boardID := col.BoardID
	if err := p.authorize(ctx, m.Actor, domain.RoleMember, boardID); err != nil {
		return nil, err
	}

	return &plan{
		boards: []uuid.UUID{boardID},
		exec: func(ctx context.Context, r domain.Repos, res *Result) error {
			if _, err := activeBoard(ctx, r, boardID); err != nil {
				return err
			}
			col, err := reloadColumn(ctx, r, in.ColumnID, boardID)
			if err != nil {
				return err
			}
			cols, err := r.Columns().ListByBoard(ctx, boardID)
			if err != nil {
				return err
			}
			others := make([]*domain.Column, 0, len(cols))
			for _, c := range cols {
				if c.ID != col.ID {
					others = append(others, c)
				}
			}

			ids, keys := columnKeys(others)
			pl, err := place(ctx, ids, keys, in.Index, r.Columns().UpdatePosition)
			if err != nil {
				return err
			}

			from := col.Position
			col.Position = pl.position
			if err := r.Columns().UpdatePosition(ctx, col.ID, col.Position); err != nil {
				return err
			}
			if err := record(ctx, r, res, &domain.Activity{
				Type:       domain.ActivityColumnMoved,
				ActorID:    m.Actor,
				BoardID:    boardID,
				EntityType: "column",
				EntityID:   col.ID,
				Details:    map[string]any{"fromPosition": from, "toPosition": col.Position},
			}); err != nil {
				return err
			}

			res.Column = col
			data := map[string]any{"columnId": col.ID, "position": col.Position}
			if len(pl.rewritten) > 0 {
				data["positions"] = pl.rewritten
			}
			res.Events = append(res.Events, realtime.Event{BoardID: boardID, Name: realtime.EventColumnMoved, Data: data})
			return nil
		},
	}, nil
}

// columnDelete removes a column together with its cards.
func (p *Pipeline) columnDelete(ctx context.Context, m Mutation, in ColumnDelete) (*plan, error) {
	col, err := p.lookupColumn(ctx, m, in.ColumnID)
	if err != nil {
		return nil, err
	}
	boardID := col.BoardID
	if err := p.authorize(ctx, m.Actor, domain.RoleAdmin, boardID); err != nil {
		return nil, err
	}

	return &plan{
		boards: []uuid.UUID{boardID},
		exec: func(ctx context.Context, r domain.Repos, res *Result) error {
			if _, err := activeBoard(ctx, r, boardID); err != nil {
				return err
			}
			col, err := reloadColumn(ctx, r, in.ColumnID, boardID)
			if err != nil {
				return err
			}
			n, err := r.Cards().CountByColumn(ctx, col.ID)
			if err != nil {
				return err
			}
			if err := r.Cards().DeleteByColumn(ctx, col.ID); err != nil {
				return err
			}
			if err := r.Columns().Delete(ctx, col.ID); err != nil {
				return err
			}
			if err := record(ctx, r, res, &domain.Activity{
				Type:       domain.ActivityColumnDeleted,
				ActorID:    m.Actor,
				BoardID:    boardID,
				EntityType: "column",
				EntityID:   col.ID,
				Details:    map[string]any{"title": col.Title, "cardsDeleted": n},
			}); err != nil {
				return err
			}

			res.Column = col
			res.Events = append(res.Events, realtime.Event{
				BoardID: boardID,
				Name:    realtime.EventColumnDeleted,
				Data:    map[string]any{"columnId": col.ID, "boardId": boardID},
			})
			return nil
		},
	}, nil
}

func columnKeys(cols []*domain.Column) ([]uuid.UUID, []float64) {
	ids := make([]uuid.UUID, len(cols))
	keys := make([]float64, len(cols))
	for i, c := range cols {
		ids[i] = c.ID
		keys[i] = c.Position
	}
	return ids, keys
}
