package pipeline

import (
	"context"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/AbhinayAmbati/kanbana/internal/domain"
	"github.com/AbhinayAmbati/kanbana/internal/realtime"
)

func (p *Pipeline) cardCreate(ctx context.Context, m Mutation, in CardCreate) (*plan, error) {
	title, err := cleanTitle("title", in.Title, domain.MaxCardTitleLen)
	if err != nil {
		return nil, err
	}
	priority := domain.PriorityMedium
	if in.Priority != "" {
		if priority, err = domain.ParsePriority(in.Priority); err != nil {
			return nil, err
		}
	}
	if err := checkLabels(in.Labels); err != nil {
		return nil, err
	}
	if err := checkIndex(in.Index); err != nil {
		return nil, err
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
			siblings, err := r.Cards().ListByColumn(ctx, col.ID)
			if err != nil {
				return err
			}
			if col.WIPLimit != nil && len(siblings) >= *col.WIPLimit {
				return invalidf("column %q is at its wip limit of %d", col.Title, *col.WIPLimit)
			}

			ids, keys := cardKeys(siblings)
			pl, err := place(ctx, ids, keys, indexOr(in.Index, len(siblings)), r.Cards().UpdatePosition)
			if err != nil {
				return err
			}

			card := &domain.Card{
				ID:          uuid.New(),
				BoardID:     boardID,
				ColumnID:    col.ID,
				Title:       title,
				Description: in.Description,
				Position:    pl.position,
				Priority:    priority,
				Labels:      nonNilLabels(in.Labels),
				Assignees:   nonNilIDs(in.Assignees),
				DueDate:     in.DueDate,
				CreatedBy:   m.Actor,
			}
			if err := r.Cards().Create(ctx, card); err != nil {
				return err
			}
			if err := record(ctx, r, res, &domain.Activity{
				Type:       domain.ActivityCardCreated,
				ActorID:    m.Actor,
				BoardID:    boardID,
				EntityType: "card",
				EntityID:   card.ID,
				Details:    map[string]any{"title": card.Title, "columnId": col.ID},
			}); err != nil {
				return err
			}

			res.Card = card
			data := map[string]any{"card": card}
			if len(pl.rewritten) > 0 {
				data["positions"] = pl.rewritten
			}
			res.Events = append(res.Events, realtime.Event{BoardID: boardID, Name: realtime.EventCardCreated, Data: data})
			return nil
		},
	}, nil
}

func (p *Pipeline) lookupCard(ctx context.Context, m Mutation, id uuid.UUID) (*domain.Card, error) {
	if err := checkID("card id", id); err != nil {
		return nil, err
	}
	card, err := p.store.Cards().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := scope(m, card.BoardID); err != nil {
		return nil, err
	}
	return card, nil
}

func reloadCard(ctx context.Context, r domain.Repos, id uuid.UUID, boards []uuid.UUID) (*domain.Card, error) {
	card, err := r.Cards().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(boards, card.BoardID) {
		return nil, invalidf("card %s moved to another board", id)
	}
	return card, nil
}

func (p *Pipeline) cardUpdate(ctx context.Context, m Mutation, in CardUpdate) (*plan, error) {
	var title string
	if in.Title != nil {
		t, err := cleanTitle("title", *in.Title, domain.MaxCardTitleLen)
		if err != nil {
			return nil, err
		}
		title = t
	}
	var priority domain.Priority
	if in.Priority != nil {
		pr, err := domain.ParsePriority(*in.Priority)
		if err != nil {
			return nil, err
		}
		priority = pr
	}
	if in.Labels != nil {
		if err := checkLabels(*in.Labels); err != nil {
			return nil, err
		}
	}
	if in.ClearDueDate && in.DueDate != nil {
		return nil, validationf("due date cannot be both set and cleared")
	}
	card, err := p.lookupCard(ctx, m, in.CardID)
	if err != nil {
		return nil, err
	}
	boardID := card.BoardID
	if err := p.authorize(ctx, m.Actor, domain.RoleMember, boardID); err != nil {
		return nil, err
	}

	return &plan{
		boards: []uuid.UUID{boardID},
		exec: func(ctx context.Context, r domain.Repos, res *Result) error {
			if _, err := activeBoard(ctx, r, boardID); err != nil {
				return err
			}
			card, err := reloadCard(ctx, r, in.CardID, []uuid.UUID{boardID})
			if err != nil {
				return err
			}

			// tracked holds audited changes; updates holds everything that
			// changed, for the broadcast.
			tracked := map[string]any{}
			updates := map[string]any{}
			change := func(field string, from, to any, audit bool) {
				updates[field] = to
				if audit {
					tracked[field] = map[string]any{"from": from, "to": to}
				}
			}

			if in.Title != nil && title != card.Title {
				change("title", card.Title, title, true)
				card.Title = title
			}
			if in.Description != nil && *in.Description != card.Description {
				change("description", card.Description, *in.Description, false)
				card.Description = *in.Description
			}
			if in.Priority != nil && priority != card.Priority {
				change("priority", card.Priority, priority, true)
				card.Priority = priority
			}
			if in.Labels != nil && !slices.Equal(*in.Labels, card.Labels) {
				labels := nonNilLabels(*in.Labels)
				change("labels", card.Labels, labels, true)
				card.Labels = labels
			}
			if in.Assignees != nil && !slices.Equal(*in.Assignees, card.Assignees) {
				assignees := nonNilIDs(*in.Assignees)
				change("assignees", card.Assignees, assignees, true)
				card.Assignees = assignees
			}
			if in.DueDate != nil && (card.DueDate == nil || !card.DueDate.Equal(*in.DueDate)) {
				change("dueDate", card.DueDate, *in.DueDate, true)
				due := *in.DueDate
				card.DueDate = &due
			}
			if in.ClearDueDate && card.DueDate != nil {
				change("dueDate", card.DueDate, nil, true)
				card.DueDate = nil
			}

			if err := r.Cards().Update(ctx, card); err != nil {
				return err
			}
			if len(tracked) > 0 {
				if err := record(ctx, r, res, &domain.Activity{
					Type:       domain.ActivityCardUpdated,
					ActorID:    m.Actor,
					BoardID:    boardID,
					EntityType: "card",
					EntityID:   card.ID,
					Details:    map[string]any{"changes": tracked},
				}); err != nil {
					return err
				}
			}

			res.Card = card
			res.Events = append(res.Events, realtime.Event{
				BoardID: boardID,
				Name:    realtime.EventCardUpdated,
				Data:    map[string]any{"cardId": card.ID, "updates": updates, "card": card},
			})
			return nil
		},
	}, nil
}

func (p *Pipeline) cardMove(ctx context.Context, m Mutation, in CardMove) (*plan, error) {
	if in.Index < 0 {
		return nil, validationf("index must not be negative")
	}
	if err := checkID("column id", in.ColumnID); err != nil {
		return nil, err
	}
	card, err := p.lookupCard(ctx, m, in.CardID)
	if err != nil {
		return nil, err
	}
	src := card.BoardID
	if err := p.authorize(ctx, m.Actor, domain.RoleMember, src); err != nil {
		return nil, err
	}
	dest, err := p.store.Columns().GetByID(ctx, in.ColumnID)
	if err != nil {
		return nil, err
	}
	dst := dest.BoardID
	boards := []uuid.UUID{src}
	if dst != src {
		if !p.opts.AllowCrossBoardMoves {
			return nil, invalidf("cannot move a card to another board")
		}
		if err := p.authorize(ctx, m.Actor, domain.RoleMember, dst); err != nil {
			return nil, err
		}
		boards = append(boards, dst)
	}

	return &plan{
		boards: boards,
		exec: func(ctx context.Context, r domain.Repos, res *Result) error {
			for _, b := range boards {
				if _, err := activeBoard(ctx, r, b); err != nil {
					return err
				}
			}
			card, err := reloadCard(ctx, r, in.CardID, boards)
			if err != nil {
				return err
			}
			dest, err := reloadColumn(ctx, r, in.ColumnID, dst)
			if err != nil {
				return err
			}
			if card.BoardID != dst && !p.opts.AllowCrossBoardMoves {
				return invalidf("cannot move a card to another board")
			}

			siblings, err := r.Cards().ListByColumn(ctx, dest.ID)
			if err != nil {
				return err
			}
			others := make([]*domain.Card, 0, len(siblings))
			for _, c := range siblings {
				if c.ID != card.ID {
					others = append(others, c)
				}
			}
			if dest.ID != card.ColumnID && dest.WIPLimit != nil && len(others) >= *dest.WIPLimit {
				return invalidf("column %q is at its wip limit of %d", dest.Title, *dest.WIPLimit)
			}

			ids, keys := cardKeys(others)
			pl, err := place(ctx, ids, keys, in.Index, r.Cards().UpdatePosition)
			if err != nil {
				return err
			}

			fromColumn, fromBoard, fromPosition := card.ColumnID, card.BoardID, card.Position
			card.ColumnID = dest.ID
			card.BoardID = dest.BoardID
			card.Position = pl.position
			if err := r.Cards().Update(ctx, card); err != nil {
				return err
			}

			details := map[string]any{
				"fromColumn":   fromColumn,
				"toColumn":     dest.ID,
				"fromPosition": fromPosition,
				"toPosition":   card.Position,
			}
			if fromBoard != card.BoardID {
				details["fromBoard"] = fromBoard
			}
			if err := record(ctx, r, res, &domain.Activity{
				Type:       domain.ActivityCardMoved,
				ActorID:    m.Actor,
				BoardID:    card.BoardID,
				EntityType: "card",
				EntityID:   card.ID,
				Details:    details,
			}); err != nil {
				return err
			}

			res.Card = card
			data := map[string]any{
				"cardId":      card.ID,
				"columnId":    dest.ID,
				"position":    card.Position,
				"oldColumnId": fromColumn,
			}
			if len(pl.rewritten) > 0 {
				data["positions"] = pl.rewritten
			}
			res.Events = append(res.Events, realtime.Event{BoardID: card.BoardID, Name: realtime.EventCardMoved, Data: data})
			if fromBoard != card.BoardID {
				res.Events = append(res.Events, realtime.Event{
					BoardID: fromBoard,
					Name:    realtime.EventCardDeleted,
					Data:    map[string]any{"cardId": card.ID, "columnId": fromColumn},
				})
			}
			return nil
		},
	}, nil
}

func (p *Pipeline) cardDelete(ctx context.Context, m Mutation, in CardDelete) (*plan, error) {
	card, err := p.lookupCard(ctx, m, in.CardID)
	if err != nil {
		return nil, err
	}
	boardID := card.BoardID
	if err := p.authorize(ctx, m.Actor, domain.RoleAdmin, boardID); err != nil {
		return nil, err
	}

	return &plan{
		boards: []uuid.UUID{boardID},
		exec: func(ctx context.Context, r domain.Repos, res *Result) error {
			if _, err := activeBoard(ctx, r, boardID); err != nil {
				return err
			}
			card, err := reloadCard(ctx, r, in.CardID, []uuid.UUID{boardID})
			if err != nil {
				return err
			}
			if err := r.Cards().Delete(ctx, card.ID); err != nil {
				return err
			}
			if err := record(ctx, r, res, &domain.Activity{
				Type:       domain.ActivityCardDeleted,
				ActorID:    m.Actor,
				BoardID:    boardID,
				EntityType: "card",
				EntityID:   card.ID,
				Details:    map[string]any{"title": card.Title, "columnId": card.ColumnID},
			}); err != nil {
				return err
			}

			res.Card = card
			res.Events = append(res.Events, realtime.Event{
				BoardID: boardID,
				Name:    realtime.EventCardDeleted,
				Data:    map[string]any{"cardId": card.ID, "columnId": card.ColumnID},
			})
			return nil
		},
	}, nil
}

func cardKeys(cards []*domain.Card) ([]uuid.UUID, []float64) {
	ids := make([]uuid.UUID, len(cards))
	keys := make([]float64, len(cards))
	for i, c := range cards {
		ids[i] = c.ID
		keys[i] = c.Position
	}
	return ids, keys
}

func nonNilLabels(in []domain.Label) []domain.Label {
	out := make([]domain.Label, 0, len(in))
	for _, l := range in {
		l.Name = strings.TrimSpace(l.Name)
		out = append(out, l)
	}
	return out
}

func nonNilIDs(in []uuid.UUID) []uuid.UUID {
	if in == nil {
		return []uuid.UUID{}
	}
	return slices.Clone(in)
}
