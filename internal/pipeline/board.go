package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/AbhinayAmbati/kanbana/internal/domain"
	"github.com/AbhinayAmbati/kanbana/internal/realtime"
)

func (p *Pipeline) boardCreate(ctx context.Context, m Mutation, in BoardCreate) (*plan, error) {
	if err := checkID("workspace id", in.WorkspaceID); err != nil {
		return nil, err
	}
	title, err := cleanTitle("title", in.Title, domain.MaxBoardTitleLen)
	if err != nil {
		return nil, err
	}
	if err := checkLen("description", in.Description, domain.MaxBoardDescriptionLen); err != nil {
		return nil, err
	}
	if _, err := p.workspaces.Authorize(ctx, m.Actor, in.WorkspaceID, domain.RoleMember); err != nil {
		return nil, err
	}

	id := uuid.New()
	return &plan{
		boards: []uuid.UUID{id},
		exec: func(ctx context.Context, r domain.Repos, res *Result) error {
			b := &domain.Board{
				ID:          id,
				WorkspaceID: in.WorkspaceID,
				OwnerID:     m.Actor,
				Title:       title,
				Description: in.Description,
				Members:     []domain.Member{{UserID: m.Actor, Role: domain.RoleAdmin, AddedAt: time.Now().UTC()}},
			}
			if err := r.Boards().Create(ctx, b); err != nil {
				return err
			}
			if err := record(ctx, r, res, &domain.Activity{
				Type:       domain.ActivityBoardCreated,
				ActorID:    m.Actor,
				BoardID:    b.ID,
				EntityType: "board",
				EntityID:   b.ID,
				Details:    map[string]any{"title": b.Title, "workspaceId": b.WorkspaceID},
			}); err != nil {
				return err
			}
			res.Board = b
			res.Events = append(res.Events, realtime.Event{
				BoardID: b.ID,
				Name:    realtime.EventBoardCreated,
				Data:    map[string]any{"board": b},
			})
			return nil
		},
	}, nil
}

func (p *Pipeline) boardUpdate(ctx context.Context, m Mutation, in BoardUpdate) (*plan, error) {
	if err := checkID("board id", m.BoardID); err != nil {
		return nil, err
	}
	var title string
	if in.Title != nil {
		t, err := cleanTitle("title", *in.Title, domain.MaxBoardTitleLen)
		if err != nil {
			return nil, err
		}
		title = t
	}
	if in.Description != nil {
		if err := checkLen("description", *in.Description, domain.MaxBoardDescriptionLen); err != nil {
			return nil, err
		}
	}
	if err := p.authorize(ctx, m.Actor, domain.RoleAdmin, m.BoardID); err != nil {
		return nil, err
	}

	return &plan{
		boards: []uuid.UUID{m.BoardID},
		exec: func(ctx context.Context, r domain.Repos, res *Result) error {
			b, err := r.Boards().GetByID(ctx, m.BoardID)
			if err != nil {
				return err
			}
			unarchive := in.Archived != nil && !*in.Archived
			if b.Archived && !unarchive {
				return invalidf("board %s is archived", b.ID)
			}

			changed := map[string]any{}
			if in.Title != nil && title != b.Title {
				changed["title"] = map[string]any{"from": b.Title, "to": title}
				b.Title = title
			}
			if in.Description != nil && *in.Description != b.Description {
				changed["description"] = true
				b.Description = *in.Description
			}
			if in.Archived != nil && *in.Archived != b.Archived {
				changed["archived"] = map[string]any{"from": b.Archived, "to": *in.Archived}
				b.Archived = *in.Archived
			}

			if err := r.Boards().Update(ctx, b); err != nil {
				return err
			}
			res.Board = b

			typ := domain.ActivityBoardUpdated
			name := realtime.EventBoardUpdated
			archiving := in.Archived != nil && *in.Archived
			if archiving {
				typ = domain.ActivityBoardArchived
				name = realtime.EventBoardArchived
			}
			if len(changed) > 0 {
				if err := record(ctx, r, res, &domain.Activity{
					Type:       typ,
					ActorID:    m.Actor,
					BoardID:    b.ID,
					EntityType: "board",
					EntityID:   b.ID,
					Details:    map[string]any{"changes": changed},
				}); err != nil {
					return err
				}
			}
			res.Events = append(res.Events, realtime.Event{
				BoardID:   b.ID,
				Name:      name,
				Data:      map[string]any{"board": b},
				RevokeAll: archiving,
			})
			return nil
		},
	}, nil
}

// boardArchive is the soft delete of a board.
func (p *Pipeline) boardArchive(ctx context.Context, m Mutation) (*plan, error) {
	archived := true
	return p.boardUpdate(ctx, m, BoardUpdate{Archived: &archived})
}

func (p *Pipeline) memberSet(ctx context.Context, m Mutation, in MemberSet) (*plan, error) {
	if err := checkID("board id", m.BoardID); err != nil {
		return nil, err
	}
	if err := checkID("user id", in.UserID); err != nil {
		return nil, err
	}
	role, err := domain.ParseRole(in.Role)
	if err != nil {
		return nil, err
	}
	if err := p.authorize(ctx, m.Actor, domain.RoleAdmin, m.BoardID); err != nil {
		return nil, err
	}
	if _, err := p.store.Users().GetByID(ctx, in.UserID); err != nil {
		return nil, err
	}

	return &plan{
		boards: []uuid.UUID{m.BoardID},
		exec: func(ctx context.Context, r domain.Repos, res *Result) error {
			b, err := activeBoard(ctx, r, m.BoardID)
			if err != nil {
				return err
			}
			if b.OwnerID == in.UserID {
				return invalidf("the board owner is always an admin")
			}
			if err := r.Boards().SetMember(ctx, b.ID, domain.Member{UserID: in.UserID, Role: role, AddedAt: time.Now().UTC()}); err != nil {
				return err
			}
			if err := record(ctx, r, res, &domain.Activity{
				Type:       domain.ActivityMemberAdded,
				ActorID:    m.Actor,
				BoardID:    b.ID,
				EntityType: "board",
				EntityID:   b.ID,
				Details:    map[string]any{"userId": in.UserID, "role": role},
			}); err != nil {
				return err
			}
			updated, err := r.Boards().GetByID(ctx, b.ID)
			if err != nil {
				return err
			}
			res.Board = updated
			res.Events = append(res.Events, realtime.Event{
				BoardID: b.ID,
				Name:    realtime.EventMemberUpdated,
				Data:    map[string]any{"userId": in.UserID, "role": role},
			})
			return nil
		},
	}, nil
}

func (p *Pipeline) memberRemove(ctx context.Context, m Mutation, in MemberRemove) (*plan, error) {
	if err := checkID("board id", m.BoardID); err != nil {
		return nil, err
	}
	if err := checkID("user id", in.UserID); err != nil {
		return nil, err
	}
	if err := p.authorize(ctx, m.Actor, domain.RoleAdmin, m.BoardID); err != nil {
		return nil, err
	}

	return &plan{
		boards: []uuid.UUID{m.BoardID},
		exec: func(ctx context.Context, r domain.Repos, res *Result) error {
			b, err := activeBoard(ctx, r, m.BoardID)
			if err != nil {
				return err
			}
			if b.OwnerID == in.UserID {
				return invalidf("the board owner cannot be removed")
			}
			if err := r.Boards().RemoveMember(ctx, b.ID, in.UserID); err != nil {
				return err
			}
			if err := record(ctx, r, res, &domain.Activity{
				Type:       domain.ActivityMemberRemoved,
				ActorID:    m.Actor,
				BoardID:    b.ID,
				EntityType: "board",
				EntityID:   b.ID,
				Details:    map[string]any{"userId": in.UserID},
			}); err != nil {
				return err
			}
			updated, err := r.Boards().GetByID(ctx, b.ID)
			if err != nil {
				return err
			}
			res.Board = updated
			res.Events = append(res.Events, realtime.Event{
				BoardID: b.ID,
				Name:    realtime.EventMemberRemoved,
				Data:    map[string]any{"userId": in.UserID},
				Revoke:  in.UserID,
			})
			return nil
		},
	}, nil
}
