package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/AbhinayAmbati/kanbana/internal/domain"
	"github.com/AbhinayAmbati/kanbana/internal/realtime"
)

func cleanComment(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", validationf("comment content is required")
	}
	if utf8.RuneCountInString(content) > domain.MaxCommentLen {
		return "", validationf("comment content must be at most %d characters", domain.MaxCommentLen)
	}
	return content, nil
}

// checkMentions rejects mentions of users without a role on b and drops
// duplicates.
func checkMentions(b *domain.Board, mentions []uuid.UUID) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(mentions))
	seen := make(map[uuid.UUID]struct{}, len(mentions))
	for _, id := range mentions {
		if _, ok := seen[id]; ok {
			continue
		}
		if _, ok := b.RoleOf(id); !ok {
			return nil, validationf("mentioned user %s is not a board member", id)
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

func (p *Pipeline) lookupComment(ctx context.Context, m Mutation, id uuid.UUID) (*domain.Comment, error) {
	if err := checkID("comment id", id); err != nil {
		return nil, err
	}
	c, err := p.store.Comments().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := scope(m, c.BoardID); err != nil {
		return nil, err
	}
	return c, nil
}

func reloadComment(ctx context.Context, r domain.Repos, id, boardID uuid.UUID) (*domain.Comment, error) {
	c, err := r.Comments().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.BoardID != boardID {
		return nil, invalidf("comment %s moved to another board", id)
	}
	return c, nil
}

func (p *Pipeline) commentCreate(ctx context.Context, m Mutation, in CommentCreate) (*plan, error) {
	content, err := cleanComment(in.Content)
	if err != nil {
		return nil, err
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
			board, err := activeBoard(ctx, r, boardID)
			if err != nil {
				return err
			}
			card, err := reloadCard(ctx, r, in.CardID, []uuid.UUID{boardID})
			if err != nil {
				return err
			}
			mentions, err := checkMentions(board, in.Mentions)
			if err != nil {
				return err
			}

			comment := &domain.Comment{
				BoardID:  boardID,
				CardID:   card.ID,
				AuthorID: m.Actor,
				Content:  content,
				Mentions: mentions,
			}
			if err := r.Comments().Create(ctx, comment); err != nil {
				return err
			}
			if err := record(ctx, r, res, &domain.Activity{
				Type:       domain.ActivityCommentAdded,
				ActorID:    m.Actor,
				BoardID:    boardID,
				EntityType: "comment",
				EntityID:   comment.ID,
				Details:    map[string]any{"cardId": card.ID, "cardTitle": card.Title},
			}); err != nil {
				return err
			}

			res.Comment = comment
			res.Events = append(res.Events, realtime.Event{
				BoardID: boardID,
				Name:    realtime.EventCommentAdded,
				Data:    map[string]any{"cardId": card.ID, "comment": comment},
			})
			return nil
		},
	}, nil
}

func (p *Pipeline) commentUpdate(ctx context.Context, m Mutation, in CommentUpdate) (*plan, error) {
	content, err := cleanComment(in.Content)
	if err != nil {
		return nil, err
	}
	c, err := p.lookupComment(ctx, m, in.CommentID)
	if err != nil {
		return nil, err
	}
	boardID := c.BoardID
	if err := p.authorize(ctx, m.Actor, domain.RoleMember, boardID); err != nil {
		return nil, err
	}
	if c.AuthorID != m.Actor {
		return nil, fmt.Errorf("%w: only the author can edit a comment", domain.ErrForbidden)
	}

	return &plan{
		boards: []uuid.UUID{boardID},
		exec: func(ctx context.Context, r domain.Repos, res *Result) error {
			board, err := activeBoard(ctx, r, boardID)
			if err != nil {
				return err
			}
			c, err := reloadComment(ctx, r, in.CommentID, boardID)
			if err != nil {
				return err
			}
			mentions, err := checkMentions(board, in.Mentions)
			if err != nil {
				return err
			}

			now := time.Now().UTC()
			c.Content = content
			c.Mentions = mentions
			c.Edited = true
			c.EditedAt = &now
			if err := r.Comments().Update(ctx, c); err != nil {
				return err
			}
			if err := record(ctx, r, res, &domain.Activity{
				Type:       domain.ActivityCommentUpdated,
				ActorID:    m.Actor,
				BoardID:    boardID,
				EntityType: "comment",
				EntityID:   c.ID,
				Details:    map[string]any{"cardId": c.CardID},
			}); err != nil {
				return err
			}

			res.Comment = c
			res.Events = append(res.Events, realtime.Event{
				BoardID: boardID,
				Name:    realtime.EventCommentUpdated,
				Data:    map[string]any{"cardId": c.CardID, "comment": c},
			})
			return nil
		},
	}, nil
}

// commentDelete lets the author or a board admin remove a comment.
func (p *Pipeline) commentDelete(ctx context.Context, m Mutation, in CommentDelete) (*plan, error) {
	c, err := p.lookupComment(ctx, m, in.CommentID)
	if err != nil {
		return nil, err
	}
	boardID := c.BoardID
	required := domain.RoleMember
	if c.AuthorID != m.Actor {
		required = domain.RoleAdmin
	}
	if err := p.authorize(ctx, m.Actor, required, boardID); err != nil {
		return nil, err
	}

	return &plan{
		boards: []uuid.UUID{boardID},
		exec: func(ctx context.Context, r domain.Repos, res *Result) error {
			if _, err := activeBoard(ctx, r, boardID); err != nil {
				return err
			}
			c, err := reloadComment(ctx, r, in.CommentID, boardID)
			if err != nil {
				return err
			}
			if err := r.Comments().Delete(ctx, c.ID); err != nil {
				return err
			}
			if err := record(ctx, r, res, &domain.Activity{
				Type:       domain.ActivityCommentDeleted,
				ActorID:    m.Actor,
				BoardID:    boardID,
				EntityType: "comment",
				EntityID:   c.ID,
				Details:    map[string]any{"cardId": c.CardID},
			}); err != nil {
				return err
			}

			res.Comment = c
			res.Events = append(res.Events, realtime.Event{
				BoardID: boardID,
				Name:    realtime.EventCommentDeleted,
				Data:    map[string]any{"cardId": c.CardID, "commentId": c.ID},
			})
			return nil
		},
	}, nil
}
