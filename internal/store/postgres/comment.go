package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/AbhinayAmbati/kanbana/internal/domain"
)

const commentFields = `id, board_id, card_id, author_id, content, mentions, edited, edited_at, created_at`

type CommentRepo struct {
	db querier
}

func NewCommentRepo(db querier) *CommentRepo {
	return &CommentRepo{db: db}
}

func (r *CommentRepo) Create(ctx context.Context, c *domain.Comment) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Mentions == nil {
		c.Mentions = []uuid.UUID{}
	}
	mentions, err := json.Marshal(c.Mentions)
	if err != nil {
		return fmt.Errorf("commentRepo.Create: marshal mentions: %w", err)
	}

	err = r.db.QueryRow(ctx,
		`INSERT INTO comments (id, board_id, card_id, author_id, content, mentions)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at`,
		c.ID, c.BoardID, c.CardID, c.AuthorID, c.Content, mentions,
	).Scan(&c.CreatedAt)
	if err != nil {
		return fmt.Errorf("commentRepo.Create: %w", err)
	}

	return nil
}

func (r *CommentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Comment, error) {
	c, err := scanComment(r.db.QueryRow(ctx, `SELECT `+commentFields+` FROM comments WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("commentRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("commentRepo.GetByID: %w", err)
	}

	return c, nil
}

func (r *CommentRepo) ListByCard(ctx context.Context, cardID uuid.UUID) ([]*domain.Comment, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+commentFields+` FROM comments WHERE card_id = $1 ORDER BY created_at, id`,
		cardID,
	)
	if err != nil {
		return nil, fmt.Errorf("commentRepo.ListByCard: %w", err)
	}
	defer rows.Close()

	comments := []*domain.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("commentRepo.ListByCard: scan: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("commentRepo.ListByCard: rows: %w", err)
	}

	return comments, nil
}

// Update writes the content, mentions and edit marker.
func (r *CommentRepo) Update(ctx context.Context, c *domain.Comment) error {
	if c.Mentions == nil {
		c.Mentions = []uuid.UUID{}
	}
	mentions, err := json.Marshal(c.Mentions)
	if err != nil {
		return fmt.Errorf("commentRepo.Update: marshal mentions: %w", err)
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE comments SET content = $1, mentions = $2, edited = $3, edited_at = $4 WHERE id = $5`,
		c.Content, mentions, c.Edited, c.EditedAt, c.ID,
	)
	if err != nil {
		return fmt.Errorf("commentRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("commentRepo.Update: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *CommentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("commentRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("commentRepo.Delete: %w", domain.ErrNotFound)
	}

	return nil
}

func scanComment(row pgx.Row) (*domain.Comment, error) {
	var c domain.Comment
	var mentions []byte

	if err := row.Scan(
		&c.ID, &c.BoardID, &c.CardID, &c.AuthorID, &c.Content, &mentions, &c.Edited, &c.EditedAt, &c.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(mentions, &c.Mentions); err != nil {
		return nil, fmt.Errorf("unmarshal mentions: %w", err)
	}

	return &c, nil
}
