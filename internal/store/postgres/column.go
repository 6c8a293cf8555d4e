package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/AbhinayAmbati/kanbana/internal/domain"
)

const columnFields = `id, board_id, title, position, wip_limit, color, created_at, updated_at`

type ColumnRepo struct {
	db querier
}

func NewColumnRepo(db querier) *ColumnRepo {
	return &ColumnRepo{db: db}
}

func (r *ColumnRepo) Create(ctx context.Context, c *domain.Column) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Color == "" {
		c.Color = domain.DefaultColumnColor
	}

	err := r.db.QueryRow(ctx,
		`INSERT INTO columns (id, board_id, title, position, wip_limit, color)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at, updated_at`,
		c.ID, c.BoardID, c.Title, c.Position, c.WIPLimit, c.Color,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("columnRepo.Create: %w", err)
	}

	return nil
}

func (r *ColumnRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Column, error) {
	c, err := scanColumn(r.db.QueryRow(ctx, `SELECT `+columnFields+` FROM columns WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("columnRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("columnRepo.GetByID: %w", err)
	}

	return c, nil
}

func (r *ColumnRepo) ListByBoard(ctx context.Context, boardID uuid.UUID) ([]*domain.Column, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+columnFields+` FROM columns WHERE board_id = $1 ORDER BY position, id`,
		boardID,
	)
	if err != nil {
		return nil, fmt.Errorf("columnRepo.ListByBoard: %w", err)
	}
	defer rows.Close()

	cols := []*domain.Column{}
	for rows.Next() {
		c, err := scanColumn(rows)
		if err != nil {
			return nil, fmt.Errorf("columnRepo.ListByBoard: scan: %w", err)
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("columnRepo.ListByBoard: rows: %w", err)
	}

	return cols, nil
}

func (r *ColumnRepo) Update(ctx context.Context, c *domain.Column) error {
	err := r.db.QueryRow(ctx,
		`UPDATE columns SET title = $1, wip_limit = $2, color = $3, updated_at = now()
		 WHERE id = $4
		 RETURNING updated_at`,
		c.Title, c.WIPLimit, c.Color, c.ID,
	).Scan(&c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("columnRepo.Update: %w", domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("columnRepo.Update: %w", err)
	}

	return nil
}

func (r *ColumnRepo) UpdatePosition(ctx context.Context, id uuid.UUID, position float64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE columns SET position = $1, updated_at = now() WHERE id = $2`,
		position, id,
	)
	if err != nil {
		return fmt.Errorf("columnRepo.UpdatePosition: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("columnRepo.UpdatePosition: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *ColumnRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM columns WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("columnRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("columnRepo.Delete: %w", domain.ErrNotFound)
	}

	return nil
}

func scanColumn(row pgx.Row) (*domain.Column, error) {
	var c domain.Column
	if err := row.Scan(&c.ID, &c.BoardID, &c.Title, &c.Position, &c.WIPLimit, &c.Color, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
