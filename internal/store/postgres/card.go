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

const cardFields = `id, board_id, column_id, title, description, position, priority,
	labels, assignees, due_date, created_by, created_at, updated_at`

type CardRepo struct {
	db querier
}

func NewCardRepo(db querier) *CardRepo {
	return &CardRepo{db: db}
}

func marshalCardLists(c *domain.Card) (labels, assignees []byte, err error) {
	if c.Labels == nil {
		c.Labels = []domain.Label{}
	}
	if c.Assignees == nil {
		c.Assignees = []uuid.UUID{}
	}
	if labels, err = json.Marshal(c.Labels); err != nil {
		return nil, nil, fmt.Errorf("marshal labels: %w", err)
	}
	if assignees, err = json.Marshal(c.Assignees); err != nil {
		return nil, nil, fmt.Errorf("marshal assignees: %w", err)
	}
	return labels, assignees, nil
}

func (r *CardRepo) Create(ctx context.Context, c *domain.Card) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Priority == "" {
		c.Priority = domain.PriorityMedium
	}
	labels, assignees, err := marshalCardLists(c)
	if err != nil {
		return fmt.Errorf("cardRepo.Create: %w", err)
	}

	err = r.db.QueryRow(ctx,
		`INSERT INTO cards (id, board_id, column_id, title, description, position, priority,
		                    labels, assignees, due_date, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING created_at, updated_at`,
		c.ID, c.BoardID, c.ColumnID, c.Title, c.Description, c.Position, c.Priority,
		labels, assignees, c.DueDate, c.CreatedBy,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("cardRepo.Create: %w", err)
	}

	return nil
}

func (r *CardRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	c, err := scanCard(r.db.QueryRow(ctx, `SELECT `+cardFields+` FROM cards WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("cardRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("cardRepo.GetByID: %w", err)
	}

	return c, nil
}

func (r *CardRepo) ListByColumn(ctx context.Context, columnID uuid.UUID) ([]*domain.Card, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+cardFields+` FROM cards WHERE column_id = $1 ORDER BY position, id`,
		columnID,
	)
	if err != nil {
		return nil, fmt.Errorf("cardRepo.ListByColumn: %w", err)
	}
	defer rows.Close()

	return scanCards(rows, "cardRepo.ListByColumn")
}

func (r *CardRepo) ListByBoard(ctx context.Context, boardID uuid.UUID) ([]*domain.Card, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+cardFields+` FROM cards WHERE board_id = $1 ORDER BY column_id, position, id`,
		boardID,
	)
	if err != nil {
		return nil, fmt.Errorf("cardRepo.ListByBoard: %w", err)
	}
	defer rows.Close()

	return scanCards(rows, "cardRepo.ListByBoard")
}

func (r *CardRepo) CountByColumn(ctx context.Context, columnID uuid.UUID) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM cards WHERE column_id = $1`, columnID).Scan(&n); err != nil {
		return 0, fmt.Errorf("cardRepo.CountByColumn: %w", err)
	}
	return n, nil
}

// Update writes every mutable field, including column, board and position.
func (r *CardRepo) Update(ctx context.Context, c *domain.Card) error {
	labels, assignees, err := marshalCardLists(c)
	if err != nil {
		return fmt.Errorf("cardRepo.Update: %w", err)
	}

	err = r.db.QueryRow(ctx,
		`UPDATE cards SET board_id = $1, column_id = $2, title = $3, description = $4, position = $5,
		        priority = $6, labels = $7, assignees = $8, due_date = $9, updated_at = now()
		 WHERE id = $10
		 RETURNING updated_at`,
		c.BoardID, c.ColumnID, c.Title, c.Description, c.Position,
		c.Priority, labels, assignees, c.DueDate, c.ID,
	).Scan(&c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("cardRepo.Update: %w", domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("cardRepo.Update: %w", err)
	}

	return nil
}

func (r *CardRepo) UpdatePosition(ctx context.Context, id uuid.UUID, position float64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE cards SET position = $1, updated_at = now() WHERE id = $2`,
		position, id,
	)
	if err != nil {
		return fmt.Errorf("cardRepo.UpdatePosition: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("cardRepo.UpdatePosition: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *CardRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM cards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("cardRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("cardRepo.Delete: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *CardRepo) DeleteByColumn(ctx context.Context, columnID uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM cards WHERE column_id = $1`, columnID); err != nil {
		return fmt.Errorf("cardRepo.DeleteByColumn: %w", err)
	}
	return nil
}

func scanCard(row pgx.Row) (*domain.Card, error) {
	var c domain.Card
	var labels, assignees []byte

	if err := row.Scan(
		&c.ID, &c.BoardID, &c.ColumnID, &c.Title, &c.Description, &c.Position, &c.Priority,
		&labels, &assignees, &c.DueDate, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(labels, &c.Labels); err != nil {
		return nil, fmt.Errorf("unmarshal labels: %w", err)
	}
	if err := json.Unmarshal(assignees, &c.Assignees); err != nil {
		return nil, fmt.Errorf("unmarshal assignees: %w", err)
	}

	return &c, nil
}

func scanCards(rows pgx.Rows, caller string) ([]*domain.Card, error) {
	cards := []*domain.Card{}
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", caller, err)
	}

	return cards, nil
}
