package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/AbhinayAmbati/kanbana/internal/domain"
)

const boardMembersQuery = `SELECT board_id, user_id, role, added_at
	FROM board_members WHERE board_id = ANY($1) ORDER BY added_at`

type BoardRepo struct {
	db querier
}

func NewBoardRepo(db querier) *BoardRepo {
	return &BoardRepo{db: db}
}

func (r *BoardRepo) Create(ctx context.Context, b *domain.Board) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}

	err := r.db.QueryRow(ctx,
		`INSERT INTO boards (id, workspace_id, owner_id, title, description, archived)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at, updated_at`,
		b.ID, b.WorkspaceID, b.OwnerID, b.Title, b.Description, b.Archived,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("boardRepo.Create: %w", err)
	}

	for i := range b.Members {
		m := &b.Members[i]
		if err := r.db.QueryRow(ctx,
			`INSERT INTO board_members (board_id, user_id, role) VALUES ($1, $2, $3) RETURNING added_at`,
			b.ID, m.UserID, m.Role,
		).Scan(&m.AddedAt); err != nil {
			return fmt.Errorf("boardRepo.Create: member %s: %w", m.UserID, err)
		}
	}

	return nil
}

func (r *BoardRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Board, error) {
	var b domain.Board

	err := r.db.QueryRow(ctx,
		`SELECT id, workspace_id, owner_id, title, description, archived, created_at, updated_at
		 FROM boards WHERE id = $1`,
		id,
	).Scan(&b.ID, &b.WorkspaceID, &b.OwnerID, &b.Title, &b.Description, &b.Archived, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("boardRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("boardRepo.GetByID: %w", err)
	}

	members, err := loadMembers(ctx, r.db, boardMembersQuery, []uuid.UUID{id}, "boardRepo.GetByID")
	if err != nil {
		return nil, err
	}
	b.Members = members[id]

	return &b, nil
}

// Update writes title, description and archived. Membership changes go
// through SetMember and RemoveMember.
func (r *BoardRepo) Update(ctx context.Context, b *domain.Board) error {
	err := r.db.QueryRow(ctx,
		`UPDATE boards SET title = $1, description = $2, archived = $3, updated_at = now()
		 WHERE id = $4
		 RETURNING updated_at`,
		b.Title, b.Description, b.Archived, b.ID,
	).Scan(&b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("boardRepo.Update: %w", domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("boardRepo.Update: %w", err)
	}

	return nil
}

func (r *BoardRepo) touch(ctx context.Context, boardID uuid.UUID, caller string) error {
	tag, err := r.db.Exec(ctx, `UPDATE boards SET updated_at = now() WHERE id = $1`, boardID)
	if err != nil {
		return fmt.Errorf("%s: %w", caller, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", caller, domain.ErrNotFound)
	}
	return nil
}

func (r *BoardRepo) SetMember(ctx context.Context, boardID uuid.UUID, m domain.Member) error {
	if err := r.touch(ctx, boardID, "boardRepo.SetMember"); err != nil {
		return err
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO board_members (board_id, user_id, role) VALUES ($1, $2, $3)
		 ON CONFLICT (board_id, user_id) DO UPDATE SET role = EXCLUDED.role`,
		boardID, m.UserID, m.Role,
	)
	if err != nil {
		return fmt.Errorf("boardRepo.SetMember: %w", err)
	}

	return nil
}

func (r *BoardRepo) RemoveMember(ctx context.Context, boardID, userID uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM board_members WHERE board_id = $1 AND user_id = $2`,
		boardID, userID,
	)
	if err != nil {
		return fmt.Errorf("boardRepo.RemoveMember: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("boardRepo.RemoveMember: %w", domain.ErrNotFound)
	}

	return r.touch(ctx, boardID, "boardRepo.RemoveMember")
}

func (r *BoardRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Board, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, workspace_id, owner_id, title, description, archived, created_at, updated_at
		 FROM boards
		 WHERE owner_id = $1
		    OR id IN (SELECT board_id FROM board_members WHERE user_id = $1)
		 ORDER BY created_at DESC
		 LIMIT 1000`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("boardRepo.ListForUser: %w", err)
	}
	defer rows.Close()

	var boards []*domain.Board
	var ids []uuid.UUID
	for rows.Next() {
		var b domain.Board
		if err := rows.Scan(&b.ID, &b.WorkspaceID, &b.OwnerID, &b.Title, &b.Description, &b.Archived, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("boardRepo.ListForUser: scan: %w", err)
		}
		boards = append(boards, &b)
		ids = append(ids, b.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("boardRepo.ListForUser: rows: %w", err)
	}
	rows.Close()

	members, err := loadMembers(ctx, r.db, boardMembersQuery, ids, "boardRepo.ListForUser")
	if err != nil {
		return nil, err
	}
	for _, b := range boards {
		b.Members = members[b.ID]
	}

	return boards, nil
}
