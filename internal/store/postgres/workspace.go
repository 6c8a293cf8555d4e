package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/AbhinayAmbati/kanbana/internal/domain"
)

const workspaceMembersQuery = `SELECT workspace_id, user_id, role, added_at
	FROM workspace_members WHERE workspace_id = ANY($1) ORDER BY added_at`

type WorkspaceRepo struct {
	db querier
}

func NewWorkspaceRepo(db querier) *WorkspaceRepo {
	return &WorkspaceRepo{db: db}
}

func (r *WorkspaceRepo) Create(ctx context.Context, w *domain.Workspace) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO workspaces (id, name, owner_id, created_at) VALUES ($1, $2, $3, $4)`,
		w.ID, w.Name, w.OwnerID, w.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("workspaceRepo.Create: %w", err)
	}

	for _, m := range w.Members {
		if m.AddedAt.IsZero() {
			m.AddedAt = w.CreatedAt
		}
		if _, err := r.db.Exec(ctx,
			`INSERT INTO workspace_members (workspace_id, user_id, role, added_at) VALUES ($1, $2, $3, $4)`,
			w.ID, m.UserID, m.Role, m.AddedAt,
		); err != nil {
			return fmt.Errorf("workspaceRepo.Create: member %s: %w", m.UserID, err)
		}
	}

	return nil
}

func (r *WorkspaceRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Workspace, error) {
	var w domain.Workspace

	err := r.db.QueryRow(ctx,
		`SELECT id, name, owner_id, created_at FROM workspaces WHERE id = $1`,
		id,
	).Scan(&w.ID, &w.Name, &w.OwnerID, &w.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("workspaceRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("workspaceRepo.GetByID: %w", err)
	}

	members, err := loadMembers(ctx, r.db, workspaceMembersQuery, []uuid.UUID{id}, "workspaceRepo.GetByID")
	if err != nil {
		return nil, err
	}
	w.Members = members[id]

	return &w, nil
}
