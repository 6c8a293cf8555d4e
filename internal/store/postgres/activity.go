package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/AbhinayAmbati/kanbana/internal/domain"
)

type ActivityRepo struct {
	db querier
}

func NewActivityRepo(db querier) *ActivityRepo {
	return &ActivityRepo{db: db}
}

func (r *ActivityRepo) Append(ctx context.Context, a *domain.Activity) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if a.Details == nil {
		a.Details = map[string]any{}
	}

	details, err := json.Marshal(a.Details)
	if err != nil {
		return fmt.Errorf("activityRepo.Append: marshal details: %w", err)
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO activities (id, type, actor_id, board_id, entity_type, entity_id, details, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.Type, a.ActorID, a.BoardID, a.EntityType, a.EntityID, details, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("activityRepo.Append: %w", err)
	}

	return nil
}

func (r *ActivityRepo) ListByBoard(ctx context.Context, boardID uuid.UUID, limit, offset int) ([]*domain.Activity, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, type, actor_id, board_id, entity_type, entity_id, details, created_at
		 FROM activities WHERE board_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2 OFFSET $3`,
		boardID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("activityRepo.ListByBoard: %w", err)
	}
	defer rows.Close()

	return scanActivities(rows, "activityRepo.ListByBoard")
}

func scanActivities(rows pgx.Rows, caller string) ([]*domain.Activity, error) {
	entries := []*domain.Activity{}
	for rows.Next() {
		var a domain.Activity
		var details []byte

		if err := rows.Scan(&a.ID, &a.Type, &a.ActorID, &a.BoardID, &a.EntityType, &a.EntityID, &details, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &a.Details); err != nil {
				return nil, fmt.Errorf("%s: unmarshal details: %w", caller, err)
			}
		}
		entries = append(entries, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", caller, err)
	}

	return entries, nil
}
