package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/AbhinayAmbati/kanbana/internal/domain"
)

// loadMembers fetches member rows for every id in ids from table, keyed by
// the owning resource id.
func loadMembers(ctx context.Context, db querier, query string, ids []uuid.UUID, caller string) (map[uuid.UUID][]domain.Member, error) {
	out := make(map[uuid.UUID][]domain.Member, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("%s: members: %w", caller, err)
	}
	defer rows.Close()

	return scanMembers(rows, out, caller)
}

func scanMembers(rows pgx.Rows, out map[uuid.UUID][]domain.Member, caller string) (map[uuid.UUID][]domain.Member, error) {
	for rows.Next() {
		var owner uuid.UUID
		var m domain.Member
		if err := rows.Scan(&owner, &m.UserID, &m.Role, &m.AddedAt); err != nil {
			return nil, fmt.Errorf("%s: scan member: %w", caller, err)
		}
		out[owner] = append(out[owner], m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: members rows: %w", caller, err)
	}
	return out, nil
}
