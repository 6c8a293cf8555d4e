package pipeline

import (
	"context"

	"github.com/google/uuid"

	"github.com/AbhinayAmbati/kanbana/internal/position"
)

// placement is where an inserted element lands, plus any sibling keys that
// had to be rewritten.
type placement struct {
	position float64
	// rewritten maps sibling id to its new key. Empty unless the list was
	// renormalized.
	rewritten map[string]float64
}

// place allocates a key for an insert at index among siblings (ordered ids
// and their keys) and persists any renormalized sibling keys through write.
func place(ctx context.Context, ids []uuid.UUID, keys []float64, index int,
	write func(ctx context.Context, id uuid.UUID, pos float64) error,
) (placement, error) {
	pl := position.Place(keys, index)
	out := placement{position: pl.Position}
	if !pl.Renormalized {
		return out, nil
	}

	out.rewritten = make(map[string]float64, len(ids))
	for i, id := range ids {
		if pl.Siblings[i] == keys[i] {
			continue
		}
		if err := write(ctx, id, pl.Siblings[i]); err != nil {
			return placement{}, err
		}
		out.rewritten[id.String()] = pl.Siblings[i]
	}
	return out, nil
}

func indexOr(idx *int, fallback int) int {
	if idx == nil {
		return fallback
	}
	return *idx
}
