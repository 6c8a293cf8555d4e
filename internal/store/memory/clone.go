package memory

import (
	"time"

	"github.com/google/uuid"

	"github.com/AbhinayAmbati/kanbana/internal/domain"
)

func cloneMembers(in []domain.Member) []domain.Member {
	if in == nil {
		return nil
	}
	return append([]domain.Member(nil), in...)
}

func cloneBoard(b *domain.Board) *domain.Board {
	cp := *b
	cp.Members = cloneMembers(b.Members)
	return &cp
}

func cloneWorkspace(w *domain.Workspace) *domain.Workspace {
	cp := *w
	cp.Members = cloneMembers(w.Members)
	return &cp
}

func cloneColumn(c *domain.Column) *domain.Column {
	cp := *c
	if c.WIPLimit != nil {
		n := *c.WIPLimit
		cp.WIPLimit = &n
	}
	return &cp
}

func cloneCard(c *domain.Card) *domain.Card {
	cp := *c
	if c.Labels != nil {
		cp.Labels = append([]domain.Label(nil), c.Labels...)
	}
	if c.Assignees != nil {
		cp.Assignees = append([]uuid.UUID(nil), c.Assignees...)
	}
	if c.DueDate != nil {
		d := *c.DueDate
		cp.DueDate = &d
	}
	return &cp
}

func cloneComment(c *domain.Comment) *domain.Comment {
	cp := *c
	if c.Mentions != nil {
		cp.Mentions = append([]uuid.UUID(nil), c.Mentions...)
	}
	if c.EditedAt != nil {
		t := *c.EditedAt
		cp.EditedAt = &t
	}
	return &cp
}

func cloneActivity(a *domain.Activity) *domain.Activity {
	cp := *a
	if a.Details != nil {
		cp.Details = make(map[string]any, len(a.Details))
		for k, v := range a.Details {
			cp.Details[k] = v
		}
	}
	return &cp
}

func now() time.Time {
	return time.Now().UTC()
}
