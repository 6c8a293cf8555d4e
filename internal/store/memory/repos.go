package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/AbhinayAmbati/kanbana/internal/domain"
)

type userRepo struct{ access }

func (r *userRepo) Create(_ context.Context, u *domain.User) error {
	defer r.write()()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now()
	}
	cp := *u
	r.s.st.users[u.ID] = &cp
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	defer r.read()()
	u, ok := r.s.st.users[id]
	if !ok {
		return nil, fmt.Errorf("userRepo.GetByID: %w", domain.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

type workspaceRepo struct{ access }

func (r *workspaceRepo) Create(_ context.Context, w *domain.Workspace) error {
	defer r.write()()
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = now()
	}
	r.s.st.workspaces[w.ID] = cloneWorkspace(w)
	return nil
}

func (r *workspaceRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Workspace, error) {
	defer r.read()()
	w, ok := r.s.st.workspaces[id]
	if !ok {
		return nil, fmt.Errorf("workspaceRepo.GetByID: %w", domain.ErrNotFound)
	}
	return cloneWorkspace(w), nil
}

type boardRepo struct{ access }

func (r *boardRepo) Create(_ context.Context, b *domain.Board) error {
	defer r.write()()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if _, ok := r.s.st.boards[b.ID]; ok {
		return fmt.Errorf("boardRepo.Create: duplicate id %s", b.ID)
	}
	t := now()
	b.CreatedAt, b.UpdatedAt = t, t
	r.s.st.boards[b.ID] = cloneBoard(b)
	return nil
}

func (r *boardRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Board, error) {
	defer r.read()()
	b, ok := r.s.st.boards[id]
	if !ok {
		return nil, fmt.Errorf("boardRepo.GetByID: %w", domain.ErrNotFound)
	}
	return cloneBoard(b), nil
}

func (r *boardRepo) Update(_ context.Context, b *domain.Board) error {
	defer r.write()()
	old, ok := r.s.st.boards[b.ID]
	if !ok {
		return fmt.Errorf("boardRepo.Update: %w", domain.ErrNotFound)
	}
	b.CreatedAt = old.CreatedAt
	b.UpdatedAt = now()
	b.Members = cloneMembers(old.Members)
	r.s.st.boards[b.ID] = cloneBoard(b)
	return nil
}

func (r *boardRepo) SetMember(_ context.Context, boardID uuid.UUID, m domain.Member) error {
	defer r.write()()
	old, ok := r.s.st.boards[boardID]
	if !ok {
		return fmt.Errorf("boardRepo.SetMember: %w", domain.ErrNotFound)
	}
	b := cloneBoard(old)
	replaced := false
	for i := range b.Members {
		if b.Members[i].UserID == m.UserID {
			b.Members[i].Role = m.Role
			replaced = true
		}
	}
	if !replaced {
		if m.AddedAt.IsZero() {
			m.AddedAt = now()
		}
		b.Members = append(b.Members, m)
	}
	b.UpdatedAt = now()
	r.s.st.boards[boardID] = b
	return nil
}

func (r *boardRepo) RemoveMember(_ context.Context, boardID, userID uuid.UUID) error {
	defer r.write()()
	old, ok := r.s.st.boards[boardID]
	if !ok {
		return fmt.Errorf("boardRepo.RemoveMember: %w", domain.ErrNotFound)
	}
	b := cloneBoard(old)
	kept := b.Members[:0]
	for _, m := range b.Members {
		if m.UserID != userID {
			kept = append(kept, m)
		}
	}
	if len(kept) == len(old.Members) {
		return fmt.Errorf("boardRepo.RemoveMember: %w", domain.ErrNotFound)
	}
	b.Members = kept
	b.UpdatedAt = now()
	r.s.st.boards[boardID] = b
	return nil
}

func (r *boardRepo) ListForUser(_ context.Context, userID uuid.UUID) ([]*domain.Board, error) {
	defer r.read()()
	var out []*domain.Board
	for _, b := range r.s.st.boards {
		if _, ok := b.RoleOf(userID); ok {
			out = append(out, cloneBoard(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type columnRepo struct{ access }

func (r *columnRepo) Create(_ context.Context, c *domain.Column) error {
	defer r.write()()
	if _, ok := r.s.st.boards[c.BoardID]; !ok {
		return fmt.Errorf("columnRepo.Create: board %s does not exist", c.BoardID)
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	t := now()
	c.CreatedAt, c.UpdatedAt = t, t
	r.s.st.columns[c.ID] = cloneColumn(c)
	return nil
}

func (r *columnRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Column, error) {
	defer r.read()()
	c, ok := r.s.st.columns[id]
	if !ok {
		return nil, fmt.Errorf("columnRepo.GetByID: %w", domain.ErrNotFound)
	}
	return cloneColumn(c), nil
}

func (r *columnRepo) ListByBoard(_ context.Context, boardID uuid.UUID) ([]*domain.Column, error) {
	defer r.read()()
	out := []*domain.Column{}
	for _, c := range r.s.st.columns {
		if c.BoardID == boardID {
			out = append(out, cloneColumn(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (r *columnRepo) Update(_ context.Context, c *domain.Column) error {
	defer r.write()()
	old, ok := r.s.st.columns[c.ID]
	if !ok {
		return fmt.Errorf("columnRepo.Update: %w", domain.ErrNotFound)
	}
	c.BoardID = old.BoardID
	c.CreatedAt = old.CreatedAt
	c.UpdatedAt = now()
	r.s.st.columns[c.ID] = cloneColumn(c)
	return nil
}

func (r *columnRepo) UpdatePosition(_ context.Context, id uuid.UUID, position float64) error {
	defer r.write()()
	old, ok := r.s.st.columns[id]
	if !ok {
		return fmt.Errorf("columnRepo.UpdatePosition: %w", domain.ErrNotFound)
	}
	c := cloneColumn(old)
	c.Position = position
	c.UpdatedAt = now()
	r.s.st.columns[id] = c
	return nil
}

func (r *columnRepo) Delete(_ context.Context, id uuid.UUID) error {
	defer r.write()()
	if _, ok := r.s.st.columns[id]; !ok {
		return fmt.Errorf("columnRepo.Delete: %w", domain.ErrNotFound)
	}
	for cid, card := range r.s.st.cards {
		if card.ColumnID == id {
			return fmt.Errorf("columnRepo.Delete: column %s still has card %s", id, cid)
		}
	}
	delete(r.s.st.columns, id)
	return nil
}

type cardRepo struct{ access }

// checkColumn enforces that the card's column exists and lives on the
// card's board.
func (r *cardRepo) checkColumn(c *domain.Card) error {
	col, ok := r.s.st.columns[c.ColumnID]
	if !ok {
		return fmt.Errorf("column %s does not exist", c.ColumnID)
	}
	if col.BoardID != c.BoardID {
		return fmt.Errorf("card board %s does not match column board %s", c.BoardID, col.BoardID)
	}
	return nil
}

func (r *cardRepo) Create(_ context.Context, c *domain.Card) error {
	defer r.write()()
	if err := r.checkColumn(c); err != nil {
		return fmt.Errorf("cardRepo.Create: %w", err)
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	t := now()
	c.CreatedAt, c.UpdatedAt = t, t
	r.s.st.cards[c.ID] = cloneCard(c)
	return nil
}

func (r *cardRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Card, error) {
	defer r.read()()
	c, ok := r.s.st.cards[id]
	if !ok {
		return nil, fmt.Errorf("cardRepo.GetByID: %w", domain.ErrNotFound)
	}
	return cloneCard(c), nil
}

func (r *cardRepo) list(match func(*domain.Card) bool) []*domain.Card {
	out := []*domain.Card{}
	for _, c := range r.s.st.cards {
		if match(c) {
			out = append(out, cloneCard(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func (r *cardRepo) ListByColumn(_ context.Context, columnID uuid.UUID) ([]*domain.Card, error) {
	defer r.read()()
	return r.list(func(c *domain.Card) bool { return c.ColumnID == columnID }), nil
}

func (r *cardRepo) ListByBoard(_ context.Context, boardID uuid.UUID) ([]*domain.Card, error) {
	defer r.read()()
	return r.list(func(c *domain.Card) bool { return c.BoardID == boardID }), nil
}

func (r *cardRepo) CountByColumn(_ context.Context, columnID uuid.UUID) (int, error) {
	defer r.read()()
	n := 0
	for _, c := range r.s.st.cards {
		if c.ColumnID == columnID {
			n++
		}
	}
	return n, nil
}

func (r *cardRepo) Update(_ context.Context, c *domain.Card) error {
	defer r.write()()
	old, ok := r.s.st.cards[c.ID]
	if !ok {
		return fmt.Errorf("cardRepo.Update: %w", domain.ErrNotFound)
	}
	if err := r.checkColumn(c); err != nil {
		return fmt.Errorf("cardRepo.Update: %w", err)
	}
	c.CreatedAt = old.CreatedAt
	c.CreatedBy = old.CreatedBy
	c.UpdatedAt = now()
	r.s.st.cards[c.ID] = cloneCard(c)
	return nil
}

func (r *cardRepo) UpdatePosition(_ context.Context, id uuid.UUID, position float64) error {
	defer r.write()()
	old, ok := r.s.st.cards[id]
	if !ok {
		return fmt.Errorf("cardRepo.UpdatePosition: %w", domain.ErrNotFound)
	}
	c := cloneCard(old)
	c.Position = position
	c.UpdatedAt = now()
	r.s.st.cards[id] = c
	return nil
}

func (r *cardRepo) Delete(_ context.Context, id uuid.UUID) error {
	defer r.write()()
	if _, ok := r.s.st.cards[id]; !ok {
		return fmt.Errorf("cardRepo.Delete: %w", domain.ErrNotFound)
	}
	delete(r.s.st.cards, id)
	r.s.st.dropComments(func(c *domain.Comment) bool { return c.CardID == id })
	return nil
}

func (r *cardRepo) DeleteByColumn(_ context.Context, columnID uuid.UUID) error {
	defer r.write()()
	gone := map[uuid.UUID]bool{}
	for id, c := range r.s.st.cards {
		if c.ColumnID == columnID {
			delete(r.s.st.cards, id)
			gone[id] = true
		}
	}
	r.s.st.dropComments(func(c *domain.Comment) bool { return gone[c.CardID] })
	return nil
}

type commentRepo struct{ access }

// checkCard enforces the comment's card reference. Callers hold the lock.
func (r *commentRepo) checkCard(c *domain.Comment) error {
	card, ok := r.s.st.cards[c.CardID]
	if !ok {
		return fmt.Errorf("card %s: %w", c.CardID, domain.ErrNotFound)
	}
	if card.BoardID != c.BoardID {
		return fmt.Errorf("card %s is not on board %s: %w", c.CardID, c.BoardID, domain.ErrInvalidOperation)
	}
	return nil
}

func (r *commentRepo) Create(_ context.Context, c *domain.Comment) error {
	defer r.write()()
	if err := r.checkCard(c); err != nil {
		return fmt.Errorf("commentRepo.Create: %w", err)
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Mentions == nil {
		c.Mentions = []uuid.UUID{}
	}
	// Creation times are strictly increasing per card so listing order
	// matches insertion order.
	c.CreatedAt = now()
	for _, other := range r.s.st.comments {
		if other.CardID == c.CardID && !c.CreatedAt.After(other.CreatedAt) {
			c.CreatedAt = other.CreatedAt.Add(time.Nanosecond)
		}
	}
	r.s.st.comments[c.ID] = cloneComment(c)
	return nil
}

func (r *commentRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Comment, error) {
	defer r.read()()
	c, ok := r.s.st.comments[id]
	if !ok {
		return nil, fmt.Errorf("commentRepo.GetByID: %w", domain.ErrNotFound)
	}
	return cloneComment(c), nil
}

func (r *commentRepo) ListByCard(_ context.Context, cardID uuid.UUID) ([]*domain.Comment, error) {
	defer r.read()()
	out := []*domain.Comment{}
	for _, c := range r.s.st.comments {
		if c.CardID == cardID {
			out = append(out, cloneComment(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (r *commentRepo) Update(_ context.Context, c *domain.Comment) error {
	defer r.write()()
	old, ok := r.s.st.comments[c.ID]
	if !ok {
		return fmt.Errorf("commentRepo.Update: %w", domain.ErrNotFound)
	}
	cp := cloneComment(c)
	cp.BoardID, cp.CardID, cp.AuthorID, cp.CreatedAt = old.BoardID, old.CardID, old.AuthorID, old.CreatedAt
	r.s.st.comments[c.ID] = cp
	return nil
}

func (r *commentRepo) Delete(_ context.Context, id uuid.UUID) error {
	defer r.write()()
	if _, ok := r.s.st.comments[id]; !ok {
		return fmt.Errorf("commentRepo.Delete: %w", domain.ErrNotFound)
	}
	delete(r.s.st.comments, id)
	return nil
}

type activityRepo struct{ access }

func (r *activityRepo) Append(_ context.Context, a *domain.Activity) error {
	defer r.write()()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now()
	}
	r.s.st.activities = append(r.s.st.activities, cloneActivity(a))
	return nil
}

// ListByBoard returns the board's activities newest first.
func (r *activityRepo) ListByBoard(_ context.Context, boardID uuid.UUID, limit, offset int) ([]*domain.Activity, error) {
	defer r.read()()
	out := []*domain.Activity{}
	skipped := 0
	for i := len(r.s.st.activities) - 1; i >= 0; i-- {
		a := r.s.st.activities[i]
		if a.BoardID != boardID {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, cloneActivity(a))
	}
	return out, nil
}
