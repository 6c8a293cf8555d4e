//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/AbhinayAmbati/kanbana/internal/domain"
)

// setupStore starts a Postgres container, migrates it and returns a Store.
func setupStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("kanbana"),
		tcpostgres.WithUsername("kanbana"),
		tcpostgres.WithPassword("kanbana"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := ctr.Terminate(ctx); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, MigrateUp(dsn))

	s, err := New(ctx, dsn, 8)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

type seed struct {
	owner  *domain.User
	member *domain.User
	ws     *domain.Workspace
	board  *domain.Board
	col    *domain.Column
}

func seedBoard(t *testing.T, s *Store) seed {
	t.Helper()
	ctx := context.Background()

	owner := &domain.User{Name: "Olive", Email: uuid.NewString() + "@example.com"}
	member := &domain.User{Name: "Milo", Email: uuid.NewString() + "@example.com"}
	require.NoError(t, s.Users().Create(ctx, owner))
	require.NoError(t, s.Users().Create(ctx, member))

	ws := &domain.Workspace{Name: "Acme", OwnerID: owner.ID}
	require.NoError(t, s.Workspaces().Create(ctx, ws))

	board := &domain.Board{
		WorkspaceID: ws.ID,
		OwnerID:     owner.ID,
		Title:       "Roadmap",
		Members:     []domain.Member{{UserID: member.ID, Role: domain.RoleMember}},
	}
	require.NoError(t, s.Boards().Create(ctx, board))

	col := &domain.Column{BoardID: board.ID, Title: "Todo", Position: 1000}
	require.NoError(t, s.Columns().Create(ctx, col))

	return seed{owner: owner, member: member, ws: ws, board: board, col: col}
}

func TestStore_BoardRoundTrip(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	sd := seedBoard(t, s)

	got, err := s.Boards().GetByID(ctx, sd.board.ID)
	require.NoError(t, err)
	assert.Equal(t, "Roadmap", got.Title)
	require.Len(t, got.Members, 1)
	role, ok := got.RoleOf(sd.member.ID)
	assert.True(t, ok)
	assert.Equal(t, domain.RoleMember, role)

	require.NoError(t, s.Boards().SetMember(ctx, sd.board.ID, domain.Member{UserID: sd.member.ID, Role: domain.RoleAdmin}))
	got, err = s.Boards().GetByID(ctx, sd.board.ID)
	require.NoError(t, err)
	role, _ = got.RoleOf(sd.member.ID)
	assert.Equal(t, domain.RoleAdmin, role)

	boards, err := s.Boards().ListForUser(ctx, sd.member.ID)
	require.NoError(t, err)
	require.Len(t, boards, 1)

	require.NoError(t, s.Boards().RemoveMember(ctx, sd.board.ID, sd.member.ID))
	_, ok = mustBoard(t, s, sd.board.ID).RoleOf(sd.member.ID)
	assert.False(t, ok)

	_, err = s.Boards().GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func mustBoard(t *testing.T, s *Store, id uuid.UUID) *domain.Board {
	t.Helper()
	b, err := s.Boards().GetByID(context.Background(), id)
	require.NoError(t, err)
	return b
}

func TestStore_CardsOrderedByPosition(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	sd := seedBoard(t, s)

	due := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	for i, pos := range []float64{2000, 500, 1000} {
		c := &domain.Card{
			BoardID:   sd.board.ID,
			ColumnID:  sd.col.ID,
			Title:     []string{"c", "a", "b"}[i],
			Position:  pos,
			Labels:    []domain.Label{{Name: "bug", Color: "#f00"}},
			Assignees: []uuid.UUID{sd.member.ID},
			DueDate:   &due,
			CreatedBy: sd.owner.ID,
		}
		require.NoError(t, s.Cards().Create(ctx, c))
	}

	cards, err := s.Cards().ListByColumn(ctx, sd.col.ID)
	require.NoError(t, err)
	require.Len(t, cards, 3)
	assert.Equal(t, "a", cards[0].Title)
	assert.Equal(t, "b", cards[1].Title)
	assert.Equal(t, "c", cards[2].Title)
	assert.Equal(t, domain.PriorityMedium, cards[0].Priority)
	assert.Equal(t, []domain.Label{{Name: "bug", Color: "#f00"}}, cards[0].Labels)
	assert.Equal(t, []uuid.UUID{sd.member.ID}, cards[0].Assignees)
	require.NotNil(t, cards[0].DueDate)
	assert.True(t, due.Equal(*cards[0].DueDate))

	n, err := s.Cards().CountByColumn(ctx, sd.col.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, s.Cards().UpdatePosition(ctx, cards[2].ID, 1))
	cards, err = s.Cards().ListByColumn(ctx, sd.col.ID)
	require.NoError(t, err)
	assert.Equal(t, "c", cards[0].Title)

	require.NoError(t, s.Cards().DeleteByColumn(ctx, sd.col.ID))
	n, err = s.Cards().CountByColumn(ctx, sd.col.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_CardCannotCrossBoardsWithoutColumn(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	sd := seedBoard(t, s)

	other := &domain.Board{WorkspaceID: sd.ws.ID, OwnerID: sd.owner.ID, Title: "Other"}
	require.NoError(t, s.Boards().Create(ctx, other))

	// Board and column disagree: the composite foreign key rejects it.
	c := &domain.Card{BoardID: other.ID, ColumnID: sd.col.ID, Title: "x", Position: 1000, CreatedBy: sd.owner.ID}
	assert.Error(t, s.Cards().Create(ctx, c))
}

func TestStore_InBoardTxRollsBack(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	sd := seedBoard(t, s)

	boom := errors.New("boom")
	err := s.InBoardTx(ctx, []uuid.UUID{sd.board.ID}, func(r domain.Repos) error {
		col := &domain.Column{BoardID: sd.board.ID, Title: "Doing", Position: 2000}
		if err := r.Columns().Create(ctx, col); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	cols, err := s.Columns().ListByBoard(ctx, sd.board.ID)
	require.NoError(t, err)
	assert.Len(t, cols, 1)
}

func TestStore_InBoardTxCommits(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	sd := seedBoard(t, s)

	err := s.InBoardTx(ctx, []uuid.UUID{sd.board.ID}, func(r domain.Repos) error {
		col := &domain.Column{BoardID: sd.board.ID, Title: "Doing", Position: 500}
		if err := r.Columns().Create(ctx, col); err != nil {
			return err
		}
		return r.Activities().Append(ctx, &domain.Activity{
			Type:       domain.ActivityColumnCreated,
			ActorID:    sd.owner.ID,
			BoardID:    sd.board.ID,
			EntityType: "column",
			EntityID:   col.ID,
			Details:    map[string]any{"title": "Doing"},
		})
	})
	require.NoError(t, err)

	cols, err := s.Columns().ListByBoard(ctx, sd.board.ID)
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Equal(t, "Doing", cols[0].Title)

	acts, err := s.Activities().ListByBoard(ctx, sd.board.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, acts, 1)
	assert.Equal(t, "Doing", acts[0].Details["title"])
}

func TestStore_ActivitiesAreAppendOnly(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	sd := seedBoard(t, s)

	a := &domain.Activity{
		Type:       domain.ActivityBoardCreated,
		ActorID:    sd.owner.ID,
		BoardID:    sd.board.ID,
		EntityType: "board",
		EntityID:   sd.board.ID,
	}
	require.NoError(t, s.Activities().Append(ctx, a))

	_, err := s.pool.Exec(ctx, `UPDATE activities SET type = 'tampered' WHERE id = $1`, a.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "append-only")

	_, err = s.pool.Exec(ctx, `DELETE FROM activities WHERE id = $1`, a.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "append-only")
}

func TestStore_CommentsFollowTheirCard(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	sd := seedBoard(t, s)

	card := &domain.Card{BoardID: sd.board.ID, ColumnID: sd.col.ID, Title: "X", Position: 1000, CreatedBy: sd.member.ID}
	require.NoError(t, s.Cards().Create(ctx, card))

	c := &domain.Comment{BoardID: sd.board.ID, CardID: card.ID, AuthorID: sd.member.ID, Content: "first", Mentions: []uuid.UUID{sd.owner.ID}}
	require.NoError(t, s.Comments().Create(ctx, c))
	require.NoError(t, s.Comments().Create(ctx, &domain.Comment{BoardID: sd.board.ID, CardID: card.ID, AuthorID: sd.owner.ID, Content: "second"}))

	edited := time.Now().UTC()
	c.Content, c.Edited, c.EditedAt = "first, edited", true, &edited
	require.NoError(t, s.Comments().Update(ctx, c))

	got, err := s.Comments().ListByCard(ctx, card.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "first, edited", got[0].Content)
	assert.True(t, got[0].Edited)
	assert.Equal(t, []uuid.UUID{sd.owner.ID}, got[0].Mentions)
	assert.Equal(t, []uuid.UUID{}, got[1].Mentions)

	err = s.Comments().Create(ctx, &domain.Comment{BoardID: sd.board.ID, CardID: card.ID, AuthorID: sd.owner.ID, Content: ""})
	require.Error(t, err, "empty content violates the check constraint")

	require.NoError(t, s.Cards().Delete(ctx, card.ID))
	_, err = s.Comments().GetByID(ctx, c.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_ConcurrentBoardTxSerialize(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	sd := seedBoard(t, s)

	const writers = 8
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		go func() {
			errs <- s.InBoardTx(ctx, []uuid.UUID{sd.board.ID}, func(r domain.Repos) error {
				n, err := r.Cards().CountByColumn(ctx, sd.col.ID)
				if err != nil {
					return err
				}
				return r.Cards().Create(ctx, &domain.Card{
					BoardID:   sd.board.ID,
					ColumnID:  sd.col.ID,
					Title:     "card",
					Position:  float64(n+1) * 1000,
					CreatedBy: sd.owner.ID,
				})
			})
		}()
	}
	for i := 0; i < writers; i++ {
		require.NoError(t, <-errs)
	}

	cards, err := s.Cards().ListByColumn(ctx, sd.col.ID)
	require.NoError(t, err)
	require.Len(t, cards, writers)
	for i, c := range cards {
		assert.Equal(t, float64(i+1)*1000, c.Position, "advisory lock serializes count+insert")
	}
}
