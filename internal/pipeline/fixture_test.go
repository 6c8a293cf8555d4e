package pipeline_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/AbhinayAmbati/kanbana/internal/domain"
	"github.com/AbhinayAmbati/kanbana/internal/pipeline"
	"github.com/AbhinayAmbati/kanbana/internal/realtime"
	"github.com/AbhinayAmbati/kanbana/internal/store/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (r *recordingPublisher) Publish(_ context.Context, ev realtime.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingPublisher) Events() []realtime.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]realtime.Event(nil), r.events...)
}

func (r *recordingPublisher) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

type fixture struct {
	store *memory.Store
	pub   *recordingPublisher
	p     *pipeline.Pipeline

	owner, member, viewer, outsider uuid.UUID
	workspace                       *domain.Workspace
	board                           *domain.Board
	todo, doing, done               *domain.Column
}

func newFixture(t *testing.T, opts pipeline.Options) *fixture {
	t.Helper()
	return newFixtureWith(t, memory.New(), nil, opts)
}

// newFixtureWith seeds s and builds a pipeline over wrap(s), or s itself
// when wrap is nil.
func newFixtureWith(t *testing.T, s *memory.Store, wrap func(domain.Store) domain.Store, opts pipeline.Options) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{
		store:    s,
		pub:      &recordingPublisher{},
		owner:    uuid.New(),
		member:   uuid.New(),
		viewer:   uuid.New(),
		outsider: uuid.New(),
	}
	for i, id := range []uuid.UUID{f.owner, f.member, f.viewer, f.outsider} {
		require.NoError(t, s.Users().Create(ctx, &domain.User{ID: id, Name: []string{"owner", "member", "viewer", "outsider"}[i]}))
	}

	f.workspace = &domain.Workspace{
		Name:    "Acme",
		OwnerID: f.owner,
		Members: []domain.Member{{UserID: f.member, Role: domain.RoleMember}, {UserID: f.viewer, Role: domain.RoleViewer}},
	}
	require.NoError(t, s.Workspaces().Create(ctx, f.workspace))

	f.board = &domain.Board{
		WorkspaceID: f.workspace.ID,
		OwnerID:     f.owner,
		Title:       "Launch",
		Members: []domain.Member{
			{UserID: f.member, Role: domain.RoleMember},
			{UserID: f.viewer, Role: domain.RoleViewer},
		},
	}
	require.NoError(t, s.Boards().Create(ctx, f.board))

	cols := make([]*domain.Column, 3)
	for i, title := range []string{"Todo", "Doing", "Done"} {
		cols[i] = &domain.Column{BoardID: f.board.ID, Title: title, Position: float64(i+1) * 1000}
		require.NoError(t, s.Columns().Create(ctx, cols[i]))
	}
	f.todo, f.doing, f.done = cols[0], cols[1], cols[2]

	var store domain.Store = s
	if wrap != nil {
		store = wrap(s)
	}
	f.p = pipeline.New(store, f.pub, opts)
	return f
}

func (f *fixture) createCard(t *testing.T, actor uuid.UUID, column uuid.UUID, title string) *domain.Card {
	t.Helper()
	res, err := f.p.Apply(context.Background(), pipeline.Mutation{
		Actor:   actor,
		Kind:    pipeline.KindCardCreate,
		BoardID: f.board.ID,
		Payload: pipeline.CardCreate{ColumnID: column, Title: title},
	})
	require.NoError(t, err)
	return res.Card
}

func (f *fixture) activities(t *testing.T) []*domain.Activity {
	t.Helper()
	acts, err := f.store.Activities().ListByBoard(context.Background(), f.board.ID, 1000, 0)
	require.NoError(t, err)
	return acts
}

func (f *fixture) cardsIn(t *testing.T, column uuid.UUID) []*domain.Card {
	t.Helper()
	cards, err := f.store.Cards().ListByColumn(context.Background(), column)
	require.NoError(t, err)
	return cards
}

func intPtr(n int) *int { return &n }
func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool { return &b }
