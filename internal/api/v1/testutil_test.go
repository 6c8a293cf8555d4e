package v1_test

import (
	"context"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	v1 "github.com/AbhinayAmbati/kanbana/internal/api/v1"
	"github.com/AbhinayAmbati/kanbana/internal/auth"
	"github.com/AbhinayAmbati/kanbana/internal/domain"
	"github.com/AbhinayAmbati/kanbana/internal/pipeline"
	"github.com/AbhinayAmbati/kanbana/internal/realtime"
	"github.com/AbhinayAmbati/kanbana/internal/server/middleware"
	"github.com/AbhinayAmbati/kanbana/internal/store/memory"
)

// ---------------------------------------------------------------------------
// Context helpers: inject the caller into context for DoCtx
// ---------------------------------------------------------------------------

func userCtx(userID uuid.UUID) context.Context {
	return middleware.WithIdentity(context.Background(), auth.Identity{UserID: userID, Name: "tester"})
}

// ---------------------------------------------------------------------------
// Real stack over the memory store
// ---------------------------------------------------------------------------

type world struct {
	api   humatest.TestAPI
	store *memory.Store
	hub   *realtime.Hub
	reg   *realtime.Registry
	p     *pipeline.Pipeline

	owner, member, viewer, outsider uuid.UUID
	workspace                       *domain.Workspace
	board                           *domain.Board
	todo                            *domain.Column
}

func newWorld(t *testing.T) *world {
	t.Helper()
	ctx := context.Background()

	_, api := humatest.New(t)
	s := memory.New()
	hub := realtime.NewHub()
	p := pipeline.New(s, hub, pipeline.Options{})

	w := &world{
		api:      api,
		store:    s,
		hub:      hub,
		reg:      realtime.NewRegistry(hub),
		p:        p,
		owner:    uuid.New(),
		member:   uuid.New(),
		viewer:   uuid.New(),
		outsider: uuid.New(),
	}
	for _, id := range []uuid.UUID{w.owner, w.member, w.viewer, w.outsider} {
		require.NoError(t, s.Users().Create(ctx, &domain.User{ID: id, Name: id.String()[:8]}))
	}

	w.workspace = &domain.Workspace{Name: "Acme", OwnerID: w.owner}
	require.NoError(t, s.Workspaces().Create(ctx, w.workspace))

	res, err := p.Apply(ctx, pipeline.Mutation{
		Actor:   w.owner,
		Kind:    pipeline.KindBoardCreate,
		Payload: pipeline.BoardCreate{WorkspaceID: w.workspace.ID, Title: "Roadmap"},
	})
	require.NoError(t, err)
	w.board = res.Board

	for userID, role := range map[uuid.UUID]string{w.member: "member", w.viewer: "viewer"} {
		_, err := p.Apply(ctx, pipeline.Mutation{
			Actor:   w.owner,
			Kind:    pipeline.KindBoardMemberSet,
			BoardID: w.board.ID,
			Payload: pipeline.MemberSet{UserID: userID, Role: role},
		})
		require.NoError(t, err)
	}

	res, err = p.Apply(ctx, pipeline.Mutation{
		Actor:   w.owner,
		Kind:    pipeline.KindColumnCreate,
		BoardID: w.board.ID,
		Payload: pipeline.ColumnCreate{Title: "Todo"},
	})
	require.NoError(t, err)
	w.todo = res.Column

	v1.RegisterBoardRoutes(api, p, hub, w.reg)
	v1.RegisterColumnRoutes(api, p, w.reg)
	v1.RegisterCardRoutes(api, p, w.reg)
	v1.RegisterCommentRoutes(api, p, w.reg)
	return w
}

// ---------------------------------------------------------------------------
// Mock Boards
// ---------------------------------------------------------------------------

type mockBoards struct {
	applyFunc      func(ctx context.Context, m pipeline.Mutation) (*pipeline.Result, error)
	authorizeFunc  func(ctx context.Context, actor, boardID uuid.UUID, required domain.Role) (domain.Role, error)
	snapshotFunc   func(ctx context.Context, actor, boardID uuid.UUID) (*pipeline.Snapshot, error)
	activitiesFunc func(ctx context.Context, actor, boardID uuid.UUID, limit, offset int) ([]*domain.Activity, error)
	boardsFunc     func(ctx context.Context, actor uuid.UUID) ([]*domain.Board, error)
	commentsFunc   func(ctx context.Context, actor, cardID uuid.UUID) ([]*domain.Comment, error)
}

func (m *mockBoards) Apply(ctx context.Context, mu pipeline.Mutation) (*pipeline.Result, error) {
	return m.applyFunc(ctx, mu)
}

func (m *mockBoards) Authorize(ctx context.Context, actor, boardID uuid.UUID, required domain.Role) (domain.Role, error) {
	return m.authorizeFunc(ctx, actor, boardID, required)
}

func (m *mockBoards) Snapshot(ctx context.Context, actor, boardID uuid.UUID) (*pipeline.Snapshot, error) {
	return m.snapshotFunc(ctx, actor, boardID)
}

func (m *mockBoards) Activities(ctx context.Context, actor, boardID uuid.UUID, limit, offset int) ([]*domain.Activity, error) {
	return m.activitiesFunc(ctx, actor, boardID, limit, offset)
}

func (m *mockBoards) Boards(ctx context.Context, actor uuid.UUID) ([]*domain.Board, error) {
	return m.boardsFunc(ctx, actor)
}

func (m *mockBoards) Comments(ctx context.Context, actor, cardID uuid.UUID) ([]*domain.Comment, error) {
	return m.commentsFunc(ctx, actor, cardID)
}

type mockPresence struct {
	activeUsersFunc func(ctx context.Context, boardID uuid.UUID) ([]realtime.PresenceEntry, error)
}

func (m *mockPresence) ActiveUsers(ctx context.Context, boardID uuid.UUID) ([]realtime.PresenceEntry, error) {
	return m.activeUsersFunc(ctx, boardID)
}
