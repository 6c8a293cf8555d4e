// Package pipeline applies board mutations. Each accepted mutation is
// authorized, validated, written in one transaction together with its
// activity record and then broadcast to the board's room.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/AbhinayAmbati/kanbana/internal/authz"
	"github.com/AbhinayAmbati/kanbana/internal/domain"
	"github.com/AbhinayAmbati/kanbana/internal/realtime"
)

// DefaultTimeout bounds the locked section of a mutation.
const DefaultTimeout = 10 * time.Second

// Publisher delivers events to board rooms.
type Publisher interface {
	Publish(ctx context.Context, ev realtime.Event) error
}

type Options struct {
	// Timeout bounds lock wait, transaction and broadcast of one mutation.
	Timeout time.Duration
	// AllowCrossBoardMoves lets a card move to a column on another board.
	AllowCrossBoardMoves bool
}

// Pipeline is the single entry point for state changes.
type Pipeline struct {
	store      domain.Store
	publisher  Publisher
	boards     *authz.Gate
	workspaces *authz.Gate
	locks      *boardLocks
	opts       Options
}

func New(store domain.Store, publisher Publisher, opts Options) *Pipeline {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Pipeline{
		store:      store,
		publisher:  publisher,
		boards:     authz.NewGate(authz.BoardResolver(store.Boards())),
		workspaces: authz.NewGate(authz.WorkspaceResolver(store.Workspaces())),
		locks:      newBoardLocks(),
		opts:       opts,
	}
}

// plan is a prepared mutation: authorized and statically valid, waiting to
// run under the locks of boards.
type plan struct {
	boards []uuid.UUID
	exec   func(ctx context.Context, r domain.Repos, res *Result) error
}

// Apply runs m to completion. Authorization and validation failures return
// before any lock is taken. Once the mutation is accepted, cancellation of
// ctx no longer aborts it.
func (p *Pipeline) Apply(ctx context.Context, m Mutation) (*Result, error) {
	if m.Actor == uuid.Nil {
		return nil, fmt.Errorf("pipeline.Apply: %w", domain.ErrUnauthorized)
	}

	pl, err := p.prepare(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("pipeline.Apply %s: %w", m.Kind, classify(err))
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.opts.Timeout)
	defer cancel()

	release, err := p.locks.LockAll(ctx, pl.boards)
	if err != nil {
		return nil, fmt.Errorf("pipeline.Apply %s: %w: %w", m.Kind, domain.ErrStorage, err)
	}
	defer release()

	res := &Result{}
	err = p.store.InBoardTx(ctx, pl.boards, func(r domain.Repos) error {
		res = &Result{}
		return pl.exec(ctx, r, res)
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline.Apply %s: %w", m.Kind, classify(err))
	}

	for i := range res.Events {
		res.Events[i].Exclude = m.Origin
		if err := p.publisher.Publish(ctx, res.Events[i]); err != nil {
			// The write is committed; clients catch up on their next fetch.
			log.Error().Err(err).
				Str("board_id", res.Events[i].BoardID.String()).
				Str("event", res.Events[i].Name).
				Msg("publish event")
		}
	}

	log.Debug().
		Str("kind", string(m.Kind)).
		Str("actor", m.Actor.String()).
		Int("events", len(res.Events)).
		Msg("mutation applied")

	return res, nil
}

func (p *Pipeline) prepare(ctx context.Context, m Mutation) (*plan, error) {
	switch in := m.Payload.(type) {
	case BoardCreate:
		return p.expect(m, KindBoardCreate, func() (*plan, error) { return p.boardCreate(ctx, m, in) })
	case BoardUpdate:
		return p.expect(m, KindBoardUpdate, func() (*plan, error) { return p.boardUpdate(ctx, m, in) })
	case BoardArchive:
		return p.expect(m, KindBoardArchive, func() (*plan, error) { return p.boardArchive(ctx, m) })
	case MemberSet:
		return p.expect(m, KindBoardMemberSet, func() (*plan, error) { return p.memberSet(ctx, m, in) })
	case MemberRemove:
		return p.expect(m, KindBoardMemberRemove, func() (*plan, error) { return p.memberRemove(ctx, m, in) })
	case ColumnCreate:
		return p.expect(m, KindColumnCreate, func() (*plan, error) { return p.columnCreate(ctx, m, in) })
	case ColumnUpdate:
		return p.expect(m, KindColumnUpdate, func() (*plan, error) { return p.columnUpdate(ctx, m, in) })
	case ColumnMove:
		return p.expect(m, KindColumnMove, func() (*plan, error) { return p.columnMove(ctx, m, in) })
	case ColumnDelete:
		return p.expect(m, KindColumnDelete, func() (*plan, error) { return p.columnDelete(ctx, m, in) })
	case CardCreate:
		return p.expect(m, KindCardCreate, func() (*plan, error) { return p.cardCreate(ctx, m, in) })
	case CardUpdate:
		return p.expect(m, KindCardUpdate, func() (*plan, error) { return p.cardUpdate(ctx, m, in) })
	case CardMove:
		return p.expect(m, KindCardMove, func() (*plan, error) { return p.cardMove(ctx, m, in) })
	case CardDelete:
		return p.expect(m, KindCardDelete, func() (*plan, error) { return p.cardDelete(ctx, m, in) })
	case CommentCreate:
		return p.expect(m, KindCommentCreate, func() (*plan, error) { return p.commentCreate(ctx, m, in) })
	case CommentUpdate:
		return p.expect(m, KindCommentUpdate, func() (*plan, error) { return p.commentUpdate(ctx, m, in) })
	case CommentDelete:
		return p.expect(m, KindCommentDelete, func() (*plan, error) { return p.commentDelete(ctx, m, in) })
	default:
		return nil, validationf("unsupported payload %T for %q", m.Payload, m.Kind)
	}
}

// expect checks that the payload type matches the declared kind.
func (p *Pipeline) expect(m Mutation, kind Kind, build func() (*plan, error)) (*plan, error) {
	if m.Kind != kind {
		return nil, validationf("payload does not match kind %q", m.Kind)
	}
	return build()
}

// authorize checks the actor against every board in ids.
func (p *Pipeline) authorize(ctx context.Context, actor uuid.UUID, required domain.Role, ids ...uuid.UUID) error {
	for _, id := range ids {
		if _, err := p.boards.Authorize(ctx, actor, id, required); err != nil {
			return err
		}
	}
	return nil
}

// scope checks that an entity found on board entityBoard matches the
// mutation's board, when one was given.
func scope(m Mutation, entityBoard uuid.UUID) error {
	if m.BoardID != uuid.Nil && m.BoardID != entityBoard {
		return domain.ErrNotFound
	}
	return nil
}

// activeBoard loads a board inside the transaction and rejects archived
// boards.
func activeBoard(ctx context.Context, r domain.Repos, id uuid.UUID) (*domain.Board, error) {
	b, err := r.Boards().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Archived {
		return nil, invalidf("board %s is archived", id)
	}
	return b, nil
}

// record appends the activity for a mutation inside its transaction.
func record(ctx context.Context, r domain.Repos, res *Result, a *domain.Activity) error {
	if err := r.Activities().Append(ctx, a); err != nil {
		return err
	}
	res.Activity = a
	return nil
}

func isDomain(err error) bool {
	return domain.IsTerminal(err) || errors.Is(err, domain.ErrStorage) || errors.Is(err, domain.ErrUnauthorized)
}

// classify maps any error that is not already part of the domain taxonomy
// to ErrStorage.
func classify(err error) error {
	if isDomain(err) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrStorage, err)
}
