package postgres

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AbhinayAmbati/kanbana/internal/domain"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so every repo
// works inside and outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool       *pgxpool.Pool
	users      *UserRepo
	workspaces *WorkspaceRepo
	boards     *BoardRepo
	columns    *ColumnRepo
	cards      *CardRepo
	comments   *CommentRepo
	activities *ActivityRepo
}

var _ domain.Store = (*Store)(nil)

func New(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: parse config: %w", err)
	}

	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: connect: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	return &Store{
		pool:       pool,
		users:      NewUserRepo(pool),
		workspaces: NewWorkspaceRepo(pool),
		boards:     NewBoardRepo(pool),
		columns:    NewColumnRepo(pool),
		cards:      NewCardRepo(pool),
		comments:   NewCommentRepo(pool),
		activities: NewActivityRepo(pool),
	}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres.Store.Ping: %w", err)
	}
	return nil
}

func (s *Store) Users() domain.UserRepository { return s.users }
func (s *Store) Workspaces() domain.WorkspaceRepository { return s.workspaces }
func (s *Store) Boards() domain.BoardRepository { return s.boards }
func (s *Store) Columns() domain.ColumnRepository { return s.columns }
func (s *Store) Cards() domain.CardRepository { return s.cards }
func (s *Store) Comments() domain.CommentRepository { return s.comments }
func (s *Store) Activities() domain.ActivityRepository { return s.activities }

type txRepos struct {
	boards     *BoardRepo
	columns    *ColumnRepo
	cards      *CardRepo
	comments   *CommentRepo
	activities *ActivityRepo
}

func (t *txRepos) Boards() domain.BoardRepository { return t.boards }
func (t *txRepos) Columns() domain.ColumnRepository { return t.columns }
func (t *txRepos) Cards() domain.CardRepository { return t.cards }
func (t *txRepos) Comments() domain.CommentRepository { return t.comments }
func (t *txRepos) Activities() domain.ActivityRepository { return t.activities }

// InBoardTx runs fn in one transaction holding a transaction-scoped
// advisory lock per board. Locks are taken in id order, so concurrent
// callers on any instance serialize per board without deadlocking.
func (s *Store) InBoardTx(ctx context.Context, boardIDs []uuid.UUID, fn func(domain.Repos) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres.Store.InBoardTx: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, id := range sortIDs(boardIDs) {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, id.String()); err != nil {
			return fmt.Errorf("postgres.Store.InBoardTx: lock board %s: %w", id, err)
		}
	}

	if err := fn(&txRepos{
		boards:     &BoardRepo{db: tx},
		columns:    &ColumnRepo{db: tx},
		cards:      &CardRepo{db: tx},
		comments:   &CommentRepo{db: tx},
		activities: &ActivityRepo{db: tx},
	}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres.Store.InBoardTx: commit: %w", err)
	}
	return nil
}

func sortIDs(ids []uuid.UUID) []uuid.UUID {
	out := append([]uuid.UUID(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i][:], out[j][:]) < 0 })
	return out
}
