package commands

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/AbhinayAmbati/kanbana/internal/auth"
	"github.com/AbhinayAmbati/kanbana/internal/config"
	"github.com/AbhinayAmbati/kanbana/internal/domain"
	"github.com/AbhinayAmbati/kanbana/internal/pipeline"
	"github.com/AbhinayAmbati/kanbana/internal/realtime"
	"github.com/AbhinayAmbati/kanbana/internal/server"
	"github.com/AbhinayAmbati/kanbana/internal/store/memory"
	"github.com/AbhinayAmbati/kanbana/internal/store/postgres"
	redisstore "github.com/AbhinayAmbati/kanbana/internal/store/redis"
)

var (
	serveMigrate bool
	seedUsers    []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and WebSocket server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		return serve(ctx, cfg)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "apply pending migrations before serving (postgres store)")
	serveCmd.Flags().StringSliceVar(&seedUsers, "seed-user", nil, "create a user with this display name and a workspace it owns (memory store)")
}

func serve(ctx context.Context, cfg *config.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	store, health, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	var hubOpts []realtime.HubOption
	var relay *redisstore.Relay
	if cfg.Redis.Enabled() {
		ps, err := redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer ps.Close()

		relay = redisstore.NewRelay(ps)
		hubOpts = append(hubOpts,
			realtime.WithRelay(relay),
			realtime.WithPresence(redisstore.NewPresence(ps.Client(), cfg.Redis.PresenceTTL)),
		)
	}
	hub := realtime.NewHub(hubOpts...)

	if relay != nil {
		ready := make(chan struct{})
		go func() {
			if err := relay.Run(ctx, hub.Deliver, ready); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("event relay stopped")
				cancel()
			}
		}()
		select {
		case <-ready:
			log.Info().Str("addr", cfg.Redis.Addr).Msg("event relay subscribed")
		case <-ctx.Done():
			return fmt.Errorf("serve: relay: %w", ctx.Err())
		}
	}

	p := pipeline.New(store, hub, pipeline.Options{
		Timeout:              cfg.Realtime.MutationTimeout,
		AllowCrossBoardMoves: cfg.Realtime.AllowCrossBoardMoves,
	})

	srv := server.New(ctx, cfg, server.Deps{
		Pipeline: p,
		Hub:      hub,
		Registry: realtime.NewRegistry(hub),
		Verifier: auth.NewVerifier(cfg.JWT.Secret, store.Users()),
		Health:   health,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	log.Info().Msg("stopped")
	return nil
}

// openStore connects the configured backend. health is nil for the memory
// store.
func openStore(ctx context.Context, cfg *config.Config) (domain.Store, server.Pinger, func(), error) {
	switch cfg.Store {
	case config.StoreMemory:
		s := memory.New()
		seeded, err := seed(ctx, s, seedUsers)
		if err != nil {
			return nil, nil, nil, err
		}
		for _, w := range seeded {
			log.Info().Str("user_id", w.OwnerID.String()).Str("workspace_id", w.ID.String()).Msg("seeded user")
		}
		log.Warn().Msg("using in-memory store; state is lost on exit")
		return s, nil, func() {}, nil

	case config.StorePostgres:
		if len(seedUsers) > 0 {
			return nil, nil, nil, errors.New("serve: --seed-user requires the memory store")
		}
		if cfg.Database.MaxConns > math.MaxInt32 {
			return nil, nil, nil, fmt.Errorf("database max_conns %d out of int32 range", cfg.Database.MaxConns)
		}
		if serveMigrate {
			if err := postgres.MigrateUp(cfg.Database.URL()); err != nil {
				return nil, nil, nil, err
			}
		}
		s, err := postgres.New(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns)) //nolint:gosec // bounds checked above
		if err != nil {
			return nil, nil, nil, err
		}
		return s, s, s.Close, nil

	default:
		return nil, nil, nil, fmt.Errorf("serve: unknown store %q", cfg.Store)
	}
}

// seed creates users and one workspace per user so a memory-backed server
// can be exercised with tokens from the account service.
func seed(ctx context.Context, s domain.Store, names []string) ([]*domain.Workspace, error) {
	out := make([]*domain.Workspace, 0, len(names))
	for _, name := range names {
		u := &domain.User{ID: uuid.New(), Name: name}
		if err := s.Users().Create(ctx, u); err != nil {
			return nil, fmt.Errorf("seed user %q: %w", name, err)
		}
		w := &domain.Workspace{Name: name + "'s workspace", OwnerID: u.ID}
		if err := s.Workspaces().Create(ctx, w); err != nil {
			return nil, fmt.Errorf("seed workspace for %q: %w", name, err)
		}
		out = append(out, w)
	}
	return out, nil
}
