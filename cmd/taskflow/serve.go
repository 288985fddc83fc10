package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gosuda/taskflow/internal/config"
	"github.com/gosuda/taskflow/internal/domain"
	"github.com/gosuda/taskflow/internal/messenger/slack"
	"github.com/gosuda/taskflow/internal/notify"
	"github.com/gosuda/taskflow/internal/server"
	"github.com/gosuda/taskflow/internal/store/postgres"
	redisstore "github.com/gosuda/taskflow/internal/store/redis"
	"github.com/gosuda/taskflow/internal/telemetry"
	"github.com/gosuda/taskflow/internal/workflow"
)

func newServeCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "Apply the schema before serving")
	return cmd
}

// loadConfig reads configuration and installs the logger.
func loadConfig() (*config.Config, func() error, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	return cfg, setupLogging(cfg.Log), nil
}

func openStore(ctx context.Context, cfg *config.Config) (*postgres.Store, error) {
	if cfg.Database.MaxConns > math.MaxInt32 {
		return nil, fmt.Errorf("database max_conns %d out of int32 range", cfg.Database.MaxConns)
	}
	return postgres.New(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns)) //nolint:gosec // bounds checked above
}

func runServe(ctx context.Context, migrate bool) error {
	cfg, closeLog, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// 1. Telemetry first so the engine instruments bind to real providers.
	providers, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		MetricInterval: cfg.Telemetry.MetricInterval,
	}, "taskflow", version)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("telemetry shutdown")
		}
	}()

	// 2. PostgreSQL.
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if migrate {
		if err := store.Migrate(ctx); err != nil {
			return err
		}
		log.Info().Msg("schema applied")
	}

	// 3. Redis is optional: without it there are no live feeds.
	var (
		pubsub *redisstore.PubSub
		feed   server.Feed
		live   notify.LivePublisher
		boards domain.BoardPublisher
	)
	if cfg.Redis.Addr != "" {
		pubsub, err = redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer func() { _ = pubsub.Close() }()
		feed, live, boards = pubsub, pubsub, pubsub
	} else {
		log.Warn().Msg("TASKFLOW_REDIS_ADDR is empty; live board and notification feeds are disabled")
	}

	// 4. Notification delivery: inbox, live channel and messenger push.
	registry := notify.NewRegistry()
	if cfg.Slack.BotToken != "" {
		registry.Register(slack.NewFromToken(cfg.Slack.BotToken))
		log.Info().Msg("Slack delivery enabled")
	}
	var push notify.Pusher
	if registry.Len() > 0 {
		push = notify.New(registry, store.Users(), notify.BreakerSettings{
			MaxFailures: uint32(cfg.Notify.BreakerMaxFailures), //nolint:gosec // validated >= 1
			OpenTimeout: cfg.Notify.BreakerOpenTimeout,
		})
	}
	dispatcher := notify.NewDispatcher(store.Notifications(), live, push, cfg.Notify.Timeout)

	// 5. Engine and HTTP server.
	engine := workflow.New(store, dispatcher, boards)
	srv := server.New(ctx, cfg, engine, store, feed)

	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Str("version", version).Msg("starting server")
		if startErr := srv.Start(ctx); startErr != nil {
			log.Error().Err(startErr).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	// In-flight notifications finish before the store closes.
	dispatcher.Wait()

	log.Info().Msg("stopped")
	return nil
}
