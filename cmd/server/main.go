// Command server serves the dashboard HTTP API: followed wallet management,
// wallet performance summaries, positions, copy trade history, settings, and
// a server-sent event stream of storage changes.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"solana-copydesk/internal/api"
	"solana-copydesk/internal/config"
	"solana-copydesk/internal/observability"
	"solana-copydesk/internal/storage"
	chstore "solana-copydesk/internal/storage/clickhouse"
	"solana-copydesk/internal/storage/memory"
	pgstore "solana-copydesk/internal/storage/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLogger := observability.NewLogger("info", "console")
		fallbackLogger.Fatal().Err(err).Msg("load config")
	}

	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	flag.Parse()

	logger := observability.NewLogger(cfg.Logging.Level, cfg.Logging.Format)

	if !*useMemory && cfg.Database.PostgresDSN == "" {
		logger.Fatal().Msg("POSTGRES_DSN is required (use -use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverConfig := api.DefaultConfig(cfg.Server.Host, cfg.Server.Port)

	var server *api.Server
	if *useMemory {
		server = api.NewServer(
			serverConfig,
			memory.NewFollowedWalletStore(),
			memory.NewSwapStore(),
			memory.NewPositionStore(),
			memory.NewCopyTradeStore(),
			memory.NewSettingsStore(),
			memory.NewSwapArchiveStore(),
			nil,
			logger,
		)
	} else {
		pool, err := pgstore.NewPool(ctx, cfg.Database.PostgresDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect to postgres")
		}
		defer pool.Close()

		var archive storage.SwapArchiveStore
		if cfg.Database.ClickhouseDSN != "" {
			conn, err := chstore.NewConn(ctx, cfg.Database.ClickhouseDSN)
			if err != nil {
				logger.Fatal().Err(err).Msg("connect to clickhouse")
			}
			defer conn.Close()
			archive = chstore.NewSwapArchiveStore(conn)
		}

		server = api.NewServer(
			serverConfig,
			pgstore.NewFollowedWalletStore(pool),
			pgstore.NewSwapStore(pool),
			pgstore.NewPositionStore(pool),
			pgstore.NewCopyTradeStore(pool),
			pgstore.NewSettingsStore(pool),
			archive,
			pgstore.NewListener(pool, logger),
			logger,
		)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown error")
		}
	}()

	if err := server.Start(); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
	logger.Info().Msg("shutdown complete")
}
