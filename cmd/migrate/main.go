// Command migrate applies the PostgreSQL schema migrations and, when a
// ClickHouse DSN is configured, bootstraps the analytics archive schema.
package main

import (
	"context"
	"flag"
	"time"

	"solana-copydesk/internal/config"
	"solana-copydesk/internal/observability"
	"solana-copydesk/internal/storage/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLogger := observability.NewLogger("info", "console")
		fallbackLogger.Fatal().Err(err).Msg("load config")
	}

	postgresDSN := flag.String("postgres-dsn", cfg.Database.PostgresDSN, "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", cfg.Database.ClickhouseDSN, "ClickHouse connection string (optional)")
	down := flag.Bool("down", false, "Roll back the last PostgreSQL migration instead of applying")
	flag.Parse()

	logger := observability.NewLogger(cfg.Logging.Level, cfg.Logging.Format)

	if *postgresDSN == "" {
		logger.Fatal().Msg("-postgres-dsn or POSTGRES_DSN is required")
	}

	if *down {
		if err := migrations.RollbackPostgres(*postgresDSN); err != nil {
			logger.Fatal().Err(err).Msg("postgres rollback failed")
		}
		logger.Info().Msg("postgres rollback applied")
		return
	}

	if err := migrations.RunPostgres(*postgresDSN); err != nil {
		logger.Fatal().Err(err).Msg("postgres migrations failed")
	}
	logger.Info().Msg("postgres migrations applied")

	if *clickhouseDSN == "" {
		logger.Info().Msg("no clickhouse dsn configured, skipping archive schema")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	conn, err := migrations.RunClickhouse(ctx, *clickhouseDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("clickhouse migrations failed")
	}
	defer conn.Close()
	logger.Info().Msg("clickhouse migrations applied")
}
