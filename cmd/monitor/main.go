// Command monitor runs the position control loop: it refreshes pricing for
// every open position and exits the ones whose stop-loss or take-profit
// threshold tripped. Prices are quoted in SOL per token so they compare
// directly against recorded entry prices.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"solana-copydesk/internal/config"
	"solana-copydesk/internal/domain"
	"solana-copydesk/internal/enrich"
	"solana-copydesk/internal/executor"
	"solana-copydesk/internal/ledger"
	"solana-copydesk/internal/monitor"
	"solana-copydesk/internal/notify"
	"solana-copydesk/internal/observability"
	pgstore "solana-copydesk/internal/storage/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLogger := observability.NewLogger("info", "console")
		fallbackLogger.Fatal().Err(err).Msg("load config")
	}

	metricsAddr := flag.String("metrics-addr", ":9091", "Prometheus metrics HTTP address")
	flag.Parse()

	logger := observability.NewLogger(cfg.Logging.Level, cfg.Logging.Format)

	if cfg.Database.PostgresDSN == "" {
		logger.Fatal().Msg("POSTGRES_DSN is required")
	}
	if len(cfg.Solana.RPCEndpoints) == 0 {
		logger.Fatal().Msg("SOLANA_RPC_ENDPOINTS is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgstore.NewPool(ctx, cfg.Database.PostgresDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to postgres")
	}
	defer pool.Close()

	positions := pgstore.NewPositionStore(pool)
	prices := enrich.NewPriceClient(cfg.Jupiter.PriceAPIURL, enrich.WithVsToken(domain.SOLMint))

	exec, err := buildExecutor(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("create executor")
	}
	notifier := buildNotifier(cfg, logger)
	led := ledger.New(positions, logger)

	m := monitor.New(positions, prices, exec, led, notifier, logger,
		monitor.WithInterval(cfg.Monitor.Interval))

	go startMetricsServer(*metricsAddr, logger)

	done := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
		select {
		case <-sigCh:
			logger.Warn().Msg("second signal, forcing exit")
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Warn().Msg("graceful shutdown timed out, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	m.Run(ctx)
	close(done)
	logger.Info().Msg("shutdown complete")
}

func buildExecutor(cfg *config.Config, logger zerolog.Logger) (executor.Executor, error) {
	var signer executor.Signer
	if cfg.Trading.PrivateKey != "" {
		s, err := executor.NewWalletSigner(cfg.Trading.PrivateKey, cfg.Solana.RPCEndpoints[0])
		if err != nil {
			return nil, err
		}
		signer = s
	}

	exec, err := executor.NewJupiterExecutor(cfg.Jupiter.APIURL, signer, logger)
	if err != nil {
		return nil, err
	}
	if cfg.Trading.DryRun {
		return executor.NewDryRun(exec), nil
	}
	if signer == nil {
		return nil, errors.New("live trading requires WALLET_PRIVATE_KEY")
	}
	return exec, nil
}

func buildNotifier(cfg *config.Config, logger zerolog.Logger) notify.Notifier {
	if cfg.Telegram.BotToken == "" {
		return notify.Noop{}
	}
	n, err := notify.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram notifier unavailable, notifications disabled")
		return notify.Noop{}
	}
	return n
}

func startMetricsServer(addr string, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	logger.Info().Str("addr", addr).Msg("metrics server listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error().Err(err).Msg("metrics server stopped")
	}
}
