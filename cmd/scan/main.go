// Command scan runs the wallet scanning daemon: it polls followed wallets
// for swap activity, classifies and enriches new swaps, and dispatches copy
// trades for users with copying enabled. When a WebSocket endpoint is
// configured, observed wallet activity triggers an immediate targeted scan
// between polling cycles.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"solana-copydesk/internal/config"
	"solana-copydesk/internal/copytrade"
	"solana-copydesk/internal/enrich"
	"solana-copydesk/internal/executor"
	"solana-copydesk/internal/ledger"
	"solana-copydesk/internal/notify"
	"solana-copydesk/internal/observability"
	"solana-copydesk/internal/scanner"
	"solana-copydesk/internal/solana"
	"solana-copydesk/internal/storage"
	chstore "solana-copydesk/internal/storage/clickhouse"
	"solana-copydesk/internal/storage/memory"
	"solana-copydesk/internal/storage/migrations"
	pgstore "solana-copydesk/internal/storage/postgres"
)

type stores struct {
	wallets   storage.FollowedWalletStore
	swaps     storage.SwapStore
	positions storage.PositionStore
	trades    storage.CopyTradeStore
	settings  storage.SettingsStore
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLogger := observability.NewLogger("info", "console")
		fallbackLogger.Fatal().Err(err).Msg("load config")
	}

	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address")
	flag.Parse()

	logger := observability.NewLogger(cfg.Logging.Level, cfg.Logging.Format)

	if !*useMemory && cfg.Database.PostgresDSN == "" {
		logger.Fatal().Msg("POSTGRES_DSN is required (use -use-memory for in-memory storage)")
	}
	if len(cfg.Solana.RPCEndpoints) == 0 {
		logger.Fatal().Msg("SOLANA_RPC_ENDPOINTS is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, cleanup, err := createStores(ctx, cfg, *useMemory)
	if err != nil {
		logger.Fatal().Err(err).Msg("create stores")
	}
	defer cleanup()

	archive, archiveCleanup, err := createArchive(ctx, cfg, *useMemory, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("create swap archive")
	}
	defer archiveCleanup()

	gateway, err := solana.NewGateway(cfg.Solana.RPCEndpoints, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("create rpc gateway")
	}

	var rdb *redis.Client
	if cfg.Database.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Database.RedisAddr,
			Password: cfg.Database.RedisPassword,
			DB:       cfg.Database.RedisDB,
		})
		defer rdb.Close()
	}
	enricher := enrich.NewEnricher(
		enrich.NewPriceClient(cfg.Jupiter.PriceAPIURL),
		enrich.NewSymbolClient(cfg.Jupiter.TokenAPIURL),
		rdb,
		logger,
	)

	exec, err := buildExecutor(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("create executor")
	}
	notifier := buildNotifier(cfg, logger)
	led := ledger.New(st.positions, logger)
	dispatcher := copytrade.NewDispatcher(st.settings, st.trades, st.positions, exec, led, notifier, logger)

	limiter := rate.NewLimiter(rate.Limit(cfg.Scanner.RatePerSec), 1)
	sc := scanner.New(gateway, st.swaps, archive, st.wallets, enricher, dispatcher, limiter, logger)

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

	runLoop(ctx, cfg, sc, st.wallets, logger)
	close(done)
	logger.Info().Msg("shutdown complete")
}

// runLoop alternates full scans on the configured interval with targeted
// scans triggered by WebSocket wallet activity.
func runLoop(ctx context.Context, cfg *config.Config, sc *scanner.Scanner, wallets storage.FollowedWalletStore, logger zerolog.Logger) {
	var activity <-chan solana.WalletActivity
	var watcher *solana.LogWatcher
	if cfg.Solana.WSEndpoint != "" {
		w, err := solana.NewLogWatcher(ctx, cfg.Solana.WSEndpoint, nil, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("log watcher unavailable, polling only")
		} else {
			watcher = w
			activity = w.Activity()
			defer watcher.Close()
		}
	}

	followers := &followerIndex{byAddress: make(map[string][]string)}

	scanAll := func() {
		if err := sc.ScanAll(ctx); err != nil {
			logger.Error().Err(err).Msg("scan cycle failed")
		}
		syncWatches(ctx, wallets, watcher, followers, logger)
	}

	logger.Info().
		Dur("interval", cfg.Scanner.Interval).
		Bool("websocket", watcher != nil).
		Msg("scanner started")

	scanAll()

	ticker := time.NewTicker(cfg.Scanner.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			scanAll()
		case act := <-activity:
			users := followers.usersFor(act.Wallet)
			if len(users) == 0 {
				continue
			}
			if _, err := sc.ScanWallet(ctx, act.Wallet, users); err != nil {
				logger.Warn().Err(err).Str("wallet", act.Wallet).Msg("triggered scan failed")
			}
		}
	}
}

// followerIndex maps watched addresses to the users following them, for
// resolving WebSocket activity back to scan targets.
type followerIndex struct {
	mu        sync.RWMutex
	byAddress map[string][]string
}

func (f *followerIndex) replace(byAddress map[string][]string) {
	f.mu.Lock()
	f.byAddress = byAddress
	f.mu.Unlock()
}

func (f *followerIndex) usersFor(address string) []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.byAddress[address]
}

// syncWatches refreshes the follower index from the active wallet set and
// subscribes the watcher to any newly followed address. Watch is idempotent
// per address, so re-subscribing known wallets is harmless.
func syncWatches(ctx context.Context, wallets storage.FollowedWalletStore, watcher *solana.LogWatcher, followers *followerIndex, logger zerolog.Logger) {
	active, err := wallets.GetActive(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("refresh active wallets failed")
		return
	}

	byAddress := make(map[string][]string, len(active))
	for _, w := range active {
		byAddress[w.Address] = append(byAddress[w.Address], w.UserID)
	}
	followers.replace(byAddress)

	if watcher == nil {
		return
	}
	for address := range byAddress {
		if err := watcher.Watch(address); err != nil {
			logger.Warn().Err(err).Str("wallet", address).Msg("watch subscribe failed")
		}
	}
}

func createStores(ctx context.Context, cfg *config.Config, useMemory bool) (*stores, func(), error) {
	if useMemory {
		return &stores{
			wallets:   memory.NewFollowedWalletStore(),
			swaps:     memory.NewSwapStore(),
			positions: memory.NewPositionStore(),
			trades:    memory.NewCopyTradeStore(),
			settings:  memory.NewSettingsStore(),
		}, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.Database.PostgresDSN)
	if err != nil {
		return nil, nil, err
	}
	return &stores{
		wallets:   pgstore.NewFollowedWalletStore(pool),
		swaps:     pgstore.NewSwapStore(pool),
		positions: pgstore.NewPositionStore(pool),
		trades:    pgstore.NewCopyTradeStore(pool),
		settings:  pgstore.NewSettingsStore(pool),
	}, pool.Close, nil
}

// createArchive connects the ClickHouse swap archive. In-memory mode uses
// the memory archive so pnl views still work; an unset DSN disables
// archiving entirely.
func createArchive(ctx context.Context, cfg *config.Config, useMemory bool, logger zerolog.Logger) (storage.SwapArchiveStore, func(), error) {
	if !cfg.Scanner.ArchiveSwaps {
		return nil, func() {}, nil
	}
	if useMemory {
		return memory.NewSwapArchiveStore(), func() {}, nil
	}
	if cfg.Database.ClickhouseDSN == "" {
		logger.Info().Msg("no clickhouse dsn configured, swap archiving disabled")
		return nil, func() {}, nil
	}

	conn, err := migrations.RunClickhouse(ctx, cfg.Database.ClickhouseDSN)
	if err != nil {
		return nil, nil, err
	}
	return chstore.NewSwapArchiveStore(conn), func() { _ = conn.Close() }, nil
}

// buildExecutor assembles the swap executor from trading config. Dry-run
// mode quotes live but simulates execution; live mode requires a funded
// wallet key.
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
