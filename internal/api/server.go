// Package api provides the HTTP API for the copy-trading dashboard.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"solana-copydesk/internal/observability"
	"solana-copydesk/internal/storage"
	pgstore "solana-copydesk/internal/storage/postgres"
)

// ChangeFeed streams storage change notifications. Satisfied by
// pgstore.Listener; nil disables the events endpoint.
type ChangeFeed interface {
	Listen(ctx context.Context, channels ...string) (<-chan pgstore.Notification, error)
}

// Config holds HTTP server settings.
type Config struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns sensible server defaults. The write timeout is long
// because the events endpoint holds its response open.
func DefaultConfig(host, port string) *Config {
	return &Config{
		Host:            host,
		Port:            port,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    5 * time.Minute,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Server is the HTTP API server.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	logger     zerolog.Logger
	config     *Config

	wallets   storage.FollowedWalletStore
	swaps     storage.SwapStore
	positions storage.PositionStore
	trades    storage.CopyTradeStore
	settings  storage.SettingsStore
	archive   storage.SwapArchiveStore // nil: daily pnl is computed from the swap store
	feed      ChangeFeed               // nil disables /api/v1/events
}

// NewServer creates an API server over the given stores.
func NewServer(
	config *Config,
	wallets storage.FollowedWalletStore,
	swaps storage.SwapStore,
	positions storage.PositionStore,
	trades storage.CopyTradeStore,
	settings storage.SettingsStore,
	archive storage.SwapArchiveStore,
	feed ChangeFeed,
	logger zerolog.Logger,
) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		logger:    logger.With().Str("component", "api").Logger(),
		config:    config,
		wallets:   wallets,
		swaps:     swaps,
		positions: positions,
		trades:    trades,
		settings:  settings,
		archive:   archive,
		feed:      feed,
	}

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", config.Host, config.Port),
		Handler:      s.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.recoveryMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", observability.Handler()).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/users/{userID}/wallets", s.handleFollowWallet).Methods(http.MethodPost)
	api.HandleFunc("/users/{userID}/wallets", s.handleListWallets).Methods(http.MethodGet)
	api.HandleFunc("/users/{userID}/wallets/{address}", s.handleUnfollowWallet).Methods(http.MethodDelete)
	api.HandleFunc("/users/{userID}/positions", s.handleListPositions).Methods(http.MethodGet)
	api.HandleFunc("/users/{userID}/copy-trades", s.handleListCopyTrades).Methods(http.MethodGet)
	api.HandleFunc("/users/{userID}/settings", s.handleGetSettings).Methods(http.MethodGet)
	api.HandleFunc("/users/{userID}/settings", s.handlePutSettings).Methods(http.MethodPut)
	api.HandleFunc("/wallets/{address}/summary", s.handleWalletSummary).Methods(http.MethodGet)
	api.HandleFunc("/wallets/{address}/swaps", s.handleWalletSwaps).Methods(http.MethodGet)
	api.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)
}

// Router exposes the configured handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start runs the server until it fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("api server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(started)).
			Msg("request")
	})
}

func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("handler panicked")
				respondError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
