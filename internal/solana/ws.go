package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// WatcherConfig configures the log watcher's connection behavior.
type WatcherConfig struct {
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	WriteTimeout      time.Duration
}

// DefaultWatcherConfig returns default watcher configuration.
func DefaultWatcherConfig() WatcherConfig {
	return WatcherConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// WalletActivity is one transaction signature observed mentioning a watched wallet.
type WalletActivity struct {
	Wallet    string
	Signature string
}

// LogWatcher subscribes to logsSubscribe with a mentions filter per watched
// wallet and emits signatures as they land. It is an accelerator for the
// scanner's poll loop, not a replacement: missed notifications are picked up
// by the next poll. Reconnects automatically with capped backoff and
// resubscribes all wallets.
type LogWatcher struct {
	endpoint string
	config   WatcherConfig
	logger   zerolog.Logger

	conn      *websocket.Conn
	connMu    sync.Mutex
	requestID atomic.Uint64

	// wallets maps wallet address to its active subscription id (0 if pending).
	wallets   map[string]int64
	walletsMu sync.Mutex

	// subToWallet maps subscription id back to wallet for dispatch.
	subToWallet   map[int64]string
	subToWalletMu sync.RWMutex

	// pending maps request id to wallet awaiting a subscription id.
	pending   map[uint64]string
	pendingMu sync.Mutex

	activity chan WalletActivity
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewLogWatcher connects to the WebSocket endpoint and starts the read loop.
func NewLogWatcher(ctx context.Context, endpoint string, config *WatcherConfig, logger zerolog.Logger) (*LogWatcher, error) {
	cfg := DefaultWatcherConfig()
	if config != nil {
		cfg = *config
	}

	w := &LogWatcher{
		endpoint:    endpoint,
		config:      cfg,
		logger:      logger.With().Str("component", "log_watcher").Logger(),
		wallets:     make(map[string]int64),
		subToWallet: make(map[int64]string),
		pending:     make(map[uint64]string),
		activity:    make(chan WalletActivity, 256),
		done:        make(chan struct{}),
	}

	if err := w.connect(ctx); err != nil {
		return nil, err
	}

	w.wg.Add(1)
	go w.readLoop()

	return w, nil
}

// Activity returns the channel of observed wallet activity.
func (w *LogWatcher) Activity() <-chan WalletActivity {
	return w.activity
}

// Watch subscribes to log notifications mentioning the wallet.
func (w *LogWatcher) Watch(wallet string) error {
	w.walletsMu.Lock()
	if _, exists := w.wallets[wallet]; exists {
		w.walletsMu.Unlock()
		return nil
	}
	w.wallets[wallet] = 0
	w.walletsMu.Unlock()

	return w.sendSubscribe(wallet)
}

// Close stops the watcher and closes the underlying connection.
func (w *LogWatcher) Close() error {
	close(w.done)
	w.connMu.Lock()
	if w.conn != nil {
		w.conn.Close()
	}
	w.connMu.Unlock()
	w.wg.Wait()
	close(w.activity)
	return nil
}

func (w *LogWatcher) connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, w.endpoint, nil)
	if err != nil {
		return fmt.Errorf("dial websocket: %w", err)
	}

	w.connMu.Lock()
	w.conn = conn
	w.connMu.Unlock()
	return nil
}

func (w *LogWatcher) sendSubscribe(wallet string) error {
	reqID := w.requestID.Add(1)

	w.pendingMu.Lock()
	w.pending[reqID] = wallet
	w.pendingMu.Unlock()

	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "logsSubscribe",
		Params: []interface{}{
			map[string]interface{}{"mentions": []string{wallet}},
			map[string]interface{}{"commitment": "confirmed"},
		},
	}

	w.connMu.Lock()
	defer w.connMu.Unlock()
	if w.conn == nil {
		return fmt.Errorf("not connected")
	}
	w.conn.SetWriteDeadline(time.Now().Add(w.config.WriteTimeout))
	if err := w.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}
	return nil
}

// wsMessage covers both subscription confirmations and notifications.
type wsMessage struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Method string          `json:"method"`
	Params *wsNotifyParams `json:"params"`
}

type wsNotifyParams struct {
	Subscription int64 `json:"subscription"`
	Result       struct {
		Value struct {
			Signature string      `json:"signature"`
			Err       interface{} `json:"err"`
		} `json:"value"`
	} `json:"result"`
}

func (w *LogWatcher) readLoop() {
	defer w.wg.Done()

	delay := w.config.ReconnectDelay
	for {
		select {
		case <-w.done:
			return
		default:
		}

		w.connMu.Lock()
		conn := w.conn
		w.connMu.Unlock()

		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-w.done:
				return
			case <-time.After(delay):
			}
			delay *= 2
			if delay > w.config.MaxReconnectDelay {
				delay = w.config.MaxReconnectDelay
			}
			w.reconnect()
			continue
		}
		delay = w.config.ReconnectDelay

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			w.logger.Debug().Err(err).Msg("unparseable ws message")
			continue
		}

		switch {
		case msg.ID != 0 && msg.Result != nil:
			w.handleSubscribed(msg)
		case msg.Method == "logsNotification" && msg.Params != nil:
			w.handleNotification(msg.Params)
		}
	}
}

func (w *LogWatcher) handleSubscribed(msg wsMessage) {
	var subID int64
	if err := json.Unmarshal(msg.Result, &subID); err != nil {
		return
	}

	w.pendingMu.Lock()
	wallet, ok := w.pending[msg.ID]
	delete(w.pending, msg.ID)
	w.pendingMu.Unlock()
	if !ok {
		return
	}

	w.walletsMu.Lock()
	w.wallets[wallet] = subID
	w.walletsMu.Unlock()

	w.subToWalletMu.Lock()
	w.subToWallet[subID] = wallet
	w.subToWalletMu.Unlock()

	w.logger.Debug().Str("wallet", wallet).Int64("subscription", subID).Msg("wallet subscribed")
}

func (w *LogWatcher) handleNotification(params *wsNotifyParams) {
	// Failed transactions are never swaps; skip before dispatch.
	if params.Result.Value.Err != nil {
		return
	}

	w.subToWalletMu.RLock()
	wallet, ok := w.subToWallet[params.Subscription]
	w.subToWalletMu.RUnlock()
	if !ok {
		return
	}

	select {
	case w.activity <- WalletActivity{Wallet: wallet, Signature: params.Result.Value.Signature}:
	default:
		w.logger.Warn().Str("wallet", wallet).Msg("activity channel full, dropping notification")
	}
}

func (w *LogWatcher) reconnect() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := w.connect(ctx); err != nil {
		w.logger.Warn().Err(err).Msg("reconnect failed")
		return
	}

	// Resubscribe every watched wallet with fresh request ids.
	w.subToWalletMu.Lock()
	w.subToWallet = make(map[int64]string)
	w.subToWalletMu.Unlock()

	w.walletsMu.Lock()
	wallets := make([]string, 0, len(w.wallets))
	for wallet := range w.wallets {
		w.wallets[wallet] = 0
		wallets = append(wallets, wallet)
	}
	w.walletsMu.Unlock()

	for _, wallet := range wallets {
		if err := w.sendSubscribe(wallet); err != nil {
			w.logger.Warn().Str("wallet", wallet).Err(err).Msg("resubscribe failed")
		}
	}

	w.logger.Info().Int("wallets", len(wallets)).Msg("reconnected")
}
