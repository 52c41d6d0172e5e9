package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Channels position and copy-trade row triggers notify on. Dashboards and
// the read API subscribe here instead of polling the tables.
const (
	ChannelPositions  = "positions_changed"
	ChannelCopyTrades = "copy_trades_changed"
)

// Notification is one LISTEN/NOTIFY event.
type Notification struct {
	Channel string
	Payload string // JSON emitted by the row trigger
}

// Listener bridges PostgreSQL LISTEN/NOTIFY into a Go channel. It holds one
// dedicated connection and reconnects with backoff when it drops.
type Listener struct {
	pool   *Pool
	logger zerolog.Logger
}

// NewListener creates a listener over the pool.
func NewListener(pool *Pool, logger zerolog.Logger) *Listener {
	return &Listener{
		pool:   pool,
		logger: logger.With().Str("component", "pg-listener").Logger(),
	}
}

// Listen subscribes to the given channels and streams notifications until
// ctx is canceled. The returned channel is closed on cancellation.
// Notifications arriving while the connection is being re-established are
// lost; consumers needing a consistent view re-read the tables after a gap.
func (l *Listener) Listen(ctx context.Context, channels ...string) (<-chan Notification, error) {
	if len(channels) == 0 {
		return nil, fmt.Errorf("no channels to listen on")
	}

	out := make(chan Notification, 64)
	go l.run(ctx, channels, out)
	return out, nil
}

func (l *Listener) run(ctx context.Context, channels []string, out chan<- Notification) {
	defer close(out)

	const reconnectWait = time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		if err := l.listenOnce(ctx, channels, out); err != nil && ctx.Err() == nil {
			l.logger.Warn().Err(err).Msg("listen connection lost, reconnecting")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectWait):
		}
	}
}

func (l *Listener) listenOnce(ctx context.Context, channels []string, out chan<- Notification) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen connection: %w", err)
	}
	defer releaseListenConn(conn)

	for _, channel := range channels {
		if _, err := conn.Exec(ctx, "LISTEN "+sanitizeChannel(channel)); err != nil {
			return fmt.Errorf("listen on %s: %w", channel, err)
		}
	}
	l.logger.Info().Strs("channels", channels).Msg("listening for notifications")

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		select {
		case out <- Notification{Channel: n.Channel, Payload: n.Payload}:
		default:
			l.logger.Warn().Str("channel", n.Channel).Msg("notification dropped, consumer too slow")
		}
	}
}

// releaseListenConn returns the dedicated connection to the pool. The
// connection still has LISTEN state, so it is destroyed rather than reused.
func releaseListenConn(conn *pgxpool.Conn) {
	if conn.Conn() != nil {
		conn.Hijack().Close(context.Background())
	}
}

// sanitizeChannel quotes a channel name as an identifier. Channel names are
// compile-time constants here; quoting guards against future misuse.
func sanitizeChannel(channel string) string {
	return `"` + channel + `"`
}
